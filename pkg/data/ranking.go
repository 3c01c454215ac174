package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const (
	timestampLayout = "2006-01-02T15:04:05Z"

	insertRankingSnapshotSQL = `INSERT INTO ranking_snapshot (kind, taken_at) VALUES (?, ?)`

	insertRankingEntrySQL = `INSERT INTO ranking_entry
		(snapshot_id, rank, character_id, character_name, creator_id, creator_handle,
		 interaction_count, rank_delta, is_new)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	selectLatestSnapshotSQL = `SELECT id, taken_at FROM ranking_snapshot
		WHERE kind = ?
		ORDER BY taken_at DESC, id DESC
		LIMIT 1
	`

	selectRankingEntriesSQL = `SELECT rank, character_id, character_name, creator_id, creator_handle,
		interaction_count, rank_delta, is_new
		FROM ranking_entry
		WHERE snapshot_id = ?
		ORDER BY rank ASC
	`

	selectStaleSnapshotIDsSQL = `SELECT id FROM ranking_snapshot
		WHERE kind = ?
		ORDER BY taken_at DESC, id DESC
		LIMIT -1 OFFSET ?
	`

	deleteRankingEntriesSQL  = `DELETE FROM ranking_entry WHERE snapshot_id = ?`
	deleteRankingSnapshotSQL = `DELETE FROM ranking_snapshot WHERE id = ?`
)

// ErrSnapshotNotFound is returned when no snapshot exists for a kind.
var ErrSnapshotNotFound = errors.New("ranking snapshot not found")

// RankingEntry is one row of a platform ranking list.
type RankingEntry struct {
	Rank             int    `json:"rank" yaml:"rank"`
	CharacterID      string `json:"character_id" yaml:"characterID"`
	CharacterName    string `json:"character_name" yaml:"characterName"`
	CreatorID        string `json:"creator_id" yaml:"creatorID"`
	CreatorHandle    string `json:"creator_handle,omitempty" yaml:"creatorHandle,omitempty"`
	InteractionCount int64  `json:"interaction_count" yaml:"interactionCount"`
	RankDelta        int    `json:"rank_delta" yaml:"rankDelta"`
	IsNew            bool   `json:"is_new" yaml:"isNew"`
}

// RankingSnapshot is a ranking list captured at a point in time.
type RankingSnapshot struct {
	ID      int64           `json:"id" yaml:"id"`
	Kind    string          `json:"kind" yaml:"kind"`
	TakenAt time.Time       `json:"taken_at" yaml:"takenAt"`
	Entries []*RankingEntry `json:"entries" yaml:"entries"`
}

// ApplyRankDeltas sets RankDelta (positive means moved up) and IsNew on
// entries relative to the previous ranks. Without a previous snapshot
// nothing is flagged as new.
func ApplyRankDeltas(entries []*RankingEntry, prev map[string]int) {
	for _, e := range entries {
		if e == nil {
			continue
		}
		if len(prev) == 0 {
			e.RankDelta = 0
			e.IsNew = false
			continue
		}
		was, ok := prev[e.CharacterID]
		e.IsNew = !ok
		if ok {
			e.RankDelta = was - e.Rank
		} else {
			e.RankDelta = 0
		}
	}
}

// SaveRankingSnapshot stores entries as a new snapshot of kind.
func SaveRankingSnapshot(ctx context.Context, db *sql.DB, kind string, takenAt time.Time, entries []*RankingEntry) (int64, error) {
	if db == nil {
		return 0, errDBNotInitialized
	}
	if kind == "" {
		return 0, errors.New("ranking kind required")
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("error starting snapshot tx: %w", err)
	}

	res, err := tx.ExecContext(ctx, insertRankingSnapshotSQL, kind, takenAt.UTC().Format(timestampLayout))
	if err != nil {
		rollbackTransaction(tx)
		return 0, fmt.Errorf("error inserting %s snapshot: %w", kind, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		rollbackTransaction(tx)
		return 0, fmt.Errorf("error getting snapshot id: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, insertRankingEntrySQL)
	if err != nil {
		rollbackTransaction(tx)
		return 0, fmt.Errorf("error preparing ranking entry insert: %w", err)
	}
	defer stmt.Close()

	for _, e := range entries {
		if e == nil {
			continue
		}
		if _, err := stmt.ExecContext(ctx, id, e.Rank, e.CharacterID, e.CharacterName, e.CreatorID,
			e.CreatorHandle, e.InteractionCount, e.RankDelta, boolToInt(e.IsNew)); err != nil {
			rollbackTransaction(tx)
			return 0, fmt.Errorf("error inserting ranking entry %d: %w", e.Rank, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("error committing snapshot tx: %w", err)
	}

	return id, nil
}

// GetLatestRankingSnapshot returns the newest snapshot of kind.
func GetLatestRankingSnapshot(ctx context.Context, db *sql.DB, kind string) (*RankingSnapshot, error) {
	if db == nil {
		return nil, errDBNotInitialized
	}

	s := &RankingSnapshot{Kind: kind, Entries: make([]*RankingEntry, 0)}
	var takenAt string
	if err := db.QueryRowContext(ctx, selectLatestSnapshotSQL, kind).Scan(&s.ID, &takenAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSnapshotNotFound
		}
		return nil, fmt.Errorf("failed to query latest %s snapshot: %w", kind, err)
	}

	t, err := time.Parse(timestampLayout, takenAt)
	if err != nil {
		return nil, fmt.Errorf("invalid snapshot time %q: %w", takenAt, err)
	}
	s.TakenAt = t

	rows, err := db.QueryContext(ctx, selectRankingEntriesSQL, s.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to query ranking entries: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		e := &RankingEntry{}
		var isNew int
		if err := rows.Scan(&e.Rank, &e.CharacterID, &e.CharacterName, &e.CreatorID, &e.CreatorHandle,
			&e.InteractionCount, &e.RankDelta, &isNew); err != nil {
			return nil, fmt.Errorf("failed to scan ranking entry: %w", err)
		}
		e.IsNew = isNew == 1
		s.Entries = append(s.Entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate ranking entries: %w", err)
	}

	return s, nil
}

// GetPreviousRanks maps character ID to rank in the latest snapshot of kind.
// It returns an empty map when there is no snapshot yet.
func GetPreviousRanks(ctx context.Context, db *sql.DB, kind string) (map[string]int, error) {
	s, err := GetLatestRankingSnapshot(ctx, db, kind)
	if err != nil {
		if errors.Is(err, ErrSnapshotNotFound) {
			return map[string]int{}, nil
		}
		return nil, err
	}

	m := make(map[string]int, len(s.Entries))
	for _, e := range s.Entries {
		m[e.CharacterID] = e.Rank
	}
	return m, nil
}

// PruneRankingSnapshots keeps the newest keep snapshots of kind.
func PruneRankingSnapshots(ctx context.Context, db *sql.DB, kind string, keep int) (int64, error) {
	if db == nil {
		return 0, errDBNotInitialized
	}
	if keep < 1 {
		keep = 1
	}

	rows, err := db.QueryContext(ctx, selectStaleSnapshotIDsSQL, kind, keep)
	if err != nil {
		return 0, fmt.Errorf("failed to query stale snapshots: %w", err)
	}

	ids, err := scanSnapshotIDs(rows)
	if err != nil {
		return 0, err
	}

	var deleted int64
	for _, id := range ids {
		if _, err := db.ExecContext(ctx, deleteRankingEntriesSQL, id); err != nil {
			return deleted, fmt.Errorf("failed to delete entries of snapshot %d: %w", id, err)
		}
		if _, err := db.ExecContext(ctx, deleteRankingSnapshotSQL, id); err != nil {
			return deleted, fmt.Errorf("failed to delete snapshot %d: %w", id, err)
		}
		deleted++
	}

	return deleted, nil
}

// idRows is the subset of *sql.Rows read by scanSnapshotIDs.
type idRows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close() error
}

// scanSnapshotIDs drains and closes rows. An iteration error fails the
// scan so a partial list is never pruned.
func scanSnapshotIDs(rows idRows) ([]int64, error) {
	defer rows.Close()

	ids := make([]int64, 0)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate stale snapshots: %w", err)
	}
	return ids, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
