package data

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testEntries(ids ...string) []*RankingEntry {
	list := make([]*RankingEntry, 0, len(ids))
	for i, id := range ids {
		list = append(list, &RankingEntry{
			Rank:             i + 1,
			CharacterID:      id,
			CharacterName:    "name-" + id,
			CreatorID:        "creator-" + id,
			InteractionCount: int64(1000 * (len(ids) - i)),
		})
	}
	return list
}

func TestApplyRankDeltas(t *testing.T) {
	entries := testEntries("a", "b", "c")
	prev := map[string]int{"a": 3, "b": 2}

	ApplyRankDeltas(entries, prev)

	assert.Equal(t, 2, entries[0].RankDelta)
	assert.False(t, entries[0].IsNew)
	assert.Equal(t, 0, entries[1].RankDelta)
	assert.False(t, entries[1].IsNew)
	assert.Equal(t, 0, entries[2].RankDelta)
	assert.True(t, entries[2].IsNew)
}

func TestApplyRankDeltas_MovedDown(t *testing.T) {
	entries := testEntries("a", "b")
	ApplyRankDeltas(entries, map[string]int{"b": 1, "a": 2})
	assert.Equal(t, 1, entries[0].RankDelta)
	assert.Equal(t, -1, entries[1].RankDelta)
}

func TestApplyRankDeltas_NoPrevious(t *testing.T) {
	entries := testEntries("a", "b")
	entries[0].IsNew = true
	entries[0].RankDelta = 5

	ApplyRankDeltas(entries, nil)

	for _, e := range entries {
		assert.False(t, e.IsNew)
		assert.Zero(t, e.RankDelta)
	}
}

func TestSaveAndGetRankingSnapshot(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	takenAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	entries := testEntries("a", "b", "c")
	entries[1].IsNew = true
	entries[2].RankDelta = -4
	entries[0].CreatorHandle = "maker"

	id, err := SaveRankingSnapshot(ctx, db, "trending", takenAt, entries)
	require.NoError(t, err)
	assert.Positive(t, id)

	s, err := GetLatestRankingSnapshot(ctx, db, "trending")
	require.NoError(t, err)
	assert.Equal(t, id, s.ID)
	assert.Equal(t, "trending", s.Kind)
	assert.True(t, takenAt.Equal(s.TakenAt))
	require.Len(t, s.Entries, 3)
	assert.Equal(t, entries, s.Entries)
}

func TestGetLatestRankingSnapshot_PicksNewest(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	t0 := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	_, err := SaveRankingSnapshot(ctx, db, "best", t0, testEntries("a"))
	require.NoError(t, err)
	_, err = SaveRankingSnapshot(ctx, db, "best", t0.Add(time.Hour), testEntries("b", "a"))
	require.NoError(t, err)
	_, err = SaveRankingSnapshot(ctx, db, "new", t0.Add(2*time.Hour), testEntries("z"))
	require.NoError(t, err)

	s, err := GetLatestRankingSnapshot(ctx, db, "best")
	require.NoError(t, err)
	require.Len(t, s.Entries, 2)
	assert.Equal(t, "b", s.Entries[0].CharacterID)
}

func TestGetLatestRankingSnapshot_NotFound(t *testing.T) {
	db := setupTestDB(t)
	_, err := GetLatestRankingSnapshot(context.Background(), db, "trending")
	assert.ErrorIs(t, err, ErrSnapshotNotFound)
}

func TestGetPreviousRanks(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)

	prev, err := GetPreviousRanks(ctx, db, "trending")
	require.NoError(t, err)
	assert.Empty(t, prev)

	_, err = SaveRankingSnapshot(ctx, db, "trending", time.Now(), testEntries("a", "b"))
	require.NoError(t, err)

	prev, err = GetPreviousRanks(ctx, db, "trending")
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"a": 1, "b": 2}, prev)
}

func TestPruneRankingSnapshots(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	t0 := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	for i := range 4 {
		_, err := SaveRankingSnapshot(ctx, db, "trending", t0.Add(time.Duration(i)*time.Hour), testEntries("a", "b"))
		require.NoError(t, err)
	}

	n, err := PruneRankingSnapshots(ctx, db, "trending", 2)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	state, err := GetDataState(db)
	require.NoError(t, err)
	assert.Equal(t, int64(2), state["ranking_snapshot"])
	assert.Equal(t, int64(4), state["ranking_entry"])

	s, err := GetLatestRankingSnapshot(ctx, db, "trending")
	require.NoError(t, err)
	assert.True(t, t0.Add(3*time.Hour).Equal(s.TakenAt))
}

func TestSaveRankingSnapshot_Validation(t *testing.T) {
	ctx := context.Background()
	_, err := SaveRankingSnapshot(ctx, nil, "trending", time.Now(), nil)
	assert.Error(t, err)

	db := setupTestDB(t)
	_, err = SaveRankingSnapshot(ctx, db, "", time.Now(), nil)
	assert.Error(t, err)
}

type stubIDRows struct {
	ids     []int64
	pos     int
	err     error
	scanErr error
	closed  bool
}

func (r *stubIDRows) Next() bool {
	if r.pos >= len(r.ids) {
		return false
	}
	r.pos++
	return true
}

func (r *stubIDRows) Scan(dest ...any) error {
	if r.scanErr != nil {
		return r.scanErr
	}
	*(dest[0].(*int64)) = r.ids[r.pos-1]
	return nil
}

func (r *stubIDRows) Err() error { return r.err }

func (r *stubIDRows) Close() error {
	r.closed = true
	return nil
}

func TestScanSnapshotIDs(t *testing.T) {
	rows := &stubIDRows{ids: []int64{4, 2}}
	ids, err := scanSnapshotIDs(rows)
	require.NoError(t, err)
	assert.Equal(t, []int64{4, 2}, ids)
	assert.True(t, rows.closed)
}

func TestScanSnapshotIDs_IterationError(t *testing.T) {
	rows := &stubIDRows{ids: []int64{4}, err: errors.New("connection reset")}
	ids, err := scanSnapshotIDs(rows)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
	assert.Nil(t, ids)
	assert.True(t, rows.closed)
}

func TestScanSnapshotIDs_ScanError(t *testing.T) {
	rows := &stubIDRows{ids: []int64{4}, scanErr: errors.New("bad column")}
	_, err := scanSnapshotIDs(rows)
	require.Error(t, err)
	assert.True(t, rows.closed)
}
