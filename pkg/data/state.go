package data

import (
	"database/sql"
	"errors"
	"fmt"
)

var stateQueries = map[string]string{
	"cache_entry":      "SELECT COUNT(*) FROM cache_entry",
	"ranking_snapshot": "SELECT COUNT(*) FROM ranking_snapshot",
	"ranking_entry":    "SELECT COUNT(*) FROM ranking_entry",
	"ranking_creator":  "SELECT COUNT(DISTINCT creator_id) FROM ranking_entry",
}

// GetDataState returns row counts for the local database.
func GetDataState(db *sql.DB) (map[string]int64, error) {
	if db == nil {
		return nil, errDBNotInitialized
	}

	state := make(map[string]int64, len(stateQueries))
	for k, q := range stateQueries {
		count, err := getCount(db, q)
		if err != nil {
			return nil, fmt.Errorf("error getting %s count: %w", k, err)
		}
		state[k] = count
	}

	return state, nil
}

// ResetData removes every cached entry and ranking snapshot.
func ResetData(db *sql.DB) error {
	if db == nil {
		return errDBNotInitialized
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("error starting reset tx: %w", err)
	}

	for _, table := range []string{"ranking_entry", "ranking_snapshot", "cache_entry"} {
		if _, err := tx.Exec("DELETE FROM " + table); err != nil {
			rollbackTransaction(tx)
			return fmt.Errorf("error clearing %s: %w", table, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("error committing reset tx: %w", err)
	}
	return nil
}

func getCount(db *sql.DB, query string) (int64, error) {
	var count int64
	if err := db.QueryRow(query).Scan(&count); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to scan row: %w", err)
	}
	return count, nil
}
