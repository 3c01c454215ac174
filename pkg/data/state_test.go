package data

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetDataState_NilDB(t *testing.T) {
	_, err := GetDataState(nil)
	assert.Error(t, err)
}

func TestGetDataState_Empty(t *testing.T) {
	db := setupTestDB(t)
	state, err := GetDataState(db)
	require.NoError(t, err)
	for k := range stateQueries {
		assert.Contains(t, state, k)
		assert.Zero(t, state[k], k)
	}
}

func TestGetDataState_Counts(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	store := NewSQLStore(db, DialectSQLite)
	now := time.Now()

	require.NoError(t, store.Put(ctx, &Entry{Key: "creator:1", Value: []byte("{}"), StoredAt: now}))
	_, err := SaveRankingSnapshot(ctx, db, "trending", now, []*RankingEntry{
		{Rank: 1, CharacterID: "c1", CharacterName: "One", CreatorID: "u1"},
		{Rank: 2, CharacterID: "c2", CharacterName: "Two", CreatorID: "u1"},
		{Rank: 3, CharacterID: "c3", CharacterName: "Three", CreatorID: "u2"},
	})
	require.NoError(t, err)

	state, err := GetDataState(db)
	require.NoError(t, err)
	assert.Equal(t, int64(1), state["cache_entry"])
	assert.Equal(t, int64(1), state["ranking_snapshot"])
	assert.Equal(t, int64(3), state["ranking_entry"])
	assert.Equal(t, int64(2), state["ranking_creator"])
}

func TestResetData(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	store := NewSQLStore(db, DialectSQLite)
	now := time.Now()

	require.NoError(t, store.Put(ctx, &Entry{Key: "creator:1", Value: []byte("{}"), StoredAt: now}))
	_, err := SaveRankingSnapshot(ctx, db, "best", now, []*RankingEntry{
		{Rank: 1, CharacterID: "c1", CharacterName: "One", CreatorID: "u1"},
	})
	require.NoError(t, err)

	require.NoError(t, ResetData(db))

	state, err := GetDataState(db)
	require.NoError(t, err)
	for k, v := range state {
		assert.Zero(t, v, k)
	}
}

func TestResetData_NilDB(t *testing.T) {
	assert.Error(t, ResetData(nil))
}
