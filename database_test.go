package main

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMemDB(t *testing.T) *DB {
	t.Helper()
	db, err := OpenDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestDBPilots(t *testing.T) {
	db := newMemDB(t)

	id, err := db.CreatePilot("ace", "hash")
	require.NoError(t, err)
	assert.Greater(t, id, int64(0))

	exists, err := db.UsernameExists("ace")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = db.UsernameExists("nobody")
	require.NoError(t, err)
	assert.False(t, exists)

	p, err := db.GetPilotByUsername("ace")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, id, p.ID)
	assert.Equal(t, "hash", p.PassHash)

	p, err = db.GetPilotByUsername("nobody")
	assert.NoError(t, err)
	assert.Nil(t, p)

	_, err = db.CreatePilot("ace", "other")
	assert.Error(t, err, "usernames are unique")

	stats, err := db.GetStats(id)
	require.NoError(t, err)
	require.NotNil(t, stats)
	assert.Equal(t, 0, stats.Runs)

	stats, err = db.GetStats(9999)
	assert.NoError(t, err)
	assert.Nil(t, stats)
}

func TestDBRecordRun(t *testing.T) {
	db := newMemDB(t)
	id, err := db.CreatePilot("ace", "hash")
	require.NoError(t, err)

	require.NoError(t, db.RecordRun(RunResult{PilotID: id, Theme: "pillarScape", Distance: 300, Difficulty: 2, Duration: 10, CrashSource: "track"}))
	require.NoError(t, db.RecordRun(RunResult{PilotID: id, Theme: "voidEye", Distance: 120, Difficulty: 1, Duration: 5, CrashSource: "hazard", CrashKind: "beam"}))
	require.NoError(t, db.RecordRun(RunResult{PilotID: id, Theme: "redApex", Distance: 50, Duration: 2.5}))

	stats, err := db.GetStats(id)
	require.NoError(t, err)
	assert.Equal(t, 300.0, stats.BestDistance)
	assert.Equal(t, 3, stats.Runs)
	assert.Equal(t, 2, stats.Crashes)
	assert.Equal(t, 17.5, stats.Playtime)
	assert.Equal(t, 2, stats.MaxDifficulty)

	runs, err := db.GetRuns(id, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "redApex", runs[0].Theme, "newest first")
	assert.Equal(t, "voidEye", runs[1].Theme)
	assert.Equal(t, "hazard", runs[1].CrashSource)
	assert.Equal(t, "beam", runs[1].CrashKind)
}

func TestDBRecordGuestRun(t *testing.T) {
	db := newMemDB(t)

	require.NoError(t, db.RecordRun(RunResult{Theme: "pillarScape", Distance: 42}))

	var n int
	require.NoError(t, db.conn.QueryRow("SELECT COUNT(*) FROM runs WHERE pilot_id IS NULL").Scan(&n))
	assert.Equal(t, 1, n)
}

func TestDBRecordRunRejectsNaN(t *testing.T) {
	db := newMemDB(t)
	assert.Error(t, db.RecordRun(RunResult{Distance: math.NaN()}))
	assert.Error(t, db.RecordRun(RunResult{Duration: math.NaN()}))
}

func TestDBLeaderboard(t *testing.T) {
	db := newMemDB(t)

	a, _ := db.CreatePilot("alpha", "h")
	b, _ := db.CreatePilot("bravo", "h")
	db.CreatePilot("idle", "h")

	require.NoError(t, db.RecordRun(RunResult{PilotID: a, Distance: 100, Duration: 60}))
	require.NoError(t, db.RecordRun(RunResult{PilotID: b, Distance: 500, Difficulty: 1, Duration: 10}))
	require.NoError(t, db.RecordRun(RunResult{PilotID: a, Distance: 50, Duration: 60}))

	board, err := db.GetLeaderboard("best", 10)
	require.NoError(t, err)
	require.Len(t, board, 2, "pilots without runs are excluded")
	assert.Equal(t, "bravo", board[0].Username)
	assert.Equal(t, 1, board[0].Rank)
	assert.Equal(t, "alpha", board[1].Username)
	assert.Equal(t, 2, board[1].Rank)

	board, err = db.GetLeaderboard("runs", 10)
	require.NoError(t, err)
	assert.Equal(t, "alpha", board[0].Username)
	assert.Equal(t, 2, board[0].Runs)

	board, err = db.GetLeaderboard("playtime", 1)
	require.NoError(t, err)
	require.Len(t, board, 1)
	assert.Equal(t, "alpha", board[0].Username)

	// Unknown order falls back to best distance
	board, err = db.GetLeaderboard("'; DROP TABLE pilots; --", 10)
	require.NoError(t, err)
	assert.Equal(t, "bravo", board[0].Username)
}

func TestDBAchievements(t *testing.T) {
	db := newMemDB(t)
	id, _ := db.CreatePilot("ace", "h")

	fresh, err := db.UnlockAchievement(id, "first_flight")
	require.NoError(t, err)
	assert.True(t, fresh)

	fresh, err = db.UnlockAchievement(id, "first_flight")
	require.NoError(t, err)
	assert.False(t, fresh, "second unlock is a no-op")

	ids, err := db.GetAchievements(id)
	require.NoError(t, err)
	assert.Equal(t, []string{"first_flight"}, ids)
}

func TestDBSettings(t *testing.T) {
	db := newMemDB(t)

	assert.Equal(t, "", db.GetSetting("missing"))
	require.NoError(t, db.SetSetting("k", "v1"))
	require.NoError(t, db.SetSetting("k", "v2"))
	assert.Equal(t, "v2", db.GetSetting("k"))
}

func TestDBPing(t *testing.T) {
	db := newMemDB(t)
	assert.NoError(t, db.Ping(context.Background()))
}
