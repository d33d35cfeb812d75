package main

import (
	"fmt"

	"github.com/rs/zerolog"
)

// Achievement definitions
type AchievementDef struct {
	ID          string
	Name        string
	Description string
}

var Achievements = []AchievementDef{
	{"first_flight", "First Flight", "Finish your first run"},
	{"kilometre", "Kilometre", "Fly 1000 units in a single run"},
	{"long_haul", "Long Haul", "Fly 5000 units in a single run"},
	{"climber", "Climber", "Reach difficulty 2"},
	{"red_zone", "Red Zone", "Finish a run in redApex"},
	{"void_walker", "Void Walker", "Finish a run in voidEye"},
	{"persistent", "Persistent", "Finish 50 runs"},
	{"survivor", "Survivor", "Fly for 1 hour total"},
}

// CheckAchievements unlocks every achievement the finished run earned and
// returns the newly unlocked ones.
func CheckAchievements(db *DB, r RunResult) []AchievementDef {
	if db == nil || r.PilotID == 0 {
		return nil
	}

	stats, err := db.GetStats(r.PilotID)
	if err != nil || stats == nil {
		return nil
	}

	existing, err := db.GetAchievements(r.PilotID)
	if err != nil {
		return nil
	}
	has := make(map[string]bool, len(existing))
	for _, a := range existing {
		has[a] = true
	}

	check := func(id string) bool {
		if has[id] {
			return false
		}
		switch id {
		case "first_flight":
			return stats.Runs >= 1
		case "kilometre":
			return r.Distance >= 1000
		case "long_haul":
			return r.Distance >= 5000
		case "climber":
			return stats.MaxDifficulty >= 2
		case "red_zone":
			return r.Theme == "redApex"
		case "void_walker":
			return r.Theme == "voidEye"
		case "persistent":
			return stats.Runs >= 50
		case "survivor":
			return stats.Playtime >= 3600
		}
		return false
	}

	var unlocked []AchievementDef
	for _, def := range Achievements {
		if check(def.ID) {
			if newlyUnlocked, err := db.UnlockAchievement(r.PilotID, def.ID); err == nil && newlyUnlocked {
				unlocked = append(unlocked, def)
			}
		}
	}
	return unlocked
}

// RunLedger is the RunRecorder backed by SQLite: it stores the run, then
// checks achievements for authenticated pilots.
type RunLedger struct {
	log zerolog.Logger
	db  *DB
}

// NewRunLedger creates a ledger over db
func NewRunLedger(log zerolog.Logger, db *DB) *RunLedger {
	return &RunLedger{log: log.With().Str("component", "ledger").Logger(), db: db}
}

// RecordRun implements RunRecorder
func (l *RunLedger) RecordRun(r RunResult) error {
	if err := l.db.RecordRun(r); err != nil {
		return fmt.Errorf("ledger: %w", err)
	}
	for _, a := range CheckAchievements(l.db, r) {
		l.log.Info().Int64("pilot", r.PilotID).Str("achievement", a.ID).Msg("achievement unlocked")
	}
	return nil
}
