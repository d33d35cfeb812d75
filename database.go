package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	_ "modernc.org/sqlite"
)

// DB wraps the SQLite database connection
type DB struct {
	conn *sql.DB
}

// PilotRow represents a pilot account
type PilotRow struct {
	ID        int64
	Username  string
	PassHash  string
	CreatedAt time.Time
}

// StatsRow holds a pilot's lifetime stats
type StatsRow struct {
	PilotID       int64
	BestDistance  float64
	Runs          int
	Crashes       int
	Playtime      float64 // seconds
	MaxDifficulty int
}

// RunRow is one recorded run
type RunRow struct {
	ID          int64
	PilotID     int64
	Theme       string
	Distance    float64
	Difficulty  int
	Duration    float64
	CrashSource string
	CrashKind   string
	CreatedAt   time.Time
}

// OpenDB opens (or creates) the SQLite database
func OpenDB(path string) (*DB, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	// one writer; keeps :memory: databases on a single connection
	conn.SetMaxOpenConns(1)

	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enabling WAL: %w", err)
	}
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, err
	}
	return db, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping checks the connection
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// migrate creates tables if they don't exist
func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS pilots (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT NOT NULL UNIQUE,
		pass_hash TEXT NOT NULL DEFAULT '',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS stats (
		pilot_id INTEGER PRIMARY KEY REFERENCES pilots(id),
		best_distance REAL NOT NULL DEFAULT 0,
		runs INTEGER NOT NULL DEFAULT 0,
		crashes INTEGER NOT NULL DEFAULT 0,
		playtime REAL NOT NULL DEFAULT 0,
		max_difficulty INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		pilot_id INTEGER REFERENCES pilots(id),
		theme TEXT NOT NULL DEFAULT '',
		distance REAL NOT NULL DEFAULT 0,
		difficulty INTEGER NOT NULL DEFAULT 0,
		duration REAL NOT NULL DEFAULT 0,
		crash_source TEXT NOT NULL DEFAULT '',
		crash_kind TEXT NOT NULL DEFAULT '',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS achievements (
		pilot_id INTEGER NOT NULL REFERENCES pilots(id),
		achievement TEXT NOT NULL,
		unlocked_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (pilot_id, achievement)
	);

	CREATE TABLE IF NOT EXISTS settings (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS analytics_events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		event_type TEXT NOT NULL,
		pilot_id INTEGER,
		session_id TEXT,
		data TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_runs_pilot ON runs(pilot_id);
	CREATE INDEX IF NOT EXISTS idx_events_type ON analytics_events(event_type, created_at);
	`
	if _, err := db.conn.Exec(schema); err != nil {
		return fmt.Errorf("migrating schema: %w", err)
	}
	return nil
}

// CreatePilot creates a new account (returns pilot ID)
func (db *DB) CreatePilot(username, passHash string) (int64, error) {
	res, err := db.conn.Exec(
		"INSERT INTO pilots (username, pass_hash) VALUES (?, ?)",
		username, passHash,
	)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	_, err = db.conn.Exec("INSERT INTO stats (pilot_id) VALUES (?)", id)
	return id, err
}

// GetPilotByUsername returns a pilot by username, nil if there is none
func (db *DB) GetPilotByUsername(username string) (*PilotRow, error) {
	row := db.conn.QueryRow(
		"SELECT id, username, pass_hash, created_at FROM pilots WHERE username = ?",
		username,
	)
	p := &PilotRow{}
	err := row.Scan(&p.ID, &p.Username, &p.PassHash, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return p, err
}

// UsernameExists checks if a username is taken
func (db *DB) UsernameExists(username string) (bool, error) {
	var count int
	err := db.conn.QueryRow("SELECT COUNT(*) FROM pilots WHERE username = ?", username).Scan(&count)
	return count > 0, err
}

// GetStats returns pilot stats, nil if the pilot is unknown
func (db *DB) GetStats(pilotID int64) (*StatsRow, error) {
	row := db.conn.QueryRow(
		"SELECT pilot_id, best_distance, runs, crashes, playtime, max_difficulty FROM stats WHERE pilot_id = ?",
		pilotID,
	)
	s := &StatsRow{}
	err := row.Scan(&s.PilotID, &s.BestDistance, &s.Runs, &s.Crashes, &s.Playtime, &s.MaxDifficulty)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return s, err
}

// RecordRun stores a finished run and folds it into the pilot's stats.
// Guest runs (PilotID 0) are stored without stats.
func (db *DB) RecordRun(r RunResult) error {
	if math.IsNaN(r.Distance) || math.IsNaN(r.Duration) {
		return fmt.Errorf("recording run: non-finite values")
	}
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("recording run: %w", err)
	}
	defer tx.Rollback()

	pid := sql.NullInt64{Int64: r.PilotID, Valid: r.PilotID > 0}
	if _, err := tx.Exec(
		`INSERT INTO runs (pilot_id, theme, distance, difficulty, duration, crash_source, crash_kind)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		pid, r.Theme, r.Distance, r.Difficulty, r.Duration, r.CrashSource, r.CrashKind,
	); err != nil {
		return fmt.Errorf("inserting run: %w", err)
	}

	if r.PilotID > 0 {
		crashed := 0
		if r.CrashSource != "" {
			crashed = 1
		}
		if _, err := tx.Exec(`
			UPDATE stats SET
				best_distance = MAX(best_distance, ?),
				runs = runs + 1,
				crashes = crashes + ?,
				playtime = playtime + ?,
				max_difficulty = MAX(max_difficulty, ?)
			WHERE pilot_id = ?`,
			r.Distance, crashed, r.Duration, r.Difficulty, r.PilotID,
		); err != nil {
			return fmt.Errorf("updating stats: %w", err)
		}
	}
	return tx.Commit()
}

// GetRuns returns a pilot's most recent runs
func (db *DB) GetRuns(pilotID int64, limit int) ([]RunRow, error) {
	rows, err := db.conn.Query(`
		SELECT id, pilot_id, theme, distance, difficulty, duration, crash_source, crash_kind, created_at
		FROM runs WHERE pilot_id = ?
		ORDER BY id DESC LIMIT ?`,
		pilotID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []RunRow
	for rows.Next() {
		var r RunRow
		if err := rows.Scan(&r.ID, &r.PilotID, &r.Theme, &r.Distance, &r.Difficulty, &r.Duration, &r.CrashSource, &r.CrashKind, &r.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

// LeaderboardEntry represents one row in the leaderboard
type LeaderboardEntry struct {
	Rank          int     `json:"rank"`
	Username      string  `json:"username"`
	BestDistance  float64 `json:"best"`
	Runs          int     `json:"runs"`
	MaxDifficulty int     `json:"difficulty"`
	Playtime      float64 `json:"playtime"`
}

// GetLeaderboard returns top pilots sorted by the given field
func (db *DB) GetLeaderboard(orderBy string, limit int) ([]LeaderboardEntry, error) {
	// Whitelist valid order columns
	validCols := map[string]string{
		"best": "s.best_distance", "runs": "s.runs",
		"difficulty": "s.max_difficulty", "playtime": "s.playtime",
	}
	col, ok := validCols[orderBy]
	if !ok {
		col = "s.best_distance"
	}

	query := `SELECT p.username, s.best_distance, s.runs, s.max_difficulty, s.playtime
		FROM stats s JOIN pilots p ON p.id = s.pilot_id
		WHERE s.runs > 0
		ORDER BY ` + col + ` DESC, p.id ASC LIMIT ?`

	rows, err := db.conn.Query(query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []LeaderboardEntry
	rank := 1
	for rows.Next() {
		var e LeaderboardEntry
		if err := rows.Scan(&e.Username, &e.BestDistance, &e.Runs, &e.MaxDifficulty, &e.Playtime); err != nil {
			return nil, err
		}
		e.Rank = rank
		rank++
		result = append(result, e)
	}
	return result, rows.Err()
}

// GetAchievements returns the IDs a pilot has unlocked
func (db *DB) GetAchievements(pilotID int64) ([]string, error) {
	rows, err := db.conn.Query(
		"SELECT achievement FROM achievements WHERE pilot_id = ? ORDER BY unlocked_at, achievement",
		pilotID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// UnlockAchievement records an achievement, reporting whether it was new
func (db *DB) UnlockAchievement(pilotID int64, id string) (bool, error) {
	res, err := db.conn.Exec(
		"INSERT OR IGNORE INTO achievements (pilot_id, achievement) VALUES (?, ?)",
		pilotID, id,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// GetSetting returns a stored setting, "" if unset
func (db *DB) GetSetting(key string) string {
	var v string
	if err := db.conn.QueryRow("SELECT value FROM settings WHERE key = ?", key).Scan(&v); err != nil {
		return ""
	}
	return v
}

// SetSetting stores a setting
func (db *DB) SetSetting(key, value string) error {
	_, err := db.conn.Exec(
		"INSERT INTO settings (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
		key, value,
	)
	return err
}
