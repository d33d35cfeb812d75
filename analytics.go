package main

import (
	"database/sql"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Event types for analytics tracking
const (
	EvtRunStart    = "run_start"
	EvtRunEnd      = "run_end"
	EvtCrash       = "crash"
	EvtAttack      = "attack"
	EvtThemeSwitch = "theme_switch"
	EvtAchievement = "achievement"
)

const (
	analyticsQueueSize  = 1024
	analyticsBatchSize  = 50
	analyticsFlushEvery = 5 * time.Second
)

// AnalyticsEvent represents a single trackable event
type AnalyticsEvent struct {
	Type      string
	PilotID   int64
	SessionID string
	Data      string // JSON metadata (optional)
	Timestamp time.Time
}

// Analytics handles event tracking with batched background writes
type Analytics struct {
	log      zerolog.Logger
	db       *DB
	events   chan AnalyticsEvent
	stop     chan struct{}
	wg       sync.WaitGroup
	interval time.Duration

	stopOnce sync.Once
	mu       sync.Mutex
	closed   bool
	dropped  int
}

// NewAnalytics creates and starts the analytics background writer
func NewAnalytics(log zerolog.Logger, db *DB) *Analytics {
	return newAnalytics(log, db, analyticsFlushEvery)
}

func newAnalytics(log zerolog.Logger, db *DB, interval time.Duration) *Analytics {
	a := &Analytics{
		log:      log.With().Str("component", "analytics").Logger(),
		db:       db,
		events:   make(chan AnalyticsEvent, analyticsQueueSize),
		stop:     make(chan struct{}),
		interval: interval,
	}
	a.wg.Add(1)
	go a.writer()
	return a
}

// Track enqueues an event for async persistence (non-blocking)
func (a *Analytics) Track(evtType string, pilotID int64, sessionID string, data string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return
	}
	select {
	case a.events <- AnalyticsEvent{
		Type:      evtType,
		PilotID:   pilotID,
		SessionID: sessionID,
		Data:      data,
		Timestamp: time.Now().UTC(),
	}:
	default:
		// Channel full, drop the event rather than block the tick
		a.dropped++
	}
}

// Dropped counts events discarded because the queue was full
func (a *Analytics) Dropped() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.dropped
}

// Stop flushes queued events and shuts the writer down
func (a *Analytics) Stop() {
	a.stopOnce.Do(func() {
		a.mu.Lock()
		a.closed = true
		a.mu.Unlock()
		close(a.stop)
		a.wg.Wait()
	})
}

// writer is the background goroutine that batches and writes events to DB
func (a *Analytics) writer() {
	defer a.wg.Done()

	batch := make([]AnalyticsEvent, 0, 64)
	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	for {
		select {
		case evt := <-a.events:
			batch = append(batch, evt)
			// Flush immediately if batch is large
			if len(batch) >= analyticsBatchSize {
				a.flush(batch)
				batch = batch[:0]
			}
		case <-ticker.C:
			if len(batch) > 0 {
				a.flush(batch)
				batch = batch[:0]
			}
		case <-a.stop:
			// Drain remaining events; Track no longer sends once closed
			close(a.events)
			for evt := range a.events {
				batch = append(batch, evt)
			}
			if len(batch) > 0 {
				a.flush(batch)
			}
			return
		}
	}
}

// flush writes a batch of events to the database
func (a *Analytics) flush(events []AnalyticsEvent) {
	if a.db == nil || len(events) == 0 {
		return
	}
	tx, err := a.db.conn.Begin()
	if err != nil {
		a.log.Error().Err(err).Msg("begin tx")
		return
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`INSERT INTO analytics_events (event_type, pilot_id, session_id, data, created_at) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		a.log.Error().Err(err).Msg("prepare insert")
		return
	}
	defer stmt.Close()

	for _, evt := range events {
		pid := sql.NullInt64{Int64: evt.PilotID, Valid: evt.PilotID > 0}
		sid := sql.NullString{String: evt.SessionID, Valid: evt.SessionID != ""}
		data := sql.NullString{String: evt.Data, Valid: evt.Data != ""}
		_, err := stmt.Exec(evt.Type, pid, sid, data, evt.Timestamp.Format(time.RFC3339))
		if err != nil {
			a.log.Warn().Err(err).Str("event", evt.Type).Msg("insert event")
		}
	}
	if err := tx.Commit(); err != nil {
		a.log.Error().Err(err).Int("events", len(events)).Msg("commit events")
	}
}

// --- Query methods for the API ---

// activePilots counts distinct pilots with an event since the SQLite date modifier
func (a *Analytics) activePilots(since string) (int, error) {
	if a.db == nil {
		return 0, nil
	}
	var count int
	err := a.db.conn.QueryRow(`
		SELECT COUNT(DISTINCT pilot_id) FROM analytics_events
		WHERE pilot_id IS NOT NULL AND created_at >= date('now', ?)
	`, since).Scan(&count)
	return count, err
}

// DAUCount returns the number of pilots active today
func (a *Analytics) DAUCount() (int, error) { return a.activePilots("start of day") }

// WAUCount returns the number of pilots active in the last 7 days
func (a *Analytics) WAUCount() (int, error) { return a.activePilots("-7 days") }

// MAUCount returns the number of pilots active in the last 30 days
func (a *Analytics) MAUCount() (int, error) { return a.activePilots("-30 days") }

// ThemeStats returns run counts and average distance per theme for the last N days
func (a *Analytics) ThemeStats(days int) ([]ThemeAnalytics, error) {
	if a.db == nil {
		return nil, nil
	}
	rows, err := a.db.conn.Query(`
		SELECT COALESCE(json_extract(data, '$.theme'), 'unknown') as theme, COUNT(*) as cnt,
			AVG(CAST(json_extract(data, '$.distance') AS REAL)) as avg_dist
		FROM analytics_events
		WHERE event_type = ? AND json_valid(data) AND created_at >= date('now', '-' || ? || ' days')
		GROUP BY theme
		ORDER BY cnt DESC
	`, EvtRunEnd, days)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []ThemeAnalytics
	for rows.Next() {
		var m ThemeAnalytics
		var avg sql.NullFloat64
		if err := rows.Scan(&m.Theme, &m.Runs, &avg); err != nil {
			continue
		}
		m.AvgDistance = avg.Float64
		result = append(result, m)
	}
	return result, rows.Err()
}

// EventCounts returns counts of each event type for the last N days
func (a *Analytics) EventCounts(days int) (map[string]int, error) {
	if a.db == nil {
		return nil, nil
	}
	rows, err := a.db.conn.Query(`
		SELECT event_type, COUNT(*) FROM analytics_events
		WHERE created_at >= date('now', '-' || ? || ' days')
		GROUP BY event_type ORDER BY COUNT(*) DESC
	`, days)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make(map[string]int)
	for rows.Next() {
		var evtType string
		var count int
		if err := rows.Scan(&evtType, &count); err != nil {
			continue
		}
		result[evtType] = count
	}
	return result, rows.Err()
}

// DailyActiveHistory returns DAU for the last N days
func (a *Analytics) DailyActiveHistory(days int) ([]DayCount, error) {
	if a.db == nil {
		return nil, nil
	}
	rows, err := a.db.conn.Query(`
		SELECT date(created_at) as day, COUNT(DISTINCT pilot_id)
		FROM analytics_events
		WHERE pilot_id IS NOT NULL AND created_at >= date('now', '-' || ? || ' days')
		GROUP BY day ORDER BY day
	`, days)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []DayCount
	for rows.Next() {
		var dc DayCount
		if err := rows.Scan(&dc.Day, &dc.Count); err != nil {
			continue
		}
		result = append(result, dc)
	}
	return result, rows.Err()
}

// ThemeAnalytics holds aggregated run statistics for one theme
type ThemeAnalytics struct {
	Theme       string  `json:"theme"`
	Runs        int     `json:"runs"`
	AvgDistance float64 `json:"avg_distance"`
}

// DayCount holds a count for a specific day
type DayCount struct {
	Day   string `json:"day"`
	Count int    `json:"count"`
}
