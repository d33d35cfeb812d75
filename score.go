package main

import "math"

// RunResult describes one finished run
type RunResult struct {
	PilotID     int64
	Distance    float64
	Theme       string
	Difficulty  int
	Duration    float64
	CrashSource string
	CrashKind   string
	NewBest     bool
}

// RunRecorder persists finished runs
type RunRecorder interface {
	RecordRun(r RunResult) error
}

// Score tracks the distance of the current run and the best distance
type Score struct {
	Distance  float64
	HighScore int
	gameOver  bool
}

// Update adds the distance flown this tick
func (s *Score) Update(forward, dt float64) {
	if s.gameOver {
		return
	}
	s.Distance += forward * dt
}

// GameOver freezes the distance until Reset
func (s *Score) GameOver() {
	s.gameOver = true
}

// IsGameOver reports whether the run has ended
func (s *Score) IsGameOver() bool {
	return s.gameOver
}

// Reset promotes the finished distance to the high score if it beat it.
// It returns the finished distance and whether it was a new best.
func (s *Score) Reset() (float64, bool) {
	finished := s.Distance
	best := false
	if d := int(math.Floor(finished)); d > s.HighScore {
		s.HighScore = d
		best = true
	}
	s.Distance = 0
	s.gameOver = false
	return finished, best
}
