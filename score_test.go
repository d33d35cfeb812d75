package main

import "testing"

func TestScoreAccumulates(t *testing.T) {
	var s Score
	s.Update(48, 0.5)
	s.Update(48, 0.5)
	if s.Distance != 48 {
		t.Errorf("expected distance 48, got %v", s.Distance)
	}
}

func TestScoreGameOverFreezes(t *testing.T) {
	var s Score
	s.Update(100, 1)
	s.GameOver()
	s.Update(100, 1)
	if s.Distance != 100 {
		t.Errorf("distance should freeze after game over, got %v", s.Distance)
	}
	if !s.IsGameOver() {
		t.Error("expected game over")
	}
}

func TestScoreResetHighScore(t *testing.T) {
	var s Score
	s.Update(100, 1.5)
	finished, best := s.Reset()
	if finished != 150 || !best || s.HighScore != 150 {
		t.Errorf("expected new best 150, got finished=%v best=%v high=%d", finished, best, s.HighScore)
	}
	if s.Distance != 0 || s.IsGameOver() {
		t.Error("reset should clear the run")
	}

	s.Update(100, 1)
	finished, best = s.Reset()
	if finished != 100 || best || s.HighScore != 150 {
		t.Errorf("shorter run should keep the high score, got finished=%v best=%v high=%d", finished, best, s.HighScore)
	}
}
