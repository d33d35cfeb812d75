package main

import "testing"

func testTheme() Theme {
	return Theme{
		Name:           "test",
		SurvivalTime:   10,
		SpecialEventAt: 5,
		SpecialAttack:  AttackCrosses,
		Next:           "after",
	}
}

func TestLevelSpecialEventOnce(t *testing.T) {
	l := NewLevelManager(testTheme())
	events := 0
	l.OnSpecialEvent = func(Theme) { events++ }

	l.Update(4)
	if events != 0 {
		t.Fatal("special event fired early")
	}
	l.Update(1)
	l.Update(1)
	l.Update(1)
	if events != 1 {
		t.Errorf("expected special event once, got %d", events)
	}
}

func TestLevelPortalTransition(t *testing.T) {
	l := NewLevelManager(testTheme())
	portals := 0
	var next string
	l.OnPortal = func(Theme) { portals++ }
	l.OnTransitionComplete = func(n string) { next = n }

	l.Update(9)
	if !l.CollisionsEnabled() || l.Remaining() != 1 {
		t.Fatalf("expected playing with 1s left, got phase=%d remaining=%v", l.Phase(), l.Remaining())
	}
	l.Update(2)
	if portals != 1 || l.Phase() != LevelTransition {
		t.Fatalf("expected portal after survival time, portals=%d phase=%d", portals, l.Phase())
	}
	if l.CollisionsEnabled() {
		t.Error("collisions should be off during the transition")
	}
	if l.Remaining() != 0 {
		t.Errorf("remaining should clamp at 0, got %v", l.Remaining())
	}

	l.Update(PortalTransitionTime / 2)
	if next != "" {
		t.Fatal("transition completed early")
	}
	l.Update(PortalTransitionTime / 2)
	if next != "after" {
		t.Errorf("expected transition to 'after', got %q", next)
	}
	if l.Phase() != LevelPlaying || l.Elapsed() != 0 {
		t.Errorf("expected a fresh level, phase=%d elapsed=%v", l.Phase(), l.Elapsed())
	}
}

func TestLevelEndlessTheme(t *testing.T) {
	l := NewLevelManager(Theme{Name: "endless"})
	l.OnPortal = func(Theme) { t.Error("theme without survival time should never open a portal") }
	for i := 0; i < 100; i++ {
		l.Update(10)
	}
	if l.Elapsed() != 1000 {
		t.Errorf("expected 1000s elapsed, got %v", l.Elapsed())
	}
}

func TestLevelResetRearmsEvent(t *testing.T) {
	l := NewLevelManager(testTheme())
	events := 0
	l.OnSpecialEvent = func(Theme) { events++ }

	l.Update(6)
	l.Reset()
	l.Update(6)
	if events != 2 {
		t.Errorf("expected the event to re-arm after reset, got %d", events)
	}

	l.SetTheme(Theme{Name: "other", SurvivalTime: 3})
	if l.Theme().Name != "other" || l.Elapsed() != 0 {
		t.Errorf("SetTheme should restart the level, got %s elapsed=%v", l.Theme().Name, l.Elapsed())
	}
}
