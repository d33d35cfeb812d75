package main

import (
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func newTestSessions(t *testing.T, max int) *SessionManager {
	t.Helper()
	sm := NewSessionManager(max, func(id, theme string) (*Game, error) {
		if theme == "" {
			theme = "pillarScape"
		}
		sim, err := NewSimulation(zerolog.Nop(), testSimConfig(theme), floorAssets(), nil, nil)
		if err != nil {
			return nil, err
		}
		return NewGame(zerolog.Nop(), sim, GameOptions{SessionID: id}), nil
	})
	t.Cleanup(sm.CloseAll)
	return sm
}

func TestSessionCreateAndGet(t *testing.T) {
	sm := newTestSessions(t, 4)

	sess, err := sm.CreateSession("Arena", "")
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	if got := sm.GetSession(sess.ID); got != sess {
		t.Error("expected to find the created session")
	}
	if sess.Name != "Arena" || sess.Game.ThemeName() != "pillarScape" {
		t.Errorf("unexpected session %q on %q", sess.Name, sess.Game.ThemeName())
	}
	if sm.Count() != 1 {
		t.Errorf("expected 1 session, got %d", sm.Count())
	}
	if sm.GetSession("missing") != nil {
		t.Error("expected nil for an unknown id")
	}
}

func TestSessionCreateErrors(t *testing.T) {
	sm := newTestSessions(t, 1)

	if _, err := sm.CreateSession("bad", "nope"); !errors.Is(err, ErrUnknownTheme) {
		t.Errorf("expected ErrUnknownTheme, got %v", err)
	}
	if sm.Count() != 0 {
		t.Errorf("failed create should not register, got %d", sm.Count())
	}

	if _, err := sm.CreateSession("first", ""); err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	if _, err := sm.CreateSession("second", ""); !errors.Is(err, ErrSessionLimit) {
		t.Errorf("expected ErrSessionLimit, got %v", err)
	}
}

func TestSessionRemoveViewerCloses(t *testing.T) {
	sm := newTestSessions(t, 4)
	sess, _ := sm.CreateSession("Arena", "")

	sess.Game.AddViewer("a", &mockBroadcaster{})
	sess.Game.AddViewer("b", &mockBroadcaster{})

	sm.RemoveViewer(sess.ID, "a")
	if sm.GetSession(sess.ID) == nil {
		t.Fatal("session should stay while a viewer remains")
	}
	sm.RemoveViewer(sess.ID, "b")
	if sm.GetSession(sess.ID) != nil {
		t.Error("session should close with its last viewer")
	}

	// Unknown session is a no-op
	sm.RemoveViewer("missing", "a")
}

func TestSessionRemoveControllerViewer(t *testing.T) {
	sm := newTestSessions(t, 4)
	sess, _ := sm.CreateSession("Arena", "")

	sess.Game.AddViewer("screen", &mockBroadcaster{})
	sess.Game.AddViewer("phone", &mockBroadcaster{})
	sess.Game.SetController("phone", &mockBroadcaster{}, 0)

	sm.RemoveViewer(sess.ID, "phone")
	if sess.Game.IsController("phone") {
		t.Error("leaving viewer should drop the controller")
	}
	if sm.GetSession(sess.ID) == nil {
		t.Error("session should stay while the screen watches")
	}
}

func TestSessionReapIdle(t *testing.T) {
	sm := newTestSessions(t, 4)
	now := time.Unix(1000, 0)
	sm.now = func() time.Time { return now }

	idle, _ := sm.CreateSession("idle", "")
	watched, _ := sm.CreateSession("watched", "")
	watched.Game.AddViewer("v", &mockBroadcaster{})

	now = now.Add(time.Minute)
	if n := sm.ReapIdle(2 * time.Minute); n != 0 {
		t.Errorf("expected nothing reaped yet, got %d", n)
	}

	now = now.Add(2 * time.Minute)
	if n := sm.ReapIdle(2 * time.Minute); n != 1 {
		t.Errorf("expected 1 reaped, got %d", n)
	}
	if sm.GetSession(idle.ID) != nil {
		t.Error("idle session should be reaped")
	}
	if sm.GetSession(watched.ID) == nil {
		t.Error("watched session should survive")
	}
}

func TestSessionMarkActive(t *testing.T) {
	sm := newTestSessions(t, 4)
	now := time.Unix(1000, 0)
	sm.now = func() time.Time { return now }

	sess, _ := sm.CreateSession("idle", "")
	now = now.Add(90 * time.Second)
	sm.MarkActive(sess.ID)
	now = now.Add(90 * time.Second)

	if n := sm.ReapIdle(2 * time.Minute); n != 0 {
		t.Errorf("recently active session reaped (%d)", n)
	}
}

func TestSessionListAndCloseAll(t *testing.T) {
	sm := newTestSessions(t, 4)
	sm.CreateSession("one", "")
	sm.CreateSession("two", "")

	list := sm.ListSessions()
	if len(list) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(list))
	}
	names := map[string]bool{}
	for _, info := range list {
		names[info.Name] = true
		if info.Theme != "pillarScape" || info.Viewers != 0 {
			t.Errorf("unexpected info %+v", info)
		}
	}
	if !names["one"] || !names["two"] {
		t.Errorf("expected both names, got %v", names)
	}

	sm.CloseAll()
	if sm.Count() != 0 {
		t.Errorf("expected no sessions after CloseAll, got %d", sm.Count())
	}
}

func TestSessionDefaultMax(t *testing.T) {
	sm := NewSessionManager(0, nil)
	if sm.max != defaultMaxSessions {
		t.Errorf("expected default max %d, got %d", defaultMaxSessions, sm.max)
	}
}
