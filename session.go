package main

import (
	"errors"
	"sync"
	"time"
)

// ErrSessionLimit is returned when the session cap is reached
var ErrSessionLimit = errors.New("too many active sessions")

const defaultMaxSessions = 100

// GameFactory builds the Game for a new session
type GameFactory func(id, theme string) (*Game, error)

// Session is a running simulation that clients can watch and control
type Session struct {
	ID         string
	Name       string
	Game       *Game
	lastActive time.Time
}

// SessionManager handles creation, lookup and reaping of sessions
type SessionManager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	max      int
	newGame  GameFactory
	now      func() time.Time
}

// NewSessionManager creates a new SessionManager
func NewSessionManager(max int, newGame GameFactory) *SessionManager {
	if max <= 0 {
		max = defaultMaxSessions
	}
	return &SessionManager{
		sessions: make(map[string]*Session),
		max:      max,
		newGame:  newGame,
		now:      time.Now,
	}
}

// CreateSession starts a new game session on theme ("" for the default)
func (sm *SessionManager) CreateSession(name, theme string) (*Session, error) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if len(sm.sessions) >= sm.max {
		return nil, ErrSessionLimit
	}

	id := GenerateUUID()
	game, err := sm.newGame(id, theme)
	if err != nil {
		return nil, err
	}
	sess := &Session{
		ID:         id,
		Name:       name,
		Game:       game,
		lastActive: sm.now(),
	}
	sm.sessions[id] = sess
	go game.Run()
	return sess, nil
}

// GetSession returns a session by ID
func (sm *SessionManager) GetSession(id string) *Session {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.sessions[id]
}

// MarkActive refreshes a session's idle clock
func (sm *SessionManager) MarkActive(id string) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	if sess, ok := sm.sessions[id]; ok {
		sess.lastActive = sm.now()
	}
}

// RemoveViewer drops a viewer and closes the session once nobody is left
func (sm *SessionManager) RemoveViewer(sessionID, clientID string) {
	sm.mu.RLock()
	sess, ok := sm.sessions[sessionID]
	sm.mu.RUnlock()
	if !ok {
		return
	}
	sess.Game.RemoveViewer(clientID)
	sess.Game.RemoveController(clientID)

	if sess.Game.ViewerCount() == 0 {
		sm.close(sessionID)
	}
}

func (sm *SessionManager) close(id string) {
	sm.mu.Lock()
	sess, ok := sm.sessions[id]
	delete(sm.sessions, id)
	sm.mu.Unlock()
	if ok {
		sess.Game.Stop()
	}
}

// ReapIdle closes sessions without viewers that have been idle longer than maxIdle
func (sm *SessionManager) ReapIdle(maxIdle time.Duration) int {
	cutoff := sm.now().Add(-maxIdle)
	var stale []string
	sm.mu.RLock()
	for id, sess := range sm.sessions {
		if sess.lastActive.Before(cutoff) && sess.Game.ViewerCount() == 0 {
			stale = append(stale, id)
		}
	}
	sm.mu.RUnlock()
	for _, id := range stale {
		sm.close(id)
	}
	return len(stale)
}

// CloseAll stops every session
func (sm *SessionManager) CloseAll() {
	sm.mu.RLock()
	ids := make([]string, 0, len(sm.sessions))
	for id := range sm.sessions {
		ids = append(ids, id)
	}
	sm.mu.RUnlock()
	for _, id := range ids {
		sm.close(id)
	}
}

// Count returns the number of sessions
func (sm *SessionManager) Count() int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.sessions)
}

// ListSessions returns info about all active sessions
func (sm *SessionManager) ListSessions() []SessionInfo {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	list := make([]SessionInfo, 0, len(sm.sessions))
	for _, sess := range sm.sessions {
		list = append(list, SessionInfo{
			ID:      sess.ID,
			Name:    sess.Name,
			Viewers: sess.Game.ViewerCount(),
			Theme:   sess.Game.ThemeName(),
		})
	}
	return list
}
