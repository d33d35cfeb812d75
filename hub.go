package main

import (
	"math/rand"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const (
	maxConnsPerIP = 5
	maxTotalConns = 1000
	sessionIdle   = 2 * time.Minute
	reapInterval  = 30 * time.Second
)

// Hub manages all connected clients and routes them to sessions
type Hub struct {
	log        zerolog.Logger
	mu         sync.RWMutex
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	stop       chan struct{}
	sessions   *SessionManager
	// Connection limiting (mutex-protected, accessed from HTTP handlers)
	connMu     sync.Mutex
	ipConns    map[string]int
	totalConns int
	// Persistence, nil when running without a database
	db        *DB
	auth      *Auth
	analytics *Analytics
	metrics   *Metrics
	// Online authenticated pilots: pilotID -> *Client
	onlineMu    sync.RWMutex
	onlineUsers map[int64]*Client
}

// NewHub creates a Hub. db and analytics may be nil.
func NewHub(log zerolog.Logger, cfg Config, db *DB, analytics *Analytics, metrics *Metrics) *Hub {
	h := &Hub{
		log:         log.With().Str("component", "hub").Logger(),
		clients:     make(map[*Client]bool),
		register:    make(chan *Client, 64),
		unregister:  make(chan *Client, 64),
		stop:        make(chan struct{}),
		ipConns:     make(map[string]int),
		db:          db,
		analytics:   analytics,
		metrics:     metrics,
		onlineUsers: make(map[int64]*Client),
	}
	if db != nil {
		h.auth = NewAuth(log, db, cfg.Auth.JWTExpiry)
	}
	h.sessions = NewSessionManager(cfg.MaxSessions, h.gameFactory(log, cfg))
	return h
}

// gameFactory builds sessions on procedural assets with their own rng
func (h *Hub) gameFactory(log zerolog.Logger, cfg Config) GameFactory {
	var ledger RunRecorder
	if h.db != nil {
		ledger = NewRunLedger(log, h.db)
	}
	var events EventTracker
	if h.analytics != nil {
		events = h.analytics
	}
	return func(id, theme string) (*Game, error) {
		sc := cfg.SimConfig()
		if theme != "" {
			sc.StartTheme = theme
		}
		rng := rand.New(rand.NewSource(time.Now().UnixNano()))
		slog := log.With().Str("session", id).Logger()
		sim, err := NewSimulation(slog, sc, NewProceduralAssets(slog), rng, h.metrics)
		if err != nil {
			return nil, err
		}
		return NewGame(log, sim, GameOptions{
			SessionID:     id,
			TickRate:      cfg.TickRate,
			BroadcastRate: cfg.BroadcastRate,
			Recorder:      ledger,
			Events:        events,
			Metrics:       h.metrics,
		}), nil
	}
}

func (h *Hub) CanAccept(ip string) bool {
	h.connMu.Lock()
	defer h.connMu.Unlock()
	if h.totalConns >= maxTotalConns {
		return false
	}
	if h.ipConns[ip] >= maxConnsPerIP {
		return false
	}
	return true
}

func (h *Hub) TrackConnect(ip string) {
	h.connMu.Lock()
	defer h.connMu.Unlock()
	h.ipConns[ip]++
	h.totalConns++
}

func (h *Hub) TrackDisconnect(ip string) {
	h.connMu.Lock()
	defer h.connMu.Unlock()
	h.ipConns[ip]--
	if h.ipConns[ip] <= 0 {
		delete(h.ipConns, ip)
	}
	h.totalConns--
}

// Run processes register/unregister events and reaps idle sessions
func (h *Hub) Run() {
	reap := time.NewTicker(reapInterval)
	defer reap.Stop()
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
			if client.authPilotID != 0 {
				h.SetOffline(client.authPilotID)
			}
			if client.sessionID != "" {
				h.sessions.RemoveViewer(client.sessionID, client.id)
			}

		case <-reap.C:
			if n := h.sessions.ReapIdle(sessionIdle); n > 0 {
				h.log.Info().Int("sessions", n).Msg("reaped idle sessions")
			}

		case <-h.stop:
			return
		}
	}
}

// Shutdown stops the event loop and every session
func (h *Hub) Shutdown() {
	close(h.stop)
	h.sessions.CloseAll()
}

// SetOnline marks an authenticated pilot as online
func (h *Hub) SetOnline(pilotID int64, client *Client) {
	h.onlineMu.Lock()
	defer h.onlineMu.Unlock()
	h.onlineUsers[pilotID] = client
}

// SetOffline removes an authenticated pilot from online tracking
func (h *Hub) SetOffline(pilotID int64) {
	h.onlineMu.Lock()
	defer h.onlineMu.Unlock()
	delete(h.onlineUsers, pilotID)
}

// IsOnline checks if a pilot is online
func (h *Hub) IsOnline(pilotID int64) bool {
	h.onlineMu.RLock()
	defer h.onlineMu.RUnlock()
	_, ok := h.onlineUsers[pilotID]
	return ok
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// TotalConns returns the tracked connection count
func (h *Hub) TotalConns() int {
	h.connMu.Lock()
	defer h.connMu.Unlock()
	return h.totalConns
}
