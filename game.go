package main

import (
	"encoding/json"
	"math/rand"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"
)

// SimConfig holds everything one simulation needs besides its assets
type SimConfig struct {
	Grid               GridConfig
	Vehicle            VehicleConfig
	ResetDelay         float64 // seconds between a crash and the reset
	AttackRestartDelay float64 // seconds between a reset and the first attack
	StartTheme         string
}

// CrashEvent is emitted once per crash, before the reset is scheduled
type CrashEvent struct {
	Collision
	Distance   float64
	Theme      string
	Difficulty int
	At         float64
}

// Simulation owns one run: vehicle, track grid, attack scheduler, level and
// score. It is driven by Tick and is not safe for concurrent use.
type Simulation struct {
	log     zerolog.Logger
	cfg     SimConfig
	assets  AssetProvider
	metrics *Metrics

	clock    *TimerQueue
	vehicle  *Vehicle
	cache    *ColliderCache
	track    *TrackGrid
	sched    *Scheduler
	resolver *Resolver
	level    *LevelManager
	score    Score
	theme    Theme

	running      bool
	resetting    bool
	resetTimer   TimerID
	restartTimer TimerID
	runStart     float64
	lastCrash    Collision
	crashes      int
	tick         uint64

	// PilotID is stamped on every RunResult, 0 for guests
	PilotID int64

	OnCrash  func(CrashEvent)
	OnRunEnd func(RunResult)
	OnTheme  func(Theme)
	OnAttack func(AttackType)
}

// NewSimulation builds a running simulation on cfg.StartTheme
func NewSimulation(log zerolog.Logger, cfg SimConfig, assets AssetProvider, rng *rand.Rand, metrics *Metrics) (*Simulation, error) {
	theme, err := LookupTheme(cfg.StartTheme)
	if err != nil {
		return nil, err
	}
	ts, err := buildTemplates(assets, theme)
	if err != nil {
		return nil, err
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}

	s := &Simulation{
		log:     log.With().Str("component", "simulation").Logger(),
		cfg:     cfg,
		assets:  assets,
		metrics: metrics,
		clock:   NewTimerQueue(),
		cache:   &ColliderCache{},
		theme:   theme,
		running: true,
	}
	s.vehicle = NewVehicle(assets.Vehicle(), cfg.Vehicle)
	s.track = NewTrackGrid(cfg.Grid, ts, s.cache, rng)
	s.track.OnRowRecycled = func(_, difficulty int) {
		s.metrics.RowRecycled(difficulty)
	}
	s.sched = NewScheduler(log, AttacksFor(theme), s.track.ChunkLength(), s.track.FloorOffset, rng)
	s.sched.OnAttack = s.attackFired
	s.resolver = NewResolver(s.cache)

	s.level = NewLevelManager(theme)
	s.level.OnSpecialEvent = s.specialEvent
	s.level.OnPortal = s.portal
	s.level.OnTransitionComplete = s.transitionComplete

	s.armAttacks()
	return s, nil
}

func buildTemplates(assets AssetProvider, t Theme) (*TemplateSet, error) {
	meshes, err := assets.Templates(t.TemplateNames)
	if err != nil {
		return nil, err
	}
	return NewTemplateSet(meshes)
}

// Tick advances the simulation by dt seconds
func (s *Simulation) Tick(dt float64) {
	if dt <= 0 || !finite(dt) {
		return
	}
	s.tick++
	s.clock.Advance(dt)
	if !s.running {
		return
	}

	s.vehicle.Update(dt)
	lateral, forward := s.vehicle.Velocity, s.vehicle.ForwardSpeed

	s.track.Advance(dt, lateral, forward)
	s.sched.Update(dt, lateral, forward)
	s.score.Update(forward, dt)
	s.level.Update(dt)

	if s.resetting || !s.level.CollisionsEnabled() {
		return
	}
	if c, ok := s.resolver.Check(s.vehicle, s.track, s.sched.Hazards()); ok {
		s.crash(c)
	}
}

func (s *Simulation) crash(c Collision) {
	if s.resetting {
		return
	}
	s.resetting = true
	s.running = false
	s.crashes++
	s.lastCrash = c
	s.vehicle.SetInputEnabled(false)
	s.sched.Stop()
	s.cancelRestart()
	s.score.GameOver()
	s.metrics.Crash(c.Source.String())

	ev := CrashEvent{
		Collision:  c,
		Distance:   s.score.Distance,
		Theme:      s.theme.Name,
		Difficulty: s.track.DifficultyIndex(),
		At:         s.clock.Now(),
	}
	s.log.Info().
		Str("source", c.Source.String()).
		Str("kind", c.KindName()).
		Float64("distance", ev.Distance).
		Int("difficulty", ev.Difficulty).
		Msg("crash")
	if s.OnCrash != nil {
		s.OnCrash(ev)
	}
	s.resetTimer = s.clock.After(s.cfg.ResetDelay, s.reset)
}

func (s *Simulation) reset() {
	s.resetTimer = 0
	difficulty := s.track.DifficultyIndex()
	finished, best := s.score.Reset()

	result := RunResult{
		PilotID:    s.PilotID,
		Distance:   finished,
		Theme:      s.theme.Name,
		Difficulty: difficulty,
		Duration:   s.clock.Now() - s.runStart,
		NewBest:    best,
	}
	if s.crashes > 0 {
		result.CrashSource = s.lastCrash.Source.String()
		result.CrashKind = s.lastCrash.KindName()
	}

	s.vehicle.Reset()
	s.track.Reset()
	s.sched.Reset()
	s.level.Reset()

	if s.OnRunEnd != nil {
		s.OnRunEnd(result)
	}

	s.vehicle.SetInputEnabled(true)
	s.resetting = false
	s.running = true
	s.runStart = s.clock.Now()
	s.armAttacks()
	s.log.Debug().Float64("distance", finished).Bool("best", best).Msg("run reset")
}

// armAttacks schedules the scheduler start when the theme has attacks
func (s *Simulation) armAttacks() {
	s.cancelRestart()
	if !s.theme.Attacks {
		return
	}
	s.restartTimer = s.clock.After(s.cfg.AttackRestartDelay, func() {
		s.restartTimer = 0
		if s.running && !s.resetting {
			s.sched.Start()
		}
	})
}

func (s *Simulation) cancelRestart() {
	if s.restartTimer != 0 {
		s.clock.Cancel(s.restartTimer)
		s.restartTimer = 0
	}
}

func (s *Simulation) attackFired(t AttackType) {
	s.metrics.AttackFired(t)
	if s.OnAttack != nil {
		s.OnAttack(t)
	}
}

func (s *Simulation) specialEvent(t Theme) {
	if !s.sched.ForceNext(t.SpecialAttack) {
		return
	}
	s.sched.FireNow()
}

func (s *Simulation) portal(t Theme) {
	s.sched.Stop()
	s.cancelRestart()
	s.log.Info().Str("theme", t.Name).Str("next", t.Next).Msg("portal opened")
}

func (s *Simulation) transitionComplete(next string) {
	if err := s.SwitchTheme(next); err != nil {
		s.log.Warn().Err(err).Str("theme", next).Msg("theme switch refused")
		s.armAttacks()
	}
}

// SwitchTheme rebuilds the grid on a new theme's templates. On error the
// current theme stays in place.
func (s *Simulation) SwitchTheme(name string) error {
	t, err := LookupTheme(name)
	if err != nil {
		return err
	}
	ts, err := buildTemplates(s.assets, t)
	if err != nil {
		return err
	}

	s.track.SetTemplates(ts)
	s.sched.Reset()
	s.sched.SetAttacks(AttacksFor(t))
	s.sched.SetChunkLength(s.track.ChunkLength())
	s.level.SetTheme(t)
	s.theme = t
	s.armAttacks()

	s.log.Info().Str("theme", t.Name).Int("templates", ts.Len()).Msg("theme switched")
	if s.OnTheme != nil {
		s.OnTheme(t)
	}
	return nil
}

// SetInput forwards steering to the vehicle
func (s *Simulation) SetInput(left, right bool) {
	s.vehicle.SetInput(left, right)
}

// ForceAttack makes the next attack t and fires it now if attacks are running
func (s *Simulation) ForceAttack(t AttackType) bool {
	if !s.sched.ForceNext(t) {
		return false
	}
	s.sched.FireNow()
	return true
}

// StartAttacks starts the scheduler immediately
func (s *Simulation) StartAttacks() {
	s.cancelRestart()
	if s.running && !s.resetting {
		s.sched.Start()
	}
}

// StopAttacks stops the scheduler and any pending restart
func (s *Simulation) StopAttacks() {
	s.cancelRestart()
	s.sched.Stop()
}

// Destroy tears the simulation down for good
func (s *Simulation) Destroy() {
	s.running = false
	s.clock.CancelAll()
	s.sched.Destroy()
	if ts := s.track.Templates(); ts != nil {
		ts.Dispose()
	}
}

func (s *Simulation) Running() bool { return s.running }
func (s *Simulation) Resetting() bool { return s.resetting }
func (s *Simulation) Theme() Theme { return s.theme }
func (s *Simulation) Vehicle() *Vehicle { return s.vehicle }
func (s *Simulation) Track() *TrackGrid { return s.track }
func (s *Simulation) Scheduler() *Scheduler { return s.sched }
func (s *Simulation) Level() *LevelManager { return s.level }
func (s *Simulation) Clock() *TimerQueue { return s.clock }
func (s *Simulation) Score() Score { return s.score }
func (s *Simulation) Cache() *ColliderCache { return s.cache }
func (s *Simulation) Crashes() int { return s.crashes }
func (s *Simulation) TickCount() uint64 { return s.tick }

// Snapshot captures the render state
func (s *Simulation) Snapshot() SimState {
	chunks := s.track.Chunks()
	hazards := s.sched.Hazards()
	st := SimState{
		Tick:       s.tick,
		Chunks:     make([]ChunkState, 0, len(chunks)),
		Hazards:    make([]HazardState, 0, len(hazards)),
		Vehicle:    VehicleState{Velocity: s.vehicle.Velocity, Roll: s.vehicle.Roll, Speed: s.vehicle.ForwardSpeed},
		Distance:   s.score.Distance,
		HighScore:  s.score.HighScore,
		Difficulty: s.track.DifficultyIndex(),
		Rows:       s.track.RowsPassed(),
		FloorX:     s.track.FloorOffset(),
		Theme:      s.theme.Name,
		Phase:      int(s.level.Phase()),
		Remaining:  s.level.Remaining(),
		Resetting:  s.resetting,
	}
	for _, c := range chunks {
		st.Chunks = append(st.Chunks, ChunkState{X: c.X, Z: c.Z, T: int(c.Template)})
	}
	for _, h := range hazards {
		st.Hazards = append(st.Hazards, HazardState{
			ID:    h.ID,
			Kind:  uint8(h.Kind),
			Phase: uint8(h.Phase),
			M:     [16]float64(h.Matrix()),
		})
	}
	return st
}

// Session loop defaults
const (
	TickRate             = 60 // simulation ticks per second
	BroadcastRate        = 30 // state broadcasts per second
	maxViewersPerSession = 20
)

// Broadcaster sends messages to one connected client
type Broadcaster interface {
	SendJSON(msg interface{})
	SendBinary(data []byte)
}

// EventTracker records analytics events without blocking
type EventTracker interface {
	Track(evtType string, pilotID int64, sessionID string, data string)
}

// GameOptions wires a Game to its collaborators. Zero rates use the defaults.
type GameOptions struct {
	SessionID     string
	TickRate      int
	BroadcastRate int
	Recorder      RunRecorder
	Events        EventTracker
	Metrics       *Metrics
}

// Game runs one Simulation on a fixed tick and streams it to viewers
type Game struct {
	mu      sync.Mutex
	log     zerolog.Logger
	id      string
	sim     *Simulation
	viewers map[string]Broadcaster

	controller   Broadcaster
	controllerID string

	tickRate       int
	broadcastEvery uint64
	tick           uint64
	running        bool
	stop           chan struct{}

	recorder RunRecorder
	events   EventTracker
	metrics  *Metrics
	wg       sync.WaitGroup
}

// NewGame wraps sim in a session loop
func NewGame(log zerolog.Logger, sim *Simulation, opts GameOptions) *Game {
	tr := opts.TickRate
	if tr <= 0 {
		tr = TickRate
	}
	br := opts.BroadcastRate
	if br <= 0 || br > tr {
		br = BroadcastRate
		if br > tr {
			br = tr
		}
	}
	g := &Game{
		log:            log.With().Str("component", "game").Str("session", opts.SessionID).Logger(),
		id:             opts.SessionID,
		sim:            sim,
		viewers:        make(map[string]Broadcaster),
		tickRate:       tr,
		broadcastEvery: uint64(tr / br),
		stop:           make(chan struct{}),
		recorder:       opts.Recorder,
		events:         opts.Events,
		metrics:        opts.Metrics,
	}
	sim.OnCrash = g.onCrash
	sim.OnRunEnd = g.onRunEnd
	sim.OnTheme = g.onTheme
	sim.OnAttack = g.onAttack
	g.track(EvtRunStart, map[string]interface{}{"theme": sim.Theme().Name})
	return g
}

// Run drives the simulation until Stop
func (g *Game) Run() {
	g.mu.Lock()
	g.running = true
	g.mu.Unlock()
	g.metrics.SessionDelta(1)
	defer g.metrics.SessionDelta(-1)

	ticker := time.NewTicker(time.Second / time.Duration(g.tickRate))
	defer ticker.Stop()

	dt := 1.0 / float64(g.tickRate)
	for {
		select {
		case <-ticker.C:
			g.Step(dt)
		case <-g.stop:
			return
		}
	}
}

// Stop terminates the loop, tears the simulation down and waits for
// in-flight run records.
func (g *Game) Stop() {
	g.mu.Lock()
	select {
	case <-g.stop:
		g.mu.Unlock()
		return
	default:
	}
	g.running = false
	close(g.stop)
	g.sim.Destroy()
	g.mu.Unlock()
	g.wg.Wait()
}

// Step runs one tick of dt seconds and broadcasts on the broadcast cadence
func (g *Game) Step(dt float64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	select {
	case <-g.stop:
		return
	default:
	}

	g.sim.Tick(dt)
	g.tick++
	if g.tick%g.broadcastEvery == 0 {
		g.broadcastState()
	}
}

// AddViewer subscribes a client to state frames. False when the session is full.
func (g *Game) AddViewer(id string, b Broadcaster) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.viewers[id]; !ok && len(g.viewers) >= maxViewersPerSession {
		return false
	}
	g.viewers[id] = b
	return true
}

// RemoveViewer unsubscribes a client
func (g *Game) RemoveViewer(id string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.viewers, id)
}

// HasViewer reports whether id is watching
func (g *Game) HasViewer(id string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.viewers[id]
	return ok
}

// ViewerCount returns the number of viewers
func (g *Game) ViewerCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.viewers)
}

// SetController attaches the input controller, replacing any previous one.
// pilotID (0 for guests) is stamped on the runs it flies.
func (g *Game) SetController(id string, b Broadcaster, pilotID int64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.controllerID = id
	g.controller = b
	g.sim.PilotID = pilotID
	g.broadcastMsg(Envelope{T: MsgCtrlOn, Data: map[string]string{"cid": id}})
}

// RemoveController detaches the controller if id is the current one
func (g *Game) RemoveController(id string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.controllerID != id {
		return
	}
	g.controllerID = ""
	g.controller = nil
	g.sim.PilotID = 0
	g.sim.SetInput(false, false)
	g.broadcastMsg(Envelope{T: MsgCtrlOff, Data: map[string]string{"cid": id}})
}

// IsController reports whether id drives the vehicle
func (g *Game) IsController(id string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return id != "" && g.controllerID == id
}

// HandleInput applies steering from the controller (or a lone viewer when
// no controller is attached)
func (g *Game) HandleInput(id string, input ClientInput) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.controllerID != "" && g.controllerID != id {
		return
	}
	g.sim.SetInput(input.Left, input.Right)
}

// ForceAttack forces the next attack
func (g *Game) ForceAttack(t AttackType) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.sim.ForceAttack(t)
}

// SetAttacks starts or stops the attack scheduler
func (g *Game) SetAttacks(on bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if on {
		g.sim.StartAttacks()
	} else {
		g.sim.StopAttacks()
	}
}

// Snapshot returns the current state under the lock
func (g *Game) Snapshot() SimState {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.sim.Snapshot()
}

// ThemeName returns the active theme
func (g *Game) ThemeName() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.sim.Theme().Name
}

func (g *Game) onCrash(ev CrashEvent) {
	g.broadcastMsg(Envelope{T: MsgCrash, Data: CrashMsg{
		Source:     ev.Source.String(),
		Kind:       ev.KindName(),
		X:          ev.Point.X(),
		Y:          ev.Point.Y(),
		Z:          ev.Point.Z(),
		Distance:   ev.Distance,
		Difficulty: ev.Difficulty,
	}})
	g.track(EvtCrash, map[string]interface{}{
		"source":   ev.Source.String(),
		"kind":     ev.KindName(),
		"distance": ev.Distance,
	})
}

func (g *Game) onRunEnd(r RunResult) {
	g.track(EvtRunEnd, map[string]interface{}{
		"theme":      r.Theme,
		"distance":   r.Distance,
		"difficulty": r.Difficulty,
		"duration":   r.Duration,
		"best":       r.NewBest,
	})
	g.track(EvtRunStart, map[string]interface{}{"theme": r.Theme})
	if g.recorder == nil {
		return
	}
	g.wg.Add(1)
	go func() {
		defer g.wg.Done()
		if err := g.recorder.RecordRun(r); err != nil {
			g.log.Warn().Err(err).Int64("pilot", r.PilotID).Msg("could not record run")
		}
	}()
}

func (g *Game) onTheme(t Theme) {
	g.broadcastMsg(Envelope{T: MsgTheme, Data: ThemeMsg{Name: t.Name, SurvivalTime: t.SurvivalTime, Attacks: t.Attacks}})
	g.track(EvtThemeSwitch, map[string]interface{}{"theme": t.Name})
}

func (g *Game) onAttack(t AttackType) {
	g.track(EvtAttack, map[string]interface{}{"attack": string(t)})
}

func (g *Game) track(evt string, data map[string]interface{}) {
	if g.events == nil {
		return
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return
	}
	g.events.Track(evt, g.sim.PilotID, g.id, string(raw))
}

// broadcastState encodes one msgpack frame and sends it to every viewer
func (g *Game) broadcastState() {
	if len(g.viewers) == 0 {
		return
	}
	data, err := msgpack.Marshal(g.sim.Snapshot())
	if err != nil {
		g.log.Error().Err(err).Msg("encode state")
		return
	}
	for _, v := range g.viewers {
		v.SendBinary(data)
	}
}

// broadcastMsg sends a JSON message to every viewer and the controller
func (g *Game) broadcastMsg(msg Envelope) {
	for id, v := range g.viewers {
		if id == g.controllerID {
			continue
		}
		v.SendJSON(msg)
	}
	if g.controller != nil {
		g.controller.SendJSON(msg)
	}
}
