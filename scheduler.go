package main

import (
	"math/rand"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/rs/zerolog"
)

// SchedulerState is Idle or Active
type SchedulerState uint8

const (
	SchedulerIdle SchedulerState = iota
	SchedulerActive
)

func (s SchedulerState) String() string {
	if s == SchedulerActive {
		return "active"
	}
	return "idle"
}

// Scheduler fires a non-repeating random attack, then re-arms itself after
// the attack's delay. All of its timers live on one queue driven by Update.
type Scheduler struct {
	log    zerolog.Logger
	timers *TimerQueue
	rng    *rand.Rand
	defs   []AttackDef

	state     SchedulerState
	destroyed bool
	lastType  AttackType
	forced    AttackType
	rearm     TimerID

	hazards     []*Hazard
	nextID      uint64
	chunkLength float64
	originX     func() float64
	spikeBVH    *BVH

	// OnAttack is called after each attack batch is spawned
	OnAttack func(AttackType)
}

// NewScheduler creates an idle scheduler. originX supplies the lateral anchor
// for batches (the floor offset); chunkLength sets how far ahead they spawn.
func NewScheduler(log zerolog.Logger, defs []AttackDef, chunkLength float64, originX func() float64, rng *rand.Rand) *Scheduler {
	if originX == nil {
		originX = func() float64 { return 0 }
	}
	return &Scheduler{
		log:         log.With().Str("component", "scheduler").Logger(),
		timers:      NewTimerQueue(),
		rng:         rng,
		defs:        defs,
		chunkLength: sizeOrDefault(chunkLength),
		originX:     originX,
		spikeBVH:    NewBVH(ConeMesh("spike", SpikeRadius, SpikeHeight, SpikeSegments)),
	}
}

// State returns Idle or Active
func (s *Scheduler) State() SchedulerState {
	return s.state
}

// Timers exposes the queue for inspection
func (s *Scheduler) Timers() *TimerQueue {
	return s.timers
}

// Hazards returns the live hazards
func (s *Scheduler) Hazards() []*Hazard {
	return s.hazards
}

// LastType is the most recently fired attack
func (s *Scheduler) LastType() AttackType {
	return s.lastType
}

// SetAttacks replaces the registered attacks
func (s *Scheduler) SetAttacks(defs []AttackDef) {
	s.defs = defs
}

// SetChunkLength updates the spawn depth after a theme switch
func (s *Scheduler) SetChunkLength(l float64) {
	s.chunkLength = sizeOrDefault(l)
}

// Start moves Idle -> Active and fires the first attack immediately
func (s *Scheduler) Start() {
	if s.destroyed || s.state == SchedulerActive || len(s.defs) == 0 {
		return
	}
	s.state = SchedulerActive
	s.log.Debug().Msg("attacks started")
	s.fire()
}

// Stop cancels the pending re-arm only. Hazards in flight keep playing out.
func (s *Scheduler) Stop() {
	if s.state == SchedulerIdle {
		return
	}
	s.state = SchedulerIdle
	if s.rearm != 0 {
		s.timers.Cancel(s.rearm)
		s.rearm = 0
	}
	s.log.Debug().Msg("attacks stopped")
}

// Reset stops, cancels every pending timer and removes all hazards
func (s *Scheduler) Reset() {
	s.Stop()
	s.timers.CancelAll()
	s.rearm = 0
	s.hazards = nil
	s.lastType = ""
	s.forced = ""
}

// Destroy resets and refuses to start again
func (s *Scheduler) Destroy() {
	s.Reset()
	s.destroyed = true
}

// ForceNext makes the next selection pick t, once. Unregistered types are ignored.
func (s *Scheduler) ForceNext(t AttackType) bool {
	if s.def(t) == nil {
		return false
	}
	s.forced = t
	return true
}

// FireNow cancels the pending re-arm and selects immediately
func (s *Scheduler) FireNow() {
	if s.state != SchedulerActive {
		return
	}
	if s.rearm != 0 {
		s.timers.Cancel(s.rearm)
		s.rearm = 0
	}
	s.fire()
}

func (s *Scheduler) def(t AttackType) *AttackDef {
	for i := range s.defs {
		if s.defs[i].Type == t {
			return &s.defs[i]
		}
	}
	return nil
}

// next picks the forced attack if one is pending, else a random attack that
// differs from the last one (unless only one is registered).
func (s *Scheduler) next() *AttackDef {
	if s.forced != "" {
		d := s.def(s.forced)
		s.forced = ""
		if d != nil {
			return d
		}
	}
	candidates := make([]*AttackDef, 0, len(s.defs))
	for i := range s.defs {
		if s.defs[i].Type != s.lastType || len(s.defs) == 1 {
			candidates = append(candidates, &s.defs[i])
		}
	}
	if len(candidates) == 0 {
		return nil
	}
	return candidates[s.rng.Intn(len(candidates))]
}

func (s *Scheduler) fire() {
	s.rearm = 0
	if s.destroyed || s.state != SchedulerActive {
		return
	}
	d := s.next()
	if d == nil {
		return
	}
	s.lastType = d.Type
	if d.Spawn != nil {
		d.Spawn(s, s.originX())
	}
	s.log.Debug().Str("attack", string(d.Type)).Int("hazards", len(s.hazards)).Msg("attack fired")
	if s.OnAttack != nil {
		s.OnAttack(d.Type)
	}
	s.rearm = s.timers.After(d.DelayAfter, s.fire)
}

func (s *Scheduler) addHazard(kind HazardKind, shape Shape, pos mgl64.Vec3) *Hazard {
	s.nextID++
	h := newHazard(s.nextID, kind, shape, pos, s.timers.Now())
	s.hazards = append(s.hazards, h)
	return h
}

// after schedules a per-hazard callback that is skipped once the hazard expired
func (s *Scheduler) after(d float64, h *Hazard, fn func()) TimerID {
	return s.timers.After(d, func() {
		if h.Phase == PhaseExpired {
			return
		}
		fn()
	})
}

// Update advances live hazards, runs due timers, then drops expired hazards
func (s *Scheduler) Update(dt, lateral, forward float64) {
	for _, h := range s.hazards {
		h.Advance(dt, lateral, forward)
	}
	s.timers.Advance(dt)
	s.compact()
}

func (s *Scheduler) compact() {
	live := s.hazards[:0]
	for _, h := range s.hazards {
		if h.Phase != PhaseExpired {
			live = append(live, h)
		}
	}
	for i := len(live); i < len(s.hazards); i++ {
		s.hazards[i] = nil
	}
	s.hazards = live
}
