package main

// LevelPhase represents the lifecycle of one themed level
type LevelPhase int

const (
	LevelPlaying    LevelPhase = 0
	LevelTransition LevelPhase = 1
)

// PortalTransitionTime is how long collisions stay off while passing the portal
const PortalTransitionTime = 4.0

// LevelManager counts survival time for the current theme, fires the
// theme's one-shot special event and runs the portal transition.
type LevelManager struct {
	theme      Theme
	phase      LevelPhase
	elapsed    float64
	transition float64
	eventFired bool

	// OnSpecialEvent fires once per level when the event time is reached
	OnSpecialEvent func(Theme)
	// OnPortal fires when the survival time is met and the transition starts
	OnPortal func(Theme)
	// OnTransitionComplete fires when the portal has been crossed
	OnTransitionComplete func(next string)
}

// NewLevelManager starts a level in the playing phase
func NewLevelManager(t Theme) *LevelManager {
	return &LevelManager{theme: t}
}

// Update advances the level clock (dt in seconds)
func (l *LevelManager) Update(dt float64) {
	if l.phase == LevelTransition {
		l.transition -= dt
		if l.transition <= 0 {
			l.phase = LevelPlaying
			l.elapsed = 0
			l.eventFired = false
			if l.OnTransitionComplete != nil {
				l.OnTransitionComplete(l.theme.Next)
			}
		}
		return
	}

	l.elapsed += dt

	if l.theme.SpecialEventAt > 0 && !l.eventFired && l.elapsed >= l.theme.SpecialEventAt {
		l.eventFired = true
		if l.OnSpecialEvent != nil {
			l.OnSpecialEvent(l.theme)
		}
	}

	if l.theme.SurvivalTime > 0 && l.elapsed >= l.theme.SurvivalTime {
		l.phase = LevelTransition
		l.transition = PortalTransitionTime
		if l.OnPortal != nil {
			l.OnPortal(l.theme)
		}
	}
}

// CollisionsEnabled is false during the portal transition
func (l *LevelManager) CollisionsEnabled() bool {
	return l.phase == LevelPlaying
}

// Phase returns the current phase
func (l *LevelManager) Phase() LevelPhase {
	return l.phase
}

// Elapsed is the time survived in this level
func (l *LevelManager) Elapsed() float64 {
	return l.elapsed
}

// Remaining is the survival time left, never negative
func (l *LevelManager) Remaining() float64 {
	r := l.theme.SurvivalTime - l.elapsed
	if r < 0 {
		return 0
	}
	return r
}

// Theme returns the active theme
func (l *LevelManager) Theme() Theme {
	return l.theme
}

// SetTheme switches the level to a new theme and restarts its clock
func (l *LevelManager) SetTheme(t Theme) {
	l.theme = t
	l.Reset()
}

// Reset restarts the level clock and re-arms the special event
func (l *LevelManager) Reset() {
	l.phase = LevelPlaying
	l.elapsed = 0
	l.transition = 0
	l.eventFired = false
}
