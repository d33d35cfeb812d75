package main

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/rs/zerolog"
)

func testSimConfig(theme string) SimConfig {
	return SimConfig{
		Grid:               GridConfig{Columns: 1, Rows: 1, RowsPerDifficulty: 1},
		Vehicle:            VehicleConfig{ForwardSpeed: 60, MaxLateral: 48, TurnRate: 0.02, Friction: 0.96},
		ResetDelay:         0.5,
		AttackRestartDelay: 3,
		StartTheme:         theme,
	}
}

func floorAssets() *testAssets {
	return &testAssets{meshes: map[string]*Mesh{"area1": floorArea("area1")}}
}

func newTestSim(t *testing.T, cfg SimConfig, assets AssetProvider) *Simulation {
	t.Helper()
	sim, err := NewSimulation(zerolog.Nop(), cfg, assets, rand.New(rand.NewSource(1)), nil)
	if err != nil {
		t.Fatalf("NewSimulation: %v", err)
	}
	return sim
}

func TestNewSimulationErrors(t *testing.T) {
	if _, err := NewSimulation(zerolog.Nop(), testSimConfig("nope"), floorAssets(), nil, nil); !errors.Is(err, ErrUnknownTheme) {
		t.Errorf("expected ErrUnknownTheme, got %v", err)
	}
	if _, err := NewSimulation(zerolog.Nop(), testSimConfig("redApex"), floorAssets(), nil, nil); !errors.Is(err, ErrNoTemplates) {
		t.Errorf("expected ErrNoTemplates, got %v", err)
	}
}

func TestSimulationCrashAndReset(t *testing.T) {
	assets := &testAssets{meshes: map[string]*Mesh{"area1": wallArea("area1", 0)}}
	sim := newTestSim(t, testSimConfig("pillarScape"), assets)

	var crashes []CrashEvent
	var runs []RunResult
	sim.OnCrash = func(ev CrashEvent) { crashes = append(crashes, ev) }
	sim.OnRunEnd = func(r RunResult) { runs = append(runs, r) }

	sim.Tick(0.05)
	if len(crashes) != 1 {
		t.Fatalf("expected a crash into the wall, got %d", len(crashes))
	}
	if crashes[0].Source != SourceTrack {
		t.Errorf("expected a track crash, got %s", crashes[0].Source)
	}
	if !sim.Resetting() || sim.Running() {
		t.Error("expected the simulation to be resetting")
	}
	if sim.Vehicle().InputEnabled() {
		t.Error("input should be disabled while resetting")
	}

	sim.Tick(0.3)
	if len(runs) != 0 || !sim.Resetting() {
		t.Fatal("reset should wait for the reset delay")
	}

	sim.Tick(0.3)
	if len(runs) != 1 {
		t.Fatalf("expected one finished run, got %d", len(runs))
	}
	if sim.Resetting() || !sim.Running() || !sim.Vehicle().InputEnabled() {
		t.Error("expected the simulation running again after reset")
	}
	if len(crashes) != 1 {
		t.Errorf("expected no second crash, got %d", len(crashes))
	}

	r := runs[0]
	if math.Abs(r.Distance-3) > 1e-6 {
		t.Errorf("expected distance 3, got %v", r.Distance)
	}
	if r.CrashSource != "track" || r.CrashKind != "" {
		t.Errorf("expected track crash without kind, got %q/%q", r.CrashSource, r.CrashKind)
	}
	if r.Theme != "pillarScape" || !r.NewBest {
		t.Errorf("unexpected run result %+v", r)
	}
	if math.Abs(r.Duration-0.65) > 1e-6 {
		t.Errorf("expected duration 0.65, got %v", r.Duration)
	}
	if sim.Score().HighScore != 3 {
		t.Errorf("expected high score 3, got %d", sim.Score().HighScore)
	}
}

func TestSimulationCrashOnlyOnce(t *testing.T) {
	sim := newTestSim(t, testSimConfig("pillarScape"), floorAssets())
	crashes := 0
	sim.OnCrash = func(CrashEvent) { crashes++ }

	hit := Collision{Source: SourceHazard, Kind: HazardOrb, Point: mgl64.Vec3{0, 2, 0}}
	sim.crash(hit)
	sim.crash(hit)
	sim.Tick(0.1)
	sim.crash(hit)

	if crashes != 1 || sim.Crashes() != 1 {
		t.Errorf("expected a single crash while resetting, got %d/%d", crashes, sim.Crashes())
	}
	if sim.Clock().Len() != 1 {
		t.Errorf("expected only the reset timer pending, got %d", sim.Clock().Len())
	}
}

func TestSimulationHazardCrashKind(t *testing.T) {
	sim := newTestSim(t, testSimConfig("pillarScape"), floorAssets())
	var run RunResult
	sim.OnRunEnd = func(r RunResult) { run = r }

	sim.crash(Collision{Source: SourceHazard, Kind: HazardBeam})
	sim.Tick(0.5)
	if run.CrashSource != "hazard" || run.CrashKind != "beam" {
		t.Errorf("expected hazard/beam, got %q/%q", run.CrashSource, run.CrashKind)
	}
}

func TestSimulationIgnoresBadDt(t *testing.T) {
	sim := newTestSim(t, testSimConfig("pillarScape"), floorAssets())
	sim.Tick(0)
	sim.Tick(-1)
	sim.Tick(math.NaN())
	sim.Tick(math.Inf(1))
	if sim.TickCount() != 0 || sim.Clock().Now() != 0 {
		t.Errorf("expected bad dt ignored, ticks=%d now=%v", sim.TickCount(), sim.Clock().Now())
	}
}

func TestSimulationSwitchThemeErrors(t *testing.T) {
	assets := floorAssets()
	sim := newTestSim(t, testSimConfig("pillarScape"), assets)
	switched := 0
	sim.OnTheme = func(Theme) { switched++ }

	if err := sim.SwitchTheme("nope"); !errors.Is(err, ErrUnknownTheme) {
		t.Errorf("expected ErrUnknownTheme, got %v", err)
	}
	if err := sim.SwitchTheme("redApex"); !errors.Is(err, ErrNoTemplates) {
		t.Errorf("expected ErrNoTemplates, got %v", err)
	}
	if sim.Theme().Name != "pillarScape" || sim.Track().Templates().Len() != 1 {
		t.Error("failed switch should keep the current theme and templates")
	}

	assets.meshes["area1001"] = BoxMesh("area1001", mgl64.Vec3{0, -50, 0}, mgl64.Vec3{200, 2, 400})
	if err := sim.SwitchTheme("redApex"); err != nil {
		t.Fatalf("SwitchTheme: %v", err)
	}
	if sim.Theme().Name != "redApex" || switched != 1 {
		t.Errorf("expected redApex after one switch, got %s (%d)", sim.Theme().Name, switched)
	}
	if sim.Track().ChunkLength() != 400 {
		t.Errorf("expected new chunk length 400, got %v", sim.Track().ChunkLength())
	}
}

func TestSimulationAttacksArmAfterDelay(t *testing.T) {
	cfg := testSimConfig("voidEye")
	cfg.Vehicle.ForwardSpeed = 0
	sim := newTestSim(t, cfg, floorAssets())
	attacks := 0
	sim.OnAttack = func(AttackType) { attacks++ }

	for i := 0; i < 5; i++ {
		sim.Tick(0.5)
	}
	if sim.Scheduler().State() != SchedulerIdle {
		t.Fatal("attacks should wait for the restart delay")
	}
	sim.Tick(0.5)
	if sim.Scheduler().State() != SchedulerActive || attacks != 1 {
		t.Errorf("expected attacks started after 3s, state=%s attacks=%d", sim.Scheduler().State(), attacks)
	}
}

func TestSimulationCrashRestartsAttacks(t *testing.T) {
	cfg := testSimConfig("voidEye")
	cfg.Vehicle.ForwardSpeed = 0
	sim := newTestSim(t, cfg, floorAssets())

	for i := 0; i < 6; i++ {
		sim.Tick(0.5)
	}
	sim.crash(Collision{Source: SourceHazard, Kind: HazardOrb})
	if sim.Scheduler().State() != SchedulerIdle {
		t.Error("crash should stop the scheduler")
	}

	sim.Tick(0.5)
	if sim.Resetting() {
		t.Fatal("expected the reset to have run")
	}
	if len(sim.Scheduler().Hazards()) != 0 {
		t.Error("reset should clear hazards")
	}
	for i := 0; i < 5; i++ {
		sim.Tick(0.5)
	}
	if sim.Scheduler().State() != SchedulerIdle {
		t.Fatal("attacks should wait for the restart delay after a reset")
	}
	sim.Tick(0.5)
	if sim.Scheduler().State() != SchedulerActive {
		t.Error("attacks should restart after the delay")
	}
}

func TestSimulationNoAttacksOnCalmTheme(t *testing.T) {
	sim := newTestSim(t, testSimConfig("pillarScape"), floorAssets())
	for i := 0; i < 10; i++ {
		sim.Tick(1)
	}
	if sim.Scheduler().State() != SchedulerIdle {
		t.Error("pillarScape has no attacks")
	}
	if sim.ForceAttack(AttackWalls) {
		t.Error("forcing an attack on a theme without attacks should fail")
	}
}

func TestSimulationPortalSwitchesTheme(t *testing.T) {
	assets := floorAssets()
	assets.meshes["area1001"] = floorArea("area1001")
	sim := newTestSim(t, testSimConfig("pillarScape"), assets)
	var themes []string
	sim.OnTheme = func(th Theme) { themes = append(themes, th.Name) }

	for i := 0; i < 50; i++ {
		sim.Tick(1)
	}
	if sim.Level().Phase() != LevelTransition {
		t.Fatalf("expected the portal after 50s, phase=%d", sim.Level().Phase())
	}
	for i := 0; i < int(PortalTransitionTime); i++ {
		sim.Tick(1)
	}
	if len(themes) != 1 || themes[0] != "redApex" {
		t.Errorf("expected a switch to redApex, got %v", themes)
	}
	if sim.Crashes() != 0 {
		t.Errorf("unexpected crashes: %d", sim.Crashes())
	}
}

func TestSimulationSnapshot(t *testing.T) {
	sim := newTestSim(t, testSimConfig("pillarScape"), floorAssets())
	sim.Tick(0.5)
	st := sim.Snapshot()
	if st.Tick != 1 || len(st.Chunks) != 1 || st.Theme != "pillarScape" {
		t.Errorf("unexpected snapshot %+v", st)
	}
	if st.Vehicle.Speed != 60 || math.Abs(st.Distance-30) > 1e-9 {
		t.Errorf("unexpected vehicle state %+v distance=%v", st.Vehicle, st.Distance)
	}
	if st.Remaining != 49.5 {
		t.Errorf("expected 49.5s remaining, got %v", st.Remaining)
	}
}

func TestSimulationDestroy(t *testing.T) {
	sim := newTestSim(t, testSimConfig("voidEye"), floorAssets())
	ts := sim.Track().Templates()
	sim.Destroy()
	if sim.Running() || ts.Len() != 0 || sim.Clock().Len() != 0 {
		t.Error("destroy should stop the run, drop timers and dispose templates")
	}
	sim.Tick(5)
	if sim.Scheduler().State() != SchedulerIdle {
		t.Error("destroyed simulation should not start attacks")
	}
}
