package main

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

func TestHazardLifecycle(t *testing.T) {
	h := newHazard(1, HazardOrb, PointShape{Radius: 1}, mgl64.Vec3{}, 0)
	if h.Phase != PhaseTelegraph || h.Collidable() {
		t.Fatal("new hazard should be telegraphing")
	}
	h.Commit()
	if !h.Collidable() {
		t.Error("committed hazard should be collidable")
	}
	h.Expire()
	h.Commit()
	if h.Phase != PhaseExpired {
		t.Error("Commit should not revive an expired hazard")
	}
}

func TestHazardAdvanceScroll(t *testing.T) {
	h := newHazard(1, HazardBarrier, BoxShape{HalfExtents: mgl64.Vec3{1, 1, 1}}, mgl64.Vec3{0, 0, -100}, 0)
	h.Advance(1, 10, 60)
	if h.Position != (mgl64.Vec3{-10, 0, -40}) {
		t.Errorf("expected (-10,0,-40), got %v", h.Position)
	}
	h.Advance(1, 0, 100)
	if h.Phase != PhaseExpired {
		t.Errorf("hazard past z=%v should expire", HazardExpireZ)
	}
	h.Advance(1, 0, 100)
	if h.Position.Z() != 60 {
		t.Errorf("expired hazard should stop moving, z=%v", h.Position.Z())
	}
}

func TestTrackingMarkerIgnoresForward(t *testing.T) {
	h := newHazard(1, HazardTrackingMarker, NoShape{}, mgl64.Vec3{0, 0, MarkerZ}, 0)
	for i := 0; i < 10; i++ {
		h.Advance(1, 5, 1000)
	}
	if h.Position.Z() != MarkerZ || h.Position.X() != -50 {
		t.Errorf("marker should follow lateral scroll only, got %v", h.Position)
	}
	if h.Phase == PhaseExpired {
		t.Error("marker should not expire from forward scroll")
	}
}

func TestHazardRise(t *testing.T) {
	h := newHazard(1, HazardSpike, NoShape{}, mgl64.Vec3{0, -100, 0}, 0)
	h.RiseTo(20, 1, EaseOutQuad)
	h.Advance(0.5, 0, 0)
	if y := h.Position.Y(); y <= -100 || y >= 20 {
		t.Errorf("half way through the rise y should be between, got %v", y)
	}
	h.Advance(0.5, 0, 0)
	if h.Rising() || h.Position.Y() != 20 {
		t.Errorf("rise should settle at 20, got %v rising=%v", h.Position.Y(), h.Rising())
	}

	h.RiseTo(5, 0, EaseOutQuad)
	if h.Position.Y() != 5 || h.Rising() {
		t.Error("zero-duration rise should snap")
	}
}

func TestEasing(t *testing.T) {
	back := EaseOutBack(SpikeOvershoot)
	for _, e := range []Easing{EaseOutQuad, back} {
		if math.Abs(e(0)) > 1e-12 || math.Abs(e(1)-1) > 1e-12 {
			t.Errorf("easing should map 0->0 and 1->1, got %v and %v", e(0), e(1))
		}
	}
	overshot := false
	for i := 1; i < 100; i++ {
		if back(float64(i)/100) > 1 {
			overshot = true
		}
	}
	if !overshot {
		t.Error("EaseOutBack should overshoot")
	}
}

func TestHazardSegments(t *testing.T) {
	beam := newHazard(1, HazardBeam, SegmentShape{HalfLength: 10, Radius: 1}, mgl64.Vec3{5, 0, 0}, 0)
	segs := beam.Segments()
	if len(segs) != 1 {
		t.Fatalf("expected 1 segment, got %d", len(segs))
	}
	if segs[0][0] != (mgl64.Vec3{5, 0, -10}) || segs[0][1] != (mgl64.Vec3{5, 0, 10}) {
		t.Errorf("unexpected beam axis %v", segs[0])
	}

	cross := newHazard(2, HazardSpinningCross, CrossShape{HalfLength: 3, Radius: 1}, mgl64.Vec3{}, 0)
	if len(cross.Segments()) != 2 {
		t.Errorf("cross should have two arms, got %d", len(cross.Segments()))
	}
	if newHazard(3, HazardOrb, PointShape{}, mgl64.Vec3{}, 0).Segments() != nil {
		t.Error("orbs have no segments")
	}
}

func TestHazardWorldBoxRotated(t *testing.T) {
	h := newHazard(1, HazardBarrier, BoxShape{HalfExtents: mgl64.Vec3{15, 30, 2.5}}, mgl64.Vec3{0, 0, -50}, 0)
	h.Rotation = mgl64.HomogRotate3DY(math.Pi / 2)
	b := h.WorldBox()
	if !vecNear(b.Size(), mgl64.Vec3{5, 60, 30}, 1e-9) {
		t.Errorf("expected rotated size 5x60x30, got %v", b.Size())
	}
	if !vecNear(b.Center(), mgl64.Vec3{0, 0, -50}, 1e-9) {
		t.Errorf("expected center (0,0,-50), got %v", b.Center())
	}
}

func TestHazardKindString(t *testing.T) {
	if HazardSpike.String() != "spike" || HazardKind(99).String() != "unknown" {
		t.Error("unexpected hazard kind names")
	}
}
