package main

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

func newTestVehicle(model *Model) *Vehicle {
	if model == nil {
		model = (&testAssets{}).Vehicle()
	}
	return NewVehicle(model, VehicleConfig{ForwardSpeed: 60, MaxLateral: 48, TurnRate: 0.02, Friction: 0.96})
}

func activeHazard(kind HazardKind, shape Shape, pos mgl64.Vec3) *Hazard {
	h := newHazard(1, kind, shape, pos, 0)
	h.Commit()
	return h
}

func TestTrackCollisionHit(t *testing.T) {
	g, _ := newTestGrid(t, GridConfig{Columns: 1, Rows: 1, RowsPerDifficulty: 1}, wallArea("area1", 0))

	p, ok := g.CheckCollision(newTestVehicle(nil))
	if !ok {
		t.Fatal("expected the ship to hit the wall")
	}
	if p.Y() < -8 || p.Y() > 12 || math.Abs(p.Z()) > 0.5 {
		t.Errorf("expected contact point on the wall, got %v", p)
	}
}

func TestTrackCollisionMiss(t *testing.T) {
	g, _ := newTestGrid(t, GridConfig{Columns: 1, Rows: 1, RowsPerDifficulty: 1}, wallArea("area1", 30))

	if _, ok := g.CheckCollision(newTestVehicle(nil)); ok {
		t.Error("wall behind the ship should not collide")
	}
}

func TestTrackCollisionSkipsFarChunks(t *testing.T) {
	g, _ := newTestGrid(t, GridConfig{Columns: 1, Rows: 1, RowsPerDifficulty: 1, InitialSpawnOffset: 250}, wallArea("area1", 0))

	if _, ok := g.CheckCollision(newTestVehicle(nil)); ok {
		t.Error("chunk more than one length away should be skipped")
	}
}

func TestTrackCollisionWithoutCollider(t *testing.T) {
	g, cache := newTestGrid(t, GridConfig{Columns: 1, Rows: 1, RowsPerDifficulty: 1}, wallArea("area1", 0))
	hullOnly := &Model{Name: "ship", Parts: []*SubMesh{
		NewSubMesh("ship_hull", BoxMesh("ship_hull", mgl64.Vec3{}, mgl64.Vec3{6, 2, 10}), mgl64.Ident4()),
	}}

	v := newTestVehicle(hullOnly)
	for i := 0; i < 3; i++ {
		if _, ok := g.CheckCollision(v); ok {
			t.Fatal("a model without a collider part should never collide")
		}
	}
	if cache.Lookups() != 1 {
		t.Errorf("expected the missing collider to be cached, got %d lookups", cache.Lookups())
	}
}

func TestColliderCacheMatchesAnyCase(t *testing.T) {
	collider := NewSubMesh("Ship_COLLIDER_01", BoxMesh("c", mgl64.Vec3{}, mgl64.Vec3{1, 1, 1}), mgl64.Ident4())
	model := &Model{Parts: []*SubMesh{
		NewSubMesh("hull", BoxMesh("h", mgl64.Vec3{}, mgl64.Vec3{1, 1, 1}), mgl64.Ident4()),
		collider,
	}}

	var cache ColliderCache
	if got := cache.Resolve(model); got != collider {
		t.Errorf("expected the collider part, got %v", got)
	}
	if got := cache.Resolve(nil); got != collider {
		t.Error("resolved part should be memoised until invalidated")
	}
	cache.Invalidate()
	if got := cache.Resolve(nil); got != nil {
		t.Error("expected nil after invalidation with no model")
	}
}

func TestHazardShapes(t *testing.T) {
	spike := NewBVH(ConeMesh("spike", SpikeRadius, SpikeHeight, SpikeSegments))

	tests := []struct {
		name string
		h    *Hazard
		hit  bool
	}{
		{"barrier overlapping", activeHazard(HazardBarrier, BoxShape{HalfExtents: mgl64.Vec3{15, 30, 2.5}}, mgl64.Vec3{0, 2, 0}), true},
		{"barrier ahead", activeHazard(HazardBarrier, BoxShape{HalfExtents: mgl64.Vec3{15, 30, 2.5}}, mgl64.Vec3{0, 2, -20}), false},
		{"orb near", activeHazard(HazardOrb, PointShape{Radius: 6}, mgl64.Vec3{0, 2, 5}), true},
		{"orb far", activeHazard(HazardOrb, PointShape{Radius: 6}, mgl64.Vec3{0, 2, 20}), false},
		{"beam through", activeHazard(HazardBeam, SegmentShape{HalfLength: 500, Radius: 6}, mgl64.Vec3{0, 2, -100}), true},
		{"beam beside", activeHazard(HazardBeam, SegmentShape{HalfLength: 500, Radius: 6}, mgl64.Vec3{30, 2, -100}), false},
		{"cross arm through", activeHazard(HazardSpinningCross, CrossShape{HalfLength: 70, Radius: 5}, mgl64.Vec3{0, 42, 0}), true},
		{"cross behind", activeHazard(HazardSpinningCross, CrossShape{HalfLength: 70, Radius: 5}, mgl64.Vec3{0, 42, 20}), false},
		{"spike surface", activeHazard(HazardSpike, MeshShape{BVH: spike}, mgl64.Vec3{4, 2, 0}), true},
		{"spike far", activeHazard(HazardSpike, MeshShape{BVH: spike}, mgl64.Vec3{40, 2, 0}), false},
		{"marker", activeHazard(HazardTrackingMarker, NoShape{}, mgl64.Vec3{0, 2, 0}), false},
	}

	for _, tt := range tests {
		r := NewResolver(&ColliderCache{})
		c, ok := r.CheckHazards(newTestVehicle(nil), []*Hazard{tt.h})
		if ok != tt.hit {
			t.Errorf("%s: expected hit=%v, got %v", tt.name, tt.hit, ok)
			continue
		}
		if ok && (c.Source != SourceHazard || c.Kind != tt.h.Kind) {
			t.Errorf("%s: unexpected collision %+v", tt.name, c)
		}
	}
}

func TestTelegraphingHazardNeverHits(t *testing.T) {
	h := newHazard(1, HazardOrb, PointShape{Radius: 6}, mgl64.Vec3{0, 2, 0}, 0)
	r := NewResolver(&ColliderCache{})
	if _, ok := r.CheckHazards(newTestVehicle(nil), []*Hazard{h}); ok {
		t.Error("telegraphing hazard should not collide")
	}
	h.Commit()
	if _, ok := r.CheckHazards(newTestVehicle(nil), []*Hazard{h}); !ok {
		t.Error("committed hazard should collide")
	}
}

func TestResolverTrackFirst(t *testing.T) {
	g, cache := newTestGrid(t, GridConfig{Columns: 1, Rows: 1, RowsPerDifficulty: 1}, wallArea("area1", 0))
	r := NewResolver(cache)
	orb := activeHazard(HazardOrb, PointShape{Radius: 6}, mgl64.Vec3{0, 2, 0})

	c, ok := r.Check(newTestVehicle(nil), g, []*Hazard{orb})
	if !ok {
		t.Fatal("expected a collision")
	}
	if c.Source != SourceTrack {
		t.Errorf("expected track collision first, got %s", c.Source)
	}
	if c.KindName() != "" {
		t.Errorf("track collision should have no kind, got %q", c.KindName())
	}

	c, ok = r.Check(newTestVehicle(nil), nil, []*Hazard{orb})
	if !ok || c.Source != SourceHazard || c.HazardID != orb.ID {
		t.Errorf("expected the orb without a track, got %+v ok=%v", c, ok)
	}
	if c.KindName() != "orb" {
		t.Errorf("expected kind orb, got %q", c.KindName())
	}
}

func TestResolverReportsSingleHit(t *testing.T) {
	r := NewResolver(&ColliderCache{})
	a := activeHazard(HazardOrb, PointShape{Radius: 6}, mgl64.Vec3{0, 2, 0})
	b := activeHazard(HazardOrb, PointShape{Radius: 6}, mgl64.Vec3{1, 2, 0})
	b.ID = 2

	c, ok := r.CheckHazards(newTestVehicle(nil), []*Hazard{a, b})
	if !ok {
		t.Fatal("expected a collision")
	}
	if c.HazardID != 1 && c.HazardID != 2 {
		t.Errorf("unexpected hazard id %d", c.HazardID)
	}
}

func TestHazardBounds(t *testing.T) {
	orb := activeHazard(HazardOrb, PointShape{Radius: 6}, mgl64.Vec3{10, 0, 0})
	b := HazardBounds(orb)
	if b.Min != (mgl64.Vec3{4, -6, -6}) || b.Max != (mgl64.Vec3{16, 6, 6}) {
		t.Errorf("unexpected orb bounds %+v", b)
	}
	if !HazardBounds(activeHazard(HazardTrackingMarker, NoShape{}, mgl64.Vec3{})).IsEmpty() {
		t.Error("markers should have empty bounds")
	}
	beam := HazardBounds(activeHazard(HazardBeam, SegmentShape{HalfLength: 10, Radius: 1}, mgl64.Vec3{}))
	if beam.Min[2] != -11 || beam.Max[2] != 11 {
		t.Errorf("expected beam z extent [-11,11], got [%v,%v]", beam.Min[2], beam.Max[2])
	}
}

func TestLongShipBroadPhaseCoversBox(t *testing.T) {
	// Hit sphere radius is 0.4*200 = 80, but the box reaches 100 ahead
	model := &Model{Name: "long", Parts: []*SubMesh{
		NewSubMesh("long_collider", BoxMesh("long_collider", mgl64.Vec3{}, mgl64.Vec3{4, 1, 200}), mgl64.Ident4()),
	}}
	nose := activeHazard(HazardBarrier, BoxShape{HalfExtents: mgl64.Vec3{2, 2, 1}}, mgl64.Vec3{0, 2, -95})

	r := NewResolver(&ColliderCache{})
	c, ok := r.CheckHazards(newTestVehicle(model), []*Hazard{nose})
	if !ok {
		t.Fatal("expected the barrier at the ship's nose to hit")
	}
	if c.Kind != HazardBarrier {
		t.Errorf("expected barrier, got %v", c.Kind)
	}
}
