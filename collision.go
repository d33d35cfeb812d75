package main

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// CollisionSource says what the vehicle hit
type CollisionSource uint8

const (
	SourceTrack CollisionSource = iota
	SourceHazard
)

func (s CollisionSource) String() string {
	if s == SourceHazard {
		return "hazard"
	}
	return "track"
}

// Collision is the single contact reported per tick
type Collision struct {
	Source   CollisionSource
	Kind     HazardKind // hazard hits only
	HazardID uint64
	Point    mgl64.Vec3 // world space witness, for effects only
}

// KindName is the hazard kind, empty for track hits
func (c Collision) KindName() string {
	if c.Source != SourceHazard {
		return ""
	}
	return c.Kind.String()
}

// Resolver runs the per-tick narrow phase: track chunks first, then hazards.
// It stops at the first hit.
type Resolver struct {
	cache *ColliderCache
	grid  *SpatialGrid
	buf   []EntityRef
}

// NewResolver creates a resolver sharing the vehicle collider cache with the track
func NewResolver(cache *ColliderCache) *Resolver {
	return &Resolver{
		cache: cache,
		grid:  NewSpatialGrid(HazardFieldSize, HazardFieldSize),
	}
}

// Check tests the vehicle against the grid and every collidable hazard
func (r *Resolver) Check(v *Vehicle, track *TrackGrid, hazards []*Hazard) (Collision, bool) {
	if v == nil {
		return Collision{}, false
	}
	if track != nil {
		if p, ok := track.CheckCollision(v); ok {
			return Collision{Source: SourceTrack, Point: p}, true
		}
	}
	return r.CheckHazards(v, hazards)
}

// CheckHazards runs only the hazard pass
func (r *Resolver) CheckHazards(v *Vehicle, hazards []*Hazard) (Collision, bool) {
	if len(hazards) == 0 {
		return Collision{}, false
	}
	part := r.cache.Resolve(v.Model)
	if part == nil {
		return Collision{}, false
	}
	shipBox := v.ColliderBounds(part)
	if shipBox.IsEmpty() {
		return Collision{}, false
	}
	center, radius := v.HitSphere(part)

	r.grid.Clear()
	for i, h := range hazards {
		if !h.Collidable() {
			continue
		}
		r.grid.InsertBox(HazardBounds(h), EntityRef{Kind: h.Kind, Idx: i})
	}

	r.buf = r.grid.QueryBuf(center[0], center[2], broadReach(shipBox, center, radius), r.buf[:0])
	for _, ref := range r.buf {
		h := hazards[ref.Idx]
		if HazardHit(h, shipBox, center, radius) {
			return Collision{Source: SourceHazard, Kind: h.Kind, HazardID: h.ID, Point: h.Position}, true
		}
	}
	return Collision{}, false
}

// broadReach is the query half-width covering both the hit sphere and the
// ship box footprint, since box hazards test against the full box
func broadReach(shipBox Box3, center mgl64.Vec3, radius float64) float64 {
	reach := radius
	for _, axis := range []int{0, 2} {
		reach = math.Max(reach, math.Max(center[axis]-shipBox.Min[axis], shipBox.Max[axis]-center[axis]))
	}
	return reach
}

// HazardBounds returns a world AABB enclosing the hazard's collision shape
func HazardBounds(h *Hazard) Box3 {
	switch s := h.Shape.(type) {
	case BoxShape:
		return h.WorldBox()
	case SegmentShape:
		return segmentBounds(h.Segments(), s.Radius)
	case CrossShape:
		return segmentBounds(h.Segments(), s.Radius)
	case PointShape:
		r := mgl64.Vec3{s.Radius, s.Radius, s.Radius}
		return Box3{Min: h.Position.Sub(r), Max: h.Position.Add(r)}
	case MeshShape:
		return s.BVH.Bounds().Transform(h.Matrix())
	}
	return EmptyBox()
}

func segmentBounds(segs [][2]mgl64.Vec3, radius float64) Box3 {
	b := EmptyBox()
	for _, s := range segs {
		b.Expand(s[0])
		b.Expand(s[1])
	}
	if b.IsEmpty() {
		return b
	}
	pad := mgl64.Vec3{radius, radius, radius}
	b.Min = b.Min.Sub(pad)
	b.Max = b.Max.Add(pad)
	return b
}

// HazardHit dispatches the shape test for one hazard. Telegraphing hazards never hit.
func HazardHit(h *Hazard, shipBox Box3, center mgl64.Vec3, radius float64) bool {
	if !h.Collidable() {
		return false
	}
	switch s := h.Shape.(type) {
	case BoxShape:
		return shipBox.Intersects(h.WorldBox())
	case SegmentShape:
		return capsuleHit(h.Segments(), s.Radius, center, radius)
	case CrossShape:
		return capsuleHit(h.Segments(), s.Radius, center, radius)
	case PointShape:
		return h.Position.Sub(center).Len() < s.Radius+radius
	case MeshShape:
		if s.BVH == nil {
			return false
		}
		local := TransformPoint(h.Matrix().Inv(), center)
		return s.BVH.IntersectsSphere(local, radius)
	}
	return false
}

func capsuleHit(segs [][2]mgl64.Vec3, capRadius float64, center mgl64.Vec3, radius float64) bool {
	for _, s := range segs {
		p := ClosestPointOnSegment(s[0], s[1], center)
		if p.Sub(center).Len() < radius+capRadius {
			return true
		}
	}
	return false
}
