package main

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// HazardExpireZ is the near-camera threshold past which hazards are removed
const HazardExpireZ = 50.0

// HazardKind tags the hazard's behaviour and collision shape
type HazardKind uint8

const (
	HazardBarrier HazardKind = iota
	HazardBeam
	HazardSpike
	HazardSpinningCross
	HazardOrb
	HazardTrackingMarker
)

var hazardKindNames = [...]string{"barrier", "beam", "spike", "cross", "orb", "marker"}

func (k HazardKind) String() string {
	if int(k) < len(hazardKindNames) {
		return hazardKindNames[k]
	}
	return "unknown"
}

// HazardPhase is the lifecycle stage of a hazard
type HazardPhase uint8

const (
	PhaseTelegraph HazardPhase = iota // visible warning, not collidable
	PhaseActive                       // collidable
	PhaseExpired                      // pending removal
)

// Shape is the collision payload carried by a hazard. Exactly one of the
// concrete shape types below is stored.
type Shape interface {
	shape()
}

// BoxShape is an oriented box, tested as the AABB of its world corners
type BoxShape struct {
	HalfExtents mgl64.Vec3
}

// SegmentShape is a capsule along local Z from -HalfLength to +HalfLength
type SegmentShape struct {
	HalfLength float64
	Radius     float64
}

// CrossShape is two perpendicular capsules in the local XY plane
type CrossShape struct {
	HalfLength float64
	Radius     float64
}

// PointShape is a sphere at the hazard origin
type PointShape struct {
	Radius float64
}

// MeshShape is a shared BVH-indexed mesh in hazard-local space
type MeshShape struct {
	BVH *BVH
}

// NoShape never collides
type NoShape struct{}

func (BoxShape) shape()     {}
func (SegmentShape) shape() {}
func (CrossShape) shape()   {}
func (PointShape) shape()   {}
func (MeshShape) shape()    {}
func (NoShape) shape()      {}

// Easing curves for rise animations
type Easing func(t float64) float64

// EaseOutQuad decelerates to the target
func EaseOutQuad(t float64) float64 {
	return 1 - (1-t)*(1-t)
}

// EaseOutBack overshoots slightly before settling
func EaseOutBack(overshoot float64) Easing {
	return func(t float64) float64 {
		u := t - 1
		return 1 + (overshoot+1)*u*u*u + overshoot*u*u
	}
}

type riseAnim struct {
	from, to float64
	duration float64
	elapsed  float64
	ease     Easing
}

// Hazard is one live obstacle spawned by an attack
type Hazard struct {
	ID        uint64
	Kind      HazardKind
	Shape     Shape
	Position  mgl64.Vec3
	Rotation  mgl64.Mat4 // rotation only
	Spin      float64    // radians/s about local Z, spinning crosses only
	Phase     HazardPhase
	SpawnedAt float64

	rise *riseAnim
}

func newHazard(id uint64, kind HazardKind, shape Shape, pos mgl64.Vec3, now float64) *Hazard {
	return &Hazard{
		ID:        id,
		Kind:      kind,
		Shape:     shape,
		Position:  pos,
		Rotation:  mgl64.Ident4(),
		Phase:     PhaseTelegraph,
		SpawnedAt: now,
	}
}

// Matrix is the hazard's world transform
func (h *Hazard) Matrix() mgl64.Mat4 {
	return mgl64.Translate3D(h.Position[0], h.Position[1], h.Position[2]).Mul4(h.Rotation)
}

// Collidable reports whether the hazard takes part in collision tests
func (h *Hazard) Collidable() bool {
	return h.Phase == PhaseActive
}

// Commit ends the telegraph window
func (h *Hazard) Commit() {
	if h.Phase == PhaseTelegraph {
		h.Phase = PhaseActive
	}
}

// Expire marks the hazard for removal
func (h *Hazard) Expire() {
	h.Phase = PhaseExpired
}

// RiseTo starts a vertical move from the current height
func (h *Hazard) RiseTo(y, duration float64, ease Easing) {
	if duration <= 0 {
		h.Position[1] = y
		h.rise = nil
		return
	}
	h.rise = &riseAnim{from: h.Position[1], to: y, duration: duration, ease: ease}
}

// Rising reports whether a rise animation is in progress
func (h *Hazard) Rising() bool {
	return h.rise != nil
}

// Advance applies the world scroll. Tracking markers only follow the lateral
// scroll; everything else also moves toward the camera and expires past it.
func (h *Hazard) Advance(dt, lateral, forward float64) {
	if h.Phase == PhaseExpired {
		return
	}
	h.Position[0] -= lateral * dt
	if h.Kind == HazardTrackingMarker {
		return
	}
	h.Position[2] += forward * dt

	if r := h.rise; r != nil {
		r.elapsed += dt
		t := math.Min(r.elapsed/r.duration, 1)
		h.Position[1] = r.from + (r.to-r.from)*r.ease(t)
		if t >= 1 {
			h.rise = nil
		}
	}

	if h.Spin != 0 && h.Phase == PhaseActive {
		h.Rotation = h.Rotation.Mul4(mgl64.HomogRotate3DZ(h.Spin * dt))
	}

	if h.Position[2] > HazardExpireZ {
		h.Phase = PhaseExpired
	}
}

// Segments returns the world-space capsule axes of a beam or cross
func (h *Hazard) Segments() [][2]mgl64.Vec3 {
	m := h.Matrix()
	switch s := h.Shape.(type) {
	case SegmentShape:
		return [][2]mgl64.Vec3{{
			TransformPoint(m, mgl64.Vec3{0, 0, -s.HalfLength}),
			TransformPoint(m, mgl64.Vec3{0, 0, s.HalfLength}),
		}}
	case CrossShape:
		return [][2]mgl64.Vec3{
			{TransformPoint(m, mgl64.Vec3{-s.HalfLength, 0, 0}), TransformPoint(m, mgl64.Vec3{s.HalfLength, 0, 0})},
			{TransformPoint(m, mgl64.Vec3{0, -s.HalfLength, 0}), TransformPoint(m, mgl64.Vec3{0, s.HalfLength, 0})},
		}
	}
	return nil
}

// WorldBox returns the world AABB of a box hazard
func (h *Hazard) WorldBox() Box3 {
	s, ok := h.Shape.(BoxShape)
	if !ok {
		return EmptyBox()
	}
	local := Box3{Min: s.HalfExtents.Mul(-1), Max: s.HalfExtents}
	return local.Transform(h.Matrix())
}
