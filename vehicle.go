package main

import (
	"math"
	"strings"

	"github.com/go-gl/mathgl/mgl64"
)

const (
	VehicleHeight    = 2.0  // ship hovers this far above the track origin
	RollFactor       = 0.03 // radians of roll per unit/s of lateral velocity
	HitRadiusFactor  = 0.4  // hazard hit sphere = max extent * factor
	velocityEpsilon  = 0.06 // lateral speed snapped to zero below this
	referenceFPS     = 60.0 // easing constants are tuned per 60Hz frame
	colliderNameHint = "collider"
)

// SubMesh is one named part of the vehicle hierarchy
type SubMesh struct {
	Name  string
	Mesh  *Mesh
	BVH   *BVH
	Local mgl64.Mat4
}

// Model is the vehicle's mesh hierarchy as delivered by the asset provider
type Model struct {
	Name  string
	Parts []*SubMesh
}

// NewSubMesh indexes the mesh so it can take part in mesh-level tests
func NewSubMesh(name string, mesh *Mesh, local mgl64.Mat4) *SubMesh {
	return &SubMesh{Name: name, Mesh: mesh, BVH: NewBVH(mesh), Local: local}
}

// ColliderCache memoises the sub-mesh used as the vehicle's collision volume.
// It is resolved on first use and invalidated once per reset.
type ColliderCache struct {
	part     *SubMesh
	resolved bool
	lookups  int
}

// Resolve returns the first part whose name contains "collider" (any case),
// or nil if the model has none.
func (c *ColliderCache) Resolve(m *Model) *SubMesh {
	if c.resolved {
		return c.part
	}
	c.lookups++
	c.resolved = true
	c.part = nil
	if m == nil {
		return nil
	}
	for _, p := range m.Parts {
		if strings.Contains(strings.ToLower(p.Name), colliderNameHint) {
			c.part = p
			break
		}
	}
	return c.part
}

// Invalidate forces the next Resolve to search the model again
func (c *ColliderCache) Invalidate() {
	c.part = nil
	c.resolved = false
}

// Lookups counts how many times the hierarchy was actually searched
func (c *ColliderCache) Lookups() int {
	return c.lookups
}

// VehicleConfig tunes the movement model
type VehicleConfig struct {
	ForwardSpeed float64 `mapstructure:"forwardSpeed"`
	MaxLateral   float64 `mapstructure:"maxLateral"`
	TurnRate     float64 `mapstructure:"turnRate"`
	Friction     float64 `mapstructure:"friction"`
}

// Vehicle is the player ship. It stays near the world origin; the world
// scrolls around it using Velocity and ForwardSpeed.
type Vehicle struct {
	Model        *Model
	Velocity     float64 // lateral, units/s, positive = right
	ForwardSpeed float64
	Roll         float64

	cfg          VehicleConfig
	steerLeft    bool
	steerRight   bool
	inputEnabled bool
}

// NewVehicle creates a vehicle at rest
func NewVehicle(model *Model, cfg VehicleConfig) *Vehicle {
	return &Vehicle{
		Model:        model,
		ForwardSpeed: cfg.ForwardSpeed,
		cfg:          cfg,
		inputEnabled: true,
	}
}

// SetInput records the steering state from the input collaborator
func (v *Vehicle) SetInput(left, right bool) {
	if !v.inputEnabled {
		return
	}
	v.steerLeft = left
	v.steerRight = right
}

// SetInputEnabled freezes or releases movement input
func (v *Vehicle) SetInputEnabled(on bool) {
	v.inputEnabled = on
	if !on {
		v.steerLeft, v.steerRight = false, false
	}
}

// InputEnabled reports whether steering is accepted
func (v *Vehicle) InputEnabled() bool {
	return v.inputEnabled
}

// Update eases lateral velocity toward the steering target (dt in seconds)
func (v *Vehicle) Update(dt float64) {
	target := 0.0
	if v.steerLeft {
		target = -v.cfg.MaxLateral
	}
	if v.steerRight {
		target = v.cfg.MaxLateral
	}

	frames := dt * referenceFPS
	if target != 0 {
		blend := 1 - math.Pow(1-v.cfg.TurnRate, frames)
		v.Velocity += (target - v.Velocity) * blend
	} else {
		v.Velocity *= math.Pow(v.cfg.Friction, frames)
	}
	if math.Abs(v.Velocity) < velocityEpsilon {
		v.Velocity = 0
	}
	v.Roll = -v.Velocity * RollFactor
}

// Reset stops the vehicle and clears input
func (v *Vehicle) Reset() {
	v.Velocity = 0
	v.Roll = 0
	v.steerLeft, v.steerRight = false, false
	v.ForwardSpeed = v.cfg.ForwardSpeed
}

// Position is the vehicle's fixed world position
func (v *Vehicle) Position() mgl64.Vec3 {
	return mgl64.Vec3{0, VehicleHeight, 0}
}

// WorldMatrix is the model's world transform
func (v *Vehicle) WorldMatrix() mgl64.Mat4 {
	return Compose(v.Position(), mgl64.Vec3{0, 0, v.Roll}, 1)
}

// PartWorldMatrix is the world transform of one sub-mesh
func (v *Vehicle) PartWorldMatrix(p *SubMesh) mgl64.Mat4 {
	return v.WorldMatrix().Mul4(p.Local)
}

// ColliderBounds returns the world AABB of the collider part
func (v *Vehicle) ColliderBounds(p *SubMesh) Box3 {
	return p.Mesh.WorldBounds(v.PartWorldMatrix(p))
}

// HitSphere approximates the collider by a sphere for hazard tests
func (v *Vehicle) HitSphere(p *SubMesh) (mgl64.Vec3, float64) {
	b := v.ColliderBounds(p)
	s := b.Size()
	return b.Center(), math.Max(s[0], math.Max(s[1], s[2])) * HitRadiusFactor
}
