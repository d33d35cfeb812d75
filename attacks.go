package main

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// AttackType names one attack pattern
type AttackType string

const (
	AttackWalls   AttackType = "walls"
	AttackBeams   AttackType = "beams"
	AttackSpikes  AttackType = "spikes"
	AttackCrosses AttackType = "crosses"
	AttackOrbs    AttackType = "orbs"
)

// AttackDef registers an attack with its re-arm delay and batch spawner
type AttackDef struct {
	Type       AttackType
	DelayAfter float64 // seconds until the next selection
	Spawn      func(s *Scheduler, originX float64)
}

// DefaultAttacks is the base rotation
func DefaultAttacks() []AttackDef {
	return []AttackDef{
		{Type: AttackWalls, DelayAfter: 5.5, Spawn: spawnWalls},
		{Type: AttackBeams, DelayAfter: 4.0, Spawn: spawnBeams},
		{Type: AttackSpikes, DelayAfter: 6.5, Spawn: spawnSpikes},
	}
}

// VoidEyeAttacks adds the crosses and orbs patterns to the base rotation
func VoidEyeAttacks() []AttackDef {
	return append(DefaultAttacks(),
		AttackDef{Type: AttackCrosses, DelayAfter: 5.0, Spawn: spawnCrosses},
		AttackDef{Type: AttackOrbs, DelayAfter: 4.5, Spawn: spawnOrbs},
	)
}

// Barrier walls
const (
	WallWidth    = 30.0
	WallHeight   = 60.0
	WallDepth    = 5.0
	WallStartY   = -60.0
	WallTargetY  = 30.0
	WallDelay    = 1.5 // telegraph before the wall rises
	WallRiseTime = 1.5
)

// Spike clusters
const (
	SpikeRadius      = 8.0
	SpikeHeight      = 120.0
	SpikeSegments    = 16
	SpikesPerCluster = 6
	SpikeSpacing     = 18.0
	SpikeStartY      = -100.0
	SpikeDelay       = 1.5
	SpikeStagger     = 0.08
	SpikeRiseTime    = 0.25
	SpikeOvershoot   = 1.2
)

// Beams
const (
	BeamShots        = 4
	BeamShotDelay    = 0.5
	BeamChargeTime   = 2.5
	BeamTrackingTime = 0.5
	BeamLifetime     = 0.6
	BeamRadius       = 6.0
	BeamLength       = 1000.0
	MarkerZ          = -50.0
)

// Crosses and orbs
const (
	CrossCount  = 3
	CrossArm    = 70.0
	CrossRadius = 5.0
	CrossSpin   = 1.5 // radians/s
	CrossDelay  = 1.2
	OrbCount    = 5
	OrbRadius   = 6.0
	OrbDelay    = 1.0
)

// HandPosition is where beams originate
var HandPosition = mgl64.Vec3{0, 120, -600}

var beamOffsets = [BeamShots]mgl64.Vec3{
	{-150, -5, 0},
	{0, 150, 0},
	{150, -5, 0},
	{0, -50, 0},
}

type placement struct {
	x    float64
	zMul float64 // fraction of chunk length in front of the vehicle
}

var wallLattice = []placement{
	{-75, 0.40}, {-25, 0.40}, {25, 0.40}, {75, 0.40},
	{-50, 0.45}, {0, 0.45}, {50, 0.45},
	{-75, 0.50}, {-25, 0.50}, {25, 0.50}, {75, 0.50},
	{-50, 0.55}, {0, 0.55}, {50, 0.55},
	{-75, 0.60}, {-25, 0.60}, {25, 0.60}, {75, 0.60},
}

var spikeClusters = []placement{
	{0, 0.40}, {50, 0.45}, {-50, 0.45},
	{0, 0.50}, {50, 0.55}, {-50, 0.55},
	{0, 0.60}, {50, 0.65}, {-50, 0.65},
	{0, 0.70}, {50, 0.75}, {-50, 0.75},
}

func spawnWalls(s *Scheduler, originX float64) {
	for _, p := range wallLattice {
		pos := mgl64.Vec3{originX + p.x, WallStartY, -s.chunkLength * p.zMul}
		h := s.addHazard(HazardBarrier, BoxShape{HalfExtents: mgl64.Vec3{WallWidth / 2, WallHeight / 2, WallDepth / 2}}, pos)
		s.after(WallDelay, h, func() {
			h.Commit()
			h.RiseTo(WallTargetY, WallRiseTime, EaseOutQuad)
		})
	}
}

func spawnSpikes(s *Scheduler, originX float64) {
	for _, p := range spikeClusters {
		spawnSpikeCluster(s, originX+p.x, -s.chunkLength*p.zMul)
	}
}

func spawnSpikeCluster(s *Scheduler, cx, cz float64) {
	startX := cx - float64(SpikesPerCluster-1)*SpikeSpacing/2
	for i := 0; i < SpikesPerCluster; i++ {
		x := startX + float64(i)*SpikeSpacing + (s.rng.Float64()*15 - 7.5)
		z := cz + (s.rng.Float64()*20 - 10)
		h := s.addHazard(HazardSpike, MeshShape{BVH: s.spikeBVH}, mgl64.Vec3{x, SpikeStartY, z})
		rot := mgl64.Vec3{
			(s.rng.Float64() - 0.5) * 0.5,
			s.rng.Float64() * math.Pi * 2,
			(s.rng.Float64() - 0.5) * 0.5,
		}
		h.Rotation = Compose(mgl64.Vec3{}, rot, 1)

		target := 20 + s.rng.Float64()*20
		s.after(SpikeDelay+float64(i)*SpikeStagger, h, func() {
			h.Commit()
			h.RiseTo(target, SpikeRiseTime, EaseOutBack(SpikeOvershoot))
		})
	}
}

// spawnBeams charges one shot per hand offset. Each shot drops a tracking
// marker that follows the lateral scroll; when the tracking window closes the
// marker's position becomes the aim point.
func spawnBeams(s *Scheduler, _ float64) {
	for i := 0; i < BeamShots; i++ {
		start := HandPosition.Add(beamOffsets[i])
		s.timers.After(BeamChargeTime+float64(i)*BeamShotDelay, func() {
			marker := s.addHazard(HazardTrackingMarker, NoShape{}, mgl64.Vec3{0, 0, MarkerZ})
			s.after(BeamTrackingTime, marker, func() {
				target := marker.Position
				marker.Expire()
				if target[2] > HazardExpireZ {
					return
				}
				fireBeam(s, start, target)
			})
		})
	}
}

func fireBeam(s *Scheduler, start, target mgl64.Vec3) {
	mid := start.Add(target).Mul(0.5)
	h := s.addHazard(HazardBeam, SegmentShape{HalfLength: BeamLength / 2, Radius: BeamRadius}, mid)
	h.Rotation = LookAtRotation(mid, target)
	h.Commit()
	s.after(BeamLifetime, h, h.Expire)
}

func spawnCrosses(s *Scheduler, originX float64) {
	for i := 0; i < CrossCount; i++ {
		x := originX + float64(i-CrossCount/2)*CrossArm*1.6
		pos := mgl64.Vec3{x, VehicleHeight + CrossArm/2, -s.chunkLength * 0.5}
		h := s.addHazard(HazardSpinningCross, CrossShape{HalfLength: CrossArm, Radius: CrossRadius}, pos)
		h.Rotation = mgl64.HomogRotate3DZ(s.rng.Float64() * math.Pi / 2)
		h.Spin = CrossSpin
		if i%2 == 1 {
			h.Spin = -CrossSpin
		}
		s.after(CrossDelay, h, h.Commit)
	}
}

func spawnOrbs(s *Scheduler, originX float64) {
	for i := 0; i < OrbCount; i++ {
		x := originX + float64(i-OrbCount/2)*40
		z := -s.chunkLength * (0.45 + 0.05*float64(i%2))
		h := s.addHazard(HazardOrb, PointShape{Radius: OrbRadius}, mgl64.Vec3{x, VehicleHeight, z})
		s.after(OrbDelay, h, h.Commit)
	}
}
