package main

import (
	"math"
	"math/rand"

	"github.com/go-gl/mathgl/mgl64"
)

// GridConfig sets the grid dimensions and streaming parameters
type GridConfig struct {
	Columns            int     `mapstructure:"columns"`
	Rows               int     `mapstructure:"rows"`
	RowsPerDifficulty  int     `mapstructure:"rowsPerDifficulty"`
	InitialSpawnOffset float64 `mapstructure:"initialSpawnOffset"`
	RowJitter          float64 `mapstructure:"rowJitter"`
}

// Chunk is one placement of a template in world space. Y is fixed at 0.
type Chunk struct {
	X, Z     float64
	Template TemplateID
}

// Matrix is the chunk's world transform
func (c *Chunk) Matrix() mgl64.Mat4 {
	return mgl64.Translate3D(c.X, 0, c.Z)
}

// TrackGrid streams a fixed columns×rows lattice of chunks past the vehicle
type TrackGrid struct {
	cfg       GridConfig
	templates *TemplateSet
	chunks    []Chunk
	cache     *ColliderCache
	rng       *rand.Rand

	rowsPassed int
	difficulty int
	floorX     float64

	// OnRowRecycled is called once per tick in which a row recycled
	OnRowRecycled func(rowsPassed, difficulty int)
}

// NewTrackGrid creates a grid over the given templates and seeds it
func NewTrackGrid(cfg GridConfig, templates *TemplateSet, cache *ColliderCache, rng *rand.Rand) *TrackGrid {
	if cfg.Columns <= 0 {
		cfg.Columns = 3
	}
	if cfg.Rows <= 0 {
		cfg.Rows = 2
	}
	if cfg.RowsPerDifficulty <= 0 {
		cfg.RowsPerDifficulty = 2
	}
	g := &TrackGrid{
		cfg:       cfg,
		templates: templates,
		cache:     cache,
		rng:       rng,
	}
	g.seed()
	return g
}

func (g *TrackGrid) seed() {
	w, l := g.ChunkWidth(), g.ChunkLength()
	half := g.cfg.Columns / 2
	g.chunks = g.chunks[:0]
	for row := 0; row < g.cfg.Rows; row++ {
		for col := 0; col < g.cfg.Columns; col++ {
			g.chunks = append(g.chunks, Chunk{
				X:        float64(col-half) * w,
				Z:        -float64(row)*l - g.cfg.InitialSpawnOffset,
				Template: 0,
			})
		}
	}
}

// ChunkWidth is the lateral size of one chunk
func (g *TrackGrid) ChunkWidth() float64 {
	if g.templates == nil {
		return DefaultChunkSize
	}
	return sizeOrDefault(g.templates.ChunkWidth)
}

// ChunkLength is the forward size of one chunk
func (g *TrackGrid) ChunkLength() float64 {
	if g.templates == nil {
		return DefaultChunkSize
	}
	return sizeOrDefault(g.templates.ChunkLength)
}

// TotalWidth is columns × chunk width
func (g *TrackGrid) TotalWidth() float64 {
	return float64(g.cfg.Columns) * g.ChunkWidth()
}

// TotalDepth is rows × chunk length
func (g *TrackGrid) TotalDepth() float64 {
	return float64(g.cfg.Rows) * g.ChunkLength()
}

// Advance scrolls every chunk, recycles rows that passed the vehicle and
// applies the toroidal lateral wrap.
func (g *TrackGrid) Advance(dt, lateral, forward float64) {
	w, l := g.ChunkWidth(), g.ChunkLength()
	depth := g.TotalDepth()
	total := g.TotalWidth()

	recycled := false
	var offset float64

	for i := range g.chunks {
		c := &g.chunks[i]
		c.Z += forward * dt
		c.X -= lateral * dt

		if c.Z >= l {
			c.Z -= depth
			if !recycled {
				recycled = true
				offset = (g.rng.Float64() - 0.5) * g.cfg.RowJitter * w
				g.rowsPassed++
				g.difficulty = g.difficultyFor(g.rowsPassed)
			}
			c.X += offset
			c.Template = TemplateID(g.difficulty)
		}

		c.X = wrapLateral(c.X, total)
	}

	g.floorX = wrapLateral(g.floorX-lateral*dt, w)

	if recycled && g.OnRowRecycled != nil {
		g.OnRowRecycled(g.rowsPassed, g.difficulty)
	}
}

func (g *TrackGrid) difficultyFor(rows int) int {
	if g.templates.Len() <= 1 {
		return 0
	}
	d := rows / g.cfg.RowsPerDifficulty
	if top := g.templates.MaxIndex(); d > top {
		return top
	}
	return d
}

// wrapLateral maps x into [-total/2, total/2)
func wrapLateral(x, total float64) float64 {
	if total <= 0 {
		return x
	}
	x = math.Mod(x+total/2, total)
	if x < 0 {
		x += total
	}
	x -= total / 2
	if x >= total/2 {
		x -= total
	}
	return x
}

// Reset reseeds the grid, clears difficulty and invalidates the vehicle collider cache
func (g *TrackGrid) Reset() {
	g.rowsPassed = 0
	g.difficulty = 0
	g.floorX = 0
	g.seed()
	if g.cache != nil {
		g.cache.Invalidate()
	}
}

// SetTemplates swaps in a new theme's templates and reseeds. The old set is disposed.
func (g *TrackGrid) SetTemplates(ts *TemplateSet) {
	if g.templates != nil && g.templates != ts {
		g.templates.Dispose()
	}
	g.templates = ts
	g.Reset()
}

// Templates returns the active template set
func (g *TrackGrid) Templates() *TemplateSet {
	return g.templates
}

// RowsPassed is the number of rows recycled since the last reset
func (g *TrackGrid) RowsPassed() int {
	return g.rowsPassed
}

// DifficultyIndex is min(maxIndex, rowsPassed / rowsPerDifficulty)
func (g *TrackGrid) DifficultyIndex() int {
	return g.difficulty
}

// FloorOffset is the floor's lateral scroll, wrapped to one chunk width
func (g *TrackGrid) FloorOffset() float64 {
	return g.floorX
}

// Chunks returns a copy of the current placements
func (g *TrackGrid) Chunks() []Chunk {
	out := make([]Chunk, len(g.chunks))
	copy(out, g.chunks)
	return out
}

// Len is the chunk count, always columns × rows
func (g *TrackGrid) Len() int {
	return len(g.chunks)
}

// CheckCollision tests the vehicle collider against every nearby chunk.
// The returned point is the first vertex of the first chunk triangle found
// in BVH traversal order that touches the vehicle mesh. It is a contact
// point, not the nearest one.
func (g *TrackGrid) CheckCollision(v *Vehicle) (mgl64.Vec3, bool) {
	if g.cache == nil || v == nil || g.templates.Len() == 0 {
		return mgl64.Vec3{}, false
	}
	part := g.cache.Resolve(v.Model)
	if part == nil || part.BVH == nil {
		return mgl64.Vec3{}, false
	}

	w, l := g.ChunkWidth(), g.ChunkLength()
	shipWorld := v.PartWorldMatrix(part)
	shipBox := part.BVH.Bounds()
	if shipBox.IsEmpty() {
		return mgl64.Vec3{}, false
	}

	for i := range g.chunks {
		c := &g.chunks[i]
		if math.Abs(c.Z) > l || math.Abs(c.X) > w {
			continue
		}
		tpl := g.templates.Get(c.Template)
		if tpl == nil {
			continue
		}

		chunkWorld := c.Matrix()
		shipToChunk := chunkWorld.Inv().Mul4(shipWorld)
		chunkToShip := shipToChunk.Inv()
		boxInChunk := shipBox.Transform(shipToChunk)

		var hit Triangle
		found := tpl.BVH.Shapecast(
			func(b Box3) bool { return b.Intersects(boxInChunk) },
			func(t Triangle) bool {
				if part.BVH.IntersectsTriangle(t.Transform(chunkToShip)) {
					hit = t
					return true
				}
				return false
			},
		)
		if !found {
			continue
		}
		p := TransformPoint(chunkWorld, hit.A)
		if !finiteVec(p) {
			continue
		}
		return p, true
	}
	return mgl64.Vec3{}, false
}

func finiteVec(v mgl64.Vec3) bool {
	for _, c := range v {
		if !finite(c) {
			return false
		}
	}
	return true
}
