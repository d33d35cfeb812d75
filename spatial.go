package main

import "math"

const (
	SpatialCellSize = 80.0   // ~2x the widest barrier
	HazardFieldSize = 2400.0 // covers the spawn depth plus lateral drift
)

// EntityRef identifies a hazard in the grid
type EntityRef struct {
	Kind HazardKind
	Idx  int // index into the hazard list passed to the resolver
}

// SpatialGrid is a fixed-size XZ grid for broad-phase hazard queries,
// centred on the vehicle at the world origin.
type SpatialGrid struct {
	cols, rows int
	halfW      float64
	halfD      float64
	cells      [][]EntityRef
}

// NewSpatialGrid creates a grid covering width×depth around the origin
func NewSpatialGrid(width, depth float64) *SpatialGrid {
	cols := int(math.Ceil(width/SpatialCellSize)) + 1
	rows := int(math.Ceil(depth/SpatialCellSize)) + 1
	return &SpatialGrid{
		cols:  cols,
		rows:  rows,
		halfW: width / 2,
		halfD: depth / 2,
		cells: make([][]EntityRef, cols*rows),
	}
}

// Clear resets all cells (keeps allocated capacity)
func (g *SpatialGrid) Clear() {
	for i := range g.cells {
		g.cells[i] = g.cells[i][:0]
	}
}

func (g *SpatialGrid) cellRange(minX, maxX, minZ, maxZ float64) (int, int, int, int) {
	minCX := g.clampCol(int(math.Floor((minX + g.halfW) / SpatialCellSize)))
	maxCX := g.clampCol(int(math.Floor((maxX + g.halfW) / SpatialCellSize)))
	minCZ := g.clampRow(int(math.Floor((minZ + g.halfD) / SpatialCellSize)))
	maxCZ := g.clampRow(int(math.Floor((maxZ + g.halfD) / SpatialCellSize)))
	return minCX, maxCX, minCZ, maxCZ
}

func (g *SpatialGrid) clampCol(c int) int {
	if c < 0 {
		return 0
	}
	if c >= g.cols {
		return g.cols - 1
	}
	return c
}

func (g *SpatialGrid) clampRow(r int) int {
	if r < 0 {
		return 0
	}
	if r >= g.rows {
		return g.rows - 1
	}
	return r
}

// InsertBox adds an entity reference to all cells overlapping the box's XZ footprint
func (g *SpatialGrid) InsertBox(b Box3, ref EntityRef) {
	if b.IsEmpty() {
		return
	}
	minCX, maxCX, minCZ, maxCZ := g.cellRange(b.Min[0], b.Max[0], b.Min[2], b.Max[2])
	for cz := minCZ; cz <= maxCZ; cz++ {
		for cx := minCX; cx <= maxCX; cx++ {
			idx := cz*g.cols + cx
			g.cells[idx] = append(g.cells[idx], ref)
		}
	}
}

// QueryBuf appends results to buf and returns the extended slice, avoiding per-call allocation
func (g *SpatialGrid) QueryBuf(x, z, radius float64, buf []EntityRef) []EntityRef {
	minCX, maxCX, minCZ, maxCZ := g.cellRange(x-radius, x+radius, z-radius, z+radius)
	for cz := minCZ; cz <= maxCZ; cz++ {
		for cx := minCX; cx <= maxCX; cx++ {
			buf = append(buf, g.cells[cz*g.cols+cx]...)
		}
	}
	return buf
}
