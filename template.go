package main

import (
	"errors"
	"sort"
)

// DefaultChunkSize replaces a degenerate template width or length
const DefaultChunkSize = 100.0

// ErrNoTemplates is returned when a theme yields no usable geometry
var ErrNoTemplates = errors.New("no track templates")

// TemplateID indexes a template inside its TemplateSet
type TemplateID int

// TrackTemplate is the immutable geometry prototype of one chunk
type TrackTemplate struct {
	ID     TemplateID
	Name   string
	Mesh   *Mesh
	BVH    *BVH
	Width  float64
	Length float64
}

// TemplateSet owns every template of one theme, ordered by ascending difficulty
type TemplateSet struct {
	templates   []*TrackTemplate
	ChunkWidth  float64
	ChunkLength float64
}

// NewTemplateSet indexes each mesh once. Meshes are sorted by name so that the
// difficulty order follows the naming convention (area1, area2, ...). The chunk
// size comes from the first mesh in input order.
func NewTemplateSet(meshes []*Mesh) (*TemplateSet, error) {
	if len(meshes) == 0 {
		return nil, ErrNoTemplates
	}

	size := meshes[0].Bounds.Size()
	ts := &TemplateSet{
		ChunkWidth:  sizeOrDefault(size[0]),
		ChunkLength: sizeOrDefault(size[2]),
	}

	sorted := make([]*Mesh, len(meshes))
	copy(sorted, meshes)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	for i, m := range sorted {
		s := m.Bounds.Size()
		ts.templates = append(ts.templates, &TrackTemplate{
			ID:     TemplateID(i),
			Name:   m.Name,
			Mesh:   m,
			BVH:    NewBVH(m),
			Width:  sizeOrDefault(s[0]),
			Length: sizeOrDefault(s[2]),
		})
	}
	return ts, nil
}

func sizeOrDefault(v float64) float64 {
	if v <= 0 || v != v {
		return DefaultChunkSize
	}
	return v
}

// Len returns the template count
func (ts *TemplateSet) Len() int {
	if ts == nil {
		return 0
	}
	return len(ts.templates)
}

// MaxIndex is the highest difficulty index
func (ts *TemplateSet) MaxIndex() int {
	if ts.Len() == 0 {
		return 0
	}
	return len(ts.templates) - 1
}

// Get returns the template at difficulty index i, falling back to template 0
func (ts *TemplateSet) Get(i TemplateID) *TrackTemplate {
	if ts.Len() == 0 {
		return nil
	}
	if int(i) < 0 || int(i) >= len(ts.templates) {
		return ts.templates[0]
	}
	return ts.templates[i]
}

// Dispose drops the geometry so a stale set cannot be reused after a theme switch
func (ts *TemplateSet) Dispose() {
	if ts == nil {
		return
	}
	ts.templates = nil
}
