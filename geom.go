package main

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Box3 is an axis-aligned bounding box
type Box3 struct {
	Min, Max mgl64.Vec3
}

// EmptyBox returns an inverted box that any Expand call will overwrite
func EmptyBox() Box3 {
	inf := math.Inf(1)
	return Box3{
		Min: mgl64.Vec3{inf, inf, inf},
		Max: mgl64.Vec3{-inf, -inf, -inf},
	}
}

// Expand grows the box to contain p
func (b *Box3) Expand(p mgl64.Vec3) {
	for i := 0; i < 3; i++ {
		b.Min[i] = math.Min(b.Min[i], p[i])
		b.Max[i] = math.Max(b.Max[i], p[i])
	}
}

// IsEmpty reports whether the box contains no points
func (b Box3) IsEmpty() bool {
	return b.Max[0] < b.Min[0] || b.Max[1] < b.Min[1] || b.Max[2] < b.Min[2]
}

// Size returns the extent along each axis
func (b Box3) Size() mgl64.Vec3 {
	if b.IsEmpty() {
		return mgl64.Vec3{}
	}
	return b.Max.Sub(b.Min)
}

// Center returns the box midpoint
func (b Box3) Center() mgl64.Vec3 {
	return b.Min.Add(b.Max).Mul(0.5)
}

// Intersects checks if two boxes overlap (touching counts)
func (b Box3) Intersects(o Box3) bool {
	return b.Min[0] <= o.Max[0] && b.Max[0] >= o.Min[0] &&
		b.Min[1] <= o.Max[1] && b.Max[1] >= o.Min[1] &&
		b.Min[2] <= o.Max[2] && b.Max[2] >= o.Min[2]
}

// IntersectsSphere checks if a sphere touches the box
func (b Box3) IntersectsSphere(c mgl64.Vec3, r float64) bool {
	var d2 float64
	for i := 0; i < 3; i++ {
		v := Clamp(c[i], b.Min[i], b.Max[i]) - c[i]
		d2 += v * v
	}
	return d2 <= r*r
}

// Transform returns the AABB of the box's 8 corners mapped through m
func (b Box3) Transform(m mgl64.Mat4) Box3 {
	out := EmptyBox()
	if b.IsEmpty() {
		return out
	}
	for i := 0; i < 8; i++ {
		corner := mgl64.Vec3{b.Min[0], b.Min[1], b.Min[2]}
		if i&1 != 0 {
			corner[0] = b.Max[0]
		}
		if i&2 != 0 {
			corner[1] = b.Max[1]
		}
		if i&4 != 0 {
			corner[2] = b.Max[2]
		}
		out.Expand(TransformPoint(m, corner))
	}
	return out
}

// TransformPoint applies an affine matrix to a point
func TransformPoint(m mgl64.Mat4, p mgl64.Vec3) mgl64.Vec3 {
	return m.Mul4x1(p.Vec4(1)).Vec3()
}

// Compose builds a TRS matrix from position, XYZ Euler rotation and uniform scale
func Compose(pos, rot mgl64.Vec3, scale float64) mgl64.Mat4 {
	r := mgl64.HomogRotate3DX(rot[0]).
		Mul4(mgl64.HomogRotate3DY(rot[1])).
		Mul4(mgl64.HomogRotate3DZ(rot[2]))
	// XYZ order, same as the scene graph's Euler default
	return mgl64.Translate3D(pos[0], pos[1], pos[2]).
		Mul4(r).
		Mul4(mgl64.Scale3D(scale, scale, scale))
}

// LookAtRotation returns the rotation that points local +Z from origin toward target
func LookAtRotation(origin, target mgl64.Vec3) mgl64.Mat4 {
	dir := target.Sub(origin)
	if dir.Len() < 1e-9 {
		return mgl64.Ident4()
	}
	q := mgl64.QuatBetweenVectors(mgl64.Vec3{0, 0, 1}, dir.Normalize())
	return q.Mat4()
}

// ClosestPointOnSegment clamps the projection of p onto segment ab
func ClosestPointOnSegment(a, b, p mgl64.Vec3) mgl64.Vec3 {
	ab := b.Sub(a)
	l2 := ab.Dot(ab)
	if l2 == 0 {
		return a
	}
	t := Clamp(p.Sub(a).Dot(ab)/l2, 0, 1)
	return a.Add(ab.Mul(t))
}

// Mesh is an immutable triangle soup in local space
type Mesh struct {
	Name      string
	Triangles []Triangle
	Bounds    Box3
}

// NewMesh copies the triangles and computes bounds
func NewMesh(name string, tris []Triangle) *Mesh {
	m := &Mesh{Name: name, Triangles: make([]Triangle, len(tris)), Bounds: EmptyBox()}
	copy(m.Triangles, tris)
	for _, t := range m.Triangles {
		m.Bounds.Expand(t.A)
		m.Bounds.Expand(t.B)
		m.Bounds.Expand(t.C)
	}
	return m
}

// Translated returns a copy of the mesh with every vertex shifted by off
func (m *Mesh) Translated(name string, off mgl64.Vec3) *Mesh {
	tris := make([]Triangle, len(m.Triangles))
	for i, t := range m.Triangles {
		tris[i] = Triangle{t.A.Add(off), t.B.Add(off), t.C.Add(off)}
	}
	return NewMesh(name, tris)
}

// WorldBounds returns the exact AABB of all vertices under m
func (m *Mesh) WorldBounds(mat mgl64.Mat4) Box3 {
	b := EmptyBox()
	for _, t := range m.Triangles {
		b.Expand(TransformPoint(mat, t.A))
		b.Expand(TransformPoint(mat, t.B))
		b.Expand(TransformPoint(mat, t.C))
	}
	return b
}

// BoxMesh builds a 12-triangle box of the given size centred at c
func BoxMesh(name string, c, size mgl64.Vec3) *Mesh {
	h := size.Mul(0.5)
	v := func(sx, sy, sz float64) mgl64.Vec3 {
		return mgl64.Vec3{c[0] + sx*h[0], c[1] + sy*h[1], c[2] + sz*h[2]}
	}
	p := [8]mgl64.Vec3{
		v(-1, -1, -1), v(1, -1, -1), v(1, 1, -1), v(-1, 1, -1),
		v(-1, -1, 1), v(1, -1, 1), v(1, 1, 1), v(-1, 1, 1),
	}
	faces := [6][4]int{
		{0, 1, 2, 3}, {5, 4, 7, 6}, {4, 0, 3, 7},
		{1, 5, 6, 2}, {3, 2, 6, 7}, {4, 5, 1, 0},
	}
	tris := make([]Triangle, 0, 12)
	for _, f := range faces {
		tris = append(tris,
			Triangle{p[f[0]], p[f[1]], p[f[2]]},
			Triangle{p[f[0]], p[f[2]], p[f[3]]},
		)
	}
	return NewMesh(name, tris)
}

// ConeMesh builds a cone along +Y centred on its half height
func ConeMesh(name string, radius, height float64, segments int) *Mesh {
	if segments < 3 {
		segments = 3
	}
	apex := mgl64.Vec3{0, height / 2, 0}
	base := mgl64.Vec3{0, -height / 2, 0}
	ring := make([]mgl64.Vec3, segments)
	for i := range ring {
		a := 2 * math.Pi * float64(i) / float64(segments)
		ring[i] = mgl64.Vec3{radius * math.Sin(a), -height / 2, radius * math.Cos(a)}
	}
	tris := make([]Triangle, 0, segments*2)
	for i := 0; i < segments; i++ {
		j := (i + 1) % segments
		tris = append(tris,
			Triangle{ring[i], ring[j], apex},
			Triangle{ring[j], ring[i], base},
		)
	}
	return NewMesh(name, tris)
}
