package main

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

const triEpsilon = 1e-9

// Triangle is three vertices in some local space
type Triangle struct {
	A, B, C mgl64.Vec3
}

// Transform maps every vertex through m
func (t Triangle) Transform(m mgl64.Mat4) Triangle {
	return Triangle{TransformPoint(m, t.A), TransformPoint(m, t.B), TransformPoint(m, t.C)}
}

// Bounds returns the triangle's AABB
func (t Triangle) Bounds() Box3 {
	b := EmptyBox()
	b.Expand(t.A)
	b.Expand(t.B)
	b.Expand(t.C)
	return b
}

// Normal returns the unnormalised face normal
func (t Triangle) Normal() mgl64.Vec3 {
	return t.B.Sub(t.A).Cross(t.C.Sub(t.A))
}

// Degenerate reports a zero-area triangle
func (t Triangle) Degenerate() bool {
	return t.Normal().Len() < triEpsilon
}

// Centroid returns the average of the three vertices
func (t Triangle) Centroid() mgl64.Vec3 {
	return t.A.Add(t.B).Add(t.C).Mul(1.0 / 3)
}

// segmentIntersectsTriangle runs Möller–Trumbore restricted to t in [0,1]
func segmentIntersectsTriangle(p, q mgl64.Vec3, t Triangle) bool {
	dir := q.Sub(p)
	e1 := t.B.Sub(t.A)
	e2 := t.C.Sub(t.A)
	h := dir.Cross(e2)
	a := e1.Dot(h)
	if math.Abs(a) < triEpsilon {
		return false // parallel
	}
	f := 1 / a
	s := p.Sub(t.A)
	u := f * s.Dot(h)
	if u < 0 || u > 1 {
		return false
	}
	qv := s.Cross(e1)
	v := f * dir.Dot(qv)
	if v < 0 || u+v > 1 {
		return false
	}
	k := f * e2.Dot(qv)
	return k >= 0 && k <= 1
}

// pointInTriangle3 checks a point already known to lie in the triangle's plane
func pointInTriangle3(p mgl64.Vec3, t Triangle) bool {
	n := t.Normal()
	c1 := t.B.Sub(t.A).Cross(p.Sub(t.A)).Dot(n)
	c2 := t.C.Sub(t.B).Cross(p.Sub(t.B)).Dot(n)
	c3 := t.A.Sub(t.C).Cross(p.Sub(t.C)).Dot(n)
	return (c1 >= 0 && c2 >= 0 && c3 >= 0) || (c1 <= 0 && c2 <= 0 && c3 <= 0)
}

// coplanar reports whether every vertex of o lies in t's plane
func coplanar(t, o Triangle) bool {
	n := t.Normal()
	l := n.Len()
	if l < triEpsilon {
		return false
	}
	n = n.Mul(1 / l)
	tol := 1e-7 * math.Max(1, t.Bounds().Size().Len())
	for _, v := range [3]mgl64.Vec3{o.A, o.B, o.C} {
		if math.Abs(v.Sub(t.A).Dot(n)) > tol {
			return false
		}
	}
	return true
}

// segmentsCross2D tests two coplanar segments projected onto the plane dropping axis drop
func segmentsCross2D(p1, p2, q1, q2 mgl64.Vec3, drop int) bool {
	i, j := (drop+1)%3, (drop+2)%3
	orient := func(a, b, c mgl64.Vec3) float64 {
		return (b[i]-a[i])*(c[j]-a[j]) - (b[j]-a[j])*(c[i]-a[i])
	}
	d1 := orient(q1, q2, p1)
	d2 := orient(q1, q2, p2)
	d3 := orient(p1, p2, q1)
	d4 := orient(p1, p2, q2)
	return ((d1 > 0 && d2 < 0) || (d1 < 0 && d2 > 0)) &&
		((d3 > 0 && d4 < 0) || (d3 < 0 && d4 > 0))
}

func coplanarIntersect(t, o Triangle) bool {
	for _, v := range [3]mgl64.Vec3{o.A, o.B, o.C} {
		if pointInTriangle3(v, t) {
			return true
		}
	}
	for _, v := range [3]mgl64.Vec3{t.A, t.B, t.C} {
		if pointInTriangle3(v, o) {
			return true
		}
	}
	n := t.Normal()
	drop := 0
	if math.Abs(n[1]) > math.Abs(n[drop]) {
		drop = 1
	}
	if math.Abs(n[2]) > math.Abs(n[drop]) {
		drop = 2
	}
	te := [3][2]mgl64.Vec3{{t.A, t.B}, {t.B, t.C}, {t.C, t.A}}
	oe := [3][2]mgl64.Vec3{{o.A, o.B}, {o.B, o.C}, {o.C, o.A}}
	for _, a := range te {
		for _, b := range oe {
			if segmentsCross2D(a[0], a[1], b[0], b[1], drop) {
				return true
			}
		}
	}
	return false
}

// TrianglesIntersect is an exact triangle/triangle test: two non-coplanar
// triangles intersect iff an edge of one crosses the other.
func TrianglesIntersect(t, o Triangle) bool {
	if t.Degenerate() || o.Degenerate() {
		return false
	}
	if !t.Bounds().Intersects(o.Bounds()) {
		return false
	}
	if coplanar(t, o) {
		return coplanarIntersect(t, o)
	}
	for _, e := range [3][2]mgl64.Vec3{{t.A, t.B}, {t.B, t.C}, {t.C, t.A}} {
		if segmentIntersectsTriangle(e[0], e[1], o) {
			return true
		}
	}
	for _, e := range [3][2]mgl64.Vec3{{o.A, o.B}, {o.B, o.C}, {o.C, o.A}} {
		if segmentIntersectsTriangle(e[0], e[1], t) {
			return true
		}
	}
	return false
}

// ClosestPointOnTriangle returns the point of t nearest to p (Ericson, RTCD 5.1.5)
func ClosestPointOnTriangle(p mgl64.Vec3, t Triangle) mgl64.Vec3 {
	ab := t.B.Sub(t.A)
	ac := t.C.Sub(t.A)
	ap := p.Sub(t.A)
	d1, d2 := ab.Dot(ap), ac.Dot(ap)
	if d1 <= 0 && d2 <= 0 {
		return t.A
	}
	bp := p.Sub(t.B)
	d3, d4 := ab.Dot(bp), ac.Dot(bp)
	if d3 >= 0 && d4 <= d3 {
		return t.B
	}
	vc := d1*d4 - d3*d2
	if vc <= 0 && d1 >= 0 && d3 <= 0 {
		return t.A.Add(ab.Mul(d1 / (d1 - d3)))
	}
	cp := p.Sub(t.C)
	d5, d6 := ab.Dot(cp), ac.Dot(cp)
	if d6 >= 0 && d5 <= d6 {
		return t.C
	}
	vb := d5*d2 - d1*d6
	if vb <= 0 && d2 >= 0 && d6 <= 0 {
		return t.A.Add(ac.Mul(d2 / (d2 - d6)))
	}
	va := d3*d6 - d5*d4
	if va <= 0 && (d4-d3) >= 0 && (d5-d6) >= 0 {
		return t.B.Add(t.C.Sub(t.B).Mul((d4 - d3) / ((d4 - d3) + (d5 - d6))))
	}
	denom := 1 / (va + vb + vc)
	v := vb * denom
	w := vc * denom
	return t.A.Add(ab.Mul(v)).Add(ac.Mul(w))
}

// SphereIntersectsTriangle checks if a sphere touches a triangle's surface
func SphereIntersectsTriangle(c mgl64.Vec3, r float64, t Triangle) bool {
	d := ClosestPointOnTriangle(c, t).Sub(c)
	return d.Dot(d) <= r*r
}
