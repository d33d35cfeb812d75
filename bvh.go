package main

import (
	"sort"

	"github.com/go-gl/mathgl/mgl64"
)

// maxTrianglesPerLeaf is the threshold for splitting BVH nodes.
const maxTrianglesPerLeaf = 4

// bvhNode is either internal (two children) or a leaf holding triangles
type bvhNode struct {
	bounds      Box3
	left, right *bvhNode
	triangles   []Triangle
}

// BVH is a read-only bounding volume hierarchy over one mesh. It is built once
// and shared by every placement of that mesh.
type BVH struct {
	mesh *Mesh
	root *bvhNode
}

// NewBVH indexes the mesh's triangles. Degenerate triangles are dropped.
func NewBVH(mesh *Mesh) *BVH {
	tris := make([]Triangle, 0, len(mesh.Triangles))
	for _, t := range mesh.Triangles {
		if !t.Degenerate() {
			tris = append(tris, t)
		}
	}
	b := &BVH{mesh: mesh}
	if len(tris) > 0 {
		b.root = buildBVHNode(tris)
	}
	return b
}

func buildBVHNode(tris []Triangle) *bvhNode {
	node := &bvhNode{bounds: EmptyBox()}
	for _, t := range tris {
		node.bounds.Expand(t.A)
		node.bounds.Expand(t.B)
		node.bounds.Expand(t.C)
	}

	if len(tris) <= maxTrianglesPerLeaf {
		node.triangles = tris
		return node
	}

	// Split on the longest axis at the centroid median
	ext := node.bounds.Size()
	axis := 0
	if ext[1] > ext[axis] {
		axis = 1
	}
	if ext[2] > ext[axis] {
		axis = 2
	}
	sort.Slice(tris, func(i, j int) bool {
		return tris[i].Centroid()[axis] < tris[j].Centroid()[axis]
	})

	mid := len(tris) / 2
	node.left = buildBVHNode(tris[:mid])
	node.right = buildBVHNode(tris[mid:])
	return node
}

// Mesh returns the indexed mesh
func (b *BVH) Mesh() *Mesh {
	return b.mesh
}

// Bounds returns the root bounds, empty for a mesh with no usable triangles
func (b *BVH) Bounds() Box3 {
	if b == nil || b.root == nil {
		return EmptyBox()
	}
	return b.root.bounds
}

// Shapecast walks the tree depth first, left before right. Nodes for which
// intersectsBounds is false are pruned. It returns true as soon as
// intersectsTriangle accepts a triangle, so the accepted triangle is the first
// one in traversal order, not necessarily the closest.
func (b *BVH) Shapecast(intersectsBounds func(Box3) bool, intersectsTriangle func(Triangle) bool) bool {
	if b == nil || b.root == nil {
		return false
	}
	return shapecastNode(b.root, intersectsBounds, intersectsTriangle)
}

func shapecastNode(n *bvhNode, inBounds func(Box3) bool, inTri func(Triangle) bool) bool {
	if n == nil || !inBounds(n.bounds) {
		return false
	}
	if n.triangles != nil {
		for _, t := range n.triangles {
			if inTri(t) {
				return true
			}
		}
		return false
	}
	if shapecastNode(n.left, inBounds, inTri) {
		return true
	}
	return shapecastNode(n.right, inBounds, inTri)
}

// IntersectsSphere checks a local-space sphere against the mesh surface
func (b *BVH) IntersectsSphere(c mgl64.Vec3, r float64) bool {
	return b.Shapecast(
		func(box Box3) bool { return box.IntersectsSphere(c, r) },
		func(t Triangle) bool { return SphereIntersectsTriangle(c, r, t) },
	)
}

// IntersectsTriangle checks a local-space triangle against the mesh
func (b *BVH) IntersectsTriangle(tri Triangle) bool {
	tb := tri.Bounds()
	return b.Shapecast(
		func(box Box3) bool { return box.Intersects(tb) },
		func(t Triangle) bool { return TrianglesIntersect(t, tri) },
	)
}
