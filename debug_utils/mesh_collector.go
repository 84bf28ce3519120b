package debug_utils

import (
	"github.com/go-gl/mathgl/mgl32"
)

// DebugMesh is an indexed triangle mesh for the renderer. Lines holds index
// pairs of line primitives sharing the same vertices.
type DebugMesh struct {
	Vertices []mgl32.Vec3
	Colors   []Colorb
	Indices  []uint32
	Lines    []uint32
}

func (m *DebugMesh) TriCount() int { return len(m.Indices) / 3 }

// Bounds returns the AABB of the mesh vertices.
func (m *DebugMesh) Bounds() (bmin, bmax mgl32.Vec3) {
	if len(m.Vertices) == 0 {
		return
	}
	bmin, bmax = m.Vertices[0], m.Vertices[0]
	for _, v := range m.Vertices[1:] {
		for i := 0; i < 3; i++ {
			bmin[i] = min(bmin[i], v[i])
			bmax[i] = max(bmax[i], v[i])
		}
	}
	return
}

type vertKey struct {
	pos mgl32.Vec3
	col Colorb
}

// MeshCollector is a DuDebugDraw that welds the submitted primitives into a
// DebugMesh. Quads become two triangles, points are dropped.
type MeshCollector struct {
	DuDebugDrawBase
	mesh    *DebugMesh
	lookup  map[vertKey]uint32
	prim    DuDebugDrawPrimitives
	pending []uint32
}

func NewMeshCollector() *MeshCollector {
	return &MeshCollector{
		mesh:   &DebugMesh{},
		lookup: map[vertKey]uint32{},
	}
}

// Mesh returns the collected mesh.
func (c *MeshCollector) Mesh() *DebugMesh { return c.mesh }

// Reset starts a new mesh.
func (c *MeshCollector) Reset() {
	c.mesh = &DebugMesh{}
	clear(c.lookup)
	c.pending = c.pending[:0]
}

func (c *MeshCollector) Begin(prim DuDebugDrawPrimitives, size ...float32) {
	c.prim = prim
	c.pending = c.pending[:0]
}

func (c *MeshCollector) Vertex(pos []float32, color Colorb) {
	c.Vertex1(pos[0], pos[1], pos[2], color)
}

func (c *MeshCollector) Vertex1(x, y, z float32, color Colorb) {
	if c.prim == DU_DRAW_POINTS {
		return
	}
	c.pending = append(c.pending, c.index(mgl32.Vec3{x, y, z}, color))
	switch c.prim {
	case DU_DRAW_LINES:
		if len(c.pending) == 2 {
			c.mesh.Lines = append(c.mesh.Lines, c.pending...)
			c.pending = c.pending[:0]
		}
	case DU_DRAW_TRIS:
		if len(c.pending) == 3 {
			c.addTri(c.pending[0], c.pending[1], c.pending[2])
			c.pending = c.pending[:0]
		}
	case DU_DRAW_QUADS:
		if len(c.pending) == 4 {
			c.addTri(c.pending[0], c.pending[1], c.pending[2])
			c.addTri(c.pending[0], c.pending[2], c.pending[3])
			c.pending = c.pending[:0]
		}
	}
}

func (c *MeshCollector) End() {
	c.pending = c.pending[:0]
}

func (c *MeshCollector) index(pos mgl32.Vec3, color Colorb) uint32 {
	k := vertKey{pos, color}
	if i, ok := c.lookup[k]; ok {
		return i
	}
	i := uint32(len(c.mesh.Vertices))
	c.mesh.Vertices = append(c.mesh.Vertices, pos)
	c.mesh.Colors = append(c.mesh.Colors, color)
	c.lookup[k] = i
	return i
}

func (c *MeshCollector) addTri(a, b, d uint32) {
	// Welding can collapse sliver triangles.
	if a == b || b == d || a == d {
		return
	}
	c.mesh.Indices = append(c.mesh.Indices, a, b, d)
}
