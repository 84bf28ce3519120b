package geom

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/gorustyt/irrnav/common"
)

// VertexType is the vertex layout of a mesh buffer.
type VertexType int

const (
	VertexStandard VertexType = iota
	Vertex2TCoords
	VertexTangents
)

func (t VertexType) String() string {
	switch t {
	case VertexStandard:
		return "standard"
	case Vertex2TCoords:
		return "2tcoords"
	case VertexTangents:
		return "tangents"
	}
	return fmt.Sprintf("VertexType(%d)", int(t))
}

// Known reports whether the adapter can read positions out of this layout.
func (t VertexType) Known() bool {
	return t == VertexStandard || t == Vertex2TCoords || t == VertexTangents
}

// MeshBuffer is one indexed triangle list of a scene mesh.
type MeshBuffer interface {
	VertexType() VertexType
	VertexCount() int
	Position(i int) mgl32.Vec3
	IndexCount() int
	Index(i int) uint32
}

// Mesh is the scene-side mesh the adapter walks.
type Mesh interface {
	BufferCount() int
	Buffer(i int) MeshBuffer
}

// Transformer is implemented by meshes that carry an absolute transform.
type Transformer interface {
	Transform() mgl32.Mat4
}

// MaterialAreaHinter tags every triangle of a buffer with one area.
type MaterialAreaHinter interface {
	MaterialArea() (Area, bool)
}

// VertexAreaHinter tags triangles through their first vertex.
type VertexAreaHinter interface {
	VertexArea(i int) (Area, bool)
}

// InputGeom is the flattened triangle soup the compiler consumes.
type InputGeom struct {
	Verts []float32
	Tris  []int32
	Areas []uint8
	Bmin  [3]float32
	Bmax  [3]float32
}

func (g *InputGeom) VertCount() int { return len(g.Verts) / 3 }
func (g *InputGeom) TriCount() int  { return len(g.Tris) / 3 }

// Flatten reads every buffer of mesh into a single triangle soup in world
// space. Triangles default to ground unless a hint overrides them.
func Flatten(mesh Mesh) (*InputGeom, error) {
	if mesh == nil {
		return nil, fmt.Errorf("flatten: nil mesh: %w", common.ErrInput)
	}
	xform := mgl32.Ident4()
	hasXform := false
	if t, ok := mesh.(Transformer); ok {
		xform = t.Transform()
		hasXform = xform != mgl32.Ident4()
	}

	g := &InputGeom{}
	for b := 0; b < mesh.BufferCount(); b++ {
		buf := mesh.Buffer(b)
		if buf == nil {
			continue
		}
		if !buf.VertexType().Known() {
			return nil, fmt.Errorf("flatten: buffer %d: unrecognized vertex format %v: %w", b, buf.VertexType(), common.ErrInput)
		}
		if buf.IndexCount()%3 != 0 {
			return nil, fmt.Errorf("flatten: buffer %d: index count %d is not a triangle list: %w", b, buf.IndexCount(), common.ErrInput)
		}
		base := int32(g.VertCount())
		nverts := buf.VertexCount()
		for i := 0; i < nverts; i++ {
			p := buf.Position(i)
			if hasXform {
				p = xform.Mul4x1(p.Vec4(1)).Vec3()
			}
			g.Verts = append(g.Verts, p[0], p[1], p[2])
		}

		bufArea := AreaGround
		if h, ok := buf.(MaterialAreaHinter); ok {
			if a, ok := h.MaterialArea(); ok {
				bufArea = a
			}
		}
		vh, hasVertexHints := buf.(VertexAreaHinter)

		for i := 0; i+2 < buf.IndexCount(); i += 3 {
			a, bb, c := buf.Index(i), buf.Index(i+1), buf.Index(i+2)
			if int(a) >= nverts || int(bb) >= nverts || int(c) >= nverts {
				return nil, fmt.Errorf("flatten: buffer %d: triangle %d references vertex outside %d: %w", b, i/3, nverts, common.ErrInput)
			}
			area := bufArea
			if hasVertexHints {
				if va, ok := vh.VertexArea(int(a)); ok {
					area = va
				}
			}
			g.Tris = append(g.Tris, base+int32(a), base+int32(bb), base+int32(c))
			g.Areas = append(g.Areas, uint8(area))
		}
	}
	if g.TriCount() == 0 {
		return nil, fmt.Errorf("flatten: mesh has no triangles: %w", common.ErrInput)
	}
	g.calcBounds()
	return g, nil
}

func (g *InputGeom) calcBounds() {
	copy(g.Bmin[:], g.Verts[:3])
	copy(g.Bmax[:], g.Verts[:3])
	for i := 1; i < g.VertCount(); i++ {
		v := common.GetVert3(g.Verts, i)
		common.Vmin(g.Bmin[:], v)
		common.Vmax(g.Bmax[:], v)
	}
}

// TriBuffer is an in-memory MeshBuffer.
type TriBuffer struct {
	Type        VertexType
	Positions   []mgl32.Vec3
	Indices     []uint32
	Area        Area
	VertexAreas []Area
}

func (b *TriBuffer) VertexType() VertexType     { return b.Type }
func (b *TriBuffer) VertexCount() int           { return len(b.Positions) }
func (b *TriBuffer) Position(i int) mgl32.Vec3  { return b.Positions[i] }
func (b *TriBuffer) IndexCount() int            { return len(b.Indices) }
func (b *TriBuffer) Index(i int) uint32         { return b.Indices[i] }
func (b *TriBuffer) MaterialArea() (Area, bool) { return b.Area, b.Area != AreaNull }

func (b *TriBuffer) VertexArea(i int) (Area, bool) {
	if i < len(b.VertexAreas) && b.VertexAreas[i] != AreaNull {
		return b.VertexAreas[i], true
	}
	return AreaNull, false
}

// TriMesh is an in-memory Mesh with an optional absolute transform.
type TriMesh struct {
	Buffers []*TriBuffer
	Matrix  *mgl32.Mat4
}

func NewTriMesh(buffers ...*TriBuffer) *TriMesh {
	return &TriMesh{Buffers: buffers}
}

func (m *TriMesh) BufferCount() int { return len(m.Buffers) }

func (m *TriMesh) Buffer(i int) MeshBuffer {
	if m.Buffers[i] == nil {
		return nil
	}
	return m.Buffers[i]
}

func (m *TriMesh) Transform() mgl32.Mat4 {
	if m.Matrix == nil {
		return mgl32.Ident4()
	}
	return *m.Matrix
}

// Add appends buffers and returns the mesh for chaining.
func (m *TriMesh) Add(buffers ...*TriBuffer) *TriMesh {
	m.Buffers = append(m.Buffers, buffers...)
	return m
}
