package recast

import (
	"fmt"

	"github.com/gorustyt/irrnav/common"
)

const (
	// / A magic number used to detect compatibility of navigation tile data.
	DT_NAVMESH_MAGIC = 'D'<<24 | 'N'<<16 | 'A'<<8 | 'V'
	// / A version number used to detect compatibility of navigation tile data.
	DT_NAVMESH_VERSION = 7
	// / The maximum number of vertices per navigation polygon.
	DT_VERTS_PER_POLYGON = 6
	// / A flag that indicates that an entity links to an external entity.
	// / (E.g. A polygon edge is a portal that links to another polygon.)
	DT_EXT_LINK = 0x8000
)

// / Provides high level information related to a tile.
type NavMeshHeader struct {
	Magic           int32 // Tile magic number. (Used to identify the data format.)
	Version         int32 // Tile data format version number.
	X               int32 // The x-position of the tile within the tile grid. (x, y, layer)
	Y               int32 // The y-position of the tile within the tile grid. (x, y, layer)
	Layer           int32 // The layer of the tile within the tile grid. (x, y, layer)
	PolyCount       int32
	VertCount       int32
	DetailMeshCount int32
	DetailVertCount int32
	DetailTriCount  int32
	WalkableHeight  float32 // The height of the agents using the tile.
	WalkableRadius  float32 // The radius of the agents using the tile.
	WalkableClimb   float32 // The maximum climb height of the agents using the tile.
	Bmin            [3]float32
	Bmax            [3]float32
}

// / Defines a polygon within a tile.
type NavPoly struct {
	Verts [DT_VERTS_PER_POLYGON]uint16 // The indices of the polygon's vertices.
	// / Packed data representing neighbor polygons references and flags for each edge.
	// / 0 is a wall, idx+1 an internal neighbour, DT_EXT_LINK|side a tile portal.
	Neis      [DT_VERTS_PER_POLYGON]uint16
	Flags     uint16 // The user defined polygon flags.
	VertCount uint8  // The number of vertices in the polygon.
	Area      uint8  // The area id of the polygon.
}

// / Defines the location of detail sub-mesh data within a tile.
type NavPolyDetail struct {
	VertBase  uint32 // The offset of the vertices in the DetailVerts array.
	TriBase   uint32 // The offset of the triangles in the DetailTris array.
	VertCount uint32 // The number of vertices in the sub-mesh.
	TriCount  uint32 // The number of triangles in the sub-mesh.
}

// NavMeshData is the self-contained data of one navigation tile. Vertices are
// in world space. Detail triangles index the detail vertices of their polygon.
type NavMeshData struct {
	Header       NavMeshHeader
	Verts        []float32
	Polys        []NavPoly
	DetailMeshes []NavPolyDetail
	DetailVerts  []float32
	DetailTris   []uint8 // [(vertA, vertB, vertC, edgeFlags) * DetailTriCount]
}

// / Represents the source data used to build a navigation tile.
type NavMeshCreateParams struct {
	Mesh   *RcPolyMesh
	Detail *RcPolyMeshDetail

	TileX     int
	TileY     int
	TileLayer int

	WalkableHeight float32 // The agent height. [Unit: wu]
	WalkableRadius float32 // The agent radius. [Unit: wu]
	WalkableClimb  float32 // The agent maximum traversable ledge. (Up/Down) [Unit: wu]
}

func portalSide(dir uint16) uint16 {
	switch dir & 0xf {
	case 0:
		return DT_EXT_LINK | 4
	case 1:
		return DT_EXT_LINK | 2
	case 2:
		return DT_EXT_LINK | 0
	default:
		return DT_EXT_LINK | 6
	}
}

// / Builds navigation tile data from the provided polygon and detail meshes.
func RcCreateNavMeshData(params *NavMeshCreateParams) (*NavMeshData, error) {
	mesh := params.Mesh
	if mesh == nil || mesh.NPolys == 0 || mesh.NVerts == 0 {
		return nil, fmt.Errorf("create navmesh data: empty polygon mesh: %w", common.ErrDegenerateGeometry)
	}
	if mesh.Nvp > DT_VERTS_PER_POLYGON {
		return nil, fmt.Errorf("create navmesh data: %d vertices per polygon: %w", mesh.Nvp, common.ErrInput)
	}
	if mesh.NVerts >= 0xffff {
		return nil, fmt.Errorf("create navmesh data: %d vertices: %w", mesh.NVerts, common.ErrAllocation)
	}
	nvp := mesh.Nvp

	// Calculate data bounds, the y extents come from the detail mesh when present.
	bmin := mesh.Bmin
	bmax := mesh.Bmax
	if params.Detail != nil && params.Detail.NVerts() > 0 {
		hmin, hmax := bmax[1], bmin[1]
		for i := 0; i < params.Detail.NVerts(); i++ {
			h := params.Detail.Verts[i*3+1]
			hmin = min(hmin, h)
			hmax = max(hmax, h)
		}
		bmin[1] = min(bmin[1], hmin-params.WalkableClimb)
		bmax[1] = max(bmax[1], hmax+params.WalkableClimb)
	}

	data := &NavMeshData{
		Header: NavMeshHeader{
			Magic:          DT_NAVMESH_MAGIC,
			Version:        DT_NAVMESH_VERSION,
			X:              int32(params.TileX),
			Y:              int32(params.TileY),
			Layer:          int32(params.TileLayer),
			PolyCount:      int32(mesh.NPolys),
			VertCount:      int32(mesh.NVerts),
			WalkableHeight: params.WalkableHeight,
			WalkableRadius: params.WalkableRadius,
			WalkableClimb:  params.WalkableClimb,
			Bmin:           bmin,
			Bmax:           bmax,
		},
		Verts: make([]float32, mesh.NVerts*3),
		Polys: make([]NavPoly, mesh.NPolys),
	}

	// Store vertices
	for i := 0; i < mesh.NVerts; i++ {
		iv := mesh.Verts[i*3:]
		v := data.Verts[i*3:]
		v[0] = mesh.Bmin[0] + float32(iv[0])*mesh.Cs
		v[1] = mesh.Bmin[1] + float32(iv[1])*mesh.Ch
		v[2] = mesh.Bmin[2] + float32(iv[2])*mesh.Cs
	}

	// Store polygons
	for i := 0; i < mesh.NPolys; i++ {
		src := mesh.Poly(i)
		p := &data.Polys[i]
		p.Flags = mesh.Flags[i]
		p.Area = mesh.Areas[i]
		for j := 0; j < nvp; j++ {
			if src[j] == RC_MESH_NULL_IDX {
				break
			}
			p.Verts[j] = src[j]
			n := src[nvp+j]
			switch {
			case n == RC_MESH_NULL_IDX:
				p.Neis[j] = 0
			case n&RC_PORTAL_FLAG != 0:
				p.Neis[j] = portalSide(n)
			default:
				p.Neis[j] = n + 1
			}
			p.VertCount++
		}
	}

	// Store detail meshes and vertices.
	if d := params.Detail; d != nil {
		data.DetailMeshes = make([]NavPolyDetail, len(d.Meshes))
		for i, m := range d.Meshes {
			data.DetailMeshes[i] = NavPolyDetail{VertBase: m[0], VertCount: m[1], TriBase: m[2], TriCount: m[3]}
		}
		data.DetailVerts = append([]float32(nil), d.Verts...)
		data.DetailTris = append([]uint8(nil), d.Tris...)
	} else {
		// Create dummy detail mesh by triangulating polys.
		data.DetailMeshes = make([]NavPolyDetail, mesh.NPolys)
		for i := range data.Polys {
			p := &data.Polys[i]
			nv := int(p.VertCount)
			dm := &data.DetailMeshes[i]
			dm.VertBase = uint32(len(data.DetailVerts) / 3)
			dm.VertCount = uint32(nv)
			dm.TriBase = uint32(len(data.DetailTris) / 4)
			dm.TriCount = uint32(nv - 2)
			for j := 0; j < nv; j++ {
				data.DetailVerts = append(data.DetailVerts, data.Verts[int(p.Verts[j])*3:int(p.Verts[j])*3+3]...)
			}
			// Triangulate polygon (local indices).
			for j := 2; j < nv; j++ {
				var flags uint8
				if j == 2 {
					flags |= 1 << 0
				}
				if j == nv-1 {
					flags |= 1 << 4
				}
				flags |= 1 << 2
				data.DetailTris = append(data.DetailTris, 0, uint8(j-1), uint8(j), flags)
			}
		}
	}
	data.Header.DetailMeshCount = int32(len(data.DetailMeshes))
	data.Header.DetailVertCount = int32(len(data.DetailVerts) / 3)
	data.Header.DetailTriCount = int32(len(data.DetailTris) / 4)
	return data, nil
}

// Validate checks the internal consistency of decoded tile data.
func (d *NavMeshData) Validate() error {
	h := &d.Header
	if h.Magic != DT_NAVMESH_MAGIC {
		return fmt.Errorf("tile data: bad magic %#x: %w", h.Magic, common.ErrInput)
	}
	if h.Version != DT_NAVMESH_VERSION {
		return fmt.Errorf("tile data: version %d, want %d: %w", h.Version, DT_NAVMESH_VERSION, common.ErrInput)
	}
	if int(h.PolyCount) != len(d.Polys) || int(h.VertCount)*3 != len(d.Verts) ||
		int(h.DetailMeshCount) != len(d.DetailMeshes) || int(h.DetailVertCount)*3 != len(d.DetailVerts) ||
		int(h.DetailTriCount)*4 != len(d.DetailTris) {
		return fmt.Errorf("tile data: header counts do not match payload: %w", common.ErrInput)
	}
	for i := range d.Polys {
		p := &d.Polys[i]
		if p.VertCount < 3 || p.VertCount > DT_VERTS_PER_POLYGON {
			return fmt.Errorf("tile data: poly %d has %d vertices: %w", i, p.VertCount, common.ErrInput)
		}
		for j := 0; j < int(p.VertCount); j++ {
			if int(p.Verts[j]) >= int(h.VertCount) {
				return fmt.Errorf("tile data: poly %d vertex %d out of range: %w", i, p.Verts[j], common.ErrInput)
			}
		}
	}
	if len(d.DetailMeshes) != 0 && len(d.DetailMeshes) != len(d.Polys) {
		return fmt.Errorf("tile data: %d detail meshes for %d polys: %w", len(d.DetailMeshes), len(d.Polys), common.ErrInput)
	}
	for i, dm := range d.DetailMeshes {
		if int(dm.VertBase+dm.VertCount) > int(h.DetailVertCount) || int(dm.TriBase+dm.TriCount) > int(h.DetailTriCount) {
			return fmt.Errorf("tile data: detail mesh %d out of range: %w", i, common.ErrInput)
		}
		for t := dm.TriBase; t < dm.TriBase+dm.TriCount; t++ {
			tri := d.DetailTris[t*4 : t*4+3]
			if uint32(tri[0]) >= dm.VertCount || uint32(tri[1]) >= dm.VertCount || uint32(tri[2]) >= dm.VertCount {
				return fmt.Errorf("tile data: detail mesh %d triangle %d out of range: %w", i, t, common.ErrInput)
			}
		}
	}
	return nil
}
