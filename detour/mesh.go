package detour

import (
	"github.com/gorustyt/irrnav/recast"
)

const (
	// / The maximum number of vertices per navigation polygon.
	DT_VERTS_PER_POLYGON = recast.DT_VERTS_PER_POLYGON
	DT_NULL_LINK         = 0xffffffff

	// / A flag that indicates that an entity links to an external entity.
	// / (E.g. A polygon edge is a portal that links to another polygon.)
	DT_EXT_LINK = recast.DT_EXT_LINK

	// / The maximum number of user defined area ids.
	DT_MAX_AREAS = 64

	DT_DETAIL_EDGE_BOUNDARY = 0x01 ///< Detail triangle edge is part of the poly boundary
)

// Polygon references pack salt | tile index | poly index into 64 bits.
const (
	DT_SALT_BITS = 16
	DT_TILE_BITS = 28
	DT_POLY_BITS = 20

	saltMask = 1<<DT_SALT_BITS - 1
	tileMask = 1<<DT_TILE_BITS - 1
	polyMask = 1<<DT_POLY_BITS - 1
)

// DtPolyRef identifies a polygon across the whole graph. Zero is never valid.
type DtPolyRef uint64

// DtTileRef identifies a tile; it is the poly ref of the tile's first polygon.
type DtTileRef uint64

// / Derives a standard polygon reference.
func EncodePolyId(salt, it, ip uint32) DtPolyRef {
	return DtPolyRef(salt)<<(DT_POLY_BITS+DT_TILE_BITS) | DtPolyRef(it)<<DT_POLY_BITS | DtPolyRef(ip)
}

// / Decodes a standard polygon reference.
func DecodePolyId(ref DtPolyRef) (salt, it, ip uint32) {
	salt = uint32(ref>>(DT_POLY_BITS+DT_TILE_BITS)) & saltMask
	it = uint32(ref>>DT_POLY_BITS) & tileMask
	ip = uint32(ref) & polyMask
	return
}

func DecodePolyIdTile(ref DtPolyRef) uint32 { return uint32(ref>>DT_POLY_BITS) & tileMask }
func DecodePolyIdPoly(ref DtPolyRef) uint32 { return uint32(ref) & polyMask }
func DecodePolyIdSalt(ref DtPolyRef) uint32 {
	return uint32(ref>>(DT_POLY_BITS+DT_TILE_BITS)) & saltMask
}

// / Defines a polygon within a DtMeshTile object.
type DtPoly struct {
	// / Index to first link in linked list. (Or #DT_NULL_LINK if there is no link.)
	FirstLink uint32
	// / The indices of the polygon's vertices.
	// / The actual vertices are located in DtMeshTile::Verts.
	Verts [DT_VERTS_PER_POLYGON]uint16
	// / Packed data representing neighbor polygons references and flags for each edge.
	Neis      [DT_VERTS_PER_POLYGON]uint16
	Flags     uint16 // The user defined polygon flags.
	VertCount uint8  // The number of vertices in the polygon.
	Area      uint8  // The user defined area id.
}

// Defines a link between polygons.
type DtLink struct {
	Ref  DtPolyRef ///< Neighbour reference. (The neighbor that is linked to.)
	Next uint32    ///< Index of the next link.
	Edge uint8     ///< Index of the polygon edge that owns this link.
	Side uint8     ///< If a boundary link, defines on which side the link is.
	Bmin uint8     ///< If a boundary link, defines the minimum sub-edge area.
	Bmax uint8     ///< If a boundary link, defines the maximum sub-edge area.
}

// / Defines a navigation mesh tile.
type DtMeshTile struct {
	salt          uint32 ///< Counter describing modifications to the tile.
	linksFreeList uint32 ///< Index to the next free link.

	Header       *recast.NavMeshHeader
	Polys        []DtPoly
	Verts        []float32
	Links        []DtLink
	DetailMeshes []recast.NavPolyDetail
	// / The detail mesh's vertices. [(x, y, z) * DetailVertCount]
	DetailVerts []float32
	// / The detail mesh's triangles. [(vertA, vertB, vertC, triFlags) * DetailTriCount].
	DetailTris []uint8

	Data *recast.NavMeshData
}

// / Configuration parameters used to define multi-tile navigation meshes.
type NavMeshParams struct {
	Orig       [3]float32 ///< The world space origin of the navigation mesh's tile space. [(x, y, z)]
	TileWidth  float32    ///< The width of each tile. (Along the x-axis.)
	TileHeight float32    ///< The height of each tile. (Along the z-axis.)
	MaxTiles   int        ///< The maximum number of tiles the navigation mesh can contain.
	MaxPolys   int        ///< The maximum number of polygons each tile can contain.
}

// / Gets the detail triangle edge flags of edge edgeIndex.
func dtGetDetailTriEdgeFlags(triFlags uint8, edgeIndex int) int {
	return int(triFlags>>(edgeIndex*2)) & 0x3
}

func dtOppositeTile(side int) int { return (side + 4) & 0x7 }

func (tile *DtMeshTile) allocLink() uint32 {
	if tile.linksFreeList == DT_NULL_LINK {
		tile.Links = append(tile.Links, DtLink{Next: DT_NULL_LINK})
		return uint32(len(tile.Links) - 1)
	}
	link := tile.linksFreeList
	tile.linksFreeList = tile.Links[link].Next
	return link
}

func (tile *DtMeshTile) freeLink(link uint32) {
	tile.Links[link].Next = tile.linksFreeList
	tile.linksFreeList = link
}

// polyVerts copies the vertices of poly into dst and returns the count.
func (tile *DtMeshTile) polyVerts(poly *DtPoly, dst []float32) int {
	nv := int(poly.VertCount)
	for i := 0; i < nv; i++ {
		copy(dst[i*3:i*3+3], tile.Verts[int(poly.Verts[i])*3:])
	}
	return nv
}

func (tile *DtMeshTile) vert(i uint16) []float32 {
	return tile.Verts[int(i)*3 : int(i)*3+3]
}

func (tile *DtMeshTile) detailVert(pd *recast.NavPolyDetail, t uint8) []float32 {
	i := int(pd.VertBase) + int(t)
	return tile.DetailVerts[i*3 : i*3+3]
}

func (tile *DtMeshTile) clone() *DtMeshTile {
	c := *tile
	c.Polys = append([]DtPoly(nil), tile.Polys...)
	c.Links = append([]DtLink(nil), tile.Links...)
	return &c
}
