package detour

import (
	"math"

	"github.com/gorustyt/irrnav/common"
	"github.com/gorustyt/irrnav/recast"
)

type tileKey struct {
	x, y, layer int32
}

// DtNavMesh is the navigation graph: a set of tiles whose polygons are linked
// across shared edges, internal and between neighbouring tiles.
type DtNavMesh struct {
	m_params     NavMeshParams
	m_orig       [3]float32
	m_tileWidth  float32
	m_tileHeight float32
	m_maxTiles   int

	m_tiles     []*DtMeshTile
	m_freeTiles []uint32
	m_posLookup map[tileKey]*DtMeshTile
	m_maxLayer  int32
}

// / Initializes the navigation mesh for tiled use.
func NewDtNavMeshWithParams(params *NavMeshParams) (*DtNavMesh, DtStatus) {
	if params.MaxTiles <= 0 || params.MaxTiles > tileMask || params.MaxPolys <= 0 || params.MaxPolys > polyMask ||
		!(params.TileWidth > 0) || !(params.TileHeight > 0) {
		return nil, DT_FAILURE | DT_INVALID_PARAM
	}
	mesh := &DtNavMesh{
		m_params:     *params,
		m_orig:       params.Orig,
		m_tileWidth:  params.TileWidth,
		m_tileHeight: params.TileHeight,
		m_maxTiles:   params.MaxTiles,
		m_posLookup:  map[tileKey]*DtMeshTile{},
	}
	return mesh, DT_SUCCESS
}

// / Initializes the navigation mesh for single tile use.
func NewDtNavMesh(data *recast.NavMeshData) (*DtNavMesh, DtTileRef, DtStatus) {
	header := &data.Header
	if header.Magic != recast.DT_NAVMESH_MAGIC {
		return nil, 0, DT_FAILURE | DT_WRONG_MAGIC
	}
	if header.Version != recast.DT_NAVMESH_VERSION {
		return nil, 0, DT_FAILURE | DT_WRONG_VERSION
	}

	params := NavMeshParams{
		Orig:       header.Bmin,
		TileWidth:  header.Bmax[0] - header.Bmin[0],
		TileHeight: header.Bmax[2] - header.Bmin[2],
		MaxTiles:   1,
		MaxPolys:   max(int(header.PolyCount), 1),
	}
	mesh, status := NewDtNavMeshWithParams(&params)
	if status.DtStatusFailed() {
		return nil, 0, status
	}
	ref, status := mesh.AddTile(data)
	return mesh, ref, status
}

func (mesh *DtNavMesh) GetParams() NavMeshParams { return mesh.m_params }

// / The maximum number of tiles supported by the navigation mesh.
func (mesh *DtNavMesh) GetMaxTiles() int { return mesh.m_maxTiles }

// TileCount returns the number of live tiles.
func (mesh *DtNavMesh) TileCount() int { return len(mesh.m_posLookup) }

// Tiles returns the live tiles in slot order.
func (mesh *DtNavMesh) Tiles() []*DtMeshTile {
	res := make([]*DtMeshTile, 0, len(mesh.m_posLookup))
	for _, t := range mesh.m_tiles {
		if t.Header != nil {
			res = append(res, t)
		}
	}
	return res
}

// / Calculates the tile grid location for the specified world position.
func (mesh *DtNavMesh) CalcTileLoc(pos []float32) (tx, ty int32) {
	tx = int32(math.Floor(float64((pos[0] - mesh.m_orig[0]) / mesh.m_tileWidth)))
	ty = int32(math.Floor(float64((pos[2] - mesh.m_orig[2]) / mesh.m_tileHeight)))
	return
}

func (mesh *DtNavMesh) getTileIndex(tile *DtMeshTile) uint32 {
	for i, t := range mesh.m_tiles {
		if t == tile {
			return uint32(i)
		}
	}
	return DT_NULL_LINK
}

// / Gets the polygon reference for the tile's base polygon.
func (mesh *DtNavMesh) GetPolyRefBase(tile *DtMeshTile) DtPolyRef {
	if tile == nil {
		return 0
	}
	return EncodePolyId(tile.salt, mesh.getTileIndex(tile), 0)
}

// / Gets the tile reference for the specified tile.
func (mesh *DtNavMesh) GetTileRef(tile *DtMeshTile) DtTileRef {
	return DtTileRef(mesh.GetPolyRefBase(tile))
}

// / Gets the tile at the specified grid location.
func (mesh *DtNavMesh) GetTileAt(x, y, layer int32) *DtMeshTile {
	return mesh.m_posLookup[tileKey{x, y, layer}]
}

// / Gets the tile reference for the tile at specified grid location.
func (mesh *DtNavMesh) GetTileRefAt(x, y, layer int32) DtTileRef {
	return mesh.GetTileRef(mesh.GetTileAt(x, y, layer))
}

// / Gets all tiles at the specified grid location. (All layers.)
func (mesh *DtNavMesh) GetTilesAt(x, y int32) []*DtMeshTile {
	var res []*DtMeshTile
	for layer := int32(0); layer <= mesh.m_maxLayer; layer++ {
		if t := mesh.m_posLookup[tileKey{x, y, layer}]; t != nil {
			res = append(res, t)
		}
	}
	return res
}

func (mesh *DtNavMesh) getNeighbourTilesAt(x, y int32, side int) []*DtMeshTile {
	dx, dy := neighbourTileOffset(side)
	return mesh.GetTilesAt(x+dx, y+dy)
}

// / Gets the tile and polygon for the specified polygon reference.
func (mesh *DtNavMesh) GetTileAndPolyByRef(ref DtPolyRef) (*DtMeshTile, *DtPoly, DtStatus) {
	if ref == 0 {
		return nil, nil, DT_FAILURE
	}
	salt, it, ip := DecodePolyId(ref)
	if int(it) >= len(mesh.m_tiles) {
		return nil, nil, DT_FAILURE | DT_INVALID_PARAM
	}
	tile := mesh.m_tiles[it]
	if tile.salt != salt || tile.Header == nil {
		return nil, nil, DT_FAILURE | DT_INVALID_PARAM
	}
	if int(ip) >= len(tile.Polys) {
		return nil, nil, DT_FAILURE | DT_INVALID_PARAM
	}
	return tile, &tile.Polys[ip], DT_SUCCESS
}

// / @warning Only use this function if it is known that the provided polygon
// / reference is valid.
func (mesh *DtNavMesh) GetTileAndPolyByRefUnsafe(ref DtPolyRef) (*DtMeshTile, *DtPoly) {
	_, it, ip := DecodePolyId(ref)
	tile := mesh.m_tiles[it]
	return tile, &tile.Polys[ip]
}

// / Checks the validity of a polygon reference.
func (mesh *DtNavMesh) IsValidPolyRef(ref DtPolyRef) bool {
	_, _, status := mesh.GetTileAndPolyByRef(ref)
	return status.DtStatusSucceed()
}

// / Adds a tile to the navigation mesh.
// / The tile's data is shared read-only; polygons and links are owned by the mesh.
func (mesh *DtNavMesh) AddTile(data *recast.NavMeshData) (DtTileRef, DtStatus) {
	header := &data.Header
	if header.Magic != recast.DT_NAVMESH_MAGIC {
		return 0, DT_FAILURE | DT_WRONG_MAGIC
	}
	if header.Version != recast.DT_NAVMESH_VERSION {
		return 0, DT_FAILURE | DT_WRONG_VERSION
	}
	// Do not allow adding more polygons than specified in the NavMesh's maxPolys constraint.
	if int(header.PolyCount) > mesh.m_params.MaxPolys {
		return 0, DT_FAILURE | DT_INVALID_PARAM
	}
	// Make sure the location is free.
	if header.Layer < 0 {
		return 0, DT_FAILURE | DT_INVALID_PARAM
	}
	if mesh.GetTileAt(header.X, header.Y, header.Layer) != nil {
		return 0, DT_FAILURE | DT_ALREADY_OCCUPIED
	}

	var tile *DtMeshTile
	if n := len(mesh.m_freeTiles); n > 0 {
		tile = mesh.m_tiles[mesh.m_freeTiles[n-1]]
		mesh.m_freeTiles = mesh.m_freeTiles[:n-1]
	} else if len(mesh.m_tiles) < mesh.m_maxTiles {
		tile = &DtMeshTile{salt: 1}
		mesh.m_tiles = append(mesh.m_tiles, tile)
	} else {
		return 0, DT_FAILURE | DT_OUT_OF_MEMORY
	}

	tile.Header = header
	tile.Data = data
	tile.Verts = data.Verts
	tile.DetailMeshes = data.DetailMeshes
	tile.DetailVerts = data.DetailVerts
	tile.DetailTris = data.DetailTris
	tile.Polys = make([]DtPoly, len(data.Polys))
	for i, p := range data.Polys {
		tile.Polys[i] = DtPoly{
			FirstLink: DT_NULL_LINK,
			Verts:     p.Verts,
			Neis:      p.Neis,
			Flags:     p.Flags,
			VertCount: p.VertCount,
			Area:      p.Area,
		}
	}
	tile.Links = make([]DtLink, 0, len(data.Polys)*DT_VERTS_PER_POLYGON)
	tile.linksFreeList = DT_NULL_LINK

	mesh.m_posLookup[tileKey{header.X, header.Y, header.Layer}] = tile
	mesh.m_maxLayer = max(mesh.m_maxLayer, header.Layer)

	mesh.connectIntLinks(tile)

	// Connect with layers in current tile.
	for _, nei := range mesh.GetTilesAt(header.X, header.Y) {
		if nei == tile {
			continue
		}
		mesh.connectExtLinks(tile, nei, -1)
		mesh.connectExtLinks(nei, tile, -1)
	}

	// Connect with neighbour tiles.
	for i := 0; i < 8; i++ {
		for _, nei := range mesh.getNeighbourTilesAt(header.X, header.Y, i) {
			mesh.connectExtLinks(tile, nei, i)
			mesh.connectExtLinks(nei, tile, dtOppositeTile(i))
		}
	}
	return mesh.GetTileRef(tile), DT_SUCCESS
}

// AddTileBlob decodes a tile blob and adds it.
func (mesh *DtNavMesh) AddTileBlob(blob []byte) (DtTileRef, error) {
	data, err := recast.DecodeTile(blob)
	if err != nil {
		return 0, err
	}
	ref, status := mesh.AddTile(data)
	if status.DtStatusFailed() {
		return 0, statusError("add tile", status)
	}
	return ref, nil
}

// / Removes the specified tile from the navigation mesh and returns its data.
func (mesh *DtNavMesh) RemoveTile(ref DtTileRef) (*recast.NavMeshData, DtStatus) {
	if ref == 0 {
		return nil, DT_FAILURE | DT_INVALID_PARAM
	}
	salt, it, _ := DecodePolyId(DtPolyRef(ref))
	if int(it) >= len(mesh.m_tiles) {
		return nil, DT_FAILURE | DT_INVALID_PARAM
	}
	tile := mesh.m_tiles[it]
	if tile.salt != salt || tile.Header == nil {
		return nil, DT_FAILURE | DT_INVALID_PARAM
	}

	header := tile.Header
	delete(mesh.m_posLookup, tileKey{header.X, header.Y, header.Layer})

	// Remove connections to neighbour tiles.
	for _, nei := range mesh.GetTilesAt(header.X, header.Y) {
		if nei != tile {
			mesh.unconnectLinks(nei, tile)
		}
	}
	for i := 0; i < 8; i++ {
		for _, nei := range mesh.getNeighbourTilesAt(header.X, header.Y, i) {
			mesh.unconnectLinks(nei, tile)
		}
	}

	data := tile.Data
	*tile = DtMeshTile{salt: (tile.salt + 1) & saltMask}
	if tile.salt == 0 {
		tile.salt++
	}
	mesh.m_freeTiles = append(mesh.m_freeTiles, it)
	return data, DT_SUCCESS
}

// Clone returns an independent copy of the mesh. Tile geometry is shared,
// polygon flags and links are not, so the copy can be edited and swapped in
// while readers keep using the original. Poly refs stay valid in the copy.
func (mesh *DtNavMesh) Clone() *DtNavMesh {
	c := *mesh
	c.m_tiles = make([]*DtMeshTile, len(mesh.m_tiles))
	c.m_posLookup = make(map[tileKey]*DtMeshTile, len(mesh.m_posLookup))
	for i, t := range mesh.m_tiles {
		c.m_tiles[i] = t.clone()
		if h := t.Header; h != nil {
			c.m_posLookup[tileKey{h.X, h.Y, h.Layer}] = c.m_tiles[i]
		}
	}
	c.m_freeTiles = append([]uint32(nil), mesh.m_freeTiles...)
	return &c
}

func (mesh *DtNavMesh) connectIntLinks(tile *DtMeshTile) {
	base := mesh.GetPolyRefBase(tile)
	for i := range tile.Polys {
		poly := &tile.Polys[i]
		poly.FirstLink = DT_NULL_LINK

		// Build edge links backwards so that the links will be
		// in the linked list from lowest index to highest.
		for j := int(poly.VertCount) - 1; j >= 0; j-- {
			// Skip hard and non-internal edges.
			if poly.Neis[j] == 0 || poly.Neis[j]&DT_EXT_LINK != 0 {
				continue
			}
			idx := tile.allocLink()
			link := &tile.Links[idx]
			link.Ref = base | DtPolyRef(poly.Neis[j]-1)
			link.Edge = uint8(j)
			link.Side = 0xff
			link.Bmin, link.Bmax = 0, 0
			// Add to linked list.
			link.Next = poly.FirstLink
			poly.FirstLink = idx
		}
	}
}

func (mesh *DtNavMesh) connectExtLinks(tile, target *DtMeshTile, side int) {
	// Connect border links.
	for i := range tile.Polys {
		poly := &tile.Polys[i]
		nv := int(poly.VertCount)
		for j := 0; j < nv; j++ {
			// Skip non-portal edges.
			if poly.Neis[j]&DT_EXT_LINK == 0 {
				continue
			}
			dir := int(poly.Neis[j] & 0xff)
			if side != -1 && dir != side {
				continue
			}

			// Create new links
			va := tile.vert(poly.Verts[j])
			vb := tile.vert(poly.Verts[(j+1)%nv])
			for _, c := range mesh.findConnectingPolys(va, vb, target, dtOppositeTile(dir), 4) {
				idx := tile.allocLink()
				link := &tile.Links[idx]
				link.Ref = c.ref
				link.Edge = uint8(j)
				link.Side = uint8(dir)
				link.Next = poly.FirstLink
				poly.FirstLink = idx

				// Compress portal limits to a byte value.
				axis := 0
				if dir == 0 || dir == 4 {
					axis = 2
				}
				tmin := (c.amin - va[axis]) / (vb[axis] - va[axis])
				tmax := (c.amax - va[axis]) / (vb[axis] - va[axis])
				if tmin > tmax {
					tmin, tmax = tmax, tmin
				}
				link.Bmin = uint8(math.Round(float64(common.Clamp(tmin, 0, 1) * 255)))
				link.Bmax = uint8(math.Round(float64(common.Clamp(tmax, 0, 1) * 255)))
			}
		}
	}
}

type connectingPoly struct {
	ref        DtPolyRef
	amin, amax float32
}

// findConnectingPolys returns the polygons of tile whose portal edges on side
// overlap edge va-vb.
func (mesh *DtNavMesh) findConnectingPolys(va, vb []float32, tile *DtMeshTile, side int, maxcon int) []connectingPoly {
	if tile == nil {
		return nil
	}
	amin, amax := calcSlabEndPoints(va, vb, side)
	apos := getSlabCoord(va, side)

	// Remove links pointing to 'side' and compact the links array.
	m := uint16(DT_EXT_LINK | side)
	base := mesh.GetPolyRefBase(tile)

	var res []connectingPoly
	for i := range tile.Polys {
		poly := &tile.Polys[i]
		nv := int(poly.VertCount)
		for j := 0; j < nv; j++ {
			// Skip edges which do not point to the right side.
			if poly.Neis[j] != m {
				continue
			}
			vc := tile.vert(poly.Verts[j])
			vd := tile.vert(poly.Verts[(j+1)%nv])
			bpos := getSlabCoord(vc, side)

			// Segments are not close enough.
			if common.Abs(apos-bpos) > 0.01 {
				continue
			}

			// Check if the segments touch.
			bmin, bmax := calcSlabEndPoints(vc, vd, side)
			if !overlapSlabs(amin, amax, bmin, bmax, 0.01, tile.Header.WalkableClimb) {
				continue
			}

			// Add return value.
			if len(res) < maxcon {
				res = append(res, connectingPoly{
					ref:  base | DtPolyRef(i),
					amin: max(amin[0], bmin[0]),
					amax: min(amax[0], bmax[0]),
				})
			}
			break
		}
	}
	return res
}

// unconnectLinks drops every link of tile that points into target.
func (mesh *DtNavMesh) unconnectLinks(tile, target *DtMeshTile) {
	targetNum := mesh.getTileIndex(target)
	for i := range tile.Polys {
		poly := &tile.Polys[i]
		j := poly.FirstLink
		pj := uint32(DT_NULL_LINK)
		for j != DT_NULL_LINK {
			if DecodePolyIdTile(tile.Links[j].Ref) == targetNum {
				// Remove link.
				nj := tile.Links[j].Next
				if pj == DT_NULL_LINK {
					poly.FirstLink = nj
				} else {
					tile.Links[pj].Next = nj
				}
				tile.freeLink(j)
				j = nj
			} else {
				// Advance
				pj = j
				j = tile.Links[j].Next
			}
		}
	}
}

// / Sets the user defined flags for the specified polygon.
func (mesh *DtNavMesh) SetPolyFlags(ref DtPolyRef, flags uint16) DtStatus {
	_, poly, status := mesh.GetTileAndPolyByRef(ref)
	if status.DtStatusFailed() {
		return status
	}
	poly.Flags = flags
	return DT_SUCCESS
}

// / Gets the user defined flags for the specified polygon.
func (mesh *DtNavMesh) GetPolyFlags(ref DtPolyRef) (uint16, DtStatus) {
	_, poly, status := mesh.GetTileAndPolyByRef(ref)
	if status.DtStatusFailed() {
		return 0, status
	}
	return poly.Flags, DT_SUCCESS
}

// / Sets the user defined area for the specified polygon.
func (mesh *DtNavMesh) SetPolyArea(ref DtPolyRef, area uint8) DtStatus {
	_, poly, status := mesh.GetTileAndPolyByRef(ref)
	if status.DtStatusFailed() {
		return status
	}
	if area >= DT_MAX_AREAS {
		return DT_FAILURE | DT_INVALID_PARAM
	}
	poly.Area = area
	return DT_SUCCESS
}

// / Gets the user defined area for the specified polygon.
func (mesh *DtNavMesh) GetPolyArea(ref DtPolyRef) (uint8, DtStatus) {
	_, poly, status := mesh.GetTileAndPolyByRef(ref)
	if status.DtStatusFailed() {
		return 0, status
	}
	return poly.Area, DT_SUCCESS
}

// / Returns the polygon's height at pos, or false when pos is outside the
// / polygon on the xz-plane.
func (mesh *DtNavMesh) getPolyHeight(tile *DtMeshTile, poly *DtPoly, ip int, pos []float32) (float32, bool) {
	var verts [DT_VERTS_PER_POLYGON * 3]float32
	nv := tile.polyVerts(poly, verts[:])
	if !common.PointInPolygon(pos, verts[:], nv) {
		return 0, false
	}
	if ip >= len(tile.DetailMeshes) {
		return 0, false
	}
	pd := &tile.DetailMeshes[ip]

	// Find height at the location.
	for j := uint32(0); j < pd.TriCount; j++ {
		t := tile.DetailTris[(pd.TriBase+j)*4:]
		v0 := tile.detailVert(pd, t[0])
		v1 := tile.detailVert(pd, t[1])
		v2 := tile.detailVert(pd, t[2])
		if h, ok := common.ClosestHeightPointTriangle(pos, v0, v1, v2); ok {
			return h, true
		}
	}

	// If all triangle checks failed above (can happen with degenerate triangles
	// or larger floating point values) the point is on an edge, so just select
	// closest.
	closest := closestPointOnDetailEdges(false, tile, ip, pos)
	return closest[1], true
}

func closestPointOnDetailEdges(onlyBoundary bool, tile *DtMeshTile, ip int, pos []float32) (closest [3]float32) {
	pd := &tile.DetailMeshes[ip]
	dmin := float32(math.MaxFloat32)
	tmin := float32(0)
	var pmin, pmax []float32

	const anyBoundaryEdge = DT_DETAIL_EDGE_BOUNDARY<<0 | DT_DETAIL_EDGE_BOUNDARY<<2 | DT_DETAIL_EDGE_BOUNDARY<<4
	for i := uint32(0); i < pd.TriCount; i++ {
		tris := tile.DetailTris[(pd.TriBase+i)*4 : (pd.TriBase+i)*4+4]
		if onlyBoundary && int(tris[3])&anyBoundaryEdge == 0 {
			continue
		}
		v := [3][]float32{tile.detailVert(pd, tris[0]), tile.detailVert(pd, tris[1]), tile.detailVert(pd, tris[2])}
		for k, j := 0, 2; k < 3; j, k = k, k+1 {
			if dtGetDetailTriEdgeFlags(tris[3], j)&DT_DETAIL_EDGE_BOUNDARY == 0 && (onlyBoundary || tris[j] < tris[k]) {
				// Only looking at boundary edges and this is internal, or
				// this is an inner edge that we will see again or have already seen.
				continue
			}
			d, t := common.DistancePtSegSqr2D(pos, v[j], v[k])
			if d < dmin {
				dmin = d
				tmin = t
				pmin = v[j]
				pmax = v[k]
			}
		}
	}
	if pmin == nil {
		copy(closest[:], pos)
		return closest
	}
	common.Vlerp(closest[:], pmin, pmax, tmin)
	return closest
}

// / Finds the closest point on the polygon; overPoly reports whether pos is
// / above or below the polygon.
func (mesh *DtNavMesh) closestPointOnPoly(ref DtPolyRef, pos []float32) (closest [3]float32, overPoly bool) {
	tile, poly := mesh.GetTileAndPolyByRefUnsafe(ref)
	ip := int(DecodePolyIdPoly(ref))
	copy(closest[:], pos)
	if h, ok := mesh.getPolyHeight(tile, poly, ip, pos); ok {
		closest[1] = h
		return closest, true
	}
	// Outside poly.
	return closestPointOnDetailEdges(true, tile, ip, pos), false
}
