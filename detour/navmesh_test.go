package detour

import (
	"testing"

	"github.com/gorustyt/irrnav/common"
	"github.com/gorustyt/irrnav/config"
	"github.com/gorustyt/irrnav/geom"
	"github.com/gorustyt/irrnav/recast"
)

func assertTrue(t *testing.T, value bool, msg string) {
	t.Helper()
	if !value {
		t.Error(msg)
	}
}

var extents = []float32{2, 8, 2}

func flatten(t *testing.T, buffers ...*geom.TriBuffer) *geom.InputGeom {
	t.Helper()
	g, err := geom.Flatten(geom.NewTriMesh(buffers...))
	if err != nil {
		t.Fatalf("flatten: %v", err)
	}
	return g
}

func soloMesh(t *testing.T, buffers ...*geom.TriBuffer) *DtNavMesh {
	t.Helper()
	g := flatten(t, buffers...)
	cfg := recast.NewRcConfig(config.DefaultBuildConfig(), g.Bmin, g.Bmax)
	res, err := recast.BuildSolo(recast.NewRcContext(nil), cfg, g)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	nav, _, status := NewDtNavMesh(res.Data)
	if status.DtStatusFailed() {
		t.Fatalf("init navmesh: %s", status)
	}
	return nav
}

type tiledFixture struct {
	nav   *DtNavMesh
	grid  recast.TileGrid
	tiles map[[2]int]*recast.NavMeshData
}

// tiledPlane builds a 4x4 tile mesh over a 19.2 unit plane.
func tiledPlane(t *testing.T) *tiledFixture {
	t.Helper()
	g := flatten(t, geom.Plane(-9.6, -9.6, 9.6, 9.6, 0))
	chunky := geom.NewChunkyTriMesh(g, 256)
	cfg := recast.NewRcConfig(config.DefaultBuildConfig(), g.Bmin, g.Bmax)
	grid := recast.NewTileGrid(g.Bmin, g.Bmax, cfg.Cs, 16)

	nav, status := NewDtNavMeshWithParams(&NavMeshParams{
		Orig:       g.Bmin,
		TileWidth:  grid.TileWorldSize(),
		TileHeight: grid.TileWorldSize(),
		MaxTiles:   grid.Width * grid.Height,
		MaxPolys:   1 << 12,
	})
	if status.DtStatusFailed() {
		t.Fatalf("init navmesh: %s", status)
	}
	f := &tiledFixture{nav: nav, grid: grid, tiles: map[[2]int]*recast.NavMeshData{}}
	ctx := recast.NewRcContext(nil)
	for ty := 0; ty < grid.Height; ty++ {
		for tx := 0; tx < grid.Width; tx++ {
			res, err := recast.BuildTile(ctx, cfg, g, chunky, grid, tx, ty)
			if err != nil {
				t.Fatalf("tile (%d,%d): %v", tx, ty, err)
			}
			if res == nil {
				continue
			}
			if _, status := nav.AddTile(res.Data); status.DtStatusFailed() {
				t.Fatalf("add tile (%d,%d): %s", tx, ty, status)
			}
			f.tiles[[2]int{tx, ty}] = res.Data
		}
	}
	return f
}

func TestPolyRefEncoding(t *testing.T) {
	ref := EncodePolyId(3, 1234, 567)
	salt, it, ip := DecodePolyId(ref)
	assertTrue(t, salt == 3 && it == 1234 && ip == 567, "round trip")
	assertTrue(t, DecodePolyIdSalt(ref) == 3, "salt")
	assertTrue(t, DecodePolyIdTile(ref) == 1234, "tile")
	assertTrue(t, DecodePolyIdPoly(ref) == 567, "poly")

	ref = EncodePolyId(saltMask, tileMask, polyMask)
	salt, it, ip = DecodePolyId(ref)
	assertTrue(t, salt == saltMask && it == tileMask && ip == polyMask, "masks do not overlap")
}

func TestNavMeshParamsValidation(t *testing.T) {
	_, status := NewDtNavMeshWithParams(&NavMeshParams{TileWidth: 1, TileHeight: 1, MaxTiles: 0, MaxPolys: 1})
	assertTrue(t, status.DtStatusDetail(DT_INVALID_PARAM), "zero tiles rejected")
	_, status = NewDtNavMeshWithParams(&NavMeshParams{TileWidth: 1, TileHeight: 1, MaxTiles: 1, MaxPolys: 1 << 21})
	assertTrue(t, status.DtStatusDetail(DT_INVALID_PARAM), "too many polys rejected")

	data := &recast.NavMeshData{Header: recast.NavMeshHeader{Magic: 1, Version: recast.DT_NAVMESH_VERSION}}
	_, _, status = NewDtNavMesh(data)
	assertTrue(t, status.DtStatusDetail(DT_WRONG_MAGIC), "wrong magic")
	data.Header.Magic = recast.DT_NAVMESH_MAGIC
	data.Header.Version = 1
	_, _, status = NewDtNavMesh(data)
	assertTrue(t, status.DtStatusDetail(DT_WRONG_VERSION), "wrong version")
}

func TestSoloMeshInternalLinks(t *testing.T) {
	nav := soloMesh(t, geom.Plane(-10, -10, 10, 10, 0))
	assertTrue(t, nav.TileCount() == 1, "one tile")
	tile := nav.GetTileAt(0, 0, 0)
	if tile == nil {
		t.Fatal("tile at origin")
	}
	base := nav.GetPolyRefBase(tile)
	for i := range tile.Polys {
		p := &tile.Polys[i]
		for l := p.FirstLink; l != DT_NULL_LINK; l = tile.Links[l].Next {
			link := tile.Links[l]
			assertTrue(t, link.Side == 0xff, "solo links are internal")
			assertTrue(t, nav.IsValidPolyRef(link.Ref), "link target valid")
			// The neighbour links back.
			_, np := nav.GetTileAndPolyByRefUnsafe(link.Ref)
			back := false
			for k := np.FirstLink; k != DT_NULL_LINK; k = tile.Links[k].Next {
				back = back || tile.Links[k].Ref == base|DtPolyRef(i)
			}
			assertTrue(t, back, "links are symmetric")
		}
	}
	assertTrue(t, !nav.IsValidPolyRef(0), "zero ref invalid")
	assertTrue(t, !nav.IsValidPolyRef(base|DtPolyRef(len(tile.Polys))), "poly index out of range")
}

func TestFindNearestPoly(t *testing.T) {
	nav := soloMesh(t, geom.Plane(-10, -10, 10, 10, 0))
	q := NewDtNavMeshQuery(nav, 2048)
	filter := NewDtQueryFilter()

	ref, pt, status := q.FindNearestPoly([]float32{1, 0, 2}, extents, filter)
	assertTrue(t, status.DtStatusSucceed() && ref != 0, "point over the plane")
	assertTrue(t, common.Abs(pt[0]-1) < 1e-4 && common.Abs(pt[2]-2) < 1e-4, "nearest keeps xz over the mesh")
	assertTrue(t, pt[1] >= -0.1 && pt[1] <= 0.5, "nearest lies on the surface")

	h, status := q.GetPolyHeight(ref, []float32{1, 5, 2})
	assertTrue(t, status.DtStatusSucceed() && common.Abs(h-pt[1]) < 1e-4, "poly height matches")

	ref, _, status = q.FindNearestPoly([]float32{100, 0, 100}, extents, filter)
	assertTrue(t, status.DtStatusSucceed() && ref == 0, "nothing found far away")

	// Just outside the eroded border the nearest point is clamped onto it.
	ref, pt, _ = q.FindNearestPoly([]float32{9.9, 0, 0}, extents, filter)
	assertTrue(t, ref != 0 && pt[0] < 9.9 && pt[0] > 8.5, "clamped to the border")

	_, _, status = q.FindNearestPoly([]float32{0, 0, 0}, []float32{-1, 1, 1}, filter)
	assertTrue(t, status.DtStatusFailed(), "negative extents rejected")
}

func TestClosestPointOnPolyBoundary(t *testing.T) {
	nav := soloMesh(t, geom.Plane(-10, -10, 10, 10, 0))
	q := NewDtNavMeshQuery(nav, 2048)
	ref, _, _ := q.FindNearestPoly([]float32{0, 0, 0}, extents, NewDtQueryFilter())
	if ref == 0 {
		t.Fatal("no poly at origin")
	}
	tile, poly := nav.GetTileAndPolyByRefUnsafe(ref)
	c := dtCalcPolyCenter(tile, poly)
	p, status := q.ClosestPointOnPolyBoundary(ref, c[:])
	assertTrue(t, status.DtStatusSucceed() && p == c, "center is inside")

	p, _ = q.ClosestPointOnPolyBoundary(ref, []float32{50, 0, 0})
	assertTrue(t, p[0] < 10, "outside point clamped to an edge")
}

func TestFindPathStraightPlane(t *testing.T) {
	nav := soloMesh(t, geom.Plane(-10, -10, 10, 10, 0))
	q := NewDtNavMeshQuery(nav, 2048)
	filter := NewDtQueryFilter()

	start := []float32{-7, 0, -3}
	end := []float32{6, 0, 5}
	startRef, _, _ := q.FindNearestPoly(start, extents, filter)
	endRef, _, _ := q.FindNearestPoly(end, extents, filter)

	path, status := q.FindPath(startRef, endRef, start, end, filter, 256)
	assertTrue(t, status.DtStatusSucceed(), "path found")
	assertTrue(t, !status.DtStatusDetail(DT_PARTIAL_RESULT), "path complete")
	assertTrue(t, path[0] == startRef && path[len(path)-1] == endRef, "path endpoints")

	pts, status := q.FindStraightPath(start, end, path, 32, 0)
	assertTrue(t, status.DtStatusSucceed() && len(pts) >= 2, "straight path")
	assertTrue(t, pts[0].Flags == DT_STRAIGHTPATH_START, "start flag")
	assertTrue(t, pts[len(pts)-1].Flags == DT_STRAIGHTPATH_END && pts[len(pts)-1].Ref == 0, "end flag")

	// Open ground: the corners lie on the straight line.
	var length float32
	for i := 1; i < len(pts); i++ {
		length += common.Vdist2D(pts[i-1].Pos[:], pts[i].Pos[:])
	}
	assertTrue(t, common.Abs(length-common.Vdist2D(start, end)) < 0.05, "no detour on open ground")

	pts, status = q.FindStraightPath(start, end, path, 1, 0)
	assertTrue(t, len(pts) == 1 && status.DtStatusDetail(DT_BUFFER_TOO_SMALL), "truncated straight path")

	same, status := q.FindPath(startRef, startRef, start, start, filter, 8)
	assertTrue(t, status.DtStatusSucceed() && len(same) == 1, "same polygon")

	_, status = q.FindPath(0, endRef, start, end, filter, 8)
	assertTrue(t, status.DtStatusDetail(DT_INVALID_PARAM), "invalid start ref")
}

func TestFindPathPartial(t *testing.T) {
	nav := soloMesh(t, geom.Plane(-10, -10, -2, 10, 0), geom.Plane(2, -10, 10, 10, 0))
	q := NewDtNavMeshQuery(nav, 2048)
	filter := NewDtQueryFilter()
	start := []float32{-6, 0, 0}
	end := []float32{6, 0, 0}
	startRef, _, _ := q.FindNearestPoly(start, extents, filter)
	endRef, _, _ := q.FindNearestPoly(end, extents, filter)
	assertTrue(t, startRef != 0 && endRef != 0, "both islands have polys")

	path, status := q.FindPath(startRef, endRef, start, end, filter, 256)
	assertTrue(t, status.DtStatusSucceed() && status.DtStatusDetail(DT_PARTIAL_RESULT), "partial result")
	assertTrue(t, path[len(path)-1] != endRef, "end not reached")

	// The best guess is the polygon of the left island closest to the goal.
	tile, poly := nav.GetTileAndPolyByRefUnsafe(path[len(path)-1])
	c := dtCalcPolyCenter(tile, poly)
	assertTrue(t, c[0] < -2, "stays on the left island")
}

func TestFindPathOutOfNodes(t *testing.T) {
	nav := soloMesh(t, geom.Plane(-10, -10, 10, 10, 0))
	filter := NewDtQueryFilter()
	q := NewDtNavMeshQuery(nav, 1)
	start := []float32{-8, 0, -8}
	end := []float32{8, 0, 8}
	startRef, _, _ := q.FindNearestPoly(start, extents, filter)
	endRef, _, _ := q.FindNearestPoly(end, extents, filter)
	if startRef == endRef {
		t.Skip("plane collapsed into one polygon")
	}
	path, status := q.FindPath(startRef, endRef, start, end, filter, 256)
	assertTrue(t, status.DtStatusDetail(DT_OUT_OF_NODES), "node budget exhausted")
	assertTrue(t, len(path) == 1 && path[0] == startRef, "only the start is known")
}

func TestFilterExcludesDisabled(t *testing.T) {
	nav := soloMesh(t, geom.Plane(-10, -10, 10, 10, 0))
	q := NewDtNavMeshQuery(nav, 2048)
	filter := NewDtQueryFilter()
	ref, _, _ := q.FindNearestPoly([]float32{0, 0, 0}, extents, filter)
	assertTrue(t, nav.SetPolyFlags(ref, uint16(geom.FlagDisabled)).DtStatusSucceed(), "set flags")
	flags, _ := nav.GetPolyFlags(ref)
	assertTrue(t, flags == uint16(geom.FlagDisabled), "flags stored")

	polys, _ := q.QueryPolygons([]float32{0, 0, 0}, []float32{0.01, 8, 0.01}, filter, 16)
	for _, p := range polys {
		assertTrue(t, p != ref, "disabled poly filtered")
	}

	assertTrue(t, nav.SetPolyArea(ref, DT_MAX_AREAS).DtStatusFailed(), "area out of range")
	assertTrue(t, nav.SetPolyArea(ref, uint8(geom.AreaWater)).DtStatusSucceed(), "set area")
	area, _ := nav.GetPolyArea(ref)
	assertTrue(t, area == uint8(geom.AreaWater), "area stored")
}

func TestMoveAlongSurface(t *testing.T) {
	nav := soloMesh(t, geom.Plane(-10, -10, 10, 10, 0))
	q := NewDtNavMeshQuery(nav, 2048)
	filter := NewDtQueryFilter()
	start := []float32{0, 0, 0}
	startRef, _, _ := q.FindNearestPoly(start, extents, filter)

	pos, visited, status := q.MoveAlongSurface(startRef, start, []float32{3, 0, 1}, filter, 16)
	assertTrue(t, status.DtStatusSucceed(), "move")
	assertTrue(t, pos[0] == 3 && pos[2] == 1, "target reached")
	assertTrue(t, len(visited) > 0 && visited[0] == startRef, "visited starts at the start poly")

	pos, _, _ = q.MoveAlongSurface(startRef, start, []float32{50, 0, 0}, filter, 16)
	assertTrue(t, pos[0] > 8.5 && pos[0] < 10, "slides to the wall")
	assertTrue(t, common.Abs(pos[2]) < 0.01, "moves straight into the wall")
}

func TestTiledMeshLinksAcrossTiles(t *testing.T) {
	f := tiledPlane(t)
	nav := f.nav
	assertTrue(t, nav.TileCount() == len(f.tiles), "every built tile added")

	ext := 0
	for _, tile := range nav.Tiles() {
		for _, l := range tile.Links {
			if l.Side != 0xff && l.Ref != 0 {
				ext++
				assertTrue(t, DecodePolyIdTile(l.Ref) != nav.getTileIndex(tile), "external link leaves the tile")
				assertTrue(t, l.Bmin <= l.Bmax, "portal limits ordered")
			}
		}
	}
	assertTrue(t, ext > 0, "tiles are linked")

	q := NewDtNavMeshQuery(nav, 2048)
	filter := NewDtQueryFilter()
	start := []float32{-8, 0, -8}
	end := []float32{8, 0, 8}
	startRef, _, _ := q.FindNearestPoly(start, extents, filter)
	endRef, _, _ := q.FindNearestPoly(end, extents, filter)
	assertTrue(t, DecodePolyIdTile(startRef) != DecodePolyIdTile(endRef), "ends in different tiles")

	path, status := q.FindPath(startRef, endRef, start, end, filter, 256)
	assertTrue(t, status.DtStatusSucceed() && !status.DtStatusDetail(DT_PARTIAL_RESULT), "path crosses tiles")
	pts, _ := q.FindStraightPath(start, end, path, 32, DT_STRAIGHTPATH_ALL_CROSSINGS)
	assertTrue(t, len(pts) > 2, "crossings add vertices")
	last := pts[len(pts)-1].Pos
	assertTrue(t, common.Vdist2D(last[:], end) < 0.01, "reaches the end")
}

func TestFindPathFollowsLinks(t *testing.T) {
	f := tiledPlane(t)
	q := NewDtNavMeshQuery(f.nav, 2048)
	filter := NewDtQueryFilter()
	start := []float32{-8, 0, 8}
	end := []float32{8, 0, -8}
	startRef, _, _ := q.FindNearestPoly(start, extents, filter)
	endRef, _, _ := q.FindNearestPoly(end, extents, filter)

	path, status := q.FindPath(startRef, endRef, start, end, filter, 256)
	assertTrue(t, status.DtStatusSucceed() && path[len(path)-1] == endRef, "path reaches the end polygon")
	for i := 1; i < len(path); i++ {
		tile, poly := f.nav.GetTileAndPolyByRefUnsafe(path[i-1])
		linked := false
		for l := poly.FirstLink; l != DT_NULL_LINK; l = tile.Links[l].Next {
			if tile.Links[l].Ref == path[i] {
				linked = true
				break
			}
		}
		assertTrue(t, linked, "consecutive path polygons share a link")
	}
}

func TestTiledMeshRemoveAndReAdd(t *testing.T) {
	f := tiledPlane(t)
	nav := f.nav
	tile := nav.GetTileAt(1, 1, 0)
	if tile == nil {
		t.Fatal("inner tile missing")
	}
	ref := nav.GetTileRef(tile)
	polyRef := nav.GetPolyRefBase(tile)
	idx := DecodePolyIdTile(polyRef)

	_, status := nav.AddTile(f.tiles[[2]int{1, 1}])
	assertTrue(t, status.DtStatusDetail(DT_ALREADY_OCCUPIED), "occupied location")

	data, status := nav.RemoveTile(ref)
	assertTrue(t, status.DtStatusSucceed() && data == f.tiles[[2]int{1, 1}], "removed")
	assertTrue(t, nav.GetTileAt(1, 1, 0) == nil, "location freed")
	assertTrue(t, !nav.IsValidPolyRef(polyRef), "old refs invalid")
	for _, other := range nav.Tiles() {
		for p := range other.Polys {
			for l := other.Polys[p].FirstLink; l != DT_NULL_LINK; l = other.Links[l].Next {
				assertTrue(t, DecodePolyIdTile(other.Links[l].Ref) != idx, "no link into removed tile")
			}
		}
	}
	_, status = nav.RemoveTile(ref)
	assertTrue(t, status.DtStatusFailed(), "double remove fails")

	newRef, status := nav.AddTile(data)
	assertTrue(t, status.DtStatusSucceed(), "re-added")
	assertTrue(t, newRef != ref, "salt changed")
	assertTrue(t, DecodePolyIdTile(DtPolyRef(newRef)) == idx, "slot reused")
	assertTrue(t, !nav.IsValidPolyRef(polyRef) && nav.IsValidPolyRef(DtPolyRef(newRef)), "new refs valid")
}

func TestCloneIsIndependent(t *testing.T) {
	f := tiledPlane(t)
	c := f.nav.Clone()
	assertTrue(t, c.TileCount() == f.nav.TileCount(), "same tiles")

	tile := c.GetTileAt(0, 0, 0)
	ref := c.GetPolyRefBase(tile)
	assertTrue(t, f.nav.IsValidPolyRef(ref) && c.IsValidPolyRef(ref), "refs shared")
	c.SetPolyFlags(ref, uint16(geom.FlagDisabled))
	flags, _ := f.nav.GetPolyFlags(ref)
	assertTrue(t, flags == uint16(geom.FlagWalk), "original untouched")

	_, status := c.RemoveTile(c.GetTileRefAt(0, 0, 0))
	assertTrue(t, status.DtStatusSucceed(), "remove from clone")
	assertTrue(t, f.nav.GetTileAt(0, 0, 0) != nil && f.nav.IsValidPolyRef(ref), "original keeps its tile")
}

func TestAddTileBlob(t *testing.T) {
	f := tiledPlane(t)
	data := f.tiles[[2]int{2, 2}]
	blob, err := recast.EncodeTile(data, config.EncodingProtobuf, config.CompressionZstd)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	_, status := f.nav.RemoveTile(f.nav.GetTileRefAt(2, 2, 0))
	assertTrue(t, status.DtStatusSucceed(), "removed")
	ref, err := f.nav.AddTileBlob(blob)
	assertTrue(t, err == nil && ref != 0, "blob added")
	_, err = f.nav.AddTileBlob(blob)
	assertTrue(t, err != nil, "occupied location reported as error")
}
