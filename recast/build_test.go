package recast

import (
	"errors"
	"reflect"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/gorustyt/irrnav/common"
	"github.com/gorustyt/irrnav/config"
	"github.com/gorustyt/irrnav/geom"
)

func assertTrue(t *testing.T, value bool, msg string) {
	t.Helper()
	if !value {
		t.Error(msg)
	}
}

func flatten(t *testing.T, buffers ...*geom.TriBuffer) *geom.InputGeom {
	t.Helper()
	g, err := geom.Flatten(geom.NewTriMesh(buffers...))
	if err != nil {
		t.Fatalf("flatten: %v", err)
	}
	return g
}

func soloConfig(g *geom.InputGeom) RcConfig {
	return NewRcConfig(config.DefaultBuildConfig(), g.Bmin, g.Bmax)
}

func buildPlane(t *testing.T, keep bool) *BuildResult {
	t.Helper()
	g := flatten(t, geom.Plane(-10, -10, 10, 10, 0))
	cfg := soloConfig(g)
	cfg.KeepInterResults = keep
	res, err := BuildSolo(NewRcContext(nil), cfg, g)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	return res
}

func TestBuildSoloPlane(t *testing.T) {
	ctx := NewRcContext(nil)
	g := flatten(t, geom.Plane(-10, -10, 10, 10, 0))
	res, err := BuildSolo(ctx, soloConfig(g), g)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	assertTrue(t, ctx.Stage() == StageDone, "context ends in done")
	assertTrue(t, res.PolyMesh.NPolys > 0, "plane yields polygons")
	assertTrue(t, res.Detail.NTris() >= res.PolyMesh.NPolys, "every polygon has detail triangles")
	assertTrue(t, res.Heightfield == nil && res.Compact == nil && res.Contours == nil, "intermediates dropped by default")
	if err := res.Data.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}

	d := res.Data
	for i := 0; i < len(d.Verts); i += 3 {
		x, y, z := d.Verts[i], d.Verts[i+1], d.Verts[i+2]
		// Eroded by the agent radius, so strictly inside the plane.
		assertTrue(t, x > -10 && x < 10 && z > -10 && z < 10, "vertex inside plane")
		assertTrue(t, y >= 0 && y <= 0.5, "vertex on the plane")
	}
	for i := range d.Polys {
		assertTrue(t, d.Polys[i].Area == uint8(geom.AreaGround), "ground area")
		assertTrue(t, d.Polys[i].Flags == uint16(geom.FlagWalk), "walk flag")
		for j := 0; j < int(d.Polys[i].VertCount); j++ {
			assertTrue(t, d.Polys[i].Neis[j]&DT_EXT_LINK == 0, "solo build has no portals")
		}
	}
}

func TestBuildSoloKeepsIntermediates(t *testing.T) {
	res := buildPlane(t, true)
	assertTrue(t, res.Heightfield != nil && res.Heightfield.Spans != nil, "heightfield kept")
	assertTrue(t, res.Compact != nil && res.Compact.Spans != nil, "compact heightfield kept")
	assertTrue(t, res.Contours != nil && len(res.Contours.Conts) > 0, "contours kept")
	for _, c := range res.Contours.Conts {
		assertTrue(t, c.NVerts() >= 3, "contour has at least three vertices")
		assertTrue(t, c.Reg != 0, "contour belongs to a region")
	}

	ids := sortedRegionIDs(RegionSpanCounts(res.Compact))
	assertTrue(t, len(ids) > 0, "plane has regions")
	for i := 1; i < len(ids); i++ {
		assertTrue(t, ids[i-1] < ids[i], "region ids sorted")
	}
	chf := res.Compact
	for i := 0; i < chf.SpanCount; i++ {
		if chf.Areas[i] != RC_NULL_AREA {
			assertTrue(t, chf.Spans[i].Reg != 0, "walkable span assigned to a region")
		}
	}
}

func TestBuildPolyMeshAdjacencyIsSymmetric(t *testing.T) {
	res := buildPlane(t, false)
	m := res.PolyMesh
	nvp := m.Nvp
	for i := 0; i < m.NPolys; i++ {
		p := m.Poly(i)
		for j := 0; j < nvp; j++ {
			if p[j] == RC_MESH_NULL_IDX {
				break
			}
			n := p[nvp+j]
			if n == RC_MESH_NULL_IDX || n&RC_PORTAL_FLAG != 0 {
				continue
			}
			found := false
			q := m.Poly(int(n))
			for k := 0; k < nvp; k++ {
				if q[nvp+k] == uint16(i) {
					found = true
				}
			}
			assertTrue(t, found, "neighbour links back")
		}
	}
}

func TestBuildSoloMonotone(t *testing.T) {
	g := flatten(t, geom.Plane(0, 0, 8, 8, 0), geom.Plane(12, 0, 20, 8, 0))
	cfg := soloConfig(g)
	cfg.MonotonePartitioning = true
	cfg.KeepInterResults = true
	res, err := BuildSolo(NewRcContext(nil), cfg, g)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	assertTrue(t, len(RegionSpanCounts(res.Compact)) >= 2, "separated squares are separate regions")

	var left, right bool
	for i := 0; i < len(res.Data.Verts); i += 3 {
		x := res.Data.Verts[i]
		left = left || x < 10
		right = right || x > 10
	}
	assertTrue(t, left && right, "both squares are polygonized")
}

func TestBuildSoloAreaVolume(t *testing.T) {
	g := flatten(t, geom.Plane(-10, -10, 10, 10, 0))
	cfg := soloConfig(g)
	cfg.AreaVolumes = []AreaVolume{{Bmin: [3]float32{-10, -1, -10}, Bmax: [3]float32{0, 1, 10}, Area: geom.AreaWater}}
	res, err := BuildSolo(NewRcContext(nil), cfg, g)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	var water, ground bool
	for _, p := range res.Data.Polys {
		switch geom.Area(p.Area) {
		case geom.AreaWater:
			water = true
			assertTrue(t, p.Flags == uint16(geom.FlagSwim), "water polygons need swimming")
		case geom.AreaGround:
			ground = true
		}
	}
	assertTrue(t, water && ground, "volume splits the surface by area")
}

func TestBuildSoloDegenerate(t *testing.T) {
	// Far steeper than the walkable slope.
	g := flatten(t, geom.Ramp(0, 0, 10, 10, 0, 50))
	ctx := NewRcContext(nil)
	_, err := BuildSolo(ctx, soloConfig(g), g)
	assertTrue(t, errors.Is(err, common.ErrDegenerateGeometry), "steep ramp is degenerate")
	var be *BuildError
	assertTrue(t, errors.As(err, &be), "error is a build error")
	if be != nil {
		assertTrue(t, be.Kind == BuildStatic && !be.Tiled, "static build kind")
		assertTrue(t, be.Stage == StageRegionizing, "fails while regionizing")
	}
	assertTrue(t, ctx.Stage() == StageFailed, "context ends failed")
}

func TestBuildSoloNoGeometry(t *testing.T) {
	_, err := BuildSolo(NewRcContext(nil), RcConfig{}, &geom.InputGeom{})
	assertTrue(t, errors.Is(err, common.ErrInput), "empty geometry is an input error")
}

func TestBuildPolyMeshRejectsVertsPerPoly(t *testing.T) {
	res := buildPlane(t, true)
	_, err := RcBuildPolyMesh(NewRcContext(nil), res.Contours, 7)
	assertTrue(t, errors.Is(err, common.ErrInput), "seven verts per poly is rejected")
}

func TestTileGrid(t *testing.T) {
	tg := NewTileGrid([3]float32{-10, 0, -10}, [3]float32{10, 1, 10}, 0.5, 16)
	assertTrue(t, tg.Width == 3 && tg.Height == 3, "40 cells make three tiles of 16")
	bmin, bmax := tg.TileBounds(1, 2)
	assertTrue(t, bmin == [3]float32{-2, 0, 6} && bmax == [3]float32{6, 1, 14}, "tile bounds")
	tx, ty := tg.TileAt([]float32{-1, 0, 7})
	assertTrue(t, tx == 1 && ty == 2, "tile at position")
	tx, _ = tg.TileAt([]float32{-11, 0, 0})
	assertTrue(t, tx == -1, "positions left of the grid map to negative tiles")
}

func TestBuildTilePlane(t *testing.T) {
	// 64 cells of 0.3, four tiles of 16 on each side.
	g := flatten(t, geom.Plane(-9.6, -9.6, 9.6, 9.6, 0))
	chunky := geom.NewChunkyTriMesh(g, 256)
	cfg := soloConfig(g)
	grid := NewTileGrid(g.Bmin, g.Bmax, cfg.Cs, 16)
	ctx := NewRcContext(nil)

	tiles, portals := 0, 0
	for ty := 0; ty < grid.Height; ty++ {
		for tx := 0; tx < grid.Width; tx++ {
			res, err := BuildTile(ctx, cfg, g, chunky, grid, tx, ty)
			if err != nil {
				t.Fatalf("tile (%d,%d): %v", tx, ty, err)
			}
			if res == nil {
				continue
			}
			tiles++
			h := res.Data.Header
			assertTrue(t, int(h.X) == tx && int(h.Y) == ty, "tile coordinates in header")
			if err := res.Data.Validate(); err != nil {
				t.Fatalf("tile (%d,%d): %v", tx, ty, err)
			}
			for _, p := range res.Data.Polys {
				for j := 0; j < int(p.VertCount); j++ {
					if p.Neis[j]&DT_EXT_LINK != 0 {
						portals++
						side := p.Neis[j] &^ DT_EXT_LINK
						assertTrue(t, side == 0 || side == 2 || side == 4 || side == 6, "portal side")
					}
				}
			}
		}
	}
	assertTrue(t, grid.Width == 4 && grid.Height == 4, "grid size")
	assertTrue(t, tiles > grid.Width, "tiles over the plane are built")
	assertTrue(t, portals > 0, "tile sides become portals")

	res, err := BuildTile(ctx, cfg, g, chunky, grid, grid.Width+3, 0)
	assertTrue(t, res == nil && err == nil, "tile off the geometry is empty, not a failure")
}

func TestBuildTileWatershedCoversWalkableSpans(t *testing.T) {
	g := flatten(t,
		geom.Plane(-10, -10, 10, 10, 0),
		geom.Box(mgl32.Vec3{-3, 0, -3}, mgl32.Vec3{3, 1.5, 3}),
	)
	chunky := geom.NewChunkyTriMesh(g, 256)
	cfg := soloConfig(g)
	cfg.KeepInterResults = true
	ctx := NewRcContext(nil)

	for _, size := range []int{8, 16, 32} {
		grid := NewTileGrid(g.Bmin, g.Bmax, cfg.Cs, size)
		for ty := 0; ty < grid.Height; ty++ {
			for tx := 0; tx < grid.Width; tx++ {
				res, err := BuildTile(ctx, cfg, g, chunky, grid, tx, ty)
				if err != nil {
					t.Fatalf("tile %d (%d,%d): %v", size, tx, ty, err)
				}
				if res == nil {
					continue
				}
				chf := res.Compact
				missing := 0
				for i := range chf.Spans {
					if chf.Areas[i] != RC_NULL_AREA && chf.Spans[i].Reg == 0 {
						missing++
					}
				}
				if missing > 0 {
					t.Errorf("tile %d (%d,%d): %d walkable spans without a region", size, tx, ty, missing)
				}
			}
		}
	}
}

func TestEncodeDecodeTile(t *testing.T) {
	d := buildPlane(t, false).Data
	for _, enc := range []config.TileEncoding{config.EncodingBinary, config.EncodingProtobuf} {
		for _, comp := range []config.Compression{config.CompressionNone, config.CompressionZstd} {
			blob, err := EncodeTile(d, enc, comp)
			if err != nil {
				t.Fatalf("%s/%s encode: %v", enc, comp, err)
			}
			got, err := DecodeTile(blob)
			if err != nil {
				t.Fatalf("%s/%s decode: %v", enc, comp, err)
			}
			assertTrue(t, reflect.DeepEqual(got, d), string(enc)+"/"+string(comp)+" round trip")
		}
	}
}

func TestDecodeTileRejectsBadBlobs(t *testing.T) {
	d := buildPlane(t, false).Data
	for _, enc := range []config.TileEncoding{config.EncodingBinary, config.EncodingProtobuf} {
		blob, err := EncodeTile(d, enc, config.CompressionNone)
		if err != nil {
			t.Fatalf("encode: %v", err)
		}
		_, err = DecodeTile(blob[:len(blob)/2])
		assertTrue(t, err != nil, string(enc)+" truncated blob fails")

		bad := append([]byte(nil), blob...)
		bad[0] = 'X'
		_, err = DecodeTile(bad)
		assertTrue(t, errors.Is(err, common.ErrInput), string(enc)+" bad magic is an input error")
	}
	_, err := DecodeTile(nil)
	assertTrue(t, errors.Is(err, common.ErrInput), "empty blob is an input error")
	_, err = EncodeTile(d, "xml", config.CompressionNone)
	assertTrue(t, errors.Is(err, common.ErrInput), "unknown encoding")
}

func TestCreateNavMeshDataWithoutDetail(t *testing.T) {
	res := buildPlane(t, false)
	d, err := RcCreateNavMeshData(&NavMeshCreateParams{Mesh: res.PolyMesh})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	assertTrue(t, len(d.DetailMeshes) == len(d.Polys), "one dummy detail mesh per poly")
	assertTrue(t, d.Validate() == nil, "dummy detail mesh is valid")
}

func TestContextReleasesArtifacts(t *testing.T) {
	ctx := NewRcContext(nil)
	hf, err := RcCreateHeightfield(4, 4, [3]float32{}, [3]float32{1, 1, 1}, 0.25, 0.25)
	if err != nil {
		t.Fatal(err)
	}
	kept, _ := RcCreateHeightfield(4, 4, [3]float32{}, [3]float32{1, 1, 1}, 0.25, 0.25)
	ctx.Acquire(hf)
	ctx.Acquire(kept)
	ctx.Retain(kept)
	ctx.Release()
	assertTrue(t, hf.Spans == nil, "acquired artifact released")
	assertTrue(t, kept.Spans != nil, "retained artifact kept")
}
