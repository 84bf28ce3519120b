package debug_utils

import (
	"bytes"
	"strings"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/gorustyt/irrnav/config"
	"github.com/gorustyt/irrnav/detour"
	"github.com/gorustyt/irrnav/geom"
	"github.com/gorustyt/irrnav/recast"
)

func assertTrue(t *testing.T, value bool, msg string) {
	t.Helper()
	if !value {
		t.Error(msg)
	}
}

func buildPlane(t *testing.T) *recast.BuildResult {
	t.Helper()
	g, err := geom.Flatten(geom.NewTriMesh(geom.Plane(-10, -10, 10, 10, 0)))
	if err != nil {
		t.Fatalf("flatten: %v", err)
	}
	cfg := recast.NewRcConfig(config.DefaultBuildConfig(), g.Bmin, g.Bmax)
	res, err := recast.BuildSolo(recast.NewRcContext(nil), cfg, g)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	return res
}

func TestMeshCollectorWelds(t *testing.T) {
	c := NewMeshCollector()
	col := DuRGBA(255, 0, 0, 255)

	c.Begin(DU_DRAW_TRIS)
	c.Vertex1(0, 0, 0, col)
	c.Vertex1(1, 0, 0, col)
	c.Vertex1(1, 0, 1, col)
	c.Vertex1(0, 0, 0, col)
	c.Vertex1(1, 0, 1, col)
	c.Vertex1(0, 0, 1, col)
	c.End()
	m := c.Mesh()
	assertTrue(t, len(m.Vertices) == 4, "shared corners welded")
	assertTrue(t, m.TriCount() == 2, "two triangles")

	c.Begin(DU_DRAW_QUADS)
	c.Vertex1(0, 1, 0, col)
	c.Vertex1(1, 1, 0, col)
	c.Vertex1(1, 1, 1, col)
	c.Vertex1(0, 1, 1, col)
	c.End()
	assertTrue(t, m.TriCount() == 4, "quad split in two")

	c.Begin(DU_DRAW_LINES)
	c.Vertex1(0, 0, 0, col)
	c.Vertex1(5, 0, 0, col)
	c.Vertex1(7, 0, 0, col) // dangling
	c.End()
	assertTrue(t, len(m.Lines) == 2, "one line")

	c.Begin(DU_DRAW_POINTS)
	c.Vertex1(9, 9, 9, col)
	c.End()
	bmin, bmax := m.Bounds()
	assertTrue(t, bmin == mgl32.Vec3{0, 0, 0} && bmax == mgl32.Vec3{7, 1, 1}, "points are not collected")

	c.Begin(DU_DRAW_TRIS)
	c.Vertex1(0, 0, 0, col)
	c.Vertex1(0, 0, 0, col)
	c.Vertex1(1, 0, 0, col)
	c.End()
	assertTrue(t, m.TriCount() == 4, "degenerate triangle dropped")

	c.Reset()
	assertTrue(t, c.Mesh().TriCount() == 0 && len(c.Mesh().Vertices) == 0, "reset")
}

func TestDisplayListReplay(t *testing.T) {
	dl := NewDuDisplayList(0)
	DuDebugDrawBoxWire(dl, 0, 0, 0, 1, 1, 1, DuRGBA(0, 0, 0, 255), 1)
	assertTrue(t, dl.Size() == 24, "box wire has 12 segments")

	c := NewMeshCollector()
	dl.Draw(c)
	assertTrue(t, len(c.Mesh().Lines) == 24, "replayed into collector")
	assertTrue(t, len(c.Mesh().Vertices) == 8, "eight corners")
}

func TestDrawPolyMeshDetail(t *testing.T) {
	res := buildPlane(t)
	c := NewMeshCollector()
	DuDebugDrawPolyMeshDetail(c, res.Detail)
	m := c.Mesh()
	assertTrue(t, m.TriCount() > 0 && m.TriCount() <= res.Detail.NTris(), "detail triangles collected")
	assertTrue(t, len(m.Lines) > 0, "edges collected")

	bmin, bmax := m.Bounds()
	assertTrue(t, bmin[0] >= -10 && bmax[0] <= 10 && bmin[2] >= -10 && bmax[2] <= 10, "inside the plane")
	assertTrue(t, bmax[0]-bmin[0] > 15, "covers most of the plane")
}

func TestDrawPolyMesh(t *testing.T) {
	res := buildPlane(t)
	c := NewMeshCollector()
	DuDebugDrawPolyMesh(c, res.PolyMesh)
	assertTrue(t, c.Mesh().TriCount() > 0, "polygons drawn")
	assertTrue(t, len(c.Mesh().Lines) > 0, "boundaries drawn")
}

func TestDrawNavMesh(t *testing.T) {
	res := buildPlane(t)
	nav, _, status := detour.NewDtNavMesh(res.Data)
	if status.DtStatusFailed() {
		t.Fatalf("navmesh: %s", status)
	}
	c := NewMeshCollector()
	DuDebugDrawNavMesh(c, nav, DU_DRAWNAVMESH_COLOR_TILES)
	m := c.Mesh()
	assertTrue(t, m.TriCount() > 0, "tile surface drawn")
	assertTrue(t, len(m.Lines) > 0, "boundaries drawn")

	c.Reset()
	tile := nav.GetTileAt(0, 0, 0)
	DuDebugDrawNavMeshPoly(c, nav, nav.GetPolyRefBase(tile), DuRGBA(255, 196, 0, 255))
	assertTrue(t, c.Mesh().TriCount() > 0, "single polygon drawn")

	c.Reset()
	DuDebugDrawNavMeshPoly(c, nav, 0, DuRGBA(255, 196, 0, 255))
	assertTrue(t, c.Mesh().TriCount() == 0, "invalid ref draws nothing")
}

func TestDrawAgentPath(t *testing.T) {
	c := NewMeshCollector()
	path := []mgl32.Vec3{{0, 0, 0}, {1, 0, 0}, {1, 0, 1}}
	DuDebugDrawAgentPath(c, path, 0.5, DuRGBA(0, 255, 0, 255))
	// circle segments + polyline + cross
	assertTrue(t, len(c.Mesh().Lines) == (circleSegs+2+3)*2, "marker, path and goal drawn")

	DuDebugDrawAgentPath(c, nil, 0.5, DuRGBA(0, 255, 0, 255))
}

func TestDumpObj(t *testing.T) {
	res := buildPlane(t)
	var buf bytes.Buffer
	if err := DuDumpPolyMeshDetailToObj(res.Detail, &buf); err != nil {
		t.Fatalf("dump: %v", err)
	}
	out := buf.String()
	assertTrue(t, strings.Count(out, "\nf ") == res.Detail.NTris(), "one face per detail triangle")
	assertTrue(t, strings.Count(out, "\nv ") == res.Detail.NVerts(), "one vertex line per detail vertex")

	c := NewMeshCollector()
	DuDebugDrawPolyMeshDetail(c, res.Detail)
	buf.Reset()
	if err := DuDumpDebugMeshToObj(c.Mesh(), "detail", &buf); err != nil {
		t.Fatalf("dump debug mesh: %v", err)
	}
	assertTrue(t, strings.HasPrefix(buf.String(), "o detail\n"), "named object")
}

func TestColors(t *testing.T) {
	var c Colorb
	c.FromInt(DuRGBA(1, 2, 3, 4).Int())
	assertTrue(t, c == Colorb{1, 2, 3, 4}, "int round trip")
	assertTrue(t, DuTransCol(c, 9).A() == 9, "alpha replaced")
	assertTrue(t, DuLerpCol(DuRGBA(0, 0, 0, 0), DuRGBA(255, 255, 255, 255), 255) == DuRGBA(255, 255, 255, 255), "lerp end")
	assertTrue(t, DuDarkenCol(DuRGBA(200, 100, 50, 255)) == DuRGBA(100, 50, 25, 255), "darken halves rgb")

	var base DuDebugDrawBase
	assertTrue(t, base.AreaToCol(int(geom.AreaWalkable)) == base.AreaToCol(int(geom.AreaGround)), "walkable drawn as ground")
}
