package navmesh

import (
	"errors"
	"fmt"
	"math/rand"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/gorustyt/irrnav/common"
	"github.com/gorustyt/irrnav/config"
	"github.com/gorustyt/irrnav/debug_utils"
	"github.com/gorustyt/irrnav/geom"
	"github.com/gorustyt/irrnav/recast"
)

func assertTrue(t *testing.T, value bool, msg string) {
	t.Helper()
	if !value {
		t.Error(msg)
	}
}

func near(a, b, eps float32) bool { return common.Abs(a-b) <= eps }

type proxy struct {
	pos mgl32.Vec3
	set int
}

func (p *proxy) Position() mgl32.Vec3        { return p.pos }
func (p *proxy) SetPosition(pos mgl32.Vec3) { p.pos = pos; p.set++ }

func plane() geom.Mesh { return geom.NewTriMesh(geom.Plane(-10, -10, 10, 10, 0)) }

// platform is a plane with a raised block in the middle.
func platform() geom.Mesh {
	return geom.NewTriMesh(
		geom.Plane(-10, -10, 10, 10, 0),
		geom.Box(mgl32.Vec3{-3, 0, -3}, mgl32.Vec3{3, 1.5, 3}),
	)
}

func staticNavMesh(t *testing.T, cfg *config.Config, mesh geom.Mesh) *StaticNavMesh {
	t.Helper()
	n, err := NewStaticNavMesh(Options{Config: cfg})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if err := n.Build(mesh); err != nil {
		t.Fatalf("build: %v", err)
	}
	return n
}

func tiledNavMesh(t *testing.T, cfg *config.Config, mesh geom.Mesh, tileSize int) *TiledNavMesh {
	t.Helper()
	n, err := NewTiledNavMesh(Options{Config: cfg})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if err := n.Build(mesh, tileSize); err != nil {
		t.Fatalf("build: %v", err)
	}
	return n
}

func TestStaticPlane(t *testing.T) {
	n := staticNavMesh(t, nil, plane())
	g := n.Graph()
	if g == nil {
		t.Fatal("graph not published")
	}
	assertTrue(t, g.NavMesh().TileCount() == 1, "one tile")
	assertTrue(t, len(g.NavMesh().Tiles()[0].Polys) >= 1, "at least one polygon")
	assertTrue(t, n.TotalBuildTime() > 0, "build time recorded")
	assertTrue(t, n.BuildResult() != nil && n.BuildResult().PolyMesh.NPolys > 0, "build result kept")

	bmin, bmax := n.BoundingBox()
	assertTrue(t, bmin == mgl32.Vec3{-10, 0, -10} && bmax == mgl32.Vec3{10, 0, 10}, "bounding box of the input")

	p := n.GetClosestPointOnNavmesh(mgl32.Vec3{0, 5, 0})
	assertTrue(t, near(p[0], 0, 1e-3) && near(p[2], 0, 1e-3), "x and z kept")
	assertTrue(t, near(p[1], 0, 0.5), "snapped down to the surface")

	again := n.GetClosestPointOnNavmesh(p)
	assertTrue(t, again.ApproxEqualThreshold(p, 1e-4), "closest point is idempotent")

	miss := mgl32.Vec3{100, 0, 100}
	assertTrue(t, n.GetClosestPointOnNavmesh(miss) == miss, "miss returns the input")
}

func TestNoGraphYet(t *testing.T) {
	n, err := NewStaticNavMesh(Options{})
	if err != nil {
		t.Fatal(err)
	}
	pos := mgl32.Vec3{1, 2, 3}
	assertTrue(t, n.Graph() == nil, "no graph")
	assertTrue(t, n.GetClosestPointOnNavmesh(pos) == pos, "closest point without graph")
	assertTrue(t, len(n.GetPath(pos, pos)) == 0 && n.GetPathDistance(pos, pos) == -1, "no path without graph")
	assertTrue(t, n.DebugMeshes() == nil, "no debug meshes")
}

func TestInvalidConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Build.CellSize = 0
	_, err := NewStaticNavMesh(Options{Config: cfg})
	assertTrue(t, errors.Is(err, common.ErrInput), "static rejects config")
	_, err = NewTiledNavMesh(Options{Config: cfg})
	assertTrue(t, errors.Is(err, common.ErrInput), "tiled rejects config")
}

func TestPathAcrossPlane(t *testing.T) {
	n := staticNavMesh(t, nil, plane())
	a, b := mgl32.Vec3{-8, 0, -8}, mgl32.Vec3{8, 0, 8}
	path := n.GetPath(a, b)
	if len(path) < 2 {
		t.Fatalf("expected a path, got %v", path)
	}
	assertTrue(t, path[0].ApproxEqualThreshold(a, 0.5), "starts at start")
	assertTrue(t, path[len(path)-1].ApproxEqualThreshold(b, 0.5), "ends at end")

	d := n.GetPathDistance(a, b)
	straight := b.Sub(a).Len()
	assertTrue(t, near(d, straight, straight*0.01), "open plane path is straight")
	back := n.GetPathDistance(b, a)
	assertTrue(t, near(d, back, 1e-3), "distance is symmetric")
}

func TestPathAroundBlock(t *testing.T) {
	n := staticNavMesh(t, nil, platform())
	a, b := mgl32.Vec3{-8, 0, 0}, mgl32.Vec3{8, 0, 0}
	d := n.GetPathDistance(a, b)
	assertTrue(t, d > 16, "path goes around the block")
	assertTrue(t, len(n.GetPath(a, b)) > 2, "path has corners")
}

func TestGapHasNoPath(t *testing.T) {
	mesh := geom.NewTriMesh(geom.Plane(-30, -10, -10, 10, 0), geom.Plane(40, -10, 60, 10, 0))
	n := staticNavMesh(t, nil, mesh)
	a, b := mgl32.Vec3{-20, 0, 0}, mgl32.Vec3{50, 0, 0}
	assertTrue(t, len(n.GetPath(a, b)) == 0, "no path over the gap")
	assertTrue(t, n.GetPathDistance(a, b) == -1, "distance -1 without path")
	assertTrue(t, n.GetPathDistance(a, mgl32.Vec3{-12, 0, 5}) > 0, "same island still connects")
}

func TestFailedBuildKeepsGraph(t *testing.T) {
	n := staticNavMesh(t, nil, plane())
	before := n.Graph()
	err := n.Build(geom.NewTriMesh(geom.Ramp(0, 0, 10, 10, 0, 50)))
	assertTrue(t, errors.Is(err, common.ErrDegenerateGeometry), "steep ramp fails")
	var be *recast.BuildError
	assertTrue(t, errors.As(err, &be) && be.Kind == recast.BuildStatic, "static build error")
	assertTrue(t, n.Graph() == before, "old graph kept")

	err = n.Build(geom.NewTriMesh())
	assertTrue(t, errors.Is(err, common.ErrInput), "empty mesh fails")
	assertTrue(t, n.Graph() == before, "old graph kept after empty input")
}

func TestTiledPlane(t *testing.T) {
	n := tiledNavMesh(t, nil, plane(), 8)
	grid := n.Grid()
	nav := n.Graph().NavMesh()
	assertTrue(t, grid.Width > 1 && grid.Height > 1, "grid has several tiles")
	assertTrue(t, nav.TileCount() > 1, "several tiles built")

	a, b := mgl32.Vec3{-8, 0, -8}, mgl32.Vec3{8, 0, 8}
	d := n.GetPathDistance(a, b)
	straight := b.Sub(a).Len()
	assertTrue(t, d > 0, "corners connect across tiles")
	assertTrue(t, d <= straight*1.05, "tiled path stays close to the straight line")

	tx, ty, ok := n.TileAt(mgl32.Vec3{0, 0, 0})
	assertTrue(t, ok && tx > 0 && ty > 0, "center tile")
	_, _, ok = n.TileAt(mgl32.Vec3{-50, 0, 0})
	assertTrue(t, !ok, "outside the grid")
}

func TestTiledMatchesStatic(t *testing.T) {
	s := staticNavMesh(t, nil, platform())
	a, b := mgl32.Vec3{-8, 0, -8}, mgl32.Vec3{8, 0, 8}
	ds := s.GetPathDistance(a, b)
	assertTrue(t, ds > 0, "static path")

	for _, size := range []int{8, 16, 32} {
		tl := tiledNavMesh(t, nil, platform(), size)
		dt := tl.GetPathDistance(a, b)
		assertTrue(t, dt > 0 && near(ds, dt, ds*0.1), fmt.Sprintf("tile %d: lengths %.2f and %.2f agree", size, ds, dt))

		// Ground next to the block on a tile interior.
		p := mgl32.Vec3{3.7, 0, 1}
		cs, ct := s.GetClosestPointOnNavmesh(p), tl.GetClosestPointOnNavmesh(p)
		assertTrue(t, near(cs[0], ct[0], 0.15) && near(cs[2], ct[2], 0.15) && near(cs[1], ct[1], 0.2),
			fmt.Sprintf("tile %d: closest point %v matches %v", size, ct, cs))
		from, to := mgl32.Vec3{-6.31, 0, 5.26}, mgl32.Vec3{2.43, 0, 0.99}
		assertTrue(t, (s.GetPathDistance(from, to) < 0) == (tl.GetPathDistance(from, to) < 0),
			fmt.Sprintf("tile %d: block edge reachability", size))

		rng := rand.New(rand.NewSource(int64(size)))
		random := func() mgl32.Vec3 { return mgl32.Vec3{rng.Float32()*18 - 9, 0, rng.Float32()*18 - 9} }
		for i := 0; i < 100; i++ {
			from, to := random(), random()
			ps, pt := s.FindPath(from, to), tl.FindPath(from, to)
			if (ps.Length < 0) != (pt.Length < 0) {
				t.Errorf("tile %d: %v -> %v reachable static=%v tiled=%v", size, from, to, ps.Length >= 0, pt.Length >= 0)
				continue
			}
			if ps.Length < 0 {
				continue
			}
			diff := len(ps.Waypoints) - len(pt.Waypoints)
			assertTrue(t, diff >= -2 && diff <= 2,
				fmt.Sprintf("tile %d: %v -> %v waypoints static=%d tiled=%d", size, from, to, len(ps.Waypoints), len(pt.Waypoints)))
		}
	}
}

func TestPathDistanceSymmetric(t *testing.T) {
	s := staticNavMesh(t, nil, platform())
	tl := tiledNavMesh(t, nil, platform(), 16)
	rng := rand.New(rand.NewSource(3))
	random := func() mgl32.Vec3 { return mgl32.Vec3{rng.Float32()*18 - 9, 0, rng.Float32()*18 - 9} }

	pairs := [][2]mgl32.Vec3{
		{{0.92, 0, -6.70}, {0.67, 0, 3.25}},
		{{-8, 0, 0}, {8, 0, 0}},
		{{0, 0, -8}, {0, 0, 8}},
	}
	for i := 0; i < 50; i++ {
		pairs = append(pairs, [2]mgl32.Vec3{random(), random()})
	}
	for _, n := range []interface {
		FindPath(start, end mgl32.Vec3) Path
	}{s, tl} {
		for _, p := range pairs {
			ab, ba := n.FindPath(p[0], p[1]), n.FindPath(p[1], p[0])
			if !near(ab.Length, ba.Length, 1e-4) {
				t.Errorf("%v <-> %v: %.3f one way, %.3f back", p[0], p[1], ab.Length, ba.Length)
				continue
			}
			if ab.Length < 0 {
				continue
			}
			assertTrue(t, len(ab.Waypoints) == len(ba.Waypoints), "same waypoint count both ways")
			last := len(ab.Waypoints) - 1
			assertTrue(t, ab.Waypoints[0].ApproxEqual(ba.Waypoints[last]) && ab.Waypoints[last].ApproxEqual(ba.Waypoints[0]),
				"reverse route runs the other way")
		}
	}
}

func TestTiledEmptyTiles(t *testing.T) {
	mesh := geom.NewTriMesh(geom.Plane(-10, -10, -2, 10, 0), geom.Plane(30, -10, 40, 10, 0))
	n := tiledNavMesh(t, nil, mesh, 16)
	grid := n.Grid()
	assertTrue(t, n.Graph().NavMesh().TileCount() < grid.Width*grid.Height, "gap tiles stay empty")
	assertTrue(t, n.GetPathDistance(mgl32.Vec3{-8, 0, 0}, mgl32.Vec3{35, 0, 0}) == -1, "islands stay apart")
}

func TestTiledWorkersRetainDetails(t *testing.T) {
	cfg := config.Default()
	cfg.Tiles.Workers = 4
	cfg.Tiles.Encoding = config.EncodingProtobuf
	cfg.Tiles.Compression = config.CompressionZstd
	cfg.Build.KeepInterResults = true
	n := tiledNavMesh(t, cfg, platform(), 16)
	nav := n.Graph().NavMesh()
	details := n.Graph().DetailMeshes()
	assertTrue(t, len(details) == nav.TileCount(), "one detail mesh per tile")
	assertTrue(t, len(n.DebugMeshes()) == len(details), "debug mesh per detail mesh")

	serial := tiledNavMesh(t, nil, platform(), 16)
	assertTrue(t, serial.Graph().NavMesh().TileCount() == nav.TileCount(), "parallel build adds every tile")
	assertTrue(t, serial.Graph().DetailMeshes() == nil, "details dropped by default")
	assertTrue(t, len(serial.DebugMeshes()) == nav.TileCount(), "debug mesh per tile")
}

func TestTiledFailurePolicy(t *testing.T) {
	cfg := config.Default()
	cfg.Tiles.MaxPolysPerTile = 1
	n, err := NewTiledNavMesh(Options{Config: cfg})
	if err != nil {
		t.Fatal(err)
	}
	// One tile over everything; the ring around the block needs several polygons.
	err = n.Build(platform(), 1000)
	var be *recast.BuildError
	assertTrue(t, errors.As(err, &be) && be.Tiled && be.Kind == recast.BuildTiled, "tile failure aborts")
	assertTrue(t, n.Graph() == nil, "nothing published")

	cfg = config.Default()
	cfg.Tiles.MaxPolysPerTile = 1
	cfg.Tiles.FailurePolicy = config.FailSkip
	n, err = NewTiledNavMesh(Options{Config: cfg})
	if err != nil {
		t.Fatal(err)
	}
	assertTrue(t, n.Build(platform(), 1000) == nil, "skip policy completes")
	assertTrue(t, n.Graph() != nil && n.Graph().NavMesh().TileCount() == 0, "failed tile left empty")
}

func TestTiledTooManyTiles(t *testing.T) {
	cfg := config.Default()
	cfg.Tiles.MaxTiles = 2
	n, err := NewTiledNavMesh(Options{Config: cfg})
	if err != nil {
		t.Fatal(err)
	}
	err = n.Build(plane(), 8)
	assertTrue(t, errors.Is(err, common.ErrAllocation), "grid over max tiles")
}

func TestTiledRebuildAndRemoveTile(t *testing.T) {
	n, err := NewTiledNavMesh(Options{})
	if err != nil {
		t.Fatal(err)
	}
	assertTrue(t, errors.Is(n.BuildTile(0, 0), common.ErrNoNavMesh), "rebuild needs a build")
	assertTrue(t, errors.Is(n.RemoveTile(0, 0), common.ErrNoNavMesh), "remove needs a build")
	if err := n.Build(plane(), 16); err != nil {
		t.Fatal(err)
	}

	full := n.Graph()
	count := full.NavMesh().TileCount()
	tx, ty, ok := n.TileAt(mgl32.Vec3{0, 0, 0})
	if !ok {
		t.Fatal("center outside grid")
	}
	assertTrue(t, n.RemoveTile(tx, ty) == nil, "tile removed")
	assertTrue(t, n.Graph().NavMesh().TileCount() == count-1, "one tile fewer")
	assertTrue(t, full.NavMesh().TileCount() == count, "published graph untouched")
	assertTrue(t, n.RemoveTile(tx, ty) == nil, "removing an empty tile is fine")

	p := n.GetClosestPointOnNavmesh(mgl32.Vec3{0, 0, 0})
	assertTrue(t, near(p[1], 0, 0.5), "closest point still answers")

	assertTrue(t, n.BuildTile(tx, ty) == nil, "tile rebuilt")
	assertTrue(t, n.Graph().NavMesh().TileCount() == count, "tile back")
	assertTrue(t, n.GetPathDistance(mgl32.Vec3{-8, 0, -8}, mgl32.Vec3{8, 0, 8}) > 0, "rebuilt tile connects")
	assertTrue(t, errors.Is(n.BuildTile(-1, 0), common.ErrInput), "tile outside grid")
}

func TestAgentCapacity(t *testing.T) {
	cfg := config.Default()
	cfg.Crowd.MaxAgents = 2
	n := staticNavMesh(t, cfg, plane())
	for i := 0; i < 2; i++ {
		assertTrue(t, n.AddAgent(&proxy{pos: mgl32.Vec3{float32(i) * 2, 0, 0}}, 0.5, 2) >= 0, "agent added")
	}
	assertTrue(t, n.AddAgent(&proxy{}, 0.5, 2) == -1, "crowd full")
	assertTrue(t, n.AddAgent(nil, 0.5, 2) == -1, "nil proxy rejected")
	assertTrue(t, n.AgentCount() == 2, "two agents")
	assertTrue(t, n.RemoveAgent(0), "removed")
	assertTrue(t, !n.RemoveAgent(0), "removed twice")
	assertTrue(t, n.AddAgent(&proxy{}, 0.5, 2) >= 0, "slot reused")
}

func TestAgentReachesTarget(t *testing.T) {
	n := staticNavMesh(t, nil, plane())
	p := &proxy{pos: mgl32.Vec3{-6, 2, -6}}
	id := n.AddAgent(p, 0.5, 2)
	if id < 0 {
		t.Fatal("agent not added")
	}
	assertTrue(t, near(p.pos[1], 0, 0.5), "proxy snapped to the mesh")

	target := mgl32.Vec3{6, 0, 6}
	assertTrue(t, n.SetAgentTarget(id, target), "target set")
	assertTrue(t, !n.SetAgentTarget(id+100, target), "unknown agent")
	assertTrue(t, n.GetAgentCurrentTarget(id) == target, "target recorded")
	assertTrue(t, !n.HasAgentReachedDestination(id), "not there yet")

	n.Update(1.0 / 30)
	n.Update(1.0 / 30)
	assertTrue(t, len(n.AgentPaths()) == 1, "moving agent reports a path")
	dd := debug_utils.NewMeshCollector()
	n.RenderAgentPaths(dd)
	assertTrue(t, len(dd.Mesh().Lines) > 0, "agent path drawn")

	for i := 0; i < 600 && !n.HasAgentReachedDestination(id); i++ {
		n.Update(1.0 / 30)
	}
	assertTrue(t, n.HasAgentReachedDestination(id), "agent arrived")
	assertTrue(t, p.pos.Sub(target).Len() < 1.5, "proxy follows the agent")
	assertTrue(t, p.pos == n.GetAgentPosition(id), "proxy matches agent position")
	assertTrue(t, len(n.AgentPaths()) == 0, "arrived agents have no path")

	assertTrue(t, n.GetAgentVelocity(99) == mgl32.Vec3{}, "unknown agent velocity")
	assertTrue(t, n.GetAgentPosition(99) == mgl32.Vec3{}, "unknown agent position")
	assertTrue(t, !n.HasAgentReachedDestination(99), "unknown agent has not arrived")
}

func TestAgentsFollowRebuild(t *testing.T) {
	n := tiledNavMesh(t, nil, plane(), 16)
	p := &proxy{pos: mgl32.Vec3{-6, 0, 0}}
	id := n.AddAgent(p, 0.5, 2)
	n.SetAgentTarget(id, mgl32.Vec3{6, 0, 0})
	n.Update(1.0 / 30)

	if err := n.Build(plane(), 8); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 600 && !n.HasAgentReachedDestination(id); i++ {
		n.Update(1.0 / 30)
	}
	assertTrue(t, n.HasAgentReachedDestination(id), "agent arrives on the new graph")
}

func TestAnimate(t *testing.T) {
	n := staticNavMesh(t, nil, plane())
	p := &proxy{pos: mgl32.Vec3{-6, 0, 0}}
	id := n.AddAgent(p, 0.5, 2)
	n.SetAgentTarget(id, mgl32.Vec3{6, 0, 0})
	start := p.pos

	n.Animate(1000)
	assertTrue(t, p.pos == start, "first frame only records the clock")
	for ms := int64(1033); ms < 1500; ms += 33 {
		n.Animate(ms)
	}
	assertTrue(t, p.pos[0] > start[0], "agent moved towards the target")
	assertTrue(t, n.GetAgentVelocity(id).Len() > 0, "agent has velocity")
}
