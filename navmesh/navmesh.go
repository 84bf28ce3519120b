// Package navmesh is the scene-facing side of the library: it bakes a scene
// mesh into a navigation graph, answers path queries against it and drives a
// crowd of agents over it.
package navmesh

import (
	"slices"
	"sync/atomic"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/gorustyt/irrnav/common/logger"
	"github.com/gorustyt/irrnav/config"
	"github.com/gorustyt/irrnav/debug_utils"
	"github.com/gorustyt/irrnav/detour"
	"github.com/gorustyt/irrnav/detour_crowd"
	"go.uber.org/zap"
)

// Options configure a navmesh scene object.
type Options struct {
	// Config defaults to config.Default().
	Config *config.Config
	// Logger defaults to the global logger.
	Logger *zap.Logger
}

const (
	maxPathPolys    = 4096
	maxStraightPath = 256
)

// core holds what static and tiled navmeshes share: the published graph,
// path queries and the crowd.
type core struct {
	cfg *config.Config
	log *zap.Logger

	graph     atomic.Pointer[Graph]
	buildTime atomic.Int64
	filter    *detour.DtQueryFilter

	// Crowd state belongs to the simulation goroutine.
	crowd      *detour_crowd.DtCrowd
	crowdGraph *Graph
	proxies    map[int]AgentProxy
	lastTimeMs int64
	animated   bool
}

func newCore(opts Options) (*core, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	c := &core{
		cfg:     cfg,
		log:     logger.Or(opts.Logger),
		filter:  detour.NewDtQueryFilter(),
		proxies: map[int]AgentProxy{},
	}
	c.crowd = detour_crowd.NewDtCrowd(cfg.Crowd, cfg.Query.HalfExtents, nil)
	c.crowd.SetLogger(c.log)
	return c, nil
}

// publish swaps g in as the current graph.
func (c *core) publish(g *Graph, elapsed time.Duration) {
	c.graph.Store(g)
	c.buildTime.Store(int64(elapsed))
}

// Config returns the configuration the navmesh was created with.
func (c *core) Config() *config.Config { return c.cfg }

// Graph returns the current graph, nil before the first successful build.
func (c *core) Graph() *Graph { return c.graph.Load() }

// TotalBuildTime is the wall time of the last successful build.
func (c *core) TotalBuildTime() time.Duration { return time.Duration(c.buildTime.Load()) }

// BoundingBox returns the bounds of the geometry the current graph was
// built from, or an empty box before the first build.
func (c *core) BoundingBox() (bmin, bmax mgl32.Vec3) {
	g := c.graph.Load()
	if g == nil {
		return
	}
	return g.bmin, g.bmax
}

// Filter returns the query filter used by path queries. Changing it is not
// safe while queries run.
func (c *core) Filter() *detour.DtQueryFilter { return c.filter }

// GetClosestPointOnNavmesh snaps pos onto the navmesh. pos is returned
// unchanged when no polygon lies within the query extents.
func (c *core) GetClosestPointOnNavmesh(pos mgl32.Vec3) mgl32.Vec3 {
	g := c.graph.Load()
	if g == nil {
		return pos
	}
	res := pos
	g.withQuery(func(q *detour.DtNavMeshQuery) {
		ref, nearest, status := q.FindNearestPoly(pos[:], c.cfg.Query.HalfExtents[:], c.filter)
		if status.DtStatusSucceed() && ref != 0 {
			res = nearest
		}
	})
	return res
}

// Path is the result of a path query.
type Path struct {
	Waypoints []mgl32.Vec3
	// Length is the summed segment length, -1 when there is no path.
	Length float32
}

// FindPath searches a path from start to end. Paths that cannot reach the
// end polygon are reported as no path. The search always runs from the lesser
// endpoint so both directions return the same route.
func (c *core) FindPath(start, end mgl32.Vec3) Path {
	if lessVec(end, start) {
		p := c.findPath(end, start)
		slices.Reverse(p.Waypoints)
		return p
	}
	return c.findPath(start, end)
}

// lessVec orders points by x, then z, then y.
func lessVec(a, b mgl32.Vec3) bool {
	if a[0] != b[0] {
		return a[0] < b[0]
	}
	if a[2] != b[2] {
		return a[2] < b[2]
	}
	return a[1] < b[1]
}

func (c *core) findPath(start, end mgl32.Vec3) Path {
	none := Path{Length: -1}
	g := c.graph.Load()
	if g == nil {
		return none
	}
	res := none
	g.withQuery(func(q *detour.DtNavMeshQuery) {
		ext := c.cfg.Query.HalfExtents[:]
		startRef, startPos, status := q.FindNearestPoly(start[:], ext, c.filter)
		if status.DtStatusFailed() || startRef == 0 {
			return
		}
		endRef, endPos, status := q.FindNearestPoly(end[:], ext, c.filter)
		if status.DtStatusFailed() || endRef == 0 {
			return
		}
		polys, status := q.FindPath(startRef, endRef, startPos[:], endPos[:], c.filter, maxPathPolys)
		if status.DtStatusFailed() || len(polys) == 0 || polys[len(polys)-1] != endRef {
			c.log.Debug("no path", zap.Stringer("status", status), zap.Int("polys", len(polys)))
			return
		}
		pts, status := q.FindStraightPath(startPos[:], endPos[:], polys, maxStraightPath, 0)
		if status.DtStatusFailed() || len(pts) == 0 {
			return
		}
		res = Path{Waypoints: make([]mgl32.Vec3, len(pts))}
		for i, p := range pts {
			res.Waypoints[i] = p.Pos
			if i > 0 {
				res.Length += res.Waypoints[i].Sub(res.Waypoints[i-1]).Len()
			}
		}
	})
	return res
}

// GetPath returns the waypoints from start to end, empty when no path exists.
func (c *core) GetPath(start, end mgl32.Vec3) []mgl32.Vec3 {
	return c.FindPath(start, end).Waypoints
}

// GetPathDistance returns the length of GetPath(start, end), -1 when it is empty.
func (c *core) GetPathDistance(start, end mgl32.Vec3) float32 {
	return c.FindPath(start, end).Length
}

// DebugMeshes returns render meshes of the current graph: one per retained
// detail mesh, otherwise one per graph tile.
func (c *core) DebugMeshes() []*debug_utils.DebugMesh {
	g := c.graph.Load()
	if g == nil {
		return nil
	}
	var res []*debug_utils.DebugMesh
	if details := g.DetailMeshes(); details != nil {
		for _, d := range details {
			col := debug_utils.NewMeshCollector()
			debug_utils.DuDebugDrawPolyMeshDetail(col, d)
			res = append(res, col.Mesh())
		}
		return res
	}
	for _, tile := range g.nav.Tiles() {
		col := debug_utils.NewMeshCollector()
		debug_utils.DrawMeshTile(col, g.nav, tile, 0)
		res = append(res, col.Mesh())
	}
	return res
}
