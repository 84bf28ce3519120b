package navmesh

import (
	"sync/atomic"
	"time"

	"github.com/gorustyt/irrnav/detour"
	"github.com/gorustyt/irrnav/geom"
	"github.com/gorustyt/irrnav/recast"
	"go.uber.org/zap"
)

// StaticNavMesh builds the whole scene as a single tile.
type StaticNavMesh struct {
	*core
	result atomic.Pointer[recast.BuildResult]
}

// NewStaticNavMesh returns an empty static navmesh; call Build to bake it.
func NewStaticNavMesh(opts Options) (*StaticNavMesh, error) {
	c, err := newCore(opts)
	if err != nil {
		return nil, err
	}
	return &StaticNavMesh{core: c}, nil
}

// Build bakes mesh. On failure the previous graph stays in place.
func (n *StaticNavMesh) Build(mesh geom.Mesh) error {
	start := time.Now()
	g, err := geom.Flatten(mesh)
	if err != nil {
		return &recast.BuildError{Kind: recast.BuildStatic, Stage: recast.StageIdle, Err: err, Detail: "flatten input mesh"}
	}
	return n.BuildGeom(g, start)
}

// BuildGeom bakes already flattened geometry; start is the time the build
// is measured from.
func (n *StaticNavMesh) BuildGeom(g *geom.InputGeom, start time.Time) error {
	cfg := recast.NewRcConfig(n.cfg.Build, g.Bmin, g.Bmax)
	ctx := recast.NewRcContext(n.log)
	res, err := recast.BuildSolo(ctx, cfg, g)
	if err != nil {
		return err
	}
	nav, _, status := detour.NewDtNavMesh(res.Data)
	if err := status.Err("init navmesh"); err != nil {
		return &recast.BuildError{Kind: recast.BuildStatic, Stage: recast.StageDone, Err: err, Detail: "create navigation graph"}
	}

	details := map[tileCoord]*recast.RcPolyMeshDetail{{0, 0}: res.Detail}
	elapsed := time.Since(start)
	n.publish(newGraph(nav, g.Bmin, g.Bmax, details, n.cfg.Query.MaxNodes), elapsed)
	n.result.Store(res)
	n.log.Info("static navmesh ready", zap.Stringer("result", res), zap.Duration("elapsed", elapsed))
	return nil
}

// BuildResult returns the artifacts of the last successful build. The
// intermediate fields are only set when the build config keeps them.
func (n *StaticNavMesh) BuildResult() *recast.BuildResult { return n.result.Load() }
