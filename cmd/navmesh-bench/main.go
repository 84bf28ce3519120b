// Command navmesh-bench bakes a procedural scene, runs a crowd over it and
// reports build and simulation timings.
package main

import (
	"flag"
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/gorustyt/irrnav/common/logger"
	"github.com/gorustyt/irrnav/config"
	"github.com/gorustyt/irrnav/debug_utils"
	"github.com/gorustyt/irrnav/geom"
	"github.com/gorustyt/irrnav/navmesh"
	"go.uber.org/zap"
)

// scene is what the bench needs from either navmesh flavour.
type scene interface {
	AddAgent(proxy navmesh.AgentProxy, radius, height float32) int
	SetAgentTarget(id int, pos mgl32.Vec3) bool
	HasAgentReachedDestination(id int) bool
	Update(dt float32)
	GetClosestPointOnNavmesh(pos mgl32.Vec3) mgl32.Vec3
	GetPathDistance(start, end mgl32.Vec3) float32
	DebugMeshes() []*debug_utils.DebugMesh
	TotalBuildTime() time.Duration
}

type node struct{ pos mgl32.Vec3 }

func (n *node) Position() mgl32.Vec3        { return n.pos }
func (n *node) SetPosition(pos mgl32.Vec3) { n.pos = pos }

func main() {
	configPath := flag.String("config", "", "YAML config file (optional)")
	tiled := flag.Bool("tiled", false, "build tile by tile")
	tileSize := flag.Int("tile-size", 0, "tile size in cells (0 uses the config)")
	workers := flag.Int("workers", 0, "tile build workers (0 uses the config)")
	agents := flag.Int("agents", 32, "agents to simulate")
	ticks := flag.Int("ticks", 600, "simulation ticks at 30Hz")
	logLevel := flag.String("log-level", "", "log level override")
	logFile := flag.String("log-file", "", "log file override")
	objPath := flag.String("obj", "", "dump the debug meshes as OBJ to this file")
	seed := flag.Int64("seed", 1, "agent placement seed")
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(*configPath); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(2)
		}
	}
	if *logLevel != "" {
		cfg.Logging.Level = *logLevel
	}
	if *logFile != "" {
		cfg.Logging.File = *logFile
	}
	if *workers > 0 {
		cfg.Tiles.Workers = *workers
	}
	if err := logger.Init(cfg.Logging.Level, cfg.Logging.File); err != nil {
		fmt.Fprintln(os.Stderr, "init logger:", err)
		os.Exit(1)
	}
	defer logger.Sync()
	log := logger.Log

	s, err := build(cfg, *tiled, *tileSize)
	if err != nil {
		log.Error("build failed", zap.Error(err))
		os.Exit(1)
	}
	log.Info("navmesh built", zap.Bool("tiled", *tiled), zap.Duration("elapsed", s.TotalBuildTime()))

	if *objPath != "" {
		if err := dumpObj(*objPath, s.DebugMeshes()); err != nil {
			log.Error("dump obj", zap.Error(err))
			os.Exit(1)
		}
		log.Info("debug meshes written", zap.String("path", *objPath))
	}

	queryPaths(log, s)
	simulate(log, s, *agents, *ticks, *seed)
}

// queryPaths times a few fixed queries across the scene.
func queryPaths(log *zap.Logger, s scene) {
	pairs := [][2]mgl32.Vec3{
		{{-30, 0, -30}, {30, 0, 30}},
		{{-30, 0, 0}, {30, 0, 0}},
		{{-5, 0, 0}, {18, 2, 0}},
		{{-20, 0, 20}, {-20, 0, -20}},
	}
	for _, p := range pairs {
		start := time.Now()
		d := s.GetPathDistance(p[0], p[1])
		log.Info("path query",
			zap.Stringer("from", vec(p[0])), zap.Stringer("to", vec(p[1])),
			zap.Float32("distance", d), zap.Duration("elapsed", time.Since(start)))
	}
}

type vec mgl32.Vec3

func (v vec) String() string { return fmt.Sprintf("(%.1f, %.1f, %.1f)", v[0], v[1], v[2]) }

// sceneMesh is a ground plane with a platform reached by a ramp and a pillar
// to walk around.
func sceneMesh() geom.Mesh {
	return geom.NewTriMesh(
		geom.Plane(-40, -40, 40, 40, 0),
		geom.Box(mgl32.Vec3{10, 0, -10}, mgl32.Vec3{25, 2, 10}),
		geom.Ramp(0, -3, 10, 3, 0, 2),
		geom.Box(mgl32.Vec3{-12, 0, -4}, mgl32.Vec3{-8, 6, 4}),
	)
}

func build(cfg *config.Config, tiled bool, tileSize int) (scene, error) {
	opts := navmesh.Options{Config: cfg}
	if tiled {
		n, err := navmesh.NewTiledNavMesh(opts)
		if err != nil {
			return nil, err
		}
		return n, n.Build(sceneMesh(), tileSize)
	}
	n, err := navmesh.NewStaticNavMesh(opts)
	if err != nil {
		return nil, err
	}
	return n, n.Build(sceneMesh())
}

func dumpObj(path string, meshes []*debug_utils.DebugMesh) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	for i, m := range meshes {
		if err := debug_utils.DuDumpDebugMeshToObj(m, fmt.Sprintf("tile%d", i), f); err != nil {
			return err
		}
	}
	return f.Close()
}

func simulate(log *zap.Logger, s scene, count, ticks int, seed int64) {
	rng := rand.New(rand.NewSource(seed))
	random := func() mgl32.Vec3 {
		return mgl32.Vec3{rng.Float32()*70 - 35, 0, rng.Float32()*70 - 35}
	}

	ids := make([]int, 0, count)
	for i := 0; i < count; i++ {
		id := s.AddAgent(&node{pos: s.GetClosestPointOnNavmesh(random())}, 0, 0)
		if id < 0 {
			log.Warn("crowd full", zap.Int("added", len(ids)))
			break
		}
		target := s.GetClosestPointOnNavmesh(random())
		s.SetAgentTarget(id, target)
		ids = append(ids, id)
	}

	const dt = 1.0 / 30
	start := time.Now()
	for i := 0; i < ticks; i++ {
		s.Update(dt)
	}
	elapsed := time.Since(start)

	arrived := 0
	for _, id := range ids {
		if s.HasAgentReachedDestination(id) {
			arrived++
		}
	}
	perTick := time.Duration(0)
	if ticks > 0 {
		perTick = elapsed / time.Duration(ticks)
	}
	log.Info("crowd simulated",
		zap.Int("agents", len(ids)),
		zap.Int("arrived", arrived),
		zap.Int("ticks", ticks),
		zap.Duration("elapsed", elapsed),
		zap.Duration("per_tick", perTick))
}
