package navmesh

import (
	"context"
	"fmt"
	"maps"
	"sync"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/gorustyt/irrnav/common"
	"github.com/gorustyt/irrnav/config"
	"github.com/gorustyt/irrnav/detour"
	"github.com/gorustyt/irrnav/geom"
	"github.com/gorustyt/irrnav/recast"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const trisPerChunk = 256

// TiledNavMesh builds the scene tile by tile and can rebuild single tiles
// afterwards.
type TiledNavMesh struct {
	*core

	// buildMu serializes builds; the fields below belong to the last
	// successful full build.
	buildMu sync.Mutex
	input   *geom.InputGeom
	chunky  *geom.ChunkyTriMesh
	grid    recast.TileGrid
	rcfg    recast.RcConfig
}

// NewTiledNavMesh returns an empty tiled navmesh; call Build to bake it.
func NewTiledNavMesh(opts Options) (*TiledNavMesh, error) {
	c, err := newCore(opts)
	if err != nil {
		return nil, err
	}
	return &TiledNavMesh{core: c}, nil
}

// tileOutput is one compiled tile on its way to the graph.
type tileOutput struct {
	coord  tileCoord
	blob   []byte
	detail *recast.RcPolyMeshDetail
}

// Grid returns the tile layout of the last successful build.
func (n *TiledNavMesh) Grid() recast.TileGrid {
	n.buildMu.Lock()
	defer n.buildMu.Unlock()
	return n.grid
}

// TileAt returns the tile containing pos; ok is false outside the grid.
func (n *TiledNavMesh) TileAt(pos mgl32.Vec3) (tx, ty int, ok bool) {
	grid := n.Grid()
	if grid.Width == 0 {
		return 0, 0, false
	}
	tx, ty = grid.TileAt(pos[:])
	return tx, ty, tx >= 0 && ty >= 0 && tx < grid.Width && ty < grid.Height
}

// Build bakes mesh with tiles of tileSize cells, or the configured tile
// size when tileSize <= 0. On failure the previous graph stays in place.
func (n *TiledNavMesh) Build(mesh geom.Mesh, tileSize int) error {
	start := time.Now()
	g, err := geom.Flatten(mesh)
	if err != nil {
		return &recast.BuildError{Kind: recast.BuildTiled, Stage: recast.StageIdle, Err: err, Detail: "flatten input mesh"}
	}
	if tileSize <= 0 {
		tileSize = n.cfg.Tiles.TileSize
	}

	n.buildMu.Lock()
	defer n.buildMu.Unlock()

	rcfg := recast.NewRcConfig(n.cfg.Build, g.Bmin, g.Bmax)
	grid := recast.NewTileGrid(g.Bmin, g.Bmax, rcfg.Cs, tileSize)
	nav, err := n.newNavMesh(g, grid)
	if err != nil {
		return err
	}
	chunky := geom.NewChunkyTriMesh(g, trisPerChunk)

	var details map[tileCoord]*recast.RcPolyMeshDetail
	if rcfg.KeepInterResults {
		details = map[tileCoord]*recast.RcPolyMeshDetail{}
	}

	n.log.Info("tiled navmesh build",
		zap.Int("tiles_x", grid.Width), zap.Int("tiles_y", grid.Height),
		zap.Int("tile_size", tileSize), zap.Int("workers", n.cfg.Tiles.Workers))

	insert := func(out tileOutput) error {
		if _, err := nav.AddTileBlob(out.blob); err != nil {
			if n.cfg.Tiles.FailurePolicy == config.FailSkip {
				n.log.Warn("tile rejected by graph, skipped", zap.Int("tx", out.coord.x), zap.Int("ty", out.coord.y), zap.Error(err))
				return nil
			}
			return &recast.BuildError{Kind: recast.BuildTiled, Stage: recast.StageDone, Tiled: true,
				TileX: out.coord.x, TileY: out.coord.y, Err: err, Detail: "add tile"}
		}
		if details != nil && out.detail != nil {
			details[out.coord] = out.detail
		}
		return nil
	}
	if err := n.compileTiles(g, chunky, grid, rcfg, insert); err != nil {
		return err
	}

	elapsed := time.Since(start)
	n.input, n.chunky, n.grid, n.rcfg = g, chunky, grid, rcfg
	n.publish(newGraph(nav, g.Bmin, g.Bmax, details, n.cfg.Query.MaxNodes), elapsed)
	n.log.Info("tiled navmesh ready", zap.Int("tiles", nav.TileCount()), zap.Duration("elapsed", elapsed))
	return nil
}

func (n *TiledNavMesh) newNavMesh(g *geom.InputGeom, grid recast.TileGrid) (*detour.DtNavMesh, error) {
	tiles := grid.Width * grid.Height
	if tiles > n.cfg.Tiles.MaxTiles {
		return nil, &recast.BuildError{Kind: recast.BuildTiled, Stage: recast.StageIdle, Err: common.ErrAllocation,
			Detail: fmt.Sprintf("%dx%d tiles exceed max_tiles %d", grid.Width, grid.Height, n.cfg.Tiles.MaxTiles)}
	}
	nav, status := detour.NewDtNavMeshWithParams(&detour.NavMeshParams{
		Orig:       g.Bmin,
		TileWidth:  grid.TileWorldSize(),
		TileHeight: grid.TileWorldSize(),
		MaxTiles:   max(tiles, 1),
		MaxPolys:   n.cfg.Tiles.MaxPolysPerTile,
	})
	if err := status.Err("init navmesh"); err != nil {
		return nil, &recast.BuildError{Kind: recast.BuildTiled, Stage: recast.StageIdle, Err: err, Detail: "create navigation graph"}
	}
	return nav, nil
}

// compileTile builds and encodes tile (tx, ty). ok is false for tiles without
// walkable surface and, under the skip policy, for failed tiles.
func (n *TiledNavMesh) compileTile(g *geom.InputGeom, chunky *geom.ChunkyTriMesh, grid recast.TileGrid, rcfg recast.RcConfig, tx, ty int) (out tileOutput, ok bool, err error) {
	ctx := recast.NewRcContext(n.log)
	res, err := recast.BuildTile(ctx, rcfg, g, chunky, grid, tx, ty)
	if err == nil && res != nil {
		out.blob, err = recast.EncodeTile(res.Data, n.cfg.Tiles.Encoding, n.cfg.Tiles.Compression)
		if err != nil {
			err = &recast.BuildError{Kind: recast.BuildTiled, Stage: recast.StageDone, Tiled: true, TileX: tx, TileY: ty, Err: err, Detail: "encode tile"}
		}
	}
	if err != nil {
		if n.cfg.Tiles.FailurePolicy == config.FailSkip {
			n.log.Warn("tile skipped", zap.Int("tx", tx), zap.Int("ty", ty), zap.Error(err))
			return out, false, nil
		}
		return out, false, err
	}
	if res == nil {
		return out, false, nil
	}
	out.coord = tileCoord{tx, ty}
	if rcfg.KeepInterResults {
		out.detail = res.Detail
	}
	return out, true, nil
}

// compileTiles compiles every tile of grid and hands the results to insert.
// Tiles compile on up to Workers goroutines; insert always runs on the
// calling goroutine.
func (n *TiledNavMesh) compileTiles(g *geom.InputGeom, chunky *geom.ChunkyTriMesh, grid recast.TileGrid, rcfg recast.RcConfig, insert func(tileOutput) error) error {
	workers := n.cfg.Tiles.Workers
	if workers <= 1 {
		for ty := 0; ty < grid.Height; ty++ {
			for tx := 0; tx < grid.Width; tx++ {
				out, ok, err := n.compileTile(g, chunky, grid, rcfg, tx, ty)
				if err != nil {
					return err
				}
				if !ok {
					continue
				}
				if err := insert(out); err != nil {
					return err
				}
			}
		}
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(workers)
	results := make(chan tileOutput, workers)
	done := make(chan error, 1)
	go func() {
	loop:
		for ty := 0; ty < grid.Height; ty++ {
			for tx := 0; tx < grid.Width; tx++ {
				if ctx.Err() != nil {
					break loop
				}
				tx, ty := tx, ty
				eg.Go(func() error {
					out, ok, err := n.compileTile(g, chunky, grid, rcfg, tx, ty)
					if err != nil || !ok {
						return err
					}
					select {
					case results <- out:
						return nil
					case <-ctx.Done():
						return ctx.Err()
					}
				})
			}
		}
		done <- eg.Wait()
		close(results)
	}()

	// Single writer: tiles enter the graph one at a time, here.
	var insertErr error
	for out := range results {
		if insertErr != nil {
			continue
		}
		if err := insert(out); err != nil {
			insertErr = err
			cancel()
		}
	}
	if insertErr != nil {
		<-done
		return insertErr
	}
	return <-done
}

// BuildTile rebuilds tile (tx, ty) from the geometry of the last full build,
// replacing the tile in place.
func (n *TiledNavMesh) BuildTile(tx, ty int) error {
	start := time.Now()
	n.buildMu.Lock()
	defer n.buildMu.Unlock()
	old := n.graph.Load()
	if old == nil || n.input == nil {
		return common.ErrNoNavMesh
	}
	if tx < 0 || ty < 0 || tx >= n.grid.Width || ty >= n.grid.Height {
		return fmt.Errorf("%w: tile (%d,%d) outside %dx%d grid", common.ErrInput, tx, ty, n.grid.Width, n.grid.Height)
	}

	out, ok, err := n.compileTile(n.input, n.chunky, n.grid, n.rcfg, tx, ty)
	if err != nil {
		return err
	}
	nav := old.nav.Clone()
	details := maps.Clone(old.details)
	coord := tileCoord{tx, ty}
	if ref := nav.GetTileRefAt(int32(tx), int32(ty), 0); ref != 0 {
		nav.RemoveTile(ref)
	}
	if details != nil {
		delete(details, coord)
	}
	if ok {
		if _, err := nav.AddTileBlob(out.blob); err != nil {
			return &recast.BuildError{Kind: recast.BuildTiled, Stage: recast.StageDone, Tiled: true, TileX: tx, TileY: ty, Err: err, Detail: "add tile"}
		}
		if details != nil && out.detail != nil {
			details[coord] = out.detail
		}
	}
	elapsed := time.Since(start)
	n.publish(newGraph(nav, old.bmin, old.bmax, details, n.cfg.Query.MaxNodes), elapsed)
	n.log.Debug("tile rebuilt", zap.Int("tx", tx), zap.Int("ty", ty), zap.Bool("empty", !ok), zap.Duration("elapsed", elapsed))
	return nil
}

// RemoveTile drops tile (tx, ty) from the graph. Removing an empty tile is
// not an error.
func (n *TiledNavMesh) RemoveTile(tx, ty int) error {
	n.buildMu.Lock()
	defer n.buildMu.Unlock()
	old := n.graph.Load()
	if old == nil {
		return common.ErrNoNavMesh
	}
	ref := old.nav.GetTileRefAt(int32(tx), int32(ty), 0)
	if ref == 0 {
		return nil
	}
	nav := old.nav.Clone()
	if _, status := nav.RemoveTile(ref); status.DtStatusFailed() {
		return status.Err("remove tile")
	}
	details := maps.Clone(old.details)
	delete(details, tileCoord{tx, ty})
	n.publish(newGraph(nav, old.bmin, old.bmax, details, n.cfg.Query.MaxNodes), n.TotalBuildTime())
	return nil
}
