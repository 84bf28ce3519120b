package recast

import (
	"errors"
	"fmt"

	"github.com/gorustyt/irrnav/common"
	"github.com/gorustyt/irrnav/geom"
	"go.uber.org/zap"
)

// BuildResult is the output of one monolithic or per-tile build. The
// intermediate fields are only set when the config keeps them.
type BuildResult struct {
	Data     *NavMeshData
	PolyMesh *RcPolyMesh
	Detail   *RcPolyMeshDetail

	Heightfield *RcHeightfield
	Compact     *RcCompactHeightfield
	Contours    *RcContourSet
}

// BuildSolo builds one navigation tile covering the whole input geometry.
func BuildSolo(ctx *RcContext, cfg RcConfig, g *geom.InputGeom) (*BuildResult, error) {
	if g == nil || g.TriCount() == 0 {
		return nil, &BuildError{Kind: BuildStatic, Stage: StageIdle, Err: common.ErrInput, Detail: "no input geometry"}
	}
	cfg.Bmin = g.Bmin
	cfg.Bmax = g.Bmax
	cfg.Width, cfg.Height = RcCalcGridSize(cfg.Bmin, cfg.Bmax, cfg.Cs)
	cfg.BorderSize = 0
	cfg.TileSize = 0

	ctx.Reset()
	defer ctx.Release()
	res, err := rasterizeAndBuild(ctx, &cfg, g.Verts, g.Tris, g.Areas, 0, 0)
	if err != nil {
		var be *BuildError
		if errors.As(err, &be) {
			be.Kind = BuildStatic
		}
		return nil, ctx.Fail(err)
	}
	ctx.Done()
	ctx.Logger().Info("static navmesh built",
		zap.Int("polys", res.PolyMesh.NPolys),
		zap.Int("verts", res.PolyMesh.NVerts),
		zap.Int("detailTris", res.Detail.NTris()),
		zap.Duration("elapsed", ctx.TotalTime()))
	ctx.LogStageTimes()
	return res, nil
}

// TileGrid describes how the input bounds are cut into square tiles.
type TileGrid struct {
	Bmin     [3]float32
	Bmax     [3]float32
	TileSize int // cells
	Cs       float32
	Width    int // tiles along x
	Height   int // tiles along z
}

// NewTileGrid returns the tile layout covering bmin..bmax.
func NewTileGrid(bmin, bmax [3]float32, cs float32, tileSize int) TileGrid {
	gw, gh := RcCalcGridSize(bmin, bmax, cs)
	return TileGrid{
		Bmin:     bmin,
		Bmax:     bmax,
		TileSize: tileSize,
		Cs:       cs,
		Width:    (gw + tileSize - 1) / tileSize,
		Height:   (gh + tileSize - 1) / tileSize,
	}
}

// TileWorldSize is the edge length of one tile in world units.
func (tg TileGrid) TileWorldSize() float32 {
	return float32(tg.TileSize) * tg.Cs
}

// TileBounds returns the world AABB of tile (tx, ty) without its border.
func (tg TileGrid) TileBounds(tx, ty int) (bmin, bmax [3]float32) {
	tcs := tg.TileWorldSize()
	bmin = [3]float32{tg.Bmin[0] + float32(tx)*tcs, tg.Bmin[1], tg.Bmin[2] + float32(ty)*tcs}
	bmax = [3]float32{tg.Bmin[0] + float32(tx+1)*tcs, tg.Bmax[1], tg.Bmin[2] + float32(ty+1)*tcs}
	return
}

// TileAt returns the coordinates of the tile containing the xz position.
func (tg TileGrid) TileAt(pos []float32) (tx, ty int) {
	tcs := tg.TileWorldSize()
	tx = int(common.Floor((pos[0] - tg.Bmin[0]) / tcs))
	ty = int(common.Floor((pos[2] - tg.Bmin[2]) / tcs))
	return
}

// BuildTile builds tile (tx, ty) of grid from the triangles the chunky mesh
// reports around it. A tile without walkable surface returns (nil, nil).
func BuildTile(ctx *RcContext, cfg RcConfig, g *geom.InputGeom, chunky *geom.ChunkyTriMesh, grid TileGrid, tx, ty int) (*BuildResult, error) {
	cfg.TileSize = grid.TileSize
	cfg.BorderSize = cfg.WalkableRadius + 3 // Reserve enough padding.
	cfg.Width = cfg.TileSize + cfg.BorderSize*2
	cfg.Height = cfg.TileSize + cfg.BorderSize*2

	cfg.Bmin, cfg.Bmax = grid.TileBounds(tx, ty)
	pad := float32(cfg.BorderSize) * cfg.Cs
	cfg.Bmin[0] -= pad
	cfg.Bmin[2] -= pad
	cfg.Bmax[0] += pad
	cfg.Bmax[2] += pad

	log := ctx.Logger().With(zap.Int("tx", tx), zap.Int("ty", ty))

	tris, areas := chunky.TrianglesInRect([2]float32{cfg.Bmin[0], cfg.Bmin[2]}, [2]float32{cfg.Bmax[0], cfg.Bmax[2]})
	if len(tris) == 0 {
		log.Debug("tile has no triangles")
		return nil, nil
	}

	ctx.Reset()
	defer ctx.Release()
	res, err := rasterizeAndBuild(ctx, &cfg, g.Verts, tris, areas, tx, ty)
	if err != nil {
		if errors.Is(err, common.ErrDegenerateGeometry) {
			ctx.Enter(StageDone)
			log.Debug("tile has no walkable surface", zap.Error(err))
			return nil, nil
		}
		var be *BuildError
		if errors.As(err, &be) {
			be.Kind = BuildTiled
			be.Tiled = true
			be.TileX = tx
			be.TileY = ty
		}
		return nil, ctx.Fail(err)
	}
	ctx.Done()
	log.Debug("tile built", zap.Int("polys", res.PolyMesh.NPolys), zap.Int("tris", len(tris)/3))
	return res, nil
}

func rasterizeAndBuild(ctx *RcContext, cfg *RcConfig, verts []float32, tris []int32, srcAreas []uint8, tx, ty int) (*BuildResult, error) {
	keep := func(r Releaser) {
		ctx.Acquire(r)
		if cfg.KeepInterResults {
			ctx.Retain(r)
		}
	}
	res := &BuildResult{}

	//
	// Step 2. Rasterize input polygon soup.
	//
	ctx.Enter(StageVoxelizing)
	solid, err := RcCreateHeightfield(cfg.Width, cfg.Height, cfg.Bmin, cfg.Bmax, cfg.Cs, cfg.Ch)
	if err != nil {
		return nil, stageError(StageVoxelizing, err, "create heightfield %dx%d", cfg.Width, cfg.Height)
	}
	keep(solid)

	// Find triangles which are walkable based on their slope and rasterize them.
	areas := append([]uint8(nil), srcAreas...)
	RcClearUnwalkableTriangles(cfg.WalkableSlopeAngle, verts, tris, areas)
	RcRasterizeTriangles(ctx, verts, tris, areas, solid, cfg.WalkableClimb)

	//
	// Step 3. Filter walkable surfaces.
	//
	ctx.Enter(StageFiltering)
	if cfg.FilterLowHangingObstacles {
		RcFilterLowHangingWalkableObstacles(cfg.WalkableClimb, solid)
	}
	if cfg.FilterLedgeSpans {
		RcFilterLedgeSpans(cfg.WalkableHeight, cfg.WalkableClimb, solid)
	}
	if cfg.FilterWalkableLowHeightSpans {
		RcFilterWalkableLowHeightSpans(cfg.WalkableHeight, solid)
	}

	//
	// Step 4. Partition walkable surface to simple regions.
	//
	ctx.Enter(StageRegionizing)
	chf, err := RcBuildCompactHeightfield(ctx, cfg.WalkableHeight, cfg.WalkableClimb, solid)
	if err != nil {
		return nil, stageError(StageRegionizing, err, "build compact heightfield")
	}
	keep(chf)
	if !cfg.KeepInterResults {
		solid.Release()
	} else {
		res.Heightfield = solid
	}

	// Erode the walkable area by agent radius.
	RcErodeWalkableArea(ctx, cfg.WalkableRadius, chf)

	// (Optional) Mark areas.
	for _, v := range cfg.AreaVolumes {
		RcMarkBoxArea(v.Bmin, v.Bmax, uint8(v.Area), chf)
	}

	if cfg.MonotonePartitioning {
		// Partition the walkable surface into simple regions without holes.
		err = RcBuildRegionsMonotone(ctx, chf, cfg.BorderSize, cfg.MinRegionArea, cfg.MergeRegionArea)
	} else {
		// Prepare for region partitioning, by calculating distance field along the walkable surface.
		RcBuildDistanceField(ctx, chf)
		// Partition the walkable surface into simple regions without holes.
		err = RcBuildRegions(ctx, chf, cfg.BorderSize, cfg.MinRegionArea, cfg.MergeRegionArea)
	}
	if err != nil {
		return nil, stageError(StageRegionizing, err, "build regions")
	}
	if chf.MaxRegions == 0 {
		return nil, stageError(StageRegionizing, common.ErrDegenerateGeometry, "no regions")
	}

	//
	// Step 5. Trace and simplify region contours.
	//
	ctx.Enter(StageContouring)
	cset, err := RcBuildContours(ctx, chf, cfg.MaxSimplificationError, cfg.MaxEdgeLen, RC_CONTOUR_TESS_WALL_EDGES)
	if err != nil {
		return nil, stageError(StageContouring, err, "build contours")
	}
	keep(cset)

	//
	// Step 6. Build polygons mesh from contours.
	//
	ctx.Enter(StagePolygonizing)
	pmesh, err := RcBuildPolyMesh(ctx, cset, cfg.MaxVertsPerPoly)
	if err != nil {
		return nil, stageError(StagePolygonizing, err, "build poly mesh from %d contours", len(cset.Conts))
	}

	//
	// Step 7. Create detail mesh which allows to access approximate height on each polygon.
	//
	ctx.Enter(StageDetailBuilding)
	dmesh, err := RcBuildPolyMeshDetail(ctx, pmesh, chf, cfg.DetailSampleDist, cfg.DetailSampleMaxError)
	if err != nil {
		return nil, stageError(StageDetailBuilding, err, "build detail mesh")
	}

	//
	// Step 8. Create Detour data from Recast poly mesh.
	//
	data, err := RcCreateNavMeshData(&NavMeshCreateParams{
		Mesh:           pmesh,
		Detail:         dmesh,
		TileX:          tx,
		TileY:          ty,
		WalkableHeight: float32(cfg.WalkableHeight) * cfg.Ch,
		WalkableRadius: float32(cfg.WalkableRadius) * cfg.Cs,
		WalkableClimb:  float32(cfg.WalkableClimb) * cfg.Ch,
	})
	if err != nil {
		return nil, stageError(StageDetailBuilding, err, "create navmesh data")
	}

	res.Data = data
	res.PolyMesh = pmesh
	res.Detail = dmesh
	if cfg.KeepInterResults {
		res.Compact = chf
		res.Contours = cset
	}
	return res, nil
}

// String summarizes the result for logs.
func (r *BuildResult) String() string {
	if r == nil || r.PolyMesh == nil {
		return "empty"
	}
	return fmt.Sprintf("%d polys, %d verts, %d detail tris", r.PolyMesh.NPolys, r.PolyMesh.NVerts, r.Detail.NTris())
}
