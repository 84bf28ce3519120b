package recast

import (
	"github.com/gorustyt/irrnav/common"
	"github.com/gorustyt/irrnav/config"
	"github.com/gorustyt/irrnav/geom"
)

// / Specifies a configuration to use when performing Recast builds.
// / Values are in voxel units unless noted otherwise.
type RcConfig struct {
	// / The width of the field along the x-axis. [Limit: >= 0] [Units: vx]
	Width int
	// / The height of the field along the z-axis. [Limit: >= 0] [Units: vx]
	Height int
	// / The width/height size of tile's on the xz-plane. [Limit: >= 0] [Units: vx]
	TileSize int
	// / The size of the non-navigable border around the heightfield. [Limit: >=0] [Units: vx]
	BorderSize int
	// / The xz-plane cell size to use for fields. [Units: wu]
	Cs float32
	// / The y-axis cell size to use for fields. [Units: wu]
	Ch float32
	// / The minimum bounds of the field's AABB. [(x, y, z)] [Units: wu]
	Bmin [3]float32
	// / The maximum bounds of the field's AABB. [(x, y, z)] [Units: wu]
	Bmax [3]float32
	// / The maximum slope that is considered walkable. [Units: Degrees]
	WalkableSlopeAngle float32
	// / Minimum floor to 'ceiling' height that will still allow the floor area to
	// / be considered walkable. [Limit: >= 3] [Units: vx]
	WalkableHeight int
	// / Maximum ledge height that is considered to still be traversable. [Units: vx]
	WalkableClimb int
	// / The distance to erode/shrink the walkable area of the heightfield away from
	// / obstructions. [Units: vx]
	WalkableRadius int
	// / The maximum allowed length for contour edges along the border of the mesh. [Units: vx]
	MaxEdgeLen int
	// / The maximum distance a simplified contour's border edges should deviate
	// / the original raw contour. [Units: vx]
	MaxSimplificationError float32
	// / The minimum number of cells allowed to form isolated island areas. [Units: vx]
	MinRegionArea int
	// / Any regions with a span count smaller than this value will, if possible,
	// / be merged with larger regions. [Units: vx]
	MergeRegionArea int
	// / The maximum number of vertices allowed for polygons generated during the
	// / contour to polygon conversion process. [Limit: >= 3]
	MaxVertsPerPoly int
	// / Sets the sampling distance to use when generating the detail mesh. [Units: wu]
	DetailSampleDist float32
	// / The maximum distance the detail mesh surface should deviate from heightfield data. [Units: wu]
	DetailSampleMaxError float32

	MonotonePartitioning         bool
	FilterLowHangingObstacles    bool
	FilterLedgeSpans             bool
	FilterWalkableLowHeightSpans bool
	// / Keep the heightfields, contours and meshes of the build in the result.
	KeepInterResults bool
	// / Boxes whose walkable spans are re-tagged with an area after erosion.
	AreaVolumes []AreaVolume
}

// AreaVolume re-tags the walkable surface inside a world-space box.
type AreaVolume struct {
	Bmin [3]float32
	Bmax [3]float32
	Area geom.Area
}

// NewRcConfig converts world-unit build options into voxel units for the
// field bounded by bmin/bmax.
func NewRcConfig(c config.BuildConfig, bmin, bmax [3]float32) RcConfig {
	cfg := RcConfig{
		Cs:                     c.CellSize,
		Ch:                     c.CellHeight,
		WalkableSlopeAngle:     c.AgentMaxSlope,
		WalkableHeight:         int(common.Ceil(c.AgentHeight / c.CellHeight)),
		WalkableClimb:          int(common.Floor(c.AgentMaxClimb / c.CellHeight)),
		WalkableRadius:         int(common.Ceil(c.AgentRadius / c.CellSize)),
		MaxEdgeLen:             int(c.EdgeMaxLen / c.CellSize),
		MaxSimplificationError: c.EdgeMaxError,
		MinRegionArea:          int(common.Sqr(c.RegionMinSize)),
		MergeRegionArea:        int(common.Sqr(c.RegionMergeSize)),
		MaxVertsPerPoly:        c.VertsPerPoly,
		DetailSampleMaxError:   c.CellHeight * c.DetailSampleMaxError,
		MonotonePartitioning:   c.MonotonePartitioning,
		KeepInterResults:       c.KeepInterResults,

		FilterLowHangingObstacles:    c.FilterLowHangingObstacles,
		FilterLedgeSpans:             c.FilterLedgeSpans,
		FilterWalkableLowHeightSpans: c.FilterWalkableLowHeightSpans,
	}
	if c.DetailSampleDist >= 0.9 {
		cfg.DetailSampleDist = c.CellSize * c.DetailSampleDist
	}
	cfg.Bmin = bmin
	cfg.Bmax = bmax
	cfg.Width, cfg.Height = RcCalcGridSize(bmin, bmax, cfg.Cs)
	return cfg
}

// RcCalcBounds returns the AABB of a flat vertex slice.
func RcCalcBounds(verts []float32) (bmin, bmax [3]float32) {
	copy(bmin[:], verts[:3])
	copy(bmax[:], verts[:3])
	for i := 3; i+2 < len(verts); i += 3 {
		common.Vmin(bmin[:], verts[i:])
		common.Vmax(bmax[:], verts[i:])
	}
	return
}

// RcCalcGridSize returns the number of cells covering bmin..bmax on the xz-plane.
func RcCalcGridSize(bmin, bmax [3]float32, cellSize float32) (sizeX, sizeZ int) {
	sizeX = int((bmax[0]-bmin[0])/cellSize + 0.5)
	sizeZ = int((bmax[2]-bmin[2])/cellSize + 0.5)
	return
}
