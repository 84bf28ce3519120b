// Package config holds the immutable option sets of the navmesh compiler,
// the tiled builder, the query engine and the crowd simulator.
package config

import (
	"errors"
	"fmt"

	"github.com/gorustyt/irrnav/common"
)

// BuildConfig carries every option of one navmesh build. Values are in world
// units unless the name says otherwise; it is passed by value and never
// mutated by the compiler.
type BuildConfig struct {
	CellSize      float32 `yaml:"cell_size"`
	CellHeight    float32 `yaml:"cell_height"`
	AgentHeight   float32 `yaml:"agent_height"`
	AgentRadius   float32 `yaml:"agent_radius"`
	AgentMaxClimb float32 `yaml:"agent_max_climb"`
	AgentMaxSlope float32 `yaml:"agent_max_slope"` // degrees

	// Region sizes are in cells; the compiler squares them into areas.
	RegionMinSize   float32 `yaml:"region_min_size"`
	RegionMergeSize float32 `yaml:"region_merge_size"`

	EdgeMaxLen   float32 `yaml:"edge_max_len"`
	EdgeMaxError float32 `yaml:"edge_max_error"`
	VertsPerPoly int     `yaml:"verts_per_poly"`

	// Detail sample distance is in cells, the max error in cell heights.
	DetailSampleDist     float32 `yaml:"detail_sample_dist"`
	DetailSampleMaxError float32 `yaml:"detail_sample_max_error"`

	MonotonePartitioning bool `yaml:"monotone_partitioning"`
	KeepInterResults     bool `yaml:"keep_inter_results"`

	FilterLowHangingObstacles    bool `yaml:"filter_low_hanging_obstacles"`
	FilterLedgeSpans             bool `yaml:"filter_ledge_spans"`
	FilterWalkableLowHeightSpans bool `yaml:"filter_walkable_low_height_spans"`
}

// DefaultBuildConfig returns the stock agent and voxel settings.
func DefaultBuildConfig() BuildConfig {
	return BuildConfig{
		CellSize:             0.3,
		CellHeight:           0.2,
		AgentHeight:          2.0,
		AgentRadius:          0.6,
		AgentMaxClimb:        0.9,
		AgentMaxSlope:        45.0,
		RegionMinSize:        8,
		RegionMergeSize:      20,
		EdgeMaxLen:           12.0,
		EdgeMaxError:         1.3,
		VertsPerPoly:         6,
		DetailSampleDist:     6.0,
		DetailSampleMaxError: 1.0,

		FilterLowHangingObstacles:    true,
		FilterLedgeSpans:             true,
		FilterWalkableLowHeightSpans: true,
	}
}

// Validate reports every out-of-range option at once.
func (c BuildConfig) Validate() error {
	var errs []error
	positive := func(name string, v float32) {
		if !(v > 0) {
			errs = append(errs, fmt.Errorf("%s must be > 0, got %v", name, v))
		}
	}
	nonNegative := func(name string, v float32) {
		if v < 0 {
			errs = append(errs, fmt.Errorf("%s must be >= 0, got %v", name, v))
		}
	}
	positive("cell_size", c.CellSize)
	positive("cell_height", c.CellHeight)
	positive("agent_height", c.AgentHeight)
	nonNegative("agent_radius", c.AgentRadius)
	nonNegative("agent_max_climb", c.AgentMaxClimb)
	if c.AgentMaxSlope < 0 || c.AgentMaxSlope >= 90 {
		errs = append(errs, fmt.Errorf("agent_max_slope must be in [0, 90), got %v", c.AgentMaxSlope))
	}
	nonNegative("region_min_size", c.RegionMinSize)
	nonNegative("region_merge_size", c.RegionMergeSize)
	nonNegative("edge_max_len", c.EdgeMaxLen)
	nonNegative("edge_max_error", c.EdgeMaxError)
	if c.VertsPerPoly < 3 || c.VertsPerPoly > MaxVertsPerPoly {
		errs = append(errs, fmt.Errorf("verts_per_poly must be in [3, %d], got %d", MaxVertsPerPoly, c.VertsPerPoly))
	}
	nonNegative("detail_sample_dist", c.DetailSampleDist)
	nonNegative("detail_sample_max_error", c.DetailSampleMaxError)
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", common.ErrInput, errors.Join(errs...))
}

// MaxVertsPerPoly is the largest polygon the graph can store.
const MaxVertsPerPoly = 6

type FailurePolicy string

const (
	// FailAbort fails the whole tiled build on the first failing tile.
	FailAbort FailurePolicy = "abort"
	// FailSkip logs the failing tile and leaves it empty.
	FailSkip FailurePolicy = "skip"
)

type TileEncoding string

const (
	EncodingBinary   TileEncoding = "binary"
	EncodingProtobuf TileEncoding = "protobuf"
)

type Compression string

const (
	CompressionNone Compression = "none"
	CompressionZstd Compression = "zstd"
)

// TileConfig configures the tiled builder.
type TileConfig struct {
	TileSize        int           `yaml:"tile_size"` // cells
	FailurePolicy   FailurePolicy `yaml:"failure_policy"`
	Workers         int           `yaml:"workers"`
	Encoding        TileEncoding  `yaml:"encoding"`
	Compression     Compression   `yaml:"compression"`
	MaxTiles        int           `yaml:"max_tiles"`
	MaxPolysPerTile int           `yaml:"max_polys_per_tile"`
}

func DefaultTileConfig() TileConfig {
	return TileConfig{
		TileSize:        32,
		FailurePolicy:   FailAbort,
		Workers:         1,
		Encoding:        EncodingBinary,
		Compression:     CompressionNone,
		MaxTiles:        1 << 14,
		MaxPolysPerTile: 1 << 14,
	}
}

func (c TileConfig) Validate() error {
	var errs []error
	if c.TileSize <= 0 {
		errs = append(errs, fmt.Errorf("tile_size must be > 0, got %d", c.TileSize))
	}
	switch c.FailurePolicy {
	case FailAbort, FailSkip:
	default:
		errs = append(errs, fmt.Errorf("unknown failure_policy %q", c.FailurePolicy))
	}
	if c.Workers < 1 {
		errs = append(errs, fmt.Errorf("workers must be >= 1, got %d", c.Workers))
	}
	switch c.Encoding {
	case EncodingBinary, EncodingProtobuf:
	default:
		errs = append(errs, fmt.Errorf("unknown encoding %q", c.Encoding))
	}
	switch c.Compression {
	case CompressionNone, CompressionZstd:
	default:
		errs = append(errs, fmt.Errorf("unknown compression %q", c.Compression))
	}
	if c.MaxTiles <= 0 || c.MaxPolysPerTile <= 0 {
		errs = append(errs, fmt.Errorf("max_tiles and max_polys_per_tile must be > 0"))
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", common.ErrInput, errors.Join(errs...))
}

// AgentDefaults fill the zero fields of agent parameters.
type AgentDefaults struct {
	Radius              float32 `yaml:"radius"`
	Height              float32 `yaml:"height"`
	MaxAcceleration     float32 `yaml:"max_acceleration"`
	MaxSpeed            float32 `yaml:"max_speed"`
	CollisionQueryRange float32 `yaml:"collision_query_range"` // multiples of the radius
	SeparationWeight    float32 `yaml:"separation_weight"`
	ArrivalRadius       float32 `yaml:"arrival_radius"` // multiples of the radius
}

// CrowdConfig configures the crowd simulator.
type CrowdConfig struct {
	MaxAgents           int           `yaml:"max_agents"`
	MaxAgentRadius      float32       `yaml:"max_agent_radius"`
	PathRequestsPerTick int           `yaml:"path_requests_per_tick"`
	Agent               AgentDefaults `yaml:"agent"`
}

func DefaultCrowdConfig() CrowdConfig {
	return CrowdConfig{
		MaxAgents:           1024,
		MaxAgentRadius:      0.6,
		PathRequestsPerTick: 8,
		Agent: AgentDefaults{
			Radius:              0.6,
			Height:              2.0,
			MaxAcceleration:     8.0,
			MaxSpeed:            3.5,
			CollisionQueryRange: 12,
			SeparationWeight:    2,
			ArrivalRadius:       1,
		},
	}
}

func (c CrowdConfig) Validate() error {
	var errs []error
	if c.MaxAgents <= 0 {
		errs = append(errs, fmt.Errorf("max_agents must be > 0, got %d", c.MaxAgents))
	}
	if !(c.MaxAgentRadius > 0) {
		errs = append(errs, fmt.Errorf("max_agent_radius must be > 0, got %v", c.MaxAgentRadius))
	}
	if c.PathRequestsPerTick <= 0 {
		errs = append(errs, fmt.Errorf("path_requests_per_tick must be > 0, got %d", c.PathRequestsPerTick))
	}
	if !(c.Agent.Radius > 0) || !(c.Agent.Height > 0) || !(c.Agent.MaxSpeed > 0) || !(c.Agent.MaxAcceleration > 0) {
		errs = append(errs, fmt.Errorf("agent radius, height, max_speed and max_acceleration must be > 0"))
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", common.ErrInput, errors.Join(errs...))
}

// QueryConfig configures the query engine.
type QueryConfig struct {
	HalfExtents [3]float32 `yaml:"half_extents"`
	MaxNodes    int        `yaml:"max_nodes"`
}

func DefaultQueryConfig() QueryConfig {
	return QueryConfig{
		HalfExtents: [3]float32{2, 8, 2},
		MaxNodes:    2048,
	}
}

func (c QueryConfig) Validate() error {
	if !(c.HalfExtents[0] > 0) || !(c.HalfExtents[1] > 0) || !(c.HalfExtents[2] > 0) {
		return fmt.Errorf("%w: half_extents must be > 0, got %v", common.ErrInput, c.HalfExtents)
	}
	if c.MaxNodes <= 0 || c.MaxNodes > 65535 {
		return fmt.Errorf("%w: max_nodes must be in [1, 65535], got %d", common.ErrInput, c.MaxNodes)
	}
	return nil
}

type LoggingConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// Config is the document loaded from YAML.
type Config struct {
	Build   BuildConfig   `yaml:"build"`
	Tiles   TileConfig    `yaml:"tiles"`
	Crowd   CrowdConfig   `yaml:"crowd"`
	Query   QueryConfig   `yaml:"query"`
	Logging LoggingConfig `yaml:"logging"`
}

// Default returns a config with all default values.
func Default() *Config {
	return &Config{
		Build: DefaultBuildConfig(),
		Tiles: DefaultTileConfig(),
		Crowd: DefaultCrowdConfig(),
		Query: DefaultQueryConfig(),
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Validate checks every section.
func (c *Config) Validate() error {
	return errors.Join(c.Build.Validate(), c.Tiles.Validate(), c.Crowd.Validate(), c.Query.Validate())
}
