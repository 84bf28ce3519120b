package config

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/gorustyt/irrnav/common"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults must validate: %v", err)
	}
	b := cfg.Build
	if b.CellSize != 0.3 || b.CellHeight != 0.2 {
		t.Errorf("voxel size = %v/%v", b.CellSize, b.CellHeight)
	}
	if b.AgentHeight != 2 || b.AgentRadius != 0.6 || b.AgentMaxClimb != 0.9 || b.AgentMaxSlope != 45 {
		t.Errorf("agent defaults = %+v", b)
	}
	if b.VertsPerPoly != 6 || b.MonotonePartitioning || b.KeepInterResults {
		t.Errorf("mesh defaults = %+v", b)
	}
	if cfg.Crowd.MaxAgents != 1024 {
		t.Errorf("max agents = %d", cfg.Crowd.MaxAgents)
	}
}

func TestBuildConfigValidate(t *testing.T) {
	cases := map[string]func(*BuildConfig){
		"zero cell size":   func(c *BuildConfig) { c.CellSize = 0 },
		"negative radius":  func(c *BuildConfig) { c.AgentRadius = -1 },
		"slope too steep":  func(c *BuildConfig) { c.AgentMaxSlope = 90 },
		"too many verts":   func(c *BuildConfig) { c.VertsPerPoly = 7 },
		"too few verts":    func(c *BuildConfig) { c.VertsPerPoly = 2 },
		"negative detail":  func(c *BuildConfig) { c.DetailSampleDist = -1 },
		"zero cell height": func(c *BuildConfig) { c.CellHeight = 0 },
	}
	for name, mutate := range cases {
		c := DefaultBuildConfig()
		mutate(&c)
		if err := c.Validate(); !errors.Is(err, common.ErrInput) {
			t.Errorf("%s: expected input error, got %v", name, err)
		}
	}
}

func TestParseOverridesDefaults(t *testing.T) {
	doc := []byte(`
build:
  cell_size: 0.25
  monotone_partitioning: true
tiles:
  tile_size: 48
  failure_policy: skip
  compression: zstd
query:
  half_extents: [1, 4, 1]
`)
	cfg, err := Parse(doc)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.Build.CellSize != 0.25 || !cfg.Build.MonotonePartitioning {
		t.Errorf("build overrides not applied: %+v", cfg.Build)
	}
	if cfg.Build.CellHeight != 0.2 {
		t.Errorf("unset keys must keep defaults, cell_height = %v", cfg.Build.CellHeight)
	}
	if cfg.Tiles.TileSize != 48 || cfg.Tiles.FailurePolicy != FailSkip || cfg.Tiles.Compression != CompressionZstd {
		t.Errorf("tile overrides not applied: %+v", cfg.Tiles)
	}
	if cfg.Query.HalfExtents != [3]float32{1, 4, 1} {
		t.Errorf("half extents = %v", cfg.Query.HalfExtents)
	}
}

func TestParseEmptyDocument(t *testing.T) {
	cfg, err := Parse(nil)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.Build != DefaultBuildConfig() {
		t.Errorf("empty document must yield defaults")
	}
}

func TestParseRejects(t *testing.T) {
	cases := map[string]string{
		"unknown key":    "build:\n  cell_sise: 0.3\n",
		"wrong type":     "build:\n  cell_size: fast\n",
		"unknown policy": "tiles:\n  failure_policy: retry\n",
		"out of range":   "build:\n  cell_size: -1\n",
		"bad extents":    "query:\n  half_extents: [1, 2]\n",
		"not yaml":       "build: [",
	}
	for name, doc := range cases {
		if _, err := Parse([]byte(doc)); !errors.Is(err, common.ErrInput) {
			t.Errorf("%s: expected input error, got %v", name, err)
		}
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	cfg := Default()
	cfg.Build.EdgeMaxLen = 10
	cfg.Tiles.Workers = 4
	path := filepath.Join(t.TempDir(), "navmesh.yaml")
	if err := Save(cfg, path); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.Build.EdgeMaxLen != 10 || got.Tiles.Workers != 4 {
		t.Errorf("round trip lost values: %+v %+v", got.Build, got.Tiles)
	}
}
