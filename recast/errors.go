package recast

import (
	"fmt"
)

type BuildKind string

const (
	BuildStatic BuildKind = "static"
	BuildTiled  BuildKind = "tiled"
)

// BuildError is a failed build: which kind of build, the stage that failed
// and, for tiled builds, the tile coordinates.
type BuildError struct {
	Kind   BuildKind
	Stage  BuildStage
	Tiled  bool
	TileX  int
	TileY  int
	Err    error
	Detail string
}

func (e *BuildError) Error() string {
	if e.Tiled {
		return fmt.Sprintf("%s navmesh build: tile (%d,%d): %s: %s: %v", e.Kind, e.TileX, e.TileY, e.Stage, e.Detail, e.Err)
	}
	return fmt.Sprintf("%s navmesh build: %s: %s: %v", e.Kind, e.Stage, e.Detail, e.Err)
}

func (e *BuildError) Unwrap() error { return e.Err }

func stageError(stage BuildStage, err error, format string, args ...any) *BuildError {
	return &BuildError{Kind: BuildStatic, Stage: stage, Err: err, Detail: fmt.Sprintf(format, args...)}
}
