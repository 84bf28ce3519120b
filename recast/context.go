package recast

import (
	"time"

	"github.com/gorustyt/irrnav/common/logger"
	"go.uber.org/zap"
)

// BuildStage is the state of one build.
type BuildStage int

const (
	StageIdle BuildStage = iota
	StageVoxelizing
	StageFiltering
	StageRegionizing
	StageContouring
	StagePolygonizing
	StageDetailBuilding
	StageDone
	StageFailed
)

var stageNames = [...]string{
	StageIdle:           "idle",
	StageVoxelizing:     "voxelizing",
	StageFiltering:      "filtering",
	StageRegionizing:    "regionizing",
	StageContouring:     "contouring",
	StagePolygonizing:   "polygonizing",
	StageDetailBuilding: "detail-building",
	StageDone:           "done",
	StageFailed:         "failed",
}

func (s BuildStage) String() string {
	if int(s) < len(stageNames) {
		return stageNames[s]
	}
	return "unknown"
}

// Releaser is implemented by every intermediate artifact of a build.
type Releaser interface {
	Release()
}

// RcContext is the build context: it owns the intermediate artifacts of one
// build, times its stages and logs its progress. Artifacts handed to Acquire
// are released by Release unless they were retained.
type RcContext struct {
	log   *zap.Logger
	stage BuildStage

	start      time.Time
	stageStart time.Time
	timers     map[BuildStage]time.Duration
	total      time.Duration

	artifacts []Releaser
	retained  map[Releaser]bool
}

// NewRcContext returns a context logging through log, or the global logger
// when log is nil.
func NewRcContext(log *zap.Logger) *RcContext {
	return &RcContext{
		log:      logger.Or(log),
		timers:   map[BuildStage]time.Duration{},
		retained: map[Releaser]bool{},
	}
}

func (ctx *RcContext) Logger() *zap.Logger { return ctx.log }
func (ctx *RcContext) Stage() BuildStage   { return ctx.stage }

// Enter moves the build to stage s, closing the timer of the previous stage.
func (ctx *RcContext) Enter(s BuildStage) {
	now := time.Now()
	if ctx.stage == StageIdle {
		ctx.start = now
	} else if ctx.stage < StageDone {
		ctx.timers[ctx.stage] += now.Sub(ctx.stageStart)
	}
	if s >= StageDone {
		ctx.total += now.Sub(ctx.start)
	}
	ctx.log.Debug("build stage", zap.Stringer("from", ctx.stage), zap.Stringer("to", s))
	ctx.stage = s
	ctx.stageStart = now
}

// Done marks a successful build.
func (ctx *RcContext) Done() {
	ctx.Enter(StageDone)
}

// Fail marks the build failed and returns err for chaining.
func (ctx *RcContext) Fail(err error) error {
	stage := ctx.stage
	ctx.Enter(StageFailed)
	ctx.log.Warn("build stage failed", zap.Stringer("stage", stage), zap.Error(err))
	return err
}

// Reset returns the context to idle so it can time another build; retained
// artifacts stay retained.
func (ctx *RcContext) Reset() {
	ctx.stage = StageIdle
}

// StageTime returns the accumulated time spent in stage s.
func (ctx *RcContext) StageTime(s BuildStage) time.Duration {
	return ctx.timers[s]
}

// TotalTime returns the accumulated wall time of every finished build.
func (ctx *RcContext) TotalTime() time.Duration {
	return ctx.total
}

// Acquire registers an artifact for release and returns it.
func (ctx *RcContext) Acquire(r Releaser) {
	ctx.artifacts = append(ctx.artifacts, r)
}

// Retain exempts an acquired artifact from Release.
func (ctx *RcContext) Retain(r Releaser) {
	ctx.retained[r] = true
}

// Release frees every acquired artifact that was not retained.
func (ctx *RcContext) Release() {
	for _, r := range ctx.artifacts {
		if !ctx.retained[r] {
			r.Release()
		}
	}
	ctx.artifacts = ctx.artifacts[:0]
}

// LogStageTimes writes the per-stage timings at debug level.
func (ctx *RcContext) LogStageTimes() {
	fields := make([]zap.Field, 0, len(stageNames)+1)
	for s := StageVoxelizing; s < StageDone; s++ {
		fields = append(fields, zap.Duration(s.String(), ctx.timers[s]))
	}
	fields = append(fields, zap.Duration("total", ctx.total))
	ctx.log.Debug("build timings", fields...)
}
