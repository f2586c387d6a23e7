// Package kernel implements the outer control pipeline (K1-K6): ingesting
// user input and telemetry, arbitrating an operating mode, maintaining the
// task queue, and routing into the ReAct engine or a kernel-level handler.
// Every stage has the shape func(BrainState) (BrainState, error); only
// Telemetry Sync and World Update perform (read-only) I/O through an
// injected source, and none of the six stages dispatches a physical effect.
package kernel

import (
	"context"
	"time"

	"github.com/corvid-robotics/robobrain/pkg/state"
)

// Stage is one node of the Kernel pipeline.
type Stage interface {
	Name() string
	Execute(ctx context.Context, s state.BrainState) (state.BrainState, error)
}

// Pipeline runs a fixed, ordered sequence of kernel stages over a snapshot.
// Stage order is total and fixed: K1 -> K2 -> K3 -> K4 -> K5 -> K6.
type Pipeline struct {
	stages []Stage
}

// NewPipeline builds the standard K1-K6 pipeline from the given stages, in
// the order they should run.
func NewPipeline(stages ...Stage) *Pipeline {
	return &Pipeline{stages: stages}
}

// Run executes every stage in order, threading the snapshot through each.
// A stage error aborts the pass and is returned unwrapped; callers
// (pkg/orchestrator) are responsible for checkpointing the last good
// snapshot and wrapping the error for the trace.
func (p *Pipeline) Run(ctx context.Context, s state.BrainState) (state.BrainState, error) {
	return p.RunWithHook(ctx, s, nil)
}

// StageHook observes one stage's outcome. It is called after every stage,
// success or failure, so a caller (pkg/orchestrator) can checkpoint the
// snapshot and emit tracing/metrics at each stage boundary without the
// pipeline itself taking on those concerns.
type StageHook func(stage Stage, s state.BrainState, dur time.Duration, err error)

// RunWithHook is Run with an optional per-stage observer.
func (p *Pipeline) RunWithHook(ctx context.Context, s state.BrainState, hook StageHook) (state.BrainState, error) {
	for _, stage := range p.stages {
		start := time.Now()
		next, err := stage.Execute(ctx, s)
		if hook != nil {
			hook(stage, next, time.Since(start), err)
		}
		if err != nil {
			return s, err
		}
		s = next
	}
	return s, nil
}

// Stages returns the pipeline's stages in run order.
func (p *Pipeline) Stages() []Stage { return p.stages }
