// Package react implements the inner ReAct reasoning loop (R1-R8): build an
// observation, ask a language model what to do, compile its decision into
// concrete operations, check them against hard guardrails, gate on human
// approval, dispatch, observe results, and decide whether to loop again.
// Only Dispatch (R6) performs a physical side effect.
package react

import (
	"context"
	"time"

	"github.com/corvid-robotics/robobrain/pkg/state"
)

// Stage is one node of the ReAct pipeline.
type Stage interface {
	Name() string
	Execute(ctx context.Context, s state.BrainState) (state.BrainState, error)
}

// Pipeline runs the fixed, ordered R1-R8 sequence over a snapshot.
type Pipeline struct {
	stages []Stage
}

// NewPipeline builds a ReAct pipeline from the given stages, in the order
// they should run.
func NewPipeline(stages ...Stage) *Pipeline {
	return &Pipeline{stages: stages}
}

// Run executes every stage in order. A stage error aborts the pass.
func (p *Pipeline) Run(ctx context.Context, s state.BrainState) (state.BrainState, error) {
	return p.RunWithHook(ctx, s, nil)
}

// StageHook observes one stage's outcome, called after every stage whether
// it succeeded or failed, so pkg/orchestrator can checkpoint and trace each
// stage boundary without that concern living in the pipeline itself.
type StageHook func(stage Stage, s state.BrainState, dur time.Duration, err error)

// RunWithHook is Run with an optional per-stage observer. Once
// HumanApproval (R5) suspends or rejects this pass, the remaining stages
// up to and including Dispatch (R6) and ObserveResult (R7) are skipped in
// favor of jumping straight to the final stage (StopOrLoop, R8) -- the Go
// equivalent of the approval_decision "wait"/"rejected" edges in
// graph/react_graph.py going directly to END without ever reaching
// dispatch_skills. This is the only thing that makes it safe for Dispatch
// to assume, when it does run, that approval has already been granted.
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

		if stage.Name() == "human_approval" && awaitingApprovalDecision(s) {
			return p.runFinalStage(ctx, s, hook)
		}
	}
	return s, nil
}

// awaitingApprovalDecision reports whether R5 just suspended the pass
// pending a human response, or the pass just carried a fresh rejection --
// in both cases nothing proposed this pass has been cleared for dispatch.
func awaitingApprovalDecision(s state.BrainState) bool {
	return s.React.StopReason == "waiting_for_approval" || s.React.StopReason == "user_rejected"
}

// runFinalStage executes only the pipeline's last configured stage
// (StopOrLoop in the default wiring), so a suspended/rejected pass still
// gets a trace line and a loop_decision metric without running anything
// in between.
func (p *Pipeline) runFinalStage(ctx context.Context, s state.BrainState, hook StageHook) (state.BrainState, error) {
	if len(p.stages) == 0 {
		return s, nil
	}
	final := p.stages[len(p.stages)-1]
	start := time.Now()
	next, err := final.Execute(ctx, s)
	if hook != nil {
		hook(final, next, time.Since(start), err)
	}
	if err != nil {
		return s, err
	}
	return next, nil
}

// Stages returns the pipeline's stages in run order.
func (p *Pipeline) Stages() []Stage { return p.stages }
