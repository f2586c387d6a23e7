// Package orchestrator composes the Kernel (K1-K6) and ReAct (R1-R8)
// pipelines into a running session: single-writer-per-session execution, a
// checkpoint at every stage boundary, Prometheus metrics, and OpenTelemetry
// spans keyed the same way checkpoints are, by (session, stage).
package orchestrator

import (
	"context"
	"errors"
	"time"

	"github.com/go-logr/logr"

	apperrors "github.com/corvid-robotics/robobrain/internal/errors"
	"github.com/corvid-robotics/robobrain/pkg/checkpoint"
	"github.com/corvid-robotics/robobrain/pkg/kernel"
	"github.com/corvid-robotics/robobrain/pkg/notify"
	"github.com/corvid-robotics/robobrain/pkg/react"
	"github.com/corvid-robotics/robobrain/pkg/state"
)

// Orchestrator drives Kernel and ReAct pipelines for any number of
// sessions, serializing each session's own turns but running different
// sessions fully concurrently.
type Orchestrator struct {
	Kernel        *kernel.Pipeline
	React         *react.Pipeline
	Store         checkpoint.Store
	Notifier      notify.ApprovalNotifier
	MaxIterations int
	Log           logr.Logger
	Metrics       *Metrics

	// SkillRegistry seeds state.SkillsState.Registry on every freshly
	// created session, the same one-time step the original CLI's
	// _init_skills performed before the first turn. A session restored
	// from a checkpoint keeps whatever registry it was checkpointed with.
	SkillRegistry map[string]state.SkillDef

	sessions sessionRegistry
}

// New builds an Orchestrator. A nil store falls back to an in-memory one
// (fine for tests and single-process demos, but loses all state on
// restart); a nil notifier makes human-approval interrupts silent --
// R5 still suspends the loop, nothing pages out.
func New(kernelPipeline *kernel.Pipeline, reactPipeline *react.Pipeline, store checkpoint.Store, notifier notify.ApprovalNotifier, log logr.Logger) *Orchestrator {
	if store == nil {
		store = checkpoint.NewMemoryStore()
	}
	return &Orchestrator{
		Kernel:        kernelPipeline,
		React:         reactPipeline,
		Store:         store,
		Notifier:      notifier,
		MaxIterations: react.MaxIterations,
		Log:           log,
		Metrics:       NewMetrics(),
	}
}

// RunTurn drives one outer Kernel pass for sessionID, with utterance (may
// be empty) injected as the HCI input. If the Kernel routes into the
// ReAct loop, it then iterates R1-R8 until StopOrLoop exits or
// MaxIterations is hit. It holds the session's single-writer lock for its
// entire duration: two concurrent turns against the same session
// serialize rather than interleave stage execution, matching the
// "single-writer-per-session" discipline the snapshot model depends on.
func (o *Orchestrator) RunTurn(ctx context.Context, sessionID, utterance string) (state.BrainState, error) {
	sess := o.sessions.acquire(sessionID)
	sess.mu.Lock()
	defer sess.mu.Unlock()

	snap, err := o.loadOrInit(ctx, sessionID)
	if err != nil {
		return snap, err
	}
	snap.HCI.Utterance = utterance
	if utterance != "" {
		_ = o.Store.AppendMessage(ctx, sessionID, "user", utterance)
	}

	snap, err = o.runKernel(ctx, snap)
	if err != nil {
		return snap, err
	}

	target := kernel.RouteFor(snap.Tasks.Mode)
	o.Metrics.routeTotal.WithLabelValues(string(target)).Inc()

	if target != kernel.RouteReactLoop {
		return snap, nil
	}
	return o.runReactLoop(ctx, snap)
}

// ResumeApproval delivers a pending human-approval response and resumes
// the ReAct loop from wherever it suspended. It is the counterpart to the
// interrupt HumanApproval (R5) raises: that stage stamps
// React.StopReason = "waiting_for_approval" and stops the loop; this
// method clears it by feeding the response back in at the top of R1.
func (o *Orchestrator) ResumeApproval(ctx context.Context, sessionID string, response state.ApprovalResponse) (state.BrainState, error) {
	sess := o.sessions.acquire(sessionID)
	sess.mu.Lock()
	defer sess.mu.Unlock()

	snap, err := o.loadOrInit(ctx, sessionID)
	if err != nil {
		return snap, err
	}
	snap.HCI.ApprovalResponse = &response
	return o.runReactLoop(ctx, snap)
}

// loadOrInit loads the session's latest checkpoint, or seeds a fresh
// BrainState if none exists yet.
func (o *Orchestrator) loadOrInit(ctx context.Context, sessionID string) (state.BrainState, error) {
	cp, err := o.Store.Load(ctx, sessionID, "")
	if err == nil {
		return cp.Snapshot, nil
	}
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) && appErr.Type == apperrors.ErrorTypeNotFound {
		fresh := state.New(sessionID)
		for name, def := range o.SkillRegistry {
			fresh.Skills.Registry[name] = def
		}
		return fresh, nil
	}
	return state.BrainState{}, apperrors.Wrap(err, apperrors.ErrorTypeStore, "failed to load session checkpoint")
}

// runKernel runs the Kernel pipeline once, checkpointing and tracing every
// stage boundary.
func (o *Orchestrator) runKernel(ctx context.Context, snap state.BrainState) (state.BrainState, error) {
	sessionID := snap.SessionID
	out, err := o.Kernel.RunWithHook(ctx, snap, func(stage kernel.Stage, s state.BrainState, dur time.Duration, stageErr error) {
		o.onStage(ctx, "kernel", sessionID, stage.Name(), s, dur, stageErr)
	})
	if err != nil {
		return snap, apperrors.Wrap(err, apperrors.ErrorTypeInternal, "kernel pipeline failed")
	}
	return out, nil
}

// runReactLoop iterates the ReAct pipeline until StopOrLoop signals exit,
// MaxIterations is reached, or the context is cancelled. A
// "waiting_for_approval" stop fires the configured notifier exactly once
// per suspension.
func (o *Orchestrator) runReactLoop(ctx context.Context, snap state.BrainState) (state.BrainState, error) {
	maxIter := o.MaxIterations
	if maxIter <= 0 {
		maxIter = react.MaxIterations
	}

	sessionID := snap.SessionID
	for i := 0; i < maxIter; i++ {
		if err := ctx.Err(); err != nil {
			return snap, err
		}

		out, err := o.React.RunWithHook(ctx, snap, func(stage react.Stage, s state.BrainState, dur time.Duration, stageErr error) {
			o.onStage(ctx, "react", sessionID, stage.Name(), s, dur, stageErr)
		})
		if err != nil {
			return snap, apperrors.Wrap(err, apperrors.ErrorTypeInternal, "react pipeline failed")
		}
		snap = out

		if snap.React.StopReason == "waiting_for_approval" {
			o.Metrics.approvalsTotal.Inc()
			o.notifyApproval(ctx, snap)
		}

		decision, _ := snap.Trace.Metrics["loop_decision"].(string)
		if decision != "continue" {
			o.Metrics.reactIterations.WithLabelValues(snap.React.StopReason).Observe(float64(snap.React.Iter))
			return snap, nil
		}
	}
	return snap, nil
}

func (o *Orchestrator) notifyApproval(ctx context.Context, snap state.BrainState) {
	if o.Notifier == nil || snap.React.ProposedOps == nil {
		return
	}
	if err := o.Notifier.NotifyApprovalRequired(ctx, snap.SessionID, snap.React.ProposedOps.ApprovalPayload); err != nil {
		o.Log.Error(err, "failed to notify approval required", "session_id", snap.SessionID)
	}
}

// onStage is the shared body behind both kernel.StageHook and
// react.StageHook: it records the stage's duration and error-count
// metrics, opens and closes a trace span, and checkpoints the resulting
// snapshot. Checkpointing happens even on a stage error, since the
// snapshot handed to the hook is the pre-stage one in that case (see
// kernel.Pipeline.RunWithHook/react.Pipeline.RunWithHook) and is
// therefore always safe to persist as "last good state".
func (o *Orchestrator) onStage(ctx context.Context, pipeline, sessionID, stageName string, s state.BrainState, dur time.Duration, stageErr error) {
	spanCtx, span := startStageSpan(ctx, pipeline, sessionID, stageName)
	endStageSpan(span, stageErr)

	o.Metrics.stageDuration.WithLabelValues(pipeline, stageName).Observe(dur.Seconds())
	if stageErr != nil {
		o.Metrics.stageErrors.WithLabelValues(pipeline, stageName).Inc()
	}

	if _, err := o.Store.Save(spanCtx, sessionID, s, pipeline+"."+stageName, nil); err != nil {
		o.Log.Error(err, "failed to checkpoint stage", "session_id", sessionID, "stage", stageName)
	}
}
