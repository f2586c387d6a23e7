package react

import (
	"context"
	"fmt"
	"time"

	apperrors "github.com/corvid-robotics/robobrain/internal/errors"
	"github.com/corvid-robotics/robobrain/pkg/state"
)

// SkillExecutor performs the actual physical dispatch/cancel, e.g. a ROS2
// action client or a simulator. Dispatch returns the executor's goal id.
type SkillExecutor interface {
	Dispatch(ctx context.Context, skill string, params map[string]interface{}) (string, error)
	Cancel(ctx context.Context, goalID string) (bool, error)
}

// IdempotencyLedger guards against re-dispatching an operation that
// already ran in a prior, crashed attempt at the same (session, iter,
// op-index) triple, when a checkpoint is replayed.
type IdempotencyLedger interface {
	Seen(ctx context.Context, effectID string) (bool, error)
	Record(ctx context.Context, effectID string) error
}

// Dispatch is R6, the only stage in the whole pipeline allowed to produce
// a physical side effect. It cancels first, then dispatches, checking
// each dispatch's effect id against the idempotency ledger before it
// reaches the executor.
type Dispatch struct {
	Executor SkillExecutor
	Ledger   IdempotencyLedger
}

func (Dispatch) Name() string { return "dispatch_skills" }

func (d Dispatch) Execute(ctx context.Context, s state.BrainState) (state.BrainState, error) {
	next := s.Clone()

	if next.React.ProposedOps == nil {
		return next, nil
	}
	ops := *next.React.ProposedOps

	// Defense in depth: the pipeline itself already stops before reaching
	// this stage while an approval is outstanding (see Pipeline.RunWithHook),
	// but Dispatch must never issue a physical effect for an op still
	// awaiting approval even if it is ever reached directly.
	if ops.NeedApproval {
		next.Trace.Lines = append(next.Trace.Lines, "[dispatch_skills] skipped: awaiting human approval")
		return next, nil
	}

	running := append([]state.RunningSkill{}, next.Skills.Running...)

	for _, goalID := range ops.ToCancel {
		ok, err := d.cancel(ctx, goalID)
		if err != nil {
			return s, apperrors.Wrapf(err, apperrors.ErrorTypeSkillFailed, "cancel failed for %s", goalID)
		}
		if ok {
			running = removeRunning(running, goalID)
			next.Trace.Lines = append(next.Trace.Lines, fmt.Sprintf("[dispatch_skills] cancelled %s", goalID))
		}
	}

	for i, dispatch := range ops.ToDispatch {
		if dispatch.Skill == "" {
			continue
		}

		effectID := fmt.Sprintf("%s:%d:%d", next.SessionID, next.React.Iter, i)
		if d.Ledger != nil {
			seen, err := d.Ledger.Seen(ctx, effectID)
			if err != nil {
				return s, apperrors.Wrapf(err, apperrors.ErrorTypeStore, "idempotency check failed for %s", effectID)
			}
			if seen {
				next.Trace.Lines = append(next.Trace.Lines, fmt.Sprintf(
					"[dispatch_skills] skipped replayed dispatch %s", effectID,
				))
				continue
			}
		}

		def, hasDef := next.Skills.Registry[dispatch.Skill]
		timeoutSeconds := 60
		var resources []string
		if hasDef {
			timeoutSeconds = def.TimeoutSeconds
			resources = def.RequiredResources
		}

		goalID, err := d.dispatch(ctx, dispatch.Skill, dispatch.Params)
		if err != nil {
			return s, apperrors.Wrapf(err, apperrors.ErrorTypeSkillFailed, "dispatch failed for %s", dispatch.Skill)
		}

		running = append(running, state.RunningSkill{
			GoalID:            goalID,
			SkillName:         dispatch.Skill,
			StartTime:         time.Now(),
			TimeoutSeconds:    timeoutSeconds,
			ResourcesOccupied: resources,
			Params:            dispatch.Params,
		})

		if d.Ledger != nil {
			if err := d.Ledger.Record(ctx, effectID); err != nil {
				return s, apperrors.Wrapf(err, apperrors.ErrorTypeStore, "failed to record effect %s", effectID)
			}
		}

		next.Trace.Lines = append(next.Trace.Lines, fmt.Sprintf(
			"[dispatch_skills] dispatched %s -> %s", dispatch.Skill, goalID,
		))
	}

	next.Skills.Running = running
	next.Robot.Resources = recomputeBusyResources(running)
	return next, nil
}

func (d Dispatch) cancel(ctx context.Context, goalID string) (bool, error) {
	if d.Executor == nil {
		return true, nil
	}
	return d.Executor.Cancel(ctx, goalID)
}

func (d Dispatch) dispatch(ctx context.Context, skill string, params map[string]interface{}) (string, error) {
	if d.Executor == nil {
		return "", apperrors.New(apperrors.ErrorTypeInternal, "no skill executor configured")
	}
	return d.Executor.Dispatch(ctx, skill, params)
}

func removeRunning(running []state.RunningSkill, goalID string) []state.RunningSkill {
	out := make([]state.RunningSkill, 0, len(running))
	for _, r := range running {
		if r.GoalID != goalID {
			out = append(out, r)
		}
	}
	return out
}

func recomputeBusyResources(running []state.RunningSkill) map[string]bool {
	occupied := map[string]bool{
		state.ResourceBase:    false,
		state.ResourceArm:     false,
		state.ResourceGripper: false,
	}
	for _, r := range running {
		for _, res := range r.ResourcesOccupied {
			occupied[res] = true
		}
	}
	return occupied
}
