package react

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/corvid-robotics/robobrain/pkg/state"
)

// ResultObserver polls a dispatched skill's progress. IsDone, Feedback,
// and Result all return the zero value with no error when there is
// nothing new to report.
type ResultObserver interface {
	IsDone(ctx context.Context, goalID string) (bool, error)
	Result(ctx context.Context, goalID string) (*state.SkillResult, error)
	Feedback(ctx context.Context, goalID string) (map[string]interface{}, error)
}

// ObserveResult is R7: resolves finished or timed-out skills, and retains
// the rest as still running.
type ObserveResult struct {
	Observer ResultObserver
}

func (ObserveResult) Name() string { return "observe_result" }

// maxConcurrentPolls bounds how many running skills are polled at once;
// observers are I/O-bound (ROS2 action status, HTTP, etc.) so unbounded
// fan-out would let one pass saturate the backend.
const maxConcurrentPolls = 8

// pollOutcome is one running skill's polling result, gathered concurrently
// and then folded back into the snapshot in original order so trace lines
// stay deterministic regardless of which goroutine finishes first.
type pollOutcome struct {
	skill    state.RunningSkill
	done     bool
	timedOut bool
	result   state.SkillResult
	feedback map[string]interface{}
}

func (o ObserveResult) Execute(ctx context.Context, s state.BrainState) (state.BrainState, error) {
	next := s.Clone()

	running := next.Skills.Running
	outcomes := make([]pollOutcome, len(running))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentPolls)

	for i, skill := range running {
		i, skill := i, skill
		g.Go(func() error {
			outcomes[i] = o.poll(gctx, skill)
			return nil
		})
	}
	_ = g.Wait() // poll() never returns an error; failures are folded into the outcome itself

	var stillRunning []state.RunningSkill
	var completed []state.SkillResult

	for _, outcome := range outcomes {
		skill := outcome.skill
		switch {
		case outcome.done:
			completed = append(completed, outcome.result)
			next.Trace.Lines = append(next.Trace.Lines, fmt.Sprintf(
				"[observe_result] %s finished: success=%v code=%s", skill.SkillName, outcome.result.Success, outcome.result.Code,
			))
		case outcome.timedOut:
			completed = append(completed, outcome.result)
			next.Trace.Lines = append(next.Trace.Lines, fmt.Sprintf(
				"[observe_result] %s timed out after %ds", skill.SkillName, skill.TimeoutSeconds,
			))
		default:
			if outcome.feedback != nil {
				next.Trace.Lines = append(next.Trace.Lines, fmt.Sprintf(
					"[observe_result] %s feedback: %v", skill.SkillName, outcome.feedback,
				))
			}
			stillRunning = append(stillRunning, skill)
		}
	}

	next.Skills.Running = stillRunning
	next.Robot.Resources = recomputeBusyResources(stillRunning)

	if len(completed) > 0 {
		last := completed[len(completed)-1]
		next.Skills.LastResult = &last
		for _, result := range completed {
			next.Messages.Messages = append(next.Messages.Messages, state.Message{
				Role:    "system",
				Type:    "tool_result",
				Content: fmt.Sprintf("Skill result: %s success=%v code=%s", result.SkillName, result.Success, result.Code),
			})
		}
	}

	return next, nil
}

// poll resolves one running skill's state: done, timed out, or still
// running (with best-effort feedback). It never returns an error itself —
// an observer failure degrades to "still running" the same way the
// original sequential implementation did.
func (o ObserveResult) poll(ctx context.Context, skill state.RunningSkill) pollOutcome {
	done := false
	if o.Observer != nil {
		var err error
		done, err = o.Observer.IsDone(ctx, skill.GoalID)
		if err != nil {
			done = false
		}
	}

	if done {
		return pollOutcome{skill: skill, done: true, result: o.fetchResult(ctx, skill)}
	}

	elapsed := time.Since(skill.StartTime)
	if skill.TimeoutSeconds > 0 && elapsed > time.Duration(skill.TimeoutSeconds)*time.Second {
		return pollOutcome{skill: skill, timedOut: true, result: state.SkillResult{
			GoalID:      skill.GoalID,
			SkillName:   skill.SkillName,
			Success:     false,
			Code:        "TIMEOUT",
			CompletedAt: time.Now(),
		}}
	}

	var feedback map[string]interface{}
	if o.Observer != nil {
		if fb, ferr := o.Observer.Feedback(ctx, skill.GoalID); ferr == nil {
			feedback = fb
		}
	}
	return pollOutcome{skill: skill, feedback: feedback}
}

func (o ObserveResult) fetchResult(ctx context.Context, skill state.RunningSkill) state.SkillResult {
	if o.Observer == nil {
		return state.SkillResult{GoalID: skill.GoalID, SkillName: skill.SkillName, Success: true, CompletedAt: time.Now()}
	}
	result, err := o.Observer.Result(ctx, skill.GoalID)
	if err != nil || result == nil {
		return state.SkillResult{GoalID: skill.GoalID, SkillName: skill.SkillName, Success: true, CompletedAt: time.Now()}
	}
	if result.GoalID == "" {
		result.GoalID = skill.GoalID
	}
	if result.SkillName == "" {
		result.SkillName = skill.SkillName
	}
	if result.CompletedAt.IsZero() {
		result.CompletedAt = time.Now()
	}
	return *result
}
