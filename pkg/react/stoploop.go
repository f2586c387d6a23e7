package react

import (
	"context"
	"fmt"
	"strings"

	"github.com/corvid-robotics/robobrain/pkg/state"
)

const (
	// MaxIterations bounds a single ReAct session; hitting it always exits
	// the loop even if nothing else has gone wrong.
	MaxIterations = 20
	// MaxConsecutiveFailures exits the loop before it keeps retrying a
	// skill that keeps failing.
	MaxConsecutiveFailures = 3
)

// loopOutcome is the internal continue/exit verdict; only its string form
// ("continue"/"exit") is ever observable, via Trace.Metrics.
type loopOutcome string

const (
	loopContinue loopOutcome = "continue"
	loopExit     loopOutcome = "exit"
)

// StopOrLoop is R8: the final stage of a ReAct pass, deciding whether
// another iteration should run or the loop should suspend/terminate.
type StopOrLoop struct{}

func (StopOrLoop) Name() string { return "stop_or_loop" }

func (StopOrLoop) Execute(_ context.Context, s state.BrainState) (state.BrainState, error) {
	next := s.Clone()

	outcome, reason := evaluate(next)
	next.React.StopReason = reason
	next.Trace.Lines = append(next.Trace.Lines, fmt.Sprintf(
		"[stop_or_loop] decision=%s reason=%s", outcome, reason,
	))
	if next.Trace.Metrics == nil {
		next.Trace.Metrics = map[string]interface{}{}
	}
	next.Trace.Metrics["loop_decision"] = string(outcome)
	return next, nil
}

func evaluate(s state.BrainState) (loopOutcome, string) {
	if s.React.Decision != nil {
		switch s.React.Decision.Type {
		case state.DecisionFinish:
			return loopExit, "task_completed"
		case state.DecisionAbort:
			return loopExit, "task_aborted"
		case state.DecisionAskHuman:
			return loopExit, "need_human_intervention"
		}
	}

	if s.React.StopReason == "waiting_for_approval" {
		return loopExit, "waiting_for_approval"
	}
	if s.React.StopReason == "user_rejected" {
		return loopExit, "user_rejected"
	}

	if s.React.Iter >= MaxIterations {
		return loopExit, fmt.Sprintf("max_iterations_reached_%d", MaxIterations)
	}

	if count := consecutiveFailures(s); count >= MaxConsecutiveFailures {
		return loopExit, fmt.Sprintf("consecutive_failures_%d", count)
	}

	if s.Tasks.Mode == state.ModeSafe || s.Tasks.Mode == state.ModeCharge {
		return loopExit, fmt.Sprintf("mode_changed_to_%s", s.Tasks.Mode)
	}

	return loopContinue, ""
}

// consecutiveFailures scans the trace log backward, counting FAILED lines
// until a SUCCESS/COMPLETED marker breaks the streak.
func consecutiveFailures(s state.BrainState) int {
	count := 0
	for i := len(s.Trace.Lines) - 1; i >= 0; i-- {
		line := s.Trace.Lines[i]
		switch {
		case strings.Contains(line, "FAILED"):
			count++
		case strings.Contains(line, "SUCCESS"), strings.Contains(line, "COMPLETED"), strings.Contains(line, "completed"):
			return count
		}
	}
	return count
}
