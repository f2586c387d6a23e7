package react

import (
	"context"
	"fmt"
	"strings"

	"github.com/corvid-robotics/robobrain/pkg/kernel"
	"github.com/corvid-robotics/robobrain/pkg/state"
)

// highRiskSkills always require human approval, regardless of the
// high_risk param flag.
var highRiskSkills = map[string]bool{
	"navigate_to_unknown": true,
	"manipulate":          true,
	"dock":                true,
}

// CompileOps is R3: turns the model's Decision into a concrete set of
// cancel/dispatch/speak operations, resolving zone names and flagging
// high-risk dispatches for approval.
type CompileOps struct{}

func (CompileOps) Name() string { return "compile_ops" }

func (CompileOps) Execute(_ context.Context, s state.BrainState) (state.BrainState, error) {
	next := s.Clone()

	if next.React.Decision == nil {
		next.React.ProposedOps = &state.ProposedOps{}
		return next, nil
	}

	ops := compile(next)
	next.React.ProposedOps = &ops

	next.Trace.Lines = append(next.Trace.Lines, fmt.Sprintf(
		"[compile_ops] cancel=%d dispatch=%d need_approval=%v",
		len(ops.ToCancel), len(ops.ToDispatch), ops.NeedApproval,
	))
	return next, nil
}

func compile(s state.BrainState) state.ProposedOps {
	decision := *s.React.Decision
	runningGoalIDs := func() []string {
		ids := make([]string, 0, len(s.Skills.Running))
		for _, r := range s.Skills.Running {
			ids = append(ids, r.GoalID)
		}
		return ids
	}

	switch decision.Type {
	case state.DecisionAbort:
		return state.ProposedOps{ToCancel: runningGoalIDs(), ToSpeak: []string{"Task aborted."}}

	case state.DecisionFinish:
		return state.ProposedOps{ToCancel: runningGoalIDs(), ToSpeak: []string{"Task completed."}}

	case state.DecisionAskHuman:
		return state.ProposedOps{
			NeedApproval: true,
			ToSpeak:      []string{fmt.Sprintf("Need human intervention: %s", decision.Reason)},
			ApprovalPayload: map[string]interface{}{
				"reason":  decision.Reason,
				"context": s.React.Observation,
			},
		}

	case state.DecisionSwitchTask:
		return state.ProposedOps{ToCancel: runningGoalIDs(), ToSpeak: []string{"Switching task."}}

	case state.DecisionContinue, state.DecisionReplan, state.DecisionRetry:
		return compileContinue(s, decision)

	default:
		return state.ProposedOps{}
	}
}

func compileContinue(s state.BrainState, decision state.Decision) state.ProposedOps {
	var toCancel []string
	if s.Tasks.PreemptFlag {
		for _, r := range s.Skills.Running {
			toCancel = append(toCancel, r.GoalID)
		}
	}

	var toDispatch []state.DispatchOp
	needApproval := false
	var approvalPayload map[string]interface{}

	for _, op := range decision.Ops {
		if op.Skill == "" {
			continue
		}
		params := resolveTargets(s, op.Params)
		toDispatch = append(toDispatch, state.DispatchOp{Skill: op.Skill, Params: params})

		if requiresApproval(op.Skill, params) {
			needApproval = true
			approvalPayload = map[string]interface{}{
				"skill":  op.Skill,
				"params": params,
				"reason": "High-risk operation requires approval",
			}
		}
	}

	return state.ProposedOps{
		ToCancel:        toCancel,
		ToDispatch:      toDispatch,
		NeedApproval:    needApproval,
		ApprovalPayload: approvalPayload,
	}
}

// resolveTargets rewrites a "target" param that names a zone (or "home")
// into its world-frame x/y coordinate, leaving numeric targets untouched.
func resolveTargets(s state.BrainState, params map[string]interface{}) map[string]interface{} {
	if params == nil {
		return params
	}
	target, ok := params["target"].(string)
	if !ok {
		return params
	}

	out := make(map[string]interface{}, len(params)+1)
	for k, v := range params {
		out[k] = v
	}

	zone := strings.TrimSpace(strings.ToLower(target))
	if zone == "home" {
		out["x"] = s.Robot.HomePose.X
		out["y"] = s.Robot.HomePose.Y
		return out
	}
	if xy, ok := kernel.ZoneTable[zone]; ok {
		out["x"] = xy[0]
		out["y"] = xy[1]
	}
	return out
}

func requiresApproval(skill string, params map[string]interface{}) bool {
	if highRiskSkills[skill] {
		return true
	}
	if hr, ok := params["high_risk"].(bool); ok && hr {
		return true
	}
	return false
}
