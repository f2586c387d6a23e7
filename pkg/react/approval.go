package react

import (
	"context"

	"github.com/corvid-robotics/robobrain/pkg/state"
)

// HumanApproval is R5: a two-call state machine. With no response present
// and NeedApproval set, it stamps the snapshot with a suspension marker
// and leaves the actual notification (Slack, etc.) to the orchestrator
// layer. With a response present, it applies APPROVE/EDIT/REJECT and
// clears the response so it is never replayed.
type HumanApproval struct{}

func (HumanApproval) Name() string { return "human_approval" }

func (HumanApproval) Execute(_ context.Context, s state.BrainState) (state.BrainState, error) {
	next := s.Clone()

	if next.React.ProposedOps == nil || !next.React.ProposedOps.NeedApproval {
		return next, nil
	}

	if next.HCI.ApprovalResponse == nil {
		return triggerApprovalInterrupt(next), nil
	}
	return handleApprovalResponse(next), nil
}

func triggerApprovalInterrupt(s state.BrainState) state.BrainState {
	s.HCI.InterruptPayload = map[string]interface{}{
		"type":    "approval_required",
		"payload": s.React.ProposedOps.ApprovalPayload,
	}
	s.React.StopReason = "waiting_for_approval"
	s.Trace.Lines = append(s.Trace.Lines, "[human_approval] triggered approval interrupt")
	return s
}

func handleApprovalResponse(s state.BrainState) state.BrainState {
	response := *s.HCI.ApprovalResponse
	ops := *s.React.ProposedOps

	switch response.Action {
	case state.ApprovalApprove:
		s.React.StopReason = ""
		s.Trace.Lines = append(s.Trace.Lines, "[human_approval] user approved, continuing")

	case state.ApprovalEdit:
		ops = applyEdits(ops, response.EditedParams)
		s.React.StopReason = ""
		s.Trace.Lines = append(s.Trace.Lines, "[human_approval] user edited params")

	case state.ApprovalReject:
		ops = state.ProposedOps{
			ToCancel:        ops.ToCancel,
			ToDispatch:      nil,
			ToSpeak:         []string{"Operation rejected by user."},
			NeedApproval:    false,
			ApprovalPayload: nil,
		}
		s.React.StopReason = "user_rejected"
		s.Trace.Lines = append(s.Trace.Lines, "[human_approval] user rejected, cancelling dispatch")

	default:
		s.React.StopReason = "user_rejected"
	}

	s.React.ProposedOps = &ops
	s.HCI.InterruptPayload = map[string]interface{}{}
	s.HCI.ApprovalResponse = nil
	return s
}

// applyEdits merges edited params into every proposed dispatch. Once
// edited, the batch no longer needs approval.
func applyEdits(ops state.ProposedOps, edited map[string]interface{}) state.ProposedOps {
	editedParams, ok := edited["params"].(map[string]interface{})
	if !ok {
		ops.NeedApproval = false
		ops.ApprovalPayload = nil
		return ops
	}

	dispatches := make([]state.DispatchOp, len(ops.ToDispatch))
	for i, d := range ops.ToDispatch {
		merged := make(map[string]interface{}, len(d.Params)+len(editedParams))
		for k, v := range d.Params {
			merged[k] = v
		}
		for k, v := range editedParams {
			merged[k] = v
		}
		dispatches[i] = state.DispatchOp{Skill: d.Skill, Params: merged}
	}

	return state.ProposedOps{
		ToCancel:        ops.ToCancel,
		ToDispatch:      dispatches,
		ToSpeak:         ops.ToSpeak,
		NeedApproval:    false,
		ApprovalPayload: nil,
	}
}
