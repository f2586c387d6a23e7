package react_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/corvid-robotics/robobrain/pkg/react"
	"github.com/corvid-robotics/robobrain/pkg/state"
)

var _ = Describe("HumanApproval", func() {
	var stage react.HumanApproval

	run := func(s state.BrainState) state.BrainState {
		out, err := stage.Execute(context.Background(), s)
		Expect(err).NotTo(HaveOccurred())
		return out
	}

	It("passes through untouched when no approval is needed", func() {
		s := state.New("session-1")
		s.React.ProposedOps = &state.ProposedOps{NeedApproval: false}

		out := run(s)
		Expect(out.React.StopReason).To(Equal(""))
	})

	It("suspends with waiting_for_approval when approval is needed and no response exists", func() {
		s := state.New("session-1")
		s.React.ProposedOps = &state.ProposedOps{NeedApproval: true, ApprovalPayload: map[string]interface{}{"reason": "risky"}}

		out := run(s)
		Expect(out.React.StopReason).To(Equal("waiting_for_approval"))
		Expect(out.HCI.InterruptPayload["type"]).To(Equal("approval_required"))
	})

	It("clears the stop reason and keeps dispatches on APPROVE", func() {
		s := state.New("session-1")
		s.React.ProposedOps = &state.ProposedOps{
			NeedApproval: true,
			ToDispatch:   []state.DispatchOp{{Skill: "manipulate", Params: map[string]interface{}{}}},
		}
		s.HCI.ApprovalResponse = &state.ApprovalResponse{Action: state.ApprovalApprove}

		out := run(s)
		Expect(out.React.StopReason).To(Equal(""))
		Expect(out.React.ProposedOps.ToDispatch).To(HaveLen(1))
		Expect(out.HCI.ApprovalResponse).To(BeNil())
	})

	It("merges edited params into every dispatch on EDIT", func() {
		s := state.New("session-1")
		s.React.ProposedOps = &state.ProposedOps{
			NeedApproval: true,
			ToDispatch:   []state.DispatchOp{{Skill: "manipulate", Params: map[string]interface{}{"force": 10}}},
		}
		s.HCI.ApprovalResponse = &state.ApprovalResponse{
			Action:       state.ApprovalEdit,
			EditedParams: map[string]interface{}{"params": map[string]interface{}{"force": 2}},
		}

		out := run(s)
		Expect(out.React.ProposedOps.ToDispatch[0].Params["force"]).To(Equal(2))
		Expect(out.React.ProposedOps.NeedApproval).To(BeFalse())
	})

	It("empties dispatches and sets user_rejected on REJECT", func() {
		s := state.New("session-1")
		s.React.ProposedOps = &state.ProposedOps{
			NeedApproval: true,
			ToDispatch:   []state.DispatchOp{{Skill: "manipulate"}},
		}
		s.HCI.ApprovalResponse = &state.ApprovalResponse{Action: state.ApprovalReject}

		out := run(s)
		Expect(out.React.StopReason).To(Equal("user_rejected"))
		Expect(out.React.ProposedOps.ToDispatch).To(BeEmpty())
	})
})
