package react_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/corvid-robotics/robobrain/pkg/react"
	"github.com/corvid-robotics/robobrain/pkg/state"
)

var _ = Describe("Guardrails", func() {
	var stage react.Guardrails

	run := func(s state.BrainState) state.BrainState {
		out, err := stage.Execute(context.Background(), s)
		Expect(err).NotTo(HaveOccurred())
		return out
	}

	baseRegistry := func() map[string]state.SkillDef {
		return map[string]state.SkillDef{
			"speak": {
				Name:           "speak",
				ArgsSchemaJSON: []byte(`{"type":"object","required":["text"],"properties":{"text":{"type":"string"}}}`),
			},
			"navigate_to_pose": {
				Name:              "navigate_to_pose",
				RequiredResources: []string{state.ResourceBase},
			},
		}
	}

	It("passes a well-formed dispatch through untouched", func() {
		s := state.New("session-1")
		s.Skills.Registry = baseRegistry()
		s.React.ProposedOps = &state.ProposedOps{
			ToDispatch: []state.DispatchOp{{Skill: "speak", Params: map[string]interface{}{"text": "hello"}}},
		}

		out := run(s)
		Expect(out.React.ProposedOps.ToDispatch).To(HaveLen(1))
		Expect(out.React.Decision).To(BeNil())
	})

	It("rejects dispatch to a skill not in the registry", func() {
		s := state.New("session-1")
		s.Skills.Registry = baseRegistry()
		s.React.ProposedOps = &state.ProposedOps{
			ToDispatch: []state.DispatchOp{{Skill: "unknown_skill", Params: map[string]interface{}{}}},
		}

		out := run(s)
		Expect(out.React.ProposedOps.ToDispatch).To(BeEmpty())
		Expect(out.React.Decision.Type).To(Equal(state.DecisionReplan))
		Expect(out.Skills.LastResult.Code).To(Equal("GUARDRAILS_FAILED"))
	})

	It("rejects a dispatch missing a required schema field", func() {
		s := state.New("session-1")
		s.Skills.Registry = baseRegistry()
		s.React.ProposedOps = &state.ProposedOps{
			ToDispatch: []state.DispatchOp{{Skill: "speak", Params: map[string]interface{}{}}},
		}

		out := run(s)
		Expect(out.React.ProposedOps.ToDispatch).To(BeEmpty())
	})

	It("rejects a dispatch whose required resource is already busy", func() {
		s := state.New("session-1")
		s.Skills.Registry = baseRegistry()
		s.Robot.Resources[state.ResourceBase] = true
		s.React.ProposedOps = &state.ProposedOps{
			ToDispatch: []state.DispatchOp{{Skill: "navigate_to_pose", Params: map[string]interface{}{}}},
		}

		out := run(s)
		Expect(out.React.ProposedOps.ToDispatch).To(BeEmpty())
	})

	It("rejects a dispatch whose resource is occupied by a running skill", func() {
		s := state.New("session-1")
		s.Skills.Registry = baseRegistry()
		s.Skills.Running = []state.RunningSkill{{GoalID: "g1", ResourcesOccupied: []string{state.ResourceBase}}}
		s.React.ProposedOps = &state.ProposedOps{
			ToDispatch: []state.DispatchOp{{Skill: "navigate_to_pose", Params: map[string]interface{}{}}},
		}

		out := run(s)
		Expect(out.React.ProposedOps.ToDispatch).To(BeEmpty())
	})

	It("escalates to ASK_HUMAN when more than two errors accumulate", func() {
		s := state.New("session-1")
		s.Skills.Registry = baseRegistry()
		s.React.ProposedOps = &state.ProposedOps{
			ToDispatch: []state.DispatchOp{
				{Skill: "a"}, {Skill: "b"}, {Skill: "c"},
			},
		}

		out := run(s)
		Expect(out.React.Decision.Type).To(Equal(state.DecisionAskHuman))
	})

	It("denies a manipulate dispatch via the supplementary policy when gripper isn't declared", func() {
		s := state.New("session-1")
		s.Skills.Registry = map[string]state.SkillDef{
			"manipulate": {Name: "manipulate", RequiredResources: []string{}},
		}
		s.Robot.Resources[state.ResourceGripper] = true
		s.React.ProposedOps = &state.ProposedOps{
			ToDispatch: []state.DispatchOp{{Skill: "manipulate", Params: map[string]interface{}{}}},
		}

		out := run(s)
		Expect(out.React.ProposedOps.ToDispatch).To(BeEmpty())
	})
})
