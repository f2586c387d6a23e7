package state_test

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/corvid-robotics/robobrain/pkg/state"
)

var _ = Describe("Marshal/Unmarshal", func() {
	It("round-trips a freshly constructed snapshot", func() {
		s := state.New("session-1")

		data, err := state.Marshal(s)
		Expect(err).NotTo(HaveOccurred())

		out, err := state.Unmarshal(data)
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(Equal(s))
	})

	It("is a fixed point under double round-trip", func() {
		s := state.New("session-1")
		s.World.Zones = []string{"kitchen", "hallway"}
		s.World.Obstacles = []state.Obstacle{{X: 1, Y: 2, W: 0.5, H: 0.5, CollisionRisk: true}}

		once, err := state.Marshal(s)
		Expect(err).NotTo(HaveOccurred())
		decodedOnce, err := state.Unmarshal(once)
		Expect(err).NotTo(HaveOccurred())

		twice, err := state.Marshal(decodedOnce)
		Expect(err).NotTo(HaveOccurred())
		decodedTwice, err := state.Unmarshal(twice)
		Expect(err).NotTo(HaveOccurred())

		Expect(decodedTwice).To(Equal(decodedOnce))
	})

	It("preserves a fully populated snapshot, including nil-able pointer fields", func() {
		activeID := "task-1"
		deadline := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

		s := state.New("session-2")
		s.HCI = state.HCIState{
			Utterance:        "please fetch the mail",
			InterruptClass:   state.InterruptNewGoal,
			InterruptPayload: map[string]interface{}{"confidence": 0.9},
			ApprovalResponse: &state.ApprovalResponse{
				Action:       state.ApprovalEdit,
				EditedParams: map[string]interface{}{"speed": 0.2},
			},
		}
		s.Tasks = state.TasksState{
			Inbox: []state.PlanFragment{{GoalString: "fetch mail", Priority: 3}},
			Queue: []state.Task{{
				ID:                "task-1",
				GoalString:        "fetch mail",
				Priority:          3,
				Deadline:          &deadline,
				RequiredResources: []string{state.ResourceBase, state.ResourceArm},
				Preemptible:       true,
				Status:            state.TaskRunning,
				CreatedAt:         deadline.Add(-time.Hour),
				Metadata:          map[string]interface{}{"source": "voice"},
			}},
			ActiveTaskID: &activeID,
			Mode:         state.ModeExec,
		}
		s.Skills.Registry["navigate_to_pose"] = state.SkillDef{
			Name:              "navigate_to_pose",
			InterfaceKind:     state.InterfaceAction,
			ArgsSchemaJSON:    []byte(`{"type":"object"}`),
			RequiredResources: []string{state.ResourceBase},
			CancelSupported:   true,
			TimeoutSeconds:    60,
			ErrorMap:          map[string]string{"timeout": "NAV_TIMEOUT"},
		}
		s.React.Decision = &state.Decision{
			Type: state.DecisionContinue,
			Ops:  []state.Op{{Skill: "navigate_to_pose", Params: map[string]interface{}{"x": 1.0}}},
		}
		s.React.ProposedOps = &state.ProposedOps{
			ToDispatch:   []state.DispatchOp{{Skill: "navigate_to_pose", Params: map[string]interface{}{"x": 1.0}}},
			NeedApproval: true,
		}

		data, err := state.Marshal(s)
		Expect(err).NotTo(HaveOccurred())

		out, err := state.Unmarshal(data)
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(Equal(s))
	})

	It("errors on malformed input", func() {
		_, err := state.Unmarshal([]byte("not json"))
		Expect(err).To(HaveOccurred())
	})
})
