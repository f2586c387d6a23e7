package react_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/corvid-robotics/robobrain/pkg/react"
	"github.com/corvid-robotics/robobrain/pkg/state"
)

var _ = Describe("BuildObservation", func() {
	var stage react.BuildObservation

	It("increments the iteration counter", func() {
		s := state.New("session-1")
		s.React.Iter = 3

		out, err := stage.Execute(context.Background(), s)
		Expect(err).NotTo(HaveOccurred())
		Expect(out.React.Iter).To(Equal(4))
	})

	It("counts obstacles flagged as collision risk", func() {
		s := state.New("session-1")
		s.World.Obstacles = []state.Obstacle{{CollisionRisk: true}, {CollisionRisk: false}}

		out, err := stage.Execute(context.Background(), s)
		Expect(err).NotTo(HaveOccurred())
		world, ok := out.React.Observation["world"].(map[string]interface{})
		Expect(ok).To(BeTrue())
		Expect(world["risk_count"]).To(Equal(1))
	})

	It("includes a preview of the task queue with sequence and source", func() {
		s := state.New("session-1")
		s.Tasks.Queue = []state.Task{
			{ID: "t1", GoalString: "navigate_to:kitchen", Status: state.TaskRunning, Metadata: map[string]interface{}{"source": "user"}},
		}

		out, err := stage.Execute(context.Background(), s)
		Expect(err).NotTo(HaveOccurred())
		tasks, ok := out.React.Observation["tasks"].([]map[string]interface{})
		Expect(ok).To(BeTrue())
		Expect(tasks).To(HaveLen(1))
		Expect(tasks[0]["sequence"]).To(Equal(0))
		Expect(tasks[0]["source"]).To(Equal("user"))
	})

	It("includes the last skill result when present", func() {
		s := state.New("session-1")
		s.Skills.LastResult = &state.SkillResult{GoalID: "g1", SkillName: "speak", Success: true, Code: "OK"}

		out, err := stage.Execute(context.Background(), s)
		Expect(err).NotTo(HaveOccurred())
		Expect(out.React.Observation).To(HaveKey("last_result"))
	})

	It("appends a formatted system observation message", func() {
		s := state.New("session-1")

		out, err := stage.Execute(context.Background(), s)
		Expect(err).NotTo(HaveOccurred())
		Expect(out.Messages.Messages).NotTo(BeEmpty())
		last := out.Messages.Messages[len(out.Messages.Messages)-1]
		Expect(last.Role).To(Equal("system"))
		Expect(last.Type).To(Equal("observation"))
	})
})
