package react_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/corvid-robotics/robobrain/pkg/react"
	"github.com/corvid-robotics/robobrain/pkg/state"
)

type fakeObserver struct {
	done     map[string]bool
	results  map[string]*state.SkillResult
	feedback map[string]map[string]interface{}
}

func (f *fakeObserver) IsDone(_ context.Context, goalID string) (bool, error) {
	return f.done[goalID], nil
}

func (f *fakeObserver) Result(_ context.Context, goalID string) (*state.SkillResult, error) {
	return f.results[goalID], nil
}

func (f *fakeObserver) Feedback(_ context.Context, goalID string) (map[string]interface{}, error) {
	return f.feedback[goalID], nil
}

var _ = Describe("ObserveResult", func() {
	It("moves a finished skill from running to a completed result", func() {
		observer := &fakeObserver{
			done:    map[string]bool{"g1": true},
			results: map[string]*state.SkillResult{"g1": {Success: true, Code: "OK"}},
		}
		stage := react.ObserveResult{Observer: observer}
		s := state.New("session-1")
		s.Skills.Running = []state.RunningSkill{{GoalID: "g1", SkillName: "speak"}}

		out, err := stage.Execute(context.Background(), s)
		Expect(err).NotTo(HaveOccurred())
		Expect(out.Skills.Running).To(BeEmpty())
		Expect(out.Skills.LastResult.Code).To(Equal("OK"))
	})

	It("synthesizes a TIMEOUT failure for a skill past its deadline", func() {
		observer := &fakeObserver{done: map[string]bool{}}
		stage := react.ObserveResult{Observer: observer}
		s := state.New("session-1")
		s.Skills.Running = []state.RunningSkill{{
			GoalID: "g1", SkillName: "navigate_to_pose",
			StartTime: time.Now().Add(-2 * time.Second), TimeoutSeconds: 1,
		}}

		out, err := stage.Execute(context.Background(), s)
		Expect(err).NotTo(HaveOccurred())
		Expect(out.Skills.Running).To(BeEmpty())
		Expect(out.Skills.LastResult.Code).To(Equal("TIMEOUT"))
		Expect(out.Skills.LastResult.Success).To(BeFalse())
	})

	It("retains a skill that is neither done nor timed out", func() {
		observer := &fakeObserver{done: map[string]bool{}}
		stage := react.ObserveResult{Observer: observer}
		s := state.New("session-1")
		s.Skills.Running = []state.RunningSkill{{
			GoalID: "g1", SkillName: "navigate_to_pose",
			StartTime: time.Now(), TimeoutSeconds: 60,
		}}

		out, err := stage.Execute(context.Background(), s)
		Expect(err).NotTo(HaveOccurred())
		Expect(out.Skills.Running).To(HaveLen(1))
	})

	It("appends a tool-result message for each completed skill", func() {
		observer := &fakeObserver{
			done:    map[string]bool{"g1": true},
			results: map[string]*state.SkillResult{"g1": {Success: true}},
		}
		stage := react.ObserveResult{Observer: observer}
		s := state.New("session-1")
		s.Skills.Running = []state.RunningSkill{{GoalID: "g1", SkillName: "speak"}}

		out, err := stage.Execute(context.Background(), s)
		Expect(err).NotTo(HaveOccurred())
		last := out.Messages.Messages[len(out.Messages.Messages)-1]
		Expect(last.Type).To(Equal("tool_result"))
	})

	It("recomputes busy resources from the remaining running skills", func() {
		observer := &fakeObserver{done: map[string]bool{}}
		stage := react.ObserveResult{Observer: observer}
		s := state.New("session-1")
		s.Skills.Running = []state.RunningSkill{{
			GoalID: "g1", StartTime: time.Now(), TimeoutSeconds: 60,
			ResourcesOccupied: []string{state.ResourceBase},
		}}

		out, err := stage.Execute(context.Background(), s)
		Expect(err).NotTo(HaveOccurred())
		Expect(out.Robot.Resources[state.ResourceBase]).To(BeTrue())
	})
})
