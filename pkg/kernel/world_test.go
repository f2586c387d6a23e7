package kernel_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/corvid-robotics/robobrain/pkg/kernel"
	"github.com/corvid-robotics/robobrain/pkg/state"
)

type fakeWorldSource struct {
	zones       []string
	obstacles   []state.Obstacle
	accessible  map[string]bool
}

func (f *fakeWorldSource) GetZones(context.Context) ([]string, error) { return f.zones, nil }
func (f *fakeWorldSource) GetObstacles(context.Context) ([]state.Obstacle, error) {
	return f.obstacles, nil
}
func (f *fakeWorldSource) GetZoneAccessible(_ context.Context, zone string) (bool, error) {
	if f.accessible == nil {
		return true, nil
	}
	return f.accessible[zone], nil
}

var _ = Describe("WorldUpdate", func() {
	It("flags an obstacle close to the robot's current pose as a collision risk", func() {
		s := state.New("session-1")
		s.Robot.Pose = state.Pose{X: 0, Y: 0}

		stage := kernel.WorldUpdate{Source: &fakeWorldSource{
			zones:     []string{"kitchen"},
			obstacles: []state.Obstacle{{X: 0.2, Y: 0, W: 0.2, H: 0.2}},
		}}

		out, err := stage.Execute(context.Background(), s)
		Expect(err).NotTo(HaveOccurred())
		Expect(out.World.Obstacles[0].CollisionRisk).To(BeTrue())
	})

	It("does not flag a distant obstacle with no active task target", func() {
		s := state.New("session-1")
		s.Robot.Pose = state.Pose{X: 0, Y: 0}

		stage := kernel.WorldUpdate{Source: &fakeWorldSource{
			obstacles: []state.Obstacle{{X: 50, Y: 50, W: 1, H: 1}},
		}}

		out, err := stage.Execute(context.Background(), s)
		Expect(err).NotTo(HaveOccurred())
		Expect(out.World.Obstacles[0].CollisionRisk).To(BeFalse())
	})

	It("flags an obstacle near the path to the active task's target zone", func() {
		s := state.New("session-1")
		s.Robot.Pose = state.Pose{X: 0, Y: 0}
		activeID := "task-1"
		s.Tasks.ActiveTaskID = &activeID
		s.Tasks.Queue = []state.Task{{ID: "task-1", GoalString: "navigate_to:kitchen"}}

		// kitchen is at (2,2); an obstacle sitting on that segment should
		// be flagged even though it is not near the robot's current pose.
		stage := kernel.WorldUpdate{Source: &fakeWorldSource{
			obstacles: []state.Obstacle{{X: 1, Y: 1, W: 0.3, H: 0.3}},
		}}

		out, err := stage.Execute(context.Background(), s)
		Expect(err).NotTo(HaveOccurred())
		Expect(out.World.Obstacles[0].CollisionRisk).To(BeTrue())
	})

	It("builds a summary mentioning the current zone and obstacles", func() {
		s := state.New("session-1")
		s.Robot.Pose = state.Pose{X: 2, Y: 2}

		stage := kernel.WorldUpdate{Source: &fakeWorldSource{
			zones:     []string{"kitchen"},
			obstacles: []state.Obstacle{{X: 10, Y: 10, W: 1, H: 1}},
		}}

		out, err := stage.Execute(context.Background(), s)
		Expect(err).NotTo(HaveOccurred())
		Expect(out.World.Summary).To(ContainSubstring("kitchen"))
		Expect(out.World.Summary).To(ContainSubstring("obstacle"))
	})
})
