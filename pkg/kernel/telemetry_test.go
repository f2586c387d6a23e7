package kernel_test

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/corvid-robotics/robobrain/pkg/kernel"
	"github.com/corvid-robotics/robobrain/pkg/state"
)

type fakeTelemetrySource struct {
	pose      *state.Pose
	twist     *state.Twist
	battery   *kernel.BatteryReading
	resources map[string]bool
	err       error
}

func (f *fakeTelemetrySource) GetPose(context.Context) (*state.Pose, error)     { return f.pose, f.err }
func (f *fakeTelemetrySource) GetTwist(context.Context) (*state.Twist, error)   { return f.twist, f.err }
func (f *fakeTelemetrySource) GetBattery(context.Context) (*kernel.BatteryReading, error) {
	return f.battery, f.err
}
func (f *fakeTelemetrySource) GetResources(context.Context) (map[string]bool, error) {
	return f.resources, f.err
}

var _ = Describe("TelemetrySync", func() {
	It("preserves prior values when the source reports nothing new", func() {
		s := state.New("session-1")
		s.Robot.Pose = state.Pose{X: 1, Y: 2}

		stage := kernel.TelemetrySync{Source: &fakeTelemetrySource{}}
		out, err := stage.Execute(context.Background(), s)

		Expect(err).NotTo(HaveOccurred())
		Expect(out.Robot.Pose).To(Equal(state.Pose{X: 1, Y: 2}))
	})

	It("updates pose and battery when the source reports them", func() {
		s := state.New("session-1")
		stage := kernel.TelemetrySync{Source: &fakeTelemetrySource{
			pose:    &state.Pose{X: 5, Y: 6},
			battery: &kernel.BatteryReading{Percentage: 42, State: state.BatteryDischarging},
		}}

		out, err := stage.Execute(context.Background(), s)

		Expect(err).NotTo(HaveOccurred())
		Expect(out.Robot.Pose).To(Equal(state.Pose{X: 5, Y: 6}))
		Expect(out.Robot.BatteryPct).To(Equal(42.0))
		Expect(out.Robot.BatteryState).To(Equal(state.BatteryDischarging))
	})

	It("recomputes distance-to-target from the active task's metadata", func() {
		s := state.New("session-1")
		s.Robot.Pose = state.Pose{X: 0, Y: 0}
		activeID := "task-1"
		s.Tasks.ActiveTaskID = &activeID
		s.Tasks.Queue = []state.Task{{
			ID:       "task-1",
			Metadata: map[string]interface{}{"target_x": 3.0, "target_y": 4.0},
		}}

		stage := kernel.TelemetrySync{Source: &fakeTelemetrySource{}}
		out, err := stage.Execute(context.Background(), s)

		Expect(err).NotTo(HaveOccurred())
		Expect(out.Robot.DistanceToTarget).To(Equal(5.0))
	})

	It("wraps a source error as a telemetry AppError", func() {
		s := state.New("session-1")
		stage := kernel.TelemetrySync{Source: &fakeTelemetrySource{err: errors.New("ros2 unreachable")}}

		_, err := stage.Execute(context.Background(), s)

		Expect(err).To(HaveOccurred())
	})
})
