package world_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/corvid-robotics/robobrain/pkg/state"
	"github.com/corvid-robotics/robobrain/pkg/world"
)

var _ = Describe("Simulator", func() {
	var sim *world.Simulator

	BeforeEach(func() {
		sim = world.NewSimulator()
	})

	It("starts parked at the charging station with a full battery", func() {
		pose, err := sim.GetPose(context.Background())
		Expect(err).NotTo(HaveOccurred())
		Expect(pose.X).To(Equal(-1.0))
		Expect(pose.Y).To(Equal(1.0))

		battery, err := sim.GetBattery(context.Background())
		Expect(err).NotTo(HaveOccurred())
		Expect(battery.Percentage).To(Equal(100.0))
		Expect(battery.State).To(Equal(state.BatteryFull))
	})

	It("reports every built-in zone as accessible by default", func() {
		zones, err := sim.GetZones(context.Background())
		Expect(err).NotTo(HaveOccurred())
		Expect(zones).To(ContainElements("kitchen", "living_room", "bedroom", "bathroom", "charging_station"))

		for _, zone := range zones {
			ok, err := sim.GetZoneAccessible(context.Background(), zone)
			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeTrue())
		}
	})

	It("blocks and unblocks a zone", func() {
		sim.SetZoneBlocked("kitchen", true)
		ok, _ := sim.GetZoneAccessible(context.Background(), "kitchen")
		Expect(ok).To(BeFalse())

		sim.SetZoneBlocked("kitchen", false)
		ok, _ = sim.GetZoneAccessible(context.Background(), "kitchen")
		Expect(ok).To(BeTrue())
	})

	It("resolves a known zone name to its coordinates and rejects an unknown one", func() {
		Expect(sim.SetTargetZone("kitchen")).To(BeTrue())
		Expect(sim.SetTargetZone("attic")).To(BeFalse())
	})

	It("starts with no obstacles", func() {
		obstacles, err := sim.GetObstacles(context.Background())
		Expect(err).NotTo(HaveOccurred())
		Expect(obstacles).To(BeEmpty())
	})

	It("drives the pose toward a target and drains the battery while running", func() {
		sim.SetTargetPose(10, 5, nil, "")

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go sim.Start(ctx)

		Eventually(func() float64 {
			pose, _ := sim.GetPose(context.Background())
			return pose.X
		}, "2s", "50ms").Should(BeNumerically(">", -1.0))

		battery, err := sim.GetBattery(context.Background())
		Expect(err).NotTo(HaveOccurred())
		Expect(battery.Percentage).To(BeNumerically("<", 100.0))
	})

	It("stops advancing once a target is reached", func() {
		sim.SetTargetPose(-1, 1, nil, "")

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go sim.Start(ctx)

		time.Sleep(300 * time.Millisecond)
		pose, _ := sim.GetPose(context.Background())
		Expect(pose.X).To(BeNumerically("~", -1.0, 0.05))
		Expect(pose.Y).To(BeNumerically("~", 1.0, 0.05))
	})

	It("adopts a running navigate_to_pose skill's explicit coordinates via Sync", func() {
		snap := state.New("session-1")
		snap.Skills.Running = append(snap.Skills.Running, state.RunningSkill{
			GoalID:    "goal-1",
			SkillName: "navigate_to_pose",
			Params:    map[string]interface{}{"target_x": 4.0, "target_y": 6.0},
		})

		sim.Sync(snap)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go sim.Start(ctx)

		Eventually(func() float64 {
			pose, _ := sim.GetPose(context.Background())
			return pose.X
		}, "1s", "50ms").Should(BeNumerically(">", -1.0))
	})

	It("adopts the active task's navigate_to zone goal via Sync when no skill is running", func() {
		snap := state.New("session-1")
		taskID := "task-1"
		snap.Tasks.ActiveTaskID = &taskID
		snap.Tasks.Queue = append(snap.Tasks.Queue, state.Task{ID: taskID, GoalString: "navigate_to:bedroom"})

		sim.Sync(snap)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go sim.Start(ctx)

		time.Sleep(200 * time.Millisecond)
		pose, _ := sim.GetPose(context.Background())
		Expect(pose.Y).To(BeNumerically(">", 1.0))
	})

	It("clears the target and zeroes twist", func() {
		sim.SetTargetPose(10, 10, nil, "")
		sim.ClearTarget()

		time.Sleep(150 * time.Millisecond)
		pose, _ := sim.GetPose(context.Background())
		Expect(pose.X).To(Equal(-1.0))

		twist, _ := sim.GetTwist(context.Background())
		Expect(*twist).To(Equal(state.Twist{}))
	})
})
