// Package world provides a self-contained physics and telemetry stand-in
// for real robot hardware: a Simulator that satisfies both
// pkg/kernel.TelemetrySource and pkg/kernel.WorldSource, so the Kernel
// pipeline can run end to end without ROS2, a navigation stack, or a real
// battery monitor behind it.
package world

import (
	"context"
	"math"
	"math/rand"
	"strings"
	"sync"

	"github.com/corvid-robotics/robobrain/pkg/kernel"
	"github.com/corvid-robotics/robobrain/pkg/state"
)

// Movement and drain rates, in units/second and percent/second. The
// careful/fast variants are selected by a skill's behavior_tree param,
// mirroring the two named behavior trees the planner can pick between.
const (
	moveSpeedDefault = 1.0
	moveSpeedCareful = 0.5
	moveSpeedFast    = 2.0

	turnSpeed = 0.5

	batteryDrainDefault = 0.5
	batteryDrainCareful = 0.3
	batteryDrainFast    = 1.0

	positionReachedThreshold    = 0.1
	orientationReachedThreshold = 0.1
)

// navTarget is the pose the simulator is currently driving toward.
type navTarget struct {
	x, y         float64
	theta        *float64
	behaviorTree string
}

// Simulator is an in-memory physics model: a single robot pose, a
// monotonically-draining battery, a fixed zone layout, and a small set of
// obstacles that spawn and retire over time. Start runs its physics loop;
// the rest of its methods are safe to call concurrently from that loop,
// from Kernel stages reading telemetry, and from tests.
type Simulator struct {
	mu sync.Mutex

	pose         state.Pose
	twist        state.Twist
	batteryPct   float64
	batteryState state.BatteryState

	target *navTarget

	zones        []string
	blockedZones map[string]bool
	obstacles    []simObstacle

	rng *rand.Rand
}

// simObstacle is a world obstacle with a retirement tick count, so the
// background loop can age them out without an external clock dependency.
type simObstacle struct {
	state.Obstacle
	ticksRemaining int
}

// NewSimulator builds a simulator at the charging station with a full
// battery and every built-in zone accessible.
func NewSimulator() *Simulator {
	home := kernel.ZoneTable["charging_station"]
	return &Simulator{
		pose:         state.Pose{X: home[0], Y: home[1], QW: 1},
		batteryPct:   100,
		batteryState: state.BatteryFull,
		zones:        defaultZones(),
		blockedZones: map[string]bool{},
		rng:          rand.New(rand.NewSource(1)),
	}
}

func defaultZones() []string {
	zones := make([]string, 0, len(kernel.ZoneTable))
	for name := range kernel.ZoneTable {
		zones = append(zones, name)
	}
	return zones
}

// GetPose implements kernel.TelemetrySource.
func (s *Simulator) GetPose(_ context.Context) (*state.Pose, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pose := s.pose
	return &pose, nil
}

// GetTwist implements kernel.TelemetrySource.
func (s *Simulator) GetTwist(_ context.Context) (*state.Twist, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	twist := s.twist
	return &twist, nil
}

// GetBattery implements kernel.TelemetrySource.
func (s *Simulator) GetBattery(_ context.Context) (*kernel.BatteryReading, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return &kernel.BatteryReading{Percentage: s.batteryPct, State: s.batteryState}, nil
}

// GetResources implements kernel.TelemetrySource. The simulator has no
// hardware-side resource signal beyond what dispatch/observe already track
// from running skills, so it reports nothing new each pass.
func (s *Simulator) GetResources(_ context.Context) (map[string]bool, error) {
	return nil, nil
}

// GetZones implements kernel.WorldSource.
func (s *Simulator) GetZones(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	zones := make([]string, len(s.zones))
	copy(zones, s.zones)
	return zones, nil
}

// GetObstacles implements kernel.WorldSource.
func (s *Simulator) GetObstacles(_ context.Context) ([]state.Obstacle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]state.Obstacle, len(s.obstacles))
	for i, o := range s.obstacles {
		out[i] = o.Obstacle
	}
	return out, nil
}

// GetZoneAccessible implements kernel.WorldSource. A zone is accessible
// unless it has been explicitly blocked (SetZoneBlocked), e.g. to simulate
// a closed door.
func (s *Simulator) GetZoneAccessible(_ context.Context, zone string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.blockedZones[zone], nil
}

// SetZoneBlocked marks a zone inaccessible (or clears a prior block),
// simulating a closed door or an area taken offline for maintenance.
func (s *Simulator) SetZoneBlocked(zone string, blocked bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if blocked {
		s.blockedZones[zone] = true
	} else {
		delete(s.blockedZones, zone)
	}
}

// SetTargetPose points the simulator at an explicit world-frame goal,
// optionally with a target heading and a behavior tree name that selects
// the careful/fast speed profile. theta may be nil for "don't care".
func (s *Simulator) SetTargetPose(x, y float64, theta *float64, behaviorTree string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.target = &navTarget{x: x, y: y, theta: theta, behaviorTree: behaviorTree}
}

// SetTargetZone resolves a named zone through the shared zone table and
// sets it as the current navigation target. Reports false if the zone is
// unknown.
func (s *Simulator) SetTargetZone(zone string) bool {
	xy, ok := kernel.ZoneTable[strings.ToLower(strings.TrimSpace(zone))]
	if !ok {
		return false
	}
	s.SetTargetPose(xy[0], xy[1], nil, "")
	return true
}

// ClearTarget stops the robot in place.
func (s *Simulator) ClearTarget() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.target = nil
	s.twist = state.Twist{}
}

// Sync inspects the snapshot's running skills and active task for a
// navigation goal and adopts it as the current target, the same lookup
// order the original simulator used: a running navigate_to_pose skill's
// explicit coordinates, then its named target, then the active task's
// "navigate_to:<zone>" goal string. Called once per loop iteration by
// whatever drives the Kernel pipeline, after dispatch has updated running
// skills.
func (s *Simulator) Sync(snap state.BrainState) {
	for _, skill := range snap.Skills.Running {
		if skill.SkillName != "navigate_to_pose" && skill.SkillName != "NavigateToPose" {
			continue
		}
		params := skill.Params
		behaviorTree, _ := params["behavior_tree"].(string)
		if x, okX := toFloat(params["target_x"]); okX {
			if y, okY := toFloat(params["target_y"]); okY {
				var theta *float64
				if t, ok := toFloat(params["target_theta"]); ok {
					theta = &t
				}
				s.SetTargetPose(x, y, theta, behaviorTree)
				return
			}
		}
		if target, _ := params["target"].(string); target != "" {
			s.SetTargetZone(target)
			return
		}
		return
	}

	if snap.Tasks.ActiveTaskID == nil {
		return
	}
	const prefix = "navigate_to:"
	for _, task := range snap.Tasks.Queue {
		if task.ID != *snap.Tasks.ActiveTaskID {
			continue
		}
		if strings.HasPrefix(task.GoalString, prefix) {
			s.SetTargetZone(strings.TrimPrefix(task.GoalString, prefix))
		}
		return
	}
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	default:
		return 0, false
	}
}

func yawFromQuaternion(p state.Pose) float64 {
	return math.Atan2(p.QZ, p.QW) * 2
}
