package world

import (
	"context"
	"math"
	"time"

	"github.com/corvid-robotics/robobrain/pkg/state"
)

// tickInterval is the simulator's physics rate.
const tickInterval = 100 * time.Millisecond

// Obstacle lifecycle tuning: at most maxObstacles on the map at once, a
// spawn roll every spawnCheckTicks with spawnProbability chance of success,
// retiring after a random lifetime in [minLifetimeTicks, maxLifetimeTicks).
const (
	maxObstacles      = 5
	spawnCheckTicks   = 50 // ~5s at 10Hz
	spawnProbability  = 0.3
	minLifetimeTicks  = 100 // ~10s
	maxLifetimeTicks  = 400 // ~40s
	obstacleHalfExtent = 0.4
)

// Start runs the physics loop until ctx is cancelled. It advances pose
// toward the current target, drains the battery, and ages obstacles, all
// at tickInterval. Intended to be run in its own goroutine for the
// lifetime of the process.
func (s *Simulator) Start(ctx context.Context) {
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	tick := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			tick++
			s.step(tickInterval.Seconds())
			s.ageObstacles()
			if tick%spawnCheckTicks == 0 {
				s.maybeSpawnObstacle()
			}
		}
	}
}

// step advances the robot one dt seconds toward the current target: first
// closing position, then (if a heading was requested) rotating in place,
// draining the battery by the behavior tree's rate throughout.
func (s *Simulator) step(dt float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.target == nil {
		return
	}

	currentTheta := yawFromQuaternion(s.pose)
	dx := s.target.x - s.pose.X
	dy := s.target.y - s.pose.Y
	distance := math.Hypot(dx, dy)
	positionReached := distance < positionReachedThreshold

	orientationReached := true
	if s.target.theta != nil {
		orientationReached = angleDiff(*s.target.theta, currentTheta) < orientationReachedThreshold
	}

	if positionReached && orientationReached {
		s.target = nil
		s.twist = state.Twist{}
		return
	}

	moveSpeed, drainRate := profileRates(s.target.behaviorTree)
	newX, newY, newTheta := s.pose.X, s.pose.Y, currentTheta

	switch {
	case !positionReached:
		step := math.Min(moveSpeed*dt, distance)
		newX = s.pose.X + dx/distance*step
		newY = s.pose.Y + dy/distance*step
		s.twist = state.Twist{LinearX: dx / distance * moveSpeed, LinearY: dy / distance * moveSpeed}
	case s.target.theta != nil && !orientationReached:
		diff := shortestAngleDiff(*s.target.theta, currentTheta)
		turn := math.Min(turnSpeed*dt, math.Abs(diff))
		if diff < 0 {
			turn = -turn
		}
		newTheta = currentTheta + turn
		s.twist = state.Twist{AngularZ: turn / dt}
	}

	s.pose = state.Pose{
		X: newX, Y: newY, Z: s.pose.Z,
		QW: math.Cos(newTheta / 2), QZ: math.Sin(newTheta / 2),
	}

	s.batteryPct = math.Max(0, s.batteryPct-drainRate*dt)
	s.batteryState = batteryStateFor(s.batteryPct)
}

// profileRates resolves the move speed and battery drain rate for a
// behavior tree name, falling back to the default profile for an unknown
// or empty name.
func profileRates(behaviorTree string) (moveSpeed, drainRate float64) {
	switch behaviorTree {
	case "careful_navigation.xml":
		return moveSpeedCareful, batteryDrainCareful
	case "fast_navigation.xml":
		return moveSpeedFast, batteryDrainFast
	default:
		return moveSpeedDefault, batteryDrainDefault
	}
}

func batteryStateFor(pct float64) state.BatteryState {
	switch {
	case pct <= 5:
		return state.BatteryCritical
	case pct <= 20:
		return state.BatteryLow
	case pct >= 100:
		return state.BatteryFull
	default:
		return state.BatteryDischarging
	}
}

// angleDiff is the unsigned angular distance between two headings.
func angleDiff(a, b float64) float64 {
	return math.Abs(shortestAngleDiff(a, b))
}

// shortestAngleDiff is a-b wrapped into (-pi, pi].
func shortestAngleDiff(a, b float64) float64 {
	diff := a - b
	for diff > math.Pi {
		diff -= 2 * math.Pi
	}
	for diff < -math.Pi {
		diff += 2 * math.Pi
	}
	return diff
}

// ageObstacles decrements each obstacle's remaining lifetime, dropping any
// that reach zero.
func (s *Simulator) ageObstacles() {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.obstacles[:0]
	for _, o := range s.obstacles {
		o.ticksRemaining--
		if o.ticksRemaining > 0 {
			kept = append(kept, o)
		}
	}
	s.obstacles = kept
}

// maybeSpawnObstacle rolls spawnProbability odds of placing a new obstacle
// near the robot's current pose, capped at maxObstacles.
func (s *Simulator) maybeSpawnObstacle() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.obstacles) >= maxObstacles || s.rng.Float64() > spawnProbability {
		return
	}

	angle := s.rng.Float64() * 2 * math.Pi
	radius := 1.0 + s.rng.Float64()*3.0
	lifetime := minLifetimeTicks + s.rng.Intn(maxLifetimeTicks-minLifetimeTicks)

	s.obstacles = append(s.obstacles, simObstacle{
		Obstacle: state.Obstacle{
			X: s.pose.X + radius*math.Cos(angle),
			Y: s.pose.Y + radius*math.Sin(angle),
			W: obstacleHalfExtent * 2,
			H: obstacleHalfExtent * 2,
		},
		ticksRemaining: lifetime,
	})
}
