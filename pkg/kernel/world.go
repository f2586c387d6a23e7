package kernel

import (
	"context"
	"fmt"
	"math"
	"strings"

	apperrors "github.com/corvid-robotics/robobrain/internal/errors"
	"github.com/corvid-robotics/robobrain/pkg/state"
)

// collisionRiskThreshold is the distance, in world units, below which an
// obstacle is flagged as a collision risk.
const collisionRiskThreshold = 0.6

// ZoneTable maps a semantic zone name to its world-frame center coordinate.
// This is part of the core contract, shared with R3 Compile Ops.
var ZoneTable = map[string][2]float64{
	"kitchen":           {2.0, 2.0},
	"living_room":       {10.0, 5.0},
	"bedroom":           {2.0, 7.0},
	"bathroom":          {7.0, 12.0},
	"charging_station":  {-1.0, 1.0},
}

// zoneBounds are the rectangular bounds used to decide which zone the robot
// currently occupies, for the world summary.
var zoneBounds = map[string][4]float64{ // xMin, xMax, yMin, yMax
	"kitchen":          {1, 4, 1, 4},
	"living_room":      {8, 12, 3, 7},
	"bedroom":          {1, 4, 6, 9},
	"bathroom":         {6, 9, 11, 14},
	"charging_station": {-2, 0, 0, 2},
}

// WorldSource supplies zone and obstacle data for K3. Obstacle payloads are
// x/y/width/height in the world frame; CollisionRisk is always overwritten
// by this stage, not read from the source.
type WorldSource interface {
	GetZones(ctx context.Context) ([]string, error)
	GetObstacles(ctx context.Context) ([]state.Obstacle, error)
	GetZoneAccessible(ctx context.Context, zone string) (bool, error)
}

// WorldUpdate is K3: refreshes zones and obstacles, annotates obstacles
// with a collision-risk flag, and renders a world summary for R1/R2.
type WorldUpdate struct {
	Source WorldSource
}

func (WorldUpdate) Name() string { return "world_update" }

func (w WorldUpdate) Execute(ctx context.Context, s state.BrainState) (state.BrainState, error) {
	next := s.Clone()

	zones := next.World.Zones
	obstacles := next.World.Obstacles
	if w.Source != nil {
		var err error
		zones, err = w.Source.GetZones(ctx)
		if err != nil {
			return s, apperrors.Wrap(err, apperrors.ErrorTypeWorld, "failed to read zones")
		}
		obstacles, err = w.Source.GetObstacles(ctx)
		if err != nil {
			return s, apperrors.Wrap(err, apperrors.ErrorTypeWorld, "failed to read obstacles")
		}
	}

	obstacles = annotateCollisionRisk(next, obstacles)

	next.World.Zones = zones
	next.World.Obstacles = obstacles
	next.World.Summary = worldSummary(ctx, w.Source, next, zones, obstacles)

	next.Trace.Lines = append(next.Trace.Lines, fmt.Sprintf(
		"[world_update] zones=%d obstacles=%d", len(zones), len(obstacles),
	))
	return next, nil
}

// annotateCollisionRisk flags each obstacle as a risk if the robot's
// current position, or the segment from current position to the active
// task's target zone, passes within collisionRiskThreshold of the
// obstacle's bounding box.
func annotateCollisionRisk(s state.BrainState, obstacles []state.Obstacle) []state.Obstacle {
	if len(obstacles) == 0 {
		return obstacles
	}

	targetXY, hasTarget := activeTaskTargetZone(s)
	rx, ry := s.Robot.Pose.X, s.Robot.Pose.Y

	out := make([]state.Obstacle, len(obstacles))
	for i, obs := range obstacles {
		risk := pointToAABBDist(rx, ry, obs.X, obs.Y, obs.W, obs.H) < collisionRiskThreshold
		if !risk && hasTarget {
			dist := segmentToAABBDist(rx, ry, targetXY[0], targetXY[1], obs.X, obs.Y, obs.W, obs.H)
			risk = dist < collisionRiskThreshold
		}
		out[i] = obs
		out[i].CollisionRisk = risk
	}
	return out
}

// activeTaskTargetZone resolves the active task's "navigate_to:<zone>" goal
// string to a world-frame coordinate, if the zone is in the zone table.
func activeTaskTargetZone(s state.BrainState) ([2]float64, bool) {
	if s.Tasks.ActiveTaskID == nil {
		return [2]float64{}, false
	}
	for _, task := range s.Tasks.Queue {
		if task.ID != *s.Tasks.ActiveTaskID {
			continue
		}
		const prefix = "navigate_to:"
		if !strings.HasPrefix(task.GoalString, prefix) {
			return [2]float64{}, false
		}
		zone := strings.TrimSpace(strings.TrimPrefix(task.GoalString, prefix))
		xy, ok := ZoneTable[zone]
		return xy, ok
	}
	return [2]float64{}, false
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// pointToAABBDist is the Euclidean distance from point (px,py) to the
// nearest edge of the axis-aligned box centered at (cx,cy) with the given
// width and height; zero if the point is inside the box.
func pointToAABBDist(px, py, cx, cy, w, h float64) float64 {
	hx, hy := w/2.0, h/2.0
	nearestX := clamp(px, cx-hx, cx+hx)
	nearestY := clamp(py, cy-hy, cy+hy)
	dx := px - nearestX
	dy := py - nearestY
	return math.Sqrt(dx*dx + dy*dy)
}

// segmentToAABBDist approximates the distance from the segment (x1,y1)-
// (x2,y2) to the box by sampling t in {0, 0.25, 0.5, 0.75, 1} and taking the
// minimum point-to-box distance. This is an approximation, not exact
// geometry, but adequate for risk flagging.
func segmentToAABBDist(x1, y1, x2, y2, cx, cy, w, h float64) float64 {
	best := math.Min(
		pointToAABBDist(x1, y1, cx, cy, w, h),
		pointToAABBDist(x2, y2, cx, cy, w, h),
	)
	for _, t := range []float64{0.25, 0.5, 0.75} {
		px := x1 + (x2-x1)*t
		py := y1 + (y2-y1)*t
		best = math.Min(best, pointToAABBDist(px, py, cx, cy, w, h))
	}
	return best
}

func worldSummary(ctx context.Context, source WorldSource, s state.BrainState, zones []string, obstacles []state.Obstacle) string {
	var parts []string

	if zone := currentZone(s.Robot.Pose.X, s.Robot.Pose.Y, zones); zone != "" {
		parts = append(parts, fmt.Sprintf("robot currently in %s", zone))
	} else {
		parts = append(parts, fmt.Sprintf("robot at (%.1f, %.1f)", s.Robot.Pose.X, s.Robot.Pose.Y))
	}

	var accessible []string
	for _, zone := range zones {
		ok := true
		if source != nil {
			if a, err := source.GetZoneAccessible(ctx, zone); err == nil {
				ok = a
			}
		}
		if ok {
			accessible = append(accessible, zone)
		}
	}
	if len(accessible) > 0 {
		parts = append(parts, fmt.Sprintf("accessible zones: %s", strings.Join(accessible, ", ")))
	}

	if len(obstacles) > 0 {
		limit := len(obstacles)
		if limit > 3 {
			limit = 3
		}
		var descs []string
		for _, obs := range obstacles[:limit] {
			descs = append(descs, fmt.Sprintf("obstacle@(%.1f,%.1f) risk=%v", obs.X, obs.Y, obs.CollisionRisk))
		}
		parts = append(parts, fmt.Sprintf("obstacles: %s", strings.Join(descs, ", ")))
	}

	if s.Tasks.ActiveTaskID != nil {
		parts = append(parts, fmt.Sprintf("active task: %s", *s.Tasks.ActiveTaskID))
		if s.Robot.DistanceToTarget > 0 {
			parts = append(parts, fmt.Sprintf("distance to target: %.1fm", s.Robot.DistanceToTarget))
		}
	}

	return strings.Join(parts, "; ")
}

func currentZone(x, y float64, zones []string) string {
	for _, zone := range zones {
		b, ok := zoneBounds[zone]
		if !ok {
			continue
		}
		if x >= b[0] && x <= b[1] && y >= b[2] && y <= b[3] {
			return zone
		}
	}
	return ""
}
