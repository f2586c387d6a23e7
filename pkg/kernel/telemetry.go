package kernel

import (
	"context"
	"fmt"
	"math"

	apperrors "github.com/corvid-robotics/robobrain/internal/errors"
	"github.com/corvid-robotics/robobrain/internal/validation"
	"github.com/corvid-robotics/robobrain/pkg/state"
)

// TelemetrySource supplies the objective robot telemetry K2 syncs into the
// snapshot. A nil return from any getter means "no update this pass" and
// the previous value is preserved.
type TelemetrySource interface {
	GetPose(ctx context.Context) (*state.Pose, error)
	GetTwist(ctx context.Context) (*state.Twist, error)
	GetBattery(ctx context.Context) (*BatteryReading, error)
	GetResources(ctx context.Context) (map[string]bool, error)
}

// BatteryReading is the battery telemetry payload a source may report.
type BatteryReading struct {
	Percentage float64            `validate:"gte=0,lte=100"`
	State      state.BatteryState `validate:"required"`
}

// TelemetrySync is K2: pulls pose/twist/battery/resource telemetry from an
// injected source and recomputes distance-to-target. Pure with respect to
// the snapshot: the only side effect is the source's own read.
type TelemetrySync struct {
	Source TelemetrySource
}

func (TelemetrySync) Name() string { return "telemetry_sync" }

func (t TelemetrySync) Execute(ctx context.Context, s state.BrainState) (state.BrainState, error) {
	next := s.Clone()

	if t.Source != nil {
		pose, err := t.Source.GetPose(ctx)
		if err != nil {
			return s, apperrors.Wrap(err, apperrors.ErrorTypeTelemetry, "failed to read pose")
		}
		if pose != nil {
			next.Robot.Pose = *pose
		}

		twist, err := t.Source.GetTwist(ctx)
		if err != nil {
			return s, apperrors.Wrap(err, apperrors.ErrorTypeTelemetry, "failed to read twist")
		}
		if twist != nil {
			next.Robot.Twist = *twist
		}

		battery, err := t.Source.GetBattery(ctx)
		if err != nil {
			return s, apperrors.Wrap(err, apperrors.ErrorTypeTelemetry, "failed to read battery")
		}
		if battery != nil {
			if err := validation.ValidateStruct(battery); err != nil {
				return s, apperrors.Wrap(err, apperrors.ErrorTypeTelemetry, "invalid battery reading")
			}
			next.Robot.BatteryPct = battery.Percentage
			next.Robot.BatteryState = battery.State
		}

		resources, err := t.Source.GetResources(ctx)
		if err != nil {
			return s, apperrors.Wrap(err, apperrors.ErrorTypeTelemetry, "failed to read resources")
		}
		for k, v := range resources {
			next.Robot.Resources[k] = v
		}
	}

	next.Robot.DistanceToTarget = distanceToTarget(next)
	next.Trace.Lines = append(next.Trace.Lines, fmt.Sprintf(
		"[telemetry_sync] pose=(%.2f,%.2f) battery=%.1f%% distance=%.2f",
		next.Robot.Pose.X, next.Robot.Pose.Y, next.Robot.BatteryPct, next.Robot.DistanceToTarget,
	))
	return next, nil
}

// distanceToTarget recomputes distance-to-target from the active task's
// metadata target, falling back to the prior value when no target is set.
func distanceToTarget(s state.BrainState) float64 {
	if s.Tasks.ActiveTaskID == nil {
		return s.Robot.DistanceToTarget
	}
	var active *state.Task
	for i := range s.Tasks.Queue {
		if s.Tasks.Queue[i].ID == *s.Tasks.ActiveTaskID {
			active = &s.Tasks.Queue[i]
			break
		}
	}
	if active == nil {
		return s.Robot.DistanceToTarget
	}
	targetX, okX := active.Metadata["target_x"].(float64)
	targetY, okY := active.Metadata["target_y"].(float64)
	if !okX || !okY {
		return s.Robot.DistanceToTarget
	}
	dx := targetX - s.Robot.Pose.X
	dy := targetY - s.Robot.Pose.Y
	return math.Sqrt(dx*dx + dy*dy)
}
