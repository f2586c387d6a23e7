package kernel

import (
	"context"
	"fmt"

	"github.com/corvid-robotics/robobrain/pkg/state"
)

// Battery thresholds that trigger a safety or charge-seeking mode.
const (
	batteryCriticalThreshold = 10.0
	batteryLowThreshold      = 20.0
)

// EventArbitrate is K4: deterministic mode selection by fixed priority.
// Safety strictly dominates battery, which strictly dominates user
// interrupt, which strictly dominates an ordinary active task.
type EventArbitrate struct{}

func (EventArbitrate) Name() string { return "event_arbitrate" }

func (EventArbitrate) Execute(_ context.Context, s state.BrainState) (state.BrainState, error) {
	mode, preempt, reason := arbitrate(s)

	next := s.Clone()
	next.Tasks.Mode = mode
	next.Tasks.PreemptFlag = preempt
	next.Tasks.PreemptReason = reason
	next.Trace.Lines = append(next.Trace.Lines, fmt.Sprintf(
		"[event_arbitrate] mode=%s preempt=%v reason=%s", mode, preempt, reason,
	))
	return next, nil
}

func arbitrate(s state.BrainState) (state.Mode, bool, string) {
	if reason := safetyEvent(s); reason != "" {
		return state.ModeSafe, true, "SAFETY: " + reason
	}
	if reason := batteryEvent(s); reason != "" {
		return state.ModeCharge, true, "BATTERY: " + reason
	}

	if s.HCI.InterruptClass != state.InterruptNone {
		switch s.HCI.InterruptClass {
		case state.InterruptStop:
			return state.ModeIdle, true, "USER: stop command"
		case state.InterruptPause:
			return state.ModeIdle, false, "USER: pause command"
		case state.InterruptNewGoal:
			return state.ModeExec, len(s.Skills.Running) > 0, "USER: new goal"
		}
	}

	if s.HCI.Utterance != "" {
		return state.ModeExec, len(s.Skills.Running) > 0, "USER: utterance present (llm_handle)"
	}

	if s.Tasks.ActiveTaskID != nil || len(s.Tasks.Queue) > 0 {
		return state.ModeExec, false, "TASK: active task exists"
	}

	return state.ModeIdle, false, "IDLE: no active task"
}

func safetyEvent(s state.BrainState) string {
	for _, obs := range s.World.Obstacles {
		if obs.CollisionRisk {
			return "collision_risk"
		}
	}
	if s.Robot.BatteryPct < batteryCriticalThreshold {
		return "battery_critical"
	}
	return ""
}

func batteryEvent(s state.BrainState) string {
	if s.Robot.BatteryPct < batteryLowThreshold {
		return fmt.Sprintf("low_battery_%.1f%%", s.Robot.BatteryPct)
	}
	return ""
}
