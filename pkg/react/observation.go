package react

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/corvid-robotics/robobrain/pkg/state"
)

// maxHistoryMessages bounds how many prior messages R2 sees when it builds
// the model prompt.
const maxHistoryMessages = 10

// BuildObservation is R1: assembles a structured snapshot of world, robot,
// task-queue, and skill state, and appends it to the message window as a
// system observation the model will read in R2.
type BuildObservation struct{}

func (BuildObservation) Name() string { return "build_observation" }

func (BuildObservation) Execute(_ context.Context, s state.BrainState) (state.BrainState, error) {
	next := s.Clone()
	next.React.Iter++

	obs := map[string]interface{}{
		"iter":  next.React.Iter,
		"world": worldObservation(next),
		"robot": robotObservation(next),
		"tasks": taskQueuePreview(next),
		"skills": skillsObservation(next),
	}
	if next.Skills.LastResult != nil {
		obs["last_result"] = map[string]interface{}{
			"goal_id":    next.Skills.LastResult.GoalID,
			"skill_name": next.Skills.LastResult.SkillName,
			"success":    next.Skills.LastResult.Success,
			"code":       next.Skills.LastResult.Code,
		}
	}
	next.React.Observation = obs

	next.Messages.Messages = append(next.Messages.Messages, state.Message{
		Role:    "system",
		Type:    "observation",
		Content: formatObservation(obs),
	})

	next.Trace.Lines = append(next.Trace.Lines, fmt.Sprintf(
		"[build_observation] iter=%d tasks=%d running_skills=%d",
		next.React.Iter, len(next.Tasks.Queue), len(next.Skills.Running),
	))
	return next, nil
}

func worldObservation(s state.BrainState) map[string]interface{} {
	riskCount := 0
	for _, obs := range s.World.Obstacles {
		if obs.CollisionRisk {
			riskCount++
		}
	}
	return map[string]interface{}{
		"summary":    s.World.Summary,
		"risk_count": riskCount,
	}
}

func robotObservation(s state.BrainState) map[string]interface{} {
	return map[string]interface{}{
		"position":    [2]float64{s.Robot.Pose.X, s.Robot.Pose.Y},
		"home":        [2]float64{s.Robot.HomePose.X, s.Robot.HomePose.Y},
		"battery_pct": s.Robot.BatteryPct,
		"resources":   s.Robot.Resources,
	}
}

func taskQueuePreview(s state.BrainState) []map[string]interface{} {
	preview := make([]map[string]interface{}, 0, len(s.Tasks.Queue))
	for i, t := range s.Tasks.Queue {
		entry := map[string]interface{}{
			"id":       t.ID,
			"goal":     t.GoalString,
			"status":   string(t.Status),
			"sequence": i,
		}
		if t.Metadata != nil {
			if src, ok := t.Metadata["source"]; ok {
				entry["source"] = src
			}
		}
		preview = append(preview, entry)
	}
	return preview
}

func skillsObservation(s state.BrainState) map[string]interface{} {
	names := make([]string, 0, len(s.Skills.Running))
	goalIDs := make([]string, 0, len(s.Skills.Running))
	for _, r := range s.Skills.Running {
		names = append(names, r.SkillName)
		goalIDs = append(goalIDs, r.GoalID)
	}
	sort.Strings(names)
	return map[string]interface{}{
		"running_names":    names,
		"running_goal_ids": goalIDs,
	}
}

func formatObservation(obs map[string]interface{}) string {
	var b strings.Builder
	fmt.Fprintf(&b, "iteration %v\n", obs["iter"])
	if world, ok := obs["world"].(map[string]interface{}); ok {
		fmt.Fprintf(&b, "world: %v (risk_count=%v)\n", world["summary"], world["risk_count"])
	}
	if robot, ok := obs["robot"].(map[string]interface{}); ok {
		fmt.Fprintf(&b, "robot: position=%v battery=%v%%\n", robot["position"], robot["battery_pct"])
	}
	if tasks, ok := obs["tasks"].([]map[string]interface{}); ok {
		fmt.Fprintf(&b, "tasks: %d queued\n", len(tasks))
	}
	if skills, ok := obs["skills"].(map[string]interface{}); ok {
		fmt.Fprintf(&b, "running skills: %v\n", skills["running_names"])
	}
	if lr, ok := obs["last_result"]; ok {
		fmt.Fprintf(&b, "last_result: %v\n", lr)
	}
	return b.String()
}

// recentHistory returns up to maxHistoryMessages most recent messages.
func recentHistory(s state.BrainState) []state.Message {
	msgs := s.Messages.Messages
	if len(msgs) <= maxHistoryMessages {
		return msgs
	}
	return msgs[len(msgs)-maxHistoryMessages:]
}
