package kernel

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/corvid-robotics/robobrain/pkg/state"
)

// Priority baselines used when materializing tasks. HighPriority steps down
// by 5 per task when a NEW_GOAL payload folds in multiple targets.
const (
	HighPriority    = 80
	DefaultPriority = 50
	priorityStep    = 5
)

// completionDistance is the distance-to-target below which the active task
// is considered to have arrived and is marked COMPLETED.
const completionDistance = 0.5

// TaskQueue is K5: converts the HCI interrupt and inbox into structured
// tasks, detects completion of the active task, and selects the next
// active task by priority.
type TaskQueue struct{}

func (TaskQueue) Name() string { return "task_queue" }

func (TaskQueue) Execute(_ context.Context, s state.BrainState) (state.BrainState, error) {
	next := s.Clone()

	queue := append([]state.Task{}, next.Tasks.Queue...)
	inbox := append([]state.PlanFragment{}, next.Tasks.Inbox...)
	activeID := next.Tasks.ActiveTaskID

	activeID = detectCompletion(queue, activeID, next.Robot.DistanceToTarget)

	if next.HCI.InterruptClass == state.InterruptNewGoal {
		if newTasks := tasksFromInterrupt(next.HCI.InterruptPayload); len(newTasks) > 0 {
			queue = newTasks
			inbox = nil
			activeID = nil
		}
	}

	for _, fragment := range inbox {
		queue = append(queue, taskFromFragment(fragment))
	}
	inbox = nil

	sort.SliceStable(queue, func(i, j int) bool { return queue[i].Priority > queue[j].Priority })

	if activeID == nil {
		for i := range queue {
			if queue[i].Status == state.TaskPending {
				queue[i].Status = state.TaskRunning
				id := queue[i].ID
				activeID = &id
				break
			}
		}
	}

	// Only promote IDLE to EXEC. A mode already arbitrated as SAFE or
	// CHARGE by Event Arbitrate (K4) must stay that way even with an
	// active/queued task, or K6 would route a collision/low-battery
	// session straight into the ReAct loop instead of the safety handler.
	mode := next.Tasks.Mode
	if mode == state.ModeIdle && activeID != nil {
		mode = state.ModeExec
	}

	next.Tasks.Queue = queue
	next.Tasks.Inbox = inbox
	next.Tasks.ActiveTaskID = activeID
	next.Tasks.Mode = mode

	next.Trace.Lines = append(next.Trace.Lines, fmt.Sprintf(
		"[task_queue] queue_len=%d active=%v", len(queue), activeIDString(activeID),
	))
	return next, nil
}

func activeIDString(id *string) string {
	if id == nil {
		return "none"
	}
	return *id
}

// detectCompletion marks the active task COMPLETED and clears the
// active-task-id if the robot has arrived at its target.
func detectCompletion(queue []state.Task, activeID *string, distanceToTarget float64) *string {
	if activeID == nil || distanceToTarget >= completionDistance {
		return activeID
	}
	for i := range queue {
		if queue[i].ID == *activeID && queue[i].Status == state.TaskRunning {
			queue[i].Status = state.TaskCompleted
			return nil
		}
	}
	return activeID
}

// tasksFromInterrupt materializes one or more Tasks from a NEW_GOAL
// interrupt payload. A payload carrying a "tasks" list (model-parsed
// multi-task plan) takes priority over the single "target" form.
func tasksFromInterrupt(payload map[string]interface{}) []state.Task {
	original, _ := payload["original"].(string)

	if rawTasks, ok := payload["tasks"].([]interface{}); ok && len(rawTasks) > 0 {
		var tasks []state.Task
		for i, raw := range rawTasks {
			item, ok := raw.(map[string]interface{})
			if !ok {
				continue
			}
			if kind, _ := item["type"].(string); kind != "navigate" {
				continue
			}
			target, _ := item["target"].(string)
			if target == "" {
				continue
			}
			tasks = append(tasks, newNavigationTask(target, HighPriority-i*priorityStep, map[string]interface{}{
				"source":              "user_interrupt",
				"original_utterance":  original,
				"target":              target,
				"sequence":            i,
			}))
		}
		if len(tasks) > 0 {
			return tasks
		}
	}

	if target, ok := payload["target"].(string); ok && target != "" {
		return []state.Task{newNavigationTask(target, HighPriority, map[string]interface{}{
			"source":             "user_interrupt",
			"original_utterance": original,
			"target":             target,
		})}
	}

	return nil
}

func newNavigationTask(target string, priority int, metadata map[string]interface{}) state.Task {
	return state.Task{
		ID:                "task_" + uuid.NewString()[:8],
		GoalString:        "navigate_to:" + target,
		Priority:          priority,
		RequiredResources: []string{state.ResourceBase},
		Preemptible:       true,
		Status:            state.TaskPending,
		CreatedAt:         time.Now(),
		Metadata:          metadata,
	}
}

// taskFromFragment materializes an inbox fragment (a model- or
// operator-proposed goal not yet folded into the queue) into a Task.
func taskFromFragment(fragment state.PlanFragment) state.Task {
	priority := fragment.Priority
	if priority == 0 {
		priority = DefaultPriority
	}
	return state.Task{
		ID:                "task_" + uuid.NewString()[:8],
		GoalString:        fragment.GoalString,
		Priority:          priority,
		RequiredResources: fragment.RequiredResources,
		Preemptible:       true,
		Status:            state.TaskPending,
		CreatedAt:         time.Now(),
		Metadata:          fragment.Metadata,
	}
}
