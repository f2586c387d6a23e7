package skills

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/corvid-robotics/robobrain/pkg/state"
)

// simDuration is how long a simulated dispatch takes to complete, keyed by
// skill name. Skills not listed resolve after the default duration.
var simDuration = map[string]time.Duration{
	StopBase: 200 * time.Millisecond,
	Speak:    500 * time.Millisecond,
}

const defaultSimDuration = 2 * time.Second

// simGoal tracks one in-flight simulated dispatch.
type simGoal struct {
	skillName string
	params    map[string]interface{}
	startedAt time.Time
	doneAt    time.Time
	cancelled bool
	result    *state.SkillResult
}

// SimExecutor is the reference in-memory executor: dispatch resolves after
// a short fixed delay per skill (fast for speak/stop_base, slower for
// everything else) rather than calling out to a real action server. It
// exists so the pipeline and its tests can run with no robot attached.
type SimExecutor struct {
	mu    sync.Mutex
	goals map[string]*simGoal
}

// NewSimExecutor returns a ready-to-use simulated executor.
func NewSimExecutor() *SimExecutor {
	return &SimExecutor{goals: map[string]*simGoal{}}
}

func (e *SimExecutor) Dispatch(_ context.Context, skillName string, params map[string]interface{}) (string, error) {
	goalID := fmt.Sprintf("goal_%s", uuid.NewString()[:8])

	delay := defaultSimDuration
	if d, ok := simDuration[skillName]; ok {
		delay = d
	}

	now := time.Now()
	e.mu.Lock()
	e.goals[goalID] = &simGoal{
		skillName: skillName,
		params:    params,
		startedAt: now,
		doneAt:    now.Add(delay),
	}
	e.mu.Unlock()

	return goalID, nil
}

func (e *SimExecutor) Cancel(_ context.Context, goalID string) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	g, ok := e.goals[goalID]
	if !ok {
		return false, nil
	}
	g.cancelled = true
	g.result = &state.SkillResult{
		GoalID:      goalID,
		SkillName:   g.skillName,
		Success:     false,
		Code:        "CANCELLED",
		CompletedAt: time.Now(),
	}
	return true, nil
}

func (e *SimExecutor) IsDone(_ context.Context, goalID string) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	g, ok := e.goals[goalID]
	if !ok {
		return true, nil
	}
	return g.cancelled || !time.Now().Before(g.doneAt), nil
}

func (e *SimExecutor) Result(_ context.Context, goalID string) (*state.SkillResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	g, ok := e.goals[goalID]
	if !ok {
		return nil, nil
	}
	if g.result != nil {
		return g.result, nil
	}
	if time.Now().Before(g.doneAt) {
		return nil, nil
	}
	g.result = &state.SkillResult{
		GoalID:      goalID,
		SkillName:   g.skillName,
		Success:     true,
		Code:        "OK",
		Data:        map[string]interface{}{"simulated": true, "params": g.params},
		CompletedAt: g.doneAt,
	}
	return g.result, nil
}

func (e *SimExecutor) Feedback(_ context.Context, goalID string) (map[string]interface{}, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	g, ok := e.goals[goalID]
	if !ok || g.cancelled {
		return nil, nil
	}
	remaining := time.Until(g.doneAt)
	if remaining < 0 {
		remaining = 0
	}
	return map[string]interface{}{
		"skill":             g.skillName,
		"remaining_ms":      remaining.Milliseconds(),
		"progress_fraction": progressFraction(g),
	}, nil
}

func progressFraction(g *simGoal) float64 {
	total := g.doneAt.Sub(g.startedAt)
	if total <= 0 {
		return 1.0
	}
	elapsed := time.Since(g.startedAt)
	if elapsed >= total {
		return 1.0
	}
	return float64(elapsed) / float64(total)
}

// Dispatched and Cancelled are test/introspection helpers mirroring the
// original mock executor's get_dispatched/get_cancelled accessors.
func (e *SimExecutor) Dispatched() []string {
	e.mu.Lock()
	defer e.mu.Unlock()

	ids := make([]string, 0, len(e.goals))
	for id := range e.goals {
		ids = append(ids, id)
	}
	return ids
}

func (e *SimExecutor) Cancelled() []string {
	e.mu.Lock()
	defer e.mu.Unlock()

	var ids []string
	for id, g := range e.goals {
		if g.cancelled {
			ids = append(ids, id)
		}
	}
	return ids
}
