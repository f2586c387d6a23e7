package skills

import (
	"context"

	"github.com/corvid-robotics/robobrain/pkg/state"
)

// Executor is the full side-effect boundary the core reasons about: the
// five operations an action/service backend (ROS2, a vendor SDK, a test
// double) must provide. Its method set satisfies both
// pkg/react.SkillExecutor (Dispatch, Cancel) and pkg/react.ResultObserver
// (IsDone, Result, Feedback) structurally, so a single implementation can
// be wired into both R6 and R7 without an adapter.
type Executor interface {
	Dispatch(ctx context.Context, skill string, params map[string]interface{}) (string, error)
	Cancel(ctx context.Context, goalID string) (bool, error)
	IsDone(ctx context.Context, goalID string) (bool, error)
	Result(ctx context.Context, goalID string) (*state.SkillResult, error)
	Feedback(ctx context.Context, goalID string) (map[string]interface{}, error)
}
