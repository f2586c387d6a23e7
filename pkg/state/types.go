// Package state defines BrainState, the single serializable snapshot that
// flows through every Kernel and ReAct stage. Substates are value-typed:
// stages never mutate a snapshot in place, they return a new one.
package state

import "time"

// InterruptClass is the rule-derived user-intent tag produced by HCI
// Ingress (K1).
type InterruptClass string

const (
	InterruptNone    InterruptClass = "NONE"
	InterruptPause   InterruptClass = "PAUSE"
	InterruptStop    InterruptClass = "STOP"
	InterruptNewGoal InterruptClass = "NEW_GOAL"
)

// BatteryState classifies the robot's charge level.
type BatteryState string

const (
	BatteryFull        BatteryState = "FULL"
	BatteryCharging    BatteryState = "CHARGING"
	BatteryDischarging BatteryState = "DISCHARGING"
	BatteryLow         BatteryState = "LOW"
	BatteryCritical    BatteryState = "CRITICAL"
)

// Mode is the coarse operating regime arbitrated by Event Arbitrate (K4).
type Mode string

const (
	ModeSafe  Mode = "SAFE"
	ModeCharge Mode = "CHARGE"
	ModeExec  Mode = "EXEC"
	ModeIdle  Mode = "IDLE"
)

// TaskStatus is a Task's lifecycle state.
type TaskStatus string

const (
	TaskPending   TaskStatus = "PENDING"
	TaskRunning   TaskStatus = "RUNNING"
	TaskCompleted TaskStatus = "COMPLETED"
	TaskFailed    TaskStatus = "FAILED"
	TaskCancelled TaskStatus = "CANCELLED"
)

// DecisionType is the tag on every Decision produced by R2, including
// synthesized fallbacks.
type DecisionType string

const (
	DecisionContinue    DecisionType = "CONTINUE"
	DecisionReplan      DecisionType = "REPLAN"
	DecisionRetry       DecisionType = "RETRY"
	DecisionSwitchTask  DecisionType = "SWITCH_TASK"
	DecisionAskHuman    DecisionType = "ASK_HUMAN"
	DecisionFinish      DecisionType = "FINISH"
	DecisionAbort       DecisionType = "ABORT"
)

// InterfaceKind classifies how a skill is invoked.
type InterfaceKind string

const (
	InterfaceAction   InterfaceKind = "action"
	InterfaceService  InterfaceKind = "service"
	InterfaceInternal InterfaceKind = "internal"
)

// ApprovalAction is the human operator's response to a suspended dispatch.
type ApprovalAction string

const (
	ApprovalApprove ApprovalAction = "APPROVE"
	ApprovalEdit    ApprovalAction = "EDIT"
	ApprovalReject  ApprovalAction = "REJECT"
)

// The three physical resources R4 tracks for conflict detection.
const (
	ResourceBase    = "base"
	ResourceArm     = "arm"
	ResourceGripper = "gripper"
)

// Pose is a 3D position plus orientation quaternion.
type Pose struct {
	X, Y, Z         float64
	QX, QY, QZ, QW  float64
}

// Twist is a linear/angular velocity pair.
type Twist struct {
	LinearX, LinearY, LinearZ    float64
	AngularX, AngularY, AngularZ float64
}

// Obstacle is an axis-aligned bounding box annotated with a derived
// collision-risk flag (World Update, K3).
type Obstacle struct {
	X, Y, W, H    float64
	CollisionRisk bool
}

// Task is one unit of work in the priority queue K5 maintains.
type Task struct {
	ID                string
	GoalString        string
	Priority          int
	Deadline          *time.Time
	RequiredResources []string
	Preemptible       bool
	Status            TaskStatus
	CreatedAt         time.Time
	Metadata          map[string]interface{}
}

// PlanFragment is an unstructured inbox entry: either a model-proposed new
// task or a raw goal string, materialized into a Task only by K5.
type PlanFragment struct {
	GoalString        string
	Priority          int
	RequiredResources []string
	Metadata          map[string]interface{}
}

// SkillDef is a registry entry describing one invokable capability.
type SkillDef struct {
	Name              string
	InterfaceKind     InterfaceKind
	ArgsSchemaJSON    []byte // raw OpenAPI 3 schema document, validated via kin-openapi
	RequiredResources []string
	Preemptible       bool
	CancelSupported   bool
	TimeoutSeconds    int
	ErrorMap          map[string]string
	Description       string
}

// RunningSkill is a dispatched, not-yet-resolved skill invocation.
type RunningSkill struct {
	GoalID            string
	SkillName         string
	StartTime         time.Time
	TimeoutSeconds    int
	ResourcesOccupied []string
	Params            map[string]interface{}
}

// SkillResult is the outcome of a resolved skill invocation.
type SkillResult struct {
	GoalID      string
	SkillName   string
	Success     bool
	Code        string
	Data        map[string]interface{}
	CompletedAt time.Time
}

// Op is one model-proposed skill invocation inside a Decision.
type Op struct {
	Skill  string
	Params map[string]interface{}
}

// Decision is R2's tagged output.
type Decision struct {
	Type      DecisionType
	Reason    string
	PlanPatch map[string]interface{}
	Ops       []Op
}

// DispatchOp is one compiled, ready-to-execute invocation.
type DispatchOp struct {
	Skill  string
	Params map[string]interface{}
}

// ProposedOps is R3's compiled output, consumed by R4 and R6.
type ProposedOps struct {
	ToCancel        []string
	ToDispatch      []DispatchOp
	ToSpeak         []string
	NeedApproval    bool
	ApprovalPayload map[string]interface{}
}

// ApprovalResponse is the out-of-band reply to a need_approval suspension.
type ApprovalResponse struct {
	Action       ApprovalAction
	EditedParams map[string]interface{}
}

// Message is one entry in the bounded conversation window handed to R2.
type Message struct {
	Role    string
	Content string
	Type    string
}
