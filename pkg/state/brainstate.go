package state

// HCIState carries the current user-intent classification (K1).
type HCIState struct {
	Utterance        string
	InterruptClass   InterruptClass
	InterruptPayload map[string]interface{}
	ApprovalResponse *ApprovalResponse
}

// WorldState carries zone and obstacle information (K3).
type WorldState struct {
	Summary   string
	Zones     []string
	Obstacles []Obstacle
}

// RobotState carries pose, battery, and resource-busy telemetry (K2).
type RobotState struct {
	Pose             Pose
	HomePose         Pose
	Twist            Twist
	BatteryPct       float64
	BatteryState     BatteryState
	Resources        map[string]bool
	DistanceToTarget float64
}

// TasksState carries the priority queue and arbitrated mode (K4/K5).
type TasksState struct {
	Inbox         []PlanFragment
	Queue         []Task
	ActiveTaskID  *string
	Mode          Mode
	PreemptFlag   bool
	PreemptReason string
}

// SkillsState carries the skill registry and in-flight invocations.
type SkillsState struct {
	Registry   map[string]SkillDef
	Running    []RunningSkill
	LastResult *SkillResult
}

// ReactState carries the inner reasoning loop's working state (R1-R8).
type ReactState struct {
	Iter        int
	Observation map[string]interface{}
	Decision    *Decision
	ProposedOps *ProposedOps
	StopReason  string
}

// TraceState is an append-only human-readable log plus a metrics map.
type TraceState struct {
	Lines   []string
	Metrics map[string]interface{}
}

// MessagesState is the bounded conversation window handed to R2.
type MessagesState struct {
	Messages []Message
}

// BrainState is the single aggregate snapshot that flows between every
// Kernel and ReAct stage. Every stage function has the shape
// func(BrainState) BrainState (or an error-returning variant for adapter
// failures) — none of them mutate the snapshot passed in.
type BrainState struct {
	SessionID string
	HCI       HCIState
	World     WorldState
	Robot     RobotState
	Tasks     TasksState
	Skills    SkillsState
	React     ReactState
	Trace     TraceState
	Messages  MessagesState
}

// New returns a fresh BrainState for a session, with every substate at its
// declared zero/idle value.
func New(sessionID string) BrainState {
	return BrainState{
		SessionID: sessionID,
		HCI: HCIState{
			InterruptClass:   InterruptNone,
			InterruptPayload: map[string]interface{}{},
		},
		World: WorldState{
			Zones:     []string{},
			Obstacles: []Obstacle{},
		},
		Robot: RobotState{
			BatteryPct:   100,
			BatteryState: BatteryFull,
			Resources: map[string]bool{
				ResourceBase:    false,
				ResourceArm:     false,
				ResourceGripper: false,
			},
		},
		Tasks: TasksState{
			Queue: []Task{},
			Mode:  ModeIdle,
		},
		Skills: SkillsState{
			Registry: map[string]SkillDef{},
			Running:  []RunningSkill{},
		},
		React: ReactState{},
		Trace: TraceState{
			Lines:   []string{},
			Metrics: map[string]interface{}{},
		},
		Messages: MessagesState{
			Messages: []Message{},
		},
	}
}

// Clone returns a deep copy, so a caller can hold a snapshot reference
// across a stage call without aliasing slices/maps the stage mutates into
// its returned copy.
func (b BrainState) Clone() BrainState {
	clone := b

	clone.HCI.InterruptPayload = copyAnyMap(b.HCI.InterruptPayload)
	if b.HCI.ApprovalResponse != nil {
		ar := *b.HCI.ApprovalResponse
		ar.EditedParams = copyAnyMap(b.HCI.ApprovalResponse.EditedParams)
		clone.HCI.ApprovalResponse = &ar
	}

	clone.World.Zones = append([]string{}, b.World.Zones...)
	clone.World.Obstacles = append([]Obstacle{}, b.World.Obstacles...)

	clone.Robot.Resources = copyBoolMap(b.Robot.Resources)

	clone.Tasks.Inbox = append([]PlanFragment{}, b.Tasks.Inbox...)
	clone.Tasks.Queue = append([]Task{}, b.Tasks.Queue...)
	if b.Tasks.ActiveTaskID != nil {
		id := *b.Tasks.ActiveTaskID
		clone.Tasks.ActiveTaskID = &id
	}

	clone.Skills.Registry = make(map[string]SkillDef, len(b.Skills.Registry))
	for k, v := range b.Skills.Registry {
		clone.Skills.Registry[k] = v
	}
	clone.Skills.Running = append([]RunningSkill{}, b.Skills.Running...)
	if b.Skills.LastResult != nil {
		lr := *b.Skills.LastResult
		clone.Skills.LastResult = &lr
	}

	clone.React.Observation = copyAnyMap(b.React.Observation)
	if b.React.Decision != nil {
		d := *b.React.Decision
		d.Ops = append([]Op{}, b.React.Decision.Ops...)
		d.PlanPatch = copyAnyMap(b.React.Decision.PlanPatch)
		clone.React.Decision = &d
	}
	if b.React.ProposedOps != nil {
		po := *b.React.ProposedOps
		po.ToCancel = append([]string{}, b.React.ProposedOps.ToCancel...)
		po.ToDispatch = append([]DispatchOp{}, b.React.ProposedOps.ToDispatch...)
		po.ToSpeak = append([]string{}, b.React.ProposedOps.ToSpeak...)
		po.ApprovalPayload = copyAnyMap(b.React.ProposedOps.ApprovalPayload)
		clone.React.ProposedOps = &po
	}

	clone.Trace.Lines = append([]string{}, b.Trace.Lines...)
	clone.Trace.Metrics = copyAnyMap(b.Trace.Metrics)

	clone.Messages.Messages = append([]Message{}, b.Messages.Messages...)

	return clone
}

// AppendTrace adds a human-readable line to the append-only trace log.
func (b BrainState) AppendTrace(line string) BrainState {
	next := b.Clone()
	next.Trace.Lines = append(next.Trace.Lines, line)
	return next
}

// RecordMetric sets a key in the trace metrics map.
func (b BrainState) RecordMetric(key string, value interface{}) BrainState {
	next := b.Clone()
	if next.Trace.Metrics == nil {
		next.Trace.Metrics = map[string]interface{}{}
	}
	next.Trace.Metrics[key] = value
	return next
}

func copyAnyMap(m map[string]interface{}) map[string]interface{} {
	if m == nil {
		return nil
	}
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func copyBoolMap(m map[string]bool) map[string]bool {
	if m == nil {
		return nil
	}
	out := make(map[string]bool, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
