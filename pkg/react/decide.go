package react

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/itchyny/gojq"

	apperrors "github.com/corvid-robotics/robobrain/internal/errors"
	"github.com/corvid-robotics/robobrain/pkg/state"
)

// systemPrompt instructs the model on the seven decision types and the
// JSON envelope it must reply with.
const systemPrompt = `You are a household service robot's task scheduler. Given the current observation, decide what to do next.

Decision types:
- CONTINUE: keep executing the current plan
- REPLAN: the current plan is no longer viable, propose a new one
- RETRY: retry the last operation after a transient failure
- SWITCH_TASK: switch to a different queued task
- ASK_HUMAN: request human intervention
- FINISH: the active task is complete
- ABORT: abandon the active task

Reply with exactly one JSON object:
{
  "type": "CONTINUE|REPLAN|RETRY|SWITCH_TASK|ASK_HUMAN|FINISH|ABORT",
  "reason": "why",
  "plan_patch": null or {...},
  "ops": [{"skill": "skill_name", "params": {...}}],
  "new_tasks": [{"goal": "navigate_to:kitchen", "priority": 50}]
}`

// LLMClient is the model boundary R2 calls through. Implementations (e.g.
// pkg/llm's Anthropic/Bedrock router) see only chat-style messages and a
// system prompt, and return raw text.
type LLMClient interface {
	Generate(ctx context.Context, messages []state.Message, systemPrompt string) (string, error)
}

// Decide is R2: prepares the model input, calls the LLM, and parses its
// reply into a Decision — tolerantly, and never fatally.
type Decide struct {
	Client LLMClient
}

func (Decide) Name() string { return "react_decide" }

func (d Decide) Execute(ctx context.Context, s state.BrainState) (state.BrainState, error) {
	next := s.Clone()

	messages := prepareMessages(next)
	var raw string
	var genErr error
	if d.Client != nil {
		raw, genErr = d.Client.Generate(ctx, messages, systemPrompt)
	} else {
		raw, genErr = "", apperrors.New(apperrors.ErrorTypeInternal, "no LLM client configured")
	}

	var decision state.Decision
	var newTasks []state.PlanFragment
	if genErr != nil {
		decision = state.Decision{
			Type:   state.DecisionContinue,
			Reason: fmt.Sprintf("LLM call failed: %v", genErr),
		}
	} else {
		decision, newTasks = parseDecision(raw)
	}

	decision = gateReplan(next, decision)

	next.React.Decision = &decision
	if len(newTasks) > 0 && decisionAllowsNewTasks(decision) {
		next.Tasks.Inbox = append(next.Tasks.Inbox, newTasks...)
	}

	next.Messages.Messages = append(next.Messages.Messages, state.Message{
		Role:    "assistant",
		Type:    "decision",
		Content: raw,
	})

	// The utterance that drove this decision has been consumed.
	next.HCI.Utterance = ""

	next.Trace.Lines = append(next.Trace.Lines, fmt.Sprintf(
		"[react_decide] decision=%s reason=%s", decision.Type, decision.Reason,
	))
	return next, nil
}

func decisionAllowsNewTasks(d state.Decision) bool {
	switch d.Type {
	case state.DecisionAbort, state.DecisionFinish, state.DecisionAskHuman:
		return false
	}
	return true
}

// prepareMessages builds the chat history handed to the model: a system
// message summarizing the skill registry, then the most recent history.
func prepareMessages(s state.BrainState) []state.Message {
	out := make([]state.Message, 0, 1+maxHistoryMessages)
	out = append(out, state.Message{Role: "system", Content: formatSkillRegistry(s)})
	out = append(out, recentHistory(s)...)
	return out
}

func formatSkillRegistry(s state.BrainState) string {
	if len(s.Skills.Registry) == 0 {
		return "Available skills: None"
	}

	names := make([]string, 0, len(s.Skills.Registry))
	for name := range s.Skills.Registry {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString("Available skills:\n")
	for _, name := range names {
		skill := s.Skills.Registry[name]
		desc := skill.Description
		if desc == "" {
			desc = "No description"
		}
		fmt.Fprintf(&b, "- %s: %s\n", name, desc)
		if len(skill.ArgsSchemaJSON) > 0 {
			fmt.Fprintf(&b, "  Args: %s\n", skill.ArgsSchemaJSON)
		}
	}
	return b.String()
}

type decisionEnvelope struct {
	Type      string                   `json:"type"`
	Reason    string                   `json:"reason"`
	PlanPatch map[string]interface{}   `json:"plan_patch"`
	Ops       []opEnvelope             `json:"ops"`
	NewTasks  []planFragmentEnvelope   `json:"new_tasks"`
}

type opEnvelope struct {
	Skill  string                 `json:"skill"`
	Params map[string]interface{} `json:"params"`
}

type planFragmentEnvelope struct {
	Goal              string                 `json:"goal"`
	Priority          int                    `json:"priority"`
	RequiredResources []string               `json:"required_resources"`
	Metadata          map[string]interface{} `json:"metadata"`
}

var validDecisionTypes = map[string]bool{
	string(state.DecisionContinue):   true,
	string(state.DecisionReplan):     true,
	string(state.DecisionRetry):      true,
	string(state.DecisionSwitchTask): true,
	string(state.DecisionAskHuman):   true,
	string(state.DecisionFinish):     true,
	string(state.DecisionAbort):      true,
}

// parseDecision extracts a Decision from the model's raw reply. On any
// parse failure it synthesizes a CONTINUE decision carrying the error as
// its reason, rather than escalating to ASK_HUMAN — a stalled parse must
// never stop the loop.
func parseDecision(raw string) (state.Decision, []state.PlanFragment) {
	env, err := extractJSON(raw)
	if err != nil {
		return state.Decision{
			Type:   state.DecisionContinue,
			Reason: fmt.Sprintf("failed to parse LLM response: %v", truncate(raw, 100)),
		}, nil
	}

	if !validDecisionTypes[env.Type] {
		return state.Decision{
			Type:   state.DecisionContinue,
			Reason: fmt.Sprintf("unrecognized decision type %q", env.Type),
		}, nil
	}

	ops := make([]state.Op, 0, len(env.Ops))
	for _, o := range env.Ops {
		if o.Skill == "" {
			continue
		}
		ops = append(ops, state.Op{Skill: o.Skill, Params: o.Params})
	}

	var newTasks []state.PlanFragment
	for _, t := range env.NewTasks {
		if t.Goal == "" {
			continue
		}
		newTasks = append(newTasks, state.PlanFragment{
			GoalString:        t.Goal,
			Priority:          t.Priority,
			RequiredResources: t.RequiredResources,
			Metadata:          t.Metadata,
		})
	}

	return state.Decision{
		Type:      state.DecisionType(env.Type),
		Reason:    env.Reason,
		PlanPatch: env.PlanPatch,
		Ops:       ops,
	}, newTasks
}

var bracedJSON = regexp.MustCompile(`(?s)\{.*\}`)

// extractJSON tries a direct decode first, then falls back to pulling the
// first brace-delimited block out of surrounding prose, then to the gojq
// pass in extractWithGojq.
func extractJSON(text string) (decisionEnvelope, error) {
	text = stripCodeFence(text)

	var env decisionEnvelope
	if err := json.Unmarshal([]byte(text), &env); err == nil {
		return env, nil
	}

	if match := bracedJSON.FindString(text); match != "" {
		if err := json.Unmarshal([]byte(match), &env); err == nil {
			return env, nil
		}
	}

	if err := extractWithGojq(text, &env); err == nil {
		return env, nil
	}

	return decisionEnvelope{}, apperrors.Newf(apperrors.ErrorTypeParse, "no JSON object found in LLM response")
}

// extractWithGojq decodes the braced block (if any) with encoding/json and
// passes it through gojq's identity query. It accepts only blocks that
// encoding/json already decodes, so it recovers nothing the brace-scan
// step before it rejected.
func extractWithGojq(text string, env *decisionEnvelope) error {
	match := bracedJSON.FindString(text)
	if match == "" {
		return apperrors.New(apperrors.ErrorTypeParse, "no braces found")
	}

	var raw interface{}
	if err := json.Unmarshal([]byte(match), &raw); err != nil {
		return err
	}

	query, err := gojq.Parse(".")
	if err != nil {
		return err
	}
	code, err := gojq.Compile(query)
	if err != nil {
		return err
	}
	iter := code.Run(raw)
	v, ok := iter.Next()
	if !ok {
		return apperrors.New(apperrors.ErrorTypeParse, "gojq produced no output")
	}
	if err, ok := v.(error); ok {
		return err
	}

	reencoded, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return json.Unmarshal(reencoded, env)
}

func stripCodeFence(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// gateReplan demotes REPLAN/RETRY/SWITCH_TASK to CONTINUE unless there is
// an independent external signal justifying a plan change: a fresh
// utterance, a live user interrupt, a safety/charge mode, or an active
// collision risk. Without that gate, the model could unilaterally
// reshuffle the task queue on every pass.
func gateReplan(s state.BrainState, d state.Decision) state.Decision {
	switch d.Type {
	case state.DecisionReplan, state.DecisionRetry, state.DecisionSwitchTask:
	default:
		return d
	}

	if replanJustified(s) {
		return d
	}

	return state.Decision{
		Type:   state.DecisionContinue,
		Reason: fmt.Sprintf("%s demoted to CONTINUE: no justifying signal present", d.Type),
	}
}

func replanJustified(s state.BrainState) bool {
	if strings.TrimSpace(s.HCI.Utterance) != "" {
		return true
	}
	if s.HCI.InterruptClass != state.InterruptNone {
		return true
	}
	if s.Tasks.Mode == state.ModeSafe || s.Tasks.Mode == state.ModeCharge {
		return true
	}
	for _, obs := range s.World.Obstacles {
		if obs.CollisionRisk {
			return true
		}
	}
	return false
}
