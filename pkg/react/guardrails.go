package react

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/open-policy-agent/opa/rego"

	apperrors "github.com/corvid-robotics/robobrain/internal/errors"
	"github.com/corvid-robotics/robobrain/pkg/state"
)

//go:embed policies/guardrails.rego
var guardrailsPolicy string

// Guardrails is R4: the last hard check before a dispatch is allowed
// through. It rejects proposed dispatches for unknown skills, schema
// violations, and resource conflicts, then runs the survivors past a
// supplementary Rego policy. Any rejection demotes the decision to REPLAN
// (1-2 errors) or ASK_HUMAN (more than 2), and flags the pass as FAILED.
type Guardrails struct{}

func (Guardrails) Name() string { return "guardrails_check" }

func (Guardrails) Execute(ctx context.Context, s state.BrainState) (state.BrainState, error) {
	next := s.Clone()

	if next.React.ProposedOps == nil {
		return next, nil
	}

	validated, errs := validate(ctx, next, *next.React.ProposedOps)
	next.React.ProposedOps = &validated

	if len(errs) > 0 {
		errMsg := joinErrors(errs)
		decisionType := state.DecisionReplan
		if len(errs) > 2 {
			decisionType = state.DecisionAskHuman
		}
		next.React.Decision = &state.Decision{
			Type:   decisionType,
			Reason: fmt.Sprintf("guardrails check failed: %s", errMsg),
		}
		next.Skills.LastResult = &state.SkillResult{
			Success: false,
			Code:    "GUARDRAILS_FAILED",
			Data:    map[string]interface{}{"errors": errs},
		}
		next.Trace.Lines = append(next.Trace.Lines, fmt.Sprintf("[guardrails_check] failed: %v", errs))
		return next, nil
	}

	next.Trace.Lines = append(next.Trace.Lines, "[guardrails_check] passed")
	return next, nil
}

func validate(ctx context.Context, s state.BrainState, ops state.ProposedOps) (state.ProposedOps, []string) {
	var errs []string
	var valid []state.DispatchOp

	for _, d := range ops.ToDispatch {
		def, ok := s.Skills.Registry[d.Skill]
		if !ok {
			errs = append(errs, fmt.Sprintf("skill not found: %s", d.Skill))
			continue
		}

		if err := validateSchema(def, d.Params); err != nil {
			errs = append(errs, fmt.Sprintf("invalid params for %s: %v", d.Skill, err))
			continue
		}

		if conflict := checkResourceConflict(def.RequiredResources, s.Robot.Resources, s.Skills.Running); conflict != "" {
			errs = append(errs, fmt.Sprintf("resource conflict for %s: %s", d.Skill, conflict))
			continue
		}

		if policyErrs := evalPolicy(ctx, s, def, d.Params); len(policyErrs) > 0 {
			errs = append(errs, policyErrs...)
			continue
		}

		valid = append(valid, d)
	}

	ops.ToDispatch = valid
	return ops, errs
}

// validateSchema checks required-field presence declared in the skill's
// OpenAPI 3 args schema against the proposed params.
func validateSchema(def state.SkillDef, params map[string]interface{}) error {
	if len(def.ArgsSchemaJSON) == 0 {
		return nil
	}

	var schema openapi3.Schema
	if err := json.Unmarshal(def.ArgsSchemaJSON, &schema); err != nil {
		return apperrors.Wrapf(err, apperrors.ErrorTypeParse, "malformed args schema for %s", def.Name)
	}

	value := make(map[string]interface{}, len(params))
	for k, v := range params {
		value[k] = v
	}
	if err := schema.VisitJSON(value); err != nil {
		return err
	}
	return nil
}

// checkResourceConflict reports the first required resource that is
// either flagged busy on the robot, or occupied by an in-flight skill.
func checkResourceConflict(required []string, resources map[string]bool, running []state.RunningSkill) string {
	for _, r := range required {
		if resources[r] {
			return fmt.Sprintf("resource %s is busy", r)
		}
	}

	occupied := map[string]bool{}
	for _, skill := range running {
		for _, r := range skill.ResourcesOccupied {
			occupied[r] = true
		}
	}
	for _, r := range required {
		if occupied[r] {
			return fmt.Sprintf("resource %s is occupied by a running skill", r)
		}
	}
	return ""
}

// evalPolicy runs the embedded Rego policy over the proposed dispatch,
// returning any deny messages it produces as additional errors.
func evalPolicy(ctx context.Context, s state.BrainState, def state.SkillDef, params map[string]interface{}) []string {
	input := map[string]interface{}{
		"skill":                      def.Name,
		"skill_resources_required":   def.RequiredResources,
		"resources_busy":             s.Robot.Resources,
		"battery_pct":                s.Robot.BatteryPct,
		"params":                     params,
	}

	query, err := rego.New(
		rego.Query("data.guardrails.deny"),
		rego.Module("guardrails.rego", guardrailsPolicy),
		rego.Input(input),
	).PrepareForEval(ctx)
	if err != nil {
		return nil
	}

	results, err := query.Eval(ctx, rego.EvalInput(input))
	if err != nil || len(results) == 0 || len(results[0].Expressions) == 0 {
		return nil
	}

	denied, ok := results[0].Expressions[0].Value.([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(denied))
	for _, d := range denied {
		if msg, ok := d.(string); ok {
			out = append(out, msg)
		}
	}
	return out
}

func joinErrors(errs []string) string {
	out := ""
	for i, e := range errs {
		if i > 0 {
			out += "; "
		}
		out += e
	}
	return out
}
