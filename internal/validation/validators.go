// Package validation holds the field-level checks applied at the two
// boundaries where untrusted data enters a BrainState snapshot: K2/K3
// telemetry-and-world ingestion, and R4 guardrails' schema check on
// model-proposed params (SPEC_FULL.md §3).
package validation

import (
	"fmt"
	"regexp"
	"strings"

	validator "github.com/go-playground/validator/v10"

	apperrors "github.com/corvid-robotics/robobrain/internal/errors"
)

var structValidator = validator.New()

// ValidateStruct runs go-playground/validator tag checks over v and
// collapses every failing field into a single AppError.
func ValidateStruct(v interface{}) error {
	if err := structValidator.Struct(v); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag()))
			}
			return apperrors.NewValidationError(strings.Join(msgs, "; "))
		}
		return apperrors.Wrap(err, apperrors.ErrorTypeValidation, "struct validation failed")
	}
	return nil
}

var identifierPattern = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// ValidateZoneReference checks a zone name against the fixed naming rules
// the zone table (SPEC_FULL.md §4.9) assumes: non-empty, bounded length,
// lower-snake-case.
func ValidateZoneReference(zone string) error {
	var errs []string
	if zone == "" {
		errs = append(errs, "zone is required")
	} else {
		if len(zone) > 63 {
			errs = append(errs, "zone must be 63 characters or less")
		}
		if !identifierPattern.MatchString(zone) {
			errs = append(errs, "zone must be a valid lower-snake-case name")
		}
	}
	if len(errs) > 0 {
		return apperrors.NewValidationError(strings.Join(errs, "; "))
	}
	return nil
}

var validResources = map[string]bool{"base": true, "arm": true, "gripper": true}

// ValidateResourceName checks that resource is one of the three physical
// resources the robot model understands (SPEC_FULL.md §3).
func ValidateResourceName(resource string) error {
	if resource == "" {
		return apperrors.NewValidationError("resource is required")
	}
	if !validResources[resource] {
		return apperrors.Newf(apperrors.ErrorTypeValidation, "resource %q is not a recognized physical resource", resource)
	}
	return nil
}

// ValidateSkillName checks a skill identifier's shape (non-empty, bounded,
// lower-snake-case) independent of whether it exists in any registry.
func ValidateSkillName(name string) error {
	var errs []string
	if name == "" {
		errs = append(errs, "skill name is required")
	} else {
		if len(name) > 100 {
			errs = append(errs, "skill name must be 100 characters or less")
		}
		if !identifierPattern.MatchString(name) {
			errs = append(errs, "skill name must be a valid lower-snake-case identifier")
		}
	}
	if len(errs) > 0 {
		return apperrors.NewValidationError(strings.Join(errs, "; "))
	}
	return nil
}

var unsafePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)union\s+select`),
	regexp.MustCompile(`(?i)drop\s+table`),
	regexp.MustCompile(`--`),
	regexp.MustCompile(`(?i)<script`),
	regexp.MustCompile(`;\s*--`),
}

// ValidateStringInput bounds a free-text field's length and rejects
// injection-style and control-character payloads before it is persisted or
// handed to a downstream SQL/shell surface. This is deliberately
// conservative: utterances and skill params reach this from an LLM and a
// user, neither trusted.
func ValidateStringInput(field, value string, maxLen int) error {
	if len(value) > maxLen {
		return apperrors.Newf(apperrors.ErrorTypeValidation, "%s must be %d characters or less", field, maxLen)
	}
	for _, pat := range unsafePatterns {
		if pat.MatchString(value) {
			return apperrors.Newf(apperrors.ErrorTypeValidation, "%s contains potentially unsafe characters", field)
		}
	}
	for _, r := range value {
		if r < 0x20 && r != '\t' && r != '\n' && r != '\r' {
			return apperrors.Newf(apperrors.ErrorTypeValidation, "%s contains invalid control characters", field)
		}
	}
	return nil
}

var timeRangePattern = regexp.MustCompile(`^\d+[smhd]$`)

// ValidateTimeRange checks a short duration literal like "30m" or "7d" used
// in config and history-window query parameters.
func ValidateTimeRange(s string) error {
	if err := ValidateStringInput("time_range", s, 16); err != nil {
		return err
	}
	if !timeRangePattern.MatchString(s) {
		return apperrors.Newf(apperrors.ErrorTypeValidation, "time_range must be in format like '30m', '24h', '7d'")
	}
	return nil
}

// ValidateWindowMinutes bounds a message/history window to at most 7 days.
func ValidateWindowMinutes(minutes int) error {
	if minutes <= 0 {
		return apperrors.New(apperrors.ErrorTypeValidation, "window_minutes must be greater than 0")
	}
	if minutes > 10080 {
		return apperrors.New(apperrors.ErrorTypeValidation, "window_minutes must be 7 days (10080 minutes) or less")
	}
	return nil
}

// ValidateLimit bounds a checkpointer/history query limit.
func ValidateLimit(limit int) error {
	if limit <= 0 {
		return apperrors.New(apperrors.ErrorTypeValidation, "limit must be greater than 0")
	}
	if limit > 10000 {
		return apperrors.New(apperrors.ErrorTypeValidation, "limit must be 10000 or less")
	}
	return nil
}

// SanitizeForLogging replaces control characters with '?' and truncates to
// 200 characters (+"...") so a raw utterance or model response can be
// logged without corrupting terminal/log output.
func SanitizeForLogging(input string) string {
	var b strings.Builder
	for _, r := range input {
		if r < 0x20 && r != '\t' && r != '\n' && r != '\r' {
			b.WriteRune('?')
		} else {
			b.WriteRune(r)
		}
	}
	out := b.String()
	if len(out) > 200 {
		out = out[:200] + "..."
	}
	return out
}
