package kernel

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/corvid-robotics/robobrain/pkg/state"
)

// stopKeywords and pauseKeywords are checked before any goal pattern: an
// emergency stop inside a longer utterance must still be caught.
var stopKeywords = []string{"stop", "halt", "emergency", "cancel"}
var pauseKeywords = []string{"pause", "wait", "hold"}

var simpleGoalPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^go\s+to\s+(\w+)$`),
	regexp.MustCompile(`^navigate\s+to\s+(\w+)$`),
}

var navigationVerbs = []string{"go", "navigate", "to", "towards", "head"}

// HCIIngress is K1: classifies the current utterance into an interrupt
// class by simple, fixed keyword matching. Complex disambiguation is R2's
// job; this stage is intentionally dumb.
type HCIIngress struct{}

func (HCIIngress) Name() string { return "hci_ingress" }

func (HCIIngress) Execute(_ context.Context, s state.BrainState) (state.BrainState, error) {
	class, payload := parseIntent(s.HCI.Utterance)

	next := s.Clone()
	next.HCI.InterruptClass = class
	next.HCI.InterruptPayload = payload
	next.Trace.Lines = append(next.Trace.Lines, fmt.Sprintf("[hci_ingress] class=%s", class))
	return next, nil
}

func parseIntent(utterance string) (state.InterruptClass, map[string]interface{}) {
	if strings.TrimSpace(utterance) == "" {
		return state.InterruptNone, map[string]interface{}{}
	}

	text := strings.ToLower(strings.TrimSpace(utterance))

	for _, kw := range stopKeywords {
		if strings.Contains(text, kw) {
			return state.InterruptStop, map[string]interface{}{"original": utterance}
		}
	}
	for _, kw := range pauseKeywords {
		if strings.Contains(text, kw) {
			return state.InterruptPause, map[string]interface{}{"original": utterance}
		}
	}
	for _, pattern := range simpleGoalPatterns {
		if m := pattern.FindStringSubmatch(text); m != nil {
			return state.InterruptNewGoal, map[string]interface{}{
				"original": utterance,
				"target":   strings.TrimSpace(m[1]),
			}
		}
	}
	for _, verb := range navigationVerbs {
		if containsWord(text, verb) {
			return state.InterruptNewGoal, map[string]interface{}{"original": utterance}
		}
	}

	return state.InterruptNone, map[string]interface{}{"original": utterance}
}

func containsWord(text, word string) bool {
	for _, tok := range strings.Fields(text) {
		if tok == word {
			return true
		}
	}
	return false
}
