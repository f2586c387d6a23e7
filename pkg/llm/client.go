// Package llm adapts the ReAct engine's single-string LLMClient contract
// onto real model providers: Anthropic Messages directly, and Anthropic
// models served through AWS Bedrock, each behind its own circuit breaker.
package llm

import (
	"context"

	"github.com/corvid-robotics/robobrain/pkg/state"
)

// Client is satisfied by every provider backend in this package, and by
// react.LLMClient — react never imports this package directly, to keep
// the reasoning pipeline free of provider SDKs.
type Client interface {
	Generate(ctx context.Context, messages []state.Message, systemPrompt string) (string, error)
}

// roleToAnthropic maps robobrain's three message roles onto the two the
// Anthropic Messages API accepts; "system" messages are folded into the
// system prompt parameter rather than sent as turns.
func roleToAnthropic(role string) string {
	switch role {
	case "assistant":
		return "assistant"
	default:
		return "user"
	}
}
