package llm

import (
	"context"

	"github.com/sony/gobreaker"

	apperrors "github.com/corvid-robotics/robobrain/internal/errors"
	"github.com/corvid-robotics/robobrain/pkg/state"
)

// RoutedClient wraps a primary and an optional secondary provider, each
// behind its own circuit breaker. A call only falls through to the
// secondary once the primary's breaker has tripped open or the primary
// call itself errors.
type RoutedClient struct {
	primary         Client
	primaryBreaker  *gobreaker.CircuitBreaker
	secondary       Client
	secondaryBreaker *gobreaker.CircuitBreaker
}

// OnStateChange is invoked whenever either breaker transitions state,
// suitable for wiring into structured logging.
type OnStateChange func(breaker, from, to string)

// NewRoutedClient builds a router over a required primary and an
// optional secondary backend (pass nil to disable failover).
func NewRoutedClient(primary, secondary Client, onStateChange OnStateChange) *RoutedClient {
	var stateChangeFn func(name, from, to string)
	if onStateChange != nil {
		stateChangeFn = func(name, from, to string) { onStateChange(name, from, to) }
	}

	r := &RoutedClient{
		primary:        primary,
		primaryBreaker: newBreaker("llm_primary", stateChangeFn),
	}
	if secondary != nil {
		r.secondary = secondary
		r.secondaryBreaker = newBreaker("llm_secondary", stateChangeFn)
	}
	return r
}

func (r *RoutedClient) Generate(ctx context.Context, messages []state.Message, systemPrompt string) (string, error) {
	result, err := r.primaryBreaker.Execute(func() (interface{}, error) {
		return r.primary.Generate(ctx, messages, systemPrompt)
	})
	if err == nil {
		return result.(string), nil
	}
	if r.secondary == nil {
		return "", apperrors.Wrap(err, apperrors.ErrorTypeNetwork, "primary LLM provider failed, no secondary configured")
	}

	result, err = r.secondaryBreaker.Execute(func() (interface{}, error) {
		return r.secondary.Generate(ctx, messages, systemPrompt)
	})
	if err != nil {
		return "", apperrors.Wrap(err, apperrors.ErrorTypeNetwork, "both primary and secondary LLM providers failed")
	}
	return result.(string), nil
}
