package llm

import (
	"time"

	"github.com/sony/gobreaker"
)

// newBreaker matches the circuit-breaker defaults used elsewhere in this
// codebase's ancestry: open after 5 consecutive failures, stay open 30s,
// then allow a single half-open probe.
func newBreaker(name string, onStateChange func(name, from, to string)) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			if onStateChange != nil {
				onStateChange(name, from.String(), to.String())
			}
		},
	})
}
