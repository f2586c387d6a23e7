package kernel

import (
	"context"
	"fmt"

	"github.com/corvid-robotics/robobrain/pkg/state"
)

// RouteTarget names the downstream handler a pass is routed to.
type RouteTarget string

const (
	RouteSafeHandler   RouteTarget = "safe_handler"
	RouteChargeHandler RouteTarget = "charge_handler"
	RouteReactLoop     RouteTarget = "react_loop"
	RouteIdleWait       RouteTarget = "idle_wait"
)

var modeRouteMap = map[state.Mode]RouteTarget{
	state.ModeSafe:   RouteSafeHandler,
	state.ModeCharge: RouteChargeHandler,
	state.ModeExec:   RouteReactLoop,
	state.ModeIdle:   RouteIdleWait,
}

// KernelRoute is K6: a pure mapping from the arbitrated mode to a routing
// target, recorded into trace metrics for the orchestrator to read.
type KernelRoute struct{}

func (KernelRoute) Name() string { return "kernel_route" }

func (KernelRoute) Execute(_ context.Context, s state.BrainState) (state.BrainState, error) {
	target := RouteFor(s.Tasks.Mode)

	next := s.Clone()
	if next.Trace.Metrics == nil {
		next.Trace.Metrics = map[string]interface{}{}
	}
	next.Trace.Metrics["route_target"] = string(target)
	next.Trace.Lines = append(next.Trace.Lines, fmt.Sprintf(
		"[kernel_route] mode=%s -> route=%s", s.Tasks.Mode, target,
	))
	return next, nil
}

// RouteFor returns the routing target for a given mode, defaulting to
// idle-wait for any mode not in the table.
func RouteFor(mode state.Mode) RouteTarget {
	if target, ok := modeRouteMap[mode]; ok {
		return target
	}
	return RouteIdleWait
}

// ShouldEnterReact reports whether a pass should enter the ReAct inner loop.
func ShouldEnterReact(s state.BrainState) bool { return s.Tasks.Mode == state.ModeExec }

// ShouldHandleSafety reports whether a pass should run the safety handler.
func ShouldHandleSafety(s state.BrainState) bool { return s.Tasks.Mode == state.ModeSafe }

// ShouldHandleCharge reports whether a pass should run the charge handler.
func ShouldHandleCharge(s state.BrainState) bool { return s.Tasks.Mode == state.ModeCharge }
