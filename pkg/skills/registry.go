// Package skills defines the catalog of invokable robot capabilities and
// the executor boundary R6 Dispatch and R7 Observe Result talk to.
package skills

import (
	_ "embed"
	"encoding/json"

	"github.com/corvid-robotics/robobrain/pkg/state"
)

// Fixed skill names. navigate_to_unknown, manipulate, and dock additionally
// appear in pkg/react's high-risk list and always require human approval.
const (
	NavigateToPose    = "navigate_to_pose"
	NavigateToUnknown = "navigate_to_unknown"
	Speak             = "speak"
	StopBase          = "stop_base"
	Dock              = "dock"
	Manipulate        = "manipulate"
	ChargeDock        = "charge_dock"
)

//go:embed schemas/navigate_to_pose.json
var navigateToPoseSchema []byte

//go:embed schemas/navigate_to_unknown.json
var navigateToUnknownSchema []byte

//go:embed schemas/speak.json
var speakSchema []byte

//go:embed schemas/stop_base.json
var stopBaseSchema []byte

//go:embed schemas/dock.json
var dockSchema []byte

//go:embed schemas/manipulate.json
var manipulateSchema []byte

//go:embed schemas/charge_dock.json
var chargeDockSchema []byte

// DefaultRegistry returns the fixed catalog of skills this system's
// low-level action layer is assumed to expose. Orchestrator wiring starts
// from this map and may add or override entries for a given deployment.
func DefaultRegistry() map[string]state.SkillDef {
	return map[string]state.SkillDef{
		NavigateToPose: {
			Name:              NavigateToPose,
			InterfaceKind:     state.InterfaceAction,
			ArgsSchemaJSON:    navigateToPoseSchema,
			RequiredResources: []string{state.ResourceBase},
			Preemptible:       true,
			CancelSupported:   true,
			TimeoutSeconds:    60,
			ErrorMap: map[string]string{
				"PATH_BLOCKED": "retry after the obstacle clears or ask for a detour",
				"ABORTED":      "retry once, then ask_human",
			},
			Description: "Drive the base to a target pose via the navigation stack.",
		},
		NavigateToUnknown: {
			Name:              NavigateToUnknown,
			InterfaceKind:     state.InterfaceAction,
			ArgsSchemaJSON:    navigateToUnknownSchema,
			RequiredResources: []string{state.ResourceBase},
			Preemptible:       true,
			CancelSupported:   true,
			TimeoutSeconds:    90,
			ErrorMap: map[string]string{
				"PATH_BLOCKED": "ask_human, this zone has no known safe path",
			},
			Description: "Explore toward a named but unmapped destination. Always requires approval.",
		},
		Speak: {
			Name:              Speak,
			InterfaceKind:     state.InterfaceService,
			ArgsSchemaJSON:    speakSchema,
			RequiredResources: nil,
			Preemptible:       false,
			CancelSupported:   false,
			TimeoutSeconds:    15,
			Description:       "Synthesize and play an utterance through the robot's speaker.",
		},
		StopBase: {
			Name:              StopBase,
			InterfaceKind:     state.InterfaceService,
			ArgsSchemaJSON:    stopBaseSchema,
			RequiredResources: []string{state.ResourceBase},
			Preemptible:       false,
			CancelSupported:   false,
			TimeoutSeconds:    5,
			Description:       "Bring the base to an immediate halt.",
		},
		Dock: {
			Name:              Dock,
			InterfaceKind:     state.InterfaceAction,
			ArgsSchemaJSON:    dockSchema,
			RequiredResources: []string{state.ResourceBase},
			Preemptible:       false,
			CancelSupported:   true,
			TimeoutSeconds:    120,
			ErrorMap: map[string]string{
				"DOCK_MISALIGNED": "retry with a fresh approach",
			},
			Description: "Return to and mechanically couple with the charging dock. Always requires approval.",
		},
		Manipulate: {
			Name:              Manipulate,
			InterfaceKind:     state.InterfaceAction,
			ArgsSchemaJSON:    manipulateSchema,
			RequiredResources: []string{state.ResourceArm, state.ResourceGripper},
			Preemptible:       false,
			CancelSupported:   true,
			TimeoutSeconds:    45,
			ErrorMap: map[string]string{
				"GRASP_FAILED": "retry once with an adjusted approach, then ask_human",
			},
			Description: "Operate the arm and gripper against a target object. Always requires approval.",
		},
		ChargeDock: {
			Name:              ChargeDock,
			InterfaceKind:     state.InterfaceInternal,
			ArgsSchemaJSON:    chargeDockSchema,
			RequiredResources: nil,
			Preemptible:       true,
			CancelSupported:   true,
			TimeoutSeconds:    3600,
			Description:       "Hold at the dock until battery crosses the resume threshold.",
		},
	}
}

// MustSchema is a convenience for tests and tooling that want to confirm a
// registered schema is well-formed JSON without reaching into the embed.
func MustSchema(raw []byte) map[string]interface{} {
	var out map[string]interface{}
	if err := json.Unmarshal(raw, &out); err != nil {
		panic(err)
	}
	return out
}
