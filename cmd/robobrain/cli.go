package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/corvid-robotics/robobrain/pkg/kernel"
	"github.com/corvid-robotics/robobrain/pkg/orchestrator"
	"github.com/corvid-robotics/robobrain/pkg/state"
	"github.com/corvid-robotics/robobrain/pkg/world"
)

const terminalSessionID = "cli"

// runTerminal is a single-session REPL over stdin/stdout: a small set of
// slash commands for inspecting state, everything else treated as an
// utterance for the next turn. No third-party CLI framework is pulled in
// for this -- the surface is eight fixed commands over a line reader, which
// bufio.Scanner already covers.
func runTerminal(ctx context.Context, orch *orchestrator.Orchestrator, sim *world.Simulator) {
	fmt.Println("robobrain terminal -- type /help for commands, /quit to exit")

	snap, err := orch.RunTurn(ctx, terminalSessionID, "")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to start session: %v\n", err)
		return
	}
	sim.Sync(snap)

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		switch {
		case line == "/quit" || line == "/exit" || line == "/q":
			return
		case line == "/help":
			printHelp()
		case line == "/status":
			printStatus(snap)
		case line == "/map":
			printMap(snap)
		case line == "/prompt":
			printPrompt(snap)
		case line == "/run":
			snap = runTurn(ctx, orch, sim, snap, "")
		case line == "/approve":
			snap = resumeApproval(ctx, orch, sim, snap, state.ApprovalApprove, nil)
		case line == "/reject":
			snap = resumeApproval(ctx, orch, sim, snap, state.ApprovalReject, nil)
		case strings.HasPrefix(line, "/"):
			fmt.Printf("unrecognized command %q, try /help\n", line)
		default:
			snap = runTurn(ctx, orch, sim, snap, line)
		}

		if err := ctx.Err(); err != nil {
			return
		}
	}
}

func runTurn(ctx context.Context, orch *orchestrator.Orchestrator, sim *world.Simulator, prev state.BrainState, utterance string) state.BrainState {
	snap, err := orch.RunTurn(ctx, terminalSessionID, utterance)
	if err != nil {
		fmt.Printf("turn failed: %v\n", err)
		return prev
	}
	sim.Sync(snap)
	printResult(snap)
	return snap
}

func resumeApproval(ctx context.Context, orch *orchestrator.Orchestrator, sim *world.Simulator, prev state.BrainState, action state.ApprovalAction, edited map[string]interface{}) state.BrainState {
	if prev.React.StopReason != "waiting_for_approval" {
		fmt.Println("no approval is currently pending")
		return prev
	}
	snap, err := orch.ResumeApproval(ctx, terminalSessionID, state.ApprovalResponse{Action: action, EditedParams: edited})
	if err != nil {
		fmt.Printf("approval resume failed: %v\n", err)
		return prev
	}
	sim.Sync(snap)
	printResult(snap)
	return snap
}

func printHelp() {
	fmt.Println(`commands:
  /status   current mode, task, running skills, battery, pose
  /map      ASCII rendering of named zones and the robot's position
  /prompt   skill registry, current observation keys, last messages
  /run      execute one more pass with no new utterance
  /approve  approve a suspended dispatch waiting on human approval
  /reject   reject a suspended dispatch waiting on human approval
  /help     this message
  /quit     leave the session
  anything else is sent as an utterance`)
}

func printStatus(snap state.BrainState) {
	fmt.Printf("mode: %s\n", snap.Tasks.Mode)
	if snap.Tasks.ActiveTaskID != nil {
		fmt.Printf("active task: %s\n", *snap.Tasks.ActiveTaskID)
	} else {
		fmt.Println("active task: none")
	}
	fmt.Printf("queue length: %d\n", len(snap.Tasks.Queue))
	if len(snap.Skills.Running) == 0 {
		fmt.Println("running skills: none")
	} else {
		fmt.Println("running skills:")
		for _, rs := range snap.Skills.Running {
			fmt.Printf("  - %s (goal %s)\n", rs.SkillName, rs.GoalID)
		}
	}
	fmt.Printf("battery: %.1f%% (%s)\n", snap.Robot.BatteryPct, snap.Robot.BatteryState)
	p := snap.Robot.Pose
	fmt.Printf("pose: x=%.2f y=%.2f\n", p.X, p.Y)
	if snap.React.StopReason != "" {
		fmt.Printf("stop reason: %s\n", snap.React.StopReason)
	}
}

// printMap lists the zone table one zone per line in name order, marking
// the robot's nearest zone with R and zones the world source has not
// reported as "(unreported)", then prints the obstacle count.
func printMap(snap state.BrainState) {
	names := make([]string, 0, len(kernel.ZoneTable))
	for name := range kernel.ZoneTable {
		names = append(names, name)
	}
	sort.Strings(names)

	nearest := nearestZone(snap.Robot.Pose)
	for _, name := range names {
		marker := " "
		if name == nearest {
			marker = "R"
		}
		blocked := ""
		if !containsString(snap.World.Zones, name) {
			blocked = " (unreported)"
		}
		fmt.Printf("[%s] %-17s%s\n", marker, name, blocked)
	}
	if len(snap.World.Obstacles) > 0 {
		fmt.Printf("obstacles in view: %d\n", len(snap.World.Obstacles))
	}
}

func nearestZone(pose state.Pose) string {
	best, bestDist := "", -1.0
	for name, xy := range kernel.ZoneTable {
		dx, dy := pose.X-xy[0], pose.Y-xy[1]
		dist := dx*dx + dy*dy
		if bestDist < 0 || dist < bestDist {
			best, bestDist = name, dist
		}
	}
	return best
}

func containsString(haystack []string, needle string) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}
	return false
}

func printPrompt(snap state.BrainState) {
	fmt.Println("skill registry:")
	names := make([]string, 0, len(snap.Skills.Registry))
	for name := range snap.Skills.Registry {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		def := snap.Skills.Registry[name]
		fmt.Printf("  - %s: %s\n", name, def.Description)
	}

	fmt.Printf("observation keys: %v\n", observationKeys(snap))

	fmt.Println("last messages:")
	msgs := snap.Messages.Messages
	if len(msgs) > 5 {
		msgs = msgs[len(msgs)-5:]
	}
	for _, m := range msgs {
		fmt.Printf("  [%s] %s\n", m.Role, m.Content)
	}
}

func observationKeys(snap state.BrainState) []string {
	keys := make([]string, 0, len(snap.React.Observation))
	for k := range snap.React.Observation {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// printResult shows the trace tail, the last decision, and anything the
// loop decided to speak -- the three things an operator watching the
// session actually wants after each turn.
func printResult(snap state.BrainState) {
	lines := snap.Trace.Lines
	if len(lines) > 5 {
		lines = lines[len(lines)-5:]
	}
	for _, line := range lines {
		fmt.Printf("  %s\n", line)
	}

	if snap.React.Decision != nil {
		fmt.Printf("decision: %s (%s)\n", snap.React.Decision.Type, snap.React.Decision.Reason)
	}
	if snap.React.ProposedOps != nil {
		for _, msg := range snap.React.ProposedOps.ToSpeak {
			fmt.Printf("robot says: %s\n", msg)
		}
	}
	if snap.React.StopReason == "waiting_for_approval" {
		fmt.Println("a dispatch is waiting for approval -- use /approve or /reject")
	}
}
