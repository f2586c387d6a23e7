package react_test

import (
	"context"
	"fmt"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/corvid-robotics/robobrain/pkg/react"
	"github.com/corvid-robotics/robobrain/pkg/state"
)

type fakeLLMClient struct {
	response string
	err      error
}

func (f *fakeLLMClient) Generate(_ context.Context, _ []state.Message, _ string) (string, error) {
	return f.response, f.err
}

var _ = Describe("Decide", func() {
	run := func(s state.BrainState, client react.LLMClient) state.BrainState {
		stage := react.Decide{Client: client}
		out, err := stage.Execute(context.Background(), s)
		Expect(err).NotTo(HaveOccurred())
		return out
	}

	It("parses a well-formed decision", func() {
		s := state.New("session-1")
		client := &fakeLLMClient{response: `{"type":"CONTINUE","reason":"on track","ops":[]}`}

		out := run(s, client)
		Expect(out.React.Decision.Type).To(Equal(state.DecisionContinue))
		Expect(out.React.Decision.Reason).To(Equal("on track"))
	})

	It("extracts JSON embedded in surrounding prose", func() {
		s := state.New("session-1")
		client := &fakeLLMClient{response: "Sure thing, here's my decision:\n```json\n{\"type\":\"FINISH\",\"reason\":\"done\"}\n```"}

		out := run(s, client)
		Expect(out.React.Decision.Type).To(Equal(state.DecisionFinish))
	})

	It("synthesizes a CONTINUE decision on parse failure, never crashing the loop", func() {
		s := state.New("session-1")
		client := &fakeLLMClient{response: "not json at all"}

		out := run(s, client)
		Expect(out.React.Decision.Type).To(Equal(state.DecisionContinue))
		Expect(out.React.Decision.Reason).To(ContainSubstring("failed to parse"))
	})

	It("synthesizes CONTINUE when the LLM call itself fails", func() {
		s := state.New("session-1")
		client := &fakeLLMClient{err: fmt.Errorf("connection refused")}

		out := run(s, client)
		Expect(out.React.Decision.Type).To(Equal(state.DecisionContinue))
		Expect(out.React.Decision.Reason).To(ContainSubstring("LLM call failed"))
	})

	It("demotes REPLAN to CONTINUE with no justifying signal", func() {
		s := state.New("session-1")
		client := &fakeLLMClient{response: `{"type":"REPLAN","reason":"let's change plans"}`}

		out := run(s, client)
		Expect(out.React.Decision.Type).To(Equal(state.DecisionContinue))
		Expect(out.React.Decision.Reason).To(ContainSubstring("demoted"))
	})

	It("honors REPLAN when a collision risk is present", func() {
		s := state.New("session-1")
		s.World.Obstacles = []state.Obstacle{{CollisionRisk: true}}
		client := &fakeLLMClient{response: `{"type":"REPLAN","reason":"obstacle ahead"}`}

		out := run(s, client)
		Expect(out.React.Decision.Type).To(Equal(state.DecisionReplan))
	})

	It("honors SWITCH_TASK when a fresh utterance is present", func() {
		s := state.New("session-1")
		s.HCI.Utterance = "actually go to the kitchen instead"
		client := &fakeLLMClient{response: `{"type":"SWITCH_TASK","reason":"user asked"}`}

		out := run(s, client)
		Expect(out.React.Decision.Type).To(Equal(state.DecisionSwitchTask))
	})

	It("blanks the utterance after it has been consumed", func() {
		s := state.New("session-1")
		s.HCI.Utterance = "go to the kitchen"
		client := &fakeLLMClient{response: `{"type":"CONTINUE","reason":"ok"}`}

		out := run(s, client)
		Expect(out.HCI.Utterance).To(Equal(""))
	})

	It("pushes model-proposed new tasks to the inbox, not the queue", func() {
		s := state.New("session-1")
		client := &fakeLLMClient{response: `{"type":"CONTINUE","reason":"ok","new_tasks":[{"goal":"navigate_to:kitchen","priority":40}]}`}

		out := run(s, client)
		Expect(out.Tasks.Inbox).To(HaveLen(1))
		Expect(out.Tasks.Queue).To(BeEmpty())
	})

	It("drops new_tasks when the decision is ASK_HUMAN", func() {
		s := state.New("session-1")
		client := &fakeLLMClient{response: `{"type":"ASK_HUMAN","reason":"unsure","new_tasks":[{"goal":"navigate_to:kitchen"}]}`}

		out := run(s, client)
		Expect(out.Tasks.Inbox).To(BeEmpty())
	})
})
