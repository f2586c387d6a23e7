package kernel_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/corvid-robotics/robobrain/pkg/kernel"
	"github.com/corvid-robotics/robobrain/pkg/state"
)

var _ = Describe("HCIIngress", func() {
	var stage kernel.HCIIngress

	execute := func(utterance string) state.BrainState {
		s := state.New("session-1")
		s.HCI.Utterance = utterance
		out, err := stage.Execute(context.Background(), s)
		Expect(err).NotTo(HaveOccurred())
		return out
	}

	It("classifies empty input as NONE", func() {
		out := execute("")
		Expect(out.HCI.InterruptClass).To(Equal(state.InterruptNone))
	})

	It("classifies a stop keyword as STOP even mid-sentence", func() {
		out := execute("please stop right now")
		Expect(out.HCI.InterruptClass).To(Equal(state.InterruptStop))
	})

	It("classifies a pause keyword as PAUSE", func() {
		out := execute("wait a moment")
		Expect(out.HCI.InterruptClass).To(Equal(state.InterruptPause))
	})

	It("classifies a simple goal pattern as NEW_GOAL with a target", func() {
		out := execute("go to kitchen")
		Expect(out.HCI.InterruptClass).To(Equal(state.InterruptNewGoal))
		Expect(out.HCI.InterruptPayload).To(HaveKeyWithValue("target", "kitchen"))
	})

	It("classifies other navigation-verb text as NEW_GOAL with only original set", func() {
		out := execute("could you navigate somewhere for me")
		Expect(out.HCI.InterruptClass).To(Equal(state.InterruptNewGoal))
		Expect(out.HCI.InterruptPayload).To(HaveKeyWithValue("original", "could you navigate somewhere for me"))
		Expect(out.HCI.InterruptPayload).NotTo(HaveKey("target"))
	})

	It("classifies ordinary chit-chat as NONE", func() {
		out := execute("how is the weather today")
		Expect(out.HCI.InterruptClass).To(Equal(state.InterruptNone))
	})

	It("stop takes priority over a goal-shaped phrase", func() {
		out := execute("stop, don't go to kitchen")
		Expect(out.HCI.InterruptClass).To(Equal(state.InterruptStop))
	})
})
