package kernel_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/corvid-robotics/robobrain/pkg/kernel"
	"github.com/corvid-robotics/robobrain/pkg/state"
)

var _ = Describe("KernelRoute", func() {
	DescribeTable("mode to route mapping",
		func(mode state.Mode, expected kernel.RouteTarget) {
			Expect(kernel.RouteFor(mode)).To(Equal(expected))
		},
		Entry("SAFE routes to the safety handler", state.ModeSafe, kernel.RouteSafeHandler),
		Entry("CHARGE routes to the charge handler", state.ModeCharge, kernel.RouteChargeHandler),
		Entry("EXEC routes to the ReAct loop", state.ModeExec, kernel.RouteReactLoop),
		Entry("IDLE routes to idle-wait", state.ModeIdle, kernel.RouteIdleWait),
	)

	It("records the route target into trace metrics", func() {
		var stage kernel.KernelRoute
		s := state.New("session-1")
		s.Tasks.Mode = state.ModeExec

		out, err := stage.Execute(context.Background(), s)
		Expect(err).NotTo(HaveOccurred())
		Expect(out.Trace.Metrics).To(HaveKeyWithValue("route_target", string(kernel.RouteReactLoop)))
	})

	It("reports ShouldEnterReact only in EXEC mode", func() {
		s := state.New("session-1")
		s.Tasks.Mode = state.ModeExec
		Expect(kernel.ShouldEnterReact(s)).To(BeTrue())

		s.Tasks.Mode = state.ModeIdle
		Expect(kernel.ShouldEnterReact(s)).To(BeFalse())
	})
})
