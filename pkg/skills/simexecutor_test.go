package skills_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/corvid-robotics/robobrain/pkg/skills"
)

var _ = Describe("SimExecutor", func() {
	var (
		ctx context.Context
		exe *skills.SimExecutor
	)

	BeforeEach(func() {
		ctx = context.Background()
		exe = skills.NewSimExecutor()
	})

	It("dispatches and eventually resolves a fast skill", func() {
		goalID, err := exe.Dispatch(ctx, skills.StopBase, map[string]interface{}{})
		Expect(err).NotTo(HaveOccurred())
		Expect(goalID).NotTo(BeEmpty())

		Eventually(func() (bool, error) {
			return exe.IsDone(ctx, goalID)
		}, time.Second, 10*time.Millisecond).Should(BeTrue())

		result, err := exe.Result(ctx, goalID)
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Success).To(BeTrue())
		Expect(result.SkillName).To(Equal(skills.StopBase))
	})

	It("is not done immediately after dispatching a slow skill", func() {
		goalID, err := exe.Dispatch(ctx, skills.NavigateToPose, map[string]interface{}{"target": "kitchen"})
		Expect(err).NotTo(HaveOccurred())

		done, err := exe.IsDone(ctx, goalID)
		Expect(err).NotTo(HaveOccurred())
		Expect(done).To(BeFalse())

		result, err := exe.Result(ctx, goalID)
		Expect(err).NotTo(HaveOccurred())
		Expect(result).To(BeNil())
	})

	It("reports feedback with a remaining-time estimate before completion", func() {
		goalID, err := exe.Dispatch(ctx, skills.NavigateToPose, nil)
		Expect(err).NotTo(HaveOccurred())

		fb, err := exe.Feedback(ctx, goalID)
		Expect(err).NotTo(HaveOccurred())
		Expect(fb).To(HaveKey("remaining_ms"))
	})

	It("cancels a running goal and reports it as done with a CANCELLED result", func() {
		goalID, err := exe.Dispatch(ctx, skills.NavigateToPose, nil)
		Expect(err).NotTo(HaveOccurred())

		ok, err := exe.Cancel(ctx, goalID)
		Expect(err).NotTo(HaveOccurred())
		Expect(ok).To(BeTrue())

		done, err := exe.IsDone(ctx, goalID)
		Expect(err).NotTo(HaveOccurred())
		Expect(done).To(BeTrue())

		result, err := exe.Result(ctx, goalID)
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Code).To(Equal("CANCELLED"))
	})

	It("reports an unknown goal id as done with no result, never erroring", func() {
		done, err := exe.IsDone(ctx, "goal_nonexistent")
		Expect(err).NotTo(HaveOccurred())
		Expect(done).To(BeTrue())

		result, err := exe.Result(ctx, "goal_nonexistent")
		Expect(err).NotTo(HaveOccurred())
		Expect(result).To(BeNil())
	})

	It("tracks dispatched and cancelled goal ids", func() {
		goalID, _ := exe.Dispatch(ctx, skills.StopBase, nil)
		Expect(exe.Dispatched()).To(ContainElement(goalID))
		Expect(exe.Cancelled()).To(BeEmpty())

		exe.Cancel(ctx, goalID)
		Expect(exe.Cancelled()).To(ContainElement(goalID))
	})
})
