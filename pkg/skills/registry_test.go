package skills_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/corvid-robotics/robobrain/pkg/skills"
)

var _ = Describe("DefaultRegistry", func() {
	It("registers every fixed skill name", func() {
		reg := skills.DefaultRegistry()

		for _, name := range []string{
			skills.NavigateToPose,
			skills.NavigateToUnknown,
			skills.Speak,
			skills.StopBase,
			skills.Dock,
			skills.Manipulate,
			skills.ChargeDock,
		} {
			Expect(reg).To(HaveKey(name))
		}
	})

	It("gives every entry a positive timeout and a parseable schema", func() {
		reg := skills.DefaultRegistry()

		for name, def := range reg {
			Expect(def.TimeoutSeconds).To(BeNumerically(">", 0), name)
			Expect(def.Name).To(Equal(name))
			parsed := skills.MustSchema(def.ArgsSchemaJSON)
			Expect(parsed).To(HaveKey("type"))
		}
	})

	It("requires an arm and gripper for manipulate", func() {
		reg := skills.DefaultRegistry()
		Expect(reg[skills.Manipulate].RequiredResources).To(ConsistOf("arm", "gripper"))
	})

	It("marks the always-approval skills as non-preemptible or preemptible per the original contract", func() {
		reg := skills.DefaultRegistry()
		Expect(reg[skills.NavigateToUnknown].Preemptible).To(BeTrue())
		Expect(reg[skills.Dock].Preemptible).To(BeFalse())
		Expect(reg[skills.Manipulate].Preemptible).To(BeFalse())
	})
})
