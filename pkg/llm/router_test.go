package llm_test

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/corvid-robotics/robobrain/pkg/llm"
	"github.com/corvid-robotics/robobrain/pkg/state"
)

type fakeClient struct {
	response string
	err      error
	calls    int
}

func (f *fakeClient) Generate(_ context.Context, _ []state.Message, _ string) (string, error) {
	f.calls++
	return f.response, f.err
}

var _ = Describe("RoutedClient", func() {
	It("returns the primary's response when it succeeds", func() {
		primary := &fakeClient{response: "from primary"}
		router := llm.NewRoutedClient(primary, nil, nil)

		out, err := router.Generate(context.Background(), nil, "")
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(Equal("from primary"))
	})

	It("falls through to the secondary when the primary errors", func() {
		primary := &fakeClient{err: errors.New("down")}
		secondary := &fakeClient{response: "from secondary"}
		router := llm.NewRoutedClient(primary, secondary, nil)

		out, err := router.Generate(context.Background(), nil, "")
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(Equal("from secondary"))
	})

	It("errors when the primary fails and there is no secondary", func() {
		primary := &fakeClient{err: errors.New("down")}
		router := llm.NewRoutedClient(primary, nil, nil)

		_, err := router.Generate(context.Background(), nil, "")
		Expect(err).To(HaveOccurred())
	})

	It("errors when both providers fail", func() {
		primary := &fakeClient{err: errors.New("down")}
		secondary := &fakeClient{err: errors.New("also down")}
		router := llm.NewRoutedClient(primary, secondary, nil)

		_, err := router.Generate(context.Background(), nil, "")
		Expect(err).To(HaveOccurred())
	})

	It("notifies the state-change callback when supplied", func() {
		var changes []string
		primary := &fakeClient{response: "ok"}
		router := llm.NewRoutedClient(primary, nil, func(breaker, from, to string) {
			changes = append(changes, breaker+":"+from+"->"+to)
		})

		_, err := router.Generate(context.Background(), nil, "")
		Expect(err).NotTo(HaveOccurred())
		Expect(changes).To(BeEmpty())

		primary.err = errors.New("down")
		for i := 0; i < 5; i++ {
			_, err = router.Generate(context.Background(), nil, "")
			Expect(err).To(HaveOccurred())
		}
		Expect(changes).To(ContainElement("llm_primary:closed->open"))
	})
})
