package llm_test

import (
	"context"
	"errors"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/corvid-robotics/robobrain/pkg/llm"
	"github.com/corvid-robotics/robobrain/pkg/state"
)

type fakeMessagesClient struct {
	response *sdk.Message
	err      error
	lastBody sdk.MessageNewParams
}

func (f *fakeMessagesClient) New(_ context.Context, body sdk.MessageNewParams, _ ...option.RequestOption) (*sdk.Message, error) {
	f.lastBody = body
	return f.response, f.err
}

var _ = Describe("AnthropicClient", func() {
	It("extracts text content from a successful response", func() {
		fake := &fakeMessagesClient{
			response: &sdk.Message{Content: []sdk.ContentBlockUnion{{Type: "text", Text: "hello there"}}},
		}
		client := llm.NewAnthropicClient(fake, "claude-sonnet", 512)

		out, err := client.Generate(context.Background(), []state.Message{{Role: "user", Content: "hi"}}, "be helpful")
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(Equal("hello there"))
	})

	It("wraps a provider error", func() {
		fake := &fakeMessagesClient{err: errors.New("rate limited")}
		client := llm.NewAnthropicClient(fake, "claude-sonnet", 512)

		_, err := client.Generate(context.Background(), []state.Message{{Role: "user", Content: "hi"}}, "")
		Expect(err).To(HaveOccurred())
	})

	It("falls back to a placeholder user turn when history is empty", func() {
		fake := &fakeMessagesClient{response: &sdk.Message{}}
		client := llm.NewAnthropicClient(fake, "claude-sonnet", 512)

		_, err := client.Generate(context.Background(), nil, "")
		Expect(err).NotTo(HaveOccurred())
		Expect(fake.lastBody.Messages).To(HaveLen(1))
	})
})
