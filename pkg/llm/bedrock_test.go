package llm_test

import (
	"context"
	"errors"

	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	brtypes "github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/corvid-robotics/robobrain/pkg/llm"
	"github.com/corvid-robotics/robobrain/pkg/state"
)

type fakeRuntimeClient struct {
	output   *bedrockruntime.ConverseOutput
	err      error
	captured *bedrockruntime.ConverseInput
}

func (f *fakeRuntimeClient) Converse(_ context.Context, params *bedrockruntime.ConverseInput, _ ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error) {
	f.captured = params
	return f.output, f.err
}

var _ = Describe("BedrockClient", func() {
	It("extracts text content from a Converse response", func() {
		fake := &fakeRuntimeClient{
			output: &bedrockruntime.ConverseOutput{
				Output: &brtypes.ConverseOutputMemberMessage{Value: brtypes.Message{
					Role:    brtypes.ConversationRoleAssistant,
					Content: []brtypes.ContentBlock{&brtypes.ContentBlockMemberText{Value: "hello from bedrock"}},
				}},
			},
		}
		client := llm.NewBedrockClient(fake, "anthropic.claude-3", 512)

		out, err := client.Generate(context.Background(), []state.Message{{Role: "user", Content: "hi"}}, "system prompt")
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(Equal("hello from bedrock"))
		Expect(fake.captured.System).To(HaveLen(1))
	})

	It("wraps a Converse error", func() {
		fake := &fakeRuntimeClient{err: errors.New("throttled")}
		client := llm.NewBedrockClient(fake, "anthropic.claude-3", 512)

		_, err := client.Generate(context.Background(), nil, "")
		Expect(err).To(HaveOccurred())
	})
})
