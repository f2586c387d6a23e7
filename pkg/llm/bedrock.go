package llm

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	brtypes "github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"

	apperrors "github.com/corvid-robotics/robobrain/internal/errors"
	"github.com/corvid-robotics/robobrain/pkg/state"
)

// RuntimeClient is the subset of the Bedrock runtime client this package
// depends on, so tests can substitute a fake.
type RuntimeClient interface {
	Converse(ctx context.Context, params *bedrockruntime.ConverseInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error)
}

// BedrockClient serves Claude models through AWS Bedrock's Converse API,
// the secondary provider selectable per SPEC_FULL's multi-provider
// requirement.
type BedrockClient struct {
	runtime   RuntimeClient
	modelID   string
	maxTokens int32
}

// NewBedrockClient builds a client from an already-configured Bedrock
// runtime client (or a test double).
func NewBedrockClient(runtime RuntimeClient, modelID string, maxTokens int32) *BedrockClient {
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	return &BedrockClient{runtime: runtime, modelID: modelID, maxTokens: maxTokens}
}

func (c *BedrockClient) Generate(ctx context.Context, messages []state.Message, systemPrompt string) (string, error) {
	input := &bedrockruntime.ConverseInput{
		ModelId:  &c.modelID,
		Messages: encodeConverseMessages(messages),
		InferenceConfig: &brtypes.InferenceConfiguration{
			MaxTokens: aws32(c.maxTokens),
		},
	}
	if systemPrompt != "" {
		input.System = []brtypes.SystemContentBlock{
			&brtypes.SystemContentBlockMemberText{Value: systemPrompt},
		}
	}

	out, err := c.runtime.Converse(ctx, input)
	if err != nil {
		return "", apperrors.Wrap(err, apperrors.ErrorTypeNetwork, "bedrock converse failed")
	}
	return extractConverseText(out), nil
}

func encodeConverseMessages(messages []state.Message) []brtypes.Message {
	out := make([]brtypes.Message, 0, len(messages))
	for _, m := range messages {
		if m.Role == "system" {
			continue
		}
		role := brtypes.ConversationRoleUser
		if roleToAnthropic(m.Role) == "assistant" {
			role = brtypes.ConversationRoleAssistant
		}
		out = append(out, brtypes.Message{
			Role:    role,
			Content: []brtypes.ContentBlock{&brtypes.ContentBlockMemberText{Value: m.Content}},
		})
	}
	if len(out) == 0 {
		out = append(out, brtypes.Message{
			Role:    brtypes.ConversationRoleUser,
			Content: []brtypes.ContentBlock{&brtypes.ContentBlockMemberText{Value: "(no observation yet)"}},
		})
	}
	return out
}

func extractConverseText(out *bedrockruntime.ConverseOutput) string {
	if out == nil {
		return ""
	}
	msgOutput, ok := out.Output.(*brtypes.ConverseOutputMemberMessage)
	if !ok {
		return ""
	}
	var text string
	for _, block := range msgOutput.Value.Content {
		if t, ok := block.(*brtypes.ContentBlockMemberText); ok {
			text += t.Value
		}
	}
	return text
}

func aws32(v int32) *int32 { return &v }
