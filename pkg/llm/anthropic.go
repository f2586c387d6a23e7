package llm

import (
	"context"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	apperrors "github.com/corvid-robotics/robobrain/internal/errors"
	"github.com/corvid-robotics/robobrain/pkg/state"
)

// MessagesClient is the subset of the Anthropic SDK this package depends
// on, so tests can substitute a fake without a live API key.
type MessagesClient interface {
	New(ctx context.Context, body sdk.MessageNewParams, opts ...option.RequestOption) (*sdk.Message, error)
}

// AnthropicClient talks to Claude directly over the Messages API.
type AnthropicClient struct {
	msg       MessagesClient
	model     string
	maxTokens int
}

// NewAnthropicClient builds a client from an already-configured Anthropic
// SDK client (or a test double implementing MessagesClient).
func NewAnthropicClient(msg MessagesClient, model string, maxTokens int) *AnthropicClient {
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	return &AnthropicClient{msg: msg, model: model, maxTokens: maxTokens}
}

// NewAnthropicClientFromAPIKey is the convenience constructor for
// production wiring: it builds a real SDK client from an API key.
func NewAnthropicClientFromAPIKey(apiKey, model string, maxTokens int) *AnthropicClient {
	client := sdk.NewClient(option.WithAPIKey(apiKey))
	return NewAnthropicClient(&client.Messages, model, maxTokens)
}

func (c *AnthropicClient) Generate(ctx context.Context, messages []state.Message, systemPrompt string) (string, error) {
	params := sdk.MessageNewParams{
		MaxTokens: int64(c.maxTokens),
		Model:     sdk.Model(c.model),
		Messages:  encodeMessages(messages),
	}
	if systemPrompt != "" {
		params.System = []sdk.TextBlockParam{{Text: systemPrompt}}
	}

	msg, err := c.msg.New(ctx, params)
	if err != nil {
		return "", apperrors.Wrap(err, apperrors.ErrorTypeNetwork, "anthropic messages.new failed")
	}
	return extractText(msg), nil
}

func encodeMessages(messages []state.Message) []sdk.MessageParam {
	out := make([]sdk.MessageParam, 0, len(messages))
	for _, m := range messages {
		if m.Role == "system" {
			continue
		}
		block := sdk.NewTextBlock(m.Content)
		if roleToAnthropic(m.Role) == "assistant" {
			out = append(out, sdk.NewAssistantMessage(block))
		} else {
			out = append(out, sdk.NewUserMessage(block))
		}
	}
	if len(out) == 0 {
		out = append(out, sdk.NewUserMessage(sdk.NewTextBlock("(no observation yet)")))
	}
	return out
}

func extractText(msg *sdk.Message) string {
	if msg == nil {
		return ""
	}
	var out string
	for _, block := range msg.Content {
		if block.Type == "text" {
			out += block.Text
		}
	}
	return out
}
