package llm

import (
	"context"
	"errors"
	"fmt"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// DefaultMaxTokens caps completions when neither the request nor the
// client configuration sets a limit.
const DefaultMaxTokens = 1024

// MessagesClient captures the subset of the Anthropic SDK used here. It
// is satisfied by *sdk.MessageService so tests can pass a mock.
type MessagesClient interface {
	New(ctx context.Context, body sdk.MessageNewParams, opts ...option.RequestOption) (*sdk.Message, error)
}

// AnthropicOptions configures the Anthropic completer.
type AnthropicOptions struct {
	// Model is the Claude model identifier. Required.
	Model string

	// MaxTokens is the default completion cap when a request does not
	// set one. Zero falls back to DefaultMaxTokens.
	MaxTokens int
}

// Anthropic implements Completer over the Claude Messages API.
type Anthropic struct {
	msg       MessagesClient
	model     string
	maxTokens int
}

var _ Completer = (*Anthropic)(nil)

// NewAnthropic builds a completer from an existing Messages client.
func NewAnthropic(msg MessagesClient, opts AnthropicOptions) (*Anthropic, error) {
	if msg == nil {
		return nil, errors.New("anthropic messages client is required")
	}
	if opts.Model == "" {
		return nil, errors.New("model identifier is required")
	}
	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	return &Anthropic{msg: msg, model: opts.Model, maxTokens: maxTokens}, nil
}

// NewAnthropicFromAPIKey constructs a completer using the default
// Anthropic HTTP client.
func NewAnthropicFromAPIKey(apiKey string, opts AnthropicOptions) (*Anthropic, error) {
	if apiKey == "" {
		return nil, errors.New("api key is required")
	}
	ac := sdk.NewClient(option.WithAPIKey(apiKey))
	return NewAnthropic(&ac.Messages, opts)
}

// Complete issues a non-streaming Messages.New call and concatenates
// the text blocks of the response.
func (a *Anthropic) Complete(ctx context.Context, req Request) (string, error) {
	if req.Prompt == "" {
		return "", errors.New("prompt is required")
	}

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = a.maxTokens
	}

	params := sdk.MessageNewParams{
		Model:     sdk.Model(a.model),
		MaxTokens: int64(maxTokens),
		Messages: []sdk.MessageParam{
			sdk.NewUserMessage(sdk.NewTextBlock(req.Prompt)),
		},
	}
	if req.System != "" {
		params.System = []sdk.TextBlockParam{{Text: req.System}}
	}

	msg, err := a.msg.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("anthropic messages.new: %w", err)
	}
	if msg == nil {
		return "", errors.New("anthropic: response message is nil")
	}

	var out string
	for _, block := range msg.Content {
		if block.Type == "text" {
			out += block.Text
		}
	}
	if out == "" {
		return "", errors.New("anthropic: response contained no text")
	}
	return out, nil
}
