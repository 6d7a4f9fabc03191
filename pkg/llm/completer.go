// Package llm provides the prompt-to-completion contract used by query
// orchestration, with an Anthropic-backed implementation.
package llm

import "context"

// Request is a single prompt-to-completion call.
type Request struct {
	// System is the system prompt establishing the model's role.
	System string

	// Prompt is the user-facing prompt.
	Prompt string

	// MaxTokens caps the completion length. Zero uses the client default.
	MaxTokens int
}

// Completer turns a prompt into a completion.
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// NoopCompleter returns a fixed completion. It stands in where no LLM
// provider is configured.
type NoopCompleter struct{}

var _ Completer = NoopCompleter{}

func (NoopCompleter) Complete(context.Context, Request) (string, error) {
	return "-- no llm provider configured", nil
}
