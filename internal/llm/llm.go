// Package llm defines the LLM collaborator contract of spec.md §6:
// Complete(model, system_prompt, messages, max_tokens, temperature) -> text,
// treated as opaque by the rest of the runtime. Failures surface as
// apperr.KindLLMError.
package llm

import "context"

// Message is one turn of conversation history passed to Complete.
type Message struct {
	Role    string
	Content string
}

// Request is the provider-agnostic shape of an LLM.complete call.
type Request struct {
	Model        string
	SystemPrompt string
	Messages     []Message
	MaxTokens    int
	Temperature  *float64
}

// Provider is the collaborator boundary the agents call through. The core
// never inspects a provider's own wire format; only Complete's text result
// and error are visible.
type Provider interface {
	// Name identifies the provider for logging and config overrides.
	Name() string
	// Available reports whether the provider's credentials are configured.
	Available() bool
	// Complete sends req and returns the response text, or an
	// apperr.KindLLMError wrapping the underlying cause.
	Complete(ctx context.Context, req Request) (string, error)
}
