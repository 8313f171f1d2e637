package llm

import (
	"context"
	"errors"
	"fmt"
)

// Message roles. Providers that have no native system channel fold
// system content into their own format.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one role-tagged entry of a conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Result is the unified outcome of a model invocation. Every call site
// gets the same shape: generated text plus the provider, model and
// latency that produced it. Success is false only for the typed
// absence value returned when no provider could serve the call.
type Result struct {
	Text      string `json:"text"`
	Provider  string `json:"provider,omitempty"`
	Model     string `json:"model,omitempty"`
	LatencyMS int64  `json:"latency_ms,omitempty"`
	Success   bool   `json:"success"`
}

// Options tune a single invocation.
//
// ModelHint is accepted for interface compatibility but deliberately
// ignored: each provider always runs its own default model, so the
// fallback chain stays deterministic across providers.
type Options struct {
	Temperature float64
	ModelHint   string
}

// Provider is one external language-model backend.
type Provider interface {
	// Name identifies the provider in configuration and logs.
	Name() string

	// DefaultModel is the model this provider runs for every call.
	DefaultModel() string

	// Available reports whether the provider holds a credential.
	Available() bool

	// Generate performs exactly one completion attempt. No retries.
	Generate(ctx context.Context, messages []Message, temperature float64) (string, error)
}

var (
	// ErrNoProvidersConfigured indicates the usable provider list is
	// empty: nothing in the configured order holds a credential.
	ErrNoProvidersConfigured = errors.New("no credentialed providers configured")

	// ErrAllProvidersFailed indicates every usable provider was
	// attempted once and failed.
	ErrAllProvidersFailed = errors.New("all providers failed")
)

// Unavailable reports whether err is the typed absence value: the
// invocation layer could not produce text and the caller must take its
// deterministic rule-based continuation.
func Unavailable(err error) bool {
	return errors.Is(err, ErrNoProvidersConfigured) || errors.Is(err, ErrAllProvidersFailed)
}

// ProviderError tags a failure with the provider that produced it.
type ProviderError struct {
	Provider string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider %s: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}
