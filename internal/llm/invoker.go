package llm

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// safetyPreamble is merged into every outbound message sequence so
// each provider is bound by the same baseline constraint, whichever
// one ends up serving the call.
const safetyPreamble = "You are part of a post-discharge patient support system. " +
	"You are not a clinician and must never diagnose, prescribe, or contradict medical advice. " +
	"If a message suggests a medical emergency, always direct the patient to emergency services."

// Invoker fans a call across the configured provider chain and returns
// the first success.
type Invoker struct {
	registry []Provider
	primary  string
	order    []string
	logger   *zap.Logger
}

// NewInvoker builds an invoker over the given providers. The primary
// and order knobs are read on every call, not snapshotted into a
// chain, so a rebuilt Invoker picks up new credentials without any
// coordination.
func NewInvoker(providers []Provider, primary string, order []string, logger *zap.Logger) *Invoker {
	return &Invoker{
		registry: providers,
		primary:  primary,
		order:    order,
		logger:   logger,
	}
}

// Usable reports whether at least one credentialed provider exists.
// Handlers use this to choose between conversational and static paths.
func (i *Invoker) Usable() bool {
	return len(i.chain()) > 0
}

// Invoke merges the safety preamble into messages and walks the
// fallback chain: one attempt per provider, first success wins. On
// total failure it returns the typed absence value, never a panic or
// an unwrapped transport error; callers continue with their
// deterministic rule-based path.
func (i *Invoker) Invoke(ctx context.Context, messages []Message, opts Options) (*Result, error) {
	candidates := i.chain()
	if len(candidates) == 0 {
		i.logger.Warn("model invocation skipped", zap.Error(ErrNoProvidersConfigured))
		return &Result{Success: false}, ErrNoProvidersConfigured
	}

	merged := withSafetyPreamble(messages)

	var failed []string
	for _, p := range candidates {
		start := time.Now()
		text, err := p.Generate(ctx, merged, opts.Temperature)
		latency := time.Since(start).Milliseconds()
		if err != nil {
			failed = append(failed, p.Name())
			i.logger.Warn("provider attempt failed",
				zap.String("provider", p.Name()),
				zap.String("model", p.DefaultModel()),
				zap.Error(&ProviderError{Provider: p.Name(), Err: err}),
			)
			continue
		}

		if len(failed) > 0 {
			i.logger.Warn("provider fallback used",
				zap.Strings("failed_providers", failed),
				zap.String("served_by", p.Name()),
			)
		}
		return &Result{
			Text:      text,
			Provider:  p.Name(),
			Model:     p.DefaultModel(),
			LatencyMS: latency,
			Success:   true,
		}, nil
	}

	i.logger.Warn("model invocation exhausted all providers",
		zap.Strings("failed_providers", failed),
	)
	return &Result{Success: false}, ErrAllProvidersFailed
}

// chain recomputes the ordered candidate list from the two
// configuration knobs: the preferred primary is inserted first if the
// ordering list does not already carry it, duplicates keep their first
// occurrence, and only credentialed providers survive.
func (i *Invoker) chain() []Provider {
	names := make([]string, 0, len(i.order)+1)
	if i.primary != "" {
		names = append(names, i.primary)
	}
	names = append(names, i.order...)

	seen := make(map[string]bool, len(names))
	var out []Provider
	for _, name := range names {
		if seen[name] {
			continue
		}
		seen[name] = true
		for _, p := range i.registry {
			if p.Name() == name && p.Available() {
				out = append(out, p)
				break
			}
		}
	}
	return out
}

// withSafetyPreamble folds the preamble into an existing leading
// system message, or inserts a new one, leaving the caller's slice
// untouched.
func withSafetyPreamble(messages []Message) []Message {
	out := make([]Message, 0, len(messages)+1)
	if len(messages) > 0 && messages[0].Role == RoleSystem {
		out = append(out, Message{
			Role:    RoleSystem,
			Content: safetyPreamble + "\n\n" + messages[0].Content,
		})
		out = append(out, messages[1:]...)
		return out
	}
	out = append(out, Message{Role: RoleSystem, Content: safetyPreamble})
	out = append(out, messages...)
	return out
}
