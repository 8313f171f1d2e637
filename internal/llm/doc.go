// Package llm is the provider-agnostic model invocation layer.
//
// An Invoker holds the registered providers and two configuration
// knobs: a preferred primary and a full ordering list. The usable
// chain is recomputed from those knobs on every call (only
// credentialed providers survive; the primary is inserted first when
// missing; duplicates keep their first occurrence). Each candidate is
// attempted exactly once, latency is measured, and the first success
// wins. Total failure surfaces as a typed absence value
// (ErrNoProvidersConfigured or ErrAllProvidersFailed), never as a
// panic: every caller has a deterministic rule-based continuation.
//
// A fixed safety preamble is merged into the message sequence before
// any provider is attempted, so all providers answer under the same
// baseline constraint.
package llm
