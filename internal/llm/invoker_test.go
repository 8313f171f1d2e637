package llm

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"
)

// mockProvider is a scripted Provider for chain tests.
type mockProvider struct {
	name       string
	model      string
	available  bool
	shouldFail bool
	reply      string
	calls      int
	lastMsgs   []Message
}

func (m *mockProvider) Name() string         { return m.name }
func (m *mockProvider) DefaultModel() string { return m.model }
func (m *mockProvider) Available() bool      { return m.available }

func (m *mockProvider) Generate(_ context.Context, messages []Message, _ float64) (string, error) {
	m.calls++
	m.lastMsgs = messages
	if m.shouldFail {
		return "", errors.New("scripted failure")
	}
	return m.reply, nil
}

func newTestInvoker(primary string, order []string, providers ...Provider) *Invoker {
	return NewInvoker(providers, primary, order, zap.NewNop())
}

func TestInvokeFirstSuccessWins(t *testing.T) {
	a := &mockProvider{name: "a", model: "a-1", available: true, reply: "from a"}
	b := &mockProvider{name: "b", model: "b-1", available: true, reply: "from b"}

	res, err := newTestInvoker("a", []string{"a", "b"}, a, b).Invoke(context.Background(), nil, Options{})
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if !res.Success || res.Text != "from a" || res.Provider != "a" || res.Model != "a-1" {
		t.Fatalf("result = %+v", res)
	}
	if b.calls != 0 {
		t.Fatalf("b attempted %d times, want 0", b.calls)
	}
}

func TestInvokeFallsBackOnFailure(t *testing.T) {
	a := &mockProvider{name: "a", model: "a-1", available: true, shouldFail: true}
	b := &mockProvider{name: "b", model: "b-1", available: true, reply: "from b"}

	res, err := newTestInvoker("a", []string{"a", "b"}, a, b).Invoke(context.Background(), nil, Options{})
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if res.Provider != "b" || res.Text != "from b" {
		t.Fatalf("result = %+v", res)
	}
	if a.calls != 1 {
		t.Fatalf("a attempted %d times, want exactly 1 (no retries)", a.calls)
	}
}

func TestInvokeOnlyCredentialedAttempted(t *testing.T) {
	// Order [a,b,c] with only b credentialed: only b is attempted, and
	// when b fails the result is the typed absence value.
	a := &mockProvider{name: "a", available: false}
	b := &mockProvider{name: "b", available: true, shouldFail: true}
	c := &mockProvider{name: "c", available: false}

	res, err := newTestInvoker("", []string{"a", "b", "c"}, a, b, c).Invoke(context.Background(), nil, Options{})
	if !errors.Is(err, ErrAllProvidersFailed) {
		t.Fatalf("err = %v, want ErrAllProvidersFailed", err)
	}
	if res == nil || res.Success {
		t.Fatalf("result = %+v, want unsuccessful absence value", res)
	}
	if a.calls != 0 || c.calls != 0 {
		t.Fatal("uncredentialed providers must never be attempted")
	}
	if b.calls != 1 {
		t.Fatalf("b attempted %d times, want 1", b.calls)
	}
	if !Unavailable(err) {
		t.Fatal("Unavailable must report the absence value")
	}
}

func TestInvokeNoProviders(t *testing.T) {
	inv := newTestInvoker("a", []string{"a"}, &mockProvider{name: "a", available: false})
	res, err := inv.Invoke(context.Background(), nil, Options{})
	if !errors.Is(err, ErrNoProvidersConfigured) {
		t.Fatalf("err = %v, want ErrNoProvidersConfigured", err)
	}
	if res.Success {
		t.Fatal("absence value must not report success")
	}
	if inv.Usable() {
		t.Fatal("Usable must be false with an empty chain")
	}
}

func TestChainPrimaryInsertedAndDeduped(t *testing.T) {
	a := &mockProvider{name: "a", available: true, reply: "x"}
	b := &mockProvider{name: "b", available: true, reply: "y"}

	// Primary c is not registered; order lists b twice and a once.
	inv := newTestInvoker("b", []string{"a", "b"}, a, b)
	chain := inv.chain()
	if len(chain) != 2 || chain[0].Name() != "b" || chain[1].Name() != "a" {
		names := make([]string, len(chain))
		for i, p := range chain {
			names[i] = p.Name()
		}
		t.Fatalf("chain = %v, want [b a]", names)
	}
}

func TestSafetyPreambleMerged(t *testing.T) {
	p := &mockProvider{name: "a", available: true, reply: "ok"}
	inv := newTestInvoker("a", nil, p)

	// Existing leading system message gets the preamble prepended.
	_, err := inv.Invoke(context.Background(), []Message{
		{Role: RoleSystem, Content: "route intents"},
		{Role: RoleUser, Content: "hello"},
	}, Options{})
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if len(p.lastMsgs) != 2 {
		t.Fatalf("messages = %d, want 2", len(p.lastMsgs))
	}
	sys := p.lastMsgs[0]
	if sys.Role != RoleSystem || !strings.Contains(sys.Content, safetyPreamble) || !strings.Contains(sys.Content, "route intents") {
		t.Fatalf("system message not merged: %+v", sys)
	}

	// No system message: one is inserted in front.
	_, err = inv.Invoke(context.Background(), []Message{{Role: RoleUser, Content: "hi"}}, Options{})
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if len(p.lastMsgs) != 2 || p.lastMsgs[0].Role != RoleSystem || p.lastMsgs[0].Content != safetyPreamble {
		t.Fatalf("preamble not inserted: %+v", p.lastMsgs)
	}
}
