package mailer

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
)

// stubStrategy fails a configured number of times before succeeding, or
// always fails when failures is negative.
type stubStrategy struct {
	name     string
	failures int

	mu    sync.Mutex
	calls int
}

func (s *stubStrategy) Name() string { return s.name }

func (s *stubStrategy) Send(_ context.Context, _ *Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.failures < 0 || s.calls <= s.failures {
		return errors.New(s.name + " unavailable")
	}
	return nil
}

func (s *stubStrategy) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func newTestChain(t *testing.T, strategies ...Strategy) *Chain {
	t.Helper()
	chain, err := NewChain(NewChainConfig{
		Strategies: strategies,
		Attempts:   3,
		BaseDelay:  time.Millisecond,
	})
	if err != nil {
		t.Fatalf("NewChain: %v", err)
	}
	return chain
}

var testMessage = &Message{
	From:    "noreply@example.test",
	To:      "dev@example.test",
	Subject: "hello",
	HTML:    "<p>hi</p>",
}

func TestChainFirstStrategySucceeds(t *testing.T) {
	first := &stubStrategy{name: "first"}
	second := &stubStrategy{name: "second"}
	chain := newTestChain(t, first, second)

	if err := chain.Send(context.Background(), testMessage); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if first.callCount() != 1 {
		t.Errorf("first calls = %d, want 1", first.callCount())
	}
	if second.callCount() != 0 {
		t.Errorf("second calls = %d, want 0", second.callCount())
	}
}

func TestChainFallsThroughAfterRetries(t *testing.T) {
	first := &stubStrategy{name: "first", failures: -1}
	second := &stubStrategy{name: "second"}
	chain := newTestChain(t, first, second)

	if err := chain.Send(context.Background(), testMessage); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if first.callCount() != 3 {
		t.Errorf("first calls = %d, want 3 (full retry budget)", first.callCount())
	}
	if second.callCount() != 1 {
		t.Errorf("second calls = %d, want 1", second.callCount())
	}
}

func TestChainRetriesTransientFailure(t *testing.T) {
	flaky := &stubStrategy{name: "flaky", failures: 2}
	chain := newTestChain(t, flaky)

	if err := chain.Send(context.Background(), testMessage); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if flaky.callCount() != 3 {
		t.Errorf("calls = %d, want 3", flaky.callCount())
	}
}

func TestChainAllStrategiesFail(t *testing.T) {
	first := &stubStrategy{name: "first", failures: -1}
	second := &stubStrategy{name: "second", failures: -1}
	chain := newTestChain(t, first, second)

	if err := chain.Send(context.Background(), testMessage); err == nil {
		t.Fatal("expected error when every strategy fails")
	}
}

func TestRenderResetEmail(t *testing.T) {
	now := time.Date(2026, 3, 10, 14, 30, 0, 0, time.UTC)
	body := RenderResetEmail("Dev", "042517", now)

	for _, want := range []string{"Dev", "042517", "15", "10/03/2026 14:30"} {
		if !strings.Contains(body, want) {
			t.Errorf("body missing %q", want)
		}
	}
	for _, placeholder := range []string{"{{userName}}", "{{resetCode}}", "{{expiryTime}}", "{{currentDate}}"} {
		if strings.Contains(body, placeholder) {
			t.Errorf("unsubstituted placeholder %q", placeholder)
		}
	}
}

func TestSimulateStrategyNeverFails(t *testing.T) {
	s := NewSimulateStrategy(nil)
	if err := s.Send(context.Background(), testMessage); err != nil {
		t.Fatalf("Send: %v", err)
	}
}
