package completion

import (
	"context"
	"errors"
	"testing"

	"github.com/ringside-labs/docintel/internal/core/domain"
	"github.com/ringside-labs/docintel/internal/core/ports"
)

type fakeProvider struct {
	name  string
	text  string
	err   error
	calls int
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) Complete(_ context.Context, _ ports.CompletionRequest) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.text, nil
}

func TestRouterUsesPrimaryWhenHealthy(t *testing.T) {
	primary := &fakeProvider{name: "openai", text: "primary answer"}
	secondary := &fakeProvider{name: "anthropic", text: "secondary answer"}
	router := NewRouter(primary, secondary, nil, nil)

	text, err := router.Complete(context.Background(), ports.CompletionRequest{AllowFallback: true})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if text != "primary answer" {
		t.Fatalf("expected primary answer, got %q", text)
	}
	if secondary.calls != 0 {
		t.Fatalf("secondary called %d times, expected 0", secondary.calls)
	}
}

func TestRouterFallsBackOncePrimaryFails(t *testing.T) {
	primary := &fakeProvider{name: "openai", err: errors.New("rate limited")}
	secondary := &fakeProvider{name: "anthropic", text: "secondary answer"}
	router := NewRouter(primary, secondary, nil, nil)

	text, err := router.Complete(context.Background(), ports.CompletionRequest{AllowFallback: true})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if text != "secondary answer" {
		t.Fatalf("expected secondary answer, got %q", text)
	}
	if primary.calls != 1 || secondary.calls != 1 {
		t.Fatalf("expected one call each, got primary=%d secondary=%d", primary.calls, secondary.calls)
	}
}

func TestRouterHonorsAllowFallbackFalse(t *testing.T) {
	primary := &fakeProvider{name: "openai", err: errors.New("boom")}
	secondary := &fakeProvider{name: "anthropic", text: "secondary answer"}
	router := NewRouter(primary, secondary, nil, nil)

	_, err := router.Complete(context.Background(), ports.CompletionRequest{AllowFallback: false})
	if !domain.IsKind(err, domain.ErrProvider) {
		t.Fatalf("expected provider error, got %v", err)
	}
	if secondary.calls != 0 {
		t.Fatalf("secondary called despite AllowFallback=false")
	}
}

func TestRouterReportsSecondaryErrorWhenBothFail(t *testing.T) {
	primaryErr := errors.New("primary down")
	secondaryErr := errors.New("secondary down")
	router := NewRouter(
		&fakeProvider{name: "openai", err: primaryErr},
		&fakeProvider{name: "anthropic", err: secondaryErr},
		nil, nil,
	)

	_, err := router.Complete(context.Background(), ports.CompletionRequest{AllowFallback: true})
	if !domain.IsKind(err, domain.ErrProvider) {
		t.Fatalf("expected provider error, got %v", err)
	}
	// The last attempted provider's failure is authoritative.
	if !errors.Is(err, secondaryErr) {
		t.Fatalf("expected wrapped secondary error, got %v", err)
	}
	if errors.Is(err, primaryErr) {
		t.Fatalf("primary error should not leak into the final error")
	}
}

func TestRouterUnconfigured(t *testing.T) {
	router := NewRouter(nil, nil, nil, nil)

	_, err := router.Complete(context.Background(), ports.CompletionRequest{AllowFallback: true})
	if !domain.IsKind(err, domain.ErrProviderUnavailable) {
		t.Fatalf("expected provider-unavailable error, got %v", err)
	}
}

func TestRouterSecondaryOnly(t *testing.T) {
	secondary := &fakeProvider{name: "anthropic", text: "answer"}
	router := NewRouter(nil, secondary, nil, nil)

	text, err := router.Complete(context.Background(), ports.CompletionRequest{AllowFallback: true})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if text != "answer" {
		t.Fatalf("expected answer from secondary, got %q", text)
	}
}

type recordingObserver struct {
	events [][2]string
}

func (r *recordingObserver) RecordCompletion(provider, outcome string) {
	r.events = append(r.events, [2]string{provider, outcome})
}

func TestRouterObserverSeesFallback(t *testing.T) {
	obs := &recordingObserver{}
	router := NewRouter(
		&fakeProvider{name: "openai", err: errors.New("down")},
		&fakeProvider{name: "anthropic", text: "ok"},
		nil, obs,
	)

	if _, err := router.Complete(context.Background(), ports.CompletionRequest{AllowFallback: true}); err != nil {
		t.Fatalf("Complete() error = %v", err)
	}

	want := [][2]string{
		{"openai", "failure"},
		{"anthropic", "success"},
		{"anthropic", "fallback"},
	}
	if len(obs.events) != len(want) {
		t.Fatalf("expected %d events, got %v", len(want), obs.events)
	}
	for i, ev := range want {
		if obs.events[i] != ev {
			t.Fatalf("event %d = %v, want %v", i, obs.events[i], ev)
		}
	}
}
