// Package completion routes prompts to a primary text-generation
// provider with a single transparent fallback to a secondary one.
package completion

import (
	"context"
	"errors"
	"log/slog"

	"github.com/ringside-labs/docintel/internal/core/domain"
	"github.com/ringside-labs/docintel/internal/core/ports"
)

// Observer receives one event per provider attempt. Implemented by the
// metrics layer; nil disables observation.
type Observer interface {
	RecordCompletion(provider, outcome string)
}

// Router tries the primary provider first and, when allowed, retries
// exactly once against the secondary. It performs no backoff and no
// further retries: callers needing more resilience wrap it.
type Router struct {
	primary   ports.CompletionProvider
	secondary ports.CompletionProvider
	log       *slog.Logger
	observer  Observer
}

func NewRouter(primary, secondary ports.CompletionProvider, log *slog.Logger, observer Observer) *Router {
	if log == nil {
		log = slog.Default()
	}
	return &Router{primary: primary, secondary: secondary, log: log, observer: observer}
}

func (r *Router) Complete(ctx context.Context, req ports.CompletionRequest) (string, error) {
	if r.primary == nil && r.secondary == nil {
		return "", domain.WrapError(domain.ErrProviderUnavailable, "complete", errors.New("neither primary nor secondary provider is set"))
	}

	var primaryErr error
	if r.primary != nil {
		text, err := r.primary.Complete(ctx, req)
		if err == nil {
			r.observe(r.primary.Name(), "success")
			return text, nil
		}
		primaryErr = err
		r.observe(r.primary.Name(), "failure")
		if !req.AllowFallback {
			return "", domain.WrapError(domain.ErrProvider, "complete", err)
		}
		// The fallback outcome is authoritative; the primary failure is
		// recorded here and nowhere else.
		r.log.Warn("primary completion provider failed",
			"provider", r.primary.Name(),
			"error", err,
		)
	}

	if r.secondary != nil && req.AllowFallback {
		text, err := r.secondary.Complete(ctx, req)
		if err == nil {
			r.observe(r.secondary.Name(), "success")
			if primaryErr != nil {
				r.observe(r.secondary.Name(), "fallback")
			}
			return text, nil
		}
		r.observe(r.secondary.Name(), "failure")
		return "", domain.WrapError(domain.ErrProvider, "complete", err)
	}

	if primaryErr != nil {
		return "", domain.WrapError(domain.ErrProvider, "complete", primaryErr)
	}
	return "", domain.WrapError(domain.ErrProviderUnavailable, "complete", errors.New("no provider eligible for this request"))
}

func (r *Router) observe(provider, outcome string) {
	if r.observer != nil {
		r.observer.RecordCompletion(provider, outcome)
	}
}
