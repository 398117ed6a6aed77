package genprovider

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Middleware decorates an Adapter to inject cross-cutting concerns.
type Middleware func(Adapter) Adapter

// Wrap applies middlewares in left-to-right order.
// Example: Wrap(inner, A, B) => A(B(inner))
func Wrap(inner Adapter, mws ...Middleware) Adapter {
	out := inner
	for i := len(mws) - 1; i >= 0; i-- {
		out = mws[i](out)
	}
	return out
}

// WithLogging logs each generate call with its outcome and duration.
func WithLogging(log zerolog.Logger) Middleware {
	return func(next Adapter) Adapter {
		return &logging{next: next, log: log}
	}
}

type logging struct {
	next Adapter
	log  zerolog.Logger
}

func (l *logging) Name() string { return l.next.Name() }

func (l *logging) Generate(ctx context.Context, req Request) (*Artifact, error) {
	start := time.Now()
	art, err := l.next.Generate(ctx, req)
	ev := l.log.Info()
	if err != nil {
		ev = l.log.Warn().Err(err)
	}
	ev.Str("provider", l.next.Name()).
		Int("prompt_len", len(req.Prompt)).
		Dur("elapsed", time.Since(start)).
		Msg("generate")
	return art, err
}
