package genprovider

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
)

// ExhaustedError reports that every adapter in a chain failed. It carries the
// last adapter's error as its cause.
type ExhaustedError struct {
	Tried []string
	Last  error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("all providers exhausted (%s): %v", strings.Join(e.Tried, ", "), e.Last)
}
func (e *ExhaustedError) Unwrap() error { return e.Last }

// Chain tries adapters strictly in priority order, advancing past failures
// and short-circuiting on the first success. It never retries an adapter
// within one pass; retry policy lives with the caller.
type Chain struct {
	adapters []Adapter
	log      zerolog.Logger
}

func NewChain(log zerolog.Logger, adapters ...Adapter) *Chain {
	return &Chain{
		adapters: adapters,
		log:      log.With().Str("component", "fallback").Logger(),
	}
}

func (c *Chain) Generate(ctx context.Context, req Request) (*Artifact, error) {
	if len(c.adapters) == 0 {
		return nil, &ExhaustedError{Last: fmt.Errorf("no adapters configured")}
	}
	var last error
	tried := make([]string, 0, len(c.adapters))
	for _, a := range c.adapters {
		art, err := a.Generate(ctx, req)
		if err == nil {
			return art, nil
		}
		tried = append(tried, a.Name())
		last = err
		c.log.Warn().Err(err).Str("provider", a.Name()).Msg("adapter failed, advancing to next")
	}
	return nil, &ExhaustedError{Tried: tried, Last: last}
}
