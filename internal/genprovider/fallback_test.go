package genprovider

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"atelier/internal/oracle"
)

type fakeAdapter struct {
	name    string
	fail    bool
	failErr error
	calls   int
	lastReq Request
}

func (f *fakeAdapter) Name() string { return f.name }

func (f *fakeAdapter) Generate(_ context.Context, req Request) (*Artifact, error) {
	f.calls++
	f.lastReq = req
	if f.fail {
		err := f.failErr
		if err == nil {
			err = errors.New("boom")
		}
		return nil, &ProviderError{Provider: f.name, Err: err}
	}
	return &Artifact{
		Kind:     oracle.KindImage,
		Data:     []byte("img-" + f.name),
		MIMEType: "image/png",
		Filename: f.name + ".png",
		Producer: f.name,
	}, nil
}

func TestChain_AdvancesPastFailures(t *testing.T) {
	a := &fakeAdapter{name: "a", fail: true}
	b := &fakeAdapter{name: "b", fail: true}
	c := &fakeAdapter{name: "c"}
	chain := NewChain(zerolog.Nop(), a, b, c)

	art, err := chain.Generate(context.Background(), Request{Prompt: "ring"})
	require.NoError(t, err)
	assert.Equal(t, "c", art.Producer)
	assert.Equal(t, 1, a.calls)
	assert.Equal(t, 1, b.calls)
	assert.Equal(t, 1, c.calls)
}

func TestChain_ShortCircuitsOnFirstSuccess(t *testing.T) {
	a := &fakeAdapter{name: "a"}
	b := &fakeAdapter{name: "b"}
	chain := NewChain(zerolog.Nop(), a, b)

	art, err := chain.Generate(context.Background(), Request{Prompt: "ring"})
	require.NoError(t, err)
	assert.Equal(t, "a", art.Producer)
	assert.Equal(t, 0, b.calls)
}

func TestChain_AllFail(t *testing.T) {
	lastCause := errors.New("c is down")
	a := &fakeAdapter{name: "a", fail: true}
	b := &fakeAdapter{name: "b", fail: true}
	c := &fakeAdapter{name: "c", fail: true, failErr: lastCause}
	chain := NewChain(zerolog.Nop(), a, b, c)

	art, err := chain.Generate(context.Background(), Request{Prompt: "ring"})
	assert.Nil(t, art)

	var exhausted *ExhaustedError
	require.ErrorAs(t, err, &exhausted)
	assert.Equal(t, []string{"a", "b", "c"}, exhausted.Tried)
	assert.ErrorIs(t, err, lastCause)
	// One call each; the chain never retries an adapter within a pass.
	assert.Equal(t, 1, a.calls)
	assert.Equal(t, 1, b.calls)
	assert.Equal(t, 1, c.calls)
}

func TestChain_NoAdapters(t *testing.T) {
	chain := NewChain(zerolog.Nop())
	_, err := chain.Generate(context.Background(), Request{Prompt: "ring"})
	var exhausted *ExhaustedError
	assert.ErrorAs(t, err, &exhausted)
}

func TestWrap_Order(t *testing.T) {
	inner := &fakeAdapter{name: "inner"}
	wrapped := Wrap(inner, WithLogging(zerolog.Nop()))
	assert.Equal(t, "inner", wrapped.Name())

	_, err := wrapped.Generate(context.Background(), Request{Prompt: "x"})
	require.NoError(t, err)
	assert.Equal(t, 1, inner.calls)
}

func TestIsQuotaError(t *testing.T) {
	assert.True(t, IsQuotaError(errors.New("googleapi: Error 429: quota exceeded")))
	assert.True(t, IsQuotaError(errors.New("RESOURCE_EXHAUSTED")))
	assert.False(t, IsQuotaError(errors.New("connection refused")))
	assert.False(t, IsQuotaError(nil))
}
