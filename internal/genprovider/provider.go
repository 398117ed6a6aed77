package genprovider

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	genai "google.golang.org/genai"

	"atelier/internal/oracle"
)

// Request is the uniform input to every generation adapter.
type Request struct {
	Prompt         string
	NegativePrompt string
	// BaseImage is an optional prior design or reference photo the provider
	// should condition on (refinement requests).
	BaseImage []byte
	BaseMIME  string
}

// Artifact is the normalized output of a successful adapter call.
type Artifact struct {
	Kind     oracle.Kind
	Data     []byte
	MIMEType string
	Filename string
	Producer string
}

// Adapter wraps one generation backend behind a uniform contract.
type Adapter interface {
	Name() string
	Generate(ctx context.Context, req Request) (*Artifact, error)
}

// ProviderError wraps a backend failure so provider-specific error types
// never cross the adapter boundary.
type ProviderError struct {
	Provider string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider %s: %v", e.Provider, e.Err)
}
func (e *ProviderError) Unwrap() error { return e.Err }

func newProviderError(provider string, err error) error {
	return &ProviderError{Provider: provider, Err: err}
}

// IsQuotaError reports whether err signals a provider quota/rate limit
// (HTTP 429 or a quota-exhausted status).
func IsQuotaError(err error) bool {
	if err == nil {
		return false
	}
	var apiErr genai.APIError
	if errors.As(err, &apiErr) && apiErr.Code == 429 {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "429") ||
		strings.Contains(msg, "quota") ||
		strings.Contains(msg, "resource_exhausted")
}

// filenameFor builds a collision-free artifact filename.
func filenameFor(kind oracle.Kind, mimeType string) string {
	ext := "bin"
	switch {
	case strings.Contains(mimeType, "png"):
		ext = "png"
	case strings.Contains(mimeType, "jpeg"), strings.Contains(mimeType, "jpg"):
		ext = "jpg"
	case strings.Contains(mimeType, "webp"):
		ext = "webp"
	case strings.Contains(mimeType, "mp4"):
		ext = "mp4"
	case strings.Contains(mimeType, "webm"):
		ext = "webm"
	}
	return fmt.Sprintf("%s-%d-%s.%s", kind, time.Now().UnixMilli(), uuid.NewString()[:8], ext)
}
