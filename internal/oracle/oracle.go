package oracle

import (
	"context"
	"errors"
)

// Kind is the target of a generation directive.
type Kind string

const (
	KindImage Kind = "image"
	KindVideo Kind = "video"
)

// Turn is one entry of the caller-supplied conversation history.
type Turn struct {
	Role      string `json:"role"`
	Content   string `json:"content"`
	ImageData []byte `json:"imageData,omitempty"`
	ImageMIME string `json:"imageMime,omitempty"`
}

// Directive is the parsed generation instruction embedded in a reply.
type Directive struct {
	Kind   Kind
	Prompt string
}

// Reply is the outcome of one consultation: the user-facing text with any
// directive marker stripped, plus the directive itself when present.
type Reply struct {
	Text      string
	Directive *Directive
}

// Consultant drafts design-consultation replies and analyzes reference images.
type Consultant interface {
	// Consult forwards the history and latest message to the model.
	// Caller-supplied "system" turns are dropped; the system policy is
	// injected out-of-band and never comes from history.
	Consult(ctx context.Context, history []Turn, message string) (Reply, error)
	// Analyze describes a reference image. It never fails: when the vision
	// call errors it returns a neutral placeholder so the pipeline can
	// proceed without a reference.
	Analyze(ctx context.Context, image []byte, mimeType string) string
	Close() error
}

var ErrEmptyReply = errors.New("oracle: empty reply from model")
