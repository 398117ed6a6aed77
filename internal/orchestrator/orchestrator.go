// Package orchestrator drives one chat turn end to end: optional reference
// analysis, consultation, the generation decision, prompt composition,
// dispatch through the fallback chain or the video queue, and response
// assembly.
package orchestrator

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/rs/zerolog"

	"atelier/internal/artifact"
	"atelier/internal/genprovider"
	"atelier/internal/oracle"
	"atelier/internal/prompt"
	"atelier/internal/queue"
)

// Request is one inbound chat turn.
type Request struct {
	Message         string
	History         []oracle.Turn
	ConversationID  string
	IsRefinement    bool
	BaseDescription string
	BaseImage       []byte
	BaseMIME        string
	RefinementCount int
	ReferenceImage  []byte
	ReferenceMIME   string
	Brand           string
}

// Metadata describes what the pipeline did for one turn.
type Metadata struct {
	GenerationAttempted bool        `json:"generationAttempted"`
	Kind                oracle.Kind `json:"kind,omitempty"`
	Producer            string      `json:"producer,omitempty"`
	RefinementCount     int         `json:"refinementCount"`
	ReferenceAnalyzed   bool        `json:"referenceAnalyzed"`
}

// Response is the assembled outcome of one turn. ImageURL/VideoURL carry an
// inline data URL for immediate display; PublicURL and DownloadURL point at
// durable storage when the upload succeeded.
type Response struct {
	Message        string   `json:"message"`
	ImageURL       *string  `json:"imageUrl"`
	VideoURL       *string  `json:"videoUrl,omitempty"`
	PublicURL      string   `json:"publicUrl,omitempty"`
	DownloadURL    string   `json:"downloadUrl,omitempty"`
	ConversationID string   `json:"conversationId"`
	Metadata       Metadata `json:"metadata"`
}

type Orchestrator struct {
	oracle     oracle.Consultant
	imageChain *genprovider.Chain
	videoQueue *queue.Queue
	store      artifact.Store
	// strict propagates image-generation exhaustion instead of degrading to
	// a text-only response.
	strict bool
	log    zerolog.Logger
}

func New(consultant oracle.Consultant, imageChain *genprovider.Chain, videoQueue *queue.Queue, store artifact.Store, strict bool, log zerolog.Logger) *Orchestrator {
	return &Orchestrator{
		oracle:     consultant,
		imageChain: imageChain,
		videoQueue: videoQueue,
		store:      store,
		strict:     strict,
		log:        log.With().Str("component", "orchestrator").Logger(),
	}
}

// Handle runs the full pipeline for one turn. It fails only on oracle errors
// (the conversation cannot proceed without a reply) or, in strict mode, on
// image-chain exhaustion.
func (o *Orchestrator) Handle(ctx context.Context, req Request) (*Response, error) {
	analysis := ""
	if len(req.ReferenceImage) > 0 {
		analysis = o.oracle.Analyze(ctx, req.ReferenceImage, req.ReferenceMIME)
	}

	message := req.Message
	if message == "" && analysis != "" {
		message = "Please review this reference piece: " + analysis
	}

	reply, err := o.oracle.Consult(ctx, req.History, message)
	if err != nil {
		return nil, fmt.Errorf("consultation failed: %w", err)
	}

	resp := &Response{
		Message:        reply.Text,
		ConversationID: req.ConversationID,
		Metadata:       Metadata{RefinementCount: req.RefinementCount, ReferenceAnalyzed: analysis != ""},
	}

	kind, basePrompt, ok := o.decide(req, reply)
	if !ok {
		return resp, nil
	}

	composed := prompt.Compose(prompt.ComposeRequest{
		Kind:              kind,
		BasePrompt:        basePrompt,
		ReferenceAnalysis: analysis,
		Refinement: prompt.Refinement{
			IsRefinement:    req.IsRefinement,
			BaseDescription: req.BaseDescription,
		},
	})

	resp.Metadata.GenerationAttempted = true
	resp.Metadata.Kind = kind
	if req.IsRefinement {
		resp.Metadata.RefinementCount = req.RefinementCount + 1
	}

	genReq := genprovider.Request{
		Prompt:         composed.Prompt,
		NegativePrompt: composed.NegativePrompt,
		BaseImage:      baseImageFor(req),
		BaseMIME:       baseMIMEFor(req),
	}

	var art *genprovider.Artifact
	if kind == oracle.KindVideo {
		res := <-o.videoQueue.Enqueue(genReq)
		art, err = res.Artifact, res.Err
	} else {
		art, err = o.imageChain.Generate(ctx, genReq)
	}
	if err != nil {
		o.log.Warn().Err(err).Str("kind", string(kind)).Msg("generation failed")
		if o.strict && kind == oracle.KindImage {
			return nil, err
		}
		// Generation failure is non-fatal; the conversational reply stands.
		return resp, nil
	}

	o.attach(ctx, resp, art)
	return resp, nil
}

// decide applies the generation policy: a directive from the oracle wins;
// otherwise lexicon matches, a reference image, or a refinement flag trigger
// generation with the raw message as the prompt basis.
func (o *Orchestrator) decide(req Request, reply oracle.Reply) (oracle.Kind, string, bool) {
	if d := reply.Directive; d != nil {
		return d.Kind, d.Prompt, true
	}
	if !oracle.WantsGeneration(req.Message) && len(req.ReferenceImage) == 0 && !req.IsRefinement {
		return "", "", false
	}
	kind := oracle.KindImage
	if oracle.WantsVideo(req.Message, reply.Text) {
		kind = oracle.KindVideo
	}
	return kind, req.Message, true
}

// attach fills in inline and durable references for a generated artifact.
// Durable upload is best-effort; a storage failure still leaves the inline
// payload in the response.
func (o *Orchestrator) attach(ctx context.Context, resp *Response, art *genprovider.Artifact) {
	inline := "data:" + art.MIMEType + ";base64," + base64.StdEncoding.EncodeToString(art.Data)
	if art.Kind == oracle.KindVideo {
		resp.VideoURL = &inline
	} else {
		resp.ImageURL = &inline
	}
	resp.Metadata.Producer = art.Producer

	url, err := o.store.Put(ctx, "generated/"+art.Filename, art.Data, art.MIMEType)
	if err != nil {
		o.log.Warn().Err(err).Str("filename", art.Filename).Msg("durable upload failed, returning inline only")
		return
	}
	resp.PublicURL = url
	resp.DownloadURL = url
}

func baseImageFor(req Request) []byte {
	if len(req.BaseImage) > 0 {
		return req.BaseImage
	}
	return req.ReferenceImage
}

func baseMIMEFor(req Request) string {
	if len(req.BaseImage) > 0 {
		return req.BaseMIME
	}
	return req.ReferenceMIME
}
