package genprovider

import (
	"context"
	"fmt"
	"time"

	genai "google.golang.org/genai"

	"atelier/internal/oracle"
)

// GeminiImage generates images through a Gemini model with image output.
// The success shape is an inline base64 blob inside a content part.
type GeminiImage struct {
	cli     *genai.Client
	model   string
	timeout time.Duration
}

func NewGeminiImage(cli *genai.Client, model string, timeout time.Duration) *GeminiImage {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &GeminiImage{cli: cli, model: model, timeout: timeout}
}

func (g *GeminiImage) Name() string { return "gemini:" + g.model }

func (g *GeminiImage) Generate(ctx context.Context, req Request) (*Artifact, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	// No dedicated negative-prompt field on this path; fold it into the text.
	text := req.Prompt
	if req.NegativePrompt != "" {
		text += ". Avoid: " + req.NegativePrompt
	}
	parts := []*genai.Part{{Text: text}}
	if len(req.BaseImage) > 0 {
		parts = append(parts, &genai.Part{InlineData: &genai.Blob{
			MIMEType: mimeOrDefault(req.BaseMIME),
			Data:     req.BaseImage,
		}})
	}

	resp, err := g.cli.Models.GenerateContent(ctx, g.model,
		[]*genai.Content{{Role: genai.RoleUser, Parts: parts}},
		&genai.GenerateContentConfig{
			ResponseModalities: []string{"TEXT", "IMAGE"},
		},
	)
	if err != nil {
		return nil, newProviderError(g.Name(), err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, newProviderError(g.Name(), fmt.Errorf("response has no candidates"))
	}
	for _, p := range resp.Candidates[0].Content.Parts {
		if p == nil || p.InlineData == nil || len(p.InlineData.Data) == 0 {
			continue
		}
		mime := mimeOrDefault(p.InlineData.MIMEType)
		return &Artifact{
			Kind:     oracle.KindImage,
			Data:     p.InlineData.Data,
			MIMEType: mime,
			Filename: filenameFor(oracle.KindImage, mime),
			Producer: g.Name(),
		}, nil
	}
	return nil, newProviderError(g.Name(), fmt.Errorf("response contains no image part"))
}

func mimeOrDefault(mime string) string {
	if mime == "" {
		return "image/png"
	}
	return mime
}
