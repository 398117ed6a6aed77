package oracle

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	genai "google.golang.org/genai"
)

// neutralAnalysis substitutes for a failed vision call so generation can
// still proceed without a reference description.
const neutralAnalysis = "a piece of fine jewelry photographed on a neutral background"

const analyzeInstruction = "Describe the jewelry piece in this photo for a jewelry designer: " +
	"the type of piece, metals, stones, setting style, and any distinctive detail. " +
	"Answer in one concise paragraph with no preamble."

// GeminiConsultant is a thin wrapper around the official genai client.
type GeminiConsultant struct {
	cli         *genai.Client
	chatModel   string
	visionModel string
	policy      string
	log         zerolog.Logger
}

func NewGeminiConsultant(ctx context.Context, apiKey, chatModel, visionModel, systemPolicy string, log zerolog.Logger) (*GeminiConsultant, error) {
	cli, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("init genai client: %w", err)
	}
	return &GeminiConsultant{
		cli:         cli,
		chatModel:   chatModel,
		visionModel: visionModel,
		policy:      systemPolicy,
		log:         log.With().Str("component", "oracle").Logger(),
	}, nil
}

func (g *GeminiConsultant) Close() error { return nil }

func (g *GeminiConsultant) Consult(ctx context.Context, history []Turn, message string) (Reply, error) {
	contents := make([]*genai.Content, 0, len(history)+1)
	for _, t := range history {
		role := strings.ToLower(strings.TrimSpace(t.Role))
		if role == "system" {
			// Policy comes from configuration only, never from history.
			continue
		}
		genaiRole := genai.RoleUser
		if role == "assistant" || role == "model" {
			genaiRole = genai.RoleModel
		}
		parts := []*genai.Part{{Text: t.Content}}
		if len(t.ImageData) > 0 {
			parts = append(parts, &genai.Part{InlineData: &genai.Blob{
				MIMEType: firstNonEmptyStr(t.ImageMIME, "image/jpeg"),
				Data:     t.ImageData,
			}})
		}
		contents = append(contents, &genai.Content{Role: genaiRole, Parts: parts})
	}
	contents = append(contents, &genai.Content{
		Role:  genai.RoleUser,
		Parts: []*genai.Part{{Text: message}},
	})

	cfg := &genai.GenerateContentConfig{}
	if strings.TrimSpace(g.policy) != "" {
		cfg.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: g.policy}}}
	}

	resp, err := g.cli.Models.GenerateContent(ctx, g.chatModel, contents, cfg)
	if err != nil {
		return Reply{}, fmt.Errorf("oracle consult: %w", err)
	}
	text := candidateText(resp)
	if text == "" {
		return Reply{}, ErrEmptyReply
	}
	return ParseReply(text), nil
}

func (g *GeminiConsultant) Analyze(ctx context.Context, image []byte, mimeType string) string {
	if len(image) == 0 {
		return neutralAnalysis
	}
	contents := []*genai.Content{{
		Role: genai.RoleUser,
		Parts: []*genai.Part{
			{Text: analyzeInstruction},
			{InlineData: &genai.Blob{
				MIMEType: firstNonEmptyStr(mimeType, "image/jpeg"),
				Data:     image,
			}},
		},
	}}
	resp, err := g.cli.Models.GenerateContent(ctx, g.visionModel, contents, nil)
	if err != nil {
		g.log.Warn().Err(err).Msg("vision analysis failed, using neutral placeholder")
		return neutralAnalysis
	}
	if text := candidateText(resp); text != "" {
		return strings.TrimSpace(text)
	}
	return neutralAnalysis
}

func candidateText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		if p != nil && p.Text != "" {
			b.WriteString(p.Text)
		}
	}
	return b.String()
}

func firstNonEmptyStr(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
