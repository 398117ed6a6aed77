// Package prompt builds final provider prompts from conversational and
// visual context. Everything here is pure: same inputs, same outputs.
package prompt

import (
	"strings"

	"atelier/internal/oracle"
)

// Style clauses per generation kind. Product configuration encoding the
// neutral studio-catalog look, not logic.
const (
	imageStyle = "professional jewelry catalog photograph, plain white background, " +
		"front-facing three-quarter angle, soft studio lighting, sharp focus, high detail"
	videoStyle = "professional jewelry showcase video, plain white background, " +
		"slow 360 degree turntable rotation, soft studio lighting, sharp focus"

	imageNegative = "text, watermark, logo, hands, people, cluttered background, " +
		"blurry, low quality, cartoon, illustration"
	videoNegative = "text, watermark, logo, hands, people, cluttered background, " +
		"fast motion, camera shake, low quality"
)

// Refinement describes a follow-up request that modifies an earlier design.
type Refinement struct {
	IsRefinement    bool
	BaseDescription string
}

// ComposeRequest carries all inputs to one composition.
type ComposeRequest struct {
	Kind              oracle.Kind
	BasePrompt        string
	ReferenceAnalysis string
	Refinement        Refinement
}

// Composed is the final provider prompt pair.
type Composed struct {
	Prompt         string
	NegativePrompt string
}

// Compose merges the base prompt with refinement or reference context and the
// fixed style clauses. Refinement context takes priority over reference
// analysis when both are present.
func Compose(req ComposeRequest) Composed {
	base := strings.TrimSpace(req.BasePrompt)
	ref := strings.TrimSpace(req.ReferenceAnalysis)

	var body string
	switch {
	case req.Refinement.IsRefinement && strings.TrimSpace(req.Refinement.BaseDescription) != "":
		body = "refinement of " + strings.TrimSpace(req.Refinement.BaseDescription) + ", now " + base
	case ref != "" && base == "":
		// Reference-only turn: the analysis is the subject itself.
		body = ref
	case ref != "":
		body = base + ", inspired by " + ref
	default:
		body = base
	}

	style, negative := imageStyle, imageNegative
	if req.Kind == oracle.KindVideo {
		style, negative = videoStyle, videoNegative
	}

	return Composed{
		Prompt:         body + ", " + style,
		NegativePrompt: negative,
	}
}
