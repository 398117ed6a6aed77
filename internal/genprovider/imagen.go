package genprovider

import (
	"context"
	"fmt"
	"time"

	genai "google.golang.org/genai"

	"atelier/internal/oracle"
)

// Imagen generates images through the Imagen API. The success shape is raw
// image bytes on the first generated image.
type Imagen struct {
	cli     *genai.Client
	model   string
	timeout time.Duration
}

func NewImagen(cli *genai.Client, model string, timeout time.Duration) *Imagen {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Imagen{cli: cli, model: model, timeout: timeout}
}

func (i *Imagen) Name() string { return "imagen:" + i.model }

func (i *Imagen) Generate(ctx context.Context, req Request) (*Artifact, error) {
	ctx, cancel := context.WithTimeout(ctx, i.timeout)
	defer cancel()

	resp, err := i.cli.Models.GenerateImages(ctx, i.model, req.Prompt, &genai.GenerateImagesConfig{
		NumberOfImages: 1,
		NegativePrompt: req.NegativePrompt,
		AspectRatio:    "1:1",
	})
	if err != nil {
		return nil, newProviderError(i.Name(), err)
	}
	if len(resp.GeneratedImages) == 0 || resp.GeneratedImages[0].Image == nil ||
		len(resp.GeneratedImages[0].Image.ImageBytes) == 0 {
		return nil, newProviderError(i.Name(), fmt.Errorf("response contains no image bytes"))
	}
	img := resp.GeneratedImages[0].Image
	mime := img.MIMEType
	if mime == "" {
		mime = "image/png"
	}
	return &Artifact{
		Kind:     oracle.KindImage,
		Data:     img.ImageBytes,
		MIMEType: mime,
		Filename: filenameFor(oracle.KindImage, mime),
		Producer: i.Name(),
	}, nil
}
