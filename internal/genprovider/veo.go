package genprovider

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	genai "google.golang.org/genai"

	"atelier/internal/oracle"
)

// Veo generates showcase videos through the Veo long-running API. Within the
// provider family it tries model variants fastest-first before giving up;
// failures across this whole adapter surface as one ProviderError, since
// video has no cross-provider fallback.
type Veo struct {
	cli      *genai.Client
	models   []string
	apiKey   string
	timeout  time.Duration
	pollWait time.Duration
	http     *http.Client
	log      zerolog.Logger
}

func NewVeo(cli *genai.Client, models []string, apiKey string, timeout time.Duration, log zerolog.Logger) *Veo {
	if timeout <= 0 {
		timeout = 180 * time.Second
	}
	if len(models) == 0 {
		models = []string{"veo-2.0-generate-001"}
	}
	return &Veo{
		cli:      cli,
		models:   models,
		apiKey:   apiKey,
		timeout:  timeout,
		pollWait: 5 * time.Second,
		http:     &http.Client{Timeout: 60 * time.Second},
		log:      log.With().Str("component", "veo").Logger(),
	}
}

func (v *Veo) Name() string { return "veo" }

func (v *Veo) Generate(ctx context.Context, req Request) (*Artifact, error) {
	var last error
	for _, model := range v.models {
		art, err := v.generateOnce(ctx, model, req)
		if err == nil {
			return art, nil
		}
		last = err
		// Quota errors are retried upstream by the queue; trying a bigger
		// model here would burn the same quota.
		if IsQuotaError(err) {
			break
		}
		v.log.Warn().Err(err).Str("model", model).Msg("video model failed, trying next variant")
	}
	return nil, newProviderError(v.Name(), last)
}

func (v *Veo) generateOnce(ctx context.Context, model string, req Request) (*Artifact, error) {
	ctx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	var image *genai.Image
	if len(req.BaseImage) > 0 {
		image = &genai.Image{
			ImageBytes: req.BaseImage,
			MIMEType:   mimeOrDefault(req.BaseMIME),
		}
	}

	op, err := v.cli.Models.GenerateVideos(ctx, model, req.Prompt, image, &genai.GenerateVideosConfig{
		NumberOfVideos: 1,
		NegativePrompt: req.NegativePrompt,
		AspectRatio:    "16:9",
	})
	if err != nil {
		return nil, err
	}

	for !op.Done {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(v.pollWait):
		}
		op, err = v.cli.Operations.GetVideosOperation(ctx, op, nil)
		if err != nil {
			return nil, err
		}
	}

	if op.Response == nil || len(op.Response.GeneratedVideos) == 0 || op.Response.GeneratedVideos[0].Video == nil {
		return nil, fmt.Errorf("operation completed without video")
	}
	video := op.Response.GeneratedVideos[0].Video

	data := video.VideoBytes
	if len(data) == 0 && video.URI != "" {
		data, err = v.download(ctx, video.URI)
		if err != nil {
			return nil, fmt.Errorf("download video: %w", err)
		}
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("video payload is empty")
	}

	mime := video.MIMEType
	if mime == "" {
		mime = "video/mp4"
	}
	return &Artifact{
		Kind:     oracle.KindVideo,
		Data:     data,
		MIMEType: mime,
		Filename: filenameFor(oracle.KindVideo, mime),
		Producer: v.Name() + ":" + model,
	}, nil
}

func (v *Veo) download(ctx context.Context, uri string) ([]byte, error) {
	if v.apiKey != "" && !strings.Contains(uri, "key=") {
		sep := "?"
		if strings.Contains(uri, "?") {
			sep = "&"
		}
		uri += sep + "key=" + v.apiKey
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return nil, err
	}
	resp, err := v.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}
