package genprovider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"atelier/internal/oracle"
)

// RESTImage calls a generic JSON-over-HTTP image service. The success shape
// is an array of result URLs; the adapter fetches the first one and
// normalizes it to bytes.
type RESTImage struct {
	endpoint string
	apiKey   string
	http     *http.Client
}

func NewRESTImage(endpoint, apiKey string, timeout time.Duration) *RESTImage {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &RESTImage{
		endpoint: endpoint,
		apiKey:   apiKey,
		http:     &http.Client{Timeout: timeout},
	}
}

func (r *RESTImage) Name() string { return "rest-image" }

type restImageRequest struct {
	Prompt         string `json:"prompt"`
	NegativePrompt string `json:"negative_prompt,omitempty"`
	NumImages      int    `json:"num_images"`
}

type restImageResponse struct {
	Images []struct {
		URL string `json:"url"`
	} `json:"images"`
}

func (r *RESTImage) Generate(ctx context.Context, req Request) (*Artifact, error) {
	body, err := json.Marshal(restImageRequest{
		Prompt:         req.Prompt,
		NegativePrompt: req.NegativePrompt,
		NumImages:      1,
	})
	if err != nil {
		return nil, newProviderError(r.Name(), err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, newProviderError(r.Name(), err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if r.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+r.apiKey)
	}

	resp, err := r.http.Do(httpReq)
	if err != nil {
		return nil, newProviderError(r.Name(), err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, newProviderError(r.Name(), fmt.Errorf("status %d: %s", resp.StatusCode, snippet))
	}

	var parsed restImageResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, newProviderError(r.Name(), fmt.Errorf("decode response: %w", err))
	}
	if len(parsed.Images) == 0 || parsed.Images[0].URL == "" {
		return nil, newProviderError(r.Name(), fmt.Errorf("response contains no image url"))
	}

	data, mime, err := r.fetch(ctx, parsed.Images[0].URL)
	if err != nil {
		return nil, newProviderError(r.Name(), err)
	}
	return &Artifact{
		Kind:     oracle.KindImage,
		Data:     data,
		MIMEType: mime,
		Filename: filenameFor(oracle.KindImage, mime),
		Producer: r.Name(),
	}, nil
}

func (r *RESTImage) fetch(ctx context.Context, url string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", err
	}
	resp, err := r.http.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("fetch image: status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", err
	}
	mime := resp.Header.Get("Content-Type")
	if mime == "" {
		mime = "image/png"
	}
	return data, mime, nil
}
