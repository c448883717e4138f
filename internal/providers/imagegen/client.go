// Package imagegen calls a hosted text-to-image space to render the base
// model previews. The service only ever contributes prompt pairs; the
// heavy lifting happens remotely.
package imagegen

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"sellerstudio/internal/infra"
)

var (
	// ErrUnavailable indicates a transport failure or a non-2xx answer.
	ErrUnavailable = errors.New("imagegen: service unavailable")
	// ErrDecode indicates the space answered with an unexpected payload.
	ErrDecode = errors.New("imagegen: unexpected response payload")
	// ErrEmptyResult indicates a well-formed answer carrying no image.
	ErrEmptyResult = errors.New("imagegen: no image in response")
)

// Request captures one preview generation call.
type Request struct {
	Prompt         string
	NegativePrompt string
	GuidanceScale  float64
	RequestID      string
}

// Image is the normalized result of a generation call.
type Image struct {
	Data []byte
	MIME string
}

// Generator is the seam the orchestrator depends on; tests swap in fakes.
type Generator interface {
	Generate(ctx context.Context, req Request) (*Image, error)
}

const (
	defaultBaseURL  = "https://stabilityai-stable-diffusion.hf.space"
	defaultAPIPath  = "/run/infer"
	defaultGuidance = 9.0
	defaultTimeout  = 120 * time.Second
)

// Options configures the Client.
type Options struct {
	APIKey         string
	BaseURL        string
	APIPath        string
	GuidanceScale  float64
	HTTPClient     *http.Client
	Logger         *infra.Logger
	RequestTimeout time.Duration
}

// Client talks to a gradio-style inference space.
type Client struct {
	apiKey     string
	baseURL    string
	apiPath    string
	guidance   float64
	httpClient *http.Client
	logger     *infra.Logger
}

var _ Generator = (*Client)(nil)

type generateRequest struct {
	Data []any `json:"data"`
}

type generateResponse struct {
	Data  []json.RawMessage `json:"data"`
	Error string            `json:"error"`
}

type imagePayload struct {
	Image string `json:"image"`
}

// NewClient constructs a client with sane defaults and injected dependencies.
func NewClient(opts Options) (*Client, error) {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.RequestTimeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	apiPath := opts.APIPath
	if apiPath == "" {
		apiPath = defaultAPIPath
	}
	if !strings.HasPrefix(apiPath, "/") {
		apiPath = "/" + apiPath
	}
	guidance := opts.GuidanceScale
	if guidance <= 0 {
		guidance = defaultGuidance
	}
	logger := opts.Logger
	if logger == nil {
		discard := infra.Logger(zerolog.New(io.Discard))
		logger = &discard
	}
	return &Client{
		apiKey:     strings.TrimSpace(opts.APIKey),
		baseURL:    baseURL,
		apiPath:    apiPath,
		guidance:   guidance,
		httpClient: httpClient,
		logger:     logger,
	}, nil
}

// Generate renders one image from the prompt pair.
func (c *Client) Generate(ctx context.Context, req Request) (*Image, error) {
	guidance := req.GuidanceScale
	if guidance <= 0 {
		guidance = c.guidance
	}
	payload := generateRequest{Data: []any{req.Prompt, req.NegativePrompt, guidance}}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+c.apiPath, bytes.NewReader(encoded))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 32<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	var decoded generateResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if decoded.Error != "" {
		return nil, fmt.Errorf("%w: %s", ErrUnavailable, decoded.Error)
	}
	if len(decoded.Data) == 0 {
		return nil, ErrEmptyResult
	}

	raw, err := firstImageString(decoded.Data[0])
	if err != nil {
		return nil, err
	}
	data, mime, err := decodeImageString(raw)
	if err != nil {
		return nil, err
	}
	c.logger.Debug().
		Str("request_id", req.RequestID).
		Int("bytes", len(data)).
		Dur("elapsed", time.Since(start)).
		Msg("imagegen: generated preview")
	return &Image{Data: data, MIME: mime}, nil
}

// firstImageString digs the image string out of the space's data slot,
// which is either a single object or a gallery array of objects.
func firstImageString(slot json.RawMessage) (string, error) {
	var gallery []imagePayload
	if err := json.Unmarshal(slot, &gallery); err == nil {
		if len(gallery) == 0 || gallery[0].Image == "" {
			return "", ErrEmptyResult
		}
		return gallery[0].Image, nil
	}
	var single imagePayload
	if err := json.Unmarshal(slot, &single); err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if single.Image == "" {
		return "", ErrEmptyResult
	}
	return single.Image, nil
}

// decodeImageString accepts either a data URL or bare base64 PNG bytes.
func decodeImageString(s string) ([]byte, string, error) {
	mime := "image/png"
	if strings.HasPrefix(s, "data:") {
		rest := strings.TrimPrefix(s, "data:")
		sep := strings.Index(rest, ";base64,")
		if sep < 0 {
			return nil, "", fmt.Errorf("%w: malformed data url", ErrDecode)
		}
		if m := rest[:sep]; m != "" {
			mime = m
		}
		s = rest[sep+len(";base64,"):]
	}
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if len(data) == 0 {
		return nil, "", ErrEmptyResult
	}
	return data, mime, nil
}
