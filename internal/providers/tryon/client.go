// Package tryon calls the hosted garment-compositing space that dresses a
// generated base model in the uploaded product. The service contributes
// only the garment description and category slug; eligibility gating
// happens upstream.
package tryon

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
	ErrUnavailable = errors.New("tryon: service unavailable")
	// ErrDecode indicates the space answered with an unexpected payload.
	ErrDecode = errors.New("tryon: unexpected response payload")
	// ErrEmptyResult indicates a well-formed answer carrying no image.
	ErrEmptyResult = errors.New("tryon: no image in response")
)

// ComposeRequest carries one compositing call.
type ComposeRequest struct {
	Person             []byte
	Garment            []byte
	GarmentDescription string
	Category           string
	AutoMask           bool
	AutoCrop           bool
	DenoiseSteps       int
	Seed               int
	RequestID          string
}

// Result is the normalized compositing output. Mask is best-effort; some
// provider revisions return only the final image.
type Result struct {
	Data []byte
	MIME string
	Mask []byte
}

// Composer is the seam the orchestrator depends on; tests swap in fakes.
type Composer interface {
	Compose(ctx context.Context, req ComposeRequest) (*Result, error)
}

const (
	defaultBaseURL = "https://jallenjia-change-clothes-ai.hf.space"
	defaultAPIPath = "/run/tryon"
	defaultSteps   = 40
	defaultTimeout = 180 * time.Second
)

// Options configures the Client.
type Options struct {
	APIKey         string
	BaseURL        string
	APIPath        string
	HTTPClient     *http.Client
	Logger         *infra.Logger
	RequestTimeout time.Duration
}

// Client talks to a gradio-style try-on space.
type Client struct {
	apiKey     string
	baseURL    string
	apiPath    string
	httpClient *http.Client
	logger     *infra.Logger
}

var _ Composer = (*Client)(nil)

// personPayload mirrors the editor widget the space exposes for the person
// slot: a background image plus (unused) mask layers.
type personPayload struct {
	Background string `json:"background"`
	Layers     []any  `json:"layers"`
	Composite  any    `json:"composite"`
}

type composeResponse struct {
	Data  []string `json:"data"`
	Error string   `json:"error"`
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
	logger := opts.Logger
	if logger == nil {
		discard := infra.Logger(zerolog.New(io.Discard))
		logger = &discard
	}
	return &Client{
		apiKey:     strings.TrimSpace(opts.APIKey),
		baseURL:    baseURL,
		apiPath:    apiPath,
		httpClient: httpClient,
		logger:     logger,
	}, nil
}

// Compose dresses the person image in the garment image.
func (c *Client) Compose(ctx context.Context, req ComposeRequest) (*Result, error) {
	if len(req.Person) == 0 || len(req.Garment) == 0 {
		return nil, fmt.Errorf("%w: person and garment images are required", ErrDecode)
	}
	steps := req.DenoiseSteps
	if steps <= 0 {
		steps = defaultSteps
	}
	seed := req.Seed
	if seed == 0 {
		seed = -1
	}

	person := personPayload{
		Background: base64.StdEncoding.EncodeToString(req.Person),
		Layers:     []any{},
	}
	payload := struct {
		Data []any `json:"data"`
	}{Data: []any{
		person,
		base64.StdEncoding.EncodeToString(req.Garment),
		req.GarmentDescription,
		req.AutoMask,
		req.AutoCrop,
		steps,
		seed,
		req.Category,
	}}
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

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	var decoded composeResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if decoded.Error != "" {
		return nil, fmt.Errorf("%w: %s", ErrUnavailable, decoded.Error)
	}
	if len(decoded.Data) == 0 || decoded.Data[0] == "" {
		return nil, ErrEmptyResult
	}

	data, mime, err := decodeImageString(decoded.Data[0])
	if err != nil {
		return nil, err
	}
	result := &Result{Data: data, MIME: mime}
	if len(decoded.Data) > 1 && decoded.Data[1] != "" {
		if mask, _, maskErr := decodeImageString(decoded.Data[1]); maskErr == nil {
			result.Mask = mask
		}
	}
	c.logger.Debug().
		Str("request_id", req.RequestID).
		Str("category", req.Category).
		Int("bytes", len(data)).
		Dur("elapsed", time.Since(start)).
		Msg("tryon: composited garment")
	return result, nil
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
