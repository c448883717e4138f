// Package vision calls the hosted image classification endpoints that tag
// an uploaded product photo and, optionally, answer which garment category
// it shows. Failures are typed so the orchestrator can tell "the model saw
// nothing" apart from "the service is down" instead of conflating both
// into an empty tag list.
package vision

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
	// ErrMissingAPIKey indicates that the client was configured without credentials.
	ErrMissingAPIKey = errors.New("vision: api key is required")
	// ErrUnavailable indicates a transport failure or a non-2xx answer.
	ErrUnavailable = errors.New("vision: service unavailable")
	// ErrDecode indicates the service answered with an unexpected payload.
	ErrDecode = errors.New("vision: unexpected response payload")
)

const (
	defaultBaseURL  = "https://api-inference.huggingface.co"
	defaultModel    = "google/vit-base-patch16-224"
	defaultCategory = "Salesforce/blip-vqa-base"
	defaultTimeout  = 30 * time.Second
	defaultTopK     = 10

	categoryQuestion = "What category of garment is this: upper body, lower body, dresses, footwear, or headwear?"
)

// Options configures the hosted classifier client.
type Options struct {
	APIKey         string
	BaseURL        string
	Model          string
	CategoryModel  string
	TopK           int
	HTTPClient     *http.Client
	Logger         *infra.Logger
	RequestTimeout time.Duration
}

// Client performs HTTP calls against the inference API.
type Client struct {
	apiKey        string
	baseURL       string
	model         string
	categoryModel string
	topK          int
	httpClient    *http.Client
	logger        *infra.Logger
}

type labelScore struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

type vqaAnswer struct {
	Answer string `json:"answer"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// NewClient constructs a client with sane defaults and injected dependencies.
func NewClient(opts Options) (*Client, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, ErrMissingAPIKey
	}
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
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = defaultModel
	}
	categoryModel := strings.TrimSpace(opts.CategoryModel)
	if categoryModel == "" {
		categoryModel = defaultCategory
	}
	topK := opts.TopK
	if topK <= 0 {
		topK = defaultTopK
	}
	logger := opts.Logger
	if logger == nil {
		discard := infra.Logger(zerolog.New(io.Discard))
		logger = &discard
	}
	return &Client{
		apiKey:        strings.TrimSpace(opts.APIKey),
		baseURL:       baseURL,
		model:         model,
		categoryModel: categoryModel,
		topK:          topK,
		httpClient:    httpClient,
		logger:        logger,
	}, nil
}

// Classify sends the raw image to the classification model and returns the
// deduplicated lowercase label tokens. Comma-joined labels are exploded
// into individual tokens. An empty slice with a nil error means the model
// genuinely produced no usable labels.
func (c *Client) Classify(ctx context.Context, image []byte) ([]string, error) {
	body, err := c.postImage(ctx, c.model, image)
	if err != nil {
		return nil, err
	}

	var labels []labelScore
	if err := json.Unmarshal(body, &labels); err != nil {
		var serviceErr errorResponse
		if jsonErr := json.Unmarshal(body, &serviceErr); jsonErr == nil && serviceErr.Error != "" {
			return nil, fmt.Errorf("%w: %s", ErrUnavailable, serviceErr.Error)
		}
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	if len(labels) > c.topK {
		labels = labels[:c.topK]
	}
	tags := make([]string, 0, len(labels))
	seen := make(map[string]struct{}, len(labels))
	for _, l := range labels {
		for _, token := range strings.Split(strings.ToLower(l.Label), ",") {
			token = strings.TrimSpace(token)
			if token == "" {
				continue
			}
			if _, dup := seen[token]; dup {
				continue
			}
			seen[token] = struct{}{}
			tags = append(tags, token)
		}
	}
	c.logger.Debug().Int("labels", len(labels)).Int("tags", len(tags)).Msg("vision: classified product")
	return tags, nil
}

// Categorize asks the visual question-answering model which garment
// category the photo shows and returns its free-text answer. Callers are
// expected to run the answer through alias normalization before trusting it.
func (c *Client) Categorize(ctx context.Context, image []byte) (string, error) {
	payload := struct {
		Inputs struct {
			Image    string `json:"image"`
			Question string `json:"question"`
		} `json:"inputs"`
	}{}
	payload.Inputs.Image = base64.StdEncoding.EncodeToString(image)
	payload.Inputs.Question = categoryQuestion

	encoded, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecode, err)
	}
	body, err := c.post(ctx, c.categoryModel, "application/json", encoded)
	if err != nil {
		return "", err
	}

	var answers []vqaAnswer
	if err := json.Unmarshal(body, &answers); err != nil {
		var serviceErr errorResponse
		if jsonErr := json.Unmarshal(body, &serviceErr); jsonErr == nil && serviceErr.Error != "" {
			return "", fmt.Errorf("%w: %s", ErrUnavailable, serviceErr.Error)
		}
		return "", fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if len(answers) == 0 || strings.TrimSpace(answers[0].Answer) == "" {
		return "", fmt.Errorf("%w: empty answer", ErrDecode)
	}
	answer := strings.TrimSpace(answers[0].Answer)
	c.logger.Debug().Str("answer", answer).Msg("vision: categorized product")
	return answer, nil
}

func (c *Client) postImage(ctx context.Context, model string, image []byte) ([]byte, error) {
	return c.post(ctx, model, "application/octet-stream", image)
}

func (c *Client) post(ctx context.Context, model, contentType string, body []byte) ([]byte, error) {
	endpoint := fmt.Sprintf("%s/models/%s", c.baseURL, model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", contentType)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var serviceErr errorResponse
		if jsonErr := json.Unmarshal(data, &serviceErr); jsonErr == nil && serviceErr.Error != "" {
			return nil, fmt.Errorf("%w: status %d: %s", ErrUnavailable, resp.StatusCode, serviceErr.Error)
		}
		return nil, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}
	return data, nil
}
