// Package handlers exposes the studio wizard over JSON/HTTP. Handlers
// translate transport concerns (multipart uploads, status codes, asset
// URLs); all sequencing lives behind the Studio interface.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"sellerstudio/internal/domain"
	"sellerstudio/internal/garment"
	"sellerstudio/internal/infra"
)

// Studio is the orchestration boundary the handlers call into.
type Studio interface {
	AnalyzeProduct(ctx context.Context, filename string, data []byte) (domain.Product, error)
	GeneratePreviews(ctx context.Context, id string, count int, override garment.Category, gender string) (domain.Product, error)
	SelectPreview(ctx context.Context, id string, index int) (domain.Product, error)
	RunTryOn(ctx context.Context, id string, steps int) (domain.Product, error)
	Product(ctx context.Context, id string) (domain.Product, error)
	Asset(ctx context.Context, key string) ([]byte, string, error)
}

type App struct {
	Logger         infra.Logger
	Studio         Studio
	MaxUploadBytes int64
}

const defaultMaxUploadBytes = 20 << 20

func NewApp(logger infra.Logger, studio Studio) *App {
	return &App{Logger: logger, Studio: studio, MaxUploadBytes: defaultMaxUploadBytes}
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, code int, msg string) {
	a.json(w, code, map[string]string{"error": msg})
}

// fail maps domain errors onto HTTP status codes.
func (a *App) fail(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		a.error(w, http.StatusNotFound, "not found")
	case errors.Is(err, domain.ErrInvalidImage):
		a.error(w, http.StatusBadRequest, "upload is not a usable PNG or JPEG image")
	case errors.Is(err, domain.ErrUnsupportedCategory):
		a.error(w, http.StatusUnprocessableEntity, "virtual try-on is not available for this category")
	case errors.Is(err, domain.ErrNoModelSelected):
		a.error(w, http.StatusConflict, "select a generated model preview first")
	case errors.Is(err, domain.ErrProviderFailure):
		a.error(w, http.StatusBadGateway, "upstream image service failed")
	default:
		a.Logger.Error().Err(err).Msg("unhandled request error")
		a.error(w, http.StatusInternalServerError, "internal error")
	}
}

type previewResponse struct {
	Index int    `json:"index"`
	View  string `json:"view"`
	URL   string `json:"url"`
}

type productResponse struct {
	ID              string            `json:"id"`
	Filename        string            `json:"filename"`
	RawTags         []string          `json:"raw_tags"`
	Tags            []string          `json:"tags"`
	Category        string            `json:"category"`
	CategorySource  string            `json:"category_source"`
	Gender          string            `json:"gender"`
	Previews        []previewResponse `json:"previews"`
	SelectedPreview *int              `json:"selected_preview"`
	TryOnSupported  bool              `json:"try_on_supported"`
	ImageURL        string            `json:"image_url"`
	FinalURL        string            `json:"final_url,omitempty"`
}

func assetURL(key string) string {
	if key == "" {
		return ""
	}
	return "/v1/assets/" + key
}

func toProductResponse(p domain.Product) productResponse {
	previews := make([]previewResponse, 0, len(p.Previews))
	for _, pv := range p.Previews {
		previews = append(previews, previewResponse{
			Index: pv.Index,
			View:  string(pv.View),
			URL:   assetURL(pv.StorageKey),
		})
	}
	var selected *int
	if p.SelectedPreview >= 0 {
		idx := p.SelectedPreview
		selected = &idx
	}
	return productResponse{
		ID:              p.ID,
		Filename:        p.Filename,
		RawTags:         p.RawTags,
		Tags:            p.Tags,
		Category:        string(p.Category),
		CategorySource:  string(p.CategorySource),
		Gender:          p.Gender,
		Previews:        previews,
		SelectedPreview: selected,
		TryOnSupported:  p.TryOnSupported(),
		ImageURL:        assetURL(p.StorageKey),
		FinalURL:        assetURL(p.FinalKey),
	}
}
