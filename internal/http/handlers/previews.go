package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"sellerstudio/internal/garment"
)

type generatePreviewsRequest struct {
	Count    int    `json:"count"`
	Category string `json:"category"`
	Gender   string `json:"gender"`
}

// GeneratePreviews renders base-model previews for the session. The body
// is optional; category and gender override the analyzed defaults.
func (a *App) GeneratePreviews(w http.ResponseWriter, r *http.Request) {
	var req generatePreviewsRequest
	if err := decodeJSON(r, &req); err != nil {
		a.error(w, http.StatusBadRequest, "malformed JSON body")
		return
	}

	var override garment.Category
	if req.Category != "" {
		parsed, ok := garment.ParseCategory(req.Category)
		if !ok {
			a.error(w, http.StatusBadRequest, "unknown category "+strconv.Quote(req.Category))
			return
		}
		override = parsed
	}

	p, err := a.Studio.GeneratePreviews(r.Context(), chi.URLParam(r, "id"), req.Count, override, req.Gender)
	if err != nil {
		a.fail(w, err)
		return
	}
	if len(p.Previews) == 0 {
		a.error(w, http.StatusBadGateway, "image generation produced no previews")
		return
	}
	a.json(w, http.StatusOK, toProductResponse(p))
}

// SelectPreview marks one preview as the base model for try-on.
func (a *App) SelectPreview(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		a.error(w, http.StatusBadRequest, "preview index must be an integer")
		return
	}
	p, err := a.Studio.SelectPreview(r.Context(), chi.URLParam(r, "id"), index)
	if err != nil {
		a.fail(w, err)
		return
	}
	a.json(w, http.StatusOK, toProductResponse(p))
}
