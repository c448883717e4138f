package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

type tryOnRequest struct {
	DenoiseSteps int `json:"denoise_steps"`
}

// RunTryOn composites the uploaded garment onto the selected preview.
func (a *App) RunTryOn(w http.ResponseWriter, r *http.Request) {
	var req tryOnRequest
	if err := decodeJSON(r, &req); err != nil {
		a.error(w, http.StatusBadRequest, "malformed JSON body")
		return
	}
	p, err := a.Studio.RunTryOn(r.Context(), chi.URLParam(r, "id"), req.DenoiseSteps)
	if err != nil {
		a.fail(w, err)
		return
	}
	a.json(w, http.StatusOK, toProductResponse(p))
}
