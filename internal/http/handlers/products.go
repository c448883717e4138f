package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"sellerstudio/internal/domain"
)

// UploadProduct accepts a multipart product photo under the "image" field,
// runs tagging and category inference, and opens a wizard session.
func (a *App) UploadProduct(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, a.MaxUploadBytes)
	if err := r.ParseMultipartForm(a.MaxUploadBytes); err != nil {
		a.error(w, http.StatusBadRequest, "expected multipart form with an image field")
		return
	}
	file, header, err := r.FormFile("image")
	if err != nil {
		a.error(w, http.StatusBadRequest, "image field is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil || len(data) == 0 {
		a.fail(w, domain.ErrInvalidImage)
		return
	}

	p, err := a.Studio.AnalyzeProduct(r.Context(), header.Filename, data)
	if err != nil {
		a.fail(w, err)
		return
	}
	a.json(w, http.StatusCreated, toProductResponse(p))
}

// GetProduct returns the current session snapshot.
func (a *App) GetProduct(w http.ResponseWriter, r *http.Request) {
	p, err := a.Studio.Product(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, err)
		return
	}
	a.json(w, http.StatusOK, toProductResponse(p))
}

// decodeJSON tolerates an empty body so optional-parameter endpoints can
// be called without one.
func decodeJSON(r *http.Request, v any) error {
	err := json.NewDecoder(r.Body).Decode(v)
	if err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}
