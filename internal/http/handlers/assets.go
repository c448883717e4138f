package handlers

import (
	"errors"
	"net/http"
	"os"
	"strconv"

	"github.com/go-chi/chi/v5"
)

// Asset streams a stored session artifact (uploaded photo, preview, or
// final composite) by its storage key.
func (a *App) Asset(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "session") + "/" + chi.URLParam(r, "key")
	data, mime, err := a.Studio.Asset(r.Context(), key)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			a.error(w, http.StatusNotFound, "not found")
			return
		}
		a.fail(w, err)
		return
	}
	w.Header().Set("Content-Type", mime)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	_, _ = w.Write(data)
}
