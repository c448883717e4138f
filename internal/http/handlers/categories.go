package handlers

import (
	"net/http"

	"sellerstudio/internal/garment"
)

type categoryInfo struct {
	Name           string `json:"name"`
	TryOnSupported bool   `json:"try_on_supported"`
}

// Categories lists the category slugs a caller may pass as an override,
// flagging which ones the try-on step accepts.
func (a *App) Categories(w http.ResponseWriter, r *http.Request) {
	cats := garment.Categories()
	out := make([]categoryInfo, 0, len(cats))
	for _, c := range cats {
		out = append(out, categoryInfo{
			Name:           string(c),
			TryOnSupported: garment.IsTryOnSupported(c),
		})
	}
	a.json(w, http.StatusOK, map[string]any{"categories": out})
}
