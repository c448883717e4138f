package domain

import (
	"time"

	"sellerstudio/internal/garment"
)

// CategorySource records where the active category of a product came from.
type CategorySource string

const (
	// CategorySourceInferred means the keyword precedence rules decided.
	CategorySourceInferred CategorySource = "inferred"
	// CategorySourceExternal means the remote category classifier answered
	// with a recognizable slug.
	CategorySourceExternal CategorySource = "external"
	// CategorySourceOverride means the caller forced the category.
	CategorySourceOverride CategorySource = "override"
)

// Preview references one generated base-model image.
type Preview struct {
	Index      int          `json:"index"`
	View       garment.View `json:"view"`
	StorageKey string       `json:"storage_key"`
}

// Product is the per-session state of one uploaded garment photo as it
// moves through the wizard: classify, categorize, preview, select, try-on.
// It lives only in the in-memory session store.
type Product struct {
	ID              string           `json:"id"`
	Filename        string           `json:"filename"`
	StorageKey      string           `json:"storage_key"`
	RawTags         []string         `json:"raw_tags"`
	Tags            []string         `json:"tags"`
	Category        garment.Category `json:"category"`
	CategorySource  CategorySource   `json:"category_source"`
	Gender          string           `json:"gender"`
	Previews        []Preview        `json:"previews,omitempty"`
	SelectedPreview int              `json:"selected_preview"` // -1 until a base model is chosen
	FinalKey        string           `json:"final_key,omitempty"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

// TryOnSupported reports compositing eligibility for the active category.
func (p Product) TryOnSupported() bool {
	return garment.IsTryOnSupported(p.Category)
}

// Clone returns a deep copy so session snapshots never alias store state.
func (p Product) Clone() Product {
	out := p
	out.RawTags = append([]string(nil), p.RawTags...)
	out.Tags = append([]string(nil), p.Tags...)
	out.Previews = append([]Preview(nil), p.Previews...)
	return out
}
