package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"sellerstudio/internal/domain"
	"sellerstudio/internal/garment"
	"sellerstudio/internal/infra"
)

type fakeStudio struct {
	analyze  func(filename string, data []byte) (domain.Product, error)
	generate func(id string, count int, override garment.Category, gender string) (domain.Product, error)
	selectFn func(id string, index int) (domain.Product, error)
	tryOn    func(id string, steps int) (domain.Product, error)
	product  func(id string) (domain.Product, error)
	asset    func(key string) ([]byte, string, error)
}

func (f *fakeStudio) AnalyzeProduct(_ context.Context, filename string, data []byte) (domain.Product, error) {
	return f.analyze(filename, data)
}

func (f *fakeStudio) GeneratePreviews(_ context.Context, id string, count int, override garment.Category, gender string) (domain.Product, error) {
	return f.generate(id, count, override, gender)
}

func (f *fakeStudio) SelectPreview(_ context.Context, id string, index int) (domain.Product, error) {
	return f.selectFn(id, index)
}

func (f *fakeStudio) RunTryOn(_ context.Context, id string, steps int) (domain.Product, error) {
	return f.tryOn(id, steps)
}

func (f *fakeStudio) Product(_ context.Context, id string) (domain.Product, error) {
	return f.product(id)
}

func (f *fakeStudio) Asset(_ context.Context, key string) ([]byte, string, error) {
	return f.asset(key)
}

func newTestApp(studio Studio) *App {
	return NewApp(infra.Logger(zerolog.New(io.Discard)), studio)
}

func testRouter(app *App) http.Handler {
	r := chi.NewRouter()
	r.Post("/v1/products", app.UploadProduct)
	r.Get("/v1/products/{id}", app.GetProduct)
	r.Post("/v1/products/{id}/previews", app.GeneratePreviews)
	r.Post("/v1/products/{id}/previews/{index}/select", app.SelectPreview)
	r.Post("/v1/products/{id}/tryon", app.RunTryOn)
	r.Get("/v1/assets/{session}/{key}", app.Asset)
	r.Get("/v1/categories", app.Categories)
	return r
}

func multipartUpload(t *testing.T, field, filename string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile(field, filename)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := fw.Write(data); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	mw.Close()
	return &buf, mw.FormDataContentType()
}

func TestUploadProduct(t *testing.T) {
	studio := &fakeStudio{
		analyze: func(filename string, data []byte) (domain.Product, error) {
			if filename != "tee.png" {
				t.Fatalf("filename = %q", filename)
			}
			if string(data) != "image-bytes" {
				t.Fatalf("data = %q", data)
			}
			return domain.Product{
				ID:              "p1",
				Filename:        filename,
				StorageKey:      "p1/product.png",
				RawTags:         []string{"jersey"},
				Tags:            []string{"t-shirt"},
				Category:        garment.CategoryUpperBody,
				CategorySource:  domain.CategorySourceInferred,
				Gender:          "male",
				SelectedPreview: -1,
			}, nil
		},
	}
	body, contentType := multipartUpload(t, "image", "tee.png", []byte("image-bytes"))
	req := httptest.NewRequest(http.MethodPost, "/v1/products", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	testRouter(newTestApp(studio)).ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201; body %s", rec.Code, rec.Body)
	}
	var resp productResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.ID != "p1" || resp.Category != "upper_body" || !resp.TryOnSupported {
		t.Fatalf("response = %+v", resp)
	}
	if resp.SelectedPreview != nil {
		t.Fatalf("selected_preview = %v, want null", *resp.SelectedPreview)
	}
	if resp.ImageURL != "/v1/assets/p1/product.png" {
		t.Fatalf("image_url = %q", resp.ImageURL)
	}
}

func TestUploadProductMissingField(t *testing.T) {
	body, contentType := multipartUpload(t, "photo", "tee.png", []byte("x"))
	req := httptest.NewRequest(http.MethodPost, "/v1/products", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	testRouter(newTestApp(&fakeStudio{})).ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestUploadProductInvalidImage(t *testing.T) {
	studio := &fakeStudio{
		analyze: func(string, []byte) (domain.Product, error) {
			return domain.Product{}, domain.ErrInvalidImage
		},
	}
	body, contentType := multipartUpload(t, "image", "notes.txt", []byte("plain"))
	req := httptest.NewRequest(http.MethodPost, "/v1/products", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	testRouter(newTestApp(studio)).ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestGeneratePreviewsPassesOverrides(t *testing.T) {
	studio := &fakeStudio{
		generate: func(id string, count int, override garment.Category, gender string) (domain.Product, error) {
			if id != "p1" || count != 2 || override != garment.CategoryDresses || gender != "female" {
				t.Fatalf("args = %q %d %q %q", id, count, override, gender)
			}
			return domain.Product{
				ID:       "p1",
				Category: garment.CategoryDresses,
				Previews: []domain.Preview{
					{Index: 0, View: garment.ViewFront, StorageKey: "p1/preview_0.png"},
					{Index: 1, View: garment.ViewLeftThreeQuarter, StorageKey: "p1/preview_1.png"},
				},
				SelectedPreview: -1,
			}, nil
		},
	}
	req := httptest.NewRequest(http.MethodPost, "/v1/products/p1/previews",
		strings.NewReader(`{"count":2,"category":"Dress.","gender":"female"}`))
	rec := httptest.NewRecorder()
	testRouter(newTestApp(studio)).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d; body %s", rec.Code, rec.Body)
	}
	var resp productResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Previews) != 2 || resp.Previews[1].URL != "/v1/assets/p1/preview_1.png" {
		t.Fatalf("previews = %+v", resp.Previews)
	}
	if resp.Previews[0].View != "front view" {
		t.Fatalf("view = %q", resp.Previews[0].View)
	}
}

func TestGeneratePreviewsUnknownCategory(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/v1/products/p1/previews",
		strings.NewReader(`{"category":"spacesuit"}`))
	rec := httptest.NewRecorder()
	testRouter(newTestApp(&fakeStudio{})).ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestGeneratePreviewsAllSlotsFailed(t *testing.T) {
	studio := &fakeStudio{
		generate: func(string, int, garment.Category, string) (domain.Product, error) {
			return domain.Product{ID: "p1", SelectedPreview: -1}, nil
		},
	}
	req := httptest.NewRequest(http.MethodPost, "/v1/products/p1/previews", nil)
	rec := httptest.NewRecorder()
	testRouter(newTestApp(studio)).ServeHTTP(rec, req)
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", rec.Code)
	}
}

func TestSelectPreviewBadIndex(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/v1/products/p1/previews/two/select", nil)
	rec := httptest.NewRecorder()
	testRouter(newTestApp(&fakeStudio{})).ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestTryOnErrorMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"unsupported category", domain.ErrUnsupportedCategory, http.StatusUnprocessableEntity},
		{"no model selected", domain.ErrNoModelSelected, http.StatusConflict},
		{"provider failure", domain.ErrProviderFailure, http.StatusBadGateway},
		{"unknown session", domain.ErrNotFound, http.StatusNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			studio := &fakeStudio{
				tryOn: func(string, int) (domain.Product, error) {
					return domain.Product{}, tc.err
				},
			}
			req := httptest.NewRequest(http.MethodPost, "/v1/products/p1/tryon", nil)
			rec := httptest.NewRecorder()
			testRouter(newTestApp(studio)).ServeHTTP(rec, req)
			if rec.Code != tc.want {
				t.Fatalf("status = %d, want %d", rec.Code, tc.want)
			}
		})
	}
}

func TestTryOnSuccessReturnsFinalURL(t *testing.T) {
	studio := &fakeStudio{
		tryOn: func(id string, steps int) (domain.Product, error) {
			if steps != 25 {
				t.Fatalf("steps = %d, want 25", steps)
			}
			return domain.Product{
				ID:              id,
				Category:        garment.CategoryUpperBody,
				SelectedPreview: 0,
				Previews:        []domain.Preview{{Index: 0, View: garment.ViewFront, StorageKey: "p1/preview_0.png"}},
				FinalKey:        "p1/final_tryon.png",
			}, nil
		},
	}
	req := httptest.NewRequest(http.MethodPost, "/v1/products/p1/tryon",
		strings.NewReader(`{"denoise_steps":25}`))
	rec := httptest.NewRecorder()
	testRouter(newTestApp(studio)).ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d; body %s", rec.Code, rec.Body)
	}
	var resp productResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.FinalURL != "/v1/assets/p1/final_tryon.png" {
		t.Fatalf("final_url = %q", resp.FinalURL)
	}
}

func TestAssetStreamsBytes(t *testing.T) {
	studio := &fakeStudio{
		asset: func(key string) ([]byte, string, error) {
			if key != "p1/preview_0.png" {
				t.Fatalf("key = %q", key)
			}
			return []byte("png-bytes"), "image/png", nil
		},
	}
	req := httptest.NewRequest(http.MethodGet, "/v1/assets/p1/preview_0.png", nil)
	rec := httptest.NewRecorder()
	testRouter(newTestApp(studio)).ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := rec.Header().Get("Content-Type"); got != "image/png" {
		t.Fatalf("content type = %q", got)
	}
	if rec.Body.String() != "png-bytes" {
		t.Fatalf("body = %q", rec.Body)
	}
}

func TestCategoriesListsTryOnEligibility(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/v1/categories", nil)
	rec := httptest.NewRecorder()
	testRouter(newTestApp(&fakeStudio{})).ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp struct {
		Categories []categoryInfo `json:"categories"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Categories) != 5 {
		t.Fatalf("categories = %d, want 5", len(resp.Categories))
	}
	eligibility := map[string]bool{}
	for _, c := range resp.Categories {
		eligibility[c.Name] = c.TryOnSupported
	}
	if !eligibility["upper_body"] || !eligibility["dresses"] || eligibility["footwear"] || eligibility["headwear"] {
		t.Fatalf("eligibility = %v", eligibility)
	}
}
