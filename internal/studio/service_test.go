package studio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"strings"
	"sync"
	"testing"

	"sellerstudio/internal/domain"
	"sellerstudio/internal/garment"
	"sellerstudio/internal/providers/imagegen"
	"sellerstudio/internal/providers/tryon"
	"sellerstudio/internal/providers/vision"
	"sellerstudio/internal/session"
	"sellerstudio/internal/storage"
)

type fakeTagger struct {
	tags        []string
	classifyErr error
	answer      string
	answerErr   error
}

func (f fakeTagger) Classify(context.Context, []byte) ([]string, error) {
	return f.tags, f.classifyErr
}

func (f fakeTagger) Categorize(context.Context, []byte) (string, error) {
	return f.answer, f.answerErr
}

type fakeGenerator struct {
	mu       sync.Mutex
	requests []imagegen.Request
	fail     func(req imagegen.Request) bool
}

func (f *fakeGenerator) Generate(_ context.Context, req imagegen.Request) (*imagegen.Image, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()
	if f.fail != nil && f.fail(req) {
		return nil, imagegen.ErrUnavailable
	}
	return &imagegen.Image{Data: []byte("preview:" + req.RequestID), MIME: "image/png"}, nil
}

type fakeComposer struct {
	lastRequest tryon.ComposeRequest
	err         error
}

func (f *fakeComposer) Compose(_ context.Context, req tryon.ComposeRequest) (*tryon.Result, error) {
	f.lastRequest = req
	if f.err != nil {
		return nil, f.err
	}
	return &tryon.Result{Data: []byte("final"), MIME: "image/png"}, nil
}

func pngUpload(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 8, 8))); err != nil {
		t.Fatalf("encode upload: %v", err)
	}
	return buf.Bytes()
}

func newTestService(t *testing.T, tagger Tagger, gen imagegen.Generator, comp tryon.Composer) *Service {
	t.Helper()
	store, err := storage.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore returned error: %v", err)
	}
	svc, err := NewService(Options{
		Store:     store,
		Sessions:  session.NewStore(session.Options{}),
		Tagger:    tagger,
		Generator: gen,
		Composer:  comp,
	})
	if err != nil {
		t.Fatalf("NewService returned error: %v", err)
	}
	return svc
}

func TestAnalyzeProductHappyPath(t *testing.T) {
	tagger := fakeTagger{
		tags:      []string{"jersey", "t-shirt", "blue"},
		answerErr: errors.New("category model down"),
	}
	svc := newTestService(t, tagger, &fakeGenerator{}, &fakeComposer{})

	p, err := svc.AnalyzeProduct(context.Background(), "tee.png", pngUpload(t))
	if err != nil {
		t.Fatalf("AnalyzeProduct returned error: %v", err)
	}
	if p.Category != garment.CategoryUpperBody {
		t.Fatalf("Category = %q, want upper_body", p.Category)
	}
	if p.CategorySource != domain.CategorySourceInferred {
		t.Fatalf("CategorySource = %q, want inferred", p.CategorySource)
	}
	if len(p.Tags) != 2 || p.Tags[0] != "t-shirt" || p.Tags[1] != "blue" {
		t.Fatalf("Tags = %v", p.Tags)
	}
	if p.SelectedPreview != -1 {
		t.Fatalf("SelectedPreview = %d, want -1", p.SelectedPreview)
	}
	if !p.TryOnSupported() {
		t.Fatal("upper_body should be try-on eligible")
	}
}

func TestAnalyzeProductExternalCategoryOverridesInference(t *testing.T) {
	tagger := fakeTagger{tags: []string{"t-shirt"}, answer: "Dress."}
	svc := newTestService(t, tagger, &fakeGenerator{}, &fakeComposer{})

	p, err := svc.AnalyzeProduct(context.Background(), "x.png", pngUpload(t))
	if err != nil {
		t.Fatalf("AnalyzeProduct returned error: %v", err)
	}
	if p.Category != garment.CategoryDresses {
		t.Fatalf("Category = %q, want dresses", p.Category)
	}
	if p.CategorySource != domain.CategorySourceExternal {
		t.Fatalf("CategorySource = %q, want external", p.CategorySource)
	}
}

func TestAnalyzeProductUnrecognizedAnswerKeepsInference(t *testing.T) {
	tagger := fakeTagger{tags: []string{"sneakers"}, answer: "a nice product photo"}
	svc := newTestService(t, tagger, &fakeGenerator{}, &fakeComposer{})

	p, err := svc.AnalyzeProduct(context.Background(), "x.png", pngUpload(t))
	if err != nil {
		t.Fatalf("AnalyzeProduct returned error: %v", err)
	}
	if p.Category != garment.CategoryFootwear {
		t.Fatalf("Category = %q, want footwear", p.Category)
	}
	if p.CategorySource != domain.CategorySourceInferred {
		t.Fatalf("CategorySource = %q, want inferred", p.CategorySource)
	}
}

func TestAnalyzeProductDegradesWhenTaggingUnavailable(t *testing.T) {
	tagger := fakeTagger{
		classifyErr: fmt.Errorf("%w: 503", vision.ErrUnavailable),
		answerErr:   errors.New("down"),
	}
	svc := newTestService(t, tagger, &fakeGenerator{}, &fakeComposer{})

	p, err := svc.AnalyzeProduct(context.Background(), "x.png", pngUpload(t))
	if err != nil {
		t.Fatalf("AnalyzeProduct returned error: %v", err)
	}
	if len(p.RawTags) != 0 || len(p.Tags) != 0 {
		t.Fatalf("tags not empty: raw=%v canonical=%v", p.RawTags, p.Tags)
	}
	if p.Category != garment.CategoryUpperBody {
		t.Fatalf("Category = %q, want default upper_body", p.Category)
	}
}

func TestAnalyzeProductRejectsNonImage(t *testing.T) {
	svc := newTestService(t, fakeTagger{}, &fakeGenerator{}, &fakeComposer{})
	if _, err := svc.AnalyzeProduct(context.Background(), "x.txt", []byte("plain text")); !errors.Is(err, domain.ErrInvalidImage) {
		t.Fatalf("AnalyzeProduct error = %v, want ErrInvalidImage", err)
	}
}

func TestGeneratePreviewsCyclesViewsAndSkipsFailedSlots(t *testing.T) {
	gen := &fakeGenerator{fail: func(req imagegen.Request) bool {
		return strings.Contains(req.Prompt, "left three-quarter view")
	}}
	tagger := fakeTagger{tags: []string{"t-shirt", "blue"}, answerErr: errors.New("down")}
	svc := newTestService(t, tagger, gen, &fakeComposer{})

	p, err := svc.AnalyzeProduct(context.Background(), "x.png", pngUpload(t))
	if err != nil {
		t.Fatalf("AnalyzeProduct returned error: %v", err)
	}
	p, err = svc.GeneratePreviews(context.Background(), p.ID, 3, "", "")
	if err != nil {
		t.Fatalf("GeneratePreviews returned error: %v", err)
	}
	if len(p.Previews) != 2 {
		t.Fatalf("previews = %d, want 2 (middle slot failed)", len(p.Previews))
	}
	if p.Previews[0].View != garment.ViewFront || p.Previews[1].View != garment.ViewRightThreeQuarter {
		t.Fatalf("views = %q, %q", p.Previews[0].View, p.Previews[1].View)
	}
	if p.Previews[0].Index != 0 || p.Previews[1].Index != 2 {
		t.Fatalf("indices = %d, %d", p.Previews[0].Index, p.Previews[1].Index)
	}
	if len(gen.requests) != 3 {
		t.Fatalf("generator calls = %d, want 3", len(gen.requests))
	}
	for _, req := range gen.requests {
		if !strings.Contains(req.Prompt, "t-shirt") {
			t.Fatalf("prompt missing garment description: %q", req.Prompt)
		}
		if req.NegativePrompt == "" {
			t.Fatal("negative prompt empty")
		}
	}
}

func TestGeneratePreviewsCategoryOverride(t *testing.T) {
	gen := &fakeGenerator{}
	tagger := fakeTagger{tags: []string{"t-shirt"}, answerErr: errors.New("down")}
	svc := newTestService(t, tagger, gen, &fakeComposer{})

	p, _ := svc.AnalyzeProduct(context.Background(), "x.png", pngUpload(t))
	p, err := svc.GeneratePreviews(context.Background(), p.ID, 1, garment.CategoryFootwear, "female")
	if err != nil {
		t.Fatalf("GeneratePreviews returned error: %v", err)
	}
	if p.Category != garment.CategoryFootwear {
		t.Fatalf("Category = %q, want footwear", p.Category)
	}
	if p.CategorySource != domain.CategorySourceOverride {
		t.Fatalf("CategorySource = %q, want override", p.CategorySource)
	}
	if p.Gender != "female" {
		t.Fatalf("Gender = %q, want female", p.Gender)
	}
	if len(gen.requests) != 1 || !strings.Contains(gen.requests[0].Prompt, "female fashion model") {
		t.Fatalf("requests = %+v", gen.requests)
	}
}

func TestGeneratePreviewsUnknownProduct(t *testing.T) {
	svc := newTestService(t, fakeTagger{}, &fakeGenerator{}, &fakeComposer{})
	if _, err := svc.GeneratePreviews(context.Background(), "missing", 3, "", ""); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("GeneratePreviews error = %v, want ErrNotFound", err)
	}
}

func TestTryOnFlow(t *testing.T) {
	gen := &fakeGenerator{}
	comp := &fakeComposer{}
	tagger := fakeTagger{tags: []string{"t-shirt", "blue"}, answerErr: errors.New("down")}
	svc := newTestService(t, tagger, gen, comp)

	p, _ := svc.AnalyzeProduct(context.Background(), "x.png", pngUpload(t))
	p, err := svc.GeneratePreviews(context.Background(), p.ID, 2, "", "")
	if err != nil {
		t.Fatalf("GeneratePreviews returned error: %v", err)
	}

	if _, err := svc.RunTryOn(context.Background(), p.ID, 0); !errors.Is(err, domain.ErrNoModelSelected) {
		t.Fatalf("RunTryOn before selection error = %v, want ErrNoModelSelected", err)
	}

	p, err = svc.SelectPreview(context.Background(), p.ID, 1)
	if err != nil {
		t.Fatalf("SelectPreview returned error: %v", err)
	}
	if p.SelectedPreview != 1 {
		t.Fatalf("SelectedPreview = %d, want 1", p.SelectedPreview)
	}

	p, err = svc.RunTryOn(context.Background(), p.ID, 0)
	if err != nil {
		t.Fatalf("RunTryOn returned error: %v", err)
	}
	if p.FinalKey == "" {
		t.Fatal("FinalKey not set")
	}
	if comp.lastRequest.GarmentDescription != "t-shirt, blue" {
		t.Fatalf("garment description = %q", comp.lastRequest.GarmentDescription)
	}
	if comp.lastRequest.Category != "upper_body" {
		t.Fatalf("category = %q", comp.lastRequest.Category)
	}
	if comp.lastRequest.DenoiseSteps != 40 {
		t.Fatalf("steps = %d, want default 40", comp.lastRequest.DenoiseSteps)
	}
	if comp.lastRequest.Seed != -1 {
		t.Fatalf("seed = %d, want -1", comp.lastRequest.Seed)
	}

	data, mime, err := svc.Asset(context.Background(), p.FinalKey)
	if err != nil {
		t.Fatalf("Asset returned error: %v", err)
	}
	if string(data) != "final" || mime == "" {
		t.Fatalf("asset = %q (%q)", data, mime)
	}
}

func TestTryOnRejectsUnsupportedCategory(t *testing.T) {
	tagger := fakeTagger{tags: []string{"cap"}, answerErr: errors.New("down")}
	svc := newTestService(t, tagger, &fakeGenerator{}, &fakeComposer{})

	p, _ := svc.AnalyzeProduct(context.Background(), "x.png", pngUpload(t))
	p, err := svc.GeneratePreviews(context.Background(), p.ID, 1, "", "")
	if err != nil {
		t.Fatalf("GeneratePreviews returned error: %v", err)
	}
	if _, err := svc.SelectPreview(context.Background(), p.ID, 0); err != nil {
		t.Fatalf("SelectPreview returned error: %v", err)
	}
	if _, err := svc.RunTryOn(context.Background(), p.ID, 0); !errors.Is(err, domain.ErrUnsupportedCategory) {
		t.Fatalf("RunTryOn error = %v, want ErrUnsupportedCategory", err)
	}
}

func TestSelectPreviewOutOfRange(t *testing.T) {
	tagger := fakeTagger{tags: []string{"t-shirt"}, answerErr: errors.New("down")}
	svc := newTestService(t, tagger, &fakeGenerator{}, &fakeComposer{})

	p, _ := svc.AnalyzeProduct(context.Background(), "x.png", pngUpload(t))
	p, err := svc.GeneratePreviews(context.Background(), p.ID, 1, "", "")
	if err != nil {
		t.Fatalf("GeneratePreviews returned error: %v", err)
	}
	if _, err := svc.SelectPreview(context.Background(), p.ID, 5); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("SelectPreview error = %v, want ErrNotFound", err)
	}
}
