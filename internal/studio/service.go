// Package studio sequences one product upload through the wizard:
// classify, categorize, generate base-model previews, select, composite.
// It owns the session state transitions; all model inference happens in
// the provider packages, and the tag/category/prompt logic is delegated
// to the pure garment package.
package studio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"sellerstudio/internal/domain"
	"sellerstudio/internal/garment"
	"sellerstudio/internal/imaging"
	"sellerstudio/internal/infra"
	"sellerstudio/internal/providers/imagegen"
	"sellerstudio/internal/providers/tryon"
	"sellerstudio/internal/providers/vision"
	"sellerstudio/internal/session"
	"sellerstudio/internal/storage"
)

// Tagger is the classification boundary: product labels plus an optional
// direct category answer.
type Tagger interface {
	Classify(ctx context.Context, image []byte) ([]string, error)
	Categorize(ctx context.Context, image []byte) (string, error)
}

const maxPreviewCount = 6

// Options wires the service dependencies.
type Options struct {
	Logger        *infra.Logger
	Store         *storage.FileStore
	Sessions      *session.Store
	Tagger        Tagger
	Generator     imagegen.Generator
	Composer      tryon.Composer
	PreviewCount  int
	GuidanceScale float64
	DenoiseSteps  int
	DefaultGender string
}

// Service orchestrates the upload-to-final-image flow.
type Service struct {
	logger        infra.Logger
	store         *storage.FileStore
	sessions      *session.Store
	tagger        Tagger
	generator     imagegen.Generator
	composer      tryon.Composer
	previewCount  int
	guidanceScale float64
	denoiseSteps  int
	defaultGender string
}

// NewService validates wiring and applies defaults.
func NewService(opts Options) (*Service, error) {
	if opts.Store == nil {
		return nil, errors.New("studio: asset store is required")
	}
	if opts.Sessions == nil {
		return nil, errors.New("studio: session store is required")
	}
	if opts.Tagger == nil || opts.Generator == nil || opts.Composer == nil {
		return nil, errors.New("studio: all providers are required")
	}
	previewCount := opts.PreviewCount
	if previewCount <= 0 {
		previewCount = 3
	}
	denoiseSteps := opts.DenoiseSteps
	if denoiseSteps <= 0 {
		denoiseSteps = 40
	}
	gender := strings.TrimSpace(opts.DefaultGender)
	if gender == "" {
		gender = "male"
	}
	logger := infra.Logger(zerolog.New(io.Discard))
	if opts.Logger != nil {
		logger = *opts.Logger
	}
	return &Service{
		logger:        logger,
		store:         opts.Store,
		sessions:      opts.Sessions,
		tagger:        opts.Tagger,
		generator:     opts.Generator,
		composer:      opts.Composer,
		previewCount:  previewCount,
		guidanceScale: opts.GuidanceScale,
		denoiseSteps:  denoiseSteps,
		defaultGender: gender,
	}, nil
}

// AnalyzeProduct stores the uploaded photo, runs remote tagging and
// categorization, derives the canonical tag set and active category, and
// opens a new session. Classification failures degrade to an empty tag
// set: the wizard still works, the caller just sees fewer hints.
func (s *Service) AnalyzeProduct(ctx context.Context, filename string, data []byte) (domain.Product, error) {
	ext, err := imageExtension(data)
	if err != nil {
		return domain.Product{}, err
	}

	id := uuid.NewString()
	key, err := s.store.Write(ctx, fmt.Sprintf("%s/product%s", id, ext), data)
	if err != nil {
		return domain.Product{}, fmt.Errorf("studio: store upload: %w", err)
	}

	rawTags, err := s.tagger.Classify(ctx, data)
	if err != nil {
		// "Service down" and "garbled answer" are different operational
		// problems even though both degrade to zero tags for the caller.
		switch {
		case errors.Is(err, vision.ErrUnavailable):
			s.logger.Warn().Err(err).Str("product_id", id).Msg("tagging service unreachable, continuing without tags")
		default:
			s.logger.Warn().Err(err).Str("product_id", id).Msg("tagging response unusable, continuing without tags")
		}
		rawTags = nil
	}

	category := garment.Infer(rawTags)
	source := domain.CategorySourceInferred
	if answer, err := s.tagger.Categorize(ctx, data); err == nil {
		if parsed, ok := garment.ParseCategory(answer); ok {
			category = parsed
			source = domain.CategorySourceExternal
		} else {
			s.logger.Debug().Str("answer", answer).Msg("category answer unrecognized, keeping inference")
		}
	} else {
		s.logger.Debug().Err(err).Msg("category classifier unavailable, keeping inference")
	}

	product := domain.Product{
		ID:              id,
		Filename:        filename,
		StorageKey:      key,
		RawTags:         rawTags,
		Tags:            garment.Normalize(rawTags),
		Category:        category,
		CategorySource:  source,
		Gender:          s.defaultGender,
		SelectedPreview: -1,
	}
	s.sessions.Put(product)

	s.logger.Info().
		Str("product_id", id).
		Str("category", string(category)).
		Str("category_source", string(source)).
		Int("tags", len(product.Tags)).
		Msg("product analyzed")

	stored, _ := s.sessions.Get(id)
	return stored, nil
}

// GeneratePreviews builds one prompt pair per slot, cycling the fixed
// camera-view rotation, and fans the generation calls out concurrently.
// Generation is best-effort: failed slots are logged and skipped, the
// order of surviving previews follows the slot order. Any previously
// generated previews and final image are discarded.
func (s *Service) GeneratePreviews(ctx context.Context, id string, count int, override garment.Category, gender string) (domain.Product, error) {
	p, ok := s.sessions.Get(id)
	if !ok {
		return domain.Product{}, domain.ErrNotFound
	}

	if count <= 0 {
		count = s.previewCount
	}
	if count > maxPreviewCount {
		count = maxPreviewCount
	}
	category := p.Category
	source := p.CategorySource
	if override != "" {
		category = override
		source = domain.CategorySourceOverride
	}
	if gender = strings.TrimSpace(gender); gender == "" {
		gender = p.Gender
	}

	type slot struct {
		preview domain.Preview
		ok      bool
	}
	slots := make([]slot, count)
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < count; i++ {
		g.Go(func() error {
			view := garment.ViewForIndex(i)
			pair := garment.BuildPrompts(p.RawTags, category, view, gender)
			img, err := s.generator.Generate(gctx, imagegen.Request{
				Prompt:         pair.Positive,
				NegativePrompt: pair.Negative,
				GuidanceScale:  s.guidanceScale,
				RequestID:      fmt.Sprintf("%s/%d", id, i),
			})
			if err != nil {
				s.logger.Warn().Err(err).Str("product_id", id).Int("slot", i).Msg("preview generation failed, skipping slot")
				return nil
			}
			key, err := s.store.Write(gctx, fmt.Sprintf("%s/preview_%d.png", id, i), img.Data)
			if err != nil {
				s.logger.Warn().Err(err).Str("product_id", id).Int("slot", i).Msg("preview write failed, skipping slot")
				return nil
			}
			slots[i] = slot{preview: domain.Preview{Index: i, View: view, StorageKey: key}, ok: true}
			return nil
		})
	}
	_ = g.Wait()

	previews := make([]domain.Preview, 0, count)
	for _, sl := range slots {
		if sl.ok {
			previews = append(previews, sl.preview)
		}
	}

	err := s.sessions.Update(id, func(p *domain.Product) error {
		p.Category = category
		p.CategorySource = source
		p.Gender = gender
		p.Previews = previews
		p.SelectedPreview = -1
		p.FinalKey = ""
		return nil
	})
	if err != nil {
		return domain.Product{}, err
	}

	s.logger.Info().
		Str("product_id", id).
		Int("requested", count).
		Int("generated", len(previews)).
		Msg("previews generated")

	updated, _ := s.sessions.Get(id)
	return updated, nil
}

// SelectPreview marks one generated preview as the base model for try-on.
func (s *Service) SelectPreview(ctx context.Context, id string, index int) (domain.Product, error) {
	err := s.sessions.Update(id, func(p *domain.Product) error {
		if index < 0 || index >= len(p.Previews) {
			return fmt.Errorf("preview %d: %w", index, domain.ErrNotFound)
		}
		p.SelectedPreview = index
		return nil
	})
	if err != nil {
		return domain.Product{}, err
	}
	updated, _ := s.sessions.Get(id)
	return updated, nil
}

// RunTryOn composites the uploaded garment onto the selected base model.
// The category gate runs here as well as in the handler so the invariant
// holds no matter how the service is driven.
func (s *Service) RunTryOn(ctx context.Context, id string, steps int) (domain.Product, error) {
	p, ok := s.sessions.Get(id)
	if !ok {
		return domain.Product{}, domain.ErrNotFound
	}
	if !p.TryOnSupported() {
		return domain.Product{}, fmt.Errorf("%s: %w", p.Category, domain.ErrUnsupportedCategory)
	}
	if p.SelectedPreview < 0 || p.SelectedPreview >= len(p.Previews) {
		return domain.Product{}, domain.ErrNoModelSelected
	}

	person, err := s.store.Read(ctx, p.Previews[p.SelectedPreview].StorageKey)
	if err != nil {
		return domain.Product{}, fmt.Errorf("studio: read base model: %w", err)
	}
	original, err := s.store.Read(ctx, p.StorageKey)
	if err != nil {
		return domain.Product{}, fmt.Errorf("studio: read product: %w", err)
	}
	cleanGarment, err := imaging.FitGarment(original, imaging.MaxGarmentDim)
	if err != nil {
		return domain.Product{}, fmt.Errorf("%w: %v", domain.ErrInvalidImage, err)
	}

	if steps <= 0 {
		steps = s.denoiseSteps
	}
	res, err := s.composer.Compose(ctx, tryon.ComposeRequest{
		Person:             person,
		Garment:            cleanGarment,
		GarmentDescription: garment.Describe(p.RawTags),
		Category:           string(p.Category),
		AutoMask:           true,
		AutoCrop:           true,
		DenoiseSteps:       steps,
		Seed:               -1,
		RequestID:          id,
	})
	if err != nil {
		s.logger.Error().Err(err).Str("product_id", id).Msg("try-on failed")
		return domain.Product{}, fmt.Errorf("%w: %v", domain.ErrProviderFailure, err)
	}

	key, err := s.store.Write(ctx, fmt.Sprintf("%s/final_tryon.png", id), res.Data)
	if err != nil {
		return domain.Product{}, fmt.Errorf("studio: store final image: %w", err)
	}
	if err := s.sessions.Update(id, func(p *domain.Product) error {
		p.FinalKey = key
		return nil
	}); err != nil {
		return domain.Product{}, err
	}

	s.logger.Info().Str("product_id", id).Str("category", string(p.Category)).Msg("try-on composited")
	updated, _ := s.sessions.Get(id)
	return updated, nil
}

// Product returns the current session snapshot.
func (s *Service) Product(ctx context.Context, id string) (domain.Product, error) {
	p, ok := s.sessions.Get(id)
	if !ok {
		return domain.Product{}, domain.ErrNotFound
	}
	return p, nil
}

// Asset streams a stored session artifact.
func (s *Service) Asset(ctx context.Context, key string) ([]byte, string, error) {
	data, err := s.store.Read(ctx, key)
	if err != nil {
		return nil, "", err
	}
	return data, http.DetectContentType(data), nil
}

// imageExtension sniffs the upload and restricts it to the formats the
// original intake accepted.
func imageExtension(data []byte) (string, error) {
	switch http.DetectContentType(data) {
	case "image/png":
		return ".png", nil
	case "image/jpeg":
		return ".jpg", nil
	}
	return "", domain.ErrInvalidImage
}
