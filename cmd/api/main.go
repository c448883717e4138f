package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"sellerstudio/internal/domain"
	"sellerstudio/internal/http/handlers"
	httpapi "sellerstudio/internal/http/httpapi"
	"sellerstudio/internal/infra"
	"sellerstudio/internal/providers/imagegen"
	"sellerstudio/internal/providers/tryon"
	"sellerstudio/internal/providers/vision"
	"sellerstudio/internal/session"
	"sellerstudio/internal/storage"
	"sellerstudio/internal/studio"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	store, err := storage.NewFileStore(cfg.StoragePath)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open asset store")
	}
	sessions := session.NewStore(session.Options{
		TTL: cfg.SessionTTL,
		OnEvict: func(p domain.Product) {
			if err := store.RemovePrefix(context.Background(), p.ID); err != nil {
				logger.Warn().Err(err).Str("product_id", p.ID).Msg("failed to remove expired session assets")
			}
		},
	})

	tagger, err := vision.NewClient(vision.Options{
		APIKey:         cfg.HFAPIToken,
		BaseURL:        cfg.VisionBaseURL,
		Model:          cfg.VisionModel,
		CategoryModel:  cfg.CategoryModel,
		Logger:         &logger,
		RequestTimeout: cfg.ProviderTimeout,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build vision client")
	}
	generator, err := imagegen.NewClient(imagegen.Options{
		APIKey:         cfg.HFAPIToken,
		BaseURL:        cfg.ImageGenBaseURL,
		GuidanceScale:  cfg.GuidanceScale,
		Logger:         &logger,
		RequestTimeout: cfg.ProviderTimeout,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build image generation client")
	}
	composer, err := tryon.NewClient(tryon.Options{
		APIKey:         cfg.HFAPIToken,
		BaseURL:        cfg.TryOnBaseURL,
		Logger:         &logger,
		RequestTimeout: cfg.ProviderTimeout,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build try-on client")
	}

	svc, err := studio.NewService(studio.Options{
		Logger:        &logger,
		Store:         store,
		Sessions:      sessions,
		Tagger:        tagger,
		Generator:     generator,
		Composer:      composer,
		PreviewCount:  cfg.PreviewCount,
		GuidanceScale: cfg.GuidanceScale,
		DenoiseSteps:  cfg.DenoiseSteps,
		DefaultGender: cfg.DefaultGender,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build studio service")
	}

	app := handlers.NewApp(logger, svc)
	router := httpapi.NewRouter(app, httpapi.Options{
		Logger:          logger,
		AllowedOrigins:  cfg.AllowedOrigins,
		RateLimitPerMin: cfg.RateLimitPerMin,
	})
	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().Msgf("API listening on :%s", cfg.Port)
		if err := server.Start(); err != nil {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	logger.Info().Msg("server stopped")
}
