package infra

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv string
	Port   string

	// Hugging Face hosted models back every remote stage of the pipeline.
	HFAPIToken      string
	VisionBaseURL   string
	VisionModel     string
	CategoryModel   string
	ImageGenBaseURL string
	TryOnBaseURL    string

	StoragePath    string
	AllowedOrigins []string

	PreviewCount  int
	GuidanceScale float64
	DenoiseSteps  int
	DefaultGender string

	SessionTTL      time.Duration
	ProviderTimeout time.Duration

	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
	RateLimitPerMin  int
}

// LoadConfig loads configuration from environment variables and applies
// defaults where needed. Only the Hugging Face token is mandatory; every
// endpoint has a hosted default matching the public spaces the service was
// built against.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv:           getEnv("APP_ENV", "development"),
		Port:             getEnv("PORT", "8080"),
		HFAPIToken:       os.Getenv("HF_API_TOKEN"),
		VisionBaseURL:    getEnv("VISION_BASE_URL", "https://api-inference.huggingface.co"),
		VisionModel:      getEnv("VISION_MODEL", "google/vit-base-patch16-224"),
		CategoryModel:    getEnv("CATEGORY_MODEL", "Salesforce/blip-vqa-base"),
		ImageGenBaseURL:  getEnv("IMAGEGEN_BASE_URL", "https://stabilityai-stable-diffusion.hf.space"),
		TryOnBaseURL:     getEnv("TRYON_BASE_URL", "https://jallenjia-change-clothes-ai.hf.space"),
		StoragePath:      getEnv("STORAGE_PATH", "./temp"),
		AllowedOrigins:   splitAndTrim(getEnv("ALLOWED_ORIGINS", "http://localhost:3000")),
		PreviewCount:     getEnvInt("PREVIEW_COUNT", 3),
		GuidanceScale:    getEnvFloat("GUIDANCE_SCALE", 9.0),
		DenoiseSteps:     getEnvInt("DENOISE_STEPS", 40),
		DefaultGender:    getEnv("DEFAULT_GENDER", "male"),
		SessionTTL:       time.Minute * time.Duration(getEnvInt("SESSION_TTL_MINUTES", 120)),
		ProviderTimeout:  time.Second * time.Duration(getEnvInt("PROVIDER_TIMEOUT_SECONDS", 120)),
		HTTPReadTimeout:  time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout: time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 180)),
		HTTPIdleTimeout:  time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		RateLimitPerMin:  getEnvInt("RATE_LIMIT_PER_MINUTE", 30),
	}

	if cfg.HFAPIToken == "" {
		return nil, fmt.Errorf("HF_API_TOKEN is required")
	}
	if cfg.PreviewCount < 1 {
		cfg.PreviewCount = 1
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func splitAndTrim(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
