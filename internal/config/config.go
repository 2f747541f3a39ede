package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	BackendPollinations = "pollinations"
	BackendGemini       = "gemini"
)

type Config struct {
	LogLevel string
	Debug    bool

	WebAddr     string
	PreferIPv4  bool
	DownloadDir string

	HTTPTimeout    time.Duration
	RequestTimeout time.Duration
	SessionTTL     time.Duration
	MaxConcurrent  int

	ImageBackend string
	ImageBaseURL string
	ImageWidth   int
	ImageHeight  int

	TelegramToken    string
	GeminiAPIKey     string
	GeminiBaseURL    string
	GeminiAPIVersion string
}

// Load reads the environment. Tokens are validated by the binaries that need them.
func Load() (Config, error) {
	cfg := Config{
		LogLevel:         strings.ToLower(strings.TrimSpace(getEnv("LOG_LEVEL", "info"))),
		Debug:            getEnvBool("DEBUG", false),
		WebAddr:          strings.TrimSpace(getEnv("WEB_ADDR", ":8080")),
		PreferIPv4:       getEnvBool("PREFER_IPV4", true),
		DownloadDir:      strings.TrimSpace(getEnv("DOWNLOAD_DIR", "downloads")),
		HTTPTimeout:      time.Duration(getEnvInt("HTTP_TIMEOUT_SECONDS", 180)) * time.Second,
		RequestTimeout:   time.Duration(getEnvInt("REQUEST_TIMEOUT_SECONDS", 180)) * time.Second,
		SessionTTL:       time.Duration(getEnvInt("SESSION_TTL_MINUTES", 60)) * time.Minute,
		MaxConcurrent:    getEnvInt("MAX_CONCURRENT", 4),
		ImageBackend:     strings.ToLower(strings.TrimSpace(getEnv("IMAGE_BACKEND", BackendPollinations))),
		ImageBaseURL:     strings.TrimSpace(getEnv("IMAGE_BASE_URL", "https://image.pollinations.ai")),
		ImageWidth:       getEnvInt("IMAGE_WIDTH", 1024),
		ImageHeight:      getEnvInt("IMAGE_HEIGHT", 1024),
		TelegramToken:    strings.TrimSpace(os.Getenv("TELEGRAM_BOT_TOKEN")),
		GeminiAPIKey:     strings.TrimSpace(os.Getenv("GEMINI_API_KEY")),
		GeminiBaseURL:    strings.TrimSpace(getEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com")),
		GeminiAPIVersion: strings.TrimSpace(getEnv("GEMINI_API_VERSION", "v1beta")),
	}

	switch cfg.ImageBackend {
	case BackendPollinations:
	case BackendGemini:
		if cfg.GeminiAPIKey == "" {
			return Config{}, errors.New("GEMINI_API_KEY is required for IMAGE_BACKEND=gemini")
		}
	default:
		return Config{}, errors.New("IMAGE_BACKEND must be pollinations or gemini")
	}

	if cfg.MaxConcurrent < 1 {
		cfg.MaxConcurrent = 1
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 180 * time.Second
	}
	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = 180 * time.Second
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = time.Hour
	}
	if cfg.ImageWidth <= 0 {
		cfg.ImageWidth = 1024
	}
	if cfg.ImageHeight <= 0 {
		cfg.ImageHeight = 1024
	}

	return cfg, nil
}

func (c Config) RequireTelegram() error {
	if c.TelegramToken == "" {
		return errors.New("TELEGRAM_BOT_TOKEN is required")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}
