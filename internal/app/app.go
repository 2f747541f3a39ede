package app

import (
	"io"
	"log/slog"
	"math"
	"net/http"
	"os"

	"nano-banana-studio/internal/config"
	"nano-banana-studio/internal/download"
	"nano-banana-studio/internal/gemini"
	"nano-banana-studio/internal/httpclient"
	"nano-banana-studio/internal/imagegen"
	"nano-banana-studio/internal/notify"
	"nano-banana-studio/internal/session"
)

// App holds the pieces every binary shares.
type App struct {
	Config     config.Config
	Logger     *slog.Logger
	HTTPClient *http.Client
	Backend    imagegen.Backend
	Prober     imagegen.ImageProber
	Sessions   *session.Store
	Downloads  *download.Helper
}

func New(cfg config.Config, logger *slog.Logger) *App {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	httpClient := httpclient.New(httpclient.Options{
		PreferIPv4: cfg.PreferIPv4,
		Timeout:    cfg.HTTPTimeout,
	})

	a := &App{
		Config:     cfg,
		Logger:     logger,
		HTTPClient: httpClient,
		Backend:    NewBackend(cfg, httpClient, logger),
		Prober:     imagegen.NewProber(imagegen.ProberOptions{HTTPClient: httpClient}),
	}

	logSink := notify.NewLogSink(logger)
	a.Sessions = session.NewStore(session.Options{
		TTL:           cfg.SessionTTL,
		NewController: a.NewController,
		Notifier:      logSink,
	})
	a.Downloads = download.New(download.Options{
		HTTPClient: httpClient,
		Notifier:   logSink,
		Logger:     logger,
	})

	return a
}

// NewController builds an image controller that reports to sink.
func (a *App) NewController(sink notify.Sink) *imagegen.Controller {
	return imagegen.NewController(imagegen.Options{
		Backend:  a.Backend,
		Prober:   a.Prober,
		Notifier: sink,
		Logger:   a.Logger,
		Timeout:  a.Config.RequestTimeout,
	})
}

func NewBackend(cfg config.Config, httpClient *http.Client, logger *slog.Logger) imagegen.Backend {
	if cfg.ImageBackend == config.BackendGemini {
		return imagegen.NewGeminiBackend(gemini.New(gemini.Options{
			APIKey:      cfg.GeminiAPIKey,
			BaseURL:     cfg.GeminiBaseURL,
			APIVersion:  cfg.GeminiAPIVersion,
			AspectRatio: aspectRatioFor(cfg.ImageWidth, cfg.ImageHeight),
			HTTPClient:  httpClient,
			Logger:      logger,
		}))
	}

	return imagegen.NewPollinations(imagegen.PollinationsOptions{
		BaseURL: cfg.ImageBaseURL,
		Width:   cfg.ImageWidth,
		Height:  cfg.ImageHeight,
	})
}

var geminiRatios = []struct {
	name string
	w, h float64
}{
	{"1:1", 1, 1},
	{"16:9", 16, 9},
	{"9:16", 9, 16},
	{"4:3", 4, 3},
	{"3:4", 3, 4},
	{"21:9", 21, 9},
}

// aspectRatioFor maps the configured canvas onto the closest ratio Gemini accepts.
func aspectRatioFor(width, height int) string {
	if width <= 0 || height <= 0 {
		return "1:1"
	}

	target := float64(width) / float64(height)
	best := geminiRatios[0].name
	bestDiff := math.MaxFloat64
	for _, r := range geminiRatios {
		if diff := math.Abs(target - r.w/r.h); diff < bestDiff {
			best, bestDiff = r.name, diff
		}
	}
	return best
}

func NewLogger(cfg config.Config) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
}
