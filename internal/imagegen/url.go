package imagegen

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"
)

const (
	DefaultBaseURL = "https://image.pollinations.ai"
	DefaultWidth   = 1024
	DefaultHeight  = 1024
)

// Backend resolves a prompt into a loadable image URL.
type Backend interface {
	ImageURL(ctx context.Context, prompt string, seed int64) (string, error)
}

type PollinationsOptions struct {
	BaseURL string
	Width   int
	Height  int
}

type Pollinations struct {
	baseURL string
	width   int
	height  int
}

func NewPollinations(opts PollinationsOptions) *Pollinations {
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	width := opts.Width
	if width <= 0 {
		width = DefaultWidth
	}
	height := opts.Height
	if height <= 0 {
		height = DefaultHeight
	}
	return &Pollinations{baseURL: baseURL, width: width, height: height}
}

func (p *Pollinations) ImageURL(_ context.Context, prompt string, seed int64) (string, error) {
	return BuildURL(p.baseURL, prompt, p.width, p.height, seed)
}

// BuildURL drops double quotes from the prompt and encodes it as a single path segment.
func BuildURL(baseURL, prompt string, width, height int, seed int64) (string, error) {
	clean := strings.ReplaceAll(prompt, `"`, "")
	if strings.TrimSpace(clean) == "" {
		return "", ErrEmptyPrompt
	}

	return fmt.Sprintf("%s/prompt/%s?width=%d&height=%d&nologo=true&seed=%d",
		strings.TrimRight(baseURL, "/"), encodeComponent(clean), width, height, seed), nil
}

// componentUnescaper restores the characters encodeURIComponent leaves alone.
var componentUnescaper = strings.NewReplacer(
	"+", "%20",
	"%21", "!",
	"%27", "'",
	"%28", "(",
	"%29", ")",
	"%2A", "*",
)

func encodeComponent(s string) string {
	return componentUnescaper.Replace(url.QueryEscape(s))
}

// Seeder hands out epoch-millisecond seeds that strictly increase, so two requests
// for the same prompt never share a seed.
type Seeder struct {
	mu   sync.Mutex
	last int64
	now  func() time.Time
}

func NewSeeder() *Seeder {
	return &Seeder{now: time.Now}
}

func (s *Seeder) Next() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now
	if now == nil {
		now = time.Now
	}
	seed := now().UnixMilli()
	if seed <= s.last {
		seed = s.last + 1
	}
	s.last = seed
	return seed
}

type ImageGenerator interface {
	GenerateImage(ctx context.Context, prompt string) ([]string, error)
}

// GeminiBackend asks a Gemini image model for the picture and hands back its data URL.
type GeminiBackend struct {
	gen ImageGenerator
}

func NewGeminiBackend(gen ImageGenerator) *GeminiBackend {
	return &GeminiBackend{gen: gen}
}

func (g *GeminiBackend) ImageURL(ctx context.Context, prompt string, _ int64) (string, error) {
	prompt = strings.TrimSpace(strings.ReplaceAll(prompt, `"`, ""))
	if prompt == "" {
		return "", ErrEmptyPrompt
	}
	images, err := g.gen.GenerateImage(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}
	if len(images) == 0 {
		return "", errors.New("gemini returned no image")
	}
	return images[0], nil
}
