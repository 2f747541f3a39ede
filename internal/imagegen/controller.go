package imagegen

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"nano-banana-studio/internal/notify"
)

var (
	ErrEmptyPrompt = errors.New("prompt is empty")
	ErrInProgress  = errors.New("image generation already in progress")
	ErrNotReady    = errors.New("no previous prompt to regenerate")
	ErrCanceled    = errors.New("image generation canceled")
)

type Status string

const (
	StatusIdle    Status = "idle"
	StatusLoading Status = "loading"
	StatusReady   Status = "ready"
	StatusFailed  Status = "failed"
)

type GeneratedImage struct {
	URL      string `json:"url"`
	Prompt   string `json:"prompt"`
	Seed     int64  `json:"seed"`
	Loaded   bool   `json:"loaded"`
	MimeType string `json:"mime_type,omitempty"`
	Width    int    `json:"width,omitempty"`
	Height   int    `json:"height,omitempty"`
	Data     []byte `json:"-"`
}

type State struct {
	Status Status          `json:"status"`
	Token  uint64          `json:"token"`
	Image  *GeneratedImage `json:"image,omitempty"`
	Error  string          `json:"error,omitempty"`
}

type Options struct {
	Backend  Backend
	Prober   ImageProber
	Seeder   *Seeder
	Notifier notify.Sink
	Logger   *slog.Logger
	Timeout  time.Duration
}

type request struct {
	token  uint64
	cancel context.CancelFunc
	done   chan struct{}
}

// Controller drives one idle → loading → ready/failed cycle at a time.
type Controller struct {
	backend  Backend
	prober   ImageProber
	seeder   *Seeder
	notifier notify.Sink
	logger   *slog.Logger
	timeout  time.Duration

	mu         sync.Mutex
	status     Status
	image      *GeneratedImage
	lastErr    error
	lastPrompt string
	token      uint64
	inflight   *request
	settled    chan struct{}
}

func NewController(opts Options) *Controller {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	notifier := opts.Notifier
	if notifier == nil {
		notifier = notify.Discard
	}
	seeder := opts.Seeder
	if seeder == nil {
		seeder = NewSeeder()
	}
	backend := opts.Backend
	if backend == nil {
		backend = NewPollinations(PollinationsOptions{})
	}
	prober := opts.Prober
	if prober == nil {
		prober = NewProber(ProberOptions{})
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 180 * time.Second
	}

	settled := make(chan struct{})
	close(settled)

	return &Controller{
		backend:  backend,
		prober:   prober,
		seeder:   seeder,
		notifier: notifier,
		logger:   logger,
		timeout:  timeout,
		status:   StatusIdle,
		settled:  settled,
	}
}

// Generate starts loading an image for prompt and returns the request token.
// The load continues after ctx is done; use Cancel to abort it.
func (c *Controller) Generate(ctx context.Context, prompt string) (uint64, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return 0, ErrEmptyPrompt
	}

	c.mu.Lock()
	if c.status == StatusLoading {
		c.mu.Unlock()
		return 0, ErrInProgress
	}

	c.token++
	token := c.token
	seed := c.seeder.Next()

	reqCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
	req := &request{token: token, cancel: cancel, done: make(chan struct{})}

	c.status = StatusLoading
	c.image = nil
	c.lastErr = nil
	c.lastPrompt = prompt
	c.inflight = req
	c.settled = req.done
	c.mu.Unlock()

	c.logger.Info("image generation started", "token", token, "seed", seed, "prompt_len", len(prompt))

	go c.run(reqCtx, req, prompt, seed)
	return token, nil
}

// Regenerate repeats the last prompt with a fresh seed.
func (c *Controller) Regenerate(ctx context.Context) (uint64, error) {
	c.mu.Lock()
	prompt := c.lastPrompt
	c.mu.Unlock()

	if prompt == "" {
		return 0, ErrNotReady
	}
	return c.Generate(ctx, prompt)
}

// Cancel aborts the in-flight load, if any, and returns the controller to idle.
func (c *Controller) Cancel() bool {
	c.mu.Lock()
	req := c.inflight
	if req == nil {
		c.mu.Unlock()
		return false
	}
	c.inflight = nil
	c.token++
	c.status = StatusIdle
	c.image = nil
	c.lastErr = ErrCanceled
	c.mu.Unlock()

	req.cancel()
	close(req.done)
	c.logger.Info("image generation canceled", "token", req.token)
	return true
}

func (c *Controller) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Wait blocks until the current request settles or ctx is done.
func (c *Controller) Wait(ctx context.Context) (State, error) {
	c.mu.Lock()
	settled := c.settled
	c.mu.Unlock()

	select {
	case <-settled:
		return c.Snapshot(), nil
	case <-ctx.Done():
		return c.Snapshot(), ctx.Err()
	}
}

func (c *Controller) run(ctx context.Context, req *request, prompt string, seed int64) {
	defer req.cancel()

	imageURL, err := c.backend.ImageURL(ctx, prompt, seed)
	if err != nil {
		c.finish(ctx, req, nil, err)
		return
	}

	pending := &GeneratedImage{URL: imageURL, Prompt: prompt, Seed: seed}
	if !c.publishPending(req, pending) {
		return
	}

	img, err := c.prober.Probe(ctx, imageURL)
	if err != nil {
		c.finish(ctx, req, nil, err)
		return
	}

	loaded := *pending
	loaded.Loaded = true
	loaded.MimeType = img.MimeType
	loaded.Width = img.Width
	loaded.Height = img.Height
	loaded.Data = img.Data
	c.finish(ctx, req, &loaded, nil)
}

func (c *Controller) publishPending(req *request, img *GeneratedImage) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.inflight != req {
		return false
	}
	c.image = img
	return true
}

func (c *Controller) finish(ctx context.Context, req *request, img *GeneratedImage, err error) {
	c.mu.Lock()
	if c.inflight != req {
		c.mu.Unlock()
		c.logger.Debug("stale image result discarded", "token", req.token)
		return
	}

	c.inflight = nil
	if err != nil {
		c.status = StatusFailed
		c.lastErr = err
		if c.image != nil {
			c.image.Loaded = false
		}
	} else {
		c.status = StatusReady
		c.image = img
		c.lastErr = nil
	}
	c.mu.Unlock()

	// Waiters wake only after the toast is recorded.
	defer close(req.done)

	notifyCtx := context.WithoutCancel(ctx)
	if err != nil {
		c.logger.Error("image generation failed", "token", req.token, "err", err)
		c.notifier.Notify(notifyCtx, notify.Error("Generation failed", "Please try again."))
		return
	}

	c.logger.Info("image generation finished", "token", req.token, "mime", img.MimeType, "bytes", len(img.Data))
	c.notifier.Notify(notifyCtx, notify.Success("Image generated!", "Your AI image is ready."))
}

func (c *Controller) snapshotLocked() State {
	st := State{Status: c.status, Token: c.token}
	if c.image != nil {
		img := *c.image
		st.Image = &img
	}
	if c.lastErr != nil {
		st.Error = c.lastErr.Error()
	}
	return st
}
