package download

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"

	"nano-banana-studio/internal/dataurl"
	"nano-banana-studio/internal/notify"
)

var (
	ErrNoImage       = errors.New("no image to download")
	ErrUnknownObject = errors.New("blob reference not found")
)

const defaultMaxBytes = 25 << 20

type Options struct {
	HTTPClient *http.Client
	Objects    *ObjectStore
	Notifier   notify.Sink
	Logger     *slog.Logger
	MaxBytes   int64
}

type Target struct {
	Saver  Saver
	Opener Opener
	// Notifier overrides the helper's sink for this download.
	Notifier notify.Sink
}

type Result struct {
	FileName  string `json:"file_name,omitempty"`
	SavedTo   string `json:"saved_to,omitempty"`
	MimeType  string `json:"mime_type,omitempty"`
	Size      int    `json:"size"`
	Fetched   bool   `json:"fetched"`
	FellBack  bool   `json:"fell_back"`
	OpenedURL string `json:"opened_url,omitempty"`
}

type Helper struct {
	httpClient *http.Client
	objects    *ObjectStore
	notifier   notify.Sink
	logger     *slog.Logger
	maxBytes   int64
	now        func() time.Time
}

func New(opts Options) *Helper {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	objects := opts.Objects
	if objects == nil {
		objects = NewObjectStore()
	}
	notifier := opts.Notifier
	if notifier == nil {
		notifier = notify.Discard
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	maxBytes := opts.MaxBytes
	if maxBytes <= 0 {
		maxBytes = defaultMaxBytes
	}

	return &Helper{
		httpClient: httpClient,
		objects:    objects,
		notifier:   notifier,
		logger:     logger,
		maxBytes:   maxBytes,
		now:        time.Now,
	}
}

func (h *Helper) Objects() *ObjectStore {
	return h.objects
}

// Download saves the image at rawURL. data: and blob: sources are saved without
// touching the network. A failed fetch falls back to opening rawURL and is not an error.
func (h *Helper) Download(ctx context.Context, rawURL, productName string, target Target) (Result, error) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return Result{}, ErrNoImage
	}
	if target.Saver == nil {
		return Result{}, errors.New("saver is nil")
	}
	if target.Notifier == nil {
		target.Notifier = h.notifier
	}

	switch {
	case dataurl.Is(rawURL):
		mimeType, data, err := dataurl.Parse(rawURL)
		if err != nil {
			target.Notifier.Notify(ctx, notify.Error("Download failed", "The image data is invalid."))
			return Result{}, fmt.Errorf("parse data url: %w", err)
		}
		return h.saveLocal(ctx, productName, data, mimeType, target)

	case isBlobURL(rawURL):
		data, mimeType, ok := h.objects.Get(rawURL)
		if !ok {
			target.Notifier.Notify(ctx, notify.Error("Download failed", "The image is no longer available. Please regenerate it."))
			return Result{}, ErrUnknownObject
		}
		return h.saveLocal(ctx, productName, data, mimeType, target)
	}

	data, mimeType, err := h.fetch(ctx, rawURL)
	if err != nil {
		h.logger.Warn("image fetch failed, opening original url", "url", rawURL, "err", err)
		return h.fallback(ctx, rawURL, target), nil
	}

	ref := h.objects.Create(data, mimeType)
	res, err := h.saveObject(ctx, ref, productName, target)
	h.objects.Release(ref)
	if err != nil {
		h.logger.Warn("image save failed, opening original url", "url", rawURL, "err", err)
		return h.fallback(ctx, rawURL, target), nil
	}
	res.Fetched = true

	if target.Opener != nil {
		if err := target.Opener.Open(ctx, rawURL); err != nil {
			h.logger.Warn("preview open failed", "url", rawURL, "err", err)
		} else {
			res.OpenedURL = rawURL
		}
	}

	target.Notifier.Notify(ctx, notify.Success("Download started!", "Your image is being downloaded."))
	return res, nil
}

func (h *Helper) saveLocal(ctx context.Context, productName string, data []byte, mimeType string, target Target) (Result, error) {
	name := FileName(productName, mimeType, h.now())
	savedTo, err := target.Saver.Save(ctx, name, data, mimeType)
	if err != nil {
		target.Notifier.Notify(ctx, notify.Error("Download failed", "Could not save the image."))
		return Result{}, fmt.Errorf("save image: %w", err)
	}

	target.Notifier.Notify(ctx, notify.Success("Download started!", "Your image is being downloaded."))
	return Result{FileName: name, SavedTo: savedTo, MimeType: mimeType, Size: len(data)}, nil
}

func (h *Helper) saveObject(ctx context.Context, ref, productName string, target Target) (Result, error) {
	data, mimeType, ok := h.objects.Get(ref)
	if !ok {
		return Result{}, ErrUnknownObject
	}

	name := FileName(productName, mimeType, h.now())
	savedTo, err := target.Saver.Save(ctx, name, data, mimeType)
	if err != nil {
		return Result{}, err
	}
	return Result{FileName: name, SavedTo: savedTo, MimeType: mimeType, Size: len(data)}, nil
}

func (h *Helper) fallback(ctx context.Context, rawURL string, target Target) Result {
	res := Result{FellBack: true}
	if target.Opener != nil {
		if err := target.Opener.Open(ctx, rawURL); err != nil {
			h.logger.Error("fallback open failed", "url", rawURL, "err", err)
		} else {
			res.OpenedURL = rawURL
		}
	}
	target.Notifier.Notify(ctx, notify.Warning("Opened image instead", "Direct download was blocked. Save the opened image manually."))
	return res
}

func (h *Helper) fetch(ctx context.Context, rawURL string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("create request: %w", err)
	}

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, "", fmt.Errorf("image download %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, h.maxBytes+1))
	if err != nil {
		return nil, "", fmt.Errorf("read response: %w", err)
	}
	if len(data) == 0 {
		return nil, "", errors.New("image download: empty body")
	}
	if int64(len(data)) > h.maxBytes {
		return nil, "", fmt.Errorf("image exceeds %d bytes", h.maxBytes)
	}

	mimeType := strings.TrimSpace(resp.Header.Get("content-type"))
	if strings.Contains(mimeType, ";") {
		mimeType = strings.TrimSpace(strings.SplitN(mimeType, ";", 2)[0])
	}
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = http.DetectContentType(data)
	}
	return data, mimeType, nil
}

var whitespaceRun = regexp.MustCompile(`\s+`)

var extensions = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// FileName builds "<product-slug>-<epoch-ms><ext>".
func FileName(productName, mimeType string, at time.Time) string {
	slug := strings.ToLower(whitespaceRun.ReplaceAllString(strings.TrimSpace(productName), "-"))
	slug = strings.Map(func(r rune) rune {
		if r == '/' || r == '\\' {
			return '-'
		}
		return r
	}, slug)
	if slug == "" {
		slug = "image"
	}

	ext, ok := extensions[strings.ToLower(strings.TrimSpace(mimeType))]
	if !ok {
		ext = ".png"
	}
	return fmt.Sprintf("%s-%d%s", slug, at.UnixMilli(), ext)
}
