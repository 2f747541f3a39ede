package imagegen

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"strings"

	"nano-banana-studio/internal/dataurl"
)

const defaultMaxImageBytes = 25 << 20

type Image struct {
	Data     []byte
	MimeType string
	Width    int
	Height   int
}

type ImageProber interface {
	Probe(ctx context.Context, rawURL string) (Image, error)
}

type ProberOptions struct {
	HTTPClient *http.Client
	MaxBytes   int64
}

// Prober loads an image URL and checks that the payload decodes, the way an
// off-screen <img> preload would.
type Prober struct {
	httpClient *http.Client
	maxBytes   int64
}

func NewProber(opts ProberOptions) *Prober {
	maxBytes := opts.MaxBytes
	if maxBytes <= 0 {
		maxBytes = defaultMaxImageBytes
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Prober{httpClient: httpClient, maxBytes: maxBytes}
}

func (p *Prober) Probe(ctx context.Context, rawURL string) (Image, error) {
	if dataurl.Is(rawURL) {
		mimeType, data, err := dataurl.Parse(rawURL)
		if err != nil {
			return Image{}, err
		}
		return decodeImage(data, mimeType)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return Image{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("accept", "image/*")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return Image{}, fmt.Errorf("request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return Image{}, fmt.Errorf("image host %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, p.maxBytes+1))
	if err != nil {
		return Image{}, fmt.Errorf("read response: %w", err)
	}
	if int64(len(data)) > p.maxBytes {
		return Image{}, fmt.Errorf("image exceeds %d bytes", p.maxBytes)
	}

	return decodeImage(data, resp.Header.Get("content-type"))
}

func decodeImage(data []byte, declared string) (Image, error) {
	if len(data) == 0 {
		return Image{}, errors.New("empty image body")
	}

	mimeType := normalizeMime(declared)
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = normalizeMime(http.DetectContentType(data))
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	switch {
	case err == nil:
		return Image{Data: data, MimeType: mimeType, Width: cfg.Width, Height: cfg.Height}, nil
	case errors.Is(err, image.ErrFormat) && strings.HasPrefix(mimeType, "image/"):
		// Formats without a registered decoder (webp, avif) still count as loaded.
		return Image{Data: data, MimeType: mimeType}, nil
	default:
		return Image{}, fmt.Errorf("decode image: %w", err)
	}
}

func normalizeMime(value string) string {
	value = strings.TrimSpace(value)
	if strings.Contains(value, ";") {
		value = strings.TrimSpace(strings.SplitN(value, ";", 2)[0])
	}
	return strings.ToLower(value)
}
