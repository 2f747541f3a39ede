package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
)

const modelImage = "gemini-2.5-flash-image"

const systemInstruction = `You are an advertising art director. Produce a single finished marketing image for the brief.
Never add watermarks. Keep any product name spelled exactly as written in the brief.`

type Options struct {
	APIKey      string
	BaseURL     string
	APIVersion  string
	Model       string
	AspectRatio string
	HTTPClient  *http.Client
	Logger      *slog.Logger
}

type Client struct {
	apiKey      string
	baseURL     string
	apiVersion  string
	model       string
	aspectRatio string
	httpClient  *http.Client
	logger      *slog.Logger
}

func New(opts Options) *Client {
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://generativelanguage.googleapis.com"
	}

	apiVersion := strings.TrimSpace(opts.APIVersion)
	if apiVersion == "" {
		apiVersion = "v1beta"
	}

	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = modelImage
	}

	aspectRatio := strings.TrimSpace(opts.AspectRatio)
	if aspectRatio == "" {
		aspectRatio = "1:1"
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Client{
		apiKey:      opts.APIKey,
		baseURL:     baseURL,
		apiVersion:  apiVersion,
		model:       model,
		aspectRatio: aspectRatio,
		httpClient:  opts.HTTPClient,
		logger:      logger,
	}
}

// GenerateImage returns the generated images as data URLs.
func (c *Client) GenerateImage(ctx context.Context, prompt string) ([]string, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return nil, errors.New("prompt is empty")
	}

	req := generateContentRequest{
		Contents: []content{
			{Role: "user", Parts: []part{{Text: fmt.Sprintf("Generate a high quality image: %s", prompt)}}},
		},
		SystemInstruction: &content{Role: "user", Parts: []part{{Text: systemInstruction}}},
		GenerationConfig: generationConfig{
			ResponseModalities: []string{"IMAGE"},
			ImageConfig:        &imageConfig{AspectRatio: c.aspectRatio},
		},
	}

	images, err := c.generateContent(ctx, req)
	if err != nil && req.GenerationConfig.ImageConfig != nil {
		if isUnknownFieldError(err, "imageConfig") {
			c.logger.Warn("gemini rejected imageConfig, retrying without it", "model", c.model)
			req.GenerationConfig.ImageConfig = nil
			images, err = c.generateContent(ctx, req)
		}
	}
	if err != nil {
		return nil, err
	}
	return images, nil
}

func (c *Client) generateContent(ctx context.Context, payload generateContentRequest) ([]string, error) {
	if c.httpClient == nil {
		return nil, errors.New("http client is nil")
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/%s/models/%s:generateContent", c.baseURL, c.apiVersion, c.model)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("content-type", "application/json")
	httpReq.Header.Set("x-goog-api-key", c.apiKey)

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request: %w", err)
	}
	defer httpResp.Body.Close()

	rawBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if httpResp.StatusCode >= 400 {
		return nil, fmt.Errorf("gemini API %s: %s", httpResp.Status, strings.TrimSpace(string(rawBody)))
	}

	var decoded generateContentResponse
	if err := json.Unmarshal(rawBody, &decoded); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	text, images := extractParts(decoded)
	if len(images) == 0 {
		if text = strings.TrimSpace(text); text != "" {
			return nil, fmt.Errorf("gemini returned text instead of an image: %s", text)
		}
		return nil, errors.New("gemini returned no image")
	}
	return images, nil
}

func extractParts(resp generateContentResponse) (string, []string) {
	if len(resp.Candidates) == 0 {
		return "", nil
	}

	var textBuilder strings.Builder
	var images []string

	for _, p := range resp.Candidates[0].Content.Parts {
		if p.Text != "" {
			textBuilder.WriteString(p.Text)
		}
		if p.InlineData != nil && p.InlineData.Data != "" && p.InlineData.MimeType != "" {
			images = append(images, "data:"+p.InlineData.MimeType+";base64,"+p.InlineData.Data)
		}
	}

	return textBuilder.String(), images
}

type generateContentRequest struct {
	Contents          []content        `json:"contents"`
	SystemInstruction *content         `json:"systemInstruction,omitempty"`
	GenerationConfig  generationConfig `json:"generationConfig,omitempty"`
}

type generationConfig struct {
	Temperature        float64      `json:"temperature,omitempty"`
	ResponseModalities []string     `json:"responseModalities,omitempty"`
	ImageConfig        *imageConfig `json:"imageConfig,omitempty"`
}

type imageConfig struct {
	AspectRatio string `json:"aspectRatio,omitempty"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text       string `json:"text,omitempty"`
	InlineData *blob  `json:"inlineData,omitempty"`
}

type blob struct {
	Data     string `json:"data"`
	MimeType string `json:"mimeType"`
}

type generateContentResponse struct {
	Candidates []candidate `json:"candidates"`
}

type candidate struct {
	Content content `json:"content"`
}

func isUnknownFieldError(err error, field string) bool {
	message := err.Error()
	return strings.Contains(message, "Unknown name") && strings.Contains(message, field)
}
