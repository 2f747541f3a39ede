package main

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/png"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nano-banana-studio/internal/dataurl"
	"nano-banana-studio/internal/download"
	"nano-banana-studio/internal/imagegen"
	"nano-banana-studio/internal/notify"
	"nano-banana-studio/internal/prompt"
	"nano-banana-studio/internal/session"
)

type staticBackend string

func (b staticBackend) ImageURL(context.Context, string, int64) (string, error) {
	return string(b), nil
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 3, 3))))
	return buf.Bytes()
}

func newTestServer(t *testing.T) (*httptest.Server, *http.Client) {
	t.Helper()
	return newTestServerWithBackend(t, staticBackend(dataurl.Encode("image/png", pngBytes(t))))
}

func newTestServerWithBackend(t *testing.T, backend imagegen.Backend) (*httptest.Server, *http.Client) {
	t.Helper()

	s := &server{
		sessions: session.NewStore(session.Options{
			TTL: time.Minute,
			NewController: func(sink notify.Sink) *imagegen.Controller {
				return imagegen.NewController(imagegen.Options{Backend: backend, Notifier: sink, Timeout: 5 * time.Second})
			},
		}),
		downloads: download.New(download.Options{}),
		logSink:   notify.Discard,
		logger:    discardLogger(),
	}

	srv := httptest.NewServer(s.routes())
	t.Cleanup(srv.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return srv, &http.Client{Jar: jar}
}

func postJSON(t *testing.T, c *http.Client, url string, body any) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := c.Post(url, "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func TestServer_Options(t *testing.T) {
	srv, c := newTestServer(t)

	resp, err := c.Get(srv.URL + "/api/options")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	out := decode[optionsResponse](t, resp)
	assert.Len(t, out.AdTypes, 5)
	assert.Len(t, out.Industries, 4)
	assert.Len(t, out.ToneStyles, 4)
	assert.Equal(t, prompt.DefaultProductName, out.DefaultProductName)
}

func TestServer_SelectionPersistsPerSession(t *testing.T) {
	srv, c := newTestServer(t)

	resp := postJSON(t, c, srv.URL+"/api/selection", map[string]string{"ad_type": "banner-ad"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = postJSON(t, c, srv.URL+"/api/selection", map[string]string{"industry": "seo-sem"})
	sel := decode[prompt.Selection](t, resp)
	assert.Equal(t, "banner-ad", sel.AdType)
	assert.Equal(t, "seo-sem", sel.Industry)
	assert.Equal(t, prompt.DefaultProductName, sel.ProductName)

	// a cookie-less client sees a fresh session
	resp, err := http.Get(srv.URL + "/api/selection")
	require.NoError(t, err)
	other := decode[prompt.Selection](t, resp)
	assert.Empty(t, other.AdType)
}

func TestServer_ForgedSessionCookieIsReplaced(t *testing.T) {
	srv, _ := newTestServer(t)

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/api/selection", nil)
	require.NoError(t, err)
	req.AddCookie(&http.Cookie{Name: sessionCookie, Value: "chosen-by-client"})

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	var issued string
	for _, c := range resp.Cookies() {
		if c.Name == sessionCookie {
			issued = c.Value
		}
	}
	require.NotEmpty(t, issued)
	assert.NotEqual(t, "chosen-by-client", issued)
}

func TestServer_Prompt(t *testing.T) {
	srv, c := newTestServer(t)

	resp := postJSON(t, c, srv.URL+"/api/prompt", map[string]string{"ad_type": "image-ad"})
	out := decode[promptResponse](t, resp)
	assert.Empty(t, out.Prompt)
	assert.False(t, out.Complete)

	resp = postJSON(t, c, srv.URL+"/api/prompt", map[string]string{"industry": "social-media", "tone_style": "vibrant"})
	out = decode[promptResponse](t, resp)
	assert.True(t, out.Complete)
	assert.True(t, strings.HasPrefix(out.Prompt, "Nano Banana Image Ad (1:1) for Social Media Marketing Agencies:"))
	assert.Equal(t, out.Composed, out.Prompt)

	resp = postJSON(t, c, srv.URL+"/api/prompt", map[string]string{"custom_prompt": "  my own words  "})
	out = decode[promptResponse](t, resp)
	assert.Equal(t, "my own words", out.Prompt)
}

func TestServer_GenerateWithoutPrompt(t *testing.T) {
	srv, c := newTestServer(t)

	resp := postJSON(t, c, srv.URL+"/api/generate", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	resp = postJSON(t, c, srv.URL+"/api/regenerate", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	resp.Body.Close()
}

func TestServer_GenerateStatusDownload(t *testing.T) {
	srv, c := newTestServer(t)

	resp := postJSON(t, c, srv.URL+"/api/generate", map[string]string{"custom_prompt": "banana rocket"})
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	gen := decode[generateResponse](t, resp)
	assert.NotZero(t, gen.Token)

	resp, err := c.Get(srv.URL + "/api/status?wait=5")
	require.NoError(t, err)
	st := decode[imagegen.State](t, resp)
	require.Equal(t, imagegen.StatusReady, st.Status)
	require.NotNil(t, st.Image)
	assert.Equal(t, "banana rocket", st.Image.Prompt)
	assert.True(t, st.Image.Loaded)

	resp, err = c.Get(srv.URL + "/api/notifications")
	require.NoError(t, err)
	notes := decode[[]notify.Notification](t, resp)
	require.Len(t, notes, 1)
	assert.Equal(t, "Image generated!", notes[0].Title)

	resp, err = c.Get(srv.URL + "/api/download")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/png", resp.Header.Get("content-type"))
	assert.Contains(t, resp.Header.Get("content-disposition"), `attachment; filename=nano-banana-`)
	assert.Empty(t, resp.Header.Get(openURLHeader))
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	_, format, err := image.DecodeConfig(bytes.NewReader(body))
	require.NoError(t, err)
	assert.Equal(t, "png", format)
}

func TestServer_DownloadFetchedImageOpensPreview(t *testing.T) {
	data := pngBytes(t)
	host := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("content-type", "image/png")
		_, _ = w.Write(data)
	}))
	defer host.Close()

	imageURL := host.URL + "/prompt/banana.png"
	srv, c := newTestServerWithBackend(t, staticBackend(imageURL))

	resp := postJSON(t, c, srv.URL+"/api/generate", map[string]string{"custom_prompt": "banana"})
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	resp.Body.Close()

	resp, err := c.Get(srv.URL + "/api/status?wait=5")
	require.NoError(t, err)
	st := decode[imagegen.State](t, resp)
	require.Equal(t, imagegen.StatusReady, st.Status)

	resp, err = c.Get(srv.URL + "/api/download")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, imageURL, resp.Header.Get(openURLHeader))
	assert.Contains(t, resp.Header.Get("content-disposition"), "attachment")

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, data, body)
}

func TestServer_DownloadBeforeGenerate(t *testing.T) {
	srv, c := newTestServer(t)

	resp, err := c.Get(srv.URL + "/api/download")
	require.NoError(t, err)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	resp.Body.Close()
}

func TestServer_CancelIdle(t *testing.T) {
	srv, c := newTestServer(t)

	resp := postJSON(t, c, srv.URL+"/api/cancel", nil)
	out := decode[cancelResponse](t, resp)
	assert.False(t, out.Canceled)
	assert.Equal(t, imagegen.StatusIdle, out.State.Status)
}

func TestServer_StaticIndex(t *testing.T) {
	srv, c := newTestServer(t)

	resp, err := c.Get(srv.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "Nano Banana Content Prompt Generator")
	assert.Contains(t, string(body), `title: "Copied to clipboard!", description: "Your prompt is ready to use."`)
	assert.Contains(t, string(body), `res.headers.get("x-open-url")`)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
