package download

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nano-banana-studio/internal/dataurl"
	"nano-banana-studio/internal/notify"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

func noNetworkClient(t *testing.T) *http.Client {
	return &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
		t.Errorf("unexpected network fetch: %s", r.URL)
		return nil, errors.New("network disabled")
	})}
}

func TestDownload_DataURLSkipsNetwork(t *testing.T) {
	rec := notify.NewRecorder(0)
	h := New(Options{HTTPClient: noNetworkClient(t), Notifier: rec})
	h.now = func() time.Time { return time.UnixMilli(42) }

	saver := &MemorySaver{}
	opener := &URLRecorder{}
	res, err := h.Download(context.Background(), dataurl.Encode("image/png", []byte("png")), "Nano  Banana", Target{Saver: saver, Opener: opener})
	require.NoError(t, err)

	assert.False(t, res.Fetched)
	assert.False(t, res.FellBack)
	assert.Equal(t, "nano-banana-42.png", res.FileName)

	files := saver.Files()
	require.Len(t, files, 1)
	assert.Equal(t, []byte("png"), files[0].Data)
	assert.Empty(t, opener.URLs())

	notes := rec.Snapshot()
	require.Len(t, notes, 1)
	assert.Equal(t, "Download started!", notes[0].Title)
}

func TestDownload_BlobURLSkipsNetwork(t *testing.T) {
	h := New(Options{HTTPClient: noNetworkClient(t)})
	ref := h.Objects().Create([]byte("jpeg"), "image/jpeg")

	saver := &MemorySaver{}
	res, err := h.Download(context.Background(), ref, "Kite", Target{Saver: saver})
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", res.MimeType)
	assert.Regexp(t, `^kite-\d+\.jpg$`, res.FileName)
	require.Len(t, saver.Files(), 1)

	_, err = h.Download(context.Background(), "blob:missing", "Kite", Target{Saver: saver})
	assert.True(t, errors.Is(err, ErrUnknownObject))
}

func TestDownload_FetchSavesAndReleasesObject(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("content-type", "image/jpeg; charset=binary")
		_, _ = w.Write([]byte("jpeg-bytes"))
	}))
	defer srv.Close()

	rec := notify.NewRecorder(0)
	h := New(Options{HTTPClient: srv.Client(), Notifier: rec})

	dir := t.TempDir()
	opener := &URLRecorder{}
	imageURL := srv.URL + "/prompt/banana?seed=1"

	res, err := h.Download(context.Background(), imageURL, "Nano Banana", Target{Saver: NewDirSaver(dir), Opener: opener})
	require.NoError(t, err)

	assert.True(t, res.Fetched)
	assert.False(t, res.FellBack)
	assert.Equal(t, "image/jpeg", res.MimeType)
	assert.Equal(t, 0, h.Objects().Len(), "temporary object must be released")
	assert.Equal(t, []string{imageURL}, opener.URLs())

	saved, err := os.ReadFile(filepath.Join(dir, res.FileName))
	require.NoError(t, err)
	assert.Equal(t, []byte("jpeg-bytes"), saved)
	assert.Equal(t, "Download started!", rec.Snapshot()[0].Title)
}

func TestDownload_FetchFailureOpensOriginal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/no-content":
			w.WriteHeader(http.StatusNoContent)
		case "/not-modified":
			w.WriteHeader(http.StatusNotModified)
		case "/empty":
			w.Header().Set("content-type", "image/png")
			w.WriteHeader(http.StatusOK)
		default:
			http.Error(w, "forbidden", http.StatusForbidden)
		}
	}))
	defer srv.Close()

	cases := map[string]string{
		"non-2xx":      srv.URL + "/prompt/banana",
		"no content":   srv.URL + "/no-content",
		"not modified": srv.URL + "/not-modified",
		"empty body":   srv.URL + "/empty",
		"unreachable":  "http://127.0.0.1:1/prompt/banana",
	}

	for name, imageURL := range cases {
		t.Run(name, func(t *testing.T) {
			rec := notify.NewRecorder(0)
			h := New(Options{HTTPClient: &http.Client{Timeout: 2 * time.Second}, Notifier: rec})
			saver := &MemorySaver{}
			opener := &URLRecorder{}

			res, err := h.Download(context.Background(), imageURL, "Nano Banana", Target{Saver: saver, Opener: opener})
			require.NoError(t, err)

			assert.True(t, res.FellBack)
			assert.Equal(t, imageURL, res.OpenedURL)
			assert.Equal(t, []string{imageURL}, opener.URLs())
			assert.Empty(t, saver.Files())

			notes := rec.Snapshot()
			require.Len(t, notes, 1)
			assert.Equal(t, notify.VariantWarning, notes[0].Variant)
		})
	}
}

func TestDownload_RequiresURL(t *testing.T) {
	h := New(Options{})
	_, err := h.Download(context.Background(), "  ", "x", Target{Saver: &MemorySaver{}})
	assert.True(t, errors.Is(err, ErrNoImage))
}

func TestFileName(t *testing.T) {
	at := time.UnixMilli(1700000000123)
	assert.Equal(t, "nano-banana-1700000000123.png", FileName("Nano Banana", "image/png", at))
	assert.Equal(t, "my-big-brand-1700000000123.jpg", FileName(" My\tBig  Brand ", "image/jpeg", at))
	assert.Equal(t, "image-1700000000123.png", FileName("", "application/x-unknown", at))
	assert.Equal(t, "a-b-1700000000123.webp", FileName("a/b", "image/webp", at))
}
