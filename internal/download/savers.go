package download

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Saver persists downloaded bytes under a suggested file name and returns where they went.
type Saver interface {
	Save(ctx context.Context, name string, data []byte, mimeType string) (string, error)
}

// Opener shows a URL to the user in a new context (tab, chat message, terminal line).
type Opener interface {
	Open(ctx context.Context, rawURL string) error
}

type OpenerFunc func(ctx context.Context, rawURL string) error

func (f OpenerFunc) Open(ctx context.Context, rawURL string) error {
	return f(ctx, rawURL)
}

type DirSaver struct {
	dir string
}

func NewDirSaver(dir string) *DirSaver {
	if dir == "" {
		dir = "."
	}
	return &DirSaver{dir: dir}
}

func (s *DirSaver) Save(_ context.Context, name string, data []byte, _ string) (string, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("create download dir: %w", err)
	}
	path := filepath.Join(s.dir, filepath.Base(name))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return path, nil
}

type SavedFile struct {
	Name     string
	Data     []byte
	MimeType string
}

// MemorySaver captures saves so a caller can stream them elsewhere (e.g. an HTTP attachment).
type MemorySaver struct {
	mu    sync.Mutex
	files []SavedFile
}

func (s *MemorySaver) Save(_ context.Context, name string, data []byte, mimeType string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files = append(s.files, SavedFile{Name: name, Data: data, MimeType: mimeType})
	return name, nil
}

func (s *MemorySaver) Files() []SavedFile {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]SavedFile, len(s.files))
	copy(out, s.files)
	return out
}

// URLRecorder is an Opener that remembers what it was asked to open.
type URLRecorder struct {
	mu   sync.Mutex
	urls []string
}

func (r *URLRecorder) Open(_ context.Context, rawURL string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.urls = append(r.urls, rawURL)
	return nil
}

func (r *URLRecorder) URLs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.urls))
	copy(out, r.urls)
	return out
}
