package download

import (
	"strings"
	"sync"

	"github.com/google/uuid"
)

const blobScheme = "blob:"

type object struct {
	data     []byte
	mimeType string
}

// ObjectStore holds in-process blob: references until released.
type ObjectStore struct {
	mu      sync.Mutex
	objects map[string]object
}

func NewObjectStore() *ObjectStore {
	return &ObjectStore{objects: make(map[string]object)}
}

func (s *ObjectStore) Create(data []byte, mimeType string) string {
	ref := blobScheme + uuid.NewString()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[ref] = object{data: data, mimeType: mimeType}
	return ref
}

func (s *ObjectStore) Get(ref string) ([]byte, string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	obj, ok := s.objects[strings.TrimSpace(ref)]
	return obj.data, obj.mimeType, ok
}

func (s *ObjectStore) Release(ref string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, strings.TrimSpace(ref))
}

func (s *ObjectStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.objects)
}

func isBlobURL(value string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(value)), blobScheme)
}
