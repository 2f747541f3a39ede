package session

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"nano-banana-studio/internal/imagegen"
	"nano-banana-studio/internal/notify"
	"nano-banana-studio/internal/prompt"
)

// Session is one visitor's form state and image controller.
type Session struct {
	ID            string
	Controller    *imagegen.Controller
	Notifications *notify.Recorder

	mu        sync.Mutex
	selection prompt.Selection
}

func (s *Session) Selection() prompt.Selection {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selection
}

func (s *Session) Update(fn func(*prompt.Selection)) prompt.Selection {
	s.mu.Lock()
	defer s.mu.Unlock()

	if fn != nil {
		fn(&s.selection)
	}
	return s.selection
}

func (s *Session) Reset() prompt.Selection {
	s.Controller.Cancel()
	return s.Update(func(sel *prompt.Selection) {
		*sel = prompt.DefaultSelection()
	})
}

// ControllerFactory builds a controller that reports to the session's sink.
type ControllerFactory func(sink notify.Sink) *imagegen.Controller

type Options struct {
	TTL           time.Duration
	NewController ControllerFactory
	Notifier      notify.Sink
}

type Store struct {
	mu            sync.Mutex
	sessions      *cache.Cache
	ttl           time.Duration
	newController ControllerFactory
	notifier      notify.Sink
}

func NewStore(opts Options) *Store {
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	newController := opts.NewController
	if newController == nil {
		newController = func(sink notify.Sink) *imagegen.Controller {
			return imagegen.NewController(imagegen.Options{Notifier: sink})
		}
	}

	sessions := cache.New(ttl, ttl/2)
	sessions.OnEvicted(func(_ string, v interface{}) {
		if sess, ok := v.(*Session); ok {
			sess.Controller.Cancel()
		}
	})

	return &Store{
		sessions:      sessions,
		ttl:           ttl,
		newController: newController,
		notifier:      opts.Notifier,
	}
}

func NewID() string {
	return uuid.NewString()
}

func (s *Store) Get(id string) (*Session, bool) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, false
	}
	v, ok := s.sessions.Get(id)
	if !ok {
		return nil, false
	}
	sess := v.(*Session)
	s.sessions.SetDefault(id, sess)
	return sess, true
}

// GetOrCreate refreshes the TTL of an existing session or starts a new one
// under id. An empty id gets a fresh random one. Use it for server-chosen keys.
func (s *Store) GetOrCreate(id string) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sess, ok := s.Get(id); ok {
		return sess
	}

	id = strings.TrimSpace(id)
	if id == "" {
		id = NewID()
	}
	return s.createLocked(id)
}

// Resume returns the live session for a client-supplied id. An unknown or
// expired id is never adopted: the new session gets a fresh random id.
func (s *Store) Resume(id string) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sess, ok := s.Get(id); ok {
		return sess
	}
	return s.createLocked(NewID())
}

func (s *Store) createLocked(id string) *Session {
	recorder := notify.NewRecorder(20)
	sess := &Session{
		ID:            id,
		Notifications: recorder,
		selection:     prompt.DefaultSelection(),
	}
	sess.Controller = s.newController(notify.Multi(recorder, s.notifier))
	s.sessions.SetDefault(id, sess)
	return sess
}

func (s *Store) Delete(id string) {
	s.sessions.Delete(strings.TrimSpace(id))
}

func (s *Store) Len() int {
	return s.sessions.ItemCount()
}

func (s *Store) TTL() time.Duration {
	return s.ttl
}
