package notify

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"
)

type Variant string

const (
	VariantDefault     Variant = "default"
	VariantWarning     Variant = "warning"
	VariantDestructive Variant = "destructive"
)

type Notification struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Variant     Variant   `json:"variant"`
	At          time.Time `json:"at"`
}

// Sink receives user-facing status messages. Implementations must not block for long.
type Sink interface {
	Notify(ctx context.Context, n Notification)
}

type Func func(ctx context.Context, n Notification)

func (f Func) Notify(ctx context.Context, n Notification) {
	f(ctx, n)
}

func Success(title, description string) Notification {
	return Notification{Title: title, Description: description, Variant: VariantDefault, At: time.Now()}
}

func Warning(title, description string) Notification {
	return Notification{Title: title, Description: description, Variant: VariantWarning, At: time.Now()}
}

func Error(title, description string) Notification {
	return Notification{Title: title, Description: description, Variant: VariantDestructive, At: time.Now()}
}

type LogSink struct {
	logger *slog.Logger
}

func NewLogSink(logger *slog.Logger) *LogSink {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &LogSink{logger: logger}
}

func (s *LogSink) Notify(ctx context.Context, n Notification) {
	level := slog.LevelInfo
	switch n.Variant {
	case VariantWarning:
		level = slog.LevelWarn
	case VariantDestructive:
		level = slog.LevelError
	}
	s.logger.Log(ctx, level, "notification", "title", n.Title, "description", n.Description, "variant", string(n.Variant))
}

// Recorder keeps the most recent notifications until drained.
type Recorder struct {
	mu    sync.Mutex
	items []Notification
	max   int
}

func NewRecorder(max int) *Recorder {
	if max <= 0 {
		max = 20
	}
	return &Recorder{max: max}
}

func (r *Recorder) Notify(_ context.Context, n Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.items = append(r.items, n)
	if len(r.items) > r.max {
		r.items = r.items[len(r.items)-r.max:]
	}
}

func (r *Recorder) Drain() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := r.items
	r.items = nil
	return out
}

func (r *Recorder) Snapshot() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Notification, len(r.items))
	copy(out, r.items)
	return out
}

type multi []Sink

func Multi(sinks ...Sink) Sink {
	var out multi
	for _, s := range sinks {
		if s != nil {
			out = append(out, s)
		}
	}
	return out
}

func (m multi) Notify(ctx context.Context, n Notification) {
	for _, s := range m {
		s.Notify(ctx, n)
	}
}

// Discard drops every notification.
var Discard Sink = Func(func(context.Context, Notification) {})
