package notify

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorder_KeepsMostRecent(t *testing.T) {
	r := NewRecorder(2)
	ctx := context.Background()

	r.Notify(ctx, Success("one", ""))
	r.Notify(ctx, Warning("two", ""))
	r.Notify(ctx, Error("three", ""))

	snap := r.Snapshot()
	require.Len(t, snap, 2)
	assert.Equal(t, "two", snap[0].Title)
	assert.Equal(t, VariantDestructive, snap[1].Variant)

	drained := r.Drain()
	assert.Len(t, drained, 2)
	assert.Empty(t, r.Drain())
}

func TestMulti_FansOutAndSkipsNil(t *testing.T) {
	a := NewRecorder(0)
	b := NewRecorder(0)
	var calls int

	sink := Multi(a, nil, b, Func(func(context.Context, Notification) { calls++ }))
	sink.Notify(context.Background(), Success("done", "ok"))

	assert.Len(t, a.Snapshot(), 1)
	assert.Len(t, b.Snapshot(), 1)
	assert.Equal(t, 1, calls)
}

func TestLogSink_LevelsFollowVariant(t *testing.T) {
	var buf bytes.Buffer
	sink := NewLogSink(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))

	sink.Notify(context.Background(), Error("Generation failed", "Please try again."))
	assert.Contains(t, buf.String(), "level=ERROR")
	assert.Contains(t, buf.String(), "Generation failed")

	buf.Reset()
	sink.Notify(context.Background(), Warning("Manual save", ""))
	assert.Contains(t, buf.String(), "level=WARN")
}
