package app

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nano-banana-studio/internal/config"
	"nano-banana-studio/internal/imagegen"
	"nano-banana-studio/internal/notify"
)

func TestAspectRatioFor(t *testing.T) {
	assert.Equal(t, "1:1", aspectRatioFor(1024, 1024))
	assert.Equal(t, "16:9", aspectRatioFor(1920, 1080))
	assert.Equal(t, "9:16", aspectRatioFor(1080, 1920))
	assert.Equal(t, "1:1", aspectRatioFor(0, 10))
}

func TestNewBackend(t *testing.T) {
	cfg := config.Config{ImageBackend: config.BackendPollinations, ImageWidth: 512, ImageHeight: 512}
	_, ok := NewBackend(cfg, nil, nil).(*imagegen.Pollinations)
	assert.True(t, ok)

	cfg.ImageBackend = config.BackendGemini
	cfg.GeminiAPIKey = "key"
	_, ok = NewBackend(cfg, nil, nil).(*imagegen.GeminiBackend)
	assert.True(t, ok)
}

func TestNew_SessionsGetControllers(t *testing.T) {
	a := New(config.Config{ImageBackend: config.BackendPollinations}, nil)

	sess := a.Sessions.GetOrCreate("")
	require.NotNil(t, sess.Controller)
	assert.Equal(t, imagegen.StatusIdle, sess.Controller.Snapshot().Status)
	assert.NotNil(t, a.NewController(notify.Discard))
}
