package telegram

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitByBytes(t *testing.T) {
	assert.Equal(t, []string{"short"}, splitByBytes("short", 10))

	parts := splitByBytes(strings.Repeat("a", 25), 10)
	assert.Equal(t, []string{strings.Repeat("a", 10), strings.Repeat("a", 10), "aaaaa"}, parts)

	// multi-byte runes are never split
	parts = splitByBytes("🍌🍌🍌", 5)
	assert.Equal(t, []string{"🍌", "🍌", "🍌"}, parts)
}

func TestTruncateByBytes(t *testing.T) {
	assert.Equal(t, "abc", truncateByBytes("abc", 5))
	assert.Equal(t, "🍌", truncateByBytes("🍌🍌", 7))
	assert.Equal(t, "abc", truncateByBytes("abc", 0))
}

func TestNew_Validation(t *testing.T) {
	_, err := New(Options{})
	assert.ErrorContains(t, err, "token is empty")

	_, err = New(Options{Token: "x"})
	assert.ErrorContains(t, err, "http client is nil")
}
