package utils

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestTruncateTextShortInputUnchanged(t *testing.T) {
	tp := NewTextProcessor(zap.NewNop())

	assert.Equal(t, "hello", tp.TruncateText("hello", 100))
	assert.Equal(t, "hello", tp.TruncateText("hello", 0))
}

func TestTruncateTextAddsMarker(t *testing.T) {
	tp := NewTextProcessor(zap.NewNop())

	long := strings.Repeat("a", 200)
	out := tp.TruncateText(long, 50)
	assert.True(t, strings.HasPrefix(out, strings.Repeat("a", 50)))
	assert.Contains(t, out, "Content truncated")
}

func TestTruncateTextDoesNotSplitRunes(t *testing.T) {
	tp := NewTextProcessor(zap.NewNop())

	// é is two bytes, so a 3-byte cut lands mid-rune
	out := tp.TruncateText("ééé", 3)
	assert.True(t, utf8.ValidString(out))
	assert.True(t, strings.HasPrefix(out, "é"))
}

func TestSanitizeUTF8(t *testing.T) {
	tp := NewTextProcessor(zap.NewNop())

	assert.Equal(t, "clean", tp.SanitizeUTF8("clean"))

	dirty := "bad" + string([]byte{0xff, 0xfe}) + "bytes"
	out := tp.SanitizeUTF8(dirty)
	assert.True(t, utf8.ValidString(out))
	assert.Equal(t, "badbytes", out)
}

func TestProcessText(t *testing.T) {
	tp := NewTextProcessor(zap.NewNop())

	long := strings.Repeat("x", 100) + string([]byte{0xff})
	out := tp.ProcessText(long, 100)
	assert.True(t, utf8.ValidString(out))
	assert.Contains(t, out, "Content truncated")
}
