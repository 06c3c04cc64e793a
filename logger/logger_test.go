package logger

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScopedLogger_LevelThreshold(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	t.Cleanup(func() { SetLevel("info") })

	log := New("Fetcher")

	SetLevel("warn")
	log.Info("hidden %d", 1)
	log.Warn("shown %d", 2)
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "[Fetcher] [WARN] shown 2")

	buf.Reset()
	SetLevel("debug")
	log.Debug("tag=%s", "abc")
	assert.Contains(t, buf.String(), "[Fetcher] [DEBUG] tag=abc")
}

func TestSetLevel_UnknownMeansInfo(t *testing.T) {
	t.Cleanup(func() { SetLevel("info") })
	SetLevel("verbose")
	assert.Equal(t, LevelInfo, currentLevel())
}
