package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "smgantt.log")

	l, err := Init(Config{
		Level:      "debug",
		Filename:   path,
		MaxSize:    1,
		MaxBackups: 1,
		MaxAge:     1,
	})
	require.NoError(t, err)
	assert.Same(t, l, Log)

	Log.Info("cascade applied")
	Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"cascade applied"`)
	assert.Contains(t, string(data), `"level":"INFO"`)
}

func TestNewRejectsInvalidLevel(t *testing.T) {
	_, err := New(Config{Level: "LOUD"})
	assert.Error(t, err)
}

func TestNewDefaultsToInfo(t *testing.T) {
	l, err := New(Config{})
	require.NoError(t, err)
	assert.False(t, l.Core().Enabled(-1))
	assert.True(t, l.Core().Enabled(0))
}
