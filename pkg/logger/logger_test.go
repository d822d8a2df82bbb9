package logger

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	lvl, err := ParseLevel("DEBUG")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, lvl)

	lvl, err = ParseLevel("")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelInfo, lvl)

	_, err = ParseLevel("verbose")
	assert.Error(t, err)
}

func TestNew_FileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")

	log, cleanup, err := New(Options{Level: "warn", Format: "json", Output: path})
	require.NoError(t, err)

	log.Info("被过滤")
	log.Warn("库存不足", "book_id", 7)
	cleanup()

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &line), "只应有一行JSON")
	assert.Equal(t, "库存不足", line["msg"])
	assert.Equal(t, float64(7), line["book_id"])
}

func TestNew_InvalidLevel(t *testing.T) {
	_, _, err := New(Options{Level: "loud"})
	assert.Error(t, err)
}
