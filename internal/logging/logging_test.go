// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/eda-transcribe/pkg/types"
)

func TestNew_JSONFormat(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Options{Level: "info", Format: "json", Writer: &buf})
	require.NoError(t, err)

	logger.Info("resolved", "window", "window-1", "editions", 2)
	logger.Debug("hidden")

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "info", record["level"])
	assert.Equal(t, "resolved", record["msg"])
	assert.Equal(t, "window-1", record["window"])
	assert.Contains(t, record, "ts")
	assert.NotContains(t, buf.String(), "hidden")
}

func TestNew_TextFormatLevels(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewFromConfig(types.LogConfig{Level: "warn"}, &buf)
	require.NoError(t, err)

	logger.Info("quiet")
	logger.Warn("loud", "edition", "Poems 1896")

	out := buf.String()
	assert.NotContains(t, out, "quiet")
	assert.Contains(t, out, "level=warn")
	assert.Contains(t, out, `edition="Poems 1896"`)
}

func TestNew_UnsupportedFormat(t *testing.T) {
	_, err := New(Options{Format: "xml"})
	assert.ErrorContains(t, err, "unsupported")
}

func TestParseLevel(t *testing.T) {
	tests := map[string]string{
		"debug":   "DEBUG",
		"WARNING": "WARN",
		"error":   "ERROR",
		"":        "INFO",
		"bogus":   "INFO",
	}
	for in, want := range tests {
		assert.Equal(t, want, parseLevel(in).String(), in)
	}
}
