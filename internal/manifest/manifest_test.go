// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package manifest

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/eda-transcribe/internal/httputil"
	"github.com/pdiddy/eda-transcribe/pkg/types"
)

func init() {
	httputil.RetryBaseDelay = 1 * time.Millisecond
}

const manifestJSON = `{
	"@context": "http://iiif.io/api/presentation/3/context.json",
	"id": "https://www.edickinson.org/manifestation/3037",
	"type": "Manifest",
	"label": {"en": ["Emily Dickinson Archive - J577 - If I may have it when it's dead"]},
	"items": [
		{
			"id": "canvas/3945",
			"type": "Canvas",
			"annotations": [{"items": [{"body": {
				"format": "text/html",
				"value": "<div class=\"work-body\" data-exhibit=\"emily-dickinson-archive\" data-edition=\"Johnson Poems 1955\">Sample transcription</div>"
			}}]}]
		},
		{"id": "canvas/3946", "type": "Canvas"}
	]
}`

func fetchConfig() types.FetchConfig {
	return types.FetchConfig{
		HTTPConfig: types.HTTPConfig{Timeout: 5 * time.Second, UserAgent: "eda-transcribe/test"},
		MaxRetries: 2,
		CacheTTL:   time.Minute,
	}
}

func TestLoad_HTTP(t *testing.T) {
	var calls int32
	var gotHeaders http.Header
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		gotHeaders = r.Header.Clone()
		w.Header().Set("Content-Type", "application/ld+json")
		w.Write([]byte(manifestJSON))
	}))
	defer ts.Close()

	cfg := fetchConfig()
	cfg.Token = "tok_123"
	l := NewLoader(cfg, ts.Client())

	doc, err := l.Load(context.Background(), ts.URL+"/manifest/3037")
	require.NoError(t, err)

	assert.Equal(t, "https://www.edickinson.org/manifestation/3037", doc.ID)
	assert.Equal(t, []string{"canvas/3945", "canvas/3946"}, CanvasIDs(doc))
	require.Len(t, doc.Items[0].Annotations, 1)
	assert.Equal(t, "text/html", doc.Items[0].Annotations[0].Items[0].Body.Format)

	assert.Equal(t, "eda-transcribe/test", gotHeaders.Get("User-Agent"))
	assert.Equal(t, "Bearer tok_123", gotHeaders.Get("Authorization"))
	assert.Contains(t, gotHeaders.Get("Accept"), "application/ld+json")

	again, err := l.Load(context.Background(), ts.URL+"/manifest/3037")
	require.NoError(t, err)
	assert.Same(t, doc, again)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls), "second load is served from cache")

	exp, ok := l.Cached(ts.URL + "/manifest/3037")
	assert.True(t, ok)
	assert.True(t, exp.After(time.Now()))
}

func TestLoad_HTTPWithoutCache(t *testing.T) {
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Write([]byte(manifestJSON))
	}))
	defer ts.Close()

	cfg := fetchConfig()
	cfg.CacheTTL = 0
	l := NewLoader(cfg, ts.Client())

	for range 2 {
		_, err := l.Load(context.Background(), ts.URL)
		require.NoError(t, err)
	}
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
	_, ok := l.Cached(ts.URL)
	assert.False(t, ok)
}

func TestLoad_HTTPErrors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		wantErr error
		wantMsg string
	}{
		{
			name:    "not found",
			handler: func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNotFound) },
			wantErr: ErrNotFound,
		},
		{
			name:    "server error",
			handler: func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusInternalServerError) },
			wantMsg: "HTTP 500",
		},
		{
			name:    "throttled past retries",
			handler: func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusTooManyRequests) },
			wantMsg: "HTTP 429",
		},
		{
			name:    "malformed body",
			handler: func(w http.ResponseWriter, _ *http.Request) { w.Write([]byte(`{"items": [`)) },
			wantMsg: "parsing manifest",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := httptest.NewServer(tt.handler)
			defer ts.Close()

			_, err := NewLoader(fetchConfig(), ts.Client()).Load(context.Background(), ts.URL)
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
			if tt.wantMsg != "" {
				assert.Contains(t, err.Error(), tt.wantMsg)
			}
		})
	}
}

func TestLoad_Files(t *testing.T) {
	dir := t.TempDir()

	jsonPath := filepath.Join(dir, "manifest-3037.json")
	require.NoError(t, os.WriteFile(jsonPath, []byte(manifestJSON), 0o644))

	yamlPath := filepath.Join(dir, "manifest.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte(`
id: https://example.org/m
items:
  - id: c1
    annotations:
      - items:
          - body: {format: text/html, value: '<div class="work-body">y</div>'}
`), 0o644))

	l := NewLoader(fetchConfig(), nil)

	doc, err := l.Load(context.Background(), jsonPath)
	require.NoError(t, err)
	assert.Equal(t, []string{"canvas/3945", "canvas/3946"}, CanvasIDs(doc))

	doc, err = l.Load(context.Background(), "file://"+jsonPath)
	require.NoError(t, err)
	assert.Len(t, doc.Items, 2)

	doc, err = l.Load(context.Background(), yamlPath)
	require.NoError(t, err)
	assert.Equal(t, "https://example.org/m", doc.ID)
	assert.Equal(t, `<div class="work-body">y</div>`, doc.Items[0].Annotations[0].Items[0].Body.Value)

	_, err = l.Load(context.Background(), filepath.Join(dir, "nope.json"))
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = l.Load(context.Background(), "ftp://example.org/manifest.json")
	assert.ErrorIs(t, err, ErrUnsupportedSource)
}

func TestCanvasIDs_Nil(t *testing.T) {
	assert.Nil(t, CanvasIDs(nil))
	assert.Empty(t, CanvasIDs(&types.ManifestDocument{}))
}
