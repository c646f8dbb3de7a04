// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/eda-transcribe/internal/transcription"
	"github.com/pdiddy/eda-transcribe/pkg/types"
)

// --- test helpers ---

func testStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(types.ArchiveConfig{DataDir: t.TempDir(), MaxResults: 20})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	store.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	return store
}

func fragment(edition, title, stanza string) string {
	return `<div class="work-body" data-exhibit="emily-dickinson-archive" data-edition="` + edition + `">` +
		`<h3>` + title + `</h3><p class="stanza">` + stanza + `</p></div>`
}

func canvas(id string, fragments ...string) types.Canvas {
	page := types.AnnotationPage{}
	for _, f := range fragments {
		page.Items = append(page.Items, types.Annotation{Body: &types.Body{Format: "text/html", Value: f}})
	}
	return types.Canvas{ID: id, Annotations: []types.AnnotationPage{page}}
}

func testState() *types.ManifestState {
	return &types.ManifestState{
		Windows: types.NewWindows(),
		Manifests: map[string]types.ManifestRecord{
			"manifest-3037": {JSON: &types.ManifestDocument{Items: []types.Canvas{
				canvas("canvas/3945",
					fragment("Johnson Poems 1955", "J577", "If I may have it, when it's dead"),
					fragment("Franklin Variorum 1998", "F431A", "If I may have it, when it's dead"),
				),
				canvas("canvas/3946"),
			}}},
			"manifest-5f3b": {JSON: &types.ManifestDocument{Items: []types.Canvas{
				canvas("canvas/1",
					fragment("Franklin Variorum 1998", "F3B", "On this wondrous sea"),
					fragment("Franklin Variorum 1998", "F9A", "Oh if remembering were forgetting"),
				),
			}}},
			"manifest-unloaded": {},
		},
	}
}

func ingest(t *testing.T, store *Store) (IngestSummary, string) {
	t.Helper()
	var log bytes.Buffer
	summary, err := store.Ingest(context.Background(), testState(), transcription.New(types.ResolverConfig{}), &log)
	require.NoError(t, err)
	return summary, log.String()
}

// --- ingest ---

func TestIngest(t *testing.T) {
	store := testStore(t)

	summary, log := ingest(t, store)
	assert.Equal(t, 2, summary.Indexed)
	assert.Equal(t, 1, summary.Empty)
	assert.Equal(t, 0, summary.Failed)
	assert.Equal(t, 3, summary.Transcriptions)
	assert.Equal(t, 3, summary.Total())

	assert.Contains(t, log, "skipped manifest-unloaded (not loaded)")
	assert.Contains(t, log, "indexed manifest-3037 canvas/3945 (2 editions)")
	assert.FileExists(t, store.ExportPath("yaml"))

	counts, err := store.Editions(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"Franklin Variorum 1998": 2, "Johnson Poems 1955": 1}, counts)
}

func TestIngest_ReplacesCanvas(t *testing.T) {
	store := testStore(t)
	ingest(t, store)
	ingest(t, store)

	all, err := store.Retrieve(context.Background(), QueryOptions{ManifestID: "manifest-3037"})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "Johnson Poems 1955", all[0].Edition)
	assert.Equal(t, 0, all[0].Position)
	assert.Equal(t, "Franklin Variorum 1998", all[1].Edition)
	assert.Equal(t, 1, all[1].Position)
}

func TestIngest_Cancelled(t *testing.T) {
	store := testStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var log bytes.Buffer
	_, err := store.Ingest(ctx, testState(), transcription.New(types.ResolverConfig{}), &log)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestIngest_NilState(t *testing.T) {
	store := testStore(t)
	summary, err := store.Ingest(context.Background(), nil, transcription.New(types.ResolverConfig{}), &bytes.Buffer{})
	require.NoError(t, err)
	assert.Zero(t, summary.Total())
}

// --- retrieve ---

func TestRetrieve(t *testing.T) {
	store := testStore(t)
	ingest(t, store)
	ctx := context.Background()

	tests := []struct {
		name     string
		opts     QueryOptions
		editions []string
		canvases []string
	}{
		{
			name:     "full text",
			opts:     QueryOptions{Query: "wondrous"},
			editions: []string{"Franklin Variorum 1998"},
			canvases: []string{"canvas/1"},
		},
		{
			name:     "edition filter",
			opts:     QueryOptions{Edition: "Franklin Variorum 1998"},
			editions: []string{"Franklin Variorum 1998", "Franklin Variorum 1998"},
			canvases: []string{"canvas/3945", "canvas/1"},
		},
		{
			name:     "full text with canvas filter",
			opts:     QueryOptions{Query: "dead", CanvasID: "canvas/3945", Edition: "Johnson Poems 1955"},
			editions: []string{"Johnson Poems 1955"},
			canvases: []string{"canvas/3945"},
		},
		{
			name:     "max results",
			opts:     QueryOptions{ManifestID: "manifest-3037", MaxResults: 1},
			editions: []string{"Johnson Poems 1955"},
			canvases: []string{"canvas/3945"},
		},
		{
			name: "no match",
			opts: QueryOptions{Query: "nonexistentword"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := store.Retrieve(ctx, tt.opts)
			require.NoError(t, err)

			var editions, canvases []string
			for _, r := range got {
				editions = append(editions, r.Edition)
				canvases = append(canvases, r.CanvasID)
			}
			assert.ElementsMatch(t, tt.editions, editions)
			assert.ElementsMatch(t, tt.canvases, canvases)
		})
	}
}

func TestRetrieve_MergedTranscriptionText(t *testing.T) {
	store := testStore(t)
	ingest(t, store)

	got, err := store.Retrieve(context.Background(), QueryOptions{CanvasID: "canvas/1"})
	require.NoError(t, err)
	require.Len(t, got, 1)

	merged := got[0]
	assert.Equal(t, "F3B On this wondrous sea F9A Oh if remembering were forgetting", merged.Text)
	assert.Contains(t, merged.HTML, `style="height: 2em;"`)
	assert.Equal(t, time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC), merged.IndexedAt)

	byID, err := store.Lookup(context.Background(), merged.ID)
	require.NoError(t, err)
	assert.Equal(t, merged, byID)

	_, err = store.Lookup(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLookup_BadTimestamp(t *testing.T) {
	store := testStore(t)
	_, err := store.db.Exec(
		`INSERT INTO transcriptions (id, manifest_id, canvas_id, position, edition, html, text, indexed_at)
		 VALUES ('bad', 'm', 'c', 0, 'X', '<div></div>', '', 'yesterday')`)
	require.NoError(t, err)

	_, err = store.Lookup(context.Background(), "bad")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scanning row")
	assert.NotErrorIs(t, err, ErrNotFound)

	_, err = store.Retrieve(context.Background(), QueryOptions{ManifestID: "m"})
	assert.ErrorContains(t, err, "indexed_at")
}

func TestQueryOptions_IsEmpty(t *testing.T) {
	assert.True(t, QueryOptions{MaxResults: 5}.IsEmpty())
	assert.False(t, QueryOptions{Edition: "Poems 1896"}.IsEmpty())
	assert.False(t, QueryOptions{Query: "sea"}.IsEmpty())
}

// --- export ---

func TestExport(t *testing.T) {
	store := testStore(t)
	ingest(t, store)
	ctx := context.Background()

	require.NoError(t, store.ExportJSON(ctx, QueryOptions{Edition: "Johnson Poems 1955"}))
	data, err := os.ReadFile(store.ExportPath("json"))
	require.NoError(t, err)

	var entries []ExportEntry
	require.NoError(t, json.Unmarshal(data, &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, "manifest-3037", entries[0].ManifestID)
	assert.Equal(t, "J577 If I may have it, when it's dead", entries[0].Text)

	require.NoError(t, store.ExportYAML(ctx, QueryOptions{}))
	data, err = os.ReadFile(filepath.Join(store.dataDir, "index", "export.yaml"))
	require.NoError(t, err)
	require.NoError(t, yaml.Unmarshal(data, &entries))
	assert.Len(t, entries, 3)
}

func TestTranscriptionID_Stable(t *testing.T) {
	a := transcriptionID("m", "c", "Poems 1896")
	assert.Equal(t, a, transcriptionID("m", "c", "Poems 1896"))
	assert.NotEqual(t, a, transcriptionID("m", "c", "Poems 1890"))
	assert.Len(t, a, 16)
}

func TestPlainText(t *testing.T) {
	got := plainText("<div>\n  <h3>Café</h3>\n  <p>line  one<br/>line two</p></div>")
	assert.Equal(t, "Café line one line two", got)
}
