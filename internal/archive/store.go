// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package archive persists resolved transcriptions in a SQLite database with
// a full-text index, so editions can be searched across manifests.
package archive

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	_ "github.com/mattn/go-sqlite3"
	"golang.org/x/net/html"
	"golang.org/x/text/unicode/norm"

	"github.com/pdiddy/eda-transcribe/internal/transcription"
	"github.com/pdiddy/eda-transcribe/pkg/types"
)

const (
	indexDir = "index"
	dbFile   = "transcriptions.db"
)

// CanvasResolver resolves the transcriptions of a single canvas.
type CanvasResolver interface {
	ResolveCanvas(canvas types.Canvas) []string
}

// Store manages the transcription archive database.
type Store struct {
	db         *sql.DB
	dataDir    string
	maxResults int
	now        func() time.Time
}

// NewStore opens or creates the archive database at
// dataDir/index/transcriptions.db and creates the schema if needed.
func NewStore(cfg types.ArchiveConfig) (*Store, error) {
	dbDir := filepath.Join(cfg.DataDir, indexDir)
	if err := os.MkdirAll(dbDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating index directory: %w", err)
	}

	db, err := sql.Open("sqlite3", filepath.Join(dbDir, dbFile)+"?_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	maxResults := cfg.MaxResults
	if maxResults <= 0 {
		maxResults = 20
	}

	s := &Store{
		db:         db,
		dataDir:    cfg.DataDir,
		maxResults: maxResults,
		now:        time.Now,
	}

	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS transcriptions (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT NOT NULL UNIQUE,
			manifest_id TEXT NOT NULL,
			canvas_id TEXT NOT NULL,
			position INTEGER NOT NULL,
			edition TEXT NOT NULL,
			html TEXT NOT NULL,
			text TEXT NOT NULL,
			indexed_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_transcriptions_canvas ON transcriptions(manifest_id, canvas_id)`,
		`CREATE INDEX IF NOT EXISTS idx_transcriptions_edition ON transcriptions(edition)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}

	var ftsExists int
	if err := s.db.QueryRow(
		`SELECT count(*) FROM sqlite_master WHERE type='table' AND name='transcriptions_fts'`,
	).Scan(&ftsExists); err != nil {
		return fmt.Errorf("checking FTS table: %w", err)
	}

	if ftsExists == 0 {
		ftsStatements := []string{
			`CREATE VIRTUAL TABLE transcriptions_fts USING fts5(text, edition, content=transcriptions, content_rowid=rowid)`,
			`CREATE TRIGGER transcriptions_ai AFTER INSERT ON transcriptions BEGIN
				INSERT INTO transcriptions_fts(rowid, text, edition) VALUES (new.rowid, new.text, new.edition);
			END`,
			`CREATE TRIGGER transcriptions_ad AFTER DELETE ON transcriptions BEGIN
				INSERT INTO transcriptions_fts(transcriptions_fts, rowid, text, edition) VALUES('delete', old.rowid, old.text, old.edition);
			END`,
			`CREATE TRIGGER transcriptions_au AFTER UPDATE ON transcriptions BEGIN
				INSERT INTO transcriptions_fts(transcriptions_fts, rowid, text, edition) VALUES('delete', old.rowid, old.text, old.edition);
				INSERT INTO transcriptions_fts(rowid, text, edition) VALUES (new.rowid, new.text, new.edition);
			END`,
		}
		for _, stmt := range ftsStatements {
			if _, err := s.db.Exec(stmt); err != nil {
				return fmt.Errorf("creating FTS infrastructure: %w", err)
			}
		}
	}

	return nil
}

// IngestSummary holds counts from an archive indexing run.
type IngestSummary struct {
	// Indexed counts canvases with at least one transcription.
	Indexed int
	// Empty counts canvases without transcriptions.
	Empty int
	// Failed counts canvases that could not be written.
	Failed int
	// Transcriptions counts stored transcriptions.
	Transcriptions int
}

// Total returns the number of canvases processed.
func (s IngestSummary) Total() int {
	return s.Indexed + s.Empty + s.Failed
}

// Ingest resolves every canvas of every loaded manifest in state and
// replaces the archived transcriptions of each canvas. Manifests without a
// document are skipped. Progress lines are written to w. On success it
// writes export.yaml.
func (s *Store) Ingest(ctx context.Context, state *types.ManifestState, r CanvasResolver, w io.Writer) (IngestSummary, error) {
	var summary IngestSummary
	if state == nil {
		return summary, nil
	}

	manifestIDs := make([]string, 0, len(state.Manifests))
	for id := range state.Manifests {
		manifestIDs = append(manifestIDs, id)
	}
	sort.Strings(manifestIDs)

	for _, manifestID := range manifestIDs {
		doc := state.Manifests[manifestID].JSON
		if doc == nil {
			fmt.Fprintf(w, "skipped %s (not loaded)\n", manifestID)
			continue
		}

		for _, canvas := range doc.Items {
			if err := ctx.Err(); err != nil {
				return summary, err
			}

			htmls := r.ResolveCanvas(canvas)
			if err := s.replaceCanvas(ctx, manifestID, canvas.ID, htmls); err != nil {
				fmt.Fprintf(w, "failed  %s %s: %v\n", manifestID, canvas.ID, err)
				summary.Failed++
				continue
			}

			if len(htmls) == 0 {
				summary.Empty++
				continue
			}
			fmt.Fprintf(w, "indexed %s %s (%d editions)\n", manifestID, canvas.ID, len(htmls))
			summary.Indexed++
			summary.Transcriptions += len(htmls)
		}
	}

	fmt.Fprintf(w, "\nindexed: %d, empty: %d, failed: %d, transcriptions: %d\n",
		summary.Indexed, summary.Empty, summary.Failed, summary.Transcriptions)

	if summary.Indexed > 0 {
		if err := s.ExportYAML(ctx, QueryOptions{}); err != nil {
			fmt.Fprintf(w, "warning: export.yaml write failed: %v\n", err)
		}
	}

	return summary, nil
}

func (s *Store) replaceCanvas(ctx context.Context, manifestID, canvasID string, htmls []string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM transcriptions WHERE manifest_id = ? AND canvas_id = ?`, manifestID, canvasID,
	); err != nil {
		return fmt.Errorf("deleting old transcriptions: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO transcriptions (id, manifest_id, canvas_id, position, edition, html, text, indexed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	indexedAt := s.now().UTC().Format(time.RFC3339Nano)
	for i, fragment := range htmls {
		edition := transcription.EditionName(fragment)
		_, err := stmt.ExecContext(ctx,
			transcriptionID(manifestID, canvasID, edition), manifestID, canvasID, i,
			edition, fragment, plainText(fragment), indexedAt,
		)
		if err != nil {
			return fmt.Errorf("inserting %s edition %q: %w", canvasID, edition, err)
		}
	}

	return tx.Commit()
}

// transcriptionID derives a stable identifier from the canvas and edition.
func transcriptionID(manifestID, canvasID, edition string) string {
	sum := sha256.Sum256([]byte(manifestID + "\x00" + canvasID + "\x00" + edition))
	return hex.EncodeToString(sum[:8])
}

// plainText returns the NFC-normalized words of an HTML fragment. Words
// from separate text nodes are separated by a single space.
func plainText(fragment string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return ""
	}

	var words []string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			words = append(words, strings.Fields(n.Data)...)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range doc.Nodes {
		walk(n)
	}
	return norm.NFC.String(strings.Join(words, " "))
}
