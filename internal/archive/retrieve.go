// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package archive

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pdiddy/eda-transcribe/pkg/types"
)

// ErrNotFound is returned by Lookup for unknown transcription ids.
var ErrNotFound = errors.New("transcription not found")

// QueryOptions holds parameters for archive queries.
type QueryOptions struct {
	// Query is the FTS5 full-text search string.
	Query string

	// Edition filters by exact edition label.
	Edition string

	// ManifestID filters by manifest.
	ManifestID string

	// CanvasID filters by canvas.
	CanvasID string

	// MaxResults limits result count. Zero uses the store default.
	MaxResults int
}

// IsEmpty reports whether the query has no search terms or filters.
func (q QueryOptions) IsEmpty() bool {
	return q.Query == "" && q.Edition == "" && q.ManifestID == "" && q.CanvasID == ""
}

const selectColumns = `t.id, t.manifest_id, t.canvas_id, t.position, t.edition, t.html, t.text, t.indexed_at`

// Retrieve queries the archive with optional full-text search and filters.
// Full-text results are ranked by relevance; filter-only results are sorted
// by manifest, canvas, and position.
func (s *Store) Retrieve(ctx context.Context, opts QueryOptions) ([]types.Transcription, error) {
	maxResults := opts.MaxResults
	if maxResults <= 0 {
		maxResults = s.maxResults
	}

	var (
		qb     strings.Builder
		args   []any
		useFTS = opts.Query != ""
	)

	if useFTS {
		qb.WriteString(`SELECT ` + selectColumns + `
			FROM transcriptions_fts
			JOIN transcriptions t ON t.rowid = transcriptions_fts.rowid
			WHERE transcriptions_fts MATCH ?`)
		args = append(args, opts.Query)
	} else {
		qb.WriteString(`SELECT ` + selectColumns + ` FROM transcriptions t WHERE 1=1`)
	}

	if opts.Edition != "" {
		qb.WriteString(` AND t.edition = ?`)
		args = append(args, opts.Edition)
	}
	if opts.ManifestID != "" {
		qb.WriteString(` AND t.manifest_id = ?`)
		args = append(args, opts.ManifestID)
	}
	if opts.CanvasID != "" {
		qb.WriteString(` AND t.canvas_id = ?`)
		args = append(args, opts.CanvasID)
	}

	if useFTS {
		qb.WriteString(` ORDER BY transcriptions_fts.rank`)
	} else {
		qb.WriteString(` ORDER BY t.manifest_id, t.canvas_id, t.position`)
	}

	qb.WriteString(` LIMIT ?`)
	args = append(args, maxResults)

	rows, err := s.db.QueryContext(ctx, qb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("querying archive: %w", err)
	}
	defer rows.Close()

	var results []types.Transcription
	for rows.Next() {
		t, err := scanTranscription(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, t)
	}

	return results, rows.Err()
}

// Lookup returns the transcription with the given id.
func (s *Store) Lookup(ctx context.Context, id string) (types.Transcription, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+selectColumns+` FROM transcriptions t WHERE t.id = ?`, id)
	t, err := scanTranscription(row)
	if errors.Is(err, sql.ErrNoRows) {
		return types.Transcription{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return t, err
}

// Editions returns the number of archived transcriptions per edition label.
func (s *Store) Editions(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT edition, count(*) FROM transcriptions GROUP BY edition ORDER BY edition`)
	if err != nil {
		return nil, fmt.Errorf("listing editions: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var (
			edition string
			n       int
		)
		if err := rows.Scan(&edition, &n); err != nil {
			return nil, fmt.Errorf("scanning edition: %w", err)
		}
		counts[edition] = n
	}
	return counts, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTranscription(row scanner) (types.Transcription, error) {
	var (
		t         types.Transcription
		indexedAt string
	)
	if err := row.Scan(&t.ID, &t.ManifestID, &t.CanvasID, &t.Position,
		&t.Edition, &t.HTML, &t.Text, &indexedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return t, err
		}
		return t, fmt.Errorf("scanning row: %w", err)
	}
	parsed, err := time.Parse(time.RFC3339Nano, indexedAt)
	if err != nil {
		return t, fmt.Errorf("scanning row: indexed_at: %w", err)
	}
	t.IndexedAt = parsed
	return t, nil
}
