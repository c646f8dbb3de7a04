// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"go.yaml.in/yaml/v3"
)

// ExportEntry is one archived transcription in an export file. The HTML is
// omitted; exports carry the searchable text.
type ExportEntry struct {
	ID         string `json:"id" yaml:"id"`
	ManifestID string `json:"manifest_id" yaml:"manifest_id"`
	CanvasID   string `json:"canvas_id" yaml:"canvas_id"`
	Position   int    `json:"position" yaml:"position"`
	Edition    string `json:"edition" yaml:"edition"`
	Text       string `json:"text" yaml:"text"`
}

const exportLimit = 100000

// ExportYAML writes the archive to dataDir/index/export.yaml. It supports
// the same filters as Retrieve.
func (s *Store) ExportYAML(ctx context.Context, opts QueryOptions) error {
	entries, err := s.exportEntries(ctx, opts)
	if err != nil {
		return err
	}

	data, err := yaml.Marshal(entries)
	if err != nil {
		return fmt.Errorf("marshaling YAML: %w", err)
	}
	return os.WriteFile(s.ExportPath("yaml"), data, 0o644)
}

// ExportJSON writes the archive to dataDir/index/export.json. It supports
// the same filters as Retrieve.
func (s *Store) ExportJSON(ctx context.Context, opts QueryOptions) error {
	entries, err := s.exportEntries(ctx, opts)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling JSON: %w", err)
	}
	return os.WriteFile(s.ExportPath("json"), data, 0o644)
}

// ExportPath returns the export file path for the given extension.
func (s *Store) ExportPath(ext string) string {
	return filepath.Join(s.dataDir, indexDir, "export."+ext)
}

func (s *Store) exportEntries(ctx context.Context, opts QueryOptions) ([]ExportEntry, error) {
	if opts.MaxResults <= 0 {
		opts.MaxResults = exportLimit
	}
	results, err := s.Retrieve(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("querying for export: %w", err)
	}

	entries := make([]ExportEntry, len(results))
	for i, r := range results {
		entries[i] = ExportEntry{
			ID:         r.ID,
			ManifestID: r.ManifestID,
			CanvasID:   r.CanvasID,
			Position:   r.Position,
			Edition:    r.Edition,
			Text:       r.Text,
		}
	}
	return entries, nil
}
