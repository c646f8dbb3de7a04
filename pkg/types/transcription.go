// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// Transcription is one resolved edition on one canvas, as stored in the
// transcription archive.
type Transcription struct {
	// ID is stable across re-indexing of the same manifest, canvas, and edition.
	ID string `json:"id" yaml:"id"`

	ManifestID string `json:"manifest_id" yaml:"manifest_id"`
	CanvasID   string `json:"canvas_id" yaml:"canvas_id"`

	// Position is the zero-based order of the edition on its canvas.
	Position int `json:"position" yaml:"position"`

	// Edition is the edition label, "Unknown Edition" when the fragment has none.
	Edition string `json:"edition" yaml:"edition"`

	// HTML is the resolved transcription fragment.
	HTML string `json:"html" yaml:"html"`

	// Text is the normalized plain text of HTML used for full-text search.
	Text string `json:"text" yaml:"text"`

	// IndexedAt is when the canvas was last indexed.
	IndexedAt time.Time `json:"indexed_at" yaml:"indexed_at"`
}
