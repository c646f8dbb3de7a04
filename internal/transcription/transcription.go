// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package transcription extracts Emily Dickinson Archive transcriptions from a
// viewer state snapshot. It finds the HTML annotation bodies on a window's
// current canvas, groups them by edition, and merges editions that are split
// across several annotations into a single fragment.
//
// Resolution never fails. A snapshot that does not lead to a canvas with
// transcriptions yields an empty result, because transcriptions are an
// optional enrichment of the viewer.
package transcription

import (
	"errors"
	"log/slog"
	"strings"

	"github.com/pdiddy/eda-transcribe/pkg/types"
)

// Option configures a Resolver.
type Option func(*Resolver)

// WithLogger sets the logger used to report merge failures.
func WithLogger(l *slog.Logger) Option {
	return func(r *Resolver) {
		if l != nil {
			r.logger = l
		}
	}
}

// Resolver turns viewer state into per-edition transcription fragments.
// A Resolver holds no mutable state and is safe for concurrent use.
type Resolver struct {
	format string
	marker string
	logger *slog.Logger
}

// New creates a Resolver matching the body format and exhibit in cfg. Empty
// fields fall back to types.DefaultBodyFormat and types.DefaultExhibit.
func New(cfg types.ResolverConfig, opts ...Option) *Resolver {
	format := cfg.BodyFormat
	if format == "" {
		format = types.DefaultBodyFormat
	}
	exhibit := cfg.Exhibit
	if exhibit == "" {
		exhibit = types.DefaultExhibit
	}

	r := &Resolver{
		format: format,
		marker: exhibitAttr + `="` + exhibit + `"`,
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

var defaultResolver = New(types.ResolverConfig{})

// Resolve resolves transcriptions with the default markers.
func Resolve(state *types.ManifestState, windowID string) []string {
	return defaultResolver.Resolve(state, windowID)
}

// Resolve returns the transcriptions on the current canvas of the window
// identified by windowID, one entry per edition in the order editions first
// appear. An empty or unknown windowID selects the first window in state.
func (r *Resolver) Resolve(state *types.ManifestState, windowID string) []string {
	canvas, ok := currentCanvas(state, windowID)
	if !ok {
		return []string{}
	}
	return r.ResolveCanvas(canvas)
}

// ResolveCanvas returns the per-edition transcriptions of a single canvas.
func (r *Resolver) ResolveCanvas(canvas types.Canvas) []string {
	groups := groupByEdition(r.Fragments(canvas))
	out := make([]string, 0, len(groups))
	for _, g := range groups {
		if html, ok := r.combine(g); ok {
			out = append(out, html)
		}
	}
	return out
}

// Fragments returns the transcription fragments on canvas in page order,
// then item order within each page.
func (r *Resolver) Fragments(canvas types.Canvas) []string {
	var fragments []string
	for _, page := range canvas.Annotations {
		for _, anno := range page.Items {
			if r.IsFragment(anno.Body) {
				fragments = append(fragments, anno.Body.Value)
			}
		}
	}
	return fragments
}

// IsFragment reports whether body is an HTML transcription belonging to the
// configured exhibit. Recognition looks only at the body content.
func (r *Resolver) IsFragment(body *types.Body) bool {
	if body == nil || body.Format != r.format || body.Value == "" {
		return false
	}
	return strings.Contains(body.Value, r.marker)
}

func (r *Resolver) combine(g *editionGroup) (string, bool) {
	if len(g.fragments) == 1 {
		return g.fragments[0], true
	}

	merged, err := Merge(g.fragments)
	switch {
	case err == nil:
		return merged, true
	case errors.Is(err, ErrNoRoot):
		r.logger.Debug("skipping edition without transcription root",
			"edition", g.name, "fragments", len(g.fragments))
		return "", false
	default:
		r.logger.Error("merging transcription fragments",
			"edition", g.name, "fragments", len(g.fragments), "error", err)
		return g.fragments[0], true
	}
}

type editionGroup struct {
	name      string
	fragments []string
}

// groupByEdition groups fragments by edition name, keeping the order in
// which each edition and each fragment was first seen.
func groupByEdition(fragments []string) []*editionGroup {
	index := make(map[string]*editionGroup)
	var groups []*editionGroup
	for _, f := range fragments {
		name := EditionName(f)
		g, ok := index[name]
		if !ok {
			g = &editionGroup{name: name}
			index[name] = g
			groups = append(groups, g)
		}
		g.fragments = append(g.fragments, f)
	}
	return groups
}

// currentCanvas walks state from the window to its current canvas. Each step
// reports false when the link it follows is missing.
func currentCanvas(state *types.ManifestState, windowID string) (types.Canvas, bool) {
	win, ok := targetWindow(state, windowID)
	if !ok || win.CanvasID == "" {
		return types.Canvas{}, false
	}
	doc, ok := windowManifest(state, win)
	if !ok {
		return types.Canvas{}, false
	}
	return findCanvas(doc, win.CanvasID)
}

func targetWindow(state *types.ManifestState, windowID string) (types.Window, bool) {
	if state == nil {
		return types.Window{}, false
	}
	if windowID != "" {
		if win, ok := state.Windows.Get(windowID); ok {
			return win, true
		}
	}
	_, win, ok := state.Windows.First()
	return win, ok
}

func windowManifest(state *types.ManifestState, win types.Window) (*types.ManifestDocument, bool) {
	if win.ManifestID == "" {
		return nil, false
	}
	rec, ok := state.Manifests[win.ManifestID]
	if !ok || rec.JSON == nil {
		return nil, false
	}
	return rec.JSON, true
}

func findCanvas(doc *types.ManifestDocument, canvasID string) (types.Canvas, bool) {
	for _, c := range doc.Items {
		if c.ID == canvasID {
			return c, true
		}
	}
	return types.Canvas{}, false
}
