// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package viewer is the host side of the transcription resolver: it builds
// viewer state snapshots from manifests, resolves every open window, and
// shapes the results for the transcription panel and sidebar.
package viewer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.yaml.in/yaml/v3"
	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/eda-transcribe/pkg/types"
)

// maxConcurrentLoads bounds parallel manifest loads.
const maxConcurrentLoads = 4

// Loader reads a manifest from a file path or URL.
type Loader interface {
	Load(ctx context.Context, source string) (*types.ManifestDocument, error)
}

// Resolver returns the transcriptions for a window of a state snapshot.
type Resolver interface {
	Resolve(state *types.ManifestState, windowID string) []string
}

// NewWindowID returns a fresh window identifier.
func NewWindowID() string {
	return "window-" + uuid.NewString()
}

// NewWorkspace opens one window per entry of windows, loading each distinct
// manifest once. A window without a canvas shows its manifest's first canvas.
//
// Manifests that fail to load stay in the state without a document, so their
// windows resolve to no transcriptions. The returned error joins every load
// failure; the state is usable even when it is non-nil.
func NewWorkspace(ctx context.Context, loader Loader, windows []types.WindowConfig) (*types.ManifestState, error) {
	state := &types.ManifestState{
		Windows:   types.NewWindows(),
		Manifests: make(map[string]types.ManifestRecord),
	}

	var sources []string
	for _, w := range windows {
		if _, seen := state.Manifests[w.ManifestID]; !seen && w.ManifestID != "" {
			state.Manifests[w.ManifestID] = types.ManifestRecord{}
			sources = append(sources, w.ManifestID)
		}
	}

	var (
		mu   sync.Mutex
		errs []error
		g    errgroup.Group
	)
	g.SetLimit(maxConcurrentLoads)
	for _, src := range sources {
		g.Go(func() error {
			doc, err := loader.Load(ctx, src)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, fmt.Errorf("loading manifest %s: %w", src, err))
				return nil
			}
			state.Manifests[src] = types.ManifestRecord{JSON: doc}
			return nil
		})
	}
	g.Wait()

	for _, w := range windows {
		canvasID := w.CanvasID
		if canvasID == "" {
			if doc := state.Manifests[w.ManifestID].JSON; doc != nil && len(doc.Items) > 0 {
				canvasID = doc.Items[0].ID
			}
		}
		state.Windows.Set(NewWindowID(), types.Window{ManifestID: w.ManifestID, CanvasID: canvasID})
	}

	return state, errors.Join(errs...)
}

// LoadState reads a state snapshot file. Files ending in .yaml or .yml are
// parsed as YAML, everything else as JSON.
func LoadState(path string) (*types.ManifestState, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading state %s: %w", path, err)
	}

	var state types.ManifestState
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &state)
	default:
		err = json.Unmarshal(data, &state)
	}
	if err != nil {
		return nil, fmt.Errorf("parsing state %s: %w", path, err)
	}
	return &state, nil
}

// WindowResult holds the transcriptions resolved for one window.
type WindowResult struct {
	WindowID       string   `json:"window_id" yaml:"window_id"`
	ManifestID     string   `json:"manifest_id" yaml:"manifest_id"`
	CanvasID       string   `json:"canvas_id" yaml:"canvas_id"`
	Transcriptions []string `json:"transcriptions" yaml:"transcriptions"`
}

// ResolveAll resolves every window in state concurrently and returns the
// results in window order.
func ResolveAll(ctx context.Context, r Resolver, state *types.ManifestState) ([]WindowResult, error) {
	if state == nil {
		return nil, nil
	}

	ids := state.Windows.IDs()
	results := make([]WindowResult, len(ids))

	g, gctx := errgroup.WithContext(ctx)
	for i, id := range ids {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			win, _ := state.Windows.Get(id)
			results[i] = WindowResult{
				WindowID:       id,
				ManifestID:     win.ManifestID,
				CanvasID:       win.CanvasID,
				Transcriptions: r.Resolve(state, id),
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
