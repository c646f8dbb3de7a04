// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/eda-transcribe/internal/manifest"
	"github.com/pdiddy/eda-transcribe/internal/transcription"
	"github.com/pdiddy/eda-transcribe/internal/viewer"
	"github.com/pdiddy/eda-transcribe/pkg/types"
)

var resolveCmd = &cobra.Command{
	Use:   "resolve",
	Short: "Print the EDA transcriptions of the current canvas of each window",
	Long: `Resolve reads a viewer state snapshot, or loads manifests into a new
workspace, and prints the transcriptions found on the current canvas of
each window: one entry per edition, in the order editions first appear.

Without --window every window is resolved. An unknown --window falls back
to the first window of the state. --index selects which edition is shown;
the default is the first. --linebreaks and --hide-edits set the panel's
display toggles, which are rendered as classes of the enclosing section.`,
	RunE: runResolve,
}

func init() {
	addStateFlags(resolveCmd)
	resolveCmd.Flags().String("window", "", "resolve only this window id")
	resolveCmd.Flags().Int("index", 0, "edition to display in text output (0-based)")
	resolveCmd.Flags().Bool("json", false, "output all results as JSON")
	resolveCmd.Flags().Bool("linebreaks", true, "show physical line breaks in text output")
	resolveCmd.Flags().Bool("hide-edits", false, "hide editorial insertions in text output")

	rootCmd.AddCommand(resolveCmd)
}

func runResolve(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	windowID, _ := cmd.Flags().GetString("window")
	jsonOutput, _ := cmd.Flags().GetBool("json")
	index, _ := cmd.Flags().GetInt("index")
	display := displayOptions{index: index}
	display.linebreaks, _ = cmd.Flags().GetBool("linebreaks")
	display.hideEdits, _ = cmd.Flags().GetBool("hide-edits")

	state, err := stateFromFlags(ctx, cmd)
	if err != nil {
		return err
	}

	resolver := transcription.New(cfg.Resolver, transcription.WithLogger(logger))

	var results []viewer.WindowResult
	if windowID != "" {
		results = []viewer.WindowResult{resolveWindow(resolver, state, windowID)}
	} else {
		results, err = viewer.ResolveAll(ctx, resolver, state)
		if err != nil {
			return err
		}
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}
	return printPanels(os.Stdout, results, display)
}

// resolveWindow resolves a single window. An unknown id is reported under
// the first window, which is the one the resolver falls back to.
func resolveWindow(r viewer.Resolver, state *types.ManifestState, windowID string) viewer.WindowResult {
	id := windowID
	win, ok := state.Windows.Get(windowID)
	if !ok {
		if firstID, first, found := state.Windows.First(); found {
			logger.Warn("unknown window, using first window", "window", windowID, "first", firstID)
			id, win = firstID, first
		}
	}
	return viewer.WindowResult{
		WindowID:       id,
		ManifestID:     win.ManifestID,
		CanvasID:       win.CanvasID,
		Transcriptions: r.Resolve(state, windowID),
	}
}

// displayOptions holds the panel settings chosen on the command line.
type displayOptions struct {
	index      int
	linebreaks bool
	hideEdits  bool
}

// printPanels renders the transcription panel of each window as text.
func printPanels(w io.Writer, results []viewer.WindowResult, opts displayOptions) error {
	if len(results) == 0 {
		fmt.Fprintln(w, "No windows.")
		return nil
	}

	for i, r := range results {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "%s  %s  %s\n", r.WindowID, r.ManifestID, r.CanvasID)
		fmt.Fprintln(w, strings.Repeat("-", 80))

		panel := viewer.NewPanel(r.Transcriptions)
		fmt.Fprintln(w, viewer.PanelTitle)
		if panel.Empty() {
			fmt.Fprintln(w, panel.Message())
			continue
		}
		if !panel.Select(opts.index) {
			return fmt.Errorf("window %s: edition index %d out of range (%d editions)",
				r.WindowID, opts.index, len(r.Transcriptions))
		}
		panel.SetShowLinebreaks(opts.linebreaks)
		panel.SetHideEdits(opts.hideEdits)

		for j, label := range panel.Options() {
			marker := " "
			if j == panel.Selected() {
				marker = "*"
			}
			fmt.Fprintf(w, "%s [%d] %s\n", marker, j, label)
		}
		if panel.SelectorDisabled() {
			fmt.Fprintln(w, "  (single edition)")
		}
		fmt.Fprintln(w)
		fmt.Fprintf(w, "<section class=%q>\n%s\n</section>\n", panel.SectionClasses(), panel.Current())
	}
	return nil
}

// --- shared state flags ---

func addStateFlags(cmd *cobra.Command) {
	cmd.Flags().String("state", "", "viewer state snapshot file (JSON or YAML)")
	cmd.Flags().String("manifest", "", "manifest file path or URL to open in a single window")
	cmd.Flags().String("canvas", "", "canvas id for --manifest (default: first canvas)")
}

// stateFromFlags builds the viewer state from --state, --manifest, or the
// configured workspace, in that order of preference. Manifest load failures
// are logged; the remaining windows still resolve.
func stateFromFlags(ctx context.Context, cmd *cobra.Command) (*types.ManifestState, error) {
	statePath, _ := cmd.Flags().GetString("state")
	if statePath != "" {
		return viewer.LoadState(statePath)
	}

	windows := cfg.Workspace.Windows
	if source, _ := cmd.Flags().GetString("manifest"); source != "" {
		canvasID, _ := cmd.Flags().GetString("canvas")
		windows = []types.WindowConfig{{ManifestID: source, CanvasID: canvasID}}
	}
	if len(windows) == 0 {
		return nil, fmt.Errorf("provide --state, --manifest, or workspace.windows in the config file")
	}

	loader := manifest.NewLoader(cfg.Fetch, nil)
	state, err := viewer.NewWorkspace(ctx, loader, windows)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		logger.Warn("some manifests failed to load", "error", err)
	}
	for _, w := range windows {
		if until, ok := loader.Cached(w.ManifestID); ok {
			logger.Debug("manifest cached", "manifest", w.ManifestID, "until", until)
		}
	}
	return state, nil
}
