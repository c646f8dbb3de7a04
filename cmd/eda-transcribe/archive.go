// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/eda-transcribe/internal/archive"
	"github.com/pdiddy/eda-transcribe/internal/transcription"
	"github.com/pdiddy/eda-transcribe/pkg/types"
)

var archiveCmd = &cobra.Command{
	Use:   "archive",
	Short: "Manage the transcription archive (store, retrieve, export)",
	Long: `Archive manages a local SQLite archive of resolved transcriptions.
Use subcommands to index manifests, query transcriptions, or export them.`,
}

// --- store subcommand ---

var archiveStoreCmd = &cobra.Command{
	Use:   "store",
	Short: "Resolve every canvas of the loaded manifests and archive the results",
	Long: `Store loads the manifests named by --state, --manifest, or the configured
workspace, resolves the transcriptions of every canvas, and replaces the
archived transcriptions of each canvas. An export.yaml is written when at
least one canvas was indexed.`,
	RunE: runArchiveStore,
}

func runArchiveStore(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	state, err := stateFromFlags(ctx, cmd)
	if err != nil {
		return err
	}

	store, err := archiveStore(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	resolver := transcription.New(cfg.Resolver, transcription.WithLogger(logger))
	summary, err := store.Ingest(ctx, state, resolver, os.Stdout)
	if err != nil {
		return err
	}
	if summary.Failed > 0 {
		return fmt.Errorf("%d canvas(es) failed indexing", summary.Failed)
	}
	return nil
}

// --- retrieve subcommand ---

var archiveRetrieveCmd = &cobra.Command{
	Use:   "retrieve [query]",
	Short: "Query the archive with full-text search and filters",
	Long: `Retrieve searches archived transcriptions using FTS5 full-text search,
structured filters (edition, manifest, canvas), or a combination of both.

Use --id to print the HTML of a single transcription.`,
	RunE: runArchiveRetrieve,
}

func runArchiveRetrieve(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	id, _ := cmd.Flags().GetString("id")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	store, err := archiveStore(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	if id != "" {
		t, err := store.Lookup(ctx, id)
		if err != nil {
			return err
		}
		if jsonOutput {
			return writeJSON(t)
		}
		fmt.Println(t.HTML)
		return nil
	}

	opts := archiveQueryFromFlags(cmd, args)
	if opts.IsEmpty() {
		return fmt.Errorf("query or filter required: provide a search query, --edition, --manifest, or --canvas")
	}

	results, err := store.Retrieve(ctx, opts)
	if err != nil {
		return err
	}
	if jsonOutput {
		return writeJSON(results)
	}
	return formatArchiveResults(results)
}

func formatArchiveResults(results []types.Transcription) error {
	if len(results) == 0 {
		fmt.Println("No results found.")
		return nil
	}

	fmt.Fprintf(os.Stdout, "%-4s  %-16s  %-24s  %-30s  %s\n",
		"Rank", "ID", "Edition", "Canvas", "Text")
	fmt.Fprintln(os.Stdout, strings.Repeat("-", 110))

	for i, t := range results {
		fmt.Fprintf(os.Stdout, "%-4d  %-16s  %-24s  %-30s  %s\n",
			i+1, t.ID, truncate(t.Edition, 24), truncate(t.CanvasID, 30), truncate(t.Text, 40))
	}

	fmt.Fprintf(os.Stdout, "\n%d results\n", len(results))
	return nil
}

// --- export subcommand ---

var archiveExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the archive to YAML or JSON",
	Long: `Export writes the archive (or a filtered subset) to index/export.yaml
or index/export.json under the archive directory. Supports the same filter
flags as retrieve for partial exports.`,
	RunE: runArchiveExport,
}

func runArchiveExport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	format, _ := cmd.Flags().GetString("format")

	store, err := archiveStore(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	opts := archiveQueryFromFlags(cmd, args)

	switch format {
	case "yaml", "":
		if err := store.ExportYAML(ctx, opts); err != nil {
			return err
		}
		fmt.Println("Exported to", store.ExportPath("yaml"))
	case "json":
		if err := store.ExportJSON(ctx, opts); err != nil {
			return err
		}
		fmt.Println("Exported to", store.ExportPath("json"))
	default:
		return fmt.Errorf("unsupported format %q: use yaml or json", format)
	}

	return nil
}

// --- shared helpers ---

func archiveStore(cmd *cobra.Command) (*archive.Store, error) {
	c := cfg.Archive
	if dir, _ := cmd.Flags().GetString("archive-dir"); dir != "" {
		c.DataDir = dir
	}
	if n, _ := cmd.Flags().GetInt("max-results"); n > 0 {
		c.MaxResults = n
	}
	return archive.NewStore(c)
}

func archiveQueryFromFlags(cmd *cobra.Command, args []string) archive.QueryOptions {
	queryText, _ := cmd.Flags().GetString("query")
	if queryText == "" && len(args) > 0 {
		queryText = strings.Join(args, " ")
	}
	edition, _ := cmd.Flags().GetString("edition")
	manifestID, _ := cmd.Flags().GetString("manifest")
	canvasID, _ := cmd.Flags().GetString("canvas")
	limit, _ := cmd.Flags().GetInt("limit")

	return archive.QueryOptions{
		Query:      queryText,
		Edition:    edition,
		ManifestID: manifestID,
		CanvasID:   canvasID,
		MaxResults: limit,
	}
}

func writeJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

func init() {
	// Shared flags on the parent command, inherited by subcommands.
	archiveCmd.PersistentFlags().String("archive-dir", "", "base directory for the archive (contains index/)")
	archiveCmd.PersistentFlags().Int("max-results", 0, "maximum number of query results (0 = config default)")

	addStateFlags(archiveStoreCmd)

	// Retrieve flags.
	archiveRetrieveCmd.Flags().String("query", "", "full-text search query")
	archiveRetrieveCmd.Flags().String("edition", "", "filter by edition label")
	archiveRetrieveCmd.Flags().String("manifest", "", "filter by manifest id")
	archiveRetrieveCmd.Flags().String("canvas", "", "filter by canvas id")
	archiveRetrieveCmd.Flags().Int("limit", 0, "maximum results (0 = use default)")
	archiveRetrieveCmd.Flags().String("id", "", "print a single transcription by id")
	archiveRetrieveCmd.Flags().Bool("json", false, "output results as JSON")

	// Export flags.
	archiveExportCmd.Flags().String("format", "yaml", "export format: yaml or json")
	archiveExportCmd.Flags().String("query", "", "full-text search filter for partial export")
	archiveExportCmd.Flags().String("edition", "", "filter by edition for partial export")
	archiveExportCmd.Flags().String("manifest", "", "filter by manifest id for partial export")
	archiveExportCmd.Flags().String("canvas", "", "filter by canvas id for partial export")
	archiveExportCmd.Flags().Int("limit", 0, "maximum transcriptions to export (0 = all)")

	// Wire subcommands.
	archiveCmd.AddCommand(archiveStoreCmd)
	archiveCmd.AddCommand(archiveRetrieveCmd)
	archiveCmd.AddCommand(archiveExportCmd)

	rootCmd.AddCommand(archiveCmd)
}
