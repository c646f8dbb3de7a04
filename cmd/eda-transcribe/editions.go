// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/pdiddy/eda-transcribe/internal/archive"
	"github.com/pdiddy/eda-transcribe/internal/transcription"
	"github.com/pdiddy/eda-transcribe/internal/viewer"
)

var editionsCmd = &cobra.Command{
	Use:   "editions",
	Short: "List the editions available for each window, or in the archive",
	Long: `Editions prints the edition labels the transcription panel would offer
for each window. With --archive it lists every edition stored in the
archive with its transcription count instead.`,
	RunE: runEditions,
}

func init() {
	addStateFlags(editionsCmd)
	editionsCmd.Flags().Bool("archive", false, "list editions stored in the archive")

	rootCmd.AddCommand(editionsCmd)
}

func runEditions(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	if fromArchive, _ := cmd.Flags().GetBool("archive"); fromArchive {
		store, err := archive.NewStore(cfg.Archive)
		if err != nil {
			return err
		}
		defer store.Close()

		counts, err := store.Editions(ctx)
		if err != nil {
			return err
		}
		names := make([]string, 0, len(counts))
		for name := range counts {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprintf(os.Stdout, "%-40s  %d\n", name, counts[name])
		}
		fmt.Fprintf(os.Stdout, "\n%d editions\n", len(names))
		return nil
	}

	state, err := stateFromFlags(ctx, cmd)
	if err != nil {
		return err
	}
	resolver := transcription.New(cfg.Resolver, transcription.WithLogger(logger))
	results, err := viewer.ResolveAll(ctx, resolver, state)
	if err != nil {
		return err
	}

	for _, r := range results {
		labels := transcription.Editions(r.Transcriptions)
		fmt.Fprintf(os.Stdout, "%s  %s  %s  (%d)\n", r.WindowID, r.ManifestID, r.CanvasID, len(labels))
		for i, label := range labels {
			fmt.Fprintf(os.Stdout, "  [%d] %s\n", i, label)
		}
	}
	return nil
}
