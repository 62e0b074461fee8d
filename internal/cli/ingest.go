package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"lawgpt/internal/app"
	"lawgpt/internal/bootstrap"
	"lawgpt/internal/pkg/chunker"
	"lawgpt/internal/storage"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <path-or-key>",
	Short: "Split, embed and index a law book",
	Long: `Ingest reads a PDF or text law book, splits it by Article or Section
headings, embeds the passages and writes them to the configured store.

A path that exists on local disk is first copied into the configured file
storage; anything else is treated as a key already in that storage.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		source, _ := cmd.Flags().GetString("source")
		rawKind, _ := cmd.Flags().GetString("kind")
		kind, err := chunker.ParseKind(rawKind)
		if err != nil {
			return err
		}

		return withApp(cmd, func(ctx context.Context, a *bootstrap.App) error {
			key, err := stageSource(ctx, a.Files, args[0])
			if err != nil {
				return err
			}
			if source == "" {
				source = storage.DisplayName(args[0])
			}
			res, err := a.Ingest.Ingest(ctx, app.IngestInput{Key: key, Source: source, Kind: kind})
			if err != nil {
				return err
			}
			if current.JSON {
				return printJSON(cmd.OutOrStdout(), res)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s: %d pages, %d passages (key %s)\n",
				headingText("ingested"), res.Source, res.Pages, res.Chunks, key)
			return nil
		})
	},
}

// stageSource copies a local file into storage and returns its key.
func stageSource(ctx context.Context, files storage.Storage, arg string) (string, error) {
	info, err := os.Stat(arg)
	if err != nil || info.IsDir() {
		return arg, nil
	}
	f, err := os.Open(arg)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", arg, err)
	}
	defer f.Close()
	return files.Save(ctx, filepath.Base(arg), f)
}

func init() {
	ingestCmd.Flags().String("source", "", "display label stored with every passage (default: file name)")
	ingestCmd.Flags().String("kind", "generic", "heading style: constitution, criminal or generic")
	rootCmd.AddCommand(ingestCmd)
}
