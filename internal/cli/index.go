package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"lawgpt/internal/bootstrap"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Inspect the passage store",
}

type indexStats struct {
	Backend    string `json:"backend"`
	Documents  int64  `json:"documents"`
	Indexed    int    `json:"indexed,omitempty"`
	Dimensions int    `json:"dimensions"`
}

var indexStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show passage counts and vector dimensions",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *bootstrap.App) error {
			n, err := a.Corpus.Count(ctx)
			if err != nil {
				return err
			}
			st := indexStats{
				Backend:    a.Config.Retrieval.VectorBackend,
				Documents:  n,
				Dimensions: a.Config.LLM.EmbeddingDimensions,
			}
			if a.Index != nil {
				st.Indexed = a.Index.Len()
				st.Dimensions = a.Index.Dimensions()
			}
			if current.JSON {
				return printJSON(cmd.OutOrStdout(), st)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", headingText("backend"), st.Backend)
			fmt.Fprintf(cmd.OutOrStdout(), "%s %d\n", headingText("documents"), st.Documents)
			if a.Index != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "%s %d\n", headingText("indexed"), st.Indexed)
				if int64(st.Indexed) < st.Documents {
					fmt.Fprintln(cmd.OutOrStdout(), noticeText("some passages have no usable embedding; re-ingest them"))
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %d\n", headingText("dimensions"), st.Dimensions)
			return nil
		})
	},
}

func init() {
	indexCmd.AddCommand(indexStatsCmd)
	rootCmd.AddCommand(indexCmd)
}
