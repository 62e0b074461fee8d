package cli

import (
	"context"
	"strings"

	"github.com/spf13/cobra"

	"lawgpt/internal/app"
	"lawgpt/internal/bootstrap"
)

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Answer a question through the full pipeline",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		scope, _ := cmd.Flags().GetString("scope")
		channel, _ := cmd.Flags().GetString("channel")
		return withApp(cmd, func(ctx context.Context, a *bootstrap.App) error {
			res, err := a.Legal.Ask(ctx, app.AskInput{
				Question:         strings.Join(args, " "),
				DatasetScope:     scope,
				ChannelSessionID: channel,
			})
			if err != nil {
				return err
			}
			if current.JSON {
				return printJSON(cmd.OutOrStdout(), res)
			}
			renderAnswer(cmd.OutOrStdout(), res)
			return nil
		})
	},
}

func init() {
	askCmd.Flags().String("scope", "", "law book to search: constitution, criminal or all")
	askCmd.Flags().String("channel", "", "channel session id whose stored scope applies")
	rootCmd.AddCommand(askCmd)
}
