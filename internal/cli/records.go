package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"lawgpt/internal/app"
	"lawgpt/internal/bootstrap"
	"lawgpt/internal/model"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Manage NJDG statistics snapshots",
}

var statsAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Record one metric snapshot",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		metric, _ := cmd.Flags().GetString("metric")
		count, _ := cmd.Flags().GetInt64("count")
		rawAt, _ := cmd.Flags().GetString("fetched-at")
		fetchedAt, err := parseFetchedAt(rawAt)
		if err != nil {
			return err
		}

		return withApp(cmd, func(ctx context.Context, a *bootstrap.App) error {
			stat, err := a.Records.AddStat(ctx, app.StatInput{Metric: metric, Count: count, FetchedAt: fetchedAt})
			if err != nil {
				return err
			}
			if current.JSON {
				return printJSON(cmd.OutOrStdout(), stat)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s = %d as of %s\n",
				headingText("recorded"), stat.Metric, stat.Count, stat.FetchedAt.Format(time.RFC3339))
			return nil
		})
	},
}

var casesCmd = &cobra.Command{
	Use:   "cases",
	Short: "Manage eCourts case records",
}

var casesPutCmd = &cobra.Command{
	Use:   "put <cnr>",
	Short: "Create or replace a case record",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rec := model.CaseRecord{CNR: args[0]}
		rec.Petitioner, _ = cmd.Flags().GetString("petitioner")
		rec.Respondent, _ = cmd.Flags().GetString("respondent")
		rec.NextHearingDate, _ = cmd.Flags().GetString("next-hearing")
		rec.Stage, _ = cmd.Flags().GetString("stage")

		return withApp(cmd, func(ctx context.Context, a *bootstrap.App) error {
			saved, err := a.Records.PutCase(ctx, rec)
			if err != nil {
				return err
			}
			if current.JSON {
				return printJSON(cmd.OutOrStdout(), saved)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", headingText("saved"), saved.CNR)
			return nil
		})
	},
}

// parseFetchedAt accepts RFC 3339 or a plain date; empty means now.
func parseFetchedAt(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid --fetched-at %q: use 2006-01-02 or RFC 3339", raw)
}

func init() {
	statsAddCmd.Flags().String("metric", "", "metric name, e.g. \"Civil Cases Pending\"")
	statsAddCmd.Flags().Int64("count", 0, "metric value")
	statsAddCmd.Flags().String("fetched-at", "", "snapshot time (default now)")
	_ = statsAddCmd.MarkFlagRequired("metric")
	statsCmd.AddCommand(statsAddCmd)

	casesPutCmd.Flags().String("petitioner", "", "petitioner name")
	casesPutCmd.Flags().String("respondent", "", "respondent name")
	casesPutCmd.Flags().String("next-hearing", "", "next hearing date as shown by eCourts")
	casesPutCmd.Flags().String("stage", "", "current stage of the case")
	casesCmd.AddCommand(casesPutCmd)

	rootCmd.AddCommand(statsCmd, casesCmd)
}
