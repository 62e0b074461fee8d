package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"lawgpt/internal/bootstrap"
)

var operatorCmd = &cobra.Command{
	Use:   "operator",
	Short: "Manage admin API operators",
}

var operatorAddCmd = &cobra.Command{
	Use:   "add <username>",
	Short: "Create an operator account",
	Long:  "Create an operator account. The password comes from --password or LAWCTL_PASSWORD.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		password := viper.GetString("password")
		if password == "" {
			return errors.New("a password is required (--password or LAWCTL_PASSWORD)")
		}
		return withApp(cmd, func(ctx context.Context, a *bootstrap.App) error {
			op, err := a.Auth.CreateOperator(ctx, args[0], password)
			if err != nil {
				return err
			}
			if current.JSON {
				return printJSON(cmd.OutOrStdout(), op)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s operator %s (id %d)\n", headingText("created"), op.Username, op.ID)
			return nil
		})
	},
}

func init() {
	operatorAddCmd.Flags().String("password", "", "password, at least 8 characters")
	_ = viper.BindPFlag("password", operatorAddCmd.Flags().Lookup("password"))
	operatorCmd.AddCommand(operatorAddCmd)
	rootCmd.AddCommand(operatorCmd)
}
