// Package cli implements lawctl, the operator command line for the corpus,
// the structured records and one-off questions.
package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"lawgpt/internal/bootstrap"
	"lawgpt/internal/config"
	"lawgpt/internal/logging"
)

// Settings is the merged view of lawctl's global flags
// (flags > LAWCTL_* environment > defaults).
type Settings struct {
	ConfigFile string `mapstructure:"config"`
	LogLevel   string `mapstructure:"log-level"`
	JSON       bool   `mapstructure:"json"`
}

var current Settings

var rootCmd = &cobra.Command{
	Use:           "lawctl",
	Short:         "lawctl manages the LawGPT corpus and records",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var s Settings
		if err := viper.Unmarshal(&s); err != nil {
			return fmt.Errorf("unmarshal settings: %w", err)
		}
		current = s

		// config.Load reads the TOML path from CONFIG_FILE.
		if s.ConfigFile != "" {
			if err := os.Setenv("CONFIG_FILE", s.ConfigFile); err != nil {
				return err
			}
		}
		logging.Init(s.LogLevel)
		return nil
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, errorText("error:"), err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringP("config", "c", "", "TOML config file (default configs/config.toml)")
	rootCmd.PersistentFlags().String("log-level", "warn", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().Bool("json", false, "print results as JSON")

	for _, name := range []string{"config", "log-level", "json"} {
		_ = viper.BindPFlag(name, rootCmd.PersistentFlags().Lookup(name))
	}
	viper.SetEnvPrefix("LAWCTL")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

// withApp loads the service configuration, wires the backends without the
// queue consumers and closes everything when fn returns.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, app *bootstrap.App) error) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config failed: %w", err)
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	app, err := bootstrap.New(ctx, cfg, bootstrap.WithoutWorkers())
	if err != nil {
		return err
	}
	defer app.Close()
	return fn(ctx, app)
}
