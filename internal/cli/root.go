// Package cli is the stonks command line.
package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/whiterabbit74/stonks-sub003/backtest"
	"github.com/whiterabbit74/stonks-sub003/internal/logging"
	"github.com/whiterabbit74/stonks-sub003/market"
	"github.com/whiterabbit74/stonks-sub003/strategy"
)

// Version is set at build time with -ldflags.
var Version = "dev"

// RootConfig holds the persistent flags shared by every subcommand.
type RootConfig struct {
	ConfigPath string
	DBPath     string
	LogLevel   string
	Addr       string
	EnvFile    string

	Log *logrus.Logger
}

// envFlags maps environment variables onto persistent flags they fill
// when the flag was not given.
var envFlags = map[string]string{
	"STONKS_DB":        "db",
	"STONKS_LOG_LEVEL": "log-level",
	"STONKS_ADDR":      "addr",
}

func NewRootCmd() *cobra.Command {
	rc := &RootConfig{}

	cmd := &cobra.Command{
		Use:           "stonks",
		Short:         "stonks: IBS mean-reversion backtests, options overlay and run journal",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global / persistent flags
	cmd.PersistentFlags().StringVarP(&rc.ConfigPath, "config", "c", "", "Path to run file (YAML or JSON)")
	cmd.PersistentFlags().StringVar(&rc.DBPath, "db", "./stonks.db", "SQLite journal database")
	cmd.PersistentFlags().StringVar(&rc.LogLevel, "log-level", "info", "Log level: debug|info|warn|error")
	cmd.PersistentFlags().StringVar(&rc.Addr, "addr", ":8080", "Listen address for serve")
	cmd.PersistentFlags().StringVar(&rc.EnvFile, "env-file", ".env", "Environment file loaded before flags are read")

	cmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if err := loadEnv(rc.EnvFile, cmd.Flags()); err != nil {
			return err
		}
		log, err := logging.New(rc.LogLevel, cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		rc.Log = log
		return nil
	}

	// Subcommands
	cmd.AddCommand(
		newBacktestCmd(rc),
		newConfigCmd(rc),
		newRunsCmd(rc),
		newServeCmd(rc),
	)

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "stonks (%s)\n", Version)
		},
	})

	return cmd
}

// loadEnv reads the env file if it exists, then copies STONKS_* variables
// into flags the user did not set.
func loadEnv(path string, flags *pflag.FlagSet) error {
	if path != "" {
		if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", path, err)
		}
	}
	for env, name := range envFlags {
		v, ok := os.LookupEnv(env)
		if !ok || v == "" {
			continue
		}
		f := flags.Lookup(name)
		if f == nil || f.Changed {
			continue
		}
		if err := f.Value.Set(v); err != nil {
			return fmt.Errorf("%s: %w", env, err)
		}
	}
	return nil
}

// ExitCode maps an error to the process exit status: 2 for bad
// configuration, 3 for unusable data, 1 otherwise.
func ExitCode(err error) int {
	var cfgErr *strategy.ConfigurationError
	var dataErr *market.DataValidityError
	switch {
	case err == nil:
		return 0
	case errors.As(err, &cfgErr):
		return 2
	case errors.As(err, &dataErr), errors.Is(err, backtest.ErrNoBars):
		return 3
	default:
		return 1
	}
}

func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(ExitCode(err))
	}
}
