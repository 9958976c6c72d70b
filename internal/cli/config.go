package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/whiterabbit74/stonks-sub003/config"
)

func newConfigCmd(rc *RootConfig) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Generate or validate run files",
		Long: `Manage run files.

Subcommands:
  init     - Generate a default run file
  validate - Validate an existing run file

Examples:
  stonks config init -o run.yaml
  stonks config validate -c run.yaml`,
	}
	cmd.AddCommand(newConfigInitCmd(), newConfigValidateCmd(rc))
	return cmd
}

func newConfigInitCmd() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Generate a default run file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.Default().SaveToFile(output); err != nil {
				return fmt.Errorf("save config: %w", err)
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "✓ Created default run file: %s\n", output)
			fmt.Fprintln(w, "\nEdit the file and run with:")
			fmt.Fprintf(w, "  stonks backtest -c %s\n", output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "run.yaml", "output run file path")
	return cmd
}

func newConfigValidateCmd(rc *RootConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "validate [file]",
		Short: "Validate a run file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := rc.ConfigPath
			if len(args) == 1 {
				path = args[0]
			}
			if path == "" {
				return fmt.Errorf("run file required (argument or --config)")
			}
			cfg, err := config.LoadFromFile(path)
			if err != nil {
				return fmt.Errorf("validation failed: %w", err)
			}

			w := cmd.OutOrStdout()
			s := cfg.Strategy
			fmt.Fprintf(w, "✓ Run file valid: %s\n", path)
			for _, in := range cfg.Instruments {
				fmt.Fprintf(w, "  Instrument: %s (%s)\n", in.ID, in.Bars)
			}
			fmt.Fprintf(w, "  Strategy: IBS < %.2f / > %.2f, max hold %d, capital $%.2f\n", s.LowIBS, s.HighIBS, s.MaxHoldDays, s.InitialCapital)
			fmt.Fprintf(w, "  Allocation: %s\n", s.Allocation.Kind)
			if cfg.Options != nil {
				fmt.Fprintf(w, "  Options: strike +%.0f%%, %d days, %.0f%% of cash\n", cfg.Options.StrikePct*100, cfg.Options.ExpiryDays, cfg.Options.CapitalPct)
			}
			fmt.Fprintf(w, "  Journal: %s\n", cfg.Journal.Type)
			return nil
		},
	}
}
