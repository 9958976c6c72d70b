package cli

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/whiterabbit74/stonks-sub003/internal/api"
)

func newServeCmd(rc *RootConfig) *cobra.Command {
	var (
		origins   []string
		noJournal bool
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API",
		Long: `Serve runs backtests posted as JSON and exposes the run journal.

Example:
  stonks serve --addr :8080 --db stonks.db --origin http://localhost:5173`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if rc.LogLevel != "debug" {
				gin.SetMode(gin.ReleaseMode)
			}
			opts := []api.Option{api.WithLogger(rc.Log), api.WithOrigins(origins...)}
			if !noJournal {
				j, err := openStore(rc)
				if err != nil {
					return err
				}
				defer j.Close()
				opts = append(opts, api.WithStore(j))
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return api.NewServer(opts...).Run(ctx, rc.Addr)
		},
	}
	cmd.Flags().StringSliceVar(&origins, "origin", nil, "allowed CORS origin (repeatable, default any)")
	cmd.Flags().BoolVar(&noJournal, "no-journal", false, "serve without a run journal")
	return cmd
}
