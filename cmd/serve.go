package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/example/ikon-notifier/internal/config"
	"github.com/example/ikon-notifier/internal/web"
	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the subscription web UI",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.FromEnv()
			if err != nil {
				return err
			}
			if err := cfg.RequireAccount(); err != nil {
				return err
			}

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			// One authenticated fetch at startup; handlers work off this
			// snapshot for the lifetime of the server.
			sess, err := newAuthenticator(cfg).Establish(ctx)
			if err != nil {
				return fmt.Errorf("establish platform session: %w", err)
			}
			resorts, err := sess.ListResorts(ctx)
			if err != nil {
				return fmt.Errorf("fetch resorts: %w", err)
			}

			ws := &web.Server{Resorts: resorts, LedgerPath: cfg.LedgerPath}
			return web.Start(ctx, cfg.ListenAddr, ws.Routes())
		},
	}
}
