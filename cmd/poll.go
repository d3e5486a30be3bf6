package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/example/ikon-notifier/internal/browser"
	"github.com/example/ikon-notifier/internal/config"
	"github.com/example/ikon-notifier/internal/ikon"
	"github.com/example/ikon-notifier/internal/notify"
	"github.com/example/ikon-notifier/internal/poller"
	"github.com/spf13/cobra"
)

func newPollCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "poll",
		Short: "Run one polling cycle over the pending subscription ledger",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.FromEnv()
			if err != nil {
				return err
			}
			if err := cfg.RequireAccount(); err != nil {
				return err
			}
			if err := cfg.RequireSMTP(); err != nil {
				return err
			}

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			cycle := &poller.Cycle{
				Auth: newAuthenticator(cfg),
				Sender: notify.NewSMTPSender(notify.SMTPConfig{
					Host:     cfg.SMTPHost,
					Port:     cfg.SMTPPort,
					Username: cfg.SMTPUsername,
					Password: cfg.SMTPPassword,
				}),
				LedgerPath: cfg.LedgerPath,
				FromAddr:   cfg.FromAddr,
			}
			return cycle.Run(ctx)
		},
	}
}

func newAuthenticator(cfg config.Config) *ikon.Authenticator {
	a := &ikon.Authenticator{
		Client: ikon.NewClient(cfg.BaseURL),
		Source: &browser.Acquirer{
			LoginURL: cfg.LoginURL,
			Origin:   cfg.BaseURL,
			Timeout:  cfg.BrowserTimeout,
			ExecPath: cfg.ChromePath,
		},
		Creds: ikon.Credentials{Email: cfg.IkonEmail, Password: cfg.IkonPassword},
	}
	if cfg.SessionCacheEnabled() {
		a.Cache = ikon.NewSessionCache(cfg.SessionCachePath, cfg.SessionHashKey, cfg.SessionBlockKey)
	}
	return a
}
