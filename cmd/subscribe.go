package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/example/ikon-notifier/internal/config"
	"github.com/example/ikon-notifier/internal/ledger"
	"github.com/example/ikon-notifier/internal/web"
	"github.com/spf13/cobra"
)

func newSubscribeCmd() *cobra.Command {
	var (
		email    string
		resortID int
		dateStr  string
	)

	c := &cobra.Command{
		Use:   "subscribe",
		Short: "Append a notification request to the ledger (non-UI)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.FromEnv()
			if err != nil {
				return err
			}

			date, err := web.ParseDate(dateStr)
			if err != nil {
				return fmt.Errorf("invalid --date (want YYYY-MM-DD or MM/DD/YY)")
			}

			sub := ledger.Subscription{
				Email:       email,
				ResortID:    resortID,
				DesiredDate: date,
				CreatedAt:   time.Now(),
			}
			if err := ledger.Append(cfg.LedgerPath, sub); err != nil {
				return err
			}
			fmt.Fprintf(os.Stdout, "saved notification request: %s\n", sub.Line())
			return nil
		},
	}

	c.Flags().StringVar(&email, "email", "", "address to notify")
	c.Flags().IntVar(&resortID, "resort-id", 0, "ikon resort id")
	c.Flags().StringVar(&dateStr, "date", "", "reservation date to watch")

	_ = c.MarkFlagRequired("email")
	_ = c.MarkFlagRequired("resort-id")
	_ = c.MarkFlagRequired("date")
	return c
}
