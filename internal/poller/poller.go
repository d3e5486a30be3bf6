// Package poller runs one reconciliation cycle: authenticate against the
// platform, fetch the resort list, classify every pending subscription and
// commit the surviving subset as the next ledger generation. Scheduling
// repeated cycles (cron, systemd timer) is the deployment's job; cycles must
// never overlap, since two writers would race the ledger rename.
package poller

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/example/ikon-notifier/internal/availability"
	"github.com/example/ikon-notifier/internal/ikon"
	"github.com/example/ikon-notifier/internal/ledger"
	"github.com/example/ikon-notifier/internal/notify"
)

// One refresh-and-retry per entry; a second failure on the same entry means
// the session is systemically broken, and carrying on would silently skip
// every remaining subscription.
const maxEntryFetchAttempts = 2

// SessionSource hands the cycle its authenticated session and replaces it
// when a call made with the current one starts being rejected.
type SessionSource interface {
	Establish(ctx context.Context) (*ikon.Session, error)
	Refresh(ctx context.Context) (*ikon.Session, error)
}

type Cycle struct {
	Auth       SessionSource
	Sender     notify.Sender
	LedgerPath string
	FromAddr   string
}

// Run executes one full cycle. Any error before Commit leaves the canonical
// ledger byte-for-byte untouched and creates no backup file.
func (c *Cycle) Run(ctx context.Context) error {
	sess, err := c.Auth.Establish(ctx)
	if err != nil {
		return fmt.Errorf("establish platform session: %w", err)
	}

	resorts, err := sess.ListResorts(ctx)
	if err != nil {
		return fmt.Errorf("fetch resorts: %w", err)
	}
	names := make(map[int]string, len(resorts))
	for _, r := range resorts {
		names[r.ID] = r.Name
	}

	subs, err := ledger.ReadAll(c.LedgerPath)
	if err != nil {
		return err
	}
	slog.Info("processing pending subscriptions", "count", len(subs))

	rw, err := ledger.BeginRewrite(c.LedgerPath)
	if err != nil {
		return err
	}
	defer rw.Abort()

	for _, sub := range subs {
		info, next, err := c.fetchDates(ctx, sess, sub.ResortID)
		if err != nil {
			return err
		}
		sess = next

		status := availability.Classify(sub.DesiredDate, info.Closed, info.Unavailable)
		date := sub.DesiredDate.Format("2006-01-02")
		switch status {
		case availability.Closed:
			slog.Info("resort closed on requested date, dropping subscription",
				"email", sub.Email, "resort", sub.ResortID, "date", date)
		case availability.Unavailable:
			slog.Info("reservations still full, keeping subscription",
				"email", sub.Email, "resort", sub.ResortID, "date", date)
			if err := rw.Keep(sub.Raw); err != nil {
				return err
			}
		case availability.Open:
			c.notifyOpen(ctx, sub, names[sub.ResortID])
		}
	}

	return rw.Commit()
}

// fetchDates tries the reservation calendar once, and once more after a full
// session refresh if the first call failed. It returns the session that made
// the successful call so the rest of the cycle keeps using it.
func (c *Cycle) fetchDates(ctx context.Context, sess *ikon.Session, resortID int) (ikon.ReservationDates, *ikon.Session, error) {
	var lastErr error
	for attempt := 1; attempt <= maxEntryFetchAttempts; attempt++ {
		info, err := sess.ReservationDates(ctx, resortID)
		if err == nil {
			return info, sess, nil
		}
		lastErr = err
		if attempt == maxEntryFetchAttempts {
			break
		}
		slog.Warn("reservation dates fetch failed, refreshing session",
			"resort", resortID, "error", err)
		sess, err = c.Auth.Refresh(ctx)
		if err != nil {
			return ikon.ReservationDates{}, nil, fmt.Errorf("refresh after fetch failure: %w", err)
		}
	}
	return ikon.ReservationDates{}, nil,
		fmt.Errorf("reservation dates for resort %d failed after %d attempts: %w", resortID, maxEntryFetchAttempts, lastErr)
}

// notifyOpen sends the open-slot email. The subscription is dropped whether or
// not the send worked; a transient send failure costs one notification, never
// a repeat email storm.
func (c *Cycle) notifyOpen(ctx context.Context, sub ledger.Subscription, resortName string) {
	if resortName == "" {
		resortName = strconv.Itoa(sub.ResortID)
	}
	msg := notify.OpenSlot(sub.Email, c.FromAddr, resortName, sub.DesiredDate)
	if err := c.Sender.Send(ctx, msg); err != nil {
		slog.Error("notification send failed, subscription dropped without delivery",
			"email", sub.Email, "resort", resortName, "error", err)
		return
	}
	slog.Info("notification sent", "email", sub.Email, "resort", resortName,
		"date", sub.DesiredDate.Format("2006-01-02"))
}
