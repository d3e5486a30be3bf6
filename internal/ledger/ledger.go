// Package ledger is the durable queue of pending notification requests: a
// line-oriented CSV file, one subscription per line, appended by the UI/CLI
// and compacted by the polling cycle. Each cycle writes a fresh generation and
// swaps it in with a rename, keeping the previous generation as a .bkp file.
package ledger

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/example/ikon-notifier/internal/availability"
)

// Subscription is one pending request: notify Email when ResortID has an open
// reservation slot on DesiredDate (midnight UTC).
type Subscription struct {
	Email       string
	ResortID    int
	DesiredDate time.Time
	CreatedAt   time.Time

	// Raw is the line exactly as it appeared in the ledger. Entries carried
	// forward to the next generation are written back verbatim.
	Raw string
}

func (s Subscription) Line() string {
	return fmt.Sprintf("%s,%d,%d,%d", s.Email, s.ResortID, s.DesiredDate.UnixMilli(), s.CreatedAt.UnixMilli())
}

// ReadError means the ledger file itself could not be opened or scanned. It
// aborts the whole cycle, unlike a malformed line, which only costs that line.
type ReadError struct {
	Path string
	Err  error
}

func (e *ReadError) Error() string { return fmt.Sprintf("read ledger %s: %v", e.Path, e.Err) }

func (e *ReadError) Unwrap() error { return e.Err }

// ReadAll parses every well-formed line in the ledger. A file that cannot be
// opened or scanned is an error and aborts the caller's cycle; a single
// malformed line only costs that line (warned and skipped), so one bad record
// cannot take the rest of the queue down with it.
func ReadAll(path string) ([]Subscription, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &ReadError{Path: path, Err: err}
	}
	defer f.Close()

	var subs []Subscription
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		sub, err := parseLine(line)
		if err != nil {
			slog.Warn("skipping malformed ledger line", "path", path, "error", err)
			continue
		}
		subs = append(subs, sub)
	}
	if err := sc.Err(); err != nil {
		return nil, &ReadError{Path: path, Err: err}
	}
	return subs, nil
}

// Append adds one subscription to the end of the ledger, creating the file if
// it does not exist yet.
func Append(path string, sub Subscription) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("append ledger %s: %w", path, err)
	}
	defer f.Close()
	if _, err := f.WriteString(sub.Line() + "\n"); err != nil {
		return fmt.Errorf("append ledger %s: %w", path, err)
	}
	return nil
}

func parseLine(line string) (Subscription, error) {
	fields := strings.Split(line, ",")
	if len(fields) != 4 {
		return Subscription{}, fmt.Errorf("want 4 fields, got %d: %q", len(fields), line)
	}
	resortID, err := strconv.Atoi(strings.TrimSpace(fields[1]))
	if err != nil {
		return Subscription{}, fmt.Errorf("resort id: %w", err)
	}
	desired, err := strconv.ParseInt(strings.TrimSpace(fields[2]), 10, 64)
	if err != nil {
		return Subscription{}, fmt.Errorf("desired date: %w", err)
	}
	created, err := strconv.ParseInt(strings.TrimSpace(fields[3]), 10, 64)
	if err != nil {
		return Subscription{}, fmt.Errorf("created at: %w", err)
	}
	return Subscription{
		Email:       strings.TrimSpace(fields[0]),
		ResortID:    resortID,
		DesiredDate: availability.MidnightUTC(time.UnixMilli(desired)),
		CreatedAt:   time.UnixMilli(created),
		Raw:         line,
	}, nil
}
