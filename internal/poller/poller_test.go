package poller

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/example/ikon-notifier/internal/ikon"
	"github.com/example/ikon-notifier/internal/notify"
)

// 2023-11-14T00:00:00Z in epoch millis, the date every test subscription wants
const nov14Millis = "1699920000000"

type platform struct {
	mux    *http.ServeMux
	logins int

	// per-resort data element of the availability response
	dates map[int]string

	datesCalls     int
	failDatesCalls int // reject this many availability calls before behaving
}

func newPlatform() *platform {
	p := &platform{mux: http.NewServeMux(), dates: map[int]string{}}

	p.mux.HandleFunc("/session", func(w http.ResponseWriter, r *http.Request) {
		p.logins++
		http.SetCookie(w, &http.Cookie{Name: "sess", Value: "authed", Path: "/"})
		w.WriteHeader(http.StatusOK)
	})
	p.mux.HandleFunc("/api/v2/me", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"email":"skier@example.com"}`))
	})
	p.mux.HandleFunc("/api/v2/resorts", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":[
			{"id":1,"name":"Alpine","reservations_enabled":true,"reservation_system_url":""},
			{"id":2,"name":"Basin","reservations_enabled":true,"reservation_system_url":""},
			{"id":42,"name":"Resort42","reservations_enabled":true,"reservation_system_url":""}
		]}`))
	})
	p.mux.HandleFunc("/api/v2/reservation-availability/", func(w http.ResponseWriter, r *http.Request) {
		p.datesCalls++
		if p.datesCalls <= p.failDatesCalls {
			http.Error(w, `{"error":"session expired"}`, http.StatusUnauthorized)
			return
		}
		id, _ := strconv.Atoi(strings.TrimPrefix(r.URL.Path, "/api/v2/reservation-availability/"))
		data, ok := p.dates[id]
		if !ok {
			data = `{"closed_dates":[],"unavailable_dates":[]}`
		}
		fmt.Fprintf(w, `{"data":[%s]}`, data)
	})

	return p
}

type fakeSender struct {
	sent []notify.Message
	fail bool
}

func (f *fakeSender) Send(_ context.Context, m notify.Message) error {
	f.sent = append(f.sent, m)
	if f.fail {
		return errors.New("smtp down")
	}
	return nil
}

type staticSource struct{}

func (staticSource) Acquire(context.Context) (ikon.CredentialBundle, error) {
	return ikon.CredentialBundle{CSRFToken: "tok", CookieHeader: "visitor=1;"}, nil
}

func newCycle(t *testing.T, p *platform, ledgerContent string) (*Cycle, *fakeSender, string) {
	t.Helper()
	srv := httptest.NewServer(p.mux)
	t.Cleanup(srv.Close)

	path := filepath.Join(t.TempDir(), "reservation_polling_data.txt")
	require.NoError(t, os.WriteFile(path, []byte(ledgerContent), 0o644))

	sender := &fakeSender{}
	cycle := &Cycle{
		Auth: &ikon.Authenticator{
			Client: ikon.NewClient(srv.URL),
			Source: staticSource{},
			Creds:  ikon.Credentials{Email: "skier@example.com", Password: "hunter2"},
		},
		Sender:     sender,
		LedgerPath: path,
		FromAddr:   "notifier@example.com",
	}
	return cycle, sender, path
}

func TestCycleCompaction(t *testing.T) {
	p := newPlatform()
	p.dates[1] = `{"closed_dates":["2023-11-14"],"unavailable_dates":[]}`
	p.dates[2] = `{"closed_dates":[],"unavailable_dates":["2023-11-14"]}`
	// resort 42 defaults to both sets empty: open

	original := "a@example.com,1," + nov14Millis + ",1699000000000\n" +
		"b@example.com,2," + nov14Millis + ",1699000000000\n" +
		"alice@example.com,42," + nov14Millis + ",1699000000000\n"
	cycle, sender, path := newCycle(t, p, original)

	require.NoError(t, cycle.Run(context.Background()))

	// closed and open entries dropped; unavailable carried forward verbatim
	got, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "b@example.com,2,"+nov14Millis+",1699000000000\n", string(got))

	bkp, err := os.ReadFile(path + ".bkp")
	require.NoError(t, err)
	require.Equal(t, original, string(bkp))

	// only the open entry produced a notification, no email for closed
	require.Len(t, sender.sent, 1)
	require.Equal(t, "alice@example.com", sender.sent[0].To)
	require.Contains(t, sender.sent[0].Subject, "Resort42")
	require.Contains(t, sender.sent[0].Text, "2023-11-14")
}

func TestCycleResortNameFallsBackToID(t *testing.T) {
	p := newPlatform()
	// resort 99 is not in the resorts response and has no date sets: open
	cycle, sender, _ := newCycle(t, p, "x@example.com,99,"+nov14Millis+",1699000000000\n")

	require.NoError(t, cycle.Run(context.Background()))
	require.Len(t, sender.sent, 1)
	require.Contains(t, sender.sent[0].Subject, "99")
}

func TestCycleRefreshesSessionOnceThenRetries(t *testing.T) {
	p := newPlatform()
	p.failDatesCalls = 1
	p.dates[2] = `{"closed_dates":[],"unavailable_dates":["2023-11-14"]}`

	line := "b@example.com,2," + nov14Millis + ",1699000000000\n"
	cycle, _, path := newCycle(t, p, line)

	require.NoError(t, cycle.Run(context.Background()))
	// establish + one refresh
	require.Equal(t, 2, p.logins)

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, line, string(got))
}

func TestCycleAbortsAfterSecondFetchFailure(t *testing.T) {
	p := newPlatform()
	p.failDatesCalls = 1 << 20 // never recovers

	original := "b@example.com,2," + nov14Millis + ",1699000000000\n"
	cycle, sender, path := newCycle(t, p, original)

	err := cycle.Run(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "after 2 attempts")
	require.Equal(t, 2, p.datesCalls)
	require.Empty(t, sender.sent)

	// original ledger untouched, no backup generation created
	got, rerr := os.ReadFile(path)
	require.NoError(t, rerr)
	require.Equal(t, original, string(got))
	_, serr := os.Stat(path + ".bkp")
	require.True(t, os.IsNotExist(serr))
}

func TestCycleDropsOpenEntryEvenWhenSendFails(t *testing.T) {
	p := newPlatform()
	cycle, sender, path := newCycle(t, p, "alice@example.com,42,"+nov14Millis+",1699000000000\n")
	sender.fail = true

	require.NoError(t, cycle.Run(context.Background()))
	require.Len(t, sender.sent, 1)

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "", string(got))
}

func TestCycleMissingLedgerIsFatal(t *testing.T) {
	p := newPlatform()
	cycle, _, path := newCycle(t, p, "")
	require.NoError(t, os.Remove(path))

	err := cycle.Run(context.Background())
	require.Error(t, err)
}
