// Package web is the thin presentation layer: a resort picker and a date form
// that append subscriptions to the ledger. The resort snapshot and the
// authenticated session are produced once at startup and handed in; handlers
// never reach for shared globals.
package web

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/example/ikon-notifier/internal/availability"
	"github.com/example/ikon-notifier/internal/ikon"
	"github.com/example/ikon-notifier/internal/ledger"
)

//go:embed templates/*.html
var fs embed.FS

type Server struct {
	// Resorts is the startup snapshot from the platform, in API order.
	Resorts    []ikon.Resort
	LedgerPath string
}

// DisplayResort pairs a resort with its 1-based picker index. Indices are
// assigned only to resorts with reservations enabled; everything else is
// hidden from the picker.
type DisplayResort struct {
	Index  int
	Resort ikon.Resort
}

func (s *Server) displayResorts() []DisplayResort {
	var out []DisplayResort
	i := 1
	for _, r := range s.Resorts {
		if !r.ReservationsEnabled {
			continue
		}
		out = append(out, DisplayResort{Index: i, Resort: r})
		i++
	}
	return out
}

type tmplData struct {
	Title   string
	Flash   string
	Resorts []DisplayResort
	Resort  ikon.Resort
}

func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("Surviving not thriving\n"))
	})

	mux.HandleFunc("/", s.handleHome)
	mux.HandleFunc("/resorts", s.handleResorts)
	mux.HandleFunc("/reservation-dates", s.handleReservationDates)
	mux.HandleFunc("/save-notification", s.handleSaveNotification)

	return mux
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	s.render(w, "templates/home.html", tmplData{Title: "Ikon Reservation Notifier"})
}

func (s *Server) handleResorts(w http.ResponseWriter, r *http.Request) {
	s.render(w, "templates/resorts.html", tmplData{
		Title:   "Resorts",
		Resorts: s.displayResorts(),
	})
}

func (s *Server) handleReservationDates(w http.ResponseWriter, r *http.Request) {
	idStr := r.URL.Query().Get("resort")
	if idStr == "" {
		http.Error(w, "You need to choose a resort first.", http.StatusBadRequest)
		return
	}
	id, err := strconv.Atoi(idStr)
	if err != nil {
		http.Error(w, "Invalid resort id.", http.StatusBadRequest)
		return
	}
	resort, ok := s.findResort(id)
	if !ok {
		http.Error(w, "Unknown resort.", http.StatusNotFound)
		return
	}
	s.render(w, "templates/reservation_dates.html", tmplData{
		Title:  resort.Name,
		Resort: resort,
	})
}

func (s *Server) handleSaveNotification(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Incorrect parameters received.", http.StatusBadRequest)
		return
	}

	email := strings.TrimSpace(r.FormValue("email"))
	idStr := strings.TrimSpace(r.FormValue("resort-id"))
	dateStr := strings.TrimSpace(r.FormValue("reservation-date"))
	if email == "" || idStr == "" || dateStr == "" {
		http.Error(w, "Incorrect parameters received.", http.StatusBadRequest)
		return
	}
	resortID, err := strconv.Atoi(idStr)
	if err != nil {
		http.Error(w, "Incorrect parameters received.", http.StatusBadRequest)
		return
	}
	date, err := ParseDate(dateStr)
	if err != nil {
		http.Error(w, "Invalid date.", http.StatusBadRequest)
		return
	}

	sub := ledger.Subscription{
		Email:       email,
		ResortID:    resortID,
		DesiredDate: date,
		CreatedAt:   time.Now(),
	}
	if err := ledger.Append(s.LedgerPath, sub); err != nil {
		slog.Error("could not save notification request", "error", err)
		http.Error(w, "Could not save notification request.", http.StatusInternalServerError)
		return
	}

	fmt.Fprintf(w, "Saved notification for resort %d on %s\n", resortID, date.Format("2006-01-02"))
}

func (s *Server) findResort(id int) (ikon.Resort, bool) {
	for _, r := range s.Resorts {
		if r.ID == id {
			return r, true
		}
	}
	return ikon.Resort{}, false
}

// ParseDate accepts the form's YYYY-MM-DD alongside the MM/DD/YY(YY) the old
// prompt took, normalized to midnight UTC.
func ParseDate(s string) (time.Time, error) {
	for _, layout := range []string{"2006-01-02", "01/02/2006", "01/02/06"} {
		if d, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return availability.MidnightUTC(d), nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable date %q", s)
}

func (s *Server) render(w http.ResponseWriter, name string, data tmplData) {
	t, err := template.ParseFS(fs, "templates/base.html", name)
	if err != nil {
		http.Error(w, "template error: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := t.ExecuteTemplate(w, "base", data); err != nil {
		http.Error(w, "render error: "+err.Error(), http.StatusInternalServerError)
	}
}

// Start serves until ctx is canceled, then shuts down gracefully.
func Start(ctx context.Context, addr string, h http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	slog.Info("http server listening", "addr", addr)
	return srv.ListenAndServe()
}
