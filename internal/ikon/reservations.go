package ikon

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/example/ikon-notifier/internal/availability"
)

// ListResorts returns every resort the platform knows about, in API order.
func (s *Session) ListResorts(ctx context.Context) ([]Resort, error) {
	res, err := s.http.R().SetContext(ctx).Get("/api/v2/resorts")
	if err != nil {
		return nil, &APIError{Op: "list resorts", Err: err}
	}
	if res.IsError() {
		return nil, &APIError{Op: "list resorts", Status: res.StatusCode(), Body: snippet(res.Body())}
	}
	var body struct {
		Data []Resort `json:"data"`
	}
	if err := json.Unmarshal(res.Body(), &body); err != nil {
		return nil, &APIError{Op: "list resorts", Status: res.StatusCode(), Err: err}
	}
	return body.Data, nil
}

// ReservationDates fetches the closed/unavailable calendar for one resort.
func (s *Session) ReservationDates(ctx context.Context, resortID int) (ReservationDates, error) {
	op := fmt.Sprintf("reservation dates resort=%d", resortID)
	res, err := s.http.R().
		SetContext(ctx).
		Get(fmt.Sprintf("/api/v2/reservation-availability/%d", resortID))
	if err != nil {
		return ReservationDates{}, &APIError{Op: op, Err: err}
	}
	if res.IsError() {
		return ReservationDates{}, &APIError{Op: op, Status: res.StatusCode(), Body: snippet(res.Body())}
	}

	var body struct {
		Data []struct {
			ClosedDates      []string `json:"closed_dates"`
			UnavailableDates []string `json:"unavailable_dates"`
		} `json:"data"`
	}
	if err := json.Unmarshal(res.Body(), &body); err != nil {
		return ReservationDates{}, &APIError{Op: op, Status: res.StatusCode(), Err: err}
	}
	if len(body.Data) == 0 {
		return ReservationDates{}, &APIError{Op: op, Status: res.StatusCode(), Err: fmt.Errorf("empty data array")}
	}

	out := ReservationDates{ResortID: resortID}
	if out.Closed, err = parseDates(body.Data[0].ClosedDates); err != nil {
		return ReservationDates{}, &APIError{Op: op, Status: res.StatusCode(), Err: err}
	}
	if out.Unavailable, err = parseDates(body.Data[0].UnavailableDates); err != nil {
		return ReservationDates{}, &APIError{Op: op, Status: res.StatusCode(), Err: err}
	}
	return out, nil
}

// The calendar endpoint has been seen returning bare dates and zone-less
// timestamps. Zone-less values are read as UTC, then everything collapses to
// midnight UTC.
var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02T15:04:05",
	time.RFC3339,
}

func parseDates(raw []string) ([]time.Time, error) {
	out := make([]time.Time, 0, len(raw))
	for _, v := range raw {
		d, err := parseDate(v)
		if err != nil {
			return nil, err
		}
		out = append(out, availability.MidnightUTC(d))
	}
	return out, nil
}

func parseDate(v string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if d, err := time.ParseInLocation(layout, v, time.UTC); err == nil {
			return d, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable date %q", v)
}
