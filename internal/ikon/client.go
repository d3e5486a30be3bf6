// Package ikon talks to the Ikon Pass account platform: logging in with a
// browser-derived anti-forgery token, validating the resulting cookie jar and
// fetching resort / reservation-availability data over the authenticated
// session.
package ikon

import (
	"context"
	"net/http/cookiejar"
	"net/url"
	"time"

	"github.com/go-resty/resty/v2"
)

const DefaultBaseURL = "https://account.ikonpass.com"

// The platform rejects the default Go user agent; present a desktop browser,
// matching what the token-capture browser sends.
const userAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/78.0.3904.108 Safari/537.36"

// CredentialBundle is the one-shot output of a browser login-page visit: the
// per-visit anti-forgery token plus the cookies the page was issued. It is
// consumed exactly once, by Login.
type CredentialBundle struct {
	CSRFToken    string
	CookieHeader string
}

// Credentials are the Ikon account email/password.
type Credentials struct {
	Email    string
	Password string
}

type Resort struct {
	ID                   int    `json:"id"`
	Name                 string `json:"name"`
	ReservationsEnabled  bool   `json:"reservations_enabled"`
	ReservationSystemURL string `json:"reservation_system_url"`
}

// ReservationDates holds one resort's closed and unavailable date sets, each
// entry normalized to midnight UTC by the response decoder.
type ReservationDates struct {
	ResortID    int
	Closed      []time.Time
	Unavailable []time.Time
}

// Client knows the platform's base URL. It is stateless; every Login produces
// a Session with its own cookie jar, and a refresh discards the old session
// wholesale rather than merging jars.
type Client struct {
	baseURL string
}

func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{baseURL: baseURL}
}

// Session is an authenticated cookie jar bound to one polling cycle. It is
// not safe for concurrent use; the cycle that created it owns it.
type Session struct {
	http       *resty.Client
	baseURL    *url.URL
	csrfToken  string
	VerifiedAt time.Time
}

func (c *Client) newSession(csrfToken string) (*Session, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, err
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	hc := resty.New()
	hc.SetBaseURL(c.baseURL)
	hc.SetCookieJar(jar)
	hc.SetHeader("user-agent", userAgent)
	hc.SetHeader("accept", "application/json")
	hc.SetHeader("x-csrf-token", csrfToken)
	return &Session{http: hc, baseURL: u, csrfToken: csrfToken}, nil
}

// Login exchanges the bundle plus account credentials for an authenticated
// session. The anti-forgery token rides as a header and the browser cookies as
// a raw Cookie header; the response's Set-Cookie values land in the session's
// jar and carry every later call.
func (c *Client) Login(ctx context.Context, bundle CredentialBundle, creds Credentials) (*Session, error) {
	sess, err := c.newSession(bundle.CSRFToken)
	if err != nil {
		return nil, &AuthError{Op: "login", Err: err}
	}
	res, err := sess.http.R().
		SetContext(ctx).
		SetHeader("cookie", bundle.CookieHeader).
		SetBody(map[string]any{
			"email":       creds.Email,
			"password":    creds.Password,
			"remember_me": true,
		}).
		Post("/session")
	if err != nil {
		return nil, &AuthError{Op: "login", Err: err}
	}
	if res.IsError() {
		return nil, &AuthError{Op: "login", Status: res.StatusCode(), Body: snippet(res.Body())}
	}
	return sess, nil
}

// Verify hits the current-user endpoint with the session's jar. Anything but
// a 2xx means the jar no longer authenticates.
func (s *Session) Verify(ctx context.Context) error {
	res, err := s.http.R().SetContext(ctx).Get("/api/v2/me")
	if err != nil {
		return &AuthError{Op: "verify", Err: err}
	}
	if res.IsError() {
		return &AuthError{Op: "verify", Status: res.StatusCode(), Body: snippet(res.Body())}
	}
	s.VerifiedAt = time.Now().UTC()
	return nil
}
