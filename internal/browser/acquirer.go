// Package browser drives a headless Chrome through the platform's login page
// to capture the per-visit anti-forgery token and cookie set. Nothing here
// ever logs in; clicking the empty form only provokes the page's own
// bootstrap request, which is the one request that carries the token.
package browser

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/storage"
	"github.com/chromedp/chromedp"

	"github.com/example/ikon-notifier/internal/ikon"
)

const (
	loginFormSelector = ".amp-sign-in-form.login-form"
	submitSelector    = ".amp-sign-in-form.login-form .submit.amp-button.primary"
	sessionPathSuffix = "/session"
	csrfHeader        = "x-csrf-token"

	// The login page redirects through a client-side chain before rendering;
	// give it a moment after network idle before looking for the form.
	settleDelay = 3 * time.Second
)

const userAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/78.0.3904.108 Safari/537.36"

// AcquisitionError means the browser automation never reached a state where
// the token could be observed.
type AcquisitionError struct {
	Reason string
	Err    error
}

func (e *AcquisitionError) Error() string {
	if e.Err != nil {
		return "session acquisition: " + e.Reason + ": " + e.Err.Error()
	}
	return "session acquisition: " + e.Reason
}

func (e *AcquisitionError) Unwrap() error { return e.Err }

// Acquirer implements ikon.CredentialSource with a real browser.
type Acquirer struct {
	// LoginURL is the browser entry point; Origin is the scheme://host prefix
	// a request must match before its headers are inspected.
	LoginURL string
	Origin   string

	// Timeout bounds the whole acquisition. Zero means wait forever, which is
	// only tolerable on an interactive development run.
	Timeout time.Duration

	// ExecPath overrides the Chrome binary, e.g. chromium-browser on the
	// production host.
	ExecPath string
}

func (a *Acquirer) Acquire(ctx context.Context) (ikon.CredentialBundle, error) {
	if a.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.Timeout)
		defer cancel()
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:], chromedp.UserAgent(userAgent))
	if a.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(a.ExecPath))
	}
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()
	tabCtx, cancelTab := chromedp.NewContext(allocCtx)
	defer cancelTab()

	var settledHTML string
	err := chromedp.Run(tabCtx,
		network.Enable(),
		chromedp.Navigate(a.LoginURL),
		chromedp.Sleep(settleDelay),
		chromedp.OuterHTML("html", &settledHTML, chromedp.ByQuery),
	)
	if err != nil {
		return ikon.CredentialBundle{}, &AcquisitionError{Reason: "login page never loaded", Err: err}
	}

	if err := chromedp.Run(tabCtx, chromedp.WaitVisible(loginFormSelector, chromedp.ByQuery)); err != nil {
		return ikon.CredentialBundle{}, &AcquisitionError{Reason: describeMissingForm(settledHTML), Err: err}
	}

	// The bootstrap request can fire the moment the form is poked, so the
	// listener must be attached before the click or the token is gone.
	tokenCh := make(chan string, 1)
	chromedp.ListenTarget(tabCtx, func(ev interface{}) {
		req, ok := ev.(*network.EventRequestWillBeSent)
		if !ok {
			return
		}
		if token := a.tokenFromRequest(req.Request); token != "" {
			select {
			case tokenCh <- token:
			default:
			}
		}
	})

	if err := chromedp.Run(tabCtx, chromedp.Click(submitSelector, chromedp.ByQuery)); err != nil {
		return ikon.CredentialBundle{}, &AcquisitionError{Reason: "could not trigger the login form submit", Err: err}
	}

	var token string
	select {
	case token = <-tokenCh:
	case <-tabCtx.Done():
		return ikon.CredentialBundle{}, &AcquisitionError{Reason: "anti-forgery token never observed", Err: tabCtx.Err()}
	}

	cookieHeader, err := pageCookieHeader(tabCtx)
	if err != nil {
		return ikon.CredentialBundle{}, &AcquisitionError{Reason: "could not read page cookies", Err: err}
	}

	return ikon.CredentialBundle{CSRFToken: token, CookieHeader: cookieHeader}, nil
}

// tokenFromRequest pulls the anti-forgery header off the session-bootstrap
// request and ignores everything else the page sends.
func (a *Acquirer) tokenFromRequest(req *network.Request) string {
	if !strings.HasPrefix(req.URL, a.Origin) {
		return ""
	}
	u, err := url.Parse(req.URL)
	if err != nil || !strings.HasSuffix(u.Path, sessionPathSuffix) {
		return ""
	}
	for name, value := range req.Headers {
		if strings.EqualFold(name, csrfHeader) {
			if s, ok := value.(string); ok {
				return s
			}
		}
	}
	return ""
}

func pageCookieHeader(ctx context.Context) (string, error) {
	var header strings.Builder
	err := chromedp.Run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		cookies, err := storage.GetCookies().Do(ctx)
		if err != nil {
			return err
		}
		for _, ck := range cookies {
			header.WriteString(ck.Name)
			header.WriteString("=")
			header.WriteString(ck.Value)
			header.WriteString(";")
		}
		return nil
	}))
	return header.String(), err
}

// describeMissingForm turns the post-settle HTML snapshot into a reason a
// human can act on when the form wait times out.
func describeMissingForm(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil || strings.TrimSpace(html) == "" {
		return "login page rendered no readable document"
	}
	if doc.Find(loginFormSelector).Length() > 0 {
		return "login form present but never became visible"
	}
	if strings.TrimSpace(doc.Find("body").Text()) == "" {
		return "login page rendered an empty body"
	}
	return "login form never appeared on the rendered page"
}
