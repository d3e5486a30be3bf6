package browser

import (
	"testing"

	"github.com/chromedp/cdproto/network"
	"github.com/stretchr/testify/require"
)

func TestTokenFromRequest(t *testing.T) {
	a := &Acquirer{Origin: "https://account.ikonpass.com"}

	token := a.tokenFromRequest(&network.Request{
		URL:     "https://account.ikonpass.com/session",
		Headers: network.Headers{"X-CSRF-Token": "tok-1"},
	})
	require.Equal(t, "tok-1", token)

	// header match is case-insensitive; the app sends it lowercased
	token = a.tokenFromRequest(&network.Request{
		URL:     "https://account.ikonpass.com/session",
		Headers: network.Headers{"x-csrf-token": "tok-2"},
	})
	require.Equal(t, "tok-2", token)
}

func TestTokenFromRequestIgnoresOtherTraffic(t *testing.T) {
	a := &Acquirer{Origin: "https://account.ikonpass.com"}

	// wrong origin
	require.Empty(t, a.tokenFromRequest(&network.Request{
		URL:     "https://cdn.example.com/session",
		Headers: network.Headers{"x-csrf-token": "tok"},
	}))
	// right origin, wrong path
	require.Empty(t, a.tokenFromRequest(&network.Request{
		URL:     "https://account.ikonpass.com/api/v2/me",
		Headers: network.Headers{"x-csrf-token": "tok"},
	}))
	// bootstrap request without the header yet
	require.Empty(t, a.tokenFromRequest(&network.Request{
		URL:     "https://account.ikonpass.com/session",
		Headers: network.Headers{},
	}))
}

func TestDescribeMissingForm(t *testing.T) {
	require.Contains(t, describeMissingForm(""), "no readable document")
	require.Contains(t,
		describeMissingForm(`<html><body></body></html>`),
		"empty body")
	require.Contains(t,
		describeMissingForm(`<html><body><h1>503 Service Unavailable</h1></body></html>`),
		"never appeared")
	require.Contains(t,
		describeMissingForm(`<html><body><form class="amp-sign-in-form login-form" style="display:none"></form></body></html>`),
		"never became visible")
}
