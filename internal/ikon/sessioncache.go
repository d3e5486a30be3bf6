package ikon

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/securecookie"
)

const cacheKeyName = "ikon-session"

// SessionCache persists the authenticated session (token + cookies) to disk
// between polling cycles, sealed with securecookie so the credentials are not
// sitting in plaintext next to the ledger.
type SessionCache struct {
	path string
	sc   *securecookie.SecureCookie
}

func NewSessionCache(path string, hashKey, blockKey []byte) *SessionCache {
	sc := securecookie.New(hashKey, blockKey)
	sc.MaxAge(int((12 * time.Hour).Seconds()))
	return &SessionCache{path: path, sc: sc}
}

type cachedSession struct {
	CSRFToken  string
	Cookies    []cachedCookie
	VerifiedAt time.Time
}

type cachedCookie struct {
	Name  string
	Value string
}

func (c *SessionCache) Save(sess *Session) error {
	payload := cachedSession{
		CSRFToken:  sess.csrfToken,
		VerifiedAt: sess.VerifiedAt,
	}
	for _, ck := range sess.http.GetClient().Jar.Cookies(sess.baseURL) {
		payload.Cookies = append(payload.Cookies, cachedCookie{Name: ck.Name, Value: ck.Value})
	}
	encoded, err := c.sc.Encode(cacheKeyName, payload)
	if err != nil {
		return fmt.Errorf("seal session cache: %w", err)
	}
	if err := os.WriteFile(c.path, []byte(encoded), 0o600); err != nil {
		return fmt.Errorf("write session cache: %w", err)
	}
	return nil
}

// Load rebuilds a session from the cache file. The result is unverified; the
// caller decides whether it still authenticates.
func (c *SessionCache) Load(client *Client) (*Session, error) {
	raw, err := os.ReadFile(c.path)
	if err != nil {
		return nil, fmt.Errorf("read session cache: %w", err)
	}
	var payload cachedSession
	if err := c.sc.Decode(cacheKeyName, string(raw), &payload); err != nil {
		return nil, fmt.Errorf("unseal session cache: %w", err)
	}

	sess, err := client.newSession(payload.CSRFToken)
	if err != nil {
		return nil, err
	}
	cookies := make([]*http.Cookie, 0, len(payload.Cookies))
	for _, ck := range payload.Cookies {
		cookies = append(cookies, &http.Cookie{Name: ck.Name, Value: ck.Value})
	}
	sess.http.GetClient().Jar.SetCookies(sess.baseURL, cookies)
	sess.VerifiedAt = payload.VerifiedAt
	return sess, nil
}
