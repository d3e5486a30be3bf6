package ikon

import (
	"context"
	"log/slog"
)

// CredentialSource yields a fresh browser-derived credential bundle. The
// browser automation lives behind this so the poller can be exercised without
// a real Chrome.
type CredentialSource interface {
	Acquire(ctx context.Context) (CredentialBundle, error)
}

// Authenticator owns the acquire → login → verify sequence and the optional
// session cache. A cycle calls Establish once up front and Refresh when a call
// made with the current session starts failing.
type Authenticator struct {
	Client *Client
	Source CredentialSource
	Creds  Credentials

	// Cache, when non-nil, persists sessions between cycles. A cached session
	// is only handed out after it re-verifies.
	Cache *SessionCache
}

// Establish returns a working session, preferring a cached one that still
// verifies over the full browser dance.
func (a *Authenticator) Establish(ctx context.Context) (*Session, error) {
	if a.Cache != nil {
		sess, err := a.Cache.Load(a.Client)
		if err == nil {
			if verr := sess.Verify(ctx); verr == nil {
				slog.Info("reusing cached platform session")
				return sess, nil
			}
			slog.Info("cached platform session no longer verifies, acquiring a new one")
		}
	}
	return a.Refresh(ctx)
}

// Refresh runs browser acquisition, login and verification as one unit. The
// returned session replaces the previous one wholesale; on any failure the
// caller keeps whatever it had (and nothing half-authenticated is cached).
func (a *Authenticator) Refresh(ctx context.Context) (*Session, error) {
	bundle, err := a.Source.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	sess, err := a.Client.Login(ctx, bundle, a.Creds)
	if err != nil {
		return nil, err
	}
	if err := sess.Verify(ctx); err != nil {
		return nil, err
	}
	if a.Cache != nil {
		if err := a.Cache.Save(sess); err != nil {
			slog.Warn("could not persist platform session", "error", err)
		}
	}
	return sess, nil
}
