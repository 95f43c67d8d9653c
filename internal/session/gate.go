package session

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/rotisserie/eris"
)

// ErrVerificationFailed means the human-verification provider rejected the
// supplied token, or none was supplied when one was required.
var ErrVerificationFailed = errors.New("session: verification failed")

// Verifier checks a third-party human-verification token.
type Verifier interface {
	Verify(ctx context.Context, token, remoteIP string) (bool, error)
}

// Gate runs the token issuance paths and decides whether chat requests must
// carry a valid session token.
type Gate struct {
	tokens     *Service
	verifier   Verifier
	production bool
	hasSecret  bool
	required   atomic.Bool
}

// NewGate creates a Gate. production reflects the deployment environment;
// hasSecret reports whether a verification provider secret is configured;
// required is the administrative gating toggle.
func NewGate(tokens *Service, verifier Verifier, production, hasSecret, required bool) *Gate {
	g := &Gate{
		tokens:     tokens,
		verifier:   verifier,
		production: production,
		hasSecret:  hasSecret,
	}
	g.required.Store(required)
	return g
}

// SetRequired flips the administrative gating toggle at runtime.
func (g *Gate) SetRequired(v bool) {
	g.required.Store(v)
}

// Issue runs the issuance paths in order: gating disabled issues a bypass
// token unconditionally; non-production with no verification secret issues a
// dev token; otherwise the supplied verification token must pass the
// provider check before a verified token is issued. Identity doubles as the
// caller's network origin for the provider check.
func (g *Gate) Issue(ctx context.Context, identity, verificationToken string) (string, Grant, error) {
	switch {
	case !g.required.Load():
		token, err := g.tokens.Issue(identity, GrantBypass)
		return token, GrantBypass, err
	case !g.production && !g.hasSecret:
		token, err := g.tokens.Issue(identity, GrantDev)
		return token, GrantDev, err
	}

	if verificationToken == "" {
		return "", "", ErrVerificationFailed
	}
	ok, err := g.verifier.Verify(ctx, verificationToken, identity)
	if err != nil {
		return "", "", eris.Wrap(err, "session: verification provider")
	}
	if !ok {
		return "", "", ErrVerificationFailed
	}

	token, err := g.tokens.Issue(identity, GrantVerified)
	return token, GrantVerified, err
}

// Admit applies the gating policy to a request token. The enforcement
// decision reads the admin toggle exactly once so it cannot straddle a
// concurrent flip. When gating is off, callers are admitted with whatever
// claims a valid token happens to carry, or none.
func (g *Gate) Admit(token string) (*Claims, error) {
	enforced := g.production && g.required.Load()
	if !enforced {
		if claims, err := g.tokens.Verify(token); err == nil {
			return claims, nil
		}
		return nil, nil
	}
	return g.tokens.Verify(token)
}
