package auth

import "context"

var _ Checker = (*SessionChecker)(nil)
var _ Checker = (*TestChecker)(nil)

type Checker interface {
	// GetSession resolves a token to its session, or ErrNotLoggedIn
	// when the token is unknown or past its TTL.
	GetSession(ctx context.Context, token string) (*Session, error)
}
