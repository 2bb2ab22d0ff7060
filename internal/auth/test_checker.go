package auth

import "context"

type TestChecker struct {
	Sessions map[string]*Session
}

func NewTestChecker() *TestChecker {
	return &TestChecker{
		Sessions: map[string]*Session{},
	}
}

func (c *TestChecker) GetSession(_ context.Context, token string) (*Session, error) {
	session, ok := c.Sessions[token]
	if !ok {
		return nil, ErrNotLoggedIn
	}
	return session, nil
}
