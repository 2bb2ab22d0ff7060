package auth

import "context"

type sessionContextKey struct{}

// ContextWithSession stores the resolved session in the request context,
// so handlers get the current user explicitly instead of via a global.
func ContextWithSession(ctx context.Context, session *Session) context.Context {
	return context.WithValue(ctx, sessionContextKey{}, session)
}

func SessionFromContext(ctx context.Context) (*Session, bool) {
	session, ok := ctx.Value(sessionContextKey{}).(*Session)
	return session, ok && session != nil
}
