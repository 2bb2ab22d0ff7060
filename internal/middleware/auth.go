package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/mstanic/bloghaus/internal/auth"
	"github.com/mstanic/bloghaus/internal/telemetry/metrics"
	"github.com/mstanic/bloghaus/internal/telemetry/tracing"
	"github.com/mstanic/bloghaus/pkg"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/codes"
)

// AuthTokenHeader is a non-standard req. header, and thus - browser makes
// a preflight/OPTIONS request for it:
//	https://developer.mozilla.org/en-US/docs/Web/HTTP/CORS#preflighted_requests
// TODO: use Authorization header, not this custom one
const AuthTokenHeader = "X-BLOGHAUS-TOKEN"

type AuthMiddlewareHandler struct {
	sessionChecker auth.Checker
	adminUserID    int
	metrics        *metrics.Manager
	publicPaths    map[string]bool
	publicPrefixes []string
	adminPrefixes  []string
}

func NewAuthMiddlewareHandler(
	sessionChecker auth.Checker,
	adminUserID int,
	metricsManager *metrics.Manager,
) *AuthMiddlewareHandler {
	return &AuthMiddlewareHandler{
		sessionChecker: sessionChecker,
		adminUserID:    adminUserID,
		metrics:        metricsManager,
		publicPaths: map[string]bool{
			// blog handler:
			"/":      true,
			"/posts": true,

			// misc handler:
			"/about":   true,
			"/contact": true,
			"/version": true,

			// users handler:
			"/register": true,
			"/login":    true,
		},
		publicPrefixes: []string{
			"/posts/page/",
		},
		adminPrefixes: []string{
			"/new-post",
			"/edit-post/",
			"/delete/",
		},
	}
}

func (h *AuthMiddlewareHandler) pathIsPublic(r *http.Request) bool {
	if h.publicPaths[r.URL.Path] {
		return true
	}
	for _, prefix := range h.publicPrefixes {
		if strings.HasPrefix(r.URL.Path, prefix) {
			return true
		}
	}
	// reading a single post is open to everyone, commenting on it is not
	if strings.HasPrefix(r.URL.Path, "/post/") && r.Method == http.MethodGet {
		return true
	}
	return false
}

func (h *AuthMiddlewareHandler) pathIsAdminOnly(path string) bool {
	for _, prefix := range h.adminPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

func (h *AuthMiddlewareHandler) AuthCheck() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, span := tracing.GlobalTracer.Start(r.Context(), "middleware.auth")
			defer span.End()

			if r.Method == http.MethodOptions {
				w.Header().Add("Allow", "GET, POST, OPTIONS")
				w.WriteHeader(http.StatusOK)
				span.SetStatus(codes.Ok, "options-ok")
				return
			}

			// resolve the session up front, public handlers want to know
			// the current user too (e.g. to include their comments info)
			authToken := r.Header.Get(AuthTokenHeader)
			if authToken != "" {
				session, err := h.sessionChecker.GetSession(ctx, authToken)
				switch {
				case err == nil:
					ctx = auth.ContextWithSession(ctx, session)
				case errors.Is(err, auth.ErrNotLoggedIn):
					log.Tracef("[invalid token] [auth middleware] => %s", r.URL.Path)
				default:
					log.Errorf("[failed session check] => %s: %s", r.URL.Path, err)
					http.Error(w, "no can do", http.StatusUnauthorized)
					span.SetStatus(codes.Error, "session-check-err")
					span.RecordError(err)
					return
				}
			}
			r = r.WithContext(ctx)

			if h.pathIsPublic(r) {
				span.SetStatus(codes.Ok, "ok")
				next.ServeHTTP(w, r)
				return
			}

			session, loggedIn := auth.SessionFromContext(ctx)
			if !loggedIn {
				log.Tracef("[no session] [auth middleware] unauthorized => %s", r.URL.Path)
				w.Header().Set("Location", "/login")
				pkg.WriteResponse(
					w,
					pkg.ContentType.Text,
					"you need to login or register to do that",
					http.StatusFound,
				)
				span.SetStatus(codes.Error, "not-logged")
				return
			}

			if h.pathIsAdminOnly(r.URL.Path) && session.UserID != h.adminUserID {
				log.Tracef("[user %d] [auth middleware] forbidden => %s", session.UserID, r.URL.Path)
				h.metrics.CounterForbiddenRequests.Inc()
				http.Error(w, "forbidden", http.StatusForbidden)
				span.SetStatus(codes.Error, "forbidden")
				return
			}

			span.SetStatus(codes.Ok, "ok")
			next.ServeHTTP(w, r)
		})
	}
}
