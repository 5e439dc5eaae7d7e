package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/clipstream/accounts/internal/apierr"
	"github.com/clipstream/accounts/internal/logger"
	"github.com/clipstream/accounts/internal/model"
)

// AccessTokenCookie is the cookie the transport uses to deliver the
// access token; the Authorization header is accepted as an alternative.
const AccessTokenCookie = "accessToken"

// SessionResolver verifies an access token and resolves it to an account.
type SessionResolver interface {
	ResolveSession(ctx context.Context, accessToken string) (model.User, error)
}

// Authenticate is the session gate middleware. It extracts the access
// token from the cookie or the Authorization header, resolves it to an
// account and stores the account in the request context. Every failure
// is answered with the same 401.
type Authenticate struct {
	resolver       SessionResolver
	contextManager model.ContextManager
	logger         *logger.Logger
}

// NewAuthenticate creates a new Authenticate middleware instance.
func NewAuthenticate(resolver SessionResolver, contextManager model.ContextManager, logger *logger.Logger) *Authenticate {
	return &Authenticate{resolver: resolver, contextManager: contextManager, logger: logger}
}

// Handle wraps next with the session gate.
func (m *Authenticate) Handle(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenString := extractToken(r)

		user, err := m.resolver.ResolveSession(r.Context(), tokenString)
		if err != nil {
			m.logger.Info("authentication failed",
				"path", r.URL.Path,
				"error", err.Error())
			writeUnauthorized(w)
			return
		}

		ctx := m.contextManager.SetUserToContext(r.Context(), user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func extractToken(r *http.Request) string {
	if c, err := r.Cookie(AccessTokenCookie); err == nil && c.Value != "" {
		return c.Value
	}

	auth := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if strings.HasPrefix(auth, prefix) {
		return strings.TrimSpace(auth[len(prefix):])
	}

	return ""
}

func writeUnauthorized(w http.ResponseWriter) {
	apiErr := apierr.NewUnauthorized(nil)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(apiErr.StatusCode)
	// Envelope kept in sync with handler.writeError.
	_, _ = w.Write([]byte(`{"statusCode":401,"data":null,"message":"` + apiErr.Message + `","success":false}`))
}
