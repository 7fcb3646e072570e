package user

import (
	"context"
	"net/http"
	"strings"

	"github.com/ovaphlow/pitchfork/service-gig-auth/internal/user/entity"
)

type ctxKey struct{}

// WithUser returns a copy of ctx carrying u.
func WithUser(ctx context.Context, u *entity.User) context.Context {
	return context.WithValue(ctx, ctxKey{}, u)
}

// FromContext returns the identity stored by RequireAuth.
func FromContext(ctx context.Context) (*entity.User, bool) {
	u, ok := ctx.Value(ctxKey{}).(*entity.User)
	return u, ok && u != nil
}

// BearerToken extracts the token from an "Authorization: Bearer <token>" header.
func BearerToken(r *http.Request) (string, bool) {
	auth := r.Header.Get("Authorization")
	if !strings.HasPrefix(strings.ToLower(auth), "bearer ") {
		return "", false
	}
	tok := strings.TrimSpace(auth[len("bearer "):])
	return tok, tok != ""
}

// RequireAuth resolves the bearer token to an identity before calling next.
func (h *Handler) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tok, ok := BearerToken(r)
		if !ok {
			h.writeJSON(w, http.StatusUnauthorized, Envelope{Message: "Not authorized, no token"})
			return
		}
		u, err := h.svc.Authenticate(r.Context(), tok)
		if err != nil {
			h.logger.Debugw("bearer rejected", "path", r.URL.Path, "err", err)
			h.fail(w, err, "Server error")
			return
		}
		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), u)))
	})
}
