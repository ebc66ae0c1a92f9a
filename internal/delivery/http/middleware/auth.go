package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"slices"
	"strings"

	h "freeday/internal/delivery/http/helpers"
	"freeday/internal/domain"
)

type contextKey string

const claimsKey contextKey = "claims"

// SetClaims returns a context carrying the authenticated token claims. Used by auth middleware.
func SetClaims(ctx context.Context, claims *domain.TokenClaims) context.Context {
	return context.WithValue(ctx, claimsKey, claims)
}

// ClaimsFromContext returns the authenticated token claims from the context, if present.
func ClaimsFromContext(ctx context.Context) (*domain.TokenClaims, bool) {
	c, ok := ctx.Value(claimsKey).(*domain.TokenClaims)
	return c, ok && c != nil
}

// UserIDFromContext returns the authenticated user ID from the context, if present.
func UserIDFromContext(ctx context.Context) (string, bool) {
	c, ok := ClaimsFromContext(ctx)
	if !ok {
		return "", false
	}
	return c.UserID, true
}

// ActorFromContext returns the caller as a domain.Actor. Anonymous requests yield the zero Actor.
func ActorFromContext(ctx context.Context) domain.Actor {
	c, ok := ClaimsFromContext(ctx)
	if !ok {
		return domain.Actor{}
	}
	return domain.Actor{UserID: c.UserID, Role: c.Role}
}

// Authenticator verifies bearer tokens and rejects revoked ones.
type Authenticator struct {
	verifier domain.TokenVerifier
	revoker  domain.TokenRevoker
	logger   *slog.Logger
}

// NewAuthenticator creates an Authenticator. revoker may be nil when logout is not tracked.
func NewAuthenticator(verifier domain.TokenVerifier, revoker domain.TokenRevoker, logger *slog.Logger) *Authenticator {
	return &Authenticator{verifier: verifier, revoker: revoker, logger: logger}
}

// RequireAuth returns a wrapper that validates the Bearer token and sets the claims in the request context.
// If the token is missing, invalid or revoked, it responds with 401 and does not call next.
func (a *Authenticator) RequireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		if auth == "" {
			h.WriteJSONError(w, http.StatusUnauthorized, h.ErrCodeUnauthorized, "missing authorization header")
			return
		}
		claims, msg := a.authenticate(r.Context(), auth)
		if claims == nil {
			h.WriteJSONError(w, http.StatusUnauthorized, h.ErrCodeUnauthorized, msg)
			return
		}
		next(w, r.WithContext(SetClaims(r.Context(), claims)))
	}
}

// OptionalAuth sets the claims when a valid token is present and otherwise serves the request anonymously.
func (a *Authenticator) OptionalAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if auth := r.Header.Get("Authorization"); auth != "" {
			if claims, _ := a.authenticate(r.Context(), auth); claims != nil {
				r = r.WithContext(SetClaims(r.Context(), claims))
			}
		}
		next(w, r)
	}
}

// RequireRole wraps next with RequireAuth and responds 403 unless the caller has one of roles.
func (a *Authenticator) RequireRole(next http.HandlerFunc, roles ...domain.Role) http.HandlerFunc {
	return a.RequireAuth(func(w http.ResponseWriter, r *http.Request) {
		claims, _ := ClaimsFromContext(r.Context())
		if !slices.Contains(roles, claims.Role) {
			h.WriteJSONError(w, http.StatusForbidden, h.ErrCodeForbidden, "forbidden")
			return
		}
		next(w, r)
	})
}

func (a *Authenticator) authenticate(ctx context.Context, header string) (*domain.TokenClaims, string) {
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return nil, "invalid authorization format"
	}
	token := strings.TrimSpace(header[len(prefix):])
	if token == "" {
		return nil, "missing token"
	}
	claims, err := a.verifier.Verify(token)
	if err != nil {
		return nil, "invalid or expired token"
	}
	if a.revoker != nil && claims.TokenID != "" {
		revoked, err := a.revoker.IsRevoked(ctx, claims.TokenID)
		if err != nil {
			// Fails open when the revocation store is unavailable.
			a.logger.WarnContext(ctx, "token revocation check failed", "err", err)
		} else if revoked {
			return nil, "token has been revoked"
		}
	}
	return claims, ""
}
