package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"freeday/internal/delivery/http/helpers"
	"freeday/internal/domain"
)

var testLogger = slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))

// fakeTokenVerifier implements domain.TokenVerifier for tests.
type fakeTokenVerifier struct {
	claims *domain.TokenClaims
	err    error
}

func (f *fakeTokenVerifier) Verify(_ string) (*domain.TokenClaims, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.claims, nil
}

type fakeRevoker struct {
	revoked map[string]bool
	err     error
}

func (f *fakeRevoker) Revoke(context.Context, string, time.Time) error { return nil }

func (f *fakeRevoker) IsRevoked(_ context.Context, id string) (bool, error) {
	return f.revoked[id], f.err
}

func decodeErrorCode(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var env helpers.APIResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&env))
	require.NotNil(t, env.Error)
	return env.Error.Code
}

func TestAuthenticator_RequireAuth(t *testing.T) {
	participant := &domain.TokenClaims{UserID: "user-123", Role: domain.RoleParticipant, TokenID: "jti-1"}

	tests := []struct {
		name       string
		authHeader string
		verifier   domain.TokenVerifier
		revoker    *fakeRevoker
		wantStatus int
		nextCalled bool
	}{
		{
			name:       "valid token sets context and calls next",
			authHeader: "Bearer valid-token",
			verifier:   &fakeTokenVerifier{claims: participant},
			revoker:    &fakeRevoker{},
			wantStatus: http.StatusOK,
			nextCalled: true,
		},
		{
			name:       "missing authorization header",
			verifier:   &fakeTokenVerifier{claims: participant},
			revoker:    &fakeRevoker{},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "invalid authorization format no Bearer prefix",
			authHeader: "Basic abc",
			verifier:   &fakeTokenVerifier{claims: participant},
			revoker:    &fakeRevoker{},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "empty token after Bearer",
			authHeader: "Bearer ",
			verifier:   &fakeTokenVerifier{claims: participant},
			revoker:    &fakeRevoker{},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "verifier returns error",
			authHeader: "Bearer bad-token",
			verifier:   &fakeTokenVerifier{err: errors.New("invalid or expired token")},
			revoker:    &fakeRevoker{},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "revoked token",
			authHeader: "Bearer valid-token",
			verifier:   &fakeTokenVerifier{claims: participant},
			revoker:    &fakeRevoker{revoked: map[string]bool{"jti-1": true}},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "revocation store failure fails open",
			authHeader: "Bearer valid-token",
			verifier:   &fakeTokenVerifier{claims: participant},
			revoker:    &fakeRevoker{err: errors.New("redis down")},
			wantStatus: http.StatusOK,
			nextCalled: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var nextCalled bool
			var gotActor domain.Actor
			next := func(w http.ResponseWriter, r *http.Request) {
				nextCalled = true
				gotActor = ActorFromContext(r.Context())
				w.WriteHeader(http.StatusOK)
			}
			a := NewAuthenticator(tt.verifier, tt.revoker, testLogger)
			req := httptest.NewRequest(http.MethodGet, "/users/me", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}
			rr := httptest.NewRecorder()

			a.RequireAuth(next)(rr, req)

			assert.Equal(t, tt.wantStatus, rr.Code)
			assert.Equal(t, tt.nextCalled, nextCalled)
			if tt.nextCalled {
				assert.Equal(t, domain.Actor{UserID: "user-123", Role: domain.RoleParticipant}, gotActor)
			} else {
				assert.Equal(t, helpers.ErrCodeUnauthorized, decodeErrorCode(t, rr))
			}
		})
	}
}

func TestAuthenticator_OptionalAuth(t *testing.T) {
	claims := &domain.TokenClaims{UserID: "user-1", Role: domain.RoleOrganizer}

	tests := []struct {
		name      string
		header    string
		verifier  *fakeTokenVerifier
		wantActor domain.Actor
	}{
		{name: "anonymous", verifier: &fakeTokenVerifier{claims: claims}},
		{name: "valid token", header: "Bearer t", verifier: &fakeTokenVerifier{claims: claims}, wantActor: domain.Actor{UserID: "user-1", Role: domain.RoleOrganizer}},
		{name: "bad token served anonymously", header: "Bearer t", verifier: &fakeTokenVerifier{err: errors.New("expired")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := NewAuthenticator(tt.verifier, nil, testLogger)
			var got domain.Actor
			req := httptest.NewRequest(http.MethodGet, "/events", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rr := httptest.NewRecorder()

			a.OptionalAuth(func(w http.ResponseWriter, r *http.Request) {
				got = ActorFromContext(r.Context())
			})(rr, req)

			assert.Equal(t, http.StatusOK, rr.Code)
			assert.Equal(t, tt.wantActor, got)
		})
	}
}

func TestAuthenticator_RequireRole(t *testing.T) {
	tests := []struct {
		name       string
		role       domain.Role
		wantStatus int
	}{
		{name: "organizer allowed", role: domain.RoleOrganizer, wantStatus: http.StatusOK},
		{name: "admin allowed", role: domain.RoleAdmin, wantStatus: http.StatusOK},
		{name: "participant forbidden", role: domain.RoleParticipant, wantStatus: http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := NewAuthenticator(&fakeTokenVerifier{claims: &domain.TokenClaims{UserID: "u1", Role: tt.role}}, nil, testLogger)
			req := httptest.NewRequest(http.MethodPost, "/events", nil)
			req.Header.Set("Authorization", "Bearer t")
			rr := httptest.NewRecorder()

			a.RequireRole(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			}, domain.RoleOrganizer, domain.RoleAdmin)(rr, req)

			assert.Equal(t, tt.wantStatus, rr.Code)
			if tt.wantStatus == http.StatusForbidden {
				assert.Equal(t, helpers.ErrCodeForbidden, decodeErrorCode(t, rr))
			}
		})
	}

	t.Run("anonymous is unauthorized", func(t *testing.T) {
		a := NewAuthenticator(&fakeTokenVerifier{}, nil, testLogger)
		rr := httptest.NewRecorder()
		a.RequireRole(func(http.ResponseWriter, *http.Request) {}, domain.RoleAdmin)(rr, httptest.NewRequest(http.MethodGet, "/admin/stats", nil))
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})
}
