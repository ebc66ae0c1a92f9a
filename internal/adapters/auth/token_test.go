package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"freeday/internal/domain"
)

func TestJWT_Issue(t *testing.T) {
	secret := "test-secret"
	expiry := 24 * time.Hour
	issuer := NewJWT(secret)

	token, err := issuer.Issue("user-123", "u@example.com", domain.RoleOrganizer, expiry)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	parsed, err := jwt.ParseWithClaims(token, &jwtClaims{}, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	})
	require.NoError(t, err)
	require.True(t, parsed.Valid)
	claims, ok := parsed.Claims.(*jwtClaims)
	require.True(t, ok)
	assert.Equal(t, "user-123", claims.Subject)
	assert.Equal(t, "u@example.com", claims.Email)
	assert.Equal(t, domain.RoleOrganizer, claims.Role)
	assert.NotEmpty(t, claims.ID)
}

func TestJWT_Issue_UniqueTokenIDs(t *testing.T) {
	j := NewJWT("s")
	a, err := j.Issue("u1", "a@b.c", domain.RoleParticipant, time.Hour)
	require.NoError(t, err)
	b, err := j.Issue("u1", "a@b.c", domain.RoleParticipant, time.Hour)
	require.NoError(t, err)

	ca, err := j.Verify(a)
	require.NoError(t, err)
	cb, err := j.Verify(b)
	require.NoError(t, err)
	assert.NotEqual(t, ca.TokenID, cb.TokenID)
}

func TestJWT_Verify(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	j := NewJWT("secret")
	j.now = func() time.Time { return now }

	valid, err := j.Issue("user-1", "a@example.com", domain.RoleAdmin, time.Hour)
	require.NoError(t, err)

	other := NewJWT("other-secret")
	other.now = j.now
	foreign, err := other.Issue("user-1", "a@example.com", domain.RoleAdmin, time.Hour)
	require.NoError(t, err)

	expired, err := j.Issue("user-1", "a@example.com", domain.RoleAdmin, -time.Minute)
	require.NoError(t, err)

	tests := []struct {
		name    string
		token   string
		wantErr bool
	}{
		{"valid token", valid, false},
		{"wrong signature", foreign, true},
		{"expired", expired, true},
		{"garbage", "not-a-jwt", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, err := j.Verify(tt.token)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "user-1", claims.UserID)
			assert.Equal(t, "a@example.com", claims.Email)
			assert.Equal(t, domain.RoleAdmin, claims.Role)
			assert.Equal(t, now.Add(time.Hour).Unix(), claims.ExpiresAt.Unix())
		})
	}
}
