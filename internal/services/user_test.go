package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"freeday/internal/domain"
)

func newTestUserService(users *fakeUserRepo, events *fakeEventRepo, issuer *fakeTokenIssuer) *userService {
	svc := NewUserService(users, events, issuer, time.Hour, testTimeout).(*userService)
	svc.now = fixedClock
	return svc
}

func TestUserService_UpdateProfile(t *testing.T) {
	users := newFakeUserRepo(&domain.User{ID: "u1", Name: "An", Interests: []string{"food"}})
	svc := newTestUserService(users, newFakeEventRepo(), &fakeTokenIssuer{})
	ctx := context.Background()

	got, err := svc.UpdateProfile(ctx, "u1", domain.Profile{DisplayName: "An N.", City: "Hà Nội", Bio: "Thích ăn phở"})
	require.NoError(t, err)
	assert.Equal(t, "An N.", got.DisplayName)
	assert.Equal(t, "Hà Nội", got.City)
	assert.Equal(t, []string{}, got.Interests, "profile replaces interests")
	assert.Equal(t, fixedNow, got.UpdatedAt)
	assert.Equal(t, "Hà Nội", users.byID["u1"].City)

	_, err = svc.UpdateProfile(ctx, "missing", domain.Profile{})
	require.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestUserService_ListMyEvents(t *testing.T) {
	events := newFakeEventRepo(publishedEvent("own", "u1"))
	events.registered["u1"] = []*domain.Event{publishedEvent("reg", "org-1")}
	svc := newTestUserService(newFakeUserRepo(), events, &fakeTokenIssuer{})
	ctx := context.Background()

	got, err := svc.ListMyEvents(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, got.Registered, 1)
	assert.Equal(t, "reg", got.Registered[0].ID)
	assert.NotNil(t, got.Favorited)
	assert.Empty(t, got.Favorited)
	require.Len(t, got.Organized, 1)
	assert.Equal(t, "own", got.Organized[0].ID)

	events.err = errDB
	_, err = svc.ListMyEvents(ctx, "u1")
	require.ErrorIs(t, err, errDB)
}

func TestUserService_UpgradeToOrganizer(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name     string
		role     domain.Role
		wantRole domain.Role
	}{
		{name: "participant is promoted", role: domain.RoleParticipant, wantRole: domain.RoleOrganizer},
		{name: "organizer stays organizer", role: domain.RoleOrganizer, wantRole: domain.RoleOrganizer},
		{name: "admin keeps admin", role: domain.RoleAdmin, wantRole: domain.RoleAdmin},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			users := newFakeUserRepo(&domain.User{ID: "u1", Email: "an@example.com", Role: tt.role})
			issuer := &fakeTokenIssuer{}
			svc := newTestUserService(users, newFakeEventRepo(), issuer)

			token, user, err := svc.UpgradeToOrganizer(ctx, "u1")
			require.NoError(t, err)
			assert.Equal(t, tt.wantRole, user.Role)
			assert.Equal(t, tt.wantRole, users.byID["u1"].Role)
			assert.Equal(t, tt.wantRole, issuer.lastRole)
			assert.Equal(t, "token-u1-"+string(tt.wantRole), token)
		})
	}

	t.Run("missing user", func(t *testing.T) {
		svc := newTestUserService(newFakeUserRepo(), newFakeEventRepo(), &fakeTokenIssuer{})
		_, _, err := svc.UpgradeToOrganizer(ctx, "nope")
		require.ErrorIs(t, err, domain.ErrUserNotFound)
	})
}
