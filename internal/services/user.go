package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"freeday/internal/domain"
)

type userService struct {
	userRepo       domain.UserRepository
	eventRepo      domain.EventRepository
	tokenIssuer    domain.TokenIssuer
	tokenExpiry    time.Duration
	contextTimeout time.Duration
	now            func() time.Time
}

// NewUserService creates a UserService with the given repositories and token issuer.
func NewUserService(userRepo domain.UserRepository, eventRepo domain.EventRepository, tokenIssuer domain.TokenIssuer, tokenExpiry, timeout time.Duration) domain.UserService {
	return &userService{
		userRepo:       userRepo,
		eventRepo:      eventRepo,
		tokenIssuer:    tokenIssuer,
		tokenExpiry:    tokenExpiry,
		contextTimeout: timeout,
		now:            time.Now,
	}
}

func (s *userService) GetByID(ctx context.Context, id string) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

func (s *userService) UpdateProfile(ctx context.Context, userID string, profile domain.Profile) (*domain.User, error) {
	user, err := s.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	profile.Apply(user)
	user.UpdatedAt = s.now()
	if err := s.userRepo.UpdateProfile(ctx, user); err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("update profile: %w", err)
	}
	return user, nil
}

func (s *userService) ListMyEvents(ctx context.Context, userID string) (*domain.UserEvents, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	registered, err := s.eventRepo.ListRegisteredByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list registered events: %w", err)
	}
	favorited, err := s.eventRepo.ListFavoritedByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list favorited events: %w", err)
	}
	organized, err := s.eventRepo.ListByOrganizer(ctx, userID, domain.ManagedEventFilter{})
	if err != nil {
		return nil, fmt.Errorf("list organized events: %w", err)
	}
	return &domain.UserEvents{
		Registered: nonNilEvents(registered),
		Favorited:  nonNilEvents(favorited),
		Organized:  nonNilEvents(organized),
	}, nil
}

func (s *userService) UpgradeToOrganizer(ctx context.Context, userID string) (string, *domain.User, error) {
	user, err := s.GetByID(ctx, userID)
	if err != nil {
		return "", nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if !user.Role.CanOrganize() {
		if err := s.userRepo.UpdateRole(ctx, user.ID, domain.RoleOrganizer); err != nil {
			return "", nil, fmt.Errorf("update role: %w", err)
		}
		user.Role = domain.RoleOrganizer
		user.UpdatedAt = s.now()
	}

	token, err := s.tokenIssuer.Issue(user.ID, user.Email, user.Role, s.tokenExpiry)
	if err != nil {
		return "", nil, fmt.Errorf("issue token: %w", err)
	}
	return token, user, nil
}

func nonNilEvents(events []*domain.Event) []*domain.Event {
	if events == nil {
		return []*domain.Event{}
	}
	return events
}
