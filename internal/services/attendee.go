package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"freeday/internal/domain"
)

const registrationEmailTimeLayout = "15:04 02/01/2006"

type attendeeService struct {
	eventRepo        domain.EventRepository
	registrationRepo domain.EventRegistrationRepository
	favoriteRepo     domain.FavoriteRepository
	userRepo         domain.UserRepository
	eventCache       domain.EventListCache
	emailService     domain.EmailService
	logger           *slog.Logger
	contextTimeout   time.Duration
	now              func() time.Time
}

// NewAttendeeService creates an AttendeeService with the given repositories.
func NewAttendeeService(
	eventRepo domain.EventRepository,
	registrationRepo domain.EventRegistrationRepository,
	favoriteRepo domain.FavoriteRepository,
	userRepo domain.UserRepository,
	eventCache domain.EventListCache,
	emailService domain.EmailService,
	logger *slog.Logger,
	timeout time.Duration,
) domain.AttendeeService {
	return &attendeeService{
		eventRepo:        eventRepo,
		registrationRepo: registrationRepo,
		favoriteRepo:     favoriteRepo,
		userRepo:         userRepo,
		eventCache:       eventCache,
		emailService:     emailService,
		logger:           logger,
		contextTimeout:   timeout,
		now:              time.Now,
	}
}

func (s *attendeeService) RegisterForEvent(ctx context.Context, eventID, userID string) (*domain.EventRegistration, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	event, err := s.visibleEvent(ctx, eventID, userID)
	if err != nil {
		return nil, false, err
	}

	// Registration is idempotent.
	if existing, err := s.registrationRepo.GetByEventAndUser(ctx, eventID, userID); err == nil {
		return existing, false, nil
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, false, fmt.Errorf("get event registration: %w", err)
	}

	now := s.now()
	if !event.AcceptsRegistrations(now) {
		return nil, false, domain.ErrRegistrationClosed
	}
	if event.IsFull() {
		return nil, false, domain.ErrEventFull
	}

	reg := domain.NewEventRegistration(eventID, userID, now, now)
	if err := s.registrationRepo.Create(ctx, reg); err != nil {
		switch {
		case errors.Is(err, domain.ErrConflict):
			existing, getErr := s.registrationRepo.GetByEventAndUser(ctx, eventID, userID)
			if getErr != nil {
				return nil, false, fmt.Errorf("get event registration: %w", getErr)
			}
			return existing, false, nil
		case errors.Is(err, domain.ErrEventFull), errors.Is(err, domain.ErrRegistrationClosed), errors.Is(err, domain.ErrNotFound):
			return nil, false, err
		}
		return nil, false, fmt.Errorf("create event registration: %w", err)
	}

	s.invalidateListings(ctx)
	s.sendConfirmation(ctx, event, userID)
	return reg, true, nil
}

func (s *attendeeService) CancelRegistration(ctx context.Context, eventID, userID string) error {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if err := s.registrationRepo.Delete(ctx, eventID, userID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("delete event registration: %w", err)
	}
	s.invalidateListings(ctx)
	return nil
}

func (s *attendeeService) ToggleFavorite(ctx context.Context, eventID, userID string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if _, err := s.visibleEvent(ctx, eventID, userID); err != nil {
		return false, err
	}
	favorited, err := s.favoriteRepo.Toggle(ctx, eventID, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return false, domain.ErrNotFound
		}
		return false, fmt.Errorf("toggle favorite: %w", err)
	}
	return favorited, nil
}

// visibleEvent loads an event the user can interact with. Events that are not
// publicly visible count as missing unless the user organizes them.
func (s *attendeeService) visibleEvent(ctx context.Context, eventID, userID string) (*domain.Event, error) {
	event, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	if !event.IsPubliclyVisible() && event.OrganizerID != userID {
		return nil, domain.ErrNotFound
	}
	return event, nil
}

// invalidateListings drops cached pages so registration counts and popularity stay fresh.
func (s *attendeeService) invalidateListings(ctx context.Context) {
	if err := s.eventCache.Invalidate(ctx); err != nil {
		s.logger.WarnContext(ctx, "event cache invalidate failed", "err", err)
	}
}

func (s *attendeeService) sendConfirmation(ctx context.Context, event *domain.Event, userID string) {
	if s.emailService == nil {
		return
	}
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		s.logger.WarnContext(ctx, "registration email skipped", "user_id", userID, "err", err)
		return
	}
	data := &domain.RegistrationEmailData{
		Email:        user.Email,
		Name:         user.Author().Name,
		EventTitle:   event.Title,
		StartsAt:     event.StartAt.Format(registrationEmailTimeLayout),
		LocationText: event.LocationText,
	}
	if err := s.emailService.SendRegistrationConfirmation(ctx, data); err != nil {
		s.logger.WarnContext(ctx, "registration email failed", "user_id", userID, "event_id", event.ID, "err", err)
	}
}
