package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"freeday/internal/domain"
)

type eventService struct {
	eventRepo      domain.EventRepository
	cache          domain.EventListCache
	sf             singleflight.Group
	logger         *slog.Logger
	contextTimeout time.Duration
	now            func() time.Time
}

// NewEventService creates an EventService. Listing pages are served from cache when possible
// and concurrent misses for the same filter share one query.
func NewEventService(eventRepo domain.EventRepository, cache domain.EventListCache, logger *slog.Logger, timeout time.Duration) domain.EventService {
	return &eventService{
		eventRepo:      eventRepo,
		cache:          cache,
		logger:         logger,
		contextTimeout: timeout,
		now:            time.Now,
	}
}

func (s *eventService) ListEvents(ctx context.Context, filter domain.EventFilter) (*domain.EventPage, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	cacheable := true
	gen, err := s.cache.Generation(ctx)
	if err != nil {
		s.logger.WarnContext(ctx, "event cache generation failed", "err", err)
		cacheable = false
	}
	key := fmt.Sprintf("%d:%s", gen, filter.CacheKey())
	if cacheable {
		if page, err := s.cache.Get(ctx, key); err != nil {
			s.logger.WarnContext(ctx, "event cache get failed", "err", err)
		} else if page != nil {
			return page, nil
		}
	}

	// The shared load is detached from the first caller; every caller waits on its own ctx.
	ch := s.sf.DoChan(key, func() (interface{}, error) {
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.contextTimeout)
		defer cancel()
		return s.loadEvents(loadCtx, key, filter, cacheable)
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*domain.EventPage), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *eventService) loadEvents(ctx context.Context, key string, filter domain.EventFilter, cacheable bool) (*domain.EventPage, error) {
	events, total, err := s.eventRepo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	page := &domain.EventPage{Items: nonNilEvents(events), Total: total}
	if cacheable {
		if err := s.cache.Set(ctx, key, page); err != nil {
			s.logger.WarnContext(ctx, "event cache set failed", "err", err)
		}
	}
	return page, nil
}

func (s *eventService) ListEventTypes(ctx context.Context) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	types, err := s.eventRepo.ListTypes(ctx)
	if err != nil {
		return nil, fmt.Errorf("list event types: %w", err)
	}
	return types, nil
}

func (s *eventService) GetEvent(ctx context.Context, eventID string, viewer domain.Actor) (*domain.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	event, err := s.getEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if !event.IsPubliclyVisible() && !viewer.Owns(event.OrganizerID) {
		return nil, domain.ErrNotFound
	}
	return event, nil
}

func (s *eventService) CreateEvent(ctx context.Context, event *domain.Event, actor domain.Actor) error {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if !actor.Role.CanOrganize() {
		return domain.ErrForbidden
	}
	switch event.Status {
	case "":
		event.Status = domain.EventStatusDraft
	case domain.EventStatusDraft, domain.EventStatusPublished:
	default:
		return fmt.Errorf("%w: status must be Draft or Published", domain.ErrInvalidInput)
	}
	if err := event.CheckDetails(); err != nil {
		return err
	}
	if err := event.CheckSchedule(); err != nil {
		return err
	}
	event.Tags = domain.NormalizeTags(event.Tags)

	now := s.now()
	event.OrganizerID = actor.UserID
	event.ModerationStatus = domain.ModerationPending
	event.CreatedAt = now
	event.UpdatedAt = now
	if err := s.eventRepo.Create(ctx, event); err != nil {
		return fmt.Errorf("create event: %w", err)
	}
	s.invalidateListings(ctx)
	return nil
}

func (s *eventService) UpdateEvent(ctx context.Context, eventID string, actor domain.Actor, update domain.EventUpdate) (*domain.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	event, err := s.ownedEvent(ctx, eventID, actor)
	if err != nil {
		return nil, err
	}

	update.Apply(event)
	if err := event.CheckDetails(); err != nil {
		return nil, err
	}
	if err := event.CheckSchedule(); err != nil {
		return nil, err
	}
	event.Tags = domain.NormalizeTags(event.Tags)
	if event.Capacity != nil && *event.Capacity < event.RegistrationsCount {
		return nil, fmt.Errorf("%w: capacity cannot be below the %d current registrations", domain.ErrInvalidInput, event.RegistrationsCount)
	}

	event.UpdatedAt = s.now()
	if err := s.eventRepo.Update(ctx, event); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("update event: %w", err)
	}
	s.invalidateListings(ctx)
	return event, nil
}

func (s *eventService) ChangeStatus(ctx context.Context, eventID string, actor domain.Actor, status domain.EventStatus) (*domain.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if !status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", domain.ErrInvalidInput, status)
	}
	event, err := s.ownedEvent(ctx, eventID, actor)
	if err != nil {
		return nil, err
	}
	if !event.Status.CanTransitionTo(status) {
		return nil, domain.ErrInvalidTransition
	}

	if err := s.eventRepo.UpdateStatus(ctx, eventID, status); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("update event status: %w", err)
	}
	event.Status = status
	event.UpdatedAt = s.now()
	s.invalidateListings(ctx)
	return event, nil
}

func (s *eventService) DeleteEvent(ctx context.Context, eventID string, actor domain.Actor) error {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if _, err := s.ownedEvent(ctx, eventID, actor); err != nil {
		return err
	}
	if err := s.eventRepo.Delete(ctx, eventID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("delete event: %w", err)
	}
	s.invalidateListings(ctx)
	return nil
}

func (s *eventService) ListManagedEvents(ctx context.Context, actor domain.Actor, filter domain.ManagedEventFilter) ([]*domain.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if !actor.Role.CanOrganize() {
		return nil, domain.ErrForbidden
	}
	events, err := s.eventRepo.ListByOrganizer(ctx, actor.UserID, filter)
	if err != nil {
		return nil, fmt.Errorf("list managed events: %w", err)
	}
	return nonNilEvents(events), nil
}

func (s *eventService) getEvent(ctx context.Context, eventID string) (*domain.Event, error) {
	event, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	return event, nil
}

// ownedEvent loads the event and checks that actor is its organizer or an admin.
// Events the actor may not even see are reported as missing.
func (s *eventService) ownedEvent(ctx context.Context, eventID string, actor domain.Actor) (*domain.Event, error) {
	event, err := s.getEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if !actor.Owns(event.OrganizerID) {
		if !event.IsPubliclyVisible() {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrForbidden
	}
	return event, nil
}

func (s *eventService) invalidateListings(ctx context.Context) {
	if err := s.cache.Invalidate(ctx); err != nil {
		s.logger.WarnContext(ctx, "event cache invalidate failed", "err", err)
	}
}
