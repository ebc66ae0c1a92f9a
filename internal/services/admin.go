package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"freeday/internal/domain"
)

type adminService struct {
	adminRepo      domain.AdminRepository
	eventCache     domain.EventListCache
	logger         *slog.Logger
	contextTimeout time.Duration
}

// NewAdminService creates the AdminService behind the dashboard.
func NewAdminService(adminRepo domain.AdminRepository, eventCache domain.EventListCache, logger *slog.Logger, timeout time.Duration) domain.AdminService {
	return &adminService{
		adminRepo:      adminRepo,
		eventCache:     eventCache,
		logger:         logger,
		contextTimeout: timeout,
	}
}

func (s *adminService) Stats(ctx context.Context) (*domain.DashboardStats, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	stats, err := s.adminRepo.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("dashboard stats: %w", err)
	}
	return stats, nil
}

func (s *adminService) ListPendingEvents(ctx context.Context, params domain.PaginationParams) ([]*domain.ModerationItem, int, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	items, total, err := s.adminRepo.ListPendingEvents(ctx, params)
	if err != nil {
		return nil, 0, fmt.Errorf("list pending events: %w", err)
	}
	return items, total, nil
}

func (s *adminService) ListPendingPosts(ctx context.Context, params domain.PaginationParams) ([]*domain.ModerationItem, int, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	items, total, err := s.adminRepo.ListPendingPosts(ctx, params)
	if err != nil {
		return nil, 0, fmt.Errorf("list pending posts: %w", err)
	}
	return items, total, nil
}

func (s *adminService) ModerateEvent(ctx context.Context, eventID string, decision domain.ModerationDecision) (domain.ModerationStatus, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	status, ok := decision.Status()
	if !ok {
		return "", fmt.Errorf("%w: decision must be approve or reject", domain.ErrInvalidInput)
	}
	if err := s.adminRepo.SetEventModeration(ctx, eventID, status); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return "", domain.ErrNotFound
		}
		return "", fmt.Errorf("moderate event: %w", err)
	}
	if err := s.eventCache.Invalidate(ctx); err != nil {
		s.logger.WarnContext(ctx, "event cache invalidate failed", "err", err)
	}
	return status, nil
}

func (s *adminService) ModeratePost(ctx context.Context, postID string, decision domain.ModerationDecision) (domain.ModerationStatus, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	status, ok := decision.Status()
	if !ok {
		return "", fmt.Errorf("%w: decision must be approve or reject", domain.ErrInvalidInput)
	}
	if err := s.adminRepo.SetPostModeration(ctx, postID, status); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return "", domain.ErrNotFound
		}
		return "", fmt.Errorf("moderate post: %w", err)
	}
	return status, nil
}
