package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"crewplanner/internal/domain"
)

type positionService struct {
	positionRepo   domain.PositionRepository
	contextTimeout time.Duration
}

// NewPositionService creates a PositionService. Deleting a position does not
// touch events that still reference it.
func NewPositionService(positionRepo domain.PositionRepository, timeout time.Duration) domain.PositionService {
	return &positionService{positionRepo: positionRepo, contextTimeout: timeout}
}

func (s *positionService) ListPositions(ctx context.Context, user domain.SignedInUser) ([]*domain.Position, error) {
	if err := user.AssertHasPermission(domain.PermissionReadPositions); err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	positions, err := s.positionRepo.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list positions: %w", err)
	}
	if positions == nil {
		positions = []*domain.Position{}
	}
	return positions, nil
}

func (s *positionService) CreatePosition(ctx context.Context, user domain.SignedInUser, p *domain.Position) error {
	if err := user.AssertHasPermission(domain.PermissionWritePositions); err != nil {
		return err
	}
	if p.Key == "" {
		p.Key = domain.NewPositionKey()
	}
	if err := p.Validate(); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if err := s.positionRepo.Create(ctx, p); err != nil {
		return fmt.Errorf("create position: %w", err)
	}
	return nil
}

func (s *positionService) UpdatePosition(ctx context.Context, user domain.SignedInUser, p *domain.Position) error {
	if err := user.AssertHasPermission(domain.PermissionWritePositions); err != nil {
		return err
	}
	if err := p.Validate(); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if err := s.positionRepo.Update(ctx, p); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("update position: %w", err)
	}
	return nil
}

func (s *positionService) DeletePosition(ctx context.Context, user domain.SignedInUser, key domain.PositionKey) error {
	if err := user.AssertHasPermission(domain.PermissionWritePositions); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if err := s.positionRepo.DeleteByKey(ctx, key); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("delete position: %w", err)
	}
	return nil
}
