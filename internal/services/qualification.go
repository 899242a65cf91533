package services

import (
	"context"
	"fmt"
	"time"

	"crewplanner/internal/domain"
)

type qualificationService struct {
	qualificationRepo domain.QualificationRepository
	positionRepo      domain.PositionRepository
	contextTimeout    time.Duration
}

func NewQualificationService(qualificationRepo domain.QualificationRepository, positionRepo domain.PositionRepository, timeout time.Duration) domain.QualificationService {
	return &qualificationService{
		qualificationRepo: qualificationRepo,
		positionRepo:      positionRepo,
		contextTimeout:    timeout,
	}
}

func (s *qualificationService) ListQualifications(ctx context.Context, user domain.SignedInUser) ([]*domain.Qualification, error) {
	if err := user.AssertHasPermission(domain.PermissionReadQualifications); err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	qualifications, err := s.qualificationRepo.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list qualifications: %w", err)
	}
	if qualifications == nil {
		qualifications = []*domain.Qualification{}
	}
	return qualifications, nil
}

func (s *qualificationService) CreateQualification(ctx context.Context, user domain.SignedInUser, q *domain.Qualification) error {
	if err := user.AssertHasPermission(domain.PermissionWriteQualifications); err != nil {
		return err
	}
	if q.Key == "" {
		q.Key = domain.NewQualificationKey()
	}
	if err := q.Validate(); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if len(q.GrantsPositions) > 0 {
		positions, err := s.positionRepo.FindAll(ctx)
		if err != nil {
			return fmt.Errorf("list positions: %w", err)
		}
		known := make(map[domain.PositionKey]struct{}, len(positions))
		for _, p := range positions {
			known[p.Key] = struct{}{}
		}
		for _, k := range q.GrantsPositions {
			if _, ok := known[k]; !ok {
				return fmt.Errorf("%w: unknown position %s", domain.ErrInvalidInput, k)
			}
		}
	}
	if err := s.qualificationRepo.Create(ctx, q); err != nil {
		return fmt.Errorf("create qualification: %w", err)
	}
	return nil
}
