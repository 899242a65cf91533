package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"crewplanner/internal/domain"
)

type eventService struct {
	eventRepo      domain.EventRepository
	positionRepo   domain.PositionRepository
	notifier       *Notifier
	logger         *slog.Logger
	contextTimeout time.Duration
}

func NewEventService(eventRepo domain.EventRepository,
	positionRepo domain.PositionRepository,
	notifier *Notifier,
	logger *slog.Logger,
	timeout time.Duration,
) domain.EventService {
	return &eventService{
		eventRepo:      eventRepo,
		positionRepo:   positionRepo,
		notifier:       notifier,
		logger:         logger,
		contextTimeout: timeout,
	}
}

func (s *eventService) CreateEvent(ctx context.Context, user domain.SignedInUser, spec domain.CreateEventSpec) (*domain.Event, error) {
	if err := user.AssertHasPermission(domain.PermissionCreateEvents); err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	event, err := domain.NewEvent(spec)
	if err != nil {
		return nil, err
	}
	if err := s.checkSlotPositions(ctx, event.Slots); err != nil {
		return nil, err
	}
	if err := s.eventRepo.Create(ctx, &event); err != nil {
		return nil, fmt.Errorf("create event: %w", err)
	}
	return &event, nil
}

func (s *eventService) GetEvent(ctx context.Context, user domain.SignedInUser, key domain.EventKey) (*domain.Event, error) {
	if err := user.AssertHasPermission(domain.PermissionReadEvents); err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()
	return s.loadEvent(ctx, key)
}

func (s *eventService) ListEventsByYear(ctx context.Context, user domain.SignedInUser, year int) ([]*domain.Event, error) {
	if err := user.AssertHasPermission(domain.PermissionReadEvents); err != nil {
		return nil, err
	}
	if year < 1 || year > 9999 {
		return nil, fmt.Errorf("%w: year %d out of range", domain.ErrInvalidInput, year)
	}
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	events, err := s.eventRepo.FindAllByYear(ctx, year)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	if events == nil {
		events = []*domain.Event{}
	}
	return events, nil
}

func (s *eventService) UpdateEvent(ctx context.Context, user domain.SignedInUser, key domain.EventKey, spec domain.UpdateEventSpec) (*domain.Event, error) {
	if err := user.AssertHasPermission(domain.PermissionWriteEvents); err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	before, err := s.loadEvent(ctx, key)
	if err != nil {
		return nil, err
	}
	after, err := before.ApplyUpdate(spec)
	if err != nil {
		return nil, err
	}
	if spec.Slots.IsSet() {
		if err := s.checkSlotPositions(ctx, after.Slots); err != nil {
			return nil, err
		}
	}
	if err := s.eventRepo.Update(ctx, &after); err != nil {
		return nil, fmt.Errorf("update event: %w", err)
	}

	if err := s.notifier.NotifyCrewChanges(ctx, *before, after); err != nil {
		s.logger.ErrorContext(ctx, "crew change notifications", "event", key, "error", err)
	}
	if before.State != domain.EventStateCanceled && after.State == domain.EventStateCanceled {
		if err := s.notifier.NotifyEventCanceled(ctx, after); err != nil {
			s.logger.ErrorContext(ctx, "cancel notifications", "event", key, "error", err)
		}
	}
	return &after, nil
}

func (s *eventService) DeleteEvent(ctx context.Context, user domain.SignedInUser, key domain.EventKey) error {
	if err := user.AssertHasPermission(domain.PermissionDeleteEvents); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if err := s.eventRepo.DeleteByKey(ctx, key); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("delete event: %w", err)
	}
	return nil
}

func (s *eventService) loadEvent(ctx context.Context, key domain.EventKey) (*domain.Event, error) {
	event, err := s.eventRepo.FindByKey(ctx, key)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	return event, nil
}

// checkSlotPositions rejects slots that reference positions missing from the catalog.
func (s *eventService) checkSlotPositions(ctx context.Context, slots []domain.Slot) error {
	if len(slots) == 0 {
		return nil
	}
	positions, err := s.positionRepo.FindAll(ctx)
	if err != nil {
		return fmt.Errorf("list positions: %w", err)
	}
	known := make(map[domain.PositionKey]struct{}, len(positions))
	for _, p := range positions {
		known[p.Key] = struct{}{}
	}
	for _, slot := range slots {
		for _, p := range slot.Positions {
			if _, ok := known[p]; !ok {
				return fmt.Errorf("%w: slot %s references unknown position %s", domain.ErrInvalidInput, slot.Key, p)
			}
		}
	}
	return nil
}
