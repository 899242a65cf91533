package services

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"crewplanner/internal/domain"
)

type registrationService struct {
	eventRepo      domain.EventRepository
	positionRepo   domain.PositionRepository
	notifier       *Notifier
	logger         *slog.Logger
	now            func() time.Time
	contextTimeout time.Duration
}

// NewRegistrationService creates a RegistrationService operating on whole event aggregates.
func NewRegistrationService(
	eventRepo domain.EventRepository,
	positionRepo domain.PositionRepository,
	notifier *Notifier,
	logger *slog.Logger,
	timeout time.Duration,
) domain.RegistrationService {
	return &registrationService{
		eventRepo:      eventRepo,
		positionRepo:   positionRepo,
		notifier:       notifier,
		logger:         logger,
		now:            time.Now,
		contextTimeout: timeout,
	}
}

func (s *registrationService) AddRegistration(ctx context.Context, user domain.SignedInUser, eventKey domain.EventKey, spec domain.CreateRegistrationSpec) (*domain.Registration, error) {
	if err := assertMayWriteRegistration(user, spec.User); err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	event, err := s.loadEvent(ctx, eventKey)
	if err != nil {
		return nil, err
	}
	if err := s.checkPosition(ctx, spec.Position); err != nil {
		return nil, err
	}
	next, reg, err := event.AddRegistration(spec)
	if err != nil {
		return nil, err
	}
	if err := s.eventRepo.Update(ctx, &next); err != nil {
		return nil, fmt.Errorf("save event: %w", err)
	}
	if next.State == domain.EventStateOpenForSignup || next.State == domain.EventStatePlanned {
		s.notify(ctx, domain.NotificationAddedToWaitingList, next, reg)
	}
	return &reg, nil
}

func (s *registrationService) UpdateRegistration(ctx context.Context, user domain.SignedInUser, eventKey domain.EventKey, key domain.RegistrationKey, spec domain.UpdateRegistrationSpec) (*domain.Registration, error) {
	if err := assertMayWriteRegistrations(user); err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	event, err := s.loadEvent(ctx, eventKey)
	if err != nil {
		return nil, err
	}
	current, ok := event.FindRegistration(key)
	if !ok {
		return nil, fmt.Errorf("%w: registration %s", domain.ErrNotFound, key)
	}
	if err := assertMayWriteRegistration(user, current.User); err != nil {
		return nil, err
	}
	if err := assertMayWriteRegistration(user, spec.User); err != nil {
		return nil, err
	}
	if spec.Position != current.Position {
		if err := s.checkPosition(ctx, spec.Position); err != nil {
			return nil, err
		}
	}
	next, err := event.UpdateRegistration(key, spec, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.eventRepo.Update(ctx, &next); err != nil {
		return nil, fmt.Errorf("save event: %w", err)
	}
	updated, _ := next.FindRegistration(key)
	return &updated, nil
}

func (s *registrationService) RemoveRegistration(ctx context.Context, user domain.SignedInUser, eventKey domain.EventKey, key domain.RegistrationKey) error {
	if err := assertMayWriteRegistrations(user); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	event, err := s.loadEvent(ctx, eventKey)
	if err != nil {
		return err
	}
	current, ok := event.FindRegistration(key)
	if !ok {
		return fmt.Errorf("%w: registration %s", domain.ErrNotFound, key)
	}
	if err := assertMayWriteRegistration(user, current.User); err != nil {
		return err
	}
	return s.remove(ctx, event, key)
}

func (s *registrationService) ConfirmByToken(ctx context.Context, eventKey domain.EventKey, key domain.RegistrationKey, accessKey string) error {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	event, err := s.authorizeAccessKey(ctx, eventKey, key, accessKey)
	if err != nil {
		return err
	}
	next, err := event.ConfirmRegistration(key, s.now())
	if err != nil {
		return err
	}
	if err := s.eventRepo.Update(ctx, &next); err != nil {
		return fmt.Errorf("save event: %w", err)
	}
	return nil
}

func (s *registrationService) DeclineByToken(ctx context.Context, eventKey domain.EventKey, key domain.RegistrationKey, accessKey string) error {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	event, err := s.authorizeAccessKey(ctx, eventKey, key, accessKey)
	if err != nil {
		return err
	}
	return s.remove(ctx, event, key)
}

func (s *registrationService) remove(ctx context.Context, event *domain.Event, key domain.RegistrationKey) error {
	_, wasCrew := event.SlotOf(key)
	next, removed, err := event.RemoveRegistration(key)
	if err != nil {
		return err
	}
	if err := s.eventRepo.Update(ctx, &next); err != nil {
		return fmt.Errorf("save event: %w", err)
	}
	switch {
	case wasCrew && event.State == domain.EventStatePlanned:
		s.notify(ctx, domain.NotificationRemovedFromCrew, next, removed)
	case event.State == domain.EventStateOpenForSignup || event.State == domain.EventStatePlanned:
		s.notify(ctx, domain.NotificationRemovedFromWaitingList, next, removed)
	}
	return nil
}

// authorizeAccessKey loads the event and checks accessKey against the
// registration's key in constant time. Unknown events and registrations fail
// like a wrong key so the link reveals nothing about which keys exist.
func (s *registrationService) authorizeAccessKey(ctx context.Context, eventKey domain.EventKey, key domain.RegistrationKey, accessKey string) (*domain.Event, error) {
	if accessKey == "" {
		return nil, fmt.Errorf("%w: access key required", domain.ErrUnauthorized)
	}
	event, err := s.loadEvent(ctx, eventKey)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("%w: invalid access key", domain.ErrUnauthorized)
	}
	if err != nil {
		return nil, err
	}
	var stored string
	if reg, ok := event.FindRegistration(key); ok {
		stored = reg.AccessKey
	}
	if stored == "" || subtle.ConstantTimeCompare([]byte(stored), []byte(accessKey)) != 1 {
		return nil, fmt.Errorf("%w: invalid access key", domain.ErrUnauthorized)
	}
	return event, nil
}

func (s *registrationService) loadEvent(ctx context.Context, key domain.EventKey) (*domain.Event, error) {
	event, err := s.eventRepo.FindByKey(ctx, key)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	return event, nil
}

func (s *registrationService) checkPosition(ctx context.Context, key domain.PositionKey) error {
	if _, err := s.positionRepo.FindByKey(ctx, key); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("%w: position %s", domain.ErrNotFound, key)
		}
		return fmt.Errorf("get position: %w", err)
	}
	return nil
}

func (s *registrationService) notify(ctx context.Context, t domain.NotificationType, event domain.Event, reg domain.Registration) {
	if err := s.notifier.NotifyRegistration(ctx, t, event, reg); err != nil {
		s.logger.ErrorContext(ctx, "registration notification", "type", t, "event", event.Key, "registration", reg.Key, "error", err)
	}
}

// assertMayWriteRegistration allows writes with write_registrations, or with
// write_own_registrations when the registration belongs to the caller.
func assertMayWriteRegistration(user domain.SignedInUser, owner *domain.UserKey) error {
	if user.HasPermission(domain.PermissionWriteRegistrations) {
		return nil
	}
	if owner != nil && *owner == user.Key && user.HasPermission(domain.PermissionWriteOwnRegistration) {
		return nil
	}
	return fmt.Errorf("%w: missing permission %s", domain.ErrForbidden, domain.PermissionWriteRegistrations)
}

// assertMayWriteRegistrations is the check done before loading anything: the
// caller needs at least one of the registration write permissions.
func assertMayWriteRegistrations(user domain.SignedInUser) error {
	if user.HasPermission(domain.PermissionWriteRegistrations) || user.HasPermission(domain.PermissionWriteOwnRegistration) {
		return nil
	}
	return fmt.Errorf("%w: missing permission %s", domain.ErrForbidden, domain.PermissionWriteRegistrations)
}
