package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"crewplanner/internal/domain"
)

// qualificationWarningDays are the days before expiry on which holders are warned.
var qualificationWarningDays = []int{30, 7}

// ConfirmationSweep sends the two waves of participation confirmation
// requests for upcoming planned events. The wave counter on the event keeps
// a wave from being sent twice.
type ConfirmationSweep struct {
	eventRepo domain.EventRepository
	notifier  *Notifier
	logger    *slog.Logger
	now       func() time.Time
}

func NewConfirmationSweep(eventRepo domain.EventRepository, notifier *Notifier, logger *slog.Logger) *ConfirmationSweep {
	return &ConfirmationSweep{eventRepo: eventRepo, notifier: notifier, logger: logger, now: time.Now}
}

// Name identifies the sweep in logs and metrics.
func (s *ConfirmationSweep) Name() string { return "confirmation_requests" }

// Run checks every event starting within the first-wave window.
func (s *ConfirmationSweep) Run(ctx context.Context) error {
	now := s.now()
	events, err := s.upcomingEvents(ctx, now)
	if err != nil {
		return err
	}
	var errs []error
	for _, event := range events {
		var (
			wave     domain.NotificationType
			sentMark int
		)
		switch {
		case event.IsUpForFirstConfirmationRequest(now):
			wave, sentMark = domain.NotificationConfirmationRequest, 1
		case event.IsUpForSecondConfirmationRequest(now):
			wave, sentMark = domain.NotificationConfirmationReminder, 2
		default:
			continue
		}
		if err := s.sendWave(ctx, *event, wave, sentMark); err != nil {
			errs = append(errs, fmt.Errorf("event %s: %w", event.Key, err))
		}
	}
	return errors.Join(errs...)
}

// sendWave records the wave on the event first, so a concurrent edit makes
// the sweep skip the event instead of sending duplicates.
func (s *ConfirmationSweep) sendWave(ctx context.Context, event domain.Event, wave domain.NotificationType, sentMark int) error {
	next, err := event.ApplyUpdate(domain.UpdateEventSpec{ConfirmationRequestsSent: domain.Some(sentMark)})
	if err != nil {
		return err
	}
	if err := s.eventRepo.Update(ctx, &next); err != nil {
		return fmt.Errorf("save wave counter: %w", err)
	}
	sent := 0
	var errs []error
	for _, key := range next.AssignedRegistrationKeys() {
		reg, ok := next.FindRegistration(key)
		if !ok || reg.IsConfirmed() || reg.User == nil {
			continue
		}
		if err := s.notifier.NotifyRegistration(ctx, wave, next, reg); err != nil {
			errs = append(errs, err)
			continue
		}
		sent++
	}
	s.logger.InfoContext(ctx, "confirmation wave queued", "event", next.Key, "type", wave, "recipients", sent)
	return errors.Join(errs...)
}

func (s *ConfirmationSweep) upcomingEvents(ctx context.Context, now time.Time) ([]*domain.Event, error) {
	events, err := s.eventRepo.FindAllByYear(ctx, now.Year())
	if err != nil {
		return nil, fmt.Errorf("list events %d: %w", now.Year(), err)
	}
	if horizon := now.AddDate(0, 0, 14); horizon.Year() != now.Year() {
		next, err := s.eventRepo.FindAllByYear(ctx, horizon.Year())
		if err != nil {
			return nil, fmt.Errorf("list events %d: %w", horizon.Year(), err)
		}
		events = append(events, next...)
	}
	return events, nil
}

// QualificationSweep warns users whose qualifications expire soon.
type QualificationSweep struct {
	userRepo          domain.UserRepository
	qualificationRepo domain.QualificationRepository
	notifier          *Notifier
	logger            *slog.Logger
	now               func() time.Time
}

func NewQualificationSweep(userRepo domain.UserRepository, qualificationRepo domain.QualificationRepository, notifier *Notifier, logger *slog.Logger) *QualificationSweep {
	return &QualificationSweep{
		userRepo:          userRepo,
		qualificationRepo: qualificationRepo,
		notifier:          notifier,
		logger:            logger,
		now:               time.Now,
	}
}

func (s *QualificationSweep) Name() string { return "qualification_expiry" }

func (s *QualificationSweep) Run(ctx context.Context) error {
	qualifications, err := s.qualificationRepo.FindAll(ctx)
	if err != nil {
		return fmt.Errorf("list qualifications: %w", err)
	}
	byKey := make(map[domain.QualificationKey]*domain.Qualification, len(qualifications))
	for _, q := range qualifications {
		byKey[q.Key] = q
	}
	users, err := s.userRepo.FindAll(ctx)
	if err != nil {
		return fmt.Errorf("list users: %w", err)
	}

	today := s.now()
	var errs []error
	for _, user := range users {
		for _, uq := range user.Qualifications {
			q, ok := byKey[uq.QualificationKey]
			if !ok || !q.Expires {
				continue
			}
			for _, days := range qualificationWarningDays {
				if !uq.ExpiresOn(today.AddDate(0, 0, days)) {
					continue
				}
				if err := s.notifier.NotifyQualificationExpiry(ctx, user, q, *uq.ExpiresAt); err != nil {
					errs = append(errs, err)
				}
			}
		}
	}
	return errors.Join(errs...)
}
