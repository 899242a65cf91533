package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"crewplanner/internal/domain"
)

const notificationDateLayout = "02.01.2006 15:04"

// NotificationRecorder counts queued notifications. Implemented by metrics.Metrics.
type NotificationRecorder interface {
	NotificationQueued(t domain.NotificationType)
}

// Notifier turns domain changes into notification requests on the durable queue.
type Notifier struct {
	queue    domain.NotificationQueue
	userRepo domain.UserRepository
	baseURL  string
	recorder NotificationRecorder
	logger   *slog.Logger
}

// NewNotifier returns a Notifier. baseURL is the public web address used to
// build confirm/decline links; recorder may be nil.
func NewNotifier(queue domain.NotificationQueue, userRepo domain.UserRepository, baseURL string, recorder NotificationRecorder, logger *slog.Logger) *Notifier {
	return &Notifier{
		queue:    queue,
		userRepo: userRepo,
		baseURL:  strings.TrimSuffix(baseURL, "/"),
		recorder: recorder,
		logger:   logger,
	}
}

// NotifyRegistration queues a notification of type t for the registrant.
// Guest registrations have no address and are skipped.
func (n *Notifier) NotifyRegistration(ctx context.Context, t domain.NotificationType, event domain.Event, reg domain.Registration) error {
	if reg.User == nil {
		return nil
	}
	user, err := n.userRepo.FindByKey(ctx, *reg.User)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			n.logger.WarnContext(ctx, "notification recipient missing", "type", t, "user", *reg.User)
			return nil
		}
		return fmt.Errorf("get recipient: %w", err)
	}
	props := eventProps(event)
	props["firstName"] = user.FirstName
	props["registrationKey"] = string(reg.Key)
	if slot, ok := event.SlotOf(reg.Key); ok && slot.Name != nil {
		props["slotName"] = *slot.Name
	}
	switch t {
	case domain.NotificationConfirmationRequest, domain.NotificationConfirmationReminder, domain.NotificationAddedToCrew:
		props["confirmUrl"] = n.registrationLink(event.Key, reg, "confirm")
		props["declineUrl"] = n.registrationLink(event.Key, reg, "decline")
	}
	return n.enqueue(ctx, domain.NotificationRequest{
		Type:     t,
		To:       user.Email,
		UserKey:  user.Key,
		EventKey: event.Key,
		Props:    props,
	})
}

// NotifyCrewChanges compares two versions of an event and tells every
// registrant whose crew membership changed. Crew notifications only go out
// for planned events; an event that just became planned is compared against
// an empty roster so the whole crew hears about it.
func (n *Notifier) NotifyCrewChanges(ctx context.Context, before, after domain.Event) error {
	if after.State != domain.EventStatePlanned {
		return nil
	}
	baseline := before
	if before.State != domain.EventStatePlanned {
		baseline = domain.Event{Key: before.Key}
	}
	changes := after.CrewChangesSince(baseline)
	var errs []error
	for _, key := range changes.Added {
		if reg, ok := after.FindRegistration(key); ok {
			errs = append(errs, n.NotifyRegistration(ctx, domain.NotificationAddedToCrew, after, reg))
		}
	}
	for _, key := range changes.Removed {
		reg, ok := after.FindRegistration(key)
		if !ok {
			// removed from the event as well; the removal path notifies
			continue
		}
		errs = append(errs, n.NotifyRegistration(ctx, domain.NotificationRemovedFromCrew, after, reg))
	}
	return errors.Join(errs...)
}

// NotifyEventCanceled tells every registered user that the event was canceled.
func (n *Notifier) NotifyEventCanceled(ctx context.Context, event domain.Event) error {
	var errs []error
	for _, reg := range event.Registrations {
		errs = append(errs, n.NotifyRegistration(ctx, domain.NotificationEventCanceled, event, reg))
	}
	return errors.Join(errs...)
}

// NotifyQualificationExpiry warns a user that a qualification expires soon.
func (n *Notifier) NotifyQualificationExpiry(ctx context.Context, user *domain.User, q *domain.Qualification, expiresAt time.Time) error {
	return n.enqueue(ctx, domain.NotificationRequest{
		Type:    domain.NotificationQualificationWillExpire,
		To:      user.Email,
		UserKey: user.Key,
		Props: map[string]string{
			"firstName":         user.FirstName,
			"qualificationName": q.Name,
			"expiresAt":         expiresAt.Format("02.01.2006"),
		},
	})
}

func (n *Notifier) enqueue(ctx context.Context, req domain.NotificationRequest) error {
	if req.To == "" {
		return nil
	}
	if err := n.queue.Queue(ctx, req); err != nil {
		return fmt.Errorf("queue %s notification: %w", req.Type, err)
	}
	if n.recorder != nil {
		n.recorder.NotificationQueued(req.Type)
	}
	return nil
}

func (n *Notifier) registrationLink(eventKey domain.EventKey, reg domain.Registration, action string) string {
	return fmt.Sprintf("%s/events/%s/registrations/%s/%s?accessKey=%s",
		n.baseURL, url.PathEscape(string(eventKey)), url.PathEscape(string(reg.Key)), action, url.QueryEscape(reg.AccessKey))
}

func eventProps(e domain.Event) map[string]string {
	return map[string]string{
		"eventKey":   string(e.Key),
		"eventName":  e.Name,
		"eventStart": e.Start.Format(notificationDateLayout),
		"eventEnd":   e.End.Format(notificationDateLayout),
	}
}
