package domain

import (
	"context"
	"time"
)

// NotificationType selects the email template used for a notification.
type NotificationType string

const (
	NotificationAddedToWaitingList      NotificationType = "added_to_waiting_list"
	NotificationRemovedFromWaitingList  NotificationType = "removed_from_waiting_list"
	NotificationAddedToCrew             NotificationType = "added_to_crew"
	NotificationRemovedFromCrew         NotificationType = "removed_from_crew"
	NotificationConfirmationRequest     NotificationType = "confirmation_request"
	NotificationConfirmationReminder    NotificationType = "confirmation_reminder"
	NotificationEventCanceled           NotificationType = "event_canceled"
	NotificationQualificationWillExpire NotificationType = "qualification_will_expire"
)

// NotificationRequest is one email to be sent by the queue drainer.
type NotificationRequest struct {
	ID       string            `json:"id"`
	Type     NotificationType  `json:"type"`
	To       string            `json:"to"`
	UserKey  UserKey           `json:"userKey"`
	EventKey EventKey          `json:"eventKey,omitempty"`
	Props    map[string]string `json:"props"`
}

// QueuedNotification is a request as stored in the durable queue.
type QueuedNotification struct {
	Request   NotificationRequest
	Attempts  int
	CreatedAt time.Time
}

// NotificationQueue is the producer side of the durable notification queue.
type NotificationQueue interface {
	Queue(ctx context.Context, req NotificationRequest) error
}

// NotificationOutbox is the consumer side used by the drainer. Delivery is
// at-least-once: a request is only removed from NextBatch by MarkSent.
type NotificationOutbox interface {
	NextBatch(ctx context.Context, limit, maxAttempts int) ([]QueuedNotification, error)
	MarkSent(ctx context.Context, id string, sentAt time.Time) error
	MarkFailed(ctx context.Context, id string, reason string) error
}
