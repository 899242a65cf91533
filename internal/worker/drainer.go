package worker

import (
	"context"
	"log/slog"
	"time"

	"crewplanner/internal/domain"
)

// DeliveryRecorder counts delivery outcomes. Implemented by metrics.Metrics.
type DeliveryRecorder interface {
	NotificationSent(t domain.NotificationType)
	NotificationFailed(t domain.NotificationType)
}

// DrainerConfig tunes the queue drainer.
type DrainerConfig struct {
	Interval    time.Duration
	BatchSize   int
	MaxAttempts int
}

// QueueDrainer polls the notification outbox and sends pending requests by
// email. A request is marked sent only after the mailer accepted it, so a
// crash in between delivers it again.
type QueueDrainer struct {
	outbox   domain.NotificationOutbox
	sender   domain.EmailService
	recorder DeliveryRecorder
	logger   *slog.Logger
	cfg      DrainerConfig
	now      func() time.Time
}

// NewQueueDrainer returns a drainer; recorder may be nil.
func NewQueueDrainer(outbox domain.NotificationOutbox, sender domain.EmailService, recorder DeliveryRecorder, logger *slog.Logger, cfg DrainerConfig) *QueueDrainer {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 5
	}
	return &QueueDrainer{
		outbox:   outbox,
		sender:   sender,
		recorder: recorder,
		logger:   logger,
		cfg:      cfg,
		now:      time.Now,
	}
}

// Run drains one batch per tick until ctx is canceled.
func (d *QueueDrainer) Run(ctx context.Context) error {
	ticker := time.NewTicker(d.cfg.Interval)
	defer ticker.Stop()

	d.logger.Info("notification drainer started", "interval", d.cfg.Interval, "batch", d.cfg.BatchSize)
	for {
		select {
		case <-ctx.Done():
			d.logger.Info("notification drainer stopped")
			return nil
		case <-ticker.C:
			if _, err := d.DrainOnce(ctx); err != nil && ctx.Err() == nil {
				d.logger.ErrorContext(ctx, "drain notification queue", "error", err)
			}
		}
	}
}

// DrainOnce sends the next batch and returns how many requests were sent.
// Send failures are recorded on the request and do not abort the batch.
func (d *QueueDrainer) DrainOnce(ctx context.Context) (int, error) {
	batch, err := d.outbox.NextBatch(ctx, d.cfg.BatchSize, d.cfg.MaxAttempts)
	if err != nil {
		return 0, err
	}
	sent := 0
	for _, item := range batch {
		if ctx.Err() != nil {
			return sent, ctx.Err()
		}
		req := item.Request
		if err := d.sender.SendNotification(ctx, req); err != nil {
			d.logger.WarnContext(ctx, "notification delivery failed",
				"id", req.ID, "type", req.Type, "attempt", item.Attempts+1, "error", err)
			if d.recorder != nil {
				d.recorder.NotificationFailed(req.Type)
			}
			if err := d.outbox.MarkFailed(ctx, req.ID, err.Error()); err != nil {
				return sent, err
			}
			continue
		}
		if d.recorder != nil {
			d.recorder.NotificationSent(req.Type)
		}
		if err := d.outbox.MarkSent(ctx, req.ID, d.now()); err != nil {
			return sent, err
		}
		sent++
	}
	return sent, nil
}
