package services

import (
	"context"
	"fmt"
	"log/slog"

	"crewplanner/internal/domain"
)

type emailService struct {
	mailer   domain.Mailer
	renderer domain.EmailTemplateRenderer
	logger   *slog.Logger
}

// NewEmailService returns an EmailService that uses the given Mailer and template renderer.
func NewEmailService(mailer domain.Mailer, renderer domain.EmailTemplateRenderer, logger *slog.Logger) domain.EmailService {
	return &emailService{mailer: mailer, renderer: renderer, logger: logger}
}

// SendNotification renders the template named after the notification type
// with the request's props and sends it to the recipient.
func (s *emailService) SendNotification(ctx context.Context, req domain.NotificationRequest) error {
	if req.To == "" {
		return fmt.Errorf("%w: notification %s has no recipient", domain.ErrInvalidInput, req.ID)
	}
	subject, htmlBody, textBody, err := s.renderer.Render(string(req.Type), req.Props)
	if err != nil {
		return fmt.Errorf("failed to render %s template: %w", req.Type, err)
	}
	if err := s.mailer.Send(ctx, req.To, subject, htmlBody, textBody); err != nil {
		return fmt.Errorf("failed to send %s email: %w", req.Type, err)
	}
	s.logger.InfoContext(ctx, "email sent", "type", req.Type, "to", req.To)
	return nil
}
