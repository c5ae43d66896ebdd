package email

import (
	"context"
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/sirupsen/logrus"

	config "github.com/eloquentlog/montafon/configs"
	"github.com/eloquentlog/montafon/internal/core/ports"
)

// SendGridDispatcher delivers mail through SendGrid. It is the only
// transport-specific code; everything above it depends on the
// EmailDispatcher signature alone.
type SendGridDispatcher struct {
	config *config.EmailConfig
	logger *logrus.Logger
	client *sendgrid.Client
}

// NewSendGridDispatcher creates a SendGrid-backed dispatcher.
func NewSendGridDispatcher(cfg *config.EmailConfig, logger *logrus.Logger) ports.EmailDispatcher {
	return &SendGridDispatcher{
		config: cfg,
		logger: logger,
		client: sendgrid.NewSendClient(cfg.SendGridAPIKey),
	}
}

// Send transports a single HTML email. Failures are returned as
// ports.ErrTransport so the dispatch worker can retry them.
func (d *SendGridDispatcher) Send(ctx context.Context, to, subject, body string) error {
	from := mail.NewEmail(d.config.FromName, d.config.FromEmail)
	recipient := mail.NewEmail("", to)
	message := mail.NewSingleEmail(from, subject, recipient, "", body)

	response, err := d.client.SendWithContext(ctx, message)
	if err != nil {
		if d.logger != nil {
			d.logger.WithFields(logrus.Fields{"to": to, "subject": subject}).WithError(err).Error("email: failed to send")
		}
		return fmt.Errorf("%w: %v", ports.ErrTransport, err)
	}
	if response.StatusCode >= 400 {
		if d.logger != nil {
			d.logger.WithFields(logrus.Fields{"to": to, "subject": subject, "status_code": response.StatusCode}).Error("email: provider rejected message")
		}
		return fmt.Errorf("%w: sendgrid responded %d", ports.ErrTransport, response.StatusCode)
	}

	if d.logger != nil {
		d.logger.WithFields(logrus.Fields{"to": to, "subject": subject, "status_code": response.StatusCode}).Info("email: sent")
	}

	return nil
}
