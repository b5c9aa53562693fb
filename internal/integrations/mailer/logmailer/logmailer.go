package logmailer

import (
	"context"
	"log/slog"

	"github.com/BearBump/BoaTracking/internal/integrations/mailer"
)

// Mailer only logs what it would send. Used when no SMTP host is configured.
type Mailer struct {
	log *slog.Logger
}

func New(log *slog.Logger) *Mailer {
	if log == nil {
		log = slog.Default()
	}
	return &Mailer{log: log}
}

func (m *Mailer) Send(ctx context.Context, msg mailer.Message) error {
	m.log.InfoContext(ctx, "mail not sent, smtp disabled", "to", msg.To, "subject", msg.Subject, "body_len", len(msg.Body))
	return nil
}
