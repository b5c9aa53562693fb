package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"html/template"
	"log/slog"
	"net/url"
	"strings"

	"github.com/pkg/errors"

	"github.com/BearBump/BoaTracking/internal/broker/messages"
	"github.com/BearBump/BoaTracking/internal/integrations/mailer"
	"github.com/BearBump/BoaTracking/internal/metrics"
)

const approvedSubject = "Tu envío fue aprobado - BOA Tracking"

var approvedTmpl = template.Must(template.New("approved").Parse(`<p>Tu pre-registro fue aprobado.</p>
<p>Número de tracking: <strong>{{.TrackingNumber}}</strong></p>
<p><a href="{{.Link}}">Seguir mi envío</a></p>
`))

// Notifier turns domain events into outgoing mail.
type Notifier struct {
	mailer  mailer.Mailer
	baseURL string
}

func New(m mailer.Mailer, publicBaseURL string) *Notifier {
	return &Notifier{mailer: m, baseURL: strings.TrimRight(publicBaseURL, "/")}
}

// Handle is a kafka consumer handler. It only fails on errors worth
// stopping the consumer for; bad payloads and mail failures are logged and
// the message is acknowledged.
func (n *Notifier) Handle(ctx context.Context, key, value []byte) error {
	var env messages.Envelope
	if err := json.Unmarshal(value, &env); err != nil {
		slog.Warn("notifier: bad envelope", "key", string(key), "err", err)
		metrics.IncEventConsumed("unknown", "invalid")
		return nil
	}

	switch env.Type {
	case messages.TypePreregistrationApproved:
		var p messages.PreregistrationApproved
		if err := env.Decode(&p); err != nil {
			slog.Warn("notifier: bad payload", "type", env.Type, "id", env.ID, "err", err)
			metrics.IncEventConsumed(env.Type, "invalid")
			return nil
		}
		if p.SenderEmail == "" {
			metrics.IncEventConsumed(env.Type, "ignored")
			return nil
		}
		if err := n.sendApproved(ctx, p); err != nil {
			slog.Error("notifier: approval mail failed", "email", p.SenderEmail, "id", env.ID, "err", err)
			metrics.IncEventConsumed(env.Type, "error")
			return nil
		}
		slog.Info("notifier: approval mail sent", "email", p.SenderEmail, "tracking", p.TrackingNumber, "id", env.ID)
		metrics.IncEventConsumed(env.Type, "sent")
	default:
		slog.Debug("notifier: event acknowledged", "type", env.Type, "id", env.ID, "key", string(key))
		metrics.IncEventConsumed(env.Type, "ignored")
	}
	return nil
}

func (n *Notifier) TrackingLink(trackingNumber string) string {
	return n.baseURL + "/tracking?number=" + url.QueryEscape(trackingNumber)
}

func (n *Notifier) sendApproved(ctx context.Context, p messages.PreregistrationApproved) error {
	var body bytes.Buffer
	err := approvedTmpl.Execute(&body, map[string]string{
		"TrackingNumber": p.TrackingNumber,
		"Link":           n.TrackingLink(p.TrackingNumber),
	})
	if err != nil {
		return errors.Wrap(err, "render approval mail")
	}
	return n.mailer.Send(ctx, mailer.Message{
		To:      p.SenderEmail,
		Subject: approvedSubject,
		Body:    body.String(),
	})
}
