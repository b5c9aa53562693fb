package users

import (
	"bytes"
	"context"
	"html/template"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/BearBump/BoaTracking/internal/integrations/mailer"
	"github.com/BearBump/BoaTracking/internal/models"
)

const resetSubject = "Recuperación de contraseña - BOA Tracking"

var resetTmpl = template.Must(template.New("reset").Parse(`<p>Hola {{.Name}},</p>
<p>Recibimos una solicitud para restablecer tu contraseña.</p>
<p><a href="{{.Link}}">Restablecer contraseña</a></p>
<p>El enlace vence a las {{.Expires}}. Si no solicitaste el cambio, ignora este correo.</p>
`))

// WithMailer enables the reset mail. Links point at publicBaseURL.
func (s *Service) WithMailer(m mailer.Mailer, publicBaseURL string) *Service {
	s.mailer = m
	s.baseURL = strings.TrimRight(publicBaseURL, "/")
	return s
}

func (s *Service) ResetLink(token string) string {
	return s.baseURL + "/reset-password?token=" + url.QueryEscape(token)
}

func (s *Service) sendResetMail(ctx context.Context, u *models.User, token string, expiry time.Time) error {
	var body bytes.Buffer
	err := resetTmpl.Execute(&body, map[string]string{
		"Name":    u.Name,
		"Link":    s.ResetLink(token),
		"Expires": expiry.In(s.clock.Now().Location()).Format("02/01/2006 15:04 MST"),
	})
	if err != nil {
		return errors.Wrap(err, "render reset mail")
	}
	err = s.mailer.Send(ctx, mailer.Message{
		To:      u.Email,
		Subject: resetSubject,
		Body:    body.String(),
	})
	if err != nil {
		return errors.Wrapf(models.ErrMailDelivery, "reset mail to %s: %v", u.Email, err)
	}
	return nil
}
