package logmailer

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/BearBump/BoaTracking/internal/integrations/mailer"
)

func TestMailer_Send(t *testing.T) {
	var buf bytes.Buffer
	m := New(slog.New(slog.NewTextHandler(&buf, nil)))

	require.NoError(t, m.Send(context.Background(), mailer.Message{To: "ana@boa.bo", Subject: "hola"}))
	require.Contains(t, buf.String(), "to=ana@boa.bo")
	require.Contains(t, buf.String(), "subject=hola")
}
