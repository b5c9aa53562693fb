package messages

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestEnvelope_RoundTrip(t *testing.T) {
	at := time.Date(2025, 3, 1, 10, 0, 0, 0, time.FixedZone("BOT", -4*3600))
	env, err := NewEnvelope(TypeAlertRaised, at, AlertRaised{AlertID: 7, TrackingNumber: "BOA-2025-1111", Severity: "high", DelayHours: 3.5})
	require.NoError(t, err)
	require.NotEmpty(t, env.ID)
	require.Equal(t, time.UTC, env.OccurredAt.Location())

	raw, err := json.Marshal(env)
	require.NoError(t, err)

	var back Envelope
	require.NoError(t, json.Unmarshal(raw, &back))
	require.Equal(t, TypeAlertRaised, back.Type)

	var p AlertRaised
	require.NoError(t, back.Decode(&p))
	require.Equal(t, int64(7), p.AlertID)
	require.Equal(t, "high", p.Severity)
}

func TestEnvelope_DecodeBadPayload(t *testing.T) {
	env := Envelope{Type: TypePackageUpdated, Payload: json.RawMessage(`"nope"`)}
	var p PackageUpdated
	require.Error(t, env.Decode(&p))
}
