package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "cfg.yaml")
	require.NoError(t, os.WriteFile(p, []byte(`
database:
  driver: "postgres"
  host: "localhost"
  port: 5432
  username: "u"
  password: "p"
  name: "boa"
kafka:
  host: "localhost"
  port: 9092
  events_topic_name: "boa.events"
redis:
  host: "localhost"
  port: 6379
smtp:
  host: "smtp.local"
  port: 25
  from: "no-reply@boa.bo"
log:
  level: "debug"
  format: "json"
boa:
  http_addr: ":8080"
  timezone: "America/La_Paz"
  sweep_interval_seconds: 1800
  sweep_recreate_after_hours: 0
  alert_reactivate_cooldown_hours: 24
  jwt_secret: "s3cret"
`), 0o600))

	cfg, err := LoadConfig(p)
	require.NoError(t, err)
	require.Equal(t, "u", cfg.Database.Username)
	require.Equal(t, "boa.events", cfg.Kafka.EventsTopicName)
	require.Equal(t, 6379, cfg.Redis.Port)
	require.Equal(t, ":8080", cfg.Boa.HTTPAddr)
	require.Equal(t, "America/La_Paz", cfg.Boa.Timezone)
	require.Equal(t, 1800, cfg.Boa.SweepIntervalSeconds)
	require.Equal(t, 24, cfg.Boa.AlertReactivateCooldownHours)
	require.Equal(t, "json", cfg.Log.Format)
	require.True(t, cfg.SMTP.Enabled())
	require.Equal(t, "localhost:9092", cfg.Kafka.Addr())
	require.Equal(t, "postgres://u:p@localhost:5432/boa?sslmode=disable", cfg.Database.PostgresConnString())
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestOptionalComponentsDisabledWithoutHost(t *testing.T) {
	var cfg Config
	require.False(t, cfg.Kafka.Enabled())
	require.False(t, cfg.Redis.Enabled())
	require.False(t, cfg.SMTP.Enabled())
}
