package config

import (
	"fmt"
	"os"

	"go.yaml.in/yaml/v4"
)

type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Redis    RedisConfig    `yaml:"redis"`
	SMTP     SMTPConfig     `yaml:"smtp"`
	Log      LogConfig      `yaml:"log"`
	Boa      BoaConfig      `yaml:"boa"`
}

type DatabaseConfig struct {
	// Driver is "postgres" (default) or "sqlite".
	Driver     string `yaml:"driver"`
	Host       string `yaml:"host"`
	Port       int    `yaml:"port"`
	Username   string `yaml:"username"`
	Password   string `yaml:"password"`
	DBName     string `yaml:"name"`
	SSLMode    string `yaml:"ssl_mode"`
	SQLitePath string `yaml:"sqlite_path"`
}

type KafkaConfig struct {
	Host            string `yaml:"host"`
	Port            int    `yaml:"port"`
	EventsTopicName string `yaml:"events_topic_name"`
}

type RedisConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type SMTPConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "text" | "json"

	// File enables a rotated copy of the log next to stdout.
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

type BoaConfig struct {
	HTTPAddr          string `yaml:"http_addr"`
	WorkerHTTPAddr    string `yaml:"worker_http_addr"`
	SwaggerPath       string `yaml:"swagger_path"`
	WorkerSwaggerPath string `yaml:"worker_swagger_path"`
	PublicBaseURL     string `yaml:"public_base_url"`
	Timezone          string `yaml:"timezone"`

	KafkaConsumerGroup     string `yaml:"kafka_consumer_group"`
	PackageCacheTTLSeconds int    `yaml:"package_cache_ttl_seconds"`

	SweepIntervalSeconds int `yaml:"sweep_interval_seconds"`
	SweepLockTTLSeconds  int `yaml:"sweep_lock_ttl_seconds"`
	// 0 keeps solved alerts closed for good; the sweep never reopens them.
	SweepRecreateAfterHours      int `yaml:"sweep_recreate_after_hours"`
	AlertReactivateCooldownHours int `yaml:"alert_reactivate_cooldown_hours"`

	JWTSecret     string `yaml:"jwt_secret"`
	JWTTTLMinutes int    `yaml:"jwt_ttl_minutes"`

	LoginRateLimitPerMinute        int `yaml:"login_rate_limit_per_minute"`
	ForgotPasswordRateLimitPerHour int `yaml:"forgot_password_rate_limit_per_hour"`
}

func LoadConfig(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	err = yaml.Unmarshal(data, &config)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal YAML: %w", err)
	}

	return &config, nil
}

// PostgresConnString builds a pgx connection string from the database section.
func (c DatabaseConfig) PostgresConnString() string {
	sslMode := c.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Username, c.Password, c.Host, c.Port, c.DBName, sslMode)
}

func (c KafkaConfig) Enabled() bool { return c.Host != "" }

func (c KafkaConfig) Addr() string { return fmt.Sprintf("%s:%d", c.Host, c.Port) }

func (c RedisConfig) Enabled() bool { return c.Host != "" }

func (c RedisConfig) Addr() string { return fmt.Sprintf("%s:%d", c.Host, c.Port) }

func (c SMTPConfig) Enabled() bool { return c.Host != "" }
