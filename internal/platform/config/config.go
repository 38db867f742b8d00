package config

import (
	"time"

	"github.com/spf13/viper"
)

// Config holds everything the server needs, loaded from environment
// variables with sane development defaults so main stays lean.
type Config struct {
	Addr          string `mapstructure:"DOMAINFLOW_ADDR"`
	JWTSigningKey string `mapstructure:"JWT_SIGNING_KEY"`

	DatabaseURL string `mapstructure:"DATABASE_URL"`
	RedisURL    string `mapstructure:"REDIS_URL"`

	KafkaBrokers    string `mapstructure:"KAFKA_BROKERS"`
	KafkaAuditTopic string `mapstructure:"KAFKA_AUDIT_TOPIC"`

	WebhookURL    string `mapstructure:"NOTIFICATION_WEBHOOK_URL"`
	WebhookSecret string `mapstructure:"WEBHOOK_SECRET"`

	StakeholderBaseURL string `mapstructure:"STAKEHOLDER_SERVICE_URL"`

	ExpirySchedule string `mapstructure:"EXPIRY_CHECK_SCHEDULE"`

	OutboxPollInterval time.Duration `mapstructure:"OUTBOX_POLL_INTERVAL"`
	DispatchTimeout    time.Duration `mapstructure:"DISPATCH_TIMEOUT"`
}

// StakeholderCacheTTL bounds retention of resolved stakeholder records.
var StakeholderCacheTTL = 5 * time.Minute

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	viper.SetDefault("DOMAINFLOW_ADDR", ":8080")
	viper.SetDefault("JWT_SIGNING_KEY", "dev-secret-key-change-in-production")
	viper.SetDefault("KAFKA_AUDIT_TOPIC", "domainflow.workflow.audit")
	viper.SetDefault("EXPIRY_CHECK_SCHEDULE", "0 6 * * *") // daily at 06:00
	viper.SetDefault("OUTBOX_POLL_INTERVAL", 5*time.Second)
	viper.SetDefault("DISPATCH_TIMEOUT", 10*time.Second)
	viper.AutomaticEnv()

	// Bind environment variables explicitly so they appear in Unmarshal.
	for _, key := range []string{
		"DOMAINFLOW_ADDR", "JWT_SIGNING_KEY", "DATABASE_URL", "REDIS_URL",
		"KAFKA_BROKERS", "KAFKA_AUDIT_TOPIC", "NOTIFICATION_WEBHOOK_URL",
		"WEBHOOK_SECRET", "STAKEHOLDER_SERVICE_URL", "EXPIRY_CHECK_SCHEDULE",
		"OUTBOX_POLL_INTERVAL", "DISPATCH_TIMEOUT",
	} {
		_ = viper.BindEnv(key)
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
