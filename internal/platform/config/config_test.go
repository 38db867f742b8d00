package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	require.Equal(t, ":8080", cfg.Addr)
	require.Equal(t, "domainflow.workflow.audit", cfg.KafkaAuditTopic)
	require.Equal(t, "0 6 * * *", cfg.ExpirySchedule)
	require.Equal(t, 5*time.Second, cfg.OutboxPollInterval)
	require.Equal(t, 10*time.Second, cfg.DispatchTimeout)
	require.Empty(t, cfg.DatabaseURL)
	require.Empty(t, cfg.RedisURL)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("DOMAINFLOW_ADDR", ":9999")
	t.Setenv("DATABASE_URL", "postgres://localhost:5432/domainflow?sslmode=disable")
	t.Setenv("EXPIRY_CHECK_SCHEDULE", "30 5 * * *")
	t.Setenv("OUTBOX_POLL_INTERVAL", "2s")

	cfg, err := Load()
	require.NoError(t, err)

	require.Equal(t, ":9999", cfg.Addr)
	require.Equal(t, "postgres://localhost:5432/domainflow?sslmode=disable", cfg.DatabaseURL)
	require.Equal(t, "30 5 * * *", cfg.ExpirySchedule)
	require.Equal(t, 2*time.Second, cfg.OutboxPollInterval)
}
