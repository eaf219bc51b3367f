package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("POSTGRES_URL", "postgres://localhost/surveystack")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, ":9091", cfg.AdminAddr)
	assert.Equal(t, 5*time.Minute, cfg.TenantCacheTTL)
	assert.Equal(t, 5*time.Second, cfg.StoreTimeout)
	assert.Equal(t, "gpt-4o-mini", cfg.OpenAIModel)
	assert.Equal(t, 2.0, cfg.AIRequestsPerSecond)
	assert.Equal(t, "analytics_events", cfg.AnalyticsStream)
	assert.Equal(t, []string{"email", "name", "phone"}, cfg.RedactionFields())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("POSTGRES_URL", "postgres://localhost/surveystack")
	t.Setenv("TENANT_CACHE_TTL", "30s")
	t.Setenv("PII_REDACTION_FIELDS", " email, ,ssn ")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, cfg.TenantCacheTTL)
	assert.Equal(t, []string{"email", "ssn"}, cfg.RedactionFields())
	assert.Equal(t, "redis://localhost:6379/0", cfg.RedisURL)
}

func TestLoad_RequiresPostgres(t *testing.T) {
	t.Setenv("POSTGRES_URL", "")
	_, err := Load()
	assert.Error(t, err)
}
