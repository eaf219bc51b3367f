package config

import (
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	HTTPAddr  string `env:"HTTP_ADDR" envDefault:":8080"`
	AdminAddr string `env:"ADMIN_ADDR" envDefault:":9091"`

	PostgresURL string `env:"POSTGRES_URL,required,notEmpty"`
	// Empty selects the in-process tenant cache and disables analytics buffering.
	RedisURL string `env:"REDIS_URL"`

	TenantCacheTTL time.Duration `env:"TENANT_CACHE_TTL" envDefault:"5m"`
	StoreTimeout   time.Duration `env:"STORE_TIMEOUT" envDefault:"5s"`

	AdminPassword string `env:"ADMIN_PASSWORD"`

	OpenAIAPIKey        string  `env:"OPENAI_API_KEY"`
	OpenAIModel         string  `env:"OPENAI_MODEL" envDefault:"gpt-4o-mini"`
	OpenAIBaseURL       string  `env:"OPENAI_BASE_URL"`
	AIRequestsPerSecond float64 `env:"AI_REQUESTS_PER_SECOND" envDefault:"2"`

	AnalyticsStream    string `env:"ANALYTICS_STREAM" envDefault:"analytics_events"`
	AnalyticsGroup     string `env:"ANALYTICS_GROUP" envDefault:"analytics-processors"`
	PIIRedactionFields string `env:"PII_REDACTION_FIELDS" envDefault:"email,name,phone"`

	SpoolDir          string        `env:"SPOOL_DIR" envDefault:"./data/spool"`
	SpoolSegmentSize  int64         `env:"SPOOL_SEGMENT_SIZE_BYTES" envDefault:"10485760"` // 10MB
	SpoolMaxDiskSize  int64         `env:"SPOOL_MAX_DISK_SIZE_BYTES" envDefault:"104857600"` // 100MB
	HealthCheckPeriod time.Duration `env:"REDIS_HEALTH_CHECK_INTERVAL" envDefault:"5s"`

	ConsumerName   string        `env:"CONSUMER_NAME"`
	ClaimMinIdle   time.Duration `env:"CLAIM_MIN_IDLE" envDefault:"1m"`
	SinkRetryCount int           `env:"SINK_RETRY_COUNT" envDefault:"3"`
	SinkRetryDelay time.Duration `env:"SINK_RETRY_DELAY" envDefault:"1s"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	// Attempt to load .env file for local development.
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// RedactionFields splits PIIRedactionFields on commas.
func (c *Config) RedactionFields() []string {
	var out []string
	for _, f := range strings.Split(c.PIIRedactionFields, ",") {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}
