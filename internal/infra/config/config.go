package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config aggregates application configuration values loaded from environment variables.
type Config struct {
	Env         string
	HTTPAddr    string
	ServiceName string
	LogLevel    string

	GatewayMode      string
	GatewayBaseURL   string
	GatewaySecretKey string
	GatewayTimeout   time.Duration
	ChargesFixtures  string

	Notifier          string
	SendGridAPIKey    string
	SendGridFromEmail string
	SendGridFromName  string

	KafkaBrokers       []string
	KafkaTopicPrefix   string
	OutboxPollInterval time.Duration
	RetryBackoff       []time.Duration

	StorageMode    string
	MongoURI       string
	MongoDB        string
	IdempStore     string
	BoltPath       string
	IdempotencyTTL time.Duration

	LedgerArchive    string
	S3Endpoint       string
	S3PublicEndpoint string
	S3AccessKey      string
	S3SecretKey      string
	S3Bucket         string
	S3UseSSL         bool

	MonitoringWebhookURL    string
	MonitoringWebhookSecret string

	RateLimitRPS   float64
	RateLimitBurst int

	PolicyFile string
}

// Load parses configuration from the current environment. Mongo and Kafka settings are
// only required when a mode selects them.
func Load() (Config, error) {
	cfg := Config{
		Env:                     getEnv("APP_ENV", "dev"),
		HTTPAddr:                getEnv("HTTP_ADDR", ":8080"),
		ServiceName:             getEnv("SERVICE_NAME", "refund-service"),
		LogLevel:                getEnv("LOG_LEVEL", "info"),
		GatewayMode:             strings.ToLower(getEnv("GATEWAY_MODE", "memory")),
		GatewayBaseURL:          getEnv("GATEWAY_BASE_URL", "https://api.stripe.com"),
		GatewaySecretKey:        os.Getenv("GATEWAY_SECRET_KEY"),
		ChargesFixtures:         getEnv("CHARGES_FIXTURES", "data/charges.json"),
		Notifier:                strings.ToLower(getEnv("NOTIFIER", "log")),
		SendGridAPIKey:          os.Getenv("SENDGRID_API_KEY"),
		SendGridFromEmail:       getEnv("SENDGRID_FROM_EMAIL", "concierge@luxrent.example"),
		SendGridFromName:        getEnv("SENDGRID_FROM_NAME", "LuxRent Concierge"),
		KafkaTopicPrefix:        getEnv("KAFKA_TOPIC_PREFIX", ""),
		StorageMode:             strings.ToLower(getEnv("STORAGE_MODE", "memory")),
		MongoURI:                os.Getenv("MONGO_URI"),
		MongoDB:                 getEnv("MONGO_DB", "luxrent"),
		IdempStore:              strings.ToLower(getEnv("IDEMP_STORE", "memory")),
		BoltPath:                getEnv("BOLT_PATH", "data/idempotency.db"),
		LedgerArchive:           strings.ToLower(getEnv("LEDGER_ARCHIVE", "none")),
		S3Endpoint:              getEnv("S3_ENDPOINT", "http://localhost:9000"),
		S3PublicEndpoint:        getEnv("S3_PUBLIC_ENDPOINT", ""),
		S3AccessKey:             getEnv("S3_ACCESS_KEY", "minioadmin"),
		S3SecretKey:             getEnv("S3_SECRET_KEY", "minioadmin"),
		S3Bucket:                getEnv("S3_BUCKET", "luxrent-refunds"),
		MonitoringWebhookURL:    os.Getenv("MONITORING_WEBHOOK_URL"),
		MonitoringWebhookSecret: os.Getenv("MONITORING_WEBHOOK_SECRET"),
		PolicyFile:              os.Getenv("POLICY_FILE"),
	}
	brokers := getEnv("KAFKA_BROKERS", "")
	if brokers != "" {
		for _, b := range strings.Split(brokers, ",") {
			if b = strings.TrimSpace(b); b != "" {
				cfg.KafkaBrokers = append(cfg.KafkaBrokers, b)
			}
		}
	}

	var err error
	if cfg.GatewayTimeout, err = parseDurationEnv("GATEWAY_TIMEOUT", 10*time.Second); err != nil {
		return Config{}, err
	}
	if cfg.IdempotencyTTL, err = parseDurationEnv("IDEMP_TTL", 168*time.Hour); err != nil {
		return Config{}, err
	}
	if cfg.OutboxPollInterval, err = parseDurationEnv("OUTBOX_POLL_INTERVAL", 500*time.Millisecond); err != nil {
		return Config{}, err
	}
	if cfg.RetryBackoff, err = parseDurationListEnv("RETRY_BACKOFF", "1s,5s,30s"); err != nil {
		return Config{}, err
	}
	if cfg.S3UseSSL, err = parseBoolEnv("S3_USE_SSL", false); err != nil {
		return Config{}, err
	}
	if cfg.RateLimitRPS, err = parseFloatEnv("RATE_LIMIT_RPS", 5); err != nil {
		return Config{}, err
	}
	if cfg.RateLimitBurst, err = parseIntEnv("RATE_LIMIT_BURST", 10); err != nil {
		return Config{}, err
	}
	if cfg.S3PublicEndpoint == "" {
		cfg.S3PublicEndpoint = cfg.S3Endpoint
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks that every selected mode has the settings it needs.
func (c Config) Validate() error {
	if err := oneOf("GATEWAY_MODE", c.GatewayMode, "memory", "stripe"); err != nil {
		return err
	}
	if err := oneOf("NOTIFIER", c.Notifier, "log", "sendgrid", "kafka"); err != nil {
		return err
	}
	if err := oneOf("STORAGE_MODE", c.StorageMode, "memory", "mongo"); err != nil {
		return err
	}
	if err := oneOf("IDEMP_STORE", c.IdempStore, "memory", "mongo", "bolt"); err != nil {
		return err
	}
	if err := oneOf("LEDGER_ARCHIVE", c.LedgerArchive, "none", "s3"); err != nil {
		return err
	}
	if c.GatewayMode == "stripe" && c.GatewaySecretKey == "" {
		return fmt.Errorf("GATEWAY_SECRET_KEY is required when GATEWAY_MODE=stripe")
	}
	if c.Notifier == "sendgrid" && c.SendGridAPIKey == "" {
		return fmt.Errorf("SENDGRID_API_KEY is required when NOTIFIER=sendgrid")
	}
	if c.NeedsMongo() && c.MongoURI == "" {
		return fmt.Errorf("MONGO_URI is required")
	}
	if c.NeedsKafka() && len(c.KafkaBrokers) == 0 {
		return fmt.Errorf("KAFKA_BROKERS is required")
	}
	if c.RateLimitRPS < 0 || c.RateLimitBurst < 0 {
		return fmt.Errorf("rate limit settings must not be negative")
	}
	return nil
}

func (c Config) NeedsMongo() bool {
	return c.StorageMode == "mongo" || c.IdempStore == "mongo"
}

// NeedsKafka reports whether a Kafka producer is required. Outbox relay runs only with
// mongo storage, where events survive restarts.
func (c Config) NeedsKafka() bool {
	return c.Notifier == "kafka" || c.StorageMode == "mongo"
}

func oneOf(key, value string, allowed ...string) error {
	for _, a := range allowed {
		if value == a {
			return nil
		}
	}
	return fmt.Errorf("invalid %s %q (want one of %s)", key, value, strings.Join(allowed, ", "))
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseDurationEnv(key string, def time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s duration: %w", key, err)
	}
	return d, nil
}

func parseDurationListEnv(key, def string) ([]time.Duration, error) {
	var out []time.Duration
	for _, raw := range strings.Split(getEnv(key, def), ",") {
		val := strings.TrimSpace(raw)
		if val == "" {
			continue
		}
		d, err := time.ParseDuration(val)
		if err != nil {
			return nil, fmt.Errorf("invalid %s component %q: %w", key, raw, err)
		}
		out = append(out, d)
	}
	return out, nil
}

func parseBoolEnv(key string, def bool) (bool, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "t", "true", "yes", "y", "on":
		return true, nil
	case "0", "f", "false", "no", "n", "off":
		return false, nil
	default:
		return false, fmt.Errorf("invalid %s boolean: %q", key, raw)
	}
}

func parseFloatEnv(key string, def float64) (float64, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s number: %w", key, err)
	}
	return v, nil
}

func parseIntEnv(key string, def int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("invalid %s integer: %w", key, err)
	}
	return v, nil
}
