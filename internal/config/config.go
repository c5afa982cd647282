package config // package config loads application configuration from environment variables

import (
	"encoding/base64"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.  Required variables are enforced by must() and
// missing values cause the program to exit with a fatal log message; the
// worker and cache tunables fall back to the documented defaults.
type Config struct {
	Env  string // application environment (e.g. "dev", "prod")
	Port string // HTTP port to listen on

	DBUser string // database username
	DBPass string // database password (optional)
	DBHost string // database host address
	DBPort string // database port number
	DBName string // database name

	JWTSecret []byte // HMAC key for verifying access tokens, base64 in the env

	IdentityServiceURL string // base URL of the identity service
	ServiceID          string // this service's id for S2S request signing
	SharedSecret       string // shared secret for S2S request signing

	BrokerHost        string // RabbitMQ host
	BrokerPort        string // RabbitMQ port
	BrokerUsername    string // RabbitMQ username
	BrokerPassword    string // RabbitMQ password
	BrokerVirtualHost string // RabbitMQ virtual host

	HoldWindow       time.Duration // how long a pending ticket keeps its seats
	ExpiryTick       time.Duration // expiry worker cadence
	OutboxBatchSize  int           // max outbox rows claimed per dispatcher pass
	OutboxTick       time.Duration // dispatcher cadence
	OutboxStuck      time.Duration // age after which a claimed row is reclaimed
	OutboxMaxRetries int           // publish attempts before a row is poisoned
	SeatMapCacheTTL  time.Duration // seat-map cache entry lifetime
}

// Load reads configuration values from environment variables and returns a
// Config.  The JWT secret is base64-decoded here so the rest of the program
// only ever sees key bytes.
func Load() Config {
	secret, err := base64.StdEncoding.DecodeString(must("JWT_SECRET"))
	if err != nil {
		log.Fatalf("JWT_SECRET is not valid base64: %v", err)
	}
	return Config{
		Env:  getenv("APP_ENV", "dev"),
		Port: getenv("APP_PORT", "8080"),

		DBUser: must("DB_USER"),
		DBPass: os.Getenv("DB_PASS"),
		DBHost: must("DB_HOST"),
		DBPort: must("DB_PORT"),
		DBName: must("DB_NAME"),

		JWTSecret: secret,

		IdentityServiceURL: must("IDENTITY_SERVICE_URL"),
		ServiceID:          must("INTERNAL_SERVICE_ID"),
		SharedSecret:       must("INTERNAL_SHARED_SECRET"),

		BrokerHost:        must("BROKER_HOST"),
		BrokerPort:        getenv("BROKER_PORT", "5672"),
		BrokerUsername:    must("BROKER_USERNAME"),
		BrokerPassword:    must("BROKER_PASSWORD"),
		BrokerVirtualHost: getenv("BROKER_VHOST", "/"),

		HoldWindow:       parseDur(getenv("RESERVATION_HOLD_WINDOW", "10m")),
		ExpiryTick:       parseDur(getenv("EXPIRY_TICK_INTERVAL", "60s")),
		OutboxBatchSize:  atoi(getenv("OUTBOX_BATCH_SIZE", "50")),
		OutboxTick:       parseDur(getenv("OUTBOX_TICK_INTERVAL", "10s")),
		OutboxStuck:      parseDur(getenv("OUTBOX_STUCK_TIMEOUT", "5m")),
		OutboxMaxRetries: atoi(getenv("OUTBOX_MAX_RETRIES", "5")),
		SeatMapCacheTTL:  parseDur(getenv("SEATMAP_CACHE_TTL", "60s")),
	}
}

// BrokerURL assembles the AMQP connection URL from the broker fields.
func (c Config) BrokerURL() string {
	return fmt.Sprintf("amqp://%s:%s@%s:%s%s",
		c.BrokerUsername, c.BrokerPassword, c.BrokerHost, c.BrokerPort, c.BrokerVirtualHost)
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

// getenv returns the variable's value or the given default when unset.
func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func atoi(s string) int {
	i, _ := strconv.Atoi(s)
	return i
}

func parseDur(s string) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		log.Fatalf("invalid duration: %q", s)
	}
	return d
}
