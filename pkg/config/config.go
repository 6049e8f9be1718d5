package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	ServiceName string
	LogLevel    string

	ServerPort int

	DatabaseURL  string
	StoreTimeout time.Duration
	SeedData     bool

	RedisURL string

	KafkaBrokers []string
	KafkaTopic   string

	JWTAccessSecret  []byte
	JWTRefreshSecret []byte
	JWTResetSecret   []byte

	AccessTTL  time.Duration
	RefreshTTL time.Duration
	ResetTTL   time.Duration

	// invalid collects malformed duration variables; see RequireDurations.
	invalid []error
}

func Load() Config {
	c := Config{
		ServiceName: EnvDefault("SERVICE_NAME", "auth"),
		LogLevel:    EnvDefault("LOG_LEVEL", "info"),

		ServerPort: EnvIntDefault("SERVER_PORT", 8080),

		DatabaseURL: os.Getenv("DATABASE_URL"),
		SeedData:    EnvBoolDefault("SEED_DATA", false),

		RedisURL: os.Getenv("REDIS_URL"),

		KafkaBrokers: CSV(os.Getenv("KAFKA_BROKERS")),
		KafkaTopic:   EnvDefault("KAFKA_TOPIC", "auth_events"),

		JWTAccessSecret:  []byte(os.Getenv("JWT_SECRET")),
		JWTRefreshSecret: []byte(os.Getenv("JWT_REFRESH_SECRET")),
		JWTResetSecret:   []byte(os.Getenv("JWT_RESET_SECRET")),
	}
	c.StoreTimeout = c.duration("STORE_TIMEOUT", 3*time.Second)
	c.AccessTTL = c.duration("JWT_ACCESS_TTL", 15*time.Minute)
	c.RefreshTTL = c.duration("JWT_REFRESH_TTL", 7*24*time.Hour)
	c.ResetTTL = c.duration("JWT_RESET_TTL", 15*time.Minute)
	return c
}

func (c *Config) duration(key string, def time.Duration) time.Duration {
	d, err := EnvDuration(key, def)
	if err != nil {
		c.invalid = append(c.invalid, err)
		return def
	}
	return d
}

func CSV(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func EnvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func EnvIntDefault(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

// EnvDuration parses key as a positive time.Duration ("15m", "168h"). An unset
// key yields def; a malformed or non-positive value is an error.
func EnvDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def, fmt.Errorf("invalid env %s=%q: %w", key, v, err)
	}
	if d <= 0 {
		return def, fmt.Errorf("invalid env %s=%q: must be positive", key, v)
	}
	return d, nil
}

func EnvBoolDefault(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}
