package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

type CacheCfg struct {
	Enabled   bool
	RedisAddr string
	TTL       time.Duration
	OpTimeout time.Duration
}

type EventsCfg struct {
	Enabled   bool
	Brokers   string
	Topic     string
	QueueSize int
	H3Res     int
}

type Config struct {
	Addr              string
	LogLevel          string
	DatabaseURL       string
	DatabaseToken     string
	WorkerVersion     string
	LegacyErrorStatus bool
	DBOpTimeout       time.Duration
	MetricsEnabled    bool
	Cache             CacheCfg
	Events            EventsCfg
}

func FromEnv() Config {
	return Config{
		Addr:              getenv("ADDR", ":8090"),
		LogLevel:          getenv("LOG_LEVEL", "info"),
		DatabaseURL:       os.Getenv("LIBSQL_CLIENT_URL"),
		DatabaseToken:     os.Getenv("LIBSQL_CLIENT_TOKEN"),
		WorkerVersion:     getenv("WORKER_VERSION", "dev"),
		LegacyErrorStatus: getbool("LEGACY_ERROR_STATUS", false),
		DBOpTimeout:       getduration("DB_OP_TIMEOUT", 10*time.Second),
		MetricsEnabled:    getbool("METRICS_ENABLED", false),
		Cache: CacheCfg{
			Enabled:   getbool("CACHE_ENABLED", false),
			RedisAddr: getenv("REDIS_ADDR", "localhost:6379"),
			TTL:       getduration("CACHE_TTL", 5*time.Minute),
			OpTimeout: getduration("CACHE_OP_TIMEOUT", 250*time.Millisecond),
		},
		Events: EventsCfg{
			Enabled:   getbool("EVENTS_ENABLED", false),
			Brokers:   getenv("KAFKA_BROKERS", "localhost:9092"),
			Topic:     getenv("KAFKA_TOPIC", "visit-events"),
			QueueSize: getint("EVENTS_QUEUE", 1024),
			H3Res:     getint("H3_RES", 8),
		},
	}
}

// ValidateDatabase reports the fatal configuration error for a missing
// secret. Checked per request path, before any remote call.
func (c Config) ValidateDatabase() error {
	if strings.TrimSpace(c.DatabaseURL) == "" {
		return errors.New("missing secret LIBSQL_CLIENT_URL")
	}
	if strings.TrimSpace(c.DatabaseToken) == "" {
		return errors.New("missing secret LIBSQL_CLIENT_TOKEN")
	}
	return nil
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getint(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v := os.Getenv(k); v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "t", "true", "y", "yes":
			return true
		case "0", "f", "false", "n", "no":
			return false
		}
	}
	return def
}

func getduration(k string, def time.Duration) time.Duration {
	if v := os.Getenv(k); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
