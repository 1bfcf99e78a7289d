// Package config reads the service configuration from the environment.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type KafkaCfg struct {
	Enabled bool
	Brokers string
	Topic   string
	GroupID string
}

type StoreCfg struct {
	Enabled   bool
	RedisAddr string
	// TTL of index sets and stored geometries; 0 keeps them forever.
	TTL time.Duration
}

type Config struct {
	Addr           string
	LogLevel       string
	LogConsole     bool
	SchemaFile     string
	IndexWorkers   int
	ParseCacheSize int
	Store          StoreCfg
	Kafka          KafkaCfg
	MetricsEnabled bool
	MetricsAddr    string
}

func FromEnv() Config {
	workers := getint("INDEX_WORKERS", 8)
	if workers < 1 {
		workers = 1
	}
	cacheSize := getint("PARSE_CACHE_SIZE", 256)
	if cacheSize < 0 {
		cacheSize = 0
	}

	return Config{
		Addr:           getenv("ADDR", ":8090"),
		LogLevel:       getenv("LOG_LEVEL", "info"),
		LogConsole:     getbool("LOG_CONSOLE", false),
		SchemaFile:     getenv("SCHEMA_FILE", "schema.json"),
		IndexWorkers:   workers,
		ParseCacheSize: cacheSize,
		Store: StoreCfg{
			Enabled:   getbool("STORE_ENABLED", false),
			RedisAddr: getenv("REDIS_ADDR", "localhost:6379"),
			TTL:       getduration("STORE_TTL", 0),
		},
		Kafka: KafkaCfg{
			Enabled: getbool("KAFKA_ENABLED", false),
			Brokers: getenv("KAFKA_BROKERS", "localhost:9092"),
			Topic:   getenv("KAFKA_TOPIC", "geoshape-documents"),
			GroupID: getenv("KAFKA_GROUP_ID", "geoshape-indexer"),
		},
		MetricsEnabled: getbool("METRICS_ENABLED", false),
		MetricsAddr:    getenv("METRICS_ADDR", ":9090"),
	}
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getint(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
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
		if d, err := time.ParseDuration(strings.TrimSpace(v)); err == nil {
			return d
		}
	}
	return def
}
