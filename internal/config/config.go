package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Server  ServerConfig
	Gateway GatewayConfig
	Archive ArchiveConfig
	Redis   RedisConfig
	Monitor MonitorConfig
	Bulk    BulkConfig
}

type ServerConfig struct {
	Address string
}

type GatewayConfig struct {
	URL        string
	RatePerSec int
}

// ArchiveConfig controls the optional Postgres delivery archive. Without
// POSTGRES_URL the service runs fully in memory.
type ArchiveConfig struct {
	Enabled     bool
	PostgresURL string
}

type RedisConfig struct {
	Enabled  bool
	Address  string
	Password string
	DB       int
	TTL      time.Duration
}

type MonitorConfig struct {
	Interval time.Duration
}

// BulkConfig carries the default pacing range applied when a bulk request
// does not name its own delayRange.
type BulkConfig struct {
	DelayMin int
	DelayMax int
}

func LoadAll() (*Config, error) {
	var errs []error

	collect := func(key string, def int) int {
		v, err := getEnvInt(key, def)
		if err != nil {
			errs = append(errs, err)
		}
		return v
	}

	gatewayURL, err := requireEnv("GATEWAY_URL")
	if err != nil {
		errs = append(errs, err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Address: getEnv("SERVER_ADDRESS", ":8080"),
		},
		Gateway: GatewayConfig{
			URL:        gatewayURL,
			RatePerSec: collect("GATEWAY_RATE_PER_SEC", 10),
		},
		Archive: loadArchiveConfig(),
		Monitor: MonitorConfig{
			Interval: time.Duration(collect("MONITOR_INTERVAL_SECONDS", 120)) * time.Second,
		},
		Bulk: BulkConfig{
			DelayMin: collect("BULK_DELAY_MIN_SECONDS", 2),
			DelayMax: collect("BULK_DELAY_MAX_SECONDS", 9),
		},
	}

	redisCfg, redisErrs := loadRedisConfig()
	cfg.Redis = redisCfg
	errs = append(errs, redisErrs...)

	errs = append(errs, validate(cfg)...)

	if err := joinErrors(errs); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadArchiveConfig() ArchiveConfig {
	url := os.Getenv("POSTGRES_URL")
	if url == "" {
		return ArchiveConfig{Enabled: false}
	}
	return ArchiveConfig{Enabled: true, PostgresURL: url}
}

func loadRedisConfig() (RedisConfig, []error) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		return RedisConfig{Enabled: false}, nil
	}

	var errs []error

	db, err := getEnvInt("REDIS_DB", 0)
	if err != nil {
		errs = append(errs, err)
	}
	ttlSeconds, err := getEnvInt("REDIS_TTL_SECONDS", 86400)
	if err != nil {
		errs = append(errs, err)
	}

	return RedisConfig{
		Enabled:  true,
		Address:  addr,
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       db,
		TTL:      time.Duration(ttlSeconds) * time.Second,
	}, errs
}

func validate(cfg *Config) []error {
	var errs []error
	if cfg.Gateway.RatePerSec <= 0 {
		errs = append(errs, errors.New("GATEWAY_RATE_PER_SEC must be > 0"))
	}
	if cfg.Monitor.Interval <= 0 {
		errs = append(errs, errors.New("MONITOR_INTERVAL_SECONDS must be > 0"))
	}
	if cfg.Bulk.DelayMin < 0 {
		errs = append(errs, errors.New("BULK_DELAY_MIN_SECONDS must be >= 0"))
	}
	if cfg.Bulk.DelayMax < cfg.Bulk.DelayMin {
		errs = append(errs, errors.New("BULK_DELAY_MAX_SECONDS must be >= BULK_DELAY_MIN_SECONDS"))
	}
	return errs
}

func requireEnv(key string) (string, error) {
	val := os.Getenv(key)
	if val == "" {
		return "", fmt.Errorf("missing required env var: %s", key)
	}
	return val, nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid int for env %s: %s", key, v)
	}
	return i, nil
}

func joinErrors(errs []error) error {
	return errors.Join(errs...)
}
