package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config struct to hold the configuration settings
type Config struct {
	Postgres    PostgresConfig    `yaml:"postgres"`
	Redis       RedisConfig       `yaml:"redis"`
	NATS        NATSConfig        `yaml:"nats"`
	HTTP        HTTPConfig        `yaml:"http"`
	JWT         JWTConfig         `yaml:"jwt"`
	Leaderboard LeaderboardConfig `yaml:"leaderboard"`
	Metrics     MetricsConfig     `yaml:"metrics"`
}

// PostgresConfig holds Postgres configuration.
type PostgresConfig struct {
	DSN string `yaml:"dsn"`
}

// RedisConfig holds the score cache backend configuration.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// NATSConfig holds NATS configuration.
type NATSConfig struct {
	URL string `yaml:"url"`
}

// HTTPConfig holds the public API listener configuration.
type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

// JWTConfig holds JWT configuration.
type JWTConfig struct {
	Secret string `yaml:"secret"`
}

// MetricsConfig holds the metrics listener configuration. Empty address
// disables the endpoint.
type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

// LeaderboardConfig holds ranking subsystem knobs.
type LeaderboardConfig struct {
	SnapshotTopN        int           `yaml:"snapshot_top_n"`
	TokenRetention      time.Duration `yaml:"token_retention"`
	ReconcileInterval   time.Duration `yaml:"reconcile_interval"`
	RankRefreshInterval time.Duration `yaml:"rank_refresh_interval"`
}

// LoadConfig loads the configuration from a YAML file, falling back to
// environment variables when the file is absent. Env vars override file
// values either way.
func LoadConfig(filename string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(filename)
	if err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config: %w", err)
		}
	}

	// --- OVERRIDE WITH ENV VARS IF PRESENT ---
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Postgres.DSN = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("REDIS_DB"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Redis.DB = n
		}
	}
	if v := os.Getenv("NATS_URL"); v != "" {
		cfg.NATS.URL = v
	}
	if v := os.Getenv("HTTP_ADDR"); v != "" {
		cfg.HTTP.Addr = v
	}
	if v := os.Getenv("METRICS_ADDRESS"); v != "" {
		cfg.Metrics.Addr = v
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		cfg.JWT.Secret = v
	}
	if v := os.Getenv("LEADERBOARD_SNAPSHOT_TOP_N"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Leaderboard.SnapshotTopN = n
		}
	}
	if v := os.Getenv("LEADERBOARD_TOKEN_RETENTION"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Leaderboard.TokenRetention = d
		}
	}
	if v := os.Getenv("LEADERBOARD_RECONCILE_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Leaderboard.ReconcileInterval = d
		}
	}
	if v := os.Getenv("LEADERBOARD_RANK_REFRESH_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Leaderboard.RankRefreshInterval = d
		}
	}

	cfg.applyDefaults()

	if cfg.Postgres.DSN == "" {
		return nil, fmt.Errorf("postgres DSN not set (config file or DATABASE_URL)")
	}
	if cfg.Redis.Addr == "" {
		return nil, fmt.Errorf("redis address not set (config file or REDIS_ADDR)")
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = ":8080"
	}
	if c.NATS.URL == "" {
		c.NATS.URL = "nats://localhost:4222"
	}
	if c.Leaderboard.SnapshotTopN <= 0 {
		c.Leaderboard.SnapshotTopN = 100
	}
	if c.Leaderboard.TokenRetention <= 0 {
		c.Leaderboard.TokenRetention = 7 * 24 * time.Hour
	}
	if c.Leaderboard.ReconcileInterval <= 0 {
		c.Leaderboard.ReconcileInterval = 10 * time.Minute
	}
	if c.Leaderboard.RankRefreshInterval <= 0 {
		c.Leaderboard.RankRefreshInterval = 5 * time.Minute
	}
}
