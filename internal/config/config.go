package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	libconfig "lanpulse/libs/config"
)

// HTTPConfig holds listener settings.
type HTTPConfig struct {
	Port string `yaml:"port" env:"LANPULSE_HTTP_PORT"`
}

// DatabaseConfig holds postgres settings.
type DatabaseConfig struct {
	DSN string `yaml:"dsn" env:"LANPULSE_POSTGRES_DSN"`
}

// RedisConfig holds occupancy cache settings.
type RedisConfig struct {
	Addr     string `yaml:"addr" env:"LANPULSE_REDIS_ADDR"`
	Password string `yaml:"password" env:"LANPULSE_REDIS_PASSWORD"`
	DB       int    `yaml:"db" env:"LANPULSE_REDIS_DB"`
	TTL      int    `yaml:"ttlSeconds" env:"LANPULSE_REDIS_TTL"`
}

// AuthConfig holds token signing secrets.
type AuthConfig struct {
	OperatorSecret string `yaml:"operatorSecret" env:"LANPULSE_OPERATOR_JWT_SECRET"`
	AgentSecret    string `yaml:"agentSecret" env:"LANPULSE_AGENT_JWT_SECRET"`
}

// MonitorConfig holds liveness monitor settings.
type MonitorConfig struct {
	ScanInterval       time.Duration `yaml:"scanInterval" env:"LANPULSE_MONITOR_SCAN_INTERVAL"`
	SweepInterval      time.Duration `yaml:"sweepInterval" env:"LANPULSE_MONITOR_SWEEP_INTERVAL"`
	HeartbeatThreshold time.Duration `yaml:"heartbeatThreshold" env:"LANPULSE_HEARTBEAT_THRESHOLD"`
	PingAttempts       int           `yaml:"pingAttempts" env:"LANPULSE_PING_ATTEMPTS"`
	PingTimeout        time.Duration `yaml:"pingTimeout" env:"LANPULSE_PING_TIMEOUT"`
}

// SessionsConfig holds session engine settings.
type SessionsConfig struct {
	UndoWindow time.Duration `yaml:"undoWindow" env:"LANPULSE_UNDO_WINDOW"`
}

// Config defines service configuration.
type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Auth     AuthConfig     `yaml:"auth"`
	Monitor  MonitorConfig  `yaml:"monitor"`
	Sessions SessionsConfig `yaml:"sessions"`
}

// Load reads configuration via shared helper.
func Load() (*Config, error) {
	cfg := &Config{
		HTTP: HTTPConfig{Port: "8080"},
		Redis: RedisConfig{
			Addr: "localhost:6379",
			TTL:  86400,
		},
		Monitor: MonitorConfig{
			ScanInterval:       5 * time.Second,
			SweepInterval:      5 * time.Minute,
			HeartbeatThreshold: 20 * time.Second,
			PingAttempts:       2,
			PingTimeout:        time.Second,
		},
		Sessions: SessionsConfig{UndoWindow: 2 * time.Minute},
	}

	if err := libconfig.LoadConfig(cfg); err != nil {
		return nil, err
	}

	if strings.TrimSpace(cfg.Database.DSN) == "" {
		return nil, errors.New("config: database dsn required")
	}
	if strings.TrimSpace(cfg.Redis.Addr) == "" {
		return nil, errors.New("config: redis addr required")
	}
	if strings.TrimSpace(cfg.Auth.OperatorSecret) == "" {
		return nil, errors.New("config: operator jwt secret required")
	}
	if strings.TrimSpace(cfg.Auth.AgentSecret) == "" {
		return nil, errors.New("config: agent jwt secret required")
	}
	return cfg, nil
}

// HTTPAddress returns :port style.
func (c *Config) HTTPAddress() string {
	port := strings.TrimSpace(c.HTTP.Port)
	if port == "" {
		port = "8080"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return fmt.Sprintf(":%s", port)
}

// OccupancyTTL returns the cache ttl as duration.
func (c *Config) OccupancyTTL() time.Duration {
	if c.Redis.TTL <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(c.Redis.TTL) * time.Second
}
