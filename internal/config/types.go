package config

import "time"

// Config holds all configuration for the hub.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Logging LoggingConfig `yaml:"logging"`
	Hub     HubConfig     `yaml:"hub"`
}

// ServerConfig holds HTTP listener configuration for the hub's own surface
// (registration API, dashboard, dynamic dispatch).
type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// TrustProxyHeaders/TrustedCIDRs govern client IP extraction (used by
	// the Registration API's rate limiter): X-Forwarded-For/X-Real-IP are
	// only trusted when the connecting peer's address falls within one of
	// TrustedCIDRs.
	TrustProxyHeaders bool     `yaml:"trust_proxy_headers"`
	TrustedCIDRs      []string `yaml:"trusted_cidrs"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level      string `yaml:"level"`
	Theme      string `yaml:"theme"`
	PrettyLogs bool   `yaml:"pretty_logs"`
	FileOutput bool   `yaml:"file_output"`
	LogDir     string `yaml:"log_dir"`
	MaxSize    int    `yaml:"max_size"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAge     int    `yaml:"max_age"`
}

// HubConfig holds the core's behavioural knobs, per spec.md §6. Every field
// here is bound to a HUB_* environment variable by Load.
type HubConfig struct {
	MaxLogs                 int  `yaml:"max_logs"`
	StaleAfterSeconds       int  `yaml:"stale_after_seconds"`
	RemoveAfterSeconds      int  `yaml:"remove_after_seconds"`
	ReaperIntervalSeconds   int  `yaml:"reaper_interval_seconds"`
	BreakerFailureThreshold int  `yaml:"breaker_failure_threshold"`
	BreakerCooldownSeconds  int  `yaml:"breaker_cooldown_seconds"`
	LegacyErrorStatus       bool `yaml:"legacy_error_status"`
}

func (c HubConfig) StaleAfter() time.Duration {
	return time.Duration(c.StaleAfterSeconds) * time.Second
}

func (c HubConfig) RemoveAfter() time.Duration {
	return time.Duration(c.RemoveAfterSeconds) * time.Second
}

func (c HubConfig) ReaperInterval() time.Duration {
	return time.Duration(c.ReaperIntervalSeconds) * time.Second
}

func (c HubConfig) BreakerCooldown() time.Duration {
	return time.Duration(c.BreakerCooldownSeconds) * time.Second
}
