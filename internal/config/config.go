package config

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

const (
	DefaultPort = 8080
	DefaultHost = "0.0.0.0"

	DefaultFileWriteDelay = 150 * time.Millisecond // Small delay to ensure file write is complete
)

var (
	lastReload  time.Time
	reloadMutex sync.Mutex
)

// DefaultConfig returns a configuration with the defaults named in spec.md §6.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            DefaultHost,
			Port:            DefaultPort,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      30 * time.Second,
			ShutdownTimeout:   10 * time.Second,
			TrustProxyHeaders: false,
			TrustedCIDRs:      nil,
		},
		Logging: LoggingConfig{
			Level:      "info",
			Theme:      "default",
			PrettyLogs: true,
			FileOutput: false,
			LogDir:     "./logs",
			MaxSize:    100,
			MaxBackups: 3,
			MaxAge:     28,
		},
		Hub: HubConfig{
			MaxLogs:                 100,
			StaleAfterSeconds:       900,
			RemoveAfterSeconds:      3600,
			ReaperIntervalSeconds:   60,
			BreakerFailureThreshold: 5,
			BreakerCooldownSeconds:  60,
			LegacyErrorStatus:       true,
		},
	}
}

// Load loads configuration from an optional config.yaml overlaid with
// HUB_*-prefixed environment variables, and arranges for onConfigChange to
// be called (debounced) whenever the file changes on disk.
func Load(onConfigChange func()) (*Config, error) {
	cfg := DefaultConfig()

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	// Bound individually, rather than via SetEnvPrefix+AutomaticEnv, so the
	// environment names match spec.md §6 exactly (HUB_MAX_LOGS, not
	// HUB_HUB_MAX_LOGS).
	_ = viper.BindEnv("hub.max_logs", "HUB_MAX_LOGS")
	_ = viper.BindEnv("hub.stale_after_seconds", "HUB_STALE_AFTER_SECONDS")
	_ = viper.BindEnv("hub.remove_after_seconds", "HUB_REMOVE_AFTER_SECONDS")
	_ = viper.BindEnv("hub.reaper_interval_seconds", "HUB_REAPER_INTERVAL_SECONDS")
	_ = viper.BindEnv("hub.breaker_failure_threshold", "HUB_BREAKER_FAILURE_THRESHOLD")
	_ = viper.BindEnv("hub.breaker_cooldown_seconds", "HUB_BREAKER_COOLDOWN_SECONDS")
	_ = viper.BindEnv("hub.legacy_error_status", "HUB_LEGACY_ERROR_STATUS")
	_ = viper.BindEnv("logging.level", "HUB_LOG_LEVEL")
	_ = viper.BindEnv("server.trust_proxy_headers", "HUB_TRUST_PROXY_HEADERS")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		if configFile := os.Getenv("HUB_CONFIG_FILE"); configFile != "" {
			viper.SetConfigFile(configFile)
			if err := viper.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("error reading config file %s: %w", configFile, err)
			}
		}
	}

	// Decode by the yaml tags so snake_case keys (max_logs, ...) reach their fields.
	if err := viper.Unmarshal(cfg, func(dc *mapstructure.DecoderConfig) { dc.TagName = "yaml" }); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	viper.WatchConfig()

	if onConfigChange != nil {
		viper.OnConfigChange(func(e fsnotify.Event) {
			reloadMutex.Lock()
			defer reloadMutex.Unlock()

			// lame debounce to avoid rapid-fire reloads
			now := time.Now()
			if now.Sub(lastReload) < 500*time.Millisecond {
				return
			}
			lastReload = now

			// looks like on windows this event is triggered
			// before the file is fully written, not sure why
			time.Sleep(DefaultFileWriteDelay)
			onConfigChange()
		})
	}
	return cfg, nil
}
