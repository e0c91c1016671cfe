// Package config provides Viper-based configuration management for stash.
//
// Configuration is read from a YAML file with STASH_-prefixed environment
// overrides. The file is watched for changes; recognized sync keys are
// applied at the next cycle without a restart.
package config

import (
	"fmt"
	"log"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"github.com/seanmcgrath/stash/internal/model"
	"github.com/seanmcgrath/stash/internal/syncer"
)

// Config represents the complete stash configuration.
type Config struct {
	Remote    RemoteConfig    `mapstructure:"remote"`
	Sync      SyncConfig      `mapstructure:"sync"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Dashboard DashboardConfig `mapstructure:"dashboard"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// RemoteConfig contains remote service settings.
type RemoteConfig struct {
	BaseURL string `mapstructure:"base_url"`
	Token   string `mapstructure:"token"`
}

// SyncConfig contains sync orchestrator settings.
type SyncConfig struct {
	IntervalMinutes                int    `mapstructure:"sync_interval_minutes"`
	BackgroundSync                 bool   `mapstructure:"background_sync"`
	WifiOnly                       bool   `mapstructure:"wifi_only"`
	CellularAllowed                bool   `mapstructure:"cellular_allowed"`
	DownloadImages                 bool   `mapstructure:"download_images"`
	FullTextSync                   bool   `mapstructure:"full_text_sync"`
	BatchSize                      int    `mapstructure:"batch_size"`
	ConflictStrategy               string `mapstructure:"conflict_strategy"`
	MaxRetries                     int    `mapstructure:"max_retries"`
	ForegroundSyncThresholdMinutes int    `mapstructure:"foreground_sync_threshold_minutes"`
	RetentionDays                  int    `mapstructure:"retention_days"`
}

// StorageConfig contains local store settings.
type StorageConfig struct {
	Path string `mapstructure:"path"`
}

// DashboardConfig contains dashboard server settings.
type DashboardConfig struct {
	Port int `mapstructure:"port"`
}

// LoggingConfig contains daemon log rotation settings.
type LoggingConfig struct {
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

// Manager owns the Viper instance so the loaded file can be watched for
// changes.
type Manager struct {
	v      *viper.Viper
	logger *log.Logger
}

// NewManager builds a Manager reading from cfgFile, or from the default
// search paths (., $HOME/.config/stash) when cfgFile is empty. A missing
// config file is not an error; defaults apply.
func NewManager(cfgFile string, logger *log.Logger) (*Manager, error) {
	if logger == nil {
		logger = log.Default()
	}

	v := viper.New()
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName(".stash")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/stash")
	}

	v.SetEnvPrefix("STASH")
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	return &Manager{v: v, logger: logger}, nil
}

// Config unmarshals and validates the current configuration.
func (m *Manager) Config() (*Config, error) {
	var cfg Config
	if err := m.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return &cfg, nil
}

// Watch re-reads the config file on change and hands the result to onChange.
// Reload failures keep the previous configuration and are logged, never
// propagated: a half-written file must not take the daemon down.
func (m *Manager) Watch(onChange func(*Config)) {
	m.v.OnConfigChange(func(e fsnotify.Event) {
		cfg, err := m.Config()
		if err != nil {
			m.logger.Printf("Ignoring config change (%s): %v", e.Name, err)
			return
		}
		m.logger.Printf("Config reloaded from %s", e.Name)
		onChange(cfg)
	})
	m.v.WatchConfig()
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("remote.base_url", "https://api.stash.example.com")
	v.SetDefault("sync.sync_interval_minutes", 15)
	v.SetDefault("sync.background_sync", true)
	v.SetDefault("sync.wifi_only", false)
	v.SetDefault("sync.cellular_allowed", true)
	v.SetDefault("sync.download_images", true)
	v.SetDefault("sync.full_text_sync", false)
	v.SetDefault("sync.batch_size", 50)
	v.SetDefault("sync.conflict_strategy", string(model.LastWriteWins))
	v.SetDefault("sync.max_retries", 5)
	v.SetDefault("sync.foreground_sync_threshold_minutes", 5)
	v.SetDefault("sync.retention_days", 7)
	v.SetDefault("storage.path", ".stash/stash.db")
	v.SetDefault("dashboard.port", 8080)
	v.SetDefault("logging.max_size_mb", 10)
	v.SetDefault("logging.max_backups", 3)
	v.SetDefault("logging.max_age_days", 28)
}

func validate(cfg *Config) error {
	if _, err := model.ParseStrategy(cfg.Sync.ConflictStrategy); err != nil {
		return err
	}
	if cfg.Sync.BatchSize <= 0 {
		return fmt.Errorf("sync.batch_size must be positive (got %d)", cfg.Sync.BatchSize)
	}
	if cfg.Sync.MaxRetries <= 0 {
		return fmt.Errorf("sync.max_retries must be positive (got %d)", cfg.Sync.MaxRetries)
	}
	if cfg.Storage.Path == "" {
		return fmt.Errorf("storage.path is required")
	}
	return nil
}

// SyncOptions converts the configuration into orchestrator options.
// background_sync off means no automatic interval; manual and foreground
// triggers still work.
func (c *Config) SyncOptions() syncer.Options {
	interval := time.Duration(c.Sync.IntervalMinutes) * time.Minute
	if !c.Sync.BackgroundSync {
		interval = 0
	}
	return syncer.Options{
		Strategy:            model.Strategy(c.Sync.ConflictStrategy),
		BatchSize:           c.Sync.BatchSize,
		MaxRetries:          c.Sync.MaxRetries,
		WifiOnly:            c.Sync.WifiOnly,
		CellularAllowed:     c.Sync.CellularAllowed,
		Interval:            interval,
		ForegroundThreshold: time.Duration(c.Sync.ForegroundSyncThresholdMinutes) * time.Minute,
		Retention:           time.Duration(c.Sync.RetentionDays) * 24 * time.Hour,
	}
}
