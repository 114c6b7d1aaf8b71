package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/aorestr/alpargatify/internal/log"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Telegram TelegramConfig `mapstructure:"telegram"`
	Sync     SyncConfig     `mapstructure:"sync"`
	Schedule ScheduleConfig `mapstructure:"schedule"`
	Logging  log.Config     `mapstructure:"logging"`
}

// ServerConfig holds the Navidrome/Subsonic server connection settings.
// Credentials are plain values handed to client constructors; there is no
// process-wide session object.
type ServerConfig struct {
	URL         string `mapstructure:"url"`
	Username    string `mapstructure:"username"`
	Password    string `mapstructure:"password"`
	MusicFolder string `mapstructure:"music_folder"` // Optional folder name to scope listings to
}

// TelegramConfig holds the bot token and the single authorized chat.
type TelegramConfig struct {
	Token  string `mapstructure:"token"`
	ChatID int64  `mapstructure:"chat_id"`
}

// SyncConfig tunes the cache synchronization engine.
type SyncConfig struct {
	CacheFile      string `mapstructure:"cache_file"`
	LedgerFile     string `mapstructure:"ledger_file"`
	ExpiryDays     int    `mapstructure:"expiry_days"`
	PageSize       int    `mapstructure:"page_size"`
	Workers        int    `mapstructure:"workers"`
	RequestTimeout int    `mapstructure:"request_timeout_seconds"`
}

// ScheduleConfig controls the daily notification job.
type ScheduleConfig struct {
	Time         string `mapstructure:"time"` // "HH:MM", local time
	RunOnStartup bool   `mapstructure:"run_on_startup"`
	RecentHours  int    `mapstructure:"recent_hours"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Sync: SyncConfig{
			CacheFile:      filepath.Join(defaultDataPath(), "albums_cache.json"),
			LedgerFile:     filepath.Join(defaultDataPath(), "announced.db"),
			ExpiryDays:     7,
			PageSize:       500,
			Workers:        10,
			RequestTimeout: 30,
		},
		Schedule: ScheduleConfig{
			Time:        "08:00",
			RecentHours: 24,
		},
		Logging: log.Config{
			Level: "INFO",
		},
	}
}

// defaultDataPath returns the default data directory for the current OS
func defaultDataPath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("LOCALAPPDATA"), "alpargatify")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".local", "share", "alpargatify")
	}
}

// defaultConfigPath returns the default config directory for the current OS
func defaultConfigPath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "alpargatify")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".config", "alpargatify")
	}
}

// Load reads configuration from file and environment. A .env file in the
// working directory is loaded first so container deployments can ship
// secrets without a config file.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := DefaultConfig()

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(defaultConfigPath())
	viper.AddConfigPath(".")

	viper.SetEnvPrefix("ALPARGATIFY")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Bind the keys env overrides are expected for; AutomaticEnv alone
	// does not surface unset keys through Unmarshal.
	for _, key := range []string{
		"server.url", "server.username", "server.password", "server.music_folder",
		"telegram.token", "telegram.chat_id",
		"sync.cache_file", "sync.ledger_file", "sync.expiry_days",
		"sync.page_size", "sync.workers", "sync.request_timeout_seconds",
		"schedule.time", "schedule.run_on_startup", "schedule.recent_hours",
		"logging.file", "logging.level",
	} {
		if err := viper.BindEnv(key); err != nil {
			return nil, fmt.Errorf("error binding env for %s: %w", key, err)
		}
	}

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, use defaults + env
	}

	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}

	return cfg, nil
}

// Validate checks that the settings required to talk to the server are
// present. Telegram settings are checked separately by the commands that
// need them, so cache-only commands work without a bot token.
func (c *Config) Validate() error {
	if c.Server.URL == "" {
		return fmt.Errorf("server.url is required")
	}
	if c.Server.Username == "" || c.Server.Password == "" {
		return fmt.Errorf("server.username and server.password are required")
	}
	return nil
}
