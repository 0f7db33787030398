package config

import (
	"encoding/base64"
	"errors"
	"fmt"
	"os"

	"github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

var (
	ErrConfigFileNotFound = errors.New("could not find config file in any config path")
	ErrConfigVersion      = errors.New("config file version mismatch")
	ErrEncryptKeySize     = errors.New("encrypt key must decode to 32 bytes")
)

// CurrentVersion of the config file format.
const CurrentVersion = 1

// Config represents the entire application configuration.
type Config struct {
	Version    int        `koanf:"version"`
	Debug      Debug      `koanf:"debug"`
	PostgreSQL PostgreSQL `koanf:"postgresql"`
	Redis      Redis      `koanf:"redis"`
	Discord    Discord    `koanf:"discord"`
	Webhook    Webhook    `koanf:"webhook"`
	Scheduler  Scheduler  `koanf:"scheduler"`
	Digs       Digs       `koanf:"digs"`
}

// Debug contains debug-related configuration.
type Debug struct {
	LogLevel string `koanf:"log_level"` // Log level (debug, info, warn, error)
}

// PostgreSQL contains database connection configuration.
type PostgreSQL struct {
	Host         string `koanf:"host"`           // Database hostname
	Port         int    `koanf:"port"`           // Database port
	User         string `koanf:"user"`           // Database username
	Password     string `koanf:"password"`       // Database password
	DBName       string `koanf:"db_name"`        // Database name
	MaxOpenConns int    `koanf:"max_open_conns"` // Maximum open connections
	MaxIdleConns int    `koanf:"max_idle_conns"` // Maximum idle connections
	MaxLifetime  int    `koanf:"max_lifetime"`   // Connection lifetime in minutes
	MaxIdleTime  int    `koanf:"max_idle_time"`  // Idle timeout in minutes
}

// Redis contains Redis connection configuration.
type Redis struct {
	Host     string `koanf:"host"`     // Redis hostname
	Port     int    `koanf:"port"`     // Redis port
	Username string `koanf:"username"` // Redis username
	Password string `koanf:"password"` // Redis password
}

// Discord contains Discord bot configuration.
type Discord struct {
	Token               string     `koanf:"token"`                 // Bot token for authentication
	GuildID             uint64     `koanf:"guild_id"`              // Guild the bot manages
	InactivityChannelID uint64     `koanf:"inactivity_channel_id"` // Channel for expiry notices
	Ranks               []RankRole `koanf:"ranks"`                 // Ordered role to rank mapping, first match wins
}

// RankRole maps a Discord role to a Minecraft rank name.
type RankRole struct {
	RoleID uint64 `koanf:"role_id"`
	Name   string `koanf:"name"`
}

// Webhook contains the inbound webhook trust boundary configuration.
type Webhook struct {
	ListenAddr    string `koanf:"listen_addr"`    // HTTP listen address
	SigningSecret string `koanf:"signing_secret"` // Shared HS256 key for bearer credentials
	EncryptKey    string `koanf:"encrypt_key"`    // Base64-encoded 32-byte key for secrets at rest
}

// Scheduler contains reconciliation job configuration.
type Scheduler struct {
	ReminderIntervalMinutes int `koanf:"reminder_interval_minutes"` // Reminder job interval
}

// Digs contains ingestion queue configuration.
type Digs struct {
	FlushIntervalSeconds int `koanf:"flush_interval_seconds"` // Coalescing window
}

// DecodedEncryptKey returns the raw vault key bytes.
func (w *Webhook) DecodedEncryptKey() ([]byte, error) {
	key, err := base64.StdEncoding.DecodeString(w.EncryptKey)
	if err != nil {
		return nil, fmt.Errorf("failed to decode encrypt key: %w", err)
	}

	if len(key) != 32 {
		return nil, ErrEncryptKeySize
	}

	return key, nil
}

// LoadConfig loads the configuration from the first config.toml found in the
// search paths and applies defaults for optional fields.
func LoadConfig() (*Config, string, error) {
	k := koanf.New(".")

	// Look for config in standard locations
	configPaths := []string{".", "config", "/etc/custodian", "$HOME/.custodian"}

	var (
		loaded     bool
		configPath string
	)

	for _, path := range configPaths {
		expanded := os.ExpandEnv(path)
		candidate := expanded + "/config.toml"

		if _, err := os.Stat(candidate); err != nil {
			continue
		}

		if err := k.Load(file.Provider(candidate), toml.Parser()); err != nil {
			return nil, "", fmt.Errorf("failed to load config file %s: %w", candidate, err)
		}

		loaded = true
		configPath = expanded

		break
	}

	if !loaded {
		return nil, "", ErrConfigFileNotFound
	}

	var config Config
	if err := k.Unmarshal("", &config); err != nil {
		return nil, "", fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if config.Version != CurrentVersion {
		return nil, "", fmt.Errorf("%w: expected %d, got %d", ErrConfigVersion, CurrentVersion, config.Version)
	}

	applyDefaults(&config)

	return &config, configPath, nil
}

func applyDefaults(config *Config) {
	if config.Debug.LogLevel == "" {
		config.Debug.LogLevel = "info"
	}

	if config.Webhook.ListenAddr == "" {
		config.Webhook.ListenAddr = ":8080"
	}

	if config.Scheduler.ReminderIntervalMinutes <= 0 {
		config.Scheduler.ReminderIntervalMinutes = 5
	}

	if config.Digs.FlushIntervalSeconds <= 0 {
		config.Digs.FlushIntervalSeconds = 10
	}
}
