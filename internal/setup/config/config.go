package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

var (
	ErrConfigFileNotFound    = errors.New("could not find config file in any config path")
	ErrConfigVersionMissing  = errors.New("config file is missing version field")
	ErrConfigVersionMismatch = errors.New("config file version mismatch")
	ErrMissingToken          = errors.New("discord token is not set (DISCORD_TOKEN)")
	ErrMissingStore          = errors.New("snapshot store connection is not configured")
	ErrMissingDiscordID      = errors.New("discord id is not configured")
	ErrInvalidBackend        = errors.New("unknown storage backend")
)

// RepositoryVersion is the repository version tag for config file references.
const RepositoryVersion = "v1.0.0"

// CurrentConfigVersion is the version of config.toml this build understands.
const CurrentConfigVersion = 1

// ConfigFileName is the name of the file looked up in every search path.
const ConfigFileName = "config.toml"

// EnvPrefix marks environment variables that override config keys.
// AFFILIATES_DISCORD__HISTORY_LIMIT sets discord.history_limit.
const EnvPrefix = "AFFILIATES_"

// Storage backends.
const (
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"
	BackendRedis    = "redis"
	BackendNone     = "none"
)

// envAliases maps the conventional deployment variables onto config keys.
var envAliases = map[string]string{
	"DISCORD_TOKEN": "discord.token",
	"DATABASE_URL":  "storage.postgres.dsn",
}

// Config represents the entire application configuration.
type Config struct {
	// Version of the config file.
	Version int     `koanf:"version"`
	Debug   Debug   `koanf:"debug"`
	Discord Discord `koanf:"discord"`
	Storage Storage `koanf:"storage"`
	Worker  Worker  `koanf:"worker"`
}

// Debug contains logging configuration.
type Debug struct {
	// Log level (debug, info, warn, error).
	LogLevel string `koanf:"log_level"`
	// Directory holding one sub-directory per run.
	LogDir string `koanf:"log_dir"`
	// Maximum log sessions to keep.
	MaxLogsToKeep int `koanf:"max_logs_to_keep"`
	// Maximum lines per log file.
	MaxLogLines int `koanf:"max_log_lines"`
}

// Discord contains the bot credentials and the guild objects it works on.
type Discord struct {
	// Bot token for authentication.
	Token string `koanf:"token"`
	// Guild holding the affiliate role.
	GuildID uint64 `koanf:"guild_id"`
	// Channel where clans post their raw announcements.
	SourceChannelID uint64 `koanf:"source_channel_id"`
	// Public channel receiving the reformatted announcements.
	TargetChannelID uint64 `koanf:"target_channel_id"`
	// Role granted to every listed contact.
	AffiliateRoleID uint64 `koanf:"affiliate_role_id"`
	// Number of recent announcements processed per run (max 100).
	HistoryLimit int `koanf:"history_limit"`
	// Minimum delay between mirrored messages in milliseconds.
	EmitInterval int `koanf:"emit_interval_ms"`
	// Audit log reason attached to role changes.
	AuditReason string `koanf:"audit_reason"`
}

// Storage selects and configures the snapshot store.
type Storage struct {
	// One of postgres, sqlite, redis or none.
	Backend  string     `koanf:"backend"`
	Postgres PostgreSQL `koanf:"postgres"`
	SQLite   SQLite     `koanf:"sqlite"`
	Redis    Redis      `koanf:"redis"`
}

// PostgreSQL contains database connection configuration.
type PostgreSQL struct {
	// Connection string, takes precedence over the individual fields.
	DSN string `koanf:"dsn"`
	// Database hostname.
	Host string `koanf:"host"`
	// Database port.
	Port int `koanf:"port"`
	// Database username.
	User string `koanf:"user"`
	// Database password.
	Password string `koanf:"password"`
	// Database name.
	DBName string `koanf:"db_name"`
	// Maximum open connections.
	MaxOpenConns int `koanf:"max_open_conns"`
	// Maximum idle connections.
	MaxIdleConns int `koanf:"max_idle_conns"`
	// Connection lifetime in minutes.
	MaxLifetime int `koanf:"max_lifetime"`
	// Idle timeout in minutes.
	MaxIdleTime int `koanf:"max_idle_time"`
	// Apply pending migrations on startup instead of refusing to run.
	AutoMigrate bool `koanf:"auto_migrate"`
}

// SQLite contains the local snapshot file location.
type SQLite struct {
	Path string `koanf:"path"`
}

// Redis contains Redis connection configuration.
type Redis struct {
	// Redis hostname.
	Host string `koanf:"host"`
	// Redis port.
	Port int `koanf:"port"`
	// Redis username.
	Username string `koanf:"username"`
	// Redis password.
	Password string `koanf:"password"`
	// Database index holding the snapshot.
	DB int `koanf:"db"`
	// Key of the snapshot set.
	Key string `koanf:"key"`
	// Turn off client-side caching for servers without CLIENT TRACKING.
	DisableCache bool `koanf:"disable_cache"`
}

// Worker contains batch tuning.
type Worker struct {
	// Maximum concurrent role requests.
	RoleConcurrency int `koanf:"role_concurrency"`
}

// DefaultSearchPaths returns the directories searched for config.toml, in order.
func DefaultSearchPaths() []string {
	paths := []string{".affiliates"}

	if homeDir, err := os.UserHomeDir(); err == nil {
		paths = append(paths, homeDir+"/.affiliates/config")
	}

	return append(paths,
		"/etc/affiliates/config",
		"/app/config",
		"config",
		".",
	)
}

// LoadConfig loads config.toml from the default search paths.
// Returns the config along with the used config directory.
func LoadConfig() (*Config, string, error) {
	return LoadConfigFrom(DefaultSearchPaths()...)
}

// LoadConfigFrom loads the first config.toml found in paths, applies
// environment overrides and defaults, and validates the result.
func LoadConfigFrom(paths ...string) (*Config, string, error) {
	k := koanf.New(".")

	var usedConfigPath string

	for _, path := range paths {
		configPath := fmt.Sprintf("%s/%s", path, ConfigFileName)
		if err := k.Load(file.Provider(configPath), toml.Parser()); err == nil {
			usedConfigPath = path
			break
		}
	}

	if usedConfigPath == "" {
		return nil, "", fmt.Errorf("%w: %s", ErrConfigFileNotFound, ConfigFileName)
	}

	// Environment wins over the file
	if err := k.Load(env.Provider("", ".", envKey), nil); err != nil {
		return nil, "", fmt.Errorf("error loading environment: %w", err)
	}

	var config Config
	if err := k.Unmarshal("", &config); err != nil {
		return nil, "", fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := checkConfigVersion(config.Version, CurrentConfigVersion); err != nil {
		return nil, "", err
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, "", err
	}

	return &config, usedConfigPath, nil
}

// envKey maps an environment variable name to a config key.
// Unrelated variables map to an empty key and are skipped.
func envKey(name string) string {
	if key, ok := envAliases[name]; ok {
		return key
	}

	if !strings.HasPrefix(name, EnvPrefix) {
		return ""
	}

	key := strings.ToLower(strings.TrimPrefix(name, EnvPrefix))

	return strings.ReplaceAll(key, "__", ".")
}

// applyDefaults fills in unset optional values.
func (c *Config) applyDefaults() {
	if c.Debug.LogLevel == "" {
		c.Debug.LogLevel = "info"
	}

	if c.Debug.LogDir == "" {
		c.Debug.LogDir = "logs"
	}

	if c.Debug.MaxLogsToKeep <= 0 {
		c.Debug.MaxLogsToKeep = 10
	}

	if c.Debug.MaxLogLines <= 0 {
		c.Debug.MaxLogLines = 10000
	}

	if c.Discord.HistoryLimit <= 0 || c.Discord.HistoryLimit > 100 {
		c.Discord.HistoryLimit = 100
	}

	if c.Discord.AuditReason == "" {
		c.Discord.AuditReason = "Affiliate announcement sync"
	}

	if c.Storage.Backend == "" {
		c.Storage.Backend = BackendPostgres
	}

	if c.Storage.Postgres.MaxOpenConns <= 0 {
		c.Storage.Postgres.MaxOpenConns = 1
	}

	if c.Storage.Redis.Port == 0 {
		c.Storage.Redis.Port = 6379
	}

	if c.Storage.SQLite.Path == "" {
		c.Storage.SQLite.Path = "affiliates.db"
	}

	if c.Worker.RoleConcurrency <= 0 {
		c.Worker.RoleConcurrency = 4
	}
}

// Validate reports the first missing required setting.
func (c *Config) Validate() error {
	if c.Discord.Token == "" {
		return ErrMissingToken
	}

	ids := []struct {
		name  string
		value uint64
	}{
		{"discord.guild_id", c.Discord.GuildID},
		{"discord.source_channel_id", c.Discord.SourceChannelID},
		{"discord.target_channel_id", c.Discord.TargetChannelID},
		{"discord.affiliate_role_id", c.Discord.AffiliateRoleID},
	}
	for _, id := range ids {
		if id.value == 0 {
			return fmt.Errorf("%w: %s", ErrMissingDiscordID, id.name)
		}
	}

	switch c.Storage.Backend {
	case BackendPostgres:
		if c.Storage.Postgres.DSN == "" && c.Storage.Postgres.Host == "" {
			return fmt.Errorf("%w: set DATABASE_URL or storage.postgres.host", ErrMissingStore)
		}
	case BackendRedis:
		if c.Storage.Redis.Host == "" {
			return fmt.Errorf("%w: set storage.redis.host", ErrMissingStore)
		}
	case BackendSQLite, BackendNone:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidBackend, c.Storage.Backend)
	}

	return nil
}

// checkConfigVersion checks if the config file version is correct.
func checkConfigVersion(current, expected int) error {
	if current == 0 {
		return fmt.Errorf("%w: %s", ErrConfigVersionMissing, ConfigFileName)
	}

	if current != expected {
		return fmt.Errorf(
			"%w: %s (got: %d, expected: %d)\n"+
				"Please update your config file from: https://github.com/robalyx/affiliates/tree/%s/config/%s",
			ErrConfigVersionMismatch,
			ConfigFileName,
			current,
			expected,
			RepositoryVersion,
			ConfigFileName,
		)
	}

	return nil
}
