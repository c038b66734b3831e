package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/balkashynov/smgantt/internal/logger"
)

// EnvPrefix is the prefix of every environment override, e.g. SMGANTT_SERVER_ADDR
const EnvPrefix = "SMGANTT"

// DatabaseConfig locates the sqlite file
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// ServerConfig configures the HTTP API
type ServerConfig struct {
	Addr         string   `mapstructure:"addr"`
	AllowOrigins []string `mapstructure:"allow_origins"`
}

// RolloverSettings configures the daily rollover run
type RolloverSettings struct {
	Enabled  bool   `mapstructure:"enabled"`
	Time     string `mapstructure:"time"`
	Timezone string `mapstructure:"timezone"`
	Workers  int    `mapstructure:"workers"`
}

// CalendarConfig is the working week used by jobs that do not set their own
type CalendarConfig struct {
	WorkingDays []string `mapstructure:"working_days"`
	Region      string   `mapstructure:"region"`
}

// LockConfig selects the per-job lock
type LockConfig struct {
	Backend string        `mapstructure:"backend"`
	Wait    time.Duration `mapstructure:"wait"`
	TTL     time.Duration `mapstructure:"ttl"`
}

// RedisConfig is shared by the redis lock and notifier
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// NotifyConfig configures post-commit notifications. An empty channel disables publishing.
type NotifyConfig struct {
	RedisChannel string `mapstructure:"redis_channel"`
}

// Config holds all runtime configuration.
// Values are populated from .smgantt.yaml, a .env file, SMGANTT_* env vars and CLI flags.
type Config struct {
	Database DatabaseConfig   `mapstructure:"database"`
	Server   ServerConfig     `mapstructure:"server"`
	Log      logger.Config    `mapstructure:"log"`
	Rollover RolloverSettings `mapstructure:"rollover"`
	Calendar CalendarConfig   `mapstructure:"calendar"`
	Lock     LockConfig       `mapstructure:"lock"`
	Redis    RedisConfig      `mapstructure:"redis"`
	Notify   NotifyConfig     `mapstructure:"notify"`
}

// SetDefaults registers every key with its built-in default
func SetDefaults() {
	viper.SetDefault("database.path", "")
	viper.SetDefault("server.addr", ":8080")
	viper.SetDefault("server.allow_origins", []string{"*"})
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.filename", "")
	viper.SetDefault("log.max_size", 100)
	viper.SetDefault("log.max_backups", 5)
	viper.SetDefault("log.max_age", 30)
	viper.SetDefault("log.compress", true)
	viper.SetDefault("log.console", false)
	viper.SetDefault("rollover.enabled", true)
	viper.SetDefault("rollover.time", "00:00")
	viper.SetDefault("rollover.timezone", "Australia/Sydney")
	viper.SetDefault("rollover.workers", 4)
	viper.SetDefault("calendar.working_days", []string{"mon", "tue", "wed", "thu", "fri"})
	viper.SetDefault("calendar.region", "")
	viper.SetDefault("lock.backend", "memory")
	viper.SetDefault("lock.wait", 2*time.Second)
	viper.SetDefault("lock.ttl", 30*time.Second)
	viper.SetDefault("redis.addr", "localhost:6379")
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("notify.redis_channel", "")
}

// BindEnv makes SMGANTT_* variables override config keys
func BindEnv() {
	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
}

// LoadDotEnv loads path into the process environment. A missing file is not an error.
func LoadDotEnv(path string) error {
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// Load reads configuration from viper, applying built-in defaults for any
// values not set by config file, environment, or flags.
func Load() (Config, error) {
	SetDefaults()

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to decode config: %w", err)
	}
	// env vars arrive as a single comma separated string
	cfg.Server.AllowOrigins = splitList(cfg.Server.AllowOrigins)
	cfg.Calendar.WorkingDays = splitList(cfg.Calendar.WorkingDays)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks values that would otherwise fail at first use
func (c Config) Validate() error {
	if _, err := time.Parse("15:04", c.Rollover.Time); err != nil {
		return fmt.Errorf("rollover.time %q: use HH:MM", c.Rollover.Time)
	}
	if _, err := time.LoadLocation(c.Rollover.Timezone); err != nil {
		return fmt.Errorf("rollover.timezone %q: %w", c.Rollover.Timezone, err)
	}
	if c.Rollover.Workers < 1 {
		return fmt.Errorf("rollover.workers must be at least 1, got %d", c.Rollover.Workers)
	}
	switch c.Lock.Backend {
	case "memory", "redis":
	default:
		return fmt.Errorf("lock.backend %q: use memory or redis", c.Lock.Backend)
	}
	if len(c.Calendar.WorkingDays) == 0 {
		return errors.New("calendar.working_days must name at least one day")
	}
	return nil
}

func splitList(in []string) []string {
	var out []string
	for _, s := range in {
		for _, part := range strings.Split(s, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
