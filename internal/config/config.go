package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Chat    ChatConfig    `mapstructure:"chat"`
	PAAPI   PAAPIConfig   `mapstructure:"paapi"`
	Admin   AdminConfig   `mapstructure:"admin"`
	Cache   CacheConfig   `mapstructure:"cache"`
	Worker  WorkerConfig  `mapstructure:"worker"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// ServerConfig holds HTTP server configuration for the Admin Reader API.
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`

	DatabasePath string `mapstructure:"database_path"`
	Timezone     string `mapstructure:"timezone"`
	AffiliateTag string `mapstructure:"affiliate_tag"`
	ErrorReporterDSN string `mapstructure:"error_reporter_dsn"`
}

// ChatConfig holds the chat transport credential this core authenticates
// outbound deliveries with.
type ChatConfig struct {
	BotToken string `mapstructure:"bot_token"`
}

// PAAPIConfig holds the Product Advertising API signing credentials.
type PAAPIConfig struct {
	AccessKey  string `mapstructure:"access_key"`
	SecretKey  string `mapstructure:"secret_key"`
	PartnerTag string `mapstructure:"partner_tag"`
	Region     string `mapstructure:"region"`
	Host       string `mapstructure:"host"`
}

// AdminConfig holds the Basic Auth credentials gating the Admin Reader API.
type AdminConfig struct {
	User string `mapstructure:"user"`
	Pass string `mapstructure:"pass"`
}

// CacheConfig holds the cache windows: the Price Oracle's freshness
// boundary, the extra window a stale entry may still be served in when
// every live source fails, and the Search Pipeline's session cache TTL.
type CacheConfig struct {
	FreshTTL       time.Duration `mapstructure:"fresh_ttl"`        // entry served without revalidation
	StaleTTL       time.Duration `mapstructure:"stale_ttl"`        // stale-serve window past freshness
	SearchCacheTTL time.Duration `mapstructure:"search_cache_ttl"` // identical-search dedup window
}

// WorkerConfig holds Scheduler operational knobs.
type WorkerConfig struct {
	PoolSize       int           `mapstructure:"pool_size"`
	JobTimeout     time.Duration `mapstructure:"job_timeout"`
	QuietHourStart int           `mapstructure:"quiet_hour_start"` // local hour, 0-23
	QuietHourEnd   int           `mapstructure:"quiet_hour_end"`   // local hour, 0-23
	DigestTime     string        `mapstructure:"digest_time"`      // "HH:MM" local time
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // "json" or "text"
}

// Load loads configuration from an optional file, then environment
// variables, which always take precedence.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	bindEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}

// LoadFromEnv loads configuration primarily from environment variables,
// falling back to a .env file in the working directory if present.
func LoadFromEnv() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // optional

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	bindEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.database_path", "./data/mandimonitor.db")
	v.SetDefault("server.timezone", "Asia/Kolkata")

	v.SetDefault("paapi.region", "us-west-2")
	v.SetDefault("paapi.host", "webservices.amazon.in")

	// An entry is fresh for a full day; re-pricing an ASIN more often than
	// that burns the remote API's rate budget for no ranking benefit.
	v.SetDefault("cache.fresh_ttl", 24*time.Hour)
	v.SetDefault("cache.stale_ttl", 24*time.Hour)
	v.SetDefault("cache.search_cache_ttl", 5*time.Minute)

	v.SetDefault("worker.pool_size", 8)
	v.SetDefault("worker.job_timeout", 120*time.Second)
	v.SetDefault("worker.quiet_hour_start", 22)
	v.SetDefault("worker.quiet_hour_end", 7)
	v.SetDefault("worker.digest_time", "09:00")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

func bindEnvVars(v *viper.Viper) {
	bindEnv := func(key string, envVar string) {
		if err := v.BindEnv(key, envVar); err != nil {
			slog.Warn("failed to bind environment variable",
				slog.String("key", key),
				slog.String("env_var", envVar),
				slog.String("error", err.Error()))
		}
	}

	bindEnv("chat.bot_token", "CHAT_BOT_TOKEN")
	bindEnv("paapi.access_key", "API_ACCESS_KEY")
	bindEnv("paapi.secret_key", "API_SECRET_KEY")
	bindEnv("paapi.partner_tag", "AFFILIATE_TAG")
	bindEnv("server.affiliate_tag", "AFFILIATE_TAG")
	bindEnv("admin.user", "ADMIN_USER")
	bindEnv("admin.pass", "ADMIN_PASS")
	bindEnv("server.error_reporter_dsn", "ERROR_REPORTER_DSN")
	bindEnv("server.timezone", "TIMEZONE")
	bindEnv("server.database_path", "DATABASE_PATH")
	bindEnv("server.host", "SERVER_HOST")
	bindEnv("server.port", "SERVER_PORT")
	bindEnv("logging.level", "LOG_LEVEL")
	bindEnv("logging.format", "LOG_FORMAT")
}

// Validate fails fast on missing credentials this process cannot run
// without: a chat bot token to deliver results, PAAPI signing credentials
// to price anything, and admin credentials to gate the reader API.
func (c *Config) Validate() error {
	if c.Chat.BotToken == "" {
		return fmt.Errorf("CHAT_BOT_TOKEN is required")
	}
	if c.PAAPI.AccessKey == "" {
		return fmt.Errorf("API_ACCESS_KEY is required")
	}
	if c.PAAPI.SecretKey == "" {
		return fmt.Errorf("API_SECRET_KEY is required")
	}
	if c.PAAPI.PartnerTag == "" {
		return fmt.Errorf("AFFILIATE_TAG is required")
	}
	if c.Admin.User == "" || c.Admin.Pass == "" {
		return fmt.Errorf("ADMIN_USER and ADMIN_PASS are required")
	}
	if _, err := time.LoadLocation(c.Server.Timezone); err != nil {
		return fmt.Errorf("invalid timezone %q: %w", c.Server.Timezone, err)
	}
	if c.Worker.QuietHourStart < 0 || c.Worker.QuietHourStart > 23 {
		return fmt.Errorf("worker.quiet_hour_start must be 0-23")
	}
	if c.Worker.QuietHourEnd < 0 || c.Worker.QuietHourEnd > 23 {
		return fmt.Errorf("worker.quiet_hour_end must be 0-23")
	}
	return nil
}
