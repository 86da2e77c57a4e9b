package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	vars := []string{
		"CHAT_BOT_TOKEN", "API_ACCESS_KEY", "API_SECRET_KEY", "AFFILIATE_TAG",
		"ADMIN_USER", "ADMIN_PASS", "ERROR_REPORTER_DSN", "TIMEZONE",
		"DATABASE_PATH", "SERVER_HOST", "SERVER_PORT", "LOG_LEVEL", "LOG_FORMAT",
	}
	for _, v := range vars {
		os.Unsetenv(v)
	}
}

func TestLoadFromEnv_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "./data/mandimonitor.db", cfg.Server.DatabasePath)
	assert.Equal(t, "Asia/Kolkata", cfg.Server.Timezone)
	assert.Equal(t, 24*time.Hour, cfg.Cache.FreshTTL)
	assert.Equal(t, 24*time.Hour, cfg.Cache.StaleTTL)
	assert.Equal(t, 5*time.Minute, cfg.Cache.SearchCacheTTL)
	assert.Equal(t, 8, cfg.Worker.PoolSize)
	assert.Equal(t, 22, cfg.Worker.QuietHourStart)
	assert.Equal(t, 7, cfg.Worker.QuietHourEnd)
	assert.Equal(t, "09:00", cfg.Worker.DigestTime)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadFromEnv_WithEnvVars(t *testing.T) {
	clearEnv(t)
	os.Setenv("CHAT_BOT_TOKEN", "bot-token")
	os.Setenv("API_ACCESS_KEY", "access-key")
	os.Setenv("API_SECRET_KEY", "secret-key")
	os.Setenv("AFFILIATE_TAG", "mandimonitor-21")
	os.Setenv("ADMIN_USER", "admin")
	os.Setenv("ADMIN_PASS", "hunter2")
	os.Setenv("SERVER_PORT", "9090")
	defer clearEnv(t)

	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	assert.Equal(t, "bot-token", cfg.Chat.BotToken)
	assert.Equal(t, "access-key", cfg.PAAPI.AccessKey)
	assert.Equal(t, "secret-key", cfg.PAAPI.SecretKey)
	assert.Equal(t, "mandimonitor-21", cfg.PAAPI.PartnerTag)
	assert.Equal(t, "admin", cfg.Admin.User)
	assert.Equal(t, "hunter2", cfg.Admin.Pass)
	assert.Equal(t, 9090, cfg.Server.Port)

	require.NoError(t, cfg.Validate())
}

func validConfig() *Config {
	cfg := &Config{}
	cfg.Chat.BotToken = "bot-token"
	cfg.PAAPI.AccessKey = "access-key"
	cfg.PAAPI.SecretKey = "secret-key"
	cfg.PAAPI.PartnerTag = "mandimonitor-21"
	cfg.Admin.User = "admin"
	cfg.Admin.Pass = "hunter2"
	cfg.Server.Timezone = "Asia/Kolkata"
	cfg.Worker.QuietHourStart = 22
	cfg.Worker.QuietHourEnd = 7
	return cfg
}

func TestConfig_Validate_Success(t *testing.T) {
	assert.NoError(t, validConfig().Validate())
}

func TestConfig_Validate_MissingBotToken(t *testing.T) {
	cfg := validConfig()
	cfg.Chat.BotToken = ""
	err := cfg.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "CHAT_BOT_TOKEN")
}

func TestConfig_Validate_MissingPAAPICreds(t *testing.T) {
	cfg := validConfig()
	cfg.PAAPI.AccessKey = ""
	err := cfg.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "API_ACCESS_KEY")
}

func TestConfig_Validate_MissingAdminCreds(t *testing.T) {
	cfg := validConfig()
	cfg.Admin.Pass = ""
	err := cfg.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "ADMIN_USER and ADMIN_PASS")
}

func TestConfig_Validate_InvalidTimezone(t *testing.T) {
	cfg := validConfig()
	cfg.Server.Timezone = "Not/A_Zone"
	err := cfg.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "invalid timezone")
}

func TestConfig_Validate_InvalidQuietHours(t *testing.T) {
	cfg := validConfig()
	cfg.Worker.QuietHourStart = 24
	err := cfg.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "quiet_hour_start")
}
