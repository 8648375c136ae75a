package config

import (
	"errors"
	"os"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

type Config struct {
	DiscordToken    string       `yaml:"discord_token"`
	Prefix          string       `yaml:"prefix"`
	DataDir         string       `yaml:"data_dir"`
	DatabasePath    string       `yaml:"database_path"`
	LogLevel        string       `yaml:"log_level"`
	ModLogChannel   string       `yaml:"mod_log_channel"`
	WelcomeChannel  string       `yaml:"welcome_channel"`
	MutedRoleName   string       `yaml:"muted_role_name"`
	SupportServer   string       `yaml:"support_server"`
	SnapshotSeconds int          `yaml:"snapshot_seconds"`
	StatsMinutes    int          `yaml:"stats_minutes"`
	Setup           SetupConfig  `yaml:"setup"`
	Notifications   NotifyConfig `yaml:"notifications"`
}

type SetupConfig struct {
	WizardTimeoutSeconds  int `yaml:"wizard_timeout_seconds"`
	ConfirmTimeoutSeconds int `yaml:"confirm_timeout_seconds"`
}

type NotifyConfig struct {
	DMOnAction  bool        `yaml:"dm_on_action"`
	EmbedColors EmbedColors `yaml:"embed_colors"`
}

type EmbedColors struct {
	Action  int `yaml:"action"`
	Success int `yaml:"success"`
	Warning int `yaml:"warning"`
	Error   int `yaml:"error"`
	Info    int `yaml:"info"`
}

func DefaultConfig() Config {
	return Config{
		Prefix:          "!",
		DataDir:         "data",
		DatabasePath:    "data/enforcer.db",
		LogLevel:        "info",
		ModLogChannel:   "mod-log",
		WelcomeChannel:  "welcome",
		MutedRoleName:   "Muted",
		SupportServer:   "",
		SnapshotSeconds: 60,
		StatsMinutes:    5,
		Setup: SetupConfig{
			WizardTimeoutSeconds:  120,
			ConfirmTimeoutSeconds: 30,
		},
		Notifications: NotifyConfig{
			DMOnAction: true,
			EmbedColors: EmbedColors{
				Action:  0xF59E0B,
				Success: 0x22C55E,
				Warning: 0xEF4444,
				Error:   0xF97316,
				Info:    0x3B82F6,
			},
		},
	}
}

func Load() (Config, error) {
	cfg := DefaultConfig()

	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "config.yaml"
	}
	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, err
		}
	}

	applyEnv(&cfg)
	if cfg.DiscordToken == "" {
		return Config{}, errors.New("DISCORD_TOKEN is required")
	}
	if cfg.Prefix == "" {
		cfg.Prefix = "!"
	}
	if cfg.SnapshotSeconds <= 0 {
		cfg.SnapshotSeconds = 60
	}
	if cfg.StatsMinutes <= 0 {
		cfg.StatsMinutes = 5
	}
	if cfg.Setup.WizardTimeoutSeconds <= 0 {
		cfg.Setup.WizardTimeoutSeconds = 120
	}
	if cfg.Setup.ConfirmTimeoutSeconds <= 0 {
		cfg.Setup.ConfirmTimeoutSeconds = 30
	}

	return cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.DiscordToken = envString("DISCORD_TOKEN", cfg.DiscordToken)
	cfg.Prefix = envString("COMMAND_PREFIX", cfg.Prefix)
	cfg.DataDir = envString("DATA_DIR", cfg.DataDir)
	cfg.DatabasePath = envString("DATABASE_PATH", cfg.DatabasePath)
	cfg.LogLevel = envString("LOG_LEVEL", cfg.LogLevel)
	cfg.ModLogChannel = envString("MOD_LOG_CHANNEL", cfg.ModLogChannel)
	cfg.WelcomeChannel = envString("WELCOME_CHANNEL", cfg.WelcomeChannel)
	cfg.MutedRoleName = envString("MUTED_ROLE_NAME", cfg.MutedRoleName)
	cfg.SupportServer = envString("SUPPORT_SERVER", cfg.SupportServer)
	cfg.SnapshotSeconds = envInt("SNAPSHOT_SECONDS", cfg.SnapshotSeconds)
	cfg.StatsMinutes = envInt("STATS_MINUTES", cfg.StatsMinutes)
	cfg.Setup.WizardTimeoutSeconds = envInt("SETUP_WIZARD_TIMEOUT_SECONDS", cfg.Setup.WizardTimeoutSeconds)
	cfg.Setup.ConfirmTimeoutSeconds = envInt("SETUP_CONFIRM_TIMEOUT_SECONDS", cfg.Setup.ConfirmTimeoutSeconds)
	cfg.Notifications.DMOnAction = envBool("DM_ON_ACTION", cfg.Notifications.DMOnAction)
	cfg.Notifications.EmbedColors.Action = envInt("EMBED_COLOR_ACTION", cfg.Notifications.EmbedColors.Action)
	cfg.Notifications.EmbedColors.Success = envInt("EMBED_COLOR_SUCCESS", cfg.Notifications.EmbedColors.Success)
	cfg.Notifications.EmbedColors.Warning = envInt("EMBED_COLOR_WARNING", cfg.Notifications.EmbedColors.Warning)
	cfg.Notifications.EmbedColors.Error = envInt("EMBED_COLOR_ERROR", cfg.Notifications.EmbedColors.Error)
	cfg.Notifications.EmbedColors.Info = envInt("EMBED_COLOR_INFO", cfg.Notifications.EmbedColors.Info)
}

func BuildLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "json"
	cfg.EncoderConfig.TimeKey = "time"
	cfg.EncoderConfig.MessageKey = "message"
	cfg.EncoderConfig.LevelKey = "level"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	lvl := strings.ToLower(level)
	switch lvl {
	case "debug", "info", "warn", "error":
		cfg.Level = zap.NewAtomicLevelAt(parseLevel(lvl))
	default:
		cfg.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	}

	return cfg.Build()
}

func parseLevel(level string) zapcore.Level {
	switch level {
	case "debug":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

func envString(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		lower := strings.ToLower(value)
		return lower == "1" || lower == "true" || lower == "yes"
	}
	return fallback
}
