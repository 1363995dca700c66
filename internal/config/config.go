// Package config handles loading and validating the voxline agent configuration.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Config is the root configuration for a voxline call-handling process.
type Config struct {
	Agent     AgentConfig     `mapstructure:"agent"`
	Synthesis SynthesisConfig `mapstructure:"synthesis"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// AgentConfig holds the persona identity used on every call.
type AgentConfig struct {
	// Name is the agent's spoken name, used for AI-identity disclosure
	// and for scrubbing banned self-references.
	Name string `mapstructure:"name"`

	// BusinessName is the business the agent represents.
	BusinessName string `mapstructure:"business_name"`

	// CallbackPhone is the number offered when a fallback suggests a callback.
	CallbackPhone string `mapstructure:"callback_phone"`

	// BusinessHours is the spoken description of opening hours.
	BusinessHours string `mapstructure:"business_hours"`

	// DefaultVoice is the voice profile key used when a caller's stored
	// selection is absent or invalid.
	DefaultVoice string `mapstructure:"default_voice"`
}

// SynthesisConfig selects and configures the speech synthesis backend.
type SynthesisConfig struct {
	// Backend is "elevenlabs" or "mock".
	Backend string `mapstructure:"backend"`

	// APIKey authenticates against the synthesis provider.
	APIKey string `mapstructure:"api_key"`

	// Streaming selects the low-latency WebSocket transport when true,
	// chunked HTTP streaming otherwise.
	Streaming bool `mapstructure:"streaming"`

	// TimeoutSeconds bounds a single buffered synthesis round trip.
	TimeoutSeconds int `mapstructure:"timeout_seconds"`
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json, text
}

// Load reads the configuration from file, environment variables, and defaults.
// If configFile is non-empty it is used directly; otherwise the standard
// search order applies: ./voxline.yaml, ./configs/voxline.yaml, /etc/voxline/voxline.yaml.
func Load(configFile string) (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("agent.name", "Alex")
	v.SetDefault("agent.business_name", "our business")
	v.SetDefault("agent.callback_phone", "our main line")
	v.SetDefault("agent.business_hours", "our regular business hours")
	v.SetDefault("agent.default_voice", "harper")
	v.SetDefault("synthesis.backend", "mock")
	v.SetDefault("synthesis.streaming", true)
	v.SetDefault("synthesis.timeout_seconds", 30)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	// Config file
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("voxline")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/voxline")
	}

	// Environment variables: VOXLINE_AGENT_NAME, VOXLINE_SYNTHESIS_API_KEY, etc.
	v.SetEnvPrefix("VOXLINE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file (optional; env vars and defaults are sufficient)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		slog.Info("no config file found, using defaults and environment variables")
	} else {
		slog.Info("loaded config file", "path", v.ConfigFileUsed())
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	// Resolve env var references in sensitive fields (e.g., "${ELEVENLABS_API_KEY}")
	cfg.Synthesis.APIKey = resolveEnvRef(cfg.Synthesis.APIKey)

	return &cfg, nil
}

// resolveEnvRef replaces "${VAR_NAME}" patterns with the corresponding env var value.
func resolveEnvRef(val string) string {
	if strings.HasPrefix(val, "${") && strings.HasSuffix(val, "}") {
		envKey := val[2 : len(val)-1]
		if envVal := os.Getenv(envKey); envVal != "" {
			return envVal
		}
	}
	return val
}

// SetupLogging configures the global slog logger based on config.
func SetupLogging(cfg LoggingConfig) {
	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if strings.ToLower(cfg.Format) == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(handler))
}
