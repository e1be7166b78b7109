package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/polyglot-bot/polyglot/internal/languages"
)

// Environment variables that override file values.
const (
	EnvDiscordToken = "DISCORD_TOKEN"
	EnvOpenAIAPIKey = "OPENAI_API_KEY"
	EnvOpenAIModel  = "OPENAI_AI_MODEL"
)

// Config represents the main configuration
type Config struct {
	Gateway    *GatewayConfig       `yaml:"gateway"`
	Discord    *DiscordConfig       `yaml:"discord"`
	Translator *TranslatorConfig    `yaml:"translator"`
	Languages  []languages.Language `yaml:"languages,omitempty"`
	History    *HistoryConfig       `yaml:"history,omitempty"`
	Log        *LogConfig           `yaml:"log,omitempty"`
}

// GatewayConfig contains liveness server settings
type GatewayConfig struct {
	Port           int      `yaml:"port"`
	Bind           string   `yaml:"bind"`
	AllowedOrigins []string `yaml:"allowedOrigins,omitempty"`
}

// Addr returns the listen address.
func (g *GatewayConfig) Addr() string {
	return fmt.Sprintf("%s:%d", g.Bind, g.Port)
}

// DiscordConfig contains Discord bot settings
type DiscordConfig struct {
	Token         string   `yaml:"token,omitempty"`
	CommandPrefix string   `yaml:"commandPrefix,omitempty"`
	Triggers      []string `yaml:"triggers,omitempty"`
	IntroChannels []string `yaml:"introChannels,omitempty"`
	Presence      string   `yaml:"presence,omitempty"`
}

// TranslatorConfig contains translation backend settings
type TranslatorConfig struct {
	APIKey         string `yaml:"apiKey,omitempty"`
	Model          string `yaml:"model,omitempty"`
	BaseURL        string `yaml:"baseUrl,omitempty"`
	Proxy          string `yaml:"proxy,omitempty"`
	TimeoutSeconds int    `yaml:"timeoutSeconds,omitempty"`
}

// Timeout returns the request timeout as a duration.
func (t *TranslatorConfig) Timeout() time.Duration {
	return time.Duration(t.TimeoutSeconds) * time.Second
}

// HistoryConfig contains the request audit log settings
type HistoryConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path,omitempty"`
}

// LogConfig contains logging settings
type LogConfig struct {
	Level   string `yaml:"level,omitempty"`
	Verbose bool   `yaml:"verbose,omitempty"`
}

// LoadConfig loads configuration from file. Missing fields keep their defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	config.fillDefaults()

	if _, err := languages.New(config.Languages...); err != nil {
		return nil, fmt.Errorf("invalid languages: %w", err)
	}
	return &config, nil
}

// SaveConfig saves configuration to file
func SaveConfig(config *Config, path string) error {
	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// DefaultConfig returns default configuration
func DefaultConfig() *Config {
	return &Config{
		Gateway: &GatewayConfig{
			Port: 8080,
			Bind: "0.0.0.0",
		},
		Discord: &DiscordConfig{
			CommandPrefix: "!",
			Triggers:      []string{"@translator"},
			IntroChannels: []string{"discord-test"},
			Presence:      "translation requests | @translator",
		},
		Translator: &TranslatorConfig{
			BaseURL:        "https://api.openai.com/v1",
			TimeoutSeconds: 120,
		},
		Languages: languages.DefaultLanguages(),
		History: &HistoryConfig{
			Enabled: false,
			Path:    "polyglot-history.db",
		},
		Log: &LogConfig{
			Level: "info",
		},
	}
}

func (c *Config) fillDefaults() {
	def := DefaultConfig()
	if c.Gateway == nil {
		c.Gateway = def.Gateway
	}
	if c.Gateway.Port == 0 {
		c.Gateway.Port = def.Gateway.Port
	}
	if strings.TrimSpace(c.Gateway.Bind) == "" {
		c.Gateway.Bind = def.Gateway.Bind
	}

	if c.Discord == nil {
		c.Discord = def.Discord
	}
	if strings.TrimSpace(c.Discord.CommandPrefix) == "" {
		c.Discord.CommandPrefix = def.Discord.CommandPrefix
	}
	if len(c.Discord.Triggers) == 0 {
		c.Discord.Triggers = def.Discord.Triggers
	}
	if c.Discord.IntroChannels == nil {
		c.Discord.IntroChannels = def.Discord.IntroChannels
	}
	if c.Discord.Presence == "" {
		c.Discord.Presence = def.Discord.Presence
	}

	if c.Translator == nil {
		c.Translator = def.Translator
	}
	if strings.TrimSpace(c.Translator.BaseURL) == "" {
		c.Translator.BaseURL = def.Translator.BaseURL
	}
	if c.Translator.TimeoutSeconds <= 0 {
		c.Translator.TimeoutSeconds = def.Translator.TimeoutSeconds
	}

	if len(c.Languages) == 0 {
		c.Languages = def.Languages
	}
	if c.History == nil {
		c.History = def.History
	}
	if strings.TrimSpace(c.History.Path) == "" {
		c.History.Path = def.History.Path
	}
	if c.Log == nil {
		c.Log = def.Log
	}
	if strings.TrimSpace(c.Log.Level) == "" {
		c.Log.Level = def.Log.Level
	}
}

// ApplyEnv overrides secrets and the model from the environment. Empty
// variables leave the file value in place.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if getenv == nil {
		getenv = os.Getenv
	}
	c.fillDefaults()
	if v := strings.TrimSpace(getenv(EnvDiscordToken)); v != "" {
		c.Discord.Token = v
	}
	if v := strings.TrimSpace(getenv(EnvOpenAIAPIKey)); v != "" {
		c.Translator.APIKey = v
	}
	if v := strings.TrimSpace(getenv(EnvOpenAIModel)); v != "" {
		c.Translator.Model = v
	}
}

// Validate reports every setting the bot cannot start without.
func (c *Config) Validate() error {
	c.fillDefaults()
	var errs []error
	if strings.TrimSpace(c.Discord.Token) == "" {
		errs = append(errs, fmt.Errorf("discord.token is required (or set %s)", EnvDiscordToken))
	}
	if strings.TrimSpace(c.Translator.APIKey) == "" {
		errs = append(errs, fmt.Errorf("translator.apiKey is required (or set %s)", EnvOpenAIAPIKey))
	}
	if strings.TrimSpace(c.Translator.Model) == "" {
		errs = append(errs, fmt.Errorf("translator.model is required (or set %s)", EnvOpenAIModel))
	}
	if c.Gateway.Port < 0 || c.Gateway.Port > 65535 {
		errs = append(errs, fmt.Errorf("gateway.port out of range: %d", c.Gateway.Port))
	}
	if _, err := languages.New(c.Languages...); err != nil {
		errs = append(errs, fmt.Errorf("languages: %w", err))
	}
	return errors.Join(errs...)
}
