package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func envMap(values map[string]string) func(string) string {
	return func(key string) string { return values[key] }
}

func TestLoadConfigKeepsDefaultsForMissingFields(t *testing.T) {
	path := writeConfig(t, "translator:\n  model: \"gpt-4o-mini\"\ngateway:\n  port: 9090\n")
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Gateway.Port != 9090 || cfg.Gateway.Bind != "0.0.0.0" {
		t.Fatalf("unexpected gateway: %+v", cfg.Gateway)
	}
	if cfg.Translator.Model != "gpt-4o-mini" || cfg.Translator.TimeoutSeconds != 120 {
		t.Fatalf("unexpected translator: %+v", cfg.Translator)
	}
	if cfg.Discord.CommandPrefix != "!" || cfg.Discord.Triggers[0] != "@translator" {
		t.Fatalf("unexpected discord defaults: %+v", cfg.Discord)
	}
	if len(cfg.Languages) != 2 {
		t.Fatalf("expected default languages, got %v", cfg.Languages)
	}
}

func TestLoadConfigReadsLanguages(t *testing.T) {
	path := writeConfig(t, "languages:\n  - code: FR\n    name: French\n    description: Translate to French\n    emoji: \"🇫🇷\"\n")
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if len(cfg.Languages) != 1 || cfg.Languages[0].Name != "French" {
		t.Fatalf("unexpected languages: %v", cfg.Languages)
	}
}

func TestLoadConfigRejectsDuplicateLanguages(t *testing.T) {
	path := writeConfig(t, "languages:\n  - code: en\n  - code: EN\n")
	_, err := LoadConfig(path)
	if err == nil {
		t.Fatal("expected error for duplicate language codes")
	}
	if !strings.Contains(err.Error(), "duplicate") {
		t.Fatalf("expected duplicate error, got %v", err)
	}
}

func TestLoadConfigRejectsInvalidYAML(t *testing.T) {
	path := writeConfig(t, "gateway: [\n")
	if _, err := LoadConfig(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestApplyEnvOverridesSecrets(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Translator.Model = "from-file"
	cfg.ApplyEnv(envMap(map[string]string{
		EnvDiscordToken: "discord-token",
		EnvOpenAIAPIKey: " sk-test ",
	}))

	if cfg.Discord.Token != "discord-token" || cfg.Translator.APIKey != "sk-test" {
		t.Fatalf("expected env secrets, got %+v %+v", cfg.Discord, cfg.Translator)
	}
	if cfg.Translator.Model != "from-file" {
		t.Fatalf("empty env must keep file value, got %q", cfg.Translator.Model)
	}
}

func TestValidateReportsEveryMissingSecret(t *testing.T) {
	err := DefaultConfig().Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"discord.token", "translator.apiKey", "translator.model"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("expected %q in %v", want, err)
		}
	}

	cfg := DefaultConfig()
	cfg.ApplyEnv(envMap(map[string]string{
		EnvDiscordToken: "t",
		EnvOpenAIAPIKey: "k",
		EnvOpenAIModel:  "m",
	}))
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestSaveConfigRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg := DefaultConfig()
	cfg.Gateway.AllowedOrigins = []string{"https://ops.example.com"}
	if err := SaveConfig(cfg, path); err != nil {
		t.Fatalf("SaveConfig: %v", err)
	}
	loaded, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if loaded.Gateway.Addr() != "0.0.0.0:8080" || loaded.Gateway.AllowedOrigins[0] != "https://ops.example.com" {
		t.Fatalf("unexpected gateway after round trip: %+v", loaded.Gateway)
	}
}
