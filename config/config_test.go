package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg := LoadConfig(writeConfig(t, `{}`))
	if cfg.Server.Address != ":10010" {
		t.Fatalf("unexpected default address: %q", cfg.Server.Address)
	}
	if cfg.Server.ChatTimeout != time.Minute {
		t.Fatalf("unexpected default chat timeout: %v", cfg.Server.ChatTimeout)
	}
	if cfg.Providers.OpenAI.CompletionModel != "gpt-4o-mini" {
		t.Fatalf("unexpected default model: %q", cfg.Providers.OpenAI.CompletionModel)
	}
	if cfg.Providers.OpenAI.Temperature != 0.2 || cfg.Providers.OpenAI.MaxTokens != 1024 {
		t.Fatalf("unexpected model tuning defaults: %+v", cfg.Providers.OpenAI)
	}
}

func TestLoadConfigFromFile(t *testing.T) {
	cfg := LoadConfig(writeConfig(t, `{
		"general": {"jwt_secret": "file-secret"},
		"server": {"address": ":9000"},
		"storage": {"postgres": {"url": "postgres://u:p@localhost:5432/taskflow?sslmode=disable"}}
	}`))
	if cfg.General.JWTSecret != "file-secret" {
		t.Fatalf("jwt secret not read: %+v", cfg.General)
	}
	if cfg.Server.Address != ":9000" {
		t.Fatalf("address not read: %q", cfg.Server.Address)
	}
	dsn, err := cfg.Storage.Postgres.DSN()
	if err != nil {
		t.Fatalf("DSN: %v", err)
	}
	if dsn != "postgres://u:p@localhost:5432/taskflow?sslmode=disable" {
		t.Fatalf("unexpected dsn: %q", dsn)
	}
}

func TestPostgresDSNFromParts(t *testing.T) {
	p := PostgresConfig{Host: "db", User: "u", Password: "p", DBName: "taskflow"}
	dsn, err := p.DSN()
	if err != nil {
		t.Fatalf("DSN: %v", err)
	}
	if dsn != "postgres://u:p@db:5432/taskflow?sslmode=disable" {
		t.Fatalf("unexpected dsn: %q", dsn)
	}

	if _, err := (PostgresConfig{}).DSN(); err == nil {
		t.Fatal("expected error when nothing is configured")
	}
}

func TestRedisAddrDefaultsPort(t *testing.T) {
	r := RedisConfig{Host: "cache"}
	if r.Addr() != "cache:6379" {
		t.Fatalf("unexpected addr: %q", r.Addr())
	}
}

func TestOpenAIValidate(t *testing.T) {
	if err := (OpenAIConfig{}).Validate(); err == nil {
		t.Fatal("expected error without api key")
	}
	if err := (OpenAIConfig{APIKey: "sk-test"}).Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}
