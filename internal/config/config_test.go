package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadConfigMissingFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Practice.UserID != nil || cfg.Server.Addr != nil {
		t.Fatalf("expected empty config, got %+v", cfg)
	}
}

func TestLoadConfigSections(t *testing.T) {
	path := writeConfig(t, `
[practice]
user-id = "alice"
detector-url = "http://localhost:8000"
verifier = "openai"
timeout-seconds = 5

[openai]
vision-model = "gpt-4o-mini"
api-key-env = "SIGNDRILL_KEY"

[server]
addr = ":9090"
metrics = true
`)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if *cfg.Practice.UserID != "alice" || *cfg.Practice.Verifier != VerifierOpenAI || *cfg.Practice.TimeoutSeconds != 5 {
		t.Fatalf("unexpected practice config: %+v", cfg.Practice)
	}
	if *cfg.OpenAI.VisionModel != "gpt-4o-mini" || cfg.OpenAI.Model != nil {
		t.Fatalf("unexpected openai config: %+v", cfg.OpenAI)
	}
	if *cfg.Server.Addr != ":9090" || !*cfg.Server.Metrics {
		t.Fatalf("unexpected server config: %+v", cfg.Server)
	}

	t.Setenv("SIGNDRILL_KEY", "sk-test")
	if got := cfg.OpenAI.APIKey(); got != "sk-test" {
		t.Fatalf("expected key from custom env, got %q", got)
	}
}

func TestLoadConfigRejectsBadValues(t *testing.T) {
	cases := map[string]string{
		"verifier": "[practice]\nverifier = \"magic\"\n",
		"timeout":  "[practice]\ntimeout-seconds = 0\n",
		"unknown":  "[practice]\nlang = \"en\"\n",
	}
	for name, body := range cases {
		if _, err := LoadConfig(writeConfig(t, body)); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func TestDefaultPaths(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/cfg")
	t.Setenv("XDG_DATA_HOME", "/data")
	if got := DefaultConfigPath(); got != filepath.Join("/cfg", "signdrill", "config.toml") {
		t.Fatalf("config path = %q", got)
	}
	if got := DefaultDBPath(); got != filepath.Join("/data", "signdrill", "signdrill.db") {
		t.Fatalf("db path = %q", got)
	}
	if got := DefaultLogPath(); !strings.HasSuffix(got, "signdrill.log") {
		t.Fatalf("log path = %q", got)
	}
}
