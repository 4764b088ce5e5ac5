package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestFindConfig_Explicit(t *testing.T) {
	// Create a temp config file
	dir := t.TempDir()
	path := filepath.Join(dir, "test.yaml")
	os.WriteFile(path, []byte("listen:\n  port: 9999\n"), 0600)

	got, err := FindConfig(path)
	if err != nil {
		t.Fatalf("FindConfig(%q) error: %v", path, err)
	}
	if got != path {
		t.Errorf("FindConfig(%q) = %q, want %q", path, got, path)
	}
}

func TestFindConfig_ExplicitMissing(t *testing.T) {
	_, err := FindConfig("/nonexistent/config.yaml")
	if err == nil {
		t.Fatal("FindConfig with missing explicit path should error")
	}
}

func TestFindConfig_CWD(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	os.WriteFile(path, []byte("listen:\n  port: 8080\n"), 0600)

	orig, _ := os.Getwd()
	os.Chdir(dir)
	defer os.Chdir(orig)

	got, err := FindConfig("")
	if err != nil {
		t.Fatalf("FindConfig(\"\") error: %v", err)
	}
	if got != "config.yaml" {
		t.Errorf("FindConfig(\"\") = %q, want %q", got, "config.yaml")
	}
}

func TestLoad_ExpandsEnvVars(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	os.WriteFile(path, []byte("smartthings:\n  token: ${REEVE_TEST_TOKEN}\n"), 0600)
	os.Setenv("REEVE_TEST_TOKEN", "secret123")
	defer os.Unsetenv("REEVE_TEST_TOKEN")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.SmartThings.Token != "secret123" {
		t.Errorf("token = %q, want %q", cfg.SmartThings.Token, "secret123")
	}
}

func TestLoad_EnvOverlay(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	os.WriteFile(path, []byte("smartthings:\n  token: from-file\n"), 0600)
	os.Setenv("REEVE_SMARTTHINGS_TOKEN", "from-env")
	defer os.Unsetenv("REEVE_SMARTTHINGS_TOKEN")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.SmartThings.Token != "from-env" {
		t.Errorf("token = %q, want env overlay %q", cfg.SmartThings.Token, "from-env")
	}
}

func TestLoad_Defaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	os.WriteFile(path, []byte("smartthings:\n  token: tok\n"), 0600)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.SmartThings.BaseURL != "https://api.smartthings.com/v1" {
		t.Errorf("base_url = %q, want default", cfg.SmartThings.BaseURL)
	}
	if cfg.Listen.Port != 8080 {
		t.Errorf("listen.port = %d, want 8080", cfg.Listen.Port)
	}
	if got := cfg.SmartThings.PollInterval(); got.Seconds() != 60 {
		t.Errorf("poll interval = %v, want 60s", got)
	}
}

func TestValidate_MissingToken(t *testing.T) {
	cfg := Default()
	cfg.SmartThings.Token = ""

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Validate should reject an empty device cloud token")
	}
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("error type = %T, want *ValidationError", err)
	}
	if verr.Field != "smartthings.token" {
		t.Errorf("field = %q, want smartthings.token", verr.Field)
	}
}

func TestValidate_HomeAssistantRequiresCredentials(t *testing.T) {
	cfg := Default()
	cfg.SmartThings.Token = "tok"
	cfg.HomeAssistant.Enabled = true
	cfg.HomeAssistant.URL = "http://ha.local:8123"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Validate should reject enabled homeassistant without a token")
	}
}

func TestValidate_BadLogLevel(t *testing.T) {
	cfg := Default()
	cfg.SmartThings.Token = "tok"
	cfg.LogLevel = "loud"

	if err := cfg.Validate(); err == nil {
		t.Fatal("Validate should reject an unknown log level")
	}
}

func TestValidate_OK(t *testing.T) {
	cfg := Default()
	cfg.SmartThings.Token = "tok"

	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate error: %v", err)
	}
}
