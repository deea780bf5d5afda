package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"orgcal/internal/config"
)

func TestLoadCreatesDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Listen != "127.0.0.1:8080" || cfg.Mode != "plan" {
		t.Errorf("cfg = %+v", cfg)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("config not written: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("perm = %o, want 600", perm)
	}
}

func TestLoadNormalizes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `sources:
  - ~/org/work.org
  - ~/org/journal
after_days: 14
mode: CLOCK
todo_keywords: [TODO, NEXT, DONE]
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(cfg.Sources) != 2 || cfg.AfterDays != 14 || cfg.BeforeDays != 0 {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.Mode != "clock" {
		t.Errorf("mode = %q, want clock", cfg.Mode)
	}
	if len(cfg.TodoKeywords) != 3 || cfg.TodoKeywords[1] != "NEXT" {
		t.Errorf("todo keywords = %v", cfg.TodoKeywords)
	}
	if cfg.RefreshCron == "" || cfg.Listen == "" {
		t.Errorf("defaults not filled: %+v", cfg)
	}
}

func TestLoadRejectsBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("sources: [unclosed"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := config.Load(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg := config.DefaultConfig()
	cfg.Sources = []string{"a.org"}
	cfg.BasicAuth = &config.BasicAuthConfig{Username: "u", Password: "p"}
	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(got.Sources) != 1 || got.BasicAuth == nil || got.BasicAuth.Password != "p" {
		t.Errorf("got %+v", got)
	}
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"ORGCAL_LISTEN":              ":9000",
		"ORGCAL_AFTER_DAYS":          "3",
		"ORGCAL_SOURCES":             "a.org" + string(os.PathListSeparator) + "notes",
		"ORGCAL_TODO_KEYWORDS":       "TODO, WAIT,DONE",
		"ORGCAL_KEEP_GOING":          "true",
		"ORGCAL_BASIC_AUTH_PASSWORD": "secret",
	}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}
	cfg := config.DefaultConfig()
	if err := cfg.ApplyEnv(lookup); err != nil {
		t.Fatalf("ApplyEnv: %v", err)
	}
	if cfg.Listen != ":9000" || cfg.AfterDays != 3 || !cfg.KeepGoing {
		t.Errorf("cfg = %+v", cfg)
	}
	if len(cfg.Sources) != 2 || cfg.Sources[1] != "notes" {
		t.Errorf("sources = %v", cfg.Sources)
	}
	if len(cfg.TodoKeywords) != 3 || cfg.TodoKeywords[1] != "WAIT" {
		t.Errorf("todo keywords = %v", cfg.TodoKeywords)
	}
	if cfg.BasicAuth == nil || cfg.BasicAuth.Password != "secret" {
		t.Errorf("basic auth = %+v", cfg.BasicAuth)
	}

	env["ORGCAL_BEFORE_DAYS"] = "many"
	if err := cfg.ApplyEnv(lookup); err == nil {
		t.Error("expected error for non-numeric ORGCAL_BEFORE_DAYS")
	}
}

func TestLoadDotEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	if err := os.WriteFile(path, []byte("ORGCAL_TEST_DOTENV=loaded\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("ORGCAL_TEST_DOTENV", "")
	os.Unsetenv("ORGCAL_TEST_DOTENV")
	if err := config.LoadDotEnv(path, filepath.Join(t.TempDir(), "missing.env")); err != nil {
		t.Fatalf("LoadDotEnv: %v", err)
	}
	if got := os.Getenv("ORGCAL_TEST_DOTENV"); got != "loaded" {
		t.Errorf("ORGCAL_TEST_DOTENV = %q", got)
	}
}
