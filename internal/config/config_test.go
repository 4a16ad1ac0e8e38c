package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func validConfig() Config {
	cfg := Config{
		HTTP:    HTTPConfig{Port: 8080},
		Storage: StorageConfig{InMemory: true},
	}
	cfg.ApplyDefaults()
	return cfg
}

func TestApplyDefaults(t *testing.T) {
	var cfg Config
	cfg.ApplyDefaults()

	if cfg.Storage.Sync == nil || !*cfg.Storage.Sync {
		t.Error("storage.sync should default to true")
	}
	if cfg.Storage.BlockCacheMB != 64 {
		t.Errorf("block_cache_mb = %d", cfg.Storage.BlockCacheMB)
	}
	if cfg.Search.KeyPrefix != "zelastic:" {
		t.Errorf("key_prefix = %q", cfg.Search.KeyPrefix)
	}
	if cfg.Search.BulkSize != 400 || cfg.Search.PageSize != 1000 || cfg.Search.MaxHits != 10000 {
		t.Errorf("search defaults = %+v", cfg.Search)
	}
	if !cfg.Search.Embedded() {
		t.Error("no addrs should mean embedded engine")
	}
}

func TestApplyDefaults_KeepsExplicitSyncFalse(t *testing.T) {
	off := false
	cfg := Config{Storage: StorageConfig{Sync: &off}}
	cfg.ApplyDefaults()
	if *cfg.Storage.Sync {
		t.Error("explicit sync=false was overwritten")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"bad port", func(c *Config) { c.HTTP.Port = 0 }, "http.port"},
		{"no storage", func(c *Config) { c.Storage.InMemory = false }, "storage.path"},
		{"path ok", func(c *Config) { c.Storage.InMemory = false; c.Storage.Path = "/tmp/z" }, ""},
		{"bad prefix", func(c *Config) { c.Search.KeyPrefix = "no colon" }, "search.key_prefix"},
		{"negative db", func(c *Config) { c.Search.DB = -1 }, "search.db"},
		{"page over max", func(c *Config) { c.Search.PageSize = 20000 }, "search.page_size"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("ZELASTIC_TEST_ADDR", "redis:6379")

	in := []byte("a: ${ZELASTIC_TEST_ADDR}\nb: ${ZELASTIC_TEST_MISSING:-fallback}\nc: ${ZELASTIC_TEST_MISSING}")
	got := string(expandEnvVars(in))
	want := "a: redis:6379\nb: fallback\nc: "
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestLoad_FromConfigDir(t *testing.T) {
	dir := t.TempDir()
	if err := os.Mkdir(filepath.Join(dir, "config"), 0o755); err != nil {
		t.Fatal(err)
	}
	yaml := `
http:
  port: 9090
storage:
  in_memory: true
search:
  addrs: ["${ZELASTIC_TEST_REDIS:-localhost:6379}"]
  bulk: true
`
	if err := os.WriteFile(filepath.Join(dir, "config", "unit.yaml"), []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Chdir(dir)

	cfg, err := Load("unit")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTP.Port != 9090 || !cfg.Storage.InMemory {
		t.Errorf("cfg = %+v", cfg)
	}
	if len(cfg.Search.Addrs) != 1 || cfg.Search.Addrs[0] != "localhost:6379" {
		t.Errorf("addrs = %v", cfg.Search.Addrs)
	}
	if !cfg.Search.Bulk || cfg.Search.BulkSize != 400 {
		t.Errorf("search = %+v", cfg.Search)
	}
}
