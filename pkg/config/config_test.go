package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	errs "github.com/matzehuels/imgstack/pkg/errors"
)

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("Default().Validate() = %v", err)
	}
}

func TestParse(t *testing.T) {
	cfg, err := Parse([]byte(`
[compose]
policy = "widest"
background = "#ffffff"

[export]
format = "png"

[cache]
backend = "redis"
ttl = "2h"

[server]
session_ttl = "45m"
breakpoint = 800
`))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Compose.Policy != "widest" || cfg.Compose.Background != "#ffffff" {
		t.Errorf("compose = %+v", cfg.Compose)
	}
	if cfg.Export.Format != "png" {
		t.Errorf("format = %q", cfg.Export.Format)
	}
	// untouched keys keep their defaults
	if cfg.Export.Quality != 92 || cfg.Export.Filename != "joinedimage" {
		t.Errorf("export defaults lost: %+v", cfg.Export)
	}
	if cfg.Cache.TTL.Duration != 2*time.Hour {
		t.Errorf("cache ttl = %v", cfg.Cache.TTL)
	}
	if cfg.Server.SessionTTL.Duration != 45*time.Minute || cfg.Server.Breakpoint != 800 {
		t.Errorf("server = %+v", cfg.Server)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"syntax", "[compose\npolicy = 1"},
		{"unknown key", "[compose]\nshape = \"round\""},
		{"bad duration", "[server]\nsession_ttl = \"soon\""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse([]byte(tt.data)); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		code   errs.Code
	}{
		{"policy", func(c *Config) { c.Compose.Policy = "tallest" }, errs.ErrCodeInvalidPolicy},
		{"format", func(c *Config) { c.Export.Format = "bmp" }, errs.ErrCodeInvalidFormat},
		{"quality", func(c *Config) { c.Export.Quality = 0 }, errs.ErrCodeInvalidInput},
		{"filename", func(c *Config) { c.Export.Filename = "a/b" }, errs.ErrCodeInvalidInput},
		{"backend", func(c *Config) { c.Cache.Backend = "memcached" }, errs.ErrCodeInvalidInput},
		{"background", func(c *Config) { c.Compose.Background = "#12" }, errs.ErrCodeInvalidInput},
		{"breakpoint", func(c *Config) { c.Server.Breakpoint = 0 }, errs.ErrCodeInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			if err := cfg.Validate(); !errs.Is(err, tt.code) {
				t.Errorf("Validate() = %v, want %s", err, tt.code)
			}
		})
	}
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		EnvCacheBackend: "REDIS",
		EnvRedisAddr:    "cache:6380",
		EnvAddr:         ":9000",
	}
	cfg := Default()
	cfg.ApplyEnv(func(k string) string { return env[k] })
	if cfg.Cache.Backend != BackendRedis || cfg.Cache.RedisAddr != "cache:6380" || cfg.Server.Addr != ":9000" {
		t.Errorf("env not applied: cache %+v, server %+v", cfg.Cache, cfg.Server)
	}

	cfg = Default()
	cfg.ApplyEnv(func(string) string { return "" })
	if cfg.Cache.Backend != BackendFile {
		t.Error("empty env must not override")
	}
}

func TestLoadMissingFile(t *testing.T) {
	t.Setenv(EnvCacheBackend, "")
	t.Setenv(EnvAddr, "")
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Addr != Default().Server.Addr {
		t.Errorf("missing file should give defaults, got %+v", cfg.Server)
	}
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[cache]\nbackend = \"file\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv(EnvCacheBackend, "none")
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Cache.Backend != BackendNone {
		t.Errorf("backend = %q, want none", cfg.Cache.Backend)
	}
}

func TestWriteAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.toml")
	cfg := Default()
	cfg.Compose.Policy = "widest"
	cfg.Server.SessionTTL = Duration{time.Hour}
	if err := cfg.Write(path, false); err != nil {
		t.Fatal(err)
	}
	if err := cfg.Write(path, false); err == nil {
		t.Error("second Write without overwrite should fail")
	}
	if err := cfg.Write(path, true); err != nil {
		t.Errorf("overwrite: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	got, err := Parse(data)
	if err != nil {
		t.Fatal(err)
	}
	if got.Compose.Policy != "widest" || got.Server.SessionTTL.Duration != time.Hour {
		t.Errorf("reloaded config differs: %+v", got)
	}
}

func TestEncodeUsesDurationStrings(t *testing.T) {
	var buf bytes.Buffer
	if err := Default().Encode(&buf); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), `session_ttl = "30m0s"`) {
		t.Errorf("encoded config missing duration string:\n%s", buf.String())
	}
}

func TestPath(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg")
	p, err := Path()
	if err != nil {
		t.Fatal(err)
	}
	if p != filepath.Join("/tmp/xdg", "imgstack", "config.toml") {
		t.Errorf("Path() = %q", p)
	}
}
