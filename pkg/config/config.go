// Package config loads imgstack settings from a TOML file and the
// environment.
//
// The file lives at $XDG_CONFIG_HOME/imgstack/config.toml (falling back to
// ~/.config/imgstack/config.toml). A missing file yields [Default]. Selected
// keys can be overridden with IMGSTACK_* environment variables, and command
// line flags override both.
//
// # Example
//
//	[compose]
//	policy = "widest"
//	background = "#ffffff"
//
//	[export]
//	filename = "strip"
//	format = "png"
//
//	[cache]
//	backend = "redis"
//	redis_addr = "localhost:6379"
package config

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/imgstack/pkg/compositor"
	errs "github.com/matzehuels/imgstack/pkg/errors"
	"github.com/matzehuels/imgstack/pkg/export"
)

const (
	appName  = "imgstack"
	fileName = "config.toml"
)

// Cache backends.
const (
	BackendFile  = "file"
	BackendRedis = "redis"
	BackendNone  = "none"
)

// Environment overrides.
const (
	EnvCacheBackend = "IMGSTACK_CACHE_BACKEND"
	EnvRedisAddr    = "IMGSTACK_REDIS_ADDR"
	EnvAddr         = "IMGSTACK_ADDR"
)

// Config is the complete imgstack configuration.
type Config struct {
	Compose ComposeConfig `toml:"compose"`
	Export  ExportConfig  `toml:"export"`
	Cache   CacheConfig   `toml:"cache"`
	Fetch   FetchConfig   `toml:"fetch"`
	Server  ServerConfig  `toml:"server"`
}

// ComposeConfig holds compositor settings.
type ComposeConfig struct {
	Policy       string `toml:"policy"`
	Interpolator string `toml:"interpolator"`
	Background   string `toml:"background"`
}

// ExportConfig holds output settings.
type ExportConfig struct {
	Filename string `toml:"filename"`
	Format   string `toml:"format"`
	Quality  int    `toml:"quality"`
	Dir      string `toml:"dir"`
}

// CacheConfig selects and configures the byte cache.
type CacheConfig struct {
	Backend   string   `toml:"backend"`
	Dir       string   `toml:"dir,omitempty"`
	TTL       Duration `toml:"ttl"`
	RedisAddr string   `toml:"redis_addr"`
	RedisDB   int      `toml:"redis_db"`
}

// FetchConfig bounds URL downloads.
type FetchConfig struct {
	Timeout  Duration `toml:"timeout"`
	MaxBytes int64    `toml:"max_bytes"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Addr        string   `toml:"addr"`
	SessionTTL  Duration `toml:"session_ttl"`
	MaxUploadMB int64    `toml:"max_upload_mb"`
	Breakpoint  int      `toml:"breakpoint"`
}

// Duration is a time.Duration written as a Go duration string ("30m").
type Duration struct {
	time.Duration
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(strings.TrimSpace(string(b)))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Compose: ComposeConfig{
			Policy:       compositor.FitToNarrowest.String(),
			Interpolator: compositor.DefaultInterpolator,
		},
		Export: ExportConfig{
			Filename: export.DefaultName,
			Format:   string(export.JPEG),
			Quality:  export.DefaultQuality,
			Dir:      ".",
		},
		Cache: CacheConfig{
			Backend:   BackendFile,
			TTL:       Duration{24 * time.Hour},
			RedisAddr: "localhost:6379",
		},
		Fetch: FetchConfig{
			Timeout:  Duration{30 * time.Second},
			MaxBytes: 64 << 20,
		},
		Server: ServerConfig{
			Addr:        ":8080",
			SessionTTL:  Duration{30 * time.Minute},
			MaxUploadMB: 100,
			Breakpoint:  600,
		},
	}
}

// Path returns the config file location using the XDG standard.
func Path() (string, error) {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, appName, fileName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", appName, fileName), nil
}

// Load reads the config at path on top of [Default]. A missing file is not
// an error. Environment overrides are applied and the result validated.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
	case err != nil:
		return cfg, fmt.Errorf("read config: %w", err)
	default:
		if cfg, err = Parse(data); err != nil {
			return cfg, fmt.Errorf("%s: %w", path, err)
		}
	}
	cfg.ApplyEnv(os.Getenv)
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes TOML on top of [Default]. Unknown keys are rejected.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	md, err := toml.Decode(string(data), &cfg)
	if err != nil {
		return cfg, errs.Wrap(errs.ErrCodeInvalidInput, err, "parse config")
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return cfg, errs.New(errs.ErrCodeInvalidInput, "unknown config keys: %s", strings.Join(keys, ", "))
	}
	return cfg, nil
}

// ApplyEnv overrides selected keys from the environment.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if v := getenv(EnvCacheBackend); v != "" {
		c.Cache.Backend = strings.ToLower(v)
	}
	if v := getenv(EnvRedisAddr); v != "" {
		c.Cache.RedisAddr = v
	}
	if v := getenv(EnvAddr); v != "" {
		c.Server.Addr = v
	}
}

// Validate checks every value that has a closed set of options or a range.
func (c Config) Validate() error {
	if _, err := compositor.ParsePolicy(c.Compose.Policy); err != nil {
		return err
	}
	if _, err := compositor.ParseInterpolator(c.Compose.Interpolator); err != nil {
		return err
	}
	if _, err := compositor.ParseBackground(c.Compose.Background); err != nil {
		return err
	}
	if _, err := export.ParseFormat(c.Export.Format); err != nil {
		return err
	}
	if q := c.Export.Quality; q < 1 || q > 100 {
		return errs.New(errs.ErrCodeInvalidInput, "export.quality %d out of range [1, 100]", q)
	}
	if err := errs.ValidateFilename(c.Export.Filename); err != nil {
		return err
	}
	switch c.Cache.Backend {
	case BackendFile, BackendRedis, BackendNone:
	default:
		return errs.New(errs.ErrCodeInvalidInput, "unknown cache backend %q (want file, redis or none)", c.Cache.Backend)
	}
	if c.Fetch.MaxBytes <= 0 {
		return errs.New(errs.ErrCodeInvalidInput, "fetch.max_bytes must be positive")
	}
	if c.Server.MaxUploadMB <= 0 {
		return errs.New(errs.ErrCodeInvalidInput, "server.max_upload_mb must be positive")
	}
	if c.Server.Breakpoint <= 0 {
		return errs.New(errs.ErrCodeInvalidInput, "server.breakpoint must be positive")
	}
	return nil
}

// Encode writes c as TOML.
func (c Config) Encode(w io.Writer) error {
	return toml.NewEncoder(w).Encode(c)
}

// Write saves c to path, creating parent directories. An existing file is
// only replaced when overwrite is set.
func (c Config) Write(path string, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return errs.New(errs.ErrCodeInvalidInput, "%s already exists", path)
		}
	}
	var buf bytes.Buffer
	if err := c.Encode(&buf); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}
