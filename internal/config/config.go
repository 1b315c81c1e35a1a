package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"

	"github.com/dshills/diffcore/internal/preflight"
)

// Config represents the diffcore configuration.
type Config struct {
	Format       string               `json:"format"`
	LogLevel     string               `json:"logLevel"`
	Include      []string             `json:"include"`
	Exclude      []string             `json:"exclude"`
	MaxDiffBytes int                  `json:"maxDiffBytes"`
	Cache        CacheConfig          `json:"cache"`
	LFM          preflight.Thresholds `json:"lfm"`
	Watch        WatchConfig          `json:"watch"`
	Redact       RedactConfig         `json:"redact"`
}

// CacheConfig bounds the in-memory hunk cache.
type CacheConfig struct {
	MaxBytes   int64 `json:"maxBytes"`
	MaxEntries int   `json:"maxEntries"`
}

// WatchConfig controls watch mode.
type WatchConfig struct {
	DebounceMs int      `json:"debounceMs"`
	Ignore     []string `json:"ignore,omitempty"`
}

// RedactConfig controls secret masking in rendered hunks.
type RedactConfig struct {
	Secrets bool     `json:"secrets"`
	Paths   []string `json:"paths,omitempty"` // files whose content is hidden entirely
}

// Default returns a Config with all defaults applied.
func Default() Config {
	return Config{
		Format:       "text",
		LogLevel:     "warn",
		Include:      []string{"**/*"},
		Exclude:      []string{"vendor/**", "**/*.gen.go", "**/dist/**"},
		MaxDiffBytes: 0,
		Cache: CacheConfig{
			MaxBytes:   32 << 20,
			MaxEntries: 5000,
		},
		LFM: preflight.DefaultThresholds(),
		Watch: WatchConfig{
			DebounceMs: 200,
			Ignore:     []string{".git", "node_modules"},
		},
		Redact: RedactConfig{
			Paths: []string{"**/.env", "**/*.pem", "**/*secrets*"},
		},
	}
}

// ConfigDir returns the platform-appropriate config directory for diffcore.
func ConfigDir() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "diffcore"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "diffcore"), nil
	case "windows":
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, "diffcore"), nil
		}
		return filepath.Join(home, "AppData", "Roaming", "diffcore"), nil
	default:
		return filepath.Join(home, ".config", "diffcore"), nil
	}
}

// ConfigPath returns the full path to the config file.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// LoadFile loads config from the config file. Returns zero Config and nil error if file doesn't exist.
func LoadFile() (Config, error) {
	data, err := readFile()
	if err != nil || data == nil {
		return Config{}, err
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config file: %w", err)
	}
	return cfg, nil
}

// LoadFileOnDefaults returns the defaults with the config file applied.
// LFM ceilings written in the file apply even when zero, which disables
// that dimension.
func LoadFileOnDefaults() (Config, error) {
	cfg := Default()
	data, err := readFile()
	if err != nil {
		return Config{}, err
	}
	if data == nil {
		return cfg, nil
	}
	var fileCfg Config
	if err := json.Unmarshal(data, &fileCfg); err != nil {
		return Config{}, fmt.Errorf("parsing config file: %w", err)
	}
	mergeFile(&cfg, fileCfg)

	var raw struct {
		LFM json.RawMessage `json:"lfm"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return Config{}, fmt.Errorf("parsing config file: %w", err)
	}
	if len(raw.LFM) > 0 {
		// Only keys present in the file overwrite the defaults.
		if err := json.Unmarshal(raw.LFM, &cfg.LFM); err != nil {
			return Config{}, fmt.Errorf("parsing config file lfm: %w", err)
		}
	}
	return cfg, nil
}

// readFile returns the config file contents, or nil if there is no file.
func readFile() ([]byte, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	return data, nil
}

// Save writes the config to the config file.
func Save(cfg Config) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// Load builds the effective config by merging: defaults <- file <- env <- overrides.
// The overrides map comes from CLI flags (only non-zero values should be set).
func Load(overrides map[string]string) (Config, error) {
	cfg, err := LoadFileOnDefaults()
	if err != nil {
		return Config{}, err
	}
	if err := mergeEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := mergeOverrides(&cfg, overrides); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func mergeFile(dst *Config, src Config) {
	if src.Format != "" {
		dst.Format = src.Format
	}
	if src.LogLevel != "" {
		dst.LogLevel = src.LogLevel
	}
	if len(src.Include) > 0 {
		dst.Include = src.Include
	}
	if len(src.Exclude) > 0 {
		dst.Exclude = src.Exclude
	}
	if src.MaxDiffBytes > 0 {
		dst.MaxDiffBytes = src.MaxDiffBytes
	}
	if src.Cache.MaxBytes > 0 {
		dst.Cache.MaxBytes = src.Cache.MaxBytes
	}
	if src.Cache.MaxEntries > 0 {
		dst.Cache.MaxEntries = src.Cache.MaxEntries
	}
	if src.LFM.MaxPatchBytes > 0 {
		dst.LFM.MaxPatchBytes = src.LFM.MaxPatchBytes
	}
	if src.LFM.MaxLines > 0 {
		dst.LFM.MaxLines = src.LFM.MaxLines
	}
	if src.LFM.MaxLineLength > 0 {
		dst.LFM.MaxLineLength = src.LFM.MaxLineLength
	}
	if src.LFM.MaxHunks > 0 {
		dst.LFM.MaxHunks = src.LFM.MaxHunks
	}
	if src.Watch.DebounceMs > 0 {
		dst.Watch.DebounceMs = src.Watch.DebounceMs
	}
	if len(src.Watch.Ignore) > 0 {
		dst.Watch.Ignore = src.Watch.Ignore
	}
	if src.Redact.Secrets {
		dst.Redact.Secrets = true
	}
	if len(src.Redact.Paths) > 0 {
		dst.Redact.Paths = src.Redact.Paths
	}
}

// envKeys maps environment variables to SetField keys.
var envKeys = []struct{ env, key string }{
	{"DIFFCORE_FORMAT", "format"},
	{"DIFFCORE_LOG_LEVEL", "logLevel"},
	{"DIFFCORE_MAX_DIFF_BYTES", "maxDiffBytes"},
	{"DIFFCORE_CACHE_MAX_BYTES", "cache.maxBytes"},
	{"DIFFCORE_CACHE_MAX_ENTRIES", "cache.maxEntries"},
	{"DIFFCORE_LFM_MAX_PATCH_BYTES", "lfm.maxPatchBytes"},
	{"DIFFCORE_LFM_MAX_LINES", "lfm.maxLines"},
	{"DIFFCORE_LFM_MAX_LINE_LENGTH", "lfm.maxLineLength"},
	{"DIFFCORE_LFM_MAX_HUNKS", "lfm.maxHunks"},
	{"DIFFCORE_REDACT_SECRETS", "redact.secrets"},
}

func mergeEnv(cfg *Config) error {
	for _, e := range envKeys {
		v := os.Getenv(e.env)
		if v == "" {
			continue
		}
		if err := SetField(cfg, e.key, v); err != nil {
			return fmt.Errorf("%s: %w", e.env, err)
		}
	}
	return nil
}

func mergeOverrides(cfg *Config, overrides map[string]string) error {
	for k, v := range overrides {
		if v == "" {
			continue
		}
		if err := SetField(cfg, k, v); err != nil {
			return err
		}
	}
	return nil
}

// SetField sets a single config field by key name. Returns error if key is unknown.
func SetField(cfg *Config, key, value string) error {
	switch key {
	case "format":
		if value != "text" && value != "json" {
			return fmt.Errorf("format must be text or json, got %q", value)
		}
		cfg.Format = value
	case "logLevel":
		if _, err := ParseLogLevel(value); err != nil {
			return err
		}
		cfg.LogLevel = value
	case "maxDiffBytes":
		return setInt(&cfg.MaxDiffBytes, key, value)
	case "cache.maxBytes":
		return setInt64(&cfg.Cache.MaxBytes, key, value)
	case "cache.maxEntries":
		return setInt(&cfg.Cache.MaxEntries, key, value)
	case "lfm.maxPatchBytes":
		return setInt64(&cfg.LFM.MaxPatchBytes, key, value)
	case "lfm.maxLines":
		return setInt(&cfg.LFM.MaxLines, key, value)
	case "lfm.maxLineLength":
		return setInt(&cfg.LFM.MaxLineLength, key, value)
	case "lfm.maxHunks":
		return setInt(&cfg.LFM.MaxHunks, key, value)
	case "watch.debounceMs":
		return setInt(&cfg.Watch.DebounceMs, key, value)
	case "redact.secrets":
		on, err := parseBool(value)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		cfg.Redact.Secrets = on
	default:
		return fmt.Errorf("unknown config key: %s", key)
	}
	return nil
}

func setInt(dst *int, key, value string) error {
	n, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("%s must be an integer: %w", key, err)
	}
	if n < 0 {
		return fmt.Errorf("%s must not be negative", key)
	}
	*dst = n
	return nil
}

func setInt64(dst *int64, key, value string) error {
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return fmt.Errorf("%s must be an integer: %w", key, err)
	}
	if n < 0 {
		return fmt.Errorf("%s must not be negative", key)
	}
	*dst = n
	return nil
}
