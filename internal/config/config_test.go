package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Format != "text" {
		t.Errorf("Default format = %q, want %q", cfg.Format, "text")
	}
	if cfg.LogLevel != "warn" {
		t.Errorf("Default logLevel = %q, want %q", cfg.LogLevel, "warn")
	}
	if cfg.Cache.MaxBytes != 32<<20 {
		t.Errorf("Default cache.maxBytes = %d, want %d", cfg.Cache.MaxBytes, 32<<20)
	}
	if cfg.Cache.MaxEntries != 5000 {
		t.Errorf("Default cache.maxEntries = %d, want 5000", cfg.Cache.MaxEntries)
	}
	if cfg.LFM.MaxLines != 20000 {
		t.Errorf("Default lfm.maxLines = %d, want 20000", cfg.LFM.MaxLines)
	}
	if cfg.Watch.DebounceMs != 200 {
		t.Errorf("Default watch.debounceMs = %d, want 200", cfg.Watch.DebounceMs)
	}
}

func TestMergeEnv(t *testing.T) {
	t.Setenv("DIFFCORE_FORMAT", "json")
	t.Setenv("DIFFCORE_LOG_LEVEL", "debug")
	t.Setenv("DIFFCORE_CACHE_MAX_ENTRIES", "10")
	t.Setenv("DIFFCORE_LFM_MAX_LINE_LENGTH", "120")

	cfg := Default()
	if err := mergeEnv(&cfg); err != nil {
		t.Fatalf("mergeEnv error: %v", err)
	}

	if cfg.Format != "json" {
		t.Errorf("Format = %q, want %q", cfg.Format, "json")
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want %q", cfg.LogLevel, "debug")
	}
	if cfg.Cache.MaxEntries != 10 {
		t.Errorf("Cache.MaxEntries = %d, want 10", cfg.Cache.MaxEntries)
	}
	if cfg.LFM.MaxLineLength != 120 {
		t.Errorf("LFM.MaxLineLength = %d, want 120", cfg.LFM.MaxLineLength)
	}
}

func TestMergeEnv_InvalidNumber(t *testing.T) {
	t.Setenv("DIFFCORE_LFM_MAX_HUNKS", "lots")

	cfg := Default()
	if err := mergeEnv(&cfg); err == nil {
		t.Error("Expected error for invalid DIFFCORE_LFM_MAX_HUNKS")
	}
}

func TestMergeOverrides(t *testing.T) {
	cfg := Default()
	err := mergeOverrides(&cfg, map[string]string{
		"format":         "json",
		"maxDiffBytes":   "1000",
		"lfm.maxLines":   "50",
		"cache.maxBytes": "",
	})
	if err != nil {
		t.Fatalf("mergeOverrides error: %v", err)
	}
	if cfg.Format != "json" {
		t.Errorf("Format = %q, want %q", cfg.Format, "json")
	}
	if cfg.MaxDiffBytes != 1000 {
		t.Errorf("MaxDiffBytes = %d, want 1000", cfg.MaxDiffBytes)
	}
	if cfg.LFM.MaxLines != 50 {
		t.Errorf("LFM.MaxLines = %d, want 50", cfg.LFM.MaxLines)
	}
	if cfg.Cache.MaxBytes != Default().Cache.MaxBytes {
		t.Error("empty override should leave Cache.MaxBytes unchanged")
	}
}

func TestMergeOverrides_Nil(t *testing.T) {
	cfg := Default()
	if err := mergeOverrides(&cfg, nil); err != nil {
		t.Fatalf("mergeOverrides(nil) error: %v", err)
	}
	if cfg.Format != "text" {
		t.Errorf("Format = %q, want %q", cfg.Format, "text")
	}
}

func TestSetField(t *testing.T) {
	tests := []struct {
		key, value string
		check      func(Config) bool
	}{
		{"format", "json", func(c Config) bool { return c.Format == "json" }},
		{"logLevel", "error", func(c Config) bool { return c.LogLevel == "error" }},
		{"maxDiffBytes", "42", func(c Config) bool { return c.MaxDiffBytes == 42 }},
		{"cache.maxBytes", "1024", func(c Config) bool { return c.Cache.MaxBytes == 1024 }},
		{"cache.maxEntries", "7", func(c Config) bool { return c.Cache.MaxEntries == 7 }},
		{"lfm.maxPatchBytes", "99", func(c Config) bool { return c.LFM.MaxPatchBytes == 99 }},
		{"lfm.maxLines", "98", func(c Config) bool { return c.LFM.MaxLines == 98 }},
		{"lfm.maxLineLength", "97", func(c Config) bool { return c.LFM.MaxLineLength == 97 }},
		{"lfm.maxHunks", "96", func(c Config) bool { return c.LFM.MaxHunks == 96 }},
		{"watch.debounceMs", "50", func(c Config) bool { return c.Watch.DebounceMs == 50 }},
		{"redact.secrets", "on", func(c Config) bool { return c.Redact.Secrets }},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			cfg := Default()
			if err := SetField(&cfg, tt.key, tt.value); err != nil {
				t.Fatalf("SetField(%q, %q) error: %v", tt.key, tt.value, err)
			}
			if !tt.check(cfg) {
				t.Errorf("SetField(%q, %q) did not apply", tt.key, tt.value)
			}
		})
	}
}

func TestSetField_Invalid(t *testing.T) {
	tests := []struct {
		name, key, value string
	}{
		{"unknown key", "nope", "1"},
		{"non-integer", "lfm.maxLines", "many"},
		{"negative", "cache.maxEntries", "-1"},
		{"bad format", "format", "xml"},
		{"bad level", "logLevel", "loud"},
		{"bad bool", "redact.secrets", "sometimes"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			if err := SetField(&cfg, tt.key, tt.value); err == nil {
				t.Errorf("SetField(%q, %q) should fail", tt.key, tt.value)
			}
		})
	}
}

func TestMergeFile_AllFields(t *testing.T) {
	dst := Default()
	src := Config{
		Format:       "json",
		LogLevel:     "info",
		Include:      []string{"*.go"},
		Exclude:      []string{"test/**"},
		MaxDiffBytes: 1000000,
		Cache:        CacheConfig{MaxBytes: 1 << 10, MaxEntries: 9},
		Watch:        WatchConfig{DebounceMs: 75, Ignore: []string{"tmp"}},
	}
	src.LFM.MaxHunks = 3
	mergeFile(&dst, src)

	if dst.Format != "json" {
		t.Errorf("Format = %q, want %q", dst.Format, "json")
	}
	if dst.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want %q", dst.LogLevel, "info")
	}
	if len(dst.Include) != 1 || dst.Include[0] != "*.go" {
		t.Errorf("Include = %v, want [*.go]", dst.Include)
	}
	if dst.MaxDiffBytes != 1000000 {
		t.Errorf("MaxDiffBytes = %d, want 1000000", dst.MaxDiffBytes)
	}
	if dst.Cache.MaxEntries != 9 {
		t.Errorf("Cache.MaxEntries = %d, want 9", dst.Cache.MaxEntries)
	}
	if dst.LFM.MaxHunks != 3 {
		t.Errorf("LFM.MaxHunks = %d, want 3", dst.LFM.MaxHunks)
	}
	if dst.LFM.MaxLines != Default().LFM.MaxLines {
		t.Errorf("LFM.MaxLines = %d, want default", dst.LFM.MaxLines)
	}
	if dst.Watch.DebounceMs != 75 {
		t.Errorf("Watch.DebounceMs = %d, want 75", dst.Watch.DebounceMs)
	}
	if !dst.Redact.Secrets {
		t.Error("Redact.Secrets should be enabled by the file")
	}
	if len(dst.Redact.Paths) != len(Default().Redact.Paths) {
		t.Errorf("Redact.Paths = %v, want defaults", dst.Redact.Paths)
	}
}

func TestMergeFile_EmptyFile(t *testing.T) {
	dst := Default()
	mergeFile(&dst, Config{})
	if dst.Cache.MaxBytes != Default().Cache.MaxBytes {
		t.Error("empty file should keep default Cache.MaxBytes")
	}
	if dst.LFM != Default().LFM {
		t.Error("empty file should keep default LFM thresholds")
	}
}

func TestConfigDir_XDG(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg-test")
	dir, err := ConfigDir()
	if err != nil {
		t.Fatalf("ConfigDir error: %v", err)
	}
	if dir != filepath.Join("/tmp/xdg-test", "diffcore") {
		t.Errorf("ConfigDir = %q, want %q", dir, "/tmp/xdg-test/diffcore")
	}
	path, err := ConfigPath()
	if err != nil {
		t.Fatalf("ConfigPath error: %v", err)
	}
	if path != filepath.Join("/tmp/xdg-test", "diffcore", "config.json") {
		t.Errorf("ConfigPath = %q", path)
	}
}

func TestSaveAndLoadFile(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg := Default()
	cfg.Format = "json"
	cfg.LFM.MaxHunks = 12

	if err := Save(cfg); err != nil {
		t.Fatalf("Save error: %v", err)
	}

	loaded, err := LoadFile()
	if err != nil {
		t.Fatalf("LoadFile error: %v", err)
	}
	if loaded.Format != "json" {
		t.Errorf("Format = %q, want %q", loaded.Format, "json")
	}
	if loaded.LFM.MaxHunks != 12 {
		t.Errorf("LFM.MaxHunks = %d, want 12", loaded.LFM.MaxHunks)
	}
}

func TestLoadFile_NoFile(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg, err := LoadFile()
	if err != nil {
		t.Fatalf("LoadFile error: %v", err)
	}
	// Should return zero config, not defaults
	if cfg.Format != "" {
		t.Errorf("Format should be empty for missing file, got %q", cfg.Format)
	}
}

func TestLoad_Precedence(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	file := Config{Format: "json", LogLevel: "info"}
	file.LFM.MaxLines = 10
	if err := Save(file); err != nil {
		t.Fatalf("Save error: %v", err)
	}
	t.Setenv("DIFFCORE_LOG_LEVEL", "debug")

	cfg, err := Load(map[string]string{"format": "text"})
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.Format != "text" {
		t.Errorf("Format = %q, want %q (flag beats file)", cfg.Format, "text")
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want %q (env beats file)", cfg.LogLevel, "debug")
	}
	if cfg.LFM.MaxLines != 10 {
		t.Errorf("LFM.MaxLines = %d, want 10 (file beats default)", cfg.LFM.MaxLines)
	}
	if cfg.LFM.MaxHunks != Default().LFM.MaxHunks {
		t.Errorf("LFM.MaxHunks = %d, want default", cfg.LFM.MaxHunks)
	}
}

func TestParseLogLevel(t *testing.T) {
	for _, s := range []string{"debug", "info", "warn", "error", "WARN", ""} {
		if _, err := ParseLogLevel(s); err != nil {
			t.Errorf("ParseLogLevel(%q) error: %v", s, err)
		}
	}
	if _, err := ParseLogLevel("trace"); err == nil {
		t.Error("ParseLogLevel(trace) should fail")
	}
}

func writeConfigFile(t *testing.T, content string) {
	t.Helper()
	path, err := ConfigPath()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestLoad_FileZeroCeilingDisables(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	writeConfigFile(t, `{"format": "json", "lfm": {"maxHunks": 0, "maxLines": 50}}`)

	cfg, err := Load(nil)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.LFM.MaxHunks != 0 {
		t.Errorf("LFM.MaxHunks = %d, want 0 (disabled by the file)", cfg.LFM.MaxHunks)
	}
	if cfg.LFM.MaxLines != 50 {
		t.Errorf("LFM.MaxLines = %d, want 50", cfg.LFM.MaxLines)
	}
	if cfg.LFM.MaxLineLength != Default().LFM.MaxLineLength {
		t.Errorf("LFM.MaxLineLength = %d, want default", cfg.LFM.MaxLineLength)
	}
	if cfg.Format != "json" {
		t.Errorf("Format = %q, want %q", cfg.Format, "json")
	}
}

func TestLoadFileOnDefaults_NoFile(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg, err := LoadFileOnDefaults()
	if err != nil {
		t.Fatalf("LoadFileOnDefaults error: %v", err)
	}
	if cfg.LFM != Default().LFM || cfg.Format != "text" {
		t.Errorf("LoadFileOnDefaults() = %+v, want defaults", cfg)
	}
}

func TestLoadFileOnDefaults_BadJSON(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	writeConfigFile(t, `{"lfm": {"maxHunks": "many"}}`)

	if _, err := LoadFileOnDefaults(); err == nil {
		t.Error("expected error for invalid lfm value")
	}
}
