// Package config loads and merges diffcore configuration from multiple sources,
// and holds the persisted diff viewing preferences.
//
// Precedence (highest to lowest):
//  1. CLI flags
//  2. Environment variables (DIFFCORE_FORMAT, DIFFCORE_LFM_MAX_LINES, etc.)
//  3. Config file ($XDG_CONFIG_HOME/diffcore/config.json)
//  4. Built-in defaults
//
// Use [Load] to obtain a merged [Config] and [SetField] to update a single key.
//
// [Prefs] is separate from Config: it is loaded once from a key-value [Store]
// where it lives as one JSON record under [PrefsKey], changed through its
// setters, and written back on every change. Its per-path Large File Mode
// overrides take precedence over the computed threshold decision.
package config
