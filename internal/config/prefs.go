package config

import (
	"encoding/json"
	"fmt"
	"maps"
	"sync"
)

// PrefsKey is the store key the preferences record is saved under.
const PrefsKey = "diffcore.preferences"

// Preferences are the user's diff viewing preferences.
type Preferences struct {
	DefaultContextLines    int             `json:"defaultContextLines"`
	EnableWordDiffOnDemand bool            `json:"enableWordDiffOnDemand"`
	LFMOverride            map[string]bool `json:"lfmOverride"`
}

// DefaultPreferences returns the preferences used when nothing is stored.
func DefaultPreferences() Preferences {
	return Preferences{
		DefaultContextLines:    3,
		EnableWordDiffOnDemand: true,
		LFMOverride:            map[string]bool{},
	}
}

// Prefs is the process-wide preferences handle. It is loaded once, changed
// only through its setters, and every change is written back to the store.
// It is safe for concurrent use.
type Prefs struct {
	mu    sync.RWMutex
	store Store
	p     Preferences
}

// LoadPrefs reads the preferences record from store, falling back to
// DefaultPreferences when none is stored.
func LoadPrefs(store Store) (*Prefs, error) {
	p := DefaultPreferences()
	data, ok, err := store.Get(PrefsKey)
	if err != nil {
		return nil, fmt.Errorf("loading preferences: %w", err)
	}
	if ok {
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("parsing preferences: %w", err)
		}
		if p.LFMOverride == nil {
			p.LFMOverride = map[string]bool{}
		}
		if p.DefaultContextLines < 0 {
			p.DefaultContextLines = DefaultPreferences().DefaultContextLines
		}
	}
	return &Prefs{store: store, p: p}, nil
}

// ContextLines returns the default number of context lines.
func (p *Prefs) ContextLines() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.p.DefaultContextLines
}

// WordDiffOnDemand reports whether word diffs may be requested per hunk.
func (p *Prefs) WordDiffOnDemand() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.p.EnableWordDiffOnDemand
}

// LFMOverride returns the explicit Large File Mode setting for path, if any.
// It satisfies preflight.OverrideLookup.
func (p *Prefs) LFMOverride(path string) (bool, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	v, ok := p.p.LFMOverride[path]
	return v, ok
}

// Snapshot returns a copy of the current preferences.
func (p *Prefs) Snapshot() Preferences {
	p.mu.RLock()
	defer p.mu.RUnlock()
	s := p.p
	s.LFMOverride = maps.Clone(p.p.LFMOverride)
	return s
}

// SetDefaultContextLines sets and persists the default context line count.
func (p *Prefs) SetDefaultContextLines(n int) error {
	if n < 0 {
		return fmt.Errorf("context lines must not be negative, got %d", n)
	}
	return p.update(func(pr *Preferences) { pr.DefaultContextLines = n })
}

// SetEnableWordDiffOnDemand sets and persists the word diff preference.
func (p *Prefs) SetEnableWordDiffOnDemand(on bool) error {
	return p.update(func(pr *Preferences) { pr.EnableWordDiffOnDemand = on })
}

// SetLFMOverride forces Large File Mode on or off for path and persists it.
func (p *Prefs) SetLFMOverride(path string, on bool) error {
	if path == "" {
		return fmt.Errorf("override path must not be empty")
	}
	return p.update(func(pr *Preferences) { pr.LFMOverride[path] = on })
}

// ClearLFMOverride removes the override for path and persists the change.
func (p *Prefs) ClearLFMOverride(path string) error {
	return p.update(func(pr *Preferences) { delete(pr.LFMOverride, path) })
}

// update applies fn to a copy, persists it, and only then makes it current,
// so a failed write leaves the in-memory state unchanged.
func (p *Prefs) update(fn func(*Preferences)) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	next := p.p
	next.LFMOverride = maps.Clone(p.p.LFMOverride)
	fn(&next)
	data, err := json.Marshal(next)
	if err != nil {
		return fmt.Errorf("marshaling preferences: %w", err)
	}
	if err := p.store.Set(PrefsKey, data); err != nil {
		return fmt.Errorf("saving preferences: %w", err)
	}
	p.p = next
	return nil
}

// SetPref sets a preference by key name, mirroring SetField for Config.
func SetPref(p *Prefs, key, value string) error {
	switch key {
	case "defaultContextLines":
		var n int
		if err := setInt(&n, key, value); err != nil {
			return err
		}
		return p.SetDefaultContextLines(n)
	case "enableWordDiffOnDemand":
		on, err := parseBool(value)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		return p.SetEnableWordDiffOnDemand(on)
	default:
		return fmt.Errorf("unknown preference key: %s", key)
	}
}

func parseBool(s string) (bool, error) {
	switch s {
	case "true", "on", "yes", "1":
		return true, nil
	case "false", "off", "no", "0":
		return false, nil
	}
	return false, fmt.Errorf("expected on or off, got %q", s)
}

// ParseOverride parses an override argument: on, off, or clear.
// clear reports ok == false.
func ParseOverride(s string) (on bool, ok bool, err error) {
	if s == "clear" {
		return false, false, nil
	}
	on, err = parseBool(s)
	return on, err == nil, err
}
