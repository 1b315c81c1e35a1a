package preflight

import "fmt"

// Thresholds are the ceilings above which Large File Mode is used.
// A zero ceiling disables that dimension.
type Thresholds struct {
	MaxPatchBytes int64 `json:"maxPatchBytes"`
	MaxLines      int   `json:"maxLines"`
	MaxLineLength int   `json:"maxLineLength"`
	MaxHunks      int   `json:"maxHunks"`
}

// DefaultThresholds returns ceilings that ordinary source diffs stay under
// while minified bundles, generated lockfiles and single huge lines exceed.
func DefaultThresholds() Thresholds {
	return Thresholds{
		MaxPatchBytes: 8 << 20,
		MaxLines:      20000,
		MaxLineLength: 5000,
		MaxHunks:      1000,
	}
}

// ShouldActivateLFM reports whether any ceiling is exceeded.
func (t Thresholds) ShouldActivateLFM(s Stats) bool {
	return t.exceeded(s) != ""
}

// exceeded names the first ceiling s exceeds, or "" if none.
func (t Thresholds) exceeded(s Stats) string {
	switch {
	case t.MaxLines > 0 && s.EstimatedLines > t.MaxLines:
		return fmt.Sprintf("%d lines exceeds %d", s.EstimatedLines, t.MaxLines)
	case t.MaxLineLength > 0 && s.MaxLineLength > t.MaxLineLength:
		return fmt.Sprintf("line of %d chars exceeds %d", s.MaxLineLength, t.MaxLineLength)
	case t.MaxHunks > 0 && s.HunkCount > t.MaxHunks:
		return fmt.Sprintf("%d hunks exceeds %d", s.HunkCount, t.MaxHunks)
	case t.MaxPatchBytes > 0 && s.PatchSizeBytes > t.MaxPatchBytes:
		return fmt.Sprintf("%d bytes exceeds %d", s.PatchSizeBytes, t.MaxPatchBytes)
	}
	return ""
}

// OverrideLookup reports an explicit per-path LFM setting.
type OverrideLookup interface {
	LFMOverride(path string) (on bool, ok bool)
}

// Decision is the outcome of Decide.
type Decision struct {
	Active   bool   `json:"active"`
	Override bool   `json:"override"` // decided by a per-path override
	Reason   string `json:"reason"`
}

// Decide determines whether Large File Mode applies to path. An override for
// path wins outright; otherwise the thresholds decide. overrides may be nil.
func Decide(path string, s Stats, t Thresholds, overrides OverrideLookup) Decision {
	if overrides != nil {
		if on, ok := overrides.LFMOverride(path); ok {
			return Decision{Active: on, Override: true, Reason: fmt.Sprintf("override for %s", path)}
		}
	}
	if reason := t.exceeded(s); reason != "" {
		return Decision{Active: true, Reason: reason}
	}
	return Decision{Reason: "within thresholds"}
}
