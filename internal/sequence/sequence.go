// Package sequence holds named, ordered lists of key steps that are played
// back in a loop, and the store that owns them.
package sequence

import (
	"fmt"
	"strings"

	"autoinput/internal/keys"
)

// DefaultName is given to new sequences and to sequences with a blank name.
const DefaultName = "New Sequence"

// Step is one key press followed by a delay.
type Step struct {
	// Key is the key or mouse button to emit. Never keys.None.
	Key keys.Key `json:"key"`

	// DelayMs is the delay after the key is pressed, in milliseconds.
	DelayMs int `json:"delayMs"`
}

// Sequence is a named, ordered list of steps.
type Sequence struct {
	Name  string `json:"name"`
	Steps []Step `json:"steps"`
}

// Bounds is the inclusive millisecond range a step delay is clamped into.
type Bounds struct {
	MinMs int
	MaxMs int
}

// Clamp returns ms limited to [b.MinMs, b.MaxMs].
func (b Bounds) Clamp(ms int) int {
	return min(max(ms, b.MinMs), b.MaxMs)
}

// New returns an empty sequence with the default name.
func New() Sequence {
	return Sequence{Name: DefaultName, Steps: []Step{}}
}

// Clone returns a deep copy of s.
func (s Sequence) Clone() Sequence {
	steps := make([]Step, len(s.Steps))
	copy(steps, s.Steps)
	return Sequence{Name: s.Name, Steps: steps}
}

// SanitizeStep resolves the step key and clamps its delay. It reports false
// when the step must be dropped (unknown or None key).
func SanitizeStep(step Step, b Bounds) (Step, bool) {
	k, err := keys.Parse(string(step.Key))
	if err != nil || k == keys.None {
		return Step{}, false
	}
	return Step{Key: k, DelayMs: b.Clamp(step.DelayMs)}, true
}

// Sanitize drops invalid steps, clamps delays, names unnamed sequences and
// guarantees at least one sequence. The input slice is not modified.
func Sanitize(seqs []Sequence, b Bounds) []Sequence {
	out := make([]Sequence, 0, len(seqs))
	for _, s := range seqs {
		clean := Sequence{Name: strings.TrimSpace(s.Name), Steps: make([]Step, 0, len(s.Steps))}
		if clean.Name == "" {
			clean.Name = DefaultName
		} else {
			clean.Name = s.Name
		}
		for _, step := range s.Steps {
			if st, ok := SanitizeStep(step, b); ok {
				clean.Steps = append(clean.Steps, st)
			}
		}
		out = append(out, clean)
	}
	if len(out) == 0 {
		out = append(out, New())
	}
	return out
}

// NextUniqueName returns DefaultName if no sequence uses it, otherwise the
// lowest "New Sequence (n)", n >= 2, that is free. Names compare
// case-insensitively.
func NextUniqueName(seqs []Sequence) string {
	used := make(map[string]bool, len(seqs))
	for _, s := range seqs {
		used[strings.ToLower(strings.TrimSpace(s.Name))] = true
	}
	if !used[strings.ToLower(DefaultName)] {
		return DefaultName
	}
	for n := 2; ; n++ {
		name := fmt.Sprintf("%s (%d)", DefaultName, n)
		if !used[strings.ToLower(name)] {
			return name
		}
	}
}
