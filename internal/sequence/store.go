package sequence

import (
	"errors"
	"fmt"
	"strings"

	"autoinput/internal/keys"
)

var (
	// ErrLastSequence is returned when removing the only remaining sequence.
	ErrLastSequence = errors.New("cannot remove the last sequence")

	// ErrIndexOutOfRange is returned for sequence or step indexes that do not exist.
	ErrIndexOutOfRange = errors.New("index out of range")

	// ErrInvalidStep is returned when a step has no usable key.
	ErrInvalidStep = errors.New("step key must not be none")
)

// Store owns the sequence list and the selected sequence.
// It is not safe for concurrent use.
type Store struct {
	bounds   Bounds
	seqs     []Sequence
	selected int
}

// NewStore returns a store holding one empty default sequence.
func NewStore(b Bounds) *Store {
	return &Store{bounds: b, seqs: []Sequence{New()}}
}

// Load replaces the store contents with a sanitized copy of seqs and selects
// the given index.
func (s *Store) Load(seqs []Sequence, selected int) error {
	clean := Sanitize(seqs, s.bounds)
	if selected < 0 || selected >= len(clean) {
		return fmt.Errorf("selected sequence %d: %w", selected, ErrIndexOutOfRange)
	}
	s.seqs = clean
	s.selected = selected
	return nil
}

// Reset restores a single empty default sequence.
func (s *Store) Reset() {
	s.seqs = []Sequence{New()}
	s.selected = 0
}

// Len returns the number of sequences.
func (s *Store) Len() int {
	return len(s.seqs)
}

// Sequences returns a deep copy of all sequences.
func (s *Store) Sequences() []Sequence {
	out := make([]Sequence, len(s.seqs))
	for i, seq := range s.seqs {
		out[i] = seq.Clone()
	}
	return out
}

// Selected returns the selected sequence index.
func (s *Store) Selected() int {
	return s.selected
}

// Current returns the selected sequence. The returned value shares its step
// slice with the store and must not be modified.
func (s *Store) Current() Sequence {
	return s.seqs[s.selected]
}

// Select changes the selected sequence.
func (s *Store) Select(index int) error {
	if index < 0 || index >= len(s.seqs) {
		return fmt.Errorf("select sequence %d: %w", index, ErrIndexOutOfRange)
	}
	s.selected = index
	return nil
}

// Create appends a new empty sequence with a unique default name, selects it
// and returns its index.
func (s *Store) Create() int {
	seq := New()
	seq.Name = NextUniqueName(s.seqs)
	s.seqs = append(s.seqs, seq)
	s.selected = len(s.seqs) - 1
	return s.selected
}

// Remove deletes a sequence. The last remaining sequence cannot be removed.
func (s *Store) Remove(index int) error {
	if index < 0 || index >= len(s.seqs) {
		return fmt.Errorf("remove sequence %d: %w", index, ErrIndexOutOfRange)
	}
	if len(s.seqs) == 1 {
		return ErrLastSequence
	}
	s.seqs = append(s.seqs[:index], s.seqs[index+1:]...)
	if s.selected > index || s.selected >= len(s.seqs) {
		s.selected--
	}
	return nil
}

// Rename sets the name of a sequence. A blank name becomes DefaultName.
func (s *Store) Rename(index int, name string) error {
	if index < 0 || index >= len(s.seqs) {
		return fmt.Errorf("rename sequence %d: %w", index, ErrIndexOutOfRange)
	}
	if strings.TrimSpace(name) == "" {
		name = DefaultName
	}
	s.seqs[index].Name = name
	return nil
}

// AddStep appends a step to the selected sequence.
func (s *Store) AddStep(step Step) error {
	clean, err := s.cleanStep(step)
	if err != nil {
		return err
	}
	cur := &s.seqs[s.selected]
	cur.Steps = append(cur.Steps, clean)
	return nil
}

// UpdateStep replaces a step of the selected sequence.
func (s *Store) UpdateStep(index int, step Step) error {
	cur := &s.seqs[s.selected]
	if index < 0 || index >= len(cur.Steps) {
		return fmt.Errorf("update step %d: %w", index, ErrIndexOutOfRange)
	}
	clean, err := s.cleanStep(step)
	if err != nil {
		return err
	}
	cur.Steps[index] = clean
	return nil
}

// RemoveStep deletes a step from the selected sequence.
func (s *Store) RemoveStep(index int) error {
	cur := &s.seqs[s.selected]
	if index < 0 || index >= len(cur.Steps) {
		return fmt.Errorf("remove step %d: %w", index, ErrIndexOutOfRange)
	}
	cur.Steps = append(cur.Steps[:index], cur.Steps[index+1:]...)
	return nil
}

// MoveUp swaps a step with its predecessor. Moving the first step is a no-op.
func (s *Store) MoveUp(index int) error {
	return s.swap(index, index-1)
}

// MoveDown swaps a step with its successor. Moving the last step is a no-op.
func (s *Store) MoveDown(index int) error {
	return s.swap(index, index+1)
}

func (s *Store) swap(i, j int) error {
	steps := s.seqs[s.selected].Steps
	if i < 0 || i >= len(steps) {
		return fmt.Errorf("move step %d: %w", i, ErrIndexOutOfRange)
	}
	if j < 0 || j >= len(steps) {
		return nil
	}
	steps[i], steps[j] = steps[j], steps[i]
	return nil
}

func (s *Store) cleanStep(step Step) (Step, error) {
	clean, ok := SanitizeStep(step, s.bounds)
	if !ok {
		if step.Key == "" || step.Key == keys.None {
			return Step{}, ErrInvalidStep
		}
		return Step{}, fmt.Errorf("%w: %q", keys.ErrUnknownKey, step.Key)
	}
	return clean, nil
}
