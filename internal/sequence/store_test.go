package sequence

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"autoinput/internal/keys"
)

func TestStore_StartsWithOneDefault(t *testing.T) {
	s := NewStore(testBounds)
	require.Equal(t, 1, s.Len())
	assert.Equal(t, DefaultName, s.Current().Name)
	assert.Equal(t, 0, s.Selected())
}

func TestStore_RemoveLastIsRejected(t *testing.T) {
	s := NewStore(testBounds)
	err := s.Remove(0)
	require.ErrorIs(t, err, ErrLastSequence)
	assert.Equal(t, 1, s.Len())

	s.Create()
	require.NoError(t, s.Remove(0))
	require.ErrorIs(t, s.Remove(0), ErrLastSequence)
	assert.Equal(t, 1, s.Len())
}

func TestStore_CreateUsesUniqueNamesAndSelects(t *testing.T) {
	s := NewStore(testBounds)
	idx := s.Create()
	assert.Equal(t, 1, idx)
	assert.Equal(t, 1, s.Selected())
	assert.Equal(t, "New Sequence (2)", s.Current().Name)

	s.Create()
	assert.Equal(t, "New Sequence (3)", s.Current().Name)
}

func TestStore_RemoveAdjustsSelection(t *testing.T) {
	s := NewStore(testBounds)
	s.Create()
	s.Create() // selected = 2

	require.NoError(t, s.Remove(0))
	assert.Equal(t, 1, s.Selected())
	assert.Equal(t, "New Sequence (3)", s.Current().Name)

	require.NoError(t, s.Remove(1))
	assert.Equal(t, 0, s.Selected())

	require.ErrorIs(t, s.Remove(5), ErrIndexOutOfRange)
}

func TestStore_Rename(t *testing.T) {
	s := NewStore(testBounds)
	require.NoError(t, s.Rename(0, "Combo"))
	assert.Equal(t, "Combo", s.Current().Name)

	require.NoError(t, s.Rename(0, "   "))
	assert.Equal(t, DefaultName, s.Current().Name)

	require.ErrorIs(t, s.Rename(3, "x"), ErrIndexOutOfRange)
}

func TestStore_StepEditing(t *testing.T) {
	s := NewStore(testBounds)
	require.NoError(t, s.AddStep(Step{Key: "a", DelayMs: 10}))
	require.NoError(t, s.AddStep(Step{Key: "B", DelayMs: 200}))
	require.NoError(t, s.AddStep(Step{Key: "C", DelayMs: 300}))

	assert.Equal(t, []Step{{"A", 100}, {"B", 200}, {"C", 300}}, s.Current().Steps)

	require.NoError(t, s.MoveUp(0)) // no-op at the top
	require.NoError(t, s.MoveDown(2))
	require.NoError(t, s.MoveUp(2))
	assert.Equal(t, []Step{{"A", 100}, {"C", 300}, {"B", 200}}, s.Current().Steps)

	require.NoError(t, s.UpdateStep(1, Step{Key: "RButton", DelayMs: 700000}))
	assert.Equal(t, Step{Key: keys.RButton, DelayMs: 600000}, s.Current().Steps[1])

	require.NoError(t, s.RemoveStep(0))
	assert.Len(t, s.Current().Steps, 2)

	require.ErrorIs(t, s.RemoveStep(9), ErrIndexOutOfRange)
	require.ErrorIs(t, s.MoveDown(-1), ErrIndexOutOfRange)
}

func TestStore_AddStepRejectsNone(t *testing.T) {
	s := NewStore(testBounds)
	require.ErrorIs(t, s.AddStep(Step{Key: keys.None, DelayMs: 200}), ErrInvalidStep)
	require.ErrorIs(t, s.AddStep(Step{Key: "Nope", DelayMs: 200}), keys.ErrUnknownKey)
	assert.Empty(t, s.Current().Steps)
}

func TestStore_LoadSanitizesAndValidatesSelection(t *testing.T) {
	s := NewStore(testBounds)
	err := s.Load([]Sequence{{Name: "One"}}, 3)
	require.ErrorIs(t, err, ErrIndexOutOfRange)
	assert.Equal(t, DefaultName, s.Current().Name, "failed load must leave the store unchanged")

	require.NoError(t, s.Load([]Sequence{{Name: "One"}, {Name: "", Steps: []Step{{Key: "None"}}}}, 1))
	assert.Equal(t, 2, s.Len())
	assert.Equal(t, DefaultName, s.Current().Name)
	assert.Empty(t, s.Current().Steps)
}

func TestStore_SequencesIsDeepCopy(t *testing.T) {
	s := NewStore(testBounds)
	require.NoError(t, s.AddStep(Step{Key: "A", DelayMs: 200}))

	cp := s.Sequences()
	cp[0].Steps[0].Key = "Z"
	assert.Equal(t, keys.Key("A"), s.Current().Steps[0].Key)
}
