package keys

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		in   string
		want Key
	}{
		{"F8", F8},
		{"f8", F8},
		{" lbutton ", LButton},
		{"Mouse1", LButton},
		{"esc", "Escape"},
		{"5", "D5"},
		{"numpad3", "NumPad3"},
		{"a", "A"},
		{"None", None},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := Parse(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParse_Unknown(t *testing.T) {
	_, err := Parse("Hyper")
	require.ErrorIs(t, err, ErrUnknownKey)
}

func TestVKRoundTrip(t *testing.T) {
	for _, k := range All() {
		assert.Equal(t, k, FromVK(k.VK()), "key %s", k)
	}
	assert.Equal(t, uint16(0x77), F8.VK())
	assert.Equal(t, None, FromVK(0xFF))
}

func TestPredicates(t *testing.T) {
	assert.True(t, LButton.IsMouse())
	assert.True(t, RButton.IsMouse())
	assert.False(t, F8.IsMouse())
	assert.False(t, None.Valid())
	assert.False(t, Key("Bogus").Valid())
	assert.True(t, Key("Space").Valid())
	assert.True(t, F8.Equal("f8"))
}
