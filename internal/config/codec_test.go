package config

import (
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"autoinput/internal/keys"
	"autoinput/internal/sequence"
)

func sampleConfig() Config {
	cfg := Default()
	cfg.IntervalMilliseconds = 750
	cfg.SetMode(UntilCount(42))
	cfg.StartStopKeybind = keys.MustParse("F9")
	cfg.TargetInputKey = keys.RButton
	cfg.SetSchedule(Schedule{
		StartEnabled: true,
		Start:        time.Date(2026, 10, 19, 9, 30, 0, 0, time.UTC),
		StopEnabled:  true,
		Stop:         time.Date(2026, 10, 19, 17, 0, 0, 0, time.FixedZone("CEST", 2*60*60)),
	})
	cfg.ConfigFolderPath = "/tmp/autoinput"
	cfg.Sequences = []sequence.Sequence{
		{Name: "New Sequence", Steps: []sequence.Step{}},
		{Name: "Combo", Steps: []sequence.Step{
			{Key: "A", DelayMs: 100},
			{Key: keys.LButton, DelayMs: 600000},
		}},
	}
	cfg.SelectedSequenceIndex = 1
	cfg.SequenceModeActive = true
	return cfg
}

func TestRoundTrip(t *testing.T) {
	for name, cfg := range map[string]Config{
		"defaults": Default(),
		"sample":   sampleConfig(),
	} {
		t.Run(name, func(t *testing.T) {
			data, err := Encode(cfg)
			require.NoError(t, err)

			got, err := Decode(data)
			require.NoError(t, err)
			if diff := cmp.Diff(cfg, got); diff != "" {
				t.Errorf("round trip mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestEncode_UsesDocumentedFieldNames(t *testing.T) {
	data, err := Encode(Default())
	require.NoError(t, err)
	for _, field := range []string{
		"intervalMilliseconds", "runUntilStopActive", "runUntilSetCountActive",
		"stopInputCount", "startStopKeybind", "targetInputKey",
		"scheduleStartEnabled", "scheduleStartTime", "scheduleStopEnabled",
		"scheduleStopTime", "configFolderPath", "selectedSequenceIndex",
		"sequences", "sequenceModeActive", "holdTargetActive",
	} {
		assert.Contains(t, string(data), `"`+field+`"`)
	}
}

func TestDecode_MissingFieldsUseDefaults(t *testing.T) {
	got, err := Decode([]byte(`{"intervalMilliseconds": 1000, "unknownField": 3}`))
	require.NoError(t, err)

	want := Default()
	want.IntervalMilliseconds = 1000
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
}

func TestDecode_InfersRunModeFromSingleFlag(t *testing.T) {
	got, err := Decode([]byte(`{"runUntilSetCountActive": true, "stopInputCount": 5}`))
	require.NoError(t, err)
	assert.Equal(t, UntilCount(5), got.Mode())
	assert.False(t, got.RunUntilStopActive)

	got, err = Decode([]byte(`{"runUntilStopActive": false, "runUntilSetCountActive": false}`))
	require.NoError(t, err)
	assert.Equal(t, UntilStopped(), got.Mode())
}

func TestDecode_MalformedIsParseError(t *testing.T) {
	for _, doc := range []string{
		`{"intervalMilliseconds": }`,
		`{"intervalMilliseconds": "fast"}`,
		`[1, 2]`,
		``,
	} {
		_, err := Decode([]byte(doc))
		var pe *ParseError
		require.True(t, errors.As(err, &pe), "doc %q: got %v", doc, err)
	}
}

func TestDecode_RejectsOutOfRange(t *testing.T) {
	tests := map[string]string{
		"interval low":    `{"intervalMilliseconds": 99}`,
		"interval high":   `{"intervalMilliseconds": 600001}`,
		"count zero":      `{"stopInputCount": 0}`,
		"count high":      `{"stopInputCount": 1000001}`,
		"both modes":      `{"runUntilStopActive": true, "runUntilSetCountActive": true}`,
		"same keys":       `{"startStopKeybind": "F8", "targetInputKey": "f8"}`,
		"none target":     `{"targetInputKey": "None"}`,
		"unknown hotkey":  `{"startStopKeybind": "Hyper"}`,
		"mouse hotkey":    `{"startStopKeybind": "RButton"}`,
		"selected range":  `{"selectedSequenceIndex": 1}`,
		"start w/o time":  `{"scheduleStartEnabled": true}`,
		"negative select": `{"selectedSequenceIndex": -1}`,
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Decode([]byte(doc))
			var ve *ValidationError
			require.True(t, errors.As(err, &ve), "got %v", err)
			assert.NotEmpty(t, ve.Problems)
		})
	}
}

func TestDecode_ReportsAllProblems(t *testing.T) {
	_, err := Decode([]byte(`{"intervalMilliseconds": 1, "stopInputCount": 0, "targetInputKey": "F8"}`))
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Len(t, ve.Problems, 3)
}

func TestDecode_SanitizesSequences(t *testing.T) {
	doc := `{
		"sequences": [
			{"name": "", "steps": [{"key": "None", "delayMs": 200}, {"key": "q", "delayMs": 1}]}
		],
		"selectedSequenceIndex": 0
	}`
	got, err := Decode([]byte(doc))
	require.NoError(t, err)
	require.Len(t, got.Sequences, 1)
	assert.Equal(t, sequence.DefaultName, got.Sequences[0].Name)
	assert.Equal(t, []sequence.Step{{Key: "Q", DelayMs: IntervalMinimum}}, got.Sequences[0].Steps)
}

func TestDecode_EmptySequenceListSynthesizesDefault(t *testing.T) {
	got, err := Decode([]byte(`{"sequences": []}`))
	require.NoError(t, err)
	require.Len(t, got.Sequences, 1)
	assert.Equal(t, sequence.DefaultName, got.Sequences[0].Name)
}

func TestDecode_HoldForcesUntilStopped(t *testing.T) {
	got, err := Decode([]byte(`{"holdTargetActive": true, "runUntilSetCountActive": true, "runUntilStopActive": false}`))
	require.NoError(t, err)
	assert.Equal(t, UntilStopped(), got.Mode())
}

func TestSetMode_KeepsCountWhenUnlimited(t *testing.T) {
	cfg := Default()
	cfg.SetMode(UntilCount(7))
	cfg.SetMode(UntilStopped())
	assert.Equal(t, 7, cfg.StopInputCount)
	assert.True(t, cfg.RunUntilStopActive)
	assert.False(t, cfg.RunUntilSetCountActive)
}
