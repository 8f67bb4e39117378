package autostart

import (
	"encoding/xml"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderPlist(t *testing.T) {
	data, err := renderPlist("/Applications/Auto Input.app/autoinput", []string{"run", "--config", "/tmp/a&b.json"})
	require.NoError(t, err)

	var doc struct {
		Strings []string `xml:"dict>array>string"`
		Label   []string `xml:"dict>string"`
	}
	require.NoError(t, xml.Unmarshal(data, &doc))
	assert.Equal(t, []string{Label}, doc.Label)
	assert.Equal(t, []string{"/Applications/Auto Input.app/autoinput", "run", "--config", "/tmp/a&b.json"}, doc.Strings)
}

func TestCommandLine(t *testing.T) {
	tests := []struct {
		exe  string
		args []string
		want string
	}{
		{`C:\autoinput.exe`, nil, `C:\autoinput.exe`},
		{`C:\Program Files\AutoInput\autoinput.exe`, []string{"run"}, `"C:\Program Files\AutoInput\autoinput.exe" run`},
		{`C:\a.exe`, []string{"--config", `C:\My Configs\x.json`, ""}, `C:\a.exe --config "C:\My Configs\x.json" ""`},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, commandLine(tt.exe, tt.args))
	}
}
