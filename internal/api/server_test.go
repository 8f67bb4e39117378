package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"autoinput/internal/config"
	"autoinput/internal/input"
	"autoinput/internal/keys"
	"autoinput/internal/notify"
	"autoinput/internal/runner"
	"autoinput/internal/sequence"
	"autoinput/internal/view"
)

type stubHotkeys struct {
	registered keys.Key
	fail       map[keys.Key]bool
}

func (h *stubHotkeys) Register(k keys.Key) error {
	if h.fail[k] {
		return errors.New("hotkey in use")
	}
	h.registered = k
	return nil
}

func (h *stubHotkeys) Unregister() { h.registered = keys.None }

type testEnv struct {
	srv     *Server
	hotkeys *stubHotkeys
	http    *httptest.Server
	loop    *runner.Loop
	ctrl    *runner.Controller
	sink    *input.Recorder
	configs *config.Manager
}

func newTestEnv(t *testing.T, token string) *testEnv {
	t.Helper()
	dir := t.TempDir()
	configs, err := config.NewManager(filepath.Join(dir, config.FileName))
	require.NoError(t, err)

	loop := runner.NewLoop()
	sink := input.NewRecorder(nil)
	hotkeys := &stubHotkeys{fail: make(map[keys.Key]bool)}
	ctrl := runner.New(runner.Deps{
		Timers:   loop,
		Sink:     sink,
		Hotkeys:  hotkeys,
		Notifier: notify.NewLog(notify.No),
	})
	require.NoError(t, ctrl.Apply(config.Default()))
	ctrl.MarkSaved()

	srv := NewServer(Options{Dispatcher: loop, Controller: ctrl, Configs: configs, Token: token})
	loop.AfterEach(func() { srv.Hub().Publish(BuildStatus(ctrl)) })

	ctx, cancel := context.WithCancel(context.Background())
	loopDone := make(chan struct{})
	hubDone := make(chan struct{})
	go func() {
		defer close(loopDone)
		_ = loop.Run(ctx)
	}()
	go func() {
		defer close(hubDone)
		srv.Hub().Run(ctx)
	}()

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		ts.Close()
		cancel()
		<-loopDone
		<-hubDone
	})
	return &testEnv{srv: srv, hotkeys: hotkeys, http: ts, loop: loop, ctrl: ctrl, sink: sink, configs: configs}
}

func (e *testEnv) do(t *testing.T, method, path, body string) (*http.Response, []byte) {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, e.http.URL+path, rd)
	require.NoError(t, err)
	if e.srv.token != "" {
		req.Header.Set("Authorization", "Bearer "+e.srv.token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, data
}

// failHotkeys makes registration of ks fail. The stub is only touched on
// the loop goroutine.
func (e *testEnv) failHotkeys(t *testing.T, ks ...keys.Key) {
	t.Helper()
	require.NoError(t, e.loop.Call(context.Background(), func() error {
		for _, k := range ks {
			e.hotkeys.fail[k] = true
		}
		return nil
	}))
}

func (e *testEnv) registeredHotkey(t *testing.T) keys.Key {
	t.Helper()
	var k keys.Key
	require.NoError(t, e.loop.Call(context.Background(), func() error {
		k = e.hotkeys.registered
		return nil
	}))
	return k
}

func decodeStatus(t *testing.T, data []byte) StatusView {
	t.Helper()
	var v struct {
		State        string                `json:"state"`
		Dirty        bool                  `json:"dirty"`
		Labels       Labels                `json:"labels"`
		Availability map[view.Control]bool `json:"availability"`
		Config       config.Config         `json:"config"`
		Counters     runner.Counters       `json:"counters"`
	}
	require.NoError(t, json.Unmarshal(data, &v))
	out := StatusView{Labels: v.Labels, Availability: v.Availability}
	out.Dirty = v.Dirty
	out.Config = v.Config
	out.Counters = v.Counters
	switch v.State {
	case "running":
		out.State = runner.Running
	case "scheduled":
		out.State = runner.Scheduled
	default:
		out.State = runner.Idle
	}
	return out
}

func TestHealthSkipsAuth(t *testing.T) {
	env := newTestEnv(t, "secret")

	resp, err := http.Get(env.http.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(env.http.URL + "/api/status")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, data := env.do(t, http.MethodGet, "/api/status", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode, string(data))
}

func TestStatusReportsLabelsAndAvailability(t *testing.T) {
	env := newTestEnv(t, "")

	resp, data := env.do(t, http.MethodGet, "/api/status", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	st := decodeStatus(t, data)
	assert.Equal(t, runner.Idle, st.State)
	assert.Equal(t, "Start", st.Labels.Button)
	assert.Equal(t, "Active Time: 00:00:00", st.Labels.Time)
	assert.Equal(t, "Input Count: 0", st.Labels.InputCount)
	assert.Equal(t, "<not set>", st.Labels.ConfigFolder)
	assert.True(t, st.Availability[view.Interval])
	assert.False(t, st.Availability[view.RunCount])
}

func TestToggleLocksSettings(t *testing.T) {
	env := newTestEnv(t, "")

	resp, data := env.do(t, http.MethodPost, "/api/toggle", "")
	require.Equal(t, http.StatusOK, resp.StatusCode, string(data))
	st := decodeStatus(t, data)
	assert.Equal(t, runner.Running, st.State)
	assert.Equal(t, "Stop", st.Labels.Button)
	assert.True(t, st.Availability[view.StartStop])
	assert.False(t, st.Availability[view.Interval])

	resp, _ = env.do(t, http.MethodPatch, "/api/settings", `{"intervalMilliseconds": 1000}`)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, _ = env.do(t, http.MethodPost, "/api/reset?confirm=true", "")
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, data = env.do(t, http.MethodPost, "/api/toggle", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, runner.Idle, decodeStatus(t, data).State)
}

func TestPatchSettings(t *testing.T) {
	env := newTestEnv(t, "")

	resp, data := env.do(t, http.MethodPatch, "/api/settings",
		`{"intervalMilliseconds": 1000, "runUntilSetCountActive": true, "stopInputCount": 7, "targetInputKey": "a"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(data))

	st := decodeStatus(t, data)
	assert.True(t, st.Dirty)
	assert.Equal(t, 1000, st.Config.IntervalMilliseconds)
	assert.Equal(t, config.UntilCount(7), st.Config.Mode())
	assert.Equal(t, keys.Key("A"), st.Config.TargetInputKey)
	assert.True(t, st.Availability[view.RunCount])

	tests := []struct {
		name string
		body string
		want int
	}{
		{"interval too small", `{"intervalMilliseconds": 5}`, http.StatusBadRequest},
		{"unknown key", `{"targetInputKey": "Banana"}`, http.StatusBadRequest},
		{"target equals hotkey", `{"targetInputKey": "F8"}`, http.StatusConflict},
		{"malformed", `{"intervalMilliseconds": "fast"}`, http.StatusBadRequest},
		{"mouse hotkey", `{"targetInputKey": "B", "startStopKeybind": "RButton"}`, http.StatusBadRequest},
		{"both interval units", `{"intervalMilliseconds": 900, "intervalSeconds": 0.9}`, http.StatusBadRequest},
		{"partial failure", `{"intervalMilliseconds": 2000, "startStopKeybind": "F9", "targetInputKey": "F9"}`, http.StatusConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, data := env.do(t, http.MethodPatch, "/api/settings", tt.body)
			assert.Equal(t, tt.want, resp.StatusCode, string(data))
		})
	}

	_, data = env.do(t, http.MethodGet, "/api/status", "")
	st = decodeStatus(t, data)
	assert.Equal(t, 1000, st.Config.IntervalMilliseconds)
	assert.Equal(t, keys.Key("A"), st.Config.TargetInputKey)
	assert.Equal(t, keys.F8, st.Config.StartStopKeybind)
	assert.Equal(t, keys.F8, env.registeredHotkey(t))
}

func TestPatchSettingsInSeconds(t *testing.T) {
	env := newTestEnv(t, "")

	resp, data := env.do(t, http.MethodPatch, "/api/settings", `{"intervalSeconds": 1.5}`)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(data))

	st := decodeStatus(t, data)
	assert.Equal(t, 1500, st.Config.IntervalMilliseconds)
	assert.InDelta(t, 1.5, st.Labels.IntervalSeconds, 1e-9)
}

func TestPatchHotkeyFallbackSucceeds(t *testing.T) {
	env := newTestEnv(t, "")
	env.failHotkeys(t, "F9")

	resp, data := env.do(t, http.MethodPatch, "/api/settings", `{"startStopKeybind": "F9"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(data))
	assert.Equal(t, keys.F8, decodeStatus(t, data).Config.StartStopKeybind)

	env.failHotkeys(t, "F8", "F10", "F11", "F12")
	resp, data = env.do(t, http.MethodPatch, "/api/settings", `{"startStopKeybind": "F9"}`)
	assert.Equal(t, http.StatusConflict, resp.StatusCode, string(data))
}

func TestCrossOriginRequestsAreRejected(t *testing.T) {
	env := newTestEnv(t, "")

	post := func(header, value string) *http.Response {
		req, err := http.NewRequest(http.MethodPost, env.http.URL+"/api/toggle", strings.NewReader("a=b"))
		require.NoError(t, err)
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.Header.Set(header, value)
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		resp.Body.Close()
		return resp
	}

	assert.Equal(t, http.StatusForbidden, post("Origin", "http://evil.example").StatusCode)
	assert.Equal(t, http.StatusForbidden, post("Referer", "https://evil.example/page").StatusCode)
	assert.Equal(t, http.StatusForbidden, post("Origin", "null").StatusCode)

	_, data := env.do(t, http.MethodGet, "/api/status", "")
	assert.Equal(t, runner.Idle, decodeStatus(t, data).State)
	assert.Zero(t, env.sink.Len())

	assert.Equal(t, http.StatusOK, post("Origin", "http://localhost:5173").StatusCode)
	assert.Equal(t, http.StatusOK, post("Origin", "http://127.0.0.1:7391").StatusCode)

	url := "ws" + strings.TrimPrefix(env.http.URL, "http") + "/ws"
	_, resp, err := websocket.DefaultDialer.Dial(url, http.Header{"Origin": {"http://evil.example"}})
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestResetRequiresConfirm(t *testing.T) {
	env := newTestEnv(t, "")

	resp, _ := env.do(t, http.MethodPost, "/api/reset", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	env.do(t, http.MethodPatch, "/api/settings", `{"intervalMilliseconds": 2000}`)
	resp, data := env.do(t, http.MethodPost, "/api/reset?confirm=true", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, config.DefaultInterval, decodeStatus(t, data).Config.IntervalMilliseconds)
}

func TestPutConfig(t *testing.T) {
	env := newTestEnv(t, "")

	resp, _ := env.do(t, http.MethodPut, "/api/config", `{not json`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = env.do(t, http.MethodPut, "/api/config", `{"intervalMilliseconds": 5}`)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	resp, data := env.do(t, http.MethodPut, "/api/config", `{"intervalMilliseconds": 750, "sequenceModeActive": true}`)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(data))
	st := decodeStatus(t, data)
	assert.Equal(t, 750, st.Config.IntervalMilliseconds)
	assert.True(t, st.Config.SequenceModeActive)

	resp, data = env.do(t, http.MethodGet, "/api/config", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	cfg, err := config.Decode(data)
	require.NoError(t, err)
	assert.Equal(t, 750, cfg.IntervalMilliseconds)
}

func TestSaveAndLoadConfig(t *testing.T) {
	env := newTestEnv(t, "")
	folder := t.TempDir()

	body, err := json.Marshal(map[string]any{"intervalMilliseconds": 1234, "configFolderPath": folder})
	require.NoError(t, err)
	env.do(t, http.MethodPatch, "/api/settings", string(body))

	resp, data := env.do(t, http.MethodPost, "/api/config/save", "")
	require.Equal(t, http.StatusOK, resp.StatusCode, string(data))
	var saved map[string][]string
	require.NoError(t, json.Unmarshal(data, &saved))
	assert.Equal(t, []string{env.configs.Path(), filepath.Join(folder, config.FileName)}, saved["paths"])

	resp, data = env.do(t, http.MethodGet, "/api/status", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.False(t, decodeStatus(t, data).Dirty)

	env.do(t, http.MethodPatch, "/api/settings", `{"intervalMilliseconds": 999}`)
	resp, data = env.do(t, http.MethodPost, "/api/config/load", "")
	require.Equal(t, http.StatusOK, resp.StatusCode, string(data))
	st := decodeStatus(t, data)
	assert.Equal(t, 1234, st.Config.IntervalMilliseconds)
	assert.False(t, st.Dirty)
}

func TestSequenceEndpoints(t *testing.T) {
	env := newTestEnv(t, "")

	list := func(data []byte) SequenceList {
		var l SequenceList
		require.NoError(t, json.Unmarshal(data, &l))
		return l
	}

	resp, data := env.do(t, http.MethodPost, "/api/steps", `{"key": "a", "delayMs": 50}`)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(data))
	assert.Equal(t, []sequence.Step{{Key: "A", DelayMs: config.IntervalMinimum}}, list(data).Sequences[0].Steps)

	env.do(t, http.MethodPost, "/api/steps", `{"key": "B", "delayMs": 300}`)
	resp, data = env.do(t, http.MethodPost, "/api/steps/1/up", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, keys.Key("B"), list(data).Sequences[0].Steps[0].Key)

	resp, _ = env.do(t, http.MethodPost, "/api/steps", `{"key": "None", "delayMs": 300}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = env.do(t, http.MethodDelete, "/api/steps/9", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = env.do(t, http.MethodDelete, "/api/steps/x", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, data = env.do(t, http.MethodPost, "/api/sequences", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	l := list(data)
	assert.Len(t, l.Sequences, 2)
	assert.Equal(t, 1, l.Selected)
	assert.Equal(t, "New Sequence (2)", l.Sequences[1].Name)

	resp, data = env.do(t, http.MethodPut, "/api/sequences/1/name", `{"name": "Farm"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Farm", list(data).Sequences[1].Name)

	resp, data = env.do(t, http.MethodPost, "/api/sequences/0/select", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 0, list(data).Selected)

	resp, _ = env.do(t, http.MethodDelete, "/api/sequences/1", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp, _ = env.do(t, http.MethodDelete, "/api/sequences/0", "")
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestEmptySequenceRefusesToStart(t *testing.T) {
	env := newTestEnv(t, "")
	env.do(t, http.MethodPatch, "/api/settings", `{"sequenceModeActive": true}`)

	resp, _ := env.do(t, http.MethodPost, "/api/toggle", "")
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t, "")
	env.do(t, http.MethodPost, "/api/toggle", "")
	env.do(t, http.MethodPost, "/api/toggle", "")

	resp, data := env.do(t, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(data), "autoinput_runs_started_total")
}

func TestWebSocketStreamsStatus(t *testing.T) {
	env := newTestEnv(t, "secret")

	url := "ws" + strings.TrimPrefix(env.http.URL, "http") + "/ws?token=secret"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	resp.Body.Close()
	defer conn.Close()

	env.do(t, http.MethodPost, "/api/toggle", "")

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	for {
		var msg struct {
			Type    MessageType     `json:"type"`
			Payload json.RawMessage `json:"payload"`
		}
		require.NoError(t, conn.ReadJSON(&msg))
		require.Equal(t, TypeStatus, msg.Type)
		if decodeStatus(t, msg.Payload).State == runner.Running {
			break
		}
	}
	env.do(t, http.MethodPost, "/api/toggle", "")
}

func TestWebSocketRequiresToken(t *testing.T) {
	env := newTestEnv(t, "secret")

	url := "ws" + strings.TrimPrefix(env.http.URL, "http") + "/ws?token=wrong"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
