package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"time"

	"autoinput/internal/config"
	"autoinput/internal/keys"
	"autoinput/internal/metrics"
	"autoinput/internal/runner"
	"autoinput/internal/sequence"
	"autoinput/internal/view"
)

// maxBody limits request documents.
const maxBody = 1 << 20

// StatusView is the status document served by /api/status and the
// WebSocket stream.
type StatusView struct {
	runner.Status
	Labels       Labels                `json:"labels"`
	Availability map[view.Control]bool `json:"availability"`
}

// Labels are the display strings of the current status.
type Labels struct {
	Button          string  `json:"button"`
	Time            string  `json:"time"`
	InputCount      string  `json:"inputCount"`
	IntervalSeconds float64 `json:"intervalSeconds"`
	IntervalHint    string  `json:"intervalHint"`
	ConfigFolder    string  `json:"configFolder"`
}

// BuildStatus renders the status view of c. It must run on the goroutine
// that owns c.
func BuildStatus(c *runner.Controller) StatusView {
	st := c.Status()
	return StatusView{
		Status: st,
		Labels: Labels{
			Button:          view.ButtonLabel(st.State),
			Time:            view.TimeLabel(st.Counters.ActiveSeconds),
			InputCount:      view.InputCountLabel(st.Counters.InputCount),
			IntervalSeconds: view.Seconds(st.Config.IntervalMilliseconds),
			IntervalHint:    view.IntervalHint(config.IntervalMinimum, config.IntervalMaximum),
			ConfigFolder:    view.ConfigFolderLabel(st.Config.ConfigFolderPath),
		},
		Availability: view.Refine(view.Availability(st.State), st.Config),
	}
}

// call runs fn on the controller goroutine and writes either the current
// status or the mapped error.
func (s *Server) call(w http.ResponseWriter, r *http.Request, fn func(c *runner.Controller) error) {
	var out StatusView
	err := s.dispatch.Call(r.Context(), func() error {
		if err := fn(s.ctrl); err != nil {
			return err
		}
		out = BuildStatus(s.ctrl)
		return nil
	})
	if err != nil {
		s.writeControllerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) writeControllerError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error().Err(err).Str("event", "api.error").Msg("request failed")
	}
	writeError(w, status, err)
}

func statusFor(err error) int {
	var parseErr *config.ParseError
	var validErr *config.ValidationError
	switch {
	case errors.As(err, &parseErr):
		return http.StatusBadRequest
	case errors.As(err, &validErr):
		return http.StatusUnprocessableEntity
	case errors.Is(err, runner.ErrBusy),
		errors.Is(err, runner.ErrKeyConflict),
		errors.Is(err, runner.ErrEmptySequence),
		errors.Is(err, runner.ErrHoldMode),
		errors.Is(err, runner.ErrHotkeyUnavailable),
		errors.Is(err, sequence.ErrLastSequence):
		return http.StatusConflict
	case errors.Is(err, runner.ErrOutOfRange),
		errors.Is(err, runner.ErrMouseHotkey),
		errors.Is(err, keys.ErrUnknownKey),
		errors.Is(err, sequence.ErrInvalidStep),
		errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, sequence.ErrIndexOutOfRange),
		errors.Is(err, fs.ErrNotExist):
		return http.StatusNotFound
	case errors.Is(err, runner.ErrLoopStopped):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

var errBadRequest = errors.New("bad request")

func decodeBody(r *http.Request, v any) error {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxBody))
	if err != nil {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.call(w, r, func(*runner.Controller) error { return nil })
}

func (s *Server) handleToggle(w http.ResponseWriter, r *http.Request) {
	s.call(w, r, func(c *runner.Controller) error { return c.Toggle() })
}

// handleReset requires ?confirm=true in place of the confirmation dialog.
func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("confirm") != "true" {
		writeError(w, http.StatusBadRequest, errors.New("reset requires confirm=true"))
		return
	}
	s.call(w, r, func(c *runner.Controller) error { return c.Reset() })
}

// Settings is a partial settings update. Absent fields are left unchanged.
type Settings struct {
	IntervalMilliseconds *int       `json:"intervalMilliseconds,omitempty"`
	IntervalSeconds      *float64   `json:"intervalSeconds,omitempty"`
	StopInputCount       *int       `json:"stopInputCount,omitempty"`
	RunUntilSetCount     *bool      `json:"runUntilSetCountActive,omitempty"`
	ScheduleStartEnabled *bool      `json:"scheduleStartEnabled,omitempty"`
	ScheduleStartTime    *time.Time `json:"scheduleStartTime,omitempty"`
	ScheduleStopEnabled  *bool      `json:"scheduleStopEnabled,omitempty"`
	ScheduleStopTime     *time.Time `json:"scheduleStopTime,omitempty"`
	TargetInputKey       *keys.Key  `json:"targetInputKey,omitempty"`
	StartStopKeybind     *keys.Key  `json:"startStopKeybind,omitempty"`
	SequenceModeActive   *bool      `json:"sequenceModeActive,omitempty"`
	HoldTargetActive     *bool      `json:"holdTargetActive,omitempty"`
	ConfigFolderPath     *string    `json:"configFolderPath,omitempty"`
}

// apply runs the setters in a fixed order and stops at the first error.
// The caller runs it through Controller.Update so a failure changes nothing.
func (p Settings) apply(c *runner.Controller) error {
	if p.IntervalMilliseconds != nil && p.IntervalSeconds != nil {
		return fmt.Errorf("%w: intervalMilliseconds and intervalSeconds are exclusive", errBadRequest)
	}
	if p.IntervalMilliseconds != nil {
		if err := c.SetInterval(*p.IntervalMilliseconds); err != nil {
			return err
		}
	}
	if p.IntervalSeconds != nil {
		if err := c.SetInterval(view.Milliseconds(*p.IntervalSeconds)); err != nil {
			return err
		}
	}
	if p.HoldTargetActive != nil {
		if err := c.SetHoldTarget(*p.HoldTargetActive); err != nil {
			return err
		}
	}
	if p.RunUntilSetCount != nil || p.StopInputCount != nil {
		cfg := c.Snapshot()
		limited := cfg.RunUntilSetCountActive
		if p.RunUntilSetCount != nil {
			limited = *p.RunUntilSetCount
		}
		count := cfg.StopInputCount
		if p.StopInputCount != nil {
			count = *p.StopInputCount
		}
		mode := config.UntilStopped()
		if limited {
			mode = config.UntilCount(count)
		}
		if err := c.SetRunMode(mode); err != nil {
			return err
		}
	}
	if p.ScheduleStartEnabled != nil || p.ScheduleStartTime != nil ||
		p.ScheduleStopEnabled != nil || p.ScheduleStopTime != nil {
		sched := c.Snapshot().Schedule()
		if p.ScheduleStartEnabled != nil {
			sched.StartEnabled = *p.ScheduleStartEnabled
		}
		if p.ScheduleStartTime != nil {
			sched.Start = *p.ScheduleStartTime
		}
		if p.ScheduleStopEnabled != nil {
			sched.StopEnabled = *p.ScheduleStopEnabled
		}
		if p.ScheduleStopTime != nil {
			sched.Stop = *p.ScheduleStopTime
		}
		if err := c.SetSchedule(sched); err != nil {
			return err
		}
	}
	if p.TargetInputKey != nil {
		if err := c.SetTarget(*p.TargetInputKey); err != nil {
			return err
		}
	}
	if p.StartStopKeybind != nil {
		if err := c.SetHotkey(*p.StartStopKeybind); err != nil {
			return err
		}
	}
	if p.SequenceModeActive != nil {
		if err := c.SetSequenceMode(*p.SequenceModeActive); err != nil {
			return err
		}
	}
	if p.ConfigFolderPath != nil {
		if err := c.SetConfigFolder(*p.ConfigFolderPath); err != nil {
			return err
		}
	}
	return nil
}

func (s *Server) handleSettings(w http.ResponseWriter, r *http.Request) {
	var p Settings
	if err := decodeBody(r, &p); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	s.call(w, r, func(c *runner.Controller) error { return c.Update(p.apply) })
}

func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	var cfg config.Config
	err := s.dispatch.Call(r.Context(), func() error {
		cfg = s.ctrl.Snapshot()
		return nil
	})
	if err != nil {
		s.writeControllerError(w, err)
		return
	}
	data, err := config.Encode(cfg)
	if err != nil {
		s.writeControllerError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// handlePutConfig replaces every setting with the posted document.
func (s *Server) handlePutConfig(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxBody))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	cfg, err := config.Decode(data)
	if err != nil {
		s.writeControllerError(w, err)
		return
	}
	s.call(w, r, func(c *runner.Controller) error { return c.Apply(cfg) })
}

func (s *Server) handleSaveConfig(w http.ResponseWriter, r *http.Request) {
	var paths []string
	err := s.dispatch.Call(r.Context(), func() error {
		var err error
		paths, err = s.configs.Persist(s.ctrl.Snapshot())
		metrics.IncConfigSave(err)
		if err != nil {
			return err
		}
		s.ctrl.MarkSaved()
		return nil
	})
	if err != nil {
		s.writeControllerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{"paths": paths})
}

// handleLoadConfig reloads the file in the config folder, or the managed
// file when no folder is set.
func (s *Server) handleLoadConfig(w http.ResponseWriter, r *http.Request) {
	s.call(w, r, func(c *runner.Controller) error {
		source := "managed"
		var cfg config.Config
		var err error
		if path := config.StartupPath(c.Snapshot()); path != "" {
			source = "folder"
			cfg, err = config.ReadFile(path)
		} else {
			cfg, err = s.configs.Load()
		}
		if err == nil {
			err = c.Apply(cfg)
		}
		metrics.IncConfigLoad(source, err)
		if err != nil {
			return err
		}
		c.MarkSaved()
		return nil
	})
}
