package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"autoinput/internal/sequence"
)

// SequenceList is the body of GET /api/sequences.
type SequenceList struct {
	Sequences []sequence.Sequence `json:"sequences"`
	Selected  int                 `json:"selected"`
}

func indexParam(r *http.Request) (int, error) {
	raw := chi.URLParam(r, "index")
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: index %q", errBadRequest, raw)
	}
	return n, nil
}

// edit runs fn against the sequence store and writes the resulting list.
func (s *Server) edit(w http.ResponseWriter, r *http.Request, fn func(st *sequence.Store) error) {
	var out SequenceList
	err := s.dispatch.Call(r.Context(), func() error {
		if fn != nil {
			if err := s.ctrl.EditSequences(fn); err != nil {
				return err
			}
		}
		out.Sequences, out.Selected = s.ctrl.Sequences()
		return nil
	})
	if err != nil {
		s.writeControllerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) editAt(w http.ResponseWriter, r *http.Request, fn func(st *sequence.Store, index int) error) {
	index, err := indexParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	s.edit(w, r, func(st *sequence.Store) error { return fn(st, index) })
}

func (s *Server) handleListSequences(w http.ResponseWriter, r *http.Request) {
	s.edit(w, r, nil)
}

func (s *Server) handleCreateSequence(w http.ResponseWriter, r *http.Request) {
	s.edit(w, r, func(st *sequence.Store) error {
		st.Create()
		return nil
	})
}

func (s *Server) handleRemoveSequence(w http.ResponseWriter, r *http.Request) {
	s.editAt(w, r, (*sequence.Store).Remove)
}

func (s *Server) handleRenameSequence(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name string `json:"name"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	s.editAt(w, r, func(st *sequence.Store, index int) error {
		return st.Rename(index, body.Name)
	})
}

func (s *Server) handleSelectSequence(w http.ResponseWriter, r *http.Request) {
	s.editAt(w, r, (*sequence.Store).Select)
}

func (s *Server) handleAddStep(w http.ResponseWriter, r *http.Request) {
	var step sequence.Step
	if err := decodeBody(r, &step); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	s.edit(w, r, func(st *sequence.Store) error { return st.AddStep(step) })
}

func (s *Server) handleUpdateStep(w http.ResponseWriter, r *http.Request) {
	var step sequence.Step
	if err := decodeBody(r, &step); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	s.editAt(w, r, func(st *sequence.Store, index int) error {
		return st.UpdateStep(index, step)
	})
}

func (s *Server) handleRemoveStep(w http.ResponseWriter, r *http.Request) {
	s.editAt(w, r, (*sequence.Store).RemoveStep)
}

func (s *Server) handleMoveStepUp(w http.ResponseWriter, r *http.Request) {
	s.editAt(w, r, (*sequence.Store).MoveUp)
}

func (s *Server) handleMoveStepDown(w http.ResponseWriter, r *http.Request) {
	s.editAt(w, r, (*sequence.Store).MoveDown)
}
