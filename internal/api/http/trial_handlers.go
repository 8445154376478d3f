package http

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/mind-engage/rapidrate/internal/rating"
	"github.com/mind-engage/rapidrate/internal/session"
)

// POST /trials  { "preset": "name", "params": {...} }
// With a preset, params only override the options they name.
func CreateTrialHandler(m *session.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Preset string          `json:"preset"`
			Params json.RawMessage `json:"params"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		var (
			t   *rating.Trial
			err error
		)
		if name := strings.TrimSpace(req.Preset); name != "" {
			t, err = m.CreateFromPreset(r.Context(), name, req.Params)
		} else {
			if len(req.Params) == 0 {
				http.Error(w, "params or preset required", http.StatusBadRequest)
				return
			}
			var p rating.Params
			if err := json.Unmarshal(req.Params, &p); err != nil {
				http.Error(w, "bad params: "+err.Error(), http.StatusBadRequest)
				return
			}
			t, err = m.Create(r.Context(), p)
		}
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, t.View())
	}
}

func GetTrialHandler(m *session.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		t, err := m.Get(chi.URLParam(r, "trialID"))
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, t.View())
	}
}

// POST /trials/{trialID}/layout  { "left": 12.5, "width": 640 }
func LayoutHandler(m *session.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var g rating.Geometry
		if err := json.NewDecoder(r.Body).Decode(&g); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		v, err := m.Layout(chi.URLParam(r, "trialID"), g)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, v)
	}
}

// POST /trials/{trialID}/events  { "events": [ {surface,type,item,x}, ... ] }
// Events apply in order; the first failing event stops the batch and the
// response carries the views of the events that did apply.
func PointerEventsHandler(m *session.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Events []rating.PointerEvent `json:"events"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		views, err := m.Pointer(chi.URLParam(r, "trialID"), req.Events)
		if err != nil {
			writeJSON(w, statusFor(err), map[string]any{"error": err.Error(), "applied": views})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"applied": views})
	}
}

// POST /trials/{trialID}/keys  { "code": 32 }
func KeyHandler(m *session.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Code *int `json:"code"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Code == nil {
			http.Error(w, "code required", http.StatusBadRequest)
			return
		}
		fire(w, r, m, rating.TriggerKey, *req.Code)
	}
}

// POST /trials/{trialID}/submit
func SubmitButtonHandler(m *session.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		fire(w, r, m, rating.TriggerButton, 0)
	}
}

// POST /trials/{trialID}/secondary
func SecondaryActivationHandler(m *session.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		fire(w, r, m, rating.TriggerSecondary, 0)
	}
}

// fire answers 200 for every outcome: a rejected submission is an expected
// state the client renders, not an error.
func fire(w http.ResponseWriter, r *http.Request, m *session.Manager, tr rating.Trigger, key int) {
	out, err := m.Fire(r.Context(), chi.URLParam(r, "trialID"), tr, key)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// DELETE /trials/{trialID} drops a trial from memory. Stored results and
// commits are kept.
func ForgetTrialHandler(m *session.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !m.Forget(chi.URLParam(r, "trialID")) {
			writeErr(w, session.ErrTrialNotFound)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
