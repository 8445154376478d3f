package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/mind-engage/rapidrate/internal/rating"
	"github.com/mind-engage/rapidrate/internal/results"
	"github.com/mind-engage/rapidrate/internal/session"
)

func statusFor(err error) int {
	switch {
	case errors.Is(err, session.ErrTrialNotFound),
		errors.Is(err, results.ErrResultNotFound):
		return http.StatusNotFound
	case errors.Is(err, session.ErrUnknownPreset),
		errors.Is(err, rating.ErrInvalidItems),
		errors.Is(err, rating.ErrInvalidParams),
		errors.Is(err, rating.ErrUnknownItem),
		errors.Is(err, rating.ErrUnknownEvent),
		errors.Is(err, rating.ErrBadGeometry),
		errors.Is(err, rating.ErrNoneNotAllowed):
		return http.StatusBadRequest
	case errors.Is(err, rating.ErrNotLaidOut),
		errors.Is(err, rating.ErrAlreadyLaidOut),
		errors.Is(err, rating.ErrFinalized):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

func writeErr(w http.ResponseWriter, err error) {
	http.Error(w, err.Error(), statusFor(err))
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if v, err := strconv.Atoi(s); err == nil && v >= 0 {
		return v
	}
	return def
}
