package http

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mind-engage/rapidrate/internal/rating"
	"github.com/mind-engage/rapidrate/internal/results"
	"github.com/mind-engage/rapidrate/internal/session"
)

// ResultReader is the read side of the result store.
type ResultReader interface {
	GetResult(ctx context.Context, trialID string) (rating.TrialResult, error)
	ListResults(ctx context.Context, opts results.ListOpts) ([]rating.TrialResult, error)
	CommitsFor(ctx context.Context, trialID string) ([]rating.CommitLogEntry, error)
}

// GET /results?since=RFC3339&limit=100&offset=0
func ListResultsHandler(store ResultReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		opts := results.ListOpts{
			Limit:  parseIntDefault(r.URL.Query().Get("limit"), 100),
			Offset: parseIntDefault(r.URL.Query().Get("offset"), 0),
		}
		if s := strings.TrimSpace(r.URL.Query().Get("since")); s != "" {
			since, err := time.Parse(time.RFC3339, s)
			if err != nil {
				http.Error(w, "since must be RFC3339", http.StatusBadRequest)
				return
			}
			opts.Since = since
		}
		list, err := store.ListResults(r.Context(), opts)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

func GetResultHandler(store ResultReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, err := store.GetResult(r.Context(), chi.URLParam(r, "trialID"))
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

// GET /results/{trialID}/commits streams what was logged, including commits
// of trials that never finalized.
func CommitsHandler(store ResultReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := store.CommitsFor(r.Context(), chi.URLParam(r, "trialID"))
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

func ListPresetsHandler(m *session.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, m.Presets())
	}
}

// GET /shadows: the ratings later trials will show as shadows.
func ShadowsHandler(m *session.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, m.Shadows().Snapshot())
	}
}
