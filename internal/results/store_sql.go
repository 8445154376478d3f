// Package results persists finalized trial results and streamed commit-log
// events.
package results

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mind-engage/rapidrate/internal/rating"
)

var ErrResultNotFound = errors.New("result not found")

type ListOpts struct {
	Since  time.Time // finished at or after; zero means all
	Limit  int
	Offset int
}

type SQLStore struct {
	db  *sql.DB
	now func() time.Time
}

func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db, now: time.Now}
}

// SaveResult stores a result once. Results are immutable, so a second save
// for the same trial is ignored.
func (s *SQLStore) SaveResult(ctx context.Context, r rating.TrialResult) error {
	rj, err := json.Marshal(r.Ratings)
	if err != nil {
		return err
	}
	var logJSON sql.NullString
	if r.CommitLog != nil {
		b, err := json.Marshal(r.CommitLog)
		if err != nil {
			return err
		}
		logJSON = sql.NullString{String: string(b), Valid: true}
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO trial_results
		(trial_id,ratings_json,allowed_none,allowed_blank,rt_ms,trigger_name,commit_log_json,finished_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		ON CONFLICT (trial_id) DO NOTHING`,
		r.TrialID, string(rj), boolInt(r.AllowedNone), boolInt(r.AllowedBlank),
		r.ReactionTimeMs, string(r.Trigger), logJSON, r.FinishedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("insert result %s: %w", r.TrialID, err)
	}
	return nil
}

const resultCols = `trial_id,ratings_json,allowed_none,allowed_blank,rt_ms,trigger_name,commit_log_json,finished_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanResult(row scanner) (rating.TrialResult, error) {
	var (
		r                  rating.TrialResult
		rjson              string
		allowNone, allowBl int
		trigger            string
		logJSON            sql.NullString
		finished           int64
	)
	if err := row.Scan(&r.TrialID, &rjson, &allowNone, &allowBl, &r.ReactionTimeMs, &trigger, &logJSON, &finished); err != nil {
		return rating.TrialResult{}, err
	}
	if err := json.Unmarshal([]byte(rjson), &r.Ratings); err != nil {
		return rating.TrialResult{}, fmt.Errorf("decode ratings of %s: %w", r.TrialID, err)
	}
	if logJSON.Valid {
		r.CommitLog = []rating.CommitLogEntry{}
		if err := json.Unmarshal([]byte(logJSON.String), &r.CommitLog); err != nil {
			return rating.TrialResult{}, fmt.Errorf("decode commit log of %s: %w", r.TrialID, err)
		}
	}
	r.AllowedNone = allowNone != 0
	r.AllowedBlank = allowBl != 0
	r.Trigger = rating.Trigger(trigger)
	r.FinishedAt = time.UnixMilli(finished).UTC()
	return r, nil
}

func (s *SQLStore) GetResult(ctx context.Context, trialID string) (rating.TrialResult, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+resultCols+` FROM trial_results WHERE trial_id=$1`, trialID)
	r, err := scanResult(row)
	if errors.Is(err, sql.ErrNoRows) {
		return rating.TrialResult{}, ErrResultNotFound
	}
	return r, err
}

// ListResults returns results oldest first.
func (s *SQLStore) ListResults(ctx context.Context, opts ListOpts) ([]rating.TrialResult, error) {
	limit := opts.Limit
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	offset := opts.Offset
	if offset < 0 {
		offset = 0
	}
	var since int64
	if !opts.Since.IsZero() {
		since = opts.Since.UnixMilli()
	}
	rows, err := s.db.QueryContext(ctx, `SELECT `+resultCols+` FROM trial_results
		WHERE finished_at >= $1 ORDER BY finished_at ASC, trial_id ASC LIMIT $2 OFFSET $3`,
		since, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []rating.TrialResult{}
	for rows.Next() {
		r, err := scanResult(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
