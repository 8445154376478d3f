package results

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mind-engage/rapidrate/internal/rating"
)

// AppendCommit streams one commit-log entry. Entries of a trial keep their
// append order through the seq column.
func (s *SQLStore) AppendCommit(ctx context.Context, trialID string, e rating.CommitLogEntry) error {
	v, err := json.Marshal(e.Value)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO commit_log (trial_id, offset_ms, item, value_json, created_at)
		 VALUES ($1,$2,$3,$4,$5)`,
		trialID, e.TimeOffsetMs, e.Item, string(v), s.now().Unix())
	if err != nil {
		return fmt.Errorf("append commit for %s: %w", trialID, err)
	}
	return nil
}

// CommitsFor returns the streamed commits of a trial in append order. Trials
// that are still running, or were abandoned, have commits here but no result.
func (s *SQLStore) CommitsFor(ctx context.Context, trialID string) ([]rating.CommitLogEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT offset_ms, item, value_json FROM commit_log WHERE trial_id=$1 ORDER BY offset_ms ASC, seq ASC`, trialID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []rating.CommitLogEntry{}
	for rows.Next() {
		var (
			e rating.CommitLogEntry
			v string
		)
		if err := rows.Scan(&e.TimeOffsetMs, &e.Item, &v); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(v), &e.Value); err != nil {
			return nil, fmt.Errorf("decode commit value: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
