package results

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mind-engage/rapidrate/internal/rating"
	"github.com/mind-engage/rapidrate/internal/storage"
)

const exportPage = 500

// ExportRecord is one exported file: the result plus every commit streamed
// for the trial, which can include commits of rejected submission attempts
// that the result's own log also holds.
type ExportRecord struct {
	Result   rating.TrialResult      `json:"result"`
	Streamed []rating.CommitLogEntry `json:"streamedCommits"`
}

type ExportManifest struct {
	ExportedAt time.Time `json:"exportedAt"`
	Since      time.Time `json:"since,omitempty"`
	Keys       []string  `json:"keys"`
}

// Export writes every result finished at or after since to the blob store as
// results/<trialID>.json and finishes with results/index.json listing them.
func (s *SQLStore) Export(ctx context.Context, bs storage.BlobStore, since time.Time) (ExportManifest, error) {
	m := ExportManifest{ExportedAt: s.now().UTC(), Since: since, Keys: []string{}}
	for offset := 0; ; offset += exportPage {
		page, err := s.ListResults(ctx, ListOpts{Since: since, Limit: exportPage, Offset: offset})
		if err != nil {
			return m, fmt.Errorf("list results: %w", err)
		}
		for _, r := range page {
			streamed, err := s.CommitsFor(ctx, r.TrialID)
			if err != nil {
				return m, fmt.Errorf("commits for %s: %w", r.TrialID, err)
			}
			key, err := putJSON(ctx, bs, "results/"+r.TrialID+".json", ExportRecord{Result: r, Streamed: streamed})
			if err != nil {
				return m, fmt.Errorf("export %s: %w", r.TrialID, err)
			}
			m.Keys = append(m.Keys, key)
		}
		if len(page) < exportPage {
			break
		}
	}
	if _, err := putJSON(ctx, bs, "results/index.json", m); err != nil {
		return m, fmt.Errorf("write manifest: %w", err)
	}
	return m, nil
}

func putJSON(ctx context.Context, bs storage.BlobStore, key string, v any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	return bs.Put(ctx, key, &buf)
}
