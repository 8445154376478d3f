package results

import (
	"context"
	"encoding/json"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mind-engage/rapidrate/internal/rating"
	"github.com/mind-engage/rapidrate/internal/storage"
)

func TestExportWritesOneFilePerResult(t *testing.T) {
	s := tempStore(t)
	ctx := context.Background()
	base := time.Date(2024, 5, 2, 10, 0, 0, 0, time.UTC)

	require.NoError(t, s.SaveResult(ctx, sampleResult("old", base)))
	require.NoError(t, s.SaveResult(ctx, sampleResult("new", base.Add(time.Hour))))
	require.NoError(t, s.AppendCommit(ctx, "new", rating.CommitLogEntry{TimeOffsetMs: 12, Item: "B", Value: rating.Scaled(73)}))

	bs, err := storage.NewFSStore(t.TempDir())
	require.NoError(t, err)

	m, err := s.Export(ctx, bs, base.Add(30*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, []string{"results/new.json"}, m.Keys)

	rc, err := bs.Get(ctx, "results/new.json")
	require.NoError(t, err)
	defer rc.Close()
	raw, err := io.ReadAll(rc)
	require.NoError(t, err)

	var rec ExportRecord
	require.NoError(t, json.Unmarshal(raw, &rec))
	assert.Equal(t, "new", rec.Result.TrialID)
	require.Len(t, rec.Streamed, 1)
	assert.Equal(t, rating.Scaled(73), rec.Streamed[0].Value)

	_, err = bs.Get(ctx, "results/old.json")
	assert.Error(t, err)

	idx, err := bs.Get(ctx, "results/index.json")
	require.NoError(t, err)
	idx.Close()
}

func TestExportEmptyStore(t *testing.T) {
	s := tempStore(t)
	bs, err := storage.NewFSStore(t.TempDir())
	require.NoError(t, err)
	m, err := s.Export(context.Background(), bs, time.Time{})
	require.NoError(t, err)
	assert.Empty(t, m.Keys)
}
