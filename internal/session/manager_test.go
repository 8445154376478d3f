package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mind-engage/rapidrate/internal/rating"
)

type memSink struct {
	mu      sync.Mutex
	results []rating.TrialResult
	commits map[string][]rating.CommitLogEntry
	fail    error
}

func newMemSink() *memSink {
	return &memSink{commits: map[string][]rating.CommitLogEntry{}}
}

func (s *memSink) SaveResult(_ context.Context, r rating.TrialResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return s.fail
	}
	s.results = append(s.results, r)
	return nil
}

func (s *memSink) AppendCommit(_ context.Context, id string, e rating.CommitLogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.commits[id] = append(s.commits[id], e)
	return nil
}

func (s *memSink) savedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.results)
}

func params(items ...string) rating.Params {
	p := rating.DefaultParams()
	p.Items = items
	return p
}

var geom = rating.Geometry{Left: 0, Width: 100}

func rate(t *testing.T, m *Manager, id, item string, v float64) {
	t.Helper()
	_, err := m.Pointer(id, []rating.PointerEvent{
		{Surface: rating.SurfaceTrack, Type: rating.EventEnter, Item: item},
		{Surface: rating.SurfaceTrack, Type: rating.EventMove, Item: item, X: v},
		{Surface: rating.SurfaceTrack, Type: rating.EventClick, Item: item},
		{Surface: rating.SurfaceTrack, Type: rating.EventLeave, Item: item},
	})
	require.NoError(t, err)
}

func TestCreateAndFinalizePersists(t *testing.T) {
	sink := newMemSink()
	m := NewManager(sink)
	ctx := context.Background()

	p := params("A", "B")
	p.LogCommits = true
	tr, err := m.Create(ctx, p)
	require.NoError(t, err)
	require.NotEmpty(t, tr.ID())

	_, err = m.Layout(tr.ID(), geom)
	require.NoError(t, err)
	rate(t, m, tr.ID(), "A", 73)
	_, err = m.Pointer(tr.ID(), []rating.PointerEvent{
		{Surface: rating.SurfaceNone, Type: rating.EventClick, Item: "B"},
	})
	require.NoError(t, err)

	out, err := m.Fire(ctx, tr.ID(), rating.TriggerKey, rating.DefaultSubmitKey)
	require.NoError(t, err)
	require.Equal(t, rating.OutcomeFinalized, out.Status)

	require.Equal(t, 1, sink.savedCount())
	assert.Equal(t, tr.ID(), sink.results[0].TrialID)
	assert.Len(t, sink.commits[tr.ID()], 2)

	r, ok := m.Shadows().Lookup("A")
	require.True(t, ok)
	assert.Equal(t, rating.Scaled(73), r)
}

func TestCreateRejectsBadItems(t *testing.T) {
	m := NewManager(nil)
	_, err := m.Create(context.Background(), params("A", "A"))
	assert.ErrorIs(t, err, rating.ErrInvalidItems)
	assert.Equal(t, 0, m.Len())
}

func TestUnknownTrial(t *testing.T) {
	m := NewManager(nil)
	_, err := m.Get("missing")
	assert.ErrorIs(t, err, ErrTrialNotFound)
	_, err = m.Fire(context.Background(), "missing", rating.TriggerKey, 32)
	assert.ErrorIs(t, err, ErrTrialNotFound)
}

func TestPointerStopsAtFirstError(t *testing.T) {
	m := NewManager(nil)
	tr, err := m.Create(context.Background(), params("A"))
	require.NoError(t, err)
	_, err = m.Layout(tr.ID(), geom)
	require.NoError(t, err)

	views, err := m.Pointer(tr.ID(), []rating.PointerEvent{
		{Surface: rating.SurfaceTrack, Type: rating.EventEnter, Item: "A"},
		{Surface: rating.SurfaceTrack, Type: rating.EventEnter, Item: "Z"},
		{Surface: rating.SurfaceTrack, Type: rating.EventMove, Item: "A", X: 40},
	})
	assert.ErrorIs(t, err, rating.ErrUnknownItem)
	assert.Len(t, views, 1)

	v, err := tr.Item("A")
	require.NoError(t, err)
	assert.Equal(t, 0, v.Fill)
}

func TestTimeoutIsNotParticipantTrigger(t *testing.T) {
	m := NewManager(nil)
	tr, err := m.Create(context.Background(), params("A"))
	require.NoError(t, err)
	_, err = m.Fire(context.Background(), tr.ID(), rating.TriggerTimeout, 0)
	assert.Error(t, err)
}

func TestPresets(t *testing.T) {
	preset := params("X", "Y")
	preset.AllowNone = false
	m := NewManager(nil, WithPresets(map[string]rating.Params{"colors": preset, "basic": params("A")}))

	assert.Equal(t, []string{"basic", "colors"}, m.PresetNames())

	tr, err := m.CreateFromPreset(context.Background(), "colors", []byte(`{"allowBlank":true}`))
	require.NoError(t, err)
	p := tr.Params()
	assert.Equal(t, []string{"X", "Y"}, p.Items)
	assert.False(t, p.AllowNone)
	assert.True(t, p.AllowBlank)

	_, err = m.CreateFromPreset(context.Background(), "nope", nil)
	assert.ErrorIs(t, err, ErrUnknownPreset)
}

func TestSinkFailureDoesNotBlockFinalize(t *testing.T) {
	sink := newMemSink()
	sink.fail = errors.New("disk full")
	m := NewManager(sink)
	ctx := context.Background()

	p := params("A")
	p.AllowBlank = true
	tr, err := m.Create(ctx, p)
	require.NoError(t, err)
	_, err = m.Layout(tr.ID(), geom)
	require.NoError(t, err)

	out, err := m.Fire(ctx, tr.ID(), rating.TriggerKey, rating.DefaultSubmitKey)
	require.NoError(t, err)
	assert.Equal(t, rating.OutcomeFinalized, out.Status)
	_, ok := tr.Result()
	assert.True(t, ok)
}

func TestTimeoutPersistsResult(t *testing.T) {
	sink := newMemSink()
	m := NewManager(sink)
	p := params("A")
	p.AllowBlank = true
	p.SubmitTimeout = 0.05
	tr, err := m.Create(context.Background(), p)
	require.NoError(t, err)
	_, err = m.Layout(tr.ID(), geom)
	require.NoError(t, err)

	require.Eventually(t, func() bool { return sink.savedCount() == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, rating.TriggerTimeout, sink.results[0].Trigger)
}

func TestSweepFinalized(t *testing.T) {
	m := NewManager(nil)
	ctx := context.Background()

	p := params("A")
	p.AllowBlank = true
	done, err := m.Create(ctx, p)
	require.NoError(t, err)
	live, err := m.Create(ctx, p)
	require.NoError(t, err)
	_, err = m.Layout(done.ID(), geom)
	require.NoError(t, err)
	_, err = m.Fire(ctx, done.ID(), rating.TriggerKey, rating.DefaultSubmitKey)
	require.NoError(t, err)

	assert.Equal(t, 0, m.SweepFinalized(time.Hour))
	assert.Equal(t, 1, m.SweepFinalized(-time.Second))
	_, err = m.Get(done.ID())
	assert.ErrorIs(t, err, ErrTrialNotFound)
	_, err = m.Get(live.ID())
	assert.NoError(t, err)

	assert.True(t, m.Forget(live.ID()))
	assert.False(t, m.Forget(live.ID()))
}

// stepClock is a settable wall clock; timers still run on real time.
type stepClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *stepClock) AfterFunc(d time.Duration, f func()) rating.Timer {
	return time.AfterFunc(d, f)
}

func (c *stepClock) add(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func TestSweepIdleDropsAbandonedTrials(t *testing.T) {
	clk := &stepClock{now: time.Date(2024, 5, 2, 9, 0, 0, 0, time.UTC)}
	m := NewManager(nil, WithClock(clk))
	ctx := context.Background()

	p := params("A")
	p.AllowBlank = true
	pending, err := m.Create(ctx, p)
	require.NoError(t, err)
	abandoned, err := m.Create(ctx, p)
	require.NoError(t, err)
	active, err := m.Create(ctx, p)
	require.NoError(t, err)
	done, err := m.Create(ctx, p)
	require.NoError(t, err)

	_, err = m.Layout(abandoned.ID(), geom)
	require.NoError(t, err)
	_, err = m.Layout(done.ID(), geom)
	require.NoError(t, err)
	_, err = m.Fire(ctx, done.ID(), rating.TriggerKey, rating.DefaultSubmitKey)
	require.NoError(t, err)

	clk.add(50 * time.Minute)
	_, err = m.Layout(active.ID(), geom)
	require.NoError(t, err)
	clk.add(20 * time.Minute)

	assert.Equal(t, 2, m.SweepIdle(time.Hour))
	for _, tr := range []*rating.Trial{pending, abandoned} {
		_, err = m.Get(tr.ID())
		assert.ErrorIs(t, err, ErrTrialNotFound)
	}
	_, err = m.Get(active.ID())
	assert.NoError(t, err)
	_, err = m.Get(done.ID())
	assert.NoError(t, err, "finalized trials are left to SweepFinalized")
	assert.Equal(t, 2, m.Len())
}
