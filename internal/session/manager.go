// Package session hosts live rating trials: it creates them from parameter
// sets or presets, routes participant input to them and hands each finalized
// result to the result sink.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/mind-engage/rapidrate/internal/metrics"
	"github.com/mind-engage/rapidrate/internal/rating"
)

var (
	ErrTrialNotFound = errors.New("trial not found")
	ErrUnknownPreset = errors.New("unknown preset")
)

// ResultSink receives finalized results and, for trials that log commits,
// every commit as it happens.
type ResultSink interface {
	SaveResult(ctx context.Context, r rating.TrialResult) error
	AppendCommit(ctx context.Context, trialID string, e rating.CommitLogEntry) error
}

type entry struct {
	trial      *rating.Trial
	createdAt  time.Time
	finishedAt time.Time
	lastSeen   atomic.Int64 // unix nanos of the last lookup
}

// Manager keeps live trials addressable by ID.
type Manager struct {
	mu     sync.RWMutex
	trials map[string]*entry

	shadows *rating.ShadowBook
	presets map[string]rating.Params
	sink    ResultSink
	clock   rating.Clock
	log     *slog.Logger
	metrics *metrics.Metrics

	sinkTimeout time.Duration
}

type Option func(*Manager)

func WithClock(c rating.Clock) Option            { return func(m *Manager) { m.clock = c } }
func WithLogger(l *slog.Logger) Option           { return func(m *Manager) { m.log = l } }
func WithMetrics(mt *metrics.Metrics) Option     { return func(m *Manager) { m.metrics = mt } }
func WithShadowBook(b *rating.ShadowBook) Option { return func(m *Manager) { m.shadows = b } }
func WithPresets(p map[string]rating.Params) Option {
	return func(m *Manager) {
		for k, v := range p {
			m.presets[k] = v
		}
	}
}

// NewManager builds a manager. sink may be nil, in which case results are
// only kept in memory.
func NewManager(sink ResultSink, opts ...Option) *Manager {
	m := &Manager{
		trials:      map[string]*entry{},
		presets:     map[string]rating.Params{},
		sink:        sink,
		clock:       rating.SystemClock,
		log:         slog.Default(),
		sinkTimeout: 5 * time.Second,
	}
	for _, o := range opts {
		o(m)
	}
	if m.shadows == nil {
		m.shadows = rating.NewShadowBook()
	}
	return m
}

// Shadows exposes the process-wide shadow book.
func (m *Manager) Shadows() *rating.ShadowBook { return m.shadows }

// Create registers a new pending trial.
func (m *Manager) Create(ctx context.Context, p rating.Params) (*rating.Trial, error) {
	id := uuid.NewString()
	t, err := rating.NewTrial(p,
		rating.WithID(id),
		rating.WithClock(m.clock),
		rating.WithShadowBook(m.shadows),
		rating.WithFinishHandler(m.finished),
		rating.WithCommitObserver(m.committed),
	)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	e := &entry{trial: t, createdAt: m.clock.Now()}
	e.lastSeen.Store(e.createdAt.UnixNano())
	m.trials[id] = e
	m.mu.Unlock()

	m.metrics.TrialCreated()
	m.log.InfoContext(ctx, "trial created", "trial_id", id, "items", len(p.Items),
		"allow_none", p.AllowNone, "allow_blank", p.AllowBlank, "timeout_sec", p.SubmitTimeout)
	return t, nil
}

// CreateFromPreset creates a trial from a named preset with optional JSON
// overrides applied on top.
func (m *Manager) CreateFromPreset(ctx context.Context, name string, overrides []byte) (*rating.Trial, error) {
	m.mu.RLock()
	p, ok := m.presets[name]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPreset, name)
	}
	p, err := p.Merge(overrides)
	if err != nil {
		return nil, err
	}
	return m.Create(ctx, p)
}

// Presets returns a copy of the preset table.
func (m *Manager) Presets() map[string]rating.Params {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]rating.Params, len(m.presets))
	for k, v := range m.presets {
		out[k] = v
	}
	return out
}

// PresetNames lists preset names in sorted order.
func (m *Manager) PresetNames() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.presets))
	for k := range m.presets {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

func (m *Manager) Get(id string) (*rating.Trial, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.trials[id]
	if !ok {
		return nil, ErrTrialNotFound
	}
	e.lastSeen.Store(m.clock.Now().UnixNano())
	return e.trial, nil
}

// Layout lays out a trial's surfaces, making it interactive.
func (m *Manager) Layout(id string, g rating.Geometry) (rating.View, error) {
	t, err := m.Get(id)
	if err != nil {
		return rating.View{}, err
	}
	if err := t.Layout(g); err != nil {
		return rating.View{}, err
	}
	return t.View(), nil
}

// Pointer applies events in order and stops at the first failing one. It
// returns the views of the items touched, in event order.
func (m *Manager) Pointer(id string, events []rating.PointerEvent) ([]rating.ItemView, error) {
	t, err := m.Get(id)
	if err != nil {
		return nil, err
	}
	views := make([]rating.ItemView, 0, len(events))
	for i, ev := range events {
		v, err := t.Pointer(ev)
		if err != nil {
			return views, fmt.Errorf("event %d: %w", i, err)
		}
		views = append(views, v)
	}
	return views, nil
}

// Fire routes a participant trigger to a trial. key is only read for the key
// trigger. Timeouts fire on their own and cannot be routed here.
func (m *Manager) Fire(ctx context.Context, id string, tr rating.Trigger, key int) (rating.Outcome, error) {
	t, err := m.Get(id)
	if err != nil {
		return rating.Outcome{}, err
	}
	var out rating.Outcome
	switch tr {
	case rating.TriggerKey:
		out, err = t.PressKey(key)
	case rating.TriggerButton:
		out, err = t.ClickSubmit()
	case rating.TriggerSecondary:
		out, err = t.SecondaryActivate()
	default:
		return rating.Outcome{}, fmt.Errorf("trigger %q cannot be fired by a participant", tr)
	}
	if err != nil {
		return out, err
	}
	if out.Status == rating.OutcomeRejected {
		m.metrics.SubmitRejected(string(tr))
		m.log.InfoContext(ctx, "submission rejected", "trial_id", id, "trigger", tr, "missing", out.Missing)
	}
	return out, nil
}

// Forget drops a trial from memory.
func (m *Manager) Forget(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.trials[id]; !ok {
		return false
	}
	delete(m.trials, id)
	return true
}

// SweepFinalized forgets finalized trials that finished more than olderThan
// ago and returns how many were dropped.
func (m *Manager) SweepFinalized(olderThan time.Duration) int {
	cutoff := m.clock.Now().Add(-olderThan)
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for id, e := range m.trials {
		if !e.finishedAt.IsZero() && e.finishedAt.Before(cutoff) {
			delete(m.trials, id)
			n++
		}
	}
	return n
}

// SweepIdle forgets unfinished trials nobody has touched for idleFor, which
// is what a participant closing the page leaves behind. Such a trial's
// timeout, if armed, still fires and is still persisted.
func (m *Manager) SweepIdle(idleFor time.Duration) int {
	cutoff := m.clock.Now().Add(-idleFor).UnixNano()
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for id, e := range m.trials {
		if e.finishedAt.IsZero() && e.lastSeen.Load() < cutoff {
			delete(m.trials, id)
			n++
		}
	}
	return n
}

// Len is the number of trials held in memory.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.trials)
}

// Run sweeps every interval until ctx is done: finalized trials older than
// retain and unfinished trials idle longer than idle. idle <= 0 keeps
// unfinished trials forever.
func (m *Manager) Run(ctx context.Context, interval, retain, idle time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	tk := time.NewTicker(interval)
	defer tk.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-tk.C:
			if n := m.SweepFinalized(retain); n > 0 {
				m.log.Debug("swept finalized trials", "count", n)
			}
			if idle > 0 {
				if n := m.SweepIdle(idle); n > 0 {
					m.log.Info("expired idle trials", "count", n)
				}
			}
		}
	}
}

func (m *Manager) finished(r rating.TrialResult) {
	m.mu.Lock()
	if e, ok := m.trials[r.TrialID]; ok {
		e.finishedAt = r.FinishedAt
	}
	m.mu.Unlock()

	m.metrics.TrialFinalized(string(r.Trigger), r.ReactionTimeMs)
	m.log.Info("trial finalized", "trial_id", r.TrialID, "trigger", r.Trigger, "rt_ms", r.ReactionTimeMs)

	if m.sink == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), m.sinkTimeout)
	defer cancel()
	if err := m.sink.SaveResult(ctx, r); err != nil {
		m.log.Error("save result failed", "trial_id", r.TrialID, "error", err)
	}
}

func (m *Manager) committed(trialID string, e rating.CommitLogEntry) {
	m.metrics.CommitRecorded(e.Value.Kind().String())
	if m.sink == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), m.sinkTimeout)
	defer cancel()
	if err := m.sink.AppendCommit(ctx, trialID, e); err != nil {
		m.log.Error("append commit failed", "trial_id", trialID, "item", e.Item, "error", err)
	}
}
