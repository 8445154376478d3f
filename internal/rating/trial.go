package rating

import (
	"fmt"
	"sync"
	"time"
)

// State is the submission state of a trial.
type State string

const (
	// StatePending: rendered but not laid out; geometry is unknown.
	StatePending     State = "pending"
	StateInteractive State = "interactive"
	StateFinalized   State = "finalized"
)

// Trigger names the mechanism that attempted a submission.
type Trigger string

const (
	TriggerKey       Trigger = "key"
	TriggerButton    Trigger = "button"
	TriggerSecondary Trigger = "secondary"
	TriggerTimeout   Trigger = "timeout"
)

// OutcomeStatus is the result of one trigger firing.
type OutcomeStatus string

const (
	// OutcomeIgnored: the trigger is not armed (wrong key, disabled control,
	// or the trial is already finalized).
	OutcomeIgnored OutcomeStatus = "ignored"
	// OutcomeRejected: validation failed; Missing lists the flagged items.
	OutcomeRejected  OutcomeStatus = "rejected"
	OutcomeFinalized OutcomeStatus = "finalized"
)

type Outcome struct {
	Status  OutcomeStatus `json:"status"`
	Trigger Trigger       `json:"trigger"`
	Missing []string      `json:"missing,omitempty"`
	Result  *TrialResult  `json:"result,omitempty"`
}

// TrialResult is produced once, when a submission passes validation.
type TrialResult struct {
	TrialID        string           `json:"trialId"`
	Ratings        Ratings          `json:"ratings"`
	AllowedNone    bool             `json:"allowedNone"`
	AllowedBlank   bool             `json:"allowedBlank"`
	ReactionTimeMs int64            `json:"rt"`
	Trigger        Trigger          `json:"trigger"`
	CommitLog      []CommitLogEntry `json:"commitLog"` // nil unless commits are logged
	FinishedAt     time.Time        `json:"finishedAt"`
}

// Option configures a Trial.
type Option func(*Trial)

func WithID(id string) Option             { return func(t *Trial) { t.id = id } }
func WithClock(c Clock) Option            { return func(t *Trial) { t.clock = c } }
func WithShadowBook(b *ShadowBook) Option { return func(t *Trial) { t.shadows = b } }

// WithFinishHandler registers the host callback that receives the result.
// It runs once, outside the trial lock.
func WithFinishHandler(f func(TrialResult)) Option {
	return func(t *Trial) { t.onFinish = f }
}

// WithCommitObserver receives every commit log entry as it is appended.
// Only called when the trial logs commits.
func WithCommitObserver(f func(trialID string, e CommitLogEntry)) Option {
	return func(t *Trial) { t.onCommit = f }
}

// Trial owns the items of one rating session and the triggers that submit it.
// All methods are safe for concurrent use; they are serialized on one lock,
// so pointer events, key presses and the timeout are processed one at a time
// in arrival order.
type Trial struct {
	mu sync.Mutex
	// deliverMu orders host callbacks: it is taken before mu is released, so
	// callbacks run in the order their events were applied. Callbacks must
	// not call back into the trial.
	deliverMu sync.Mutex

	id      string
	params  Params
	clock   Clock
	shadows *ShadowBook

	onFinish func(TrialResult)
	onCommit func(string, CommitLogEntry)

	items  []*ItemState
	byName map[string]*ItemState

	state   State
	geom    Geometry
	started time.Time
	log     *CommitLog
	result  *TrialResult

	buttonArmed    bool
	secondaryArmed bool
	keyArmed       bool
	timer          Timer

	// callbacks queued under the lock, run after it is released
	deferred []func()
}

// NewTrial builds a trial in the pending state. Ratings start Unset, or None
// when defaultNone is set and none ratings are allowed.
func NewTrial(p Params, opts ...Option) (*Trial, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	t := &Trial{
		params: p,
		clock:  SystemClock,
		state:  StatePending,
		byName: make(map[string]*ItemState, len(p.Items)),
	}
	for _, o := range opts {
		o(t)
	}
	if p.LogCommits {
		t.log = &CommitLog{}
	}
	initial := Unset()
	if p.DefaultNone && p.AllowNone {
		initial = NoneRating()
	}
	t.items = make([]*ItemState, len(p.Items))
	for i, label := range p.Items {
		it := newItemState(t, i, label, initial)
		t.items[i] = it
		t.byName[label] = it
	}
	return t, nil
}

func (t *Trial) ID() string { return t.id }

// Params returns the normalized parameter set.
func (t *Trial) Params() Params {
	p := t.params
	p.Items = append([]string(nil), p.Items...)
	return p
}

func (t *Trial) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Layout records the measured track geometry and makes the trial
// interactive: the trial clock starts, shadow markers are sized and the
// triggers are armed.
func (t *Trial) Layout(g Geometry) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	switch t.state {
	case StateFinalized:
		return ErrFinalized
	case StateInteractive:
		return ErrAlreadyLaidOut
	}
	if !g.valid() {
		return ErrBadGeometry
	}
	t.geom = g
	t.started = t.clock.Now()
	if t.params.ShowShadows {
		for _, it := range t.items {
			r, ok := t.shadows.Lookup(it.label)
			if !ok || (r.IsNone() && it.none == nil) {
				continue
			}
			it.shadow = markerFor(r, g)
		}
	}
	t.keyArmed = true
	t.buttonArmed = t.params.SubmitButton
	t.secondaryArmed = t.params.RightClickSubmit
	if d, ok := t.params.Timeout(); ok {
		t.timer = t.clock.AfterFunc(d, t.timeout)
	}
	t.state = StateInteractive
	return nil
}

// Surface identifies which of an item's two surfaces an event targets.
type Surface string

const (
	SurfaceTrack Surface = "track"
	SurfaceNone  Surface = "none"
)

type EventType string

const (
	EventEnter EventType = "enter"
	EventMove  EventType = "move"
	EventClick EventType = "click"
	EventLeave EventType = "leave"
)

// PointerEvent is one pointer event on an item surface. X is only read for
// moves on the track.
type PointerEvent struct {
	Surface Surface   `json:"surface"`
	Type    EventType `json:"type"`
	Item    string    `json:"item"`
	X       float64   `json:"x,omitempty"`
}

// Pointer applies ev to the addressed surface and returns the item's view.
func (t *Trial) Pointer(ev PointerEvent) (ItemView, error) {
	t.mu.Lock()
	view, err := t.pointerLocked(ev)
	t.unlockAndDeliver()
	return view, err
}

func (t *Trial) pointerLocked(ev PointerEvent) (ItemView, error) {
	switch t.state {
	case StatePending:
		return ItemView{}, ErrNotLaidOut
	case StateFinalized:
		return ItemView{}, ErrFinalized
	}
	it, ok := t.byName[ev.Item]
	if !ok {
		return ItemView{}, fmt.Errorf("%w: %q", ErrUnknownItem, ev.Item)
	}
	switch ev.Surface {
	case SurfaceTrack:
		switch ev.Type {
		case EventEnter:
			it.track.Enter()
		case EventMove:
			it.track.Move(ev.X)
		case EventClick:
			it.track.Click()
		case EventLeave:
			it.track.Leave()
		default:
			return ItemView{}, fmt.Errorf("%w: %s on %s", ErrUnknownEvent, ev.Type, ev.Surface)
		}
	case SurfaceNone:
		if it.none == nil {
			return ItemView{}, ErrNoneNotAllowed
		}
		switch ev.Type {
		case EventEnter:
			it.none.Enter()
		case EventClick:
			it.none.Click()
		case EventLeave:
			it.none.Leave()
		default:
			return ItemView{}, fmt.Errorf("%w: %s on %s", ErrUnknownEvent, ev.Type, ev.Surface)
		}
	default:
		return ItemView{}, fmt.Errorf("%w: surface %q", ErrUnknownEvent, ev.Surface)
	}
	return it.View(), nil
}

func (t *Trial) recordCommit(item string, r Rating) {
	if t.log == nil {
		return
	}
	e := CommitLogEntry{TimeOffsetMs: t.elapsedMs(), Item: item, Value: r}
	t.log.append(e)
	if t.onCommit != nil {
		e = t.log.entries[len(t.log.entries)-1]
		id, f := t.id, t.onCommit
		t.deferred = append(t.deferred, func() { f(id, e) })
	}
}

func (t *Trial) elapsedMs() int64 {
	ms := t.clock.Now().Sub(t.started).Milliseconds()
	if ms < 0 {
		return 0
	}
	return ms
}

// PressKey fires the key trigger. Keys other than the submit key are ignored.
func (t *Trial) PressKey(code int) (Outcome, error) {
	return t.fire(TriggerKey, func() bool { return t.keyArmed && code == t.params.SubmitKey })
}

// ClickSubmit fires the submit control trigger.
func (t *Trial) ClickSubmit() (Outcome, error) {
	return t.fire(TriggerButton, func() bool { return t.buttonArmed })
}

// SecondaryActivate fires the whole-surface secondary activation trigger.
func (t *Trial) SecondaryActivate() (Outcome, error) {
	return t.fire(TriggerSecondary, func() bool { return t.secondaryArmed })
}

func (t *Trial) timeout() {
	_, _ = t.fire(TriggerTimeout, func() bool {
		armed := t.timer != nil
		t.timer = nil
		return armed
	})
}

// fire is the single consumer every trigger feeds.
func (t *Trial) fire(tr Trigger, armed func() bool) (Outcome, error) {
	t.mu.Lock()
	var (
		out Outcome
		err error
	)
	switch t.state {
	case StatePending:
		err = ErrNotLaidOut
	case StateFinalized:
		out = Outcome{Status: OutcomeIgnored, Trigger: tr}
	default:
		if !armed() {
			out = Outcome{Status: OutcomeIgnored, Trigger: tr}
		} else {
			out = t.attemptSubmit(tr)
		}
	}
	t.unlockAndDeliver()
	return out, err
}

func (t *Trial) attemptSubmit(tr Trigger) Outcome {
	var missing []string
	ratings := make(Ratings, 0, len(t.items))
	for _, it := range t.items {
		if it.value.IsUnset() && !t.params.AllowBlank {
			it.missing = true
			missing = append(missing, it.label)
		}
		ratings = append(ratings, ItemRating{Item: it.label, Rating: it.value})
	}
	if len(missing) > 0 {
		return Outcome{Status: OutcomeRejected, Trigger: tr, Missing: missing}
	}

	t.disarm()
	now := t.clock.Now()
	res := TrialResult{
		TrialID:        t.id,
		Ratings:        ratings,
		AllowedNone:    t.params.AllowNone,
		AllowedBlank:   t.params.AllowBlank,
		ReactionTimeMs: t.elapsedMs(),
		Trigger:        tr,
		FinishedAt:     now,
	}
	if t.log != nil {
		res.CommitLog = t.log.Entries()
		if res.CommitLog == nil {
			res.CommitLog = []CommitLogEntry{}
		}
	}
	t.result = &res
	t.state = StateFinalized
	t.shadows.Replace(ratings)
	if t.onFinish != nil {
		f, r := t.onFinish, res
		t.deferred = append(t.deferred, func() { f(r) })
	}
	cp := res
	return Outcome{Status: OutcomeFinalized, Trigger: tr, Result: &cp}
}

func (t *Trial) disarm() {
	t.keyArmed = false
	t.buttonArmed = false
	t.secondaryArmed = false
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
}

// unlockAndDeliver releases mu and runs the callbacks queued under it.
func (t *Trial) unlockAndDeliver() {
	fs := t.deferred
	t.deferred = nil
	if len(fs) == 0 {
		t.mu.Unlock()
		return
	}
	t.deliverMu.Lock()
	t.mu.Unlock()
	defer t.deliverMu.Unlock()
	for _, f := range fs {
		f()
	}
}

// Result returns the finalized result, if any.
func (t *Trial) Result() (TrialResult, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.result == nil {
		return TrialResult{}, false
	}
	return *t.result, true
}

// CommitLog returns a copy of the commit log, or nil when commits are not
// logged.
func (t *Trial) CommitLog() []CommitLogEntry {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.log == nil {
		return nil
	}
	return t.log.Entries()
}

// Item returns the view of one item.
func (t *Trial) Item(label string) (ItemView, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	it, ok := t.byName[label]
	if !ok {
		return ItemView{}, fmt.Errorf("%w: %q", ErrUnknownItem, label)
	}
	return it.View(), nil
}

// View is a render snapshot of a whole trial.
type View struct {
	ID           string       `json:"id"`
	State        State        `json:"state"`
	Params       Params       `json:"params"`
	Geometry     *Geometry    `json:"geometry,omitempty"`
	Items        []ItemView   `json:"items"`
	TimeoutArmed bool         `json:"timeoutArmed"`
	Result       *TrialResult `json:"result,omitempty"`
}

func (t *Trial) View() View {
	t.mu.Lock()
	defer t.mu.Unlock()
	v := View{
		ID:           t.id,
		State:        t.state,
		Params:       t.Params(),
		Items:        make([]ItemView, len(t.items)),
		TimeoutArmed: t.timer != nil,
	}
	if t.state != StatePending {
		g := t.geom
		v.Geometry = &g
	}
	for i, it := range t.items {
		v.Items[i] = it.View()
	}
	if t.result != nil {
		r := *t.result
		v.Result = &r
	}
	return v
}
