package player

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/viditforsv/quizplayer/internal/model"
)

// Event names a transition reported to the Observer.
type Event string

const (
	EventStarted     Event = "started"
	EventNavigated   Event = "navigated"
	EventAnswered    Event = "answered"
	EventChecked     Event = "checked"
	EventReset       Event = "reset"
	EventHint        Event = "hint"
	EventExplanation Event = "explanation"
	EventSubmitted   Event = "submitted"
	// EventTicked follows every timer tick that did not submit the quiz.
	EventTicked Event = "ticked"
)

// Observer is called after a transition has been applied, outside the
// player's lock.
type Observer func(ev Event, s State)

// Options configures a Player. Zero values select production defaults
// except TickInterval: a zero interval disables the background ticker.
type Options struct {
	Now          func() time.Time
	NewSessionID func() string
	Recorder     *Recorder
	TickInterval time.Duration
	Observer     Observer
	Logger       *slog.Logger
}

// Player serializes all transitions of one play-through and runs their
// side effects: attempt recording, the timer loop and observer callbacks.
type Player struct {
	opts Options

	mu    sync.Mutex
	state State
	gen   uint64

	ctx    context.Context
	cancel context.CancelFunc
}

// New returns a not-started player for bundle.
func New(bundle model.QuizBundle, opts Options) (*Player, error) {
	st, err := NewState(bundle)
	if err != nil {
		return nil, err
	}
	return newPlayer(st, opts), nil
}

// Restore rebuilds a player from a snapshot. An in-progress play-through
// is resumed against the wall clock: if its time limit passed while it was
// stored it is submitted at once, otherwise its timer keeps running.
func Restore(snap Snapshot, opts Options) (*Player, error) {
	st, err := StateFromSnapshot(snap)
	if err != nil {
		return nil, err
	}
	p := newPlayer(st, opts)
	if p.opts.Recorder != nil && st.SessionID() != "" {
		p.opts.Recorder.MarkRecorded(st.SessionID(), snap.Recorded...)
	}
	if st.Status() != model.StatusInProgress {
		return p, nil
	}

	next, expired := st.Resume(p.opts.Now())
	next.seq = st.seq + 1
	p.mu.Lock()
	p.state = next
	p.gen++
	gen := p.gen
	p.mu.Unlock()

	if expired {
		p.opts.Logger.Info("time limit passed while stored, quiz submitted",
			"session", next.SessionID(), "quiz", next.Quiz().ID)
		p.notify(EventSubmitted, next)
		return p, nil
	}
	p.startTicker(gen)
	return p, nil
}

func newPlayer(st State, opts Options) *Player {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewSessionID == nil {
		opts.NewSessionID = uuid.NewString
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Player{opts: opts, state: st, ctx: ctx, cancel: cancel}
}

// Close stops the timer loop. In-flight attempt recordings are not
// cancelled.
func (p *Player) Close() {
	p.cancel()
}

// State returns the current state.
func (p *Player) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Snapshot captures the state together with the recorded set of its
// session.
func (p *Player) Snapshot() Snapshot {
	return SnapshotOf(p.State(), p.opts.Recorder)
}

// SnapshotOf captures s together with its session's recorded set in r,
// which may be nil.
func SnapshotOf(s State, r *Recorder) Snapshot {
	snap := s.Snapshot()
	if r != nil && s.SessionID() != "" {
		snap.Recorded = r.RecordedQuestions(s.SessionID())
		slices.Sort(snap.Recorded)
	}
	return snap
}

func (p *Player) notify(ev Event, s State) {
	if p.opts.Observer != nil {
		p.opts.Observer(ev, s)
	}
}

// apply runs fn against the current state under the lock and stores its
// result. The observer is notified after the lock is released.
func (p *Player) apply(ev Event, fn func(State) (State, error)) (State, error) {
	p.mu.Lock()
	next, err := fn(p.state)
	if err != nil {
		cur := p.state
		p.mu.Unlock()
		return cur, err
	}
	next.seq = p.state.seq + 1
	p.state = next
	p.mu.Unlock()
	p.notify(ev, next)
	return next, nil
}

// Start begins the play-through, or restarts it from submitted with a
// fresh session id. The previous session's recorded set is dropped.
func (p *Player) Start() (State, error) {
	p.mu.Lock()
	prev := p.state.SessionID()
	next, err := p.state.Start(p.opts.NewSessionID(), p.opts.Now())
	if err != nil {
		cur := p.state
		p.mu.Unlock()
		return cur, err
	}
	next.seq = p.state.seq + 1
	p.state = next
	p.gen++
	gen := p.gen
	p.mu.Unlock()

	if prev != "" && p.opts.Recorder != nil {
		p.opts.Recorder.Forget(prev)
	}
	p.opts.Logger.Info("quiz started", "quiz", next.Quiz().ID, "session", next.SessionID())
	p.startTicker(gen)
	p.notify(EventStarted, next)
	return next, nil
}

// Retry is Start from submitted.
func (p *Player) Retry() (State, error) {
	return p.Start()
}

func (p *Player) startTicker(gen uint64) {
	if p.opts.TickInterval <= 0 {
		return
	}
	go p.runTicker(gen)
}

// GoTo moves to question index, clamped to the quiz bounds.
func (p *Player) GoTo(index int) (State, error) {
	now := p.opts.Now()
	return p.apply(EventNavigated, func(s State) (State, error) {
		return s.GoTo(index, now)
	})
}

func (p *Player) Next() (State, error) {
	now := p.opts.Now()
	return p.apply(EventNavigated, func(s State) (State, error) {
		return s.GoTo(s.Index()+1, now)
	})
}

func (p *Player) Prev() (State, error) {
	now := p.opts.Now()
	return p.apply(EventNavigated, func(s State) (State, error) {
		return s.GoTo(s.Index()-1, now)
	})
}

// SetAnswer stores an answer. accepted is false when the question is locked
// by a correct checked answer; nothing changes and no event is sent.
func (p *Player) SetAnswer(qid, value string) (accepted bool, err error) {
	p.mu.Lock()
	next, accepted, err := p.state.SetAnswer(qid, value)
	if err != nil || !accepted {
		p.mu.Unlock()
		return accepted, err
	}
	next.seq = p.state.seq + 1
	p.state = next
	p.mu.Unlock()
	p.notify(EventAnswered, next)
	return true, nil
}

// CheckAnswer reveals correctness feedback for qid and, for auto-recordable
// questions, reports the attempt in the background.
func (p *Player) CheckAnswer(qid string) (Check, error) {
	var check Check
	now := p.opts.Now()
	next, err := p.apply(EventChecked, func(s State) (State, error) {
		next, c, err := s.CheckAnswer(qid)
		check = c
		return next, err
	})
	if err != nil {
		return Check{}, err
	}
	if check.Recordable && p.opts.Recorder != nil {
		p.opts.Recorder.Record(next.Attempt(check, now))
	}
	return check, nil
}

func (p *Player) ResetQuestion(qid string) error {
	_, err := p.apply(EventReset, func(s State) (State, error) {
		return s.ResetQuestion(qid)
	})
	return err
}

// UseHint marks a hint as used and returns the number of the hint to show.
func (p *Player) UseHint(qid string) (int, error) {
	var n int
	_, err := p.apply(EventHint, func(s State) (State, error) {
		next, shown, err := s.UseHint(qid)
		n = shown
		return next, err
	})
	return n, err
}

func (p *Player) ToggleExplanation(qid string) (bool, error) {
	var shown bool
	_, err := p.apply(EventExplanation, func(s State) (State, error) {
		next, ok, err := s.ToggleExplanation(qid)
		shown = ok
		return next, err
	})
	return shown, err
}

// Submit scores the play-through. A second submit, manual or from timer
// expiry, fails with ErrAlreadySubmitted.
func (p *Player) Submit() (Result, error) {
	now := p.opts.Now()
	next, err := p.apply(EventSubmitted, func(s State) (State, error) {
		return s.Submit(false, now)
	})
	if err != nil {
		return Result{}, err
	}
	r, _ := next.Result()
	p.opts.Logger.Info("quiz submitted", "quiz", next.Quiz().ID, "session", next.SessionID(),
		"correct", r.Correct, "total", r.Total)
	return r, nil
}

// Tick advances the timers once, as the background ticker does. It
// reports whether the tick submitted the quiz.
func (p *Player) Tick() bool {
	p.mu.Lock()
	gen := p.gen
	p.mu.Unlock()
	_, expired := p.tick(gen)
	return expired
}
