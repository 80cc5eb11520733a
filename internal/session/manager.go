// Package session hosts quiz players: it creates them from a quiz source,
// keeps them addressable by a player id, mirrors their snapshots into a
// cache and journals finished play-throughs.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/viditforsv/quizplayer/internal/cache"
	"github.com/viditforsv/quizplayer/internal/model"
	"github.com/viditforsv/quizplayer/internal/player"
)

var ErrPlayerNotFound = errors.New("player not found")

// Source loads a quiz and its ordered questions.
type Source interface {
	LoadQuiz(ctx context.Context, quizID string) (model.QuizBundle, error)
}

// Journal keeps finished play-throughs.
type Journal interface {
	SaveSession(ctx context.Context, rec model.SessionRecord) error
}

// Hinter generates a hint once a question's own hints are used up.
type Hinter interface {
	Hint(ctx context.Context, q model.Question, answer string, previous []string, lang string) (string, error)
}

// Option configures a Manager.
type Option func(*Manager)

func WithJournal(j Journal) Option { return func(m *Manager) { m.journal = j } }

func WithCache(c cache.Cache) Option { return func(m *Manager) { m.cache = c } }

func WithHinter(h Hinter) Option { return func(m *Manager) { m.hinter = h } }

// WithTickInterval sets the players' timer tick. Zero disables background
// ticking.
func WithTickInterval(d time.Duration) Option { return func(m *Manager) { m.tick = d } }

func WithClock(now func() time.Time) Option { return func(m *Manager) { m.now = now } }

func WithLogger(l *slog.Logger) Option { return func(m *Manager) { m.log = l } }

// WithSaveTimeout bounds each cache and journal write.
func WithSaveTimeout(d time.Duration) Option { return func(m *Manager) { m.saveTimeout = d } }

// WithTickSnapshot sets how often a running timer alone refreshes the
// cached snapshot. Default 10s.
func WithTickSnapshot(d time.Duration) Option { return func(m *Manager) { m.tickSnapshot = d } }

type entry struct {
	p    atomic.Pointer[player.Player]
	used atomic.Int64 // unix nanoseconds of the last lookup or transition

	mu        sync.Mutex
	generated map[string][]string

	// saveMu serializes cache writes so an older state never overwrites a
	// newer one.
	saveMu   sync.Mutex
	saved    bool
	savedSeq uint64
	savedAt  time.Time
}

func (e *entry) touch(now time.Time) { e.used.Store(now.UnixNano()) }

func (e *entry) lastUsed() time.Time { return time.Unix(0, e.used.Load()) }

// Manager owns the live players.
type Manager struct {
	source       Source
	recorder     *player.Recorder
	journal      Journal
	cache        cache.Cache
	hinter       Hinter
	tick         time.Duration
	now          func() time.Time
	log          *slog.Logger
	saveTimeout  time.Duration
	tickSnapshot time.Duration

	mu      sync.Mutex
	players map[string]*entry
}

// New creates a Manager. recorder may be nil, in which case checked answers
// are not reported.
func New(source Source, recorder *player.Recorder, opts ...Option) *Manager {
	m := &Manager{
		source:       source,
		recorder:     recorder,
		cache:        cache.Nop{},
		tick:         time.Second,
		now:          time.Now,
		log:          slog.Default(),
		saveTimeout:  5 * time.Second,
		tickSnapshot: 10 * time.Second,
		players:      make(map[string]*entry),
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Quiz loads a quiz without creating a player.
func (m *Manager) Quiz(ctx context.Context, quizID string) (model.QuizBundle, error) {
	return m.source.LoadQuiz(ctx, quizID)
}

// Create loads quizID and returns a new not-started player with its id.
func (m *Manager) Create(ctx context.Context, quizID string) (string, *player.Player, error) {
	bundle, err := m.source.LoadQuiz(ctx, quizID)
	if err != nil {
		return "", nil, fmt.Errorf("load quiz %s: %w", quizID, err)
	}

	id := uuid.NewString()
	e := &entry{generated: make(map[string][]string)}
	p, err := player.New(bundle, m.playerOptions(id, e))
	if err != nil {
		return "", nil, err
	}
	e.p.Store(p)
	e.touch(m.now())

	m.mu.Lock()
	m.players[id] = e
	m.mu.Unlock()

	m.saveState(id, e, p.State(), false)
	m.log.Info("player created", "player", id, "quiz", quizID, "questions", len(bundle.Questions))
	return id, p, nil
}

// Get returns a live player, restoring it from the cache when it is not in
// memory.
func (m *Manager) Get(ctx context.Context, playerID string) (*player.Player, error) {
	e, err := m.entry(ctx, playerID)
	if err != nil {
		return nil, err
	}
	return e.p.Load(), nil
}

func (m *Manager) entry(ctx context.Context, playerID string) (*entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.players[playerID]; ok {
		e.touch(m.now())
		return e, nil
	}

	snap, err := m.cache.Load(ctx, playerID)
	if errors.Is(err, cache.ErrMiss) {
		return nil, ErrPlayerNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load snapshot %s: %w", playerID, err)
	}

	e := &entry{generated: make(map[string][]string)}
	p, err := player.Restore(snap, m.playerOptions(playerID, e))
	if err != nil {
		return nil, fmt.Errorf("restore player %s: %w", playerID, err)
	}
	e.p.Store(p)
	e.touch(m.now())
	m.players[playerID] = e
	m.log.Info("player restored", "player", playerID, "session", snap.SessionID, "status", snap.Status)
	return e, nil
}

// Hint reveals the next hint for qid. The question's own hints come first;
// after that the Hinter is asked, if one is configured. Text is empty when
// no hint is available, but the hint still counts as used.
func (m *Manager) Hint(ctx context.Context, playerID, qid string) (HintResult, error) {
	e, err := m.entry(ctx, playerID)
	if err != nil {
		return HintResult{}, err
	}
	p := e.p.Load()
	n, err := p.UseHint(qid)
	if err != nil {
		return HintResult{}, err
	}
	st := p.State()
	var q model.Question
	for _, cand := range st.Questions() {
		if cand.ID == qid {
			q = cand
			break
		}
	}

	res := HintResult{Number: n + 1}
	if n < len(q.Hints) {
		res.Text = q.Hints[n]
		return res, nil
	}
	if m.hinter == nil {
		return res, nil
	}

	e.mu.Lock()
	previous := append(append([]string{}, q.Hints...), e.generated[qid]...)
	e.mu.Unlock()

	text, err := m.hinter.Hint(ctx, q, st.Answer(qid), previous, model.LangFromContext(ctx))
	if err != nil {
		m.log.Warn("hint generation failed", "player", playerID, "question", qid, "error", err)
		return res, nil
	}
	e.mu.Lock()
	e.generated[qid] = append(e.generated[qid], text)
	e.mu.Unlock()
	res.Text = text
	res.Generated = true
	return res, nil
}

// HintResult is one revealed hint. Number is one-based.
type HintResult struct {
	Number    int    `json:"number"`
	Text      string `json:"text,omitempty"`
	Generated bool   `json:"generated"`
}

// Remove stops a player and drops its snapshot.
func (m *Manager) Remove(ctx context.Context, playerID string) error {
	m.mu.Lock()
	e, ok := m.players[playerID]
	delete(m.players, playerID)
	m.mu.Unlock()
	if ok {
		e.p.Load().Close()
	}
	return m.cache.Delete(ctx, playerID)
}

// Evict drops players unused for longer than idle from memory and returns
// how many were dropped. Their snapshots stay in the cache, so Get can
// still restore them until the cache expires them.
func (m *Manager) Evict(idle time.Duration) int {
	cutoff := m.now().Add(-idle)
	var gone []*entry
	m.mu.Lock()
	for id, e := range m.players {
		if e.lastUsed().Before(cutoff) {
			delete(m.players, id)
			gone = append(gone, e)
		}
	}
	m.mu.Unlock()
	for _, e := range gone {
		e.p.Load().Close()
	}
	if len(gone) > 0 {
		m.log.Info("evicted idle players", "count", len(gone), "idle", idle)
	}
	return len(gone)
}

// Len returns the number of players in memory.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.players)
}

// Close stops every player's timer and waits for pending attempt
// recordings. Snapshots stay in the cache.
func (m *Manager) Close() {
	m.mu.Lock()
	for _, e := range m.players {
		e.p.Load().Close()
	}
	m.mu.Unlock()
	if m.recorder != nil {
		m.recorder.Wait()
	}
}

func (m *Manager) playerOptions(playerID string, e *entry) player.Options {
	return player.Options{
		Now:          m.now,
		Recorder:     m.recorder,
		TickInterval: m.tick,
		Logger:       m.log.With("player", playerID),
		Observer: func(ev player.Event, s player.State) {
			m.observe(playerID, e, ev, s)
		},
	}
}

func (m *Manager) observe(playerID string, e *entry, ev player.Event, s player.State) {
	switch ev {
	case player.EventStarted:
		e.mu.Lock()
		clear(e.generated)
		e.mu.Unlock()
	case player.EventTicked:
		m.saveState(playerID, e, s, true)
		return
	}
	e.touch(m.now())
	m.saveState(playerID, e, s, false)
	if ev == player.EventSubmitted && m.journal != nil {
		ctx, cancel := context.WithTimeout(context.Background(), m.saveTimeout)
		defer cancel()
		if err := m.journal.SaveSession(ctx, Record(playerID, s)); err != nil {
			m.log.Error("journal session", "player", playerID, "session", s.SessionID(), "error", err)
		}
	}
}

// saveState caches s unless a newer state of the player is already saved.
// A tick only saves once tickSnapshot has passed since the last save.
func (m *Manager) saveState(playerID string, e *entry, s player.State, tick bool) {
	e.saveMu.Lock()
	defer e.saveMu.Unlock()
	now := m.now()
	if e.saved && s.Seq() <= e.savedSeq {
		return
	}
	if tick && now.Sub(e.savedAt) < m.tickSnapshot {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), m.saveTimeout)
	defer cancel()
	if err := m.cache.Save(ctx, playerID, player.SnapshotOf(s, m.recorder)); err != nil {
		m.log.Warn("cache snapshot", "player", playerID, "error", err)
		return
	}
	e.saved, e.savedSeq, e.savedAt = true, s.Seq(), now
}

// Record builds the journal record for a play-through.
func Record(playerID string, s player.State) model.SessionRecord {
	quiz := s.Quiz()
	rec := model.SessionRecord{
		SessionID:   s.SessionID(),
		PlayerID:    playerID,
		QuizID:      quiz.ID,
		QuizTitle:   quiz.Title,
		Status:      s.Status(),
		AutoSubmit:  s.AutoSubmitted(),
		StartedAt:   s.StartedAt(),
		SubmittedAt: s.SubmittedAt(),
	}
	r, ok := s.Result()
	if !ok {
		r = player.Score(s.Questions(), s.Answers())
	} else {
		rec.Score = r.Score
		rec.Correct = r.Correct
		rec.Total = r.Total
	}
	for _, item := range r.Review {
		rec.Answers = append(rec.Answers, model.AnswerRecord{
			QuestionID: item.QuestionID,
			Position:   item.Position,
			Answer:     item.Answer,
			Checked:    s.Checked(item.QuestionID),
			HintUsed:   s.HintsShown(item.QuestionID) > 0,
			Status:     item.Status,
		})
	}
	return rec
}
