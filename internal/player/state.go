// Package player implements the quiz play-through engine: the answer store
// with its checked/lock flags, navigation, timers, scoring and the attempt
// recorder that reports checked answers to the progress backend.
package player

import (
	"errors"
	"fmt"
	"maps"
	"time"

	"github.com/viditforsv/quizplayer/internal/model"
)

var (
	ErrEmptyQuiz         = errors.New("quiz has no questions")
	ErrNotInProgress     = errors.New("quiz is not in progress")
	ErrInvalidTransition = errors.New("invalid state transition")
	ErrAlreadySubmitted  = errors.New("quiz already submitted")
	ErrUnknownQuestion   = errors.New("question is not part of this quiz")
	ErrNoAnswer          = errors.New("question has no answer to check")
	ErrNotChecked        = errors.New("answer has not been checked")
)

// State is one play-through of a quiz. Transitions are methods returning a
// new State; the receiver is never modified, so a State may be shared freely
// once produced.
type State struct {
	bundle    *model.QuizBundle
	positions map[string]int

	status    model.SessionStatus
	sessionID string
	index     int

	answers   map[string]string
	checked   map[string]bool
	explained map[string]bool
	hints     map[string]int

	remaining int
	elapsed   int

	shownAt     time.Time
	startedAt   time.Time
	submittedAt time.Time
	auto        bool
	result      *Result

	seq uint64
}

// Check describes the outcome of checking one answer.
type Check struct {
	QuestionID string
	Position   int
	Answer     string
	Graded     bool
	Correct    bool
	// Recordable is true for mcq and true_false questions with a defined
	// correct answer; only those are reported to the progress backend.
	Recordable bool
}

// NewState returns a not-started play-through of bundle.
func NewState(bundle model.QuizBundle) (State, error) {
	if len(bundle.Questions) == 0 {
		return State{}, ErrEmptyQuiz
	}
	positions := make(map[string]int, len(bundle.Questions))
	for i, q := range bundle.Questions {
		if q.ID == "" {
			return State{}, fmt.Errorf("question at position %d has no id", i)
		}
		if _, dup := positions[q.ID]; dup {
			return State{}, fmt.Errorf("duplicate question id %q", q.ID)
		}
		positions[q.ID] = i
	}
	b := bundle
	b.Questions = append([]model.Question(nil), bundle.Questions...)
	return State{
		bundle:    &b,
		positions: positions,
		status:    model.StatusNotStarted,
		answers:   map[string]string{},
		checked:   map[string]bool{},
		explained: map[string]bool{},
		hints:     map[string]int{},
	}, nil
}

func (s State) clone() State {
	s.answers = maps.Clone(s.answers)
	s.checked = maps.Clone(s.checked)
	s.explained = maps.Clone(s.explained)
	s.hints = maps.Clone(s.hints)
	return s
}

func (s State) question(qid string) (model.Question, int, error) {
	pos, ok := s.positions[qid]
	if !ok {
		return model.Question{}, 0, fmt.Errorf("%w: %s", ErrUnknownQuestion, qid)
	}
	return s.bundle.Questions[pos], pos, nil
}

func (s State) timed() bool {
	return s.bundle.Quiz.TimeLimitSeconds() > 0
}

// Start begins a fresh play-through. It is also the retry transition from
// submitted: answers, checked flags, explanations and hints are cleared and
// the timers re-armed.
func (s State) Start(sessionID string, now time.Time) (State, error) {
	if s.status == model.StatusInProgress {
		return s, fmt.Errorf("%w: start while in progress", ErrInvalidTransition)
	}
	s.status = model.StatusInProgress
	s.sessionID = sessionID
	s.index = 0
	s.answers = map[string]string{}
	s.checked = map[string]bool{}
	s.explained = map[string]bool{}
	s.hints = map[string]int{}
	s.remaining = s.bundle.Quiz.TimeLimitSeconds()
	s.elapsed = 0
	s.shownAt = now
	s.startedAt = now
	s.submittedAt = time.Time{}
	s.auto = false
	s.result = nil
	return s, nil
}

// GoTo moves to question index, clamped to the quiz bounds. Moving to a
// different question resets the per-question elapsed counter.
func (s State) GoTo(index int, now time.Time) (State, error) {
	if s.status != model.StatusInProgress {
		return s, ErrNotInProgress
	}
	index = max(0, min(index, len(s.bundle.Questions)-1))
	if index == s.index {
		return s, nil
	}
	s.index = index
	s.elapsed = 0
	s.shownAt = now
	return s, nil
}

// SetAnswer stores value as the answer to qid. An empty value clears it.
// The change is rejected (accepted=false, state unchanged) when the answer
// was checked and found correct. Changing a checked incorrect answer clears
// its checked flag.
func (s State) SetAnswer(qid, value string) (State, bool, error) {
	if s.status != model.StatusInProgress {
		return s, false, ErrNotInProgress
	}
	q, _, err := s.question(qid)
	if err != nil {
		return s, false, err
	}
	if s.Locked(qid) {
		return s, false, nil
	}
	if s.answers[qid] == value && !s.checked[qid] {
		return s, true, nil
	}
	n := s.clone()
	if value == "" {
		delete(n.answers, q.ID)
	} else {
		n.answers[q.ID] = value
	}
	delete(n.checked, q.ID)
	delete(n.explained, q.ID)
	return n, true, nil
}

// CheckAnswer marks the answer to qid as checked and reveals its explanation.
func (s State) CheckAnswer(qid string) (State, Check, error) {
	if s.status != model.StatusInProgress {
		return s, Check{}, ErrNotInProgress
	}
	q, pos, err := s.question(qid)
	if err != nil {
		return s, Check{}, err
	}
	answer := s.answers[qid]
	if answer == "" {
		return s, Check{}, ErrNoAnswer
	}
	n := s.clone()
	n.checked[qid] = true
	n.explained[qid] = true
	return n, Check{
		QuestionID: qid,
		Position:   pos,
		Answer:     answer,
		Graded:     q.Graded(),
		Correct:    q.IsCorrect(answer),
		Recordable: q.Graded() && q.Type.AutoRecordable(),
	}, nil
}

// ResetQuestion clears the answer, checked flag, explanation and hint use
// of qid only.
func (s State) ResetQuestion(qid string) (State, error) {
	if s.status != model.StatusInProgress {
		return s, ErrNotInProgress
	}
	if _, _, err := s.question(qid); err != nil {
		return s, err
	}
	n := s.clone()
	delete(n.answers, qid)
	delete(n.checked, qid)
	delete(n.explained, qid)
	delete(n.hints, qid)
	return n, nil
}

// UseHint marks a hint as used for qid and returns the zero-based number of
// the hint being revealed.
func (s State) UseHint(qid string) (State, int, error) {
	if s.status != model.StatusInProgress {
		return s, 0, ErrNotInProgress
	}
	if _, _, err := s.question(qid); err != nil {
		return s, 0, err
	}
	n := s.clone()
	shown := n.hints[qid]
	n.hints[qid] = shown + 1
	return n, shown, nil
}

// ToggleExplanation shows or hides the explanation of a checked question.
// After submission every explanation may be toggled for review.
func (s State) ToggleExplanation(qid string) (State, bool, error) {
	if s.status == model.StatusNotStarted {
		return s, false, ErrNotInProgress
	}
	if _, _, err := s.question(qid); err != nil {
		return s, false, err
	}
	if s.status == model.StatusInProgress && !s.checked[qid] {
		return s, false, ErrNotChecked
	}
	n := s.clone()
	shown := !n.explained[qid]
	if shown {
		n.explained[qid] = true
	} else {
		delete(n.explained, qid)
	}
	return n, shown, nil
}

// Submit scores the play-through and freezes its timers.
func (s State) Submit(auto bool, now time.Time) (State, error) {
	switch s.status {
	case model.StatusSubmitted:
		return s, ErrAlreadySubmitted
	case model.StatusNotStarted:
		return s, ErrNotInProgress
	}
	r := Score(s.bundle.Questions, s.answers)
	s.result = &r
	s.status = model.StatusSubmitted
	s.auto = auto
	s.submittedAt = now
	return s, nil
}

// Resume brings an in-progress state rebuilt from a snapshot up to now. The
// countdown is recomputed from the start time and the question timer from
// the time the current question was shown, so time spent while no player
// was running still counts. A countdown that ran out meanwhile submits the
// quiz and expired is true.
func (s State) Resume(now time.Time) (next State, expired bool) {
	if s.status != model.StatusInProgress {
		return s, false
	}
	if !s.shownAt.IsZero() {
		s.elapsed = max(s.elapsed, int(now.Sub(s.shownAt)/time.Second))
	}
	if !s.timed() {
		return s, false
	}
	if !s.startedAt.IsZero() {
		left := s.bundle.Quiz.TimeLimitSeconds() - int(now.Sub(s.startedAt)/time.Second)
		s.remaining = min(s.remaining, left)
	}
	if s.remaining > 0 {
		return s, false
	}
	s.remaining = 0
	n, err := s.Submit(true, now)
	if err != nil {
		return s, false
	}
	return n, true
}

// Seq orders the states produced by one Player; a later transition has a
// higher number.
func (s State) Seq() uint64 { return s.seq }

// Tick advances both timers by one second. When the global countdown
// reaches zero the quiz is submitted and expired is true. Outside
// in_progress Tick does nothing.
func (s State) Tick(now time.Time) (next State, expired bool) {
	if s.status != model.StatusInProgress {
		return s, false
	}
	s.elapsed++
	if !s.timed() {
		return s, false
	}
	if s.remaining > 0 {
		s.remaining--
	}
	if s.remaining > 0 {
		return s, false
	}
	n, err := s.Submit(true, now)
	if err != nil {
		return s, false
	}
	return n, true
}

// Attempt builds the progress payload for a checked question.
func (s State) Attempt(c Check, now time.Time) model.Attempt {
	taken := int(now.Sub(s.shownAt) / time.Second)
	return model.Attempt{
		QuestionID:       c.QuestionID,
		LessonID:         s.bundle.Quiz.LessonID,
		CourseID:         s.bundle.Quiz.CourseID,
		TimeTakenSeconds: max(1, taken),
		IsCorrect:        c.Correct,
		HintUsed:         s.hints[c.QuestionID] > 0,
		SessionID:        s.sessionID,
		SessionOrder:     c.Position,
	}
}

func (s State) Quiz() model.Quiz { return s.bundle.Quiz }
func (s State) Questions() []model.Question { return s.bundle.Questions }
func (s State) Bundle() model.QuizBundle { return *s.bundle }
func (s State) Status() model.SessionStatus { return s.status }
func (s State) SessionID() string { return s.sessionID }
func (s State) Index() int { return s.index }
func (s State) Current() model.Question { return s.bundle.Questions[s.index] }
func (s State) Answer(qid string) string { return s.answers[qid] }
func (s State) Checked(qid string) bool { return s.checked[qid] }
func (s State) ExplanationShown(qid string) bool { return s.explained[qid] }
func (s State) HintsShown(qid string) int { return s.hints[qid] }
func (s State) Elapsed() int { return s.elapsed }
func (s State) StartedAt() time.Time { return s.startedAt }
func (s State) AutoSubmitted() bool { return s.auto }

// Answers returns a copy of the answer record.
func (s State) Answers() map[string]string { return maps.Clone(s.answers) }

// Locked reports whether qid was checked with a correct answer.
func (s State) Locked(qid string) bool {
	q, _, err := s.question(qid)
	return err == nil && s.checked[qid] && q.IsCorrect(s.answers[qid])
}

// Remaining returns the global countdown and whether the quiz is timed.
func (s State) Remaining() (int, bool) {
	return s.remaining, s.timed()
}

// SubmittedAt returns the submission time, or nil before submission.
func (s State) SubmittedAt() *time.Time {
	if s.submittedAt.IsZero() {
		return nil
	}
	t := s.submittedAt
	return &t
}

// Result returns the score of a submitted play-through.
func (s State) Result() (Result, bool) {
	if s.result == nil {
		return Result{}, false
	}
	return *s.result, true
}

// Snapshot is the serializable form of a State plus the recorder's dedup
// set for its session.
type Snapshot struct {
	Bundle        model.QuizBundle    `json:"bundle"`
	Status        model.SessionStatus `json:"status"`
	SessionID     string              `json:"session_id"`
	Index         int                 `json:"index"`
	Answers       map[string]string   `json:"answers,omitempty"`
	Checked       map[string]bool     `json:"checked,omitempty"`
	Explained     map[string]bool     `json:"explained,omitempty"`
	Hints         map[string]int      `json:"hints,omitempty"`
	Remaining     int                 `json:"remaining"`
	Elapsed       int                 `json:"elapsed"`
	ShownAt       time.Time           `json:"shown_at"`
	StartedAt     time.Time           `json:"started_at"`
	SubmittedAt   *time.Time          `json:"submitted_at,omitempty"`
	AutoSubmitted bool                `json:"auto_submitted"`
	Recorded      []string            `json:"recorded,omitempty"`
}

// Snapshot captures s. The recorded set is filled in by the Player.
func (s State) Snapshot() Snapshot {
	return Snapshot{
		Bundle:        s.Bundle(),
		Status:        s.status,
		SessionID:     s.sessionID,
		Index:         s.index,
		Answers:       maps.Clone(s.answers),
		Checked:       maps.Clone(s.checked),
		Explained:     maps.Clone(s.explained),
		Hints:         maps.Clone(s.hints),
		Remaining:     s.remaining,
		Elapsed:       s.elapsed,
		ShownAt:       s.shownAt,
		StartedAt:     s.startedAt,
		SubmittedAt:   s.SubmittedAt(),
		AutoSubmitted: s.auto,
	}
}

// StateFromSnapshot rebuilds a State. Entries keyed by questions outside the
// quiz are rejected.
func StateFromSnapshot(snap Snapshot) (State, error) {
	s, err := NewState(snap.Bundle)
	if err != nil {
		return State{}, err
	}
	switch snap.Status {
	case model.StatusNotStarted, model.StatusInProgress, model.StatusSubmitted:
	default:
		return State{}, fmt.Errorf("unknown status %q", snap.Status)
	}
	for _, keys := range [][]string{
		keysOf(snap.Answers), keysOf(snap.Checked), keysOf(snap.Explained), keysOf(snap.Hints),
	} {
		for _, k := range keys {
			if _, ok := s.positions[k]; !ok {
				return State{}, fmt.Errorf("%w: %s", ErrUnknownQuestion, k)
			}
		}
	}
	s.status = snap.Status
	s.sessionID = snap.SessionID
	s.index = max(0, min(snap.Index, len(s.bundle.Questions)-1))
	s.answers = orEmpty(snap.Answers)
	s.checked = orEmpty(snap.Checked)
	s.explained = orEmpty(snap.Explained)
	s.hints = orEmpty(snap.Hints)
	s.remaining = snap.Remaining
	s.elapsed = snap.Elapsed
	s.shownAt = snap.ShownAt
	s.startedAt = snap.StartedAt
	s.auto = snap.AutoSubmitted
	if snap.SubmittedAt != nil {
		s.submittedAt = *snap.SubmittedAt
	}
	if s.status == model.StatusSubmitted {
		r := Score(s.bundle.Questions, s.answers)
		s.result = &r
	}
	return s, nil
}

func keysOf[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	return keys
}

func orEmpty[V any](m map[string]V) map[string]V {
	if m == nil {
		return map[string]V{}
	}
	return maps.Clone(m)
}
