package model

import (
	"context"
	"time"
)

// QuestionType identifies how a question is answered and graded.
type QuestionType string

const (
	QuestionMCQ        QuestionType = "mcq"
	QuestionTrueFalse  QuestionType = "true_false"
	QuestionFillBlank  QuestionType = "fill_blank"
	QuestionSubjective QuestionType = "subjective"
)

// Valid reports whether t is one of the known question types.
func (t QuestionType) Valid() bool {
	switch t {
	case QuestionMCQ, QuestionTrueFalse, QuestionFillBlank, QuestionSubjective:
		return true
	}
	return false
}

// AutoRecordable reports whether answers of this type are reported to the
// progress backend when checked.
func (t QuestionType) AutoRecordable() bool {
	return t == QuestionMCQ || t == QuestionTrueFalse
}

// SessionStatus represents the state of a quiz play-through.
type SessionStatus string

const (
	StatusNotStarted SessionStatus = "not_started"
	StatusInProgress SessionStatus = "in_progress"
	StatusSubmitted  SessionStatus = "submitted"
)

// Quiz holds quiz metadata. It does not change during a play-through.
type Quiz struct {
	ID         string  `json:"id" yaml:"id"`
	Title      string  `json:"title" yaml:"title"`
	TimeLimit  *int    `json:"time_limit" yaml:"time_limit"` // minutes
	Difficulty string  `json:"difficulty" yaml:"difficulty"`
	LessonID   *string `json:"lesson_id,omitempty" yaml:"lesson_id"`
	CourseID   *string `json:"course_id,omitempty" yaml:"course_id"`
}

// TimeLimitSeconds returns the global time budget in seconds, or 0 when the
// quiz is untimed.
func (q Quiz) TimeLimitSeconds() int {
	if q.TimeLimit == nil || *q.TimeLimit <= 0 {
		return 0
	}
	return *q.TimeLimit * 60
}

// Option is one selectable answer of an mcq question.
type Option struct {
	Value string `json:"value" yaml:"value"`
	Label string `json:"label" yaml:"label"`
}

// Question is a question bank entry as referenced by a quiz.
type Question struct {
	ID            string       `json:"id" yaml:"id"`
	Order         int          `json:"question_order" yaml:"order"`
	Text          string       `json:"question_text" yaml:"text"`
	Type          QuestionType `json:"question_type" yaml:"type"`
	TotalMarks    int          `json:"total_marks" yaml:"total_marks"`
	Difficulty    int          `json:"difficulty" yaml:"difficulty"`
	Topic         string       `json:"topic,omitempty" yaml:"topic"`
	Subtopic      string       `json:"subtopic,omitempty" yaml:"subtopic"`
	CorrectAnswer *string      `json:"correct_answer,omitempty" yaml:"correct_answer"`
	Explanation   *string      `json:"explanation,omitempty" yaml:"explanation"`
	Options       []Option     `json:"options,omitempty" yaml:"options"`
	Hints         []string     `json:"hints,omitempty" yaml:"hints"`
}

// Graded reports whether the question has a defined correct answer.
func (q Question) Graded() bool {
	return q.CorrectAnswer != nil && *q.CorrectAnswer != ""
}

// IsCorrect reports whether answer exactly matches the correct answer.
func (q Question) IsCorrect(answer string) bool {
	return q.Graded() && answer == *q.CorrectAnswer
}

// QuizBundle is a quiz together with its ordered question set.
type QuizBundle struct {
	Quiz      Quiz       `json:"quiz" yaml:"quiz"`
	Questions []Question `json:"questions" yaml:"questions"`
}

// TotalMarks sums the marks of all questions.
func (b QuizBundle) TotalMarks() int {
	total := 0
	for _, q := range b.Questions {
		total += q.TotalMarks
	}
	return total
}

// Attempt is the telemetry payload sent when a question is checked.
type Attempt struct {
	QuestionID       string  `json:"question_id"`
	LessonID         *string `json:"lesson_id"`
	CourseID         *string `json:"course_id"`
	TimeTakenSeconds int     `json:"time_taken_seconds"`
	IsCorrect        bool    `json:"is_correct"`
	HintUsed         bool    `json:"hint_used"`
	SessionID        string  `json:"session_id"`
	SessionOrder     int     `json:"session_order"`
}

// ReviewStatus is how a question is shown on the results screen.
type ReviewStatus string

const (
	ReviewCorrect   ReviewStatus = "correct"
	ReviewIncorrect ReviewStatus = "incorrect"
	ReviewUngraded  ReviewStatus = "ungraded"
)

// SessionRecord is a finished play-through as kept in the journal.
type SessionRecord struct {
	SessionID   string         `json:"session_id"`
	PlayerID    string         `json:"player_id"`
	QuizID      string         `json:"quiz_id"`
	QuizTitle   string         `json:"quiz_title"`
	Status      SessionStatus  `json:"status"`
	AutoSubmit  bool           `json:"auto_submit"`
	Score       *int           `json:"score,omitempty"`
	Correct     int            `json:"correct"`
	Total       int            `json:"total"`
	StartedAt   time.Time      `json:"started_at"`
	SubmittedAt *time.Time     `json:"submitted_at,omitempty"`
	Answers     []AnswerRecord `json:"answers,omitempty"`
}

// AnswerRecord is one question's final answer in a journaled session.
type AnswerRecord struct {
	QuestionID string       `json:"question_id"`
	Position   int          `json:"position"`
	Answer     string       `json:"answer"`
	Checked    bool         `json:"checked"`
	HintUsed   bool         `json:"hint_used"`
	Status     ReviewStatus `json:"status"`
}

// AttemptLog is the outcome of one attempt recording call.
type AttemptLog struct {
	ID        int64     `json:"id"`
	Attempt   Attempt   `json:"attempt"`
	OK        bool      `json:"ok"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type localeCtxKey struct{}

// ContextWithLang stores the negotiated UI language in context.
func ContextWithLang(ctx context.Context, lang string) context.Context {
	return context.WithValue(ctx, localeCtxKey{}, lang)
}

// LangFromContext returns the negotiated UI language (empty if not set).
func LangFromContext(ctx context.Context) string {
	l, _ := ctx.Value(localeCtxKey{}).(string)
	return l
}
