package handler

import (
	"context"
	"slices"

	"github.com/viditforsv/quizplayer/internal/i18n"
	"github.com/viditforsv/quizplayer/internal/model"
	"github.com/viditforsv/quizplayer/internal/player"
)

// QuizSummary is shown before a quiz is started.
type QuizSummary struct {
	ID            string `json:"id"`
	Title         string `json:"title"`
	Difficulty    string `json:"difficulty,omitempty"`
	Questions     int    `json:"questions"`
	TotalMarks    int    `json:"total_marks"`
	TimeLimit     *int   `json:"time_limit"`
	QuestionsText string `json:"questions_text"`
	TimeLimitText string `json:"time_limit_text"`
}

func summarize(ctx context.Context, b model.QuizBundle) QuizSummary {
	s := QuizSummary{
		ID:            b.Quiz.ID,
		Title:         b.Quiz.Title,
		Difficulty:    b.Quiz.Difficulty,
		Questions:     len(b.Questions),
		TotalMarks:    b.TotalMarks(),
		QuestionsText: i18n.Tp(ctx, "QuestionsInQuiz", len(b.Questions)),
		TimeLimitText: i18n.T(ctx, "NoTimeLimit"),
	}
	if secs := b.Quiz.TimeLimitSeconds(); secs > 0 {
		s.TimeLimit = b.Quiz.TimeLimit
		s.TimeLimitText = i18n.Td(ctx, "TimeLimit", map[string]any{"Minutes": *b.Quiz.TimeLimit})
	}
	return s
}

// QuestionView is the current question as the player sees it. The correct
// answer is present only once the question is checked or the quiz is
// submitted.
type QuestionView struct {
	ID             string             `json:"id"`
	Position       int                `json:"position"`
	Heading        string             `json:"heading"`
	Text           string             `json:"text"`
	Type           model.QuestionType `json:"type"`
	TotalMarks     int                `json:"total_marks"`
	Difficulty     int                `json:"difficulty"`
	Topic          string             `json:"topic,omitempty"`
	Options        []model.Option     `json:"options,omitempty"`
	Answer         string             `json:"answer"`
	Checked        bool               `json:"checked"`
	Locked         bool               `json:"locked"`
	Correct        *bool              `json:"correct,omitempty"`
	Feedback       string             `json:"feedback,omitempty"`
	CorrectAnswer  *string            `json:"correct_answer,omitempty"`
	Explanation    *string            `json:"explanation,omitempty"`
	HintsShown     int                `json:"hints_shown"`
	HintsAvailable int                `json:"hints_available"`
}

// TimerView carries both timers with their display urgency.
type TimerView struct {
	Timed          bool         `json:"timed"`
	Remaining      int          `json:"remaining"`
	RemainingClock string       `json:"remaining_clock,omitempty"`
	QuizLevel      player.Level `json:"quiz_level,omitempty"`
	Elapsed        int          `json:"elapsed"`
	ElapsedClock   string       `json:"elapsed_clock"`
	QuestionLevel  player.Level `json:"question_level"`
}

// ResultView is the results screen.
type ResultView struct {
	player.Result
	Band      *player.Band `json:"band,omitempty"`
	BandText  string       `json:"band_text,omitempty"`
	ScoreLine string       `json:"score_line"`
}

// PlayerView is the full player screen.
type PlayerView struct {
	PlayerID   string              `json:"player_id"`
	SessionID  string              `json:"session_id,omitempty"`
	Quiz       QuizSummary         `json:"quiz"`
	Status     model.SessionStatus `json:"status"`
	StatusText string              `json:"status_text"`
	Index      int                 `json:"index"`
	Total      int                 `json:"total"`
	Question   *QuestionView       `json:"question,omitempty"`
	Timer      *TimerView          `json:"timer,omitempty"`
	Answers    map[string]string   `json:"answers"`
	Checked    []string            `json:"checked"`
	Result     *ResultView         `json:"result,omitempty"`
	Message    string              `json:"message,omitempty"`
}

func statusText(ctx context.Context, s model.SessionStatus) string {
	switch s {
	case model.StatusInProgress:
		return i18n.T(ctx, "StatusInProgress")
	case model.StatusSubmitted:
		return i18n.T(ctx, "StatusSubmitted")
	default:
		return i18n.T(ctx, "StatusNotStarted")
	}
}

func newPlayerView(ctx context.Context, playerID string, st player.State) PlayerView {
	qs := st.Questions()
	v := PlayerView{
		PlayerID:   playerID,
		SessionID:  st.SessionID(),
		Quiz:       summarize(ctx, st.Bundle()),
		Status:     st.Status(),
		StatusText: statusText(ctx, st.Status()),
		Index:      st.Index(),
		Total:      len(qs),
		Answers:    st.Answers(),
		Checked:    []string{},
	}
	for _, q := range qs {
		if st.Checked(q.ID) {
			v.Checked = append(v.Checked, q.ID)
		}
	}

	switch st.Status() {
	case model.StatusNotStarted:
		v.Message = i18n.T(ctx, "StartPrompt")
		return v
	case model.StatusInProgress:
		v.Question = newQuestionView(ctx, st, st.Index())
		v.Timer = newTimerView(st)
	case model.StatusSubmitted:
		v.Question = newQuestionView(ctx, st, st.Index())
		if r, ok := st.Result(); ok {
			rv := &ResultView{Result: r, ScoreLine: i18n.ScoreLine(ctx, r)}
			if r.Score != nil {
				b := player.BandFor(*r.Score)
				rv.Band = &b
				rv.BandText = i18n.Band(ctx, b)
			}
			v.Result = rv
		}
		if st.AutoSubmitted() {
			v.Message = i18n.T(ctx, "TimeUp")
		} else {
			v.Message = i18n.T(ctx, "QuizSubmitted")
		}
	}
	return v
}

func newQuestionView(ctx context.Context, st player.State, index int) *QuestionView {
	q := st.Questions()[index]
	qv := &QuestionView{
		ID:             q.ID,
		Position:       index,
		Heading:        i18n.Td(ctx, "QuestionOf", map[string]any{"N": index + 1, "Total": len(st.Questions())}),
		Text:           q.Text,
		Type:           q.Type,
		TotalMarks:     q.TotalMarks,
		Difficulty:     q.Difficulty,
		Topic:          q.Topic,
		Options:        slices.Clone(q.Options),
		Answer:         st.Answer(q.ID),
		Checked:        st.Checked(q.ID),
		Locked:         st.Locked(q.ID),
		HintsShown:     st.HintsShown(q.ID),
		HintsAvailable: len(q.Hints),
	}
	revealed := qv.Checked || st.Status() == model.StatusSubmitted
	if revealed {
		qv.CorrectAnswer = q.CorrectAnswer
	}
	if qv.Checked && q.Graded() {
		ok := q.IsCorrect(qv.Answer)
		qv.Correct = &ok
	}
	if qv.Checked {
		qv.Feedback = i18n.Feedback(ctx, player.Check{Graded: q.Graded(), Correct: q.IsCorrect(qv.Answer)})
	}
	if revealed && st.ExplanationShown(q.ID) {
		qv.Explanation = q.Explanation
	}
	return qv
}

func newTimerView(st player.State) *TimerView {
	tv := &TimerView{
		Elapsed:       st.Elapsed(),
		ElapsedClock:  player.FormatClock(st.Elapsed()),
		QuestionLevel: player.QuestionLevel(st.Elapsed()),
	}
	if rem, timed := st.Remaining(); timed {
		tv.Timed = true
		tv.Remaining = rem
		tv.RemainingClock = player.FormatClock(rem)
		tv.QuizLevel = player.QuizLevel(rem)
	}
	return tv
}
