package player

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/viditforsv/quizplayer/internal/model"
)

var t0 = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

func ptr[T any](v T) *T { return &v }

// sampleBundle is a three-question quiz: mcq q1 ("A"), true_false q2
// ("True") and an ungraded subjective q3.
func sampleBundle() model.QuizBundle {
	return model.QuizBundle{
		Quiz: model.Quiz{
			ID:        "quiz-1",
			Title:     "Sets and relations",
			TimeLimit: ptr(1),
			LessonID:  ptr("lesson-7"),
			CourseID:  ptr("course-2"),
		},
		Questions: []model.Question{
			{
				ID: "q1", Order: 1, Type: model.QuestionMCQ, TotalMarks: 2, Difficulty: 3,
				Text:          "Which set is empty?",
				CorrectAnswer: ptr("A"),
				Explanation:   ptr("It has no elements."),
				Options:       []model.Option{{Value: "A", Label: "{}"}, {Value: "B", Label: "{0}"}},
				Hints:         []string{"Count the elements."},
			},
			{
				ID: "q2", Order: 2, Type: model.QuestionTrueFalse, TotalMarks: 1, Difficulty: 2,
				Text:          "Every relation is a function.",
				CorrectAnswer: ptr("True"),
			},
			{
				ID: "q3", Order: 3, Type: model.QuestionSubjective, TotalMarks: 5, Difficulty: 6,
				Text: "Explain equivalence classes.",
			},
		},
	}
}

func started(t *testing.T, b model.QuizBundle) State {
	t.Helper()
	s, err := NewState(b)
	require.NoError(t, err)
	s, err = s.Start("sess-1", t0)
	require.NoError(t, err)
	return s
}

func TestNewStateRejectsBadBundles(t *testing.T) {
	_, err := NewState(model.QuizBundle{})
	require.ErrorIs(t, err, ErrEmptyQuiz)

	b := sampleBundle()
	b.Questions[1].ID = "q1"
	_, err = NewState(b)
	require.Error(t, err)
}

func TestStartTransitions(t *testing.T) {
	s, err := NewState(sampleBundle())
	require.NoError(t, err)
	require.Equal(t, model.StatusNotStarted, s.Status())

	_, err = s.GoTo(1, t0)
	require.ErrorIs(t, err, ErrNotInProgress)
	_, err = s.Submit(false, t0)
	require.ErrorIs(t, err, ErrNotInProgress)

	s, err = s.Start("sess-1", t0)
	require.NoError(t, err)
	require.Equal(t, model.StatusInProgress, s.Status())
	require.Equal(t, 0, s.Index())
	remaining, timed := s.Remaining()
	require.True(t, timed)
	require.Equal(t, 60, remaining)

	_, err = s.Start("sess-2", t0)
	require.ErrorIs(t, err, ErrInvalidTransition)
}

func TestNavigationClamp(t *testing.T) {
	b := sampleBundle()
	for i := 3; i < 10; i++ {
		b.Questions = append(b.Questions, model.Question{ID: fmt.Sprintf("q%d", i+1), Type: model.QuestionSubjective})
	}
	s := started(t, b)

	tests := []struct {
		target int
		want   int
	}{
		{-5, 0},
		{99, 9},
		{4, 4},
		{0, 0},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("goto_%d", tt.target), func(t *testing.T) {
			next, err := s.GoTo(tt.target, t0)
			require.NoError(t, err)
			require.Equal(t, tt.want, next.Index())
		})
	}
}

func TestGoToResetsElapsed(t *testing.T) {
	s := started(t, sampleBundle())
	s, _ = s.Tick(t0.Add(time.Second))
	s, _ = s.Tick(t0.Add(2 * time.Second))
	require.Equal(t, 2, s.Elapsed())

	same, err := s.GoTo(0, t0.Add(3*time.Second))
	require.NoError(t, err)
	require.Equal(t, 2, same.Elapsed(), "staying on a question keeps its counter")

	moved, err := s.GoTo(1, t0.Add(3*time.Second))
	require.NoError(t, err)
	require.Equal(t, 0, moved.Elapsed())
	require.Equal(t, 2, s.Elapsed(), "receiver is unchanged")
}

func TestLockOnCorrectCheck(t *testing.T) {
	s := started(t, sampleBundle())

	s, ok, err := s.SetAnswer("q1", "A")
	require.NoError(t, err)
	require.True(t, ok)

	s, c, err := s.CheckAnswer("q1")
	require.NoError(t, err)
	require.True(t, c.Correct)
	require.True(t, c.Recordable)
	require.True(t, s.Locked("q1"))
	require.True(t, s.ExplanationShown("q1"))

	next, ok, err := s.SetAnswer("q1", "B")
	require.NoError(t, err)
	require.False(t, ok)
	require.Equal(t, "A", next.Answer("q1"))
	require.True(t, next.Checked("q1"))
}

func TestUnlockOnWrongCheck(t *testing.T) {
	s := started(t, sampleBundle())

	s, _, _ = s.SetAnswer("q2", "False")
	s, c, err := s.CheckAnswer("q2")
	require.NoError(t, err)
	require.False(t, c.Correct)
	require.False(t, s.Locked("q2"))

	s, ok, err := s.SetAnswer("q2", "True")
	require.NoError(t, err)
	require.True(t, ok)
	require.False(t, s.Checked("q2"))
	require.False(t, s.ExplanationShown("q2"))
	require.Equal(t, "True", s.Answer("q2"))
}

func TestSetAnswerEdgeCases(t *testing.T) {
	s := started(t, sampleBundle())

	_, _, err := s.SetAnswer("missing", "A")
	require.ErrorIs(t, err, ErrUnknownQuestion)

	s, _, _ = s.SetAnswer("q3", "draft")
	s, ok, err := s.SetAnswer("q3", "")
	require.NoError(t, err)
	require.True(t, ok)
	require.NotContains(t, s.Answers(), "q3")

	_, _, err = s.CheckAnswer("q3")
	require.ErrorIs(t, err, ErrNoAnswer)
}

func TestCheckUngradedIsNotRecordable(t *testing.T) {
	s := started(t, sampleBundle())
	s, _, _ = s.SetAnswer("q3", "classes partition the set")
	_, c, err := s.CheckAnswer("q3")
	require.NoError(t, err)
	require.False(t, c.Graded)
	require.False(t, c.Recordable)
}

func TestResetQuestionOnlyTouchesOne(t *testing.T) {
	s := started(t, sampleBundle())
	s, _, _ = s.SetAnswer("q1", "A")
	s, _, _ = s.CheckAnswer("q1")
	s, _, _ = s.UseHint("q1")
	s, _, _ = s.SetAnswer("q2", "True")

	s, err := s.ResetQuestion("q1")
	require.NoError(t, err)
	require.Empty(t, s.Answer("q1"))
	require.False(t, s.Checked("q1"))
	require.False(t, s.ExplanationShown("q1"))
	require.Zero(t, s.HintsShown("q1"))
	require.Equal(t, "True", s.Answer("q2"))

	s, ok, err := s.SetAnswer("q1", "B")
	require.NoError(t, err)
	require.True(t, ok, "reset unlocks the question")
	require.Equal(t, "B", s.Answer("q1"))
}

func TestHintsAndExplanation(t *testing.T) {
	s := started(t, sampleBundle())

	s, n, err := s.UseHint("q1")
	require.NoError(t, err)
	require.Equal(t, 0, n)
	s, n, _ = s.UseHint("q1")
	require.Equal(t, 1, n)
	require.Equal(t, 2, s.HintsShown("q1"))

	_, _, err = s.ToggleExplanation("q1")
	require.ErrorIs(t, err, ErrNotChecked)

	s, _, _ = s.SetAnswer("q1", "B")
	s, _, _ = s.CheckAnswer("q1")
	s, shown, err := s.ToggleExplanation("q1")
	require.NoError(t, err)
	require.False(t, shown)
	_, shown, _ = s.ToggleExplanation("q1")
	require.True(t, shown)
}

func TestAttemptPayload(t *testing.T) {
	s := started(t, sampleBundle())
	s, _ = s.GoTo(1, t0.Add(5*time.Second))
	s, _, _ = s.UseHint("q2")
	s, _, _ = s.SetAnswer("q2", "True")
	s, c, err := s.CheckAnswer("q2")
	require.NoError(t, err)

	a := s.Attempt(c, t0.Add(12*time.Second+600*time.Millisecond))
	require.Equal(t, model.Attempt{
		QuestionID:       "q2",
		LessonID:         ptr("lesson-7"),
		CourseID:         ptr("course-2"),
		TimeTakenSeconds: 7,
		IsCorrect:        true,
		HintUsed:         true,
		SessionID:        "sess-1",
		SessionOrder:     1,
	}, a)

	// Clock skew never yields less than one second.
	a = s.Attempt(c, t0)
	require.Equal(t, 1, a.TimeTakenSeconds)
}

func TestWorkedExample(t *testing.T) {
	s := started(t, sampleBundle())

	s, _, _ = s.SetAnswer("q1", "A")
	s, _, _ = s.CheckAnswer("q1")
	s, _, _ = s.SetAnswer("q2", "False")
	s, _, _ = s.CheckAnswer("q2")
	s, ok, _ := s.SetAnswer("q2", "True")
	require.True(t, ok)
	s, _, _ = s.CheckAnswer("q2")

	s, err := s.Submit(false, t0.Add(time.Minute))
	require.NoError(t, err)
	r, ok := s.Result()
	require.True(t, ok)
	require.Equal(t, 2, r.Total)
	require.Equal(t, 2, r.Correct)
	require.NotNil(t, r.Score)
	require.Equal(t, 100, *r.Score)
	require.Equal(t, model.ReviewUngraded, r.Review[2].Status)

	_, err = s.Submit(false, t0.Add(time.Minute))
	require.ErrorIs(t, err, ErrAlreadySubmitted)
	_, _, err = s.SetAnswer("q3", "late")
	require.ErrorIs(t, err, ErrNotInProgress)
}

func TestTimerExpirySubmitsOnce(t *testing.T) {
	s := started(t, sampleBundle())
	s, _, _ = s.SetAnswer("q1", "A")

	expiries := 0
	for i := 1; i <= 65; i++ {
		var expired bool
		s, expired = s.Tick(t0.Add(time.Duration(i) * time.Second))
		if expired {
			expiries++
			require.Equal(t, 60, i)
		}
	}
	require.Equal(t, 1, expiries)
	require.Equal(t, model.StatusSubmitted, s.Status())
	require.True(t, s.AutoSubmitted())
	remaining, _ := s.Remaining()
	require.Zero(t, remaining)
	require.Equal(t, 60, s.Elapsed(), "timers freeze on submit")
}

func TestUntimedQuizNeverExpires(t *testing.T) {
	b := sampleBundle()
	b.Quiz.TimeLimit = nil
	s := started(t, b)
	for i := 0; i < 500; i++ {
		s, _ = s.Tick(t0)
	}
	require.Equal(t, model.StatusInProgress, s.Status())
	_, timed := s.Remaining()
	require.False(t, timed)
}

func TestRetryClearsEverything(t *testing.T) {
	s := started(t, sampleBundle())
	s, _, _ = s.SetAnswer("q1", "A")
	s, _, _ = s.CheckAnswer("q1")
	s, _ = s.GoTo(2, t0)
	s, _ = s.Submit(false, t0)

	s, err := s.Start("sess-2", t0.Add(time.Hour))
	require.NoError(t, err)
	require.Equal(t, "sess-2", s.SessionID())
	require.Equal(t, 0, s.Index())
	require.Empty(t, s.Answers())
	require.False(t, s.Checked("q1"))
	_, ok := s.Result()
	require.False(t, ok)
	require.Nil(t, s.SubmittedAt())
}

func TestSnapshotRoundTrip(t *testing.T) {
	s := started(t, sampleBundle())
	s, _, _ = s.SetAnswer("q1", "A")
	s, _, _ = s.CheckAnswer("q1")
	s, _ = s.GoTo(1, t0.Add(time.Second))
	s, _ = s.Tick(t0.Add(2 * time.Second))

	got, err := StateFromSnapshot(s.Snapshot())
	require.NoError(t, err)
	require.Equal(t, s.Snapshot(), got.Snapshot())
	require.True(t, got.Locked("q1"))

	snap := s.Snapshot()
	snap.Answers["ghost"] = "x"
	_, err = StateFromSnapshot(snap)
	require.ErrorIs(t, err, ErrUnknownQuestion)
}

func TestResumeCountsStoredTime(t *testing.T) {
	s := started(t, sampleBundle())
	s, _ = s.Tick(t0.Add(time.Second))
	restored, err := StateFromSnapshot(s.Snapshot())
	require.NoError(t, err)

	next, expired := restored.Resume(t0.Add(20 * time.Second))
	require.False(t, expired)
	rem, timed := next.Remaining()
	require.True(t, timed)
	require.Equal(t, 40, rem)
	require.Equal(t, 20, next.Elapsed())

	// A clock behind the snapshot never hands time back.
	next, _ = restored.Resume(t0)
	rem, _ = next.Remaining()
	require.Equal(t, 59, rem)
	require.Equal(t, 1, next.Elapsed())

	next, expired = restored.Resume(t0.Add(2 * time.Minute))
	require.True(t, expired)
	require.Equal(t, model.StatusSubmitted, next.Status())
	require.True(t, next.AutoSubmitted())
	rem, _ = next.Remaining()
	require.Zero(t, rem)
	_, ok := next.Result()
	require.True(t, ok)

	// Submitted states are left alone.
	again, expired := next.Resume(t0.Add(time.Hour))
	require.False(t, expired)
	require.Equal(t, next.SubmittedAt(), again.SubmittedAt())
}
