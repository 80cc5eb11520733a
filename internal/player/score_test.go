package player

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/viditforsv/quizplayer/internal/model"
)

func TestScore(t *testing.T) {
	graded := func(id, correct string) model.Question {
		return model.Question{ID: id, Type: model.QuestionMCQ, CorrectAnswer: ptr(correct), TotalMarks: 1}
	}
	ungraded := func(id string) model.Question {
		return model.Question{ID: id, Type: model.QuestionSubjective, TotalMarks: 3}
	}

	tests := []struct {
		name      string
		questions []model.Question
		answers   map[string]string
		wantScore *int
		correct   int
		total     int
	}{
		{
			name:      "all correct",
			questions: []model.Question{graded("a", "1"), graded("b", "2")},
			answers:   map[string]string{"a": "1", "b": "2"},
			wantScore: ptr(100), correct: 2, total: 2,
		},
		{
			name:      "one of three rounds down",
			questions: []model.Question{graded("a", "1"), graded("b", "2"), graded("c", "3")},
			answers:   map[string]string{"a": "1"},
			wantScore: ptr(33), correct: 1, total: 3,
		},
		{
			name:      "two of three rounds up",
			questions: []model.Question{graded("a", "1"), graded("b", "2"), graded("c", "3")},
			answers:   map[string]string{"a": "1", "b": "2"},
			wantScore: ptr(67), correct: 2, total: 3,
		},
		{
			name:      "half rounds up",
			questions: []model.Question{graded("a", "1"), graded("b", "2"), graded("c", "3"), graded("d", "4"), graded("e", "5"), graded("f", "6"), graded("g", "7"), graded("h", "8")},
			answers:   map[string]string{"a": "1"},
			wantScore: ptr(13), correct: 1, total: 8,
		},
		{
			name:      "ungraded excluded",
			questions: []model.Question{graded("a", "1"), ungraded("b")},
			answers:   map[string]string{"a": "0", "b": "essay"},
			wantScore: ptr(0), correct: 0, total: 1,
		},
		{
			name:      "nothing graded leaves score unset",
			questions: []model.Question{ungraded("a"), ungraded("b")},
			answers:   map[string]string{"a": "essay"},
			wantScore: nil, correct: 0, total: 0,
		},
		{
			name:      "exact string match only",
			questions: []model.Question{graded("a", "True")},
			answers:   map[string]string{"a": "true"},
			wantScore: ptr(0), correct: 0, total: 1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := Score(tt.questions, tt.answers)
			require.Equal(t, tt.wantScore, r.Score)
			require.Equal(t, tt.correct, r.Correct)
			require.Equal(t, tt.total, r.Total)
			require.Len(t, r.Review, len(tt.questions))
		})
	}
}

func TestScoreReviewAndMarks(t *testing.T) {
	r := Score(sampleBundle().Questions, map[string]string{"q1": "B", "q2": "True"})
	require.Equal(t, 8, r.TotalMarks)
	require.Equal(t, []model.ReviewStatus{model.ReviewIncorrect, model.ReviewCorrect, model.ReviewUngraded},
		[]model.ReviewStatus{r.Review[0].Status, r.Review[1].Status, r.Review[2].Status})
}

func TestBandFor(t *testing.T) {
	tests := []struct {
		score int
		want  Band
	}{
		{100, BandExcellent},
		{80, BandExcellent},
		{79, BandGood},
		{60, BandGood},
		{59, BandPractice},
		{40, BandPractice},
		{39, BandReview},
		{0, BandReview},
	}
	for _, tt := range tests {
		if got := BandFor(tt.score); got != tt.want {
			t.Errorf("BandFor(%d) = %s, want %s", tt.score, got, tt.want)
		}
	}
}

func TestTimerLevels(t *testing.T) {
	require.Equal(t, LevelNormal, QuestionLevel(69))
	require.Equal(t, LevelWarning, QuestionLevel(70))
	require.Equal(t, LevelWarning, QuestionLevel(89))
	require.Equal(t, LevelCritical, QuestionLevel(90))
	require.Equal(t, LevelNormal, QuizLevel(60))
	require.Equal(t, LevelCritical, QuizLevel(59))
	require.Equal(t, "1:05", FormatClock(65))
	require.Equal(t, "0:00", FormatClock(-3))
}
