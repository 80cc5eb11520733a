package player

import (
	"math"

	"github.com/viditforsv/quizplayer/internal/model"
)

// Result is the outcome of a submitted play-through.
type Result struct {
	// Score is the rounded percentage of correct graded questions. It is
	// nil when the quiz has no question with a defined correct answer.
	Score      *int         `json:"score"`
	Correct    int          `json:"correct"`
	Total      int          `json:"total"`
	TotalMarks int          `json:"total_marks"`
	Review     []ReviewItem `json:"review"`
}

// ReviewItem is one question on the results screen.
type ReviewItem struct {
	QuestionID    string             `json:"question_id"`
	Position      int                `json:"position"`
	Answer        string             `json:"answer"`
	CorrectAnswer *string            `json:"correct_answer,omitempty"`
	Status        model.ReviewStatus `json:"status"`
}

// Score grades answers against questions. Only questions with a defined
// correct answer count; the rest are reviewed as ungraded.
func Score(questions []model.Question, answers map[string]string) Result {
	r := Result{Review: make([]ReviewItem, 0, len(questions))}
	for i, q := range questions {
		r.TotalMarks += q.TotalMarks
		item := ReviewItem{
			QuestionID:    q.ID,
			Position:      i,
			Answer:        answers[q.ID],
			CorrectAnswer: q.CorrectAnswer,
			Status:        model.ReviewUngraded,
		}
		if q.Graded() {
			r.Total++
			item.Status = model.ReviewIncorrect
			if q.IsCorrect(answers[q.ID]) {
				r.Correct++
				item.Status = model.ReviewCorrect
			}
		}
		r.Review = append(r.Review, item)
	}
	if r.Total > 0 {
		score := int(math.Round(float64(r.Correct) / float64(r.Total) * 100))
		r.Score = &score
	}
	return r
}

// Band is the feedback tier shown with a score.
type Band string

const (
	BandExcellent Band = "excellent"
	BandGood      Band = "good"
	BandPractice  Band = "practice"
	BandReview    Band = "review"
)

// BandFor maps a percentage score to its feedback band.
func BandFor(score int) Band {
	switch {
	case score >= 80:
		return BandExcellent
	case score >= 60:
		return BandGood
	case score >= 40:
		return BandPractice
	default:
		return BandReview
	}
}
