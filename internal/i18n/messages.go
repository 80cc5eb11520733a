package i18n

import (
	"context"
	"errors"

	"github.com/viditforsv/quizplayer/internal/model"
	"github.com/viditforsv/quizplayer/internal/player"
)

var errMessages = []struct {
	err error
	id  string
}{
	{player.ErrNotInProgress, "NotInProgress"},
	{player.ErrAlreadySubmitted, "AlreadySubmitted"},
	{player.ErrInvalidTransition, "AlreadyStarted"},
	{player.ErrNoAnswer, "NoAnswer"},
	{player.ErrNotChecked, "NotChecked"},
}

// Error returns the localized message for an engine error, or err's own
// text when it has none.
func Error(ctx context.Context, err error) string {
	for _, m := range errMessages {
		if errors.Is(err, m.err) {
			return T(ctx, m.id)
		}
	}
	return err.Error()
}

// Band returns the localized feedback message for a score band.
func Band(ctx context.Context, b player.Band) string {
	switch b {
	case player.BandExcellent:
		return T(ctx, "BandExcellent")
	case player.BandGood:
		return T(ctx, "BandGood")
	case player.BandPractice:
		return T(ctx, "BandPractice")
	default:
		return T(ctx, "BandReview")
	}
}

// Review returns the localized label of a review status.
func Review(ctx context.Context, s model.ReviewStatus) string {
	switch s {
	case model.ReviewCorrect:
		return T(ctx, "ReviewCorrect")
	case model.ReviewIncorrect:
		return T(ctx, "ReviewIncorrect")
	default:
		return T(ctx, "ReviewUngraded")
	}
}

// Feedback returns the message shown after checking an answer.
func Feedback(ctx context.Context, c player.Check) string {
	switch {
	case !c.Graded:
		return T(ctx, "CheckedUngraded")
	case c.Correct:
		return T(ctx, "Correct")
	default:
		return T(ctx, "Incorrect")
	}
}

// ScoreLine renders the result headline.
func ScoreLine(ctx context.Context, r player.Result) string {
	if r.Score == nil {
		return T(ctx, "ScoreUnset")
	}
	return Td(ctx, "ScoreLine", map[string]any{"Score": *r.Score, "Correct": r.Correct, "Total": r.Total})
}
