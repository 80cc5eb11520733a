package player

import (
	"fmt"
	"time"

	"github.com/viditforsv/quizplayer/internal/model"
)

// Level is the display urgency of a timer.
type Level string

const (
	LevelNormal   Level = "normal"
	LevelWarning  Level = "warning"
	LevelCritical Level = "critical"
)

// QuestionLevel returns the urgency of the per-question elapsed counter.
func QuestionLevel(elapsed int) Level {
	switch {
	case elapsed >= 90:
		return LevelCritical
	case elapsed >= 70:
		return LevelWarning
	default:
		return LevelNormal
	}
}

// QuizLevel returns the urgency of the global countdown.
func QuizLevel(remaining int) Level {
	if remaining < 60 {
		return LevelCritical
	}
	return LevelNormal
}

// FormatClock renders seconds as m:ss.
func FormatClock(seconds int) string {
	seconds = max(0, seconds)
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}

// runTicker drives Tick every interval for generation gen. It returns when
// the player is closed, a newer generation starts, or the play-through
// leaves in_progress.
func (p *Player) runTicker(gen uint64) {
	ticker := time.NewTicker(p.opts.TickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-p.ctx.Done():
			return
		case <-ticker.C:
			if keep, _ := p.tick(gen); !keep {
				return
			}
		}
	}
}

// tick applies one Tick if gen is still current. It reports whether the
// ticker should keep running and whether this tick submitted the quiz.
func (p *Player) tick(gen uint64) (keep, expired bool) {
	p.mu.Lock()
	if p.gen != gen || p.state.Status() != model.StatusInProgress {
		p.mu.Unlock()
		return false, false
	}
	next, expired := p.state.Tick(p.opts.Now())
	next.seq = p.state.seq + 1
	p.state = next
	p.mu.Unlock()

	if expired {
		p.opts.Logger.Info("time limit reached, quiz submitted",
			"session", next.SessionID(), "quiz", next.Quiz().ID)
		p.notify(EventSubmitted, next)
		return false, true
	}
	p.notify(EventTicked, next)
	return true, false
}
