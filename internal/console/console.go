// Package console plays a quiz on a line-oriented terminal.
package console

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/viditforsv/quizplayer/internal/i18n"
	"github.com/viditforsv/quizplayer/internal/model"
	"github.com/viditforsv/quizplayer/internal/player"
)

// HintFunc reveals the next hint for a question and returns its text, which
// is empty when no hint is left.
type HintFunc func(ctx context.Context, qid string) (string, error)

type console struct {
	p    *player.Player
	out  io.Writer
	hint HintFunc
}

// Run reads commands from in until "q", EOF or ctx is done, applying them to
// p and printing the result to out. hint may be nil, in which case only the
// question's own hints are shown.
func Run(ctx context.Context, in io.Reader, out io.Writer, p *player.Player, hint HintFunc) error {
	c := &console{p: p, out: out, hint: hint}
	if c.hint == nil {
		c.hint = c.staticHint
	}

	lines := make(chan string)
	scanErr := make(chan error, 1)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
		scanErr <- sc.Err()
	}()

	c.summary(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-scanErr:
					return err
				default:
					return nil
				}
			}
			if quit := c.exec(ctx, strings.TrimSpace(line)); quit {
				c.println(i18n.T(ctx, "Goodbye"))
				return nil
			}
		}
	}
}

func (c *console) println(a ...any) {
	fmt.Fprintln(c.out, a...)
}

func (c *console) exec(ctx context.Context, line string) (quit bool) {
	cmd, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)
	st := c.p.State()
	qid := ""
	if st.Status() != model.StatusNotStarted {
		qid = st.Current().ID
	}

	var err error
	switch strings.ToLower(cmd) {
	case "":
		c.render(ctx)
		return false
	case "q", "quit", "exit":
		return true
	case "help", "?":
		c.println(i18n.T(ctx, "ConsoleHelp"))
		return false
	case "start", "retry":
		_, err = c.p.Start()
		if err == nil {
			c.render(ctx)
		}
	case "a", "answer":
		var accepted bool
		accepted, err = c.p.SetAnswer(qid, arg)
		switch {
		case err != nil:
		case !accepted:
			c.println(i18n.T(ctx, "AnswerLocked"))
		case arg == "":
			c.println(i18n.T(ctx, "AnswerCleared"))
		default:
			c.println(i18n.T(ctx, "AnswerSaved"))
		}
	case "c", "check":
		var chk player.Check
		chk, err = c.p.CheckAnswer(qid)
		if err == nil {
			c.println(i18n.Feedback(ctx, chk))
		}
	case "r", "reset":
		if err = c.p.ResetQuestion(qid); err == nil {
			c.println(i18n.T(ctx, "AnswerCleared"))
		}
	case "n", "next":
		if _, err = c.p.Next(); err == nil {
			c.render(ctx)
		}
	case "p", "prev":
		if _, err = c.p.Prev(); err == nil {
			c.render(ctx)
		}
	case "g", "goto":
		n, convErr := strconv.Atoi(arg)
		if convErr != nil {
			c.println(i18n.T(ctx, "UnknownCommand"))
			return false
		}
		if _, err = c.p.GoTo(n - 1); err == nil {
			c.render(ctx)
		}
	case "h", "hint":
		var text string
		text, err = c.hint(ctx, qid)
		if err == nil {
			if text == "" {
				c.println(i18n.T(ctx, "NoHint"))
			} else {
				c.println(i18n.Td(ctx, "Hint", map[string]any{"Text": text}))
			}
		}
	case "e", "explain":
		var shown bool
		shown, err = c.p.ToggleExplanation(qid)
		if err == nil {
			q := c.p.State().Current()
			switch {
			case !shown:
				c.println(i18n.T(ctx, "ExplanationHidden"))
			case q.Explanation != nil:
				c.println(i18n.Td(ctx, "Explanation", map[string]any{"Text": *q.Explanation}))
			}
		}
	case "s", "submit":
		if _, err = c.p.Submit(); err == nil {
			c.results(ctx)
		}
	default:
		c.println(i18n.T(ctx, "UnknownCommand"))
		return false
	}

	if err != nil {
		c.println(i18n.Error(ctx, err))
		// The timer may have submitted the quiz while we waited for input.
		if st := c.p.State(); st.Status() == model.StatusSubmitted && st.AutoSubmitted() {
			c.results(ctx)
		}
	}
	return false
}

func (c *console) staticHint(_ context.Context, qid string) (string, error) {
	n, err := c.p.UseHint(qid)
	if err != nil {
		return "", err
	}
	hints := c.p.State().Current().Hints
	if n < len(hints) {
		return hints[n], nil
	}
	return "", nil
}

func (c *console) summary(ctx context.Context) {
	st := c.p.State()
	quiz := st.Quiz()
	c.println(quiz.Title)
	c.println(i18n.Tp(ctx, "QuestionsInQuiz", len(st.Questions())))
	c.println(i18n.Td(ctx, "TotalMarks", map[string]any{"Marks": st.Bundle().TotalMarks()}))
	if quiz.TimeLimitSeconds() > 0 {
		c.println(i18n.Td(ctx, "TimeLimit", map[string]any{"Minutes": *quiz.TimeLimit}))
	} else {
		c.println(i18n.T(ctx, "NoTimeLimit"))
	}
	switch st.Status() {
	case model.StatusNotStarted:
		c.println(i18n.T(ctx, "StartPrompt"))
	case model.StatusInProgress:
		c.render(ctx)
	case model.StatusSubmitted:
		c.results(ctx)
	}
}

func (c *console) render(ctx context.Context) {
	st := c.p.State()
	if st.Status() == model.StatusSubmitted {
		c.results(ctx)
		return
	}
	q := st.Current()
	c.println()
	c.println(i18n.Td(ctx, "QuestionOf", map[string]any{"N": st.Index() + 1, "Total": len(st.Questions())}) +
		" (" + i18n.Tp(ctx, "Marks", q.TotalMarks) + ")")
	c.println(q.Text)
	for _, o := range q.Options {
		c.println(fmt.Sprintf("  %s) %s", o.Value, o.Label))
	}
	if ans := st.Answer(q.ID); ans != "" {
		c.println(i18n.Td(ctx, "YourAnswer", map[string]any{"Answer": ans}))
	} else {
		c.println(i18n.T(ctx, "Unanswered"))
	}
	if rem, timed := st.Remaining(); timed {
		c.println(i18n.Td(ctx, "TimeRemaining", map[string]any{"Clock": player.FormatClock(rem)}))
	}
	c.println(i18n.Td(ctx, "TimeOnQuestion", map[string]any{"Clock": player.FormatClock(st.Elapsed())}))
}

func (c *console) results(ctx context.Context) {
	st := c.p.State()
	r, ok := st.Result()
	if !ok {
		return
	}
	c.println()
	if st.AutoSubmitted() {
		c.println(i18n.T(ctx, "TimeUp"))
	} else {
		c.println(i18n.T(ctx, "QuizSubmitted"))
	}
	c.println(i18n.ScoreLine(ctx, r))
	if r.Score != nil {
		c.println(i18n.Band(ctx, player.BandFor(*r.Score)))
	}
	for _, item := range r.Review {
		line := fmt.Sprintf("%d. %s", item.Position+1, i18n.Review(ctx, item.Status))
		if item.Status == model.ReviewIncorrect && item.CorrectAnswer != nil {
			line += " (" + i18n.Td(ctx, "CorrectAnswerWas", map[string]any{"Answer": *item.CorrectAnswer}) + ")"
		}
		c.println(line)
	}
	c.println(i18n.T(ctx, "RetryPrompt"))
}
