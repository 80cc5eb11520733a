package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/viditforsv/quizplayer/internal/questionbank"
)

// bankFacets maps bank flags to question bank query parameters.
var bankFacets = []struct {
	flag, param string
	list        bool
}{
	{"board", "boards", true},
	{"course-type", "course_types", true},
	{"level", "levels", true},
	{"tag", "tags", true},
	{"subject", "subject", false},
	{"topic", "topic", false},
	{"grade", "grade", false},
	{"type", "question_type", false},
	{"qa-status", "qa_status", false},
	{"priority", "priority_level", false},
	{"source", "is_pyq", false},
	{"flagged", "is_flagged", false},
	{"difficulty", "difficulty", false},
	{"difficulty-min", "difficulty_min", false},
	{"difficulty-max", "difficulty_max", false},
}

func bankCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bank [search]",
		Short: "Browse the question bank",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runBank,
	}
	f := cmd.Flags()
	addBackendFlags(f)
	f.StringSlice("board", nil, "Boards (repeatable)")
	f.StringSlice("course-type", nil, "Course types (repeatable)")
	f.StringSlice("level", nil, "Levels (repeatable)")
	f.StringSlice("tag", nil, "Tags (repeatable)")
	f.String("subject", "", "Subject")
	f.String("topic", "", "Topic")
	f.String("grade", "", "Grade")
	f.String("type", "", "Question type (mcq, true_false, fill_blank, subjective)")
	f.String("qa-status", "", "QA status")
	f.String("priority", "", "Priority level")
	f.String("source", "", "pyq or practice")
	f.String("flagged", "", "flagged or unflagged")
	f.String("difficulty", "", "Exact difficulty (1-10)")
	f.String("difficulty-min", "", "Minimum difficulty (1-10)")
	f.String("difficulty-max", "", "Maximum difficulty (1-10)")
	f.Int("page", 1, "First page to show")
	f.Int("limit", questionbank.DefaultLimit, "Questions per page")
	f.Int("pages", 1, "Number of pages to show")
	f.Bool("json", false, "Print pages as JSON")
	addLogFlags(f, "warn")
	return cmd
}

func runBank(cmd *cobra.Command, args []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	api := newBackend(v)
	if api == nil {
		return errors.New("the question bank needs --backend-url")
	}

	filter, err := questionbank.ParseFilter(bankParams(v))
	if err != nil {
		return err
	}

	b := questionbank.NewBrowser(api, v.GetInt("limit"))
	if len(args) > 0 {
		b.SetSearch(args[0])
	}
	b.SetFilter(filter)
	b.SetPage(v.GetInt("page"))

	out := cmd.OutOrStdout()
	for i := 0; i < max(1, v.GetInt("pages")); i++ {
		page, err := b.Fetch(cmd.Context())
		if err != nil {
			return fmt.Errorf("fetch page %d: %w", b.Query().Page, err)
		}
		if v.GetBool("json") {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			if err := enc.Encode(page); err != nil {
				return fmt.Errorf("encode page: %w", err)
			}
		} else if err := printPage(out, page); err != nil {
			return err
		}
		if page.Page >= page.TotalPages {
			break
		}
		b.NextPage()
	}
	return nil
}

func bankParams(v *viper.Viper) url.Values {
	params := url.Values{}
	for _, fc := range bankFacets {
		s := v.GetString(fc.flag)
		if fc.list {
			s = strings.Join(v.GetStringSlice(fc.flag), ",")
		}
		if s != "" {
			params.Set(fc.param, s)
		}
	}
	return params
}

func printPage(w io.Writer, p questionbank.Page) error {
	fmt.Fprintf(w, "Page %d of %d (%d questions)\n", p.Page, max(p.TotalPages, 1), p.TotalQuestions)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTYPE\tDIFF\tMARKS\tTOPIC\tQUESTION")
	for _, e := range p.Questions {
		id := e.HumanReadableID
		if id == "" {
			id = e.ID
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\t%s\n",
			id, e.QuestionType, e.Difficulty, e.TotalMarks, e.Topic, truncate(e.QuestionText, 60))
	}
	return tw.Flush()
}

func truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
