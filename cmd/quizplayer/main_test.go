package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/viditforsv/quizplayer/internal/questionbank"
)

func TestRootCommands(t *testing.T) {
	root := rootCmd()
	for _, name := range []string{"serve", "play", "bank", "export"} {
		if cmd, _, err := root.Find([]string{name}); err != nil || cmd.Name() != name {
			t.Errorf("subcommand %q not found", name)
		}
	}
	if root.Flags().Lookup("addr") == nil {
		t.Error("serve flags should be registered on root")
	}
}

func TestBankParams(t *testing.T) {
	cmd := bankCmd()
	if err := cmd.ParseFlags([]string{
		"--board", "CBSE", "--board", "IB",
		"--topic", "Sets and maps",
		"--source", "pyq",
		"--difficulty-min", "3",
	}); err != nil {
		t.Fatal(err)
	}
	params := bankParams(viperForCmd(cmd))

	tests := map[string]string{
		"boards":         "CBSE,IB",
		"topic":          "Sets and maps",
		"is_pyq":         "pyq",
		"difficulty_min": "3",
		"subject":        "",
	}
	for key, want := range tests {
		if got := params.Get(key); got != want {
			t.Errorf("%s = %q, want %q", key, got, want)
		}
	}

	f, err := questionbank.ParseFilter(params)
	if err != nil {
		t.Fatalf("ParseFilter: %v", err)
	}
	if f.PYQ == nil || !*f.PYQ {
		t.Error("expected pyq filter")
	}
	if f.Difficulty == nil || f.Difficulty.Max != nil || *f.Difficulty.Min != 3 {
		t.Errorf("difficulty = %+v", f.Difficulty)
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   string
		n    int
		want string
	}{
		{"short", 10, "short"},
		{"line\n  break", 20, "line break"},
		{"abcdefghij", 5, "abcd…"},
	}
	for _, tt := range tests {
		if got := truncate(tt.in, tt.n); got != tt.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tt.in, tt.n, got, tt.want)
		}
	}
}

func TestPrintPage(t *testing.T) {
	var buf bytes.Buffer
	err := printPage(&buf, questionbank.Page{
		Questions:      []questionbank.Entry{{ID: "uuid-1", HumanReadableID: "MATH-1", QuestionType: "mcq", Difficulty: 4, TotalMarks: 2, Topic: "Sets", QuestionText: "Which set is empty?"}},
		TotalQuestions: 1,
		Page:           1,
		TotalPages:     1,
	})
	if err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"Page 1 of 1 (1 questions)", "MATH-1", "Which set is empty?"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}
