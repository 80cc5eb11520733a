package quizfile

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/viditforsv/quizplayer/internal/model"
)

const sampleYAML = `quiz:
  id: sets-101
  title: Sets basics
  time_limit: 5
  difficulty: easy
  lesson_id: lesson-7
questions:
  - id: q2
    order: 2
    type: true_false
    text: The empty set is a subset of every set.
    total_marks: 1
    difficulty: 2
    correct_answer: "True"
  - id: q1
    order: 1
    type: mcq
    text: Which set is empty?
    total_marks: 2
    difficulty: 3
    correct_answer: A
    explanation: It has no elements.
    hints:
      - Count the elements.
    options:
      - {value: A, label: "{}"}
      - {value: B, label: "{0}"}
  - id: q3
    order: 3
    type: subjective
    text: Explain the power set.
    total_marks: 5
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return p
}

func TestLoadYAML(t *testing.T) {
	p := writeFile(t, t.TempDir(), "sets.yaml", sampleYAML)
	b, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if b.Quiz.TimeLimitSeconds() != 300 {
		t.Errorf("time limit = %d, want 300", b.Quiz.TimeLimitSeconds())
	}
	if b.Quiz.LessonID == nil || *b.Quiz.LessonID != "lesson-7" {
		t.Errorf("lesson id = %v", b.Quiz.LessonID)
	}
	if got := b.Questions[0].ID; got != "q1" {
		t.Errorf("first question = %s, want q1 (sorted by order)", got)
	}
	if got := b.Questions[0].Hints; len(got) != 1 {
		t.Errorf("hints = %v", got)
	}
	if b.Questions[2].Graded() {
		t.Error("subjective question should be ungraded")
	}
	if *b.Questions[1].CorrectAnswer != "True" {
		t.Errorf("correct answer = %q", *b.Questions[1].CorrectAnswer)
	}
}

func TestLoadJSON(t *testing.T) {
	p := writeFile(t, t.TempDir(), "q.json", `{"quiz":{"id":"j","title":"J","time_limit":null},
"questions":[{"id":"a","question_type":"fill_blank","question_text":"2+2=?","correct_answer":"4"}]}`)
	b, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if b.Quiz.TimeLimitSeconds() != 0 {
		t.Errorf("expected untimed quiz")
	}
	if b.Questions[0].Type != model.QuestionFillBlank {
		t.Errorf("type = %s", b.Questions[0].Type)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"no id", "quiz: {title: x}\nquestions: [{id: a, type: subjective}]\n"},
		{"no questions", "quiz: {id: x}\nquestions: []\n"},
		{"duplicate", "quiz: {id: x}\nquestions: [{id: a, type: subjective}, {id: a, type: subjective}]\n"},
		{"bad type", "quiz: {id: x}\nquestions: [{id: a, type: essay}]\n"},
		{"mcq without options", "quiz: {id: x}\nquestions: [{id: a, type: mcq}]\n"},
		{"difficulty range", "quiz: {id: x}\nquestions: [{id: a, type: subjective, difficulty: 11}]\n"},
	}
	dir := t.TempDir()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := writeFile(t, dir, "bad.yaml", tt.yaml)
			if _, err := Load(p); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestSource(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "sets-101.yaml", sampleYAML)
	src := Source{Dir: dir}

	b, err := src.LoadQuiz(context.Background(), "sets-101")
	if err != nil {
		t.Fatalf("LoadQuiz: %v", err)
	}
	if b.Quiz.Title != "Sets basics" {
		t.Errorf("title = %q", b.Quiz.Title)
	}

	if _, err := src.LoadQuiz(context.Background(), "missing"); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("missing quiz: got %v", err)
	}
	if _, err := src.LoadQuiz(context.Background(), "../etc"); err == nil {
		t.Error("expected error for path traversal")
	}

	f := File{Bundle: b}
	if _, err := f.LoadQuiz(context.Background(), ""); err != nil {
		t.Errorf("File.LoadQuiz empty id: %v", err)
	}
	if _, err := f.LoadQuiz(context.Background(), "other"); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("File.LoadQuiz other: got %v", err)
	}
}
