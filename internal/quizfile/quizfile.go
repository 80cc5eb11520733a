// Package quizfile loads quizzes from local YAML or JSON files so the
// player can run without the backend.
package quizfile

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/viditforsv/quizplayer/internal/model"
)

// Load reads a quiz bundle from path. The format is chosen by extension:
// .json is JSON, anything else YAML.
func Load(path string) (model.QuizBundle, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return model.QuizBundle{}, fmt.Errorf("read quiz file: %w", err)
	}
	var b model.QuizBundle
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		err = json.Unmarshal(data, &b)
	default:
		err = yaml.Unmarshal(data, &b)
	}
	if err != nil {
		return model.QuizBundle{}, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}
	if err := Validate(b); err != nil {
		return model.QuizBundle{}, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	sort.SliceStable(b.Questions, func(i, j int) bool { return b.Questions[i].Order < b.Questions[j].Order })
	return b, nil
}

// Validate checks the fields the player relies on.
func Validate(b model.QuizBundle) error {
	if b.Quiz.ID == "" {
		return fmt.Errorf("quiz id is required")
	}
	if len(b.Questions) == 0 {
		return fmt.Errorf("quiz %s has no questions", b.Quiz.ID)
	}
	seen := make(map[string]bool, len(b.Questions))
	for i, q := range b.Questions {
		switch {
		case q.ID == "":
			return fmt.Errorf("question %d: id is required", i+1)
		case seen[q.ID]:
			return fmt.Errorf("question %s: duplicate id", q.ID)
		case !q.Type.Valid():
			return fmt.Errorf("question %s: unknown type %q", q.ID, q.Type)
		case q.Difficulty != 0 && (q.Difficulty < 1 || q.Difficulty > 10):
			return fmt.Errorf("question %s: difficulty %d out of range 1-10", q.ID, q.Difficulty)
		case q.Type == model.QuestionMCQ && len(q.Options) == 0:
			return fmt.Errorf("question %s: mcq needs options", q.ID)
		case q.Type != model.QuestionMCQ && len(q.Options) > 0:
			return fmt.Errorf("question %s: options are only allowed for mcq", q.ID)
		}
		seen[q.ID] = true
	}
	return nil
}

// Source serves quizzes from files in a directory, named <quiz id>.yaml,
// .yml or .json.
type Source struct {
	Dir string
}

// LoadQuiz implements the same lookup as the backend client.
func (s Source) LoadQuiz(ctx context.Context, quizID string) (model.QuizBundle, error) {
	if strings.ContainsAny(quizID, `/\`) || quizID == "" || quizID == "." || quizID == ".." {
		return model.QuizBundle{}, fmt.Errorf("invalid quiz id %q", quizID)
	}
	for _, ext := range []string{".yaml", ".yml", ".json"} {
		p := filepath.Join(s.Dir, quizID+ext)
		if _, err := os.Stat(p); err == nil {
			return Load(p)
		}
	}
	return model.QuizBundle{}, fmt.Errorf("quiz %s: %w", quizID, os.ErrNotExist)
}

// File is a Source holding a single quiz loaded from one file.
type File struct {
	Bundle model.QuizBundle
}

// LoadQuiz returns the bundle when quizID matches it, or when quizID is
// empty.
func (f File) LoadQuiz(ctx context.Context, quizID string) (model.QuizBundle, error) {
	if quizID != "" && quizID != f.Bundle.Quiz.ID {
		return model.QuizBundle{}, fmt.Errorf("quiz %s: %w", quizID, os.ErrNotExist)
	}
	return f.Bundle, nil
}
