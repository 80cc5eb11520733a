package prompts

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"regexp"
	"strings"
	"sync"
	"text/template"
	"unicode/utf8"

	"github.com/viditforsv/quizplayer/internal/model"
)

// Templates holds the built-in hint prompt templates.
//
//go:embed templates/*.txt
var Templates embed.FS

const maxAnswerRunes = 2000

var (
	studentAnswerRegex      = regexp.MustCompile(`(?i)</?\s*student-answer\b[^>]*>`)
	systemInstructionsRegex = regexp.MustCompile(`(?i)</?\s*system-instructions\b[^>]*>`)
)

// PromptVariant selects how much a hint gives away.
type PromptVariant string

const (
	// PromptSubtle nudges without naming the concept.
	PromptSubtle PromptVariant = "subtle"
	// PromptStandard is the default hint variant.
	PromptStandard PromptVariant = "standard"
	// PromptDetailed walks through the reasoning short of the answer.
	PromptDetailed PromptVariant = "detailed"
)

var validVariants = map[PromptVariant]bool{
	PromptSubtle:   true,
	PromptStandard: true,
	PromptDetailed: true,
}

var (
	loadOnce      sync.Once
	loadErr       error
	hintTemplates map[PromptVariant]*template.Template
)

// IsValidVariant checks if a prompt variant name is valid.
func IsValidVariant(v string) bool {
	return validVariants[PromptVariant(v)]
}

// HintData holds template data for hint prompts. It deliberately has no
// field for the correct answer or the explanation.
type HintData struct {
	QuestionText  string
	QuestionType  model.QuestionType
	Options       []model.Option
	Topic         string
	Subtopic      string
	HintNumber    int
	PreviousHints []string
	Answer        string
	Language      string
}

// Load loads prompt templates from fsys. Only the first call has an effect.
func Load(fsys fs.FS) error {
	loadOnce.Do(func() {
		hintTemplates = make(map[PromptVariant]*template.Template)

		for _, v := range []PromptVariant{PromptSubtle, PromptStandard, PromptDetailed} {
			file := "templates/hint_" + string(v) + ".txt"

			content, err := fs.ReadFile(fsys, file)
			if err != nil {
				loadErr = errors.New("failed to read prompt file " + file + ": " + err.Error())
				return
			}

			tmpl, err := template.New("hint").Parse(string(content))
			if err != nil {
				loadErr = errors.New("failed to parse prompt template " + file + ": " + err.Error())
				return
			}
			hintTemplates[v] = tmpl
		}
	})
	return loadErr
}

// BuildHintPrompt renders the hint prompt for q. previous lists hints the
// student has already seen; answer is the student's current answer, if any.
func BuildHintPrompt(variant PromptVariant, q model.Question, answer string, previous []string, language string) (string, error) {
	if hintTemplates == nil {
		return "", errors.New("templates not initialized: call Load first")
	}
	tmpl, ok := hintTemplates[variant]
	if !ok {
		if loadErr != nil {
			return "", fmt.Errorf("templates load failed: %w", loadErr)
		}
		return "", errors.New("invalid prompt variant: " + string(variant))
	}

	if language == "" {
		language = "English"
	}
	data := HintData{
		QuestionText:  q.Text,
		QuestionType:  q.Type,
		Options:       q.Options,
		Topic:         q.Topic,
		Subtopic:      q.Subtopic,
		HintNumber:    len(previous) + 1,
		PreviousHints: previous,
		Answer:        sanitizeAnswer(answer),
		Language:      language,
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func sanitizeAnswer(answer string) string {
	answer = studentAnswerRegex.ReplaceAllString(answer, "")
	answer = systemInstructionsRegex.ReplaceAllString(answer, "")
	answer = strings.TrimSpace(answer)

	if answer == "" {
		return "[No answer yet]"
	}

	if utf8.RuneCountInString(answer) > maxAnswerRunes {
		runes := []rune(answer)
		answer = string(runes[:maxAnswerRunes]) + "\n\n[Answer truncated due to length]"
	}
	return answer
}
