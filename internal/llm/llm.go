package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/viditforsv/quizplayer/internal/llm/prompts"
	"github.com/viditforsv/quizplayer/internal/model"

	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// ErrAnswerLeak is returned when a generated hint contains the correct answer.
var ErrAnswerLeak = errors.New("generated hint reveals the answer")

// minLeakRunes is the shortest correct answer checked for leaks. Shorter
// answers such as option letters occur in ordinary prose.
const minLeakRunes = 4

// Client wraps an OpenAI-compatible API client.
type Client struct {
	api     *openai.Client
	model   string
	variant prompts.PromptVariant
}

// New creates a new LLM client. An unknown variant falls back to standard.
func New(baseURL, apiKey, modelName, variant string) *Client {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	if !prompts.IsValidVariant(variant) {
		variant = string(prompts.PromptStandard)
	}
	return &Client{
		api:     openai.NewClientWithConfig(config),
		model:   modelName,
		variant: prompts.PromptVariant(variant),
	}
}

// Hint asks the model for the next hint on q. previous holds the hints the
// student has already seen and answer the current answer, if any. lang is a
// BCP 47 tag for the reply language.
func (c *Client) Hint(ctx context.Context, q model.Question, answer string, previous []string, lang string) (string, error) {
	if err := prompts.Load(prompts.Templates); err != nil {
		return "", fmt.Errorf("load prompts: %w", err)
	}
	systemPrompt, err := prompts.BuildHintPrompt(c.variant, q, answer, previous, languageName(lang))
	if err != nil {
		return "", fmt.Errorf("build hint prompt: %w", err)
	}

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
		},
		Temperature: 0.4,
	})
	if err != nil {
		return "", fmt.Errorf("LLM API call: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("LLM returned no choices")
	}

	hint := strings.TrimSpace(resp.Choices[0].Message.Content)
	slog.Debug("LLM hint", "question_id", q.ID, "variant", c.variant, "raw", hint)
	if hint == "" {
		return "", fmt.Errorf("LLM returned an empty hint")
	}
	if leaksAnswer(q, hint) {
		return "", ErrAnswerLeak
	}
	return hint, nil
}

func leaksAnswer(q model.Question, hint string) bool {
	if !q.Graded() {
		return false
	}
	candidates := []string{*q.CorrectAnswer}
	for _, o := range q.Options {
		if o.Value == *q.CorrectAnswer {
			candidates = append(candidates, o.Label)
		}
	}
	lower := strings.ToLower(hint)
	for _, c := range candidates {
		c = strings.TrimSpace(c)
		if utf8.RuneCountInString(c) < minLeakRunes {
			continue
		}
		if strings.Contains(lower, strings.ToLower(c)) {
			return true
		}
	}
	return false
}

func languageName(lang string) string {
	tag, err := language.Parse(lang)
	if err != nil || lang == "" {
		return "English"
	}
	if name := display.English.Tags().Name(tag); name != "" {
		return name
	}
	return "English"
}
