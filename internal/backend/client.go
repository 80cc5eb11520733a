// Package backend talks to the LMS REST backend that owns quizzes, the
// question bank and student progress.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/sync/errgroup"

	"github.com/viditforsv/quizplayer/internal/model"
	"github.com/viditforsv/quizplayer/internal/questionbank"
)

var ErrQuizNotFound = errors.New("quiz not found")

// APIError is a non-2xx response from the backend.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("backend returned %d %s", e.Status, http.StatusText(e.Status))
	}
	return fmt.Sprintf("backend returned %d: %s", e.Status, e.Body)
}

// Config holds the connection settings for the backend.
type Config struct {
	BaseURL string
	// AccessToken is sent as a bearer token when set.
	AccessToken string
	// APIKey is sent in the apikey header when set.
	APIKey  string
	Timeout time.Duration
}

type Client struct {
	base   string
	apiKey string
	http   *http.Client
}

func New(cfg Config) *Client {
	h := &http.Client{}
	if cfg.AccessToken != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.AccessToken, TokenType: "Bearer"})
		h = oauth2.NewClient(context.Background(), ts)
	}
	if cfg.Timeout > 0 {
		h.Timeout = cfg.Timeout
	}
	return &Client{
		base:   strings.TrimRight(cfg.BaseURL, "/"),
		apiKey: cfg.APIKey,
		http:   h,
	}
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, in, out any) error {
	u := c.base + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("apikey", c.apiKey)
	}

	res, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer res.Body.Close()
	if res.StatusCode/100 != 2 {
		b, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return fmt.Errorf("%s %s: %w", method, path, &APIError{Status: res.StatusCode, Body: strings.TrimSpace(string(b))})
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, res.Body)
		return nil
	}
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

type quizzesResponse struct {
	Quizzes []model.Quiz `json:"quizzes"`
	Total   int          `json:"total"`
}

// GetQuiz fetches quiz metadata.
func (c *Client) GetQuiz(ctx context.Context, id string) (model.Quiz, error) {
	var resp quizzesResponse
	if err := c.do(ctx, http.MethodGet, "/quizzes", url.Values{"id": {id}}, nil, &resp); err != nil {
		return model.Quiz{}, err
	}
	if len(resp.Quizzes) == 0 {
		return model.Quiz{}, fmt.Errorf("%w: %s", ErrQuizNotFound, id)
	}
	return resp.Quizzes[0], nil
}

type bankQuestion struct {
	ID            string             `json:"id"`
	QuestionText  string             `json:"question_text"`
	Difficulty    int                `json:"difficulty"`
	QuestionType  model.QuestionType `json:"question_type"`
	TotalMarks    int                `json:"total_marks"`
	Topic         string             `json:"topic"`
	Subtopic      string             `json:"subtopic"`
	CorrectAnswer *string            `json:"correct_answer"`
	Explanation   *string            `json:"explanation"`
	Options       []model.Option     `json:"options"`
	Hints         []string           `json:"hints"`
}

type quizQuestion struct {
	ID            string       `json:"id"`
	QuestionOrder int          `json:"question_order"`
	QuestionBank  bankQuestion `json:"question_bank"`
}

type questionsResponse struct {
	Questions []quizQuestion `json:"questions"`
}

// GetQuizQuestions fetches the questions of a quiz sorted by their order.
// Questions are identified by their question bank id.
func (c *Client) GetQuizQuestions(ctx context.Context, quizID string) ([]model.Question, error) {
	var resp questionsResponse
	path := "/quizzes/" + url.PathEscape(quizID) + "/questions"
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &resp); err != nil {
		return nil, err
	}
	out := make([]model.Question, 0, len(resp.Questions))
	for _, qq := range resp.Questions {
		b := qq.QuestionBank
		id := b.ID
		if id == "" {
			id = qq.ID
		}
		out = append(out, model.Question{
			ID:            id,
			Order:         qq.QuestionOrder,
			Text:          b.QuestionText,
			Type:          b.QuestionType,
			TotalMarks:    b.TotalMarks,
			Difficulty:    b.Difficulty,
			Topic:         b.Topic,
			Subtopic:      b.Subtopic,
			CorrectAnswer: b.CorrectAnswer,
			Explanation:   b.Explanation,
			Options:       b.Options,
			Hints:         b.Hints,
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out, nil
}

// LoadQuiz fetches a quiz and its questions concurrently.
func (c *Client) LoadQuiz(ctx context.Context, quizID string) (model.QuizBundle, error) {
	var b model.QuizBundle
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		q, err := c.GetQuiz(gctx, quizID)
		b.Quiz = q
		return err
	})
	g.Go(func() error {
		qs, err := c.GetQuizQuestions(gctx, quizID)
		b.Questions = qs
		return err
	})
	if err := g.Wait(); err != nil {
		return model.QuizBundle{}, fmt.Errorf("load quiz %s: %w", quizID, err)
	}
	return b, nil
}

// RecordAttempt posts one attempt to the progress log.
func (c *Client) RecordAttempt(ctx context.Context, a model.Attempt) error {
	return c.do(ctx, http.MethodPost, "/student-progress/attempts", nil, a, nil)
}

// SearchQuestions runs a question bank query.
func (c *Client) SearchQuestions(ctx context.Context, q questionbank.Query) (questionbank.Page, error) {
	var p questionbank.Page
	if err := c.do(ctx, http.MethodGet, "/question-bank", q.Values(), nil, &p); err != nil {
		return questionbank.Page{}, err
	}
	return p, nil
}
