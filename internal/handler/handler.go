package handler

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"io/fs"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/viditforsv/quizplayer/internal/backend"
	"github.com/viditforsv/quizplayer/internal/i18n"
	"github.com/viditforsv/quizplayer/internal/model"
	"github.com/viditforsv/quizplayer/internal/player"
	"github.com/viditforsv/quizplayer/internal/questionbank"
	"github.com/viditforsv/quizplayer/internal/session"
)

// Journal reads finished play-throughs.
type Journal interface {
	ListSessions(ctx context.Context, quizID string) ([]model.SessionRecord, error)
	GetSession(ctx context.Context, sessionID string) (model.SessionRecord, error)
}

// Handler holds shared dependencies for HTTP handlers.
type Handler struct {
	players *session.Manager
	bank    questionbank.Searcher
	journal Journal
}

// New creates a new Handler. bank and journal may be nil; their routes then
// answer 503.
func New(players *session.Manager, bank questionbank.Searcher, journal Journal) *Handler {
	return &Handler{players: players, bank: bank, journal: journal}
}

// Router builds the complete HTTP handler with middleware.
func Router(h *Handler, allowedOrigins []string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Accept-Language", "Content-Type"},
		MaxAge:         300,
	}))
	r.Use(i18n.Middleware())
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Route("/api", h.Routes)
	return r
}

// Routes registers all API routes.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/quizzes/{quizID}", h.handleQuizSummary)
	r.Post("/quizzes/{quizID}/players", h.handleCreatePlayer)

	r.Route("/players/{playerID}", func(r chi.Router) {
		r.Get("/", h.withPlayer(viewPlayer))
		r.Delete("/", h.handleRemovePlayer)
		r.Post("/start", h.withPlayer(startPlayer))
		r.Post("/retry", h.withPlayer(startPlayer))
		r.Post("/submit", h.withPlayer(submitPlayer))
		r.Post("/next", h.withPlayer(nextQuestion))
		r.Post("/prev", h.withPlayer(prevQuestion))
		r.Post("/goto", h.withPlayer(goToQuestion))
		r.Put("/answers/{questionID}", h.handleSetAnswer)
		r.Post("/answers/{questionID}/check", h.withPlayer(checkAnswer))
		r.Post("/answers/{questionID}/reset", h.withPlayer(resetQuestion))
		r.Post("/answers/{questionID}/hint", h.handleHint)
		r.Post("/answers/{questionID}/explanation", h.withPlayer(toggleExplanation))
	})

	r.Get("/question-bank", h.handleQuestionBank)
	r.Get("/sessions", h.handleListSessions)
	r.Get("/sessions/{sessionID}", h.handleGetSession)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "error", err)
	}
}

var errBadGoTo = errors.New(`body must be {"index": <n>}`)

type errResp struct {
	Error string `json:"error"`
}

func writeErr(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errResp{Error: msg})
}

// writeError maps an engine or collaborator error to its status code.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()
	switch {
	case errors.Is(err, backend.ErrQuizNotFound), errors.Is(err, fs.ErrNotExist):
		writeErr(w, http.StatusNotFound, i18n.T(ctx, "QuizNotAvailable"))
	case errors.Is(err, session.ErrPlayerNotFound), errors.Is(err, player.ErrUnknownQuestion):
		writeErr(w, http.StatusNotFound, err.Error())
	case errors.Is(err, player.ErrNotInProgress),
		errors.Is(err, player.ErrAlreadySubmitted),
		errors.Is(err, player.ErrInvalidTransition):
		writeErr(w, http.StatusConflict, i18n.Error(ctx, err))
	case errors.Is(err, player.ErrNoAnswer), errors.Is(err, player.ErrNotChecked):
		writeErr(w, http.StatusBadRequest, i18n.Error(ctx, err))
	case errors.Is(err, errBadGoTo):
		writeErr(w, http.StatusBadRequest, err.Error())
	default:
		var apiErr *backend.APIError
		if errors.As(err, &apiErr) {
			writeErr(w, http.StatusBadGateway, err.Error())
			return
		}
		slog.Error("request failed", "path", r.URL.Path, "error", err)
		writeErr(w, http.StatusInternalServerError, err.Error())
	}
}

func (h *Handler) handleQuizSummary(w http.ResponseWriter, r *http.Request) {
	b, err := h.players.Quiz(r.Context(), chi.URLParam(r, "quizID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summarize(r.Context(), b))
}

func (h *Handler) handleCreatePlayer(w http.ResponseWriter, r *http.Request) {
	id, p, err := h.players.Create(r.Context(), chi.URLParam(r, "quizID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, newPlayerView(r.Context(), id, p.State()))
}

// withPlayer resolves {playerID} and runs fn. fn returns the message to
// attach to the resulting view, or an error.
func (h *Handler) withPlayer(fn func(r *http.Request, p *player.Player) (string, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "playerID")
		p, err := h.players.Get(r.Context(), id)
		if err != nil {
			writeError(w, r, err)
			return
		}
		msg, err := fn(r, p)
		if err != nil {
			writeError(w, r, err)
			return
		}
		v := newPlayerView(r.Context(), id, p.State())
		if msg != "" {
			v.Message = msg
		}
		writeJSON(w, http.StatusOK, v)
	}
}

func (h *Handler) handleRemovePlayer(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "playerID")
	if _, err := h.players.Get(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.players.Remove(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func viewPlayer(*http.Request, *player.Player) (string, error) { return "", nil }

func startPlayer(_ *http.Request, p *player.Player) (string, error) {
	_, err := p.Start()
	return "", err
}

func submitPlayer(_ *http.Request, p *player.Player) (string, error) {
	_, err := p.Submit()
	return "", err
}

func nextQuestion(_ *http.Request, p *player.Player) (string, error) {
	_, err := p.Next()
	return "", err
}

func prevQuestion(_ *http.Request, p *player.Player) (string, error) {
	_, err := p.Prev()
	return "", err
}

type gotoReq struct {
	Index *int `json:"index"`
}

func goToQuestion(r *http.Request, p *player.Player) (string, error) {
	var req gotoReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Index == nil {
		return "", errBadGoTo
	}
	_, err := p.GoTo(*req.Index)
	return "", err
}

type answerReq struct {
	Value string `json:"value"`
}

type answerResp struct {
	Accepted bool   `json:"accepted"`
	Message  string `json:"message"`
}

func (h *Handler) handleSetAnswer(w http.ResponseWriter, r *http.Request) {
	var req answerReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	p, err := h.players.Get(r.Context(), chi.URLParam(r, "playerID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	accepted, err := p.SetAnswer(chi.URLParam(r, "questionID"), req.Value)
	if err != nil {
		writeError(w, r, err)
		return
	}
	resp := answerResp{Accepted: accepted, Message: i18n.T(r.Context(), "AnswerSaved")}
	switch {
	case !accepted:
		resp.Message = i18n.T(r.Context(), "AnswerLocked")
	case req.Value == "":
		resp.Message = i18n.T(r.Context(), "AnswerCleared")
	}
	writeJSON(w, http.StatusOK, resp)
}

func checkAnswer(r *http.Request, p *player.Player) (string, error) {
	c, err := p.CheckAnswer(chi.URLParam(r, "questionID"))
	if err != nil {
		return "", err
	}
	return i18n.Feedback(r.Context(), c), nil
}

func resetQuestion(r *http.Request, p *player.Player) (string, error) {
	if err := p.ResetQuestion(chi.URLParam(r, "questionID")); err != nil {
		return "", err
	}
	return i18n.T(r.Context(), "AnswerCleared"), nil
}

func (h *Handler) handleHint(w http.ResponseWriter, r *http.Request) {
	res, err := h.players.Hint(r.Context(), chi.URLParam(r, "playerID"), chi.URLParam(r, "questionID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	msg := i18n.T(r.Context(), "NoHint")
	if res.Text != "" {
		msg = i18n.Td(r.Context(), "Hint", map[string]any{"Text": res.Text})
	}
	writeJSON(w, http.StatusOK, struct {
		session.HintResult
		Message string `json:"message"`
	}{res, msg})
}

func toggleExplanation(r *http.Request, p *player.Player) (string, error) {
	shown, err := p.ToggleExplanation(chi.URLParam(r, "questionID"))
	if err != nil {
		return "", err
	}
	if !shown {
		return i18n.T(r.Context(), "ExplanationHidden"), nil
	}
	return "", nil
}

func (h *Handler) handleQuestionBank(w http.ResponseWriter, r *http.Request) {
	if h.bank == nil {
		writeErr(w, http.StatusServiceUnavailable, "question bank is not configured")
		return
	}
	q, err := questionbank.ParseQuery(r.URL.Query())
	if err != nil {
		writeErr(w, http.StatusBadRequest, err.Error())
		return
	}
	page, err := h.bank.SearchQuestions(r.Context(), q)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (h *Handler) handleListSessions(w http.ResponseWriter, r *http.Request) {
	if h.journal == nil {
		writeErr(w, http.StatusServiceUnavailable, "journal is not configured")
		return
	}
	list, err := h.journal.ListSessions(r.Context(), r.URL.Query().Get("quiz_id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if list == nil {
		list = []model.SessionRecord{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *Handler) handleGetSession(w http.ResponseWriter, r *http.Request) {
	if h.journal == nil {
		writeErr(w, http.StatusServiceUnavailable, "journal is not configured")
		return
	}
	rec, err := h.journal.GetSession(r.Context(), chi.URLParam(r, "sessionID"))
	if errors.Is(err, sql.ErrNoRows) {
		writeErr(w, http.StatusNotFound, "session not found")
		return
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}
