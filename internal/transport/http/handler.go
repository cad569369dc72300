package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"interview-quiz-service/internal/app"
	"interview-quiz-service/internal/domain"
)

// Handler wires the attempt use cases onto REST routes. All quiz content that
// leaves these handlers has gone through the presenter; raw domain.Option
// values are never serialized.
type Handler struct {
	service *app.Service
	logger  *zap.Logger
}

func NewHandler(service *app.Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{service: service, logger: logger}
}

// Router assembles the full route tree, including the websocket activity feed.
func (h *Handler) Router(identity func(http.Handler) http.Handler, ws *WSHandler) chi.Router {
	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("ok"))
	})
	r.Get("/ws/activity", ws.ServeWS)

	r.Route("/api", func(r chi.Router) {
		r.Use(identity)
		r.Post("/quizzes", h.upsertQuiz)
		r.Get("/quizzes/{quizID}", h.previewQuiz)
		r.Get("/quizzes/{quizID}/activity", h.quizActivity)
		r.Post("/quizzes/{quizID}/attempts", h.startAttempt)
		r.Post("/attempts/{attemptID}/submit", h.submitAttempt)
		r.Get("/attempts/{attemptID}", h.reviewAttempt)
		r.Get("/users/me/attempts", h.listAttempts)
	})

	return r
}

func (h *Handler) upsertQuiz(w http.ResponseWriter, r *http.Request) {
	var quiz domain.Quiz
	if err := json.NewDecoder(r.Body).Decode(&quiz); err != nil {
		http.Error(w, "invalid quiz payload", http.StatusBadRequest)
		return
	}
	if err := h.service.UpsertQuiz(r.Context(), quiz); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) previewQuiz(w http.ResponseWriter, r *http.Request) {
	preview, err := h.service.Preview(r.Context(), chi.URLParam(r, "quizID"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, preview)
}

func (h *Handler) quizActivity(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.service.Activity(chi.URLParam(r, "quizID")))
}

func (h *Handler) startAttempt(w http.ResponseWriter, r *http.Request) {
	started, err := h.service.Start(r.Context(), chi.URLParam(r, "quizID"), UserID(r.Context()))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, started)
}

func (h *Handler) submitAttempt(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Answers map[string][]int `json:"answers"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid submission payload", http.StatusBadRequest)
		return
	}
	result, err := h.service.Submit(r.Context(), chi.URLParam(r, "attemptID"), UserID(r.Context()), req.Answers)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, result)
}

func (h *Handler) reviewAttempt(w http.ResponseWriter, r *http.Request) {
	review, err := h.service.ReviewAttempt(r.Context(), chi.URLParam(r, "attemptID"), UserID(r.Context()))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, review)
}

func (h *Handler) listAttempts(w http.ResponseWriter, r *http.Request) {
	summaries, err := h.service.ListAttempts(r.Context(), UserID(r.Context()))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, summaries)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Warn("write response", zap.Error(err))
	}
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrQuizNotFound), errors.Is(err, domain.ErrAttemptNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrAttemptCompleted):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrPermissionDenied):
		status = http.StatusForbidden
	case errors.Is(err, domain.ErrAttemptInProgress),
		errors.Is(err, domain.ErrQuestionNotFound),
		errors.Is(err, domain.ErrInvalidQuiz),
		errors.Is(err, domain.ErrNoOptions),
		errors.Is(err, domain.ErrNoCorrectOption):
		status = http.StatusBadRequest
	}
	if status == http.StatusInternalServerError {
		h.logger.Error("request failed", zap.Error(err))
		http.Error(w, "internal error", status)
		return
	}
	http.Error(w, err.Error(), status)
}
