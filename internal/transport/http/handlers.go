package http

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"quiz-attempt-service/internal/app"
	"quiz-attempt-service/internal/domain"
	"quiz-attempt-service/internal/logger"
)

type startRequest struct {
	UserID string `json:"userId"`
}

type answerRequest struct {
	Option string `json:"option"`
}

type feedbackRequest struct {
	Feedback string `json:"feedback"`
	Rating   int    `json:"rating"`
}

type attemptHandlers struct {
	service *app.AttemptService
	log     *logger.Logger
}

func (h *attemptHandlers) start(kind domain.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req startRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if strings.TrimSpace(req.UserID) == "" {
			writeError(w, http.StatusBadRequest, "userId is required")
			return
		}

		snap, err := h.service.StartAttempt(r.Context(), kind, chi.URLParam(r, "quizID"), req.UserID)
		if err != nil {
			h.fail(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, snap)
	}
}

func (h *attemptHandlers) get(w http.ResponseWriter, r *http.Request) {
	snap, err := h.service.Snapshot(r.Context(), chi.URLParam(r, "attemptID"))
	h.respond(w, snap, err)
}

func (h *attemptHandlers) answer(w http.ResponseWriter, r *http.Request) {
	var req answerRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	snap, err := h.service.SelectAnswer(r.Context(), chi.URLParam(r, "attemptID"), req.Option)
	h.respond(w, snap, err)
}

func (h *attemptHandlers) forceClose(w http.ResponseWriter, r *http.Request) {
	snap, err := h.service.ForceClose(r.Context(), chi.URLParam(r, "attemptID"))
	h.respond(w, snap, err)
}

func (h *attemptHandlers) retry(w http.ResponseWriter, r *http.Request) {
	snap, err := h.service.RetrySubmission(r.Context(), chi.URLParam(r, "attemptID"))
	h.respond(w, snap, err)
}

func (h *attemptHandlers) feedback(w http.ResponseWriter, r *http.Request) {
	var req feedbackRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	snap, err := h.service.RecordFeedback(r.Context(), chi.URLParam(r, "attemptID"), req.Feedback, req.Rating)
	h.respond(w, snap, err)
}

func (h *attemptHandlers) abandon(w http.ResponseWriter, r *http.Request) {
	snap, err := h.service.Abandon(r.Context(), chi.URLParam(r, "attemptID"))
	h.respond(w, snap, err)
}

func (h *attemptHandlers) respond(w http.ResponseWriter, snap app.Snapshot, err error) {
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (h *attemptHandlers) fail(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.log.Warn("request failed", "status", status, "error", err)
	}
	writeError(w, status, err.Error())
}
