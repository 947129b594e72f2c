package handler

import (
	"net/http"
	"strings"

	"livepoll/internal/container"
	"livepoll/internal/domain"
	"livepoll/internal/service"
	"livepoll/pkg/errors"
	"livepoll/pkg/logger"

	"github.com/go-chi/chi/v5"
)

const minPollOptions = 2

// PollHandler serves the admin dashboard: polls and the sessions launched from them
type PollHandler struct {
	engine *service.SessionEngine
	logger *logger.Logger
}

// NewPollHandler creates a new poll handler
func NewPollHandler(container *container.Container) *PollHandler {
	return &PollHandler{
		engine: container.GetEngine(),
		logger: container.GetLogger().Named("http.poll"),
	}
}

// ListPolls handles GET /api/admin/polls
func (h *PollHandler) ListPolls(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.engine.Polls())
}

// CreatePoll handles POST /api/admin/polls
func (h *PollHandler) CreatePoll(w http.ResponseWriter, r *http.Request) {
	var req domain.CreatePollRequest
	if appErr := decodeJSON(w, r, &req, false); appErr != nil {
		writeError(w, r, appErr, h.logger)
		return
	}
	if appErr := validateCreatePoll(&req); appErr != nil {
		writeError(w, r, appErr, h.logger)
		return
	}

	poll, err := h.engine.CreatePoll(r.Context(), &req)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}
	respondJSON(w, http.StatusCreated, poll)
}

// LaunchSession handles POST /api/admin/polls/{pollId}/launch. Without a
// duration in the body the poll's default applies.
func (h *PollHandler) LaunchSession(w http.ResponseWriter, r *http.Request) {
	var req domain.LaunchSessionRequest
	if appErr := decodeJSON(w, r, &req, true); appErr != nil {
		writeError(w, r, appErr, h.logger)
		return
	}
	if req.DurationMinutes != nil && *req.DurationMinutes < 0 {
		writeError(w, r, errors.NewValidationError("Duration cannot be negative", nil), h.logger)
		return
	}

	session, err := h.engine.LaunchSession(r.Context(), chi.URLParam(r, "pollId"), req.DurationMinutes)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}
	respondJSON(w, http.StatusCreated, session)
}

// ListSessions handles GET /api/admin/sessions
func (h *PollHandler) ListSessions(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.engine.Sessions())
}

// CurrentSession handles GET /api/admin/sessions/current
func (h *PollHandler) CurrentSession(w http.ResponseWriter, r *http.Request) {
	session := h.engine.CurrentSession()
	if session == nil {
		writeError(w, r, errors.NewNotFoundError("No current session", nil), h.logger)
		return
	}
	respondJSON(w, http.StatusOK, session.View(true))
}

// GetSession handles GET /api/admin/sessions/{code}. Opening a session makes it current.
func (h *PollHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	session, err := h.engine.SetCurrentSession(normalizeCode(chi.URLParam(r, "code")))
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}
	respondJSON(w, http.StatusOK, session.View(true))
}

// EndSession handles POST /api/admin/sessions/{code}/end
func (h *PollHandler) EndSession(w http.ResponseWriter, r *http.Request) {
	session, err := h.engine.EndSession(r.Context(), normalizeCode(chi.URLParam(r, "code")), false)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}
	respondJSON(w, http.StatusOK, session.View(true))
}

// ToggleVisibility handles POST /api/admin/sessions/{code}/visibility
func (h *PollHandler) ToggleVisibility(w http.ResponseWriter, r *http.Request) {
	session, err := h.engine.ToggleResultsVisibility(r.Context(), normalizeCode(chi.URLParam(r, "code")))
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}
	respondJSON(w, http.StatusOK, session.View(true))
}

func validateCreatePoll(req *domain.CreatePollRequest) *errors.AppError {
	details := map[string]interface{}{}
	if strings.TrimSpace(req.Title) == "" {
		details["title"] = "required"
	}
	if strings.TrimSpace(req.Question) == "" {
		details["question"] = "required"
	}

	filled := 0
	for _, option := range req.Options {
		if strings.TrimSpace(option) != "" {
			filled++
		}
	}
	if filled < minPollOptions {
		details["options"] = "at least two non-empty options are required"
	}
	if req.DurationMinutes != nil && *req.DurationMinutes < 0 {
		details["durationMinutes"] = "cannot be negative"
	}

	if len(details) > 0 {
		return errors.NewValidationError("Invalid poll", details)
	}
	return nil
}
