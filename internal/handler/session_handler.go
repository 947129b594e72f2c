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
	"github.com/google/uuid"
)

// participantPrefix marks server-issued voter identities
const participantPrefix = "voter_"

// SessionHandler serves the participant side: joining, viewing and voting
type SessionHandler struct {
	engine *service.SessionEngine
	logger *logger.Logger
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(container *container.Container) *SessionHandler {
	return &SessionHandler{
		engine: container.GetEngine(),
		logger: container.GetLogger().Named("http.session"),
	}
}

// ParticipantResponse carries a newly issued voter identity
type ParticipantResponse struct {
	VoterID string `json:"voterId"`
}

// HasVotedResponse answers the has-voted query
type HasVotedResponse struct {
	HasVoted bool `json:"hasVoted"`
}

// CreateParticipant handles POST /api/participants. Clients persist the id and
// send it with every vote.
func (h *SessionHandler) CreateParticipant(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusCreated, ParticipantResponse{VoterID: participantPrefix + uuid.NewString()})
}

// Join handles POST /api/sessions/join
func (h *SessionHandler) Join(w http.ResponseWriter, r *http.Request) {
	var req domain.JoinSessionRequest
	if appErr := decodeJSON(w, r, &req, false); appErr != nil {
		writeError(w, r, appErr, h.logger)
		return
	}

	code := normalizeCode(req.SessionCode)
	if code == "" {
		writeError(w, r, errors.NewValidationError("Session code is required", nil), h.logger)
		return
	}

	session, err := h.engine.JoinSession(r.Context(), code)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	h.logger.WithField("session_code", code).Debug("Participant joined session")
	respondJSON(w, http.StatusOK, session.View(false))
}

// Get handles GET /api/sessions/{code}?voterId=
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	code := normalizeCode(chi.URLParam(r, "code"))
	view, err := h.engine.View(code, false, r.URL.Query().Get("voterId"))
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}
	respondJSON(w, http.StatusOK, view)
}

// Vote handles POST /api/sessions/{code}/votes
func (h *SessionHandler) Vote(w http.ResponseWriter, r *http.Request) {
	code := normalizeCode(chi.URLParam(r, "code"))

	var req domain.VoteRequest
	if appErr := decodeJSON(w, r, &req, false); appErr != nil {
		writeError(w, r, appErr, h.logger)
		return
	}

	req.VoterID = strings.TrimSpace(req.VoterID)
	details := map[string]interface{}{}
	if req.OptionIndex == nil {
		details["optionIndex"] = "required"
	}
	if req.VoterID == "" {
		details["voterId"] = "required"
	}
	if len(details) > 0 {
		writeError(w, r, errors.NewValidationError("Invalid vote", details), h.logger)
		return
	}

	session, err := h.engine.SubmitVote(r.Context(), code, *req.OptionIndex, req.VoterID)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	view := session.View(false)
	voted := true
	view.HasVoted = &voted
	respondJSON(w, http.StatusCreated, view)
}

// HasVoted handles GET /api/sessions/{code}/voters/{voterId}
func (h *SessionHandler) HasVoted(w http.ResponseWriter, r *http.Request) {
	code := normalizeCode(chi.URLParam(r, "code"))
	if _, err := h.engine.Session(code); err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	respondJSON(w, http.StatusOK, HasVotedResponse{
		HasVoted: h.engine.HasUserVoted(code, chi.URLParam(r, "voterId")),
	})
}

// normalizeCode applies the entry form's upper-casing
func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
