package handler

import (
	"encoding/json"
	stderrors "errors"
	"io"
	"net/http"

	"livepoll/internal/domain"
	"livepoll/internal/middleware"
	"livepoll/pkg/errors"
	"livepoll/pkg/logger"
)

const (
	maxBodyBytes = 1 << 20
	// profile photos arrive inline as data URLs
	maxProfileBodyBytes = 8 << 20
)

// respondJSON writes data with the given status
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// decodeJSON reads a JSON body into dest. An empty body is accepted when allowEmpty is set.
func decodeJSON(w http.ResponseWriter, r *http.Request, dest interface{}, allowEmpty bool) *errors.AppError {
	return decodeJSONLimit(w, r, dest, allowEmpty, maxBodyBytes)
}

// decodeJSONLimit is decodeJSON with an explicit body size limit
func decodeJSONLimit(w http.ResponseWriter, r *http.Request, dest interface{}, allowEmpty bool, limit int64) *errors.AppError {
	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, limit)).Decode(dest)
	if err == nil || (allowEmpty && stderrors.Is(err, io.EOF)) {
		return nil
	}

	var tooLarge *http.MaxBytesError
	if stderrors.As(err, &tooLarge) {
		return errors.NewPayloadTooLargeError("Request body is too large", tooLarge.Limit)
	}
	return errors.NewValidationError("Invalid request body", map[string]interface{}{"reason": err.Error()})
}

// writeError converts err to an AppError and writes the error envelope
func writeError(w http.ResponseWriter, r *http.Request, err error, logger *logger.Logger) {
	appErr := toAppError(err)

	log := logger.WithError(err).WithFields(map[string]interface{}{
		"path":       r.URL.Path,
		"status":     appErr.StatusCode,
		"request_id": middleware.GetRequestID(r.Context()),
	})
	if appErr.StatusCode >= http.StatusInternalServerError {
		log.Error("Request failed")
	} else {
		log.Debug("Request rejected")
	}

	respondJSON(w, appErr.StatusCode, errors.NewErrorResponse(appErr, middleware.GetRequestID(r.Context())))
}

// toAppError maps domain outcomes onto HTTP-facing error types
func toAppError(err error) *errors.AppError {
	if appErr, ok := errors.As(err); ok {
		return appErr
	}

	switch {
	case stderrors.Is(err, domain.ErrPollNotFound):
		return errors.NewNotFoundError("Poll not found", err)
	case stderrors.Is(err, domain.ErrSessionNotFound):
		return errors.NewNotFoundError("Session not found", err)
	case stderrors.Is(err, domain.ErrNoAdminAccount):
		return errors.NewNotFoundError("No admin account registered", err)
	case stderrors.Is(err, domain.ErrVotingClosed):
		return errors.NewConflictError("Voting is closed for this session", err)
	case stderrors.Is(err, domain.ErrAlreadyVoted):
		return errors.NewConflictError("You have already voted in this session", err)
	case stderrors.Is(err, domain.ErrSessionClosed):
		return errors.NewConflictError("This session has ended", err)
	case stderrors.Is(err, domain.ErrAdminExists):
		return errors.NewConflictError("An admin account already exists", err)
	case stderrors.Is(err, domain.ErrSessionExpired):
		return errors.NewGoneError("This session has expired", err)
	case stderrors.Is(err, domain.ErrInvalidOption):
		return errors.NewValidationError("Option index out of range", nil)
	case stderrors.Is(err, domain.ErrInvalidCredentials):
		return errors.NewAuthenticationError("Invalid email or password")
	case stderrors.Is(err, domain.ErrInvalidOTP):
		return errors.NewAuthenticationError("Invalid OTP")
	case stderrors.Is(err, domain.ErrNotAuthenticated):
		return errors.NewAuthenticationError("Not authenticated")
	case stderrors.Is(err, domain.ErrNotAdmin):
		return errors.NewAuthorizationError("Admin access required")
	default:
		return errors.NewInternalError("Internal server error", err)
	}
}
