package domain

import "errors"

// Engine outcomes. Policy rejections leave state untouched.
var (
	ErrPollNotFound    = errors.New("poll not found")
	ErrSessionNotFound = errors.New("session not found")
	ErrVotingClosed    = errors.New("voting is closed for this session")
	ErrAlreadyVoted    = errors.New("voter has already voted in this session")
	ErrInvalidOption   = errors.New("option index out of range")
	ErrSessionExpired  = errors.New("session has expired")
	ErrSessionClosed   = errors.New("session has ended and results are not public")
	ErrCodeExhausted   = errors.New("could not generate a unique session code")
)

// Admin access outcomes
var (
	ErrAdminExists        = errors.New("admin account already exists")
	ErrNoAdminAccount     = errors.New("no admin account registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidOTP         = errors.New("invalid one-time passcode")
	ErrNotAuthenticated   = errors.New("admin is not authenticated")
	ErrNotAdmin           = errors.New("token does not carry the admin role")
)
