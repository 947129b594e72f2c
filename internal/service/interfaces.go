package service

import (
	"context"

	"livepoll/internal/domain"
)

// AuthService defines the interface for admin access operations
type AuthService interface {
	// Status reports whether an admin account exists and is signed in
	Status(ctx context.Context) (*domain.AdminStatus, error)

	// Register creates the single admin account and signs it in
	Register(ctx context.Context, req *domain.CredentialsRequest) (*domain.AuthResponse, error)

	// Login checks the stored credentials and signs the admin in
	Login(ctx context.Context, req *domain.CredentialsRequest) (*domain.AuthResponse, error)

	// VerifyOTP signs the admin in with the one-time passcode
	VerifyOTP(ctx context.Context, code string) (*domain.AuthResponse, error)

	// Logout clears the persisted sign-in flag
	Logout(ctx context.Context) error

	// Profile returns the admin profile without credentials
	Profile(ctx context.Context) (*domain.AdminProfile, error)

	// UpdateProfile merges the given fields into the admin record
	UpdateProfile(ctx context.Context, req *domain.UpdateProfileRequest) (*domain.AdminProfile, error)

	// Authorize validates an access token against the signing key and the persisted flag
	Authorize(ctx context.Context, token string) (*domain.AuthClaims, error)
}

// Services aggregates the application services
type Services struct {
	Engine *SessionEngine
	Expiry *ExpiryMonitor
	Live   *LiveFeed
	Auth   AuthService
}
