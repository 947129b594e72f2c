package domain

import (
	"github.com/golang-jwt/jwt/v5"
)

// AdminData is the persisted admin credential record
type AdminData struct {
	Email        string `json:"email"`
	Password     string `json:"password"`
	Name         string `json:"name"`
	Description  string `json:"description"`
	ProfilePhoto string `json:"profilePhoto"`
}

// AdminProfile is AdminData without the password hash
type AdminProfile struct {
	Email        string `json:"email"`
	Name         string `json:"name"`
	Description  string `json:"description"`
	ProfilePhoto string `json:"profilePhoto"`
}

// Profile strips the credential
func (a AdminData) Profile() AdminProfile {
	return AdminProfile{
		Email:        a.Email,
		Name:         a.Name,
		Description:  a.Description,
		ProfilePhoto: a.ProfilePhoto,
	}
}

// CredentialsRequest is used by register and login
type CredentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// OTPRequest carries the simulated second factor
type OTPRequest struct {
	Code string `json:"code"`
}

// UpdateProfileRequest holds the editable profile fields; nil leaves a field unchanged
type UpdateProfileRequest struct {
	Name         *string `json:"name,omitempty"`
	Description  *string `json:"description,omitempty"`
	ProfilePhoto *string `json:"profilePhoto,omitempty"`
}

// AdminStatus tells the login view which form to show
type AdminStatus struct {
	HasAccount    bool `json:"hasAccount"`
	Authenticated bool `json:"authenticated"`
}

// AuthResponse is returned on successful register, login or OTP verification
type AuthResponse struct {
	AccessToken string       `json:"access_token"`
	ExpiresAt   int64        `json:"expires_at"`
	Admin       AdminProfile `json:"admin"`
}

// AuthClaims are the claims carried by an admin access token
type AuthClaims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}
