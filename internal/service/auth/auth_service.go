package auth

import (
	"context"
	"crypto/rand"
	"fmt"
	"strings"
	"time"

	"livepoll/internal/domain"
	"livepoll/internal/repository"
	"livepoll/internal/service"
	"livepoll/pkg/logger"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

const (
	// RoleAdmin is the only role tokens are issued for
	RoleAdmin = "admin"

	defaultAdminName = "Admin User"
	tokenIssuer      = "livepoll"
)

// Options configures token signing and the simulated second factor
type Options struct {
	JWTSecret string
	TokenTTL  time.Duration
	OTPCode   string
}

// Service implements the AuthService interface
type Service struct {
	repo     repository.AdminRepository
	secret   []byte
	tokenTTL time.Duration
	otpCode  string
	now      func() time.Time
	logger   *logger.Logger
}

// NewService creates a new auth service. An empty secret is replaced by a random
// per-process key, so tokens do not survive a restart.
func NewService(repo repository.AdminRepository, opts Options, logger *logger.Logger) (service.AuthService, error) {
	return newService(repo, opts, logger)
}

func newService(repo repository.AdminRepository, opts Options, logger *logger.Logger) (*Service, error) {
	log := logger.Named("auth")

	secret := []byte(opts.JWTSecret)
	if len(secret) == 0 {
		secret = make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			return nil, fmt.Errorf("failed to generate signing key: %w", err)
		}
		log.Warn("JWT_SECRET not set, using an ephemeral signing key")
	}

	ttl := opts.TokenTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}

	return &Service{
		repo:     repo,
		secret:   secret,
		tokenTTL: ttl,
		otpCode:  opts.OTPCode,
		now:      time.Now,
		logger:   log,
	}, nil
}

// Status reports whether an admin account exists and is signed in
func (s *Service) Status(ctx context.Context) (*domain.AdminStatus, error) {
	admin, err := s.repo.Get(ctx)
	if err != nil {
		return nil, err
	}
	if admin == nil {
		return &domain.AdminStatus{}, nil
	}

	authenticated, err := s.repo.IsAuthenticated(ctx)
	if err != nil {
		return nil, err
	}
	return &domain.AdminStatus{HasAccount: true, Authenticated: authenticated}, nil
}

// Register creates the admin account. Only one account may exist.
func (s *Service) Register(ctx context.Context, req *domain.CredentialsRequest) (*domain.AuthResponse, error) {
	existing, err := s.repo.Get(ctx)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, domain.ErrAdminExists
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	admin := &domain.AdminData{
		Email:    normalizeEmail(req.Email),
		Password: string(hash),
		Name:     defaultAdminName,
	}
	if err := s.repo.Save(ctx, admin); err != nil {
		return nil, fmt.Errorf("failed to save admin account: %w", err)
	}

	s.logger.WithField("email", admin.Email).Info("Admin account created")
	return s.signIn(ctx, admin)
}

// Login checks the email and password against the stored record
func (s *Service) Login(ctx context.Context, req *domain.CredentialsRequest) (*domain.AuthResponse, error) {
	admin, err := s.repo.Get(ctx)
	if err != nil {
		return nil, err
	}
	if admin == nil {
		return nil, domain.ErrNoAdminAccount
	}

	if admin.Email != normalizeEmail(req.Email) ||
		bcrypt.CompareHashAndPassword([]byte(admin.Password), []byte(req.Password)) != nil {
		s.logger.Warn("Admin login rejected")
		return nil, domain.ErrInvalidCredentials
	}

	s.logger.WithField("email", admin.Email).Info("Admin logged in")
	return s.signIn(ctx, admin)
}

// VerifyOTP signs the admin in when code matches the configured passcode
func (s *Service) VerifyOTP(ctx context.Context, code string) (*domain.AuthResponse, error) {
	admin, err := s.repo.Get(ctx)
	if err != nil {
		return nil, err
	}
	if admin == nil {
		return nil, domain.ErrNoAdminAccount
	}

	if strings.TrimSpace(code) != s.otpCode {
		s.logger.Warn("OTP verification failed")
		return nil, domain.ErrInvalidOTP
	}

	s.logger.WithField("email", admin.Email).Info("OTP verified")
	return s.signIn(ctx, admin)
}

// Logout clears the persisted flag, which invalidates every issued token
func (s *Service) Logout(ctx context.Context) error {
	if err := s.repo.SetAuthenticated(ctx, false); err != nil {
		return fmt.Errorf("failed to clear auth flag: %w", err)
	}
	s.logger.Info("Admin logged out")
	return nil
}

// Profile returns the admin profile
func (s *Service) Profile(ctx context.Context) (*domain.AdminProfile, error) {
	admin, err := s.repo.Get(ctx)
	if err != nil {
		return nil, err
	}
	if admin == nil {
		return nil, domain.ErrNoAdminAccount
	}
	profile := admin.Profile()
	return &profile, nil
}

// UpdateProfile merges the provided fields; credentials are not editable here
func (s *Service) UpdateProfile(ctx context.Context, req *domain.UpdateProfileRequest) (*domain.AdminProfile, error) {
	admin, err := s.repo.Get(ctx)
	if err != nil {
		return nil, err
	}
	if admin == nil {
		return nil, domain.ErrNoAdminAccount
	}

	if req.Name != nil {
		admin.Name = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		admin.Description = *req.Description
	}
	if req.ProfilePhoto != nil {
		admin.ProfilePhoto = *req.ProfilePhoto
	}

	if err := s.repo.Save(ctx, admin); err != nil {
		return nil, fmt.Errorf("failed to save admin profile: %w", err)
	}

	s.logger.Info("Admin profile updated")
	profile := admin.Profile()
	return &profile, nil
}

// Authorize validates the token signature, expiry and role, then requires the
// persisted sign-in flag
func (s *Service) Authorize(ctx context.Context, tokenString string) (*domain.AuthClaims, error) {
	claims := &domain.AuthClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.now), jwt.WithIssuer(tokenIssuer))
	if err != nil || !token.Valid {
		s.logger.WithError(err).Debug("Access token rejected")
		return nil, domain.ErrNotAuthenticated
	}

	if claims.Role != RoleAdmin {
		s.logger.WithField("role", claims.Role).Warn("Token without admin role rejected")
		return nil, domain.ErrNotAdmin
	}

	authenticated, err := s.repo.IsAuthenticated(ctx)
	if err != nil {
		return nil, err
	}
	if !authenticated {
		return nil, domain.ErrNotAuthenticated
	}
	return claims, nil
}

func (s *Service) signIn(ctx context.Context, admin *domain.AdminData) (*domain.AuthResponse, error) {
	if err := s.repo.SetAuthenticated(ctx, true); err != nil {
		return nil, fmt.Errorf("failed to persist auth flag: %w", err)
	}

	token, expiresAt, err := s.issueToken(admin.Email)
	if err != nil {
		return nil, err
	}
	return &domain.AuthResponse{
		AccessToken: token,
		ExpiresAt:   expiresAt.Unix(),
		Admin:       admin.Profile(),
	}, nil
}

func (s *Service) issueToken(email string) (string, time.Time, error) {
	now := s.now()
	expiresAt := now.Add(s.tokenTTL)
	claims := domain.AuthClaims{
		Email: email,
		Role:  RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   email,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign access token: %w", err)
	}
	return signed, expiresAt, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
