package auth

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/gokatarajesh/partyquiz/internal/auth/jwt"
)

// ErrAdminDisabled is returned when no admin password is configured.
var ErrAdminDisabled = errors.New("admin access is not configured")

// Service guards the admin surface with a single shared password.
type Service struct {
	passwordHash string
	tokenMgr     *jwt.Manager
	logger       zerolog.Logger
}

// ServiceOptions configures the auth service.
type ServiceOptions struct {
	AdminPassword string
	TokenConfig   jwt.TokenConfig
	BcryptCost    int
}

// NewService hashes the admin password once. An empty password yields a
// service that refuses every login.
func NewService(opts ServiceOptions, logger zerolog.Logger) (*Service, error) {
	s := &Service{
		tokenMgr: jwt.NewManager(opts.TokenConfig),
		logger:   logger.With().Str("component", "auth_service").Logger(),
	}
	if opts.AdminPassword == "" {
		s.logger.Warn().Msg("admin password not configured; question bank is read-only")
		return s, nil
	}

	cost := opts.BcryptCost
	if cost == 0 {
		cost = bcryptCost
	}
	hash, err := hashPassword(opts.AdminPassword, cost)
	if err != nil {
		return nil, fmt.Errorf("hash admin password: %w", err)
	}
	s.passwordHash = hash
	return s, nil
}

// Enabled reports whether admin logins are possible.
func (s *Service) Enabled() bool {
	return s.passwordHash != ""
}

// Login checks the password and issues an admin token.
func (s *Service) Login(password string) (*LoginResponse, error) {
	if !s.Enabled() {
		return nil, ErrAdminDisabled
	}
	if err := VerifyPassword(s.passwordHash, password); err != nil {
		s.logger.Warn().Msg("admin login rejected")
		return nil, err
	}

	token, err := s.tokenMgr.GenerateAdminToken()
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}
	s.logger.Info().Msg("admin logged in")
	return &LoginResponse{
		Success:   true,
		Token:     token,
		ExpiresIn: int64(s.tokenMgr.TTL().Seconds()),
	}, nil
}

// ValidateToken verifies an admin token.
func (s *Service) ValidateToken(token string) (*jwt.Claims, error) {
	if !s.Enabled() {
		return nil, ErrAdminDisabled
	}
	return s.tokenMgr.ValidateToken(token)
}
