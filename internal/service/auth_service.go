package service

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/charmops/charmops-backend/internal/domain"
	"github.com/charmops/charmops-backend/internal/observability"
	"github.com/charmops/charmops-backend/internal/repository"
	"github.com/charmops/charmops-backend/internal/security"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrWeakPassword       = errors.New("password does not meet policy requirements")
)

var (
	uppercaseRe = regexp.MustCompile(`[A-Z]`)
	lowercaseRe = regexp.MustCompile(`[a-z]`)
	digitRe     = regexp.MustCompile(`[0-9]`)
	specialRe   = regexp.MustCompile(`[^A-Za-z0-9]`)
)

type LoginResult struct {
	User         *domain.User `json:"user"`
	AccessToken  string       `json:"-"`
	RefreshToken string       `json:"-"`
	CSRFToken    string       `json:"csrf_token,omitempty"`
	ExpiresAt    time.Time    `json:"expires_at,omitempty"`
}

type AuthService struct {
	userRepo repository.UserRepository
	tokens   *TokenService
}

func NewAuthService(userRepo repository.UserRepository, tokens *TokenService) *AuthService {
	return &AuthService{userRepo: userRepo, tokens: tokens}
}

func (s *AuthService) Login(ctx context.Context, email, password, ua, ip string) (*LoginResult, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	user, err := s.userRepo.FindByEmail(email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			observability.RecordAuthLogin(ctx, "invalid_credentials")
			return nil, ErrInvalidCredentials
		}
		observability.RecordAuthLogin(ctx, "error")
		return nil, err
	}
	ok, err := security.VerifyPassword(user.PasswordHash, password)
	if err != nil || !ok {
		observability.RecordAuthLogin(ctx, "invalid_credentials")
		return nil, ErrInvalidCredentials
	}

	access, refresh, csrf, err := s.tokens.Issue(user, ua, ip)
	if err != nil {
		observability.RecordAuthLogin(ctx, "error")
		return nil, err
	}
	observability.RecordAuthLogin(ctx, "success")
	return &LoginResult{
		User:         user,
		AccessToken:  access,
		RefreshToken: refresh,
		CSRFToken:    csrf,
		ExpiresAt:    time.Now().Add(s.tokens.AccessTTL()),
	}, nil
}

func (s *AuthService) Refresh(ctx context.Context, refreshToken, ua, ip string) (*LoginResult, error) {
	access, newRefresh, csrf, userID, err := s.tokens.Rotate(refreshToken, s.userRepo.FindByID, ua, ip)
	if err != nil {
		observability.RecordAuthRefresh(ctx, "invalid")
		return nil, ErrInvalidCredentials
	}
	user, err := s.userRepo.FindByID(userID)
	if err != nil {
		observability.RecordAuthRefresh(ctx, "error")
		return nil, err
	}
	observability.RecordAuthRefresh(ctx, "success")
	return &LoginResult{
		User:         user,
		AccessToken:  access,
		RefreshToken: newRefresh,
		CSRFToken:    csrf,
		ExpiresAt:    time.Now().Add(s.tokens.AccessTTL()),
	}, nil
}

func (s *AuthService) Logout(ctx context.Context, userID uint) error {
	if err := s.tokens.RevokeAll(userID); err != nil {
		observability.RecordAuthLogout(ctx, "error")
		return err
	}
	observability.RecordAuthLogout(ctx, "success")
	return nil
}

// ChangePassword revokes every session after a successful change so stolen
// refresh tokens die with the old password.
func (s *AuthService) ChangePassword(ctx context.Context, userID uint, currentPassword, newPassword string) error {
	if err := validatePassword(newPassword); err != nil {
		return err
	}
	user, err := s.userRepo.FindByID(userID)
	if err != nil {
		return err
	}
	ok, err := security.VerifyPassword(user.PasswordHash, currentPassword)
	if err != nil || !ok {
		return ErrInvalidCredentials
	}
	hash, err := security.HashPassword(newPassword)
	if err != nil {
		return err
	}
	if err := s.userRepo.Update(userID, map[string]any{"password_hash": hash}); err != nil {
		return err
	}
	return s.tokens.RevokeAll(userID)
}

func (s *AuthService) GetUser(ctx context.Context, userID uint) (*domain.User, error) {
	return s.userRepo.FindByID(userID)
}

func validatePassword(password string) error {
	if len(password) < 12 || !uppercaseRe.MatchString(password) ||
		!lowercaseRe.MatchString(password) || !digitRe.MatchString(password) || !specialRe.MatchString(password) {
		return ErrWeakPassword
	}
	return nil
}
