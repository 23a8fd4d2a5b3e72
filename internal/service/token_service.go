package service

import (
	"fmt"
	"time"

	"github.com/charmops/charmops-backend/internal/domain"
	"github.com/charmops/charmops-backend/internal/repository"
	"github.com/charmops/charmops-backend/internal/security"
)

type TokenService struct {
	jwtMgr      *security.JWTManager
	sessionRepo repository.SessionRepository
	pepper      string
}

func NewTokenService(jwtMgr *security.JWTManager, sessionRepo repository.SessionRepository, pepper string) *TokenService {
	return &TokenService{jwtMgr: jwtMgr, sessionRepo: sessionRepo, pepper: pepper}
}

// Issue signs a fresh token pair, persists the refresh session and mints a
// CSRF token for the double-submit cookie.
func (s *TokenService) Issue(user *domain.User, ua, ip string) (access, refresh, csrf string, err error) {
	now := time.Now()
	access, err = s.jwtMgr.IssueAccessToken(user, now)
	if err != nil {
		return "", "", "", err
	}
	refresh, err = s.jwtMgr.IssueRefreshToken(user, now)
	if err != nil {
		return "", "", "", err
	}
	hash := security.HashRefreshToken(refresh, s.pepper)
	session := &domain.Session{
		UserID:           user.ID,
		RefreshTokenHash: hash,
		UserAgent:        ua,
		IP:               ip,
		ExpiresAt:        now.Add(s.jwtMgr.RefreshTTL()),
	}
	if err := s.sessionRepo.Create(session); err != nil {
		return "", "", "", err
	}
	csrf, err = security.NewCSRFToken()
	if err != nil {
		return "", "", "", err
	}
	return access, refresh, csrf, nil
}

// Rotate revokes the presented refresh session and issues a new pair. The
// one-shot revoke makes refresh token replay detectable: a replayed token no
// longer matches a valid session.
func (s *TokenService) Rotate(refreshToken string, userFetcher func(id uint) (*domain.User, error), ua, ip string) (access, newRefresh, csrf string, userID uint, err error) {
	claims, err := s.jwtMgr.ParseRefreshToken(refreshToken)
	if err != nil {
		return "", "", "", 0, err
	}
	now := time.Now()
	hash := security.HashRefreshToken(refreshToken, s.pepper)
	session, err := s.sessionRepo.FindValidByHash(hash, now)
	if err != nil {
		return "", "", "", 0, err
	}
	if err := s.sessionRepo.RevokeByHash(hash, now); err != nil {
		return "", "", "", 0, err
	}
	if session.UserID != claims.UserID {
		return "", "", "", 0, fmt.Errorf("session mismatch")
	}
	user, err := userFetcher(claims.UserID)
	if err != nil {
		return "", "", "", 0, err
	}
	access, newRefresh, csrf, err = s.Issue(user, ua, ip)
	if err != nil {
		return "", "", "", 0, err
	}
	return access, newRefresh, csrf, user.ID, nil
}

func (s *TokenService) RevokeAll(userID uint) error {
	return s.sessionRepo.RevokeByUserID(userID, time.Now())
}

func (s *TokenService) AccessTTL() time.Duration  { return s.jwtMgr.AccessTTL() }
func (s *TokenService) RefreshTTL() time.Duration { return s.jwtMgr.RefreshTTL() }
