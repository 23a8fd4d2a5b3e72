package service

import (
	"context"
	"errors"
	"time"

	"github.com/charmops/charmops-backend/internal/observability"
	"github.com/charmops/charmops-backend/internal/repository"
)

type PresenceStatus struct {
	UserID   uint       `json:"user_id"`
	Online   bool       `json:"online"`
	LastPing *time.Time `json:"last_ping,omitempty"`
}

type PresenceService struct {
	presenceRepo repository.PresenceRepository
	onlineWindow time.Duration
}

func NewPresenceService(presenceRepo repository.PresenceRepository, onlineWindow time.Duration) *PresenceService {
	return &PresenceService{presenceRepo: presenceRepo, onlineWindow: onlineWindow}
}

func (s *PresenceService) Ping(ctx context.Context, userID uint, now time.Time) error {
	if err := s.presenceRepo.RecordPing(userID, now); err != nil {
		observability.RecordPresencePing(ctx, "error")
		return err
	}
	observability.RecordPresencePing(ctx, "success")
	return nil
}

// Status treats an operator with no presence row as offline rather than an
// error; the activity-log fallback covers rows that predate the presence
// table.
func (s *PresenceService) Status(ctx context.Context, userID uint, now time.Time) (*PresenceStatus, error) {
	p, err := s.presenceRepo.FindByUserID(userID)
	if err != nil {
		if !errors.Is(err, repository.ErrPresenceNotFound) {
			return nil, err
		}
		last, err := s.presenceRepo.LastActivityAt(userID)
		if err != nil {
			return nil, err
		}
		status := &PresenceStatus{UserID: userID, LastPing: last}
		if last != nil {
			status.Online = now.Sub(*last) <= s.onlineWindow
		}
		return status, nil
	}
	lastPing := p.LastPing
	return &PresenceStatus{
		UserID:   userID,
		Online:   p.Online(now, s.onlineWindow),
		LastPing: &lastPing,
	}, nil
}
