package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/charmops/charmops-backend/internal/domain"
	"github.com/charmops/charmops-backend/internal/observability"
)

var ErrPresenceNotFound = errors.New("presence not found")

type PresenceRepository interface {
	RecordPing(userID uint, at time.Time) error
	FindByUserID(userID uint) (*domain.Presence, error)
	FindByUserIDs(userIDs []uint) (map[uint]time.Time, error)
	LastActivityAt(userID uint) (*time.Time, error)
	RecentActivity(userID uint, limit int) ([]time.Time, error)
	PruneActivityBefore(cutoff time.Time) (int64, error)
}

type GormPresenceRepository struct{ db *gorm.DB }

func NewPresenceRepository(db *gorm.DB) PresenceRepository {
	return &GormPresenceRepository{db: db}
}

// RecordPing appends to the activity log and upserts the last-write-wins
// presence row in one transaction.
func (r *GormPresenceRepository) RecordPing(userID uint, at time.Time) error {
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&domain.ActivityPing{UserID: userID, PingAt: at}).Error; err != nil {
			return err
		}
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.Assignments(map[string]any{"last_ping": at}),
		}).Create(&domain.Presence{UserID: userID, LastPing: at}).Error
	})
	if err != nil {
		observability.RecordRepositoryOperation(context.Background(), "presence", "record_ping", "error")
		return err
	}
	observability.RecordRepositoryOperation(context.Background(), "presence", "record_ping", "success")
	return nil
}

func (r *GormPresenceRepository) FindByUserID(userID uint) (*domain.Presence, error) {
	var p domain.Presence
	if err := r.db.First(&p, "user_id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPresenceNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *GormPresenceRepository) FindByUserIDs(userIDs []uint) (map[uint]time.Time, error) {
	out := make(map[uint]time.Time, len(userIDs))
	if len(userIDs) == 0 {
		return out, nil
	}
	var rows []domain.Presence
	if err := r.db.Where("user_id IN ?", userIDs).Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.UserID] = row.LastPing
	}
	return out, nil
}

// LastActivityAt falls back to the activity log when no presence row exists,
// which happens for rows written before the presence table was introduced.
func (r *GormPresenceRepository) LastActivityAt(userID uint) (*time.Time, error) {
	var p domain.Presence
	err := r.db.First(&p, "user_id = ?", userID).Error
	if err == nil {
		return &p.LastPing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	var ping domain.ActivityPing
	err = r.db.Where("user_id = ?", userID).Order("ping_at desc").First(&ping).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &ping.PingAt, nil
}

func (r *GormPresenceRepository) RecentActivity(userID uint, limit int) ([]time.Time, error) {
	if limit <= 0 {
		limit = 20
	}
	var pings []domain.ActivityPing
	err := r.db.Where("user_id = ?", userID).Order("ping_at desc").Limit(limit).Find(&pings).Error
	if err != nil {
		return nil, err
	}
	out := make([]time.Time, 0, len(pings))
	for _, p := range pings {
		out = append(out, p.PingAt)
	}
	return out, nil
}

func (r *GormPresenceRepository) PruneActivityBefore(cutoff time.Time) (int64, error) {
	res := r.db.Where("ping_at < ?", cutoff).Delete(&domain.ActivityPing{})
	if res.Error != nil {
		observability.RecordRepositoryOperation(context.Background(), "presence", "prune_activity", "error")
		return 0, res.Error
	}
	observability.RecordRepositoryOperation(context.Background(), "presence", "prune_activity", "success")
	return res.RowsAffected, nil
}
