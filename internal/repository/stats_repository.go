package repository

import (
	"errors"

	"gorm.io/gorm"

	"github.com/charmops/charmops-backend/internal/domain"
)

type StatsRepository interface {
	FindByUserDate(userID uint, date string) (*domain.DailyStat, error)
	FindByUsersDate(userIDs []uint, date string) (map[uint]domain.DailyStat, error)
}

type GormStatsRepository struct{ db *gorm.DB }

func NewStatsRepository(db *gorm.DB) StatsRepository { return &GormStatsRepository{db: db} }

// FindByUserDate returns nil without error when no aggregate exists yet;
// the roster renders zeros in that case.
func (r *GormStatsRepository) FindByUserDate(userID uint, date string) (*domain.DailyStat, error) {
	var stat domain.DailyStat
	err := r.db.Where("user_id = ? AND date = ?", userID, date).First(&stat).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &stat, nil
}

func (r *GormStatsRepository) FindByUsersDate(userIDs []uint, date string) (map[uint]domain.DailyStat, error) {
	out := make(map[uint]domain.DailyStat, len(userIDs))
	if len(userIDs) == 0 {
		return out, nil
	}
	var rows []domain.DailyStat
	if err := r.db.Where("user_id IN ? AND date = ?", userIDs, date).Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.UserID] = row
	}
	return out, nil
}
