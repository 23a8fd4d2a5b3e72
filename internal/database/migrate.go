package database

import (
	"github.com/charmops/charmops-backend/internal/domain"

	"gorm.io/gorm"
)

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&domain.User{},
		&domain.Invite{},
		&domain.Profile{},
		&domain.ActivityPing{},
		&domain.Presence{},
		&domain.DailyStat{},
		&domain.Session{},
	)
}
