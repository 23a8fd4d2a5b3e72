package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmops/charmops-backend/internal/domain"
	"github.com/charmops/charmops-backend/internal/observability"
	"github.com/charmops/charmops-backend/internal/security"

	"gorm.io/gorm"
)

// SuperAdminReport describes what SeedSuperAdmin did so the CLI can print
// an honest summary instead of guessing from the exit code.
type SuperAdminReport struct {
	Email    string `json:"email"`
	Created  bool   `json:"created"`
	Promoted bool   `json:"promoted"`
	Reset    bool   `json:"reset"`
	Noop     bool   `json:"noop"`
}

// SeedSuperAdmin guarantees a super_admin account for the given email.
// A missing user is created; an existing one is promoted and has its
// password reset to the supplied value. Idempotent across restarts.
func SeedSuperAdmin(db *gorm.DB, email, password, firstName, lastName string) (*SuperAdminReport, error) {
	start := time.Now()
	defer func() {
		observability.RecordDatabaseStartupDuration(context.Background(), "seed_super_admin", time.Since(start))
	}()

	normalized := strings.TrimSpace(strings.ToLower(email))
	if normalized == "" {
		return nil, fmt.Errorf("super admin email is required")
	}
	if password == "" {
		return nil, fmt.Errorf("super admin password is required")
	}

	hash, err := security.HashPassword(password)
	if err != nil {
		observability.RecordDatabaseStartupEvent(context.Background(), "seed_super_admin", "error")
		return nil, err
	}

	report := &SuperAdminReport{Email: normalized}
	err = db.Transaction(func(tx *gorm.DB) error {
		var u domain.User
		if err := tx.Where("email = ?", normalized).First(&u).Error; err != nil {
			if err != gorm.ErrRecordNotFound {
				return err
			}
			u = domain.User{
				Email:        normalized,
				FirstName:    firstName,
				LastName:     lastName,
				Role:         domain.RoleSuperAdmin,
				PasswordHash: hash,
			}
			if err := tx.Create(&u).Error; err != nil {
				return err
			}
			report.Created = true
			return nil
		}

		updates := map[string]any{"password_hash": hash}
		report.Reset = true
		if u.Role != domain.RoleSuperAdmin {
			updates["role"] = domain.RoleSuperAdmin
			report.Promoted = true
		}
		return tx.Model(&u).Updates(updates).Error
	})
	if err != nil {
		observability.RecordDatabaseStartupEvent(context.Background(), "seed_super_admin", "error")
		return nil, err
	}

	report.Noop = !report.Created && !report.Promoted && !report.Reset
	observability.RecordDatabaseStartupEvent(context.Background(), "seed_super_admin", "success")
	return report, nil
}
