package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/charmops/charmops-backend/internal/domain"
	"github.com/charmops/charmops-backend/internal/observability"
)

var ErrInviteNotFound = errors.New("invite not found")

type InviteRepository interface {
	Create(invite *domain.Invite) error
	FindByID(id uint) (*domain.Invite, error)
	FindByTokenHash(hash string) (*domain.Invite, error)
	FindLatestUnresolvedByEmail(email string) (*domain.Invite, error)
	ListPaged(req PageRequest, invitedBy *uint) (PageResult[domain.Invite], error)
	Refresh(id uint, tokenHash string, role domain.Role, invitedBy uint, expiresAt, now time.Time) error
	Revoke(id uint, now time.Time) error
	Consume(id uint, now time.Time) error
}

type GormInviteRepository struct{ db *gorm.DB }

func NewInviteRepository(db *gorm.DB) InviteRepository { return &GormInviteRepository{db: db} }

func (r *GormInviteRepository) Create(invite *domain.Invite) error {
	if err := r.db.Create(invite).Error; err != nil {
		observability.RecordRepositoryOperation(context.Background(), "invite", "create", "error")
		return err
	}
	observability.RecordRepositoryOperation(context.Background(), "invite", "create", "success")
	return nil
}

func (r *GormInviteRepository) FindByID(id uint) (*domain.Invite, error) {
	var inv domain.Invite
	if err := r.db.First(&inv, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInviteNotFound
		}
		return nil, err
	}
	return &inv, nil
}

func (r *GormInviteRepository) FindByTokenHash(hash string) (*domain.Invite, error) {
	var inv domain.Invite
	if err := r.db.Where("token_hash = ?", hash).First(&inv).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInviteNotFound
		}
		return nil, err
	}
	return &inv, nil
}

// FindLatestUnresolvedByEmail returns the newest invite for the email that
// has not been accepted or revoked, expired or not. Re-inviting refreshes
// that row instead of stacking a second open invite per address.
func (r *GormInviteRepository) FindLatestUnresolvedByEmail(email string) (*domain.Invite, error) {
	var inv domain.Invite
	err := r.db.Where("email = ? AND accepted_at IS NULL AND revoked = ?", email, false).
		Order("id desc").First(&inv).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInviteNotFound
		}
		return nil, err
	}
	return &inv, nil
}

// ListPaged returns invites newest first, optionally narrowed to one
// inviter. Admins list only their own invites; super admins pass nil.
func (r *GormInviteRepository) ListPaged(req PageRequest, invitedBy *uint) (PageResult[domain.Invite], error) {
	normalized := req.normalized()
	var result PageResult[domain.Invite]

	base := r.db.Model(&domain.Invite{})
	if invitedBy != nil {
		base = base.Where("invited_by_user_id = ?", *invitedBy)
	}
	if err := base.Count(&result.Total).Error; err != nil {
		observability.RecordRepositoryOperation(context.Background(), "invite", "list_paged", "error")
		return PageResult[domain.Invite]{}, err
	}
	if err := base.Order("id desc").Offset(normalized.offset()).Limit(normalized.PageSize).Find(&result.Items).Error; err != nil {
		observability.RecordRepositoryOperation(context.Background(), "invite", "list_paged", "error")
		return PageResult[domain.Invite]{}, err
	}
	result.finish(normalized)
	observability.RecordRepositoryOperation(context.Background(), "invite", "list_paged", "success")
	return result, nil
}

// Refresh rotates the token and expiry on an unresolved invite.
func (r *GormInviteRepository) Refresh(id uint, tokenHash string, role domain.Role, invitedBy uint, expiresAt, now time.Time) error {
	res := r.db.Model(&domain.Invite{}).
		Where("id = ? AND accepted_at IS NULL AND revoked = ?", id, false).
		Updates(map[string]any{
			"token_hash":         tokenHash,
			"role":               role,
			"invited_by_user_id": invitedBy,
			"expires_at":         expiresAt,
			"updated_at":         now,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrInviteNotFound
	}
	return nil
}

func (r *GormInviteRepository) Revoke(id uint, now time.Time) error {
	res := r.db.Model(&domain.Invite{}).
		Where("id = ? AND accepted_at IS NULL AND revoked = ?", id, false).
		Updates(map[string]any{"revoked": true, "updated_at": now})
	if res.Error != nil {
		observability.RecordRepositoryOperation(context.Background(), "invite", "revoke", "error")
		return res.Error
	}
	if res.RowsAffected == 0 {
		observability.RecordRepositoryOperation(context.Background(), "invite", "revoke", "not_found")
		return ErrInviteNotFound
	}
	observability.RecordRepositoryOperation(context.Background(), "invite", "revoke", "success")
	return nil
}

// Consume marks the invite accepted. The guard on accepted_at and revoked
// makes a concurrent double accept lose on RowsAffected.
func (r *GormInviteRepository) Consume(id uint, now time.Time) error {
	res := r.db.Model(&domain.Invite{}).
		Where("id = ? AND accepted_at IS NULL AND revoked = ? AND expires_at > ?", id, false, now).
		Updates(map[string]any{"accepted_at": now, "updated_at": now})
	if res.Error != nil {
		observability.RecordRepositoryOperation(context.Background(), "invite", "consume", "error")
		return res.Error
	}
	if res.RowsAffected == 0 {
		observability.RecordRepositoryOperation(context.Background(), "invite", "consume", "not_found")
		return ErrInviteNotFound
	}
	observability.RecordRepositoryOperation(context.Background(), "invite", "consume", "success")
	return nil
}
