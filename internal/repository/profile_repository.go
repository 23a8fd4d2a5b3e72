package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/charmops/charmops-backend/internal/domain"
	"github.com/charmops/charmops-backend/internal/observability"
)

var (
	ErrProfileNotFound    = errors.New("profile not found")
	ErrProfileNotAssigned = errors.New("profile not assigned to operator")
)

// ProfileFilter narrows ListPaged. Zero values mean "no constraint";
// AssignedTo uses pointer semantics so filtering for unassigned rows is
// expressible.
type ProfileFilter struct {
	Platform   domain.Platform
	Status     domain.ProfileStatus
	AssignedTo *uint
	Unassigned bool
	Search     string
}

type ProfileRepository interface {
	Create(profile *domain.Profile) error
	FindByID(id uint) (*domain.Profile, error)
	ListPaged(req PageRequest, filter ProfileFilter) (PageResult[domain.Profile], error)
	ListByOperator(operatorID uint) ([]domain.Profile, error)
	CountByOperator(operatorID uint) (int64, error)
	LoginExists(platform domain.Platform, login string, excludeID uint) (bool, error)
	Update(id uint, updates map[string]any) error
	Assign(id, operatorID uint) error
	Unassign(id, operatorID uint) error
	DeleteByID(id uint) error
}

type GormProfileRepository struct{ db *gorm.DB }

func NewProfileRepository(db *gorm.DB) ProfileRepository { return &GormProfileRepository{db: db} }

func (r *GormProfileRepository) Create(profile *domain.Profile) error {
	if err := r.db.Create(profile).Error; err != nil {
		observability.RecordRepositoryOperation(context.Background(), "profile", "create", "error")
		return err
	}
	observability.RecordRepositoryOperation(context.Background(), "profile", "create", "success")
	return nil
}

func (r *GormProfileRepository) FindByID(id uint) (*domain.Profile, error) {
	var p domain.Profile
	if err := r.db.First(&p, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProfileNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *GormProfileRepository) applyFilter(q *gorm.DB, filter ProfileFilter) *gorm.DB {
	if filter.Platform != "" {
		q = q.Where("platform = ?", filter.Platform)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.Unassigned {
		q = q.Where("assigned_operator_id IS NULL")
	} else if filter.AssignedTo != nil {
		q = q.Where("assigned_operator_id = ?", *filter.AssignedTo)
	}
	if filter.Search != "" {
		like := "%" + filter.Search + "%"
		q = q.Where("display_name LIKE ? OR login LIKE ?", like, like)
	}
	return q
}

func (r *GormProfileRepository) ListPaged(req PageRequest, filter ProfileFilter) (PageResult[domain.Profile], error) {
	normalized := req.normalized()
	var result PageResult[domain.Profile]

	base := r.applyFilter(r.db.Model(&domain.Profile{}), filter)
	if err := base.Count(&result.Total).Error; err != nil {
		observability.RecordRepositoryOperation(context.Background(), "profile", "list_paged", "error")
		return PageResult[domain.Profile]{}, err
	}
	if err := base.Order("id desc").Offset(normalized.offset()).Limit(normalized.PageSize).Find(&result.Items).Error; err != nil {
		observability.RecordRepositoryOperation(context.Background(), "profile", "list_paged", "error")
		return PageResult[domain.Profile]{}, err
	}
	result.finish(normalized)
	observability.RecordRepositoryOperation(context.Background(), "profile", "list_paged", "success")
	return result, nil
}

func (r *GormProfileRepository) ListByOperator(operatorID uint) ([]domain.Profile, error) {
	var profiles []domain.Profile
	err := r.db.Where("assigned_operator_id = ?", operatorID).Order("id asc").Find(&profiles).Error
	return profiles, err
}

func (r *GormProfileRepository) CountByOperator(operatorID uint) (int64, error) {
	var count int64
	err := r.db.Model(&domain.Profile{}).Where("assigned_operator_id = ?", operatorID).Count(&count).Error
	return count, err
}

func (r *GormProfileRepository) LoginExists(platform domain.Platform, login string, excludeID uint) (bool, error) {
	var count int64
	q := r.db.Model(&domain.Profile{}).Where("platform = ? AND login = ?", platform, login)
	if excludeID != 0 {
		q = q.Where("id <> ?", excludeID)
	}
	err := q.Count(&count).Error
	return count > 0, err
}

func (r *GormProfileRepository) Update(id uint, updates map[string]any) error {
	res := r.db.Model(&domain.Profile{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		observability.RecordRepositoryOperation(context.Background(), "profile", "update", "error")
		return res.Error
	}
	if res.RowsAffected == 0 {
		observability.RecordRepositoryOperation(context.Background(), "profile", "update", "not_found")
		return ErrProfileNotFound
	}
	observability.RecordRepositoryOperation(context.Background(), "profile", "update", "success")
	return nil
}

func (r *GormProfileRepository) Assign(id, operatorID uint) error {
	return r.Update(id, map[string]any{"assigned_operator_id": operatorID})
}

// Unassign only clears the assignment when the profile is still held by the
// named operator, so a stale unassign cannot strip a newer assignment.
func (r *GormProfileRepository) Unassign(id, operatorID uint) error {
	res := r.db.Model(&domain.Profile{}).
		Where("id = ? AND assigned_operator_id = ?", id, operatorID).
		Update("assigned_operator_id", nil)
	if res.Error != nil {
		observability.RecordRepositoryOperation(context.Background(), "profile", "unassign", "error")
		return res.Error
	}
	if res.RowsAffected == 0 {
		observability.RecordRepositoryOperation(context.Background(), "profile", "unassign", "not_found")
		return ErrProfileNotAssigned
	}
	observability.RecordRepositoryOperation(context.Background(), "profile", "unassign", "success")
	return nil
}

func (r *GormProfileRepository) DeleteByID(id uint) error {
	res := r.db.Delete(&domain.Profile{}, id)
	if res.Error != nil {
		observability.RecordRepositoryOperation(context.Background(), "profile", "delete_by_id", "error")
		return res.Error
	}
	if res.RowsAffected == 0 {
		observability.RecordRepositoryOperation(context.Background(), "profile", "delete_by_id", "not_found")
		return ErrProfileNotFound
	}
	observability.RecordRepositoryOperation(context.Background(), "profile", "delete_by_id", "success")
	return nil
}
