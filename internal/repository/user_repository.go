package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/charmops/charmops-backend/internal/domain"
	"github.com/charmops/charmops-backend/internal/observability"
)

var ErrUserNotFound = errors.New("user not found")

type UserRepository interface {
	Create(user *domain.User) error
	FindByID(id uint) (*domain.User, error)
	FindByEmail(email string) (*domain.User, error)
	EmailExists(email string) (bool, error)
	ListByRole(role domain.Role) ([]domain.User, error)
	Update(id uint, updates map[string]any) error
}

type GormUserRepository struct{ db *gorm.DB }

func NewUserRepository(db *gorm.DB) UserRepository { return &GormUserRepository{db: db} }

func (r *GormUserRepository) Create(user *domain.User) error {
	if err := r.db.Create(user).Error; err != nil {
		observability.RecordRepositoryOperation(context.Background(), "user", "create", "error")
		return err
	}
	observability.RecordRepositoryOperation(context.Background(), "user", "create", "success")
	return nil
}

func (r *GormUserRepository) FindByID(id uint) (*domain.User, error) {
	var u domain.User
	if err := r.db.First(&u, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (r *GormUserRepository) FindByEmail(email string) (*domain.User, error) {
	var u domain.User
	if err := r.db.Where("email = ?", email).First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (r *GormUserRepository) EmailExists(email string) (bool, error) {
	var count int64
	err := r.db.Model(&domain.User{}).Where("email = ?", email).Count(&count).Error
	return count > 0, err
}

func (r *GormUserRepository) ListByRole(role domain.Role) ([]domain.User, error) {
	var users []domain.User
	err := r.db.Where("role = ?", role).Order("id asc").Find(&users).Error
	return users, err
}

func (r *GormUserRepository) Update(id uint, updates map[string]any) error {
	res := r.db.Model(&domain.User{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		observability.RecordRepositoryOperation(context.Background(), "user", "update", "error")
		return res.Error
	}
	if res.RowsAffected == 0 {
		observability.RecordRepositoryOperation(context.Background(), "user", "update", "not_found")
		return ErrUserNotFound
	}
	observability.RecordRepositoryOperation(context.Background(), "user", "update", "success")
	return nil
}
