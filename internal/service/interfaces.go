package service

import (
	"context"
	"time"

	"github.com/charmops/charmops-backend/internal/domain"
	"github.com/charmops/charmops-backend/internal/repository"
)

type AuthServiceInterface interface {
	Login(ctx context.Context, email, password, ua, ip string) (*LoginResult, error)
	Refresh(ctx context.Context, refreshToken, ua, ip string) (*LoginResult, error)
	Logout(ctx context.Context, userID uint) error
	ChangePassword(ctx context.Context, userID uint, currentPassword, newPassword string) error
	GetUser(ctx context.Context, userID uint) (*domain.User, error)
}

type InviteServiceInterface interface {
	Create(ctx context.Context, input CreateInviteInput) (*domain.Invite, error)
	ListPaged(ctx context.Context, req repository.PageRequest, actorID uint, actorRole domain.Role) (repository.PageResult[domain.Invite], error)
	Revoke(ctx context.Context, id uint, actorID uint, actorRole domain.Role) error
	Resolve(ctx context.Context, token string, now time.Time) (*domain.Invite, error)
	Accept(ctx context.Context, input AcceptInviteInput) (*domain.User, error)
}

type ProfileServiceInterface interface {
	Create(ctx context.Context, creatorID uint, input CreateProfileInput) (*domain.Profile, error)
	GetByID(ctx context.Context, id uint) (*domain.Profile, error)
	ListPaged(ctx context.Context, req repository.PageRequest, filter repository.ProfileFilter) (repository.PageResult[domain.Profile], error)
	ListForOperator(ctx context.Context, operatorID uint) ([]domain.Profile, error)
	Update(ctx context.Context, id uint, input UpdateProfileInput) (*domain.Profile, error)
	Assign(ctx context.Context, profileID, operatorID uint) (*domain.Profile, error)
	Unassign(ctx context.Context, profileID, operatorID uint) error
	RevealCredential(ctx context.Context, id uint) (string, error)
	DeleteByID(ctx context.Context, id uint) error
}

type PresenceServiceInterface interface {
	Ping(ctx context.Context, userID uint, now time.Time) error
	Status(ctx context.Context, userID uint, now time.Time) (*PresenceStatus, error)
}

type OperatorServiceInterface interface {
	Roster(ctx context.Context, now time.Time) ([]OperatorRosterEntry, error)
	Detail(ctx context.Context, id uint, now time.Time) (*OperatorDetail, error)
	PruneActivity(ctx context.Context, cutoff time.Time) (int64, error)
}
