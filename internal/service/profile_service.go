package service

import (
	"context"
	"errors"
	"strings"

	"github.com/charmops/charmops-backend/internal/domain"
	"github.com/charmops/charmops-backend/internal/observability"
	"github.com/charmops/charmops-backend/internal/repository"
	"github.com/charmops/charmops-backend/internal/security"
)

var (
	ErrInvalidPlatform    = errors.New("unknown platform")
	ErrInvalidStatus      = errors.New("unknown profile status")
	ErrInvalidLogin       = errors.New("login must be between 3 and 255 characters")
	ErrInvalidDisplayName = errors.New("display name must be between 1 and 255 characters")
	ErrEmptyCredential    = errors.New("credential is required")
	ErrDuplicateLogin     = errors.New("a profile with this login already exists on the platform")
	ErrNotAnOperator      = errors.New("assignee is not an operator")
	ErrProfileNoUpdates   = errors.New("no updates provided")
)

type CreateProfileInput struct {
	Platform    domain.Platform
	Login       string
	Credential  string
	DisplayName string
	Locale      string
	AvatarURL   string
}

type UpdateProfileInput struct {
	DisplayName *string
	Locale      *string
	AvatarURL   *string
	Status      *domain.ProfileStatus
	Credential  *string
}

type ProfileService struct {
	profileRepo repository.ProfileRepository
	userRepo    repository.UserRepository
	box         *security.SecretBox
}

func NewProfileService(profileRepo repository.ProfileRepository, userRepo repository.UserRepository, box *security.SecretBox) *ProfileService {
	return &ProfileService{profileRepo: profileRepo, userRepo: userRepo, box: box}
}

func (s *ProfileService) Create(ctx context.Context, creatorID uint, input CreateProfileInput) (*domain.Profile, error) {
	if !input.Platform.Valid() {
		observability.RecordProfileMutation(ctx, "create", "bad_request")
		return nil, ErrInvalidPlatform
	}
	login := strings.TrimSpace(input.Login)
	if len(login) < 3 || len(login) > 255 {
		observability.RecordProfileMutation(ctx, "create", "bad_request")
		return nil, ErrInvalidLogin
	}
	displayName := strings.TrimSpace(input.DisplayName)
	if displayName == "" || len(displayName) > 255 {
		observability.RecordProfileMutation(ctx, "create", "bad_request")
		return nil, ErrInvalidDisplayName
	}
	if input.Credential == "" {
		observability.RecordProfileMutation(ctx, "create", "bad_request")
		return nil, ErrEmptyCredential
	}

	exists, err := s.profileRepo.LoginExists(input.Platform, login, 0)
	if err != nil {
		observability.RecordProfileMutation(ctx, "create", "error")
		return nil, err
	}
	if exists {
		observability.RecordProfileMutation(ctx, "create", "conflict")
		return nil, ErrDuplicateLogin
	}

	sealed, err := s.box.Seal(input.Credential)
	if err != nil {
		observability.RecordProfileMutation(ctx, "create", "error")
		return nil, err
	}

	locale := strings.TrimSpace(input.Locale)
	if locale == "" {
		locale = "en"
	}
	profile := &domain.Profile{
		Platform:        input.Platform,
		Login:           login,
		CredentialEnc:   sealed,
		DisplayName:     displayName,
		Locale:          locale,
		AvatarURL:       strings.TrimSpace(input.AvatarURL),
		Status:          domain.ProfileStatusActive,
		CreatedByUserID: creatorID,
	}
	if err := s.profileRepo.Create(profile); err != nil {
		observability.RecordProfileMutation(ctx, "create", "error")
		return nil, err
	}
	observability.RecordProfileMutation(ctx, "create", "success")
	return profile, nil
}

func (s *ProfileService) GetByID(ctx context.Context, id uint) (*domain.Profile, error) {
	return s.profileRepo.FindByID(id)
}

func (s *ProfileService) ListPaged(ctx context.Context, req repository.PageRequest, filter repository.ProfileFilter) (repository.PageResult[domain.Profile], error) {
	return s.profileRepo.ListPaged(req, filter)
}

func (s *ProfileService) ListForOperator(ctx context.Context, operatorID uint) ([]domain.Profile, error) {
	return s.profileRepo.ListByOperator(operatorID)
}

func (s *ProfileService) Update(ctx context.Context, id uint, input UpdateProfileInput) (*domain.Profile, error) {
	updates := map[string]any{}
	if input.DisplayName != nil {
		displayName := strings.TrimSpace(*input.DisplayName)
		if displayName == "" || len(displayName) > 255 {
			observability.RecordProfileMutation(ctx, "update", "bad_request")
			return nil, ErrInvalidDisplayName
		}
		updates["display_name"] = displayName
	}
	if input.Locale != nil {
		updates["locale"] = strings.TrimSpace(*input.Locale)
	}
	if input.AvatarURL != nil {
		updates["avatar_url"] = strings.TrimSpace(*input.AvatarURL)
	}
	if input.Status != nil {
		if !input.Status.Valid() {
			observability.RecordProfileMutation(ctx, "update", "bad_request")
			return nil, ErrInvalidStatus
		}
		updates["status"] = *input.Status
	}
	if input.Credential != nil {
		if *input.Credential == "" {
			observability.RecordProfileMutation(ctx, "update", "bad_request")
			return nil, ErrEmptyCredential
		}
		sealed, err := s.box.Seal(*input.Credential)
		if err != nil {
			observability.RecordProfileMutation(ctx, "update", "error")
			return nil, err
		}
		updates["credential_enc"] = sealed
	}
	if len(updates) == 0 {
		observability.RecordProfileMutation(ctx, "update", "bad_request")
		return nil, ErrProfileNoUpdates
	}

	if err := s.profileRepo.Update(id, updates); err != nil {
		if errors.Is(err, repository.ErrProfileNotFound) {
			observability.RecordProfileMutation(ctx, "update", "not_found")
		} else {
			observability.RecordProfileMutation(ctx, "update", "error")
		}
		return nil, err
	}
	profile, err := s.profileRepo.FindByID(id)
	if err != nil {
		return nil, err
	}
	observability.RecordProfileMutation(ctx, "update", "success")
	return profile, nil
}

// Assign hands a profile to an operator, rejecting non-operator assignees.
func (s *ProfileService) Assign(ctx context.Context, profileID, operatorID uint) (*domain.Profile, error) {
	operator, err := s.userRepo.FindByID(operatorID)
	if err != nil {
		observability.RecordProfileMutation(ctx, "assign", "not_found")
		return nil, err
	}
	if operator.Role != domain.RoleOperator {
		observability.RecordProfileMutation(ctx, "assign", "bad_request")
		return nil, ErrNotAnOperator
	}
	if err := s.profileRepo.Assign(profileID, operatorID); err != nil {
		if errors.Is(err, repository.ErrProfileNotFound) {
			observability.RecordProfileMutation(ctx, "assign", "not_found")
		} else {
			observability.RecordProfileMutation(ctx, "assign", "error")
		}
		return nil, err
	}
	observability.RecordProfileMutation(ctx, "assign", "success")
	return s.profileRepo.FindByID(profileID)
}

func (s *ProfileService) Unassign(ctx context.Context, profileID, operatorID uint) error {
	if err := s.profileRepo.Unassign(profileID, operatorID); err != nil {
		if errors.Is(err, repository.ErrProfileNotAssigned) {
			observability.RecordProfileMutation(ctx, "unassign", "conflict")
		} else {
			observability.RecordProfileMutation(ctx, "unassign", "error")
		}
		return err
	}
	observability.RecordProfileMutation(ctx, "unassign", "success")
	return nil
}

// RevealCredential opens the sealed platform password. Access control lives
// in the HTTP layer; every call is audited there.
func (s *ProfileService) RevealCredential(ctx context.Context, id uint) (string, error) {
	profile, err := s.profileRepo.FindByID(id)
	if err != nil {
		return "", err
	}
	return s.box.Open(profile.CredentialEnc)
}

func (s *ProfileService) DeleteByID(ctx context.Context, id uint) error {
	if err := s.profileRepo.DeleteByID(id); err != nil {
		if errors.Is(err, repository.ErrProfileNotFound) {
			observability.RecordProfileMutation(ctx, "delete", "not_found")
		} else {
			observability.RecordProfileMutation(ctx, "delete", "error")
		}
		return err
	}
	observability.RecordProfileMutation(ctx, "delete", "success")
	return nil
}
