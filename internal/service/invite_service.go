package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/charmops/charmops-backend/internal/config"
	"github.com/charmops/charmops-backend/internal/domain"
	"github.com/charmops/charmops-backend/internal/mailer"
	"github.com/charmops/charmops-backend/internal/observability"
	"github.com/charmops/charmops-backend/internal/repository"
	"github.com/charmops/charmops-backend/internal/security"
)

var (
	ErrInvalidEmail     = errors.New("invalid email address")
	ErrRoleNotInvitable = errors.New("role cannot be invited")
	ErrRoleNotAllowed   = errors.New("inviter cannot grant this role")
	ErrUserExists       = errors.New("a user with this email already exists")
	ErrInviteInvalid    = errors.New("invite token is invalid")
	ErrInviteUsed       = errors.New("invite has already been accepted")
	ErrInviteExpired    = errors.New("invite has expired")
	ErrInviteResolved   = errors.New("invite is already resolved")
	ErrEmailSendFailed  = errors.New("invite stored but email delivery failed")
)

var emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

const inviteTokenBytes = 32

type CreateInviteInput struct {
	InviterID   uint
	InviterRole domain.Role
	InviterName string
	Email       string
	Role        domain.Role
}

type AcceptInviteInput struct {
	Token     string
	FirstName string
	LastName  string
	Password  string
}

type InviteService struct {
	db         *gorm.DB
	inviteRepo repository.InviteRepository
	userRepo   repository.UserRepository
	mail       mailer.InviteMailer
	cfg        *config.Config
	logger     *slog.Logger
}

func NewInviteService(db *gorm.DB, inviteRepo repository.InviteRepository, userRepo repository.UserRepository, mail mailer.InviteMailer, cfg *config.Config, logger *slog.Logger) *InviteService {
	return &InviteService{db: db, inviteRepo: inviteRepo, userRepo: userRepo, mail: mail, cfg: cfg, logger: logger}
}

// Create issues or refreshes an invite and emails the accept link. The
// invite row survives a failed delivery; the caller gets ErrEmailSendFailed
// and can re-send by inviting the same address again.
func (s *InviteService) Create(ctx context.Context, input CreateInviteInput) (*domain.Invite, error) {
	email := strings.TrimSpace(strings.ToLower(input.Email))
	if !emailRe.MatchString(email) {
		observability.RecordInviteLifecycle(ctx, "create", "bad_request")
		return nil, ErrInvalidEmail
	}
	if !input.Role.Invitable() {
		observability.RecordInviteLifecycle(ctx, "create", "bad_request")
		return nil, ErrRoleNotInvitable
	}
	// admins may only grow the operator pool; only super admins mint admins
	if input.InviterRole == domain.RoleAdmin && input.Role != domain.RoleOperator {
		observability.RecordInviteLifecycle(ctx, "create", "forbidden")
		return nil, ErrRoleNotAllowed
	}

	exists, err := s.userRepo.EmailExists(email)
	if err != nil {
		observability.RecordInviteLifecycle(ctx, "create", "error")
		return nil, err
	}
	if exists {
		observability.RecordInviteLifecycle(ctx, "create", "conflict")
		return nil, ErrUserExists
	}

	token, err := security.NewRandomString(inviteTokenBytes)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	expiresAt := now.Add(time.Duration(s.cfg.InviteExpiresDays) * 24 * time.Hour)
	tokenHash := security.HashInviteToken(token)

	var invite *domain.Invite
	existing, err := s.inviteRepo.FindLatestUnresolvedByEmail(email)
	switch {
	case err == nil:
		// reuse the open row so one address never has two live invites
		if err := s.inviteRepo.Refresh(existing.ID, tokenHash, input.Role, input.InviterID, expiresAt, now); err != nil {
			observability.RecordInviteLifecycle(ctx, "refresh", "error")
			return nil, err
		}
		invite, err = s.inviteRepo.FindByID(existing.ID)
		if err != nil {
			return nil, err
		}
		observability.RecordInviteLifecycle(ctx, "refresh", "success")
	case errors.Is(err, repository.ErrInviteNotFound):
		invite = &domain.Invite{
			Email:           email,
			Role:            input.Role,
			TokenHash:       tokenHash,
			ExpiresAt:       expiresAt,
			InvitedByUserID: input.InviterID,
		}
		if err := s.inviteRepo.Create(invite); err != nil {
			observability.RecordInviteLifecycle(ctx, "create", "error")
			return nil, err
		}
		observability.RecordInviteLifecycle(ctx, "create", "success")
	default:
		return nil, err
	}

	inv := mailer.Invitation{
		Email:       email,
		Role:        input.Role,
		InviterName: input.InviterName,
		AcceptURL:   s.acceptURL(token),
		ExpiresAt:   expiresAt,
	}
	if err := s.mail.SendInvite(ctx, inv); err != nil {
		s.logger.ErrorContext(ctx, "invite email delivery failed", "email", email, "error", err)
		observability.RecordInviteEmailDelivery(ctx, "failed")
		return invite, ErrEmailSendFailed
	}
	observability.RecordInviteEmailDelivery(ctx, "sent")
	return invite, nil
}

func (s *InviteService) acceptURL(token string) string {
	return fmt.Sprintf("%s/invite/%s", s.cfg.AppBaseURL, url.PathEscape(token))
}

// ListPaged scopes the listing by actor: super admins see every invite,
// admins only the ones they issued themselves.
func (s *InviteService) ListPaged(ctx context.Context, req repository.PageRequest, actorID uint, actorRole domain.Role) (repository.PageResult[domain.Invite], error) {
	var invitedBy *uint
	if actorRole != domain.RoleSuperAdmin {
		invitedBy = &actorID
	}
	return s.inviteRepo.ListPaged(req, invitedBy)
}

// Revoke is idempotent: revoking an already revoked invite succeeds without
// touching the row. Revoking an accepted invite is a conflict. Admins may
// only revoke their own invites; foreign ones read as not found.
func (s *InviteService) Revoke(ctx context.Context, id uint, actorID uint, actorRole domain.Role) error {
	invite, err := s.inviteRepo.FindByID(id)
	if err != nil {
		return err
	}
	if actorRole != domain.RoleSuperAdmin && invite.InvitedByUserID != actorID {
		observability.RecordInviteLifecycle(ctx, "revoke", "not_found")
		return repository.ErrInviteNotFound
	}
	if invite.Revoked {
		observability.RecordInviteLifecycle(ctx, "revoke", "noop")
		return nil
	}
	if invite.AcceptedAt != nil {
		observability.RecordInviteLifecycle(ctx, "revoke", "conflict")
		return ErrInviteResolved
	}
	if err := s.inviteRepo.Revoke(id, time.Now()); err != nil {
		if errors.Is(err, repository.ErrInviteNotFound) {
			// raced with an accept or another revoke
			observability.RecordInviteLifecycle(ctx, "revoke", "conflict")
			return ErrInviteResolved
		}
		observability.RecordInviteLifecycle(ctx, "revoke", "error")
		return err
	}
	observability.RecordInviteLifecycle(ctx, "revoke", "success")
	return nil
}

// Resolve maps a raw token to its invite, with a revoked invite deliberately
// indistinguishable from a token that never existed.
func (s *InviteService) Resolve(ctx context.Context, token string, now time.Time) (*domain.Invite, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		observability.RecordInviteLifecycle(ctx, "resolve", "invalid")
		return nil, ErrInviteInvalid
	}
	invite, err := s.inviteRepo.FindByTokenHash(security.HashInviteToken(token))
	if err != nil {
		if errors.Is(err, repository.ErrInviteNotFound) {
			observability.RecordInviteLifecycle(ctx, "resolve", "invalid")
			return nil, ErrInviteInvalid
		}
		return nil, err
	}
	switch invite.Status(now) {
	case domain.InviteStatusRevoked:
		observability.RecordInviteLifecycle(ctx, "resolve", "invalid")
		return nil, ErrInviteInvalid
	case domain.InviteStatusAccepted:
		observability.RecordInviteLifecycle(ctx, "resolve", "used")
		return nil, ErrInviteUsed
	case domain.InviteStatusExpired:
		observability.RecordInviteLifecycle(ctx, "resolve", "expired")
		return nil, ErrInviteExpired
	}
	observability.RecordInviteLifecycle(ctx, "resolve", "success")
	return invite, nil
}

// Accept consumes the invite and creates the user atomically. The
// conditional consume inside the transaction makes two racing accepts of
// the same token produce exactly one user.
func (s *InviteService) Accept(ctx context.Context, input AcceptInviteInput) (*domain.User, error) {
	// onboarding keeps the lenient legacy minimum; staff tighten their
	// password via change-password afterwards
	if len(input.Password) < 8 {
		return nil, ErrWeakPassword
	}
	firstName := strings.TrimSpace(input.FirstName)
	lastName := strings.TrimSpace(input.LastName)
	if firstName == "" || lastName == "" {
		return nil, errors.New("first and last name are required")
	}

	now := time.Now()
	invite, err := s.Resolve(ctx, input.Token, now)
	if err != nil {
		return nil, err
	}

	hash, err := security.HashPassword(input.Password)
	if err != nil {
		return nil, err
	}

	var user *domain.User
	err = s.db.Transaction(func(tx *gorm.DB) error {
		invites := repository.NewInviteRepository(tx)
		users := repository.NewUserRepository(tx)

		if err := invites.Consume(invite.ID, now); err != nil {
			if errors.Is(err, repository.ErrInviteNotFound) {
				return ErrInviteInvalid
			}
			return err
		}
		exists, err := users.EmailExists(invite.Email)
		if err != nil {
			return err
		}
		if exists {
			return ErrUserExists
		}
		user = &domain.User{
			Email:        invite.Email,
			FirstName:    firstName,
			LastName:     lastName,
			Role:         invite.Role,
			PasswordHash: hash,
		}
		return users.Create(user)
	})
	if err != nil {
		observability.RecordInviteLifecycle(ctx, "accept", "error")
		return nil, err
	}
	observability.RecordInviteLifecycle(ctx, "accept", "success")
	return user, nil
}
