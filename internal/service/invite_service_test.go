package service

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strings"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/charmops/charmops-backend/internal/config"
	"github.com/charmops/charmops-backend/internal/domain"
	"github.com/charmops/charmops-backend/internal/mailer"
	"github.com/charmops/charmops-backend/internal/repository"
	"github.com/charmops/charmops-backend/internal/security"
)

type captureMailer struct {
	sent []mailer.Invitation
	fail bool
}

func (m *captureMailer) SendInvite(ctx context.Context, inv mailer.Invitation) error {
	if m.fail {
		return errors.New("smtp unavailable")
	}
	m.sent = append(m.sent, inv)
	return nil
}

func newServiceDBForTest(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&domain.User{}, &domain.Invite{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func newInviteServiceForTest(t *testing.T) (*InviteService, *captureMailer, *gorm.DB) {
	t.Helper()
	db := newServiceDBForTest(t)
	mail := &captureMailer{}
	cfg := &config.Config{
		AppBaseURL:        "https://ops.example.com",
		InviteExpiresDays: 7,
	}
	svc := NewInviteService(
		db,
		repository.NewInviteRepository(db),
		repository.NewUserRepository(db),
		mail,
		cfg,
		slog.New(slog.NewTextHandler(io.Discard, nil)),
	)
	return svc, mail, db
}

func createDBUser(t *testing.T, db *gorm.DB, email string, role domain.Role) *domain.User {
	t.Helper()
	u := &domain.User{Email: email, FirstName: "Seed", LastName: "User", Role: role, PasswordHash: "hash"}
	if err := db.Create(u).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}

func tokenFromAcceptURL(t *testing.T, acceptURL string) string {
	t.Helper()
	const prefix = "https://ops.example.com/invite/"
	if !strings.HasPrefix(acceptURL, prefix) {
		t.Fatalf("unexpected accept url %q", acceptURL)
	}
	token, err := url.PathUnescape(strings.TrimPrefix(acceptURL, prefix))
	if err != nil || token == "" {
		t.Fatalf("no token in accept url %q: %v", acceptURL, err)
	}
	return token
}

func TestInviteServiceCreateStoresHashAndSendsEmail(t *testing.T) {
	svc, mail, db := newInviteServiceForTest(t)
	admin := createDBUser(t, db, "admin@example.com", domain.RoleSuperAdmin)

	invite, err := svc.Create(context.Background(), CreateInviteInput{
		InviterID:   admin.ID,
		InviterRole: domain.RoleSuperAdmin,
		InviterName: "Seed User",
		Email:       "New.Op@Example.com",
		Role:        domain.RoleOperator,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if invite.Email != "new.op@example.com" {
		t.Fatalf("email not normalized: %q", invite.Email)
	}
	if len(mail.sent) != 1 {
		t.Fatalf("expected 1 email, got %d", len(mail.sent))
	}

	token := tokenFromAcceptURL(t, mail.sent[0].AcceptURL)
	// 32 random bytes encode to 43 url-safe chars
	if decoded, err := base64.RawURLEncoding.DecodeString(token); err != nil || len(decoded) != 32 {
		t.Fatalf("unexpected token shape %q: %v", token, err)
	}
	if invite.TokenHash == token {
		t.Fatal("raw token stored instead of hash")
	}
	if invite.TokenHash != security.HashInviteToken(token) {
		t.Fatal("stored hash does not match emailed token")
	}
	if invite.Status(time.Now()) != domain.InviteStatusActive {
		t.Fatalf("expected active invite, got %v", invite.Status(time.Now()))
	}
}

func TestInviteServiceCreateValidation(t *testing.T) {
	svc, _, db := newInviteServiceForTest(t)
	admin := createDBUser(t, db, "admin@example.com", domain.RoleAdmin)

	base := CreateInviteInput{InviterID: admin.ID, InviterRole: domain.RoleAdmin, Email: "x@example.com", Role: domain.RoleOperator}

	bad := base
	bad.Email = "not-an-email"
	if _, err := svc.Create(context.Background(), bad); !errors.Is(err, ErrInvalidEmail) {
		t.Fatalf("expected ErrInvalidEmail, got %v", err)
	}

	bad = base
	bad.Role = domain.RoleSuperAdmin
	if _, err := svc.Create(context.Background(), bad); !errors.Is(err, ErrRoleNotInvitable) {
		t.Fatalf("expected ErrRoleNotInvitable, got %v", err)
	}

	// an admin cannot mint another admin
	bad = base
	bad.Role = domain.RoleAdmin
	if _, err := svc.Create(context.Background(), bad); !errors.Is(err, ErrRoleNotAllowed) {
		t.Fatalf("expected ErrRoleNotAllowed, got %v", err)
	}

	bad = base
	bad.Email = "admin@example.com"
	if _, err := svc.Create(context.Background(), bad); !errors.Is(err, ErrUserExists) {
		t.Fatalf("expected ErrUserExists, got %v", err)
	}
}

func TestInviteServiceCreateReusesUnresolvedInvite(t *testing.T) {
	svc, mail, db := newInviteServiceForTest(t)
	admin := createDBUser(t, db, "admin@example.com", domain.RoleSuperAdmin)
	input := CreateInviteInput{InviterID: admin.ID, InviterRole: domain.RoleSuperAdmin, Email: "op@example.com", Role: domain.RoleOperator}

	first, err := svc.Create(context.Background(), input)
	if err != nil {
		t.Fatalf("first create: %v", err)
	}
	second, err := svc.Create(context.Background(), input)
	if err != nil {
		t.Fatalf("second create: %v", err)
	}
	if first.ID != second.ID {
		t.Fatalf("expected invite reuse, got ids %d and %d", first.ID, second.ID)
	}
	if first.TokenHash == second.TokenHash {
		t.Fatal("token not rotated on re-invite")
	}

	var count int64
	if err := db.Model(&domain.Invite{}).Count(&count).Error; err != nil {
		t.Fatalf("count invites: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 invite row, got %d", count)
	}
	if len(mail.sent) != 2 {
		t.Fatalf("expected 2 emails, got %d", len(mail.sent))
	}
	// only the latest token resolves
	if _, err := svc.Resolve(context.Background(), tokenFromAcceptURL(t, mail.sent[0].AcceptURL), time.Now()); !errors.Is(err, ErrInviteInvalid) {
		t.Fatalf("old token should be invalid, got %v", err)
	}
	if _, err := svc.Resolve(context.Background(), tokenFromAcceptURL(t, mail.sent[1].AcceptURL), time.Now()); err != nil {
		t.Fatalf("new token should resolve: %v", err)
	}
}

func TestInviteServiceCreateKeepsInviteOnEmailFailure(t *testing.T) {
	svc, mail, db := newInviteServiceForTest(t)
	admin := createDBUser(t, db, "admin@example.com", domain.RoleSuperAdmin)
	mail.fail = true

	invite, err := svc.Create(context.Background(), CreateInviteInput{
		InviterID: admin.ID, InviterRole: domain.RoleSuperAdmin,
		Email: "op@example.com", Role: domain.RoleOperator,
	})
	if !errors.Is(err, ErrEmailSendFailed) {
		t.Fatalf("expected ErrEmailSendFailed, got %v", err)
	}
	if invite == nil || invite.ID == 0 {
		t.Fatal("invite not persisted on email failure")
	}

	var count int64
	if err := db.Model(&domain.Invite{}).Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected invite row to survive, got %d rows", count)
	}
}

func TestInviteServiceResolvePrecedence(t *testing.T) {
	svc, mail, db := newInviteServiceForTest(t)
	admin := createDBUser(t, db, "admin@example.com", domain.RoleSuperAdmin)
	now := time.Now()

	if _, err := svc.Resolve(context.Background(), "no-such-token", now); !errors.Is(err, ErrInviteInvalid) {
		t.Fatalf("expected ErrInviteInvalid, got %v", err)
	}
	if _, err := svc.Resolve(context.Background(), "  ", now); !errors.Is(err, ErrInviteInvalid) {
		t.Fatalf("expected ErrInviteInvalid for blank token, got %v", err)
	}

	invite, err := svc.Create(context.Background(), CreateInviteInput{
		InviterID: admin.ID, InviterRole: domain.RoleSuperAdmin,
		Email: "op@example.com", Role: domain.RoleOperator,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	token := tokenFromAcceptURL(t, mail.sent[0].AcceptURL)

	if _, err := svc.Resolve(context.Background(), token, now); err != nil {
		t.Fatalf("resolve active: %v", err)
	}
	if _, err := svc.Resolve(context.Background(), token, now.Add(8*24*time.Hour)); !errors.Is(err, ErrInviteExpired) {
		t.Fatalf("expected ErrInviteExpired, got %v", err)
	}

	accepted := now
	if err := db.Model(&domain.Invite{}).Where("id = ?", invite.ID).Update("accepted_at", &accepted).Error; err != nil {
		t.Fatalf("mark accepted: %v", err)
	}
	// accepted wins over expired
	if _, err := svc.Resolve(context.Background(), token, now.Add(8*24*time.Hour)); !errors.Is(err, ErrInviteUsed) {
		t.Fatalf("expected ErrInviteUsed, got %v", err)
	}

	// revoked wins over everything and is indistinguishable from unknown
	if err := db.Model(&domain.Invite{}).Where("id = ?", invite.ID).Update("revoked", true).Error; err != nil {
		t.Fatalf("mark revoked: %v", err)
	}
	if _, err := svc.Resolve(context.Background(), token, now); !errors.Is(err, ErrInviteInvalid) {
		t.Fatalf("expected ErrInviteInvalid for revoked, got %v", err)
	}
}

func TestInviteServiceAcceptCreatesUserOnce(t *testing.T) {
	svc, mail, db := newInviteServiceForTest(t)
	admin := createDBUser(t, db, "admin@example.com", domain.RoleSuperAdmin)

	if _, err := svc.Create(context.Background(), CreateInviteInput{
		InviterID: admin.ID, InviterRole: domain.RoleSuperAdmin,
		Email: "op@example.com", Role: domain.RoleOperator,
	}); err != nil {
		t.Fatalf("create: %v", err)
	}
	token := tokenFromAcceptURL(t, mail.sent[0].AcceptURL)

	if _, err := svc.Accept(context.Background(), AcceptInviteInput{
		Token: token, FirstName: "New", LastName: "Operator", Password: "weak",
	}); !errors.Is(err, ErrWeakPassword) {
		t.Fatalf("expected ErrWeakPassword, got %v", err)
	}

	user, err := svc.Accept(context.Background(), AcceptInviteInput{
		Token: token, FirstName: "New", LastName: "Operator", Password: "Strong#Pass123",
	})
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	if user.Email != "op@example.com" || user.Role != domain.RoleOperator {
		t.Fatalf("unexpected user: %+v", user)
	}
	if user.PasswordHash == "Strong#Pass123" {
		t.Fatal("password stored in the clear")
	}

	if _, err := svc.Accept(context.Background(), AcceptInviteInput{
		Token: token, FirstName: "Again", LastName: "Operator", Password: "Strong#Pass123",
	}); !errors.Is(err, ErrInviteUsed) {
		t.Fatalf("expected ErrInviteUsed on second accept, got %v", err)
	}

	var users int64
	if err := db.Model(&domain.User{}).Where("email = ?", "op@example.com").Count(&users).Error; err != nil {
		t.Fatalf("count users: %v", err)
	}
	if users != 1 {
		t.Fatalf("expected exactly 1 user, got %d", users)
	}
}

func TestInviteServiceRevoke(t *testing.T) {
	svc, mail, db := newInviteServiceForTest(t)
	admin := createDBUser(t, db, "admin@example.com", domain.RoleSuperAdmin)

	invite, err := svc.Create(context.Background(), CreateInviteInput{
		InviterID: admin.ID, InviterRole: domain.RoleSuperAdmin,
		Email: "op@example.com", Role: domain.RoleOperator,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := svc.Revoke(context.Background(), invite.ID, admin.ID, domain.RoleSuperAdmin); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	// revoking a revoked invite is a no-op success
	if err := svc.Revoke(context.Background(), invite.ID, admin.ID, domain.RoleSuperAdmin); err != nil {
		t.Fatalf("expected idempotent revoke, got %v", err)
	}
	if err := svc.Revoke(context.Background(), 999, admin.ID, domain.RoleSuperAdmin); !errors.Is(err, repository.ErrInviteNotFound) {
		t.Fatalf("expected ErrInviteNotFound, got %v", err)
	}

	token := tokenFromAcceptURL(t, mail.sent[0].AcceptURL)
	if _, err := svc.Accept(context.Background(), AcceptInviteInput{
		Token: token, FirstName: "New", LastName: "Operator", Password: "Strong#Pass123",
	}); !errors.Is(err, ErrInviteInvalid) {
		t.Fatalf("expected ErrInviteInvalid accepting revoked invite, got %v", err)
	}
}

func TestInviteServiceRevokeOwnership(t *testing.T) {
	svc, mail, db := newInviteServiceForTest(t)
	super := createDBUser(t, db, "root@example.com", domain.RoleSuperAdmin)
	admin := createDBUser(t, db, "admin@example.com", domain.RoleAdmin)

	invite, err := svc.Create(context.Background(), CreateInviteInput{
		InviterID: super.ID, InviterRole: domain.RoleSuperAdmin,
		Email: "op@example.com", Role: domain.RoleOperator,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	// a foreign invite reads as not found for an admin
	if err := svc.Revoke(context.Background(), invite.ID, admin.ID, domain.RoleAdmin); !errors.Is(err, repository.ErrInviteNotFound) {
		t.Fatalf("expected ErrInviteNotFound for foreign invite, got %v", err)
	}

	token := tokenFromAcceptURL(t, mail.sent[0].AcceptURL)
	if _, err := svc.Accept(context.Background(), AcceptInviteInput{
		Token: token, FirstName: "New", LastName: "Operator", Password: "Strong#Pass123",
	}); err != nil {
		t.Fatalf("accept: %v", err)
	}
	if err := svc.Revoke(context.Background(), invite.ID, super.ID, domain.RoleSuperAdmin); !errors.Is(err, ErrInviteResolved) {
		t.Fatalf("expected ErrInviteResolved revoking accepted invite, got %v", err)
	}
}

func TestInviteServiceListScopedByActor(t *testing.T) {
	svc, _, db := newInviteServiceForTest(t)
	super := createDBUser(t, db, "root@example.com", domain.RoleSuperAdmin)
	admin := createDBUser(t, db, "admin@example.com", domain.RoleAdmin)

	for _, in := range []CreateInviteInput{
		{InviterID: super.ID, InviterRole: domain.RoleSuperAdmin, Email: "a@example.com", Role: domain.RoleAdmin},
		{InviterID: admin.ID, InviterRole: domain.RoleAdmin, Email: "b@example.com", Role: domain.RoleOperator},
	} {
		if _, err := svc.Create(context.Background(), in); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	all, err := svc.ListPaged(context.Background(), repository.PageRequest{}, super.ID, domain.RoleSuperAdmin)
	if err != nil {
		t.Fatalf("list as super admin: %v", err)
	}
	if all.Total != 2 {
		t.Fatalf("expected 2 invites, got %d", all.Total)
	}

	own, err := svc.ListPaged(context.Background(), repository.PageRequest{}, admin.ID, domain.RoleAdmin)
	if err != nil {
		t.Fatalf("list as admin: %v", err)
	}
	if own.Total != 1 || own.Items[0].Email != "b@example.com" {
		t.Fatalf("admin listing not scoped to own invites: %+v", own)
	}
}
