package repository

import (
	"testing"
	"time"

	"github.com/charmops/charmops-backend/internal/domain"
)

func TestSessionRepositoryLifecycle(t *testing.T) {
	db := newRepositoryDBForTest(t)
	repo := NewSessionRepository(db)
	op := createTestUser(t, db, "op@example.com", domain.RoleOperator)
	now := time.Now()

	s := &domain.Session{
		UserID:           op.ID,
		RefreshTokenHash: "hash-1",
		ExpiresAt:        now.Add(time.Hour),
	}
	if err := repo.Create(s); err != nil {
		t.Fatalf("create: %v", err)
	}

	found, err := repo.FindValidByHash("hash-1", now)
	if err != nil {
		t.Fatalf("find valid: %v", err)
	}
	if found.UserID != op.ID {
		t.Fatalf("unexpected session: %+v", found)
	}

	if err := repo.RevokeByHash("hash-1", now); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if _, err := repo.FindValidByHash("hash-1", now); err == nil {
		t.Fatal("revoked session still valid")
	}
}

func TestSessionRepositoryRevokeByUserAndCleanup(t *testing.T) {
	db := newRepositoryDBForTest(t)
	repo := NewSessionRepository(db)
	op := createTestUser(t, db, "op@example.com", domain.RoleOperator)
	now := time.Now()

	live := &domain.Session{UserID: op.ID, RefreshTokenHash: "hash-live", ExpiresAt: now.Add(time.Hour)}
	dead := &domain.Session{UserID: op.ID, RefreshTokenHash: "hash-dead", ExpiresAt: now.Add(-time.Hour)}
	for _, s := range []*domain.Session{live, dead} {
		if err := repo.Create(s); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	if err := repo.RevokeByUserID(op.ID, now); err != nil {
		t.Fatalf("revoke by user: %v", err)
	}
	if _, err := repo.FindValidByHash("hash-live", now); err == nil {
		t.Fatal("session survived user-wide revoke")
	}

	removed, err := repo.CleanupExpired(now)
	if err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 expired session removed, got %d", removed)
	}
}
