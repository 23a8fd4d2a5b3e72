package repository

import (
	"testing"

	"github.com/charmops/charmops-backend/internal/domain"
)

func TestStatsRepositoryFindByUserDate(t *testing.T) {
	db := newRepositoryDBForTest(t)
	repo := NewStatsRepository(db)
	op := createTestUser(t, db, "op@example.com", domain.RoleOperator)

	stat := &domain.DailyStat{UserID: op.ID, Date: "2026-08-29", Replies: 42, AvgReplySec: 55, ReplyRatePct: 87}
	if err := db.Create(stat).Error; err != nil {
		t.Fatalf("create stat: %v", err)
	}

	found, err := repo.FindByUserDate(op.ID, "2026-08-29")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if found == nil || found.Replies != 42 {
		t.Fatalf("unexpected stat: %+v", found)
	}

	missing, err := repo.FindByUserDate(op.ID, "2026-08-28")
	if err != nil {
		t.Fatalf("find missing: %v", err)
	}
	if missing != nil {
		t.Fatalf("expected nil for missing date, got %+v", missing)
	}
}

func TestStatsRepositoryFindByUsersDate(t *testing.T) {
	db := newRepositoryDBForTest(t)
	repo := NewStatsRepository(db)
	op1 := createTestUser(t, db, "op1@example.com", domain.RoleOperator)
	op2 := createTestUser(t, db, "op2@example.com", domain.RoleOperator)

	if err := db.Create(&domain.DailyStat{UserID: op1.ID, Date: "2026-08-29", Replies: 10}).Error; err != nil {
		t.Fatalf("create stat: %v", err)
	}

	got, err := repo.FindByUsersDate([]uint{op1.ID, op2.ID}, "2026-08-29")
	if err != nil {
		t.Fatalf("find by users: %v", err)
	}
	if len(got) != 1 || got[op1.ID].Replies != 10 {
		t.Fatalf("unexpected stats map: %+v", got)
	}
}
