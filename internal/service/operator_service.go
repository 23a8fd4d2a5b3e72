package service

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/charmops/charmops-backend/internal/domain"
	"github.com/charmops/charmops-backend/internal/observability"
	"github.com/charmops/charmops-backend/internal/repository"
)

type OperatorRosterEntry struct {
	ID            uint       `json:"id"`
	Email         string     `json:"email"`
	FirstName     string     `json:"first_name"`
	LastName      string     `json:"last_name"`
	ProfilesCount int64      `json:"profiles_count"`
	Online        bool       `json:"online"`
	LastPing      *time.Time `json:"last_ping,omitempty"`
	Replies       int        `json:"replies"`
	AvgReplySec   int        `json:"avg_reply_sec"`
	ReplyRatePct  int        `json:"reply_rate_pct"`
}

type OperatorService struct {
	userRepo     repository.UserRepository
	profileRepo  repository.ProfileRepository
	presenceRepo repository.PresenceRepository
	statsRepo    repository.StatsRepository
	onlineWindow time.Duration
}

func NewOperatorService(
	userRepo repository.UserRepository,
	profileRepo repository.ProfileRepository,
	presenceRepo repository.PresenceRepository,
	statsRepo repository.StatsRepository,
	onlineWindow time.Duration,
) *OperatorService {
	return &OperatorService{
		userRepo:     userRepo,
		profileRepo:  profileRepo,
		presenceRepo: presenceRepo,
		statsRepo:    statsRepo,
		onlineWindow: onlineWindow,
	}
}

// Roster joins every operator with profile counts, presence and today's
// precomputed stats. The three lookups are independent, so they fan out
// concurrently once the operator list is in hand.
func (s *OperatorService) Roster(ctx context.Context, now time.Time) ([]OperatorRosterEntry, error) {
	start := time.Now()
	outcome := "success"
	defer func() { observability.RecordRosterRequestDuration(ctx, outcome, time.Since(start)) }()

	operators, err := s.userRepo.ListByRole(domain.RoleOperator)
	if err != nil {
		outcome = "error"
		return nil, err
	}
	ids := make([]uint, 0, len(operators))
	for _, op := range operators {
		ids = append(ids, op.ID)
	}

	var (
		counts   = make(map[uint]int64, len(ids))
		presence map[uint]time.Time
		stats    map[uint]domain.DailyStat
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		for _, id := range ids {
			if gctx.Err() != nil {
				return gctx.Err()
			}
			count, err := s.profileRepo.CountByOperator(id)
			if err != nil {
				return err
			}
			counts[id] = count
		}
		return nil
	})
	g.Go(func() error {
		var err error
		presence, err = s.presenceRepo.FindByUserIDs(ids)
		return err
	})
	g.Go(func() error {
		var err error
		stats, err = s.statsRepo.FindByUsersDate(ids, now.UTC().Format("2006-01-02"))
		return err
	})
	if err := g.Wait(); err != nil {
		outcome = "error"
		return nil, err
	}

	entries := make([]OperatorRosterEntry, 0, len(operators))
	for _, op := range operators {
		entry := OperatorRosterEntry{
			ID:            op.ID,
			Email:         op.Email,
			FirstName:     op.FirstName,
			LastName:      op.LastName,
			ProfilesCount: counts[op.ID],
		}
		if lastPing, ok := presence[op.ID]; ok {
			ping := lastPing
			entry.LastPing = &ping
			entry.Online = now.Sub(lastPing) <= s.onlineWindow
		}
		if stat, ok := stats[op.ID]; ok {
			entry.Replies = stat.Replies
			entry.AvgReplySec = stat.AvgReplySec
			entry.ReplyRatePct = stat.ReplyRatePct
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

type OperatorDetail struct {
	OperatorRosterEntry
	Profiles []domain.Profile `json:"profiles"`
	Activity []time.Time      `json:"activity"`
}

const detailActivityLimit = 20

// Detail expands one operator with assigned profiles and the most recent
// ping timestamps. Presence falls back to the activity log when no presence
// row exists yet.
func (s *OperatorService) Detail(ctx context.Context, id uint, now time.Time) (*OperatorDetail, error) {
	user, err := s.userRepo.FindByID(id)
	if err != nil {
		return nil, err
	}
	if user.Role != domain.RoleOperator {
		return nil, repository.ErrUserNotFound
	}

	profiles, err := s.profileRepo.ListByOperator(id)
	if err != nil {
		return nil, err
	}
	lastPing, err := s.presenceRepo.LastActivityAt(id)
	if err != nil {
		return nil, err
	}
	activity, err := s.presenceRepo.RecentActivity(id, detailActivityLimit)
	if err != nil {
		return nil, err
	}
	stat, err := s.statsRepo.FindByUserDate(id, now.UTC().Format("2006-01-02"))
	if err != nil {
		return nil, err
	}

	detail := &OperatorDetail{
		OperatorRosterEntry: OperatorRosterEntry{
			ID:            user.ID,
			Email:         user.Email,
			FirstName:     user.FirstName,
			LastName:      user.LastName,
			ProfilesCount: int64(len(profiles)),
			LastPing:      lastPing,
		},
		Profiles: profiles,
		Activity: activity,
	}
	if lastPing != nil {
		detail.Online = now.Sub(*lastPing) <= s.onlineWindow
	}
	if stat != nil {
		detail.Replies = stat.Replies
		detail.AvgReplySec = stat.AvgReplySec
		detail.ReplyRatePct = stat.ReplyRatePct
	}
	return detail, nil
}

func (s *OperatorService) PruneActivity(ctx context.Context, cutoff time.Time) (int64, error) {
	return s.presenceRepo.PruneActivityBefore(cutoff)
}
