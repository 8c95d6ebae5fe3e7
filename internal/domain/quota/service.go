package quota

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Service is the quota gate. Checks happen before an upload is accepted;
// consumption happens only inside the analysis result transaction.
type Service struct {
	repo    Repository
	catalog *Catalog
	now     func() time.Time
	log     *zap.Logger
}

func NewService(repo Repository, catalog *Catalog) *Service {
	return &Service{
		repo:    repo,
		catalog: catalog,
		now:     func() time.Time { return time.Now().UTC() },
		log:     zap.L().Named("quota"),
	}
}

// Usage returns the caller's quota, creating the default plan row on first
// use and rolling the period forward when reset_at has passed.
func (s *Service) Usage(ctx context.Context, userID int64) (*UsageQuota, error) {
	now := s.now()

	q, err := s.repo.Get(ctx, userID)
	if errors.Is(err, ErrNotFound) {
		plan := s.catalog.DefaultPlan()
		if err := s.repo.CreateIfMissing(ctx, &UsageQuota{
			UserID:        userID,
			PlanTier:      plan.Tier,
			AnalysesLimit: plan.AnalysesLimit,
			ResetAt:       nextReset(now),
		}); err != nil {
			return nil, fmt.Errorf("create quota: %w", err)
		}
		q, err = s.repo.Get(ctx, userID)
	}
	if err != nil {
		return nil, err
	}

	if !q.ResetAt.After(now) {
		reset, err := s.repo.ResetIfDue(ctx, userID, now)
		if err != nil {
			return nil, fmt.Errorf("reset quota period: %w", err)
		}
		if reset {
			s.log.Info("quota period reset", zap.Int64("user_id", userID))
			return s.repo.Get(ctx, userID)
		}
	}
	return q, nil
}

// Check returns a *LimitError wrapping ErrQuotaExceeded when the caller
// cannot start another analysis.
func (s *Service) Check(ctx context.Context, userID int64) error {
	q, err := s.Usage(ctx, userID)
	if err != nil {
		return err
	}
	if !q.Exhausted() {
		return nil
	}

	upgradeTo := ""
	planName := q.PlanTier
	if plan, err := s.catalog.Get(q.PlanTier); err == nil {
		planName = plan.Name
		upgradeTo = plan.UpgradeTo
	}
	return &LimitError{
		Err:       ErrQuotaExceeded,
		Current:   q.AnalysesUsed,
		Limit:     q.AnalysesLimit,
		PlanName:  planName,
		UpgradeTo: upgradeTo,
	}
}

// ConsumeTx records one successful analysis on tx. A user without a quota
// row (it is created lazily on first upload) gets one created in place.
func (s *Service) ConsumeTx(tx *gorm.DB, userID int64) error {
	ok, err := s.repo.IncrementTx(tx, userID)
	if err != nil {
		return fmt.Errorf("increment quota: %w", err)
	}
	if ok {
		return nil
	}

	plan := s.catalog.DefaultPlan()
	return tx.Create(&UsageQuota{
		UserID:        userID,
		PlanTier:      plan.Tier,
		AnalysesLimit: plan.AnalysesLimit,
		AnalysesUsed:  1,
		ResetAt:       nextReset(s.now()),
	}).Error
}

// SetPlan is how billing moves a user between tiers. Usage is kept.
func (s *Service) SetPlan(ctx context.Context, userID int64, tier string) (*UsageQuota, error) {
	plan, err := s.catalog.Get(tier)
	if err != nil {
		return nil, err
	}
	now := s.now()
	if err := s.repo.UpsertPlan(ctx, &UsageQuota{
		UserID:        userID,
		PlanTier:      plan.Tier,
		AnalysesLimit: plan.AnalysesLimit,
		ResetAt:       nextReset(now),
		UpdatedAt:     now,
	}); err != nil {
		return nil, fmt.Errorf("set plan: %w", err)
	}
	return s.repo.Get(ctx, userID)
}

// ResetUsage zeroes usage for quotas whose period ended, or for every quota
// when onlyDue is false.
func (s *Service) ResetUsage(ctx context.Context, onlyDue bool) (int64, error) {
	return s.repo.ResetUsage(ctx, s.now(), onlyDue)
}

func (s *Service) Catalog() *Catalog { return s.catalog }
