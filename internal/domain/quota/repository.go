package quota

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Repository interface {
	Get(ctx context.Context, userID int64) (*UsageQuota, error)
	// CreateIfMissing inserts q unless the user already has a quota row.
	CreateIfMissing(ctx context.Context, q *UsageQuota) error
	// ResetIfDue zeroes usage when reset_at is at or before now.
	ResetIfDue(ctx context.Context, userID int64, now time.Time) (bool, error)
	IncrementTx(tx *gorm.DB, userID int64) (bool, error)
	UpsertPlan(ctx context.Context, q *UsageQuota) error
	ResetUsage(ctx context.Context, now time.Time, onlyDue bool) (int64, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Get(ctx context.Context, userID int64) (*UsageQuota, error) {
	var q UsageQuota
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&q).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &q, nil
}

func (r *repository) CreateIfMissing(ctx context.Context, q *UsageQuota) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "user_id"}}, DoNothing: true}).
		Create(q).Error
}

func (r *repository) ResetIfDue(ctx context.Context, userID int64, now time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Model(&UsageQuota{}).
		Where("user_id = ? AND reset_at <= ?", userID, now).
		Updates(map[string]any{
			"analyses_used": 0,
			"reset_at":      nextReset(now),
			"updated_at":    now,
		})
	return res.RowsAffected > 0, res.Error
}

// IncrementTx runs on the caller's transaction so usage moves together with
// the analysis result write.
func (r *repository) IncrementTx(tx *gorm.DB, userID int64) (bool, error) {
	res := tx.Model(&UsageQuota{}).
		Where("user_id = ?", userID).
		Updates(map[string]any{
			"analyses_used": gorm.Expr("analyses_used + 1"),
			"updated_at":    time.Now().UTC(),
		})
	return res.RowsAffected > 0, res.Error
}

func (r *repository) UpsertPlan(ctx context.Context, q *UsageQuota) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"plan_tier", "analyses_limit", "updated_at"}),
		}).
		Create(q).Error
}

func (r *repository) ResetUsage(ctx context.Context, now time.Time, onlyDue bool) (int64, error) {
	q := r.db.WithContext(ctx).Model(&UsageQuota{})
	if onlyDue {
		q = q.Where("reset_at <= ?", now)
	} else {
		q = q.Where("1 = 1")
	}
	res := q.Updates(map[string]any{
		"analyses_used": 0,
		"reset_at":      nextReset(now),
		"updated_at":    now,
	})
	return res.RowsAffected, res.Error
}
