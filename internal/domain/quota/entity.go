package quota

import (
	"time"

	"productlogik/internal/domain/auth"
)

// Unlimited is the analyses_limit value that disables the gate.
const Unlimited = -1

type UsageQuota struct {
	UserID        int64     `gorm:"column:user_id;primaryKey;autoIncrement:false" json:"user_id"`
	PlanTier      string    `gorm:"column:plan_tier;not null;default:demo" json:"plan_tier"`
	AnalysesLimit int       `gorm:"column:analyses_limit;not null;default:3" json:"analyses_limit"`
	AnalysesUsed  int       `gorm:"column:analyses_used;not null;default:0" json:"analyses_used"`
	ResetAt       time.Time `gorm:"column:reset_at;not null" json:"reset_at"`
	CreatedAt     time.Time `gorm:"column:created_at" json:"-"`
	UpdatedAt     time.Time `gorm:"column:updated_at" json:"-"`

	User *auth.User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
}

func (UsageQuota) TableName() string { return "usage_quotas" }

func (q *UsageQuota) IsUnlimited() bool { return q.AnalysesLimit == Unlimited }

func (q *UsageQuota) Exhausted() bool {
	return !q.IsUnlimited() && q.AnalysesUsed >= q.AnalysesLimit
}

// Remaining returns -1 for unlimited plans.
func (q *UsageQuota) Remaining() int {
	if q.IsUnlimited() {
		return Unlimited
	}
	if r := q.AnalysesLimit - q.AnalysesUsed; r > 0 {
		return r
	}
	return 0
}

func nextReset(from time.Time) time.Time {
	return from.AddDate(0, 1, 0)
}
