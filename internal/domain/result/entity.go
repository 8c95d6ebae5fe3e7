package result

import (
	"time"

	"gorm.io/datatypes"

	"productlogik/internal/analysis"
	"productlogik/internal/domain/auth"
	"productlogik/internal/domain/upload"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// AnalysisResult is written exactly once per upload; the unique index on
// upload_id is what makes the background job idempotent.
type AnalysisResult struct {
	ID               int64                                 `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	UploadID         string                                `gorm:"column:upload_id;not null;uniqueIndex:idx_analysis_results_upload" json:"upload_id"`
	Status           Status                                `gorm:"column:status;not null" json:"status"`
	Themes           datatypes.JSONSlice[analysis.Theme]   `gorm:"column:themes" json:"themes"`
	AgileRisks       datatypes.JSON                        `gorm:"column:agile_risks" json:"agile_risks,omitempty"`
	ExecutiveSummary string                                `gorm:"column:executive_summary;not null;default:''" json:"executive_summary"`
	ConfidenceScore  float64                               `gorm:"column:confidence_score;not null;default:0" json:"confidence_score"`
	ProcessingTimeMs int64                                 `gorm:"column:processing_time_ms;not null;default:0" json:"processing_time_ms"`
	ModelUsed        string                                `gorm:"column:model_used;not null;default:''" json:"model_used"`
	FeedbackCount    int                                   `gorm:"column:feedback_count;not null;default:0" json:"feedback_count"`
	FeedbackAnalyzed int                                   `gorm:"column:feedback_analyzed;not null;default:0" json:"feedback_analyzed"`
	Attempts         datatypes.JSONSlice[analysis.Attempt] `gorm:"column:attempts" json:"-"`
	ErrorMessage     *string                               `gorm:"column:error_message" json:"error_message,omitempty"`
	CreatedAt        time.Time                             `gorm:"column:created_at" json:"created_at"`

	Upload *upload.Upload `gorm:"foreignKey:UploadID;constraint:OnDelete:CASCADE" json:"-"`
}

func (AnalysisResult) TableName() string { return "analysis_results" }

// FromOutcome maps a chain outcome onto the row that will be stored for it.
func FromOutcome(uploadID string, o *analysis.Outcome) *AnalysisResult {
	themes := o.Themes
	if themes == nil {
		themes = []analysis.Theme{}
	}
	attempts := o.Attempts
	if attempts == nil {
		attempts = []analysis.Attempt{}
	}

	r := &AnalysisResult{
		UploadID:         uploadID,
		Status:           StatusCompleted,
		Themes:           themes,
		ExecutiveSummary: o.ExecutiveSummary,
		ConfidenceScore:  o.ConfidenceScore,
		ProcessingTimeMs: o.ProcessingTime.Milliseconds(),
		ModelUsed:        o.ModelUsed,
		FeedbackCount:    o.FeedbackCount,
		FeedbackAnalyzed: o.FeedbackAnalyzed,
		Attempts:         attempts,
	}
	if len(o.AgileRisks) > 0 {
		r.AgileRisks = datatypes.JSON(o.AgileRisks)
	}
	if o.Failed() {
		msg := o.Error
		r.Status = StatusFailed
		r.ErrorMessage = &msg
		r.Themes = []analysis.Theme{}
		r.ConfidenceScore = 0
	}
	return r
}

// UploadShare grants a second user read access to an upload's result.
// Shares are created and revoked elsewhere; this service only reads them.
type UploadShare struct {
	ID               int64      `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	UploadID         string     `gorm:"column:upload_id;not null;uniqueIndex:idx_upload_shares_pair,priority:1" json:"upload_id"`
	OwnerID          int64      `gorm:"column:owner_id;not null" json:"owner_id"`
	SharedWithUserID int64      `gorm:"column:shared_with_user_id;not null;uniqueIndex:idx_upload_shares_pair,priority:2" json:"shared_with_user_id"`
	ExpiresAt        *time.Time `gorm:"column:expires_at" json:"expires_at,omitempty"`
	CreatedAt        time.Time  `gorm:"column:created_at" json:"created_at"`

	Upload     *upload.Upload `gorm:"foreignKey:UploadID;constraint:OnDelete:CASCADE" json:"-"`
	SharedWith *auth.User     `gorm:"foreignKey:SharedWithUserID;constraint:OnDelete:CASCADE" json:"-"`
}

func (UploadShare) TableName() string { return "upload_shares" }

func (s *UploadShare) Active(now time.Time) bool {
	return s.ExpiresAt == nil || s.ExpiresAt.After(now)
}
