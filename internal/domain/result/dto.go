package result

import (
	"encoding/json"
	"time"

	"productlogik/internal/analysis"
	"productlogik/internal/domain/upload"
)

// AnalysisView is the read payload for one upload. While no result exists it
// carries status pending and empty analysis fields.
type AnalysisView struct {
	UploadID         string           `json:"upload_id"`
	Filename         string           `json:"filename"`
	RowCount         int              `json:"row_count"`
	Status           Status           `json:"status"`
	Themes           []analysis.Theme `json:"themes"`
	ExecutiveSummary string           `json:"executive_summary"`
	ConfidenceScore  float64          `json:"confidence_score"`
	ProcessingTimeMs int64            `json:"processing_time_ms"`
	AgileRisks       json.RawMessage  `json:"agile_risks"`
	ModelUsed        string           `json:"model_used,omitempty"`
	FeedbackCount    int              `json:"feedback_count"`
	FeedbackAnalyzed int              `json:"feedback_analyzed"`
	Error            *string          `json:"error"`
	CreatedAt        *time.Time       `json:"created_at"`
	HasThemes        bool             `json:"has_themes"`
}

func (v *AnalysisView) Terminal() bool {
	return v.Status == StatusCompleted || v.Status == StatusFailed
}

func pendingView(u *upload.Upload) *AnalysisView {
	return &AnalysisView{
		UploadID:   u.ID,
		Filename:   u.Filename,
		RowCount:   u.RowCount,
		Status:     StatusPending,
		Themes:     []analysis.Theme{},
		AgileRisks: json.RawMessage("null"),
	}
}

func toView(u *upload.Upload, r *AnalysisResult) *AnalysisView {
	v := pendingView(u)
	v.Status = r.Status
	if len(r.Themes) > 0 {
		v.Themes = r.Themes
	}
	v.ExecutiveSummary = r.ExecutiveSummary
	v.ConfidenceScore = r.ConfidenceScore
	v.ProcessingTimeMs = r.ProcessingTimeMs
	if len(r.AgileRisks) > 0 {
		v.AgileRisks = json.RawMessage(r.AgileRisks)
	}
	v.ModelUsed = r.ModelUsed
	v.FeedbackCount = r.FeedbackCount
	v.FeedbackAnalyzed = r.FeedbackAnalyzed
	v.Error = r.ErrorMessage
	created := r.CreatedAt
	v.CreatedAt = &created
	v.HasThemes = len(r.Themes) > 0
	return v
}
