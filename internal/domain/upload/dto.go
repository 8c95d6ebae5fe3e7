package upload

import "time"

type SubmitResponse struct {
	UploadID       string `json:"upload_id"`
	Filename       string `json:"filename"`
	RowCount       int    `json:"row_count"`
	Status         Status `json:"status"`
	FeedbackColumn string `json:"feedback_column"`
	SkippedBlank   int    `json:"skipped_blank"`
}

type ListItem struct {
	ID             string    `json:"id"`
	Filename       string    `json:"filename"`
	SizeBytes      int64     `json:"size_bytes"`
	RowCount       int       `json:"row_count"`
	Status         Status    `json:"status"`
	CreatedAt      time.Time `json:"created_at"`
	HasAnalysis    bool      `json:"has_analysis"`
	AnalysisStatus string    `json:"analysis_status,omitempty"`
	ThemeCount     int       `json:"theme_count"`
}
