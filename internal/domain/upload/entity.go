package upload

import (
	"time"

	"gorm.io/datatypes"

	"productlogik/internal/domain/auth"
	"productlogik/internal/tabular"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Upload is one accepted feedback file. RowCount is the number of persisted
// entries, not the number of data rows in the file.
type Upload struct {
	ID           string    `gorm:"column:id;primaryKey" json:"id"`
	UserID       int64     `gorm:"column:user_id;not null;index:idx_uploads_user_created,priority:1" json:"user_id"`
	Filename     string    `gorm:"column:filename;not null" json:"filename"`
	SizeBytes    int64     `gorm:"column:size_bytes;not null;default:0" json:"size_bytes"`
	RowCount     int       `gorm:"column:row_count;not null;default:0" json:"row_count"`
	Status       Status    `gorm:"column:status;not null;default:pending;index" json:"status"`
	ErrorMessage *string   `gorm:"column:error_message" json:"error_message,omitempty"`
	CreatedAt    time.Time `gorm:"column:created_at;index:idx_uploads_user_created,priority:2" json:"created_at"`

	Owner   *auth.User      `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	Entries []FeedbackEntry `gorm:"foreignKey:UploadID;constraint:OnDelete:CASCADE" json:"-"`
}

func (Upload) TableName() string { return "uploads" }

// FeedbackEntry is immutable once written.
type FeedbackEntry struct {
	ID        int64                                `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	UploadID  string                               `gorm:"column:upload_id;not null;index:idx_feedback_entries_upload,priority:1" json:"upload_id"`
	Position  int                                  `gorm:"column:position;not null;default:0;index:idx_feedback_entries_upload,priority:2" json:"position"`
	Content   string                               `gorm:"column:content;not null" json:"content"`
	Source    *string                              `gorm:"column:source" json:"source,omitempty"`
	Metadata  datatypes.JSONType[tabular.Metadata] `gorm:"column:metadata" json:"metadata"`
	CreatedAt time.Time                            `gorm:"column:created_at" json:"created_at"`
}

func (FeedbackEntry) TableName() string { return "feedback_entries" }
