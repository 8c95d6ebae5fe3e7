package result

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"productlogik/internal/domain/upload"
)

type Repository interface {
	CreateTx(tx *gorm.DB, r *AnalysisResult) error
	GetByUploadID(ctx context.Context, uploadID string) (*AnalysisResult, error)
	Exists(ctx context.Context, uploadID string) (bool, error)
	Summaries(ctx context.Context, uploadIDs []string) (map[string]upload.AnalysisSummary, error)
	HasActiveShare(ctx context.Context, uploadID string, userID int64, now time.Time) (bool, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

// CreateTx inserts on the caller's transaction. A unique violation means
// another writer already stored the result for this upload.
func (r *repository) CreateTx(tx *gorm.DB, res *AnalysisResult) error {
	return tx.Omit("Upload").Create(res).Error
}

func (r *repository) GetByUploadID(ctx context.Context, uploadID string) (*AnalysisResult, error) {
	var res AnalysisResult
	err := r.db.WithContext(ctx).Where("upload_id = ?", uploadID).First(&res).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrResultNotFound
	}
	if err != nil {
		return nil, err
	}
	return &res, nil
}

func (r *repository) Exists(ctx context.Context, uploadID string) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&AnalysisResult{}).Where("upload_id = ?", uploadID).Count(&n).Error
	return n > 0, err
}

func (r *repository) Summaries(ctx context.Context, uploadIDs []string) (map[string]upload.AnalysisSummary, error) {
	out := make(map[string]upload.AnalysisSummary, len(uploadIDs))
	if len(uploadIDs) == 0 {
		return out, nil
	}

	var rows []AnalysisResult
	err := r.db.WithContext(ctx).
		Select("upload_id", "status", "themes").
		Where("upload_id IN ?", uploadIDs).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.UploadID] = upload.AnalysisSummary{
			Status:     string(row.Status),
			ThemeCount: len(row.Themes),
		}
	}
	return out, nil
}

func (r *repository) HasActiveShare(ctx context.Context, uploadID string, userID int64, now time.Time) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&UploadShare{}).
		Where("upload_id = ? AND shared_with_user_id = ?", uploadID, userID).
		Where("(expires_at IS NULL OR expires_at > ?)", now).
		Count(&n).Error
	return n > 0, err
}
