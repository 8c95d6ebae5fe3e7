package upload

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

const entryBatchSize = 500

type Repository interface {
	// CreateWithEntries persists the upload and all of its entries atomically.
	CreateWithEntries(ctx context.Context, u *Upload, entries []FeedbackEntry) error
	GetByID(ctx context.Context, id string) (*Upload, error)
	ListByUserID(ctx context.Context, userID int64, limit int) ([]*Upload, error)
	ListEntries(ctx context.Context, uploadID string) ([]FeedbackEntry, error)
	ListIDsByStatus(ctx context.Context, statuses ...Status) ([]string, error)
	UpdateStatus(ctx context.Context, id string, status Status, errMsg *string) error
	UpdateStatusTx(tx *gorm.DB, id string, status Status, errMsg *string) error
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) CreateWithEntries(ctx context.Context, u *Upload, entries []FeedbackEntry) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Owner", "Entries").Create(u).Error; err != nil {
			return err
		}
		if len(entries) == 0 {
			return nil
		}
		return tx.CreateInBatches(entries, entryBatchSize).Error
	})
}

func (r *repository) GetByID(ctx context.Context, id string) (*Upload, error) {
	var u Upload
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUploadNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *repository) ListByUserID(ctx context.Context, userID int64, limit int) ([]*Upload, error) {
	var uploads []*Upload
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&uploads).Error
	return uploads, err
}

func (r *repository) ListEntries(ctx context.Context, uploadID string) ([]FeedbackEntry, error) {
	var entries []FeedbackEntry
	err := r.db.WithContext(ctx).
		Where("upload_id = ?", uploadID).
		Order("position ASC").
		Find(&entries).Error
	return entries, err
}

func (r *repository) ListIDsByStatus(ctx context.Context, statuses ...Status) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).Model(&Upload{}).
		Where("status IN ?", statuses).
		Order("created_at ASC").
		Pluck("id", &ids).Error
	return ids, err
}

func (r *repository) UpdateStatus(ctx context.Context, id string, status Status, errMsg *string) error {
	return r.UpdateStatusTx(r.db.WithContext(ctx), id, status, errMsg)
}

func (r *repository) UpdateStatusTx(tx *gorm.DB, id string, status Status, errMsg *string) error {
	return tx.Model(&Upload{}).Where("id = ?", id).Updates(map[string]any{
		"status":        status,
		"error_message": errMsg,
	}).Error
}
