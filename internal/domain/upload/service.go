package upload

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"productlogik/internal/tabular"
)

const listLimit = 50

// QuotaGate rejects submissions from users who cannot start another analysis.
type QuotaGate interface {
	Check(ctx context.Context, userID int64) error
}

// JobQueue hands an accepted upload to the background executor.
type JobQueue interface {
	Enqueue(ctx context.Context, uploadID string) error
}

type AnalysisSummary struct {
	Status     string
	ThemeCount int
}

// SummaryReader reports which uploads already have an analysis result.
type SummaryReader interface {
	Summaries(ctx context.Context, uploadIDs []string) (map[string]AnalysisSummary, error)
}

type Service struct {
	repo      Repository
	quota     QuotaGate
	jobs      JobQueue
	summaries SummaryReader
	limits    tabular.Limits
	log       *zap.Logger
}

type SubmitResult struct {
	Upload         *Upload
	FeedbackColumn string
	SkippedBlank   int
}

func NewService(repo Repository, quota QuotaGate, jobs JobQueue, summaries SummaryReader, limits tabular.Limits) *Service {
	if limits.MaxBytes <= 0 {
		limits.MaxBytes = tabular.DefaultMaxBytes
	}
	if limits.MaxRows <= 0 {
		limits.MaxRows = tabular.DefaultMaxRows
	}
	return &Service{
		repo:      repo,
		quota:     quota,
		jobs:      jobs,
		summaries: summaries,
		limits:    limits,
		log:       zap.L().Named("upload"),
	}
}

func (s *Service) MaxBytes() int64 { return s.limits.MaxBytes }

// Submit validates and persists a feedback file, then queues its analysis.
// Nothing is written when any check fails.
func (s *Service) Submit(ctx context.Context, userID int64, filename string, r io.Reader) (*SubmitResult, error) {
	if err := s.quota.Check(ctx, userID); err != nil {
		return nil, err
	}

	filename = filepath.Base(strings.TrimSpace(filename))
	if !strings.EqualFold(filepath.Ext(filename), ".csv") {
		return nil, ErrNotCSV
	}

	data, err := io.ReadAll(io.LimitReader(r, s.limits.MaxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	parsed, err := tabular.Parse(data, s.limits)
	if err != nil {
		return nil, err
	}
	if len(parsed.Records) == 0 {
		return nil, tabular.ErrEmpty
	}

	u := &Upload{
		ID:        uuid.NewString(),
		UserID:    userID,
		Filename:  filename,
		SizeBytes: int64(len(data)),
		RowCount:  len(parsed.Records),
		Status:    StatusPending,
	}
	entries := make([]FeedbackEntry, 0, len(parsed.Records))
	for i, rec := range parsed.Records {
		e := FeedbackEntry{
			UploadID: u.ID,
			Position: i,
			Content:  rec.Text,
			Metadata: datatypes.NewJSONType(rec.Metadata),
		}
		if rec.Source != "" {
			src := rec.Source
			e.Source = &src
		}
		entries = append(entries, e)
	}

	if err := s.repo.CreateWithEntries(ctx, u, entries); err != nil {
		return nil, fmt.Errorf("persist upload: %w", err)
	}

	if err := s.jobs.Enqueue(ctx, u.ID); err != nil {
		// The queue records a failed result itself when it rejects a job.
		s.log.Warn("analysis job not queued", zap.String("upload_id", u.ID), zap.Error(err))
		if fresh, getErr := s.repo.GetByID(ctx, u.ID); getErr == nil {
			u = fresh
		}
	}

	s.log.Info("upload accepted",
		zap.String("upload_id", u.ID),
		zap.Int64("user_id", userID),
		zap.Int("entries", len(entries)),
		zap.String("column", parsed.Column),
	)
	return &SubmitResult{Upload: u, FeedbackColumn: parsed.Column, SkippedBlank: parsed.SkippedBlank}, nil
}

// List returns the caller's most recent uploads with their analysis state.
func (s *Service) List(ctx context.Context, userID int64) ([]ListItem, error) {
	uploads, err := s.repo.ListByUserID(ctx, userID, listLimit)
	if err != nil {
		return nil, err
	}

	ids := make([]string, len(uploads))
	for i, u := range uploads {
		ids[i] = u.ID
	}
	summaries := map[string]AnalysisSummary{}
	if s.summaries != nil && len(ids) > 0 {
		if summaries, err = s.summaries.Summaries(ctx, ids); err != nil {
			return nil, err
		}
	}

	items := make([]ListItem, 0, len(uploads))
	for _, u := range uploads {
		item := ListItem{
			ID:        u.ID,
			Filename:  u.Filename,
			SizeBytes: u.SizeBytes,
			RowCount:  u.RowCount,
			Status:    u.Status,
			CreatedAt: u.CreatedAt,
		}
		if sum, ok := summaries[u.ID]; ok {
			item.HasAnalysis = true
			item.AnalysisStatus = sum.Status
			item.ThemeCount = sum.ThemeCount
		}
		items = append(items, item)
	}
	return items, nil
}

// Get returns an upload owned by userID.
func (s *Service) Get(ctx context.Context, userID int64, id string) (*Upload, error) {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if u.UserID != userID {
		return nil, ErrNotOwner
	}
	return u, nil
}
