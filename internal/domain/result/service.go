package result

import (
	"context"
	"errors"
	"time"

	"productlogik/internal/domain/upload"
)

type UploadReader interface {
	GetByID(ctx context.Context, id string) (*upload.Upload, error)
}

type Service struct {
	results Repository
	uploads UploadReader
	now     func() time.Time
}

func NewService(results Repository, uploads UploadReader) *Service {
	return &Service{
		results: results,
		uploads: uploads,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Get returns the analysis for uploadID as seen by userID: the owner or a
// viewer holding an unexpired share.
func (s *Service) Get(ctx context.Context, uploadID string, userID int64) (*AnalysisView, error) {
	u, err := s.uploads.GetByID(ctx, uploadID)
	if err != nil {
		if errors.Is(err, upload.ErrUploadNotFound) {
			return nil, ErrUploadNotFound
		}
		return nil, err
	}
	if err := s.authorize(ctx, u, userID); err != nil {
		return nil, err
	}

	r, err := s.results.GetByUploadID(ctx, uploadID)
	if errors.Is(err, ErrResultNotFound) {
		return pendingView(u), nil
	}
	if err != nil {
		return nil, err
	}
	return toView(u, r), nil
}

func (s *Service) authorize(ctx context.Context, u *upload.Upload, userID int64) error {
	if u.UserID == userID {
		return nil
	}
	ok, err := s.results.HasActiveShare(ctx, u.ID, userID, s.now())
	if err != nil {
		return err
	}
	if !ok {
		return ErrForbidden
	}
	return nil
}
