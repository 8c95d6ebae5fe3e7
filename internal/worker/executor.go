package worker

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"productlogik/internal/analysis"
	"productlogik/internal/database"
	"productlogik/internal/domain/result"
	"productlogik/internal/domain/upload"
)

type Analyzer interface {
	Analyze(ctx context.Context, texts []string) *analysis.Outcome
}

type QuotaConsumer interface {
	ConsumeTx(tx *gorm.DB, userID int64) error
}

// Executor runs the analysis job for one upload. The upload id is the
// idempotency key: a second run for the same upload is a no-op once a result
// exists, and a racing insert loses on the result's unique index.
type Executor struct {
	db    *gorm.DB
	chain Analyzer
	quota QuotaConsumer
	log   *zap.Logger
}

func NewExecutor(db *gorm.DB, chain Analyzer, quota QuotaConsumer) *Executor {
	return &Executor{
		db:    db,
		chain: chain,
		quota: quota,
		log:   zap.L().Named("worker"),
	}
}

func (e *Executor) session(ctx context.Context) *gorm.DB {
	return e.db.Session(&gorm.Session{NewDB: true, Context: ctx})
}

// Run never returns an error: every outcome ends up in the result store,
// or in the log when even the fallback write fails.
func (e *Executor) Run(ctx context.Context, uploadID string) {
	if ctx.Err() != nil {
		return
	}

	defer func() {
		if r := recover(); r != nil {
			e.log.Error("analysis job panicked", zap.String("upload_id", uploadID), zap.Any("panic", r), zap.Stack("stack"))
			e.RecordFailure(context.Background(), uploadID, fmt.Sprintf("internal error: %v", r))
		}
	}()

	err := e.run(ctx, uploadID)
	switch {
	case err == nil:
	case errors.Is(err, upload.ErrUploadNotFound):
		e.log.Warn("analysis job for unknown upload dropped", zap.String("upload_id", uploadID))
	case ctx.Err() != nil:
		// shutdown interrupted the job; startup recovery picks it up again
		e.log.Warn("analysis job interrupted", zap.String("upload_id", uploadID), zap.Error(err))
	default:
		e.log.Error("analysis job failed", zap.String("upload_id", uploadID), zap.Error(err))
		e.RecordFailure(context.Background(), uploadID, err.Error())
	}
}

func (e *Executor) run(ctx context.Context, uploadID string) error {
	db := e.session(ctx)
	uploads := upload.NewRepository(db)
	results := result.NewRepository(db)

	done, err := results.Exists(ctx, uploadID)
	if err != nil {
		return fmt.Errorf("check existing result: %w", err)
	}
	if done {
		e.log.Debug("analysis already recorded", zap.String("upload_id", uploadID))
		return nil
	}

	u, err := uploads.GetByID(ctx, uploadID)
	if err != nil {
		return err
	}
	entries, err := uploads.ListEntries(ctx, uploadID)
	if err != nil {
		return fmt.Errorf("load feedback entries: %w", err)
	}
	if err := uploads.UpdateStatus(ctx, uploadID, upload.StatusProcessing, nil); err != nil {
		return fmt.Errorf("mark upload processing: %w", err)
	}

	texts := make([]string, len(entries))
	for i, entry := range entries {
		texts[i] = entry.Content
	}
	outcome := e.chain.Analyze(ctx, texts)
	if err := ctx.Err(); err != nil {
		return err
	}

	res := result.FromOutcome(uploadID, outcome)
	status := upload.StatusCompleted
	if outcome.Failed() {
		status = upload.StatusFailed
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		if err := results.CreateTx(tx, res); err != nil {
			return err
		}
		if err := uploads.UpdateStatusTx(tx, uploadID, status, res.ErrorMessage); err != nil {
			return err
		}
		if outcome.Failed() {
			return nil
		}
		return e.quota.ConsumeTx(tx, u.UserID)
	})
	if database.IsUniqueViolation(err) {
		e.log.Info("analysis result already stored by another run", zap.String("upload_id", uploadID))
		return nil
	}
	if err != nil {
		return fmt.Errorf("store analysis result: %w", err)
	}

	e.log.Info("analysis stored",
		zap.String("upload_id", uploadID),
		zap.String("status", string(res.Status)),
		zap.String("model", res.ModelUsed),
		zap.Int("themes", len(res.Themes)),
		zap.Int64("processing_time_ms", res.ProcessingTimeMs),
	)
	return nil
}

// RecordFailure stores a failed result for uploadID unless one already
// exists. Errors are logged and swallowed.
func (e *Executor) RecordFailure(ctx context.Context, uploadID, msg string) {
	db := e.session(ctx)
	uploads := upload.NewRepository(db)
	results := result.NewRepository(db)

	exists, err := results.Exists(ctx, uploadID)
	if err != nil {
		e.log.Error("failure write skipped", zap.String("upload_id", uploadID), zap.Error(err))
		return
	}
	if exists {
		return
	}

	res := result.FromOutcome(uploadID, analysis.FailedOutcome(msg))
	err = db.Transaction(func(tx *gorm.DB) error {
		if err := results.CreateTx(tx, res); err != nil {
			return err
		}
		return uploads.UpdateStatusTx(tx, uploadID, upload.StatusFailed, res.ErrorMessage)
	})
	if err != nil && !database.IsUniqueViolation(err) {
		e.log.Error("failure write failed", zap.String("upload_id", uploadID), zap.Error(err))
	}
}

// Unfinished lists uploads left pending or processing without a result,
// oldest first.
func (e *Executor) Unfinished(ctx context.Context) ([]string, error) {
	db := e.session(ctx)
	ids, err := upload.NewRepository(db).ListIDsByStatus(ctx, upload.StatusPending, upload.StatusProcessing)
	if err != nil {
		return nil, err
	}

	results := result.NewRepository(db)
	out := ids[:0]
	for _, id := range ids {
		done, err := results.Exists(ctx, id)
		if err != nil {
			return nil, err
		}
		if !done {
			out = append(out, id)
		}
	}
	return out, nil
}
