package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"painel/internal/amqp"
	applog "painel/internal/log"
	ports "painel/internal/sheets"
)

// Mirror is the local copy of the spreadsheet the worker keeps current.
type Mirror interface {
	ports.RowWriter
	StartSyncRun(ctx context.Context, reason string) (string, error)
	FinishSyncRun(ctx context.Context, id string, rowCount int, syncErr error) error
}

// Reasons recorded on sync runs.
const (
	ReasonStartup = "startup"
	ReasonTicker  = "ticker"
)

// SyncWorker copies the transaction sheet into the SQLite mirror.
type SyncWorker struct {
	source ports.TransactionSource
	mirror Mirror
	logger *applog.Logger

	// one sync at a time; a message arriving during a tick waits
	mu sync.Mutex
}

func NewSyncWorker(source ports.TransactionSource, mirror Mirror, logger *applog.Logger) *SyncWorker {
	if logger == nil {
		logger = applog.Discard()
	}
	return &SyncWorker{
		source: source,
		mirror: mirror,
		logger: logger.WithComponent(applog.ComponentWorker),
	}
}

// Sync reads the sheet and replaces the mirror. The run is recorded with
// its outcome either way. A failed read leaves the previous mirror intact.
func (w *SyncWorker) Sync(ctx context.Context, reason string) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	start := time.Now()
	runID, err := w.mirror.StartSyncRun(ctx, reason)
	if err != nil {
		return 0, fmt.Errorf("start sync run: %w", err)
	}
	logger := w.logger.With(applog.FieldSyncRunID, runID, applog.FieldReason, reason)

	rows, syncErr := w.source.ReadRows(ctx)
	if syncErr != nil {
		syncErr = fmt.Errorf("read sheet: %w", syncErr)
	} else if err := w.mirror.ReplaceRows(ctx, rows); err != nil {
		syncErr = fmt.Errorf("replace mirror: %w", err)
	}

	count := len(rows)
	if syncErr != nil {
		count = 0
	}

	// record the outcome even if ctx was cancelled mid-sync
	finishCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := w.mirror.FinishSyncRun(finishCtx, runID, count, syncErr); err != nil {
		logger.ErrorContext(ctx, "Failed to record sync run", applog.FieldError, err)
		syncErr = errors.Join(syncErr, err)
	}

	if syncErr != nil {
		logger.ErrorContext(ctx, "Sync failed",
			applog.FieldError, syncErr,
			applog.FieldOperation, applog.OpSync)
		return 0, syncErr
	}

	logger.InfoContext(ctx, "Sync completed",
		applog.FieldRows, count,
		applog.FieldDuration, time.Since(start).Milliseconds(),
		applog.FieldOperation, applog.OpSync)
	return count, nil
}

// HandleRefreshMessage processes a refresh request from AMQP. Returning an
// error is logged by the consumer and retried by the next periodic sync.
func (w *SyncWorker) HandleRefreshMessage(ctx context.Context, msg *amqp.RefreshMessage) error {
	w.logger.InfoContext(ctx, "Processing refresh message",
		applog.FieldMessageID, msg.ID,
		applog.FieldReason, msg.Reason)

	reason := msg.Reason
	if reason == "" {
		reason = "message"
	}
	_, err := w.Sync(ctx, reason)
	return err
}

// RunPeriodic syncs every interval until ctx is done. Failures are logged
// and retried on the next tick.
func (w *SyncWorker) RunPeriodic(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.InfoContext(ctx, "Periodic sync stopped")
			return
		case <-ticker.C:
			_, _ = w.Sync(ctx, ReasonTicker)
		}
	}
}

// StartupSync fills the mirror once before the worker starts listening.
func (w *SyncWorker) StartupSync(ctx context.Context) error {
	if _, err := w.Sync(ctx, ReasonStartup); err != nil {
		return fmt.Errorf("startup sync: %w", err)
	}
	return nil
}
