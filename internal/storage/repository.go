package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"painel/internal/core"
	ports "painel/internal/sheets"

	_ "modernc.org/sqlite"
)

// Ensure interface conformance
var (
	_ ports.TransactionSource = (*SQLiteRepository)(nil)
	_ ports.RowWriter         = (*SQLiteRepository)(nil)
	_ ports.SettingsStore     = (*SQLiteRepository)(nil)
)

const timeLayout = time.RFC3339Nano

type SQLiteRepository struct {
	db *sql.DB
}

// SyncRun records one mirror refresh.
type SyncRun struct {
	ID         string
	Reason     string
	StartedAt  time.Time
	FinishedAt time.Time
	RowCount   int
	Error      string
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// ReadRows implements sheets.TransactionSource
func (r *SQLiteRepository) ReadRows(ctx context.Context) ([]core.RawRow, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT row_number, date_text, description, category, amount_text,
		       kind_text, installment_text, extra1, extra2
		FROM raw_rows ORDER BY row_number`)
	if err != nil {
		return nil, fmt.Errorf("query raw rows: %w", err)
	}
	defer rows.Close()

	var out []core.RawRow
	for rows.Next() {
		var rr core.RawRow
		if err := rows.Scan(&rr.Row, &rr.DateText, &rr.Description, &rr.Category, &rr.AmountText,
			&rr.KindText, &rr.InstallmentText, &rr.Extra1, &rr.Extra2); err != nil {
			return nil, fmt.Errorf("scan raw row: %w", err)
		}
		out = append(out, rr)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate raw rows: %w", err)
	}
	return out, nil
}

// ReplaceRows implements sheets.RowWriter. The old mirror is dropped and the
// new rows inserted in a single transaction.
func (r *SQLiteRepository) ReplaceRows(ctx context.Context, rows []core.RawRow) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM raw_rows`); err != nil {
		return fmt.Errorf("clear raw rows: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO raw_rows (row_number, date_text, description, category, amount_text,
		                      kind_text, installment_text, extra1, extra2)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, rr := range rows {
		// rows without a sheet position are numbered after the header
		n := rr.Row
		if n <= 0 {
			n = i + 2
		}
		if _, err := stmt.ExecContext(ctx, n, rr.DateText, rr.Description, rr.Category, rr.AmountText,
			rr.KindText, rr.InstallmentText, rr.Extra1, rr.Extra2); err != nil {
			return fmt.Errorf("insert row %d: %w", n, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit raw rows: %w", err)
	}

	slog.InfoContext(ctx, "Raw rows mirrored to SQLite", "rows", len(rows))
	return nil
}

// LoadSettings implements sheets.SettingsStore
func (r *SQLiteRepository) LoadSettings(ctx context.Context) (core.Settings, bool, error) {
	var s core.Settings
	err := r.db.QueryRowContext(ctx, `SELECT annual_rate, rate_achieved FROM settings WHERE id = 1`).
		Scan(&s.AnnualRate, &s.RateAchieved)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Settings{}, false, nil
	}
	if err != nil {
		return core.Settings{}, false, fmt.Errorf("load settings: %w", err)
	}
	return s, true, nil
}

// SaveSettings implements sheets.SettingsStore
func (r *SQLiteRepository) SaveSettings(ctx context.Context, s core.Settings) error {
	if err := s.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO settings (id, annual_rate, rate_achieved, updated_at) VALUES (1, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			annual_rate = excluded.annual_rate,
			rate_achieved = excluded.rate_achieved,
			updated_at = excluded.updated_at`,
		s.AnnualRate, s.RateAchieved, time.Now().UTC().Format(timeLayout))
	if err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	slog.InfoContext(ctx, "Settings saved", "annual_rate", s.AnnualRate, "rate_achieved", s.RateAchieved)
	return nil
}

// StartSyncRun opens a sync run record and returns its id.
func (r *SQLiteRepository) StartSyncRun(ctx context.Context, reason string) (string, error) {
	id := uuid.NewString()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO sync_runs (id, reason, started_at) VALUES (?, ?, ?)`,
		id, reason, time.Now().UTC().Format(timeLayout))
	if err != nil {
		return "", fmt.Errorf("start sync run: %w", err)
	}
	return id, nil
}

// FinishSyncRun closes a sync run with its outcome.
func (r *SQLiteRepository) FinishSyncRun(ctx context.Context, id string, rowCount int, syncErr error) error {
	errText := ""
	if syncErr != nil {
		errText = syncErr.Error()
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE sync_runs SET finished_at = ?, row_count = ?, error = ? WHERE id = ?`,
		time.Now().UTC().Format(timeLayout), rowCount, errText, id)
	if err != nil {
		return fmt.Errorf("finish sync run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("finish sync run: unknown id %s", id)
	}
	return nil
}

// LastSyncRun returns the most recently started run.
func (r *SQLiteRepository) LastSyncRun(ctx context.Context) (SyncRun, bool, error) {
	var (
		run        SyncRun
		startedAt  string
		finishedAt sql.NullString
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT id, reason, started_at, finished_at, row_count, error
		FROM sync_runs ORDER BY started_at DESC LIMIT 1`).
		Scan(&run.ID, &run.Reason, &startedAt, &finishedAt, &run.RowCount, &run.Error)
	if errors.Is(err, sql.ErrNoRows) {
		return SyncRun{}, false, nil
	}
	if err != nil {
		return SyncRun{}, false, fmt.Errorf("last sync run: %w", err)
	}
	run.StartedAt, _ = time.Parse(timeLayout, startedAt)
	if finishedAt.Valid {
		run.FinishedAt, _ = time.Parse(timeLayout, finishedAt.String)
	}
	return run, true, nil
}
