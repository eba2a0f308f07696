package sheets

import (
	"context"

	"painel/internal/core"
)

// Ports for outbound adapters.
type (
	// TransactionSource returns the transaction sheet as raw text rows, header excluded.
	TransactionSource interface {
		ReadRows(ctx context.Context) ([]core.RawRow, error)
	}

	// RowWriter replaces the stored copy of the sheet in one step.
	RowWriter interface {
		ReplaceRows(ctx context.Context, rows []core.RawRow) error
	}

	// SettingsStore persists the simulation parameters between runs.
	SettingsStore interface {
		LoadSettings(ctx context.Context) (core.Settings, bool, error)
		SaveSettings(ctx context.Context, s core.Settings) error
	}
)
