// Package backend selects the ledger export backend from configuration.
package backend

import (
	"context"
	"fmt"
	"log/slog"

	"contas/internal/config"
	"contas/internal/export"
	"contas/internal/export/google"
	"contas/internal/export/memory"
)

const (
	None   = "none"
	Memory = "memory"
	Sheets = "sheets"
)

// New builds the export backend named by cfg.ExportBackend. The "none"
// backend returns nil; callers skip export wiring entirely in that case.
func New(ctx context.Context, cfg *config.Config) (export.TransactionAppender, error) {
	switch cfg.ExportBackend {
	case None, "":
		slog.Info("Ledger export disabled")
		return nil, nil
	case Memory:
		slog.Info("Using in-memory export backend")
		return memory.New(), nil
	case Sheets:
		client, err := google.New(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("initialize sheets export: %w", err)
		}
		slog.Info("Using Google Sheets export backend",
			"spreadsheet_id", cfg.GoogleSpreadsheetID,
			"sheet", cfg.GoogleSheetName)
		return client, nil
	default:
		return nil, fmt.Errorf("unknown export backend %q", cfg.ExportBackend)
	}
}
