// Package export defines the outbound ledger backup surface. The household
// keeps a spreadsheet copy of the ledger; SQLite stays the source of truth
// and the export is append-only and eventually consistent.
package export

import (
	"context"

	"contas/internal/core"
)

// TransactionAppender writes one ledger entry to the backup destination and
// returns an opaque row reference.
type TransactionAppender interface {
	Append(ctx context.Context, t core.Transaction) (rowRef string, err error)
}
