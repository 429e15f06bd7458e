package sheets

import (
	"context"
	"fmt"

	"bearbudget/internal/core"
)

// Ports for outbound adapters.
type (
	// TransactionWriter appends one ledger row to an export sheet.
	TransactionWriter interface {
		AppendTransaction(ctx context.Context, tx core.Transaction) (rowRef string, err error)
	}
)

// Header is the column layout of the export sheet.
var Header = []any{"ID", "Date", "Description", "Amount", "Card", "Category", "Type", "Related account", "Notes"}

// Row renders tx in Header order. Amounts are written with two decimals so
// the sheet parses them as numbers.
func Row(tx core.Transaction) []any {
	id := ""
	if tx.HasID() {
		id = fmt.Sprint(tx.IDValue())
	}
	return []any{
		id,
		tx.Date,
		tx.Description,
		tx.Amount.StringFixed(2),
		tx.Card,
		tx.Category,
		string(tx.Type()),
		tx.RelatedAccount,
		tx.Notes,
	}
}
