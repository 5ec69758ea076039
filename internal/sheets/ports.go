// Package sheets defines the spreadsheet export port the worker writes
// registered transactions through.
package sheets

import (
	"context"
	"time"

	"gofinances/internal/core"
)

// Header is the first row of the export sheet.
var Header = []any{"ID", "Data", "Usuário", "Nome", "Categoria", "Tipo", "Valor"}

type (
	// TransactionRow is one exported transaction.
	TransactionRow struct {
		UserID       string
		Transaction  core.Transaction
		CategoryName string
	}

	// TransactionExporter appends rows to a spreadsheet. Appending a
	// transaction id that is already present returns the existing row
	// reference instead of a duplicate.
	TransactionExporter interface {
		AppendTransaction(ctx context.Context, row TransactionRow) (rowRef string, err error)
	}
)

// Values renders the row cells, with the date evaluated in loc.
func (r TransactionRow) Values(loc *time.Location) []any {
	if loc == nil {
		loc = time.UTC
	}
	tx := r.Transaction
	kind := "Entrada"
	if tx.IsExpense() {
		kind = "Saída"
	}
	category := r.CategoryName
	if category == "" {
		category = tx.Category
	}
	return []any{
		tx.ID,
		tx.Date.In(loc).Format("02/01/2006"),
		r.UserID,
		tx.Name,
		category,
		kind,
		tx.Amount.Reais(),
	}
}
