// Package memory is an in-process TransactionExporter for tests and for
// running the worker without Google credentials.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"gofinances/internal/sheets"
)

type Exporter struct {
	mu    sync.Mutex
	loc   *time.Location
	rows  [][]any
	index map[string]int
}

var _ sheets.TransactionExporter = (*Exporter)(nil)

func New(loc *time.Location) *Exporter {
	return &Exporter{loc: loc, index: make(map[string]int)}
}

// AppendTransaction stores the row and returns a synthetic row reference.
func (e *Exporter) AppendTransaction(ctx context.Context, row sheets.TransactionRow) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := row.Transaction.Validate(); err != nil {
		return "", fmt.Errorf("validation failed: %w", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if i, ok := e.index[row.Transaction.ID]; ok {
		return fmt.Sprintf("mem:%d", i+1), nil
	}
	e.rows = append(e.rows, row.Values(e.loc))
	e.index[row.Transaction.ID] = len(e.rows) - 1
	return fmt.Sprintf("mem:%d", len(e.rows)), nil
}

// Rows returns a copy of the exported rows.
func (e *Exporter) Rows() [][]any {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([][]any, len(e.rows))
	for i, r := range e.rows {
		out[i] = append([]any(nil), r...)
	}
	return out
}
