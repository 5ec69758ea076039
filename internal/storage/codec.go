package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"gofinances/internal/core"
)

// ErrMalformed marks a blob, or a record inside it, that could not be decoded.
var ErrMalformed = errors.New("storage: malformed transactions blob")

// record is the stored shape of a transaction. amount is accepted both as a
// JSON string and as a number; it is always written back as a string.
type record struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Amount   decimal.Decimal `json:"amount"`
	Type     string          `json:"type"`
	Category string          `json:"category"`
	Date     time.Time       `json:"date"`
}

// DecodeTransactions parses a stored blob. An empty blob is an empty list.
// When the blob is not a JSON array the result is an empty list and an
// error wrapping ErrMalformed. Records with a negative or oversized amount
// are dropped and reported the same way; the remaining records are still
// returned.
func DecodeTransactions(blob string) ([]core.Transaction, error) {
	if strings.TrimSpace(blob) == "" {
		return []core.Transaction{}, nil
	}

	var records []record
	if err := json.Unmarshal([]byte(blob), &records); err != nil {
		return []core.Transaction{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	txs := make([]core.Transaction, 0, len(records))
	var errs []error
	for i, r := range records {
		amount, err := core.MoneyFromDecimal(r.Amount)
		if err != nil {
			errs = append(errs, fmt.Errorf("record %d (%q): %w", i, r.ID, err))
			continue
		}
		txs = append(txs, core.Transaction{
			ID:       r.ID,
			Name:     r.Name,
			Amount:   amount,
			Type:     core.TransactionType(r.Type),
			Category: r.Category,
			Date:     r.Date,
		})
	}
	if len(errs) > 0 {
		return txs, fmt.Errorf("%w: %w", ErrMalformed, errors.Join(errs...))
	}
	return txs, nil
}

// EncodeTransactions serializes txs in the stored format.
func EncodeTransactions(txs []core.Transaction) (string, error) {
	records := make([]record, len(txs))
	for i, tx := range txs {
		records[i] = record{
			ID:       tx.ID,
			Name:     tx.Name,
			Amount:   tx.Amount.Decimal(),
			Type:     string(tx.Type),
			Category: tx.Category,
			Date:     tx.Date.UTC(),
		}
	}
	b, err := json.Marshal(records)
	if err != nil {
		return "", fmt.Errorf("encode transactions: %w", err)
	}
	return string(b), nil
}
