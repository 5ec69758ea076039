package core

import (
	"errors"
	"strings"
	"time"
)

const (
	Positive TransactionType = "positive"
	Negative TransactionType = "negative"
)

type (
	// TransactionType carries the direction of a transaction: income or expense.
	TransactionType string

	Money struct {
		Cents int64
	}

	// Transaction is a single recorded income or expense event.
	// Amount is always a magnitude; the sign lives in Type.
	Transaction struct {
		ID       string
		Name     string
		Amount   Money
		Type     TransactionType
		Category string // key into the category catalog
		Date     time.Time
	}
)

var (
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrEmptyName       = errors.New("empty name")
	ErrEmptyID         = errors.New("empty id")
	ErrInvalidType     = errors.New("invalid transaction type")
	ErrEmptyCategory   = errors.New("empty category")
	ErrUnknownCategory = errors.New("unknown category")
	ErrZeroDate        = errors.New("date cannot be zero")
)

// IsValid reports whether t is one of the known transaction types.
func (t TransactionType) IsValid() bool {
	switch t {
	case Positive, Negative:
		return true
	default:
		return false
	}
}

func (t TransactionType) String() string {
	return string(t)
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

// Add returns m + o.
func (m Money) Add(o Money) Money {
	return Money{Cents: m.Cents + o.Cents}
}

// Sub returns m - o. The result may be negative (e.g. a net balance).
func (m Money) Sub(o Money) Money {
	return Money{Cents: m.Cents - o.Cents}
}

func (m Money) IsZero() bool {
	return m.Cents == 0
}

// IsIncome reports whether the transaction is an entry.
func (t Transaction) IsIncome() bool {
	return t.Type == Positive
}

// IsExpense reports whether the transaction is an expense.
func (t Transaction) IsExpense() bool {
	return t.Type == Negative
}

// InMonth reports whether the transaction date falls in the given calendar
// month (1-12) and year, evaluated in loc.
func (t Transaction) InMonth(year, month int, loc *time.Location) bool {
	if loc == nil {
		loc = time.UTC
	}
	d := t.Date.In(loc)
	return d.Year() == year && int(d.Month()) == month
}

func (t Transaction) Validate() error {
	if strings.TrimSpace(t.ID) == "" {
		return ErrEmptyID
	}
	if len(strings.TrimSpace(t.Name)) == 0 {
		return ErrEmptyName
	}
	if len(t.Name) > 200 {
		return errors.New("name too long (max 200 characters)")
	}
	if err := t.Amount.Validate(); err != nil {
		return err
	}
	if !t.Type.IsValid() {
		return ErrInvalidType
	}
	if strings.TrimSpace(t.Category) == "" {
		return ErrEmptyCategory
	}
	if t.Date.IsZero() {
		return ErrZeroDate
	}
	return nil
}
