// Package aggregator derives the dashboard highlights and the monthly
// expense-by-category breakdown from a list of transactions.
//
// Every function here is a pure function of its inputs: nothing is cached or
// persisted and callers own whatever state they keep between calls.
package aggregator

import (
	"time"

	"github.com/shopspring/decimal"

	"gofinances/internal/core"
	"gofinances/internal/format"
)

var hundred = decimal.NewFromInt(100)

// Highlight is one of the three summary cards: entries, expenses or total.
type Highlight struct {
	Amount               core.Money
	AmountFormatted      string
	LastTransaction      time.Time // zero when there is none
	LastTransactionLabel string
}

// Highlights groups the income, expense and net balance summaries.
type Highlights struct {
	Entries    Highlight
	Expensives Highlight
	Total      Highlight
}

// CategorySummary is the expense total of one catalog category in a month.
type CategorySummary struct {
	Key              string
	Name             string
	Color            string
	Total            core.Money
	TotalFormatted   string
	Percent          float64
	PercentFormatted string
}

// TransactionView is a transaction formatted for listing.
type TransactionView struct {
	ID       string
	Name     string
	Amount   string
	Type     core.TransactionType
	Category string
	Date     string
}

// Aggregator evaluates dates in a fixed location.
type Aggregator struct {
	loc *time.Location
}

// New returns an Aggregator that interprets dates in loc (UTC when nil).
func New(loc *time.Location) *Aggregator {
	if loc == nil {
		loc = time.UTC
	}
	return &Aggregator{loc: loc}
}

// Location returns the location dates are evaluated in.
func (a *Aggregator) Location() *time.Location {
	return a.loc
}

// Highlights computes totals and last-transaction labels over the whole
// list. It is intentionally not month-filtered.
func (a *Aggregator) Highlights(txs []core.Transaction) Highlights {
	var (
		entriesTotal, expensiveTotal core.Money
		lastEntry, lastExpense       time.Time
	)
	for _, tx := range txs {
		switch tx.Type {
		case core.Positive:
			entriesTotal = entriesTotal.Add(tx.Amount)
			if tx.Date.After(lastEntry) {
				lastEntry = tx.Date
			}
		case core.Negative:
			expensiveTotal = expensiveTotal.Add(tx.Amount)
			if tx.Date.After(lastExpense) {
				lastExpense = tx.Date
			}
		}
	}

	total := entriesTotal.Sub(expensiveTotal)
	totalLabel := format.NoTransactions
	if !lastExpense.IsZero() {
		totalLabel = "01 à " + format.DayMonth(lastExpense.In(a.loc))
	}

	return Highlights{
		Entries: Highlight{
			Amount:               entriesTotal,
			AmountFormatted:      format.Currency(entriesTotal),
			LastTransaction:      lastEntry,
			LastTransactionLabel: a.lastLabel("Última entrada dia ", lastEntry),
		},
		Expensives: Highlight{
			Amount:               expensiveTotal,
			AmountFormatted:      format.Currency(expensiveTotal),
			LastTransaction:      lastExpense,
			LastTransactionLabel: a.lastLabel("Última saída dia ", lastExpense),
		},
		Total: Highlight{
			Amount:               total,
			AmountFormatted:      format.Currency(total),
			LastTransaction:      lastExpense,
			LastTransactionLabel: totalLabel,
		},
	}
}

func (a *Aggregator) lastLabel(prefix string, last time.Time) string {
	if last.IsZero() {
		return format.NoTransactions
	}
	return prefix + format.DayMonth(last.In(a.loc))
}

// MonthlyExpenseByCategory sums the expenses of the given calendar month
// (1-12) per catalog category. Categories with no spending are omitted and
// the result follows catalog order. When the month has no expenses the
// result is empty.
func (a *Aggregator) MonthlyExpenseByCategory(txs []core.Transaction, year, month int, catalog core.Catalog) []CategorySummary {
	sums := make(map[string]int64)
	var expenseTotal int64
	for _, tx := range txs {
		if !tx.IsExpense() || !tx.InMonth(year, month, a.loc) {
			continue
		}
		expenseTotal += tx.Amount.Cents
		sums[tx.Category] += tx.Amount.Cents
	}
	if expenseTotal == 0 {
		return []CategorySummary{}
	}

	total := decimal.NewFromInt(expenseTotal)
	out := make([]CategorySummary, 0, len(catalog))
	for _, cat := range catalog {
		sum := sums[cat.Key]
		if sum <= 0 {
			continue
		}
		percent := decimal.NewFromInt(sum).Mul(hundred).Div(total)
		m := core.Money{Cents: sum}
		out = append(out, CategorySummary{
			Key:              cat.Key,
			Name:             cat.Name,
			Color:            cat.Color,
			Total:            m,
			TotalFormatted:   format.Currency(m),
			Percent:          percent.InexactFloat64(),
			PercentFormatted: format.Percent(percent),
		})
	}
	return out
}

// MonthlyExpenseTotal returns the sum of the month's expenses, including
// categories missing from any catalog.
func (a *Aggregator) MonthlyExpenseTotal(txs []core.Transaction, year, month int) core.Money {
	var total core.Money
	for _, tx := range txs {
		if tx.IsExpense() && tx.InMonth(year, month, a.loc) {
			total = total.Add(tx.Amount)
		}
	}
	return total
}

// InMonth returns the transactions of the given month, in input order.
func (a *Aggregator) InMonth(txs []core.Transaction, year, month int) []core.Transaction {
	out := make([]core.Transaction, 0)
	for _, tx := range txs {
		if tx.InMonth(year, month, a.loc) {
			out = append(out, tx)
		}
	}
	return out
}

// List formats every transaction for display, keeping input order.
func (a *Aggregator) List(txs []core.Transaction) []TransactionView {
	out := make([]TransactionView, len(txs))
	for i, tx := range txs {
		out[i] = TransactionView{
			ID:       tx.ID,
			Name:     tx.Name,
			Amount:   format.Currency(tx.Amount),
			Type:     tx.Type,
			Category: tx.Category,
			Date:     format.ShortDate(tx.Date.In(a.loc)),
		}
	}
	return out
}
