package http

import (
	"encoding/json"
	"net/http"
	"time"

	"gofinances/internal/aggregator"
	"gofinances/internal/core"
	"gofinances/internal/format"
	"gofinances/internal/log"
	"gofinances/internal/services"
)

type errorResponse struct {
	Error     string            `json:"error"`
	Fields    map[string]string `json:"fields,omitempty"`
	Retryable bool              `json:"retryable,omitempty"`
}

type highlightJSON struct {
	Amount               string     `json:"amount"`
	AmountCents          int64      `json:"amountCents"`
	LastTransaction      *time.Time `json:"lastTransaction,omitempty"`
	LastTransactionLabel string     `json:"lastTransactionLabel"`
}

type highlightsJSON struct {
	Entries    highlightJSON `json:"entries"`
	Expensives highlightJSON `json:"expensives"`
	Total      highlightJSON `json:"total"`
}

type transactionViewJSON struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Amount   string `json:"amount"`
	Type     string `json:"type"`
	Category string `json:"category"`
	Date     string `json:"date"`
}

type userJSON struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

type dashboardResponse struct {
	User         userJSON              `json:"user"`
	Highlights   highlightsJSON        `json:"highlights"`
	Transactions []transactionViewJSON `json:"transactions"`
}

type categoryJSON struct {
	Key              string  `json:"key"`
	Name             string  `json:"name"`
	Color            string  `json:"color"`
	Total            string  `json:"total"`
	TotalCents       int64   `json:"totalCents"`
	Percent          float64 `json:"percent"`
	PercentFormatted string  `json:"percentFormatted"`
}

type resumeResponse struct {
	services.MonthRef
	Label      string            `json:"label"`
	Prev       services.MonthRef `json:"prev"`
	Next       services.MonthRef `json:"next"`
	Total      string            `json:"total"`
	TotalCents int64             `json:"totalCents"`
	Categories []categoryJSON    `json:"categories"`
}

type transactionJSON struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Amount          string    `json:"amount"`
	AmountFormatted string    `json:"amountFormatted"`
	Type            string    `json:"type"`
	Category        string    `json:"category"`
	Date            time.Time `json:"date"`
}

type transactionsResponse struct {
	Transactions []transactionViewJSON `json:"transactions"`
}

func toHighlight(h aggregator.Highlight) highlightJSON {
	out := highlightJSON{
		Amount:               h.AmountFormatted,
		AmountCents:          h.Amount.Cents,
		LastTransactionLabel: h.LastTransactionLabel,
	}
	if !h.LastTransaction.IsZero() {
		t := h.LastTransaction
		out.LastTransaction = &t
	}
	return out
}

func toViews(views []aggregator.TransactionView) []transactionViewJSON {
	out := make([]transactionViewJSON, len(views))
	for i, v := range views {
		out[i] = transactionViewJSON{
			ID:       v.ID,
			Name:     v.Name,
			Amount:   v.Amount,
			Type:     v.Type.String(),
			Category: v.Category,
			Date:     v.Date,
		}
	}
	return out
}

func toDashboard(user userJSON, v services.DashboardView) dashboardResponse {
	return dashboardResponse{
		User: user,
		Highlights: highlightsJSON{
			Entries:    toHighlight(v.Highlights.Entries),
			Expensives: toHighlight(v.Highlights.Expensives),
			Total:      toHighlight(v.Highlights.Total),
		},
		Transactions: toViews(v.Transactions),
	}
}

func toResume(v services.ResumeView) resumeResponse {
	cats := make([]categoryJSON, len(v.Categories))
	for i, c := range v.Categories {
		cats[i] = categoryJSON{
			Key:              c.Key,
			Name:             c.Name,
			Color:            c.Color,
			Total:            c.TotalFormatted,
			TotalCents:       c.Total.Cents,
			Percent:          c.Percent,
			PercentFormatted: c.PercentFormatted,
		}
	}
	return resumeResponse{
		MonthRef:   v.MonthRef,
		Label:      v.Label,
		Prev:       v.Prev,
		Next:       v.Next,
		Total:      v.TotalFormatted,
		TotalCents: v.Total.Cents,
		Categories: cats,
	}
}

func toTransaction(tx core.Transaction) transactionJSON {
	return transactionJSON{
		ID:              tx.ID,
		Name:            tx.Name,
		Amount:          tx.Amount.Decimal().StringFixed(2),
		AmountFormatted: format.Currency(tx.Amount),
		Type:            tx.Type.String(),
		Category:        tx.Category,
		Date:            tx.Date,
	}
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.FromContext(r.Context()).WithComponent(log.ComponentHTTP).
			ErrorContext(r.Context(), "Failed to encode response", log.FieldError, err.Error())
	}
}

func writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	writeJSON(w, r, status, errorResponse{Error: msg})
}
