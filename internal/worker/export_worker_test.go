package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"gofinances/internal/amqp"
	"gofinances/internal/core"
	"gofinances/internal/sheets"
	sheetsmem "gofinances/internal/sheets/memory"
)

type stubSource struct {
	txs []core.Transaction
	err error
}

func (s stubSource) Transactions(context.Context, string) ([]core.Transaction, error) {
	return s.txs, s.err
}

type failingExporter struct{}

func (failingExporter) AppendTransaction(context.Context, sheets.TransactionRow) (string, error) {
	return "", errors.New("quota exceeded")
}

var stored = []core.Transaction{
	{ID: "tx1", Name: "Mercado", Amount: core.Money{Cents: 4000}, Type: core.Negative, Category: "food", Date: time.Date(2024, 1, 5, 10, 0, 0, 0, time.UTC)},
	{ID: "tx2", Name: "Bitcoin", Amount: core.Money{Cents: 100}, Type: core.Negative, Category: "crypto", Date: time.Date(2024, 1, 6, 10, 0, 0, 0, time.UTC)},
	{ID: "bad", Name: "Zero", Amount: core.Money{}, Type: core.Negative, Category: "food", Date: time.Date(2024, 1, 6, 10, 0, 0, 0, time.UTC)},
}

func TestHandleTransactionCreated(t *testing.T) {
	exp := sheetsmem.New(time.UTC)
	w := NewExportWorker(stubSource{txs: stored}, exp, nil, time.Second, nil)

	if err := w.HandleTransactionCreated(context.Background(), amqp.NewTransactionCreatedMessage("u1", "tx1", 1)); err != nil {
		t.Fatalf("handle: %v", err)
	}
	rows := exp.Rows()
	if len(rows) != 1 {
		t.Fatalf("rows = %v", rows)
	}
	if rows[0][4] != "Alimentação" {
		t.Errorf("category cell = %v", rows[0][4])
	}
}

func TestHandleTransactionCreatedUnknownCategoryKeepsKey(t *testing.T) {
	exp := sheetsmem.New(time.UTC)
	w := NewExportWorker(stubSource{txs: stored}, exp, nil, 0, nil)

	if err := w.HandleTransactionCreated(context.Background(), amqp.NewTransactionCreatedMessage("u1", "tx2", 2)); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if rows := exp.Rows(); len(rows) != 1 || rows[0][4] != "crypto" {
		t.Errorf("rows = %v", rows)
	}
}

func TestHandleTransactionCreatedSkipsUnknownID(t *testing.T) {
	exp := sheetsmem.New(time.UTC)
	w := NewExportWorker(stubSource{txs: stored}, exp, nil, 0, nil)

	if err := w.HandleTransactionCreated(context.Background(), amqp.NewTransactionCreatedMessage("u1", "missing", 3)); err != nil {
		t.Fatalf("unknown id should be acknowledged, got %v", err)
	}
	if len(exp.Rows()) != 0 {
		t.Error("unexpected export")
	}
}

func TestHandleTransactionCreatedErrors(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name      string
		worker    *ExportWorker
		msg       *amqp.TransactionCreatedMessage
		permanent bool
	}{
		{
			name:      "invalid message",
			worker:    NewExportWorker(stubSource{}, sheetsmem.New(nil), nil, 0, nil),
			msg:       &amqp.TransactionCreatedMessage{},
			permanent: true,
		},
		{
			name:   "source failure",
			worker: NewExportWorker(stubSource{err: errors.New("db down")}, sheetsmem.New(nil), nil, 0, nil),
			msg:    amqp.NewTransactionCreatedMessage("u1", "tx1", 1),
		},
		{
			name:      "invalid stored record",
			worker:    NewExportWorker(stubSource{txs: stored}, sheetsmem.New(nil), nil, 0, nil),
			msg:       amqp.NewTransactionCreatedMessage("u1", "bad", 1),
			permanent: true,
		},
		{
			name:   "exporter failure",
			worker: NewExportWorker(stubSource{txs: stored}, failingExporter{}, nil, 0, nil),
			msg:    amqp.NewTransactionCreatedMessage("u1", "tx1", 1),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.worker.HandleTransactionCreated(ctx, tt.msg)
			if err == nil {
				t.Fatal("expected error")
			}
			if got := errors.Is(err, amqp.ErrPermanent); got != tt.permanent {
				t.Errorf("permanent = %v, want %v (err %v)", got, tt.permanent, err)
			}
		})
	}
}
