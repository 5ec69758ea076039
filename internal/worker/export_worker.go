// Package worker exports registered transactions to the spreadsheet as
// their events arrive.
package worker

import (
	"context"
	"fmt"
	"time"

	"gofinances/internal/amqp"
	"gofinances/internal/core"
	"gofinances/internal/log"
	"gofinances/internal/sheets"
)

// TransactionSource loads a user's stored transactions.
type TransactionSource interface {
	Transactions(ctx context.Context, userID string) ([]core.Transaction, error)
}

// ExportWorker handles transaction.created events. The stored list is the
// source of truth: the event only names which record to export.
type ExportWorker struct {
	source   TransactionSource
	exporter sheets.TransactionExporter
	catalog  core.Catalog
	timeout  time.Duration
	logger   *log.Logger
}

func NewExportWorker(source TransactionSource, exporter sheets.TransactionExporter, catalog core.Catalog, timeout time.Duration, logger *log.Logger) *ExportWorker {
	if logger == nil {
		logger = log.Default(log.ComponentWorker)
	}
	if len(catalog) == 0 {
		catalog = core.DefaultCatalog()
	}
	return &ExportWorker{
		source:   source,
		exporter: exporter,
		catalog:  catalog,
		timeout:  timeout,
		logger:   logger.WithComponent(log.ComponentWorker),
	}
}

// HandleTransactionCreated implements amqp.Handler. Unknown ids are
// acknowledged and skipped; records that cannot be exported are rejected
// permanently.
func (w *ExportWorker) HandleTransactionCreated(ctx context.Context, msg *amqp.TransactionCreatedMessage) error {
	if err := msg.Validate(); err != nil {
		return fmt.Errorf("%w: %w", amqp.ErrPermanent, err)
	}
	if w.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.timeout)
		defer cancel()
	}

	w.logger.InfoContext(ctx, "Processing transaction event",
		log.FieldUserID, msg.UserID,
		log.FieldTransactionID, msg.TransactionID,
		log.FieldVersion, msg.Version)

	txs, err := w.source.Transactions(ctx, msg.UserID)
	if err != nil {
		return fmt.Errorf("load transactions: %w", err)
	}

	tx, ok := find(txs, msg.TransactionID)
	if !ok {
		w.logger.WarnContext(ctx, "Transaction not found, skipping export",
			log.FieldUserID, msg.UserID,
			log.FieldTransactionID, msg.TransactionID,
			log.FieldCount, len(txs))
		return nil
	}
	if err := tx.Validate(); err != nil {
		return fmt.Errorf("%w: stored transaction %s: %w", amqp.ErrPermanent, tx.ID, err)
	}

	row := sheets.TransactionRow{UserID: msg.UserID, Transaction: tx}
	if cat, ok := w.catalog.Lookup(tx.Category); ok {
		row.CategoryName = cat.Name
	}

	ref, err := w.exporter.AppendTransaction(ctx, row)
	if err != nil {
		return fmt.Errorf("export transaction %s: %w", tx.ID, err)
	}

	w.logger.InfoContext(ctx, "Exported transaction",
		log.FieldUserID, msg.UserID,
		log.FieldTransactionID, tx.ID,
		log.FieldSheetsRef, ref)
	return nil
}

func find(txs []core.Transaction, id string) (core.Transaction, bool) {
	for _, tx := range txs {
		if tx.ID == id {
			return tx, true
		}
	}
	return core.Transaction{}, false
}
