// Package google exports transactions to a Google Sheets spreadsheet using
// service account credentials.
package google

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gofinances/internal/log"
	"gofinances/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// Config selects the spreadsheet and credentials.
type Config struct {
	SpreadsheetID   string
	SheetName       string
	CredentialsJSON string
	CredentialsFile string
	Location        *time.Location
}

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
	loc           *time.Location
	logger        *log.Logger
}

var _ sheets.TransactionExporter = (*Client)(nil)

// NewClient creates a Sheets client using service account credentials.
// CredentialsJSON wins over CredentialsFile; GOOGLE_APPLICATION_CREDENTIALS
// is the last fallback.
func NewClient(ctx context.Context, cfg Config, logger *log.Logger) (*Client, error) {
	creds, err := loadCredentials(cfg)
	if err != nil {
		return nil, err
	}
	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(creds),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return NewWithService(svc, cfg, logger)
}

// NewWithService wraps an already configured service.
func NewWithService(svc *gsheet.Service, cfg Config, logger *log.Logger) (*Client, error) {
	if svc == nil {
		return nil, errors.New("sheets service not initialized")
	}
	id := strings.TrimSpace(cfg.SpreadsheetID)
	if id == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	name := strings.TrimSpace(cfg.SheetName)
	if name == "" {
		name = "Transações"
	}
	loc := cfg.Location
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = log.Default(log.ComponentSheets)
	}
	return &Client{
		svc:           svc,
		spreadsheetID: id,
		sheetName:     name,
		loc:           loc,
		logger:        logger.WithComponent(log.ComponentSheets),
	}, nil
}

func loadCredentials(cfg Config) ([]byte, error) {
	if s := strings.TrimSpace(cfg.CredentialsJSON); s != "" {
		return []byte(s), nil
	}
	path := strings.TrimSpace(cfg.CredentialsFile)
	if path == "" {
		path = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}
	if path == "" {
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read service account file: %w", err)
	}
	return b, nil
}

// AppendTransaction writes the row after the last used one. Column A holds
// transaction ids; an id already present is not written twice.
func (c *Client) AppendTransaction(ctx context.Context, row sheets.TransactionRow) (string, error) {
	if err := row.Transaction.Validate(); err != nil {
		return "", fmt.Errorf("validation failed: %w", err)
	}

	ids, err := c.readCol(ctx, "A:A")
	if err != nil {
		return "", fmt.Errorf("failed to read ids from %s: %w", c.sheetName, err)
	}
	if i := indexOf(ids, row.Transaction.ID); i >= 0 {
		ref := c.rowRef(i + 1)
		c.logger.InfoContext(ctx, "Transaction already exported",
			log.FieldTransactionID, row.Transaction.ID, log.FieldSheetsRef, ref)
		return ref, nil
	}

	values := [][]any{row.Values(c.loc)}
	first := len(ids) + 1
	if len(ids) == 0 {
		values = append([][]any{sheets.Header}, values...)
	}
	last := first + len(values) - 1

	rng := fmt.Sprintf("%s!A%d:G%d", quoteSheet(c.sheetName), first, last)
	_, err = c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, &gsheet.ValueRange{Values: values}).
		ValueInputOption("USER_ENTERED").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to update %s: %w", rng, err)
	}
	return c.rowRef(last), nil
}

func (c *Client) rowRef(row int) string {
	return fmt.Sprintf("%s!A%d:G%d", quoteSheet(c.sheetName), row, row)
}

func (c *Client) readCol(ctx context.Context, col string) ([]string, error) {
	rng := fmt.Sprintf("%s!%s", quoteSheet(c.sheetName), col)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	out := make([]string, 0, len(resp.Values))
	for _, row := range resp.Values {
		if len(row) == 0 {
			out = append(out, "")
			continue
		}
		out = append(out, strings.TrimSpace(fmt.Sprint(row[0])))
	}
	return out, nil
}

// quoteSheet quotes sheet names that A1 notation would otherwise misread.
func quoteSheet(name string) string {
	if strings.ContainsAny(name, " '!-") {
		return "'" + strings.ReplaceAll(name, "'", "''") + "'"
	}
	return name
}

func indexOf(arr []string, target string) int {
	for i, v := range arr {
		if v == target {
			return i
		}
	}
	return -1
}
