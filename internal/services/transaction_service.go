package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"gofinances/internal/aggregator"
	"gofinances/internal/amqp"
	"gofinances/internal/cache"
	"gofinances/internal/core"
	"gofinances/internal/format"
	"gofinances/internal/log"
	"gofinances/internal/storage"
)

// EventPublisher announces registered transactions. *amqp.Client satisfies it.
type EventPublisher interface {
	PublishTransactionCreated(ctx context.Context, msg *amqp.TransactionCreatedMessage) error
}

// Options configures a TransactionService. Store is required.
type Options struct {
	Store      storage.Store
	Catalog    core.Catalog
	Aggregator *aggregator.Aggregator
	Publisher  EventPublisher
	Logger     *log.Logger

	// ResumeCache holds computed month summaries. Nil disables caching.
	ResumeCache *cache.LRUCache[ResumeEntry]

	Now   func() time.Time
	NewID func() string
}

// MonthRef identifies a calendar month.
type MonthRef struct {
	Year  int `json:"year"`
	Month int `json:"month"`
}

// DashboardView is everything the dashboard screen shows.
type DashboardView struct {
	Highlights   aggregator.Highlights
	Transactions []aggregator.TransactionView
}

// ResumeView is the expense breakdown of one month.
type ResumeView struct {
	MonthRef
	Label          string
	Prev           MonthRef
	Next           MonthRef
	Total          core.Money
	TotalFormatted string
	Categories     []aggregator.CategorySummary
}

// ResumeEntry is a cached ResumeView tagged with the data version it was
// computed from.
type ResumeEntry struct {
	Version uint64
	View    ResumeView
}

// loadTimeout bounds a shared store read. The read is detached from the
// callers' contexts, so it needs its own deadline.
const loadTimeout = 30 * time.Second

// TransactionService orchestrates registration and the read screens over
// a per-user blob store.
type TransactionService struct {
	store     storage.Store
	catalog   core.Catalog
	agg       *aggregator.Aggregator
	publisher EventPublisher
	logger    *log.Logger
	events    *log.StructuredLogger
	validate  *validator.Validate
	resume    *cache.LRUCache[ResumeEntry]
	now       func() time.Time
	newID     func() string

	loads singleflight.Group

	mu       sync.Mutex
	locks    map[string]*userLock
	versions map[string]uint64
}

// userLock serializes writes for one user. refs counts the goroutines
// holding or waiting for it; the entry is dropped when it reaches zero.
type userLock struct {
	sync.Mutex
	refs int
}

func NewTransactionService(opts Options) (*TransactionService, error) {
	if opts.Store == nil {
		return nil, errors.New("transaction service: store is required")
	}
	if len(opts.Catalog) == 0 {
		opts.Catalog = core.DefaultCatalog()
	}
	if opts.Aggregator == nil {
		opts.Aggregator = aggregator.New(nil)
	}
	if opts.Logger == nil {
		opts.Logger = log.Default(log.ComponentTransaction)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}
	return &TransactionService{
		store:     opts.Store,
		catalog:   opts.Catalog,
		agg:       opts.Aggregator,
		publisher: opts.Publisher,
		logger:    opts.Logger.WithComponent(log.ComponentTransaction),
		events:    log.NewStructuredLogger(opts.Logger),
		validate:  newValidator(opts.Catalog),
		resume:    opts.ResumeCache,
		now:       opts.Now,
		newID:     opts.NewID,
		locks:     make(map[string]*userLock),
		versions:  make(map[string]uint64),
	}, nil
}

func (s *TransactionService) Catalog() core.Catalog { return s.catalog }

func (s *TransactionService) Aggregator() *aggregator.Aggregator { return s.agg }

// Version returns the user's data version. It starts at zero and grows by
// one on every successful registration handled by this process.
func (s *TransactionService) Version(userID string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.versions[userID]
}

// lockUser acquires the user's write lock and returns its release func.
func (s *TransactionService) lockUser(userID string) func() {
	s.mu.Lock()
	l, ok := s.locks[userID]
	if !ok {
		l = &userLock{}
		s.locks[userID] = l
	}
	l.refs++
	s.mu.Unlock()

	l.Lock()
	return func() {
		l.Unlock()
		s.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(s.locks, userID)
		}
		s.mu.Unlock()
	}
}

// lockedUsers reports how many users currently hold or wait for a write lock.
func (s *TransactionService) lockedUsers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.locks)
}

func (s *TransactionService) bumpVersion(userID string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.versions[userID]++
	return s.versions[userID]
}

// Register validates the input, appends the transaction to the user's
// list and publishes a transaction.created event. Validation failures are
// returned as *ValidationError before storage is touched; storage failures
// wrap ErrPersist.
func (s *TransactionService) Register(ctx context.Context, userID string, in RegisterInput) (core.Transaction, error) {
	if strings.TrimSpace(userID) == "" {
		return core.Transaction{}, ErrMissingUser
	}
	if err := validateInput(s.validate, in); err != nil {
		return core.Transaction{}, err
	}
	amount, err := core.ParseAmount(in.Amount)
	if err != nil {
		return core.Transaction{}, &ValidationError{Fields: map[string]string{"amount": messages["amount"]["amount"]}}
	}

	date := in.Date
	if date.IsZero() {
		date = s.now()
	}
	tx := core.Transaction{
		ID:       s.newID(),
		Name:     strings.TrimSpace(in.Name),
		Amount:   amount,
		Type:     core.TransactionType(in.Type),
		Category: in.Category,
		Date:     date,
	}
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, fmt.Errorf("build transaction: %w", err)
	}

	version, err := s.appendTransaction(ctx, userID, tx)
	if err != nil {
		s.events.LogError(ctx, "Failed to persist transaction", err, log.ComponentTransaction, log.OpCreate,
			log.NewFields().WithUser(userID).WithErrorType(log.ErrorTypeDatabase))
		return core.Transaction{}, err
	}
	s.events.LogTransactionCreated(ctx, userID, tx.ID, tx.Type.String(), tx.Category, tx.Amount.Cents, version)

	if err := s.publish(ctx, userID, tx.ID, version); err != nil {
		s.logger.WarnContext(ctx, "Failed to publish transaction event",
			log.FieldUserID, userID, log.FieldTransactionID, tx.ID, log.FieldError, err)
	}
	return tx, nil
}

func (s *TransactionService) appendTransaction(ctx context.Context, userID string, tx core.Transaction) (uint64, error) {
	unlock := s.lockUser(userID)
	defer unlock()

	key := storage.TransactionsKey(userID)
	blob, _, err := s.store.Get(ctx, key)
	if err != nil {
		return 0, fmt.Errorf("%w: read: %w", ErrPersist, err)
	}
	txs, err := storage.DecodeTransactions(blob)
	if err != nil {
		// Rewriting would drop what could not be decoded.
		return 0, fmt.Errorf("%w: %w", ErrPersist, err)
	}

	out, err := storage.EncodeTransactions(append(txs, tx))
	if err != nil {
		return 0, fmt.Errorf("%w: encode: %w", ErrPersist, err)
	}
	if err := s.store.Set(ctx, key, out); err != nil {
		return 0, fmt.Errorf("%w: write: %w", ErrPersist, err)
	}

	version := s.bumpVersion(userID)
	if s.resume != nil {
		s.resume.DeletePrefix(resumePrefix(userID))
	}
	return version, nil
}

func (s *TransactionService) publish(ctx context.Context, userID, txID string, version uint64) error {
	if s.publisher == nil {
		s.logger.DebugContext(ctx, "No event publisher configured, skipping transaction event")
		return nil
	}
	return s.publisher.PublishTransactionCreated(ctx, amqp.NewTransactionCreatedMessage(userID, txID, version))
}

// Transactions returns the user's decoded transactions in stored order. A
// malformed blob is logged and yields whatever could be decoded.
func (s *TransactionService) Transactions(ctx context.Context, userID string) ([]core.Transaction, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, ErrMissingUser
	}
	txs, _, err := s.load(ctx, userID)
	return txs, err
}

// load reads the user's list once per data version, sharing in-flight reads.
// A caller whose context ends stops waiting; the shared read keeps going for
// the others.
func (s *TransactionService) load(ctx context.Context, userID string) ([]core.Transaction, uint64, error) {
	version := s.Version(userID)
	key := storage.TransactionsKey(userID)
	flight := key + "@" + strconv.FormatUint(version, 10)

	ch := s.loads.DoChan(flight, func() (any, error) {
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), loadTimeout)
		defer cancel()

		blob, found, err := s.store.Get(rctx, key)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrLoad, err)
		}
		if !found {
			return []core.Transaction{}, nil
		}
		txs, derr := storage.DecodeTransactions(blob)
		if derr != nil {
			s.logger.WarnContext(rctx, "Ignoring malformed transaction data",
				log.FieldUserID, userID, log.FieldOperation, log.OpDecode,
				log.FieldCount, len(txs), log.FieldError, derr)
		}
		return txs, nil
	})

	select {
	case <-ctx.Done():
		return nil, version, fmt.Errorf("%w: %w", ErrLoad, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, version, res.Err
		}
		shared := res.Val.([]core.Transaction)
		return append([]core.Transaction(nil), shared...), version, nil
	}
}

// Dashboard returns the highlights over the user's whole history and the
// formatted transaction list.
func (s *TransactionService) Dashboard(ctx context.Context, userID string) (DashboardView, error) {
	if strings.TrimSpace(userID) == "" {
		return DashboardView{}, ErrMissingUser
	}
	txs, _, err := s.load(ctx, userID)
	if err != nil {
		return DashboardView{}, err
	}
	return DashboardView{
		Highlights:   s.agg.Highlights(txs),
		Transactions: s.agg.List(txs),
	}, nil
}

// Resume returns the expense-by-category breakdown of the given month.
// Cached results are served only while they match the user's current data
// version, and a result computed from an outdated read is never cached.
func (s *TransactionService) Resume(ctx context.Context, userID string, year, month int) (ResumeView, error) {
	if strings.TrimSpace(userID) == "" {
		return ResumeView{}, ErrMissingUser
	}
	if month < 1 || month > 12 || year < 1 || year > 9999 {
		return ResumeView{}, fmt.Errorf("%w: %04d-%02d", ErrInvalidMonth, year, month)
	}

	key := resumeKey(userID, year, month)
	if s.resume != nil {
		if e, ok := s.resume.Get(key); ok && e.Version == s.Version(userID) {
			return e.View, nil
		}
	}

	txs, version, err := s.load(ctx, userID)
	if err != nil {
		return ResumeView{}, err
	}
	view := s.buildResume(txs, year, month)

	if s.resume != nil && version == s.Version(userID) {
		s.resume.Set(key, ResumeEntry{Version: version, View: view})
	}
	return view, nil
}

// MonthReport returns the month's breakdown together with the transactions
// dated in it, both built from a single read of the user's list.
func (s *TransactionService) MonthReport(ctx context.Context, userID string, year, month int) (ResumeView, []core.Transaction, error) {
	if strings.TrimSpace(userID) == "" {
		return ResumeView{}, nil, ErrMissingUser
	}
	if month < 1 || month > 12 || year < 1 || year > 9999 {
		return ResumeView{}, nil, fmt.Errorf("%w: %04d-%02d", ErrInvalidMonth, year, month)
	}
	txs, _, err := s.load(ctx, userID)
	if err != nil {
		return ResumeView{}, nil, err
	}
	return s.buildResume(txs, year, month), s.agg.InMonth(txs, year, month), nil
}

func (s *TransactionService) buildResume(txs []core.Transaction, year, month int) ResumeView {
	py, pm := format.PrevMonth(year, month)
	ny, nm := format.NextMonth(year, month)
	total := s.agg.MonthlyExpenseTotal(txs, year, month)
	return ResumeView{
		MonthRef:       MonthRef{Year: year, Month: month},
		Label:          format.MonthYear(year, month),
		Prev:           MonthRef{Year: py, Month: pm},
		Next:           MonthRef{Year: ny, Month: nm},
		Total:          total,
		TotalFormatted: format.Currency(total),
		Categories:     s.agg.MonthlyExpenseByCategory(txs, year, month, s.catalog),
	}
}

func resumePrefix(userID string) string {
	return userID + "/"
}

func resumeKey(userID string, year, month int) string {
	return fmt.Sprintf("%s%04d-%02d", resumePrefix(userID), year, month)
}
