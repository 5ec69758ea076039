package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"gofinances/internal/aggregator"
	"gofinances/internal/amqp"
	"gofinances/internal/cache"
	"gofinances/internal/storage"
	"gofinances/internal/storage/memory"
)

var errBoom = errors.New("boom")

type recordingPublisher struct {
	mu   sync.Mutex
	msgs []*amqp.TransactionCreatedMessage
	err  error
}

func (p *recordingPublisher) PublishTransactionCreated(_ context.Context, msg *amqp.TransactionCreatedMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.msgs = append(p.msgs, msg)
	return p.err
}

// failingStore reads from an embedded memory store and fails every write.
type failingStore struct {
	*memory.Store
}

func (failingStore) Set(context.Context, string, string) error { return errBoom }

// gatedStore blocks the first Get until gate is closed.
type gatedStore struct {
	*memory.Store
	once    sync.Once
	entered chan struct{}
	gate    chan struct{}
}

func (g *gatedStore) Get(ctx context.Context, key string) (string, bool, error) {
	first := false
	g.once.Do(func() { first = true })
	if first {
		close(g.entered)
		<-g.gate
	}
	return g.Store.Get(ctx, key)
}

func newService(t *testing.T, store storage.Store, pub EventPublisher) *TransactionService {
	t.Helper()
	ids := 0
	svc, err := NewTransactionService(Options{
		Store:       store,
		Aggregator:  aggregator.New(time.UTC),
		Publisher:   pub,
		ResumeCache: cache.NewLRUCache[ResumeEntry](16, time.Minute),
		Now:         func() time.Time { return time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC) },
		NewID: func() string {
			ids++
			return fmt.Sprintf("tx-%d", ids)
		},
	})
	if err != nil {
		t.Fatalf("NewTransactionService: %v", err)
	}
	return svc
}

func day(d int) time.Time {
	return time.Date(2024, 3, d, 10, 0, 0, 0, time.UTC)
}

func TestNewTransactionServiceRequiresStore(t *testing.T) {
	if _, err := NewTransactionService(Options{}); err == nil {
		t.Fatal("expected error without store")
	}
}

func TestRegisterPersistsAndPublishes(t *testing.T) {
	store := memory.New()
	pub := &recordingPublisher{}
	svc := newService(t, store, pub)
	ctx := context.Background()

	tx, err := svc.Register(ctx, "u1", RegisterInput{Name: "  Salário ", Amount: "100", Type: "positive", Category: "salary", Date: day(1)})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if tx.ID != "tx-1" || tx.Name != "Salário" || tx.Amount.Cents != 10000 {
		t.Errorf("unexpected transaction %+v", tx)
	}

	blob, found, err := store.Get(ctx, storage.TransactionsKey("u1"))
	if err != nil || !found {
		t.Fatalf("blob not stored: found=%v err=%v", found, err)
	}
	stored, err := storage.DecodeTransactions(blob)
	if err != nil || len(stored) != 1 || stored[0].ID != "tx-1" {
		t.Fatalf("stored = %+v, %v", stored, err)
	}

	if svc.Version("u1") != 1 {
		t.Errorf("version = %d, want 1", svc.Version("u1"))
	}
	if len(pub.msgs) != 1 || pub.msgs[0].TransactionID != "tx-1" || pub.msgs[0].Version != 1 {
		t.Errorf("published = %+v", pub.msgs)
	}
}

func TestRegisterDefaultsDateToNow(t *testing.T) {
	svc := newService(t, memory.New(), nil)
	tx, err := svc.Register(context.Background(), "u1", RegisterInput{Name: "Pão", Amount: "7,50", Type: "negative", Category: "food"})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if !tx.Date.Equal(time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)) {
		t.Errorf("date = %v", tx.Date)
	}
	if tx.Amount.Cents != 750 {
		t.Errorf("amount = %d", tx.Amount.Cents)
	}
}

func TestRegisterValidation(t *testing.T) {
	valid := RegisterInput{Name: "Mercado", Amount: "40", Type: "negative", Category: "food"}

	tests := []struct {
		name   string
		mutate func(*RegisterInput)
		fields map[string]string
	}{
		{
			name:   "missing type and category",
			mutate: func(in *RegisterInput) { in.Type = ""; in.Category = "" },
			fields: map[string]string{"type": "Selecione o tipo da transação", "category": "Selecione a categoria"},
		},
		{
			name:   "blank name",
			mutate: func(in *RegisterInput) { in.Name = "   " },
			fields: map[string]string{"name": "Nome é obrigatório"},
		},
		{
			name:   "missing amount",
			mutate: func(in *RegisterInput) { in.Amount = "" },
			fields: map[string]string{"amount": "Preço é obrigatório"},
		},
		{
			name:   "negative amount",
			mutate: func(in *RegisterInput) { in.Amount = "-5" },
			fields: map[string]string{"amount": "O valor deve ser um número positivo"},
		},
		{
			name:   "non numeric amount",
			mutate: func(in *RegisterInput) { in.Amount = "abc" },
			fields: map[string]string{"amount": "O valor deve ser um número positivo"},
		},
		{
			name:   "unknown type",
			mutate: func(in *RegisterInput) { in.Type = "transfer" },
			fields: map[string]string{"type": "Selecione o tipo da transação"},
		},
		{
			name:   "unknown category",
			mutate: func(in *RegisterInput) { in.Category = "crypto" },
			fields: map[string]string{"category": "Categoria desconhecida"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := memory.New()
			pub := &recordingPublisher{}
			svc := newService(t, store, pub)

			in := valid
			tt.mutate(&in)
			_, err := svc.Register(context.Background(), "u1", in)

			var ve *ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("expected *ValidationError, got %v", err)
			}
			if len(ve.Fields) != len(tt.fields) {
				t.Errorf("fields = %v, want %v", ve.Fields, tt.fields)
			}
			for k, want := range tt.fields {
				if got := ve.Fields[k]; got != want {
					t.Errorf("field %s = %q, want %q", k, got, want)
				}
			}
			if store.Len() != 0 {
				t.Error("store written despite validation error")
			}
			if len(pub.msgs) != 0 {
				t.Error("event published despite validation error")
			}
		})
	}
}

func TestRegisterRequiresUser(t *testing.T) {
	svc := newService(t, memory.New(), nil)
	_, err := svc.Register(context.Background(), " ", RegisterInput{})
	if !errors.Is(err, ErrMissingUser) {
		t.Fatalf("err = %v, want ErrMissingUser", err)
	}
}

func TestRegisterPersistFailure(t *testing.T) {
	store := failingStore{memory.New()}
	pub := &recordingPublisher{}
	svc := newService(t, store, pub)

	_, err := svc.Register(context.Background(), "u1", RegisterInput{Name: "Cinema", Amount: "30", Type: "negative", Category: "leisure"})
	if !errors.Is(err, ErrPersist) {
		t.Fatalf("err = %v, want ErrPersist", err)
	}
	if !errors.Is(err, errBoom) {
		t.Errorf("cause not preserved: %v", err)
	}
	if IsValidationError(err) {
		t.Error("persist failure reported as validation error")
	}
	if store.Len() != 0 {
		t.Error("store changed after failed write")
	}
	if svc.Version("u1") != 0 {
		t.Error("version bumped after failed write")
	}
	if len(pub.msgs) != 0 {
		t.Error("event published after failed write")
	}
}

func TestRegisterRefusesToOverwriteMalformedBlob(t *testing.T) {
	store := memory.New()
	ctx := context.Background()
	key := storage.TransactionsKey("u1")
	if err := store.Set(ctx, key, "{not json"); err != nil {
		t.Fatal(err)
	}
	svc := newService(t, store, nil)

	_, err := svc.Register(ctx, "u1", RegisterInput{Name: "Livro", Amount: "50", Type: "negative", Category: "studies"})
	if !errors.Is(err, ErrPersist) || !errors.Is(err, storage.ErrMalformed) {
		t.Fatalf("err = %v", err)
	}
	blob, _, _ := store.Get(ctx, key)
	if blob != "{not json" {
		t.Errorf("blob overwritten: %q", blob)
	}
}

func TestRegisterPublishFailureIsNotFatal(t *testing.T) {
	pub := &recordingPublisher{err: errBoom}
	svc := newService(t, memory.New(), pub)

	if _, err := svc.Register(context.Background(), "u1", RegisterInput{Name: "Gasolina", Amount: "200", Type: "negative", Category: "car"}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if len(pub.msgs) != 1 {
		t.Errorf("publish attempts = %d", len(pub.msgs))
	}
}

func TestRegisterConcurrentSameUser(t *testing.T) {
	store := memory.New()
	svc, err := NewTransactionService(Options{Store: store})
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	const n = 20
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Register(ctx, "u1", RegisterInput{Name: "Café", Amount: "5", Type: "negative", Category: "food"})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("Register: %v", err)
		}
	}

	txs, err := svc.Transactions(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if len(txs) != n {
		t.Errorf("stored %d transactions, want %d", len(txs), n)
	}
	if svc.Version("u1") != n {
		t.Errorf("version = %d, want %d", svc.Version("u1"), n)
	}
}

func TestDashboard(t *testing.T) {
	svc := newService(t, memory.New(), nil)
	ctx := context.Background()

	inputs := []RegisterInput{
		{Name: "Salário", Amount: "100", Type: "positive", Category: "salary", Date: day(1)},
		{Name: "Mercado", Amount: "40", Type: "negative", Category: "food", Date: day(5)},
	}
	for _, in := range inputs {
		if _, err := svc.Register(ctx, "u1", in); err != nil {
			t.Fatalf("Register: %v", err)
		}
	}

	view, err := svc.Dashboard(ctx, "u1")
	if err != nil {
		t.Fatalf("Dashboard: %v", err)
	}
	if got := view.Highlights.Total.AmountFormatted; got != "R$ 60,00" {
		t.Errorf("total = %q", got)
	}
	if got := view.Highlights.Expensives.LastTransactionLabel; got != "Última saída dia 5 de março" {
		t.Errorf("expensives label = %q", got)
	}
	if len(view.Transactions) != 2 || view.Transactions[1].Amount != "R$ 40,00" {
		t.Errorf("transactions = %+v", view.Transactions)
	}
}

func TestDashboardEmptyAndMalformed(t *testing.T) {
	store := memory.New()
	svc := newService(t, store, nil)
	ctx := context.Background()

	view, err := svc.Dashboard(ctx, "nobody")
	if err != nil {
		t.Fatalf("Dashboard: %v", err)
	}
	if view.Highlights.Entries.LastTransactionLabel != "Não há transações" || len(view.Transactions) != 0 {
		t.Errorf("unexpected empty view %+v", view)
	}

	if err := store.Set(ctx, storage.TransactionsKey("u2"), "garbage"); err != nil {
		t.Fatal(err)
	}
	view, err = svc.Dashboard(ctx, "u2")
	if err != nil {
		t.Fatalf("Dashboard on malformed blob: %v", err)
	}
	if len(view.Transactions) != 0 {
		t.Errorf("transactions = %+v", view.Transactions)
	}
}

func TestResume(t *testing.T) {
	svc := newService(t, memory.New(), nil)
	ctx := context.Background()

	inputs := []RegisterInput{
		{Name: "Mercado", Amount: "30", Type: "negative", Category: "food", Date: day(2)},
		{Name: "Uber", Amount: "10", Type: "negative", Category: "car", Date: day(3)},
		{Name: "Salário", Amount: "1000", Type: "positive", Category: "salary", Date: day(1)},
		{Name: "Fevereiro", Amount: "99", Type: "negative", Category: "food", Date: time.Date(2024, 2, 20, 0, 0, 0, 0, time.UTC)},
	}
	for _, in := range inputs {
		if _, err := svc.Register(ctx, "u1", in); err != nil {
			t.Fatalf("Register: %v", err)
		}
	}

	view, err := svc.Resume(ctx, "u1", 2024, 3)
	if err != nil {
		t.Fatalf("Resume: %v", err)
	}
	if view.Label != "março, 2024" {
		t.Errorf("label = %q", view.Label)
	}
	if view.Prev != (MonthRef{Year: 2024, Month: 2}) || view.Next != (MonthRef{Year: 2024, Month: 4}) {
		t.Errorf("navigation = %+v / %+v", view.Prev, view.Next)
	}
	if view.TotalFormatted != "R$ 40,00" {
		t.Errorf("total = %q", view.TotalFormatted)
	}
	if len(view.Categories) != 2 {
		t.Fatalf("categories = %+v", view.Categories)
	}
	for _, c := range view.Categories {
		switch c.Key {
		case "food":
			if c.PercentFormatted != "75%" {
				t.Errorf("food = %q", c.PercentFormatted)
			}
		case "car":
			if c.PercentFormatted != "25%" {
				t.Errorf("car = %q", c.PercentFormatted)
			}
		default:
			t.Errorf("unexpected category %q", c.Key)
		}
	}
}

func TestResumeYearBoundaries(t *testing.T) {
	svc := newService(t, memory.New(), nil)
	view, err := svc.Resume(context.Background(), "u1", 2024, 12)
	if err != nil {
		t.Fatalf("Resume: %v", err)
	}
	if view.Next != (MonthRef{Year: 2025, Month: 1}) {
		t.Errorf("next = %+v", view.Next)
	}
	if view.Categories == nil || len(view.Categories) != 0 {
		t.Errorf("categories = %#v, want empty non-nil", view.Categories)
	}
}

func TestResumeInvalidMonth(t *testing.T) {
	svc := newService(t, memory.New(), nil)
	for _, m := range []int{0, 13, -1} {
		if _, err := svc.Resume(context.Background(), "u1", 2024, m); !errors.Is(err, ErrInvalidMonth) {
			t.Errorf("month %d: err = %v", m, err)
		}
	}
}

func TestResumeCacheInvalidatedOnRegister(t *testing.T) {
	resume := cache.NewLRUCache[ResumeEntry](16, time.Minute)
	svc, err := NewTransactionService(Options{Store: memory.New(), ResumeCache: resume, Aggregator: aggregator.New(time.UTC)})
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	if _, err := svc.Resume(ctx, "u1", 2024, 3); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Resume(ctx, "u1", 2024, 3); err != nil {
		t.Fatal(err)
	}
	if hits := resume.Stats().Hits; hits != 1 {
		t.Errorf("hits = %d, want 1", hits)
	}

	if _, err := svc.Register(ctx, "u1", RegisterInput{Name: "Mercado", Amount: "40", Type: "negative", Category: "food", Date: day(5)}); err != nil {
		t.Fatal(err)
	}
	if resume.Size() != 0 {
		t.Errorf("cache not invalidated, size = %d", resume.Size())
	}

	view, err := svc.Resume(ctx, "u1", 2024, 3)
	if err != nil {
		t.Fatal(err)
	}
	if view.TotalFormatted != "R$ 40,00" {
		t.Errorf("total after register = %q", view.TotalFormatted)
	}
}

func TestResumeStaleComputationIsNotCached(t *testing.T) {
	mem := memory.New()
	store := &gatedStore{Store: mem, entered: make(chan struct{}), gate: make(chan struct{})}
	resume := cache.NewLRUCache[ResumeEntry](16, time.Minute)
	svc, err := NewTransactionService(Options{Store: store, ResumeCache: resume, Aggregator: aggregator.New(time.UTC)})
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	done := make(chan ResumeView, 1)
	go func() {
		v, err := svc.Resume(ctx, "u1", 2024, 3)
		if err != nil {
			t.Errorf("Resume: %v", err)
		}
		done <- v
	}()

	<-store.entered
	if _, err := svc.Register(ctx, "u1", RegisterInput{Name: "Mercado", Amount: "40", Type: "negative", Category: "food", Date: day(5)}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	close(store.gate)
	<-done

	if resume.Size() != 0 {
		t.Fatalf("stale result cached, size = %d", resume.Size())
	}
	fresh, err := svc.Resume(ctx, "u1", 2024, 3)
	if err != nil {
		t.Fatal(err)
	}
	if fresh.TotalFormatted != "R$ 40,00" {
		t.Errorf("fresh total = %q", fresh.TotalFormatted)
	}
}

func TestMonthReport(t *testing.T) {
	svc := newService(t, memory.New(), nil)
	ctx := context.Background()
	if _, err := svc.Register(ctx, "u1", RegisterInput{Name: "Mercado", Amount: "40", Type: "negative", Category: "food", Date: day(5)}); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Register(ctx, "u1", RegisterInput{Name: "Antigo", Amount: "1", Type: "negative", Category: "food", Date: day(5).AddDate(-1, 0, 0)}); err != nil {
		t.Fatal(err)
	}

	view, txs, err := svc.MonthReport(ctx, "u1", 2024, 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(txs) != 1 || txs[0].Name != "Mercado" {
		t.Errorf("txs = %+v", txs)
	}
	if view.TotalFormatted != "R$ 40,00" || len(view.Categories) != 1 {
		t.Errorf("view = %+v", view)
	}
	if _, _, err := svc.MonthReport(ctx, "u1", 2024, 13); !errors.Is(err, ErrInvalidMonth) {
		t.Errorf("expected ErrInvalidMonth, got %v", err)
	}
}

func TestLoadSurvivesCancelledCaller(t *testing.T) {
	mem := memory.New()
	seed := newService(t, mem, nil)
	if _, err := seed.Register(context.Background(), "u1", RegisterInput{Name: "Mercado", Amount: "40", Type: "negative", Category: "food", Date: day(5)}); err != nil {
		t.Fatalf("Register: %v", err)
	}

	store := &gatedStore{Store: mem, entered: make(chan struct{}), gate: make(chan struct{})}
	svc, err := NewTransactionService(Options{Store: store, Aggregator: aggregator.New(time.UTC)})
	if err != nil {
		t.Fatal(err)
	}

	cancelled, cancel := context.WithCancel(context.Background())
	errA := make(chan error, 1)
	go func() {
		_, err := svc.Dashboard(cancelled, "u1")
		errA <- err
	}()
	<-store.entered

	type result struct {
		view DashboardView
		err  error
	}
	resB := make(chan result, 1)
	go func() {
		v, err := svc.Dashboard(context.Background(), "u1")
		resB <- result{v, err}
	}()

	cancel()
	if err := <-errA; !errors.Is(err, context.Canceled) || !errors.Is(err, ErrLoad) {
		t.Fatalf("cancelled caller: expected ErrLoad wrapping context.Canceled, got %v", err)
	}
	time.Sleep(20 * time.Millisecond)
	close(store.gate)

	b := <-resB
	if b.err != nil {
		t.Fatalf("live caller failed: %v", b.err)
	}
	if len(b.view.Transactions) != 1 {
		t.Fatalf("live caller got %d transactions", len(b.view.Transactions))
	}
}

func TestWriteLocksReleased(t *testing.T) {
	svc, err := NewTransactionService(Options{Store: memory.New(), Aggregator: aggregator.New(time.UTC)})
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			user := fmt.Sprintf("u%d", i%4)
			if _, err := svc.Register(ctx, user, RegisterInput{Name: "Café", Amount: "5", Type: "negative", Category: "food", Date: day(5)}); err != nil {
				t.Errorf("Register: %v", err)
			}
		}(i)
	}
	wg.Wait()

	if n := svc.lockedUsers(); n != 0 {
		t.Fatalf("expected no idle user locks, got %d", n)
	}
	if v := svc.Version("u0"); v != 5 {
		t.Fatalf("u0 version = %d, want 5", v)
	}
}
