package storage

import (
	"errors"
	"strings"
	"testing"
	"time"

	"gofinances/internal/core"
)

func TestDecodeTransactions(t *testing.T) {
	blob := `[
		{"id":"1","name":"Salário","amount":"100","type":"positive","category":"salary","date":"2024-01-05T12:00:00.000Z"},
		{"id":"2","name":"Mercado","amount":40.5,"type":"negative","category":"food","date":"2024-01-10T15:30:00Z"}
	]`
	txs, err := DecodeTransactions(blob)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(txs) != 2 {
		t.Fatalf("expected 2 transactions, got %d", len(txs))
	}
	if txs[0].Amount.Cents != 10000 || txs[0].Type != core.Positive {
		t.Errorf("unexpected first transaction: %+v", txs[0])
	}
	if txs[1].Amount.Cents != 4050 || txs[1].Category != "food" {
		t.Errorf("unexpected second transaction: %+v", txs[1])
	}
	if !txs[0].Date.Equal(time.Date(2024, 1, 5, 12, 0, 0, 0, time.UTC)) {
		t.Errorf("unexpected date: %v", txs[0].Date)
	}
}

func TestDecodeTransactionsEmpty(t *testing.T) {
	for _, blob := range []string{"", "  ", "[]"} {
		txs, err := DecodeTransactions(blob)
		if err != nil || txs == nil || len(txs) != 0 {
			t.Errorf("DecodeTransactions(%q) = %v, %v", blob, txs, err)
		}
	}
}

func TestDecodeTransactionsMalformed(t *testing.T) {
	for _, blob := range []string{"{", `{"id":"1"}`, "null garbage", `[{"amount":"abc"}]`} {
		txs, err := DecodeTransactions(blob)
		if !errors.Is(err, ErrMalformed) {
			t.Errorf("DecodeTransactions(%q) error = %v, want ErrMalformed", blob, err)
		}
		if txs == nil || len(txs) != 0 {
			t.Errorf("DecodeTransactions(%q) = %v, want empty list", blob, txs)
		}
	}
}

func TestDecodeTransactionsDropsNegativeAmounts(t *testing.T) {
	blob := `[
		{"id":"1","name":"a","amount":"-5","type":"negative","category":"food","date":"2024-01-05T00:00:00Z"},
		{"id":"2","name":"b","amount":"5","type":"negative","category":"food","date":"2024-01-05T00:00:00Z"}
	]`
	txs, err := DecodeTransactions(blob)
	if !errors.Is(err, ErrMalformed) {
		t.Fatalf("expected ErrMalformed, got %v", err)
	}
	if len(txs) != 1 || txs[0].ID != "2" {
		t.Fatalf("expected only the valid record, got %+v", txs)
	}
}

func TestEncodeDecode(t *testing.T) {
	in := []core.Transaction{{
		ID:       "abc",
		Name:     "Cinema",
		Amount:   core.Money{Cents: 3550},
		Type:     core.Negative,
		Category: "leisure",
		Date:     time.Date(2024, 3, 2, 20, 0, 0, 0, time.UTC),
	}}
	blob, err := EncodeTransactions(in)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if !strings.Contains(blob, `"amount":"35.5"`) {
		t.Errorf("amount should be stored as text: %s", blob)
	}
	out, err := DecodeTransactions(blob)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("expected 1 transaction, got %d", len(out))
	}
	got, want := out[0], in[0]
	if !got.Date.Equal(want.Date) {
		t.Errorf("date = %v, want %v", got.Date, want.Date)
	}
	got.Date, want.Date = time.Time{}, time.Time{}
	if got != want {
		t.Errorf("round trip mismatch: %+v", got)
	}
}

func TestKeys(t *testing.T) {
	key := TransactionsKey("42")
	if key != "@gofinances:transactions_user:42" {
		t.Fatalf("key = %q", key)
	}
	if id, ok := UserFromKey(key); !ok || id != "42" {
		t.Fatalf("UserFromKey = %q, %v", id, ok)
	}
	if _, ok := UserFromKey("other"); ok {
		t.Fatal("unexpected match")
	}
}
