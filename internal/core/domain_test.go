package core

import (
	"testing"
	"time"
)

func TestMoneyValidate(t *testing.T) {
	if err := (Money{Cents: 1}).Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if err := (Money{Cents: 0}).Validate(); err == nil {
		t.Fatalf("expected error for zero")
	}
}

func TestTransactionValidate(t *testing.T) {
	good := Transaction{
		ID:       "1",
		Name:     "Salário",
		Amount:   Money{Cents: 100},
		Type:     Positive,
		Category: "salary",
		Date:     time.Date(2024, 1, 5, 10, 0, 0, 0, time.UTC),
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	mutate := func(f func(*Transaction)) Transaction {
		tx := good
		f(&tx)
		return tx
	}
	bads := []Transaction{
		mutate(func(tx *Transaction) { tx.ID = "" }),
		mutate(func(tx *Transaction) { tx.Name = "  " }),
		mutate(func(tx *Transaction) { tx.Amount = Money{} }),
		mutate(func(tx *Transaction) { tx.Type = "sideways" }),
		mutate(func(tx *Transaction) { tx.Category = "" }),
		mutate(func(tx *Transaction) { tx.Date = time.Time{} }),
	}
	for i, tx := range bads {
		if err := tx.Validate(); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestTransactionInMonth(t *testing.T) {
	sp, err := time.LoadLocation("America/Sao_Paulo")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	// 02:00 UTC on Feb 1st is still January 31st in São Paulo.
	tx := Transaction{Date: time.Date(2024, 2, 1, 2, 0, 0, 0, time.UTC)}
	if !tx.InMonth(2024, 1, sp) {
		t.Fatalf("expected January in São Paulo")
	}
	if !tx.InMonth(2024, 2, time.UTC) {
		t.Fatalf("expected February in UTC")
	}
	if tx.InMonth(2023, 2, time.UTC) {
		t.Fatalf("year must match too")
	}
}

func TestCatalogLookup(t *testing.T) {
	c := DefaultCatalog()
	if err := c.Validate(); err != nil {
		t.Fatalf("default catalog invalid: %v", err)
	}
	food, ok := c.Lookup("food")
	if !ok || food.Name != "Alimentação" {
		t.Fatalf("unexpected lookup: %+v ok=%v", food, ok)
	}
	if c.Contains("category") {
		t.Fatalf("placeholder key must not be a category")
	}
	if keys := c.Keys(); len(keys) != len(c) || keys[0] != "purchases" {
		t.Fatalf("unexpected keys: %v", keys)
	}
}

func TestParseCatalog(t *testing.T) {
	data := []byte(`
categories:
  - key: food
    name: Comida
    color: "#FF872C"
  - key: transport
    name: Transporte
    color: "#000000"
`)
	c, err := ParseCatalog(data)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(c) != 2 || c[1].Key != "transport" || c[0].Color != "#FF872C" {
		t.Fatalf("unexpected catalog: %+v", c)
	}

	if _, err := ParseCatalog([]byte("categories:\n  - key: a\n    name: A\n  - key: a\n    name: B\n")); err == nil {
		t.Fatalf("expected duplicate key error")
	}
	if _, err := ParseCatalog([]byte("categories: []\n")); err == nil {
		t.Fatalf("expected empty catalog error")
	}
}

func TestParseCatalogTrimsKeys(t *testing.T) {
	c, err := ParseCatalog([]byte("categories:\n  - key: \" food \"\n    name: \" Comida\"\n"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !c.Contains("food") || c[0].Name != "Comida" {
		t.Fatalf("keys must be stored trimmed: %+v", c)
	}
	if _, err := ParseCatalog([]byte("categories:\n  - key: food\n    name: A\n  - key: \"food \"\n    name: B\n")); err == nil {
		t.Fatalf("expected duplicate key error after trimming")
	}
}

func TestLoadCatalogDefault(t *testing.T) {
	c, err := LoadCatalog("")
	if err != nil || len(c) != len(DefaultCatalog()) {
		t.Fatalf("expected default catalog, got %v (err=%v)", c, err)
	}
	if _, err := LoadCatalog(t.TempDir() + "/missing.yaml"); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
