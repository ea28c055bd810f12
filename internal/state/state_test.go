package state

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"financas/internal/core"
	"financas/internal/events"
	"financas/internal/storage"
)

func TestLoadEmptyStoreSeedsDefaults(t *testing.T) {
	s, err := Load(context.Background(), storage.NewMemoryStore())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(s.Categories) == 0 {
		t.Error("expected default categories")
	}
	if len(s.Accounts) != 1 {
		t.Errorf("accounts = %d, want the default one", len(s.Accounts))
	}
	if s.Transactions == nil || s.Debts == nil {
		t.Error("collections should be empty, not nil")
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()

	s := New()
	s.Debts = append(s.Debts, core.Debt{
		ID:                    "debt-1",
		Creditor:              "Banco",
		Balance:               decimal.RequireFromString("1500.50"),
		InterestRate:          decimal.RequireFromString("1.99"),
		RemainingInstallments: 10,
		StartDate:             core.NewDate(2024, time.March, 10),
		Status:                core.DebtCurrent,
		LastCapitalized:       core.NewPeriod(2024, 5),
	})
	s.Transactions = append(s.Transactions, core.Transaction{
		ID: "tx-1", Description: "Parcela", Amount: decimal.NewFromInt(300),
		Type: core.Expense, Category: core.CategoryDebt, Account: "Conta Principal",
		Date: core.NewDate(2024, time.June, 5), Month: 6, Year: 2024, LinkedDebtID: "debt-1",
	})
	if err := Save(ctx, store, s); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	raw, err := store.Get(ctx, KeyDebts)
	if err != nil {
		t.Fatalf("Get(%s) error = %v", KeyDebts, err)
	}
	for _, field := range []string{`"credor":"Banco"`, `"saldoDevedor":1500.5`, `"lastCapitalizedPeriod":"2024-05"`} {
		if !strings.Contains(string(raw), field) {
			t.Errorf("stored debts %s missing %s", raw, field)
		}
	}
	if empty, _ := store.Get(ctx, KeyInvestments); string(empty) != "[]" {
		t.Errorf("empty collection stored as %s, want []", empty)
	}

	got, err := Load(ctx, store)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(got.Debts) != 1 || !got.Debts[0].Balance.Equal(s.Debts[0].Balance) {
		t.Fatalf("debts = %+v", got.Debts)
	}
	if got.Debts[0].LastCapitalized != core.NewPeriod(2024, 5) {
		t.Errorf("LastCapitalized = %v", got.Debts[0].LastCapitalized)
	}
	if got.Transactions[0].LinkedDebtID != "debt-1" {
		t.Errorf("LinkedDebtID lost: %+v", got.Transactions[0])
	}
	if got.Categories[0].ID != s.Categories[0].ID {
		t.Error("stored categories should replace the defaults")
	}
}

func TestLoadRejectsCorruptCollection(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	_ = store.Put(ctx, KeyDebts, []byte(`{not json`))

	_, err := Load(ctx, store)
	if err == nil || !strings.Contains(err.Error(), KeyDebts) {
		t.Fatalf("Load() error = %v, want one naming %s", err, KeyDebts)
	}
}

func TestRecordPayment(t *testing.T) {
	s := New()
	ts := time.Date(2024, time.June, 5, 10, 0, 0, 0, time.UTC)
	p := events.DebtPayment{DebtID: "debt-1", Amount: decimal.NewFromInt(100), Timestamp: ts}

	if !s.RecordPayment(p) {
		t.Fatal("first RecordPayment() should report true")
	}
	if s.RecordPayment(p) {
		t.Error("duplicate RecordPayment() should report false")
	}
	p.Timestamp = ts.Add(time.Minute)
	if !s.RecordPayment(p) {
		t.Error("later payment should be recorded")
	}
	if len(s.DebtPayments) != 2 {
		t.Errorf("history = %d entries, want 2", len(s.DebtPayments))
	}
}

func TestCloneIsIndependent(t *testing.T) {
	s := New()
	c := s.Clone()
	c.Accounts[0].Name = "Outra"
	c.Debts = append(c.Debts, core.Debt{ID: "x"})

	if s.Accounts[0].Name == "Outra" {
		t.Error("Clone shares the accounts backing array")
	}
	if len(s.Debts) != 0 {
		t.Error("Clone shares the debts slice")
	}
}
