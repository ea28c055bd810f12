// Package state holds the whole household data set and moves it to and from a BlobStore.
package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"financas/internal/core"
	"financas/internal/events"
	"financas/internal/log"
	"financas/internal/storage"
	"financas/internal/taxonomy"
)

// Storage keys, one JSON array per collection.
const (
	KeyTransactions      = "financial-transactions"
	KeyDebts             = "financial-dividas"
	KeyInvestments       = "financial-investments"
	KeyInvestmentReturns = "financial-investment-returns"
	KeyCategories        = "financial-categories"
	KeyAccounts          = "financial-accounts"
	KeyBudget            = "financial-budget"
	KeyDebtPayments      = "debt-payments"
)

// State is the application data set. Components receive the collections they need
// and return new ones; the service layer swaps them in.
type State struct {
	Transactions      []core.Transaction
	Debts             []core.Debt
	Investments       []core.Investment
	InvestmentReturns []core.InvestmentReturnEvent
	Categories        []core.Category
	Accounts          []core.Account
	BudgetItems       []core.BudgetItem
	// DebtPayments is the history of payment events received, oldest first.
	DebtPayments []events.DebtPayment
}

// New returns an empty data set seeded with the default taxonomy and account.
func New() *State {
	return &State{
		Transactions:      []core.Transaction{},
		Debts:             []core.Debt{},
		Investments:       []core.Investment{},
		InvestmentReturns: []core.InvestmentReturnEvent{},
		Categories:        taxonomy.DefaultCategories(),
		Accounts:          taxonomy.DefaultAccounts(),
		BudgetItems:       []core.BudgetItem{},
		DebtPayments:      []events.DebtPayment{},
	}
}

// Clone returns a copy whose slices can be modified independently.
func (s *State) Clone() *State {
	c := *s
	c.Transactions = append([]core.Transaction(nil), s.Transactions...)
	c.Debts = append([]core.Debt(nil), s.Debts...)
	c.Investments = append([]core.Investment(nil), s.Investments...)
	c.InvestmentReturns = append([]core.InvestmentReturnEvent(nil), s.InvestmentReturns...)
	c.Categories = append([]core.Category(nil), s.Categories...)
	c.Accounts = append([]core.Account(nil), s.Accounts...)
	c.BudgetItems = append([]core.BudgetItem(nil), s.BudgetItems...)
	c.DebtPayments = append([]events.DebtPayment(nil), s.DebtPayments...)
	return &c
}

// RecordPayment appends p to the history unless an entry with the same debt and
// timestamp is already there. It reports whether p was new.
func (s *State) RecordPayment(p events.DebtPayment) bool {
	for _, seen := range s.DebtPayments {
		if seen.DebtID == p.DebtID && seen.Timestamp.Equal(p.Timestamp) {
			return false
		}
	}
	s.DebtPayments = append(s.DebtPayments, p)
	return true
}

// Load reads every collection from store. Missing keys leave the defaults from New,
// so a fresh store starts with the starter taxonomy and account.
func Load(ctx context.Context, store storage.BlobStore) (*State, error) {
	logger := log.For(log.ComponentState)
	s := New()

	targets := []struct {
		key string
		dst any
	}{
		{KeyTransactions, &s.Transactions},
		{KeyDebts, &s.Debts},
		{KeyInvestments, &s.Investments},
		{KeyInvestmentReturns, &s.InvestmentReturns},
		{KeyCategories, &s.Categories},
		{KeyAccounts, &s.Accounts},
		{KeyBudget, &s.BudgetItems},
		{KeyDebtPayments, &s.DebtPayments},
	}
	loaded := 0
	for _, t := range targets {
		ok, err := loadKey(ctx, store, t.key, t.dst)
		if err != nil {
			return nil, err
		}
		if ok {
			loaded++
		}
	}

	if len(s.Categories) == 0 {
		s.Categories = taxonomy.DefaultCategories()
	}
	if len(s.Accounts) == 0 {
		s.Accounts = taxonomy.DefaultAccounts()
	}

	logger.DebugContext(ctx, "State loaded", log.FieldOperation, log.OpLoad, log.FieldCount, loaded,
		"transactions", len(s.Transactions), "debts", len(s.Debts), "investments", len(s.Investments))
	return s, nil
}

func loadKey(ctx context.Context, store storage.BlobStore, key string, dst any) (bool, error) {
	raw, err := store.Get(ctx, key)
	if errors.Is(err, storage.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("load %s: %w", key, err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

// Save writes every collection to store atomically.
func Save(ctx context.Context, store storage.BlobStore, s *State) error {
	values := map[string]any{
		KeyTransactions:      nonNil(s.Transactions),
		KeyDebts:             nonNil(s.Debts),
		KeyInvestments:       nonNil(s.Investments),
		KeyInvestmentReturns: nonNil(s.InvestmentReturns),
		KeyCategories:        nonNil(s.Categories),
		KeyAccounts:          nonNil(s.Accounts),
		KeyBudget:            nonNil(s.BudgetItems),
		KeyDebtPayments:      nonNil(s.DebtPayments),
	}
	entries := make(map[string][]byte, len(values))
	for key, v := range values {
		raw, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("encode %s: %w", key, err)
		}
		entries[key] = raw
	}
	if err := store.PutAll(ctx, entries); err != nil {
		return fmt.Errorf("save state: %w", err)
	}
	log.For(log.ComponentState).DebugContext(ctx, "State saved", log.FieldOperation, log.OpSave, log.FieldCount, len(entries))
	return nil
}

// nonNil keeps empty collections encoded as [] instead of null.
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
