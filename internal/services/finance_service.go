// Package services composes the domain packages into the operations the binaries run.
package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"github.com/shopspring/decimal"

	"financas/internal/core"
	"financas/internal/events"
	"financas/internal/ledger"
	"financas/internal/log"
	"financas/internal/portfolio"
	"financas/internal/state"
	"financas/internal/storage"
	"financas/internal/taxonomy"
)

const (
	DefaultCacheExpiration = 15 * time.Minute
	CacheCleanupInterval   = 30 * time.Minute
)

var (
	ErrNotFound      = errors.New("not found")
	ErrImmutableType = errors.New("type of a debt payment cannot change")
	ErrFixedIncome   = errors.New("returns are only recorded for variable income holdings")
)

// FinanceOptions configures a FinanceService.
type FinanceOptions struct {
	Ledger ledger.Options
	// Publisher receives debt payment events after they are saved. May be nil.
	Publisher events.Publisher
}

// FinanceService owns the application state and is the only writer to the store.
// Every mutation works on a copy that replaces the current state once saved.
type FinanceService struct {
	mu       sync.Mutex
	store    storage.BlobStore
	state    *state.State
	working  *state.State
	outbox   []events.DebtPayment
	revision uint64

	ledger      *ledger.Ledger
	flows       portfolio.Flows
	bus         *events.Bus
	subscribers *events.Bus
	publisher   events.Publisher
	outbound    events.Fanout
	reports   *cache.Cache
	now       func() time.Time
	logger    *log.Logger
}

// NewFinanceService loads the state from store.
func NewFinanceService(ctx context.Context, store storage.BlobStore, opts FinanceOptions) (*FinanceService, error) {
	st, err := state.Load(ctx, store)
	if err != nil {
		return nil, fmt.Errorf("load state: %w", err)
	}
	s := &FinanceService{
		store:       store,
		state:       st,
		bus:         events.NewBus(),
		subscribers: events.NewBus(),
		publisher:   opts.Publisher,
		flows:       portfolio.Flows{LegacyLabelMatching: opts.Ledger.LegacyLabelMatching},
		reports:     cache.New(DefaultCacheExpiration, CacheCleanupInterval),
		now:         time.Now,
		logger:      log.For(log.ComponentService),
	}
	s.outbound = events.Fanout{opts.Publisher, s.subscribers}
	s.ledger = ledger.New(s.bus, opts.Ledger)
	s.bus.Subscribe(s.onDebtPayment)
	return s, nil
}

// Subscribe registers h for debt payments made through this service. Handlers run
// after the payment is saved, outside the service lock, so they may read the service.
func (s *FinanceService) Subscribe(h events.Handler) (unsubscribe func()) {
	return s.subscribers.Subscribe(h)
}

// onDebtPayment runs inside a mutation, with s.mu held.
func (s *FinanceService) onDebtPayment(_ context.Context, p events.DebtPayment) error {
	target := s.working
	if target == nil {
		return errors.New("debt payment outside a state change")
	}
	if target.RecordPayment(p) {
		s.outbox = append(s.outbox, p)
	}
	return nil
}

// Snapshot returns a copy of the current state.
func (s *FinanceService) Snapshot() *state.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// Reload replaces the in-memory state with the stored one.
func (s *FinanceService) Reload(ctx context.Context) error {
	st, err := state.Load(ctx, s.store)
	if err != nil {
		return fmt.Errorf("reload state: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = st
	s.revision++
	return nil
}

func (s *FinanceService) mutate(ctx context.Context, op string, fn func(next *state.State) error) error {
	s.mu.Lock()
	saved, err := s.mutateLocked(ctx, op, fn)
	s.mu.Unlock()

	for _, p := range saved {
		s.publish(ctx, p)
	}
	return err
}

// mutateLocked returns the debt payments recorded by fn once they are saved.
func (s *FinanceService) mutateLocked(ctx context.Context, op string, fn func(next *state.State) error) ([]events.DebtPayment, error) {
	next := s.state.Clone()
	s.working = next
	s.outbox = nil
	defer func() {
		s.working = nil
		s.outbox = nil
	}()

	if err := fn(next); err != nil {
		return nil, err
	}
	if err := state.Save(ctx, s.store, next); err != nil {
		s.logger.ErrorContext(ctx, "Failed to save state", log.FieldOperation, op, log.FieldError, err)
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.state = next
	s.revision++
	return s.outbox, nil
}

// publish runs without s.mu held.
func (s *FinanceService) publish(ctx context.Context, p events.DebtPayment) {
	s.logger.InfoContext(ctx, "Debt payment applied", log.NewFields().WithOperation(log.OpPay).WithDebt(p.DebtID, p.Amount.String()).ToSlice()...)
	if s.publisher == nil {
		s.logger.WarnContext(ctx, "Event publisher not available, skipping debt payment event", log.FieldDebtID, p.DebtID)
	}
	if err := s.outbound.PublishDebtPayment(ctx, p); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish debt payment event", log.FieldDebtID, p.DebtID, log.FieldError, err)
	}
}

func (s *FinanceService) currentPeriod() core.Period {
	return core.PeriodOf(s.now())
}

// runCycle applies the monthly debt cycle for the current month to next.
func (s *FinanceService) runCycle(next *state.State) {
	next.Debts = s.ledger.ApplyMonthlyCapitalizationAndStatus(next.Debts, next.Transactions, s.currentPeriod())
}

// ApproveImport books reviewed statement rows under account and period. The account
// is created when unknown. Rows that fail validation are skipped and logged.
func (s *FinanceService) ApproveImport(ctx context.Context, pending []core.PendingTransaction, account string, period core.Period) ([]core.Transaction, error) {
	if err := period.Validate(); err != nil {
		return nil, err
	}
	var approved []core.Transaction
	err := s.mutate(ctx, log.OpApprove, func(next *state.State) error {
		accounts, acc, err := taxonomy.AddAccount(next.Accounts, account)
		if err != nil {
			return err
		}
		next.Accounts = accounts

		v := taxonomy.NewValidator(next.Categories)
		for _, p := range pending {
			tx := p.Approve(newID("transaction"), acc.Name, period)
			if err := tx.Validate(); err != nil {
				s.logger.WarnContext(ctx, "Skipping invalid pending transaction", "pending_id", p.ID, log.FieldError, err)
				continue
			}
			s.checkCategory(ctx, v, tx)
			next.Transactions = append(next.Transactions, tx)
			approved = append(approved, tx)
		}
		s.runCycle(next)
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "Import approved", log.FieldCount, len(approved), log.FieldPeriod, period.String())
	return approved, nil
}

// AddTransaction books a manual transaction. A debt link pays that debt.
func (s *FinanceService) AddTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	if tx.ID == "" {
		tx.ID = newID("transaction")
	}
	if tx.Month == 0 && tx.Year == 0 {
		p := tx.Date.Period()
		tx.Month, tx.Year = int(p.Month), p.Year
	}
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, fmt.Errorf("invalid transaction: %w", err)
	}
	err := s.mutate(ctx, log.OpCreate, func(next *state.State) error {
		s.checkCategory(ctx, taxonomy.NewValidator(next.Categories), tx)
		next.Transactions = append(next.Transactions, tx)
		if tx.LinkedDebtID != "" {
			s.payLinkedDebt(ctx, next, tx)
		}
		s.runCycle(next)
		return nil
	})
	if err != nil {
		return core.Transaction{}, err
	}
	return tx, nil
}

// UpdateTransaction replaces a transaction. Linking it to a debt it was not linked to
// before processes the payment; a transaction linked to a debt keeps its type.
func (s *FinanceService) UpdateTransaction(ctx context.Context, tx core.Transaction) error {
	if err := tx.Validate(); err != nil {
		return fmt.Errorf("invalid transaction: %w", err)
	}
	return s.mutate(ctx, log.OpUpdate, func(next *state.State) error {
		i := transactionIndex(next.Transactions, tx.ID)
		if i < 0 {
			return fmt.Errorf("transaction %s: %w", tx.ID, ErrNotFound)
		}
		old := next.Transactions[i]
		if old.LinkedDebtID != "" && old.Type != tx.Type {
			return ErrImmutableType
		}
		s.checkCategory(ctx, taxonomy.NewValidator(next.Categories), tx)
		next.Transactions[i] = tx
		if tx.LinkedDebtID != "" && tx.LinkedDebtID != old.LinkedDebtID {
			s.payLinkedDebt(ctx, next, tx)
		}
		s.runCycle(next)
		return nil
	})
}

// checkCategory logs a transaction whose category is not in the taxonomy. The
// transaction is still booked: categories can be renamed after it was classified.
func (s *FinanceService) checkCategory(ctx context.Context, v *taxonomy.Validator, tx core.Transaction) {
	if err := v.Validate(tx.Type, tx.Category, tx.Subcategory); err != nil {
		s.logger.WarnContext(ctx, "Transaction category not in taxonomy", log.FieldTransaction, tx.ID, log.FieldError, err)
	}
}

func (s *FinanceService) payLinkedDebt(ctx context.Context, next *state.State, tx core.Transaction) {
	debts, ok := s.ledger.ProcessPayment(ctx, next.Debts, tx.LinkedDebtID, tx.Amount)
	if !ok {
		s.logger.WarnContext(ctx, "Linked debt not payable", log.FieldTransaction, tx.ID, log.FieldDebtID, tx.LinkedDebtID)
		return
	}
	next.Debts = debts
}

func (s *FinanceService) DeleteTransaction(ctx context.Context, id string) error {
	return s.mutate(ctx, log.OpDelete, func(next *state.State) error {
		i := transactionIndex(next.Transactions, id)
		if i < 0 {
			return fmt.Errorf("transaction %s: %w", id, ErrNotFound)
		}
		next.Transactions = append(next.Transactions[:i:i], next.Transactions[i+1:]...)
		s.runCycle(next)
		return nil
	})
}

func transactionIndex(txs []core.Transaction, id string) int {
	for i, tx := range txs {
		if tx.ID == id {
			return i
		}
	}
	return -1
}

// AddDebt registers a debt. Id and start date default to new and today.
func (s *FinanceService) AddDebt(ctx context.Context, d core.Debt) (core.Debt, error) {
	if d.ID == "" {
		d.ID = newID("debt")
	}
	if d.StartDate.IsZero() {
		d.StartDate = core.DateOf(s.now())
	}
	err := s.mutate(ctx, log.OpCreate, func(next *state.State) error {
		debts, err := ledger.Add(next.Debts, d)
		if err != nil {
			return err
		}
		next.Debts = debts
		d, _ = ledger.Find(debts, d.ID)
		return nil
	})
	return d, err
}

func (s *FinanceService) UpdateDebt(ctx context.Context, d core.Debt) error {
	return s.mutate(ctx, log.OpUpdate, func(next *state.State) error {
		debts, ok, err := ledger.Update(next.Debts, d)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("debt %s: %w", d.ID, ErrNotFound)
		}
		next.Debts = debts
		return nil
	})
}

func (s *FinanceService) DeleteDebt(ctx context.Context, id string) error {
	return s.mutate(ctx, log.OpDelete, func(next *state.State) error {
		debts, ok := ledger.Delete(next.Debts, id)
		if !ok {
			return fmt.Errorf("debt %s: %w", id, ErrNotFound)
		}
		next.Debts = debts
		return nil
	})
}

// PayDebt applies a payment directly. It reports false when the debt is missing or
// has no installments left.
func (s *FinanceService) PayDebt(ctx context.Context, id string, amount decimal.Decimal) (bool, error) {
	paid := false
	err := s.mutate(ctx, log.OpPay, func(next *state.State) error {
		next.Debts, paid = s.ledger.ProcessPayment(ctx, next.Debts, id, amount)
		return nil
	})
	if err != nil {
		return false, err
	}
	return paid, nil
}

// RunMonthlyCycle capitalizes interest and refreshes statuses for asOf.
// Running it twice for the same month changes nothing the second time.
func (s *FinanceService) RunMonthlyCycle(ctx context.Context, asOf core.Period) error {
	if err := asOf.Validate(); err != nil {
		return err
	}
	err := s.mutate(ctx, log.OpCapitalize, func(next *state.State) error {
		next.Debts = s.ledger.ApplyMonthlyCapitalizationAndStatus(next.Debts, next.Transactions, asOf)
		return nil
	})
	if err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "Monthly cycle applied", log.FieldPeriod, asOf.String())
	return nil
}

// HandleDebtPaymentEvent applies a payment received from another process, then runs
// the monthly cycle for the current month. The state is reloaded first; a payment
// already in the history is not applied again.
func (s *FinanceService) HandleDebtPaymentEvent(ctx context.Context, p events.DebtPayment) error {
	fresh, err := state.Load(ctx, s.store)
	if err != nil {
		return fmt.Errorf("reload state: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = fresh

	_, err = s.mutateLocked(ctx, log.OpPay, func(next *state.State) error {
		if next.RecordPayment(p) {
			debts, ok := ledger.ApplyPayment(next.Debts, p)
			if !ok {
				s.logger.WarnContext(ctx, "Debt payment event for unknown or settled debt", log.FieldDebtID, p.DebtID)
			}
			next.Debts = debts
		}
		s.runCycle(next)
		return nil
	})
	return err
}

// AddInvestment registers a holding. Id and first contribution default to new and today.
func (s *FinanceService) AddInvestment(ctx context.Context, inv core.Investment) (core.Investment, error) {
	if inv.ID == "" {
		inv.ID = newID("investment")
	}
	if inv.FirstContribution.IsZero() {
		inv.FirstContribution = core.DateOf(s.now())
	}
	if inv.Current.IsZero() {
		inv.Current = inv.Contributed
	}
	err := s.mutate(ctx, log.OpCreate, func(next *state.State) error {
		investments, err := portfolio.Add(next.Investments, inv)
		if err != nil {
			return err
		}
		next.Investments = investments
		return nil
	})
	return inv, err
}

func (s *FinanceService) UpdateInvestment(ctx context.Context, inv core.Investment) error {
	return s.mutate(ctx, log.OpUpdate, func(next *state.State) error {
		investments, ok, err := portfolio.Update(next.Investments, inv)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("investment %s: %w", inv.ID, ErrNotFound)
		}
		next.Investments = investments
		return nil
	})
}

func (s *FinanceService) DeleteInvestment(ctx context.Context, id string) error {
	return s.mutate(ctx, log.OpDelete, func(next *state.State) error {
		investments, returns, ok := portfolio.Delete(next.Investments, next.InvestmentReturns, id)
		if !ok {
			return fmt.Errorf("investment %s: %w", id, ErrNotFound)
		}
		next.Investments, next.InvestmentReturns = investments, returns
		return nil
	})
}

// RecordReturn books a monthly return on a variable income holding. It reports
// false when the holding does not exist and fails with ErrFixedIncome for other types.
func (s *FinanceService) RecordReturn(ctx context.Context, investmentID string, amount, percent decimal.Decimal) (bool, error) {
	ev := core.InvestmentReturnEvent{
		ID:           newID("return"),
		InvestmentID: investmentID,
		Amount:       amount,
		Percent:      percent,
		Date:         core.DateOf(s.now()),
	}
	recorded := false
	err := s.mutate(ctx, log.OpUpdate, func(next *state.State) error {
		for _, inv := range next.Investments {
			if inv.ID == investmentID && !inv.Type.VariableIncome() {
				return fmt.Errorf("investment %s (%s): %w", inv.Name, inv.Type, ErrFixedIncome)
			}
		}
		next.Investments, next.InvestmentReturns, recorded = portfolio.RecordReturn(next.Investments, next.InvestmentReturns, ev)
		return nil
	})
	if err != nil {
		return false, err
	}
	return recorded, nil
}

// AddAccount creates an account, or returns the one with the same name.
func (s *FinanceService) AddAccount(ctx context.Context, name string) (core.Account, error) {
	var acc core.Account
	err := s.mutate(ctx, log.OpCreate, func(next *state.State) error {
		accounts, a, err := taxonomy.AddAccount(next.Accounts, name)
		if err != nil {
			return err
		}
		next.Accounts, acc = accounts, a
		return nil
	})
	return acc, err
}

// DeleteAccount removes an account. Transactions keep the account name they were booked with.
func (s *FinanceService) DeleteAccount(ctx context.Context, id string) error {
	return s.mutate(ctx, log.OpDelete, func(next *state.State) error {
		accounts, ok := taxonomy.DeleteAccount(next.Accounts, id)
		if !ok {
			return fmt.Errorf("account %s: %w", id, ErrNotFound)
		}
		next.Accounts = accounts
		return nil
	})
}

func (s *FinanceService) AddCategory(ctx context.Context, name string, typ core.TransactionType) (core.Category, error) {
	var cat core.Category
	err := s.mutate(ctx, log.OpCreate, func(next *state.State) error {
		categories, c, err := taxonomy.AddCategory(next.Categories, name, typ)
		if err != nil {
			return err
		}
		next.Categories, cat = categories, c
		return nil
	})
	return cat, err
}

// RenameCategory renames a category. Existing transactions keep the old name.
func (s *FinanceService) RenameCategory(ctx context.Context, id, name string) error {
	return s.mutate(ctx, log.OpUpdate, func(next *state.State) error {
		categories, ok, err := taxonomy.RenameCategory(next.Categories, id, name)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("category %s: %w", id, taxonomy.ErrCategoryNotFound)
		}
		next.Categories = categories
		return nil
	})
}

// DeleteCategory removes a category with its subcategories and budget items.
func (s *FinanceService) DeleteCategory(ctx context.Context, id string) error {
	return s.mutate(ctx, log.OpDelete, func(next *state.State) error {
		categories, ok := taxonomy.DeleteCategory(next.Categories, id)
		if !ok {
			return fmt.Errorf("category %s: %w", id, taxonomy.ErrCategoryNotFound)
		}
		next.Categories = categories
		kept := make([]core.BudgetItem, 0, len(next.BudgetItems))
		for _, b := range next.BudgetItems {
			if b.CategoryID != id {
				kept = append(kept, b)
			}
		}
		next.BudgetItems = kept
		return nil
	})
}

func (s *FinanceService) AddSubcategory(ctx context.Context, categoryID, name string) (core.Subcategory, error) {
	var sub core.Subcategory
	err := s.mutate(ctx, log.OpCreate, func(next *state.State) error {
		categories, created, err := taxonomy.AddSubcategory(next.Categories, categoryID, name)
		if err != nil {
			return err
		}
		next.Categories, sub = categories, created
		return nil
	})
	return sub, err
}

func (s *FinanceService) DeleteSubcategory(ctx context.Context, id string) error {
	return s.mutate(ctx, log.OpDelete, func(next *state.State) error {
		categories, ok := taxonomy.DeleteSubcategory(next.Categories, id)
		if !ok {
			return fmt.Errorf("subcategory %s: %w", id, taxonomy.ErrCategoryNotFound)
		}
		next.Categories = categories
		return nil
	})
}

// SetBudget plans spending for a category in one month.
func (s *FinanceService) SetBudget(ctx context.Context, item core.BudgetItem) (core.BudgetItem, error) {
	if item.ID == "" {
		item.ID = newID("budget")
	}
	if err := item.Validate(); err != nil {
		return core.BudgetItem{}, fmt.Errorf("invalid budget item: %w", err)
	}
	err := s.mutate(ctx, log.OpCreate, func(next *state.State) error {
		for _, c := range next.Categories {
			if c.ID == item.CategoryID {
				next.BudgetItems = append(next.BudgetItems, item)
				return nil
			}
		}
		return fmt.Errorf("category %s: %w", item.CategoryID, taxonomy.ErrCategoryNotFound)
	})
	return item, err
}

func newID(prefix string) string {
	return prefix + "-" + uuid.NewString()
}
