// Package ledger applies payments and monthly interest to debts.
//
// Functions never modify their input slices; every change returns a new collection.
package ledger

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"financas/internal/core"
	"financas/internal/events"
	"financas/internal/log"
)

var hundred = decimal.NewFromInt(100)

// Options tune how the monthly cycle reads the transaction set.
type Options struct {
	// LegacyLabelMatching lets unlinked transactions in the debt category count as a
	// payment for every debt in that month.
	LegacyLabelMatching bool
	// OverdueAfterMonths is the gap since the last payment (or start) after which an
	// unpaid debt becomes overdue.
	OverdueAfterMonths int
}

func DefaultOptions() Options {
	return Options{LegacyLabelMatching: true, OverdueAfterMonths: 2}
}

type Ledger struct {
	publisher events.Publisher
	opts      Options
	now       func() time.Time
	logger    *log.Logger
}

// New returns a ledger that announces payments on publisher. publisher may be nil.
func New(publisher events.Publisher, opts Options) *Ledger {
	return &Ledger{
		publisher: publisher,
		opts:      opts,
		now:       time.Now,
		logger:    log.For(log.ComponentLedger),
	}
}

// ProcessPayment applies amount to the debt and publishes a DebtPayment event.
// A missing debt or one with no installments left is a no-op and reports false.
// A failed publish is logged; the payment still stands.
func (l *Ledger) ProcessPayment(ctx context.Context, debts []core.Debt, debtID string, amount decimal.Decimal) ([]core.Debt, bool) {
	payment := events.DebtPayment{DebtID: debtID, Amount: amount.Abs(), Timestamp: l.now()}
	out, ok := ApplyPayment(debts, payment)
	if !ok {
		l.logger.DebugContext(ctx, "Payment ignored", log.FieldDebtID, debtID)
		return out, false
	}

	l.logger.DebugContext(ctx, "Debt payment staged", log.NewFields().WithOperation(log.OpPay).WithDebt(debtID, payment.Amount.String()).ToSlice()...)

	if l.publisher == nil {
		l.logger.WarnContext(ctx, "No event publisher configured, skipping debt payment event")
		return out, true
	}
	if err := l.publisher.PublishDebtPayment(ctx, payment); err != nil {
		l.logger.ErrorContext(ctx, "Failed to publish debt payment event", log.FieldDebtID, debtID, log.FieldError, err)
	}
	return out, true
}

// ApplyPayment is the event-free form of ProcessPayment, used by event consumers.
//
// The balance drops by the payment (never below zero), one installment is consumed,
// the status becomes current and the payment day is recorded.
func ApplyPayment(debts []core.Debt, p events.DebtPayment) ([]core.Debt, bool) {
	i := indexOf(debts, p.DebtID)
	if i < 0 || !debts[i].Active() {
		return debts, false
	}

	out := append([]core.Debt(nil), debts...)
	d := out[i]
	d.Balance = decimal.Max(decimal.Zero, d.Balance.Sub(p.Amount.Abs()))
	d.RemainingInstallments = max(0, d.RemainingInstallments-1)
	d.Status = core.DebtCurrent
	d.LastPayment = core.DateOf(p.Timestamp)
	out[i] = d
	return out, true
}

// ApplyMonthlyCapitalizationAndStatus evaluates every active debt for asOf.
//
// A debt with a payment booked in asOf becomes current. Otherwise, unless suspended,
// it becomes overdue once the months since its last payment (or start) exceed the
// configured gap. An unpaid debt that started before asOf accrues one month of
// interest, at most once per period: LastCapitalized records the period applied,
// so running the cycle again for the same month changes nothing.
func (l *Ledger) ApplyMonthlyCapitalizationAndStatus(debts []core.Debt, txs []core.Transaction, asOf core.Period) []core.Debt {
	paid := l.paymentIndex(txs, asOf)
	out := append([]core.Debt(nil), debts...)

	for i, d := range out {
		if !d.Active() {
			continue
		}

		hasPayment := paid(d.ID)
		if hasPayment {
			d.Status = core.DebtCurrent
		} else if d.Status != core.DebtSuspended {
			ref := d.StartDate
			if !d.LastPayment.IsZero() {
				ref = d.LastPayment
			}
			if ref.Period().MonthsUntil(asOf) > l.opts.OverdueAfterMonths {
				d.Status = core.DebtOverdue
			}
		}

		if !hasPayment && d.StartDate.Before(asOf.Start()) && d.LastCapitalized.Before(asOf) {
			factor := decimal.NewFromInt(1).Add(d.InterestRate.Div(hundred))
			d.Balance = core.RoundCents(d.Balance.Mul(factor))
			d.LastCapitalized = asOf
		}
		out[i] = d
	}
	return out
}

// paymentIndex reports, per debt id, whether asOf holds a payment for it.
func (l *Ledger) paymentIndex(txs []core.Transaction, asOf core.Period) func(debtID string) bool {
	linked := make(map[string]bool)
	legacy := false
	for _, tx := range txs {
		if tx.Period() != asOf {
			continue
		}
		switch {
		case tx.LinkedDebtID != "":
			linked[tx.LinkedDebtID] = true
		case l.opts.LegacyLabelMatching && core.SameLabel(tx.Category, core.CategoryDebt):
			legacy = true
		}
	}
	return func(debtID string) bool {
		return legacy || linked[debtID]
	}
}

func indexOf(debts []core.Debt, id string) int {
	for i, d := range debts {
		if d.ID == id {
			return i
		}
	}
	return -1
}

// Find returns the debt with id.
func Find(debts []core.Debt, id string) (core.Debt, bool) {
	if i := indexOf(debts, id); i >= 0 {
		return debts[i], true
	}
	return core.Debt{}, false
}
