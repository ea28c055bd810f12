package ledger

import (
	"fmt"

	"github.com/shopspring/decimal"

	"financas/internal/core"
)

// Add validates d and appends it. A new debt starts current with its balance as
// the current amount when none is given.
func Add(debts []core.Debt, d core.Debt) ([]core.Debt, error) {
	if d.Status == "" {
		d.Status = core.DebtCurrent
	}
	if d.CurrentAmount.IsZero() {
		d.CurrentAmount = d.Balance
	}
	if d.InitialAmount.IsZero() {
		d.InitialAmount = d.Balance
	}
	if err := d.Validate(); err != nil {
		return debts, fmt.Errorf("invalid debt: %w", err)
	}
	if indexOf(debts, d.ID) >= 0 {
		return debts, fmt.Errorf("debt %s already exists", d.ID)
	}
	out := append([]core.Debt(nil), debts...)
	return append(out, d), nil
}

// Update replaces the debt with the same id. A missing id is a no-op.
func Update(debts []core.Debt, d core.Debt) ([]core.Debt, bool, error) {
	i := indexOf(debts, d.ID)
	if i < 0 {
		return debts, false, nil
	}
	if err := d.Validate(); err != nil {
		return debts, false, fmt.Errorf("invalid debt: %w", err)
	}
	out := append([]core.Debt(nil), debts...)
	out[i] = d
	return out, true, nil
}

// Delete removes the debt with id. A missing id is a no-op.
func Delete(debts []core.Debt, id string) ([]core.Debt, bool) {
	i := indexOf(debts, id)
	if i < 0 {
		return debts, false
	}
	out := make([]core.Debt, 0, len(debts)-1)
	out = append(out, debts[:i]...)
	return append(out, debts[i+1:]...), true
}

// Summary holds the headline debt figures.
type Summary struct {
	TotalOutstanding    decimal.Decimal `json:"totalOutstanding"`
	AverageRate         decimal.Decimal `json:"averageRate"`
	MonthlyInstallments decimal.Decimal `json:"monthlyInstallments"`
	ActiveCount         int             `json:"activeCount"`
	OverdueCount        int             `json:"overdueCount"`
}

// Summarize totals outstanding balances and installments due. AverageRate is the
// plain mean of the interest rates, zero when there are no debts.
func Summarize(debts []core.Debt) Summary {
	s := Summary{
		TotalOutstanding:    decimal.Zero,
		AverageRate:         decimal.Zero,
		MonthlyInstallments: decimal.Zero,
	}
	rates := decimal.Zero
	for _, d := range debts {
		s.TotalOutstanding = s.TotalOutstanding.Add(d.Balance)
		rates = rates.Add(d.InterestRate)
		if d.Active() {
			s.MonthlyInstallments = s.MonthlyInstallments.Add(d.Installment)
			s.ActiveCount++
		}
		if d.Status == core.DebtOverdue {
			s.OverdueCount++
		}
	}
	if len(debts) > 0 {
		s.AverageRate = rates.Div(decimal.NewFromInt(int64(len(debts))))
	}
	return s
}

// EvolutionPoint is the debt position for one month.
type EvolutionPoint struct {
	Period      core.Period     `json:"period"`
	Outstanding decimal.Decimal `json:"outstanding"`
	ActiveDebts int             `json:"activeDebts"`
}

// Evolution reports, for the trailing months ending at asOf, the outstanding total
// and the number of active debts among those started on or before the first day
// of that month.
func Evolution(debts []core.Debt, asOf core.Period, months int) []EvolutionPoint {
	points := make([]EvolutionPoint, 0, months)
	for _, p := range asOf.Trailing(months) {
		point := EvolutionPoint{Period: p, Outstanding: decimal.Zero}
		for _, d := range debts {
			if d.StartDate.After(p.Start()) {
				continue
			}
			point.Outstanding = point.Outstanding.Add(d.Balance)
			if d.Active() {
				point.ActiveDebts++
			}
		}
		points = append(points, point)
	}
	return points
}
