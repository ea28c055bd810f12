package portfolio

import (
	"github.com/shopspring/decimal"

	"financas/internal/core"
)

// Flows recognizes investment contributions and withdrawals in the transaction set.
//
// A transaction linked to an investment is a contribution when it is an expense and
// a withdrawal when it is income. With LegacyLabelMatching, unlinked transactions
// are recognized by their category pair instead.
type Flows struct {
	LegacyLabelMatching bool
}

func (f Flows) IsContribution(tx core.Transaction) bool {
	if tx.Type != core.Expense {
		return false
	}
	if tx.LinkedInvestmentID != "" {
		return true
	}
	return f.LegacyLabelMatching &&
		core.SameLabel(tx.Category, core.CategoryTransfers) &&
		core.SameLabel(tx.Subcategory, core.SubcategoryInvestments)
}

func (f Flows) IsWithdrawal(tx core.Transaction) bool {
	if tx.Type != core.Income {
		return false
	}
	if tx.LinkedInvestmentID != "" {
		return true
	}
	return f.LegacyLabelMatching &&
		core.SameLabel(tx.Category, core.CategoryVariable) &&
		core.SameLabel(tx.Subcategory, core.SubcategoryInvestments)
}

// Contributions sums contributions booked in p.
func (f Flows) Contributions(txs []core.Transaction, p core.Period) decimal.Decimal {
	total := decimal.Zero
	for _, tx := range txs {
		if tx.Period() == p && f.IsContribution(tx) {
			total = total.Add(tx.Amount)
		}
	}
	return total
}

// Withdrawals sums withdrawals booked in p.
func (f Flows) Withdrawals(txs []core.Transaction, p core.Period) decimal.Decimal {
	total := decimal.Zero
	for _, tx := range txs {
		if tx.Period() == p && f.IsWithdrawal(tx) {
			total = total.Add(tx.Amount)
		}
	}
	return total
}

// EvolutionPoint is the portfolio snapshot for one month.
type EvolutionPoint struct {
	Period core.Period `json:"period"`
	// Contributed is the capital put in before the month started.
	Contributed decimal.Decimal `json:"contributed"`
	// NetMovement is contributions plus recorded returns minus withdrawals in the month.
	NetMovement   decimal.Decimal `json:"netMovement"`
	Contributions decimal.Decimal `json:"contributions"`
	Withdrawals   decimal.Decimal `json:"withdrawals"`
	Returns       decimal.Decimal `json:"returns"`
}

// Evolution rebuilds the trailing months ending at asOf, oldest first.
// Contributed and NetMovement are floored at zero.
func (f Flows) Evolution(investments []core.Investment, txs []core.Transaction, returns []core.InvestmentReturnEvent, asOf core.Period, months int) []EvolutionPoint {
	points := make([]EvolutionPoint, 0, months)
	for _, p := range asOf.Trailing(months) {
		start := p.Start()

		before := decimal.Zero
		for _, inv := range investments {
			if !inv.FirstContribution.IsZero() && inv.FirstContribution.Before(start) {
				before = before.Add(inv.Contributed)
			}
		}
		for _, tx := range txs {
			if tx.Period().Before(p) && f.IsContribution(tx) {
				before = before.Add(tx.Amount)
			}
		}

		gains := decimal.Zero
		for _, r := range returns {
			if p.Contains(r.Date) {
				gains = gains.Add(r.Amount)
			}
		}

		in := f.Contributions(txs, p)
		out := f.Withdrawals(txs, p)
		points = append(points, EvolutionPoint{
			Period:        p,
			Contributed:   decimal.Max(decimal.Zero, before),
			NetMovement:   decimal.Max(decimal.Zero, in.Add(gains).Sub(out)),
			Contributions: in,
			Withdrawals:   out,
			Returns:       gains,
		})
	}
	return points
}
