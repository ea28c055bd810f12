// Package portfolio aggregates investment holdings into composition, return and
// monthly evolution figures.
package portfolio

import (
	"fmt"

	"github.com/shopspring/decimal"

	"financas/internal/core"
)

// NoBenchmark labels holdings without a benchmark in the composition breakdown.
const NoBenchmark = "Sem indicador"

// BenchmarkAmount is the current value held against one benchmark.
type BenchmarkAmount struct {
	Benchmark string          `json:"benchmark"`
	Current   decimal.Decimal `json:"current"`
}

// Allocation is the portfolio slice of one investment type.
type Allocation struct {
	Type        core.InvestmentType `json:"type"`
	Current     decimal.Decimal     `json:"current"`
	Contributed decimal.Decimal     `json:"contributed"`
	Gain        decimal.Decimal     `json:"gain"`
	ByBenchmark []BenchmarkAmount   `json:"byBenchmark"`
}

// Totals sums the whole portfolio.
type Totals struct {
	Current     decimal.Decimal `json:"current"`
	Contributed decimal.Decimal `json:"contributed"`
	Gain        decimal.Decimal `json:"gain"`
}

// Composition groups holdings by type in order of first appearance.
func Composition(investments []core.Investment) []Allocation {
	var out []Allocation
	index := make(map[core.InvestmentType]int)

	for _, inv := range investments {
		i, ok := index[inv.Type]
		if !ok {
			i = len(out)
			index[inv.Type] = i
			out = append(out, Allocation{Type: inv.Type, Current: decimal.Zero, Contributed: decimal.Zero})
		}
		a := &out[i]
		a.Current = a.Current.Add(inv.Current)
		a.Contributed = a.Contributed.Add(inv.Contributed)

		label := inv.Benchmark
		if label == "" {
			label = NoBenchmark
		}
		found := false
		for j := range a.ByBenchmark {
			if a.ByBenchmark[j].Benchmark == label {
				a.ByBenchmark[j].Current = a.ByBenchmark[j].Current.Add(inv.Current)
				found = true
				break
			}
		}
		if !found {
			a.ByBenchmark = append(a.ByBenchmark, BenchmarkAmount{Benchmark: label, Current: inv.Current})
		}
	}

	for i := range out {
		out[i].Gain = out[i].Current.Sub(out[i].Contributed)
	}
	return out
}

func Sum(investments []core.Investment) Totals {
	t := Totals{Current: decimal.Zero, Contributed: decimal.Zero}
	for _, inv := range investments {
		t.Current = t.Current.Add(inv.Current)
		t.Contributed = t.Contributed.Add(inv.Contributed)
	}
	t.Gain = t.Current.Sub(t.Contributed)
	return t
}

// WeightedAverageReturn is the monthly return weighted by contributed capital.
// It is zero when nothing has been contributed.
func WeightedAverageReturn(investments []core.Investment) decimal.Decimal {
	weighted := decimal.Zero
	capital := decimal.Zero
	for _, inv := range investments {
		weighted = weighted.Add(inv.MonthlyReturn.Mul(inv.Contributed))
		capital = capital.Add(inv.Contributed)
	}
	if capital.IsZero() {
		return decimal.Zero
	}
	return weighted.Div(capital)
}

// RecordReturn books a monthly gain (or loss) on a holding: the current value moves
// by amount, the monthly return becomes percent, and an event is appended to the
// return history. A missing investment is a no-op.
func RecordReturn(investments []core.Investment, returns []core.InvestmentReturnEvent, ev core.InvestmentReturnEvent) ([]core.Investment, []core.InvestmentReturnEvent, bool) {
	i := indexOf(investments, ev.InvestmentID)
	if i < 0 {
		return investments, returns, false
	}

	out := append([]core.Investment(nil), investments...)
	out[i].Current = out[i].Current.Add(ev.Amount)
	out[i].MonthlyReturn = ev.Percent

	history := append([]core.InvestmentReturnEvent(nil), returns...)
	return out, append(history, ev), true
}

// Add validates inv and appends it.
func Add(investments []core.Investment, inv core.Investment) ([]core.Investment, error) {
	if err := inv.Validate(); err != nil {
		return investments, fmt.Errorf("invalid investment: %w", err)
	}
	if indexOf(investments, inv.ID) >= 0 {
		return investments, fmt.Errorf("investment %s already exists", inv.ID)
	}
	out := append([]core.Investment(nil), investments...)
	return append(out, inv), nil
}

// Update replaces the holding with the same id. A missing id is a no-op.
func Update(investments []core.Investment, inv core.Investment) ([]core.Investment, bool, error) {
	i := indexOf(investments, inv.ID)
	if i < 0 {
		return investments, false, nil
	}
	if err := inv.Validate(); err != nil {
		return investments, false, fmt.Errorf("invalid investment: %w", err)
	}
	out := append([]core.Investment(nil), investments...)
	out[i] = inv
	return out, true, nil
}

// Delete removes the holding and its return history. A missing id is a no-op.
func Delete(investments []core.Investment, returns []core.InvestmentReturnEvent, id string) ([]core.Investment, []core.InvestmentReturnEvent, bool) {
	i := indexOf(investments, id)
	if i < 0 {
		return investments, returns, false
	}
	out := make([]core.Investment, 0, len(investments)-1)
	out = append(out, investments[:i]...)
	out = append(out, investments[i+1:]...)

	kept := make([]core.InvestmentReturnEvent, 0, len(returns))
	for _, r := range returns {
		if r.InvestmentID != id {
			kept = append(kept, r)
		}
	}
	return out, kept, true
}

// Find returns the holding with id.
func Find(investments []core.Investment, id string) (core.Investment, bool) {
	if i := indexOf(investments, id); i >= 0 {
		return investments[i], true
	}
	return core.Investment{}, false
}

func indexOf(investments []core.Investment, id string) int {
	for i, inv := range investments {
		if inv.ID == id {
			return i
		}
	}
	return -1
}
