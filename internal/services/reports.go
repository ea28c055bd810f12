package services

import (
	"fmt"

	"github.com/patrickmn/go-cache"
	"github.com/shopspring/decimal"

	"financas/internal/budget"
	"financas/internal/core"
	"financas/internal/ledger"
	"financas/internal/portfolio"
)

// PortfolioReport is the investment dashboard for one month.
type PortfolioReport struct {
	Period        core.Period                `json:"period"`
	Totals        portfolio.Totals           `json:"totals"`
	AverageReturn decimal.Decimal            `json:"averageReturn"`
	Composition   []portfolio.Allocation     `json:"composition"`
	Contributions decimal.Decimal            `json:"contributions"`
	Withdrawals   decimal.Decimal            `json:"withdrawals"`
	Evolution     []portfolio.EvolutionPoint `json:"evolution"`
}

// DebtReport is the debt dashboard for one month.
type DebtReport struct {
	Period    core.Period             `json:"period"`
	Summary   ledger.Summary          `json:"summary"`
	Debts     []core.Debt             `json:"debts"`
	Evolution []ledger.EvolutionPoint `json:"evolution"`
}

// BudgetReport combines the month overview with the planned-versus-actual lines.
type BudgetReport struct {
	Overview core.MonthOverview `json:"overview"`
	Budget   budget.Report      `json:"budget"`
}

// memo returns the cached value for key at the current revision, building it with
// build on a miss. Callers hold no lock; build receives a snapshot.
func memo[T any](s *FinanceService, key string, build func() T) T {
	s.mu.Lock()
	full := fmt.Sprintf("%s@%d", key, s.revision)
	s.mu.Unlock()

	if cached, found := s.reports.Get(full); found {
		return cached.(T)
	}
	v := build()
	s.reports.Set(full, v, cache.DefaultExpiration)
	return v
}

// PortfolioReport summarizes holdings and the trailing months of flows up to asOf.
func (s *FinanceService) PortfolioReport(asOf core.Period, months int) PortfolioReport {
	return memo(s, fmt.Sprintf("portfolio:%s:%d", asOf, months), func() PortfolioReport {
		st := s.Snapshot()
		return PortfolioReport{
			Period:        asOf,
			Totals:        portfolio.Sum(st.Investments),
			AverageReturn: portfolio.WeightedAverageReturn(st.Investments),
			Composition:   portfolio.Composition(st.Investments),
			Contributions: s.flows.Contributions(st.Transactions, asOf),
			Withdrawals:   s.flows.Withdrawals(st.Transactions, asOf),
			Evolution:     s.flows.Evolution(st.Investments, st.Transactions, st.InvestmentReturns, asOf, months),
		}
	})
}

// DebtReport summarizes debts and their trailing evolution up to asOf.
func (s *FinanceService) DebtReport(asOf core.Period, months int) DebtReport {
	return memo(s, fmt.Sprintf("debts:%s:%d", asOf, months), func() DebtReport {
		st := s.Snapshot()
		return DebtReport{
			Period:    asOf,
			Summary:   ledger.Summarize(st.Debts),
			Debts:     st.Debts,
			Evolution: ledger.Evolution(st.Debts, asOf, months),
		}
	})
}

// BudgetReport builds the month overview and budget comparison for p.
func (s *FinanceService) BudgetReport(p core.Period) BudgetReport {
	return memo(s, "budget:"+p.String(), func() BudgetReport {
		st := s.Snapshot()
		return BudgetReport{
			Overview: budget.Overview(st.Transactions, budget.ForPeriod(p)),
			Budget:   budget.Compare(st.BudgetItems, st.Categories, st.Transactions, p),
		}
	})
}

// Overview applies an arbitrary filter. It is not cached.
func (s *FinanceService) Overview(f budget.Filter) core.MonthOverview {
	return budget.Overview(s.Snapshot().Transactions, f)
}
