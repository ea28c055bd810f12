// Package budget computes the income/expense overview and planned-versus-actual lines.
package budget

import (
	"sort"

	"github.com/shopspring/decimal"

	"financas/internal/core"
)

// Filter narrows the transaction set. Empty fields match everything.
type Filter struct {
	Months        []int
	Years         []int
	Accounts      []string
	Categories    []string
	Subcategories []string
}

// ForPeriod selects a single month.
func ForPeriod(p core.Period) Filter {
	return Filter{Months: []int{int(p.Month)}, Years: []int{p.Year}}
}

func (f Filter) Match(tx core.Transaction) bool {
	return matchInt(f.Months, tx.Month) &&
		matchInt(f.Years, tx.Year) &&
		matchLabel(f.Accounts, tx.Account) &&
		matchLabel(f.Categories, tx.Category) &&
		matchLabel(f.Subcategories, tx.Subcategory)
}

// IsTransfer reports whether tx only moves money between the household's own accounts.
func IsTransfer(tx core.Transaction) bool {
	return core.SameLabel(tx.Category, core.CategoryTransfers) ||
		core.SameLabel(tx.Subcategory, core.SubcategoryInternalMoves)
}

// Overview summarizes the filtered transactions. Transfers are ignored. Debt
// payments are reported apart from the other expenses and the balance subtracts
// both. ByCategory lists expenses (debt included) largest first.
func Overview(txs []core.Transaction, f Filter) core.MonthOverview {
	o := core.MonthOverview{
		Income:       decimal.Zero,
		Expenses:     decimal.Zero,
		DebtPayments: decimal.Zero,
	}
	byCategory := make(map[string]decimal.Decimal)
	var order []string

	for _, tx := range txs {
		if !f.Match(tx) || IsTransfer(tx) {
			continue
		}
		switch tx.Type {
		case core.Income:
			o.Income = o.Income.Add(tx.Amount)
			continue
		case core.Expense:
			if core.SameLabel(tx.Category, core.CategoryDebt) {
				o.DebtPayments = o.DebtPayments.Add(tx.Amount)
			} else {
				o.Expenses = o.Expenses.Add(tx.Amount)
			}
		default:
			continue
		}
		if _, seen := byCategory[tx.Category]; !seen {
			order = append(order, tx.Category)
		}
		byCategory[tx.Category] = byCategory[tx.Category].Add(tx.Amount)
	}

	o.Balance = o.Income.Sub(o.Expenses).Sub(o.DebtPayments)

	spent := o.Expenses.Add(o.DebtPayments)
	for _, name := range order {
		amount := byCategory[name]
		o.ByCategory = append(o.ByCategory, core.CategoryAmount{
			Name:    name,
			Amount:  amount,
			Percent: core.Percent(amount, spent).Round(2),
		})
	}
	sort.SliceStable(o.ByCategory, func(i, j int) bool {
		return o.ByCategory[i].Amount.GreaterThan(o.ByCategory[j].Amount)
	})
	return o
}

// Line compares one planned budget entry with what was spent.
type Line struct {
	Category    string          `json:"category"`
	Subcategory string          `json:"subcategory,omitempty"`
	Planned     decimal.Decimal `json:"planned"`
	Actual      decimal.Decimal `json:"actual"`
	Remaining   decimal.Decimal `json:"remaining"`
	PercentUsed decimal.Decimal `json:"percentUsed"`
}

// Report is the planned-versus-actual view of one month.
type Report struct {
	Period       core.Period     `json:"period"`
	Lines        []Line          `json:"lines"`
	Planned      decimal.Decimal `json:"planned"`
	Actual       decimal.Decimal `json:"actual"`
	Income       decimal.Decimal `json:"income"`
	PlannedSaldo decimal.Decimal `json:"saldoPrevisto"`
	ActualSaldo  decimal.Decimal `json:"saldoRealizado"`
}

type lineKey struct{ category, subcategory string }

// Compare builds the budget report for p. Budget items for the same category and
// subcategory are added together. Items whose category id is unknown are skipped.
func Compare(items []core.BudgetItem, categories []core.Category, txs []core.Transaction, p core.Period) Report {
	r := Report{Period: p, Planned: decimal.Zero, Actual: decimal.Zero, Income: decimal.Zero}

	planned := make(map[lineKey]decimal.Decimal)
	var order []lineKey
	for _, item := range items {
		if item.Period() != p {
			continue
		}
		key, ok := resolve(categories, item)
		if !ok {
			continue
		}
		if _, seen := planned[key]; !seen {
			order = append(order, key)
		}
		planned[key] = planned[key].Add(item.Amount)
	}

	inMonth := ForPeriod(p)
	for _, tx := range txs {
		if inMonth.Match(tx) && tx.Type == core.Income && !IsTransfer(tx) {
			r.Income = r.Income.Add(tx.Amount)
		}
	}

	for _, key := range order {
		actual := decimal.Zero
		for _, tx := range txs {
			if !inMonth.Match(tx) || tx.Type != core.Expense || !core.SameLabel(tx.Category, key.category) {
				continue
			}
			if key.subcategory != "" && !core.SameLabel(tx.Subcategory, key.subcategory) {
				continue
			}
			actual = actual.Add(tx.Amount)
		}
		plan := planned[key]
		r.Lines = append(r.Lines, Line{
			Category:    key.category,
			Subcategory: key.subcategory,
			Planned:     plan,
			Actual:      actual,
			Remaining:   plan.Sub(actual),
			PercentUsed: core.Percent(actual, plan).Round(2),
		})
		r.Planned = r.Planned.Add(plan)
		r.Actual = r.Actual.Add(actual)
	}

	r.PlannedSaldo = r.Income.Sub(r.Planned)
	r.ActualSaldo = r.Income.Sub(r.Actual)
	return r
}

func resolve(categories []core.Category, item core.BudgetItem) (lineKey, bool) {
	for _, c := range categories {
		if c.ID != item.CategoryID {
			continue
		}
		key := lineKey{category: c.Name}
		if item.SubcategoryID == "" {
			return key, true
		}
		for _, s := range c.Subcategories {
			if s.ID == item.SubcategoryID {
				key.subcategory = s.Name
				return key, true
			}
		}
		return lineKey{}, false
	}
	return lineKey{}, false
}

func matchInt(allowed []int, v int) bool {
	if len(allowed) == 0 {
		return true
	}
	for _, a := range allowed {
		if a == v {
			return true
		}
	}
	return false
}

func matchLabel(allowed []string, v string) bool {
	if len(allowed) == 0 {
		return true
	}
	for _, a := range allowed {
		if core.SameLabel(a, v) {
			return true
		}
	}
	return false
}
