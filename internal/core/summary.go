package core

import "github.com/shopspring/decimal"

// CategoryAmount represents an amount aggregated by category name.
type CategoryAmount struct {
	Name    string          `json:"name"`
	Amount  decimal.Decimal `json:"amount"`
	Percent decimal.Decimal `json:"percent"`
}

// MonthOverview is the income/expense summary for a filtered set of transactions.
type MonthOverview struct {
	Income       decimal.Decimal  `json:"receitas"`
	Expenses     decimal.Decimal  `json:"despesas"`
	DebtPayments decimal.Decimal  `json:"dividas"`
	Balance      decimal.Decimal  `json:"saldo"`
	ByCategory   []CategoryAmount `json:"byCategory"`
}
