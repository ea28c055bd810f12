package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

const (
	DebtCurrent   DebtStatus = "Em dia"
	DebtOverdue   DebtStatus = "Em atraso"
	DebtSuspended DebtStatus = "Suspensa"
)

type DebtStatus string

// Debt is a liability amortized by installments. InterestRate is a monthly percentage.
type Debt struct {
	ID                    string          `json:"id"`
	Creditor              string          `json:"credor"`
	Description           string          `json:"descricao"`
	InitialAmount         decimal.Decimal `json:"valorInicial"`
	CurrentAmount         decimal.Decimal `json:"valorAtual"`
	InterestRate          decimal.Decimal `json:"taxaJuros"`
	Installment           decimal.Decimal `json:"valorParcela"`
	RemainingInstallments int             `json:"parcelasRestantes"`
	Balance               decimal.Decimal `json:"saldoDevedor"`
	StartDate             Date            `json:"dataInicio"`
	Status                DebtStatus      `json:"status"`
	LastPayment           Date            `json:"ultimoPagamento"`
	LastCapitalized       Period          `json:"lastCapitalizedPeriod"`
}

func (s DebtStatus) Valid() bool {
	switch s {
	case DebtCurrent, DebtOverdue, DebtSuspended:
		return true
	}
	return false
}

func (d Debt) Validate() error {
	if strings.TrimSpace(d.Creditor) == "" {
		return ErrEmptyName
	}
	if d.Balance.IsNegative() {
		return ErrNegativeBalance
	}
	if d.RemainingInstallments < 0 {
		return ErrNegativeCount
	}
	if d.InterestRate.IsNegative() || d.Installment.IsNegative() {
		return ErrInvalidAmount
	}
	if d.StartDate.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// Active reports whether installments are still due.
func (d Debt) Active() bool {
	return d.RemainingInstallments > 0
}

// Label names the debt for listings.
func (d Debt) Label() string {
	if d.Description == "" {
		return d.Creditor
	}
	return d.Creditor + " - " + d.Description
}
