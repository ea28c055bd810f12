package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

const (
	FixedIncome    InvestmentType = "Renda Fixa (CDB, Tesouro Direto)"
	RealEstate     InvestmentType = "Fundo Imobiliário (FII)"
	Stocks         InvestmentType = "Ações"
	ETF            InvestmentType = "ETF"
	Crypto         InvestmentType = "Criptomoeda"
	ForeignCash    InvestmentType = "Moeda Internacional"
	PrivatePension InvestmentType = "Previdência Privada"
	OtherAssets    InvestmentType = "Outros"
)

type InvestmentType string

// InvestmentTypes lists the known holding types in display order.
var InvestmentTypes = []InvestmentType{
	FixedIncome, RealEstate, Stocks, ETF, Crypto, ForeignCash, PrivatePension, OtherAssets,
}

func (t InvestmentType) Valid() bool {
	for _, known := range InvestmentTypes {
		if t == known {
			return true
		}
	}
	return false
}

// VariableIncome reports whether the holding is market-priced and takes manual return updates.
func (t InvestmentType) VariableIncome() bool {
	switch t {
	case Stocks, ETF, Crypto, RealEstate:
		return true
	}
	return false
}

// Investment is a holding. MonthlyReturn is a percentage.
type Investment struct {
	ID                string          `json:"id"`
	Name              string          `json:"nome"`
	Type              InvestmentType  `json:"tipoInvestimento"`
	Contributed       decimal.Decimal `json:"valorAportado"`
	Current           decimal.Decimal `json:"valorAtualizado"`
	MonthlyReturn     decimal.Decimal `json:"rentabilidadeMensal"`
	Benchmark         string          `json:"indicadorAtrelado,omitempty"`
	Broker            string          `json:"corretora"`
	FirstContribution Date            `json:"dataPrimeiroAporte"`
}

// InvestmentReturnEvent records a manual monthly gain or loss.
type InvestmentReturnEvent struct {
	ID           string          `json:"id"`
	InvestmentID string          `json:"investmentId"`
	Amount       decimal.Decimal `json:"amount"`
	Percent      decimal.Decimal `json:"percentual"`
	Date         Date            `json:"date"`
}

func (i Investment) Validate() error {
	if strings.TrimSpace(i.Name) == "" {
		return ErrEmptyName
	}
	if !i.Type.Valid() {
		return ErrUnknownInvestment
	}
	if i.Contributed.IsNegative() || i.Current.IsNegative() {
		return ErrInvalidAmount
	}
	if i.FirstContribution.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// Gain is current value minus contributed capital.
func (i Investment) Gain() decimal.Decimal {
	return i.Current.Sub(i.Contributed)
}
