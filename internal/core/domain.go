package core

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	Income  TransactionType = "receita"
	Expense TransactionType = "despesa"
)

// Reserved taxonomy labels shared by the ledger, the aggregator and the reports.
const (
	CategoryDebt             = "Dívidas"
	CategoryTransfers        = "Transferências"
	CategoryVariable         = "Variável"
	CategoryOther            = "Outros"
	SubcategoryInvestments   = "Investimentos"
	SubcategoryInternalMoves = "Transferência entre Contas"
)

type (
	TransactionType string

	Transaction struct {
		ID                 string          `json:"id"`
		Date               Date            `json:"date"`
		Description        string          `json:"description"`
		Amount             decimal.Decimal `json:"amount"`
		Type               TransactionType `json:"type"`
		Category           string          `json:"category"`
		Subcategory        string          `json:"subcategory,omitempty"`
		Account            string          `json:"account"`
		Month              int             `json:"month"`
		Year               int             `json:"year"`
		Observations       string          `json:"observations,omitempty"`
		LinkedDebtID       string          `json:"linkedDebtId,omitempty"`
		LinkedInvestmentID string          `json:"linkedInvestmentId,omitempty"`
	}

	// PendingTransaction is a parsed statement row awaiting review.
	PendingTransaction struct {
		ID                   string          `json:"id"`
		Date                 Date            `json:"date"`
		Description          string          `json:"description"`
		Amount               decimal.Decimal `json:"amount"`
		SuggestedType        TransactionType `json:"suggestedType"`
		SuggestedCategory    string          `json:"suggestedCategory"`
		SuggestedSubcategory string          `json:"suggestedSubcategory,omitempty"`
		DateParsed           bool            `json:"dateParsed"`
	}

	Category struct {
		ID            string          `json:"id"`
		Name          string          `json:"name"`
		Type          TransactionType `json:"type"`
		Subcategories []Subcategory   `json:"subcategories"`
	}

	Subcategory struct {
		ID         string `json:"id"`
		Name       string `json:"name"`
		CategoryID string `json:"categoryId"`
	}

	Account struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}

	// BudgetItem plans spending for a category (and optionally a subcategory) in one month.
	BudgetItem struct {
		ID            string          `json:"id"`
		CategoryID    string          `json:"categoryId"`
		SubcategoryID string          `json:"subcategoryId,omitempty"`
		Month         int             `json:"month"`
		Year          int             `json:"year"`
		Amount        decimal.Decimal `json:"amount"`
	}
)

var (
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrInvalidType       = errors.New("invalid transaction type")
	ErrInvalidMonth      = errors.New("invalid month")
	ErrInvalidYear       = errors.New("invalid year")
	ErrInvalidDate       = errors.New("invalid date")
	ErrEmptyDescription  = errors.New("empty description")
	ErrEmptyCategory     = errors.New("empty category")
	ErrEmptyAccount      = errors.New("empty account")
	ErrEmptyName         = errors.New("empty name")
	ErrNegativeBalance   = errors.New("negative outstanding balance")
	ErrNegativeCount     = errors.New("negative installment count")
	ErrUnknownInvestment = errors.New("unknown investment type")
	ErrMissingReference  = errors.New("missing reference")
	ErrSubcategoryParent = errors.New("subcategory does not belong to category")
)

// Valid reports whether t is one of the two persisted type labels.
func (t TransactionType) Valid() bool {
	return t == Income || t == Expense
}

// ParseTransactionType accepts the persisted labels and their English names.
func ParseTransactionType(s string) (TransactionType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "receita", "income":
		return Income, nil
	case "despesa", "expense":
		return Expense, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidType, s)
}

func (t Transaction) Validate() error {
	if !t.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	if !t.Type.Valid() {
		return ErrInvalidType
	}
	if t.Date.IsZero() {
		return ErrInvalidDate
	}
	if strings.TrimSpace(t.Description) == "" {
		return ErrEmptyDescription
	}
	if strings.TrimSpace(t.Category) == "" {
		return ErrEmptyCategory
	}
	if strings.TrimSpace(t.Account) == "" {
		return ErrEmptyAccount
	}
	if t.Month < 1 || t.Month > 12 {
		return ErrInvalidMonth
	}
	if t.Year < 1900 {
		return ErrInvalidYear
	}
	return nil
}

// Period returns the reference month the transaction was booked under.
func (t Transaction) Period() Period {
	return Period{Year: t.Year, Month: time.Month(t.Month)}
}

// Approve converts a reviewed row into a transaction booked under account and period.
func (p PendingTransaction) Approve(id, account string, period Period) Transaction {
	return Transaction{
		ID:          id,
		Date:        p.Date,
		Description: strings.TrimSpace(p.Description),
		Amount:      p.Amount.Abs(),
		Type:        p.SuggestedType,
		Category:    p.SuggestedCategory,
		Subcategory: p.SuggestedSubcategory,
		Account:     account,
		Month:       int(period.Month),
		Year:        period.Year,
	}
}

func (c Category) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return ErrEmptyName
	}
	if !c.Type.Valid() {
		return ErrInvalidType
	}
	for _, s := range c.Subcategories {
		if s.CategoryID != c.ID {
			return fmt.Errorf("%w: %s", ErrSubcategoryParent, s.Name)
		}
	}
	return nil
}

// Subcategory returns the named subcategory, matching case-insensitively.
func (c Category) Subcategory(name string) (Subcategory, bool) {
	for _, s := range c.Subcategories {
		if strings.EqualFold(s.Name, name) {
			return s, true
		}
	}
	return Subcategory{}, false
}

func (b BudgetItem) Validate() error {
	if b.CategoryID == "" {
		return fmt.Errorf("%w: category id", ErrMissingReference)
	}
	if b.Month < 1 || b.Month > 12 {
		return ErrInvalidMonth
	}
	if b.Year < 1900 {
		return ErrInvalidYear
	}
	if b.Amount.IsNegative() {
		return ErrInvalidAmount
	}
	return nil
}

// Period returns the month the budget line applies to.
func (b BudgetItem) Period() Period {
	return Period{Year: b.Year, Month: time.Month(b.Month)}
}
