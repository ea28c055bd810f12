// Package taxonomy manages the category tree and the account list.
package taxonomy

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"financas/internal/core"
)

// DefaultAccount is created when no account exists yet.
const DefaultAccount = "Conta Principal"

var (
	ErrCategoryNotFound = errors.New("category not found")
	ErrDuplicateName    = errors.New("name already in use")
)

type seed struct {
	name string
	typ  core.TransactionType
	subs []string
}

var defaultSeeds = []seed{
	{"Alimentação", core.Expense, []string{"Supermercado", "Delivery", "Restaurantes"}},
	{"Transporte", core.Expense, []string{"Combustível", "Aplicativo de Transporte"}},
	{"Lazer", core.Expense, []string{"Streaming", "Cinema"}},
	{"Casa", core.Expense, []string{"Aluguel", "Condomínio", "Energia Elétrica", "Água", "Internet"}},
	{"Saúde", core.Expense, []string{"Farmácia", "Plano de Saúde", "Consultas Médicas"}},
	{core.CategoryDebt, core.Expense, []string{"Cartão de Crédito", "Financiamento", "Empréstimo"}},
	{"Vestuário", core.Expense, nil},
	{"Educação", core.Expense, nil},
	{core.CategoryTransfers, core.Expense, []string{core.SubcategoryInvestments, core.SubcategoryInternalMoves}},
	{core.CategoryOther, core.Expense, nil},
	{"Salário", core.Income, nil},
	{"Freelance", core.Income, nil},
	{"Investimentos", core.Income, []string{"Dividendos"}},
	{core.CategoryVariable, core.Income, []string{core.SubcategoryInvestments}},
	{core.CategoryOther, core.Income, nil},
}

// DefaultCategories returns the starter taxonomy. It covers every category the
// classifier can suggest plus the reserved investment transfer labels.
func DefaultCategories() []core.Category {
	out := make([]core.Category, 0, len(defaultSeeds))
	for _, s := range defaultSeeds {
		c := core.Category{ID: newID("category"), Name: s.name, Type: s.typ, Subcategories: []core.Subcategory{}}
		for _, name := range s.subs {
			c.Subcategories = append(c.Subcategories, core.Subcategory{ID: newID("subcategory"), Name: name, CategoryID: c.ID})
		}
		out = append(out, c)
	}
	return out
}

func DefaultAccounts() []core.Account {
	return []core.Account{{ID: newID("account"), Name: DefaultAccount}}
}

// AddAccount appends an account unless one with the same name (ignoring case)
// exists, in which case the existing one is returned.
func AddAccount(accounts []core.Account, name string) ([]core.Account, core.Account, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return accounts, core.Account{}, core.ErrEmptyName
	}
	for _, a := range accounts {
		if strings.EqualFold(a.Name, name) {
			return accounts, a, nil
		}
	}
	a := core.Account{ID: newID("account"), Name: name}
	out := append([]core.Account(nil), accounts...)
	return append(out, a), a, nil
}

// DeleteAccount removes the account with id. A missing id is a no-op.
func DeleteAccount(accounts []core.Account, id string) ([]core.Account, bool) {
	for i, a := range accounts {
		if a.ID == id {
			out := make([]core.Account, 0, len(accounts)-1)
			out = append(out, accounts[:i]...)
			return append(out, accounts[i+1:]...), true
		}
	}
	return accounts, false
}

// AddCategory appends a category. Names are unique per type.
func AddCategory(categories []core.Category, name string, typ core.TransactionType) ([]core.Category, core.Category, error) {
	c := core.Category{ID: newID("category"), Name: strings.TrimSpace(name), Type: typ, Subcategories: []core.Subcategory{}}
	if err := c.Validate(); err != nil {
		return categories, core.Category{}, err
	}
	if _, ok := FindCategory(categories, c.Name, typ); ok {
		return categories, core.Category{}, fmt.Errorf("%w: %s", ErrDuplicateName, c.Name)
	}
	out := append([]core.Category(nil), categories...)
	return append(out, c), c, nil
}

// RenameCategory changes a category name. A missing id is a no-op.
func RenameCategory(categories []core.Category, id, name string) ([]core.Category, bool, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return categories, false, core.ErrEmptyName
	}
	i := categoryIndex(categories, id)
	if i < 0 {
		return categories, false, nil
	}
	if other, ok := FindCategory(categories, name, categories[i].Type); ok && other.ID != id {
		return categories, false, fmt.Errorf("%w: %s", ErrDuplicateName, name)
	}
	out := cloneCategories(categories)
	out[i].Name = name
	return out, true, nil
}

// DeleteCategory removes a category together with its subcategories.
func DeleteCategory(categories []core.Category, id string) ([]core.Category, bool) {
	i := categoryIndex(categories, id)
	if i < 0 {
		return categories, false
	}
	out := make([]core.Category, 0, len(categories)-1)
	out = append(out, categories[:i]...)
	return append(out, categories[i+1:]...), true
}

// AddSubcategory attaches a subcategory to an existing category.
func AddSubcategory(categories []core.Category, categoryID, name string) ([]core.Category, core.Subcategory, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return categories, core.Subcategory{}, core.ErrEmptyName
	}
	i := categoryIndex(categories, categoryID)
	if i < 0 {
		return categories, core.Subcategory{}, fmt.Errorf("%w: %s", ErrCategoryNotFound, categoryID)
	}
	if _, ok := categories[i].Subcategory(name); ok {
		return categories, core.Subcategory{}, fmt.Errorf("%w: %s", ErrDuplicateName, name)
	}
	s := core.Subcategory{ID: newID("subcategory"), Name: name, CategoryID: categoryID}
	out := cloneCategories(categories)
	out[i].Subcategories = append(out[i].Subcategories, s)
	return out, s, nil
}

// DeleteSubcategory removes a subcategory wherever it is attached.
func DeleteSubcategory(categories []core.Category, subcategoryID string) ([]core.Category, bool) {
	for i, c := range categories {
		for j, s := range c.Subcategories {
			if s.ID != subcategoryID {
				continue
			}
			out := cloneCategories(categories)
			subs := make([]core.Subcategory, 0, len(c.Subcategories)-1)
			subs = append(subs, c.Subcategories[:j]...)
			out[i].Subcategories = append(subs, c.Subcategories[j+1:]...)
			return out, true
		}
	}
	return categories, false
}

// FindCategory looks a category up by name and type, ignoring case and accents.
func FindCategory(categories []core.Category, name string, typ core.TransactionType) (core.Category, bool) {
	for _, c := range categories {
		if c.Type == typ && core.SameLabel(c.Name, name) {
			return c, true
		}
	}
	return core.Category{}, false
}

func categoryIndex(categories []core.Category, id string) int {
	for i, c := range categories {
		if c.ID == id {
			return i
		}
	}
	return -1
}

// cloneCategories copies the slice and each subcategory slice so edits stay local.
func cloneCategories(categories []core.Category) []core.Category {
	out := make([]core.Category, len(categories))
	for i, c := range categories {
		c.Subcategories = append([]core.Subcategory(nil), c.Subcategories...)
		out[i] = c
	}
	return out
}

func newID(prefix string) string {
	return prefix + "-" + uuid.NewString()
}
