// Package classifier suggests a type, category and subcategory for a statement line.
//
// Rules are keyword groups evaluated in a fixed order against the lower-cased,
// accent-folded description. Income groups are checked before expense groups and
// the first matching group wins; within a group the first matching sub-rule
// picks the subcategory.
package classifier

import (
	"strings"

	"financas/internal/core"
)

// Suggestion is the classifier's answer for one description.
type Suggestion struct {
	Type        core.TransactionType
	Category    string
	Subcategory string
}

// SubRule refines a matched group into a subcategory.
type SubRule struct {
	Subcategory string
	Keywords    []string
}

// Rule maps trigger keywords to a category.
type Rule struct {
	Type     core.TransactionType
	Category string
	Keywords []string
	Refine   []SubRule
	// Fallback is the subcategory used when no sub-rule matches.
	Fallback string
}

var incomeKeywords = []string{
	"salario", "pix recebido", "ted recebido", "transferencia recebida",
	"deposito", "renda", "freelance", "bonus", "dividendo",
}

// incomeRules run only once an income keyword has been seen.
var incomeRules = []Rule{
	{Type: core.Income, Category: "Salário", Keywords: []string{"salario", "bonus"}},
	{Type: core.Income, Category: "Freelance", Keywords: []string{"freelance"}},
	{Type: core.Income, Category: "Investimentos", Keywords: []string{"dividendo"}, Fallback: "Dividendos"},
}

var expenseRules = []Rule{
	{
		Type:     core.Expense,
		Category: "Transporte",
		Keywords: []string{"uber", "99", "posto", "gasolina", "combustivel", "bus", "metro", "taxi"},
		Refine: []SubRule{
			{"Combustível", []string{"posto", "gasolina", "combustivel"}},
			{"Aplicativo de Transporte", []string{"uber", "99", "taxi"}},
		},
	},
	{
		Type:     core.Expense,
		Category: "Alimentação",
		Keywords: []string{"supermercado", "ifood", "restaurante", "padaria", "lanche", "mercado", "feira", "alimentacao", "comida"},
		Refine: []SubRule{
			{"Supermercado", []string{"supermercado", "mercado"}},
			{"Delivery", []string{"ifood"}},
			{"Restaurantes", []string{"restaurante"}},
		},
	},
	{
		Type:     core.Expense,
		Category: "Lazer",
		Keywords: []string{"netflix", "spotify", "cinema", "streaming", "filme", "teatro", "show", "festa", "diversao"},
		Refine: []SubRule{
			{"Streaming", []string{"netflix", "spotify", "streaming"}},
			{"Cinema", []string{"cinema"}},
		},
	},
	{
		Type:     core.Expense,
		Category: "Saúde",
		Keywords: []string{"farmacia", "hospital", "medico", "clinica", "laboratorio", "exame", "remedio", "plano de saude", "consulta"},
		Refine: []SubRule{
			{"Farmácia", []string{"farmacia", "remedio"}},
			{"Plano de Saúde", []string{"plano de saude"}},
			{"Consultas Médicas", []string{"medico", "consulta"}},
		},
	},
	{
		Type:     core.Expense,
		Category: "Casa",
		Keywords: []string{"condominio", "aluguel", "energia", "agua", "gas", "internet", "telefone", "limpeza", "reforma"},
		Refine: []SubRule{
			{"Aluguel", []string{"aluguel"}},
			{"Condomínio", []string{"condominio"}},
			{"Energia Elétrica", []string{"energia"}},
			{"Água", []string{"agua"}},
			{"Internet", []string{"internet"}},
		},
	},
	{
		Type:     core.Expense,
		Category: "Educação",
		Keywords: []string{"escola", "faculdade", "curso", "livro", "material escolar", "mensalidade"},
	},
	{
		Type:     core.Expense,
		Category: core.CategoryDebt,
		Keywords: []string{"cartao", "financiamento", "emprestimo", "parcela", "juros", "divida"},
		Refine: []SubRule{
			{"Cartão de Crédito", []string{"cartao"}},
			{"Financiamento", []string{"financiamento"}},
			{"Empréstimo", []string{"emprestimo"}},
		},
	},
	{
		Type:     core.Expense,
		Category: "Vestuário",
		Keywords: []string{"roupa", "sapato", "calcado", "loja", "vestuario", "moda"},
	},
}

// Classify returns the suggestion for description. It never fails: text matching
// no rule is an expense in the "Outros" category.
func Classify(description string) Suggestion {
	text := core.FoldText(description)

	if containsAny(text, incomeKeywords) {
		for _, r := range incomeRules {
			if s, ok := r.match(text); ok {
				return s
			}
		}
		return Suggestion{Type: core.Income, Category: core.CategoryOther}
	}

	for _, r := range expenseRules {
		if s, ok := r.match(text); ok {
			return s
		}
	}
	return Suggestion{Type: core.Expense, Category: core.CategoryOther}
}

// Rules returns a copy of the ordered rule table, income first.
func Rules() []Rule {
	out := make([]Rule, 0, len(incomeRules)+len(expenseRules))
	for _, r := range incomeRules {
		out = append(out, r.clone())
	}
	for _, r := range expenseRules {
		out = append(out, r.clone())
	}
	return out
}

func (r Rule) clone() Rule {
	r.Keywords = append([]string(nil), r.Keywords...)
	refine := make([]SubRule, len(r.Refine))
	for i, sub := range r.Refine {
		sub.Keywords = append([]string(nil), sub.Keywords...)
		refine[i] = sub
	}
	r.Refine = refine
	return r
}

// IncomeKeywords returns the keywords that route a description to the income rules.
func IncomeKeywords() []string {
	return append([]string(nil), incomeKeywords...)
}

func (r Rule) match(text string) (Suggestion, bool) {
	if !containsAny(text, r.Keywords) {
		return Suggestion{}, false
	}
	s := Suggestion{Type: r.Type, Category: r.Category, Subcategory: r.Fallback}
	for _, sub := range r.Refine {
		if containsAny(text, sub.Keywords) {
			s.Subcategory = sub.Subcategory
			break
		}
	}
	return s, true
}

func containsAny(text string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(text, k) {
			return true
		}
	}
	return false
}
