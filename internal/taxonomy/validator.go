package taxonomy

import (
	"fmt"
	"sort"

	"financas/internal/core"
)

// Validator checks (type, category, subcategory) triples against a taxonomy.
// Names are compared case- and accent-insensitively.
type Validator struct {
	// categories maps type -> folded category name -> set of folded subcategory names.
	categories map[core.TransactionType]map[string]map[string]bool
}

func NewValidator(categories []core.Category) *Validator {
	v := &Validator{categories: make(map[core.TransactionType]map[string]map[string]bool)}
	for _, c := range categories {
		byName := v.categories[c.Type]
		if byName == nil {
			byName = make(map[string]map[string]bool)
			v.categories[c.Type] = byName
		}
		subs := byName[core.FoldText(c.Name)]
		if subs == nil {
			subs = make(map[string]bool)
			byName[core.FoldText(c.Name)] = subs
		}
		for _, s := range c.Subcategories {
			subs[core.FoldText(s.Name)] = true
		}
	}
	return v
}

// Validate returns nil when the category exists for typ and, if a subcategory is
// given, the category has it.
func (v *Validator) Validate(typ core.TransactionType, category, subcategory string) error {
	subs, ok := v.categories[typ][core.FoldText(category)]
	if !ok {
		return fmt.Errorf("%w: %q (%s)", ErrCategoryNotFound, category, typ)
	}
	if subcategory == "" || subs[core.FoldText(subcategory)] {
		return nil
	}
	valid := make([]string, 0, len(subs))
	for s := range subs {
		valid = append(valid, s)
	}
	sort.Strings(valid)
	return fmt.Errorf("invalid subcategory %q for category %q, valid subcategories: %v", subcategory, category, valid)
}
