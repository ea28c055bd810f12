package statement

import (
	"fmt"
	"strings"

	"financas/internal/core"
)

// Row is one statement line. Cells holds positional values (date, description,
// amount); Fields holds header-keyed values. Either may be empty.
type Row struct {
	Cells  []string
	Fields map[string]string
}

var (
	dateKeys        = []string{"data", "date"}
	descriptionKeys = []string{"lancamento", "descricao", "description", "historico"}
	amountKeys      = []string{"valor", "amount"}
)

// Positional builds a row from ordered cells.
func Positional(cells ...string) Row {
	return Row{Cells: cells}
}

// Keyed builds a row from header names to values.
func Keyed(fields map[string]string) Row {
	return Row{Fields: fields}
}

// field resolves a value by position first, then by any header alias.
// Header names are compared case- and accent-insensitively.
func (r Row) field(pos int, aliases []string) (string, bool) {
	if pos < len(r.Cells) {
		if v := strings.TrimSpace(r.Cells[pos]); v != "" {
			return v, true
		}
	}
	if len(r.Fields) == 0 {
		return "", false
	}
	folded := make(map[string]string, len(r.Fields))
	for k, v := range r.Fields {
		folded[core.FoldText(k)] = v
	}
	for _, alias := range aliases {
		if v := strings.TrimSpace(folded[alias]); v != "" {
			return v, true
		}
	}
	return "", false
}

func isKnownHeader(name string) bool {
	n := core.FoldText(name)
	for _, group := range [][]string{dateKeys, descriptionKeys, amountKeys} {
		for _, alias := range group {
			if n == alias {
				return true
			}
		}
	}
	return false
}

// FromSheetValues converts a spreadsheet value range into rows. The first row is a
// header: when it names any known column the data rows are keyed by it, otherwise
// they are read positionally.
func FromSheetValues(values [][]interface{}) []Row {
	if len(values) < 2 {
		return nil
	}
	header := toStrings(values[0])
	keyed := false
	for _, h := range header {
		if isKnownHeader(h) {
			keyed = true
			break
		}
	}

	rows := make([]Row, 0, len(values)-1)
	for _, raw := range values[1:] {
		cells := toStrings(raw)
		if !keyed {
			rows = append(rows, Positional(cells...))
			continue
		}
		fields := make(map[string]string, len(header))
		for i, h := range header {
			if i < len(cells) && h != "" {
				fields[h] = cells[i]
			}
		}
		rows = append(rows, Keyed(fields))
	}
	return rows
}

func toStrings(in []interface{}) []string {
	out := make([]string, len(in))
	for i, v := range in {
		if v == nil {
			continue
		}
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}
