package statement

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

var (
	utf8BOM        = []byte{0xEF, 0xBB, 0xBF}
	wideSpaceSplit = regexp.MustCompile(`\s{2,}`)
)

// DetectDelimiter picks the separator of a delimited export from its first five
// lines: semicolon when it outnumbers commas, otherwise comma. A tab wins only
// when it outnumbers both.
func DetectDelimiter(sample string) rune {
	lines := strings.SplitN(sample, "\n", 6)
	if len(lines) > 5 {
		lines = lines[:5]
	}
	head := strings.Join(lines, "\n")

	commas := strings.Count(head, ",")
	semicolons := strings.Count(head, ";")
	tabs := strings.Count(head, "\t")

	switch {
	case tabs > commas && tabs > semicolons:
		return '\t'
	case semicolons > commas:
		return ';'
	default:
		return ','
	}
}

// decodeText rejects binary content and transcodes legacy Windows-1252 exports to UTF-8.
func decodeText(data []byte) (string, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	if bytes.IndexByte(data, 0) != -1 {
		return "", fmt.Errorf("%w: binary content", ErrUnreadableFile)
	}
	if utf8.Valid(data) {
		return string(data), nil
	}
	decoded, err := charmap.Windows1252.NewDecoder().Bytes(data)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnreadableFile, err)
	}
	return string(decoded), nil
}

// readDelimited parses CSV text. Blank lines are ignored and the first record is a header.
func readDelimited(text string) ([]Row, error) {
	r := csv.NewReader(strings.NewReader(text))
	r.Comma = DetectDelimiter(text)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.TrimLeadingSpace = true

	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadableFile, err)
	}
	if len(records) < 2 {
		return nil, nil
	}

	rows := make([]Row, 0, len(records)-1)
	for _, rec := range records[1:] {
		cells := make([]string, len(rec))
		for i, c := range rec {
			cells[i] = strings.TrimSpace(c)
		}
		rows = append(rows, Positional(cells...))
	}
	return rows, nil
}

// readColumns parses a plain-text export. Each line is split on tabs, else on
// semicolons, else on runs of two or more spaces. The first line is a header.
func readColumns(text string) []Row {
	var lines []string
	for _, line := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n") {
		if strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
	}
	if len(lines) < 2 {
		return nil
	}

	rows := make([]Row, 0, len(lines)-1)
	for _, line := range lines[1:] {
		var parts []string
		switch {
		case strings.Contains(line, "\t"):
			parts = strings.Split(line, "\t")
		case strings.Contains(line, ";"):
			parts = strings.Split(line, ";")
		default:
			parts = wideSpaceSplit.Split(strings.TrimSpace(line), -1)
		}
		for i := range parts {
			parts[i] = strings.TrimSpace(strings.Trim(parts[i], `"`))
		}
		rows = append(rows, Positional(parts...))
	}
	return rows
}
