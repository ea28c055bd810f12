// Package statement turns bank statement exports into pending transactions.
package statement

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"financas/internal/classifier"
	"financas/internal/core"
	"financas/internal/log"
)

// MaxFileSize bounds how much of an upload is read.
const MaxFileSize = 10 << 20

var (
	// ErrUnsupportedFileType is returned before any row is read.
	ErrUnsupportedFileType = errors.New("unsupported file type")
	// ErrUnreadableFile covers binary content, oversized files and broken quoting.
	ErrUnreadableFile = errors.New("unreadable statement file")
	// ErrNoValidTransactions means the file was read but no row survived filtering.
	ErrNoValidTransactions = errors.New("no valid transactions found in file")
)

// Parser converts rows into pending transactions. The zero value is not usable; call NewParser.
type Parser struct {
	// Classify suggests type and category for a description.
	Classify func(description string) classifier.Suggestion
	// NewID returns the id of a pending row.
	NewID func() string

	logger *log.Logger
}

func NewParser(logger *log.Logger) *Parser {
	if logger == nil {
		logger = log.For(log.ComponentStatement)
	}
	return &Parser{
		Classify: classifier.Classify,
		NewID:    func() string { return "pending-" + uuid.NewString() },
		logger:   logger,
	}
}

// ParseFile reads a .csv or .txt export. The extension is checked first and an
// unsupported one fails with ErrUnsupportedFileType without reading r.
func (p *Parser) ParseFile(r io.Reader, filename string) ([]core.PendingTransaction, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext != ".csv" && ext != ".txt" {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFileType, filepath.Base(filename))
	}

	data, err := io.ReadAll(io.LimitReader(r, MaxFileSize+1))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", filename, err)
	}
	if len(data) > MaxFileSize {
		return nil, fmt.Errorf("%w: larger than %d bytes", ErrUnreadableFile, MaxFileSize)
	}
	text, err := decodeText(data)
	if err != nil {
		return nil, err
	}

	var rows []Row
	switch ext {
	case ".csv":
		rows, err = readDelimited(text)
		if err != nil {
			return nil, err
		}
	case ".txt":
		rows = readColumns(text)
	}

	pending := p.ParseRows(rows)
	if len(pending) == 0 {
		return nil, ErrNoValidTransactions
	}
	p.logger.Info("Statement parsed", log.FieldFile, filepath.Base(filename), "rows", len(rows), log.FieldCount, len(pending))
	return pending, nil
}

// ParseRows keeps every row with a date, a description and a positive amount,
// preserving input order. Dropped rows are not errors.
func (p *Parser) ParseRows(rows []Row) []core.PendingTransaction {
	out := make([]core.PendingTransaction, 0, len(rows))
	for i, row := range rows {
		rawDate, okDate := row.field(0, dateKeys)
		desc, okDesc := row.field(1, descriptionKeys)
		rawAmount, okAmount := row.field(2, amountKeys)
		if !okDate || !okDesc || !okAmount {
			p.logger.Debug("Skipping statement row", log.FieldRow, i, log.FieldReason, "missing field")
			continue
		}

		amount := core.ParseMonetaryValue(rawAmount)
		if !amount.IsPositive() {
			p.logger.Debug("Skipping statement row", log.FieldRow, i, log.FieldReason, "non-positive amount", "raw", rawAmount)
			continue
		}

		date, parsed := core.ParseDate(rawDate)
		if !parsed {
			date = core.Today()
			p.logger.Warn("Unreadable statement date, using today", log.FieldRow, i, "raw", rawDate)
		}

		s := p.Classify(desc)
		out = append(out, core.PendingTransaction{
			ID:                   p.NewID(),
			Date:                 date,
			Description:          desc,
			Amount:               amount,
			SuggestedType:        s.Type,
			SuggestedCategory:    s.Category,
			SuggestedSubcategory: s.Subcategory,
			DateParsed:           parsed,
		})
	}
	return out
}
