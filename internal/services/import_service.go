package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"financas/internal/core"
	"financas/internal/log"
	"financas/internal/sheets"
	"financas/internal/statement"
	"financas/internal/taxonomy"
)

const maxParallelFiles = 4

// Batch is a set of parsed rows awaiting approval under one account and month.
type Batch struct {
	Source  string                    `json:"source"`
	Pending []core.PendingTransaction `json:"pending"`
	Account string                    `json:"account"`
	Period  core.Period               `json:"period"`
}

// ImportService turns statement files and spreadsheet ranges into batches and
// hands approved batches to the FinanceService.
type ImportService struct {
	parser  *statement.Parser
	reader  sheets.StatementReader
	finance *FinanceService
	logger  *log.Logger
}

// NewImportService wires the importer. reader may be nil when no spreadsheet is configured.
func NewImportService(finance *FinanceService, reader sheets.StatementReader) *ImportService {
	logger := log.For(log.ComponentService)
	return &ImportService{
		parser:  statement.NewParser(logger.WithComponent(log.ComponentStatement)),
		reader:  reader,
		finance: finance,
		logger:  logger,
	}
}

// newBatch defaults the account to the first registered one and the period to the
// current month.
func (s *ImportService) newBatch(source string, pending []core.PendingTransaction) *Batch {
	b := &Batch{Source: source, Pending: pending, Account: taxonomy.DefaultAccount, Period: core.CurrentPeriod()}
	if s.finance != nil {
		if accounts := s.finance.Snapshot().Accounts; len(accounts) > 0 {
			b.Account = accounts[0].Name
		}
		b.Period = s.finance.currentPeriod()
	}
	return b
}

// ImportFile parses the statement at path.
func (s *ImportService) ImportFile(ctx context.Context, path string) (*Batch, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open statement: %w", err)
	}
	defer f.Close()

	pending, err := s.parser.ParseFile(f, path)
	if err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "Statement imported", log.FieldOperation, log.OpImport, log.FieldFile, filepath.Base(path), log.FieldCount, len(pending))
	return s.newBatch(filepath.Base(path), pending), nil
}

// ImportFiles parses several statements concurrently and merges them into one batch
// in argument order. The first failure cancels the rest.
func (s *ImportService) ImportFiles(ctx context.Context, paths ...string) (*Batch, error) {
	results := make([]*Batch, len(paths))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelFiles)
	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			b, err := s.ImportFile(ctx, path)
			if err != nil {
				return fmt.Errorf("%s: %w", filepath.Base(path), err)
			}
			results[i] = b
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var pending []core.PendingTransaction
	for _, b := range results {
		pending = append(pending, b.Pending...)
	}
	return s.newBatch(fmt.Sprintf("%d files", len(paths)), pending), nil
}

// ImportSheet reads a spreadsheet range (empty for the default one).
func (s *ImportService) ImportSheet(ctx context.Context, rangeA1 string) (*Batch, error) {
	if s.reader == nil {
		return nil, errors.New("no spreadsheet source configured")
	}
	values, err := s.reader.ReadStatement(ctx, rangeA1)
	if err != nil {
		return nil, fmt.Errorf("read spreadsheet: %w", err)
	}
	pending := s.parser.ParseRows(statement.FromSheetValues(values))
	if len(pending) == 0 {
		return nil, statement.ErrNoValidTransactions
	}
	source := rangeA1
	if source == "" {
		source = "spreadsheet"
	}
	s.logger.InfoContext(ctx, "Spreadsheet imported", log.FieldOperation, log.OpImport, "range", source, log.FieldCount, len(pending))
	return s.newBatch(source, pending), nil
}

// Approve books the whole batch.
func (s *ImportService) Approve(ctx context.Context, b *Batch) ([]core.Transaction, error) {
	if b == nil || len(b.Pending) == 0 {
		return nil, statement.ErrNoValidTransactions
	}
	return s.finance.ApproveImport(ctx, b.Pending, b.Account, b.Period)
}
