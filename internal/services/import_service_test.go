package services

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"financas/internal/core"
	"financas/internal/sheets/memory"
	"financas/internal/statement"
	"financas/internal/storage"
)

func writeStatement(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestImportFileAndApprove(t *testing.T) {
	ctx := context.Background()
	finance := newTestService(t, storage.NewMemoryStore(), nil)
	imports := NewImportService(finance, nil)

	path := writeStatement(t, t.TempDir(), "extrato.csv",
		"Data;Lançamento;Valor\n01/03/2024;PIX RECEBIDO SALARIO;3.500,00\n02/03/2024;UBER *TRIP;23,90\n03/03/2024;ESTORNO;0,00\n")

	batch, err := imports.ImportFile(ctx, path)
	if err != nil {
		t.Fatalf("ImportFile() error = %v", err)
	}
	if len(batch.Pending) != 2 {
		t.Fatalf("pending = %d, want 2 (zero amount dropped)", len(batch.Pending))
	}
	if batch.Source != "extrato.csv" || batch.Account != "Conta Principal" || batch.Period != core.PeriodOf(testNow) {
		t.Errorf("batch defaults = %+v", batch)
	}

	batch.Account = "Nubank"
	batch.Period = core.NewPeriod(2024, 2)
	txs, err := imports.Approve(ctx, batch)
	if err != nil {
		t.Fatalf("Approve() error = %v", err)
	}
	if len(txs) != 2 {
		t.Fatalf("approved = %d, want 2", len(txs))
	}
	for _, tx := range txs {
		if tx.Account != "Nubank" || tx.Month != 2 || tx.Year != 2024 {
			t.Errorf("transaction not booked under the batch account and period: %+v", tx)
		}
		if !tx.Amount.IsPositive() {
			t.Errorf("amount = %s, want positive", tx.Amount)
		}
	}
	if txs[1].Category != "Transporte" || !txs[1].Amount.Equal(decimal.RequireFromString("23.90")) {
		t.Errorf("second transaction = %+v", txs[1])
	}

	st := finance.Snapshot()
	if len(st.Transactions) != 2 || len(st.Accounts) != 2 {
		t.Errorf("state after approval: %d transactions, %d accounts", len(st.Transactions), len(st.Accounts))
	}
}

func TestImportFileErrors(t *testing.T) {
	ctx := context.Background()
	imports := NewImportService(newTestService(t, storage.NewMemoryStore(), nil), nil)
	dir := t.TempDir()

	tests := []struct {
		name    string
		file    string
		content string
		want    error
	}{
		{"unsupported extension", "extrato.pdf", "%PDF", statement.ErrUnsupportedFileType},
		{"no valid rows", "vazio.csv", "Data,Descrição,Valor\n", statement.ErrNoValidTransactions},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeStatement(t, dir, tt.file, tt.content)
			if _, err := imports.ImportFile(ctx, path); !errors.Is(err, tt.want) {
				t.Errorf("ImportFile() error = %v, want %v", err, tt.want)
			}
		})
	}

	if _, err := imports.ImportFile(ctx, filepath.Join(dir, "missing.csv")); err == nil {
		t.Error("ImportFile() should fail for a missing file")
	}
	if _, err := imports.Approve(ctx, &Batch{}); !errors.Is(err, statement.ErrNoValidTransactions) {
		t.Errorf("Approve(empty) error = %v", err)
	}
}

func TestImportFiles(t *testing.T) {
	ctx := context.Background()
	imports := NewImportService(newTestService(t, storage.NewMemoryStore(), nil), nil)
	dir := t.TempDir()

	a := writeStatement(t, dir, "a.csv", "Data,Descrição,Valor\n01/03/2024,IFOOD,45.00\n")
	b := writeStatement(t, dir, "b.txt", "Data\tDescrição\tValor\n05/03/2024\tFARMACIA PAGUE MENOS\t32,10\n06/03/2024\tNETFLIX\t39,90\n")

	batch, err := imports.ImportFiles(ctx, a, b)
	if err != nil {
		t.Fatalf("ImportFiles() error = %v", err)
	}
	if len(batch.Pending) != 3 {
		t.Fatalf("pending = %d, want 3", len(batch.Pending))
	}
	if batch.Pending[0].Description != "IFOOD" {
		t.Errorf("rows should keep argument order, first = %q", batch.Pending[0].Description)
	}

	bad := writeStatement(t, dir, "c.xlsx", "x")
	if _, err := imports.ImportFiles(ctx, a, bad); !errors.Is(err, statement.ErrUnsupportedFileType) {
		t.Errorf("ImportFiles() error = %v, want ErrUnsupportedFileType", err)
	}
}

func TestImportSheet(t *testing.T) {
	ctx := context.Background()
	reader := memory.New("Extrato!A:C")
	reader.Set("Extrato!A:C", [][]interface{}{
		{"Data", "Descrição", "Valor"},
		{"10/03/2024", "Aluguel apartamento", "1.800,00"},
		{"sem data", "", ""},
	})
	imports := NewImportService(newTestService(t, storage.NewMemoryStore(), nil), reader)

	batch, err := imports.ImportSheet(ctx, "")
	if err != nil {
		t.Fatalf("ImportSheet() error = %v", err)
	}
	if len(batch.Pending) != 1 || batch.Pending[0].SuggestedCategory != "Casa" {
		t.Fatalf("pending = %+v", batch.Pending)
	}
	if batch.Source != "spreadsheet" {
		t.Errorf("source = %q", batch.Source)
	}

	if _, err := imports.ImportSheet(ctx, "Outra!A:C"); err == nil {
		t.Error("ImportSheet() should fail for an unknown range")
	}
	if _, err := NewImportService(nil, nil).ImportSheet(ctx, ""); err == nil {
		t.Error("ImportSheet() without a reader should fail")
	}
}

func TestCycleProcessor(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	finance := newTestService(t, store, nil)
	d, _ := finance.AddDebt(ctx, testDebt())

	p := NewCycleProcessor(finance, CycleProcessorConfig{})
	if p.config.Interval != time.Hour {
		t.Errorf("default interval = %v", p.config.Interval)
	}

	if err := p.RunOnce(ctx, testNow); err != nil {
		t.Fatalf("RunOnce() error = %v", err)
	}
	if err := p.RunOnce(ctx, testNow); err != nil {
		t.Fatalf("RunOnce() error = %v", err)
	}
	var balance decimal.Decimal
	for _, debt := range finance.Snapshot().Debts {
		if debt.ID == d.ID {
			balance = debt.Balance
		}
	}
	if !balance.Equal(decimal.NewFromInt(1020)) {
		t.Errorf("balance = %s, want 1020", balance)
	}

	if err := NewCycleProcessor(nil, CycleProcessorConfig{}).RunOnce(ctx, testNow); err == nil {
		t.Error("RunOnce() without a service should fail")
	}
}

func TestCycleProcessorLifecycle(t *testing.T) {
	finance := newTestService(t, storage.NewMemoryStore(), nil)
	p := NewCycleProcessor(finance, CycleProcessorConfig{Interval: 10 * time.Millisecond})

	if p.IsRunning() {
		t.Fatal("processor should not be running initially")
	}
	if err := p.Stop(context.Background()); err != nil {
		t.Errorf("Stop() when not running error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := p.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := p.Start(ctx); err == nil {
		t.Error("second Start() should fail")
	}

	time.Sleep(30 * time.Millisecond)
	stopCtx, stopCancel := context.WithTimeout(context.Background(), time.Second)
	defer stopCancel()
	if err := p.Stop(stopCtx); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if p.IsRunning() {
		t.Error("processor should not be running after Stop")
	}
}
