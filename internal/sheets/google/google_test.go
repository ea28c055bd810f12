package google

import (
	"context"
	"errors"
	"testing"
	"time"

	ports "financas/internal/sheets"
)

func TestReadStatementCachesPerRange(t *testing.T) {
	calls := map[string]int{}
	fetch := func(_ context.Context, rng string) ([][]interface{}, error) {
		calls[rng]++
		return [][]interface{}{{"Data", "Descrição", "Valor"}, {"01/02/2024", "Mercado", "10,00"}}, nil
	}
	c := newClient("sheet-id", "", time.Minute, fetch)

	for i := 0; i < 3; i++ {
		values, err := c.ReadStatement(context.Background(), "")
		if err != nil {
			t.Fatalf("ReadStatement() error = %v", err)
		}
		if len(values) != 2 {
			t.Fatalf("rows = %d, want 2", len(values))
		}
	}
	if calls[DefaultRange] != 1 {
		t.Errorf("default range fetched %d times, want 1", calls[DefaultRange])
	}

	if _, err := c.ReadStatement(context.Background(), "Março!A:C"); err != nil {
		t.Fatalf("ReadStatement() error = %v", err)
	}
	if calls["Março!A:C"] != 1 {
		t.Errorf("explicit range fetched %d times, want 1", calls["Março!A:C"])
	}

	c.InvalidateCache()
	if _, err := c.ReadStatement(context.Background(), ""); err != nil {
		t.Fatalf("ReadStatement() error = %v", err)
	}
	if calls[DefaultRange] != 2 {
		t.Errorf("default range fetched %d times after invalidation, want 2", calls[DefaultRange])
	}
}

func TestReadStatementCacheExpires(t *testing.T) {
	calls := 0
	fetch := func(context.Context, string) ([][]interface{}, error) {
		calls++
		return [][]interface{}{{"a"}}, nil
	}
	c := newClient("sheet-id", "R!A:C", 50*time.Millisecond, fetch)

	_, _ = c.ReadStatement(context.Background(), "")
	time.Sleep(100 * time.Millisecond)
	_, _ = c.ReadStatement(context.Background(), "")

	if calls != 2 {
		t.Errorf("fetch calls = %d, want 2 after expiry", calls)
	}
}

func TestReadStatementErrors(t *testing.T) {
	t.Run("fetch failure is wrapped and not cached", func(t *testing.T) {
		boom := errors.New("quota exceeded")
		calls := 0
		c := newClient("sheet-id", "", time.Minute, func(context.Context, string) ([][]interface{}, error) {
			calls++
			return nil, boom
		})
		for i := 0; i < 2; i++ {
			if _, err := c.ReadStatement(context.Background(), ""); !errors.Is(err, boom) {
				t.Fatalf("error = %v, want %v", err, boom)
			}
		}
		if calls != 2 {
			t.Errorf("failed reads should not be cached, fetch calls = %d", calls)
		}
	})

	t.Run("empty range", func(t *testing.T) {
		c := newClient("sheet-id", "", time.Minute, func(context.Context, string) ([][]interface{}, error) {
			return nil, nil
		})
		if _, err := c.ReadStatement(context.Background(), ""); !errors.Is(err, ports.ErrRangeNotFound) {
			t.Errorf("error = %v, want ErrRangeNotFound", err)
		}
	})

	t.Run("uninitialized client", func(t *testing.T) {
		c := &Client{}
		if _, err := c.ReadStatement(context.Background(), ""); err == nil {
			t.Error("expected an error from a client without a service")
		}
	})
}

func TestNewRequiresSpreadsheetID(t *testing.T) {
	if _, err := New(context.Background(), "  ", "", 0); err == nil {
		t.Error("New() should reject an empty spreadsheet id")
	}
}
