package events

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func payment() DebtPayment {
	return DebtPayment{DebtID: "d1", Amount: decimal.NewFromInt(100), Timestamp: time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC)}
}

func TestBus_DeliversInOrder(t *testing.T) {
	bus := NewBus()
	var calls []string
	bus.Subscribe(func(_ context.Context, e DebtPayment) error {
		calls = append(calls, "first:"+e.DebtID)
		return nil
	})
	bus.Subscribe(func(_ context.Context, e DebtPayment) error {
		calls = append(calls, "second:"+e.DebtID)
		return nil
	})

	if err := bus.PublishDebtPayment(context.Background(), payment()); err != nil {
		t.Fatalf("PublishDebtPayment() error = %v", err)
	}
	if len(calls) != 2 || calls[0] != "first:d1" || calls[1] != "second:d1" {
		t.Fatalf("calls = %v", calls)
	}
}

func TestBus_Unsubscribe(t *testing.T) {
	bus := NewBus()
	count := 0
	unsubscribe := bus.Subscribe(func(context.Context, DebtPayment) error {
		count++
		return nil
	})
	_ = bus.PublishDebtPayment(context.Background(), payment())
	unsubscribe()
	unsubscribe()
	_ = bus.PublishDebtPayment(context.Background(), payment())

	if count != 1 {
		t.Fatalf("handler called %d times, want 1", count)
	}
	if bus.Len() != 0 {
		t.Fatalf("Len() = %d, want 0", bus.Len())
	}
}

func TestBus_JoinsHandlerErrors(t *testing.T) {
	bus := NewBus()
	errA := errors.New("a failed")
	reached := false
	bus.Subscribe(func(context.Context, DebtPayment) error { return errA })
	bus.Subscribe(func(context.Context, DebtPayment) error {
		reached = true
		return nil
	})

	err := bus.PublishDebtPayment(context.Background(), payment())
	if !errors.Is(err, errA) {
		t.Fatalf("error = %v, want %v", err, errA)
	}
	if !reached {
		t.Fatal("a failing handler must not stop delivery")
	}
}

func TestFanout(t *testing.T) {
	var got []DebtPayment
	collect := PublisherFunc(func(_ context.Context, e DebtPayment) error {
		got = append(got, e)
		return nil
	})
	boom := errors.New("boom")
	failing := PublisherFunc(func(context.Context, DebtPayment) error { return boom })

	err := Fanout{collect, nil, failing, collect}.PublishDebtPayment(context.Background(), payment())
	if !errors.Is(err, boom) {
		t.Fatalf("error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("delivered %d times, want 2", len(got))
	}
}
