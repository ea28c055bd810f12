// Package events carries domain notifications between independently built components.
package events

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// DebtPayment is published after a payment has been applied to a debt.
type DebtPayment struct {
	DebtID    string          `json:"debtId"`
	Amount    decimal.Decimal `json:"paymentAmount"`
	Timestamp time.Time       `json:"timestamp"`
}

// Publisher delivers domain events.
type Publisher interface {
	PublishDebtPayment(ctx context.Context, e DebtPayment) error
}

// Handler reacts to a debt payment.
type Handler func(ctx context.Context, e DebtPayment) error

// PublisherFunc adapts a function to Publisher.
type PublisherFunc func(ctx context.Context, e DebtPayment) error

func (f PublisherFunc) PublishDebtPayment(ctx context.Context, e DebtPayment) error {
	return f(ctx, e)
}

type subscription struct {
	id      int
	handler Handler
}

// Bus is an in-process observer. Handlers run synchronously in subscription order.
type Bus struct {
	mu     sync.RWMutex
	nextID int
	subs   []subscription
}

func NewBus() *Bus {
	return &Bus{}
}

// Subscribe registers h and returns a function that removes it.
func (b *Bus) Subscribe(h Handler) (unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	id := b.nextID
	b.subs = append(b.subs, subscription{id: id, handler: h})

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			for i, s := range b.subs {
				if s.id == id {
					b.subs = append(b.subs[:i:i], b.subs[i+1:]...)
					return
				}
			}
		})
	}
}

// PublishDebtPayment calls every handler even when some fail and joins their errors.
func (b *Bus) PublishDebtPayment(ctx context.Context, e DebtPayment) error {
	b.mu.RLock()
	subs := append([]subscription(nil), b.subs...)
	b.mu.RUnlock()

	var errs []error
	for _, s := range subs {
		if err := s.handler(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Len reports the number of subscribers.
func (b *Bus) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Fanout publishes to every non-nil publisher in order.
type Fanout []Publisher

func (f Fanout) PublishDebtPayment(ctx context.Context, e DebtPayment) error {
	var errs []error
	for _, p := range f {
		if p == nil {
			continue
		}
		if err := p.PublishDebtPayment(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
