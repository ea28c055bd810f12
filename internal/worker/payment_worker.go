// Package worker applies debt payment events delivered by the message broker.
package worker

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"financas/internal/events"
	"financas/internal/log"
)

// Consumer delivers debt payment events until ctx ends.
type Consumer interface {
	ConsumeDebtPayments(ctx context.Context, handler events.Handler) error
}

// PaymentApplier records a payment against the ledger. It must be idempotent for
// redelivered events.
type PaymentApplier interface {
	HandleDebtPaymentEvent(ctx context.Context, p events.DebtPayment) error
}

// PaymentWorker consumes debt payment events and applies them.
type PaymentWorker struct {
	consumer Consumer
	applier  PaymentApplier
	logger   *log.Logger

	handled atomic.Int64
	failed  atomic.Int64
}

func NewPaymentWorker(consumer Consumer, applier PaymentApplier) *PaymentWorker {
	return &PaymentWorker{
		consumer: consumer,
		applier:  applier,
		logger:   log.For(log.ComponentWorker),
	}
}

// HandleDebtPayment applies one event. A returned error makes the broker requeue it.
func (w *PaymentWorker) HandleDebtPayment(ctx context.Context, p events.DebtPayment) error {
	w.logger.InfoContext(ctx, "Processing debt payment",
		log.FieldDebtID, p.DebtID,
		log.FieldAmount, p.Amount,
		"timestamp", p.Timestamp)

	if err := w.applier.HandleDebtPaymentEvent(ctx, p); err != nil {
		w.failed.Add(1)
		w.logger.ErrorContext(ctx, "Failed to apply debt payment",
			log.FieldDebtID, p.DebtID,
			log.FieldError, err)
		return fmt.Errorf("apply debt payment %s: %w", p.DebtID, err)
	}

	w.handled.Add(1)
	return nil
}

// Run consumes until ctx is cancelled. Cancellation is not an error.
func (w *PaymentWorker) Run(ctx context.Context) error {
	if w.consumer == nil || w.applier == nil {
		return fmt.Errorf("payment worker not properly initialized")
	}
	w.logger.InfoContext(ctx, "Payment worker started", log.FieldOperation, log.OpStartup)

	err := w.consumer.ConsumeDebtPayments(ctx, w.HandleDebtPayment)
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	w.logger.InfoContext(ctx, "Payment worker stopped",
		"handled", w.handled.Load(),
		"failed", w.failed.Load())
	return nil
}

// Stats returns the number of applied and failed events.
func (w *PaymentWorker) Stats() (handled, failed int64) {
	return w.handled.Load(), w.failed.Load()
}
