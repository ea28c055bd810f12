package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"financas/internal/core"
	"financas/internal/log"
)

// CycleProcessorConfig holds configuration for the cycle processor
type CycleProcessorConfig struct {
	// Interval is how often the current month is re-evaluated (default: 1h)
	Interval time.Duration
}

func DefaultCycleProcessorConfig() CycleProcessorConfig {
	return CycleProcessorConfig{Interval: time.Hour}
}

// CycleProcessor periodically reloads the state and applies the monthly debt cycle
// for the current month. The cycle is idempotent, so frequent runs are safe.
type CycleProcessor struct {
	finance *FinanceService
	config  CycleProcessorConfig
	logger  *log.Logger

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

func NewCycleProcessor(finance *FinanceService, config CycleProcessorConfig) *CycleProcessor {
	if config.Interval <= 0 {
		config.Interval = DefaultCycleProcessorConfig().Interval
	}
	return &CycleProcessor{
		finance: finance,
		config:  config,
		logger:  log.For(log.ComponentWorker),
	}
}

// RunOnce reloads the state and applies the cycle for the month containing now.
func (p *CycleProcessor) RunOnce(ctx context.Context, now time.Time) error {
	if p.finance == nil {
		return fmt.Errorf("processor not properly initialized")
	}
	if err := p.finance.Reload(ctx); err != nil {
		return err
	}
	return p.finance.RunMonthlyCycle(ctx, core.PeriodOf(now))
}

// Start begins the processing loop. Returns an error if already running.
func (p *CycleProcessor) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return fmt.Errorf("cycle processor is already running")
	}
	p.running = true
	p.stopCh = make(chan struct{})
	p.doneCh = make(chan struct{})
	p.mu.Unlock()

	go p.runLoop(ctx)

	p.logger.InfoContext(ctx, "Cycle processor started", "interval", p.config.Interval)
	return nil
}

// Stop signals the loop and waits for it to finish or for ctx to end.
func (p *CycleProcessor) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	stopCh, doneCh := p.stopCh, p.doneCh
	p.mu.Unlock()

	close(stopCh)

	select {
	case <-doneCh:
		p.logger.InfoContext(ctx, "Cycle processor stopped gracefully")
	case <-ctx.Done():
		p.logger.WarnContext(ctx, "Cycle processor stop timed out")
		return ctx.Err()
	}

	p.mu.Lock()
	p.running = false
	p.mu.Unlock()
	return nil
}

func (p *CycleProcessor) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// Done is closed when the loop exits.
func (p *CycleProcessor) Done() <-chan struct{} {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.doneCh
}

func (p *CycleProcessor) runLoop(ctx context.Context) {
	defer close(p.doneCh)

	ticker := time.NewTicker(p.config.Interval)
	defer ticker.Stop()

	p.tick(ctx)
	for {
		select {
		case <-p.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.tick(ctx)
		}
	}
}

func (p *CycleProcessor) tick(ctx context.Context) {
	if err := p.RunOnce(ctx, time.Now()); err != nil {
		p.logger.ErrorContext(ctx, "Monthly cycle failed", log.FieldError, err)
	}
}
