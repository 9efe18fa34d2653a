package app

import (
	"context"
	"errors"
	"time"

	"elearnhub/internal/util"
	"elearnhub/pkg/domain"
	"elearnhub/pkg/payment"
	"elearnhub/pkg/queue"
)

// Queue is the settlement job source.
type Queue interface {
	Start(ctx context.Context, concurrency int, handler queue.Handler)
	Wait()
	GetJob(ctx context.Context, jobID string) (queue.JobStatus, bool, error)
}

// Marketplace records the final state of a pending payment.
type Marketplace interface {
	Settle(ctx context.Context, paymentID, transactionID string, status domain.PaymentStatus) error
}

type Config struct {
	Queue        Queue
	Processor    *payment.Processor
	Marketplace  Marketplace
	Concurrency  int
	ConfirmDelay time.Duration
}

// App confirms pending M-Pesa and PayPal payments off the request path.
type App struct {
	queue        Queue
	processor    *payment.Processor
	marketplace  Marketplace
	concurrency  int
	confirmDelay time.Duration
}

func New(cfg Config) (*App, error) {
	if cfg.Queue == nil {
		return nil, errors.New("settlement queue required")
	}
	if cfg.Processor == nil {
		return nil, errors.New("payment processor required")
	}
	if cfg.Marketplace == nil {
		return nil, errors.New("marketplace client required")
	}
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}
	return &App{
		queue:        cfg.Queue,
		processor:    cfg.Processor,
		marketplace:  cfg.Marketplace,
		concurrency:  concurrency,
		confirmDelay: cfg.ConfirmDelay,
	}, nil
}

// Start launches the consumers; they run until ctx is cancelled.
func (a *App) Start(ctx context.Context) {
	a.queue.Start(ctx, a.concurrency, a.Settle)
}

func (a *App) Wait() { a.queue.Wait() }

func (a *App) Job(ctx context.Context, jobID string) (queue.JobStatus, bool, error) {
	return a.queue.GetJob(ctx, jobID)
}

// Settle verifies one pending payment with its gateway and reports the
// outcome. Rejections by the marketplace are final and do not retry.
func (a *App) Settle(ctx context.Context, job queue.JobStatus) error {
	logger := util.LoggerFromContext(ctx).With("job_id", job.ID, "payment_id", job.PaymentID, "method", job.Method)
	if err := wait(ctx, a.confirmDelay); err != nil {
		return err
	}
	resp := a.processor.Verify(ctx, job.TransactionID, domain.PaymentMethod(job.Method))
	if err := ctx.Err(); err != nil {
		return err
	}
	status := domain.PaymentCompleted
	if !resp.Success {
		status = domain.PaymentFailed
	}
	err := a.marketplace.Settle(ctx, job.PaymentID, job.TransactionID, status)
	if errors.Is(err, ErrSettlementRejected) {
		logger.Warn("settlement rejected", "status", status, "err", err)
		return nil
	}
	if err != nil {
		return err
	}
	logger.Info("payment settled", "status", status, "message", resp.Message)
	return nil
}

func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
