package notification

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-email-service/internal/domain"
	"github.com/go-email-service/internal/metrics"
	"github.com/go-email-service/internal/pkg/id"
	"github.com/go-email-service/internal/pkg/logger"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

// Transport performs a single delivery attempt.
type Transport interface {
	Send(ctx context.Context, msg domain.EmailMessage) error
}

type dispatchLog interface {
	Put(ctx context.Context, d *domain.Dispatch) error
	MarkResult(ctx context.Context, dispatchID, status, reason string) error
	Get(ctx context.Context, dispatchID string) (*domain.Dispatch, error)
}

// DispatcherDeps groups the collaborators of a Dispatcher.
// Log and Metrics are optional.
type DispatcherDeps struct {
	Transport Transport
	Log       dispatchLog
	Metrics   *metrics.Metrics
	Logger    *zap.Logger
	Workers   int64
	LogTTL    time.Duration
}

// Dispatcher sends email on background goroutines, at most Workers at a time.
type Dispatcher struct {
	transport Transport
	log       dispatchLog
	metrics   *metrics.Metrics
	logger    *zap.Logger
	sem       *semaphore.Weighted
	logTTL    time.Duration
	wg        sync.WaitGroup
}

func NewDispatcher(deps DispatcherDeps) *Dispatcher {
	workers := deps.Workers
	if workers < 1 {
		workers = 1
	}
	return &Dispatcher{
		transport: deps.Transport,
		log:       deps.Log,
		metrics:   deps.Metrics,
		logger:    logger.OrNop(deps.Logger).With(zap.String("component", "mail_dispatcher")),
		sem:       semaphore.NewWeighted(workers),
		logTTL:    deps.LogTTL,
	}
}

// Send starts exactly one delivery attempt for msg and returns immediately.
// A failure resolves the Pending with a *domain.MailError.
func (d *Dispatcher) Send(ctx context.Context, msg domain.EmailMessage) *Pending {
	p := newPending(id.New())
	ctx = context.WithoutCancel(ctx)
	l := logger.WithContext(ctx, d.logger).With(zap.String("dispatch_id", p.id), zap.String("to", msg.To))

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.record(ctx, l, p.id, msg)
		p.resolve(d.deliver(ctx, l, p.id, msg))
	}()
	return p
}

func (d *Dispatcher) deliver(ctx context.Context, l *zap.Logger, dispatchID string, msg domain.EmailMessage) error {
	if err := d.sem.Acquire(ctx, 1); err != nil {
		return &domain.MailError{Recipient: msg.To, Err: err}
	}
	defer d.sem.Release(1)

	start := time.Now()
	err := d.transport.Send(ctx, msg)
	d.metrics.ObserveDispatch(err, time.Since(start))

	if err != nil {
		l.Warn("email dispatch failed", zap.Error(err))
		d.markResult(ctx, l, dispatchID, domain.DispatchFailed, err.Error())
		return &domain.MailError{Recipient: msg.To, Err: err}
	}
	l.Info("email dispatched")
	d.markResult(ctx, l, dispatchID, domain.DispatchSent, "")
	return nil
}

func (d *Dispatcher) record(ctx context.Context, l *zap.Logger, dispatchID string, msg domain.EmailMessage) {
	if d.log == nil {
		return
	}
	now := time.Now().UTC()
	rec := &domain.Dispatch{
		DispatchID: dispatchID,
		Recipient:  msg.To,
		Subject:    msg.Subject,
		Status:     domain.DispatchPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if d.logTTL > 0 {
		rec.ExpiresAt = now.Add(d.logTTL).Unix()
	}
	if err := d.log.Put(ctx, rec); err != nil {
		l.Warn("record dispatch", zap.Error(err))
	}
}

func (d *Dispatcher) markResult(ctx context.Context, l *zap.Logger, dispatchID, status, reason string) {
	if d.log == nil {
		return
	}
	if err := d.log.MarkResult(ctx, dispatchID, status, reason); err != nil {
		l.Warn("update dispatch record", zap.String("status", status), zap.Error(err))
	}
}

// Lookup returns the audit record of a dispatch.
func (d *Dispatcher) Lookup(ctx context.Context, dispatchID string) (*domain.Dispatch, error) {
	if d.log == nil {
		return nil, fmt.Errorf("dispatch log disabled: %w", domain.ErrNotFound)
	}
	return d.log.Get(ctx, dispatchID)
}

// Shutdown waits for in-flight sends to finish or ctx to expire.
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return errors.Join(errors.New("dispatcher drain interrupted"), ctx.Err())
	}
}
