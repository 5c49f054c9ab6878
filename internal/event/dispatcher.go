package event

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/rafaeljc/heimdall-sdk/internal/logger"
	"github.com/rafaeljc/heimdall-sdk/internal/observability"
)

// Dispatcher accepts batches without blocking the caller.
type Dispatcher interface {
	Dispatch(events []UserEvent)
	Shutdown(ctx context.Context) error
}

// Sink delivers one batch synchronously.
type Sink interface {
	Name() string
	Send(ctx context.Context, events []UserEvent) error
}

// PoolDispatcherConfig holds the configuration for the PoolDispatcher.
type PoolDispatcherConfig struct {
	// Workers is the number of concurrent deliveries.
	Workers int
	// QueueSize bounds the batches waiting for a worker.
	QueueSize int
	// Timeout bounds a single delivery.
	Timeout time.Duration
}

// PoolDispatcher hands each batch to a bounded worker pool that delivers it to a Sink.
// Batches that find the pool full are dropped.
type PoolDispatcher struct {
	logger *slog.Logger
	config PoolDispatcherConfig
	sink   Sink
	pool   *workerPool[[]UserEvent]
}

// NewPoolDispatcher creates a PoolDispatcher and starts its workers.
func NewPoolDispatcher(log *slog.Logger, cfg PoolDispatcherConfig, sink Sink) *PoolDispatcher {
	if log == nil {
		log = slog.Default()
	}
	if sink == nil {
		panic("event: sink cannot be nil")
	}

	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.QueueSize < 1 {
		cfg.QueueSize = 100
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	d := &PoolDispatcher{
		logger: log.With(slog.String("sink", sink.Name())),
		config: cfg,
		sink:   sink,
	}
	d.pool = newWorkerPool(cfg.Workers, cfg.QueueSize, d.deliver)
	return d
}

// Dispatch implements Dispatcher.
func (d *PoolDispatcher) Dispatch(events []UserEvent) {
	if len(events) == 0 {
		return
	}
	if !d.pool.Submit(events) {
		observability.EventsDropped.WithLabelValues("dispatch").Add(float64(len(events)))
		d.logger.Warn("dispatcher queue is full, dropping batch", slog.Int("events", len(events)))
	}
}

// Shutdown stops accepting batches and waits for queued ones until ctx expires.
func (d *PoolDispatcher) Shutdown(ctx context.Context) error {
	if err := d.pool.Drain(ctx); err != nil {
		d.logger.Warn("failed to dispatch previously submitted events", slog.Int("pending", d.pool.QueueLen()))
		return fmt.Errorf("%s shutdown: %w", d.sink.Name(), err)
	}
	return nil
}

func (d *PoolDispatcher) deliver(events []UserEvent) {
	defer func() {
		if r := recover(); r != nil {
			observability.EventBatchesTotal.WithLabelValues(d.sink.Name(), "fail").Inc()
			d.logger.Error("unexpected panic while dispatching events",
				slog.Int("events", len(events)),
				slog.Any("panic", r),
			)
		}
	}()

	ctx, cancel := context.WithTimeout(logger.WithContext(context.Background(), d.logger), d.config.Timeout)
	defer cancel()

	start := time.Now()
	err := d.sink.Send(ctx, events)
	observability.EventBatchDuration.WithLabelValues(d.sink.Name()).Observe(time.Since(start).Seconds())

	if err != nil {
		observability.EventBatchesTotal.WithLabelValues(d.sink.Name(), "fail").Inc()
		d.logger.Error("failed to dispatch events",
			slog.Int("events", len(events)),
			slog.String("error", err.Error()),
		)
		return
	}
	observability.EventBatchesTotal.WithLabelValues(d.sink.Name(), "success").Inc()
}

// MultiDispatcher fans each batch out to several dispatchers.
type MultiDispatcher []Dispatcher

// Dispatch implements Dispatcher.
func (m MultiDispatcher) Dispatch(events []UserEvent) {
	for _, d := range m {
		d.Dispatch(events)
	}
}

// Shutdown shuts every dispatcher down and joins their errors.
func (m MultiDispatcher) Shutdown(ctx context.Context) error {
	var errs []error
	for _, d := range m {
		if err := d.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
