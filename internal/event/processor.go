package event

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/rafaeljc/heimdall-sdk/internal/logger"
	"github.com/rafaeljc/heimdall-sdk/internal/observability"
)

type messageKind uint8

const (
	messageEvent messageKind = iota + 1
	messageFlush
	messageShutdown
)

type message struct {
	kind  messageKind
	event UserEvent
}

// ProcessorConfig holds the configuration for the Processor.
type ProcessorConfig struct {
	// QueueCapacity bounds the messages waiting for the consumer.
	QueueCapacity int
	// BatchSize triggers a dispatch once that many events are batched.
	BatchSize int
	// FlushInterval dispatches whatever is batched on a fixed period.
	FlushInterval time.Duration
	// ShutdownTimeout bounds the wait for the consumer to exit.
	ShutdownTimeout time.Duration
}

// Processor batches user events on a single consumer goroutine.
// Process never blocks the caller: a full queue drops the event.
type Processor struct {
	logger     *slog.Logger
	overflow   *logger.Sometimes
	config     ProcessorConfig
	dispatcher Dispatcher
	queue      chan message

	mu          sync.Mutex
	started     bool
	cancelFlush context.CancelFunc
	flushDone   chan struct{}
	consumed    chan struct{}

	// batch is only touched by the consumer goroutine.
	batch []UserEvent
}

// NewProcessor creates a Processor. Call Start before use.
func NewProcessor(log *slog.Logger, cfg ProcessorConfig, dispatcher Dispatcher) *Processor {
	if log == nil {
		log = slog.Default()
	}
	if dispatcher == nil {
		panic("event: dispatcher cannot be nil")
	}

	if cfg.QueueCapacity < 1 {
		cfg.QueueCapacity = 10000
	}
	if cfg.BatchSize < 1 {
		cfg.BatchSize = 100
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = 10 * time.Second
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}

	return &Processor{
		logger:     log,
		overflow:   logger.NewSometimes(log, 5*time.Second),
		config:     cfg,
		dispatcher: dispatcher,
		queue:      make(chan message, cfg.QueueCapacity),
		batch:      make([]UserEvent, 0, cfg.BatchSize),
	}
}

// Process enqueues e.
func (p *Processor) Process(e UserEvent) {
	if p.produce(message{kind: messageEvent, event: e}) {
		observability.EventsEnqueued.Inc()
	} else {
		observability.EventsDropped.WithLabelValues("queue").Inc()
	}
}

// Start launches the consumer and the periodic flush. Starting twice is a no-op.
func (p *Processor) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.started {
		p.logger.Info("event processor is already started")
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	p.cancelFlush = cancel
	p.flushDone = make(chan struct{})
	p.consumed = make(chan struct{})

	go p.consume()
	go p.flushPeriodically(ctx)

	p.started = true
	p.logger.Info("event processor started", slog.String("flush_interval", p.config.FlushInterval.String()))
}

// Stop cancels the periodic flush, signals the consumer, waits for it up to
// the shutdown timeout and then shuts the dispatcher down.
func (p *Processor) Stop(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		return nil
	}
	p.logger.Info("shutting down event processor")

	p.cancelFlush()
	<-p.flushDone

	// The only blocking enqueue: the shutdown signal must not be dropped.
	select {
	case p.queue <- message{kind: messageShutdown}:
	case <-ctx.Done():
		return fmt.Errorf("event processor shutdown: %w", ctx.Err())
	}

	timer := time.NewTimer(p.config.ShutdownTimeout)
	defer timer.Stop()
	select {
	case <-p.consumed:
	case <-timer.C:
		p.logger.Warn("event processor did not stop in time")
	}

	p.started = false
	return p.dispatcher.Shutdown(ctx)
}

func (p *Processor) produce(m message) bool {
	select {
	case p.queue <- m:
		observability.EventQueueDepth.Set(float64(len(p.queue)))
		return true
	default:
		p.overflow.Warn("Events are produced faster than can be consumed. Some events will be dropped.")
		return false
	}
}

func (p *Processor) flushPeriodically(ctx context.Context) {
	defer close(p.flushDone)

	ticker := time.NewTicker(p.config.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.produce(message{kind: messageFlush})
		}
	}
}

func (p *Processor) consume() {
	defer close(p.consumed)

	for m := range p.queue {
		observability.EventQueueDepth.Set(float64(len(p.queue)))
		if m.kind == messageShutdown {
			// Final flush, recovered like any other message.
			p.handle(message{kind: messageFlush})
			return
		}
		p.handle(m)
	}
}

// handle processes one message. A panic is logged and the loop continues.
func (p *Processor) handle(m message) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("unexpected error in event processor", slog.Any("panic", r))
		}
	}()

	switch m.kind {
	case messageEvent:
		p.batch = append(p.batch, m.event)
		if len(p.batch) >= p.config.BatchSize {
			p.dispatchBatch()
		}
	case messageFlush:
		p.dispatchBatch()
	default:
		p.logger.Error("unsupported message", slog.Int("kind", int(m.kind)))
	}
}

func (p *Processor) dispatchBatch() {
	if len(p.batch) == 0 {
		return
	}
	batch := p.batch
	p.batch = make([]UserEvent, 0, p.config.BatchSize)
	p.dispatcher.Dispatch(batch)
}
