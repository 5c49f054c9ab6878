package workspace

import (
	"context"
	"log/slog"
	"time"

	"github.com/rafaeljc/heimdall-sdk/internal/observability"
)

// Source fetches a snapshot conditionally. It returns (nil, nil) when nothing changed.
type Source interface {
	Fetch(ctx context.Context, lastModified string) (*Snapshot, error)
}

// SnapshotStore persists the last good snapshot so a fresh process can start
// serving before the first remote fetch succeeds.
type SnapshotStore interface {
	Load(ctx context.Context) (*Snapshot, error)
	Save(ctx context.Context, snapshot *Snapshot) error
}

// PollerConfig holds the configuration for the Poller.
type PollerConfig struct {
	// Interval is the duration between fetch cycles.
	Interval time.Duration
}

// Poller keeps a Holder up to date by polling a Source.
type Poller struct {
	logger *slog.Logger
	config PollerConfig
	source Source
	holder *Holder
	store  SnapshotStore

	// lastModified is only touched by the goroutine running Run.
	lastModified string
}

// NewPoller creates a Poller. store may be nil.
func NewPoller(logger *slog.Logger, cfg PollerConfig, source Source, holder *Holder, store SnapshotStore) *Poller {
	if logger == nil {
		logger = slog.Default()
	}

	if source == nil {
		panic("workspace: source cannot be nil")
	}
	if holder == nil {
		panic("workspace: holder cannot be nil")
	}

	if cfg.Interval < time.Second {
		cfg.Interval = 10 * time.Second // Safe default
	}

	return &Poller{
		logger: logger,
		config: cfg,
		source: source,
		holder: holder,
		store:  store,
	}
}

// Run starts the polling loop. It blocks until the context is cancelled.
func (p *Poller) Run(ctx context.Context) error {
	p.logger.Info("starting workspace poller", slog.String("interval", p.config.Interval.String()))

	ticker := time.NewTicker(p.config.Interval)
	defer ticker.Stop()

	p.warmStart(ctx)

	// Run once immediately on startup
	if err := p.Sync(ctx); err != nil {
		p.logger.Error("initial workspace fetch failed", slog.String("error", err.Error()))
	}

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("workspace poller stopping...")
			return nil
		case <-ticker.C:
			if err := p.Sync(ctx); err != nil {
				// Keep serving the previous snapshot and retry on the next tick.
				p.logger.Error("workspace fetch failed", slog.String("error", err.Error()))
			}
		}
	}
}

// Sync performs a single fetch cycle and swaps the holder on change.
func (p *Poller) Sync(ctx context.Context) error {
	start := time.Now()

	snapshot, err := p.source.Fetch(ctx, p.lastModified)
	if err != nil {
		observability.WorkspaceFetchTotal.WithLabelValues("remote", "error").Inc()
		return err
	}
	if snapshot == nil {
		observability.WorkspaceFetchTotal.WithLabelValues("remote", "not_modified").Inc()
		return nil
	}

	ws, err := ParseJSON(snapshot.Body, p.logger)
	if err != nil {
		observability.WorkspaceFetchTotal.WithLabelValues("remote", "error").Inc()
		return err
	}

	p.holder.Store(ws)
	p.lastModified = snapshot.LastModified
	observability.WorkspaceFetchTotal.WithLabelValues("remote", "updated").Inc()

	stats := ws.Stats()
	p.logger.Info("workspace updated",
		slog.Int("experiments", stats.Experiments),
		slog.Int("feature_flags", stats.FeatureFlags),
		slog.Int("remote_config_parameters", stats.RemoteConfigParameters),
		slog.String("duration", time.Since(start).String()),
	)

	if p.store != nil {
		if err := p.store.Save(ctx, snapshot); err != nil {
			// The snapshot is already live; persistence only helps the next cold start.
			p.logger.Warn("failed to persist workspace snapshot", slog.String("error", err.Error()))
		}
	}
	return nil
}

// warmStart seeds an empty holder from the snapshot store.
func (p *Poller) warmStart(ctx context.Context) {
	if p.store == nil || p.holder.Fetch() != nil {
		return
	}

	snapshot, err := p.store.Load(ctx)
	if err != nil {
		observability.WorkspaceFetchTotal.WithLabelValues("store", "error").Inc()
		p.logger.Warn("failed to load stored workspace snapshot", slog.String("error", err.Error()))
		return
	}
	if snapshot == nil {
		return
	}

	ws, err := ParseJSON(snapshot.Body, p.logger)
	if err != nil {
		observability.WorkspaceFetchTotal.WithLabelValues("store", "error").Inc()
		p.logger.Warn("stored workspace snapshot is unreadable", slog.String("error", err.Error()))
		return
	}

	p.holder.Store(ws)
	p.lastModified = snapshot.LastModified
	observability.WorkspaceFetchTotal.WithLabelValues("store", "updated").Inc()
	p.logger.Info("workspace restored from snapshot store")
}
