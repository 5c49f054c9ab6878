// Package sdk is the embeddable experimentation client. It keeps a
// workspace of experiments, feature flags and remote-config parameters up
// to date in the background, decides locally on every call and reports
// exposures and custom events in batches.
//
// Every decision method returns a value: invalid input, a missing
// workspace and internal failures all resolve to the caller's default with
// an explanatory DecisionReason.
package sdk

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/rafaeljc/heimdall-sdk/internal/core"
	"github.com/rafaeljc/heimdall-sdk/internal/event"
	"github.com/rafaeljc/heimdall-sdk/internal/model"
	"github.com/rafaeljc/heimdall-sdk/internal/observability"
	"github.com/rafaeljc/heimdall-sdk/internal/transport"
	"github.com/rafaeljc/heimdall-sdk/internal/workspace"
)

// ErrMissingSDKKey is returned by New when no SDK key is given.
var ErrMissingSDKKey = errors.New("sdk: sdk key is required")

const cacheMetricsInterval = 15 * time.Second

// Client is safe for concurrent use.
type Client struct {
	logger          *slog.Logger
	core            *core.Core
	holder          *workspace.Holder
	shutdownTimeout time.Duration

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	closeOnce sync.Once
	closeErr  error
}

// New creates a Client and starts its background work.
func New(sdkKey string, opts ...Option) (*Client, error) {
	if sdkKey == "" {
		return nil, ErrMissingSDKKey
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	identity := transport.SDK{Key: sdkKey, Name: o.name, Version: o.version}

	dispatcher, err := newDispatcher(o, identity)
	if err != nil {
		return nil, err
	}
	processor := event.NewProcessor(o.logger, event.ProcessorConfig{
		QueueCapacity:   o.events.QueueCapacity,
		BatchSize:       o.events.BatchSize,
		FlushInterval:   o.events.FlushInterval,
		ShutdownTimeout: o.events.ShutdownTimeout,
	}, dispatcher)

	holder := o.holder
	var run func(context.Context) error
	if holder == nil {
		holder = workspace.NewHolder()
		run, err = newSource(o, identity, holder)
		if err != nil {
			return nil, err
		}
	}

	c, err := core.New(o.logger, core.Config{VersionCacheSize: o.versionCacheSize, Clock: o.clock}, holder, processor)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	client := &Client{
		logger:          o.logger,
		core:            c,
		holder:          holder,
		shutdownTimeout: o.events.ShutdownTimeout + o.events.DispatchTimeout,
		cancel:          cancel,
	}

	processor.Start()
	if run != nil {
		client.goBackground(func() {
			if err := run(ctx); err != nil {
				o.logger.Error("workspace source stopped", slog.String("error", err.Error()))
			}
		})
	}
	client.goBackground(func() { c.RunMetricsCollector(ctx, cacheMetricsInterval) })

	return client, nil
}

func newDispatcher(o options, identity transport.SDK) (event.Dispatcher, error) {
	client, err := transport.New(o.eventsURL, identity, o.httpTimeout)
	if err != nil {
		return nil, fmt.Errorf("events url: %w", err)
	}

	cfg := event.PoolDispatcherConfig{
		Workers:   o.events.DispatchWorkers,
		QueueSize: o.events.DispatchQueue,
		Timeout:   o.events.DispatchTimeout,
	}
	dispatchers := event.MultiDispatcher{event.NewPoolDispatcher(o.logger, cfg, event.NewHTTPSink(client))}
	for _, sink := range o.sinks {
		dispatchers = append(dispatchers, event.NewPoolDispatcher(o.logger, cfg, sink))
	}
	if len(dispatchers) == 1 {
		return dispatchers[0], nil
	}
	return dispatchers, nil
}

func newSource(o options, identity transport.SDK, holder *workspace.Holder) (func(context.Context) error, error) {
	if o.workspaceFile != "" {
		src := workspace.NewFileSource(o.logger, o.workspaceFile, holder)
		if err := src.Load(); err != nil {
			return nil, err
		}
		return src.Run, nil
	}

	client, err := transport.New(o.sdkURL, identity, o.httpTimeout)
	if err != nil {
		return nil, fmt.Errorf("sdk url: %w", err)
	}
	poller := workspace.NewPoller(o.logger, workspace.PollerConfig{Interval: o.pollingInterval},
		workspace.NewHTTPFetcher(client, identity.Key), holder, o.snapshotStore)
	return poller.Run, nil
}

func (c *Client) goBackground(fn func()) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		fn()
	}()
}

// WaitReady blocks until the first workspace is available or ctx is done.
func (c *Client) WaitReady(ctx context.Context) error {
	return c.holder.WaitReady(ctx)
}

// Name implements the readiness checker contract.
func (c *Client) Name() string { return "sdk" }

// Check reports whether a workspace has been loaded.
func (c *Client) Check(ctx context.Context) error {
	return c.holder.Check(ctx)
}

// Experiment decides the variation of the A/B test with the given key.
func (c *Client) Experiment(key int64, user User, defaultVariation string) (d Decision) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("unexpected panic while deciding experiment", slog.Int64("key", key), slog.Any("panic", r))
			d = Decision{Variation: defaultVariation, Reason: ReasonException}
		}
		observe("experiment", d.Reason, start)
	}()

	u, ok := resolveUser(c.logger, user)
	if !ok {
		return Decision{Variation: defaultVariation, Reason: ReasonInvalidInput}
	}

	res, err := c.core.Experiment(key, u, defaultVariation)
	if err != nil {
		c.logger.Error("unexpected error while deciding experiment",
			slog.Int64("key", key),
			slog.String("error", err.Error()),
		)
		return Decision{Variation: defaultVariation, Reason: ReasonException}
	}
	return Decision{Variation: res.Variation, Reason: res.Reason, Config: res.Config}
}

// FeatureFlag decides whether the feature flag with the given key is on.
func (c *Client) FeatureFlag(key int64, user User) (d FeatureFlagDecision) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("unexpected panic while deciding feature flag", slog.Int64("key", key), slog.Any("panic", r))
			d = FeatureFlagDecision{Reason: ReasonException}
		}
		observe("feature_flag", d.Reason, start)
	}()

	u, ok := resolveUser(c.logger, user)
	if !ok {
		return FeatureFlagDecision{Reason: ReasonInvalidInput}
	}

	res, err := c.core.FeatureFlag(key, u)
	if err != nil {
		c.logger.Error("unexpected error while deciding feature flag",
			slog.Int64("key", key),
			slog.String("error", err.Error()),
		)
		return FeatureFlagDecision{Reason: ReasonException}
	}
	return FeatureFlagDecision{IsOn: res.IsOn, Reason: res.Reason, Config: res.Config}
}

// RemoteConfig returns the remote-config view for user.
func (c *Client) RemoteConfig(user User) *RemoteConfig {
	return &RemoteConfig{client: c, user: user}
}

// Track sends a custom event. Invalid events and users are logged and ignored.
func (c *Client) Track(ev Event, user User) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("unexpected panic while tracking event", slog.String("key", ev.Key), slog.Any("panic", r))
		}
	}()

	if ev.Key == "" {
		c.logger.Warn("invalid event key", slog.String("key", ev.Key))
		return
	}
	if ev.Value != nil && !finiteNumber(*ev.Value) {
		c.logger.Warn("invalid event value", slog.String("key", ev.Key), slog.Float64("value", *ev.Value))
		return
	}
	u, ok := resolveUser(c.logger, user)
	if !ok {
		c.logger.Warn("invalid user, event dropped", slog.String("key", ev.Key))
		return
	}

	c.core.Track(model.Event{
		Key:        ev.Key,
		Value:      ev.Value,
		Properties: sanitizeProperties(c.logger, ev.Properties),
	}, u)
}

// Close stops background work and flushes queued events. Later calls return
// the first result.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		c.cancel()

		ctx, cancel := context.WithTimeout(context.Background(), c.shutdownTimeout)
		defer cancel()

		c.closeErr = c.core.Close(ctx)
		c.wg.Wait()
	})
	return c.closeErr
}

func observe(kind string, reason DecisionReason, start time.Time) {
	observability.SDKDecisionsTotal.WithLabelValues(kind, string(reason)).Inc()
	observability.SDKDecisionDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
}

// RemoteConfig reads parameters for one user.
type RemoteConfig struct {
	client *Client
	user   User
}

// Decision returns the value of key. The dynamic type of def selects the
// required type: nil accepts any value, otherwise the value must be a
// string, number or bool like def. A NaN or infinite def is invalid input.
func (r *RemoteConfig) Decision(key string, def any) (d RemoteConfigDecision) {
	c := r.client
	start := time.Now()
	defer func() {
		if rec := recover(); rec != nil {
			c.logger.Error("unexpected panic while deciding remote config", slog.String("key", key), slog.Any("panic", rec))
			d = RemoteConfigDecision{Value: def, Reason: ReasonException}
		}
		observe("remote_config", d.Reason, start)
	}()

	if key == "" {
		return RemoteConfigDecision{Value: def, Reason: ReasonInvalidInput}
	}
	if model.IsNumber(def) && !finiteNumber(def) {
		c.logger.Warn("invalid remote config default value", slog.String("key", key), slog.Any("default", def))
		return RemoteConfigDecision{Value: def, Reason: ReasonInvalidInput}
	}
	u, ok := resolveUser(c.logger, r.user)
	if !ok {
		return RemoteConfigDecision{Value: def, Reason: ReasonInvalidInput}
	}

	res, err := c.core.RemoteConfig(key, u, typeOf(def), def)
	if err != nil {
		c.logger.Error("unexpected error while deciding remote config",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
		return RemoteConfigDecision{Value: def, Reason: ReasonException}
	}
	return RemoteConfigDecision{Value: res.Value, Reason: res.Reason}
}

// String returns the string parameter key, or def.
func (r *RemoteConfig) String(key, def string) string {
	if s, ok := r.Decision(key, def).Value.(string); ok {
		return s
	}
	return def
}

// Number returns the number parameter key, or def.
func (r *RemoteConfig) Number(key string, def float64) float64 {
	if n, ok := model.AsNumber(r.Decision(key, def).Value); ok {
		return n
	}
	return def
}

// Bool returns the boolean parameter key, or def.
func (r *RemoteConfig) Bool(key string, def bool) bool {
	if b, ok := r.Decision(key, def).Value.(bool); ok {
		return b
	}
	return def
}
