package sdk

import (
	"log/slog"
	"time"

	"github.com/rafaeljc/heimdall-sdk/internal/event"
	"github.com/rafaeljc/heimdall-sdk/internal/workspace"
)

const (
	DefaultSDKURL    = "https://sdk.hackle.io"
	DefaultEventsURL = "https://event.hackle.io"
)

// EventOptions tunes the event pipeline.
type EventOptions struct {
	QueueCapacity   int
	BatchSize       int
	FlushInterval   time.Duration
	ShutdownTimeout time.Duration

	DispatchWorkers int
	DispatchQueue   int
	DispatchTimeout time.Duration
}

func defaultEventOptions() EventOptions {
	return EventOptions{
		QueueCapacity:   10000,
		BatchSize:       100,
		FlushInterval:   10 * time.Second,
		ShutdownTimeout: 10 * time.Second,
		DispatchWorkers: 2,
		DispatchQueue:   100,
		DispatchTimeout: 10 * time.Second,
	}
}

type options struct {
	logger           *slog.Logger
	name             string
	version          string
	sdkURL           string
	eventsURL        string
	httpTimeout      time.Duration
	pollingInterval  time.Duration
	workspaceFile    string
	snapshotStore    workspace.SnapshotStore
	events           EventOptions
	sinks            []event.Sink
	versionCacheSize int
	clock            func() time.Time
	holder           *workspace.Holder
}

func defaultOptions() options {
	return options{
		name:             "go-sdk",
		version:          "dev",
		sdkURL:           DefaultSDKURL,
		eventsURL:        DefaultEventsURL,
		httpTimeout:      10 * time.Second,
		pollingInterval:  10 * time.Second,
		events:           defaultEventOptions(),
		versionCacheSize: 1000,
		clock:            time.Now,
	}
}

// Option configures a Client.
type Option func(*options)

// WithLogger sets the logger used by every component.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithIdentity overrides the SDK name and version sent to the backend.
func WithIdentity(name, version string) Option {
	return func(o *options) {
		o.name = name
		o.version = version
	}
}

// WithSDKURL sets the workspace endpoint base URL.
func WithSDKURL(url string) Option {
	return func(o *options) { o.sdkURL = url }
}

// WithEventsURL sets the collector base URL.
func WithEventsURL(url string) Option {
	return func(o *options) { o.eventsURL = url }
}

// WithHTTPTimeout bounds every backend request.
func WithHTTPTimeout(d time.Duration) Option {
	return func(o *options) { o.httpTimeout = d }
}

// WithPollingInterval sets how often the workspace is refreshed.
func WithPollingInterval(d time.Duration) Option {
	return func(o *options) { o.pollingInterval = d }
}

// WithWorkspaceFile serves the workspace from a local JSON or YAML file
// instead of polling the backend. The file is reloaded when it changes.
func WithWorkspaceFile(path string) Option {
	return func(o *options) { o.workspaceFile = path }
}

// WithSnapshotStore persists fetched workspaces for warm starts.
func WithSnapshotStore(store workspace.SnapshotStore) Option {
	return func(o *options) { o.snapshotStore = store }
}

// WithEvents tunes the event pipeline.
func WithEvents(e EventOptions) Option {
	return func(o *options) { o.events = e }
}

// WithSink delivers every event batch to sink in addition to the collector.
func WithSink(sink event.Sink) Option {
	return func(o *options) { o.sinks = append(o.sinks, sink) }
}

// WithVersionCacheSize bounds the parsed version cache. Zero disables it.
func WithVersionCacheSize(n int) Option {
	return func(o *options) { o.versionCacheSize = n }
}

// WithClock overrides the clock stamping events.
func WithClock(clock func() time.Time) Option {
	return func(o *options) { o.clock = clock }
}

// WithWorkspaceHolder serves decisions from a holder that the caller keeps up
// to date. No workspace source is started.
func WithWorkspaceHolder(h *workspace.Holder) Option {
	return func(o *options) { o.holder = h }
}
