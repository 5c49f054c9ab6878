// Package core is the decision surface: it looks entities up in the current
// workspace, runs the evaluators with a fresh session per call and hands the
// resulting user events to the processor.
package core

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/rafaeljc/heimdall-sdk/internal/evaluation"
	"github.com/rafaeljc/heimdall-sdk/internal/event"
	"github.com/rafaeljc/heimdall-sdk/internal/experiment"
	"github.com/rafaeljc/heimdall-sdk/internal/match"
	"github.com/rafaeljc/heimdall-sdk/internal/model"
	"github.com/rafaeljc/heimdall-sdk/internal/remoteconfig"
	"github.com/rafaeljc/heimdall-sdk/internal/workspace"
)

// WorkspaceFetcher returns the current snapshot, or nil before the first one.
type WorkspaceFetcher interface {
	Fetch() *workspace.Workspace
}

// EventProcessor receives user events without blocking.
type EventProcessor interface {
	Process(e event.UserEvent)
	Stop(ctx context.Context) error
}

// Config holds the configuration for the Core.
type Config struct {
	// VersionCacheSize bounds the parsed version cache. Zero disables it.
	VersionCacheSize int
	// Clock stamps user events. Defaults to time.Now.
	Clock func() time.Time
}

// ExperimentDecision is the outcome of an A/B test.
type ExperimentDecision struct {
	Variation string
	Reason    model.DecisionReason
	Config    evaluation.ParameterConfig
}

// FeatureFlagDecision is the outcome of a feature flag.
type FeatureFlagDecision struct {
	IsOn   bool
	Reason model.DecisionReason
	Config evaluation.ParameterConfig
}

// RemoteConfigDecision is the outcome of a remote-config parameter.
type RemoteConfigDecision struct {
	Value  any
	Reason model.DecisionReason
}

// Core wires the evaluators, the event factory and the processor.
type Core struct {
	logger        *slog.Logger
	workspaces    WorkspaceFetcher
	processor     EventProcessor
	versions      *match.VersionParser
	experiments   *experiment.Evaluator
	remoteConfigs *remoteconfig.Evaluator
	events        *event.Factory
}

// New builds the evaluator graph. Both evaluators share one target matcher
// that reaches back into them through a delegating evaluator.
func New(logger *slog.Logger, cfg Config, workspaces WorkspaceFetcher, processor EventProcessor) (*Core, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if workspaces == nil {
		panic("core: workspace fetcher cannot be nil")
	}
	if processor == nil {
		panic("core: event processor cannot be nil")
	}

	versions, err := match.NewVersionParser(cfg.VersionCacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create version cache: %w", err)
	}

	delegating := evaluation.NewDelegating()
	targets := match.NewTargetMatcher(delegating, versions)

	experiments := experiment.NewEvaluator(experiment.NewFlows(targets))
	remoteConfigs := remoteconfig.NewEvaluator(targets)
	delegating.Register(evaluation.KindExperiment, experiments)
	delegating.Register(evaluation.KindRemoteConfig, remoteConfigs)

	return &Core{
		logger:        logger,
		workspaces:    workspaces,
		processor:     processor,
		versions:      versions,
		experiments:   experiments,
		remoteConfigs: remoteConfigs,
		events:        event.NewFactory(logger, cfg.Clock),
	}, nil
}

// Experiment decides the variation of the A/B test with the given key.
func (c *Core) Experiment(key int64, user model.User, defaultVariation string) (ExperimentDecision, error) {
	ws := c.workspaces.Fetch()
	if ws == nil {
		return ExperimentDecision{Variation: defaultVariation, Reason: model.ReasonSDKNotReady}, nil
	}
	exp := ws.Experiment(key)
	if exp == nil {
		return ExperimentDecision{Variation: defaultVariation, Reason: model.ReasonExperimentNotFound}, nil
	}

	result, err := c.evaluateExperiment(evaluation.NewExperimentRequest(ws, user, exp, defaultVariation))
	if err != nil {
		return ExperimentDecision{}, err
	}
	return ExperimentDecision{
		Variation: result.VariationKey,
		Reason:    result.Reason,
		Config:    result.ParameterConfig(),
	}, nil
}

// FeatureFlag decides whether the feature flag with the given key is on.
// Variation "A" is the off state.
func (c *Core) FeatureFlag(key int64, user model.User) (FeatureFlagDecision, error) {
	ws := c.workspaces.Fetch()
	if ws == nil {
		return FeatureFlagDecision{Reason: model.ReasonSDKNotReady}, nil
	}
	flag := ws.FeatureFlag(key)
	if flag == nil {
		return FeatureFlagDecision{Reason: model.ReasonFeatureFlagNotFound}, nil
	}

	result, err := c.evaluateExperiment(evaluation.NewExperimentRequest(ws, user, flag, evaluation.NestedDefaultVariationKey))
	if err != nil {
		return FeatureFlagDecision{}, err
	}
	return FeatureFlagDecision{
		IsOn:   result.VariationKey != evaluation.NestedDefaultVariationKey,
		Reason: result.Reason,
		Config: result.ParameterConfig(),
	}, nil
}

// RemoteConfig decides the value of the parameter with the given key.
func (c *Core) RemoteConfig(key string, user model.User, required model.ValueType, defaultValue any) (RemoteConfigDecision, error) {
	ws := c.workspaces.Fetch()
	if ws == nil {
		return RemoteConfigDecision{Value: defaultValue, Reason: model.ReasonSDKNotReady}, nil
	}
	param := ws.RemoteConfigParameter(key)
	if param == nil {
		return RemoteConfigDecision{Value: defaultValue, Reason: model.ReasonRemoteConfigParameterNotFound}, nil
	}

	req := evaluation.NewRemoteConfigRequest(ws, user, param, required, defaultValue)
	eval, err := c.remoteConfigs.Evaluate(req, evaluation.NewContext())
	if err != nil {
		return RemoteConfigDecision{}, err
	}
	result, ok := eval.(*evaluation.RemoteConfigEvaluation)
	if !ok {
		return RemoteConfigDecision{}, fmt.Errorf("%w: unexpected evaluation %T", evaluation.ErrInvariant, eval)
	}

	c.publish(req, result)
	return RemoteConfigDecision{Value: result.Value, Reason: result.Reason}, nil
}

// Track records ev. Unknown event keys are sent with event type id 0.
func (c *Core) Track(ev model.Event, user model.User) {
	eventType := model.EventType{Key: ev.Key}
	if ws := c.workspaces.Fetch(); ws != nil {
		if et := ws.EventType(ev.Key); et != nil {
			eventType = *et
		}
	}
	c.processor.Process(c.events.Track(eventType, ev, user))
}

// RunMetricsCollector publishes cache metrics until ctx is done.
func (c *Core) RunMetricsCollector(ctx context.Context, interval time.Duration) {
	c.versions.RunMetricsCollector(ctx, interval)
}

// Close stops the processor, flushing queued events, and releases the caches.
func (c *Core) Close(ctx context.Context) error {
	defer c.versions.Close()
	return c.processor.Stop(ctx)
}

func (c *Core) evaluateExperiment(req *evaluation.ExperimentRequest) (*evaluation.ExperimentEvaluation, error) {
	eval, err := c.experiments.Evaluate(req, evaluation.NewContext())
	if err != nil {
		return nil, err
	}
	result, ok := eval.(*evaluation.ExperimentEvaluation)
	if !ok {
		return nil, fmt.Errorf("%w: unexpected evaluation %T", evaluation.ErrInvariant, eval)
	}

	c.publish(req, result)
	return result, nil
}

func (c *Core) publish(req evaluation.Request, eval evaluation.Evaluation) {
	for _, e := range c.events.Create(req, eval) {
		c.processor.Process(e)
	}
}
