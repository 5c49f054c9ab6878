package event

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/rafaeljc/heimdall-sdk/internal/evaluation"
	"github.com/rafaeljc/heimdall-sdk/internal/model"
)

// Factory builds user events. All events of one call share a timestamp.
type Factory struct {
	logger *slog.Logger
	now    func() time.Time
	newID  func() string
}

// NewFactory creates a Factory. A nil clock defaults to time.Now.
func NewFactory(logger *slog.Logger, clock func() time.Time) *Factory {
	if logger == nil {
		logger = slog.Default()
	}
	if clock == nil {
		clock = time.Now
	}
	return &Factory{logger: logger, now: clock, newID: uuid.NewString}
}

// Create returns the event of eval followed by one event per target
// evaluation. Target events are tagged with the root request.
func (f *Factory) Create(req evaluation.Request, eval evaluation.Evaluation) []UserEvent {
	timestamp := f.now().UnixMilli()
	events := make([]UserEvent, 0, 1+len(eval.Targets()))

	if e := f.create(req.User(), eval, timestamp, map[string]any{}); e != nil {
		events = append(events, e)
	}

	key := req.Key()
	for _, target := range eval.Targets() {
		props := map[string]any{
			"$targetingRootType": key.Kind.String(),
			"$targetingRootId":   key.ID,
		}
		if e := f.create(req.User(), target, timestamp, props); e != nil {
			events = append(events, e)
		}
	}
	return events
}

// Track builds a track event.
func (f *Factory) Track(eventType model.EventType, ev model.Event, user model.User) UserEvent {
	return &Track{
		Common:    f.common(user, f.now().UnixMilli()),
		EventType: eventType,
		Event:     ev,
	}
}

func (f *Factory) create(user model.User, eval evaluation.Evaluation, timestamp int64, props map[string]any) UserEvent {
	switch e := eval.(type) {
	case *evaluation.ExperimentEvaluation:
		var configID any
		if e.Config != nil {
			configID = e.Config.ID
		}
		props["$parameterConfigurationId"] = configID
		props["$experiment_version"] = e.Experiment.Version
		props["$execution_version"] = e.Experiment.ExecutionVersion

		return &Exposure{
			Common:       f.common(user, timestamp),
			Experiment:   e.Experiment,
			VariationID:  e.VariationID,
			VariationKey: e.VariationKey,
			Reason:       e.Reason,
			Properties:   props,
		}

	case *evaluation.RemoteConfigEvaluation:
		for k, v := range e.Properties {
			props[k] = v
		}
		return &RemoteConfig{
			Common:     f.common(user, timestamp),
			Parameter:  e.Parameter,
			ValueID:    e.ValueID,
			Reason:     e.Reason,
			Properties: props,
		}

	default:
		f.logger.Error("unsupported evaluation", slog.String("type", fmt.Sprintf("%T", eval)))
		return nil
	}
}

func (f *Factory) common(user model.User, timestamp int64) Common {
	return Common{InsertID: f.newID(), Timestamp: timestamp, User: user}
}
