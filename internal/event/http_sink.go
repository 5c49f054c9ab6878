package event

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/rafaeljc/heimdall-sdk/internal/logger"
	"github.com/rafaeljc/heimdall-sdk/internal/model"
	"github.com/rafaeljc/heimdall-sdk/internal/observability"
	"github.com/rafaeljc/heimdall-sdk/internal/transport"
)

const eventsPath = "/api/v2/events"

// ErrUnsupportedEvent is returned by MarshalEvent for events without a wire form.
var ErrUnsupportedEvent = errors.New("unsupported event")

// HTTPSink posts batches to the collector.
type HTTPSink struct {
	client *transport.Client
}

func NewHTTPSink(client *transport.Client) *HTTPSink {
	if client == nil {
		panic("event: http client cannot be nil")
	}
	return &HTTPSink{client: client}
}

// Name implements Sink.
func (s *HTTPSink) Name() string { return "http" }

// Send implements Sink. Events that cannot be encoded are dropped on their
// own and the rest of the batch is still posted.
func (s *HTTPSink) Send(ctx context.Context, events []UserEvent) error {
	body, err := json.Marshal(NewPayload(logger.FromContext(ctx), events))
	if err != nil {
		return fmt.Errorf("failed to encode events: %w", err)
	}

	req, err := s.client.NewRequest(ctx, http.MethodPost, eventsPath, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to post events: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if !transport.IsSuccessful(resp.StatusCode) {
		return &transport.StatusError{Code: resp.StatusCode}
	}
	return nil
}

// Payload is the collector request body. Each entry is one encoded event.
type Payload struct {
	ExposureEvents     []json.RawMessage `json:"exposureEvents"`
	TrackEvents        []json.RawMessage `json:"trackEvents"`
	RemoteConfigEvents []json.RawMessage `json:"remoteConfigEvents"`
}

// UserPayload holds the fields shared by every wire event.
type UserPayload struct {
	InsertID         string            `json:"insertId"`
	Timestamp        int64             `json:"timestamp"`
	UserID           *string           `json:"userId"`
	Identifiers      map[string]string `json:"identifiers"`
	UserProperties   map[string]any    `json:"userProperties"`
	HackleProperties map[string]any    `json:"hackleProperties"`
}

type ExposurePayload struct {
	UserPayload
	ExperimentID      int64          `json:"experimentId"`
	ExperimentKey     int64          `json:"experimentKey"`
	ExperimentType    string         `json:"experimentType"`
	ExperimentVersion int            `json:"experimentVersion"`
	VariationID       *int64         `json:"variationId"`
	VariationKey      string         `json:"variationKey"`
	DecisionReason    string         `json:"decisionReason"`
	Properties        map[string]any `json:"properties"`
}

type TrackPayload struct {
	UserPayload
	EventTypeID  int64          `json:"eventTypeId"`
	EventTypeKey string         `json:"eventTypeKey"`
	Value        *float64       `json:"value"`
	Properties   map[string]any `json:"properties"`
}

type RemoteConfigPayload struct {
	UserPayload
	ParameterID    int64          `json:"parameterId"`
	ParameterKey   string         `json:"parameterKey"`
	ParameterType  string         `json:"parameterType"`
	ValueID        *int64         `json:"valueId"`
	DecisionReason string         `json:"decisionReason"`
	Properties     map[string]any `json:"properties"`
}

// NewPayload groups events by kind. Every list is non-nil. An event that
// fails to encode is logged, counted and left out.
func NewPayload(log *slog.Logger, events []UserEvent) Payload {
	p := Payload{
		ExposureEvents:     []json.RawMessage{},
		TrackEvents:        []json.RawMessage{},
		RemoteConfigEvents: []json.RawMessage{},
	}

	for _, ev := range events {
		body, err := MarshalEvent(ev)
		if errors.Is(err, ErrUnsupportedEvent) {
			continue
		}
		if err != nil {
			DropEvent(log, ev, err)
			continue
		}
		switch ev.Kind() {
		case KindExposure:
			p.ExposureEvents = append(p.ExposureEvents, body)
		case KindTrack:
			p.TrackEvents = append(p.TrackEvents, body)
		case KindRemoteConfig:
			p.RemoteConfigEvents = append(p.RemoteConfigEvents, body)
		}
	}
	return p
}

// MarshalEvent returns the JSON wire form of ev.
func MarshalEvent(ev UserEvent) ([]byte, error) {
	payload := EncodeEvent(ev)
	if payload == nil {
		return nil, ErrUnsupportedEvent
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s event: %w", ev.Kind(), err)
	}
	return body, nil
}

// DropEvent records an event left out of a batch because it could not be encoded.
func DropEvent(log *slog.Logger, ev UserEvent, err error) {
	if log == nil {
		log = slog.Default()
	}
	observability.EventsDropped.WithLabelValues("encode").Inc()
	log.Warn("dropping event that cannot be encoded",
		slog.String("kind", ev.Kind().String()),
		slog.String("insert_id", ev.Header().InsertID),
		slog.String("error", err.Error()),
	)
}

// EncodeEvent returns the wire form of ev: an ExposurePayload, TrackPayload
// or RemoteConfigPayload. It returns nil for any other event.
func EncodeEvent(ev UserEvent) any {
	switch e := ev.(type) {
	case *Exposure:
		return ExposurePayload{
			UserPayload:       userPayload(e.Common),
			ExperimentID:      e.Experiment.ID,
			ExperimentKey:     e.Experiment.Key,
			ExperimentType:    e.Experiment.Type.String(),
			ExperimentVersion: e.Experiment.Version,
			VariationID:       e.VariationID,
			VariationKey:      e.VariationKey,
			DecisionReason:    string(e.Reason),
			Properties:        e.Properties,
		}
	case *Track:
		return TrackPayload{
			UserPayload:  userPayload(e.Common),
			EventTypeID:  e.EventType.ID,
			EventTypeKey: e.EventType.Key,
			Value:        e.Event.Value,
			Properties:   e.Event.Properties,
		}
	case *RemoteConfig:
		return RemoteConfigPayload{
			UserPayload:    userPayload(e.Common),
			ParameterID:    e.Parameter.ID,
			ParameterKey:   e.Parameter.Key,
			ParameterType:  e.Parameter.Type.String(),
			ValueID:        e.ValueID,
			DecisionReason: string(e.Reason),
			Properties:     e.Properties,
		}
	default:
		return nil
	}
}

func userPayload(c Common) UserPayload {
	var userID *string
	if id, ok := c.User.Identifier(model.IdentifierID); ok {
		userID = &id
	}
	return UserPayload{
		InsertID:         c.InsertID,
		Timestamp:        c.Timestamp,
		UserID:           userID,
		Identifiers:      c.User.Identifiers,
		UserProperties:   c.User.Properties,
		HackleProperties: map[string]any{},
	}
}
