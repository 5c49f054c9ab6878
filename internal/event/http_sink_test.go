package event

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rafaeljc/heimdall-sdk/internal/model"
	"github.com/rafaeljc/heimdall-sdk/internal/transport"
)

func newTestSink(t *testing.T, handler http.HandlerFunc) *HTTPSink {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := transport.New(srv.URL, transport.SDK{Key: "sdk-key", Name: "go-sdk", Version: "test"}, 0)
	require.NoError(t, err)
	return NewHTTPSink(client)
}

func sampleBatch() []UserEvent {
	user := model.User{
		Identifiers: map[string]string{"$id": "u1", "$deviceId": "d1"},
		Properties:  map[string]any{"grade": "gold"},
	}
	value := 2.5
	return []UserEvent{
		&Exposure{
			Common:       Common{InsertID: "e1", Timestamp: 10, User: user},
			Experiment:   &model.Experiment{ID: 1, Key: 42, Type: model.ExperimentTypeABTest, Version: 3},
			VariationID:  ptr(int64(12)),
			VariationKey: "B",
			Reason:       model.ReasonTrafficAllocated,
			Properties:   map[string]any{"$experiment_version": 3},
		},
		&Track{
			Common:    Common{InsertID: "t1", Timestamp: 10, User: model.User{}},
			EventType: model.EventType{ID: 100, Key: "purchase"},
			Event:     model.Event{Key: "purchase", Value: &value},
		},
		&RemoteConfig{
			Common:    Common{InsertID: "r1", Timestamp: 10, User: user},
			Parameter: &model.RemoteConfigParameter{ID: 9, Key: "banner", Type: model.ValueTypeString},
			Reason:    model.ReasonTypeMismatch,
		},
	}
}

func TestHTTPSink_Send(t *testing.T) {
	t.Parallel()

	t.Run("Should post the grouped payload", func(t *testing.T) {
		t.Parallel()

		// Arrange
		var body map[string][]map[string]any
		sink := newTestSink(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/api/v2/events", r.URL.Path)
			assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
			assert.Equal(t, "sdk-key", r.Header.Get("X-HACKLE-SDK-KEY"))
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			w.WriteHeader(http.StatusAccepted)
		})

		// Act
		err := sink.Send(context.Background(), sampleBatch())

		// Assert
		require.NoError(t, err)
		require.Len(t, body["exposureEvents"], 1)
		require.Len(t, body["trackEvents"], 1)
		require.Len(t, body["remoteConfigEvents"], 1)

		exposure := body["exposureEvents"][0]
		assert.Equal(t, "e1", exposure["insertId"])
		assert.Equal(t, "u1", exposure["userId"])
		assert.Equal(t, "AB_TEST", exposure["experimentType"])
		assert.Equal(t, float64(42), exposure["experimentKey"])
		assert.Equal(t, "TRAFFIC_ALLOCATED", exposure["decisionReason"])
		assert.Equal(t, map[string]any{}, exposure["hackleProperties"])
		assert.Equal(t, map[string]any{"grade": "gold"}, exposure["userProperties"])

		track := body["trackEvents"][0]
		assert.Nil(t, track["userId"])
		assert.Equal(t, "purchase", track["eventTypeKey"])
		assert.Equal(t, 2.5, track["value"])

		rc := body["remoteConfigEvents"][0]
		assert.Equal(t, "STRING", rc["parameterType"])
		assert.Nil(t, rc["valueId"])
	})

	t.Run("Should send the valid events when one cannot be encoded", func(t *testing.T) {
		t.Parallel()

		// Arrange
		var body map[string][]map[string]any
		sink := newTestSink(t, func(w http.ResponseWriter, r *http.Request) {
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			w.WriteHeader(http.StatusAccepted)
		})
		nan := math.NaN()
		batch := []UserEvent{
			&Track{
				Common:    Common{InsertID: "good", Timestamp: 10},
				EventType: model.EventType{ID: 100, Key: "purchase"},
				Event:     model.Event{Key: "purchase", Properties: map[string]any{"score": 1.5}},
			},
			&Track{
				Common:    Common{InsertID: "bad", Timestamp: 10},
				EventType: model.EventType{ID: 100, Key: "purchase"},
				Event:     model.Event{Key: "purchase", Value: &nan},
			},
			&RemoteConfig{
				Common:     Common{InsertID: "chan", Timestamp: 10},
				Parameter:  &model.RemoteConfigParameter{ID: 9, Key: "banner", Type: model.ValueTypeString},
				Properties: map[string]any{"$sys": make(chan int)},
			},
		}

		// Act
		err := sink.Send(context.Background(), batch)

		// Assert
		require.NoError(t, err)
		require.Len(t, body["trackEvents"], 1)
		assert.Equal(t, "good", body["trackEvents"][0]["insertId"])
		assert.Empty(t, body["remoteConfigEvents"])
	})

	t.Run("Should fail on non-2xx status", func(t *testing.T) {
		t.Parallel()

		sink := newTestSink(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		})

		err := sink.Send(context.Background(), sampleBatch())

		var statusErr *transport.StatusError
		require.ErrorAs(t, err, &statusErr)
		assert.Equal(t, http.StatusBadGateway, statusErr.Code)
	})
}

func TestNewPayload_LogsDroppedEvents(t *testing.T) {
	t.Parallel()

	// Arrange
	var buf bytes.Buffer
	inf := math.Inf(1)
	events := []UserEvent{
		&Track{Common: Common{InsertID: "t1"}, Event: model.Event{Key: "purchase"}},
		&Track{Common: Common{InsertID: "t2"}, Event: model.Event{Key: "purchase", Value: &inf}},
	}

	// Act
	p := NewPayload(slog.New(slog.NewTextHandler(&buf, nil)), events)

	// Assert
	assert.Len(t, p.TrackEvents, 1)
	assert.Contains(t, buf.String(), "dropping event that cannot be encoded")
	assert.Contains(t, buf.String(), "insert_id=t2")
	assert.Contains(t, buf.String(), "kind=TRACK")
}

func TestNewPayload_EmptyListsAreArrays(t *testing.T) {
	t.Parallel()

	data, err := json.Marshal(NewPayload(nil, nil))

	require.NoError(t, err)
	assert.JSONEq(t, `{"exposureEvents":[],"trackEvents":[],"remoteConfigEvents":[]}`, string(data))
}
