package store

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rafaeljc/heimdall-sdk/internal/event"
	"github.com/rafaeljc/heimdall-sdk/internal/model"
)

type unknownEvent struct{ event.Common }

func (unknownEvent) Kind() event.Kind       { return event.Kind(99) }
func (e unknownEvent) Header() event.Common { return e.Common }

func TestArchiveRows(t *testing.T) {
	t.Parallel()

	variation := int64(12)
	value := 9.5
	nan := math.NaN()
	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))

	tests := []struct {
		name       string
		event      event.UserEvent
		wantKind   string
		wantUserID string
		wantField  string
		wantValue  any
	}{
		{
			name: "Should map an exposure",
			event: &event.Exposure{
				Common: event.Common{
					InsertID:  "e1",
					Timestamp: 1000,
					User:      model.User{Identifiers: map[string]string{"$id": "u1"}},
				},
				Experiment:   &model.Experiment{ID: 1, Key: 42, Type: model.ExperimentTypeABTest},
				VariationID:  &variation,
				VariationKey: "B",
				Reason:       model.ReasonTrafficAllocated,
			},
			wantKind:   "EXPOSURE",
			wantUserID: "u1",
			wantField:  "experimentKey",
			wantValue:  float64(42),
		},
		{
			name: "Should report $id like the collector payload, not $userId",
			event: &event.Track{
				Common: event.Common{
					InsertID:  "t1",
					Timestamp: 2000,
					User:      model.User{Identifiers: map[string]string{"$id": "u1", "$userId": "member-7"}},
				},
				EventType: model.EventType{ID: 100, Key: "purchase"},
				Event:     model.Event{Key: "purchase", Value: &value},
			},
			wantKind:   "TRACK",
			wantUserID: "u1",
			wantField:  "value",
			wantValue:  9.5,
		},
		{
			name: "Should leave the user id empty when no identifier is known",
			event: &event.RemoteConfig{
				Common:    event.Common{InsertID: "r1", Timestamp: 3000},
				Parameter: &model.RemoteConfigParameter{ID: 9, Key: "banner", Type: model.ValueTypeString},
				Reason:    model.ReasonDefaultRule,
			},
			wantKind:   "REMOTE_CONFIG",
			wantUserID: "",
			wantField:  "parameterKey",
			wantValue:  "banner",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			// Act
			rows := archiveRows(quiet, []event.UserEvent{tt.event})

			// Assert
			require.Len(t, rows, 1)
			row := rows[0]
			require.Len(t, row, len(archiveColumns))

			h := tt.event.Header()
			assert.Equal(t, h.InsertID, row[0])
			assert.Equal(t, tt.wantKind, row[1])
			assert.Equal(t, h.Timestamp, row[2])
			assert.Equal(t, tt.wantUserID, row[3])

			var payload map[string]any
			require.NoError(t, json.Unmarshal(row[4].([]byte), &payload))
			assert.Equal(t, tt.wantValue, payload[tt.wantField])
			assert.Equal(t, h.InsertID, payload["insertId"])
		})
	}

	t.Run("Should skip unknown event kinds", func(t *testing.T) {
		t.Parallel()

		rows := archiveRows(quiet, []event.UserEvent{unknownEvent{}})

		assert.Empty(t, rows)
	})

	t.Run("Should drop only the events that cannot be encoded", func(t *testing.T) {
		t.Parallel()

		// Arrange
		var buf bytes.Buffer
		log := slog.New(slog.NewTextHandler(&buf, nil))
		user := model.User{Identifiers: map[string]string{"$id": "u1"}}
		events := []event.UserEvent{
			&event.Track{
				Common: event.Common{InsertID: "good", User: user},
				Event:  model.Event{Key: "purchase", Properties: map[string]any{"score": 1.5}},
			},
			&event.Track{
				Common: event.Common{InsertID: "nan", User: user},
				Event:  model.Event{Key: "purchase", Value: &nan},
			},
			&event.Exposure{
				Common:     event.Common{InsertID: "chan", User: user},
				Experiment: &model.Experiment{ID: 1, Key: 42, Type: model.ExperimentTypeABTest},
				Properties: map[string]any{"$sys": make(chan int)},
			},
		}

		// Act
		rows := archiveRows(log, events)

		// Assert
		require.Len(t, rows, 1)
		assert.Equal(t, "good", rows[0][0])
		assert.Contains(t, buf.String(), "insert_id=nan")
		assert.Contains(t, buf.String(), "insert_id=chan")
		assert.NotContains(t, buf.String(), "insert_id=good")
	})
}

func TestNewEventArchive(t *testing.T) {
	t.Parallel()

	t.Run("Should panic on a nil pool", func(t *testing.T) {
		t.Parallel()
		assert.Panics(t, func() { NewEventArchive(nil, "") })
	})
}
