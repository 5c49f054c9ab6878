// Package store provides the PostgreSQL persistence used by the relay.
// It archives dispatched user events using the pgx driver.
package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rafaeljc/heimdall-sdk/internal/event"
	"github.com/rafaeljc/heimdall-sdk/internal/logger"
	"github.com/rafaeljc/heimdall-sdk/internal/model"
	"github.com/rafaeljc/heimdall-sdk/internal/observability"
)

// Compile-time check to verify that EventArchive can be plugged into the
// dispatcher next to the HTTP sink.
var _ event.Sink = (*EventArchive)(nil)

// ErrDuplicateEvent is returned when a batch carries an insert id that is
// already archived. COPY is all-or-nothing, so none of the batch was written.
var ErrDuplicateEvent = errors.New("event already archived")

// DefaultArchiveTable is used when no table name is given.
const DefaultArchiveTable = "user_events"

// archiveColumns mirrors the 'user_events' table, minus server-generated columns.
var archiveColumns = []string{"insert_id", "kind", "timestamp_ms", "user_id", "payload"}

// EventArchive is an event.Sink that copies every batch into PostgreSQL.
type EventArchive struct {
	db    *pgxpool.Pool
	table string
}

// NewEventArchive creates an archive writing into table.
// The table name must already be validated by the caller.
func NewEventArchive(db *pgxpool.Pool, table string) *EventArchive {
	if db == nil {
		panic("store: database pool cannot be nil")
	}
	if table == "" {
		table = DefaultArchiveTable
	}
	return &EventArchive{db: db, table: table}
}

// Name implements event.Sink.
func (a *EventArchive) Name() string { return "postgres" }

// Send writes the batch with a single COPY.
func (a *EventArchive) Send(ctx context.Context, events []event.UserEvent) error {
	if len(events) == 0 {
		return nil
	}

	rows := archiveRows(logger.FromContext(ctx), events)
	if len(rows) == 0 {
		return nil
	}

	n, err := a.db.CopyFrom(ctx, pgx.Identifier{a.table}, archiveColumns, pgx.CopyFromRows(rows))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" { // unique_violation
			return fmt.Errorf("failed to archive events: %w: %s", ErrDuplicateEvent, pgErr.Detail)
		}
		return fmt.Errorf("failed to archive events: %w", err)
	}

	observability.StoreArchivedRows.Add(float64(n))
	return nil
}

// archiveRows maps events to COPY rows. Events of an unknown kind are
// skipped, and events that cannot be encoded are dropped one by one.
// user_id holds $id, the same identifier the collector payload reports.
func archiveRows(log *slog.Logger, events []event.UserEvent) [][]any {
	rows := make([][]any, 0, len(events))
	for _, ev := range events {
		body, err := event.MarshalEvent(ev)
		if errors.Is(err, event.ErrUnsupportedEvent) {
			continue
		}
		if err != nil {
			event.DropEvent(log, ev, err)
			continue
		}

		h := ev.Header()
		userID, _ := h.User.Identifier(model.IdentifierID)
		rows = append(rows, []any{h.InsertID, ev.Kind().String(), h.Timestamp, userID, body})
	}
	return rows
}
