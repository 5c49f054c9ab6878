package workspace

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rafaeljc/heimdall-sdk/internal/model"
)

func TestHolder(t *testing.T) {
	t.Parallel()

	t.Run("Should be empty and not ready before the first store", func(t *testing.T) {
		t.Parallel()

		h := NewHolder()

		assert.Nil(t, h.Fetch())
		assert.ErrorIs(t, h.Check(context.Background()), ErrNotReady)
		assert.Equal(t, "workspace", h.Name())

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()
		assert.ErrorIs(t, h.WaitReady(ctx), context.DeadlineExceeded)
	})

	t.Run("Should publish the stored snapshot and become ready", func(t *testing.T) {
		t.Parallel()

		// Arrange
		h := NewHolder()
		ws := New(Contents{EventTypes: []*model.EventType{{ID: 1, Key: "click"}}})

		// Act
		h.Store(ws)

		// Assert
		assert.Same(t, ws, h.Fetch())
		assert.NoError(t, h.Check(context.Background()))
		assert.NoError(t, h.WaitReady(context.Background()))
		select {
		case <-h.Ready():
		default:
			t.Fatal("ready channel should be closed")
		}
	})

	t.Run("Should ignore nil snapshots", func(t *testing.T) {
		t.Parallel()

		h := NewHolder()
		ws := New(Contents{})
		h.Store(ws)

		h.Store(nil)

		assert.Same(t, ws, h.Fetch())
	})

	t.Run("Should serve complete snapshots to concurrent readers", func(t *testing.T) {
		t.Parallel()

		// Arrange
		h := NewHolder()
		h.Store(New(Contents{EventTypes: []*model.EventType{{ID: 0, Key: "e"}}}))

		var wg sync.WaitGroup
		stop := make(chan struct{})

		// Act
		for i := 0; i < 4; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for {
					select {
					case <-stop:
						return
					default:
						ws := h.Fetch()
						// Every snapshot is built with exactly one event type.
						if assert.NotNil(t, ws) {
							assert.NotNil(t, ws.EventType("e"))
						}
					}
				}
			}()
		}
		for i := int64(1); i <= 200; i++ {
			h.Store(New(Contents{EventTypes: []*model.EventType{{ID: i, Key: "e"}}}))
		}
		close(stop)
		wg.Wait()

		// Assert
		require.NotNil(t, h.Fetch())
		assert.Equal(t, int64(200), h.Fetch().EventType("e").ID)
	})
}
