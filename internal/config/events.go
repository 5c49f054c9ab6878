package config

import (
	"fmt"
	"time"
)

// EventsConfig tunes the event queue and the dispatcher worker pool.
type EventsConfig struct {
	QueueCapacity   int           `envconfig:"QUEUE_CAPACITY" default:"10000" validate:"min=1"`
	BatchSize       int           `envconfig:"BATCH_SIZE" default:"100" validate:"min=1"`
	FlushInterval   time.Duration `envconfig:"FLUSH_INTERVAL" default:"10s" validate:"min=100ms"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s" validate:"gt=0"`

	DispatchWorkers int           `envconfig:"DISPATCH_WORKERS" default:"2" validate:"min=1,max=64"`
	DispatchQueue   int           `envconfig:"DISPATCH_QUEUE" default:"100" validate:"min=1"`
	DispatchTimeout time.Duration `envconfig:"DISPATCH_TIMEOUT" default:"10s" validate:"gt=0"`
}

// Validate checks cross-field constraints.
func (c *EventsConfig) Validate() error {
	if c.BatchSize > c.QueueCapacity {
		return fmt.Errorf("events batch_size (%d) cannot be greater than queue_capacity (%d)", c.BatchSize, c.QueueCapacity)
	}
	return nil
}
