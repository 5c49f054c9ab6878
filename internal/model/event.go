package model

// Event is a custom event reported through track.
type Event struct {
	Key string
	// Value is optional; nil is sent as null.
	Value      *float64
	Properties map[string]any
}
