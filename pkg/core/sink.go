package core

// Sink is the interface every event destination implements.
type Sink interface {
	// Emit delivers one event. Implementations that buffer must flush
	// before returning.
	Emit(e Event) error
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(e Event) error

// Emit calls f(e).
func (f SinkFunc) Emit(e Event) error { return f(e) }
