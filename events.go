package restretry

// EventType names a class of diagnostic event.
type EventType string

// EventNetworkError is emitted once per Execute call that terminates with a
// non-retryable error response.
const EventNetworkError EventType = "network_error"

// Event is a structured diagnostic emitted by the executor. Events never
// influence control flow; they exist for whatever telemetry pipeline the
// caller plugs in.
type Event struct {
	Type    EventType
	Message string
}

// EventSink receives diagnostic events. Implementations must not block for
// long; Emit is called from the retry loop itself.
type EventSink interface {
	Emit(e Event)
}

// NopSink discards all events. It is the default sink.
type NopSink struct{}

// Emit implements EventSink.
func (NopSink) Emit(Event) {}
