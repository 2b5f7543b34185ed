package events

import "prizeboost/core/types"

// Event represents a structured state change emitted by the boost module.
type Event interface {
	EventType() string
	// Event renders the generic payload consumed by the log, the websocket
	// stream and the indexer.
	Event() *types.Event
}

// Emitter broadcasts events to downstream subscribers (RPC stream, indexer).
type Emitter interface {
	Emit(Event)
}

// NoopEmitter satisfies the Emitter interface while discarding all events. It
// is the default wherever a component wants to optionally expose events.
type NoopEmitter struct{}

// Emit implements the Emitter interface.
func (NoopEmitter) Emit(Event) {}

// MultiEmitter fans a single event out to every registered emitter in order.
type MultiEmitter struct {
	emitters []Emitter
}

// NewMultiEmitter builds a fan-out emitter, skipping nil entries.
func NewMultiEmitter(emitters ...Emitter) *MultiEmitter {
	out := &MultiEmitter{}
	for _, e := range emitters {
		if e != nil {
			out.emitters = append(out.emitters, e)
		}
	}
	return out
}

// Emit implements the Emitter interface.
func (m *MultiEmitter) Emit(evt Event) {
	if m == nil {
		return
	}
	for _, e := range m.emitters {
		e.Emit(evt)
	}
}
