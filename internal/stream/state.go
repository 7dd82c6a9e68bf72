// Package stream maintains the live log stream connection: it dials the
// backend, decodes frames, and reconnects after a fixed delay whenever the
// connection fails or closes.
package stream

// State is the connectivity of a Manager.
type State string

const (
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
	StateDisconnected State = "disconnected"
)

func (s State) String() string {
	return string(s)
}

// EventKind tags the events that drive the connection state machine.
type EventKind int

const (
	// EventOpened is delivered when the transport finished its handshake.
	EventOpened EventKind = iota
	// EventMessage carries one frame received on the open transport.
	EventMessage
	// EventClosed is delivered when the transport closed.
	EventClosed
	// EventErrored is delivered when dialing or reading failed.
	EventErrored
	// EventRetry is delivered when the reconnect timer fires.
	EventRetry

	// eventLocal runs a caller's function on the loop. It never changes
	// the state.
	eventLocal
)

func (k EventKind) String() string {
	switch k {
	case EventOpened:
		return "opened"
	case EventMessage:
		return "message"
	case EventClosed:
		return "closed"
	case EventErrored:
		return "errored"
	case EventRetry:
		return "retry"
	case eventLocal:
		return "local"
	default:
		return "unknown"
	}
}

// Event is a single input to the Manager's event loop.
type Event struct {
	Kind EventKind
	Data []byte // EventMessage
	Conn Conn   // EventOpened
	Err  error  // EventClosed, EventErrored

	fn func() // eventLocal
	// generation ties the event to the connection attempt that produced it.
	generation uint64
}

// Transition returns the state that follows s when an event of kind k is
// applied. Events that do not apply to s leave it unchanged. Closes and
// errors are handled identically.
func Transition(s State, k EventKind) State {
	switch k {
	case EventOpened:
		if s == StateConnecting {
			return StateConnected
		}
	case EventClosed, EventErrored:
		if s == StateConnecting || s == StateConnected {
			return StateDisconnected
		}
	case EventRetry:
		if s == StateDisconnected {
			return StateConnecting
		}
	}
	return s
}
