package topology

// ContentEvent is the unit of data flowing on a Stream. Events are immutable once emitted.
type ContentEvent interface {
	// Key is used by key grouping to select the destination instance.
	Key() string
	Payload() interface{}
	// IsTerminal reports whether the event is an end-of-stream marker.
	IsTerminal() bool
}

type contentEvent struct {
	key      string
	payload  interface{}
	terminal bool
}

// NewContentEvent returns an immutable event carrying payload under the routing key.
func NewContentEvent(key string, payload interface{}) ContentEvent {
	return contentEvent{key: key, payload: payload}
}

// NewTerminalEvent returns an end-of-stream marker.
func NewTerminalEvent() ContentEvent {
	return contentEvent{terminal: true}
}

func (e contentEvent) Key() string { return e.key }

func (e contentEvent) Payload() interface{} { return e.payload }

func (e contentEvent) IsTerminal() bool { return e.terminal }
