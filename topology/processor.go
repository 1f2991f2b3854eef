package topology

import (
	"context"
	"fmt"
	"time"

	"github.com/tryfix/log"
)

// Capability flags tell an engine how a registered node can be driven.
type Capability uint8

const (
	CanConsume Capability = 1 << iota
	CanGenerate
)

func (c Capability) Has(flag Capability) bool {
	return c&flag == flag
}

func (c Capability) String() string {
	switch {
	case c.Has(CanConsume | CanGenerate):
		return `consume|generate`
	case c.Has(CanConsume):
		return `consume`
	case c.Has(CanGenerate):
		return `generate`
	}

	return fmt.Sprintf(`capability(%d)`, uint8(c))
}

// ProcessorID identifies a registered node inside a topology. IDs start at 1.
type ProcessorID int

func (id ProcessorID) String() string {
	return fmt.Sprintf(`%d`, int(id))
}

// Node is the common part of every registrable processing unit.
// Registered values must be comparable (usually pointers), they act as prototypes and engines call
// NewInstance once per parallel instance.
type Node interface {
	Capabilities() Capability
	NewInstance() Node
}

// Processor consumes one event at a time and may emit events on its outbound streams through the
// Context.
type Processor interface {
	Node
	Process(ctx Context, event ContentEvent) error
}

// EntranceProcessor generates the events entering a topology.
type EntranceProcessor interface {
	Node
	// Next produces zero or more events. Once exhausted it produces nothing.
	Next(ctx Context) ([]ContentEvent, error)
	Exhausted() bool
}

// Initializer is implemented by nodes that need setup before the first event.
type Initializer interface {
	Init(ctx Context) error
}

// Closer is implemented by nodes holding resources released at instance teardown.
type Closer interface {
	Close() error
}

// StateStore is the per instance key value state offered by engines.
type StateStore interface {
	Get(key []byte) ([]byte, error)
	Set(key, value []byte, expiry time.Duration) error
	Delete(key []byte) error
}

// Context is handed to a node instance by the engine running it.
type Context interface {
	Ctx() context.Context
	ProcessorID() ProcessorID
	// InstanceID is the index of this instance within its parallel set, [0, Parallelism).
	InstanceID() int
	Parallelism() int
	// Emit routes event to the destinations of stream. stream must be produced by this node.
	Emit(stream *Stream, event ContentEvent) error
	Store() StateStore
	Logger() log.Logger
}

// ProcessFunc is the body of a stateless Processor.
type ProcessFunc func(ctx Context, event ContentEvent) error

type funcProcessor struct {
	fn ProcessFunc
}

// NewProcessor wraps fn as a consuming node. All instances share fn.
func NewProcessor(fn ProcessFunc) Processor {
	return &funcProcessor{fn: fn}
}

func (p *funcProcessor) Capabilities() Capability { return CanConsume }

func (p *funcProcessor) NewInstance() Node { return &funcProcessor{fn: p.fn} }

func (p *funcProcessor) Process(ctx Context, event ContentEvent) error {
	return p.fn(ctx, event)
}
