package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/dursunkoc/incubator-samoa/topology"
)

// ErrInstanceTerminated is returned by a Transport when the destination instance no longer
// accepts events.
var ErrInstanceTerminated = errors.New(`instance terminated`)

// Address identifies one instance of a processor.
type Address struct {
	Processor topology.ProcessorID
	Instance  int
}

func (a Address) String() string {
	return fmt.Sprintf(`%d-%d`, a.Processor, a.Instance)
}

// Delivery is an event in transit on the edge Stream -> To.
type Delivery struct {
	Stream topology.StreamID
	From   Address
	To     Address
	Event  topology.ContentEvent
}

// Transport moves deliveries between instances. Deliver blocks until the event is accepted,
// the destination terminated or ctx is done. Deliveries from one sender to one destination
// instance must arrive in Deliver order.
type Transport interface {
	Deliver(ctx context.Context, d Delivery) error
}
