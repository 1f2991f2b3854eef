package topology

import "errors"

var (
	// ErrIllegalState is returned when an operation is invoked out of the builder lifecycle order.
	ErrIllegalState = errors.New(`illegal state`)
	// ErrDuplicateRegistration is returned when the same processor (or stream edge) is registered twice.
	ErrDuplicateRegistration = errors.New(`duplicate registration`)
	// ErrUnknownProcessor is returned when an operation references an unregistered processor.
	ErrUnknownProcessor = errors.New(`unknown processor`)
	// ErrInvalidArgument is returned for non-positive parallelism, malformed limits or unusable nodes.
	ErrInvalidArgument = errors.New(`invalid argument`)
	// ErrIncompleteTopology is returned by Build when the graph has dangling references.
	ErrIncompleteTopology = errors.New(`incomplete topology`)
	// ErrUndeclaredStream is returned when a processor emits on a stream it does not produce.
	ErrUndeclaredStream = errors.New(`undeclared stream`)
	// ErrSourceExhausted can be returned by a GenerateFunc to end a finite source early.
	ErrSourceExhausted = errors.New(`source exhausted`)
)
