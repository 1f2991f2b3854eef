package topology

import "github.com/dursunkoc/incubator-samoa/pkg/errors"

// ProcessingItem is the engine side runnable unit created for a registered node.
type ProcessingItem interface {
	ID() ProcessorID
	Node() Node
	Parallelism() int
}

// ComponentFactory binds a topology description to an execution engine. The Builder consults it
// when nodes are registered and when stream edges are resolved.
type ComponentFactory interface {
	NewEntranceProcessingItem(id ProcessorID, p EntranceProcessor) (ProcessingItem, error)
	NewProcessingItem(id ProcessorID, p Processor, parallelism int) (ProcessingItem, error)
	NewRouter(grouping Grouping, parallelism int) (Router, error)
}

type processingItem struct {
	id          ProcessorID
	node        Node
	parallelism int
}

func (p *processingItem) ID() ProcessorID { return p.id }

func (p *processingItem) Node() Node { return p.node }

func (p *processingItem) Parallelism() int { return p.parallelism }

// DefaultFactory creates plain processing items and the routers of NewRouter. Engine factories
// usually embed it.
type DefaultFactory struct{}

func NewDefaultFactory() *DefaultFactory {
	return &DefaultFactory{}
}

func (DefaultFactory) NewEntranceProcessingItem(id ProcessorID, p EntranceProcessor) (ProcessingItem, error) {
	return &processingItem{id: id, node: p, parallelism: 1}, nil
}

func (DefaultFactory) NewProcessingItem(id ProcessorID, p Processor, parallelism int) (ProcessingItem, error) {
	if parallelism < 1 {
		return nil, errors.Wrapf(ErrInvalidArgument, `parallelism must be >= 1, have %d`, parallelism)
	}

	return &processingItem{id: id, node: p, parallelism: parallelism}, nil
}

func (DefaultFactory) NewRouter(grouping Grouping, parallelism int) (Router, error) {
	return NewRouter(grouping, parallelism)
}
