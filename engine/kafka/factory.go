package kafka

import (
	"github.com/dursunkoc/incubator-samoa/pkg/errors"
	"github.com/dursunkoc/incubator-samoa/topology"
)

// Factory binds topologies to the kafka engine. Every instance of a processor maps to one
// partition of each inbound edge topic, so parallelism is capped by MaxPartitions.
type Factory struct {
	topology.DefaultFactory
	MaxPartitions int
}

func NewFactory(maxPartitions int) *Factory {
	return &Factory{MaxPartitions: maxPartitions}
}

func (f *Factory) NewProcessingItem(id topology.ProcessorID, p topology.Processor, parallelism int) (topology.ProcessingItem, error) {
	if f.MaxPartitions > 0 && parallelism > f.MaxPartitions {
		return nil, errors.Wrapf(topology.ErrInvalidArgument, `parallelism %d of processor %d exceeds the partition limit %d`,
			parallelism, id, f.MaxPartitions)
	}

	return f.DefaultFactory.NewProcessingItem(id, p, parallelism)
}
