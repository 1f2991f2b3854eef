package engine

import (
	"context"

	"github.com/dursunkoc/incubator-samoa/backend"
	"github.com/dursunkoc/incubator-samoa/pkg/errors"
	"github.com/dursunkoc/incubator-samoa/topology"
	"github.com/tryfix/log"
)

type instanceContext struct {
	ctx         context.Context
	instance    *instance
	parallelism int
	store       backend.Backend
}

func (c *instanceContext) Ctx() context.Context {
	return c.ctx
}

func (c *instanceContext) ProcessorID() topology.ProcessorID {
	return c.instance.addr.Processor
}

func (c *instanceContext) InstanceID() int {
	return c.instance.addr.Instance
}

func (c *instanceContext) Parallelism() int {
	return c.parallelism
}

func (c *instanceContext) Emit(stream *topology.Stream, event topology.ContentEvent) error {
	if stream == nil || event == nil {
		return errors.Wrap(topology.ErrInvalidArgument, `stream and event cannot be nil`)
	}

	if event.IsTerminal() {
		return errors.Wrap(topology.ErrInvalidArgument, `terminal markers are sent by the engine`)
	}

	known, ok := c.instance.executor.topology.Stream(stream.ID())
	if !ok || known != stream || stream.Source() != c.instance.addr.Processor {
		return errors.Wrapf(topology.ErrUndeclaredStream, `processor %s cannot emit on %s`, c.instance.addr.Processor, stream)
	}

	return c.instance.route(stream, event)
}

func (c *instanceContext) Store() topology.StateStore {
	return c.store
}

func (c *instanceContext) Logger() log.Logger {
	return c.instance.logger
}
