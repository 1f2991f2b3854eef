package engine

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/dursunkoc/incubator-samoa/pkg/errors"
	"github.com/dursunkoc/incubator-samoa/topology"
	"github.com/tryfix/log"
	"github.com/tryfix/metrics"
	"golang.org/x/time/rate"
)

// Addresses lists every instance of every processor of t.
func Addresses(t *topology.Topology) []Address {
	var addrs []Address
	for _, p := range t.Processors() {
		for i := 0; i < p.Parallelism; i++ {
			addrs = append(addrs, Address{Processor: p.ID, Instance: i})
		}
	}

	return addrs
}

// Executor drives processor instances of a topology over a Transport. Engines decide where each
// instance runs and how deliveries reach its inbox.
type Executor struct {
	topology  *topology.Topology
	transport Transport
	config    *Config
	logger    log.Logger
	edges     map[topology.StreamID][]topology.Edge
	stats     map[Address]*instanceStats
	metrics   struct {
		processed      metrics.Counter
		emitted        metrics.Counter
		dropped        metrics.Counter
		processLatency metrics.Observer
	}
}

// NewExecutor prepares the instances in addrs. Only those can be run by the executor.
func NewExecutor(t *topology.Topology, transport Transport, config *Config, addrs []Address) *Executor {
	e := &Executor{
		topology:  t,
		transport: transport,
		config:    config,
		logger:    config.Logger.NewLog(log.Prefixed(`Executor`)),
		edges:     map[topology.StreamID][]topology.Edge{},
		stats:     map[Address]*instanceStats{},
	}

	for _, s := range t.Streams() {
		e.edges[s.ID()] = s.Edges()
	}

	for _, addr := range addrs {
		e.stats[addr] = new(instanceStats)
	}

	labels := []string{`processor`, `instance`}
	constLabels := map[string]string{`topology`: t.Name()}
	e.metrics.processed = config.MetricsReporter.Counter(metrics.MetricConf{Path: `events_delivered`, Labels: labels, ConstLabels: constLabels})
	e.metrics.emitted = config.MetricsReporter.Counter(metrics.MetricConf{Path: `events_emitted`, Labels: labels, ConstLabels: constLabels})
	e.metrics.dropped = config.MetricsReporter.Counter(metrics.MetricConf{Path: `events_dropped`, Labels: labels, ConstLabels: constLabels})
	e.metrics.processLatency = config.MetricsReporter.Observer(metrics.MetricConf{Path: `process_latency_microseconds`, Labels: labels, ConstLabels: constLabels})

	return e
}

func (e *Executor) Topology() *topology.Topology {
	return e.topology
}

// Report snapshots the counters of every prepared instance.
func (e *Executor) Report() *Report {
	return newReport(e.topology.Name(), e.stats)
}

// RunEntrance generates events until the entrance instance at addr is exhausted, then sends the
// terminal markers downstream. It returns nil when ctx is done.
func (e *Executor) RunEntrance(ctx context.Context, addr Address) error {
	inst, err := e.newInstance(ctx, addr)
	if err != nil {
		return err
	}
	defer inst.close()

	src, ok := inst.node.(topology.EntranceProcessor)
	if !ok {
		return errors.Errorf(`node %s (%T) is not an entrance processor`, addr, inst.node)
	}

	var limiter *rate.Limiter
	if e.config.GenerateRate > 0 {
		burst := int(e.config.GenerateRate)
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(e.config.GenerateRate), burst)
	}

	outbound := e.topology.OutboundStreams(addr.Processor)
	if len(outbound) == 0 {
		inst.logger.Warn(fmt.Sprintf(`entrance %s has no outbound streams, generated events are discarded`, addr))
	}

	for !src.Exhausted() {
		if ctx.Err() != nil {
			return nil
		}

		events, err := src.Next(inst.ctx)
		if err != nil {
			return errors.Wrapf(err, `entrance %s failed`, addr)
		}

		if len(events) == 0 {
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(e.config.IdleBackoff):
			}
			continue
		}

		for _, event := range events {
			if limiter != nil {
				if err := limiter.Wait(ctx); err != nil {
					return nil
				}
			}

			for _, s := range outbound {
				if err := inst.route(s, event); err != nil {
					return interrupted(ctx, err)
				}
			}
		}
	}

	inst.logger.Debug(fmt.Sprintf(`entrance %s exhausted`, addr))

	return interrupted(ctx, inst.terminate())
}

// RunProcessor consumes deliveries of the instance at addr until it received a terminal marker
// from every upstream producer instance. It returns nil when ctx is done or inbox is closed.
func (e *Executor) RunProcessor(ctx context.Context, addr Address, inbox <-chan Delivery) error {
	inst, err := e.newInstance(ctx, addr)
	if err != nil {
		return err
	}
	defer inst.close()

	proc, ok := inst.node.(topology.Processor)
	if !ok {
		return errors.Errorf(`node %s (%T) is not a processor`, addr, inst.node)
	}

	expected := e.topology.ExpectedTerminals(addr.Processor)
	if expected == 0 {
		inst.logger.Warn(fmt.Sprintf(`processor %s has no upstream producers`, addr))
		return interrupted(ctx, inst.finish(proc))
	}

	var received int
	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-inbox:
			if !ok {
				return nil
			}

			if !d.Event.IsTerminal() {
				if err := inst.process(proc, d.Event); err != nil {
					return interrupted(ctx, err)
				}
				continue
			}

			if e.topology.IsFeedback(d.Stream, addr.Processor) {
				continue
			}

			atomic.AddUint64(&inst.stats.terminals, 1)
			received++
			if received == expected {
				return interrupted(ctx, inst.finish(proc))
			}
		}
	}
}

// Discard accounts for deliveries accepted into the inbox of addr but never processed because the
// instance terminated. Terminal markers are ignored.
func (e *Executor) Discard(addr Address, leftovers []Delivery) {
	stats, ok := e.stats[addr]
	if !ok {
		return
	}

	labels := map[string]string{`processor`: addr.Processor.String(), `instance`: fmt.Sprint(addr.Instance)}
	for _, d := range leftovers {
		if d.Event.IsTerminal() {
			continue
		}

		atomic.AddUint64(&stats.dropped, 1)
		e.metrics.dropped.Count(1, labels)
		e.logger.Debug(fmt.Sprintf(`event from %s on %s dropped, instance %s terminated`, d.From, d.Stream, addr))
	}
}

func (e *Executor) newInstance(ctx context.Context, addr Address) (*instance, error) {
	stats, ok := e.stats[addr]
	if !ok {
		return nil, errors.Errorf(`instance %s is not assigned to this executor`, addr)
	}

	info, ok := e.topology.Processor(addr.Processor)
	if !ok || addr.Instance < 0 || addr.Instance >= info.Parallelism {
		return nil, errors.Wrapf(topology.ErrUnknownProcessor, `instance %s`, addr)
	}

	store, err := e.config.StateBackend(fmt.Sprintf(`%s-%d-%d`, e.topology.Name(), addr.Processor, addr.Instance))
	if err != nil {
		return nil, errors.Wrapf(err, `state backend of %s failed`, addr)
	}

	inst := &instance{
		executor: e,
		addr:     addr,
		node:     info.Node.NewInstance(),
		stats:    stats,
		labels:   map[string]string{`processor`: addr.Processor.String(), `instance`: fmt.Sprint(addr.Instance)},
		logger:   e.logger.NewLog(log.Prefixed(fmt.Sprintf(`Instance(%s)`, addr))),
	}

	inst.ctx = &instanceContext{
		ctx:         ctx,
		instance:    inst,
		parallelism: info.Parallelism,
		store:       store,
	}

	if initializer, ok := inst.node.(topology.Initializer); ok {
		if err := initializer.Init(inst.ctx); err != nil {
			_ = store.Close()
			return nil, errors.Wrapf(err, `init of %s failed`, addr)
		}
	}

	return inst, nil
}

type instance struct {
	executor *Executor
	addr     Address
	node     topology.Node
	ctx      *instanceContext
	stats    *instanceStats
	labels   map[string]string
	logger   log.Logger
}

func (i *instance) process(proc topology.Processor, event topology.ContentEvent) error {
	defer func(begin time.Time) {
		i.executor.metrics.processLatency.Observe(float64(time.Since(begin).Nanoseconds()/1e3), i.labels)
	}(time.Now())

	if err := proc.Process(i.ctx, event); err != nil {
		return errors.Wrapf(err, `processor %s failed`, i.addr)
	}

	atomic.AddUint64(&i.stats.processed, 1)
	i.executor.metrics.processed.Count(1, i.labels)

	return nil
}

// finish hands the terminal marker to the processor and propagates it.
func (i *instance) finish(proc topology.Processor) error {
	if err := proc.Process(i.ctx, topology.NewTerminalEvent()); err != nil {
		return errors.Wrapf(err, `processor %s failed on terminal marker`, i.addr)
	}

	return i.terminate()
}

// terminate sends one terminal marker to every instance of every non feedback destination.
func (i *instance) terminate() error {
	e := i.executor
	marker := topology.NewTerminalEvent()

	for _, s := range e.topology.OutboundStreams(i.addr.Processor) {
		for _, edge := range e.edges[s.ID()] {
			if e.topology.IsFeedback(s.ID(), edge.Destination) {
				continue
			}

			dest, _ := e.topology.Processor(edge.Destination)
			for instance := 0; instance < dest.Parallelism; instance++ {
				err := e.transport.Deliver(i.ctx.ctx, Delivery{
					Stream: s.ID(),
					From:   i.addr,
					To:     Address{Processor: edge.Destination, Instance: instance},
					Event:  marker,
				})
				if err != nil && !errors.Is(err, ErrInstanceTerminated) {
					return errors.Wrapf(err, `terminal marker %s -> %d-%d failed`, s.ID(), edge.Destination, instance)
				}
			}
		}
	}

	atomic.StoreUint32(&i.stats.terminated, 1)
	i.logger.Debug(`terminated`)

	return nil
}

func (i *instance) route(s *topology.Stream, event topology.ContentEvent) error {
	e := i.executor
	for _, edge := range e.edges[s.ID()] {
		router, ok := e.topology.Router(s.ID(), edge.Destination)
		if !ok {
			return errors.Errorf(`no router for %s -> %d`, s.ID(), edge.Destination)
		}

		for _, target := range router.Route(event) {
			err := e.transport.Deliver(i.ctx.ctx, Delivery{
				Stream: s.ID(),
				From:   i.addr,
				To:     Address{Processor: edge.Destination, Instance: target},
				Event:  event,
			})

			if errors.Is(err, ErrInstanceTerminated) {
				atomic.AddUint64(&i.stats.dropped, 1)
				e.metrics.dropped.Count(1, i.labels)
				i.logger.Debug(fmt.Sprintf(`event to terminated instance %d-%d dropped`, edge.Destination, target))
				continue
			}

			if err != nil {
				return errors.Wrapf(err, `delivery %s -> %d-%d failed`, s.ID(), edge.Destination, target)
			}

			atomic.AddUint64(&i.stats.emitted, 1)
			e.metrics.emitted.Count(1, i.labels)
		}
	}

	return nil
}

func (i *instance) close() {
	if closer, ok := i.node.(topology.Closer); ok {
		if err := closer.Close(); err != nil {
			i.logger.Error(fmt.Sprintf(`close failed due to %s`, err))
		}
	}

	if err := i.ctx.store.Close(); err != nil {
		i.logger.Error(fmt.Sprintf(`state backend close failed due to %s`, err))
	}
}

// interrupted hides the errors caused by a cancelled run.
func interrupted(ctx context.Context, err error) error {
	if err != nil && ctx.Err() != nil &&
		(errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) {
		return nil
	}

	return err
}
