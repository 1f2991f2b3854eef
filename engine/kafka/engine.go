package kafka

import (
	"context"
	"fmt"
	"sync"

	"github.com/dursunkoc/incubator-samoa/engine"
	"github.com/dursunkoc/incubator-samoa/pkg/async"
	"github.com/dursunkoc/incubator-samoa/pkg/errors"
	"github.com/dursunkoc/incubator-samoa/topology"
	"github.com/tryfix/log"
)

// Engine runs the assigned instances of a topology and moves events between instances through
// one kafka topic per stream edge. Processes sharing a RunID and topology form one run.
type Engine struct {
	config *Config
	logger log.Logger
	mu     sync.Mutex
	cancel context.CancelFunc
}

func NewEngine(config *Config) (*Engine, error) {
	if err := config.validate(); err != nil {
		return nil, errors.Wrap(err, `invalid config`)
	}

	return &Engine{
		config: config,
		logger: config.Logger.NewLog(log.Prefixed(`KafkaEngine`)),
	}, nil
}

// Run blocks until every assigned instance terminated, an instance failed, ctx is done or Stop
// is called. The report covers the assigned instances only.
func (e *Engine) Run(ctx context.Context, t *topology.Topology) (*engine.Report, error) {
	if t == nil {
		return nil, errors.Wrap(topology.ErrInvalidArgument, `topology cannot be nil`)
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	e.mu.Lock()
	if e.cancel != nil {
		e.mu.Unlock()
		return nil, errors.Wrap(topology.ErrIllegalState, `engine is already running`)
	}
	e.cancel = cancel
	e.mu.Unlock()

	defer func() {
		e.mu.Lock()
		e.cancel = nil
		e.mu.Unlock()
	}()

	topics := edgeTopics(e.config, t)
	if err := e.createTopics(topics); err != nil {
		return nil, err
	}

	if e.config.Topics.Cleanup {
		defer e.deleteTopics(topics)
	}

	producerConfig := NewProducerConfig()
	producerConfig.Id = fmt.Sprintf(`%s-%s-producer`, t.Name(), e.config.RunID)
	producerConfig.BootstrapServers = e.config.BootstrapServers
	producerConfig.Logger = e.config.Logger
	producerConfig.MetricsReporter = e.config.MetricsReporter
	producer, err := e.config.ProducerBuilder(producerConfig)
	if err != nil {
		return nil, errors.Wrap(err, `producer init failed`)
	}
	defer func() {
		if err := producer.Close(); err != nil {
			e.logger.Error(fmt.Sprintf(`producer close failed due to %s`, err))
		}
	}()

	consumerConfig := NewConsumerConfig()
	consumerConfig.Id = fmt.Sprintf(`%s-%s-consumer`, t.Name(), e.config.RunID)
	consumerConfig.BootstrapServers = e.config.BootstrapServers
	consumerConfig.Logger = e.config.Logger
	consumerConfig.MetricsReporter = e.config.MetricsReporter
	consumer, err := e.config.ConsumerBuilder(consumerConfig)
	if err != nil {
		return nil, errors.Wrap(err, `consumer init failed`)
	}
	defer func() {
		if err := consumer.Close(); err != nil {
			e.logger.Error(fmt.Sprintf(`consumer close failed due to %s`, err))
		}
	}()

	var addrs []engine.Address
	for _, addr := range engine.Addresses(t) {
		if e.config.Assignment(addr) {
			addrs = append(addrs, addr)
		}
	}

	c := codec{payload: e.config.PayloadEncoder}
	tr := newTransport(producer, c, topics, e.config.MetricsReporter)
	executor := engine.NewExecutor(t, tr, e.config.Config, addrs)

	group := async.NewRunGroup(e.logger)
	for _, addr := range addrs {
		addr := addr
		info, _ := t.Processor(addr.Processor)
		if info.Entrance {
			group.Add(func(opts *async.Opts) error {
				opts.Ready()
				return executor.RunEntrance(runCtx, addr)
			})
			continue
		}

		var inbound []edgeTopic
		for _, tp := range topics {
			if tp.destination == addr.Processor {
				inbound = append(inbound, tp)
			}
		}

		group.Add(func(opts *async.Opts) error {
			in := &inbox{
				codec:  c,
				events: make(chan engine.Delivery, e.config.InboxSize),
				stop:   make(chan struct{}),
				logger: e.logger.NewLog(log.Prefixed(fmt.Sprintf(`Inbox(%s)`, addr))),
			}
			defer func() {
				tr.terminate(addr)
				executor.Discard(addr, in.close())
			}()

			if err := in.subscribe(runCtx, consumer, inbound, addr.Instance); err != nil {
				return err
			}
			opts.Ready()

			return executor.RunProcessor(runCtx, addr, in.events)
		})
	}

	go func() {
		select {
		case <-group.Stopping():
			cancel()
		case <-runCtx.Done():
		}
	}()

	e.logger.Info(fmt.Sprintf(`topology %s run %s started with %d of %d instances`,
		t.Name(), e.config.RunID, len(addrs), len(engine.Addresses(t))))

	err = group.Run()
	report := executor.Report()
	if err != nil {
		e.logger.Error(fmt.Sprintf(`topology %s failed due to %s`, t.Name(), err))
		return report, err
	}

	if !report.Terminated() && ctx.Err() != nil {
		return report, ctx.Err()
	}

	e.logger.Info(fmt.Sprintf(`topology %s finished`, t.Name()))
	e.logger.Debug(fmt.Sprintf("run report\n%s", report))

	return report, nil
}

// Stop interrupts a running topology. Run returns once every instance stopped.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.cancel != nil {
		e.cancel()
	}
}

func (e *Engine) createTopics(topics []edgeTopic) error {
	var list []*Topic
	for _, tp := range topics {
		list = append(list, &Topic{
			Name:              tp.name,
			NumPartitions:     tp.partitions,
			ReplicationFactor: e.config.Topics.ReplicationFactor,
			ConfigEntries:     e.config.Topics.ConfigEntries,
		})
	}

	if len(list) == 0 {
		return nil
	}

	if err := e.config.Admin.CreateTopics(list); err != nil {
		return errors.Wrap(err, `edge topics cannot be created`)
	}

	return nil
}

func (e *Engine) deleteTopics(topics []edgeTopic) {
	var names []string
	for _, tp := range topics {
		names = append(names, tp.name)
	}

	if err := e.config.Admin.DeleteTopics(names); err != nil {
		e.logger.Warn(fmt.Sprintf(`edge topics cannot be deleted due to %s`, err))
	}
}

// inbox merges the partitions of every inbound edge topic of one instance. Records of one
// partition keep their order.
type inbox struct {
	codec      codec
	events     chan engine.Delivery
	stop       chan struct{}
	partitions []Partition
	topics     []edgeTopic
	wg         sync.WaitGroup
	mu         sync.Mutex
	leftovers  []engine.Delivery
	logger     log.Logger
}

func (in *inbox) subscribe(ctx context.Context, consumer PartitionConsumer, topics []edgeTopic, instance int) error {
	for _, tp := range topics {
		partition, err := consumer.ConsumePartition(ctx, tp.name, int32(instance), Earliest)
		if err != nil {
			return errors.Wrapf(err, `cannot consume %s[%d]`, tp.name, instance)
		}

		in.partitions = append(in.partitions, partition)
		in.topics = append(in.topics, tp)
		in.wg.Add(1)
		go in.pump(ctx, tp, partition)
	}

	return nil
}

func (in *inbox) pump(ctx context.Context, tp edgeTopic, partition Partition) {
	defer in.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case <-in.stop:
			return
		case r, ok := <-partition.Records():
			if !ok {
				return
			}

			d, err := in.codec.decode(tp, r)
			if err != nil {
				in.logger.Error(fmt.Sprintf(`record skipped due to %s`, err))
				continue
			}

			select {
			case in.events <- d:
			case <-ctx.Done():
				in.keep(d)
				return
			case <-in.stop:
				in.keep(d)
				return
			}
		}
	}
}

func (in *inbox) keep(d engine.Delivery) {
	in.mu.Lock()
	in.leftovers = append(in.leftovers, d)
	in.mu.Unlock()
}

// close stops the pumps and returns the deliveries fetched from the partitions but never
// consumed. Records the client has not fetched yet stay on the edge topics.
func (in *inbox) close() []engine.Delivery {
	close(in.stop)
	in.wg.Wait()

	for i, partition := range in.partitions {
		in.drain(in.topics[i], partition)
		if err := partition.Close(); err != nil {
			in.logger.Error(fmt.Sprintf(`partition %s close failed due to %s`, partition.TopicPartition(), err))
		}
	}

	leftovers := in.leftovers
	in.leftovers = nil
	for {
		select {
		case d := <-in.events:
			leftovers = append(leftovers, d)
		default:
			return leftovers
		}
	}
}

// drain takes the records a partition has already buffered without waiting for more.
func (in *inbox) drain(tp edgeTopic, partition Partition) {
	for {
		select {
		case r, ok := <-partition.Records():
			if !ok {
				return
			}

			d, err := in.codec.decode(tp, r)
			if err != nil {
				in.logger.Error(fmt.Sprintf(`record skipped due to %s`, err))
				continue
			}
			in.keep(d)
		default:
			return
		}
	}
}
