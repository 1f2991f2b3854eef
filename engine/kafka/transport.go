package kafka

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dursunkoc/incubator-samoa/engine"
	"github.com/dursunkoc/incubator-samoa/pkg/errors"
	"github.com/dursunkoc/incubator-samoa/topology"
	"github.com/tryfix/metrics"
)

type topicKey struct {
	stream topology.StreamID
	dest   topology.ProcessorID
}

// transport produces every delivery to the partition of its destination instance. Deliveries to
// instances of this process that already terminated are rejected before producing.
type transport struct {
	producer   Producer
	codec      codec
	topics     map[topicKey]string
	terminated sync.Map
	metrics    struct {
		produceLatency metrics.Observer
	}
}

func newTransport(producer Producer, codec codec, topics []edgeTopic, reporter metrics.Reporter) *transport {
	tr := &transport{
		producer: producer,
		codec:    codec,
		topics:   map[topicKey]string{},
	}

	for _, tp := range topics {
		tr.topics[topicKey{stream: tp.stream, dest: tp.destination}] = tp.name
	}

	tr.metrics.produceLatency = reporter.Observer(metrics.MetricConf{
		Path:   `edge_produce_latency_microseconds`,
		Labels: []string{`topic`},
	})

	return tr
}

func (tr *transport) terminate(addr engine.Address) {
	tr.terminated.Store(addr, true)
}

func (tr *transport) Deliver(ctx context.Context, d engine.Delivery) error {
	if _, ok := tr.terminated.Load(d.To); ok {
		return engine.ErrInstanceTerminated
	}

	topic, ok := tr.topics[topicKey{stream: d.Stream, dest: d.To.Processor}]
	if !ok {
		return errors.Wrapf(topology.ErrUnknownProcessor, `no topic for %s -> %d`, d.Stream, d.To.Processor)
	}

	record, err := tr.codec.encode(topic, d)
	if err != nil {
		return err
	}

	defer func(begin time.Time) {
		tr.metrics.produceLatency.Observe(float64(time.Since(begin).Nanoseconds()/1e3), map[string]string{`topic`: topic})
	}(time.Now())

	if _, _, err := tr.producer.ProduceSync(ctx, record); err != nil {
		return errors.Wrap(err, fmt.Sprintf(`produce to %s[%d] failed`, topic, d.To.Instance))
	}

	return nil
}
