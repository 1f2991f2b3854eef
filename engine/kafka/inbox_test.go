package kafka

import (
	"context"
	"testing"
	"time"

	"github.com/dursunkoc/incubator-samoa/encoding"
	"github.com/dursunkoc/incubator-samoa/engine"
	"github.com/dursunkoc/incubator-samoa/topology"
	"github.com/stretchr/testify/require"
	"github.com/tryfix/log"
)

type bufferedPartition struct {
	tp      TopicPartition
	records chan Record
}

func (p *bufferedPartition) TopicPartition() TopicPartition { return p.tp }

func (p *bufferedPartition) Records() <-chan Record { return p.records }

func (p *bufferedPartition) Close() error { return nil }

type bufferedConsumer struct {
	partitions map[TopicPartition]*bufferedPartition
}

func (c *bufferedConsumer) ConsumePartition(_ context.Context, topic string, partition int32, _ Offset) (Partition, error) {
	return c.partitions[TopicPartition{Topic: topic, Partition: partition}], nil
}

func (c *bufferedConsumer) Close() error { return nil }

func TestInbox_CloseReturnsUnconsumed(t *testing.T) {
	c := codec{payload: encoding.JSONEncoder{}}
	tp := edgeTopic{name: `edge`, stream: `t/stream-2`, destination: 2, partitions: 1}

	pt := &bufferedPartition{
		tp:      TopicPartition{Topic: tp.name, Partition: 0},
		records: make(chan Record, 3),
	}
	for _, payload := range []string{`first`, `second`} {
		r, err := c.encode(tp.name, engine.Delivery{
			Stream: tp.stream,
			From:   engine.Address{Processor: 3, Instance: 0},
			To:     engine.Address{Processor: 2, Instance: 0},
			Event:  topology.NewContentEvent(`k`, payload),
		})
		require.NoError(t, err)
		pt.records <- r
	}

	in := &inbox{
		codec:  c,
		events: make(chan engine.Delivery, 1),
		stop:   make(chan struct{}),
		logger: log.NewNoopLogger(),
	}

	consumer := &bufferedConsumer{partitions: map[TopicPartition]*bufferedPartition{pt.tp: pt}}
	require.NoError(t, in.subscribe(context.Background(), consumer, []edgeTopic{tp}, 0))
	require.Eventually(t, func() bool { return len(in.events) == 1 }, time.Second, 5*time.Millisecond)

	leftovers := in.close()
	require.Len(t, leftovers, 2)

	var payloads []interface{}
	for _, d := range leftovers {
		payloads = append(payloads, d.Event.Payload())
	}
	require.ElementsMatch(t, []interface{}{`first`, `second`}, payloads)
}
