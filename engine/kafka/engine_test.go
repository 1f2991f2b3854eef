package kafka_test

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dursunkoc/incubator-samoa/engine/kafka"
	"github.com/dursunkoc/incubator-samoa/engine/kafka/mocks"
	"github.com/dursunkoc/incubator-samoa/topology"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

type collector struct {
	mu        sync.Mutex
	payloads  map[int][]string
	terminals map[int]int
}

func newCollector() *collector {
	return &collector{payloads: map[int][]string{}, terminals: map[int]int{}}
}

func (c *collector) processor() topology.Processor {
	return topology.NewProcessor(func(ctx topology.Context, event topology.ContentEvent) error {
		c.mu.Lock()
		defer c.mu.Unlock()

		if event.IsTerminal() {
			c.terminals[ctx.InstanceID()]++
			return nil
		}

		c.payloads[ctx.InstanceID()] = append(c.payloads[ctx.InstanceID()], event.Payload().(string))
		return nil
	})
}

func source(t *testing.T, limit int64) *topology.BoundedSource {
	t.Helper()
	var n int
	src, err := topology.NewBoundedSource(limit, func(_ topology.Context, max int) ([]topology.ContentEvent, error) {
		var events []topology.ContentEvent
		for i := 0; i < max; i++ {
			events = append(events, topology.NewContentEvent(fmt.Sprint(n), fmt.Sprintf(`event-%d`, n)))
			n++
		}
		return events, nil
	})
	require.NoError(t, err)

	return src
}

func mockConfig(topics *mocks.Topics) *kafka.Config {
	config := kafka.NewConfig()
	config.Admin = mocks.NewMockAdmin(topics)
	config.ProducerBuilder = mocks.NewMockProducer(topics).Builder()
	config.ConsumerBuilder = mocks.NewMockPartitionConsumer(topics).Builder()

	return config
}

func shuffleTopology(t *testing.T, limit int64, c *collector) *topology.Topology {
	t.Helper()
	b := topology.NewBuilder(kafka.NewFactory(8))
	require.NoError(t, b.InitTopology(`shuffle`))

	src := source(t, limit)
	p := c.processor()
	require.NoError(t, b.AddEntranceProcessor(src))
	require.NoError(t, b.AddProcessor(p, 2))
	s, err := b.CreateStream(src)
	require.NoError(t, err)
	require.NoError(t, b.ConnectInputShuffleStream(s, p))

	topo, err := b.Build()
	require.NoError(t, err)

	return topo
}

func TestEngine_ShuffleLimit(t *testing.T) {
	defer goleak.VerifyNone(t)

	topics := mocks.NewMockTopics()
	c := newCollector()
	topo := shuffleTopology(t, 5, c)

	eng, err := kafka.NewEngine(mockConfig(topics))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	report, err := eng.Run(ctx, topo)
	require.NoError(t, err)
	require.True(t, report.Terminated(), report.String())

	require.Equal(t, []string{`event-0`, `event-2`, `event-4`}, c.payloads[0])
	require.Equal(t, []string{`event-1`, `event-3`}, c.payloads[1])
	require.Equal(t, map[int]int{0: 1, 1: 1}, c.terminals)

	names := topics.Names()
	require.Len(t, names, 1)
	require.True(t, strings.HasSuffix(names[0], `.shuffle.shuffle_stream-1.2`), names[0])

	topic, err := topics.Topic(names[0])
	require.NoError(t, err)
	require.Len(t, topic.Partitions(), 2)
	// five events plus one terminal marker per partition
	require.Len(t, topic.FetchAll(), 7)
}

func TestEngine_SplitAssignment(t *testing.T) {
	defer goleak.VerifyNone(t)

	topics := mocks.NewMockTopics()
	c := newCollector()
	topo := shuffleTopology(t, 6, c)

	runID := `split-run`
	run := func(assignment kafka.AssignmentFunc) error {
		config := mockConfig(topics)
		config.RunID = runID
		config.Assignment = assignment
		eng, err := kafka.NewEngine(config)
		require.NoError(t, err)

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		report, err := eng.Run(ctx, topo)
		if err == nil && !report.Terminated() {
			return fmt.Errorf("run did not terminate\n%s", report)
		}
		return err
	}

	// the consumers start first, the producing process later
	errs := make(chan error, 2)
	go func() { errs <- run(kafka.AssignProcessors(2)) }()
	time.Sleep(100 * time.Millisecond)
	go func() { errs <- run(kafka.AssignProcessors(1)) }()

	require.NoError(t, <-errs)
	require.NoError(t, <-errs)

	var all []string
	for _, payloads := range c.payloads {
		all = append(all, payloads...)
	}
	sort.Strings(all)
	require.Len(t, all, 6)
	require.Equal(t, map[int]int{0: 1, 1: 1}, c.terminals)
}

func TestEngine_CleanupTopics(t *testing.T) {
	defer goleak.VerifyNone(t)

	topics := mocks.NewMockTopics()
	config := mockConfig(topics)
	config.Topics.Cleanup = true

	eng, err := kafka.NewEngine(config)
	require.NoError(t, err)

	_, err = eng.Run(context.Background(), shuffleTopology(t, 3, newCollector()))
	require.NoError(t, err)
	require.Empty(t, topics.Names())
}

func TestEngine_Stop(t *testing.T) {
	defer goleak.VerifyNone(t)

	eng, err := kafka.NewEngine(mockConfig(mocks.NewMockTopics()))
	require.NoError(t, err)

	go func() {
		time.Sleep(200 * time.Millisecond)
		eng.Stop()
	}()

	report, err := eng.Run(context.Background(), shuffleTopology(t, topology.Unlimited, newCollector()))
	require.NoError(t, err)
	require.False(t, report.Terminated())
}

func TestNewEngine_InvalidConfig(t *testing.T) {
	config := kafka.NewConfig()
	_, err := kafka.NewEngine(config)
	require.Error(t, err, `admin and clients are required`)

	config = mockConfig(mocks.NewMockTopics())
	config.RunID = ``
	_, err = kafka.NewEngine(config)
	require.Error(t, err)

	config = mockConfig(mocks.NewMockTopics())
	config.Topics.ReplicationFactor = 0
	_, err = kafka.NewEngine(config)
	require.Error(t, err)
}

func relay(out **topology.Stream, prefix string) topology.Processor {
	return topology.NewProcessor(func(ctx topology.Context, event topology.ContentEvent) error {
		if event.IsTerminal() {
			return nil
		}

		var n int
		if _, err := fmt.Sscanf(event.Payload().(string), `event-%d`, &n); err != nil {
			return err
		}

		return ctx.Emit(*out, topology.NewContentEvent(event.Key(), fmt.Sprintf(`%s-%d`, prefix, n)))
	})
}

func requireIncreasing(t *testing.T, c *collector, prefix string) int {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()

	var total int
	for instance, payloads := range c.payloads {
		last := -1
		for _, payload := range payloads {
			if !strings.HasPrefix(payload, prefix+`-`) {
				continue
			}

			var n int
			_, err := fmt.Sscanf(payload, prefix+`-%d`, &n)
			require.NoError(t, err)
			require.Greater(t, n, last, `instance %d %s`, instance, prefix)
			last = n
			total++
		}
	}

	return total
}

func TestEngine_EdgeOrder(t *testing.T) {
	defer goleak.VerifyNone(t)

	topics := mocks.NewMockTopics()
	c := newCollector()

	b := topology.NewBuilder(kafka.NewFactory(8))
	require.NoError(t, b.InitTopology(`order`))

	var toA, toB *topology.Stream
	src := source(t, 120)
	a := relay(&toA, `a`)
	bb := relay(&toB, `b`)
	p := c.processor()
	require.NoError(t, b.AddEntranceProcessor(src))
	require.NoError(t, b.AddProcessor(a, 1))
	require.NoError(t, b.AddProcessor(bb, 1))
	require.NoError(t, b.AddProcessor(p, 3))

	s1, err := b.CreateStream(src)
	require.NoError(t, err)
	s2, err := b.CreateStream(src)
	require.NoError(t, err)
	toA, err = b.CreateStream(a)
	require.NoError(t, err)
	toB, err = b.CreateStream(bb)
	require.NoError(t, err)

	require.NoError(t, b.ConnectInputShuffleStream(s1, a))
	require.NoError(t, b.ConnectInputShuffleStream(s2, bb))
	// every instance of p merges one partition of each of the two edge topics
	require.NoError(t, b.ConnectInputKeyStream(toA, p))
	require.NoError(t, b.ConnectInputKeyStream(toB, p))

	topo, err := b.Build()
	require.NoError(t, err)

	eng, err := kafka.NewEngine(mockConfig(topics))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	report, err := eng.Run(ctx, topo)
	require.NoError(t, err)
	require.True(t, report.Terminated(), report.String())

	require.Equal(t, 120, requireIncreasing(t, c, `a`))
	require.Equal(t, 120, requireIncreasing(t, c, `b`))
	require.Equal(t, map[int]int{0: 1, 1: 1, 2: 1}, c.terminals)
}

func TestEngine_EdgeOrderSingleKey(t *testing.T) {
	defer goleak.VerifyNone(t)

	topics := mocks.NewMockTopics()
	c := newCollector()

	b := topology.NewBuilder(kafka.NewFactory(8))
	require.NoError(t, b.InitTopology(`order-key`))

	var n int
	src, err := topology.NewBoundedSource(50, func(_ topology.Context, max int) ([]topology.ContentEvent, error) {
		var events []topology.ContentEvent
		for i := 0; i < max; i++ {
			events = append(events, topology.NewContentEvent(`only`, fmt.Sprintf(`event-%d`, n)))
			n++
		}
		return events, nil
	}, topology.WithBatchSize(5))
	require.NoError(t, err)

	p := c.processor()
	require.NoError(t, b.AddEntranceProcessor(src))
	require.NoError(t, b.AddProcessor(p, 3))
	s, err := b.CreateStream(src)
	require.NoError(t, err)
	require.NoError(t, b.ConnectInputKeyStream(s, p))

	topo, err := b.Build()
	require.NoError(t, err)

	eng, err := kafka.NewEngine(mockConfig(topics))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err = eng.Run(ctx, topo)
	require.NoError(t, err)

	require.Equal(t, 50, requireIncreasing(t, c, `event`))
	c.mu.Lock()
	require.Len(t, c.payloads[topology.KeyPartition(`only`, 3)], 50)
	c.mu.Unlock()
}
