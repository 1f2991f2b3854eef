package kafka

import (
	"testing"

	"github.com/dursunkoc/incubator-samoa/encoding"
	"github.com/dursunkoc/incubator-samoa/engine"
	"github.com/dursunkoc/incubator-samoa/topology"
	"github.com/stretchr/testify/require"
)

func TestTopicName(t *testing.T) {
	name := TopicName(`topology.`, `run-1`, `Hello World`, `hello/stream-1`, 2)
	require.Equal(t, `topology.run-1.Hello_World.hello_stream-1.2`, name)
}

func TestCodec_Event(t *testing.T) {
	c := codec{payload: encoding.JSONEncoder{}}
	tp := edgeTopic{name: `t`, stream: `s/stream-1`, destination: 3}

	in := engine.Delivery{
		Stream: tp.stream,
		From:   engine.Address{Processor: 1, Instance: 0},
		To:     engine.Address{Processor: 3, Instance: 2},
		Event:  topology.NewContentEvent(`k`, `v`),
	}

	r, err := c.encode(tp.name, in)
	require.NoError(t, err)
	require.Equal(t, int32(2), r.Partition())
	require.Nil(t, r.Headers().Read(headerTerminal))

	out, err := c.decode(tp, r)
	require.NoError(t, err)
	require.Equal(t, in.From, out.From)
	require.Equal(t, in.To, out.To)
	require.Equal(t, `k`, out.Event.Key())
	require.Equal(t, `v`, out.Event.Payload())
	require.False(t, out.Event.IsTerminal())
}

func TestCodec_Terminal(t *testing.T) {
	c := codec{payload: encoding.JSONEncoder{}}
	tp := edgeTopic{name: `t`, stream: `s/stream-1`, destination: 2}

	r, err := c.encode(tp.name, engine.Delivery{
		Stream: tp.stream,
		From:   engine.Address{Processor: 1, Instance: 0},
		To:     engine.Address{Processor: 2, Instance: 1},
		Event:  topology.NewTerminalEvent(),
	})
	require.NoError(t, err)
	require.Equal(t, []byte(`true`), r.Headers().Read(headerTerminal))

	out, err := c.decode(tp, r)
	require.NoError(t, err)
	require.True(t, out.Event.IsTerminal())
}

func TestParseAddress(t *testing.T) {
	addr, err := parseAddress(`12-3`)
	require.NoError(t, err)
	require.Equal(t, engine.Address{Processor: 12, Instance: 3}, addr)

	for _, invalid := range []string{``, `1`, `a-1`, `1-b`, `1-2-3`} {
		_, err := parseAddress(invalid)
		require.Error(t, err, invalid)
	}
}

func TestFactory_MaxPartitions(t *testing.T) {
	b := topology.NewBuilder(NewFactory(4))
	require.NoError(t, b.InitTopology(`factory`))

	p := topology.NewProcessor(func(topology.Context, topology.ContentEvent) error { return nil })
	require.ErrorIs(t, b.AddProcessor(p, 5), topology.ErrInvalidArgument)
	require.NoError(t, b.AddProcessor(p, 4))
}
