package kafka

import (
	"strconv"
	"strings"
	"time"

	"github.com/dursunkoc/incubator-samoa/encoding"
	"github.com/dursunkoc/incubator-samoa/engine"
	"github.com/dursunkoc/incubator-samoa/pkg/errors"
	"github.com/dursunkoc/incubator-samoa/topology"
)

var (
	headerTerminal = []byte(`topo.terminal`)
	headerSource   = []byte(`topo.source`)
)

type codec struct {
	payload encoding.Encoder
}

func (c codec) encode(topic string, d engine.Delivery) (Record, error) {
	headers := RecordHeaders{{Key: headerSource, Value: []byte(d.From.String())}}

	if d.Event.IsTerminal() {
		headers = append(headers, RecordHeader{Key: headerTerminal, Value: []byte(`true`)})
		return NewRecord(nil, nil, topic, int32(d.To.Instance), -1, time.Now(), headers), nil
	}

	value, err := c.payload.Encode(d.Event.Payload())
	if err != nil {
		return nil, errors.Wrapf(err, `payload of %s -> %s cannot be encoded`, d.Stream, d.To)
	}

	return NewRecord([]byte(d.Event.Key()), value, topic, int32(d.To.Instance), -1, time.Now(), headers), nil
}

func (c codec) decode(topic edgeTopic, r Record) (engine.Delivery, error) {
	d := engine.Delivery{
		Stream: topic.stream,
		To:     engine.Address{Processor: topic.destination, Instance: int(r.Partition())},
	}

	from, err := parseAddress(string(r.Headers().Read(headerSource)))
	if err != nil {
		return d, errors.Wrapf(err, `record %s has no valid source`, r)
	}
	d.From = from

	if string(r.Headers().Read(headerTerminal)) == `true` {
		d.Event = topology.NewTerminalEvent()
		return d, nil
	}

	payload, err := c.payload.Decode(r.Value())
	if err != nil {
		return d, errors.Wrapf(err, `payload of record %s cannot be decoded`, r)
	}

	d.Event = topology.NewContentEvent(string(r.Key()), payload)

	return d, nil
}

// parseAddress reverses Address.String.
func parseAddress(s string) (engine.Address, error) {
	parts := strings.Split(s, `-`)
	if len(parts) != 2 {
		return engine.Address{}, errors.Errorf(`invalid address [%s]`, s)
	}

	id, err := strconv.Atoi(parts[0])
	if err != nil {
		return engine.Address{}, errors.Wrapf(err, `invalid processor in [%s]`, s)
	}

	instance, err := strconv.Atoi(parts[1])
	if err != nil {
		return engine.Address{}, errors.Wrapf(err, `invalid instance in [%s]`, s)
	}

	return engine.Address{Processor: topology.ProcessorID(id), Instance: instance}, nil
}
