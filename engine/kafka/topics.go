package kafka

import (
	"fmt"
	"strings"

	"github.com/dursunkoc/incubator-samoa/topology"
)

// edgeTopic is the topic carrying the edge stream -> destination.
type edgeTopic struct {
	name        string
	stream      topology.StreamID
	destination topology.ProcessorID
	partitions  int32
}

// TopicName returns `<prefix><runID>.<topology>.<stream>.<destination>` with every character that
// kafka does not accept in topic names replaced by `_`.
func TopicName(prefix, runID, topologyName string, stream topology.StreamID, destination topology.ProcessorID) string {
	return prefix + sanitize(fmt.Sprintf(`%s.%s.%s.%d`, runID, topologyName, stream, destination))
}

func sanitize(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '_', r == '-':
			return r
		}
		return '_'
	}, name)
}

func edgeTopics(config *Config, t *topology.Topology) []edgeTopic {
	var topics []edgeTopic
	for _, s := range t.Streams() {
		for _, e := range s.Edges() {
			dest, _ := t.Processor(e.Destination)
			topics = append(topics, edgeTopic{
				name:        TopicName(config.TopicPrefix, config.RunID, t.Name(), e.Stream, e.Destination),
				stream:      e.Stream,
				destination: e.Destination,
				partitions:  int32(dest.Parallelism),
			})
		}
	}

	return topics
}
