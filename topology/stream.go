package topology

// StreamID is the unique name of a stream within a topology.
type StreamID string

// Edge is a read only view of one (stream, destination) connection.
type Edge struct {
	Stream      StreamID
	Source      ProcessorID
	Destination ProcessorID
	Grouping    Grouping
}

type edge struct {
	dest     Processor
	destID   ProcessorID
	grouping Grouping
}

// Stream is a directed event channel from one producing node to one or more consumers.
// Streams are created and connected through a Builder.
type Stream struct {
	id       StreamID
	owner    *Builder
	sourceID ProcessorID
	edges    []*edge
}

func (s *Stream) ID() StreamID {
	return s.id
}

// Source returns the id of the producing node.
func (s *Stream) Source() ProcessorID {
	return s.sourceID
}

// Edges returns the connections of the stream in connect order. Destination ids are resolved
// once the topology is built.
func (s *Stream) Edges() []Edge {
	edges := make([]Edge, len(s.edges))
	for i, e := range s.edges {
		edges[i] = Edge{
			Stream:      s.id,
			Source:      s.sourceID,
			Destination: e.destID,
			Grouping:    e.grouping,
		}
	}

	return edges
}

func (s *Stream) String() string {
	return string(s.id)
}

func (s *Stream) connected(dest Processor) bool {
	for _, e := range s.edges {
		if e.dest == dest {
			return true
		}
	}

	return false
}
