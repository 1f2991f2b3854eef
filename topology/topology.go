package topology

type edgeKey struct {
	stream StreamID
	dest   ProcessorID
}

// ProcessorInfo describes a registered node of a built topology.
type ProcessorInfo struct {
	ID          ProcessorID
	Node        Node
	Parallelism int
	Entrance    bool
	Item        ProcessingItem
}

// InboundEdge is an edge seen from its destination.
type InboundEdge struct {
	Edge
	SourceParallelism int
	// Feedback edges lead back towards the entrances inside a cycle and do not take part in
	// termination.
	Feedback bool
}

// Topology is the immutable result of Builder.Build and is safe for concurrent readers.
type Topology struct {
	name       string
	processors []ProcessorInfo
	streams    []*Stream
	streamByID map[StreamID]*Stream
	outbound   map[ProcessorID][]*Stream
	inbound    map[ProcessorID][]InboundEdge
	routers    map[edgeKey]Router
	feedback   map[edgeKey]bool
}

func newTopology(name string, nodes []*registration, streams []*Stream, routers map[edgeKey]Router) *Topology {
	t := &Topology{
		name:       name,
		streams:    append([]*Stream(nil), streams...),
		streamByID: map[StreamID]*Stream{},
		outbound:   map[ProcessorID][]*Stream{},
		inbound:    map[ProcessorID][]InboundEdge{},
		routers:    routers,
	}

	for _, n := range nodes {
		t.processors = append(t.processors, ProcessorInfo{
			ID:          n.id,
			Node:        n.node,
			Parallelism: n.parallelism,
			Entrance:    n.entrance,
			Item:        n.item,
		})
	}

	for _, s := range t.streams {
		t.streamByID[s.id] = s
		t.outbound[s.sourceID] = append(t.outbound[s.sourceID], s)
	}

	t.feedback = feedbackEdges(t)

	for _, s := range t.streams {
		for _, e := range s.Edges() {
			t.inbound[e.Destination] = append(t.inbound[e.Destination], InboundEdge{
				Edge:              e,
				SourceParallelism: t.processors[e.Source-1].Parallelism,
				Feedback:          t.feedback[edgeKey{stream: e.Stream, dest: e.Destination}],
			})
		}
	}

	return t
}

func (t *Topology) Name() string {
	return t.name
}

// Processors returns every registered node ordered by id.
func (t *Topology) Processors() []ProcessorInfo {
	return append([]ProcessorInfo(nil), t.processors...)
}

func (t *Topology) Processor(id ProcessorID) (ProcessorInfo, bool) {
	if id < 1 || int(id) > len(t.processors) {
		return ProcessorInfo{}, false
	}

	return t.processors[id-1], true
}

// EntranceProcessors returns the event generating nodes.
func (t *Topology) EntranceProcessors() []ProcessorInfo {
	var entrances []ProcessorInfo
	for _, p := range t.processors {
		if p.Entrance {
			entrances = append(entrances, p)
		}
	}

	return entrances
}

// Streams returns every stream in creation order.
func (t *Topology) Streams() []*Stream {
	return append([]*Stream(nil), t.streams...)
}

func (t *Topology) Stream(id StreamID) (*Stream, bool) {
	s, ok := t.streamByID[id]
	return s, ok
}

// OutboundStreams returns the streams produced by a node.
func (t *Topology) OutboundStreams(id ProcessorID) []*Stream {
	return append([]*Stream(nil), t.outbound[id]...)
}

// InboundEdges returns every edge a node consumes from.
func (t *Topology) InboundEdges(id ProcessorID) []InboundEdge {
	return append([]InboundEdge(nil), t.inbound[id]...)
}

// Router returns the routing function of the edge stream -> dest.
func (t *Topology) Router(stream StreamID, dest ProcessorID) (Router, bool) {
	r, ok := t.routers[edgeKey{stream: stream, dest: dest}]
	return r, ok
}

// IsFeedback reports whether the edge stream -> dest leads back towards the entrances inside a
// cycle. Feedback edges carry events but do not count towards termination.
func (t *Topology) IsFeedback(stream StreamID, dest ProcessorID) bool {
	return t.feedback[edgeKey{stream: stream, dest: dest}]
}

// ExpectedTerminals is the number of terminal markers an instance of id waits for before it
// terminates: one per upstream producer instance over every non feedback inbound edge.
func (t *Topology) ExpectedTerminals(id ProcessorID) int {
	var expected int
	for _, e := range t.inbound[id] {
		if e.Feedback {
			continue
		}
		expected += e.SourceParallelism
	}

	return expected
}

// feedbackEdges marks the edges inside a cycle that do not move away from the entrance
// processors: both endpoints share a strongly connected component and the source is not closer to
// an entrance than the destination. The remaining edges form an acyclic graph.
func feedbackEdges(t *Topology) map[edgeKey]bool {
	adjacent := map[ProcessorID][]ProcessorID{}
	for _, s := range t.streams {
		for _, e := range s.Edges() {
			adjacent[e.Source] = append(adjacent[e.Source], e.Destination)
		}
	}

	component := stronglyConnected(len(t.processors), adjacent)
	depth := distances(t, adjacent)

	feedback := map[edgeKey]bool{}
	for _, s := range t.streams {
		for _, e := range s.Edges() {
			if component[e.Source] != component[e.Destination] {
				continue
			}

			from, reachable := depth[e.Source]
			to := depth[e.Destination]
			if !reachable || from >= to {
				feedback[edgeKey{stream: e.Stream, dest: e.Destination}] = true
			}
		}
	}

	return feedback
}

// distances is a breadth first search from every entrance processor.
func distances(t *Topology, adjacent map[ProcessorID][]ProcessorID) map[ProcessorID]int {
	depth := map[ProcessorID]int{}
	var queue []ProcessorID
	for _, p := range t.processors {
		if p.Entrance {
			depth[p.ID] = 0
			queue = append(queue, p.ID)
		}
	}

	for len(queue) > 0 {
		v := queue[0]
		queue = queue[1:]
		for _, w := range adjacent[v] {
			if _, seen := depth[w]; !seen {
				depth[w] = depth[v] + 1
				queue = append(queue, w)
			}
		}
	}

	return depth
}

// stronglyConnected is Tarjan's algorithm over nodes 1..n, it returns the component of each node.
func stronglyConnected(n int, adjacent map[ProcessorID][]ProcessorID) map[ProcessorID]int {
	var (
		counter    int
		components int
		stack      []ProcessorID
		index      = map[ProcessorID]int{}
		low        = map[ProcessorID]int{}
		onStack    = map[ProcessorID]bool{}
		component  = map[ProcessorID]int{}
	)

	var visit func(v ProcessorID)
	visit = func(v ProcessorID) {
		counter++
		index[v] = counter
		low[v] = counter
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range adjacent[v] {
			if _, seen := index[w]; !seen {
				visit(w)
				if low[w] < low[v] {
					low[v] = low[w]
				}
			} else if onStack[w] && index[w] < low[v] {
				low[v] = index[w]
			}
		}

		if low[v] != index[v] {
			return
		}

		components++
		for {
			w := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			onStack[w] = false
			component[w] = components
			if w == v {
				break
			}
		}
	}

	for id := ProcessorID(1); int(id) <= n; id++ {
		if _, seen := index[id]; !seen {
			visit(id)
		}
	}

	return component
}
