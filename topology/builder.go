package topology

import (
	"fmt"
	"reflect"

	"github.com/dursunkoc/incubator-samoa/pkg/errors"
	"github.com/tryfix/log"
)

type registration struct {
	id          ProcessorID
	node        Node
	parallelism int
	entrance    bool
	item        ProcessingItem
}

type BuilderOption func(b *Builder)

// WithLogger sets the logger the builder reports the built topology to.
func WithLogger(logger log.Logger) BuilderOption {
	return func(b *Builder) {
		b.logger = logger
	}
}

// Builder assembles a Topology. The lifecycle is InitTopology, registrations and stream
// connections in any order, then Build. A Builder is not safe for concurrent use.
type Builder struct {
	factory     ComponentFactory
	logger      log.Logger
	name        string
	initialized bool
	topology    *Topology
	nodes       []*registration
	index       map[Node]ProcessorID
	streams     []*Stream
}

// NewBuilder returns a builder bound to factory. A nil factory falls back to the DefaultFactory.
func NewBuilder(factory ComponentFactory, opts ...BuilderOption) *Builder {
	if factory == nil {
		factory = NewDefaultFactory()
	}

	b := &Builder{
		factory: factory,
		logger:  log.NewNoopLogger(),
		index:   map[Node]ProcessorID{},
	}

	for _, opt := range opts {
		opt(b)
	}

	b.logger = b.logger.NewLog(log.Prefixed(`TopologyBuilder`))

	return b
}

// InitTopology starts a new topology called name. It must be called exactly once.
func (b *Builder) InitTopology(name string) error {
	if b.initialized {
		return errors.Wrapf(ErrIllegalState, `topology %s is already initialized`, b.name)
	}

	if name == `` {
		return errors.Wrap(ErrInvalidArgument, `topology name cannot be empty`)
	}

	b.name = name
	b.initialized = true

	return nil
}

// AddEntranceProcessor registers an event generating node. Entrance processors run one instance.
func (b *Builder) AddEntranceProcessor(p EntranceProcessor) error {
	if err := b.mutable(`AddEntranceProcessor`); err != nil {
		return err
	}

	if err := b.validNode(p, CanGenerate); err != nil {
		return err
	}

	if id, ok := b.index[p]; ok {
		return errors.Wrapf(ErrDuplicateRegistration, `processor %T is already registered as %d`, p, id)
	}

	id := b.nextID()
	item, err := b.factory.NewEntranceProcessingItem(id, p)
	if err != nil {
		return errors.Wrapf(err, `entrance processing item %d (%T) failed`, id, p)
	}

	b.register(&registration{id: id, node: p, parallelism: 1, entrance: true, item: item})

	return nil
}

// AddProcessor registers a consuming node which runs parallelism instances.
func (b *Builder) AddProcessor(p Processor, parallelism int) error {
	if err := b.mutable(`AddProcessor`); err != nil {
		return err
	}

	if parallelism < 1 {
		return errors.Wrapf(ErrInvalidArgument, `parallelism must be >= 1, have %d`, parallelism)
	}

	if err := b.validNode(p, CanConsume); err != nil {
		return err
	}

	if id, ok := b.index[p]; ok {
		return errors.Wrapf(ErrDuplicateRegistration, `processor %T is already registered as %d`, p, id)
	}

	id := b.nextID()
	item, err := b.factory.NewProcessingItem(id, p, parallelism)
	if err != nil {
		return errors.Wrapf(err, `processing item %d (%T) failed`, id, p)
	}

	b.register(&registration{id: id, node: p, parallelism: parallelism, item: item})

	return nil
}

// CreateStream creates a new stream produced by a registered node.
func (b *Builder) CreateStream(source Node) (*Stream, error) {
	if err := b.mutable(`CreateStream`); err != nil {
		return nil, err
	}

	id, ok := b.ID(source)
	if !ok {
		return nil, errors.Wrapf(ErrUnknownProcessor, `stream source %T is not registered`, source)
	}

	s := &Stream{
		id:       StreamID(fmt.Sprintf(`%s/stream-%d`, b.name, len(b.streams)+1)),
		owner:    b,
		sourceID: id,
	}
	b.streams = append(b.streams, s)

	return s, nil
}

// ConnectInputShuffleStream connects dest to stream, distributing events round-robin.
func (b *Builder) ConnectInputShuffleStream(stream *Stream, dest Processor) error {
	return b.connect(stream, dest, GroupShuffle)
}

// ConnectInputKeyStream connects dest to stream, routing events of a key to a single instance.
func (b *Builder) ConnectInputKeyStream(stream *Stream, dest Processor) error {
	return b.connect(stream, dest, GroupKey)
}

// ConnectInputAllStream connects dest to stream, broadcasting events to every instance.
func (b *Builder) ConnectInputAllStream(stream *Stream, dest Processor) error {
	return b.connect(stream, dest, GroupAll)
}

// ID returns the id assigned to a registered node.
func (b *Builder) ID(n Node) (ProcessorID, bool) {
	if n == nil || !reflect.TypeOf(n).Comparable() {
		return 0, false
	}

	id, ok := b.index[n]
	return id, ok
}

// Build validates the graph and returns the immutable Topology. Once it succeeds further calls
// return the same Topology and every mutation fails.
func (b *Builder) Build() (*Topology, error) {
	if !b.initialized {
		return nil, errors.Wrap(ErrIllegalState, `Build called before InitTopology`)
	}

	if b.topology != nil {
		return b.topology, nil
	}

	var issues []string
	for _, s := range b.streams {
		if len(s.edges) == 0 {
			issues = append(issues, fmt.Sprintf(`stream %s has no consumers`, s.id))
		}

		for _, e := range s.edges {
			if _, ok := b.index[e.dest]; !ok {
				issues = append(issues, fmt.Sprintf(`stream %s references unregistered processor %T`, s.id, e.dest))
			}
		}
	}

	if len(issues) > 0 {
		return nil, errors.WrapAll(ErrIncompleteTopology, issues)
	}

	routers := map[edgeKey]Router{}
	for _, s := range b.streams {
		for _, e := range s.edges {
			dest := b.nodes[b.index[e.dest]-1]
			router, err := b.factory.NewRouter(e.grouping, dest.parallelism)
			if err != nil {
				return nil, errors.Wrapf(err, `router for %s -> %d failed`, s.id, dest.id)
			}
			routers[edgeKey{stream: s.id, dest: dest.id}] = router
		}
	}

	// a failed Build must leave the streams unresolved
	for _, s := range b.streams {
		for _, e := range s.edges {
			e.destID = b.index[e.dest]
		}
	}

	b.topology = newTopology(b.name, b.nodes, b.streams, routers)
	b.logger.Debug(fmt.Sprintf("topology %s built\n%s", b.name, b.topology.Summary()))

	return b.topology, nil
}

func (b *Builder) connect(stream *Stream, dest Processor, grouping Grouping) error {
	if err := b.mutable(fmt.Sprintf(`ConnectInput(%s)Stream`, grouping)); err != nil {
		return err
	}

	if stream == nil || stream.owner != b {
		return errors.Wrap(ErrInvalidArgument, `stream does not belong to this builder`)
	}

	if err := b.validNode(dest, CanConsume); err != nil {
		return err
	}

	if stream.connected(dest) {
		return errors.Wrapf(ErrDuplicateRegistration, `%T is already connected to %s`, dest, stream.id)
	}

	stream.edges = append(stream.edges, &edge{dest: dest, grouping: grouping})

	return nil
}

func (b *Builder) mutable(op string) error {
	if !b.initialized {
		return errors.Wrapf(ErrIllegalState, `%s called before InitTopology`, op)
	}

	if b.topology != nil {
		return errors.Wrapf(ErrIllegalState, `%s called after topology %s was built`, op, b.name)
	}

	return nil
}

func (b *Builder) validNode(n Node, required Capability) error {
	if n == nil || reflect.ValueOf(n).Kind() == reflect.Ptr && reflect.ValueOf(n).IsNil() {
		return errors.Wrap(ErrInvalidArgument, `processor cannot be nil`)
	}

	if !reflect.TypeOf(n).Comparable() {
		return errors.Wrapf(ErrInvalidArgument, `processor type %T is not comparable, register a pointer`, n)
	}

	if !n.Capabilities().Has(required) {
		return errors.Wrapf(ErrInvalidArgument, `processor %T cannot %s`, n, required)
	}

	return nil
}

func (b *Builder) nextID() ProcessorID {
	return ProcessorID(len(b.nodes) + 1)
}

func (b *Builder) register(r *registration) {
	b.nodes = append(b.nodes, r)
	b.index[r.node] = r.id
}
