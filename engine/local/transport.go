package local

import (
	"context"
	"sync"

	"github.com/dursunkoc/incubator-samoa/engine"
	"github.com/dursunkoc/incubator-samoa/pkg/errors"
	"github.com/dursunkoc/incubator-samoa/topology"
)

// mailbox is the inbox of one processor instance. Deliveries on acyclic edges go straight to the
// bounded channel. Feedback deliveries are queued without bound and moved to the channel by a
// forwarder, so a cycle never blocks its own producers.
type mailbox struct {
	events    chan engine.Delivery
	done      chan struct{}
	forwarded chan struct{}
	mu        sync.Mutex
	closed    bool
	senders   sync.WaitGroup
	queue     []engine.Delivery
	signal    chan struct{}
}

func newMailbox(size int) *mailbox {
	return &mailbox{
		events:    make(chan engine.Delivery, size),
		done:      make(chan struct{}),
		forwarded: make(chan struct{}),
		signal:    make(chan struct{}, 1),
	}
}

// terminate refuses further deliveries and returns the ones accepted but not consumed. forward
// must have been started before.
func (m *mailbox) terminate() []engine.Delivery {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	close(m.done)
	m.mu.Unlock()

	m.senders.Wait()
	<-m.forwarded

	m.mu.Lock()
	leftovers := m.queue
	m.queue = nil
	m.mu.Unlock()

	for {
		select {
		case d := <-m.events:
			leftovers = append(leftovers, d)
		default:
			return leftovers
		}
	}
}

func (m *mailbox) deliver(ctx context.Context, d engine.Delivery) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return engine.ErrInstanceTerminated
	}
	m.senders.Add(1)
	m.mu.Unlock()
	defer m.senders.Done()

	select {
	case m.events <- d:
		return nil
	case <-m.done:
		return engine.ErrInstanceTerminated
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *mailbox) enqueue(d engine.Delivery) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return engine.ErrInstanceTerminated
	}
	m.queue = append(m.queue, d)
	m.mu.Unlock()

	select {
	case m.signal <- struct{}{}:
	default:
	}

	return nil
}

// forward moves queued feedback deliveries to the inbox until the instance terminates or ctx is
// done. Deliveries it could not hand over go back to the head of the queue.
func (m *mailbox) forward(ctx context.Context) {
	defer close(m.forwarded)

	for {
		select {
		case <-ctx.Done():
			return
		case <-m.done:
			return
		case <-m.signal:
		}

		m.mu.Lock()
		pending := m.queue
		m.queue = nil
		m.mu.Unlock()

		for i, d := range pending {
			select {
			case m.events <- d:
				continue
			case <-ctx.Done():
			case <-m.done:
			}

			m.mu.Lock()
			m.queue = append(pending[i:], m.queue...)
			m.mu.Unlock()
			return
		}
	}
}

type transport struct {
	topology  *topology.Topology
	mailboxes map[engine.Address]*mailbox
}

func newTransport(t *topology.Topology, inboxSize int) *transport {
	tr := &transport{
		topology:  t,
		mailboxes: map[engine.Address]*mailbox{},
	}

	for _, addr := range engine.Addresses(t) {
		if info, _ := t.Processor(addr.Processor); info.Entrance {
			continue
		}
		tr.mailboxes[addr] = newMailbox(inboxSize)
	}

	return tr
}

func (tr *transport) Deliver(ctx context.Context, d engine.Delivery) error {
	m, ok := tr.mailboxes[d.To]
	if !ok {
		return errors.Wrapf(topology.ErrUnknownProcessor, `no inbox for %s`, d.To)
	}

	if tr.topology.IsFeedback(d.Stream, d.To.Processor) {
		return m.enqueue(d)
	}

	return m.deliver(ctx, d)
}
