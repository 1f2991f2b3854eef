package topology

import (
	"sync/atomic"

	"github.com/dursunkoc/incubator-samoa/pkg/errors"
)

// Unlimited disables the generation limit of an entrance processor.
const Unlimited int64 = -1

// Limit counts the events an entrance processor is still allowed to generate.
// It never goes below zero and an Unlimited counter never decrements.
type Limit struct {
	remaining int64
}

func NewLimit(limit int64) (*Limit, error) {
	if limit < Unlimited {
		return nil, errors.Wrapf(ErrInvalidArgument, `limit must be >= %d, have %d`, Unlimited, limit)
	}

	return &Limit{remaining: limit}, nil
}

// Take reserves up to n events and returns how many were granted.
func (l *Limit) Take(n int) int {
	if n <= 0 {
		return 0
	}

	for {
		current := atomic.LoadInt64(&l.remaining)
		if current == Unlimited {
			return n
		}

		granted := int64(n)
		if granted > current {
			granted = current
		}

		if granted == 0 {
			return 0
		}

		if atomic.CompareAndSwapInt64(&l.remaining, current, current-granted) {
			return int(granted)
		}
	}
}

// Remaining returns the events left, or Unlimited.
func (l *Limit) Remaining() int64 {
	return atomic.LoadInt64(&l.remaining)
}

func (l *Limit) Exhausted() bool {
	return atomic.LoadInt64(&l.remaining) == 0
}

// GenerateFunc produces up to max events. Returning ErrSourceExhausted ends the source, events
// returned along with it are still delivered.
type GenerateFunc func(ctx Context, max int) ([]ContentEvent, error)

type SourceOption func(s *BoundedSource)

// WithBatchSize sets how many events a single Next call may ask for.
func WithBatchSize(size int) SourceOption {
	return func(s *BoundedSource) {
		if size > 0 {
			s.batch = size
		}
	}
}

// BoundedSource is an EntranceProcessor enforcing a generation limit over a GenerateFunc.
type BoundedSource struct {
	limit    int64
	counter  *Limit
	generate GenerateFunc
	batch    int
	finished bool
}

func NewBoundedSource(limit int64, fn GenerateFunc, opts ...SourceOption) (*BoundedSource, error) {
	if fn == nil {
		return nil, errors.Wrap(ErrInvalidArgument, `generate function cannot be nil`)
	}

	counter, err := NewLimit(limit)
	if err != nil {
		return nil, err
	}

	s := &BoundedSource{
		limit:    limit,
		counter:  counter,
		generate: fn,
		batch:    1,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

func (s *BoundedSource) Capabilities() Capability { return CanGenerate }

func (s *BoundedSource) NewInstance() Node {
	return &BoundedSource{
		limit:    s.limit,
		counter:  &Limit{remaining: s.limit},
		generate: s.generate,
		batch:    s.batch,
	}
}

// Limit returns the configured generation limit.
func (s *BoundedSource) Limit() int64 {
	return s.limit
}

// Remaining returns how many events the source may still generate, or Unlimited.
func (s *BoundedSource) Remaining() int64 {
	return s.counter.Remaining()
}

func (s *BoundedSource) Exhausted() bool {
	return s.finished || s.counter.Exhausted()
}

func (s *BoundedSource) Next(ctx Context) ([]ContentEvent, error) {
	if s.Exhausted() {
		return nil, nil
	}

	max := s.batch
	if remaining := s.counter.Remaining(); remaining != Unlimited && int64(max) > remaining {
		max = int(remaining)
	}

	events, err := s.generate(ctx, max)
	if err != nil {
		if !errors.Is(err, ErrSourceExhausted) {
			return nil, err
		}
		s.finished = true
	}

	if len(events) > max {
		events = events[:max]
	}

	granted := s.counter.Take(len(events))

	return events[:granted], nil
}
