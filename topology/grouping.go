package topology

import (
	"fmt"
	"hash/fnv"
	"sync/atomic"

	"github.com/dursunkoc/incubator-samoa/pkg/errors"
)

// Grouping decides which destination instances receive an event.
type Grouping int

const (
	// GroupShuffle sends each event to one instance, round-robin.
	GroupShuffle Grouping = iota
	// GroupKey sends all events of a key to the same instance.
	GroupKey
	// GroupAll broadcasts every event to every instance.
	GroupAll
)

func (g Grouping) String() string {
	switch g {
	case GroupShuffle:
		return `shuffle`
	case GroupKey:
		return `key`
	case GroupAll:
		return `all`
	}

	return fmt.Sprintf(`grouping(%d)`, int(g))
}

// Router maps an event to destination instance indexes in [0, Parallelism).
// Routers are safe for concurrent use. Returned slices must not be modified.
type Router interface {
	Route(event ContentEvent) []int
	Parallelism() int
}

// NewRouter returns the routing function of grouping over parallelism instances.
func NewRouter(grouping Grouping, parallelism int) (Router, error) {
	if parallelism < 1 {
		return nil, errors.Wrapf(ErrInvalidArgument, `parallelism must be >= 1, have %d`, parallelism)
	}

	all := make([]int, parallelism)
	for i := range all {
		all[i] = i
	}

	switch grouping {
	case GroupShuffle:
		if parallelism == 1 {
			return singleRouter{}, nil
		}
		return &shuffleRouter{targets: all}, nil
	case GroupKey:
		if parallelism == 1 {
			return singleRouter{}, nil
		}
		return &keyRouter{targets: all}, nil
	case GroupAll:
		return &allRouter{targets: all}, nil
	}

	return nil, errors.Wrapf(ErrInvalidArgument, `unknown grouping %s`, grouping)
}

// KeyPartition returns the instance index the key grouping assigns to key. A parallelism below 1
// maps every key to 0.
func KeyPartition(key string, parallelism int) int {
	if parallelism < 1 {
		return 0
	}

	hasher := fnv.New32a()
	// fnv writes never fail
	_, _ = hasher.Write([]byte(key))
	return int(hasher.Sum32() % uint32(parallelism))
}

var single = []int{0}

type singleRouter struct{}

func (singleRouter) Route(ContentEvent) []int { return single }

func (singleRouter) Parallelism() int { return 1 }

type shuffleRouter struct {
	next    uint64
	targets []int
}

func (r *shuffleRouter) Route(ContentEvent) []int {
	n := atomic.AddUint64(&r.next, 1) - 1
	i := int(n % uint64(len(r.targets)))
	return r.targets[i : i+1]
}

func (r *shuffleRouter) Parallelism() int { return len(r.targets) }

type keyRouter struct {
	targets []int
}

func (r *keyRouter) Route(event ContentEvent) []int {
	i := KeyPartition(event.Key(), len(r.targets))
	return r.targets[i : i+1]
}

func (r *keyRouter) Parallelism() int { return len(r.targets) }

type allRouter struct {
	targets []int
}

func (r *allRouter) Route(ContentEvent) []int { return r.targets }

func (r *allRouter) Parallelism() int { return len(r.targets) }
