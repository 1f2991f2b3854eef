package topology

import (
	"fmt"
	"reflect"
	"sync"
	"testing"

	"github.com/bxcodec/faker/v3"
)

func TestNewRouter_InvalidParallelism(t *testing.T) {
	for _, g := range []Grouping{GroupShuffle, GroupKey, GroupAll} {
		if _, err := NewRouter(g, 0); !isErr(err, ErrInvalidArgument) {
			t.Errorf(`%s: expected invalid argument, have %v`, g, err)
		}
	}

	if _, err := NewRouter(Grouping(42), 2); !isErr(err, ErrInvalidArgument) {
		t.Errorf(`expected invalid argument, have %v`, err)
	}
}

func TestRouter_Shuffle(t *testing.T) {
	const parallelism, events = 3, 10
	r, err := NewRouter(GroupShuffle, parallelism)
	if err != nil {
		t.Fatal(err)
	}

	counts := make([]int, parallelism)
	for i := 0; i < events; i++ {
		targets := r.Route(NewContentEvent(``, i))
		if len(targets) != 1 {
			t.Fatalf(`shuffle must pick one instance, have %v`, targets)
		}
		counts[targets[0]]++
	}

	// round-robin: each instance receives floor or ceil of events/parallelism
	for i, c := range counts {
		if c < events/parallelism || c > events/parallelism+1 {
			t.Errorf(`instance %d received %d events`, i, c)
		}
	}
}

func TestRouter_ShuffleConcurrent(t *testing.T) {
	const parallelism, producers, perProducer = 4, 8, 1000
	r, err := NewRouter(GroupShuffle, parallelism)
	if err != nil {
		t.Fatal(err)
	}

	mu := new(sync.Mutex)
	counts := make([]int, parallelism)
	wg := new(sync.WaitGroup)
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				target := r.Route(NewContentEvent(``, i))[0]
				mu.Lock()
				counts[target]++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	for i, c := range counts {
		if c != producers*perProducer/parallelism {
			t.Errorf(`instance %d received %d events`, i, c)
		}
	}
}

func TestRouter_KeyAffinity(t *testing.T) {
	const parallelism = 5
	r, err := NewRouter(GroupKey, parallelism)
	if err != nil {
		t.Fatal(err)
	}

	other, err := NewRouter(GroupKey, parallelism)
	if err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 200; i++ {
		key := faker.Word() + fmt.Sprint(i)
		first := r.Route(NewContentEvent(key, nil))
		if len(first) != 1 || first[0] < 0 || first[0] >= parallelism {
			t.Fatalf(`invalid target %v`, first)
		}

		for j := 0; j < 3; j++ {
			if again := r.Route(NewContentEvent(key, j)); again[0] != first[0] {
				t.Fatalf(`key %s moved from %d to %d`, key, first[0], again[0])
			}
		}

		if o := other.Route(NewContentEvent(key, nil)); o[0] != first[0] {
			t.Fatalf(`key %s routed differently by another router`, key)
		}

		if KeyPartition(key, parallelism) != first[0] {
			t.Fatalf(`KeyPartition disagrees for %s`, key)
		}
	}
}

func TestKeyPartition_Fnv32a(t *testing.T) {
	// fnv32a("a") = 0xe40c292c
	if KeyPartition(`a`, 7) != int(uint32(0xe40c292c)%7) {
		t.Error(`unexpected partition for key a`)
	}
}

func TestKeyPartition_NoInstances(t *testing.T) {
	for _, parallelism := range []int{0, -3} {
		if p := KeyPartition(`a`, parallelism); p != 0 {
			t.Errorf(`parallelism %d must map to 0, have %d`, parallelism, p)
		}
	}
}

func TestRouter_All(t *testing.T) {
	r, err := NewRouter(GroupAll, 4)
	if err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 3; i++ {
		if targets := r.Route(NewContentEvent(``, i)); !reflect.DeepEqual(targets, []int{0, 1, 2, 3}) {
			t.Errorf(`broadcast must reach every instance, have %v`, targets)
		}
	}
}

func TestRouter_SingleInstance(t *testing.T) {
	for _, g := range []Grouping{GroupShuffle, GroupKey, GroupAll} {
		r, err := NewRouter(g, 1)
		if err != nil {
			t.Fatal(err)
		}

		for i := 0; i < 5; i++ {
			if targets := r.Route(NewContentEvent(fmt.Sprint(i), i)); !reflect.DeepEqual(targets, []int{0}) {
				t.Errorf(`%s: expected target 0, have %v`, g, targets)
			}
		}
	}
}

func TestGrouping_String(t *testing.T) {
	if GroupShuffle.String() != `shuffle` || GroupKey.String() != `key` || GroupAll.String() != `all` {
		t.Fail()
	}
}
