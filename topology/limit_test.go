package topology

import (
	"errors"
	"testing"
)

func isErr(err, target error) bool {
	return errors.Is(err, target)
}

func TestNewLimit(t *testing.T) {
	if _, err := NewLimit(-2); !isErr(err, ErrInvalidArgument) {
		t.Errorf(`expected invalid argument, have %v`, err)
	}

	for _, limit := range []int64{Unlimited, 0, 1, 1000000} {
		if _, err := NewLimit(limit); err != nil {
			t.Errorf(`limit %d: %s`, limit, err)
		}
	}
}

func TestLimit_Take(t *testing.T) {
	l, _ := NewLimit(5)

	if granted := l.Take(3); granted != 3 {
		t.Errorf(`expected 3, have %d`, granted)
	}

	if granted := l.Take(3); granted != 2 {
		t.Errorf(`expected 2, have %d`, granted)
	}

	if !l.Exhausted() {
		t.Error(`limit must be exhausted`)
	}

	for i := 0; i < 3; i++ {
		if granted := l.Take(1); granted != 0 {
			t.Errorf(`exhausted limit granted %d`, granted)
		}
	}

	if l.Remaining() != 0 {
		t.Errorf(`counter went below zero: %d`, l.Remaining())
	}
}

func TestLimit_Unlimited(t *testing.T) {
	l, _ := NewLimit(Unlimited)
	for i := 0; i < 100; i++ {
		if l.Take(10) != 10 {
			t.Fatal(`unlimited must grant everything`)
		}
	}

	if l.Remaining() != Unlimited || l.Exhausted() {
		t.Error(`unlimited counter must never decrement`)
	}
}

func TestBoundedSource_ExactLimit(t *testing.T) {
	for _, batch := range []int{1, 3, 7} {
		src, err := NewBoundedSource(5, func(_ Context, max int) ([]ContentEvent, error) {
			// ask for more than allowed to check truncation
			events := make([]ContentEvent, max+2)
			for i := range events {
				events[i] = NewContentEvent(``, i)
			}
			return events, nil
		}, WithBatchSize(batch))
		if err != nil {
			t.Fatal(err)
		}

		var total int
		for i := 0; i < 20 && !src.Exhausted(); i++ {
			events, err := src.Next(nil)
			if err != nil {
				t.Fatal(err)
			}
			total += len(events)
		}

		if total != 5 {
			t.Errorf(`batch %d: expected 5 events, have %d`, batch, total)
		}

		events, err := src.Next(nil)
		if err != nil || len(events) != 0 {
			t.Errorf(`exhausted source produced %d events, err %v`, len(events), err)
		}

		if src.Remaining() != 0 {
			t.Errorf(`expected 0 remaining, have %d`, src.Remaining())
		}
	}
}

func TestBoundedSource_ZeroLimit(t *testing.T) {
	called := false
	src, err := NewBoundedSource(0, func(Context, int) ([]ContentEvent, error) {
		called = true
		return nil, nil
	})
	if err != nil {
		t.Fatal(err)
	}

	if !src.Exhausted() {
		t.Error(`zero limit must start exhausted`)
	}

	if events, _ := src.Next(nil); len(events) != 0 || called {
		t.Error(`zero limit must never generate`)
	}
}

func TestBoundedSource_Unlimited(t *testing.T) {
	src, err := NewBoundedSource(Unlimited, func(_ Context, max int) ([]ContentEvent, error) {
		return []ContentEvent{NewContentEvent(``, nil)}, nil
	})
	if err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 1000; i++ {
		if events, _ := src.Next(nil); len(events) != 1 {
			t.Fatal(`unlimited source stopped`)
		}
	}

	if src.Exhausted() {
		t.Error(`unlimited source must never be exhausted`)
	}
}

func TestBoundedSource_FiniteGenerator(t *testing.T) {
	remaining := 2
	src, err := NewBoundedSource(10, func(_ Context, max int) ([]ContentEvent, error) {
		remaining--
		if remaining == 0 {
			return []ContentEvent{NewContentEvent(`last`, nil)}, ErrSourceExhausted
		}
		return []ContentEvent{NewContentEvent(``, nil)}, nil
	})
	if err != nil {
		t.Fatal(err)
	}

	var total int
	for !src.Exhausted() {
		events, err := src.Next(nil)
		if err != nil {
			t.Fatal(err)
		}
		total += len(events)
	}

	if total != 2 {
		t.Errorf(`expected 2 events, have %d`, total)
	}
}

func TestBoundedSource_NewInstanceResetsCounter(t *testing.T) {
	src := counterSource(t, 2)
	_, _ = src.Next(nil)
	_, _ = src.Next(nil)
	if !src.Exhausted() {
		t.Fatal(`source must be exhausted`)
	}

	fresh := src.NewInstance().(*BoundedSource)
	if fresh.Exhausted() || fresh.Remaining() != 2 {
		t.Error(`new instances start from the configured limit`)
	}
}

func TestBoundedSource_Errors(t *testing.T) {
	if _, err := NewBoundedSource(1, nil); !isErr(err, ErrInvalidArgument) {
		t.Errorf(`expected invalid argument, have %v`, err)
	}

	if _, err := NewBoundedSource(-5, func(Context, int) ([]ContentEvent, error) { return nil, nil }); !isErr(err, ErrInvalidArgument) {
		t.Errorf(`expected invalid argument, have %v`, err)
	}

	boom := errors.New(`boom`)
	src, _ := NewBoundedSource(1, func(Context, int) ([]ContentEvent, error) { return nil, boom })
	if _, err := src.Next(nil); !errors.Is(err, boom) {
		t.Errorf(`expected generator error, have %v`, err)
	}
}
