package async

import (
	"errors"
	"testing"
	"time"

	"github.com/tryfix/log"
)

func TestRunGroup_AllReturn(t *testing.T) {
	done := make(chan int, 3)
	tg := NewRunGroup(log.NewNoopLogger())
	for i := 0; i < 3; i++ {
		i := i
		tg.Add(func(opts *Opts) error {
			opts.Ready()
			done <- i
			return nil
		})
	}

	if err := tg.Run(); err != nil {
		t.Fatal(err)
	}

	if len(done) != 3 {
		t.Errorf(`expected 3 functions to finish, have %d`, len(done))
	}
}

func TestRunGroup_FirstErrorStopsGroup(t *testing.T) {
	errFail := errors.New(`fail`)
	tg := NewRunGroup(log.NewNoopLogger(),
		func(opts *Opts) error {
			<-opts.Stopping()
			return nil
		},
		func(opts *Opts) error {
			return errFail
		},
	)

	if err := tg.Run(); !errors.Is(err, errFail) {
		t.Errorf(`expected %s, have %v`, errFail, err)
	}
}

func TestRunGroup_Stop(t *testing.T) {
	tg := NewRunGroup(log.NewNoopLogger(), func(opts *Opts) error {
		opts.Ready()
		<-opts.Stopping()
		return nil
	})

	result := make(chan error, 1)
	go func() { result <- tg.Run() }()

	if err := tg.Ready(); err != nil {
		t.Fatal(err)
	}

	tg.Stop()

	select {
	case err := <-result:
		if err != nil {
			t.Error(err)
		}
	case <-time.After(time.Second):
		t.Fatal(`group did not stop`)
	}
}

func TestRunGroup_PanicBecomesError(t *testing.T) {
	tg := NewRunGroup(log.NewNoopLogger(), func(opts *Opts) error {
		panic(`boom`)
	})

	if err := tg.Run(); !errors.Is(err, ErrPanic) {
		t.Errorf(`expected panic error, have %v`, err)
	}
}
