package async

import (
	"errors"
	"fmt"
	"sync"

	"github.com/tryfix/log"
)

// Fn is a function that can be run asynchronously.
type Fn func(*Opts) error

// Opts contains options for running a function.
type Opts struct {
	// stopping is closed when the group is shutting down.
	stopping <-chan struct{}

	// readyOnce ensures that Ready() can only be called once.
	readyOnce sync.Once

	// ready is closed when the function is ready(eg: partitions assigned, state opened) to run.
	ready chan struct{}
}

// Stopping returns a channel that can be used to signal that the function should stop.
func (opts *Opts) Stopping() <-chan struct{} {
	return opts.stopping
}

// Ready signals that the function is ready to run.
func (opts *Opts) Ready() {
	opts.readyOnce.Do(func() {
		close(opts.ready)
	})
}

var ErrInterrupted = errors.New(`interrupted`)

// RunGroup runs a group of functions asynchronously. The first failing function stops the group,
// functions returning nil leave the rest running.
type RunGroup struct {
	fns          []Fn
	wg           *sync.WaitGroup
	readyWg      *sync.WaitGroup
	stopping     chan struct{}
	stopped      chan struct{}
	shutDownOnce *sync.Once
	mu           sync.Mutex
	err          error
	logger       log.Logger
	shuttingDown bool
}

func NewRunGroup(logger log.Logger, fns ...Fn) *RunGroup {
	tg := &RunGroup{
		wg:           new(sync.WaitGroup),
		readyWg:      new(sync.WaitGroup),
		stopping:     make(chan struct{}),
		stopped:      make(chan struct{}),
		shutDownOnce: &sync.Once{},
		logger:       logger.NewLog(log.Prefixed(`RunGroup`)),
	}

	for _, fn := range fns {
		tg.Add(fn)
	}

	return tg
}

// Add adds a function to the RunGroup. The function will be executed when the Run method is called.
// Note: RunGroup does not support dynamically adding functions to a running group.
func (tg *RunGroup) Add(fn Fn) *RunGroup {
	tg.readyWg.Add(1)
	tg.fns = append(tg.fns, fn)
	return tg
}

// Run blocks until every function has returned and reports the first error.
func (tg *RunGroup) Run() error {
	tg.wg.Add(len(tg.fns))

	for _, fn := range tg.fns {
		opts := &Opts{
			stopping: tg.stopping,
			ready:    make(chan struct{}),
		}

		go func() {
			<-opts.ready
			tg.readyWg.Done()
		}()

		go func(fn Fn, opts *Opts) {
			defer tg.wg.Done()
			// When function returns make it ready anyway
			defer opts.Ready()

			if err := tg.call(fn, opts); err != nil {
				tg.mu.Lock()
				if tg.err == nil {
					tg.err = err
				}
				tg.mu.Unlock()
				tg.notifyShutDown(err)
			}
		}(fn, opts)
	}

	tg.wg.Wait()

	close(tg.stopped)

	tg.mu.Lock()
	defer tg.mu.Unlock()

	return tg.err
}

func (tg *RunGroup) call(fn Fn, opts *Opts) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = recoveredErr(tg.logger, r)
		}
	}()

	return fn(opts)
}

func (tg *RunGroup) notifyShutDown(err error) {
	tg.shutDownOnce.Do(func() {
		if err != nil {
			tg.logger.Error(fmt.Sprintf(`Processes stopping due to %s`, err))
		} else {
			tg.logger.Info(`Interrupted, Processes stopping...`)
		}

		tg.mu.Lock()
		tg.shuttingDown = true
		tg.mu.Unlock()
		close(tg.stopping)
	})
}

// Ready blocks until every function signalled readiness (or returned).
func (tg *RunGroup) Ready() error {
	tg.readyWg.Wait()

	tg.mu.Lock()
	defer tg.mu.Unlock()

	if tg.err == nil && tg.shuttingDown {
		return ErrInterrupted
	}
	return tg.err
}

// Stop signals every function to stop and waits until Run returns.
func (tg *RunGroup) Stop() {
	tg.notifyShutDown(nil)
	defer tg.logger.Info(`Processes stopped`)

	<-tg.stopped
}

// Stopping is closed once the group starts shutting down.
func (tg *RunGroup) Stopping() <-chan struct{} {
	return tg.stopping
}
