package local

import (
	"context"
	"fmt"
	"sync"

	"github.com/dursunkoc/incubator-samoa/engine"
	"github.com/dursunkoc/incubator-samoa/pkg/async"
	"github.com/dursunkoc/incubator-samoa/pkg/errors"
	"github.com/dursunkoc/incubator-samoa/topology"
	"github.com/tryfix/log"
)

// Engine runs a whole topology inside the current process, one goroutine per processor instance.
type Engine struct {
	config *Config
	logger log.Logger
	mu     sync.Mutex
	cancel context.CancelFunc
}

func NewEngine(config *Config) (*Engine, error) {
	if err := config.validate(); err != nil {
		return nil, errors.Wrap(err, `invalid config`)
	}

	return &Engine{
		config: config,
		logger: config.Logger.NewLog(log.Prefixed(`LocalEngine`)),
	}, nil
}

// Run blocks until every instance terminated, an instance failed, ctx is done or Stop is called.
// The report is returned in every case.
func (e *Engine) Run(ctx context.Context, t *topology.Topology) (*engine.Report, error) {
	if t == nil {
		return nil, errors.Wrap(topology.ErrInvalidArgument, `topology cannot be nil`)
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	e.mu.Lock()
	if e.cancel != nil {
		e.mu.Unlock()
		return nil, errors.Wrap(topology.ErrIllegalState, `engine is already running`)
	}
	e.cancel = cancel
	e.mu.Unlock()

	defer func() {
		e.mu.Lock()
		e.cancel = nil
		e.mu.Unlock()
	}()

	tr := newTransport(t, e.config.InboxSize)
	executor := engine.NewExecutor(t, tr, e.config.Config, engine.Addresses(t))

	group := async.NewRunGroup(e.logger)
	for _, addr := range engine.Addresses(t) {
		addr := addr
		info, _ := t.Processor(addr.Processor)
		if info.Entrance {
			group.Add(func(opts *async.Opts) error {
				opts.Ready()
				return executor.RunEntrance(runCtx, addr)
			})
			continue
		}

		m := tr.mailboxes[addr]
		group.Add(func(opts *async.Opts) error {
			opts.Ready()
			go m.forward(runCtx)
			defer func() {
				executor.Discard(addr, m.terminate())
			}()
			return executor.RunProcessor(runCtx, addr, m.events)
		})
	}

	go func() {
		select {
		case <-group.Stopping():
			cancel()
		case <-runCtx.Done():
		}
	}()

	if e.config.Http.Enabled {
		stop, err := serve(e.config.Http.Host, newInspector(executor, e.logger), e.logger)
		if err != nil {
			return nil, err
		}
		defer stop()
	}

	e.logger.Info(fmt.Sprintf(`topology %s started with %d instances`, t.Name(), len(engine.Addresses(t))))

	err := group.Run()
	report := executor.Report()
	if err != nil {
		e.logger.Error(fmt.Sprintf(`topology %s failed due to %s`, t.Name(), err))
		return report, err
	}

	if !report.Terminated() && ctx.Err() != nil {
		return report, ctx.Err()
	}

	e.logger.Info(fmt.Sprintf(`topology %s finished`, t.Name()))
	e.logger.Debug(fmt.Sprintf("run report\n%s", report))

	return report, nil
}

// Stop interrupts a running topology. Run returns once every instance stopped.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.cancel != nil {
		e.cancel()
	}
}
