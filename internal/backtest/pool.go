package backtest

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

// ErrQueueFull is returned by Submit when the run queue is saturated.
var ErrQueueFull = errors.New("backtest queue is full")

type runJob struct {
	backtestID string
	symbols    []string
}

// Pool executes submitted runs on a bounded set of workers. Each run is
// independent and owns its own portfolio.
type Pool struct {
	runner *Runner
	jobs   chan runJob
	log    *slog.Logger

	wg     sync.WaitGroup
	cancel context.CancelFunc
}

// NewPool creates a pool with the given queue capacity.
func NewPool(runner *Runner, queueSize int, log *slog.Logger) *Pool {
	return &Pool{
		runner: runner,
		jobs:   make(chan runJob, queueSize),
		log:    log,
		cancel: func() {},
	}
}

// Start launches the workers. They run until ctx is cancelled or Stop is
// called.
func (p *Pool) Start(ctx context.Context, workers int) {
	ctx, p.cancel = context.WithCancel(ctx)
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.worker(ctx)
	}
}

// Submit queues a run. Returns ErrQueueFull when the queue is saturated.
func (p *Pool) Submit(backtestID string, symbols []string) error {
	select {
	case p.jobs <- runJob{backtestID: backtestID, symbols: symbols}:
		return nil
	default:
		return ErrQueueFull
	}
}

// Stop cancels in-flight runs and waits for the workers to exit.
func (p *Pool) Stop() {
	p.cancel()
	p.wg.Wait()
}

func (p *Pool) worker(ctx context.Context) {
	defer p.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case job := <-p.jobs:
			// Run marks the backtest failed on error; nothing to do here.
			if err := p.runner.Run(ctx, job.backtestID, job.symbols); err != nil {
				p.log.Debug("run finished with error", "backtest_id", job.backtestID, "error", err)
			}
		}
	}
}
