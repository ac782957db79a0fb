package worker

import (
	"context"
	"errors"
	"runtime"
	"sync"

	"github.com/rs/zerolog"

	"video-generation-api/internal/infra/metrics"
)

// Task is one unit of generation work run on a pool worker.
type Task func(ctx context.Context) error

var ErrQueueFull = errors.New("worker queue full")

// Pool fans submitted tasks out over a fixed set of workers. The queue is
// bounded: Submit fails fast instead of blocking the submission path when
// every worker is busy and the backlog is full.
type Pool struct {
	wg    sync.WaitGroup
	tasks chan Task
	quit  chan struct{}
	n     int
	log   *zerolog.Logger
}

func NewPool(workers int, log *zerolog.Logger) *Pool {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Pool{
		tasks: make(chan Task, workers*4),
		quit:  make(chan struct{}),
		n:     workers,
		log:   log,
	}
}

func (p *Pool) Start(ctx context.Context) {
	for i := 0; i < p.n; i++ {
		p.wg.Add(1)
		go p.run(ctx, i)
	}
}

func (p *Pool) run(ctx context.Context, id int) {
	defer p.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case <-p.quit:
			return
		case task := <-p.tasks:
			if task == nil {
				continue
			}
			metrics.IncWorkerBusy()
			err := task(ctx)
			metrics.DecWorkerBusy()
			if err != nil {
				metrics.IncWorkerTaskError()
				p.log.Error().Err(err).Int("worker", id).Msg("task error")
			}
		}
	}
}

// Stop drains nothing: queued tasks that no worker picked up before the quit
// signal are abandoned.
func (p *Pool) Stop() {
	close(p.quit)
	p.wg.Wait()
}

func (p *Pool) Submit(task Task) error {
	if task == nil {
		return errors.New("nil task")
	}
	select {
	case p.tasks <- task:
		return nil
	default:
		return ErrQueueFull
	}
}
