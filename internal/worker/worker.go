package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

var ErrPoolClosed = errors.New("worker pool is shut down")

// Task is a function that represents a background job
type Task func(ctx context.Context) error

// WorkerPool runs submitted tasks on a fixed number of workers. A failing
// task is logged and counted, it does not stop the others.
type WorkerPool struct {
	taskQueue chan Task
	group     *errgroup.Group
	ctx       context.Context
	log       zerolog.Logger

	closeOnce sync.Once
	isClosing atomic.Bool
	failed    atomic.Int64
	done      atomic.Int64
}

// NewWorkerPool starts size workers. Cancelling ctx stops the workers after
// their current task.
func NewWorkerPool(ctx context.Context, size int, log zerolog.Logger) *WorkerPool {
	if size < 1 {
		size = 1
	}
	group, groupCtx := errgroup.WithContext(ctx)
	wp := &WorkerPool{
		taskQueue: make(chan Task, size*2),
		group:     group,
		ctx:       groupCtx,
		log:       log,
	}

	for range size {
		group.Go(wp.startWorker)
	}

	return wp
}

func (wp *WorkerPool) startWorker() error {
	for {
		select {
		case <-wp.ctx.Done():
			return wp.ctx.Err()
		case task, ok := <-wp.taskQueue:
			if !ok {
				return wp.ctx.Err()
			}
			if err := task(wp.ctx); err != nil {
				wp.failed.Add(1)
				wp.log.Error().Err(err).Msg("Worker task failed")
			}
			wp.done.Add(1)
		}
	}
}

// Submit queues t, waiting for room when every worker is busy.
func (wp *WorkerPool) Submit(ctx context.Context, t Task) error {
	if wp.isClosing.Load() {
		return ErrPoolClosed
	}
	select {
	case wp.taskQueue <- t:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-wp.ctx.Done():
		return wp.ctx.Err()
	}
}

// Shutdown stops accepting tasks and waits for the queued ones to finish.
// It reports a context error when the pool was cancelled. Submit must not
// be called concurrently with Shutdown.
func (wp *WorkerPool) Shutdown() error {
	wp.closeOnce.Do(func() {
		wp.isClosing.Store(true)
		close(wp.taskQueue)
	})
	return wp.group.Wait()
}

// Failed counts the tasks that returned an error so far.
func (wp *WorkerPool) Failed() int64 {
	return wp.failed.Load()
}

// Done counts the tasks that ran so far, failed or not.
func (wp *WorkerPool) Done() int64 {
	return wp.done.Load()
}
