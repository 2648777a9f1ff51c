package notify

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

const (
	defaultWorkers     = 4
	defaultTaskTimeout = 30 * time.Second
)

// Dispatcher executes queued tasks on a fixed pool of workers.
type Dispatcher struct {
	queue       Queue
	workers     int
	taskTimeout time.Duration
	logger      *slog.Logger

	startOnce sync.Once
	wg        sync.WaitGroup
	ctx       context.Context
	cancel    context.CancelFunc
}

// Option customises a Dispatcher.
type Option func(*Dispatcher)

// WithWorkers sets the number of concurrent workers.
func WithWorkers(n int) Option {
	return func(d *Dispatcher) {
		if n > 0 {
			d.workers = n
		}
	}
}

// WithTaskTimeout bounds the run time of a single task.
func WithTaskTimeout(timeout time.Duration) Option {
	return func(d *Dispatcher) {
		if timeout > 0 {
			d.taskTimeout = timeout
		}
	}
}

// WithLogger sets the logger used for dropped and failed tasks.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// NewDispatcher builds a Dispatcher over queue. Call Start to run workers.
func NewDispatcher(queue Queue, opts ...Option) *Dispatcher {
	ctx, cancel := context.WithCancel(context.Background())
	d := &Dispatcher{
		queue:       queue,
		workers:     defaultWorkers,
		taskTimeout: defaultTaskTimeout,
		logger:      slog.Default(),
		ctx:         ctx,
		cancel:      cancel,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Start launches the workers. Calling it more than once has no effect.
func (d *Dispatcher) Start() {
	d.startOnce.Do(func() {
		for i := 0; i < d.workers; i++ {
			d.wg.Add(1)
			go d.work()
		}
	})
}

// Dispatch enqueues task and returns immediately. Callers invoke it only
// after their transaction has committed.
func (d *Dispatcher) Dispatch(task Task) {
	if !d.queue.Offer(task) {
		d.logger.Warn("notification dropped", "task", task.Name)
	}
}

// Close stops accepting tasks and waits for queued ones to finish. When
// ctx expires first, running tasks are cancelled and ctx's error returned.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.queue.Close()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		d.cancel()
		return nil
	case <-ctx.Done():
		d.cancel()
		<-done
		return ctx.Err()
	}
}

func (d *Dispatcher) work() {
	defer d.wg.Done()
	for {
		task, ok := d.queue.Take(d.ctx)
		if !ok {
			return
		}
		d.run(task)
	}
}

// run executes one task, swallowing its error or panic.
func (d *Dispatcher) run(task Task) {
	ctx, cancel := context.WithTimeout(d.ctx, d.taskTimeout)
	defer cancel()

	start := time.Now()
	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("panic: %v", r)
			}
		}()
		return task.Run(ctx)
	}()
	if err != nil {
		d.logger.Error("notification task failed", "task", task.Name, "error", err, "duration", time.Since(start))
		return
	}
	d.logger.Debug("notification task done", "task", task.Name, "duration", time.Since(start))
}
