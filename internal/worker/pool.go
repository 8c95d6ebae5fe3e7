package worker

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"
)

const (
	DefaultWorkerCount = 4
	DefaultQueueSize   = 256

	queueFullMessage = "analysis queue is full; please upload the file again later"
)

var (
	ErrQueueFull   = errors.New("task queue is full")
	ErrPoolStopped = errors.New("worker pool is stopped")
)

// Job is what the pool executes for each queued upload id.
type Job interface {
	Run(ctx context.Context, uploadID string)
	RecordFailure(ctx context.Context, uploadID, msg string)
}

type Options struct {
	WorkerCount int
	QueueSize   int
}

// Pool feeds upload ids from a bounded queue to a fixed set of workers.
type Pool struct {
	job         Job
	workerCount int
	queue       chan string

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.RWMutex
	started bool
	closed  bool

	log *zap.Logger
}

func NewPool(job Job, opts Options) *Pool {
	if opts.WorkerCount <= 0 {
		opts.WorkerCount = DefaultWorkerCount
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = DefaultQueueSize
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Pool{
		job:         job,
		workerCount: opts.WorkerCount,
		queue:       make(chan string, opts.QueueSize),
		ctx:         ctx,
		cancel:      cancel,
		log:         zap.L().Named("pool"),
	}
}

func (p *Pool) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started || p.closed {
		return
	}
	p.started = true

	for i := 0; i < p.workerCount; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
	p.log.Info("worker pool started", zap.Int("workers", p.workerCount), zap.Int("queue_size", cap(p.queue)))
}

// Enqueue never blocks. When the queue is full the upload is given a failed
// result right away so it still reaches a terminal state, and ErrQueueFull
// is returned.
func (p *Pool) Enqueue(ctx context.Context, uploadID string) error {
	p.mu.RLock()
	if p.closed {
		p.mu.RUnlock()
		return ErrPoolStopped
	}
	select {
	case p.queue <- uploadID:
		p.mu.RUnlock()
		return nil
	default:
	}
	p.mu.RUnlock()

	p.log.Warn("analysis queue full, failing upload", zap.String("upload_id", uploadID))
	p.job.RecordFailure(context.WithoutCancel(ctx), uploadID, queueFullMessage)
	return ErrQueueFull
}

// Resume queues uploads that a previous process accepted but never finished.
func (p *Pool) Resume(ctx context.Context, ids []string) int {
	queued := 0
	for _, id := range ids {
		if err := p.Enqueue(ctx, id); err != nil {
			p.log.Warn("failed to resume analysis job", zap.String("upload_id", id), zap.Error(err))
			continue
		}
		queued++
	}
	if queued > 0 {
		p.log.Info("resumed unfinished analysis jobs", zap.Int("count", queued))
	}
	return queued
}

// Stop closes the queue and waits for workers to drain it. If ctx ends
// first, in-flight jobs are cancelled and left for startup recovery.
func (p *Pool) Stop(ctx context.Context) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.queue)
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.cancel()
		p.log.Info("worker pool drained")
		return nil
	case <-ctx.Done():
		p.cancel()
		<-done
		p.log.Warn("worker pool stopped before queue drained")
		return ctx.Err()
	}
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()

	for uploadID := range p.queue {
		p.log.Debug("job started", zap.Int("worker_id", id), zap.String("upload_id", uploadID))
		p.job.Run(p.ctx, uploadID)
	}
}
