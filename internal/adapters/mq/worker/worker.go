package worker

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/okian/varbox/internal/adapters/mq/queue"
	"github.com/okian/varbox/pkg/logger"
	"github.com/okian/varbox/pkg/metrics"
)

const poolShutdownTimeout = 30 * time.Second

// Processor handles one frame job.
type Processor interface {
	Process(ctx context.Context, job queue.Job) error
}

// ProcessorFunc adapts a function to Processor.
type ProcessorFunc func(ctx context.Context, job queue.Job) error

// Process implements Processor.
func (f ProcessorFunc) Process(ctx context.Context, job queue.Job) error {
	return f(ctx, job)
}

// Queue defines how workers receive jobs.
type Queue interface {
	Dequeue(ctx context.Context) <-chan queue.Job
}

// InMemoryWorker drains one queue sequentially.
type InMemoryWorker struct {
	queue     Queue
	processor Processor
	name      string

	done chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(q Queue, p Processor, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:     q,
		processor: p,
		name:      "worker",
		done:      make(chan struct{}),
		logger:    logger.Nop(),
	}

	for _, opt := range opts {
		opt(w)
	}
	w.logger = w.logger.Named(w.name)

	return w
}

// Run processes jobs until the queue is closed and drained or ctx is cancelled.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	jobs := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case job, ok := <-jobs:
			if !ok {
				return
			}
			w.handle(ctx, job)
		}
	}
}

// Done is closed once Run has returned.
func (w *InMemoryWorker) Done() <-chan struct{} {
	return w.done
}

func (w *InMemoryWorker) handle(ctx context.Context, job queue.Job) {
	if job.Done != nil {
		defer close(job.Done)
	}
	if job.IsBarrier() {
		return
	}

	start := time.Now()
	err := w.processor.Process(ctx, job)
	metrics.RecordWorkerProcessingLatency(float64(time.Since(start).Microseconds()) / 1000)
	if err != nil {
		metrics.RecordWorkerError()
		metrics.RecordErrorByComponent("worker", "process")
		w.logger.Error(ctx, "frame job failed",
			logger.String("bout_id", job.BoutID),
			logger.Int("frame", job.Frame.Index),
			logger.Error(err),
		)
	}
}

type shard struct {
	queue  *queue.InMemoryQueue
	worker *InMemoryWorker
}

// ShardedPool routes jobs to a fixed shard per bout. Each shard has its own
// queue and a single worker, so jobs of one bout never run concurrently or
// out of order while different bouts proceed in parallel.
type ShardedPool struct {
	shards   []shard
	capacity int
	logger   logger.Logger
}

// NewShardedPool creates a pool with n shards (runtime.NumCPU when n < 1).
func NewShardedPool(n int, p Processor, opts ...PoolOption) *ShardedPool {
	if n < 1 {
		n = runtime.NumCPU()
	}
	pool := &ShardedPool{
		shards:   make([]shard, n),
		capacity: 1024,
		logger:   logger.Nop(),
	}
	for _, opt := range opts {
		opt(pool)
	}

	for i := range pool.shards {
		q := queue.NewInMemoryQueue(queue.WithCapacity(pool.capacity))
		pool.shards[i] = shard{
			queue: q,
			worker: NewInMemoryWorker(q, p,
				WithName("shard-"+strconv.Itoa(i)),
				WithLogger(pool.logger),
			),
		}
	}
	metrics.UpdateWorkerCount(n)
	metrics.UpdateQueueCapacity(n * pool.capacity)

	return pool
}

// Start launches one goroutine per shard.
func (p *ShardedPool) Start(ctx context.Context) {
	for i := range p.shards {
		go p.shards[i].worker.Run(ctx)
	}
}

// ShardFor returns the shard index serving boutID.
func (p *ShardedPool) ShardFor(boutID string) int {
	return int(xxhash.Sum64String(boutID) % uint64(len(p.shards)))
}

// Submit enqueues job on its bout's shard. It returns false on backpressure
// or after shutdown.
func (p *ShardedPool) Submit(ctx context.Context, job queue.Job) bool {
	ok := p.shards[p.ShardFor(job.BoutID)].queue.Enqueue(ctx, job)
	if ok {
		p.Len(ctx)
	}
	return ok
}

// Flush waits until every job submitted so far for boutID has been processed.
func (p *ShardedPool) Flush(ctx context.Context, boutID string) error {
	done := make(chan struct{})
	if !p.Submit(ctx, queue.Job{BoutID: boutID, Done: done}) {
		return fmt.Errorf("flush %s: %w", boutID, queue.ErrFull)
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("flush %s: %w", boutID, ctx.Err())
	}
}

// Len returns the number of queued jobs across shards and publishes it as
// the queue size and utilization gauges.
func (p *ShardedPool) Len(ctx context.Context) int {
	total := 0
	for i := range p.shards {
		total += p.shards[i].queue.Len(ctx)
	}
	metrics.UpdateQueueSize(total)
	metrics.UpdateQueueUtilization(float64(total) / float64(p.Capacity()))
	return total
}

// Capacity returns the total queue capacity across shards.
func (p *ShardedPool) Capacity() int {
	return len(p.shards) * p.capacity
}

// Shards returns the shard count.
func (p *ShardedPool) Shards() int {
	return len(p.shards)
}

// Shutdown closes every shard queue and waits for workers to drain them.
func (p *ShardedPool) Shutdown(ctx context.Context) error {
	for i := range p.shards {
		if err := p.shards[i].queue.Close(); err != nil {
			p.logger.Error(ctx, "error closing shard queue", logger.Int("shard", i), logger.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	for i := range p.shards {
		select {
		case <-p.shards[i].worker.Done():
		case <-shutdownCtx.Done():
			p.logger.Warn(ctx, "shard shutdown timed out", logger.Int("shard", i))
			return fmt.Errorf("shutdown shard %d: %w", i, shutdownCtx.Err())
		}
	}
	metrics.UpdateWorkerCount(0)
	return nil
}
