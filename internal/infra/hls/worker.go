package hls

import (
	"context"
	"log/slog"
	"sync"
)

type job struct {
	resourceID string
	sourcePath string
}

// WorkerPool runs packaging jobs off the request path. Enqueue never blocks a
// handler: a full queue is reported to the caller instead.
type WorkerPool struct {
	packager *Packager
	jobs     chan job
	logger   *slog.Logger
	wg       sync.WaitGroup
	cancel   context.CancelFunc
	once     sync.Once
}

func NewWorkerPool(packager *Packager, workers, queueSize int, logger *slog.Logger) *WorkerPool {
	if workers <= 0 {
		workers = 1
	}
	if queueSize <= 0 {
		queueSize = 16
	}
	if logger == nil {
		logger = slog.Default()
	}
	pool := &WorkerPool{
		packager: packager,
		jobs:     make(chan job, queueSize),
		logger:   logger,
	}
	ctx, cancel := context.WithCancel(context.Background())
	pool.cancel = cancel
	for i := 0; i < workers; i++ {
		pool.wg.Add(1)
		go pool.run(ctx)
	}
	return pool
}

func (p *WorkerPool) Enqueue(resourceID, sourcePath string) bool {
	select {
	case p.jobs <- job{resourceID: resourceID, sourcePath: sourcePath}:
		return true
	default:
		return false
	}
}

func (p *WorkerPool) run(ctx context.Context) {
	defer p.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case j := <-p.jobs:
			if _, err := p.packager.Prepare(ctx, j.resourceID, j.sourcePath); err != nil {
				p.logger.Error("packaging failed", "resource_id", j.resourceID, "error", err)
			}
		}
	}
}

// Shutdown stops the workers. Jobs still queued are dropped; packaging is
// idempotent and callers can re-enqueue after restart.
func (p *WorkerPool) Shutdown() {
	p.once.Do(func() {
		p.cancel()
		p.wg.Wait()
	})
}
