// Package resource bounds the memory, concurrency and IO throughput used
// while copying and serving artifact files.
package resource

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// Config holds resource limits.
type Config struct {
	// MemoryLimitBytes caps the bytes of artifacts held in memory at once.
	// If 0, usage is only tracked.
	MemoryLimitBytes int64

	// MaxWorkers is the maximum number of concurrent artifact loads.
	// If 0, defaults to 1.
	MaxWorkers int64

	// IOLimitBytesPerSec is the maximum throughput of artifact copies.
	// If 0, unlimited.
	IOLimitBytesPerSec int64
}

// Controller manages shared resource limits.
// A nil *Controller imposes no limits.
type Controller struct {
	cfg Config

	memSem  *semaphore.Weighted // nil if unlimited
	memUsed atomic.Int64

	workers *semaphore.Weighted

	ioLimiter *rate.Limiter
}

// NewController creates a new resource controller.
func NewController(cfg Config) *Controller {
	if cfg.MaxWorkers <= 0 {
		cfg.MaxWorkers = 1
	}

	c := &Controller{
		cfg:     cfg,
		workers: semaphore.NewWeighted(cfg.MaxWorkers),
	}

	if cfg.MemoryLimitBytes > 0 {
		c.memSem = semaphore.NewWeighted(cfg.MemoryLimitBytes)
	}

	if cfg.IOLimitBytesPerSec > 0 {
		c.ioLimiter = rate.NewLimiter(rate.Limit(cfg.IOLimitBytesPerSec), int(cfg.IOLimitBytesPerSec))
	}

	return c
}

// Config returns the limits the controller was created with.
func (c *Controller) Config() Config {
	if c == nil {
		return Config{}
	}
	return c.cfg
}

// AcquireMemory reserves bytes. With a hard limit it blocks until enough
// memory is released or ctx is canceled. Requests larger than the limit are
// clamped to it so a single large artifact cannot deadlock.
func (c *Controller) AcquireMemory(ctx context.Context, bytes int64) error {
	if c == nil || bytes <= 0 {
		return nil
	}

	if c.memSem != nil {
		if err := c.memSem.Acquire(ctx, c.clamp(bytes)); err != nil {
			return err
		}
	}

	c.memUsed.Add(bytes)
	return nil
}

// TryAcquireMemory attempts to reserve memory without blocking.
func (c *Controller) TryAcquireMemory(bytes int64) bool {
	if c == nil || bytes <= 0 {
		return true
	}

	if c.memSem != nil && !c.memSem.TryAcquire(c.clamp(bytes)) {
		return false
	}

	c.memUsed.Add(bytes)
	return true
}

// ReleaseMemory releases reserved memory.
func (c *Controller) ReleaseMemory(bytes int64) {
	if c == nil || bytes <= 0 {
		return
	}

	if c.memSem != nil {
		c.memSem.Release(c.clamp(bytes))
	}
	c.memUsed.Add(-bytes)
}

func (c *Controller) clamp(bytes int64) int64 {
	return min(bytes, c.cfg.MemoryLimitBytes)
}

// MemoryUsage returns the current memory usage in bytes.
func (c *Controller) MemoryUsage() int64 {
	if c == nil {
		return 0
	}
	return c.memUsed.Load()
}

// AcquireWorker reserves a worker slot, blocking while all slots are busy.
func (c *Controller) AcquireWorker(ctx context.Context) error {
	if c == nil {
		return nil
	}
	return c.workers.Acquire(ctx, 1)
}

// TryAcquireWorker reserves a worker slot without blocking.
func (c *Controller) TryAcquireWorker() bool {
	if c == nil {
		return true
	}
	return c.workers.TryAcquire(1)
}

// ReleaseWorker releases a worker slot.
func (c *Controller) ReleaseWorker() {
	if c == nil {
		return
	}
	c.workers.Release(1)
}

// AcquireIO waits until the IO limit allows the specified number of bytes.
// n must not exceed IOBurst.
func (c *Controller) AcquireIO(ctx context.Context, n int) error {
	if c == nil || c.ioLimiter == nil || n <= 0 {
		return nil
	}
	return c.ioLimiter.WaitN(ctx, n)
}

// IOBurst returns the largest single AcquireIO request, or 0 when IO is
// unlimited.
func (c *Controller) IOBurst() int {
	if c == nil || c.ioLimiter == nil {
		return 0
	}
	return c.ioLimiter.Burst()
}
