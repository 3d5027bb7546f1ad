package storage

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Janitor deletes orphaned images in the background. Callers hand off URLs
// with Enqueue and never wait for the deletes.
type Janitor struct {
	manager *Manager
	logger  *zap.Logger
	timeout time.Duration

	jobs   chan []string
	wg     sync.WaitGroup
	mu     sync.RWMutex
	closed bool
}

func NewJanitor(manager *Manager, logger *zap.Logger, queueSize int, timeout time.Duration) *Janitor {
	if queueSize <= 0 {
		queueSize = 64
	}
	if timeout <= 0 {
		timeout = time.Minute
	}
	j := &Janitor{
		manager: manager,
		logger:  logger,
		timeout: timeout,
		jobs:    make(chan []string, queueSize),
	}
	j.wg.Add(1)
	go j.run()
	return j
}

func (j *Janitor) run() {
	defer j.wg.Done()
	for urls := range j.jobs {
		ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
		j.manager.DeleteMany(ctx, urls)
		cancel()
		j.logger.Debug("image cleanup finished", zap.Int("count", len(urls)))
	}
}

// Enqueue schedules urls for deletion. A full queue or a closed janitor drops
// the job with a warning.
func (j *Janitor) Enqueue(urls []string) {
	if len(urls) == 0 {
		return
	}
	job := append([]string(nil), urls...)

	j.mu.RLock()
	defer j.mu.RUnlock()
	if j.closed {
		j.logger.Warn("image cleanup dropped: janitor closed", zap.Strings("urls", job))
		return
	}
	select {
	case j.jobs <- job:
	default:
		j.logger.Warn("image cleanup dropped: queue full", zap.Strings("urls", job))
	}
}

// Close stops accepting jobs and waits for queued ones to finish.
func (j *Janitor) Close() {
	j.mu.Lock()
	if !j.closed {
		j.closed = true
		close(j.jobs)
	}
	j.mu.Unlock()
	j.wg.Wait()
}
