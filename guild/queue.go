package guild

import (
	"sync"

	"go.uber.org/zap"
)

// Queue is the single-writer asynchronous persistence queue. All durable
// writes and the sync publications that follow them run on one worker
// goroutine, strictly FIFO, so writes from this process are never reordered
// relative to each other. FIFO order is not preserved across processes;
// convergence is last-write-wins at the store level.
type Queue struct {
	ch       chan func()
	wg       sync.WaitGroup
	stopOnce sync.Once
	logger   *zap.Logger
}

// NewQueue creates a Queue with the given capacity and starts its worker.
func NewQueue(size int, logger *zap.Logger) *Queue {
	if size <= 0 {
		size = 1024
	}
	q := &Queue{
		ch:     make(chan func(), size),
		logger: logger,
	}
	q.wg.Add(1)
	go q.worker()
	return q
}

func (q *Queue) worker() {
	defer q.wg.Done()
	for job := range q.ch {
		q.run(job)
	}
}

func (q *Queue) run(job func()) {
	defer func() {
		if r := recover(); r != nil {
			q.logger.Error("persistence job panicked", zap.Any("recover", r))
		}
	}()
	job()
}

// Submit enqueues a job. It blocks when the queue is full rather than
// dropping or reordering; the cache mutation has already happened and the
// write must eventually reach the store.
func (q *Queue) Submit(job func()) {
	q.ch <- job
}

// Stop drains remaining jobs and stops the worker. Jobs submitted after
// Stop panic; shutdown order is: stop accepting operations, then Stop.
func (q *Queue) Stop() {
	q.stopOnce.Do(func() {
		close(q.ch)
	})
	q.wg.Wait()
}
