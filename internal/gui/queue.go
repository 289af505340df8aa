package gui

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// ParagraphJob is one queued translation
type ParagraphJob struct {
	ID          int
	Index       int
	Status      JobStatus
	Error       error
	StartedAt   time.Time
	CompletedAt time.Time
}

// JobStatus represents the current state of a job
type JobStatus int

const (
	StatusQueued JobStatus = iota
	StatusProcessing
	StatusCompleted
	StatusFailed
)

func (s JobStatus) String() string {
	switch s {
	case StatusQueued:
		return "Queued"
	case StatusProcessing:
		return "Processing"
	case StatusCompleted:
		return "Completed"
	case StatusFailed:
		return "Failed"
	default:
		return "Unknown"
	}
}

// TranslateQueue works through paragraph translations one at a time so
// "translate all" does not flood the server
type TranslateQueue struct {
	jobs    chan *ParagraphJob
	results map[int]*ParagraphJob

	nextID int
	mu     sync.RWMutex

	work     func(ctx context.Context, index int) error
	onUpdate func(job ParagraphJob)

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once
}

// NewTranslateQueue creates a queue whose single worker calls work per job
func NewTranslateQueue(ctx context.Context, work func(ctx context.Context, index int) error) *TranslateQueue {
	queueCtx, cancel := context.WithCancel(ctx)

	q := &TranslateQueue{
		jobs:    make(chan *ParagraphJob, 256),
		results: make(map[int]*ParagraphJob),
		nextID:  1,
		work:    work,
		ctx:     queueCtx,
		cancel:  cancel,
	}

	q.wg.Add(1)
	go q.run()

	return q
}

// SetCallback sets the function called after every status change. It runs
// on the worker goroutine with a copy of the job.
func (q *TranslateQueue) SetCallback(onUpdate func(job ParagraphJob)) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.onUpdate = onUpdate
}

// Add queues paragraph index
func (q *TranslateQueue) Add(index int) (ParagraphJob, error) {
	q.mu.Lock()
	job := &ParagraphJob{
		ID:     q.nextID,
		Index:  index,
		Status: StatusQueued,
	}
	q.nextID++
	q.results[job.ID] = job
	q.mu.Unlock()

	select {
	case <-q.ctx.Done():
		q.finish(job, fmt.Errorf("queue is shutting down"))
		return q.snapshot(job), job.Error
	default:
	}

	q.notify(job)

	select {
	case q.jobs <- job:
		return q.snapshot(job), nil
	case <-q.ctx.Done():
		q.finish(job, fmt.Errorf("queue is shutting down"))
		return q.snapshot(job), job.Error
	}
}

// GetQueueStatus returns the current queue statistics
func (q *TranslateQueue) GetQueueStatus() (queued, processing, completed, failed int) {
	q.mu.RLock()
	defer q.mu.RUnlock()

	for _, job := range q.results {
		switch job.Status {
		case StatusQueued:
			queued++
		case StatusProcessing:
			processing++
		case StatusCompleted:
			completed++
		case StatusFailed:
			failed++
		}
	}

	return
}

// Stop cancels the running job, drops queued ones and waits for the worker
func (q *TranslateQueue) Stop() {
	q.once.Do(q.cancel)
	q.wg.Wait()
}

func (q *TranslateQueue) run() {
	defer q.wg.Done()

	for {
		select {
		case <-q.ctx.Done():
			q.drain()
			return
		case job := <-q.jobs:
			q.process(job)
		}
	}
}

func (q *TranslateQueue) process(job *ParagraphJob) {
	q.mu.Lock()
	job.Status = StatusProcessing
	job.StartedAt = time.Now()
	q.mu.Unlock()
	q.notify(job)

	q.finish(job, q.work(q.ctx, job.Index))
}

// drain fails every job still waiting in the channel
func (q *TranslateQueue) drain() {
	for {
		select {
		case job := <-q.jobs:
			q.finish(job, fmt.Errorf("queue is shutting down"))
		default:
			return
		}
	}
}

func (q *TranslateQueue) finish(job *ParagraphJob, err error) {
	q.mu.Lock()
	job.CompletedAt = time.Now()
	job.Error = err
	if err != nil {
		job.Status = StatusFailed
	} else {
		job.Status = StatusCompleted
	}
	q.mu.Unlock()
	q.notify(job)
}

func (q *TranslateQueue) notify(job *ParagraphJob) {
	q.mu.RLock()
	cb := q.onUpdate
	snap := *job
	q.mu.RUnlock()

	if cb != nil {
		cb(snap)
	}
}

func (q *TranslateQueue) snapshot(job *ParagraphJob) ParagraphJob {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return *job
}
