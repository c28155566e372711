package queue

import (
	"context"
	"fmt"
	"log"
	"runtime/debug"
	"sync"
)

// Job is one unit of pipeline work. VideoID identifies the video the
// scheduler compensates for when the body fails.
type Job struct {
	VideoID string
	Name    string
	Run     func(ctx context.Context) error
}

// Queue is a FIFO job queue drained by exactly one worker goroutine, so at
// most one job of its category runs at any instant. Jobs queued but not yet
// started are lost when the process stops.
type Queue struct {
	name    string
	jobs    chan Job
	onError func(videoID string, err error)
	wg      sync.WaitGroup
	once    sync.Once
}

// New creates a queue. onError is invoked once for every job whose body
// returns an error or panics; it performs the compensating action and there
// is no automatic retry.
func New(name string, buffer int, onError func(videoID string, err error)) *Queue {
	if buffer <= 0 {
		buffer = 100
	}
	return &Queue{
		name:    name,
		jobs:    make(chan Job, buffer),
		onError: onError,
	}
}

// Start launches the single worker.
func (q *Queue) Start() {
	q.wg.Add(1)
	go q.worker()
	log.Printf("Queue %s: worker started", q.name)
}

// Enqueue submits a job and returns immediately; the body executes when the
// worker is free.
func (q *Queue) Enqueue(job Job) {
	q.jobs <- job
	log.Printf("Queue %s: job %s enqueued (video: %s)", q.name, job.Name, job.VideoID)
}

// Stop closes the queue and waits for the in-flight job to finish. Enqueue
// must not be called afterwards.
func (q *Queue) Stop() {
	q.once.Do(func() { close(q.jobs) })
	q.wg.Wait()
	log.Printf("Queue %s: worker stopped", q.name)
}

func (q *Queue) worker() {
	defer q.wg.Done()

	for job := range q.jobs {
		if err := q.runJob(job); err != nil {
			log.Printf("Queue %s: job %s failed (video: %s): %v", q.name, job.Name, job.VideoID, err)
			if q.onError != nil {
				q.onError(job.VideoID, err)
			}
			continue
		}
		log.Printf("Queue %s: job %s completed (video: %s)", q.name, job.Name, job.VideoID)
	}
}

// runJob executes one job body, converting a panic into an error so the
// worker survives.
func (q *Queue) runJob(job Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Queue %s: PANIC in job %s: %v\n%s", q.name, job.Name, r, string(debug.Stack()))
			err = fmt.Errorf("job panic: %v", r)
		}
	}()

	return job.Run(context.Background())
}
