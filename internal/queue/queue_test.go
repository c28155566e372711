package queue

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestQueueRunsJobsInSubmissionOrder(t *testing.T) {
	q := New("test", 10, nil)

	var mu sync.Mutex
	var order []int

	for i := 0; i < 5; i++ {
		i := i
		q.Enqueue(Job{
			VideoID: "video",
			Name:    "job",
			Run: func(ctx context.Context) error {
				mu.Lock()
				order = append(order, i)
				mu.Unlock()
				return nil
			},
		})
	}

	q.Start()
	q.Stop()

	if len(order) != 5 {
		t.Fatalf("expected 5 jobs to run, got %d", len(order))
	}
	for i, got := range order {
		if got != i {
			t.Fatalf("jobs ran out of order: %v", order)
		}
	}
}

func TestQueueRunsOneJobAtATime(t *testing.T) {
	q := New("test", 10, nil)

	var running, maxRunning atomic.Int32
	for i := 0; i < 4; i++ {
		q.Enqueue(Job{
			VideoID: "video",
			Name:    "job",
			Run: func(ctx context.Context) error {
				now := running.Add(1)
				if max := maxRunning.Load(); now > max {
					maxRunning.Store(now)
				}
				time.Sleep(5 * time.Millisecond)
				running.Add(-1)
				return nil
			},
		})
	}

	q.Start()
	q.Stop()

	if maxRunning.Load() != 1 {
		t.Errorf("expected at most 1 concurrent job, observed %d", maxRunning.Load())
	}
}

func TestQueueCompensatesOnError(t *testing.T) {
	var failedVideo string
	var failedErr error
	q := New("test", 10, func(videoID string, err error) {
		failedVideo = videoID
		failedErr = err
	})

	wantErr := errors.New("download blew up")
	q.Enqueue(Job{
		VideoID: "video-1",
		Name:    "acquire",
		Run:     func(ctx context.Context) error { return wantErr },
	})

	q.Start()
	q.Stop()

	if failedVideo != "video-1" {
		t.Errorf("expected compensation for video-1, got %q", failedVideo)
	}
	if !errors.Is(failedErr, wantErr) {
		t.Errorf("expected original error, got %v", failedErr)
	}
}

func TestQueueCompensatesOnPanic(t *testing.T) {
	var failedVideo string
	q := New("test", 10, func(videoID string, err error) {
		failedVideo = videoID
	})

	q.Enqueue(Job{
		VideoID: "video-2",
		Name:    "acquire",
		Run:     func(ctx context.Context) error { panic("boom") },
	})
	// The worker must survive the panic and keep draining.
	var ranAfterPanic atomic.Bool
	q.Enqueue(Job{
		VideoID: "video-3",
		Name:    "acquire",
		Run: func(ctx context.Context) error {
			ranAfterPanic.Store(true)
			return nil
		},
	})

	q.Start()
	q.Stop()

	if failedVideo != "video-2" {
		t.Errorf("expected compensation for video-2, got %q", failedVideo)
	}
	if !ranAfterPanic.Load() {
		t.Error("expected the queue to keep processing after a panic")
	}
}
