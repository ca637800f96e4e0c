package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/careworks-oss/regulation-core/internal/core/domain"
	"github.com/careworks-oss/regulation-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.TaskQueue = (*MockTaskQueue)(nil)

// MockTaskQueue is an in-memory TaskQueue for testing workers and handlers
type MockTaskQueue struct {
	mu      sync.Mutex
	tasks   map[string]*domain.Task
	pending []string
}

// NewMockTaskQueue creates a new MockTaskQueue
func NewMockTaskQueue() *MockTaskQueue {
	return &MockTaskQueue{
		tasks: make(map[string]*domain.Task),
	}
}

func (q *MockTaskQueue) Enqueue(ctx context.Context, task *domain.Task) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.tasks[task.ID] = task
	q.pending = append(q.pending, task.ID)
	return nil
}

func (q *MockTaskQueue) DequeueWithTimeout(ctx context.Context, timeout int) (*domain.Task, error) {
	deadline := time.Now().Add(time.Duration(timeout) * time.Second)
	for {
		q.mu.Lock()
		for i, id := range q.pending {
			task := q.tasks[id]
			if task != nil && task.IsReady() {
				q.pending = append(q.pending[:i], q.pending[i+1:]...)
				task.MarkProcessing()
				q.mu.Unlock()
				return task, nil
			}
		}
		q.mu.Unlock()

		if time.Now().After(deadline) {
			return nil, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func (q *MockTaskQueue) Ack(ctx context.Context, taskID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if task, ok := q.tasks[taskID]; ok {
		task.MarkCompleted()
	}
	return nil
}

func (q *MockTaskQueue) Nack(ctx context.Context, taskID string, reason string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	task, ok := q.tasks[taskID]
	if !ok {
		return domain.ErrNotFound
	}
	if task.CanRetry() {
		task.Retry(reason)
		q.pending = append(q.pending, task.ID)
	} else {
		task.MarkFailed(reason)
	}
	return nil
}

func (q *MockTaskQueue) GetTask(ctx context.Context, taskID string) (*domain.Task, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	task, ok := q.tasks[taskID]
	if !ok {
		return nil, nil
	}
	return task, nil
}

func (q *MockTaskQueue) Stats(ctx context.Context) (*driven.QueueStats, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	stats := &driven.QueueStats{}
	for _, task := range q.tasks {
		switch task.Status {
		case domain.TaskStatusPending:
			stats.PendingCount++
		case domain.TaskStatusProcessing:
			stats.ProcessingCount++
		case domain.TaskStatusCompleted:
			stats.CompletedCount++
		case domain.TaskStatusFailed:
			stats.FailedCount++
		}
	}
	return stats, nil
}

func (q *MockTaskQueue) Ping(ctx context.Context) error {
	return nil
}

func (q *MockTaskQueue) Close() error {
	return nil
}
