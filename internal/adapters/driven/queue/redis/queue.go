package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/careworks-oss/regulation-core/internal/core/domain"
	"github.com/careworks-oss/regulation-core/internal/core/ports/driven"
)

const (
	// Key names
	pendingList    = "regcore:tasks:pending"
	scheduledTasks = "regcore:tasks:scheduled"
	taskKeyPrefix  = "regcore:task:"

	// TTL for task records, for safety
	taskTTL = 24 * time.Hour
)

// Verify interface compliance
var _ driven.TaskQueue = (*Queue)(nil)

// Queue implements TaskQueue using a Redis list for ready tasks and a
// sorted set for tasks scheduled in the future (retry backoff). Full task
// records are stored as JSON under per-task keys.
type Queue struct {
	client *redis.Client
}

// NewQueue creates a new Redis-backed task queue.
func NewQueue(client *redis.Client) (*Queue, error) {
	if client == nil {
		return nil, errors.New("redis client is required")
	}
	return &Queue{client: client}, nil
}

// Enqueue adds a task to the queue for processing.
func (q *Queue) Enqueue(ctx context.Context, task *domain.Task) error {
	if task == nil {
		return errors.New("task is required")
	}

	taskData, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("failed to marshal task: %w", err)
	}

	pipe := q.client.Pipeline()
	pipe.Set(ctx, taskKeyPrefix+task.ID, taskData, taskTTL)

	if task.ScheduledFor.After(time.Now()) {
		pipe.ZAdd(ctx, scheduledTasks, redis.Z{
			Score:  float64(task.ScheduledFor.Unix()),
			Member: task.ID,
		})
	} else {
		pipe.LPush(ctx, pendingList, task.ID)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to enqueue task: %w", err)
	}
	return nil
}

// DequeueWithTimeout retrieves the next available task, waiting up to
// timeout seconds. Returns nil, nil if nothing became available.
func (q *Queue) DequeueWithTimeout(ctx context.Context, timeout int) (*domain.Task, error) {
	// Promote due scheduled tasks first, best effort
	_ = q.promoteScheduledTasks(ctx)

	blockDuration := time.Duration(timeout) * time.Second
	result, err := q.client.BRPop(ctx, blockDuration, pendingList).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to pop from pending list: %w", err)
	}
	if len(result) < 2 {
		return nil, nil
	}

	taskID := result[1]
	task, err := q.GetTask(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to get task data: %w", err)
	}
	if task == nil {
		// Task record expired, skip
		return nil, nil
	}

	task.MarkProcessing()
	if err := q.saveTask(ctx, task); err != nil {
		return nil, err
	}
	return task, nil
}

// Ack acknowledges successful completion of a task.
func (q *Queue) Ack(ctx context.Context, taskID string) error {
	task, err := q.GetTask(ctx, taskID)
	if err != nil {
		return err
	}
	if task == nil {
		return errors.New("task not found")
	}

	task.MarkCompleted()
	return q.saveTask(ctx, task)
}

// Nack indicates task processing failed. Retriable tasks go back to the
// scheduled set with backoff, exhausted ones are marked failed.
func (q *Queue) Nack(ctx context.Context, taskID string, reason string) error {
	task, err := q.GetTask(ctx, taskID)
	if err != nil {
		return err
	}
	if task == nil {
		return errors.New("task not found")
	}

	pipe := q.client.Pipeline()

	if task.CanRetry() {
		task.Retry(reason)
		taskData, _ := json.Marshal(task)
		pipe.Set(ctx, taskKeyPrefix+taskID, taskData, taskTTL)
		pipe.ZAdd(ctx, scheduledTasks, redis.Z{
			Score:  float64(task.ScheduledFor.Unix()),
			Member: task.ID,
		})
	} else {
		task.MarkFailed(reason)
		taskData, _ := json.Marshal(task)
		pipe.Set(ctx, taskKeyPrefix+taskID, taskData, taskTTL)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to nack task: %w", err)
	}
	return nil
}

// GetTask retrieves a task by ID. Returns nil, nil if not found.
func (q *Queue) GetTask(ctx context.Context, taskID string) (*domain.Task, error) {
	data, err := q.client.Get(ctx, taskKeyPrefix+taskID).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get task: %w", err)
	}

	var task domain.Task
	if err := json.Unmarshal([]byte(data), &task); err != nil {
		return nil, fmt.Errorf("failed to unmarshal task: %w", err)
	}
	return &task, nil
}

// Stats returns queue statistics. Completed and failed counts require a
// key scan, so this is not meant for hot paths.
func (q *Queue) Stats(ctx context.Context) (*driven.QueueStats, error) {
	stats := &driven.QueueStats{}

	pending, err := q.client.LLen(ctx, pendingList).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("failed to get pending count: %w", err)
	}
	stats.PendingCount = pending

	scheduled, err := q.client.ZCard(ctx, scheduledTasks).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("failed to get scheduled count: %w", err)
	}
	stats.PendingCount += scheduled

	var cursor uint64
	for {
		keys, newCursor, err := q.client.Scan(ctx, cursor, taskKeyPrefix+"*", 100).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to scan tasks: %w", err)
		}

		for _, key := range keys {
			data, err := q.client.Get(ctx, key).Result()
			if err != nil {
				continue
			}
			var task domain.Task
			if json.Unmarshal([]byte(data), &task) != nil {
				continue
			}
			switch task.Status {
			case domain.TaskStatusProcessing:
				stats.ProcessingCount++
			case domain.TaskStatusCompleted:
				stats.CompletedCount++
			case domain.TaskStatusFailed:
				stats.FailedCount++
			}
		}

		cursor = newCursor
		if cursor == 0 {
			break
		}
	}

	return stats, nil
}

// Ping checks if the queue backend is healthy.
func (q *Queue) Ping(ctx context.Context) error {
	return q.client.Ping(ctx).Err()
}

// Close cleans up resources.
func (q *Queue) Close() error {
	// Redis client is shared, don't close it here
	return nil
}

func (q *Queue) saveTask(ctx context.Context, task *domain.Task) error {
	taskData, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("failed to marshal task: %w", err)
	}
	if err := q.client.Set(ctx, taskKeyPrefix+task.ID, taskData, taskTTL).Err(); err != nil {
		return fmt.Errorf("failed to save task: %w", err)
	}
	return nil
}

// promoteScheduledTasks moves due scheduled tasks to the pending list.
func (q *Queue) promoteScheduledTasks(ctx context.Context) error {
	now := time.Now().Unix()

	taskIDs, err := q.client.ZRangeByScore(ctx, scheduledTasks, &redis.ZRangeBy{
		Min: "-inf",
		Max: fmt.Sprintf("%d", now),
	}).Result()
	if err != nil {
		return err
	}
	if len(taskIDs) == 0 {
		return nil
	}

	pipe := q.client.Pipeline()
	for _, taskID := range taskIDs {
		pipe.ZRem(ctx, scheduledTasks, taskID)
		pipe.LPush(ctx, pendingList, taskID)
	}
	_, err = pipe.Exec(ctx)
	return err
}
