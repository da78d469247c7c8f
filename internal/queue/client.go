package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
)

const (
	maxRetry    = 3
	taskTimeout = 5 * time.Minute
)

// Enqueuer submits doubt:solve tasks
type Enqueuer struct {
	client    *asynq.Client
	queueName string
}

// NewEnqueuer connects to Redis
func NewEnqueuer(redisURL, queueName string) (*Enqueuer, error) {
	redisOpt, err := asynq.ParseRedisURI(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	return &Enqueuer{client: asynq.NewClient(redisOpt), queueName: queueName}, nil
}

// EnqueueSolve queues solving of one doubt
func (e *Enqueuer) EnqueueSolve(ctx context.Context, doubtID, userID string) error {
	task, err := NewSolveTask(doubtID, userID)
	if err != nil {
		return err
	}
	_, err = e.client.EnqueueContext(ctx, task,
		asynq.Queue(e.queueName),
		asynq.MaxRetry(maxRetry),
		asynq.Timeout(taskTimeout),
	)
	if err != nil {
		return fmt.Errorf("failed to enqueue doubt %s: %w", doubtID, err)
	}
	return nil
}

func (e *Enqueuer) Close() error {
	return e.client.Close()
}
