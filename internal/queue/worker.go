package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Worker runs doubt:solve tasks
type Worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
}

// NewWorker creates a worker bound to queueName
func NewWorker(redisURL, queueName string, concurrency int, solver Solver) (*Worker, error) {
	redisOpt, err := asynq.ParseRedisURI(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	server := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency:    concurrency,
		Queues:         map[string]int{queueName: 10, "default": 1},
		RetryDelayFunc: retryDelay,
		ErrorHandler: asynq.ErrorHandlerFunc(func(_ context.Context, task *asynq.Task, err error) {
			log.Error().Err(err).Str("type", task.Type()).Bytes("payload", task.Payload()).Msg("❌ Task failed")
		}),
		Logger: asynqLogger{log.With().Str("component", "asynq").Logger()},
	})

	mux := asynq.NewServeMux()
	mux.Handle(TypeSolveDoubt, NewSolveHandler(solver))

	return &Worker{server: server, mux: mux}, nil
}

// retryDelay backs off 5s, 10s, 20s ... capped at a minute
func retryDelay(n int, _ error, _ *asynq.Task) time.Duration {
	delay := time.Duration(5*(1<<uint(n))) * time.Second
	if delay > time.Minute || delay <= 0 {
		delay = time.Minute
	}
	return delay
}

// Start begins processing in the background
func (w *Worker) Start() error {
	log.Info().Msg("🧵 Starting doubt worker")
	return w.server.Start(w.mux)
}

// Shutdown waits for in-flight tasks
func (w *Worker) Shutdown() {
	w.server.Shutdown()
	log.Info().Msg("Doubt worker stopped")
}

// asynqLogger adapts zerolog to asynq.Logger
type asynqLogger struct {
	l zerolog.Logger
}

func (a asynqLogger) Debug(args ...interface{}) { a.l.Debug().Msg(fmt.Sprint(args...)) }
func (a asynqLogger) Info(args ...interface{})  { a.l.Info().Msg(fmt.Sprint(args...)) }
func (a asynqLogger) Warn(args ...interface{})  { a.l.Warn().Msg(fmt.Sprint(args...)) }
func (a asynqLogger) Error(args ...interface{}) { a.l.Error().Msg(fmt.Sprint(args...)) }
func (a asynqLogger) Fatal(args ...interface{}) { a.l.Fatal().Msg(fmt.Sprint(args...)) }
