// Package queue moves doubt solving onto a Redis-backed asynq worker.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog/log"

	"github.com/bosocmputer/doubtsolver/internal/storage"
)

// TypeSolveDoubt is the asynq task type for solving a stored doubt
const TypeSolveDoubt = "doubt:solve"

// SolvePayload identifies the doubt to solve
type SolvePayload struct {
	DoubtID string `json:"doubt_id"`
	UserID  string `json:"user_id"`
}

// NewSolveTask builds a doubt:solve task
func NewSolveTask(doubtID, userID string) (*asynq.Task, error) {
	payload, err := json.Marshal(SolvePayload{DoubtID: doubtID, UserID: userID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeSolveDoubt, payload), nil
}

// Solver solves a stored doubt
type Solver interface {
	SolveByID(ctx context.Context, doubtID string) error
}

// SolveHandler processes doubt:solve tasks
type SolveHandler struct {
	solver Solver
}

func NewSolveHandler(solver Solver) *SolveHandler {
	return &SolveHandler{solver: solver}
}

// ProcessTask implements asynq.Handler. Malformed payloads and deleted
// doubts are not retried.
func (h *SolveHandler) ProcessTask(ctx context.Context, task *asynq.Task) error {
	var p SolvePayload
	if err := json.Unmarshal(task.Payload(), &p); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %v: %w", err, asynq.SkipRetry)
	}
	if p.DoubtID == "" {
		return fmt.Errorf("payload has no doubt_id: %w", asynq.SkipRetry)
	}

	logger := log.With().Str("doubt_id", p.DoubtID).Str("user_id", p.UserID).Logger()
	logger.Info().Msg("🧵 Solving queued doubt")

	if err := h.solver.SolveByID(ctx, p.DoubtID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			logger.Warn().Msg("doubt no longer exists, dropping task")
			return fmt.Errorf("doubt %s: %v: %w", p.DoubtID, err, asynq.SkipRetry)
		}
		return err
	}
	return nil
}
