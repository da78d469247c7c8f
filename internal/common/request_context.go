// request_context.go - Request tracking and logging system

package common

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/bosocmputer/doubtsolver/configs"
)

// RequestContext tracks a doubt through OCR and tutoring with timing and costs
type RequestContext struct {
	RequestID        string
	UserID           string
	StartTime        time.Time
	Steps            []StepLog
	TotalTokens      TokenUsage
	CurrentStep      string
	CurrentStepStart time.Time

	log zerolog.Logger
}

// StepLog represents a single processing step
type StepLog struct {
	Name      string      `json:"name"`
	StartTime time.Time   `json:"start_time"`
	Duration  int64       `json:"duration_ms"`
	Status    string      `json:"status"` // "success" or "failed"
	Tokens    *TokenUsage `json:"tokens,omitempty"`
	Error     string      `json:"error,omitempty"`
}

// TokenUsage tracks API token consumption
type TokenUsage struct {
	InputTokens  int     `json:"input_tokens"`
	OutputTokens int     `json:"output_tokens"`
	TotalTokens  int     `json:"total_tokens"`
	CostUSD      float64 `json:"cost_usd"`
}

// Step statuses
const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

// NewRequestContext creates a new request tracking context
func NewRequestContext(userID string) *RequestContext {
	reqID := uuid.New().String()
	l := log.Logger.With().Str("request_id", reqID).Str("user_id", userID).Logger()

	l.Info().Msg("🚀 request started")

	return &RequestContext{
		RequestID: reqID,
		UserID:    userID,
		StartTime: time.Now(),
		Steps:     []StepLog{},
		log:       l,
	}
}

// Logger returns the request-scoped logger
func (rc *RequestContext) Logger() *zerolog.Logger {
	return &rc.log
}

// StartStep begins tracking a new processing step
func (rc *RequestContext) StartStep(stepName string) {
	rc.CurrentStep = stepName
	rc.CurrentStepStart = time.Now()

	rc.log.Debug().Str("step", stepName).Msg("┌── step started")
}

// EndStep completes the current step and records timing
func (rc *RequestContext) EndStep(status string, tokens *TokenUsage, err error) {
	duration := time.Since(rc.CurrentStepStart).Milliseconds()

	stepLog := StepLog{
		Name:      rc.CurrentStep,
		StartTime: rc.CurrentStepStart,
		Duration:  duration,
		Status:    status,
		Tokens:    tokens,
	}

	if err != nil {
		stepLog.Error = err.Error()
		rc.log.Error().Err(err).
			Str("step", rc.CurrentStep).
			Float64("seconds", float64(duration)/1000).
			Msg("❌ step failed")
	} else {
		event := rc.log.Info().
			Str("step", rc.CurrentStep).
			Str("status", status).
			Float64("seconds", float64(duration)/1000)

		if tokens != nil {
			rc.TotalTokens.InputTokens += tokens.InputTokens
			rc.TotalTokens.OutputTokens += tokens.OutputTokens
			rc.TotalTokens.TotalTokens += tokens.TotalTokens
			rc.TotalTokens.CostUSD += tokens.CostUSD

			event = event.
				Int("input_tokens", tokens.InputTokens).
				Int("output_tokens", tokens.OutputTokens).
				Float64("cost_usd", tokens.CostUSD)
		}

		event.Msg("└── ✅ step done")
	}

	rc.Steps = append(rc.Steps, stepLog)
	rc.CurrentStep = ""
}

// CalculateTokenCost computes the USD cost of a tutor call from token counts
func CalculateTokenCost(inputTokens, outputTokens int) TokenUsage {
	totalTokens := inputTokens + outputTokens

	inputCost := float64(inputTokens) * configs.GEMINI_INPUT_PRICE_PER_MILLION / 1_000_000
	outputCost := float64(outputTokens) * configs.GEMINI_OUTPUT_PRICE_PER_MILLION / 1_000_000

	return TokenUsage{
		InputTokens:  inputTokens,
		OutputTokens: outputTokens,
		TotalTokens:  totalTokens,
		CostUSD:      inputCost + outputCost,
	}
}

// GetSummary returns a final summary of the entire request
func (rc *RequestContext) GetSummary() map[string]interface{} {
	totalDuration := time.Since(rc.StartTime).Milliseconds()

	stepBreakdown := make(map[string]int64)
	for _, step := range rc.Steps {
		stepBreakdown[step.Name] = step.Duration
	}

	summary := map[string]interface{}{
		"request_id":         rc.RequestID,
		"user_id":            rc.UserID,
		"total_duration_ms":  totalDuration,
		"total_duration_sec": float64(totalDuration) / 1000,
		"step_breakdown":     stepBreakdown,
		"total_steps":        len(rc.Steps),
		"token_usage": map[string]interface{}{
			"input_tokens":  rc.TotalTokens.InputTokens,
			"output_tokens": rc.TotalTokens.OutputTokens,
			"total_tokens":  rc.TotalTokens.TotalTokens,
			"cost_usd":      fmt.Sprintf("$%.4f", rc.TotalTokens.CostUSD),
		},
	}

	rc.log.Info().
		Float64("seconds", float64(totalDuration)/1000).
		Int("steps", len(rc.Steps)).
		Str("tokens", fmt.Sprintf("%s in + %s out = %s",
			formatNumber(rc.TotalTokens.InputTokens),
			formatNumber(rc.TotalTokens.OutputTokens),
			formatNumber(rc.TotalTokens.TotalTokens))).
		Float64("cost_usd", rc.TotalTokens.CostUSD).
		Msg("🎯 request finished")

	return summary
}

// formatNumber adds comma separators to numbers
func formatNumber(n int) string {
	if n < 1000 {
		return fmt.Sprintf("%d", n)
	}
	if n < 1000000 {
		return fmt.Sprintf("%d,%03d", n/1000, n%1000)
	}
	return fmt.Sprintf("%d,%03d,%03d", n/1000000, (n%1000000)/1000, n%1000)
}
