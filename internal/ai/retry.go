// retry.go - Retry logic and error handling for tutor API calls

package ai

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	"google.golang.org/api/googleapi"

	"github.com/bosocmputer/doubtsolver/internal/common"
)

// RetryConfig defines retry behavior for tutor API calls
type RetryConfig struct {
	MaxAttempts     int
	InitialDelay    time.Duration
	MaxDelay        time.Duration
	BackoffMultiple float64
}

// DefaultRetryConfig provides sensible defaults for retry behavior
var DefaultRetryConfig = RetryConfig{
	MaxAttempts:     3,
	InitialDelay:    1 * time.Second,
	MaxDelay:        8 * time.Second,
	BackoffMultiple: 2.0,
}

// Error categories
const (
	CategoryBadRequest      = "bad_request"
	CategoryUnauthorized    = "unauthorized"
	CategoryForbidden       = "forbidden"
	CategoryNotFound        = "not_found"
	CategoryPayloadTooLarge = "payload_too_large"
	CategoryRateLimit       = "rate_limit"
	CategoryServerError     = "server_error"
	CategoryTimeout         = "timeout"
	CategoryCanceled        = "canceled"
	CategoryQuotaExceeded   = "quota_exceeded"
	CategoryNetwork         = "network_error"
	CategoryUnknown         = "unknown"
)

// TutorError represents a categorized provider API error
type TutorError struct {
	OriginalError error
	Category      string
	StatusCode    int
	Message       string
	Retryable     bool
}

func (e *TutorError) Error() string {
	return fmt.Sprintf("[%s] %s (status: %d, retryable: %v)", e.Category, e.Message, e.StatusCode, e.Retryable)
}

func (e *TutorError) Unwrap() error {
	return e.OriginalError
}

// HTTPStatusError is returned by providers that speak plain HTTP
type HTTPStatusError struct {
	StatusCode int
	Message    string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("http %d: %s", e.StatusCode, e.Message)
}

// categorizeError analyzes error and determines retry strategy
func categorizeError(err error) *TutorError {
	if err == nil {
		return nil
	}

	var tutorErr *TutorError
	if errors.As(err, &tutorErr) {
		return tutorErr
	}

	tutorErr = &TutorError{
		OriginalError: err,
		Category:      CategoryUnknown,
		Message:       err.Error(),
	}

	// Provider API errors carry a status code
	var apiErr *googleapi.Error
	var httpErr *HTTPStatusError
	switch {
	case errors.As(err, &apiErr):
		categorizeStatus(tutorErr, apiErr.Code, apiErr.Message)
		return tutorErr
	case errors.As(err, &httpErr):
		categorizeStatus(tutorErr, httpErr.StatusCode, httpErr.Message)
		return tutorErr
	}

	// Check for context errors
	if errors.Is(err, context.DeadlineExceeded) {
		tutorErr.Category = CategoryTimeout
		tutorErr.Message = "Request timeout - processing took too long"
		tutorErr.Retryable = true
		return tutorErr
	}

	if errors.Is(err, context.Canceled) {
		tutorErr.Category = CategoryCanceled
		tutorErr.Message = "Request was canceled"
		return tutorErr
	}

	// Check error message for common patterns
	errMsg := strings.ToLower(err.Error())

	if strings.Contains(errMsg, "quota") || strings.Contains(errMsg, "limit") {
		tutorErr.Category = CategoryQuotaExceeded
		tutorErr.Message = "API quota exceeded - daily or monthly limit reached"
		return tutorErr
	}

	if strings.Contains(errMsg, "timeout") || strings.Contains(errMsg, "deadline") {
		tutorErr.Category = CategoryTimeout
		tutorErr.Message = "Request timeout"
		tutorErr.Retryable = true
		return tutorErr
	}

	if strings.Contains(errMsg, "connection") || strings.Contains(errMsg, "network") {
		tutorErr.Category = CategoryNetwork
		tutorErr.Message = "Network connection error"
		tutorErr.Retryable = true
		return tutorErr
	}

	return tutorErr
}

func categorizeStatus(e *TutorError, code int, message string) {
	e.StatusCode = code

	switch code {
	case http.StatusBadRequest:
		e.Category = CategoryBadRequest
		e.Message = "Invalid request format or parameters"

	case http.StatusUnauthorized:
		e.Category = CategoryUnauthorized
		e.Message = "Invalid API key or authentication failed"

	case http.StatusForbidden:
		e.Category = CategoryForbidden
		e.Message = "API key lacks required permissions"

	case http.StatusNotFound:
		e.Category = CategoryNotFound
		e.Message = "Model not found or invalid endpoint"

	case http.StatusRequestEntityTooLarge:
		e.Category = CategoryPayloadTooLarge
		e.Message = "Request size exceeds limit (reduce image size)"

	case http.StatusTooManyRequests:
		e.Category = CategoryRateLimit
		e.Message = "Rate limit exceeded - too many requests"
		e.Retryable = true

	case http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		e.Category = CategoryServerError
		e.Message = fmt.Sprintf("Tutor server error (%d)", code)
		e.Retryable = true

	default:
		e.Category = "unknown_api_error"
		e.Message = fmt.Sprintf("API error: %s", message)
		e.Retryable = code >= 500
	}
}

// callWithRetry executes a provider call with retry logic
func callWithRetry[T any](
	ctx context.Context,
	reqCtx *common.RequestContext,
	config RetryConfig,
	call func(context.Context) (T, error),
) (T, error) {
	var zero T
	var lastErr *TutorError
	l := reqCtx.Logger()

	for attempt := 1; attempt <= config.MaxAttempts; attempt++ {
		if attempt > 1 {
			l.Info().Int("attempt", attempt).Int("max_attempts", config.MaxAttempts).Msg("retrying tutor call")
		}

		resp, err := call(ctx)
		if err == nil {
			if attempt > 1 {
				l.Info().Int("attempt", attempt).Msg("✅ retry succeeded")
			}
			return resp, nil
		}

		lastErr = categorizeError(err)
		l.Error().Err(lastErr).Int("attempt", attempt).Msg("tutor call failed")

		// If error is not retryable, fail immediately
		if !lastErr.Retryable {
			return zero, lastErr
		}

		if attempt >= config.MaxAttempts {
			break
		}

		delay := calculateBackoff(attempt, config)

		// Rate limits get a longer pause
		if lastErr.Category == CategoryRateLimit {
			delay *= 2
			l.Warn().Dur("delay", delay).Msg("rate limit hit, backing off")
		} else {
			l.Info().Dur("delay", delay).Msg("waiting before retry")
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, fmt.Errorf("context canceled during retry wait: %w", ctx.Err())
		case <-timer.C:
		}
	}

	return zero, fmt.Errorf("tutor call failed after %d attempts: %w", config.MaxAttempts, lastErr)
}

// calculateBackoff computes exponential backoff delay
func calculateBackoff(attempt int, config RetryConfig) time.Duration {
	delay := float64(config.InitialDelay) * math.Pow(config.BackoffMultiple, float64(attempt-1))

	if delay > float64(config.MaxDelay) {
		delay = float64(config.MaxDelay)
	}

	return time.Duration(delay)
}

// UserMessage converts an error to a message suitable for API clients
func UserMessage(err error) string {
	var tutorErr *TutorError
	if !errors.As(err, &tutorErr) {
		return "An unexpected error occurred. Please try again or contact support."
	}

	switch tutorErr.Category {
	case CategoryRateLimit:
		return "Too many requests. Please wait a moment and try again."
	case CategoryQuotaExceeded:
		return "Daily API quota exceeded. Please contact support or try again tomorrow."
	case CategoryUnauthorized, CategoryForbidden:
		return "API authentication failed. Please contact system administrator."
	case CategoryPayloadTooLarge:
		return "Image size is too large. Please use a smaller image."
	case CategoryTimeout:
		return "Request took too long. Please try again with a clearer image."
	case CategoryServerError:
		return "The tutor service is temporarily unavailable. Please try again in a few minutes."
	case CategoryNetwork:
		return "Network connection issue. Please try again."
	default:
		return "An unexpected error occurred. Please try again or contact support."
	}
}
