// factory.go - Tutor factory for creating provider instances

package ai

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/bosocmputer/doubtsolver/configs"
	"github.com/bosocmputer/doubtsolver/internal/common"
	"github.com/bosocmputer/doubtsolver/internal/ratelimit"
)

var (
	limiterOnce  sync.Once
	tutorLimiter *ratelimit.RateLimiter
)

// sharedLimiter returns the process-wide limiter shared by all providers
func sharedLimiter() *ratelimit.RateLimiter {
	limiterOnce.Do(func() {
		tutorLimiter = ratelimit.NewRateLimiter(
			configs.TUTOR_RATE_LIMIT_TOKENS,
			time.Duration(configs.TUTOR_RATE_LIMIT_REFILL_SECONDS)*time.Second,
		)
	})
	return tutorLimiter
}

func newGemini() Tutor {
	return NewGeminiTutor(configs.GEMINI_API_KEY, configs.MODEL_NAME, configs.TUTOR_MAX_OUTPUT_TOKENS, sharedLimiter())
}

func newMistral() Tutor {
	return NewMistralTutor(configs.MISTRAL_API_KEY, configs.MISTRAL_MODEL_NAME, configs.TUTOR_MAX_OUTPUT_TOKENS,
		time.Duration(configs.TUTOR_TIMEOUT)*time.Second, sharedLimiter())
}

// CreateTutor creates a tutor based on configuration
func CreateTutor() (Tutor, error) {
	provider := configs.TUTOR_PROVIDER

	switch provider {
	case "gemini", "":
		log.Info().Str("model", configs.MODEL_NAME).Msg("🔵 Creating Gemini tutor")
		return newGemini(), nil

	case "mistral":
		log.Info().Str("model", configs.MISTRAL_MODEL_NAME).Msg("🔷 Creating Mistral tutor")
		return newMistral(), nil

	default:
		return nil, fmt.Errorf("unsupported tutor provider: %s (supported: gemini, mistral)", provider)
	}
}

// CreateTutorWithFallback creates the configured tutor and, when the other
// provider has a key, wraps both so a failed call is retried on the fallback
func CreateTutorWithFallback() (Tutor, error) {
	primary, err := CreateTutor()
	if err != nil {
		return nil, err
	}

	var fallback Tutor
	switch primary.Name() {
	case "gemini":
		if configs.MISTRAL_API_KEY != "" {
			fallback = newMistral()
		}
	case "mistral":
		if configs.GEMINI_API_KEY != "" {
			fallback = newGemini()
		}
	}

	if fallback == nil {
		return primary, nil
	}

	log.Info().Str("fallback", fallback.Name()).Msg("✅ Fallback tutor configured")
	return NewFallbackTutor(primary, fallback), nil
}

// FallbackTutor tries the primary provider first and the fallback on error
type FallbackTutor struct {
	primary  Tutor
	fallback Tutor
}

// NewFallbackTutor wraps two tutors
func NewFallbackTutor(primary, fallback Tutor) *FallbackTutor {
	return &FallbackTutor{primary: primary, fallback: fallback}
}

// Name returns the primary provider's name
func (f *FallbackTutor) Name() string {
	return f.primary.Name()
}

// SolveText implements Tutor
func (f *FallbackTutor) SolveText(ctx context.Context, question, subject string, reqCtx *common.RequestContext) (*Answer, *common.TokenUsage, error) {
	answer, usage, err := f.primary.SolveText(ctx, question, subject, reqCtx)
	if err == nil || ctx.Err() != nil {
		return answer, usage, err
	}

	reqCtx.Logger().Warn().Err(err).Str("fallback", f.fallback.Name()).Msg("primary tutor failed, using fallback")
	return f.fallback.SolveText(ctx, question, subject, reqCtx)
}

// SolveImage implements Tutor
func (f *FallbackTutor) SolveImage(ctx context.Context, question, subject string, image []byte, mimeType string, reqCtx *common.RequestContext) (*Answer, *common.TokenUsage, error) {
	answer, usage, err := f.primary.SolveImage(ctx, question, subject, image, mimeType, reqCtx)
	if err == nil || ctx.Err() != nil {
		return answer, usage, err
	}

	reqCtx.Logger().Warn().Err(err).Str("fallback", f.fallback.Name()).Msg("primary tutor failed, using fallback")
	return f.fallback.SolveImage(ctx, question, subject, image, mimeType, reqCtx)
}
