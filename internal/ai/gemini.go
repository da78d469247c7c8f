// gemini.go - Gemini tutor provider

package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/bosocmputer/doubtsolver/internal/common"
	"github.com/bosocmputer/doubtsolver/internal/ratelimit"
)

// ErrEmptyResponse is returned when the model produced no text
var ErrEmptyResponse = errors.New("empty response from tutor model")

// GeminiTutor implements Tutor using Google's Gemini API
type GeminiTutor struct {
	apiKey          string
	modelName       string
	maxOutputTokens int32
	limiter         *ratelimit.RateLimiter
	retry           RetryConfig
}

// NewGeminiTutor creates a Gemini tutor. limiter may be nil.
func NewGeminiTutor(apiKey, modelName string, maxOutputTokens int, limiter *ratelimit.RateLimiter) *GeminiTutor {
	return &GeminiTutor{
		apiKey:          apiKey,
		modelName:       modelName,
		maxOutputTokens: int32(maxOutputTokens),
		limiter:         limiter,
		retry:           DefaultRetryConfig,
	}
}

// Name returns "gemini"
func (g *GeminiTutor) Name() string {
	return "gemini"
}

// SolveText answers a text question
func (g *GeminiTutor) SolveText(ctx context.Context, question, subject string, reqCtx *common.RequestContext) (*Answer, *common.TokenUsage, error) {
	return g.generate(ctx, reqCtx, genai.Text(GetTextPrompt(question, subject)))
}

// SolveImage answers a question about an image
func (g *GeminiTutor) SolveImage(ctx context.Context, question, subject string, image []byte, mimeType string, reqCtx *common.RequestContext) (*Answer, *common.TokenUsage, error) {
	return g.generate(ctx, reqCtx,
		genai.Text(GetImagePrompt(question, subject)),
		genai.Blob{
			MIMEType: mimeType,
			Data:     image,
		},
	)
}

func (g *GeminiTutor) generate(ctx context.Context, reqCtx *common.RequestContext, parts ...genai.Part) (*Answer, *common.TokenUsage, error) {
	l := reqCtx.Logger()

	client, err := genai.NewClient(ctx, option.WithAPIKey(g.apiKey))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	defer client.Close()

	model := client.GenerativeModel(g.modelName)
	model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(SystemMessage)}}
	if g.maxOutputTokens > 0 {
		model.SetMaxOutputTokens(g.maxOutputTokens)
	}

	l.Debug().Str("model", g.modelName).Int32("max_output_tokens", g.maxOutputTokens).Msg("📖 calling Gemini")

	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			return nil, nil, fmt.Errorf("waiting for rate limit: %w", err)
		}
	}

	resp, err := callWithRetry(ctx, reqCtx, g.retry, func(ctx context.Context) (*genai.GenerateContentResponse, error) {
		return model.GenerateContent(ctx, parts...)
	})
	if err != nil {
		return nil, nil, err
	}

	text := responseText(resp)
	if text == "" {
		return nil, nil, ErrEmptyResponse
	}

	if len(resp.Candidates) > 0 && resp.Candidates[0].FinishReason == genai.FinishReasonMaxTokens {
		l.Warn().Msg("⚠️ tutor response was truncated (FinishReason: MAX_TOKENS)")
	}

	var usage *common.TokenUsage
	if resp.UsageMetadata != nil {
		tokens := common.CalculateTokenCost(
			int(resp.UsageMetadata.PromptTokenCount),
			int(resp.UsageMetadata.CandidatesTokenCount),
		)
		usage = &tokens
	}

	return newAnswer(text), usage, nil
}

// responseText concatenates the text parts of the first candidate
func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}

	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			b.WriteString(string(text))
		}
	}
	return strings.TrimSpace(b.String())
}
