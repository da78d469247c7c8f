// interface.go - Tutor interface for supporting multiple AI providers

package ai

import (
	"context"
	"time"

	"github.com/bosocmputer/doubtsolver/internal/common"
)

// Answer is a tutor's solution to a doubt
type Answer struct {
	Solution    string    `json:"solution"`
	Steps       []string  `json:"steps"`
	GeneratedAt time.Time `json:"generated_at"`
}

// Tutor defines the interface that all LLM providers must implement
// This allows us to support multiple AI providers (Gemini, Mistral, etc.) with the same interface
type Tutor interface {
	// SolveText answers a plain text question
	SolveText(ctx context.Context, question, subject string, reqCtx *common.RequestContext) (*Answer, *common.TokenUsage, error)

	// SolveImage answers a question about an image
	// image: encoded image bytes, mimeType: e.g. "image/png"
	SolveImage(ctx context.Context, question, subject string, image []byte, mimeType string, reqCtx *common.RequestContext) (*Answer, *common.TokenUsage, error)

	// Name returns the name of the provider (e.g., "gemini", "mistral")
	Name() string
}

// newAnswer builds an Answer from the raw model output
func newAnswer(text string) *Answer {
	return &Answer{
		Solution:    text,
		Steps:       ExtractSteps(text),
		GeneratedAt: time.Now().UTC(),
	}
}
