// mistral.go - Mistral AI tutor provider

package ai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/bosocmputer/doubtsolver/internal/common"
	"github.com/bosocmputer/doubtsolver/internal/ratelimit"
)

const mistralBaseURL = "https://api.mistral.ai"

// MistralTutor implements Tutor using the Mistral chat completions API
type MistralTutor struct {
	apiKey          string
	modelName       string
	maxOutputTokens int
	baseURL         string
	client          *http.Client
	limiter         *ratelimit.RateLimiter
	retry           RetryConfig
}

// NewMistralTutor creates a new Mistral tutor. limiter may be nil.
func NewMistralTutor(apiKey, modelName string, maxOutputTokens int, timeout time.Duration, limiter *ratelimit.RateLimiter) *MistralTutor {
	return &MistralTutor{
		apiKey:          apiKey,
		modelName:       modelName,
		maxOutputTokens: maxOutputTokens,
		baseURL:         mistralBaseURL,
		client: &http.Client{
			Timeout: timeout,
		},
		limiter: limiter,
		retry:   DefaultRetryConfig,
	}
}

// Name returns "mistral"
func (m *MistralTutor) Name() string {
	return "mistral"
}

// Mistral chat completions request/response structures
type mistralContentPart struct {
	Type     string `json:"type"`                // "text" or "image_url"
	Text     string `json:"text,omitempty"`      // for type="text"
	ImageURL string `json:"image_url,omitempty"` // base64 data URL for type="image_url"
}

type mistralMessage struct {
	Role    string      `json:"role"`
	Content interface{} `json:"content"` // string or []mistralContentPart
}

type mistralChatRequest struct {
	Model     string           `json:"model"`
	Messages  []mistralMessage `json:"messages"`
	MaxTokens int              `json:"max_tokens,omitempty"`
}

type mistralChatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

type mistralErrorResponse struct {
	Message string `json:"message"`
	Error   struct {
		Message string `json:"message"`
	} `json:"error"`
}

// SolveText answers a text question
func (m *MistralTutor) SolveText(ctx context.Context, question, subject string, reqCtx *common.RequestContext) (*Answer, *common.TokenUsage, error) {
	return m.complete(ctx, reqCtx, GetTextPrompt(question, subject))
}

// SolveImage answers a question about an image
func (m *MistralTutor) SolveImage(ctx context.Context, question, subject string, image []byte, mimeType string, reqCtx *common.RequestContext) (*Answer, *common.TokenUsage, error) {
	imageURL := fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(image))
	return m.complete(ctx, reqCtx, []mistralContentPart{
		{Type: "text", Text: GetImagePrompt(question, subject)},
		{Type: "image_url", ImageURL: imageURL},
	})
}

func (m *MistralTutor) complete(ctx context.Context, reqCtx *common.RequestContext, content interface{}) (*Answer, *common.TokenUsage, error) {
	request := mistralChatRequest{
		Model: m.modelName,
		Messages: []mistralMessage{
			{Role: "system", Content: SystemMessage},
			{Role: "user", Content: content},
		},
		MaxTokens: m.maxOutputTokens,
	}

	reqCtx.Logger().Debug().Str("model", m.modelName).Msg("🔷 calling Mistral")

	if m.limiter != nil {
		if err := m.limiter.Wait(ctx); err != nil {
			return nil, nil, fmt.Errorf("waiting for rate limit: %w", err)
		}
	}

	response, err := callWithRetry(ctx, reqCtx, m.retry, func(ctx context.Context) (*mistralChatResponse, error) {
		return m.callChatAPI(ctx, request)
	})
	if err != nil {
		return nil, nil, err
	}

	if len(response.Choices) == 0 {
		return nil, nil, ErrEmptyResponse
	}
	text := strings.TrimSpace(response.Choices[0].Message.Content)
	if text == "" {
		return nil, nil, ErrEmptyResponse
	}
	if response.Choices[0].FinishReason == "length" {
		reqCtx.Logger().Warn().Msg("⚠️ tutor response was truncated (finish_reason: length)")
	}

	usage := common.CalculateTokenCost(response.Usage.PromptTokens, response.Usage.CompletionTokens)
	return newAnswer(text), &usage, nil
}

// callChatAPI makes HTTP request to Mistral chat completions API
func (m *MistralTutor) callChatAPI(ctx context.Context, request mistralChatRequest) (*mistralChatResponse, error) {
	requestBody, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.baseURL+"/v1/chat/completions", bytes.NewReader(requestBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", m.apiKey))

	resp, err := m.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		msg := string(body)
		var errorResp mistralErrorResponse
		if err := json.Unmarshal(body, &errorResp); err == nil {
			if errorResp.Error.Message != "" {
				msg = errorResp.Error.Message
			} else if errorResp.Message != "" {
				msg = errorResp.Message
			}
		}
		return nil, &HTTPStatusError{StatusCode: resp.StatusCode, Message: msg}
	}

	var response mistralChatResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("failed to parse chat response: %w", err)
	}

	return &response, nil
}
