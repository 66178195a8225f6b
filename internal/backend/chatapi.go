package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

// ChatAPI is an OpenAI-style chat-completions backend. Both GPT and
// Gemini are reached through this wire format, Gemini via its
// OpenAI-compatible endpoint.
type ChatAPI struct {
	kind       Kind
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
}

func NewChatAPI(kind Kind, baseURL, apiKey, model string) (*ChatAPI, error) {
	if kind != KindGPT && kind != KindGemini {
		return nil, fmt.Errorf("unsupported chat backend kind %q", kind)
	}
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("%s api key is required", kind)
	}
	if strings.TrimSpace(model) == "" {
		return nil, fmt.Errorf("%s model is required", kind)
	}
	return &ChatAPI{
		kind:    kind,
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		model:   model,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}, nil
}

func (c *ChatAPI) Name() string { return string(c.kind) + "/" + c.model }
func (c *ChatAPI) Kind() Kind   { return c.kind }

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    any    `json:"code"`
	} `json:"error,omitempty"`
}

func (c *ChatAPI) Translate(ctx context.Context, req Request) (string, error) {
	temperature := 0.3
	maxTokens := 0
	if v, ok := req.Prompt.Options["temperature"].(float64); ok {
		temperature = v
	}
	if v, ok := req.Prompt.Options["num_predict"].(int); ok {
		maxTokens = v
	}

	messages := make([]chatMessage, 0, 2)
	if req.Prompt.System != "" {
		messages = append(messages, chatMessage{Role: "system", Content: req.Prompt.System})
	}
	messages = append(messages, chatMessage{Role: "user", Content: req.Prompt.User})

	payload := chatCompletionRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: temperature,
		MaxTokens:   maxTokens,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal chat request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create chat request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if os.IsTimeout(err) || errors.Is(err, context.DeadlineExceeded) {
			return "", fmt.Errorf("chat completion: %w", ErrTimeout)
		}
		return "", fmt.Errorf("chat completion: %w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read chat response: %w", err)
	}

	var out chatCompletionResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return "", fmt.Errorf("parse chat response: %w", ErrInvalidResponse)
	}
	if out.Error != nil {
		switch {
		case IsQuotaError(errors.New(out.Error.Message)):
			// insufficient_quota rides on a 429 but is permanent
			return "", fmt.Errorf("%s: %s: %w", c.kind, out.Error.Message, ErrQuota)
		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
			return "", fmt.Errorf("%s: %s: %w", c.kind, out.Error.Message, ErrUnavailable)
		default:
			return "", fmt.Errorf("%s: %s: %w", c.kind, out.Error.Message, ErrInvalidResponse)
		}
	}
	switch {
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return "", fmt.Errorf("%s status %d: %w", c.kind, resp.StatusCode, ErrUnavailable)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return "", fmt.Errorf("%s status %d: %w", c.kind, resp.StatusCode, ErrInvalidResponse)
	}

	if len(out.Choices) == 0 {
		return "", fmt.Errorf("%s: empty choices: %w", c.kind, ErrInvalidResponse)
	}
	return strings.TrimSpace(out.Choices[0].Message.Content), nil
}
