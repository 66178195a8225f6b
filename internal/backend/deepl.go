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

// DeepL calls the DeepL v2 translate API. Glossary terms are enforced
// through a pre-created server-side glossary when an id is configured;
// context travels in the dedicated context field.
type DeepL struct {
	baseURL    string
	apiKey     string
	glossaryID string
	httpClient *http.Client
}

func NewDeepL(baseURL, apiKey, glossaryID string) (*DeepL, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("deepl api key is required")
	}
	if baseURL == "" {
		baseURL = "https://api-free.deepl.com"
	}
	return &DeepL{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		glossaryID: glossaryID,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}, nil
}

func (d *DeepL) Name() string { return "deepl" }
func (d *DeepL) Kind() Kind   { return KindDeepL }

type deeplTranslateRequest struct {
	Text       []string `json:"text"`
	SourceLang string   `json:"source_lang,omitempty"`
	TargetLang string   `json:"target_lang"`
	Context    string   `json:"context,omitempty"`
	GlossaryID string   `json:"glossary_id,omitempty"`
}

type deeplTranslateResponse struct {
	Translations []struct {
		Text string `json:"text"`
	} `json:"translations"`
	Message string `json:"message,omitempty"`
}

// deeplLang maps ISO codes to DeepL's own language identifiers.
func deeplLang(code string, target bool) string {
	switch strings.ToLower(code) {
	case "pt-br":
		if target {
			return "PT-BR"
		}
		return "PT"
	case "auto", "":
		return ""
	default:
		return strings.ToUpper(code)
	}
}

func (d *DeepL) Translate(ctx context.Context, req Request) (string, error) {
	payload := deeplTranslateRequest{
		Text:       []string{req.Text},
		SourceLang: deeplLang(req.SourceLang, false),
		TargetLang: deeplLang(req.TargetLang, true),
		Context:    req.Prompt.User,
		GlossaryID: d.glossaryID,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal deepl request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, d.baseURL+"/v2/translate", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create deepl request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "DeepL-Auth-Key "+d.apiKey)

	resp, err := d.httpClient.Do(httpReq)
	if err != nil {
		if os.IsTimeout(err) || errors.Is(err, context.DeadlineExceeded) {
			return "", fmt.Errorf("deepl: %w", ErrTimeout)
		}
		return "", fmt.Errorf("deepl: %w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read deepl response: %w", err)
	}
	switch {
	case resp.StatusCode == 456:
		// 456 is DeepL's own "quota exceeded" status; 429 is only rate
		// limiting and stays retryable
		return "", fmt.Errorf("deepl status %d: %w", resp.StatusCode, ErrQuota)
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return "", fmt.Errorf("deepl status %d: %w", resp.StatusCode, ErrUnavailable)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return "", fmt.Errorf("deepl status %d: %s: %w", resp.StatusCode, strings.TrimSpace(string(data)), ErrInvalidResponse)
	}

	var out deeplTranslateResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return "", fmt.Errorf("parse deepl response: %w", ErrInvalidResponse)
	}
	if len(out.Translations) == 0 {
		return "", fmt.Errorf("deepl: empty translations: %w", ErrInvalidResponse)
	}
	return strings.TrimSpace(out.Translations[0].Text), nil
}
