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

// LibreTranslate calls a self-hosted or public LibreTranslate server.
type LibreTranslate struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewLibreTranslate(baseURL, apiKey string) (*LibreTranslate, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, fmt.Errorf("libretranslate base url is required")
	}
	return &LibreTranslate{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}, nil
}

func (l *LibreTranslate) Name() string { return "libretranslate" }
func (l *LibreTranslate) Kind() Kind   { return KindLibreTranslate }

type libreTranslateResponse struct {
	TranslatedText string `json:"translatedText"`
	Error          string `json:"error,omitempty"`
}

func (l *LibreTranslate) Translate(ctx context.Context, req Request) (string, error) {
	source := strings.ToLower(req.SourceLang)
	if source == "" {
		source = "auto"
	}
	// LibreTranslate knows plain "pt", not the regional tag
	target := strings.SplitN(strings.ToLower(req.TargetLang), "-", 2)[0]

	payload := map[string]any{
		"q":      req.Text,
		"source": source,
		"target": target,
		"format": "text",
	}
	if l.apiKey != "" {
		payload["api_key"] = l.apiKey
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal libretranslate request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, l.baseURL+"/translate", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create libretranslate request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := l.httpClient.Do(httpReq)
	if err != nil {
		if os.IsTimeout(err) || errors.Is(err, context.DeadlineExceeded) {
			return "", fmt.Errorf("libretranslate: %w", ErrTimeout)
		}
		return "", fmt.Errorf("libretranslate: %w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read libretranslate response: %w", err)
	}

	var out libreTranslateResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return "", fmt.Errorf("parse libretranslate response: %w", ErrInvalidResponse)
	}
	if out.Error != "" {
		if resp.StatusCode == http.StatusTooManyRequests {
			return "", fmt.Errorf("libretranslate: %s: %w", out.Error, ErrQuota)
		}
		return "", fmt.Errorf("libretranslate: %s: %w", out.Error, ErrInvalidResponse)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if resp.StatusCode >= 500 {
			return "", fmt.Errorf("libretranslate status %d: %w", resp.StatusCode, ErrUnavailable)
		}
		return "", fmt.Errorf("libretranslate status %d: %w", resp.StatusCode, ErrInvalidResponse)
	}
	if strings.TrimSpace(out.TranslatedText) == "" {
		return "", fmt.Errorf("libretranslate: empty translation: %w", ErrInvalidResponse)
	}
	return strings.TrimSpace(out.TranslatedText), nil
}
