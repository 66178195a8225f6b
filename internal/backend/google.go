package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"
)

// GoogleTranslate calls the Cloud Translation v2 REST API.
type GoogleTranslate struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewGoogleTranslate(baseURL, apiKey string) (*GoogleTranslate, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("google translate api key is required")
	}
	if baseURL == "" {
		baseURL = "https://translation.googleapis.com"
	}
	return &GoogleTranslate{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}, nil
}

func (g *GoogleTranslate) Name() string { return "google" }
func (g *GoogleTranslate) Kind() Kind   { return KindGoogle }

type googleTranslateResponse struct {
	Data struct {
		Translations []struct {
			TranslatedText string `json:"translatedText"`
		} `json:"translations"`
	} `json:"data"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (g *GoogleTranslate) Translate(ctx context.Context, req Request) (string, error) {
	payload := map[string]any{
		"q":      req.Text,
		"target": strings.ToLower(req.TargetLang),
		"format": "text",
	}
	if src := strings.ToLower(req.SourceLang); src != "" && src != "auto" {
		payload["source"] = src
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal google request: %w", err)
	}

	endpoint := g.baseURL + "/language/translate/v2?key=" + url.QueryEscape(g.apiKey)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create google request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(httpReq)
	if err != nil {
		if os.IsTimeout(err) || errors.Is(err, context.DeadlineExceeded) {
			return "", fmt.Errorf("google: %w", ErrTimeout)
		}
		return "", fmt.Errorf("google: %w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read google response: %w", err)
	}

	var out googleTranslateResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return "", fmt.Errorf("parse google response: %w", ErrInvalidResponse)
	}
	if out.Error != nil {
		switch {
		// 403 covers dailyLimitExceeded and disabled billing, both terminal
		case resp.StatusCode == http.StatusForbidden:
			return "", fmt.Errorf("google: %s: %w", out.Error.Message, ErrQuota)
		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
			return "", fmt.Errorf("google: %s: %w", out.Error.Message, ErrUnavailable)
		default:
			return "", fmt.Errorf("google: %s: %w", out.Error.Message, ErrInvalidResponse)
		}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return "", fmt.Errorf("google status %d: %w", resp.StatusCode, ErrUnavailable)
		}
		return "", fmt.Errorf("google status %d: %w", resp.StatusCode, ErrInvalidResponse)
	}
	if len(out.Data.Translations) == 0 {
		return "", fmt.Errorf("google: empty translations: %w", ErrInvalidResponse)
	}
	return strings.TrimSpace(out.Data.Translations[0].TranslatedText), nil
}
