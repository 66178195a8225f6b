package backend

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/MimeLyc/batch-sub-translator/internal/prompt"
	"github.com/MimeLyc/batch-sub-translator/pkg/log"
)

const (
	ollamaKeepAlive      = "30m"
	ollamaRequestTimeout = 120 * time.Second
)

// Ollama talks to a local Ollama server through its generate API.
type Ollama struct {
	baseURL    string
	model      string
	httpClient *http.Client

	pullMu sync.Mutex
}

func NewOllama(baseURL, model string) (*Ollama, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, fmt.Errorf("ollama base url is required")
	}
	if strings.TrimSpace(model) == "" {
		return nil, fmt.Errorf("ollama model is required")
	}
	return &Ollama{
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		httpClient: &http.Client{
			Timeout: ollamaRequestTimeout,
		},
	}, nil
}

func (o *Ollama) Name() string { return "ollama/" + o.model }
func (o *Ollama) Kind() Kind   { return KindOllama }

type ollamaGenerateRequest struct {
	Model     string         `json:"model"`
	Prompt    string         `json:"prompt"`
	System    string         `json:"system,omitempty"`
	Stream    bool           `json:"stream"`
	KeepAlive string         `json:"keep_alive"`
	Options   map[string]any `json:"options,omitempty"`
}

type ollamaGenerateResponse struct {
	Response string `json:"response"`
	Error    string `json:"error,omitempty"`
}

// Translate sends one generate request. A timed-out request gets a
// single immediate retry, slow first tokens are common right after
// model load.
func (o *Ollama) Translate(ctx context.Context, req Request) (string, error) {
	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		out, err := o.generate(ctx, req)
		if err == nil {
			return out, nil
		}
		lastErr = err
		if !errors.Is(err, ErrTimeout) {
			break
		}
		log.Warn("ollama request timed out, retrying once")
	}
	return "", lastErr
}

func (o *Ollama) generate(ctx context.Context, req Request) (string, error) {
	payload := ollamaGenerateRequest{
		Model:     o.model,
		Prompt:    req.Prompt.User,
		System:    req.Prompt.System,
		Stream:    false,
		KeepAlive: ollamaKeepAlive,
		Options:   req.Prompt.Options,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal generate request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create generate request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := o.httpClient.Do(httpReq)
	if err != nil {
		if os.IsTimeout(err) || errors.Is(err, context.DeadlineExceeded) {
			return "", fmt.Errorf("generate: %w", ErrTimeout)
		}
		return "", fmt.Errorf("generate: %w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read generate response: %w", err)
	}
	if resp.StatusCode == http.StatusNotFound {
		return "", fmt.Errorf("model %q: %w", o.model, ErrModelMissing)
	}
	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return "", fmt.Errorf("generate status %d: %w", resp.StatusCode, ErrUnavailable)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("generate status %d: %s: %w", resp.StatusCode, strings.TrimSpace(string(data)), ErrInvalidResponse)
	}

	var out ollamaGenerateResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return "", fmt.Errorf("parse generate response: %w", ErrInvalidResponse)
	}
	if out.Error != "" {
		return "", fmt.Errorf("generate: %s: %w", out.Error, ErrInvalidResponse)
	}
	return fixMojibake(strings.TrimSpace(out.Response)), nil
}

// HasModel checks the local tag list for the configured model.
func (o *Ollama) HasModel(ctx context.Context) (bool, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, o.baseURL+"/api/tags", nil)
	if err != nil {
		return false, err
	}
	resp, err := o.httpClient.Do(httpReq)
	if err != nil {
		return false, fmt.Errorf("list models: %w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	var tags struct {
		Models []struct {
			Name string `json:"name"`
		} `json:"models"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil {
		return false, fmt.Errorf("parse tag list: %w", ErrInvalidResponse)
	}
	for _, m := range tags.Models {
		if m.Name == o.model || strings.TrimSuffix(m.Name, ":latest") == o.model {
			return true, nil
		}
	}
	return false, nil
}

// EnsureModel pulls the model when it is missing. Only one pull runs at
// a time; concurrent callers wait for it.
func (o *Ollama) EnsureModel(ctx context.Context) error {
	o.pullMu.Lock()
	defer o.pullMu.Unlock()

	ok, err := o.HasModel(ctx)
	if err != nil {
		return err
	}
	if ok {
		return nil
	}

	log.Info("pulling model %s", o.model)
	body, _ := json.Marshal(map[string]any{"name": o.model})
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/api/pull", bytes.NewReader(body))
	if err != nil {
		return err
	}

	// pulls can take much longer than a generate call
	client := &http.Client{}
	resp, err := client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("pull model: %w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	var lastLogged time.Time
	for scanner.Scan() {
		var progress struct {
			Status    string `json:"status"`
			Completed uint64 `json:"completed"`
			Total     uint64 `json:"total"`
			Error     string `json:"error"`
		}
		if err := json.Unmarshal(scanner.Bytes(), &progress); err != nil {
			continue
		}
		if progress.Error != "" {
			return fmt.Errorf("pull model: %s: %w", progress.Error, ErrInvalidResponse)
		}
		if progress.Total > 0 && time.Since(lastLogged) > 5*time.Second {
			log.Info("pull %s: %s / %s", o.model,
				humanize.Bytes(progress.Completed), humanize.Bytes(progress.Total))
			lastLogged = time.Now()
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read pull stream: %w", err)
	}
	log.Info("model %s ready", o.model)
	return nil
}

// Warmup loads the model into memory with a one-token request so the
// first real line does not pay the load cost.
func (o *Ollama) Warmup(ctx context.Context) error {
	if err := o.EnsureModel(ctx); err != nil {
		return err
	}
	_, err := o.generate(ctx, Request{
		Prompt: prompt.LLMPrompt{
			User:    "hi",
			Options: map[string]any{"num_predict": 1},
		},
	})
	if err != nil && !errors.Is(err, ErrTimeout) {
		return err
	}
	return nil
}

// fixMojibake repairs UTF-8 that was decoded as latin-1 somewhere in
// the chain, recognizable by box-drawing runes and â sequences.
func fixMojibake(s string) string {
	if !strings.ContainsAny(s, "Ã├┬â") {
		return s
	}
	buf := make([]byte, 0, len(s))
	for _, r := range s {
		if r > 0xFF {
			return s // genuinely multibyte, leave it alone
		}
		buf = append(buf, byte(r))
	}
	return string(buf)
}
