package extractor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
)

const (
	chatCompletionTimeout = 90 * time.Second
	maxResponseBytes      = 1 << 20 // 1MB, model replies are far smaller
)

// ChatProvider sends a chat completion request and returns the raw model
// output. Implementations must be safe for concurrent use.
type ChatProvider interface {
	Name() string
	Complete(ctx context.Context, model, system, user string) (string, error)
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// OpenAIProvider talks to an OpenAI-compatible chat completions endpoint.
// A circuit breaker guards the upstream so a flapping vendor fails fast
// instead of burning the request timeout on every attempt.
type OpenAIProvider struct {
	name       string
	baseURL    string
	apiKey     string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker[string]
	logger     *slog.Logger
}

func NewOpenAIProvider(name, baseURL, apiKey string, logger *slog.Logger) *OpenAIProvider {
	p := &OpenAIProvider{
		name:    name,
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: chatCompletionTimeout,
		},
		logger: logger,
	}

	p.breaker = gobreaker.NewCircuitBreaker[string](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Provider circuit breaker state change",
				"provider", name,
				"from", from.String(),
				"to", to.String())
		},
	})

	return p
}

func (p *OpenAIProvider) Name() string {
	return p.name
}

func (p *OpenAIProvider) Complete(ctx context.Context, model, system, user string) (string, error) {
	return p.breaker.Execute(func() (string, error) {
		return p.complete(ctx, model, system, user)
	})
}

func (p *OpenAIProvider) complete(ctx context.Context, model, system, user string) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model: model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("request to %s failed: %w", p.name, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", fmt.Errorf("failed to read response from %s: %w", p.name, err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%s returned status %d", p.name, resp.StatusCode)
	}

	var parsed chatResponse
	if err := json.Unmarshal(payload, &parsed); err != nil {
		return "", fmt.Errorf("failed to decode response from %s: %w", p.name, err)
	}
	if parsed.Error != nil {
		return "", fmt.Errorf("%s returned error: %s", p.name, parsed.Error.Message)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("%s returned no choices", p.name)
	}

	content := parsed.Choices[0].Message.Content
	if content == "" {
		return "", fmt.Errorf("%s returned empty content", p.name)
	}

	return content, nil
}
