package translate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	DefaultBaseURL = "https://api.openai.com/v1"
	DefaultTimeout = 120 * time.Second

	maxErrorBody = 500
)

// OpenAIConfig configures an OpenAI-compatible chat completions endpoint.
type OpenAIConfig struct {
	BaseURL string
	APIKey  string
	Model   string
	Proxy   string
	Timeout time.Duration
}

// OpenAIBackend calls POST {BaseURL}/chat/completions. It never retries.
type OpenAIBackend struct {
	endpoint string
	apiKey   string
	model    string
	client   *http.Client
}

// NewOpenAIBackend validates cfg and builds the HTTP client.
func NewOpenAIBackend(cfg OpenAIConfig) (*OpenAIBackend, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errors.New("translator API key is required")
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		return nil, errors.New("translator model is required")
	}
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		base = DefaultBaseURL
	}
	if _, err := url.Parse(base); err != nil {
		return nil, fmt.Errorf("invalid translator base URL: %w", err)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &OpenAIBackend{
		endpoint: base + "/chat/completions",
		apiKey:   apiKey,
		model:    model,
		client:   makeHTTPClient(cfg.Proxy, timeout),
	}, nil
}

func makeHTTPClient(proxyURL string, timeout time.Duration) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if proxyURL != "" {
		if parsed, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(parsed)
		}
	} else {
		transport.Proxy = http.ProxyFromEnvironment
	}
	return &http.Client{Transport: transport, Timeout: timeout}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// Complete implements Backend.
func (b *OpenAIBackend) Complete(ctx context.Context, systemPrompt, userText string) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model: b.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userText},
		},
	})
	if err != nil {
		return "", fmt.Errorf("building request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+b.apiKey)

	resp, err := b.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return "", fmt.Errorf("%w: %s", ErrRateLimited, errorMessage(respBody))
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return "", fmt.Errorf("%w: %s", ErrAuthFailed, errorMessage(respBody))
	case resp.StatusCode != http.StatusOK:
		return "", &APIError{StatusCode: resp.StatusCode, Message: errorMessage(respBody)}
	}

	return extractResponseText(respBody)
}

func extractResponseText(body []byte) (string, error) {
	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("invalid JSON response: %w", err)
	}
	if parsed.Error != nil {
		return "", &APIError{Message: parsed.Error.Message}
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("could not extract text from response: %s", truncate(string(body), maxErrorBody))
	}
	return parsed.Choices[0].Message.Content, nil
}

// errorMessage prefers the backend's error.message over the raw body.
func errorMessage(body []byte) string {
	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Error != nil && parsed.Error.Message != "" {
		return parsed.Error.Message
	}
	return truncate(strings.TrimSpace(string(body)), maxErrorBody)
}

// truncate caps s at maxLen code points.
func truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen]) + "..."
}
