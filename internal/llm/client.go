// Package llm abstracts the external language-model call. The orchestration
// core supplies system instructions plus a conversation history and consumes
// response text; transport specifics stay behind the Client interface.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// Common errors for LLM operations.
var (
	// ErrMissingAPIKey is raised at construction, not per call.
	ErrMissingAPIKey = errors.New("API key is required")
)

// Role values for conversation messages.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one entry in a conversation history.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Client is the consumed language-model capability.
type Client interface {
	// Complete sends the system instructions and conversation to the model
	// and returns the response text. Any transport or service failure is
	// retryable from the caller's perspective.
	Complete(ctx context.Context, system string, messages []Message) (string, error)
}

// TransportError wraps a failed or timed-out external call. The executor
// retries these up to its configured budget.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string { return "llm transport: " + e.Err.Error() }
func (e *TransportError) Unwrap() error { return e.Err }

// IsRetryable reports whether err should consume a retry rather than fail
// the call outright.
func IsRetryable(err error) bool {
	var te *TransportError
	return errors.As(err, &te) || errors.Is(err, context.DeadlineExceeded)
}

// Config configures the Anthropic client.
type Config struct {
	APIKey            string
	BaseURL           string
	Model             string
	MaxTokens         int
	RequestTimeout    time.Duration
	RequestsPerSecond float64
}

// AnthropicClient implements Client against the Anthropic Messages API.
// Outbound calls are rate limited so retry storms cannot hammer the service.
type AnthropicClient struct {
	cfg        Config
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewAnthropicClient validates the configuration and returns a client. A
// missing API key is a configuration error and fails construction.
func NewAnthropicClient(cfg Config) (*AnthropicClient, error) {
	if cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.anthropic.com"
	}
	if cfg.Model == "" {
		cfg.Model = "claude-sonnet-4-5-20250929"
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 8192
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 60 * time.Second
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = 2
	}
	return &AnthropicClient{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.RequestTimeout},
		limiter:    rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1),
	}, nil
}

type messagesRequest struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	System    string    `json:"system,omitempty"`
	Messages  []Message `json:"messages"`
}

type messagesResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
}

type apiError struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// Complete implements Client.
func (c *AnthropicClient) Complete(ctx context.Context, system string, messages []Message) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", &TransportError{Err: err}
	}

	body, err := json.Marshal(messagesRequest{
		Model:     c.cfg.Model,
		MaxTokens: c.cfg.MaxTokens,
		System:    system,
		Messages:  messages,
	})
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", c.cfg.APIKey)
	req.Header.Set("Anthropic-Version", "2023-06-01")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &TransportError{Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &TransportError{Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		var ae apiError
		if json.Unmarshal(respBody, &ae) == nil && ae.Error.Message != "" {
			return "", &TransportError{Err: fmt.Errorf("API error (%d): %s", resp.StatusCode, ae.Error.Message)}
		}
		return "", &TransportError{Err: fmt.Errorf("API error (%d): %s", resp.StatusCode, string(respBody))}
	}

	var mr messagesResponse
	if err := json.Unmarshal(respBody, &mr); err != nil {
		return "", &TransportError{Err: fmt.Errorf("decoding response: %w", err)}
	}
	for _, block := range mr.Content {
		if block.Type == "text" {
			return block.Text, nil
		}
	}
	return "", &TransportError{Err: errors.New("response contained no text block")}
}
