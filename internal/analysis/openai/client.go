package openai

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

	"productlogik/internal/analysis"
)

const (
	Name = "openai"

	defaultBaseURL     = "https://api.openai.com/v1"
	defaultModel       = "gpt-4o-mini"
	defaultHTTPTimeout = 120 * time.Second
	maxErrorBody       = 4096
)

type Config struct {
	APIKey     string
	Model      string
	BaseURL    string
	HTTPClient *http.Client
}

// Client calls the chat completions API in JSON mode and implements
// analysis.Provider with a single model.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	model      string
}

var _ analysis.Provider = (*Client)(nil)

func New(cfg Config) *Client {
	c := &Client{
		httpClient: cfg.HTTPClient,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     strings.TrimSpace(cfg.APIKey),
		model:      strings.TrimSpace(cfg.Model),
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: defaultHTTPTimeout}
	}
	if c.baseURL == "" {
		c.baseURL = defaultBaseURL
	}
	if c.model == "" {
		c.model = defaultModel
	}
	return c
}

func (c *Client) Name() string     { return Name }
func (c *Client) Models() []string { return []string{c.model} }
func (c *Client) Available() bool  { return c.apiKey != "" }

type ChatRequest struct {
	Model          string          `json:"model"`
	Messages       []Message       `json:"messages"`
	Temperature    float64         `json:"temperature"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	ResponseFormat *ResponseFormat `json:"response_format,omitempty"`
}

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ResponseFormat struct {
	Type string `json:"type"`
}

type ChatResponse struct {
	Choices []Choice  `json:"choices"`
	Error   *APIError `json:"error,omitempty"`
}

type Choice struct {
	Message      Message `json:"message"`
	FinishReason string  `json:"finish_reason"`
}

type APIError struct {
	Message    string `json:"message"`
	Type       string `json:"type"`
	Code       string `json:"code"`
	HTTPStatus int    `json:"-"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("openai API error %d (%s): %s", e.HTTPStatus, e.Code, e.Message)
}

func (c *Client) Generate(ctx context.Context, model string, prompt analysis.Prompt) (string, error) {
	if !c.Available() {
		return "", analysis.NewProviderError(Name, model, analysis.Unavailable, analysis.ErrProviderUnavailable)
	}

	var msgs []Message
	if prompt.System != "" {
		msgs = append(msgs, Message{Role: "system", Content: prompt.System})
	}
	msgs = append(msgs, Message{Role: "user", Content: prompt.User})

	body, err := json.Marshal(&ChatRequest{
		Model:          model,
		Messages:       msgs,
		Temperature:    prompt.Temperature,
		MaxTokens:      prompt.MaxTokens,
		ResponseFormat: &ResponseFormat{Type: "json_object"},
	})
	if err != nil {
		return "", analysis.NewProviderError(Name, model, analysis.Hard, fmt.Errorf("marshal request: %w", err))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", analysis.NewProviderError(Name, model, analysis.Hard, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", analysis.NewProviderError(Name, model, transportKind(err), stripURL(err))
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", analysis.NewProviderError(Name, model, transportKind(err), fmt.Errorf("read response: %w", err))
	}

	var result ChatResponse
	decodeErr := json.Unmarshal(respBody, &result)

	if resp.StatusCode != http.StatusOK || result.Error != nil {
		apiErr := result.Error
		if apiErr == nil {
			apiErr = &APIError{Message: truncate(string(respBody), maxErrorBody)}
		}
		apiErr.HTTPStatus = resp.StatusCode
		return "", analysis.NewProviderError(Name, model, classify(apiErr), apiErr)
	}
	if decodeErr != nil {
		return "", analysis.NewProviderError(Name, model, analysis.Hard, fmt.Errorf("unmarshal response: %w", decodeErr))
	}
	if len(result.Choices) == 0 || strings.TrimSpace(result.Choices[0].Message.Content) == "" {
		return "", analysis.NewProviderError(Name, model, analysis.Hard, errors.New("empty response"))
	}
	return result.Choices[0].Message.Content, nil
}

// classify treats rate limits, exhausted credits and missing models as
// Transient; everything else is Hard.
func classify(e *APIError) analysis.FailureKind {
	switch e.HTTPStatus {
	case http.StatusNotFound, http.StatusTooManyRequests, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return analysis.Transient
	}
	switch e.Code {
	case "insufficient_quota", "rate_limit_exceeded", "model_not_found":
		return analysis.Transient
	}
	return analysis.Hard
}

func transportKind(err error) analysis.FailureKind {
	if errors.Is(err, context.DeadlineExceeded) {
		return analysis.Transient
	}
	var uerr *url.Error
	if errors.As(err, &uerr) && uerr.Timeout() {
		return analysis.Transient
	}
	return analysis.Hard
}

// stripURL keeps the request URL out of stored diagnostics.
func stripURL(err error) error {
	var uerr *url.Error
	if errors.As(err, &uerr) {
		return fmt.Errorf("%s request: %w", strings.ToLower(uerr.Op), uerr.Err)
	}
	return err
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
