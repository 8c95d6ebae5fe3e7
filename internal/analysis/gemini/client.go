package gemini

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
	Name = "gemini"

	defaultBaseURL     = "https://generativelanguage.googleapis.com/v1beta"
	defaultModel       = "gemini-2.0-flash"
	defaultHTTPTimeout = 120 * time.Second
	maxErrorBody       = 4096
)

type Config struct {
	APIKey        string
	Model         string
	FallbackModel string
	BaseURL       string
	HTTPClient    *http.Client
}

// Client calls the generateContent API and implements analysis.Provider.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	models     []string
}

var _ analysis.Provider = (*Client)(nil)

func New(cfg Config) *Client {
	c := &Client{
		httpClient: cfg.HTTPClient,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     strings.TrimSpace(cfg.APIKey),
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: defaultHTTPTimeout}
	}
	if c.baseURL == "" {
		c.baseURL = defaultBaseURL
	}

	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = defaultModel
	}
	c.models = []string{model}
	if fb := strings.TrimSpace(cfg.FallbackModel); fb != "" && fb != model {
		c.models = append(c.models, fb)
	}
	return c
}

func (c *Client) Name() string     { return Name }
func (c *Client) Models() []string { return c.models }
func (c *Client) Available() bool  { return c.apiKey != "" }

type GenerateContentRequest struct {
	SystemInstruction *Content          `json:"systemInstruction,omitempty"`
	Contents          []Content         `json:"contents"`
	GenerationConfig  *GenerationConfig `json:"generationConfig,omitempty"`
}

type GenerationConfig struct {
	Temperature      float64 `json:"temperature"`
	MaxOutputTokens  int     `json:"maxOutputTokens,omitempty"`
	ResponseMimeType string  `json:"responseMimeType,omitempty"`
}

type Content struct {
	Role  string `json:"role,omitempty"`
	Parts []Part `json:"parts"`
}

type Part struct {
	Text string `json:"text,omitempty"`
}

type GenerateContentResponse struct {
	Candidates     []Candidate     `json:"candidates,omitempty"`
	PromptFeedback *PromptFeedback `json:"promptFeedback,omitempty"`
	Error          *APIError       `json:"error,omitempty"`
}

type Candidate struct {
	Content      Content `json:"content"`
	FinishReason string  `json:"finishReason,omitempty"`
}

type PromptFeedback struct {
	BlockReason string `json:"blockReason,omitempty"`
}

type APIError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("gemini API error %d (%s): %s", e.Code, e.Status, e.Message)
}

// Generate sends one generateContent request for model and returns the
// concatenated candidate text.
func (c *Client) Generate(ctx context.Context, model string, prompt analysis.Prompt) (string, error) {
	if !c.Available() {
		return "", analysis.NewProviderError(Name, model, analysis.Unavailable, analysis.ErrProviderUnavailable)
	}

	req := &GenerateContentRequest{
		Contents: []Content{{Role: "user", Parts: []Part{{Text: prompt.User}}}},
		GenerationConfig: &GenerationConfig{
			Temperature:      prompt.Temperature,
			MaxOutputTokens:  prompt.MaxTokens,
			ResponseMimeType: "application/json",
		},
	}
	if prompt.System != "" {
		req.SystemInstruction = &Content{Parts: []Part{{Text: prompt.System}}}
	}

	body, err := json.Marshal(req)
	if err != nil {
		return "", analysis.NewProviderError(Name, model, analysis.Hard, fmt.Errorf("marshal request: %w", err))
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent", c.baseURL, url.PathEscape(model))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", analysis.NewProviderError(Name, model, analysis.Hard, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", analysis.NewProviderError(Name, model, transportKind(err), stripURL(err))
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", analysis.NewProviderError(Name, model, transportKind(err), fmt.Errorf("read response: %w", err))
	}

	var result GenerateContentResponse
	decodeErr := json.Unmarshal(respBody, &result)

	if resp.StatusCode != http.StatusOK || result.Error != nil {
		apiErr := result.Error
		if apiErr == nil {
			apiErr = &APIError{Code: resp.StatusCode, Message: truncate(string(respBody), maxErrorBody)}
		}
		if apiErr.Code == 0 {
			apiErr.Code = resp.StatusCode
		}
		return "", analysis.NewProviderError(Name, model, classify(apiErr), apiErr)
	}
	if decodeErr != nil {
		return "", analysis.NewProviderError(Name, model, analysis.Hard, fmt.Errorf("unmarshal response: %w", decodeErr))
	}

	text := candidateText(&result)
	if text == "" {
		reason := "no candidates"
		if result.PromptFeedback != nil && result.PromptFeedback.BlockReason != "" {
			reason = "blocked: " + result.PromptFeedback.BlockReason
		}
		return "", analysis.NewProviderError(Name, model, analysis.Hard, fmt.Errorf("empty response (%s)", reason))
	}
	return text, nil
}

func candidateText(r *GenerateContentResponse) string {
	if len(r.Candidates) == 0 {
		return ""
	}
	var sb strings.Builder
	for _, p := range r.Candidates[0].Content.Parts {
		sb.WriteString(p.Text)
	}
	return strings.TrimSpace(sb.String())
}

// classify maps model-missing, quota and overload responses to Transient.
func classify(e *APIError) analysis.FailureKind {
	switch e.Code {
	case http.StatusNotFound, http.StatusTooManyRequests, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return analysis.Transient
	}
	switch e.Status {
	case "NOT_FOUND", "RESOURCE_EXHAUSTED", "UNAVAILABLE", "DEADLINE_EXCEEDED":
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

// stripURL drops the request URL from transport errors; diagnostics end up
// in stored results.
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
