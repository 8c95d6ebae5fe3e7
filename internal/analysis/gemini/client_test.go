package gemini

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"productlogik/internal/analysis"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(Config{
		APIKey:        "test-key",
		Model:         "gemini-2.0-flash",
		FallbackModel: "gemini-flash-latest",
		BaseURL:       srv.URL,
		HTTPClient:    srv.Client(),
	})
}

func TestClient_GenerateSuccess(t *testing.T) {
	var got GenerateContentRequest
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models/gemini-2.0-flash:generateContent", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("x-goog-api-key"))
		assert.Empty(t, r.URL.RawQuery)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		_ = json.NewEncoder(w).Encode(GenerateContentResponse{
			Candidates: []Candidate{{Content: Content{Parts: []Part{{Text: `{"themes":[],`}, {Text: `"executive_summary":"ok"}`}}}}},
		})
	})

	text, err := c.Generate(context.Background(), "gemini-2.0-flash", analysis.Prompt{System: "sys", User: "usr", Temperature: 0.3, MaxTokens: 2000})
	require.NoError(t, err)
	assert.Equal(t, `{"themes":[],"executive_summary":"ok"}`, text)

	assert.Equal(t, "application/json", got.GenerationConfig.ResponseMimeType)
	assert.Equal(t, 2000, got.GenerationConfig.MaxOutputTokens)
	require.NotNil(t, got.SystemInstruction)
	assert.Equal(t, "sys", got.SystemInstruction.Parts[0].Text)
	assert.Equal(t, "usr", got.Contents[0].Parts[0].Text)
}

func TestClient_ErrorClassification(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		want   analysis.FailureKind
	}{
		{"quota", http.StatusTooManyRequests, `{"error":{"code":429,"message":"quota","status":"RESOURCE_EXHAUSTED"}}`, analysis.Transient},
		{"model missing", http.StatusNotFound, `{"error":{"code":404,"message":"models/x is not found","status":"NOT_FOUND"}}`, analysis.Transient},
		{"bad request", http.StatusBadRequest, `{"error":{"code":400,"message":"bad","status":"INVALID_ARGUMENT"}}`, analysis.Hard},
		{"auth", http.StatusForbidden, `not json`, analysis.Hard},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			})

			_, err := c.Generate(context.Background(), "gemini-2.0-flash", analysis.Prompt{User: "u"})
			require.Error(t, err)
			assert.Equal(t, tc.want, analysis.KindOf(err))
		})
	}
}

func TestClient_EmptyCandidatesIsHard(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"promptFeedback":{"blockReason":"SAFETY"}}`))
	})

	_, err := c.Generate(context.Background(), "gemini-2.0-flash", analysis.Prompt{User: "u"})
	require.Error(t, err)
	assert.Equal(t, analysis.Hard, analysis.KindOf(err))
	assert.Contains(t, err.Error(), "SAFETY")
}

func TestClient_MissingKeyIsUnavailable(t *testing.T) {
	c := New(Config{})
	assert.False(t, c.Available())
	assert.Equal(t, []string{"gemini-2.0-flash"}, c.Models())

	_, err := c.Generate(context.Background(), "gemini-2.0-flash", analysis.Prompt{})
	assert.Equal(t, analysis.Unavailable, analysis.KindOf(err))
}

func TestClient_ModelsDeduplicated(t *testing.T) {
	c := New(Config{APIKey: "k", Model: "m", FallbackModel: "m"})
	assert.Equal(t, []string{"m"}, c.Models())
}

func TestClient_TransportErrorDoesNotExposeKey(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	baseURL := srv.URL
	srv.Close()

	c := New(Config{APIKey: "SECRET-KEY-123", BaseURL: baseURL})

	_, err := c.Generate(context.Background(), "gemini-2.0-flash", analysis.Prompt{User: "u"})
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "SECRET-KEY-123")
	assert.NotContains(t, err.Error(), baseURL)

	out := analysis.NewChain(analysis.Options{CallTimeout: 5 * time.Second}, c).Analyze(context.Background(), []string{"slow checkout"})
	require.True(t, out.Failed())
	assert.NotContains(t, out.ExecutiveSummary, "SECRET-KEY-123")
	assert.NotContains(t, out.Error, "SECRET-KEY-123")
	for _, a := range out.Attempts {
		assert.NotContains(t, a.Error, "SECRET-KEY-123")
	}
}
