package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"productlogik/internal/analysis"
	"productlogik/internal/config"
	"productlogik/internal/database"
	"productlogik/internal/schema"
)

const cannedAnalysis = `{"themes":[{"name":"Onboarding","confidence":85,"sentiment":"Negative","count":2,"summary":"Setup is confusing","evidence":["setup wizard is confusing"]}],"executive_summary":"Onboarding friction dominates."}`

type cannedProvider struct {
	calls atomic.Int32
}

func (p *cannedProvider) Name() string     { return "canned" }
func (p *cannedProvider) Models() []string { return []string{"canned-1"} }
func (p *cannedProvider) Available() bool  { return true }

func (p *cannedProvider) Generate(context.Context, string, analysis.Prompt) (string, error) {
	p.calls.Add(1)
	return cannedAnalysis, nil
}

type E2ETestSuite struct {
	t        *testing.T
	app      *app
	provider *cannedProvider
}

type TestResponse struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   *ErrorDetail    `json:"error,omitempty"`
}

type ErrorDetail struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

func setupTestSuite(t *testing.T) *E2ETestSuite {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := database.Connect(fmt.Sprintf("file:e2e_%s?mode=memory&cache=shared", t.Name()))
	require.NoError(t, err)
	require.NoError(t, schema.Migrate(db))

	cfg := &config.Config{
		AppEnv:         "test",
		JWTSecret:      "e2e-secret",
		JWTAccessTTL:   time.Hour,
		MaxUploadBytes: 1 << 20,
		MaxRows:        100,
		WorkerCount:    2,
		QueueSize:      16,
		VerifyCodeTTL:  time.Hour,
		WSPollInterval: 20 * time.Millisecond,
	}

	provider := &cannedProvider{}
	chain := analysis.NewChain(analysis.Options{CallTimeout: 5 * time.Second}, provider)

	a, err := newApp(cfg, db, chain, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = a.pool.Stop(ctx)
	})

	return &E2ETestSuite{t: t, app: a, provider: provider}
}

func (s *E2ETestSuite) do(req *http.Request, token string) (int, TestResponse) {
	s.t.Helper()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.app.router.ServeHTTP(w, req)

	var resp TestResponse
	require.NoError(s.t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return w.Code, resp
}

func (s *E2ETestSuite) postJSON(path string, body any) (int, TestResponse) {
	raw, err := json.Marshal(body)
	require.NoError(s.t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	return s.do(req, "")
}

func (s *E2ETestSuite) get(path, token string) (int, TestResponse) {
	return s.do(httptest.NewRequest(http.MethodGet, path, nil), token)
}

func (s *E2ETestSuite) registerAndLogin(email string) string {
	s.t.Helper()
	code, resp := s.postJSON("/api/v1/auth/register", gin.H{"email": email, "password": "supersecret", "name": "PM"})
	require.Equal(s.t, http.StatusCreated, code, resp.Error)

	code, resp = s.postJSON("/api/v1/auth/login", gin.H{"email": email, "password": "supersecret"})
	require.Equal(s.t, http.StatusOK, code, resp.Error)

	var data struct {
		AccessToken string `json:"access_token"`
	}
	require.NoError(s.t, json.Unmarshal(resp.Data, &data))
	require.NotEmpty(s.t, data.AccessToken)
	return data.AccessToken
}

func (s *E2ETestSuite) upload(token, filename, content string) (int, TestResponse) {
	s.t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", filename)
	require.NoError(s.t, err)
	_, err = part.Write([]byte(content))
	require.NoError(s.t, err)
	require.NoError(s.t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/uploads", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return s.do(req, token)
}

type analysisView struct {
	Status           string `json:"status"`
	ExecutiveSummary string `json:"executive_summary"`
	ModelUsed        string `json:"model_used"`
	FeedbackCount    int    `json:"feedback_count"`
	Themes           []struct {
		Name string `json:"name"`
	} `json:"themes"`
}

func (s *E2ETestSuite) waitForAnalysis(token, uploadID string) analysisView {
	s.t.Helper()
	var view analysisView
	require.Eventually(s.t, func() bool {
		code, resp := s.get("/api/v1/analysis/"+uploadID, token)
		if code != http.StatusOK {
			return false
		}
		view = analysisView{}
		if err := json.Unmarshal(resp.Data, &view); err != nil {
			return false
		}
		return view.Status == "completed" || view.Status == "failed"
	}, 5*time.Second, 10*time.Millisecond)
	return view
}

func TestE2E_UploadAnalyzeAndRead(t *testing.T) {
	s := setupTestSuite(t)

	code, resp := s.get("/health", "")
	assert.Equal(t, http.StatusOK, code)
	assert.True(t, resp.Success)

	token := s.registerAndLogin("pm@example.com")

	code, resp = s.upload(token, "feedback.csv", "id,feedback\n1,setup wizard is confusing\n2,   \n3,could not find the import button\n")
	require.Equal(t, http.StatusCreated, code, resp.Error)

	var submitted struct {
		UploadID string `json:"upload_id"`
		RowCount int    `json:"row_count"`
		Status   string `json:"status"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &submitted))
	assert.Equal(t, 2, submitted.RowCount)
	assert.Equal(t, "pending", submitted.Status)

	view := s.waitForAnalysis(token, submitted.UploadID)
	assert.Equal(t, "completed", view.Status)
	assert.Equal(t, "canned/canned-1", view.ModelUsed)
	assert.Equal(t, 2, view.FeedbackCount)
	require.Len(t, view.Themes, 1)
	assert.Equal(t, "Onboarding", view.Themes[0].Name)

	// reading again returns the same stored result without another provider call
	calls := s.provider.calls.Load()
	again := s.waitForAnalysis(token, submitted.UploadID)
	assert.Equal(t, view, again)
	assert.Equal(t, calls, s.provider.calls.Load())

	code, resp = s.get("/api/v1/uploads", token)
	require.Equal(t, http.StatusOK, code)
	var items []struct {
		ID          string `json:"id"`
		HasAnalysis bool   `json:"has_analysis"`
		ThemeCount  int    `json:"theme_count"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &items))
	require.Len(t, items, 1)
	assert.Equal(t, submitted.UploadID, items[0].ID)
	assert.True(t, items[0].HasAnalysis)
	assert.Equal(t, 1, items[0].ThemeCount)

	code, resp = s.get("/api/v1/usage", token)
	require.Equal(t, http.StatusOK, code)
	var usage struct {
		PlanTier     string `json:"plan_tier"`
		AnalysesUsed int    `json:"analyses_used"`
		Remaining    int    `json:"remaining"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &usage))
	assert.Equal(t, "demo", usage.PlanTier)
	assert.Equal(t, 1, usage.AnalysesUsed)
	assert.Equal(t, 2, usage.Remaining)
}

func TestE2E_OtherUserIsForbidden(t *testing.T) {
	s := setupTestSuite(t)
	owner := s.registerAndLogin("owner@example.com")
	stranger := s.registerAndLogin("stranger@example.com")

	code, resp := s.upload(owner, "feedback.csv", "feedback\nexport is slow\n")
	require.Equal(t, http.StatusCreated, code, resp.Error)
	var submitted struct {
		UploadID string `json:"upload_id"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &submitted))

	code, resp = s.get("/api/v1/analysis/"+submitted.UploadID, stranger)
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, "FORBIDDEN", resp.Error.Code)

	code, resp = s.get("/api/v1/analysis/does-not-exist", owner)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "NOT_FOUND", resp.Error.Code)
}

func TestE2E_DemoQuotaIsEnforced(t *testing.T) {
	s := setupTestSuite(t)
	token := s.registerAndLogin("pm@example.com")

	for i := 0; i < 3; i++ {
		code, resp := s.upload(token, "feedback.csv", fmt.Sprintf("feedback\nrequest number %d\n", i))
		require.Equal(t, http.StatusCreated, code, resp.Error)
		var submitted struct {
			UploadID string `json:"upload_id"`
		}
		require.NoError(t, json.Unmarshal(resp.Data, &submitted))
		assert.Equal(t, "completed", s.waitForAnalysis(token, submitted.UploadID).Status)
	}

	for i := 0; i < 2; i++ {
		code, resp := s.upload(token, "feedback.csv", "feedback\none more\n")
		assert.Equal(t, http.StatusTooManyRequests, code)
		require.NotNil(t, resp.Error)
		assert.Equal(t, "QUOTA_EXCEEDED", resp.Error.Code)
		assert.EqualValues(t, 3, resp.Error.Details["current"])
		assert.EqualValues(t, 3, resp.Error.Details["limit"])
		assert.Equal(t, "pro", resp.Error.Details["upgrade_to"])
	}

	code, resp := s.get("/api/v1/uploads", s.registerAndLogin("other@example.com"))
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, "[]", string(resp.Data))
}

func TestE2E_ProtectedRoutesNeedToken(t *testing.T) {
	s := setupTestSuite(t)

	code, resp := s.get("/api/v1/uploads", "")
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "AUTH_HEADER_MISSING", resp.Error.Code)

	code, resp = s.get("/api/v1/usage", "not-a-token")
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "INVALID_TOKEN", resp.Error.Code)

	code, resp = s.get("/api/v1/plans", "")
	assert.Equal(t, http.StatusOK, code)
	assert.True(t, resp.Success)
}
