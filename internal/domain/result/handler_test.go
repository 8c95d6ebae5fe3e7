package result

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"productlogik/internal/pkg/jwt"
)

func setupResultRouter(t *testing.T, f *resultFixture, tokens *jwt.Service) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	v1 := r.Group("/api/v1")

	protected := v1.Group("")
	protected.Use(func(c *gin.Context) {
		switch c.GetHeader("X-Test-User-ID") {
		case "owner":
			c.Set("user_id", f.ownerID)
		case "other":
			c.Set("user_id", f.otherID)
		}
		c.Next()
	})
	NewHandler(f.svc).RegisterRoutes(protected)
	NewWSHandler(f.svc, tokens, 20*time.Millisecond).RegisterPublicRoutes(v1)
	return r
}

func TestHandler_GetStatusCodes(t *testing.T) {
	f := setupResult(t)
	u := f.createUpload(t)
	r := setupResultRouter(t, f, jwt.New("secret", time.Hour))

	do := func(id, who string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/v1/analysis/"+id, nil)
		if who != "" {
			req.Header.Set("X-Test-User-ID", who)
		}
		r.ServeHTTP(w, req)
		return w
	}

	assert.Equal(t, http.StatusUnauthorized, do(u.ID, "").Code)
	assert.Equal(t, http.StatusNotFound, do("missing", "owner").Code)
	assert.Equal(t, http.StatusForbidden, do(u.ID, "other").Code)

	w := do(u.ID, "owner")
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Data AnalysisView `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, StatusPending, body.Data.Status)
	assert.Equal(t, "q3.csv", body.Data.Filename)
}

func TestWSHandler_StreamsUntilTerminal(t *testing.T) {
	f := setupResult(t)
	u := f.createUpload(t)
	tokens := jwt.New("secret", time.Hour)
	srv := httptest.NewServer(setupResultRouter(t, f, tokens))
	defer srv.Close()

	token, err := tokens.GenerateToken(f.ownerID, "user")
	require.NoError(t, err)
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/analysis/" + u.ID + "/ws?token=" + token

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var ev wsEvent
	require.NoError(t, conn.ReadJSON(&ev))
	assert.Equal(t, "analysis", ev.Type)
	require.NotNil(t, ev.Data)
	assert.Equal(t, StatusPending, ev.Data.Status)

	f.store(t, u.ID, successOutcome())

	ev = wsEvent{}
	require.NoError(t, conn.ReadJSON(&ev))
	require.NotNil(t, ev.Data)
	assert.Equal(t, StatusCompleted, ev.Data.Status)
	assert.Len(t, ev.Data.Themes, 2)

	_, _, err = conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "got %v", err)
}

func TestWSHandler_RejectsBeforeUpgrade(t *testing.T) {
	f := setupResult(t)
	u := f.createUpload(t)
	tokens := jwt.New("secret", time.Hour)
	r := setupResultRouter(t, f, tokens)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/analysis/"+u.ID+"/ws", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/analysis/"+u.ID+"/ws?token=garbage", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	otherToken, err := tokens.GenerateToken(f.otherID, "user")
	require.NoError(t, err)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/analysis/"+u.ID+"/ws?token="+otherToken, nil))
	assert.Equal(t, http.StatusForbidden, w.Code)
}
