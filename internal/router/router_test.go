package router

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	ws "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"intervi-api/internal/cache"
	"intervi-api/internal/config"
	"intervi-api/internal/event"
	"intervi-api/internal/handler"
	"intervi-api/internal/metrics"
	"intervi-api/internal/middleware"
	"intervi-api/internal/model"
	"intervi-api/internal/password"
	"intervi-api/internal/repository/memory"
	"intervi-api/internal/revocation"
	"intervi-api/internal/service"
	"intervi-api/internal/token"
	"intervi-api/internal/websocket"
)

type testServer struct {
	*httptest.Server
}

func newTestServer(t *testing.T, accessTTL time.Duration) *testServer {
	t.Helper()

	cfg := &config.Config{
		RequestTimeout:   5 * time.Second,
		BodyLimit:        1 << 20,
		CORSOrigins:      []string{"*"},
		RateLimitRPM:     -1,
		AuthRateLimitRPM: -1,
	}

	issuer, err := token.NewIssuer(token.IssuerConfig{
		AccessSecret:  "access-secret-0123456789abcdefghijklmnop",
		RefreshSecret: "refresh-secret-0123456789abcdefghijklmno",
		AccessTTL:     accessTTL,
		RefreshTTL:    time.Hour,
	})
	require.NoError(t, err)

	hasher, err := password.NewHasher(bcrypt.MinCost, 0)
	require.NoError(t, err)

	users := memory.NewUserStore()
	sessions := memory.NewInterviewStore()
	denylist := revocation.NewMemoryDenylist()
	dashboards := cache.NewMemoryCache()
	m := metrics.New()
	bus := event.NewBus()

	hub := websocket.NewHub(bus, m)
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	questions, err := service.NewQuestionService()
	require.NoError(t, err)

	auth := service.NewAuthService(users, hasher, issuer, denylist, m)
	auth.SetAdminEmails([]string{"root@example.com"})

	h := Handlers{
		Auth:      handler.NewAuthHandler(auth),
		Interview: handler.NewInterviewHandler(service.NewInterviewService(sessions, users, bus, dashboards)),
		Analytics: handler.NewAnalyticsHandler(service.NewAnalyticsService(users, sessions, dashboards, time.Minute)),
		Question:  handler.NewQuestionHandler(questions),
		Realtime:  handler.NewRealtimeHandler(service.NewRealtimeService(time.Minute), hub, cfg.CORSOrigins),
		System:    handler.NewSystemHandler("test", "dev", nil),
	}

	srv := httptest.NewServer(New(cfg, middleware.NewAuthMiddleware(issuer, denylist, users), h, m))
	t.Cleanup(func() {
		srv.Close()
		cancel()
	})

	return &testServer{Server: srv}
}

func (s *testServer) do(t *testing.T, method string, path string, bearer string, body any) (int, []byte) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, s.URL+path, reader)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := s.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, data
}

func decode[T any](t *testing.T, data []byte) T {
	t.Helper()

	var v T
	require.NoError(t, json.Unmarshal(data, &v), string(data))
	return v
}

func (s *testServer) register(t *testing.T, email string) model.AuthResult {
	t.Helper()

	status, body := s.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"email":     email,
		"password":  "correct-horse",
		"firstName": "Ada",
		"lastName":  "Lovelace",
	})
	require.Equal(t, http.StatusCreated, status, string(body))
	return decode[model.AuthResult](t, body)
}

func TestRegisterThenMe(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t, 15*time.Minute)

	result := srv.register(t, "Ada@Example.com")
	assert.Equal(t, "ada@example.com", result.User.Email)
	assert.Equal(t, model.RoleCandidate, result.User.Role)
	assert.Equal(t, int64(900), result.ExpiresIn)

	status, body := srv.do(t, http.MethodGet, "/api/auth/me", result.AccessToken, nil)
	require.Equal(t, http.StatusOK, status)

	profile := decode[model.UserProfile](t, body)
	assert.Equal(t, result.User.ID, profile.ID)
	assert.Equal(t, "Ada", profile.FirstName)
	assert.NotContains(t, string(body), "password")
}

func TestLogin(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t, 15*time.Minute)
	srv.register(t, "ada@example.com")

	status, body := srv.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "ADA@example.com", "password": "correct-horse",
	})
	require.Equal(t, http.StatusOK, status)
	assert.NotEmpty(t, decode[model.AuthResult](t, body).AccessToken)

	for _, creds := range []map[string]string{
		{"email": "ada@example.com", "password": "wrong-horse"},
		{"email": "nobody@example.com", "password": "correct-horse"},
	} {
		status, body = srv.do(t, http.MethodPost, "/api/auth/login", "", creds)
		require.Equal(t, http.StatusUnauthorized, status)
		assert.Equal(t, "Invalid email or password", decode[model.ErrorResponse](t, body).Message)
	}
}

func TestRegisterValidationAndDuplicate(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t, 15*time.Minute)

	status, body := srv.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"email": "not-an-email", "password": "short",
	})
	require.Equal(t, http.StatusBadRequest, status)
	details := decode[model.ErrorResponse](t, body).Details.(map[string]any)
	assert.Contains(t, details, "email")
	assert.Contains(t, details, "password")
	assert.Contains(t, details, "firstName")

	srv.register(t, "ada@example.com")
	status, body = srv.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"email": "ADA@example.com", "password": "correct-horse", "firstName": "A", "lastName": "L",
	})
	require.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "DUPLICATE_EMAIL", decode[model.ErrorResponse](t, body).Code)

	status, _ = srv.do(t, http.MethodPost, "/api/auth/login", "", nil)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestProtectedRoutesRequireBearer(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t, 15*time.Minute)

	status, body := srv.do(t, http.MethodGet, "/api/interviews/sessions", "", nil)
	require.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "Missing authorization header", decode[model.ErrorResponse](t, body).Message)

	status, body = srv.do(t, http.MethodGet, "/api/interviews/sessions", "garbage", nil)
	require.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "Invalid or expired token", decode[model.ErrorResponse](t, body).Message)
}

func TestExpiredAccessToken(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t, 0)

	result := srv.register(t, "ada@example.com")
	status, body := srv.do(t, http.MethodGet, "/api/auth/me", result.AccessToken, nil)
	require.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "Invalid or expired token", decode[model.ErrorResponse](t, body).Message)
}

func TestRefreshRotation(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t, 15*time.Minute)
	result := srv.register(t, "ada@example.com")

	status, body := srv.do(t, http.MethodPost, "/api/auth/refresh", result.RefreshToken, nil)
	require.Equal(t, http.StatusOK, status, string(body))
	rotated := decode[model.TokenPair](t, body)
	assert.NotEqual(t, result.RefreshToken, rotated.RefreshToken)

	status, _ = srv.do(t, http.MethodGet, "/api/auth/me", rotated.AccessToken, nil)
	assert.Equal(t, http.StatusOK, status)

	// Replaying the consumed refresh token fails.
	status, _ = srv.do(t, http.MethodPost, "/api/auth/refresh", result.RefreshToken, nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	// Body form.
	status, _ = srv.do(t, http.MethodPost, "/api/auth/refresh", "", map[string]string{"refreshToken": rotated.RefreshToken})
	assert.Equal(t, http.StatusOK, status)

	// An access token is not a refresh token.
	status, _ = srv.do(t, http.MethodPost, "/api/auth/refresh", result.AccessToken, nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, body = srv.do(t, http.MethodPost, "/api/auth/refresh", "", nil)
	require.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "Missing refresh token", decode[model.ErrorResponse](t, body).Message)
}

func TestLogoutRevokesTokens(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t, 15*time.Minute)
	result := srv.register(t, "ada@example.com")

	status, _ := srv.do(t, http.MethodPost, "/api/auth/logout", result.AccessToken, map[string]string{
		"refreshToken": result.RefreshToken,
	})
	require.Equal(t, http.StatusNoContent, status)

	status, _ = srv.do(t, http.MethodGet, "/api/auth/me", result.AccessToken, nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = srv.do(t, http.MethodPost, "/api/auth/refresh", result.RefreshToken, nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	// Logging out with nothing valid still succeeds.
	status, _ = srv.do(t, http.MethodPost, "/api/auth/logout", "junk", nil)
	assert.Equal(t, http.StatusNoContent, status)
}

func TestInterviewFlow(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t, 15*time.Minute)
	owner := srv.register(t, "ada@example.com")
	other := srv.register(t, "grace@example.com")

	status, body := srv.do(t, http.MethodGet, "/api/interviews/domains", owner.AccessToken, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 15, decode[model.ListResponse[model.InterviewDomain]](t, body).Total)

	status, body = srv.do(t, http.MethodPost, "/api/interviews/sessions", owner.AccessToken, map[string]string{
		"domainId": "software-dev", "sessionType": "video",
	})
	require.Equal(t, http.StatusCreated, status, string(body))
	session := decode[model.InterviewSession](t, body)
	assert.Equal(t, "sde", session.DomainID)
	assert.Equal(t, model.StatusScheduled, session.Status)

	path := "/api/interviews/sessions/" + session.ID

	status, _ = srv.do(t, http.MethodGet, path, other.AccessToken, nil)
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = srv.do(t, http.MethodPatch, path+"/status", owner.AccessToken, map[string]string{"status": "completed"})
	assert.Equal(t, http.StatusConflict, status)

	status, _ = srv.do(t, http.MethodPatch, path+"/status", owner.AccessToken, map[string]string{"status": "in_progress"})
	require.Equal(t, http.StatusOK, status)

	status, body = srv.do(t, http.MethodPatch, path+"/metrics", owner.AccessToken, map[string]any{
		"metrics": map[string]any{
			"postureScore":       80,
			"eyeContactScore":    70,
			"gestureScore":       90,
			"speechClarityScore": 60,
			"emotionTimeline":    []map[string]any{{"label": "happy", "probability": 0.9, "timestamp": 1}},
			"recommendations":    []string{"Slow down"},
		},
	})
	require.Equal(t, http.StatusOK, status, string(body))
	assert.InDelta(t, 75, decode[model.SessionMetrics](t, body).OverallPerformanceScore, 0.001)

	status, body = srv.do(t, http.MethodPatch, path+"/status", owner.AccessToken, map[string]string{"status": "completed"})
	require.Equal(t, http.StatusOK, status)
	completed := decode[model.InterviewSession](t, body)
	require.NotNil(t, completed.OverallScore)
	assert.InDelta(t, 75, *completed.OverallScore, 0.001)
	assert.Equal(t, []string{"Slow down"}, completed.Recommendations)

	status, body = srv.do(t, http.MethodGet, "/api/auth/me", owner.AccessToken, nil)
	require.Equal(t, http.StatusOK, status)
	stats := decode[model.UserProfile](t, body).Statistics
	assert.Equal(t, 1, stats.TotalSessions)
	assert.Equal(t, 1, stats.CurrentStreak)
	assert.Equal(t, 18, stats.ExperiencePoints)

	status, body = srv.do(t, http.MethodGet, "/api/interviews/sessions?status=completed", owner.AccessToken, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 1, decode[model.ListResponse[model.InterviewSession]](t, body).Total)

	status, _ = srv.do(t, http.MethodGet, "/api/interviews/sessions?userId="+owner.User.ID, other.AccessToken, nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = srv.do(t, http.MethodGet, "/api/interviews/sessions?limit=abc", owner.AccessToken, nil)
	assert.Equal(t, http.StatusBadRequest, status)

	status, body = srv.do(t, http.MethodGet, "/api/analytics/dashboard", owner.AccessToken, nil)
	require.Equal(t, http.StatusOK, status)
	dashboard := decode[model.DashboardAnalytics](t, body)
	assert.Equal(t, 1, dashboard.CompletedSessions)
	assert.InDelta(t, 75, dashboard.AverageScore, 0.001)

	status, body = srv.do(t, http.MethodGet, "/api/analytics/sessions/"+session.ID, owner.AccessToken, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "happy", decode[model.SessionAnalytics](t, body).DominantEmotion)

	status, _ = srv.do(t, http.MethodGet, "/api/analytics/users/"+owner.User.ID+"/dashboard", other.AccessToken, nil)
	assert.Equal(t, http.StatusForbidden, status)
}

func TestAdminDashboard(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t, 15*time.Minute)
	candidate := srv.register(t, "ada@example.com")
	admin := srv.register(t, "root@example.com")

	require.Equal(t, model.RoleAdmin, admin.User.Role)

	status, body := srv.do(t, http.MethodGet, "/api/analytics/users/"+candidate.User.ID+"/dashboard", admin.AccessToken, nil)
	require.Equal(t, http.StatusOK, status, string(body))
	assert.Equal(t, candidate.User.ID, decode[model.DashboardAnalytics](t, body).UserID)
}

func TestMCQ(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t, 15*time.Minute)
	user := srv.register(t, "ada@example.com")

	status, body := srv.do(t, http.MethodGet, "/api/mcq/questions?domain=sde&limit=2", user.AccessToken, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 2, decode[model.ListResponse[model.PublicQuestion]](t, body).Total)
	assert.NotContains(t, string(body), "correctOption")

	status, body = srv.do(t, http.MethodPost, "/api/mcq/questions/sde-1/answer", user.AccessToken, map[string]string{"option": "b"})
	require.Equal(t, http.StatusOK, status)
	assert.True(t, decode[model.AnswerResult](t, body).Correct)

	status, _ = srv.do(t, http.MethodPost, "/api/mcq/questions/missing/answer", user.AccessToken, map[string]string{"option": "a"})
	assert.Equal(t, http.StatusNotFound, status)
}

func TestRealtimeHandshakeAndConnect(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t, 15*time.Minute)
	user := srv.register(t, "ada@example.com")

	status, body := srv.do(t, http.MethodPost, "/api/realtime/handshake", user.AccessToken, nil)
	require.Equal(t, http.StatusCreated, status)
	handshake := decode[model.HandshakeResponse](t, body)
	assert.Equal(t, "/interview", handshake.Namespace)
	require.NotEmpty(t, handshake.Ticket)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + handshake.SocketPath + "?ticket=" + handshake.Ticket
	conn, resp, err := ws.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusSwitchingProtocols, resp.StatusCode)
	_ = conn.Close()

	_, resp, err = ws.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestSystemRoutes(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t, 15*time.Minute)

	status, body := srv.do(t, http.MethodGet, "/api/health", "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", decode[map[string]any](t, body)["status"])

	status, body = srv.do(t, http.MethodGet, "/api/ping", "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "pong", decode[map[string]string](t, body)["message"])

	status, _ = srv.do(t, http.MethodGet, "/api/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, status)

	status, body = srv.do(t, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(body), "intervi_http_requests_total")
}
