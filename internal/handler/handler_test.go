package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"contact_form/internal/config"
	"contact_form/internal/domain"
	"contact_form/internal/middleware"
	"contact_form/internal/repository"
	"contact_form/internal/service"
	"contact_form/pkg/clock/clocktest"
	apperrors "contact_form/pkg/errors"
	"contact_form/pkg/logger"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubRelay struct {
	mu   sync.Mutex
	sent []domain.SubmissionPayload
	err  error
}

func (s *stubRelay) Send(_ context.Context, payload domain.SubmissionPayload) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, payload)
	return s.err
}

func (s *stubRelay) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sent)
}

type testServer struct {
	router   *gin.Engine
	services *service.Services
	clock    *clocktest.Manual
	relay    *stubRelay
}

const testOperatorToken = "operator-secret-0123"

func newTestServer(t *testing.T, ipLimit int) *testServer {
	t.Helper()

	cfg := &config.Config{
		Environment: "test",
		Server:      config.ServerConfig{CORSOrigins: []string{"https://example.com"}},
		FormToken:   config.FormTokenConfig{Secret: "handler-test-secret", TTL: time.Hour, Issuer: "contact-form-test"},
		Form:        config.FormConfig{SessionIdleTTL: time.Hour, ClockTickInterval: time.Second, RelayOperatorToken: testOperatorToken},
		RateLimit:   config.RateLimitConfig{IPLimit: ipLimit, IPWindow: time.Minute},
	}
	log := logger.Nop()
	clock := clocktest.NewManual(time.Date(2026, 4, 10, 15, 0, 0, 0, time.UTC))
	relay := &stubRelay{}

	services := service.NewServices(repository.NewRepositories(nil, log), cfg, config.DefaultFormRules(), relay, clock, log)
	handlers := NewHandlers(services, cfg, nil, log)
	formToken := middleware.NewFormTokenMiddleware(services.FormSession, log)
	rateLimit := middleware.NewRateLimitMiddleware(services.RateLimit,
		domain.RateLimitRule{Limit: cfg.RateLimit.IPLimit, Window: cfg.RateLimit.IPWindow}, log)

	return &testServer{
		router:   SetupRouter(handlers, formToken, rateLimit, cfg, log),
		services: services,
		clock:    clock,
		relay:    relay,
	}
}

func (s *testServer) do(method, path, token string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set(middleware.FormTokenHeader, token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *testServer) openSession(t *testing.T) SessionResponse {
	t.Helper()
	w := s.do(http.MethodGet, "/api/v1/forms/session", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp SessionResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func validSubmit() SubmitRequest {
	return SubmitRequest{
		Name:    "Jane Doe",
		Email:   "jane@example.com",
		Subject: "Hello",
		Message: "This is a normal length test message.",
	}
}

type submitBody struct {
	State        service.State        `json:"state"`
	Stage        domain.Stage         `json:"stage"`
	Kind         domain.RejectionKind `json:"kind"`
	Fields       []domain.FieldError  `json:"fields"`
	ResetAfterMs int64                `json:"reset_after_ms"`
	Effects      []struct {
		Type         domain.UIEffectType `json:"type"`
		Field        domain.FieldID      `json:"field"`
		State        domain.FieldState   `json:"state"`
		Notification *struct {
			Kind       domain.NotificationKind `json:"kind"`
			Title      string                  `json:"title"`
			Detail     string                  `json:"detail"`
			DurationMs int64                   `json:"duration_ms"`
		} `json:"notification"`
	} `json:"effects"`
}

func decodeSubmit(t *testing.T, w *httptest.ResponseRecorder) submitBody {
	t.Helper()
	var body submitBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func (b submitBody) hasEffect(typ domain.UIEffectType) bool {
	for _, e := range b.Effects {
		if e.Type == typ {
			return true
		}
	}
	return false
}

func TestFormHandler_Session(t *testing.T) {
	s := newTestServer(t, 30)

	resp := s.openSession(t)
	assert.NotEmpty(t, resp.SessionID)
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, "Good Afternoon! 🌤️", resp.Greeting)
	assert.Equal(t, 1, s.services.FormSession.Active())
}

func TestFormHandler_SubmitSucceeds(t *testing.T) {
	s := newTestServer(t, 30)
	session := s.openSession(t)
	sub := s.services.Relay.SubscribeSession(session.SessionID)
	defer s.services.Relay.Unsubscribe(sub)

	s.clock.Advance(5 * time.Second)
	w := s.do(http.MethodPost, "/api/v1/forms/submit", session.Token, validSubmit())
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	body := decodeSubmit(t, w)
	assert.Equal(t, service.StateSucceeded, body.State)
	assert.Equal(t, int64(6000), body.ResetAfterMs)
	assert.True(t, body.hasEffect(domain.EffectSubmitBusy))
	assert.True(t, body.hasEffect(domain.EffectSubmitIdle))
	assert.True(t, body.hasEffect(domain.EffectFormHide))
	assert.True(t, body.hasEffect(domain.EffectBannerShow))
	assert.False(t, body.hasEffect(domain.EffectFormReset))

	var toastTitle, toastDetail string
	var toastMs int64
	for _, e := range body.Effects {
		if e.Type == domain.EffectToastShow {
			toastTitle = e.Notification.Title
			toastDetail = e.Notification.Detail
			toastMs = e.Notification.DurationMs
		}
	}
	assert.Equal(t, "Message sent!", toastTitle)
	// текст уведомления в JSON простой, без HTML-сущностей
	assert.Equal(t, "I'll get back to you as soon as possible.", toastDetail)
	assert.Equal(t, int64(5000), toastMs)
	assert.Equal(t, 1, s.relay.count())

	select {
	case raw := <-sub.C():
		msg, ok := domain.DecodeRelayMessage(raw)
		require.True(t, ok)
		assert.Equal(t, domain.RelayFormSubmission, msg.Type)
		assert.Equal(t, "jane@example.com", msg.Payload.Email)
	default:
		t.Fatal("submission was not published on the relay")
	}

	// таймер сброса после ответа не пишет в закрытый ответ
	s.clock.Advance(service.ResetDelay)
}

func TestFormHandler_SubmitRejections(t *testing.T) {
	spam := validSubmit()
	spam.Message = "buy now and win now"

	invalid := validSubmit()
	invalid.Email = "jane@"

	tests := []struct {
		name   string
		wait   time.Duration
		req    SubmitRequest
		status int
		stage  domain.Stage
	}{
		{name: "validation", wait: 5 * time.Second, req: invalid, status: http.StatusUnprocessableEntity, stage: domain.StageValidation},
		{name: "too fast", wait: time.Second, req: validSubmit(), status: http.StatusTooEarly, stage: domain.StageTiming},
		{name: "spam", wait: 5 * time.Second, req: spam, status: http.StatusUnprocessableEntity, stage: domain.StageKeyword},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, 30)
			session := s.openSession(t)

			s.clock.Advance(tt.wait)
			w := s.do(http.MethodPost, "/api/v1/forms/submit", session.Token, tt.req)
			require.Equal(t, tt.status, w.Code, w.Body.String())

			body := decodeSubmit(t, w)
			assert.Equal(t, service.StateRejected, body.State)
			assert.Equal(t, tt.stage, body.Stage)
			assert.True(t, body.hasEffect(domain.EffectToastShow))
			assert.False(t, body.hasEffect(domain.EffectSubmitBusy))
			assert.Equal(t, 0, s.relay.count())
		})
	}
}

func TestFormHandler_SubmitRateLimited(t *testing.T) {
	s := newTestServer(t, 30)
	session := s.openSession(t)

	for i := 0; i < 3; i++ {
		s.clock.Advance(3 * time.Second)
		w := s.do(http.MethodPost, "/api/v1/forms/submit", session.Token, validSubmit())
		require.Equal(t, http.StatusOK, w.Code)
	}

	s.clock.Advance(3 * time.Second)
	w := s.do(http.MethodPost, "/api/v1/forms/submit", session.Token, validSubmit())
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, domain.RejectRateLimited, decodeSubmit(t, w).Kind)
}

func TestFormHandler_SubmitRelayFailure(t *testing.T) {
	s := newTestServer(t, 30)
	s.relay.err = apperrors.ErrRelayUnavailable
	session := s.openSession(t)

	s.clock.Advance(5 * time.Second)
	w := s.do(http.MethodPost, "/api/v1/forms/submit", session.Token, validSubmit())
	require.Equal(t, http.StatusBadGateway, w.Code)

	body := decodeSubmit(t, w)
	assert.Equal(t, service.StateFailed, body.State)
	assert.True(t, body.hasEffect(domain.EffectSubmitIdle))
	assert.False(t, body.hasEffect(domain.EffectFormHide))
}

func TestFormHandler_TokenRequired(t *testing.T) {
	s := newTestServer(t, 30)

	w := s.do(http.MethodPost, "/api/v1/forms/submit", "", validSubmit())
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(http.MethodPost, "/api/v1/forms/submit", "not-a-token", validSubmit())
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "Invalid form token")

	session := s.openSession(t)
	s.clock.Advance(2 * time.Hour)
	w = s.do(http.MethodPost, "/api/v1/forms/validate", session.Token, ValidateRequest{Field: "name", Value: "Jane"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "expired")
}

func TestFormHandler_Validate(t *testing.T) {
	s := newTestServer(t, 30)
	session := s.openSession(t)

	w := s.do(http.MethodPost, "/api/v1/forms/validate", session.Token, ValidateRequest{Field: "name", Value: "J", Event: "input"})
	require.Equal(t, http.StatusOK, w.Code)

	var fb service.FieldFeedback
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &fb))
	assert.False(t, fb.OK)
	assert.Equal(t, domain.FieldStateError, fb.State)
	assert.Equal(t, "Full Name must be at least 2 characters (you entered 1).", fb.Message)

	// поле в ошибке проверяется на blur даже пустым
	w = s.do(http.MethodPost, "/api/v1/forms/validate", session.Token, ValidateRequest{Field: "name", Value: "", Event: "blur"})
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &fb))
	assert.Equal(t, "Full Name is required.", fb.Message)

	w = s.do(http.MethodPost, "/api/v1/forms/validate", session.Token, ValidateRequest{Field: "phone", Value: "1"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "unknown field")

	w = s.do(http.MethodPost, "/api/v1/forms/validate", session.Token, ValidateRequest{Field: "name", Value: "Jane", Event: "change"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRateLimitMiddleware_GuardsSubmitByIP(t *testing.T) {
	s := newTestServer(t, 2)
	session := s.openSession(t)
	s.clock.Advance(5 * time.Second)

	for i := 0; i < 2; i++ {
		w := s.do(http.MethodPost, "/api/v1/forms/submit", session.Token, validSubmit())
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "2", w.Header().Get("X-RateLimit-Limit"))
	}

	w := s.do(http.MethodPost, "/api/v1/forms/submit", session.Token, validSubmit())
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))
	assert.JSONEq(t, `{"error":"rate limit exceeded"}`, w.Body.String())
	assert.Equal(t, 2, s.relay.count())
}

func TestRouter_ErrorsAsJSON(t *testing.T) {
	s := newTestServer(t, 30)

	w := s.do(http.MethodGet, "/api/v1/forms/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"error":"not found"}`, w.Body.String())

	session := s.openSession(t)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/forms/submit", strings.NewReader("{"))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(middleware.FormTokenHeader, session.Token)
	w = httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "bad request")

	w = s.do(http.MethodPost, "/api/v1/forms/validate", session.Token, ValidateRequest{Field: "name", Value: "Jane", Event: "change"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"event must be input or blur"}`, w.Body.String())
}

func TestHealthHandler_Check(t *testing.T) {
	s := newTestServer(t, 30)
	s.openSession(t)

	w := s.do(http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, float64(1), body["active_sessions"])
}

func TestCORS_Preflight(t *testing.T) {
	s := newTestServer(t, 30)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/forms/submit", nil)
	req.Header.Set("Origin", "https://example.com")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://example.com", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Headers"), middleware.FormTokenHeader)

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://evil.example")
	w = httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func (s *testServer) dialRelay(t *testing.T, srv *httptest.Server, query string, header http.Header) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/relay" + query
	conn, resp, err := websocket.DefaultDialer.Dial(url, header)
	if conn != nil {
		t.Cleanup(func() { _ = conn.Close() })
	}
	return conn, resp, err
}

func readRelay(t *testing.T, conn *websocket.Conn) domain.RelayMessage {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)

	msg, ok := domain.DecodeRelayMessage(raw)
	require.True(t, ok, string(raw))
	return msg
}

func TestRelayHandler_StreamsMessages(t *testing.T) {
	s := newTestServer(t, 30)
	srv := httptest.NewServer(s.router)
	defer srv.Close()

	session := s.openSession(t)
	conn, _, err := s.dialRelay(t, srv, "?token="+session.Token, nil)
	require.NoError(t, err)

	require.Eventually(t, func() bool { return s.services.Relay.Subscribers() == 1 }, time.Second, 5*time.Millisecond)

	s.services.Clock.Tick()

	msg := readRelay(t, conn)
	assert.Equal(t, domain.RelayClockTick, msg.Type)
	assert.Equal(t, "03:00:00 PM", msg.Time)
}

func TestRelayHandler_RequiresCredential(t *testing.T) {
	s := newTestServer(t, 30)
	srv := httptest.NewServer(s.router)
	defer srv.Close()

	tests := []struct {
		name   string
		query  string
		header http.Header
	}{
		{name: "no credential"},
		{name: "bad form token", query: "?token=not-a-token"},
		{name: "wrong operator token", header: http.Header{"Authorization": {"Bearer guess"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, resp, err := s.dialRelay(t, srv, tt.query, tt.header)
			require.ErrorIs(t, err, websocket.ErrBadHandshake)
			require.NotNil(t, resp)
			assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		})
	}
	assert.Equal(t, 0, s.services.Relay.Subscribers())
}

func TestRelayHandler_SubmissionReachesOnlyItsSession(t *testing.T) {
	s := newTestServer(t, 30)
	srv := httptest.NewServer(s.router)
	defer srv.Close()

	sender := s.openSession(t)
	bystander := s.openSession(t)

	own, _, err := s.dialRelay(t, srv, "", http.Header{middleware.FormTokenHeader: {sender.Token}})
	require.NoError(t, err)
	other, _, err := s.dialRelay(t, srv, "?token="+bystander.Token, nil)
	require.NoError(t, err)
	operator, _, err := s.dialRelay(t, srv, "", http.Header{"Authorization": {"Bearer " + testOperatorToken}})
	require.NoError(t, err)

	require.Eventually(t, func() bool { return s.services.Relay.Subscribers() == 3 }, time.Second, 5*time.Millisecond)

	s.clock.Advance(5 * time.Second)
	w := s.do(http.MethodPost, "/api/v1/forms/submit", sender.Token, validSubmit())
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	s.services.Clock.Tick()

	for _, conn := range []*websocket.Conn{own, operator} {
		msg := readRelay(t, conn)
		require.Equal(t, domain.RelayFormSubmission, msg.Type)
		assert.Equal(t, "jane@example.com", msg.Payload.Email)
		assert.Equal(t, domain.RelayClockTick, readRelay(t, conn).Type)
	}

	// порядок на подписчика сохраняется: первым чужая форма видит тик
	msg := readRelay(t, other)
	assert.Equal(t, domain.RelayClockTick, msg.Type)
	assert.Nil(t, msg.Payload)
}
