package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"time"

	"grid_supervisor/internal/models"
	"grid_supervisor/internal/service"

	"github.com/gin-gonic/gin"
)

// ---- Service Mocks ----

type mockAuth struct {
	signUpID      int
	signUpErr     error
	genTokenToken string
	genTokenErr   error
	parseID       int
	parseErr      error

	lastSignUpUsername string
	lastSignUpPassword string
	lastGenUsername    string
	lastGenPassword    string
	lastParseToken     string
}

func (m *mockAuth) SignUp(username, password string) (int, error) {
	m.lastSignUpUsername = username
	m.lastSignUpPassword = password
	return m.signUpID, m.signUpErr
}
func (m *mockAuth) GenerateToken(username, password string) (string, error) {
	m.lastGenUsername = username
	m.lastGenPassword = password
	return m.genTokenToken, m.genTokenErr
}
func (m *mockAuth) ParseToken(token string) (int, error) {
	m.lastParseToken = token
	return m.parseID, m.parseErr
}

// mockGrid records every command; err is returned from all of them.
type mockGrid struct {
	err error

	calls        []string
	lastReason   string
	lastKey      string
	lastValue    float64
	lastID       int
	lastOperator int
}

func (m *mockGrid) do(ctx context.Context, name string) error {
	m.calls = append(m.calls, name)
	m.lastOperator = service.OperatorFrom(ctx)
	return m.err
}

func (m *mockGrid) Start(ctx context.Context) error { return m.do(ctx, "start") }
func (m *mockGrid) Stop(ctx context.Context) error  { return m.do(ctx, "stop") }
func (m *mockGrid) EmergencyShutdown(ctx context.Context, reason string) error {
	m.lastReason = reason
	return m.do(ctx, "emergency")
}
func (m *mockGrid) AcknowledgeAlert(ctx context.Context) error { return m.do(ctx, "ack") }
func (m *mockGrid) UpdateSetting(ctx context.Context, key string, value float64) error {
	m.lastKey, m.lastValue = key, value
	return m.do(ctx, "setting")
}
func (m *mockGrid) ToggleSubstation(ctx context.Context, id int) error {
	m.lastID = id
	return m.do(ctx, "toggle")
}
func (m *mockGrid) TriggerLineFault(ctx context.Context, id int) error {
	m.lastID = id
	return m.do(ctx, "line_fault")
}
func (m *mockGrid) TriggerSubstationFault(ctx context.Context, id int) error {
	m.lastID = id
	return m.do(ctx, "substation_fault")
}
func (m *mockGrid) TriggerLoadSurge(ctx context.Context) error { return m.do(ctx, "surge") }
func (m *mockGrid) ResetFaults(ctx context.Context) error      { return m.do(ctx, "reset") }

type mockMonitoring struct {
	state models.Snapshot
	err   error
}

func (m *mockMonitoring) GetState(ctx context.Context) (models.Snapshot, error) {
	return m.state, m.err
}

type mockEventLog struct {
	resp     []models.GridEvent
	err      error
	lastFrom time.Time
	lastTo   time.Time
	lastKind string
}

func (m *mockEventLog) List(ctx context.Context, f service.LogFilter) ([]models.GridEvent, error) {
	m.lastFrom = f.From
	m.lastTo = f.To
	m.lastKind = f.Kind
	return m.resp, m.err
}

type mockTelemetry struct {
	resp   []models.TelemetrySample
	err    error
	last   service.TelemetryFilter
	called int
}

func (m *mockTelemetry) History(ctx context.Context, f service.TelemetryFilter) ([]models.TelemetrySample, error) {
	m.called++
	m.last = f
	return m.resp, m.err
}

// ---- Shared Test Helpers ----

func newTestRouter(s *service.Service) *gin.Engine {
	return newTestRouterWith(s, Options{})
}

func newTestRouterWith(s *service.Service, opts Options) *gin.Engine {
	gin.SetMode(gin.TestMode)
	return NewHandler(s, nil, opts).InitRoutes()
}

// doRequest performs an authenticated request when token is non-empty.
func doRequest(r http.Handler, method, path, token, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}
