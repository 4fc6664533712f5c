package handlers

import (
	"context"
	"net/http"
	"time"

	"air_monitor/internal/models"
	"air_monitor/internal/service"

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

func (m *mockAuth) SignUp(ctx context.Context, username, password string) (int, error) {
	m.lastSignUpUsername = username
	m.lastSignUpPassword = password
	return m.signUpID, m.signUpErr
}
func (m *mockAuth) GenerateToken(ctx context.Context, username, password string) (string, error) {
	m.lastGenUsername = username
	m.lastGenPassword = password
	return m.genTokenToken, m.genTokenErr
}
func (m *mockAuth) ParseToken(token string) (int, error) {
	m.lastParseToken = token
	return m.parseID, m.parseErr
}

type mockMonitoring struct {
	state      models.DashboardState
	err        error
	dismissErr error
	checkRes   service.ResetResult
	checkErr   error

	lastDismissID string
	dismissCalls  int
	checkCalls    int
}

func (m *mockMonitoring) GetState(ctx context.Context) (models.DashboardState, error) {
	return m.state, m.err
}
func (m *mockMonitoring) Dismiss(ctx context.Context, id string) error {
	m.dismissCalls++
	m.lastDismissID = id
	return m.dismissErr
}
func (m *mockMonitoring) CheckMaintenance(ctx context.Context) (service.ResetResult, error) {
	m.checkCalls++
	return m.checkRes, m.checkErr
}

type mockMaintenance struct {
	rec models.MaintenanceRecord
	ok  bool
	err error
}

func (m *mockMaintenance) MaybeReset(ctx context.Context, now time.Time) (service.ResetResult, error) {
	return service.ResetResult{}, nil
}
func (m *mockMaintenance) Record(ctx context.Context) (models.MaintenanceRecord, bool, error) {
	return m.rec, m.ok, m.err
}

type mockEventLog struct {
	resp     []models.SensorEvent
	err      error
	lastFrom time.Time
	lastTo   time.Time
	lastType string
}

func (m *mockEventLog) List(ctx context.Context, f service.LogFilter) ([]models.SensorEvent, error) {
	m.lastFrom = f.From
	m.lastTo = f.To
	m.lastType = f.Type
	return m.resp, m.err
}

// ---- Shared Test Helpers ----

func newTestRouter(s *service.Service) *gin.Engine {
	h := NewHandler(s, nil)
	gin.SetMode(gin.TestMode)
	return h.InitRoutes()
}

func authHeader(token string) http.Header {
	h := http.Header{}
	if token != "" {
		h.Set("Authorization", "Bearer "+token)
	}
	return h
}
