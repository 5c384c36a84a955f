package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/you/campus-resource-hub/internal/domain"
	"github.com/you/campus-resource-hub/internal/repository"
	"github.com/you/campus-resource-hub/internal/service"
	"github.com/you/campus-resource-hub/pkg/auth"
	"github.com/you/campus-resource-hub/pkg/clock"
	"github.com/you/campus-resource-hub/pkg/mq"
	"github.com/you/campus-resource-hub/pkg/obs"
)

type testServer struct {
	router *gin.Engine
	tm     *auth.TokenManager
	clk    *clock.Fixed

	resources *repository.ResourceRepo
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	bookingRepo := repository.NewBookingRepo(gdb)
	resourceRepo := repository.NewResourceRepo(gdb)
	messageRepo := repository.NewMessageRepo(gdb)
	auditRepo := repository.NewAuditRepo(gdb)
	for _, m := range []interface{ Migrate() error }{bookingRepo, resourceRepo, messageRepo, auditRepo} {
		require.NoError(t, m.Migrate())
	}

	clk := &clock.Fixed{T: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)}
	metrics := obs.NewMetrics(prometheus.NewRegistry())
	pub := mq.Nop{}

	svcs := Services{
		Bookings:  service.NewBookingSvc(bookingRepo, resourceRepo, auditRepo, pub, clk, metrics),
		Messaging: service.NewMessagingSvc(messageRepo, bookingRepo, resourceRepo, pub, clk, metrics),
		Resources: service.NewResourceSvc(resourceRepo),
	}
	tm := auth.NewTokenManager("test-secret", time.Hour)
	return &testServer{
		router:    NewRouter(tm, svcs),
		tm:        tm,
		clk:       clk,
		resources: resourceRepo,
	}
}

func (s *testServer) token(t *testing.T, sub, role string) string {
	t.Helper()
	tok, err := s.tm.Issue(sub, role, sub+"@campus.test")
	require.NoError(t, err)
	return tok
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *testServer) seedResource(t *testing.T, ownerID string, requiresApproval bool) *domain.Resource {
	t.Helper()
	res := &domain.Resource{
		OwnerID:          ownerID,
		Title:            "Lecture Hall",
		Category:         "room",
		Status:           domain.ResourcePublished,
		RequiresApproval: requiresApproval,
	}
	require.NoError(t, s.resources.Create(context.Background(), res))
	return res
}

func TestAuthRequired(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodGet, "/v1/bookings/my", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(t, http.MethodGet, "/v1/bookings/my", "garbage-token", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// the published catalog stays public
	w = s.do(t, http.MethodGet, "/v1/resources", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRoleGates(t *testing.T) {
	s := newTestServer(t)
	studentTok := s.token(t, "stu-1", domain.RoleStudent)
	staffTok := s.token(t, "staff-1", domain.RoleStaff)

	body := map[string]any{"title": "Projector", "category": "equipment"}
	w := s.do(t, http.MethodPost, "/v1/resources", studentTok, body)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(t, http.MethodPost, "/v1/resources", staffTok, body)
	assert.Equal(t, http.StatusCreated, w.Code)

	w = s.do(t, http.MethodGet, "/v1/bookings/export", staffTok, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestBookingLifecycleOverHTTP(t *testing.T) {
	s := newTestServer(t)
	res := s.seedResource(t, "staff-1", true)
	studentTok := s.token(t, "stu-1", domain.RoleStudent)
	staffTok := s.token(t, "staff-1", domain.RoleStaff)

	w := s.do(t, http.MethodPost, "/v1/bookings", studentTok, map[string]any{
		"resource_id": res.ID,
		"start_iso":   "2026-03-02T10:00:00Z",
		"end_iso":     "2026-03-02T11:00:00Z",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created bookingJSON
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, "pending", created.Status)

	// overlapping request conflicts
	w = s.do(t, http.MethodPost, "/v1/bookings", studentTok, map[string]any{
		"resource_id": res.ID,
		"start_iso":   "2026-03-02T10:30:00Z",
		"end_iso":     "2026-03-02T11:30:00Z",
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	// reversed window
	w = s.do(t, http.MethodPost, "/v1/bookings", studentTok, map[string]any{
		"resource_id": res.ID,
		"start_iso":   "2026-03-02T13:00:00Z",
		"end_iso":     "2026-03-02T12:00:00Z",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// the requester cannot approve
	w = s.do(t, http.MethodPost, "/v1/bookings/"+created.ID+"/approve", studentTok, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(t, http.MethodPost, "/v1/bookings/"+created.ID+"/approve", staffTok,
		map[string]any{"notes": "confirmed"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// completing during the window is an illegal transition
	w = s.do(t, http.MethodPost, "/v1/bookings/"+created.ID+"/complete", staffTok, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	s.clk.Advance(3 * time.Hour)
	w = s.do(t, http.MethodPost, "/v1/bookings/"+created.ID+"/complete", staffTok, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodGet, "/v1/bookings/no-such-id", studentTok, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSinceEndpoint(t *testing.T) {
	s := newTestServer(t)
	res := s.seedResource(t, "staff-1", true)
	studentTok := s.token(t, "stu-1", domain.RoleStudent)
	staffTok := s.token(t, "staff-1", domain.RoleStaff)

	w := s.do(t, http.MethodPost, "/v1/threads", studentTok, map[string]any{
		"context_type": "resource",
		"context_id":   res.ID,
		"receiver_id":  "staff-1",
		"content":      "hello",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var started struct {
		ThreadID     string      `json:"thread_id"`
		FirstMessage messageJSON `json:"first_message"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &started))

	s.clk.Advance(time.Second)
	w = s.do(t, http.MethodPost, "/v1/threads/"+started.ThreadID+"/messages", staffTok,
		map[string]any{"content": "hello back"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	// missing ts is a client error
	w = s.do(t, http.MethodGet, "/v1/threads/"+started.ThreadID+"/messages/since", studentTok, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// cutoff at the first message: only the reply comes back
	since := fmt.Sprintf("/v1/threads/%s/messages/since?ts=%s",
		started.ThreadID, started.FirstMessage.Timestamp)
	w = s.do(t, http.MethodGet, since, studentTok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var batch []messageJSON
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &batch))
	require.Len(t, batch, 1)
	assert.Equal(t, "hello back", batch[0].Content)

	// caught up: empty array, still 200
	w = s.do(t, http.MethodGet, fmt.Sprintf("/v1/threads/%s/messages/since?ts=%s",
		started.ThreadID, batch[0].Timestamp), studentTok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &batch))
	assert.Empty(t, batch)

	// strangers cannot poll the thread
	w = s.do(t, http.MethodGet, since, s.token(t, "mallory", domain.RoleStudent), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}
