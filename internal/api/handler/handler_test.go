package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/HUI135/gc-endoscopy-room-sub001/internal/dto"
	"github.com/HUI135/gc-endoscopy-room-sub001/internal/service"
	pkgerrors "github.com/HUI135/gc-endoscopy-room-sub001/pkg/errors"
	"github.com/HUI135/gc-endoscopy-room-sub001/pkg/response"
)

func init() {
	gin.SetMode(gin.TestMode)
	dto.RegisterValidators()
}

// ═══════════════════════════════════════════════════════════
// Mock Services
// ═══════════════════════════════════════════════════════════

// ── Mock RunService ──

type mockRunService struct {
	result  *dto.RunResponse
	err     error
	called  int
	callers []string
}

func (m *mockRunService) RunShifts(_ context.Context, _ *dto.RunShiftsRequest, callerID string) (*dto.RunResponse, error) {
	m.called++
	m.callers = append(m.callers, callerID)
	return m.result, m.err
}
func (m *mockRunService) RunRooms(_ context.Context, _ *dto.RunRoomsRequest, callerID string) (*dto.RunResponse, error) {
	m.called++
	m.callers = append(m.callers, callerID)
	return m.result, m.err
}
func (m *mockRunService) ListRuns(_ context.Context, _ string) ([]dto.EngineRunResponse, error) {
	return nil, m.err
}

// ── Mock SwapService ──

type mockSwapService struct {
	result *dto.ReconcileResponse
	err    error
}

func (m *mockSwapService) Reconcile(_ context.Context, _ *dto.ReconcileRequest, _ string) (*dto.ReconcileResponse, error) {
	return m.result, m.err
}
func (m *mockSwapService) ListLogs(_ context.Context, _ *dto.SwapLogListRequest) ([]dto.SwapLogResponse, int64, error) {
	return []dto.SwapLogResponse{}, 0, m.err
}

// ── Mock ExportService ──

type mockExportService struct {
	buf      *bytes.Buffer
	filename string
	err      error
}

func (m *mockExportService) ExportMonth(_ context.Context, _ string) (*bytes.Buffer, string, error) {
	return m.buf, m.filename, m.err
}

// ── Mock ChangeRequestService ──

type mockChangeRequestService struct {
	listPerson string
	createErr  error
	cancelErr  error
}

func (m *mockChangeRequestService) Create(_ context.Context, req *dto.CreateChangeRequest, person, _ string) (*dto.ChangeRequestResponse, error) {
	if m.createErr != nil {
		return nil, m.createErr
	}
	return &dto.ChangeRequestResponse{ID: "cr-1", Person: person, Date: req.Date, Shift: req.Shift, Status: "pending"}, nil
}
func (m *mockChangeRequestService) List(_ context.Context, _, person string) ([]dto.ChangeRequestResponse, error) {
	m.listPerson = person
	return []dto.ChangeRequestResponse{}, nil
}
func (m *mockChangeRequestService) Cancel(_ context.Context, _, _, _, _ string) error {
	return m.cancelErr
}

// ── Mock FairnessService ──

type mockFairnessService struct {
	err     error
	periods []string
	items   int
}

func (m *mockFairnessService) Adjust(_ context.Context, period string, req *dto.AdjustFairnessRequest, _ string) ([]dto.FairnessResponse, error) {
	m.periods = append(m.periods, period)
	m.items += len(req.Items)
	if m.err != nil {
		return nil, m.err
	}
	return []dto.FairnessResponse{{Person: req.Items[0].Person, Version: req.Items[0].Version + 1}}, nil
}

// ═══════════════════════════════════════════════════════════
// Test Helpers
// ═══════════════════════════════════════════════════════════

func withAuth(role, name string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("user_id", "test-user-id")
		c.Set("name", name)
		c.Set("role", role)
		c.Next()
	}
}

func jsonBody(v interface{}) io.Reader {
	b, _ := json.Marshal(v)
	return bytes.NewReader(b)
}

func parseResponse(w *httptest.ResponseRecorder) response.Response {
	var resp response.Response
	json.Unmarshal(w.Body.Bytes(), &resp)
	return resp
}

func doJSON(r *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		reader = jsonBody(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// ═══════════════════════════════════════════════════════════
// RunHandler Tests
// ═══════════════════════════════════════════════════════════

func TestRunHandler_RunShifts_Success(t *testing.T) {
	mock := &mockRunService{result: &dto.RunResponse{RunID: "run-1", Month: "2025-04", Kind: "shifts"}}
	h := NewRunHandler(mock)

	r := gin.New()
	r.Use(withAuth("admin", "Admin"))
	r.POST("/runs/shifts", h.RunShifts)
	w := doJSON(r, "POST", "/runs/shifts", gin.H{"month": "2025-04", "seed": 7})

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
	if resp := parseResponse(w); resp.Code != 0 {
		t.Errorf("expected code 0, got %d", resp.Code)
	}
	if len(mock.callers) != 1 || mock.callers[0] != "test-user-id" {
		t.Errorf("callerID 未透传: %v", mock.callers)
	}
}

func TestRunHandler_RunShifts_BadMonth(t *testing.T) {
	mock := &mockRunService{}
	h := NewRunHandler(mock)

	r := gin.New()
	r.Use(withAuth("admin", "Admin"))
	r.POST("/runs/shifts", h.RunShifts)
	w := doJSON(r, "POST", "/runs/shifts", gin.H{"month": "2025/04"})

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
	if mock.called != 0 {
		t.Error("参数校验失败时不应调用 Service")
	}
}

func TestRunHandler_RunShifts_Unauthenticated(t *testing.T) {
	h := NewRunHandler(&mockRunService{})

	r := gin.New()
	r.POST("/runs/shifts", h.RunShifts)
	w := doJSON(r, "POST", "/runs/shifts", gin.H{"month": "2025-04"})

	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", w.Code)
	}
}

func TestRunHandler_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   int
	}{
		{"InvalidMonth", service.ErrInvalidMonth, 400, 22001},
		{"InProgress", service.ErrRunInProgress, 409, 22002},
		{"NoDays", service.ErrNoDayAssignments, 409, 22003},
		{"PersistFailed", fmt.Errorf("%w: day_assignments", service.ErrPersistFailed), 503, 22005},
		{"InternalError", errors.New("unknown"), 500, 50000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewRunHandler(&mockRunService{err: tt.err})

			r := gin.New()
			r.Use(withAuth("admin", "Admin"))
			r.POST("/runs/rooms", h.RunRooms)
			w := doJSON(r, "POST", "/runs/rooms", gin.H{"month": "2025-04"})

			if w.Code != tt.wantStatus {
				t.Errorf("expected status %d, got %d", tt.wantStatus, w.Code)
			}
			if resp := parseResponse(w); resp.Code != tt.wantCode {
				t.Errorf("expected code %d, got %d", tt.wantCode, resp.Code)
			}
		})
	}
}

// ═══════════════════════════════════════════════════════════
// SwapHandler Tests
// ═══════════════════════════════════════════════════════════

func TestSwapHandler_Reconcile_Unresolved(t *testing.T) {
	mock := &mockSwapService{
		result: &dto.ReconcileResponse{
			Applied:    []dto.SwapLogResponse{},
			Unresolved: []dto.WarningResponse{{Kind: "unresolved", Date: "2025-04-08", Person: "B"}},
		},
		err: service.ErrUnresolvedSwaps,
	}
	h := NewSwapHandler(mock)

	r := gin.New()
	r.Use(withAuth("admin", "Admin"))
	r.POST("/swaps/reconcile", h.Reconcile)
	w := doJSON(r, "POST", "/swaps/reconcile", gin.H{
		"month":   "2025-04",
		"shift":   "morning",
		"current": []gin.H{{"date": "2025-04-08", "persons": []string{"B"}}},
	})

	if w.Code != http.StatusConflict {
		t.Errorf("expected 409, got %d", w.Code)
	}
	resp := parseResponse(w)
	if resp.Code != 24001 || resp.Data == nil {
		t.Errorf("冲突响应应携带未解决明细: %+v", resp)
	}
}

func TestSwapHandler_Reconcile_BadShift(t *testing.T) {
	h := NewSwapHandler(&mockSwapService{})

	r := gin.New()
	r.Use(withAuth("admin", "Admin"))
	r.POST("/swaps/reconcile", h.Reconcile)
	w := doJSON(r, "POST", "/swaps/reconcile", gin.H{
		"month":   "2025-04",
		"shift":   "evening",
		"current": []gin.H{{"date": "2025-04-08", "persons": []string{"B"}}},
	})

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

// ═══════════════════════════════════════════════════════════
// ExportHandler Tests
// ═══════════════════════════════════════════════════════════

func TestExportHandler_Success(t *testing.T) {
	h := NewExportHandler(&mockExportService{buf: bytes.NewBufferString("excel content"), filename: "roster_2025-04.xlsx"})

	r := gin.New()
	r.GET("/export/:month", h.ExportMonth)
	w := doJSON(r, "GET", "/export/2025-04", nil)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
	ct := w.Header().Get("Content-Type")
	if ct != "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet" {
		t.Errorf("unexpected content type: %s", ct)
	}
	if cd := w.Header().Get("Content-Disposition"); cd == "" {
		t.Error("expected Content-Disposition header")
	}
}

func TestExportHandler_NoSchedule(t *testing.T) {
	h := NewExportHandler(&mockExportService{err: service.ErrExportNoSchedule})

	r := gin.New()
	r.GET("/export/:month", h.ExportMonth)
	w := doJSON(r, "GET", "/export/2025-04", nil)

	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}

// ═══════════════════════════════════════════════════════════
// ChangeRequestHandler Tests
// ═══════════════════════════════════════════════════════════

func TestChangeRequestHandler_Create_UsesTokenName(t *testing.T) {
	h := NewChangeRequestHandler(&mockChangeRequestService{})

	r := gin.New()
	r.Use(withAuth("staff", "Kim"))
	r.POST("/change-requests", h.Create)
	w := doJSON(r, "POST", "/change-requests", gin.H{"date": "2025-04-08", "shift": "morning"})

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", w.Code)
	}
	data, _ := json.Marshal(parseResponse(w).Data)
	var cr dto.ChangeRequestResponse
	json.Unmarshal(data, &cr)
	if cr.Person != "Kim" {
		t.Errorf("申请人应取自 JWT name，实际 %q", cr.Person)
	}
}

func TestChangeRequestHandler_Create_NotAssigned(t *testing.T) {
	h := NewChangeRequestHandler(&mockChangeRequestService{createErr: service.ErrNotAssigned})

	r := gin.New()
	r.Use(withAuth("staff", "Kim"))
	r.POST("/change-requests", h.Create)
	w := doJSON(r, "POST", "/change-requests", gin.H{"date": "2025-04-08", "shift": "morning"})

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
	if resp := parseResponse(w); resp.Code != 26002 {
		t.Errorf("expected code 26002, got %d", resp.Code)
	}
}

func TestChangeRequestHandler_Create_SlotNotAssigned(t *testing.T) {
	h := NewChangeRequestHandler(&mockChangeRequestService{createErr: service.ErrSlotNotAssigned})

	r := gin.New()
	r.Use(withAuth("staff", "Kim"))
	r.POST("/change-requests", h.Create)
	w := doJSON(r, "POST", "/change-requests", gin.H{"date": "2025-04-08", "shift": "morning", "slot_id": "08:30(4)", "counterpart": "Lee"})

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
	if resp := parseResponse(w); resp.Code != 26007 {
		t.Errorf("expected code 26007, got %d", resp.Code)
	}
}

func TestChangeRequestHandler_List_ScopesNonAdmin(t *testing.T) {
	tests := []struct {
		role, name, wantPerson string
	}{
		{"staff", "Kim", "Kim"},
		{"admin", "Admin", ""},
	}
	for _, tt := range tests {
		t.Run(tt.role, func(t *testing.T) {
			mock := &mockChangeRequestService{}
			h := NewChangeRequestHandler(mock)

			r := gin.New()
			r.Use(withAuth(tt.role, tt.name))
			r.GET("/change-requests", h.List)
			w := doJSON(r, "GET", "/change-requests?month=2025-04", nil)

			if w.Code != http.StatusOK {
				t.Fatalf("expected 200, got %d", w.Code)
			}
			if mock.listPerson != tt.wantPerson {
				t.Errorf("期望按 %q 过滤，实际 %q", tt.wantPerson, mock.listPerson)
			}
		})
	}
}

func TestChangeRequestHandler_Cancel_Forbidden(t *testing.T) {
	h := NewChangeRequestHandler(&mockChangeRequestService{cancelErr: service.ErrChangeRequestForbidden})

	r := gin.New()
	r.Use(withAuth("staff", "Lee"))
	r.DELETE("/change-requests/:id", h.Cancel)
	w := doJSON(r, "DELETE", "/change-requests/cr-1", nil)

	if w.Code != http.StatusForbidden {
		t.Errorf("expected 403, got %d", w.Code)
	}
}

// ═══════════════════════════════════════════════════════════
// FairnessHandler Tests
// ═══════════════════════════════════════════════════════════

func TestFairnessHandler_Adjust_Success(t *testing.T) {
	mock := &mockFairnessService{}
	h := NewFairnessHandler(mock)

	r := gin.New()
	r.Use(withAuth("admin", "Admin"))
	r.PUT("/fairness/:period", h.Adjust)
	w := doJSON(r, "PUT", "/fairness/2025-04", gin.H{
		"items": []gin.H{{"person": "Kim", "version": 2, "on_call_owed": 3}},
	})

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
	if len(mock.periods) != 1 || mock.periods[0] != "2025-04" || mock.items != 1 {
		t.Errorf("period 未透传: %v", mock.periods)
	}
}

func TestFairnessHandler_Adjust_BadBody(t *testing.T) {
	mock := &mockFairnessService{}
	h := NewFairnessHandler(mock)

	r := gin.New()
	r.Use(withAuth("admin", "Admin"))
	r.PUT("/fairness/:period", h.Adjust)
	w := doJSON(r, "PUT", "/fairness/2025-04", gin.H{
		"items": []gin.H{{"person": "Kim", "version": 1, "morning": -1}},
	})

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
	if len(mock.periods) != 0 {
		t.Error("参数校验失败时不应调用 Service")
	}
}

func TestFairnessHandler_Adjust_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   int
	}{
		{"StaleVersion", pkgerrors.ErrOptimisticLock, 409, 22004},
		{"InProgress", service.ErrRunInProgress, 409, 22002},
		{"InvalidMonth", service.ErrInvalidMonth, 400, 22001},
		{"InvalidAdjust", fmt.Errorf("%w: 人员 Kim 重复", service.ErrInvalidFairnessAdjust), 400, 22006},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewFairnessHandler(&mockFairnessService{err: tt.err})

			r := gin.New()
			r.Use(withAuth("admin", "Admin"))
			r.PUT("/fairness/:period", h.Adjust)
			w := doJSON(r, "PUT", "/fairness/2025-04", gin.H{"items": []gin.H{{"person": "Kim", "version": 1}}})

			if w.Code != tt.wantStatus {
				t.Errorf("expected status %d, got %d", tt.wantStatus, w.Code)
			}
			if resp := parseResponse(w); resp.Code != tt.wantCode {
				t.Errorf("expected code %d, got %d", tt.wantCode, resp.Code)
			}
		})
	}
}
