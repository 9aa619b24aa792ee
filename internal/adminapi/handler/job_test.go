package handler_test

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/chronoflow/scheduler/internal/adminapi/handler"
	"github.com/chronoflow/scheduler/internal/scheduler"
	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestEngine() (*gin.Engine, *scheduler.Scheduler) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	sched := scheduler.New(scheduler.WithLogger(logger))
	h := handler.NewJobHandler(sched, logger)

	r := gin.New()
	r.POST("/jobs", h.Create)
	r.GET("/jobs", h.List)
	r.GET("/jobs/:id", h.GetByID)
	r.DELETE("/jobs/:id", h.Remove)
	r.POST("/jobs/:id/pause", h.Pause)
	r.POST("/jobs/:id/resume", h.Resume)
	r.POST("/jobs/:id/reschedule", h.Reschedule)
	return r, sched
}

func TestCreate_InvalidJSON_Returns400(t *testing.T) {
	r, _ := newTestEngine()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/jobs", strings.NewReader(`{bad json}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestCreate_MissingRegistryName_Returns400(t *testing.T) {
	r, _ := newTestEngine()
	w := httptest.NewRecorder()
	body := `{"trigger":{"kind":"date","at":"2026-01-01T00:00:00Z"}}`
	req := httptest.NewRequest(http.MethodPost, "/jobs", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestCreate_InvalidTriggerSpec_Returns400(t *testing.T) {
	r, _ := newTestEngine()
	w := httptest.NewRecorder()
	body := `{"registry_name":"demo.echo","trigger":{"kind":"interval","period_seconds":0}}`
	req := httptest.NewRequest(http.MethodPost, "/jobs", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestCreate_Success_Returns201WithID(t *testing.T) {
	r, _ := newTestEngine()
	w := httptest.NewRecorder()
	body := `{"registry_name":"demo.echo","trigger":{"kind":"interval","period_seconds":60}}`
	req := httptest.NewRequest(http.MethodPost, "/jobs", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201, body=%s", w.Code, w.Body.String())
	}
	var got struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if got.ID == "" {
		t.Fatal("expected a non-empty job id")
	}
}

func TestCreate_ConflictingID_Returns409(t *testing.T) {
	r, _ := newTestEngine()
	body := `{"id":"dup","registry_name":"demo.echo","trigger":{"kind":"interval","period_seconds":60}}`

	w1 := httptest.NewRecorder()
	req1 := httptest.NewRequest(http.MethodPost, "/jobs", strings.NewReader(body))
	req1.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w1, req1)
	if w1.Code != http.StatusCreated {
		t.Fatalf("first create status = %d, want 201", w1.Code)
	}

	w2 := httptest.NewRecorder()
	req2 := httptest.NewRequest(http.MethodPost, "/jobs", strings.NewReader(body))
	req2.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w2, req2)
	if w2.Code != http.StatusConflict {
		t.Fatalf("second create status = %d, want 409", w2.Code)
	}
}

func TestGetByID_NotFound_Returns404(t *testing.T) {
	r, _ := newTestEngine()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/jobs/missing", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestPauseThenResume_RoundTrip(t *testing.T) {
	r, _ := newTestEngine()

	createBody := `{"id":"j1","registry_name":"demo.echo","trigger":{"kind":"interval","period_seconds":60}}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/jobs", strings.NewReader(createBody))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d, want 201", w.Code)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/jobs/j1/pause", nil))
	if w.Code != http.StatusNoContent {
		t.Fatalf("pause status = %d, want 204", w.Code)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/jobs/j1", nil))
	if !strings.Contains(w.Body.String(), `"NextRunTime":null`) {
		t.Errorf("expected paused job to report a null NextRunTime, got %s", w.Body.String())
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/jobs/j1/resume", nil))
	if w.Code != http.StatusNoContent {
		t.Fatalf("resume status = %d, want 204", w.Code)
	}
}

func TestRemove_NotFound_Returns404(t *testing.T) {
	r, _ := newTestEngine()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodDelete, "/jobs/missing", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}
