package ops

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/nhflow/flow/pkg/pagination"
)

func TestHandler_ListActivities_Paginates(t *testing.T) {
	h := newHarness(t)
	handler := NewHandler(h.eng, h.deps)
	e := echo.New()

	for i := 0; i < 3; i++ {
		pid := h.newPatient(t, fmt.Sprintf("NHS-%03d", i+1))
		h.admit(t, pid)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/activities?data_model="+ModelAdmission+"&limit=2&offset=0", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := handler.ListActivities(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp pagination.Response
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Total != 3 {
		t.Errorf("expected total 3, got %d", resp.Total)
	}
	data, ok := resp.Data.([]interface{})
	if !ok || len(data) != 2 {
		t.Fatalf("expected 2 activities in the page, got %v", resp.Data)
	}
	if !resp.HasMore {
		t.Error("expected has_more set on the first page")
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/activities?data_model="+ModelAdmission+"&limit=2&offset=2", nil)
	rec = httptest.NewRecorder()
	c = e.NewContext(req, rec)

	if err := handler.ListActivities(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	data, ok = resp.Data.([]interface{})
	if !ok || len(data) != 1 {
		t.Fatalf("expected 1 activity on the last page, got %v", resp.Data)
	}
	if resp.HasMore {
		t.Error("expected has_more cleared on the last page")
	}
}

func TestHandler_ListActivities_OffsetPastEnd(t *testing.T) {
	h := newHarness(t)
	handler := NewHandler(h.eng, h.deps)
	e := echo.New()

	pid := h.newPatient(t, "NHS-001")
	h.admit(t, pid)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/activities?data_model="+ModelAdmission+"&offset=50", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := handler.ListActivities(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var resp pagination.Response
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Total != 1 {
		t.Errorf("expected total 1, got %d", resp.Total)
	}
	if data, ok := resp.Data.([]interface{}); ok && len(data) != 0 {
		t.Errorf("expected an empty page past the end, got %d items", len(data))
	}
}
