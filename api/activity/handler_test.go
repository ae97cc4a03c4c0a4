package activity

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	coreactivity "github.com/campus-safety/dispatch/core/activity"
)

func seededLog() *coreactivity.Log {
	l := coreactivity.NewLog(10)
	base := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	l.Append(coreactivity.Entry{Time: base, Kind: coreactivity.KindQueued, RequestID: 1})
	l.Append(coreactivity.Entry{Time: base.Add(time.Minute), Kind: coreactivity.KindAssigned, RequestID: 1, AmbulanceID: 2})
	return l
}

func TestActivityHandler_All(t *testing.T) {
	h := NewHandler(seededLog())
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest("GET", "/api/activity", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status %d", rr.Code)
	}
	var out []coreactivity.Entry
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("expected 2 entries got %d", len(out))
	}
}

func TestActivityHandler_FilterKind(t *testing.T) {
	h := NewHandler(seededLog())
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest("GET", "/api/activity?kind=assigned", nil))
	var out []coreactivity.Entry
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out) != 1 || out[0].Kind != coreactivity.KindAssigned {
		t.Fatalf("unexpected filter result %#v", out)
	}
}

func TestActivityHandler_Since(t *testing.T) {
	h := NewHandler(seededLog())
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest("GET", "/api/activity?since=2025-03-01T09:00:30Z", nil))
	var out []coreactivity.Entry
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out) != 1 || out[0].RequestID != 1 || out[0].AmbulanceID != 2 {
		t.Fatalf("unexpected since result %#v", out)
	}
}

func TestActivityHandler_BadParams(t *testing.T) {
	h := NewHandler(seededLog())
	for _, target := range []string{"/api/activity?since=yesterday", "/api/activity?limit=-1"} {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest("GET", target, nil))
		if rr.Code != http.StatusBadRequest {
			t.Fatalf("%s: status %d", target, rr.Code)
		}
	}
}

func TestActivityHandler_Method(t *testing.T) {
	h := NewHandler(seededLog())
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest("POST", "/api/activity", nil))
	if rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status %d", rr.Code)
	}
}
