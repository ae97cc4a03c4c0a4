package reports

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/campus-safety/dispatch/core/fleet"
	"github.com/campus-safety/dispatch/core/ledger"
	"github.com/campus-safety/dispatch/core/report"
)

func TestReportEndpoint(t *testing.T) {
	reg := fleet.NewRegistry(fleet.NewMemoryStore())
	led := ledger.NewLedger(ledger.NewMemoryStore())
	h := NewHandler(report.NewGenerator(led, reg))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest("GET", "/api/reports", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status %d", rr.Code)
	}
	var out report.Report
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.AverageDuration != "0 min 0 sec" || out.BusiestAmbulance != "N/A" {
		t.Fatalf("unexpected report %#v", out)
	}
}

func TestReportEndpointMethod(t *testing.T) {
	reg := fleet.NewRegistry(fleet.NewMemoryStore())
	led := ledger.NewLedger(ledger.NewMemoryStore())
	h := NewHandler(report.NewGenerator(led, reg))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest("POST", "/api/reports", nil))
	if rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status %d", rr.Code)
	}
}
