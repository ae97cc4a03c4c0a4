package report

import (
	"fmt"

	"github.com/campus-safety/dispatch/core/fleet"
	"github.com/campus-safety/dispatch/core/ledger"
	"github.com/campus-safety/dispatch/core/model"
)

// Report aggregates dispatch statistics derived from the ledger. It is a
// best-effort snapshot: concurrent dispatch activity may land between the
// individual queries.
type Report struct {
	TotalRequests     int    `json:"total_requests"`
	CompletedRequests int    `json:"completed_requests"`
	PendingRequests   int    `json:"pending_requests"`
	AssignedRequests  int    `json:"assigned_requests"`
	AverageDuration   string `json:"average_duration"`
	BusiestAmbulance  string `json:"busiest_ambulance"`
}

const defaultDuration = "0 min 0 sec"

// Generator derives reports from the ledger, resolving ambulance ids
// against the registry for display.
type Generator struct {
	ledger   *ledger.Ledger
	registry *fleet.Registry
}

// NewGenerator creates a report generator.
func NewGenerator(led *ledger.Ledger, reg *fleet.Registry) *Generator {
	return &Generator{ledger: led, registry: reg}
}

// Generate computes the current report. Read-only.
func (g *Generator) Generate() Report {
	return Report{
		TotalRequests:     g.ledger.Count(),
		CompletedRequests: g.ledger.CountByStatus(model.RequestCompleted),
		PendingRequests:   g.ledger.CountByStatus(model.RequestPending),
		AssignedRequests:  g.ledger.CountByStatus(model.RequestAssigned),
		AverageDuration:   g.averageDuration(),
		BusiestAmbulance:  g.busiestAmbulance(),
	}
}

// averageDuration is the mean over completed requests carrying both
// timestamps, formatted as whole minutes and seconds.
func (g *Generator) averageDuration() string {
	completed := g.ledger.CompletedWithDurations()
	if len(completed) == 0 {
		return defaultDuration
	}
	var totalSeconds int64
	for _, r := range completed {
		d, _ := r.Duration()
		totalSeconds += int64(d.Seconds())
	}
	avg := totalSeconds / int64(len(completed))
	return fmt.Sprintf("%d min %d sec", avg/60, avg%60)
}

func (g *Generator) busiestAmbulance() string {
	id, count, ok := g.ledger.BusiestAmbulance()
	if !ok {
		return "N/A"
	}
	if a, found := g.registry.Get(id); found {
		return fmt.Sprintf("%s (%d requests)", a.VehicleNo, count)
	}
	return fmt.Sprintf("Ambulance ID %d (%d requests)", id, count)
}
