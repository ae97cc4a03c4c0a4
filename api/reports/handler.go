package reports

import (
	"encoding/json"
	"net/http"

	"github.com/campus-safety/dispatch/core/report"
)

// NewHandler exposes the operations report via GET /api/reports.
func NewHandler(gen *report.Generator) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(gen.Generate()); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	})
}
