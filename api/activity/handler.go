package activity

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	coreactivity "github.com/campus-safety/dispatch/core/activity"
)

// NewHandler exposes the dispatch activity log via GET /api/activity.
// Supported query parameters: kind, since (RFC3339), limit.
func NewHandler(log *coreactivity.Log) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		q := coreactivity.Query{Kind: r.URL.Query().Get("kind")}
		if s := r.URL.Query().Get("since"); s != "" {
			t, err := time.Parse(time.RFC3339, s)
			if err != nil {
				http.Error(w, "invalid since", http.StatusBadRequest)
				return
			}
			q.Since = t
		}
		if s := r.URL.Query().Get("limit"); s != "" {
			n, err := strconv.Atoi(s)
			if err != nil || n < 0 {
				http.Error(w, "invalid limit", http.StatusBadRequest)
				return
			}
			q.Limit = n
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(log.Query(q)); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	})
}
