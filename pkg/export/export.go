package export

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"strconv"
	"time"

	"github.com/campus-safety/dispatch/core/model"
)

// WriteJSON writes the request history to w in JSON format.
func WriteJSON(w io.Writer, reqs []model.EmergencyRequest) error {
	enc := json.NewEncoder(w)
	return enc.Encode(reqs)
}

// WriteCSV writes the request history to w in CSV format.
func WriteCSV(w io.Writer, reqs []model.EmergencyRequest) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"request_id", "user_id", "ambulance_id", "status", "priority", "request_time", "start_time", "end_time", "duration_seconds"}); err != nil {
		return err
	}
	for _, r := range reqs {
		ambID := ""
		if r.AmbulanceID != nil {
			ambID = strconv.FormatInt(*r.AmbulanceID, 10)
		}
		dur := ""
		if d, ok := r.Duration(); ok {
			dur = strconv.FormatInt(int64(d/time.Second), 10)
		}
		rec := []string{
			strconv.FormatInt(r.ID, 10),
			strconv.FormatInt(r.UserID, 10),
			ambID,
			r.Status.String(),
			r.Priority.String(),
			formatTime(r.RequestTime),
			formatTimePtr(r.StartTime),
			formatTimePtr(r.EndTime),
			dur,
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}

func formatTimePtr(t *time.Time) string {
	if t == nil {
		return ""
	}
	return formatTime(*t)
}
