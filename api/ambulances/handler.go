package ambulances

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/campus-safety/dispatch/core/dispatch"
	"github.com/campus-safety/dispatch/core/model"
)

type statusBody struct {
	Status    string  `json:"status"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// NewHandler exposes fleet state via /api/ambulances.
//
//	GET /api/ambulances               list the whole fleet
//	GET /api/ambulances/available     list units free for dispatch
//	GET /api/ambulances/{id}/requests list a unit's service history
//	PUT /api/ambulances/{id}/status   set status and position
func NewHandler(eng *dispatch.Engine) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/ambulances"), "/")
		switch {
		case rest == "" && r.Method == http.MethodGet:
			writeJSON(w, eng.ListAllAmbulances())
		case rest == "available" && r.Method == http.MethodGet:
			writeJSON(w, eng.FindAvailableAmbulances())
		case strings.HasSuffix(rest, "/requests") && r.Method == http.MethodGet:
			history(eng, w, strings.TrimSuffix(rest, "/requests"))
		case strings.HasSuffix(rest, "/status") && r.Method == http.MethodPut:
			setStatus(eng, w, r, strings.TrimSuffix(rest, "/status"))
		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
	})
}

func history(eng *dispatch.Engine, w http.ResponseWriter, rawID string) {
	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil {
		http.Error(w, "invalid ambulance id", http.StatusBadRequest)
		return
	}
	reqs, err := eng.FindRequestsForAmbulance(id)
	if err != nil {
		writeError(w, err)
		return
	}
	if reqs == nil {
		reqs = []model.EmergencyRequest{}
	}
	writeJSON(w, reqs)
}

func setStatus(eng *dispatch.Engine, w http.ResponseWriter, r *http.Request, rawID string) {
	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil {
		http.Error(w, "invalid ambulance id", http.StatusBadRequest)
		return
	}
	var body statusBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	status, err := model.ParseAmbulanceStatus(body.Status)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	amb, err := eng.UpdateStatusAndLocation(id, status, body.Latitude, body.Longitude)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, amb)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, dispatch.ErrAmbulanceNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, dispatch.ErrInvalidTransition):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
