package requests

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/campus-safety/dispatch/core/dispatch"
	"github.com/campus-safety/dispatch/core/model"
)

type createBody struct {
	UserID         int64  `json:"user_id"`
	PatientDetails string `json:"patient_details"`
	Destination    string `json:"destination"`
	Priority       string `json:"priority"`
}

// NewHandler exposes the request lifecycle via /api/requests.
//
//	POST /api/requests              create a request and assign a unit
//	POST /api/requests/{id}/complete mark a run complete
//	GET  /api/requests?status=S     list requests, optionally by status
func NewHandler(eng *dispatch.Engine) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/requests"), "/")
		switch {
		case rest == "" && r.Method == http.MethodPost:
			create(eng, w, r)
		case rest == "" && r.Method == http.MethodGet:
			list(eng, w, r)
		case strings.HasSuffix(rest, "/complete") && r.Method == http.MethodPost:
			complete(eng, w, strings.TrimSuffix(rest, "/complete"))
		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
	})
}

func create(eng *dispatch.Engine, w http.ResponseWriter, r *http.Request) {
	var body createBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	prio, err := model.ParsePriority(body.Priority)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	req, err := eng.CreateAndAssign(body.UserID, body.PatientDetails, body.Destination, prio)
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(req)
}

func complete(eng *dispatch.Engine, w http.ResponseWriter, rawID string) {
	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil {
		http.Error(w, "invalid request id", http.StatusBadRequest)
		return
	}
	req, err := eng.CompleteRequest(id)
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(req)
}

func list(eng *dispatch.Engine, w http.ResponseWriter, r *http.Request) {
	var out []model.EmergencyRequest
	if raw := r.URL.Query().Get("status"); raw != "" {
		status, err := model.ParseRequestStatus(raw)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		out = eng.FindRequestsByStatus(status)
	} else {
		for _, s := range []model.RequestStatus{model.RequestPending, model.RequestAssigned, model.RequestCompleted} {
			out = append(out, eng.FindRequestsByStatus(s)...)
		}
	}
	if out == nil {
		out = []model.EmergencyRequest{}
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(out)
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, dispatch.ErrUserNotFound),
		errors.Is(err, dispatch.ErrRequestNotFound),
		errors.Is(err, dispatch.ErrAmbulanceNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, dispatch.ErrInvalidTransition):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
