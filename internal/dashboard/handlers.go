package dashboard

import (
	"encoding/json"
	"net/http"

	"github.com/taskwise-ai/taskwise/internal/audit"
	"github.com/taskwise-ai/taskwise/internal/records"
)

// statsResponse is the JSON response for the stats endpoint.
type statsResponse struct {
	Pending    int `json:"pending"`
	InProgress int `json:"in_progress"`
	Done       int `json:"done"`
	Events     int `json:"events"`
	Notes      int `json:"notes"`
}

// recentResponse is the JSON response for the recent activity endpoint.
type recentResponse struct {
	Records []records.Record `json:"records"`
	Actions []audit.Entry    `json:"actions"`
}

func (d *Dashboard) handleStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := r.URL.Query().Get("user")
	if userID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "user is required"})
		return
	}

	var stats statsResponse
	count := func(f records.Filter) int {
		found, err := d.store.Find(ctx, f, records.FindOptions{Limit: 500})
		if err != nil {
			return 0
		}
		return len(found)
	}
	stats.Pending = count(records.Filter{UserID: userID, Status: records.StatusPending})
	stats.InProgress = count(records.Filter{UserID: userID, Status: records.StatusInProgress})
	stats.Done = count(records.Filter{UserID: userID, Status: records.StatusDone})
	stats.Events = count(records.Filter{UserID: userID, Type: records.TypeEvent})
	stats.Notes = count(records.Filter{UserID: userID, Type: records.TypeNote})

	writeJSON(w, http.StatusOK, stats)
}

func (d *Dashboard) handleRecent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := r.URL.Query().Get("user")
	if userID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "user is required"})
		return
	}

	recent, err := d.store.Find(ctx, records.Filter{UserID: userID},
		records.FindOptions{SortBy: "updated_at", Desc: true, Limit: 10})
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	var actions []audit.Entry
	if d.trail != nil {
		actions, err = d.trail.Query(ctx, audit.QueryFilter{ActorID: userID, Limit: 10})
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
	}

	if recent == nil {
		recent = []records.Record{}
	}
	if actions == nil {
		actions = []audit.Entry{}
	}

	writeJSON(w, http.StatusOK, recentResponse{
		Records: recent,
		Actions: actions,
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
