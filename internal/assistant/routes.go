package assistant

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
)

type queryRequest struct {
	UserID string `json:"user_id"`
	Query  string `json:"query"`
}

type confirmRequest struct {
	UserID      string `json:"user_id"`
	OperationID string `json:"operation_id"`
}

// RegisterRoutes mounts the assistant endpoints under /api/assistant.
func RegisterRoutes(r chi.Router, a *Assistant) {
	r.Route("/api/assistant", func(r chi.Router) {
		r.Post("/query", handleQuery(a))
		r.Post("/confirm", handleConfirm(a))
		r.Post("/cancel", handleCancel(a))
		r.Delete("/conversation/{userID}", handleClearConversation(a))
	})
}

func handleQuery(a *Assistant) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req queryRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID == "" {
			http.Error(w, "user_id and query are required", http.StatusBadRequest)
			return
		}
		writeJSON(w, http.StatusOK, a.Handle(r.Context(), req.UserID, req.Query))
	}
}

func handleConfirm(a *Assistant) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req confirmRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID == "" || req.OperationID == "" {
			http.Error(w, "user_id and operation_id are required", http.StatusBadRequest)
			return
		}
		writeJSON(w, http.StatusOK, a.Confirm(r.Context(), req.UserID, req.OperationID))
	}
}

func handleCancel(a *Assistant) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req confirmRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID == "" || req.OperationID == "" {
			http.Error(w, "user_id and operation_id are required", http.StatusBadRequest)
			return
		}
		writeJSON(w, http.StatusOK, a.Cancel(r.Context(), req.UserID, req.OperationID))
	}
}

func handleClearConversation(a *Assistant) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a.ClearConversation(chi.URLParam(r, "userID"))
		w.WriteHeader(http.StatusNoContent)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
