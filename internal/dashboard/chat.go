package dashboard

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/taskwise-ai/taskwise/internal/assistant"
	"github.com/taskwise-ai/taskwise/internal/records"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// chatRequest is the incoming WebSocket message format.
type chatRequest struct {
	Type        string `json:"type"` // "message", "confirm", or "cancel"
	UserID      string `json:"user_id"`
	Content     string `json:"content"`
	OperationID string `json:"operation_id"` // for confirm/cancel
}

// chatResponse is the outgoing WebSocket message format. HTML is the
// markdown reply rendered for direct insertion into the page.
type chatResponse struct {
	Type               string           `json:"type"` // "response" or "error"
	Kind               string           `json:"kind,omitempty"`
	Content            string           `json:"content"`
	HTML               string           `json:"html,omitempty"`
	Records            []records.Record `json:"records,omitempty"`
	PendingOperationID string           `json:"pending_operation_id,omitempty"`
}

func (d *Dashboard) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		d.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				d.logger.Warn("websocket read failed", zap.Error(err))
			}
			return
		}

		var req chatRequest
		if err := json.Unmarshal(msg, &req); err != nil {
			d.sendError(conn, "invalid message format")
			continue
		}
		if req.UserID == "" {
			d.sendError(conn, "user_id is required")
			continue
		}

		var resp *assistant.Response
		switch req.Type {
		case "message":
			if req.Content == "" {
				d.sendError(conn, "content is required")
				continue
			}
			resp = d.assistant.Handle(r.Context(), req.UserID, req.Content)
		case "confirm":
			resp = d.assistant.Confirm(r.Context(), req.UserID, req.OperationID)
		case "cancel":
			resp = d.assistant.Cancel(r.Context(), req.UserID, req.OperationID)
		default:
			d.sendError(conn, "unknown message type: "+req.Type)
			continue
		}

		d.sendResponse(conn, chatResponse{
			Type:               "response",
			Kind:               string(resp.Kind),
			Content:            resp.Message,
			HTML:               d.renderHTML(resp.Message),
			Records:            resp.Records,
			PendingOperationID: resp.PendingOperationID,
		})
	}
}

func (d *Dashboard) sendResponse(conn *websocket.Conn, resp chatResponse) {
	if err := conn.WriteJSON(resp); err != nil {
		d.logger.Warn("websocket write failed", zap.Error(err))
	}
}

func (d *Dashboard) sendError(conn *websocket.Conn, message string) {
	if err := conn.WriteJSON(chatResponse{Type: "error", Content: message}); err != nil {
		d.logger.Warn("websocket write failed", zap.Error(err))
	}
}
