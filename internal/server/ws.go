package server

import (
	"net/http"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/moneywise-app/moneywise/internal/agent"
)

// Websocket frame types emitted during a chat turn, in order: session,
// zero or more tool_result frames, then message or error.
const (
	frameSession    = "session"
	frameToolResult = "tool_result"
	frameMessage    = "message"
	frameError      = "error"
)

type wsFrame struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id,omitempty"`
	Data      any    `json:"data,omitempty"`
	Error     string `json:"error,omitempty"`
}

// wsObserver forwards turn progress as frames on the connection.
type wsObserver struct {
	conn *websocket.Conn
}

func (o *wsObserver) OnSession(sessionID string) {
	o.conn.WriteJSON(wsFrame{Type: frameSession, SessionID: sessionID})
}

func (o *wsObserver) OnToolResult(inv agent.Invocation) {
	o.conn.WriteJSON(wsFrame{Type: frameToolResult, Data: inv})
}

// handleChatSocket runs chat turns over a websocket. Each inbound frame
// is one chat request with the same shape as POST /api/chat; the reply
// is streamed as phase frames.
func (s *Server) handleChatSocket(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserID(r.Context())

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	for {
		var req chatRequest
		if err := conn.ReadJSON(&req); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Warn("websocket read failed", zap.Error(err))
			}
			return
		}

		turn, err := s.buildTurn(userID, &req)
		if err != nil {
			conn.WriteJSON(wsFrame{Type: frameError, Error: err.Error()})
			continue
		}

		if s.limiter != nil {
			if err := s.limiter.Allow(userID); err != nil {
				conn.WriteJSON(wsFrame{Type: frameError, Error: "too many chat requests, slow down"})
				continue
			}
		}

		turn.Observer = &wsObserver{conn: conn}
		result, err := s.orchestrator.ProcessTurn(r.Context(), turn)
		if err != nil {
			s.logger.Error("websocket chat turn failed", zap.Error(err))
			conn.WriteJSON(wsFrame{Type: frameError, Error: "chat turn failed"})
			continue
		}

		conn.WriteJSON(wsFrame{
			Type:      frameMessage,
			SessionID: result.SessionID,
			Data:      toChatMessageDTO(result.Message),
		})
	}
}
