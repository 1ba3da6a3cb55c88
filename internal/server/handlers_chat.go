package server

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/moneywise-app/moneywise/internal/agent"
	"github.com/moneywise-app/moneywise/internal/completion"
	"github.com/moneywise-app/moneywise/internal/guardrails"
	"github.com/moneywise-app/moneywise/internal/httputil"
	"github.com/moneywise-app/moneywise/internal/storage"
)

type chatRequest struct {
	SessionID string `json:"session_id"`
	Messages  []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

type chatResponse struct {
	SessionID string             `json:"session_id"`
	Message   chatMessageDTO     `json:"message"`
	ToolCalls []agent.Invocation `json:"tool_calls,omitempty"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserID(r.Context())

	var req chatRequest
	if err := httputil.Decode(r, &req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	turn, err := s.buildTurn(userID, &req)
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	if s.limiter != nil {
		if err := s.limiter.Allow(userID); err != nil {
			httputil.WriteError(w, http.StatusTooManyRequests, "too many chat requests, slow down")
			return
		}
	}

	result, err := s.orchestrator.ProcessTurn(r.Context(), turn)
	if err != nil {
		s.writeChatError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, chatResponse{
		SessionID: result.SessionID,
		Message:   toChatMessageDTO(result.Message),
		ToolCalls: result.ToolResults,
	})
}

// handleChatHistory lists the user's sessions, or the messages of one
// session when session_id is given.
func (s *Server) handleChatHistory(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserID(r.Context())
	sessionID := r.URL.Query().Get("session_id")

	if sessionID == "" {
		sessions, err := s.store.ListChatSessionsByUser(r.Context(), userID)
		if err != nil {
			s.logger.Error("failed to list chat sessions", zap.Error(err))
			httputil.WriteError(w, http.StatusInternalServerError, "internal error")
			return
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]any{"sessions": toChatSessionDTOs(sessions)})
		return
	}

	session, err := s.store.GetChatSession(r.Context(), sessionID)
	if errors.Is(err, storage.ErrNotFound) || (err == nil && session.UserID != userID) {
		httputil.WriteError(w, http.StatusNotFound, "chat session not found")
		return
	}
	if err != nil {
		s.logger.Error("failed to load chat session", zap.Error(err))
		httputil.WriteError(w, http.StatusInternalServerError, "internal error")
		return
	}

	messages, err := s.store.GetChatMessages(r.Context(), session.ID)
	if err != nil {
		s.logger.Error("failed to load chat messages", zap.Error(err))
		httputil.WriteError(w, http.StatusInternalServerError, "internal error")
		return
	}

	dtos := make([]chatMessageDTO, 0, len(messages))
	for _, m := range messages {
		dtos = append(dtos, toChatMessageDTO(m))
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"session_id": session.ID,
		"messages":   dtos,
	})
}

func (s *Server) buildTurn(userID string, req *chatRequest) (*agent.TurnRequest, error) {
	if len(req.Messages) == 0 {
		return nil, errors.New("messages cannot be empty")
	}

	messages := make([]completion.Message, 0, len(req.Messages))
	for _, m := range req.Messages {
		if m.Role != "user" && m.Role != "assistant" {
			return nil, errors.New("message role must be user or assistant")
		}
		messages = append(messages, completion.Message{Role: m.Role, Content: m.Content})
	}
	if messages[len(messages)-1].Role != "user" {
		return nil, errors.New("last message must be from user")
	}

	return &agent.TurnRequest{
		UserID:    userID,
		SessionID: req.SessionID,
		Messages:  messages,
	}, nil
}

func (s *Server) writeChatError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, guardrails.ErrRateLimited):
		httputil.WriteError(w, http.StatusTooManyRequests, "too many chat requests, slow down")
	case errors.Is(err, completion.ErrUpstream):
		s.logger.Error("completion service failed", zap.Error(err))
		httputil.WriteError(w, http.StatusBadGateway, "assistant is unavailable, try again")
	case errors.Is(err, storage.ErrNotFound):
		httputil.WriteError(w, http.StatusNotFound, "chat session not found")
	default:
		s.logger.Error("chat turn failed", zap.Error(err))
		httputil.WriteError(w, http.StatusInternalServerError, "internal error")
	}
}
