// Package completion abstracts the language-model backend. The service
// accepts role-tagged messages plus optional tool declarations and returns
// text and/or tool-call requests. It is invoked up to twice per chat turn:
// once with tools enabled and once to narrate tool outcomes.
package completion

import (
	"context"
	"encoding/json"
	"errors"
)

// ErrUpstream marks completion-service failures (unreachable backend,
// malformed response). Callers abort the chat turn on this error.
var ErrUpstream = errors.New("completion service error")

// Message is one conversation entry. Exactly one of the optional fields is
// set: ToolCalls on an assistant turn that requested tools, ToolResults on
// a user turn carrying tool outcomes back to the model.
type Message struct {
	Role        string
	Content     string
	ToolCalls   []ToolCall
	ToolResults []ToolResult
}

// ToolCall is a structured request from the model to run a named tool.
type ToolCall struct {
	ID   string
	Name string
	Args json.RawMessage
}

// ToolResult feeds a tool outcome back to the model for narration.
type ToolResult struct {
	CallID  string
	Content string
	IsError bool
}

// Tool declares a callable operation to the model.
type Tool struct {
	Name        string
	Description string
	InputSchema map[string]any
}

// Request is one completion call.
type Request struct {
	System    string
	Messages  []Message
	Tools     []Tool
	MaxTokens int64
}

// Response carries the model's reply.
type Response struct {
	Text      string
	ToolCalls []ToolCall
}

// Client is implemented by completion backends.
type Client interface {
	Complete(ctx context.Context, req *Request) (*Response, error)
}
