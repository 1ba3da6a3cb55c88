package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/moneywise-app/moneywise/internal/completion"
	"github.com/moneywise-app/moneywise/internal/model"
	"github.com/moneywise-app/moneywise/internal/storage"
)

const (
	historyWindow   = 10
	sessionTitleLen = 100

	fallbackToolReply = "I completed your request."
	fallbackReply     = "I apologize, but I was unable to generate a response."
)

// phase is the state of a chat turn's completion protocol. Transitions run
// strictly forward; tool side effects happen only in phaseDispatchingTools,
// which is why the narration call may be defaulted but never re-runs tools.
type phase int

const (
	phaseAwaitingFirstCompletion phase = iota
	phaseDispatchingTools
	phaseAwaitingSecondCompletion
	phaseDone
)

func (p phase) String() string {
	switch p {
	case phaseAwaitingFirstCompletion:
		return "awaiting_first_completion"
	case phaseDispatchingTools:
		return "dispatching_tools"
	case phaseAwaitingSecondCompletion:
		return "awaiting_second_completion"
	default:
		return "done"
	}
}

// TurnObserver receives progress events while a turn runs. Calls are
// sequential; implementations need no locking against each other.
type TurnObserver interface {
	OnSession(sessionID string)
	OnToolResult(inv Invocation)
}

// TurnRequest is one inbound chat turn. Messages is the caller-supplied
// transcript; the last entry must be user-authored. Observer may be nil.
type TurnRequest struct {
	UserID    string
	SessionID string
	Messages  []completion.Message
	Observer  TurnObserver
}

// TurnResult is the outcome of a processed turn.
type TurnResult struct {
	SessionID   string
	Message     model.ChatMessage
	ToolResults []Invocation
}

// Orchestrator drives the two-phase completion protocol: first call with
// tools enabled, tool dispatch, second call for narration, then persistence
// of the assistant reply.
type Orchestrator struct {
	store    *storage.Store
	contexts *ContextBuilder
	registry *Registry
	executor *Executor
	client   completion.Client
	recaller Recaller
	logger   *zap.Logger
}

// NewOrchestrator wires the turn pipeline. recaller may be nil.
func NewOrchestrator(store *storage.Store, contexts *ContextBuilder, registry *Registry, executor *Executor, client completion.Client, recaller Recaller, logger *zap.Logger) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		store:    store,
		contexts: contexts,
		registry: registry,
		executor: executor,
		client:   client,
		recaller: recaller,
		logger:   logger,
	}
}

// ProcessTurn runs one full chat turn. A completion failure on either call
// aborts the turn with the user message already persisted and no assistant
// message. Tool failures never abort the turn; they are surfaced to the
// model as failed results so it can explain them conversationally.
func (o *Orchestrator) ProcessTurn(ctx context.Context, req *TurnRequest) (*TurnResult, error) {
	if len(req.Messages) == 0 {
		return nil, errors.New("messages cannot be empty")
	}
	userMessage := req.Messages[len(req.Messages)-1]
	if userMessage.Role != "user" {
		return nil, errors.New("last message must be from user")
	}

	session, err := o.resolveSession(ctx, req.UserID, req.SessionID, userMessage.Content)
	if err != nil {
		return nil, err
	}
	if req.Observer != nil {
		req.Observer.OnSession(session.ID)
	}

	if err := o.store.InsertChatMessage(ctx, &model.ChatMessage{
		SessionID: session.ID,
		Role:      "user",
		Content:   userMessage.Content,
	}); err != nil {
		return nil, err
	}

	fc, err := o.contexts.Build(ctx, req.UserID, userMessage.Content)
	if err != nil {
		// Grounding is best-effort; the turn proceeds without it.
		o.logger.Warn("financial context unavailable", zap.Error(err))
		fc = &FinancialContext{}
	}
	system := buildSystemPrompt(fc.Render())

	history := req.Messages
	if len(history) > historyWindow {
		history = history[len(history)-historyWindow:]
	}

	state := phaseAwaitingFirstCompletion
	first, err := o.client.Complete(ctx, &completion.Request{
		System:   system,
		Messages: history,
		Tools:    o.registry.CompletionTools(),
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", state, err)
	}

	var (
		invocations []Invocation
		finalText   string
	)

	if len(first.ToolCalls) == 0 {
		finalText = first.Text
		if finalText == "" {
			finalText = fallbackReply
		}
		state = phaseDone
	} else {
		state = phaseDispatchingTools
		toolResults := make([]completion.ToolResult, 0, len(first.ToolCalls))
		for _, call := range first.ToolCalls {
			result := o.dispatch(ctx, req.UserID, call)
			inv := Invocation{
				ToolName: call.Name,
				Args:     call.Args,
				Result:   result,
			}
			invocations = append(invocations, inv)
			if req.Observer != nil {
				req.Observer.OnToolResult(inv)
			}
			toolResults = append(toolResults, toCompletionResult(call, result))
		}

		state = phaseAwaitingSecondCompletion
		second, err := o.client.Complete(ctx, &completion.Request{
			System: system,
			Messages: append(append([]completion.Message{}, history...),
				completion.Message{Role: "assistant", Content: first.Text, ToolCalls: first.ToolCalls},
				completion.Message{Role: "user", ToolResults: toolResults},
			),
		})
		if err != nil {
			// The money already moved; surface the narration failure
			// without re-running tools.
			return nil, fmt.Errorf("%s: %w", state, err)
		}

		finalText = second.Text
		if finalText == "" {
			finalText = fallbackToolReply
		}
		state = phaseDone
	}

	assistant := model.ChatMessage{
		SessionID: session.ID,
		Role:      "assistant",
		Content:   finalText,
	}
	if err := o.store.InsertChatMessage(ctx, &assistant); err != nil {
		return nil, err
	}

	if o.recaller != nil {
		if err := o.recaller.RecordExchange(ctx, req.UserID, userMessage.Content, finalText); err != nil {
			o.logger.Warn("failed to record exchange", zap.Error(err))
		}
	}

	o.logger.Info("chat turn completed",
		zap.String("session_id", session.ID),
		zap.Int("tool_calls", len(invocations)))

	return &TurnResult{
		SessionID:   session.ID,
		Message:     assistant,
		ToolResults: invocations,
	}, nil
}

// dispatch validates one tool call against the registry schema and runs it.
// Unknown names and malformed arguments become failed results without
// touching the executor.
func (o *Orchestrator) dispatch(ctx context.Context, userID string, call completion.ToolCall) Result {
	def, ok := o.registry.Get(call.Name)
	if !ok {
		return failure(fmt.Sprintf("unknown tool: %s", call.Name))
	}
	if err := ValidateArgs(def.InputSchema, call.Args); err != nil {
		return failure(fmt.Sprintf("invalid arguments for %s: %v", call.Name, err))
	}
	return o.executor.Execute(ctx, userID, call.Name, call.Args)
}

func (o *Orchestrator) resolveSession(ctx context.Context, userID, sessionID, firstMessage string) (*model.ChatSession, error) {
	if sessionID == "" {
		session := &model.ChatSession{
			UserID: userID,
			Title:  truncate(firstMessage, sessionTitleLen),
		}
		if err := o.store.CreateChatSession(ctx, session); err != nil {
			return nil, err
		}
		return session, nil
	}

	session, err := o.store.GetChatSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.UserID != userID {
		return nil, fmt.Errorf("chat session %s: %w", sessionID, storage.ErrNotFound)
	}
	if err := o.store.TouchChatSession(ctx, session.ID); err != nil {
		return nil, err
	}
	return session, nil
}

// toCompletionResult renders an execution result as the tool outcome entry
// for the narration call.
func toCompletionResult(call completion.ToolCall, result Result) completion.ToolResult {
	if !result.Success {
		return completion.ToolResult{CallID: call.ID, Content: result.Error, IsError: true}
	}
	content, err := json.Marshal(result.Data)
	if err != nil {
		return completion.ToolResult{CallID: call.ID, Content: "ok"}
	}
	return completion.ToolResult{CallID: call.ID, Content: string(content)}
}
