package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"strings"

	"github.com/lithammer/shortuuid/v4"
	"github.com/pkg/errors"

	"github.com/jamilsonokay/iam-ai-chatbot/server/agent/tool"
	"github.com/jamilsonokay/iam-ai-chatbot/store"
)

// DefaultMaxSteps caps the model steps of one turn when no limit is configured.
const DefaultMaxSteps = 8

// Turn is the input of one request/response cycle.
type Turn struct {
	ConversationID string
	Session        Session
	System         string
	Messages       []store.Message
}

// TurnResult is the transcript a finished turn committed.
type TurnResult struct {
	Messages []store.Message
	Steps    int
}

// Orchestrator drives a turn: model step, tool dispatch, repeat until the
// model answers without calling a tool, then commit.
type Orchestrator struct {
	model    Model
	executor *tool.Executor
	gateway  *Gateway
	maxSteps int
}

func NewOrchestrator(model Model, executor *tool.Executor, gateway *Gateway, maxSteps int) *Orchestrator {
	if maxSteps <= 0 {
		maxSteps = DefaultMaxSteps
	}
	return &Orchestrator{
		model:    model,
		executor: executor,
		gateway:  gateway,
		maxSteps: maxSteps,
	}
}

// Run executes a turn. Text and tool events are relayed to emitter as they happen.
// A transport failure, a cancelled context or an exhausted step budget ends the
// turn with an error and nothing is committed.
func (o *Orchestrator) Run(ctx context.Context, turn Turn, emitter Emitter) (*TurnResult, error) {
	if !turn.Session.Authenticated() {
		return nil, ErrUnauthorized
	}

	transcript, err := PrepareHistory(turn.Messages)
	if err != nil {
		return nil, err
	}
	issued := issuedCallIDs(transcript)
	tools := ToolDefinitions(o.executor.Registry())

	for step := 1; step <= o.maxSteps; step++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		slog.Debug("agent step", "conversation", turn.ConversationID, "step", step, "messages", len(transcript))

		assistant, err := o.step(ctx, ModelRequest{
			System:   turn.System,
			Messages: transcript,
			Tools:    tools,
		}, issued, emitter)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			return nil, &TransportError{Err: err}
		}
		if !assistant.IsEmpty() {
			transcript = append(transcript, assistant)
		}

		if len(assistant.ToolCalls) == 0 {
			if err := ctx.Err(); err != nil {
				slog.Info("client went away before the turn finished, skipping commit", "conversation", turn.ConversationID)
				return nil, err
			}
			if err := o.gateway.Commit(ctx, turn.ConversationID, turn.Session.UserID, transcript); err != nil {
				slog.Warn("failed to persist conversation", "conversation", turn.ConversationID, "err", err)
			}
			return &TurnResult{Messages: transcript, Steps: step}, nil
		}

		// Tools run to completion even when the client disconnects.
		toolCtx := context.WithoutCancel(ctx)
		for _, call := range assistant.ToolCalls {
			result := o.executor.Dispatch(toolCtx, tool.Call{
				ID:        call.ID,
				Name:      call.Name,
				Arguments: call.Arguments,
			}, turn.Session)
			message := ToolMessage(result)
			transcript = append(transcript, message)
			emitter.ToolResult(message)
		}
	}

	return nil, ErrMaxStepsExceeded
}

// step consumes one model stream and returns the assistant message it produced.
// Call ids are unique across the turn: a missing or reused id is replaced.
func (o *Orchestrator) step(ctx context.Context, request ModelRequest, issued map[string]bool, emitter Emitter) (store.Message, error) {
	stream, err := o.model.StreamTurn(ctx, request)
	if err != nil {
		return store.Message{}, err
	}
	defer stream.Close()

	var text strings.Builder
	var calls []store.ToolCall
	for {
		event, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return store.Message{}, err
		}
		if event.Kind == EventFinish {
			break
		}
		switch event.Kind {
		case EventText:
			if event.Text == "" {
				continue
			}
			text.WriteString(event.Text)
			emitter.Text(event.Text)
		case EventToolCall:
			call := event.ToolCall
			if call.ID == "" || issued[call.ID] {
				original := call.ID
				call.ID = shortuuid.New()
				for issued[call.ID] {
					call.ID = shortuuid.New()
				}
				if original != "" {
					slog.Debug("model reused a tool call id", "callId", original, "replacement", call.ID)
				}
			}
			issued[call.ID] = true
			call.Arguments = normalizeArguments(call.Arguments)
			calls = append(calls, call)
			emitter.ToolCall(call)
		}
	}

	return store.Message{
		Role:      store.RoleAssistant,
		Content:   text.String(),
		ToolCalls: calls,
	}, nil
}

// normalizeArguments keeps malformed argument text storable. The validator
// then rejects it as a non-object.
func normalizeArguments(raw json.RawMessage) json.RawMessage {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return json.RawMessage("{}")
	}
	if json.Valid(trimmed) {
		return json.RawMessage(trimmed)
	}
	quoted, err := json.Marshal(string(trimmed))
	if err != nil {
		return json.RawMessage("{}")
	}
	return quoted
}
