package agent

import (
	"github.com/pkg/errors"

	"github.com/jamilsonokay/iam-ai-chatbot/store"
)

// PrepareHistory drops empty user and assistant messages and checks the rest:
// every role is known, every call id is unique, and every tool message answers
// exactly one earlier call.
func PrepareHistory(messages []store.Message) ([]store.Message, error) {
	out := make([]store.Message, 0, len(messages)+4)
	issued := make(map[string]bool)
	answered := make(map[string]bool)
	for i, m := range messages {
		switch m.Role {
		case store.RoleUser:
		case store.RoleAssistant:
			for _, call := range m.ToolCalls {
				if call.ID == "" {
					return nil, errors.Wrapf(ErrInvalidHistory, "message %d: tool call %q has no id", i, call.Name)
				}
				if issued[call.ID] {
					return nil, errors.Wrapf(ErrInvalidHistory, "message %d: tool call id %q is used twice", i, call.ID)
				}
				issued[call.ID] = true
			}
		case store.RoleTool:
			if !issued[m.ToolCallID] {
				return nil, errors.Wrapf(ErrInvalidHistory, "message %d: tool result %q answers no earlier call", i, m.ToolCallID)
			}
			if answered[m.ToolCallID] {
				return nil, errors.Wrapf(ErrInvalidHistory, "message %d: tool call %q is answered twice", i, m.ToolCallID)
			}
			answered[m.ToolCallID] = true
		default:
			return nil, errors.Wrapf(ErrInvalidHistory, "message %d: unknown role %q", i, m.Role)
		}
		if m.IsEmpty() {
			continue
		}
		out = append(out, m)
	}
	return out, nil
}

// issuedCallIDs collects the call ids already present in a transcript.
func issuedCallIDs(transcript []store.Message) map[string]bool {
	issued := make(map[string]bool)
	for _, m := range transcript {
		for _, call := range m.ToolCalls {
			issued[call.ID] = true
		}
	}
	return issued
}
