package store

import (
	"context"
	"encoding/json"
)

// Role identifies the author of a message in a transcript.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// ToolCall is a tool invocation requested by an assistant message.
type ToolCall struct {
	ID        string          `json:"toolCallId"`
	Name      string          `json:"toolName"`
	Arguments json.RawMessage `json:"args,omitempty"`
}

// Message is a single entry of a conversation transcript.
type Message struct {
	Role      Role       `json:"role"`
	Content   string     `json:"content,omitempty"`
	ToolCalls []ToolCall `json:"toolCalls,omitempty"`
	// ToolCallID and ToolName are set when Role == RoleTool.
	ToolCallID string          `json:"toolCallId,omitempty"`
	ToolName   string          `json:"toolName,omitempty"`
	Result     json.RawMessage `json:"result,omitempty"`
	IsError    bool            `json:"isError,omitempty"`
}

// IsEmpty reports whether a user or assistant message carries nothing for the model.
func (m Message) IsEmpty() bool {
	switch m.Role {
	case RoleUser:
		return len(m.Content) == 0
	case RoleAssistant:
		return len(m.Content) == 0 && len(m.ToolCalls) == 0
	default:
		return false
	}
}

// Conversation is a stored chat transcript owned by a single user.
type Conversation struct {
	ID        string
	UserID    string
	Messages  []Message
	CreatedTs int64
	UpdatedTs int64
}

// FindConversation filters for ListConversations.
type FindConversation struct {
	ID     *string
	UserID *string
	Limit  *int
}

// DeleteConversation identifies the conversation to remove.
type DeleteConversation struct {
	ID string
}

// UpsertConversation creates the conversation or replaces its transcript.
// The owner of an existing conversation is never changed; an upsert from another user matches no row.
func (s *Store) UpsertConversation(ctx context.Context, upsert *Conversation) (*Conversation, error) {
	return s.driver.UpsertConversation(ctx, upsert)
}

// ListConversations lists conversations matching the filter, most recently updated first.
func (s *Store) ListConversations(ctx context.Context, find *FindConversation) ([]*Conversation, error) {
	return s.driver.ListConversations(ctx, find)
}

// GetConversation returns the first conversation matching the filter, or nil when there is none.
func (s *Store) GetConversation(ctx context.Context, find *FindConversation) (*Conversation, error) {
	list, err := s.ListConversations(ctx, find)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	return list[0], nil
}

// DeleteConversation removes a conversation. Ownership is checked by the caller.
func (s *Store) DeleteConversation(ctx context.Context, delete *DeleteConversation) error {
	return s.driver.DeleteConversation(ctx, delete)
}

// MarshalMessages encodes a transcript for storage.
func MarshalMessages(messages []Message) (string, error) {
	if messages == nil {
		messages = []Message{}
	}
	b, err := json.Marshal(messages)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// UnmarshalMessages decodes a stored transcript.
func UnmarshalMessages(raw string) ([]Message, error) {
	if raw == "" {
		return []Message{}, nil
	}
	var messages []Message
	if err := json.Unmarshal([]byte(raw), &messages); err != nil {
		return nil, err
	}
	return messages, nil
}
