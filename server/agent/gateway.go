package agent

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/pkg/errors"

	"github.com/jamilsonokay/iam-ai-chatbot/store"
)

// Indexer keeps a searchable copy of committed transcripts.
type Indexer interface {
	IndexConversation(ctx context.Context, userID, conversationID, text string) error
	DeleteConversation(ctx context.Context, userID, conversationID string) error
}

// Gateway is the only path from a turn to durable conversation state.
type Gateway struct {
	store *store.Store
	index Indexer

	indexing sync.WaitGroup
}

// NewGateway creates a gateway. index may be nil.
func NewGateway(store *store.Store, index Indexer) *Gateway {
	return &Gateway{store: store, index: index}
}

// Commit upserts the transcript under conversationID. Anonymous transcripts are not kept.
// Indexing runs in the background, detached from ctx, and never fails the commit.
func (g *Gateway) Commit(ctx context.Context, conversationID, owner string, transcript []store.Message) error {
	if owner == "" {
		return nil
	}
	if conversationID == "" {
		return errors.New("conversation id is required")
	}
	if _, err := g.store.UpsertConversation(ctx, &store.Conversation{
		ID:       conversationID,
		UserID:   owner,
		Messages: transcript,
	}); err != nil {
		return errors.Wrapf(err, "failed to upsert conversation %s", conversationID)
	}

	if g.index != nil {
		text := TranscriptText(transcript)
		indexCtx := context.WithoutCancel(ctx)
		g.indexing.Add(1)
		go func() {
			defer g.indexing.Done()
			if err := g.index.IndexConversation(indexCtx, owner, conversationID, text); err != nil {
				slog.Warn("failed to index conversation", "conversation", conversationID, "err", err)
			}
		}()
	}
	return nil
}

// Wait blocks until background indexing started by Commit has finished.
func (g *Gateway) Wait() {
	g.indexing.Wait()
}

// Load returns the conversation if requester owns it.
func (g *Gateway) Load(ctx context.Context, conversationID, requester string) (*store.Conversation, error) {
	conversation, err := g.store.GetConversation(ctx, &store.FindConversation{ID: &conversationID})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get conversation %s", conversationID)
	}
	if conversation == nil {
		return nil, ErrNotFound
	}
	if conversation.UserID != requester {
		return nil, ErrUnauthorized
	}
	return conversation, nil
}

// Delete removes the conversation after checking that requester is its recorded owner.
func (g *Gateway) Delete(ctx context.Context, conversationID, requester string) error {
	conversation, err := g.Load(ctx, conversationID, requester)
	if err != nil {
		return err
	}
	if err := g.store.DeleteConversation(ctx, &store.DeleteConversation{ID: conversation.ID}); err != nil {
		return errors.Wrapf(err, "failed to delete conversation %s", conversationID)
	}

	if g.index != nil {
		// A commit still being indexed would otherwise re-add the conversation.
		g.indexing.Wait()
		if err := g.index.DeleteConversation(ctx, conversation.UserID, conversation.ID); err != nil {
			slog.Warn("failed to drop conversation from index", "conversation", conversationID, "err", err)
		}
	}
	return nil
}

// TranscriptText flattens the user and assistant text of a transcript for indexing.
func TranscriptText(transcript []store.Message) string {
	var sb strings.Builder
	for _, m := range transcript {
		if m.Content == "" || m.Role == store.RoleTool {
			continue
		}
		sb.WriteString(string(m.Role))
		sb.WriteString(": ")
		sb.WriteString(m.Content)
		sb.WriteString("\n")
	}
	return sb.String()
}
