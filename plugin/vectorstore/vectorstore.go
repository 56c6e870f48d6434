package vectorstore

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	chromem "github.com/philippgille/chromem-go"
	"github.com/pkg/errors"
)

const snippetLength = 200

// SearchResult is a single semantic-search hit.
type SearchResult struct {
	ConversationID string
	Snippet        string
	Score          float32
}

// Store wraps chromem-go with per-user conversation collections.
type Store struct {
	mu      sync.RWMutex
	db      *chromem.DB
	embedFn chromem.EmbeddingFunc
}

// New opens the persistent vector store at dataDir/vectorstore/.
// An empty dataDir keeps everything in memory.
func New(dataDir string, embedFunc chromem.EmbeddingFunc) (*Store, error) {
	if dataDir == "" {
		return &Store{db: chromem.NewDB(), embedFn: embedFunc}, nil
	}
	dir := filepath.Join(dataDir, "vectorstore")
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, errors.Wrap(err, "failed to create vectorstore dir")
	}
	db, err := chromem.NewPersistentDB(dir, false)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open vectorstore")
	}
	return &Store{db: db, embedFn: embedFunc}, nil
}

func collectionName(userID string) string {
	return "user_" + userID + "_conversations"
}

func (s *Store) collection(userID string) (*chromem.Collection, error) {
	col, err := s.db.GetOrCreateCollection(collectionName(userID), nil, s.embedFn)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open collection for user %s", userID)
	}
	return col, nil
}

// IndexConversation indexes (or re-indexes) a transcript for its owner.
func (s *Store) IndexConversation(ctx context.Context, userID, conversationID, text string) error {
	if text == "" {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	col, err := s.collection(userID)
	if err != nil {
		return err
	}
	return col.AddDocument(ctx, chromem.Document{
		ID:      conversationID,
		Content: text,
	})
}

// DeleteConversation drops a transcript from its owner's collection.
func (s *Store) DeleteConversation(ctx context.Context, userID, conversationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	col, err := s.collection(userID)
	if err != nil {
		return err
	}
	return col.Delete(ctx, nil, nil, conversationID)
}

// SearchSimilar returns the user's top-k conversations most similar to the query.
func (s *Store) SearchSimilar(ctx context.Context, userID, query string, k int) ([]SearchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	col, err := s.collection(userID)
	if err != nil {
		return nil, err
	}
	count := col.Count()
	if count == 0 || k <= 0 {
		return []SearchResult{}, nil
	}
	if k > count {
		k = count
	}

	var results []chromem.Result
	// Query can still reject k right after a concurrent delete; step down.
	for attemptK := k; attemptK > 0; attemptK-- {
		results, err = col.Query(ctx, query, attemptK, nil, nil)
		if err == nil {
			break
		}
		slog.Debug("vector query failed, retrying with fewer results", "k", attemptK, "err", err)
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to query vectorstore")
	}

	out := make([]SearchResult, 0, len(results))
	for _, r := range results {
		snippet := []rune(r.Content)
		if len(snippet) > snippetLength {
			snippet = snippet[:snippetLength]
		}
		out = append(out, SearchResult{
			ConversationID: r.ID,
			Snippet:        string(snippet),
			Score:          r.Similarity,
		})
	}
	return out, nil
}
