package v1

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v5"

	"github.com/jamilsonokay/iam-ai-chatbot/store"
)

const (
	historyTitleLength = 60
	searchResultLimit  = 5
)

type historyEntry struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	CreatedTs int64  `json:"createdTs"`
	UpdatedTs int64  `json:"updatedTs"`
}

type searchHit struct {
	ID      string  `json:"id"`
	Snippet string  `json:"snippet"`
	Score   float32 `json:"score"`
}

// listHistory returns the caller's conversations, newest first.
func (s *APIV1Service) listHistory(c *echo.Context) error {
	user, err := s.requireAuth(c)
	if err != nil {
		return err
	}
	find := &store.FindConversation{UserID: &user.ID}
	if raw := c.QueryParam("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid limit")
		}
		find.Limit = &limit
	}
	conversations, err := s.Store.ListConversations(c.Request().Context(), find)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	resp := make([]historyEntry, 0, len(conversations))
	for _, conversation := range conversations {
		resp = append(resp, historyEntry{
			ID:        conversation.ID,
			Title:     conversationTitle(conversation.Messages),
			CreatedTs: conversation.CreatedTs,
			UpdatedTs: conversation.UpdatedTs,
		})
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *APIV1Service) searchHistory(c *echo.Context) error {
	if s.VectorStore == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "transcript search is not configured")
	}
	user, err := s.requireAuth(c)
	if err != nil {
		return err
	}
	query := strings.TrimSpace(c.QueryParam("q"))
	if query == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "q required")
	}

	results, err := s.VectorStore.SearchSimilar(c.Request().Context(), user.ID, query, searchResultLimit)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	resp := make([]searchHit, 0, len(results))
	for _, r := range results {
		resp = append(resp, searchHit{ID: r.ConversationID, Snippet: r.Snippet, Score: r.Score})
	}
	return c.JSON(http.StatusOK, resp)
}

// conversationTitle is the opening user message, shortened for the sidebar.
func conversationTitle(messages []store.Message) string {
	for _, m := range messages {
		if m.Role != store.RoleUser || m.Content == "" {
			continue
		}
		title := []rune(strings.TrimSpace(m.Content))
		if len(title) > historyTitleLength {
			return string(title[:historyTitleLength]) + "..."
		}
		return string(title)
	}
	return "New Chat"
}
