package v1

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v5"
	"github.com/pkg/errors"

	"github.com/jamilsonokay/iam-ai-chatbot/server/agent"
	"github.com/jamilsonokay/iam-ai-chatbot/server/agent/booking"
	"github.com/jamilsonokay/iam-ai-chatbot/store"
)

type chatRequest struct {
	ID       string          `json:"id"`
	Messages []store.Message `json:"messages"`
}

type chatResponse struct {
	ID        string          `json:"id"`
	Messages  []store.Message `json:"messages"`
	CreatedTs int64           `json:"createdTs"`
	UpdatedTs int64           `json:"updatedTs"`
}

// handleChat runs one turn and streams it back as server-sent events.
func (s *APIV1Service) handleChat(c *echo.Context) error {
	if s.Orchestrator == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "AI chat is not configured (missing AI API key or model)")
	}
	user, err := s.requireAuth(c)
	if err != nil {
		return err
	}

	var req chatRequest
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.ID) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "id and messages required")
	}

	if _, err := agent.PrepareHistory(req.Messages); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx := c.Request().Context()
	if _, err := s.Gateway.Load(ctx, req.ID, user.ID); err != nil {
		switch {
		case errors.Is(err, agent.ErrNotFound):
			// First turn of a new conversation.
		case errors.Is(err, agent.ErrUnauthorized):
			return echo.NewHTTPError(http.StatusUnauthorized, "Unauthorized")
		default:
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
	}

	rw := c.Response()
	rw.Header().Set("Content-Type", "text/event-stream")
	rw.Header().Set("Cache-Control", "no-cache")
	rw.Header().Set("Connection", "keep-alive")
	rw.Header().Set("X-Accel-Buffering", "no")
	rw.WriteHeader(http.StatusOK)
	emitter := &sseEmitter{w: rw}

	slog.Info("chat turn started", "conversation", req.ID, "user", user.ID, "messages", len(req.Messages))
	result, err := s.Orchestrator.Run(ctx, agent.Turn{
		ConversationID: req.ID,
		Session:        agent.Session{UserID: user.ID, UserName: user.Name},
		System:         booking.SystemPrompt(s.now()),
		Messages:       req.Messages,
	}, emitter)
	if err != nil {
		if ctx.Err() != nil {
			slog.Info("chat turn aborted by client", "conversation", req.ID)
			return nil
		}
		slog.Error("chat turn failed", "conversation", req.ID, "err", err)
		emitter.emit("error", turnErrorMessage(err))
		return nil
	}

	slog.Info("chat turn finished", "conversation", req.ID, "steps", result.Steps, "messages", len(result.Messages))
	emitter.emit("finish", "")
	return nil
}

func turnErrorMessage(err error) string {
	var transportErr *agent.TransportError
	switch {
	case errors.As(err, &transportErr):
		return "The assistant is unavailable right now. Please try again."
	case errors.Is(err, agent.ErrMaxStepsExceeded):
		return "The assistant could not finish this request. Please try again."
	default:
		return "An error occurred while processing your request"
	}
}

func (s *APIV1Service) deleteChat(c *echo.Context) error {
	id := c.QueryParam("id")
	if id == "" {
		return echo.NewHTTPError(http.StatusNotFound, "Not Found")
	}
	user, err := s.requireAuth(c)
	if err != nil {
		return err
	}

	if err := s.Gateway.Delete(c.Request().Context(), id, user.ID); err != nil {
		switch {
		case errors.Is(err, agent.ErrNotFound):
			return echo.NewHTTPError(http.StatusNotFound, "Not Found")
		case errors.Is(err, agent.ErrUnauthorized):
			return echo.NewHTTPError(http.StatusUnauthorized, "Unauthorized")
		default:
			slog.Error("failed to delete chat", "conversation", id, "err", err)
			return echo.NewHTTPError(http.StatusInternalServerError, "An error occurred while processing your request")
		}
	}
	return c.String(http.StatusOK, "Chat deleted")
}

func (s *APIV1Service) getChat(c *echo.Context) error {
	id := c.Param("id")
	user, err := s.requireAuth(c)
	if err != nil {
		return err
	}
	conversation, err := s.Gateway.Load(c.Request().Context(), id, user.ID)
	if err != nil {
		switch {
		case errors.Is(err, agent.ErrNotFound):
			return echo.NewHTTPError(http.StatusNotFound, "Not Found")
		case errors.Is(err, agent.ErrUnauthorized):
			return echo.NewHTTPError(http.StatusUnauthorized, "Unauthorized")
		default:
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
	}
	return c.JSON(http.StatusOK, chatResponse{
		ID:        conversation.ID,
		Messages:  conversation.Messages,
		CreatedTs: conversation.CreatedTs,
		UpdatedTs: conversation.UpdatedTs,
	})
}

// sseEmitter writes turn events as `data: {json}` frames.
type sseEmitter struct {
	w http.ResponseWriter
}

func (e *sseEmitter) Text(content string) {
	e.emit("text", content)
}

func (e *sseEmitter) ToolCall(call store.ToolCall) {
	e.emitJSON("tool_call", call)
}

func (e *sseEmitter) ToolResult(message store.Message) {
	e.emitJSON("tool_result", struct {
		ToolCallID string          `json:"toolCallId"`
		ToolName   string          `json:"toolName"`
		Result     json.RawMessage `json:"result"`
		IsError    bool            `json:"isError,omitempty"`
	}{
		ToolCallID: message.ToolCallID,
		ToolName:   message.ToolName,
		Result:     message.Result,
		IsError:    message.IsError,
	})
}

func (e *sseEmitter) emit(eventType, content string) {
	frame := map[string]string{"type": eventType}
	if content != "" {
		frame["content"] = content
	}
	data, _ := json.Marshal(frame)
	e.write(data)
}

func (e *sseEmitter) emitJSON(eventType string, obj any) {
	inner, err := json.Marshal(obj)
	if err != nil {
		slog.Warn("failed to encode stream payload", "type", eventType, "err", err)
		return
	}
	data, _ := json.Marshal(map[string]json.RawMessage{
		"type":    json.RawMessage(`"` + eventType + `"`),
		"payload": inner,
	})
	e.write(data)
}

func (e *sseEmitter) write(data []byte) {
	fmt.Fprintf(e.w, "data: %s\n\n", data)
	if f, ok := e.w.(http.Flusher); ok {
		f.Flush()
	}
}
