package mcp

import (
	"context"
	"testing"

	mcpgo "github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/require"

	"github.com/jamilsonokay/iam-ai-chatbot/server/agent/tool"
)

func newTestServer(t *testing.T, session tool.Session) (*Server, *int) {
	t.Helper()
	calls := 0
	registry, err := tool.NewRegistry(
		tool.Descriptor{
			Name:   "searchFlights",
			Schema: tool.Object(tool.String("origin", ""), tool.String("destination", "")),
			Handler: func(_ context.Context, args tool.Args, _ tool.Session) (any, error) {
				calls++
				return map[string]string{"route": args.String("origin") + "-" + args.String("destination")}, nil
			},
		},
		tool.Descriptor{
			Name:       "createReservation",
			Schema:     tool.Object(tool.String("flightNumber", "")),
			SideEffect: tool.ExternalWrite,
			Handler: func(context.Context, tool.Args, tool.Session) (any, error) {
				calls++
				return map[string]string{"id": "res-1"}, nil
			},
		},
	)
	require.NoError(t, err)
	s, err := NewServer(tool.NewExecutor(registry), session, "test")
	require.NoError(t, err)
	return s, &calls
}

func callTool(t *testing.T, s *Server, name string, args any) *mcpgo.CallToolResult {
	t.Helper()
	req := mcpgo.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args
	result, err := s.handler(name)(context.Background(), req)
	require.NoError(t, err)
	require.NotNil(t, result)
	return result
}

func resultText(t *testing.T, result *mcpgo.CallToolResult) string {
	t.Helper()
	require.Len(t, result.Content, 1)
	text, ok := result.Content[0].(mcpgo.TextContent)
	require.True(t, ok)
	return text.Text
}

func TestToolCall(t *testing.T) {
	s, calls := newTestServer(t, tool.Session{})
	result := callTool(t, s, "searchFlights", map[string]any{"origin": "SFO", "destination": "JFK"})
	require.False(t, result.IsError)
	require.JSONEq(t, `{"route":"SFO-JFK"}`, resultText(t, result))
	require.Equal(t, 1, *calls)
}

func TestToolCallValidation(t *testing.T) {
	s, calls := newTestServer(t, tool.Session{})
	result := callTool(t, s, "searchFlights", map[string]any{"origin": "SFO"})
	require.True(t, result.IsError)
	require.Equal(t, `invalid argument "destination": is required`, resultText(t, result))

	result = callTool(t, s, "searchFlights", map[string]any{"origin": "SFO", "destination": "JFK", "cabin": "first"})
	require.True(t, result.IsError)
	require.Equal(t, `invalid argument "cabin": is not allowed`, resultText(t, result))
	require.Zero(t, *calls)
}

func TestWriteToolNeedsIdentity(t *testing.T) {
	anonymous, calls := newTestServer(t, tool.Session{})
	result := callTool(t, anonymous, "createReservation", map[string]any{"flightNumber": "UA 1234"})
	require.True(t, result.IsError)
	require.Equal(t, "User is not signed in to perform this action!", resultText(t, result))
	require.Zero(t, *calls)

	signedIn, calls := newTestServer(t, tool.Session{UserID: "user-a", UserName: "Ada"})
	result = callTool(t, signedIn, "createReservation", map[string]any{"flightNumber": "UA 1234"})
	require.False(t, result.IsError)
	require.JSONEq(t, `{"id":"res-1"}`, resultText(t, result))
	require.Equal(t, 1, *calls)
}

func TestMissingArgumentsMeanEmptyObject(t *testing.T) {
	s, _ := newTestServer(t, tool.Session{})
	result := callTool(t, s, "searchFlights", nil)
	require.True(t, result.IsError)
	require.Equal(t, `invalid argument "origin": is required`, resultText(t, result))
}
