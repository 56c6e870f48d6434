package tool

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

func newTestExecutor(t *testing.T, calls *int) *Executor {
	t.Helper()
	count := func(context.Context, Args, Session) (any, error) {
		*calls++
		return map[string]any{"ok": true}, nil
	}
	registry, err := NewRegistry(
		Descriptor{Name: "echo", Schema: Object(String("text", "")), SideEffect: Pure, Handler: func(_ context.Context, args Args, _ Session) (any, error) {
			*calls++
			return map[string]string{"text": args.String("text")}, nil
		}},
		Descriptor{Name: "book", Schema: Object(String("flightNumber", "")), SideEffect: ExternalWrite, Handler: count},
		Descriptor{Name: "lookup", Schema: Object(), SideEffect: ExternalRead, Handler: func(context.Context, Args, Session) (any, error) {
			*calls++
			return Fail("Reservation not found"), nil
		}},
		Descriptor{Name: "explode", Schema: Object(), Handler: func(context.Context, Args, Session) (any, error) {
			*calls++
			panic("boom")
		}},
		Descriptor{Name: "broken", Schema: Object(), Handler: func(context.Context, Args, Session) (any, error) {
			*calls++
			return nil, errors.New("upstream unavailable")
		}},
	)
	require.NoError(t, err)
	return NewExecutor(registry)
}

func errorMessage(t *testing.T, result Result) string {
	t.Helper()
	require.True(t, result.IsError)
	var failure Failure
	require.NoError(t, json.Unmarshal(result.Payload, &failure))
	return failure.Message
}

func TestDispatch(t *testing.T) {
	ctx := context.Background()
	signedIn := Session{UserID: "user-a", UserName: "Ada"}

	t.Run("success", func(t *testing.T) {
		calls := 0
		result := newTestExecutor(t, &calls).Dispatch(ctx, Call{ID: "c1", Name: "echo", Arguments: json.RawMessage(`{"text":"hi"}`)}, Session{})
		require.False(t, result.IsError)
		require.Equal(t, "c1", result.CallID)
		require.Equal(t, "echo", result.Name)
		require.JSONEq(t, `{"text":"hi"}`, string(result.Payload))
		require.Equal(t, 1, calls)
	})

	t.Run("unknown tool", func(t *testing.T) {
		calls := 0
		result := newTestExecutor(t, &calls).Dispatch(ctx, Call{ID: "c1", Name: "teleport"}, signedIn)
		require.Equal(t, "Unknown tool: teleport", errorMessage(t, result))
		require.Equal(t, "c1", result.CallID)
	})

	t.Run("invalid arguments never reach the handler", func(t *testing.T) {
		calls := 0
		result := newTestExecutor(t, &calls).Dispatch(ctx, Call{ID: "c1", Name: "echo", Arguments: json.RawMessage(`{}`)}, signedIn)
		require.Contains(t, errorMessage(t, result), "text")
		require.Zero(t, calls)

		result = newTestExecutor(t, &calls).Dispatch(ctx, Call{ID: "c2", Name: "echo", Arguments: json.RawMessage(`{"text":"hi","extra":1}`)}, signedIn)
		require.Contains(t, errorMessage(t, result), "extra")
		require.Zero(t, calls)
	})

	t.Run("write without identity", func(t *testing.T) {
		calls := 0
		result := newTestExecutor(t, &calls).Dispatch(ctx, Call{ID: "c1", Name: "book", Arguments: json.RawMessage(`{"flightNumber":"UA 1"}`)}, Session{})
		require.Equal(t, "User is not signed in to perform this action!", errorMessage(t, result))
		require.Zero(t, calls)
	})

	t.Run("write with identity", func(t *testing.T) {
		calls := 0
		result := newTestExecutor(t, &calls).Dispatch(ctx, Call{ID: "c1", Name: "book", Arguments: json.RawMessage(`{"flightNumber":"UA 1"}`)}, signedIn)
		require.False(t, result.IsError)
		require.Equal(t, 1, calls)
	})

	t.Run("failure value", func(t *testing.T) {
		calls := 0
		result := newTestExecutor(t, &calls).Dispatch(ctx, Call{ID: "c1", Name: "lookup"}, signedIn)
		require.Equal(t, "Reservation not found", errorMessage(t, result))
	})

	t.Run("panic", func(t *testing.T) {
		calls := 0
		result := newTestExecutor(t, &calls).Dispatch(ctx, Call{ID: "c1", Name: "explode"}, signedIn)
		require.Equal(t, "Tool explode failed unexpectedly", errorMessage(t, result))
		require.Equal(t, "c1", result.CallID)
	})

	t.Run("handler error", func(t *testing.T) {
		calls := 0
		result := newTestExecutor(t, &calls).Dispatch(ctx, Call{ID: "c1", Name: "broken"}, signedIn)
		require.Equal(t, "upstream unavailable", errorMessage(t, result))
	})
}

func TestNewRegistryRejectsBadDescriptors(t *testing.T) {
	noop := func(context.Context, Args, Session) (any, error) { return nil, nil }

	_, err := NewRegistry(Descriptor{Name: "a", Handler: noop}, Descriptor{Name: "a", Handler: noop})
	require.Error(t, err)

	_, err = NewRegistry(Descriptor{Name: "", Handler: noop})
	require.Error(t, err)

	_, err = NewRegistry(Descriptor{Name: "a"})
	require.Error(t, err)

	_, err = NewRegistry(Descriptor{Name: "a", Handler: noop, SideEffect: "destructive"})
	require.Error(t, err)

	registry, err := NewRegistry(Descriptor{Name: "b", Handler: noop}, Descriptor{Name: "a", Handler: noop})
	require.NoError(t, err)
	descriptors := registry.Descriptors()
	require.Equal(t, "b", descriptors[0].Name)
	require.Equal(t, Pure, descriptors[0].SideEffect)
	_, ok := registry.Lookup("missing")
	require.False(t, ok)
}
