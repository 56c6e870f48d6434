package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/pkg/errors"
)

const notSignedInMessage = "User is not signed in to perform this action!"

// Executor runs calls against a registry. It never returns an error:
// every failure is folded into an error Result for the model to read.
type Executor struct {
	registry *Registry
}

func NewExecutor(registry *Registry) *Executor {
	return &Executor{registry: registry}
}

func (e *Executor) Registry() *Registry {
	return e.registry
}

// Dispatch resolves, validates and executes a call.
func (e *Executor) Dispatch(ctx context.Context, call Call, session Session) Result {
	descriptor, ok := e.registry.Lookup(call.Name)
	if !ok {
		return failed(call, Fail("Unknown tool: %s", call.Name))
	}
	args, err := e.registry.validator(call.Name).Validate(call.Arguments)
	if err != nil {
		slog.Debug("tool arguments rejected", "tool", call.Name, "callId", call.ID, "error", err)
		return failed(call, Fail("%s", err.Error()))
	}
	return e.Execute(ctx, descriptor, call, args, session)
}

// Execute runs the handler of an already validated call.
// Writes without an identity are refused before the handler is reached.
func (e *Executor) Execute(ctx context.Context, descriptor Descriptor, call Call, args Args, session Session) (result Result) {
	if descriptor.SideEffect == ExternalWrite && !session.Authenticated() {
		return failed(call, Fail(notSignedInMessage))
	}

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			slog.Error("tool handler panicked", "tool", call.Name, "callId", call.ID, "panic", r)
			result = failed(call, Fail("Tool %s failed unexpectedly", call.Name))
		}
		slog.Debug("tool executed", "tool", call.Name, "callId", call.ID, "isError", result.IsError, "duration", time.Since(start))
	}()

	output, err := descriptor.Handler(ctx, args, session)
	if err != nil {
		var failure Failure
		if errors.As(err, &failure) {
			return failed(call, failure)
		}
		slog.Warn("tool handler failed", "tool", call.Name, "callId", call.ID, "error", err)
		return failed(call, Fail("%s", err.Error()))
	}
	if failure, ok := output.(Failure); ok {
		return failed(call, failure)
	}

	payload, err := json.Marshal(output)
	if err != nil {
		return failed(call, Fail("Tool %s returned an unencodable result", call.Name))
	}
	return Result{CallID: call.ID, Name: call.Name, Payload: payload}
}

func failed(call Call, failure Failure) Result {
	payload, err := json.Marshal(failure)
	if err != nil {
		payload = []byte(fmt.Sprintf(`{"error":%q}`, failure.Message))
	}
	return Result{CallID: call.ID, Name: call.Name, Payload: payload, IsError: true}
}
