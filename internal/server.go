package internal

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// asyncHint renders the unambiguous guidance an async acknowledgement must
// carry for an LLM consumer: the operation id, that work is in progress,
// that the caller should move on, and how the result arrives.
func asyncHint(opID string) string {
	return fmt.Sprintf(
		"Operation %s is running in the background. Do not wait on it; continue with other work. "+
			"Its result will arrive as a progress notification (token=%s) whose message is the JSON-encoded result, or you can call "+
			"the wait tool with this operation id to block for it explicitly.", opID, opID)
}

// emitProgress sends a $/progress notification over sess for an async
// operation's lifecycle event: the progressToken is the operation id and the
// message is progressMessage(ev). The event's kind is not sent as a field of
// its own; an "end" event is recognisable only by its JSON result message.
func emitProgress(ctx context.Context, sess *mcp.ServerSession, ev ProgressEvent) {
	if sess == nil {
		return
	}

	params := &mcp.ProgressNotificationParams{
		ProgressToken: ev.OperationID,
		Message:       progressMessage(ev),
	}
	_ = sess.NotifyProgress(ctx, params)
}

// progressMessage renders a ProgressEvent's payload into the notification's
// Message field. The go-sdk's ProgressNotificationParams carries no
// structured result field, so the terminal "end" event's full OperationResult
// (exit code, stdout, stderr, duration, error marker) is JSON-encoded into
// Message, the same shape a synchronous call's tool response already carries
// — without it an async consumer has no way to tell success from timeout or
// cancellation over the push channel.
func progressMessage(ev ProgressEvent) string {
	if ev.Kind != "end" {
		if ev.Message != "" {
			return ev.Message
		}
		return "operation in progress"
	}
	if ev.Result == nil {
		return "operation finished"
	}
	payload, err := json.Marshal(ev.Result)
	if err != nil {
		return "operation finished"
	}
	return string(payload)
}

// textResult marshals v as the single text content item of a tool response,
// the shape every tool handler returns.
func textResult(v any) *mcp.CallToolResult {
	content, _ := json.Marshal(v)
	return &mcp.CallToolResult{Content: []mcp.Content{&mcp.TextContent{Text: string(content)}}}
}

func toArgsMap(v any) map[string]any {
	raw, _ := json.Marshal(v)
	var m map[string]any
	_ = json.Unmarshal(raw, &m)
	return m
}

// callCargoTool runs one catalogue tool through the Dispatcher and renders
// either the inline result (sync) or the async acknowledgement.
func callCargoTool(ctx context.Context, disp *Dispatcher, req *mcp.CallToolRequest, toolName, workingDir string, async bool, timeoutSecs int, rawArgs map[string]any) (*mcp.CallToolResult, CargoToolOutput, error) {
	tr := ToolRequest{
		ToolName:                toolName,
		WorkingDirectory:        workingDir,
		Args:                    rawArgs,
		EnableAsyncNotification: async,
		TimeoutSecs:             timeoutSecs,
	}

	sess := req.Session

	opID, result, err := disp.Dispatch(ctx, tr, func(ev ProgressEvent) {
		emitProgress(context.Background(), sess, ev)
	})
	if err != nil {
		return nil, CargoToolOutput{}, err
	}

	if result == nil {
		ack := CargoAsyncAck{OperationID: opID, Hint: asyncHint(opID)}
		content, _ := json.Marshal(ack)
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: string(content)}},
		}, CargoToolOutput{OperationID: opID}, nil
	}

	out := CargoToolOutput{
		OperationID: opID,
		ExitCode:    result.ExitCode,
		Stdout:      result.Stdout,
		Stderr:      result.Stderr,
		DurationMs:  result.Duration.Milliseconds(),
		Error:       result.ErrorMsg,
	}
	content, _ := json.Marshal(out)
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(content)}},
		IsError: out.ExitCode != 0,
	}, out, nil
}

// buildCargoHandler returns a typed handler for one async-capable cargo
// tool (build/test/check/clippy/run/bench/doc).
func buildCargoHandler(disp *Dispatcher, toolName string) func(context.Context, *mcp.CallToolRequest, CargoToolArgs) (*mcp.CallToolResult, CargoToolOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, args CargoToolArgs) (*mcp.CallToolResult, CargoToolOutput, error) {
		if args.WorkingDirectory == "" {
			return nil, CargoToolOutput{}, fmt.Errorf("%w: working_directory is required", ErrInvalidRequest)
		}
		return callCargoTool(ctx, disp, req, toolName, args.WorkingDirectory, args.EnableAsyncNotification, args.TimeoutSecs, toArgsMap(args))
	}
}

// buildDependencyHandler returns a typed handler for cargo_add/cargo_remove,
// always synchronous.
func buildDependencyHandler(disp *Dispatcher, toolName string) func(context.Context, *mcp.CallToolRequest, CargoDependencyArgs) (*mcp.CallToolResult, CargoToolOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, args CargoDependencyArgs) (*mcp.CallToolResult, CargoToolOutput, error) {
		if args.WorkingDirectory == "" {
			return nil, CargoToolOutput{}, fmt.Errorf("%w: working_directory is required", ErrInvalidRequest)
		}
		if args.Spec == "" {
			return nil, CargoToolOutput{}, fmt.Errorf("%w: spec is required", ErrInvalidRequest)
		}
		return callCargoTool(ctx, disp, req, toolName, args.WorkingDirectory, false, 0, toArgsMap(args))
	}
}

// buildReadOnlyHandler returns a typed handler for cargo_update/upgrade/
// tree/version/metadata, always synchronous.
func buildReadOnlyHandler(disp *Dispatcher, toolName string) func(context.Context, *mcp.CallToolRequest, CargoReadOnlyArgs) (*mcp.CallToolResult, CargoToolOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, args CargoReadOnlyArgs) (*mcp.CallToolResult, CargoToolOutput, error) {
		if args.WorkingDirectory == "" {
			return nil, CargoToolOutput{}, fmt.Errorf("%w: working_directory is required", ErrInvalidRequest)
		}
		return callCargoTool(ctx, disp, req, toolName, args.WorkingDirectory, false, 0, toArgsMap(args))
	}
}

// GetServer wires the full Protocol Surface: every cargo tool from the
// catalogue, plus the always-synchronous wait/status/cancel control tools,
// registered against an mcp.Server backed by disp.
func GetServer(version string, disp *Dispatcher) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "cargo-mcp-server",
		Title:   "Cargo MCP Server",
		Version: version,
	}, nil)

	for _, spec := range DefaultCatalogue() {
		spec := spec
		annotations := &mcp.ToolAnnotations{Title: titleFor(spec.Name)}
		switch {
		case spec.Name == "cargo_add" || spec.Name == "cargo_remove":
			annotations.DestructiveHint = ptr(true)
			tool := &mcp.Tool{Name: spec.Name, Description: spec.Description, Annotations: annotations}
			mcp.AddTool(server, tool, buildDependencyHandler(disp, spec.Name))
		case spec.AlwaysSync:
			tool := &mcp.Tool{Name: spec.Name, Description: spec.Description, Annotations: annotations}
			mcp.AddTool(server, tool, buildReadOnlyHandler(disp, spec.Name))
		default:
			annotations.OpenWorldHint = ptr(true)
			tool := &mcp.Tool{Name: spec.Name, Description: spec.Description, Annotations: annotations}
			mcp.AddTool(server, tool, buildCargoHandler(disp, spec.Name))
		}
	}

	mcp.AddTool(server, &WaitToolDef, waitHandler(disp))
	mcp.AddTool(server, &StatusToolDef, statusHandler(disp))
	mcp.AddTool(server, &CancelToolDef, cancelHandler(disp))

	return server
}

func titleFor(toolName string) string {
	return toolName
}

func ptr[T any](t T) *T {
	return &t
}
