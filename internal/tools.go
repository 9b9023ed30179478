package internal

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// WaitToolDef bypasses the shell pool entirely: it only ever consults the
// Operation Monitor.
var WaitToolDef = mcp.Tool{
	Name:        "wait",
	Description: "Wait for one or more async cargo operations to reach a terminal state, or until the timeout elapses.",
	Annotations: &mcp.ToolAnnotations{Title: "Wait"},
}

// StatusToolDef bypasses the shell pool entirely: it only ever consults the
// Operation Monitor.
var StatusToolDef = mcp.Tool{
	Name:        "status",
	Description: "List tracked cargo operations, optionally filtered by state or working directory.",
	Annotations: &mcp.ToolAnnotations{Title: "Status"},
}

// CancelToolDef bypasses the shell pool entirely: it only ever consults the
// Operation Monitor.
var CancelToolDef = mcp.Tool{
	Name:        "cancel",
	Description: "Request cancellation of a pending or running cargo operation.",
	Annotations: &mcp.ToolAnnotations{DestructiveHint: ptr(true), Title: "Cancel"},
}

func waitHandler(disp *Dispatcher) func(context.Context, *mcp.CallToolRequest, WaitArgs) (*mcp.CallToolResult, WaitOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, args WaitArgs) (*mcp.CallToolResult, WaitOutput, error) {
		if len(args.OperationIDs) == 0 {
			return nil, WaitOutput{}, fmt.Errorf("%w: operation_ids is required", ErrInvalidRequest)
		}
		timeoutSecs := args.TimeoutSecs
		if timeoutSecs <= 0 {
			timeoutSecs = 30
		}
		deadline := time.Now().Add(time.Duration(timeoutSecs) * time.Second)

		raw := disp.Wait(args.OperationIDs, deadline)
		out := WaitOutput{Results: make(map[string]WaitEntry, len(raw))}
		for id, r := range raw {
			entry := WaitEntry{}
			if r.Err != nil {
				entry.Error = r.Err.Error()
			} else {
				entry.State = string(r.View.State)
				result := r.View.Result
				entry.Result = &result
			}
			out.Results[id] = entry
		}
		return textResult(out), out, nil
	}
}

func statusHandler(disp *Dispatcher) func(context.Context, *mcp.CallToolRequest, StatusArgs) (*mcp.CallToolResult, StatusOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, args StatusArgs) (*mcp.CallToolResult, StatusOutput, error) {
		views := disp.Status(ListFilter{
			State:            OperationState(args.State),
			WorkingDirectory: args.WorkingDirectory,
		})
		sort.Slice(views, func(i, j int) bool {
			return views[i].CreatedAt.After(views[j].CreatedAt)
		})

		out := StatusOutput{Operations: make([]StatusEntry, 0, len(views))}
		for _, v := range views {
			entry := StatusEntry{
				ID:               v.ID,
				ToolName:         v.ToolName,
				Description:      v.Description,
				WorkingDirectory: v.WorkingDirectory,
				State:            string(v.State),
				CreatedAt:        v.CreatedAt.Format(time.RFC3339),
			}
			if !v.EndedAt.IsZero() {
				entry.EndedAt = v.EndedAt.Format(time.RFC3339)
			}
			out.Operations = append(out.Operations, entry)
		}

		for _, usage := range disp.PoolStats().Usage {
			out.PoolUsage = append(out.PoolUsage, ShellUsageInfo{
				WorkingDirectory: usage.WorkingDirectory,
				CPUPercent:       usage.Sample.CPUPercent,
				MemoryBytes:      usage.Sample.MemoryBytes,
			})
		}
		return textResult(out), out, nil
	}
}

func cancelHandler(disp *Dispatcher) func(context.Context, *mcp.CallToolRequest, CancelArgs) (*mcp.CallToolResult, CancelOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, args CancelArgs) (*mcp.CallToolResult, CancelOutput, error) {
		if args.OperationID == "" {
			return nil, CancelOutput{}, fmt.Errorf("%w: operation_id is required", ErrInvalidRequest)
		}
		before, err := disp.monitor.Get(args.OperationID)
		if err != nil {
			return nil, CancelOutput{}, err
		}
		wasTerminal := before.State.IsTerminal()

		reason := args.Reason
		if reason == "" {
			reason = ErrCancelled.Error()
		}
		if err := disp.Cancel(args.OperationID, reason); err != nil {
			return nil, CancelOutput{}, err
		}

		out := CancelOutput{OperationID: args.OperationID, Accepted: !wasTerminal}
		return textResult(out), out, nil
	}
}
