package internal

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"
)

// ToolRequest is the Dispatcher's view of one inbound tool call, already
// decoded from the MCP tool-call arguments.
type ToolRequest struct {
	ToolName                string
	WorkingDirectory        string
	Args                    map[string]any
	EnableAsyncNotification bool
	TimeoutSecs             int
}

// ProgressEvent is what the Dispatcher emits for the Protocol Surface to
// forward as an MCP $/progress notification. Kind is "begin", "report", or
// "end"; Result is populated only for "end".
type ProgressEvent struct {
	OperationID string
	Kind        string
	Message     string
	Result      *OperationResult
}

// ProgressSink receives ProgressEvents for async operations. Implementations
// must not block for long; the Dispatcher does not retry a dropped event.
type ProgressSink func(ProgressEvent)

// DispatcherConfig mirrors the process-wide CLI overrides that affect mode
// selection and timeouts.
type DispatcherConfig struct {
	ForceSynchronous      bool
	DefaultTimeout        time.Duration
	DefaultAcquireTimeout time.Duration

	// DisabledTools rejects a tool call with ErrToolDisabled before it ever
	// reaches the catalogue or the Operation Monitor.
	DisabledTools map[string]bool
}

// Dispatcher is the glue between the Protocol Surface and the Operation
// Monitor/Shell Pool Manager: it decides sync-vs-async, builds argv from the
// tool catalogue, and drives execution to completion.
type Dispatcher struct {
	config    *DispatcherConfig
	monitor   *Monitor
	pool      *ShellPool
	catalogue []ToolSpec
}

// NewDispatcher wires a Dispatcher to its collaborators. catalogue is the
// tool set consulted for BuildArgs and the always-synchronous predicate;
// production code passes DefaultCatalogue(), tests may pass a smaller one.
func NewDispatcher(config *DispatcherConfig, monitor *Monitor, pool *ShellPool, catalogue []ToolSpec) *Dispatcher {
	if config == nil {
		config = &DispatcherConfig{DefaultTimeout: 300 * time.Second, DefaultAcquireTimeout: 30 * time.Second}
	}
	return &Dispatcher{config: config, monitor: monitor, pool: pool, catalogue: catalogue}
}

// shouldRunSynchronously implements the single mode-selection predicate: the
// process-wide override, the caller's own opt-out, or the tool's own
// always-synchronous membership.
func (d *Dispatcher) shouldRunSynchronously(req ToolRequest, spec ToolSpec) bool {
	return d.config.ForceSynchronous || !req.EnableAsyncNotification || spec.AlwaysSync
}

// Dispatch validates the request, builds argv, registers an Operation, and
// runs it synchronously or kicks off the async background path, returning
// immediately in the async case. sink is nil-safe: pass nil when there is no
// progress channel to report to (e.g. tests exercising only the inline
// result).
func (d *Dispatcher) Dispatch(ctx context.Context, req ToolRequest, sink ProgressSink) (id string, result *OperationResult, err error) {
	if d.config.DisabledTools[req.ToolName] {
		return "", nil, fmt.Errorf("%w: %s", ErrToolDisabled, req.ToolName)
	}

	spec, ok := Lookup(d.catalogue, req.ToolName)
	if !ok {
		return "", nil, fmt.Errorf("%w: unknown tool %q", ErrInvalidRequest, req.ToolName)
	}

	info, statErr := os.Stat(req.WorkingDirectory)
	if statErr != nil || !info.IsDir() {
		return "", nil, fmt.Errorf("%w: %s", ErrWorkingDirMissing, req.WorkingDirectory)
	}

	argv, err := spec.BuildArgs(req.Args)
	if err != nil {
		return "", nil, err
	}

	timeout := d.config.DefaultTimeout
	if req.TimeoutSecs > 0 {
		timeout = time.Duration(req.TimeoutSecs) * time.Second
	}

	opID := d.monitor.Register(req.ToolName, describeCommand(argv), req.WorkingDirectory, argv)

	if d.shouldRunSynchronously(req, spec) {
		res := d.run(ctx, opID, req.WorkingDirectory, argv, timeout)
		return opID, &res, nil
	}

	go d.runAsync(opID, req.WorkingDirectory, argv, timeout, sink)
	return opID, nil, nil
}

func describeCommand(argv []string) string {
	if len(argv) == 0 {
		return ""
	}
	desc := argv[0]
	for _, a := range argv[1:] {
		desc += " " + a
	}
	return desc
}

// run executes argv through the shell pool (with the retry-then-fallback
// policy on ShellCommunicationError) and finalises the Operation, racing the
// command against the Operation's own cancel signal.
func (d *Dispatcher) run(ctx context.Context, opID, dir string, argv []string, timeout time.Duration) OperationResult {
	if err := d.monitor.MarkRunning(opID, timeout); err != nil {
		return OperationResult{ExitCode: -1, ErrorMsg: err.Error()}
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	op, getErr := d.monitor.find(opID)
	if getErr != nil {
		return OperationResult{ExitCode: -1, ErrorMsg: getErr.Error()}
	}

	go func() {
		select {
		case <-op.CancelSignal():
			cancel()
		case <-runCtx.Done():
		}
	}()

	res, execErr := d.executeWithFallback(runCtx, dir, argv, timeout)

	select {
	case <-op.CancelSignal():
		// The Monitor's Cancel/TimeOut call already performed the terminal
		// transition; nothing left for run to record.
		return d.monitor.mustResult(opID)
	default:
	}

	if execErr != nil {
		_ = d.monitor.CompleteError(opID, execErr)
		return d.monitor.mustResult(opID)
	}

	_ = d.monitor.Complete(opID, res.ExitCode, res.Stdout, res.Stderr)
	return d.monitor.mustResult(opID)
}

// executeWithFallback implements the retry-once-then-one-shot-fallback
// policy: a ShellCommunicationError from the pool is retried on a freshly
// acquired shell, and a second failure falls back to a one-shot spawn
// outside the pool before the failure is reported as terminal.
func (d *Dispatcher) executeWithFallback(ctx context.Context, dir string, argv []string, timeout time.Duration) (ShellResult, error) {
	res, err := d.pool.ExecuteInTimeout(ctx, dir, argv, timeout, d.config.DefaultAcquireTimeout)
	if err == nil || !isShellCommunicationError(err) {
		return res, err
	}

	res, err = d.pool.ExecuteInTimeout(ctx, dir, argv, timeout, d.config.DefaultAcquireTimeout)
	if err == nil || !isShellCommunicationError(err) {
		return res, err
	}

	sh, spawnErr := SpawnShell(dir)
	if spawnErr != nil {
		return ShellResult{}, err
	}
	defer sh.Shutdown()
	return sh.Execute(ctx, argv, dir, timeout)
}

func isShellCommunicationError(err error) bool {
	return errors.Is(err, ErrShellCommunicationError)
}

// runAsync is the background half of the asynchronous path: it marks the
// operation running, emits a begin notification, executes, and pushes the
// terminal notification carrying the full result.
func (d *Dispatcher) runAsync(opID, dir string, argv []string, timeout time.Duration, sink ProgressSink) {
	if sink != nil {
		sink(ProgressEvent{OperationID: opID, Kind: "begin", Message: "operation started"})
	}

	result := d.run(context.Background(), opID, dir, argv, timeout)

	if sink != nil {
		sink(ProgressEvent{OperationID: opID, Kind: "end", Result: &result})
	}
}

// Cancel requests cancellation of a running or pending Operation.
func (d *Dispatcher) Cancel(id, reason string) error {
	return d.monitor.Cancel(id, reason)
}

// Wait bypasses the shell pool entirely, consulting only the Monitor.
func (d *Dispatcher) Wait(ids []string, deadline time.Time) map[string]WaitAllResult {
	return d.monitor.WaitAll(ids, deadline)
}

// Status bypasses the shell pool entirely, consulting only the Monitor.
func (d *Dispatcher) Status(filter ListFilter) []OperationView {
	return d.monitor.List(filter)
}

// PoolStats reports the Shell Pool Manager's current occupancy and
// per-shell resource usage, for the status tool's pool_usage field.
func (d *Dispatcher) PoolStats() ShellPoolStats {
	return d.pool.Stats()
}
