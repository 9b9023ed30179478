package internal

import "errors"

// Error kinds from the engine's error taxonomy. Each maps to a distinct
// machine-readable marker surfaced in tool responses and progress
// notification payloads.
var (
	// ErrInvalidRequest is returned for a malformed or missing required argument.
	ErrInvalidRequest = errors.New("InvalidRequest")

	// ErrToolDisabled is returned when the named tool has been disabled by configuration.
	ErrToolDisabled = errors.New("ToolDisabled")

	// ErrWorkingDirMissing is returned when working_directory does not exist or is not a directory.
	ErrWorkingDirMissing = errors.New("WorkingDirMissing")

	// ErrPoolExhausted is returned when a shell could not be acquired before the deadline.
	ErrPoolExhausted = errors.New("PoolExhausted")

	// ErrShellSpawnFailed is returned when the underlying child process could not be launched.
	ErrShellSpawnFailed = errors.New("ShellSpawnFailed")

	// ErrShellCommunicationError is returned on I/O or framing failure on a shell's stdio.
	ErrShellCommunicationError = errors.New("ShellCommunicationError")

	// ErrCommandTimeout is returned when the external command exceeds its per-command budget.
	ErrCommandTimeout = errors.New("CommandTimeout")

	// ErrOperationTimeout is returned when the operation's own deadline fires.
	ErrOperationTimeout = errors.New("OperationTimeout")

	// ErrCancelled is returned when the operation was cancelled before completion.
	ErrCancelled = errors.New("Cancelled")

	// ErrNotFound is returned when no such operation id exists.
	ErrNotFound = errors.New("NotFound")

	// ErrWaitTimeout is returned when a wait call expires before its targets terminate.
	ErrWaitTimeout = errors.New("WaitTimeout")

	// ErrExecutionFailed marks a command that ran to completion with non-zero exit.
	// Not an engine fault; the caller should read the result payload.
	ErrExecutionFailed = errors.New("ExecutionFailed")

	// ErrPoolShutdown is returned by acquire/execute_in after Shutdown has been called.
	ErrPoolShutdown = errors.New("shell pool is shut down")
)
