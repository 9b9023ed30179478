package internal

// CargoToolArgs is the common argument shape every cargo tool accepts.
type CargoToolArgs struct {
	WorkingDirectory        string   `json:"working_directory" jsonschema:"absolute path to the cargo project to operate on"`
	Package                 string   `json:"package,omitempty" jsonschema:"restrict the operation to a single workspace package (-p)"`
	Release                 bool     `json:"release,omitempty" jsonschema:"build in release mode"`
	Args                    []string `json:"args,omitempty" jsonschema:"extra arguments appended verbatim after cargo's own flags"`
	EnableAsyncNotification bool     `json:"enable_async_notification,omitempty" jsonschema:"return immediately with an operation id and push the result via progress notification"`
	TimeoutSecs             int      `json:"timeout_secs,omitempty" jsonschema:"override the default per-command timeout, in seconds"`
}

// CargoDependencyArgs is the argument shape for cargo_add/cargo_remove.
type CargoDependencyArgs struct {
	WorkingDirectory string `json:"working_directory" jsonschema:"absolute path to the cargo project to operate on"`
	Spec             string `json:"spec" jsonschema:"the dependency spec, e.g. serde or serde@1.0"`
	Package          string `json:"package,omitempty" jsonschema:"restrict the operation to a single workspace package (-p)"`
}

// CargoReadOnlyArgs is the argument shape for cargo_update, cargo_upgrade,
// cargo_tree, cargo_version, and cargo_metadata.
type CargoReadOnlyArgs struct {
	WorkingDirectory string `json:"working_directory" jsonschema:"absolute path to the cargo project to operate on"`
	Package          string `json:"package,omitempty" jsonschema:"restrict the operation to a single workspace package (-p)"`
}

// CargoToolOutput is the common result shape returned by every cargo tool
// when it runs synchronously. The final progress notification of an
// asynchronous run carries the JSON-encoded OperationResult instead.
type CargoToolOutput struct {
	OperationID string `json:"operation_id" jsonschema:"the operation's stable identifier"`
	ExitCode    int    `json:"exit_code" jsonschema:"the process exit code, or -1 on an engine-side failure"`
	Stdout      string `json:"stdout" jsonschema:"captured standard output"`
	Stderr      string `json:"stderr" jsonschema:"captured standard error"`
	DurationMs  int64  `json:"duration_ms" jsonschema:"wall-clock duration of the command in milliseconds"`
	Error       string `json:"error,omitempty" jsonschema:"machine-readable error marker, if the operation did not complete normally"`
}

// CargoAsyncAck is returned immediately for a tool call with
// enable_async_notification=true.
type CargoAsyncAck struct {
	OperationID string `json:"operation_id" jsonschema:"the operation's stable identifier; pass this to wait or status"`
	Hint        string `json:"hint" jsonschema:"guidance for the calling model on how the result will be delivered"`
}

// WaitArgs is the argument shape for the wait control tool.
type WaitArgs struct {
	OperationIDs []string `json:"operation_ids" jsonschema:"operation ids to wait for"`
	TimeoutSecs  int      `json:"timeout_secs,omitempty" jsonschema:"how long to wait before returning partial results, in seconds (default 30)"`
}

// WaitOutput is the result of the wait control tool: one entry per
// requested id, since some may terminate and others time out.
type WaitOutput struct {
	Results map[string]WaitEntry `json:"results" jsonschema:"per-operation outcome keyed by operation id"`
}

// WaitEntry is one operation's outcome within a WaitOutput.
type WaitEntry struct {
	State  string           `json:"state" jsonschema:"the operation's state at the time wait returned"`
	Error  string           `json:"error,omitempty" jsonschema:"WaitTimeout if the deadline elapsed before this operation terminated"`
	Result *OperationResult `json:"result,omitempty" jsonschema:"the terminal result, present only if the operation reached a terminal state"`
}

// StatusArgs is the argument shape for the status control tool.
type StatusArgs struct {
	State            string `json:"state,omitempty" jsonschema:"filter by operation state: pending, running, completed, failed, cancelled, timed_out"`
	WorkingDirectory string `json:"working_directory,omitempty" jsonschema:"filter by working directory"`
}

// StatusOutput is the result of the status control tool.
type StatusOutput struct {
	Operations []StatusEntry    `json:"operations" jsonschema:"matching operations, most recently created first"`
	PoolUsage  []ShellUsageInfo `json:"pool_usage,omitempty" jsonschema:"CPU/memory sample for each currently idle worker shell"`
}

// ShellUsageInfo is one idle shell's working directory and best-effort
// resource sample, rendered for the status tool; the shell id is not included.
type ShellUsageInfo struct {
	WorkingDirectory string   `json:"working_directory"`
	CPUPercent       *float64 `json:"cpu_percent,omitempty"`
	MemoryBytes      *uint64  `json:"memory_bytes,omitempty"`
}

// StatusEntry is one operation's summary within a StatusOutput.
type StatusEntry struct {
	ID               string `json:"id" jsonschema:"operation id"`
	ToolName         string `json:"tool_name" jsonschema:"the tool that created this operation"`
	Description      string `json:"description" jsonschema:"short human-readable summary of the command"`
	WorkingDirectory string `json:"working_directory" jsonschema:"directory the command ran in"`
	State            string `json:"state" jsonschema:"current lifecycle state"`
	CreatedAt        string `json:"created_at" jsonschema:"RFC3339 creation timestamp"`
	EndedAt          string `json:"ended_at,omitempty" jsonschema:"RFC3339 completion timestamp, present only if terminal"`
}

// CancelArgs is the argument shape for the cancel control tool.
type CancelArgs struct {
	OperationID string `json:"operation_id" jsonschema:"the operation to cancel"`
	Reason      string `json:"reason,omitempty" jsonschema:"free-form reason recorded on the operation"`
}

// CancelOutput is the result of the cancel control tool.
type CancelOutput struct {
	OperationID string `json:"operation_id" jsonschema:"the operation that was cancelled"`
	Accepted    bool   `json:"accepted" jsonschema:"whether the cancel signal was posted (false if already terminal)"`
}
