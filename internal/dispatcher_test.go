package internal

import (
	"testing"
	"time"

	"github.com/nalgeon/be"
)

func newTestDispatcher(t *testing.T, forceSync bool) *Dispatcher {
	t.Helper()
	monitor := NewMonitor(DefaultMonitorConfig())
	t.Cleanup(monitor.Shutdown)
	pool := NewShellPool(DefaultShellPoolConfig())
	t.Cleanup(pool.Shutdown)
	cfg := &DispatcherConfig{
		ForceSynchronous:      forceSync,
		DefaultTimeout:        10 * time.Second,
		DefaultAcquireTimeout: 5 * time.Second,
	}
	return NewDispatcher(cfg, monitor, pool, testCatalogue())
}

func TestDispatchSyncSuccess(t *testing.T) {
	disp := newTestDispatcher(t, false)

	opID, result, err := disp.Dispatch(t.Context(), ToolRequest{
		ToolName:         "cargo_build",
		WorkingDirectory: t.TempDir(),
	}, nil)
	be.Err(t, err, nil)
	be.True(t, opID != "")
	be.True(t, result != nil)
	be.Equal(t, result.ExitCode, 0)
}

func TestDispatchDisabledToolIsRejected(t *testing.T) {
	monitor := NewMonitor(DefaultMonitorConfig())
	defer monitor.Shutdown()
	pool := NewShellPool(DefaultShellPoolConfig())
	defer pool.Shutdown()
	disp := NewDispatcher(&DispatcherConfig{
		DefaultTimeout:        10 * time.Second,
		DefaultAcquireTimeout: 5 * time.Second,
		DisabledTools:         map[string]bool{"cargo_build": true},
	}, monitor, pool, testCatalogue())

	_, _, err := disp.Dispatch(t.Context(), ToolRequest{
		ToolName:         "cargo_build",
		WorkingDirectory: t.TempDir(),
	}, nil)
	be.Err(t, err, ErrToolDisabled)
}

func TestDispatchUnknownToolIsRejected(t *testing.T) {
	disp := newTestDispatcher(t, false)

	_, _, err := disp.Dispatch(t.Context(), ToolRequest{
		ToolName:         "cargo_nonexistent",
		WorkingDirectory: t.TempDir(),
	}, nil)
	be.True(t, err != nil)
}

func TestDispatchMissingWorkingDirectoryIsRejected(t *testing.T) {
	disp := newTestDispatcher(t, false)

	_, _, err := disp.Dispatch(t.Context(), ToolRequest{
		ToolName:         "cargo_build",
		WorkingDirectory: "/no/such/directory/at/all",
	}, nil)
	be.True(t, err != nil)
}

func TestDispatchAsyncPushesEndEvent(t *testing.T) {
	disp := newTestDispatcher(t, false)

	events := make(chan ProgressEvent, 4)
	opID, result, err := disp.Dispatch(t.Context(), ToolRequest{
		ToolName:                "cargo_run",
		WorkingDirectory:        t.TempDir(),
		EnableAsyncNotification: true,
	}, func(ev ProgressEvent) { events <- ev })
	be.Err(t, err, nil)
	be.True(t, result == nil)
	be.True(t, opID != "")

	var sawEnd bool
	deadline := time.After(3 * time.Second)
	for !sawEnd {
		select {
		case ev := <-events:
			if ev.Kind == "end" {
				sawEnd = true
				be.True(t, ev.Result != nil)
			}
		case <-deadline:
			t.Fatal("never observed an end progress event")
		}
	}
}

func TestDispatchAlwaysSyncToolIgnoresAsyncFlag(t *testing.T) {
	disp := newTestDispatcher(t, false)

	opID, result, err := disp.Dispatch(t.Context(), ToolRequest{
		ToolName:                "cargo_version",
		WorkingDirectory:        t.TempDir(),
		EnableAsyncNotification: true,
	}, nil)
	be.Err(t, err, nil)
	be.True(t, opID != "")
	be.True(t, result != nil)
}

func TestDispatchForceSynchronousOverridesAsyncRequest(t *testing.T) {
	disp := newTestDispatcher(t, true)

	_, result, err := disp.Dispatch(t.Context(), ToolRequest{
		ToolName:                "cargo_build",
		WorkingDirectory:        t.TempDir(),
		EnableAsyncNotification: true,
	}, nil)
	be.Err(t, err, nil)
	be.True(t, result != nil)
}

func TestDispatchCancelStopsRunningOperation(t *testing.T) {
	disp := newTestDispatcher(t, false)

	opID, _, err := disp.Dispatch(t.Context(), ToolRequest{
		ToolName:                "cargo_run",
		WorkingDirectory:        t.TempDir(),
		EnableAsyncNotification: true,
	}, nil)
	be.Err(t, err, nil)

	// Give the background goroutine a moment to mark the operation running.
	time.Sleep(30 * time.Millisecond)
	be.Err(t, disp.Cancel(opID, "stop"), nil)

	results := disp.Wait([]string{opID}, time.Now().Add(3*time.Second))
	entry := results[opID]
	be.Err(t, entry.Err, nil)
	be.Equal(t, entry.View.State, OperationCancelled)
}

func TestDispatchStatusListsRegisteredOperations(t *testing.T) {
	disp := newTestDispatcher(t, false)

	_, _, err := disp.Dispatch(t.Context(), ToolRequest{
		ToolName:         "cargo_build",
		WorkingDirectory: t.TempDir(),
	}, nil)
	be.Err(t, err, nil)

	views := disp.Status(ListFilter{})
	be.True(t, len(views) >= 1)
}
