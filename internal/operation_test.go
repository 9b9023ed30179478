package internal

import (
	"testing"
	"time"

	"github.com/nalgeon/be"
)

func TestRegisterStartsPending(t *testing.T) {
	m := NewMonitor(nil)
	defer m.Shutdown()

	id := m.Register("cargo_build", "cargo build", "/tmp", []string{"cargo", "build"})
	view, err := m.Get(id)
	be.Err(t, err, nil)
	be.Equal(t, view.State, OperationPending)
}

func TestMarkRunningThenComplete(t *testing.T) {
	m := NewMonitor(nil)
	defer m.Shutdown()

	id := m.Register("cargo_build", "cargo build", "/tmp", []string{"cargo", "build"})
	be.Err(t, m.MarkRunning(id, time.Minute), nil)

	view, err := m.Get(id)
	be.Err(t, err, nil)
	be.Equal(t, view.State, OperationRunning)

	be.Err(t, m.Complete(id, 0, "out", ""), nil)
	view, err = m.Get(id)
	be.Err(t, err, nil)
	be.Equal(t, view.State, OperationCompleted)
	be.Equal(t, view.Result.Stdout, "out")
}

func TestCompleteNonZeroExitIsFailed(t *testing.T) {
	m := NewMonitor(nil)
	defer m.Shutdown()

	id := m.Register("cargo_test", "cargo test", "/tmp", []string{"cargo", "test"})
	be.Err(t, m.MarkRunning(id, time.Minute), nil)
	be.Err(t, m.Complete(id, 1, "", "boom"), nil)

	view, err := m.Get(id)
	be.Err(t, err, nil)
	be.Equal(t, view.State, OperationFailed)
}

func TestTerminalTransitionIsOneWay(t *testing.T) {
	m := NewMonitor(nil)
	defer m.Shutdown()

	id := m.Register("cargo_build", "cargo build", "/tmp", []string{"cargo", "build"})
	be.Err(t, m.MarkRunning(id, time.Minute), nil)
	be.Err(t, m.Complete(id, 0, "first", ""), nil)

	// A second terminal transition must be a no-op: the result must not change.
	be.Err(t, m.Complete(id, 1, "second", ""), nil)

	view, err := m.Get(id)
	be.Err(t, err, nil)
	be.Equal(t, view.State, OperationCompleted)
	be.Equal(t, view.Result.Stdout, "first")
}

func TestCancelIsIdempotentAndFiresSignal(t *testing.T) {
	m := NewMonitor(nil)
	defer m.Shutdown()

	id := m.Register("cargo_run", "cargo run", "/tmp", []string{"cargo", "run"})
	be.Err(t, m.MarkRunning(id, time.Minute), nil)

	op, err := m.find(id)
	be.Err(t, err, nil)

	be.Err(t, m.Cancel(id, "user requested"), nil)
	select {
	case <-op.CancelSignal():
	case <-time.After(time.Second):
		t.Fatal("cancel signal never fired")
	}

	be.Err(t, m.Cancel(id, "again"), nil)
	view, err := m.Get(id)
	be.Err(t, err, nil)
	be.Equal(t, view.State, OperationCancelled)
	be.Equal(t, view.Result.ErrorMsg, "user requested")
}

func TestTimeOutTransitionsAndFiresCancel(t *testing.T) {
	m := NewMonitor(nil)
	defer m.Shutdown()

	id := m.Register("cargo_build", "cargo build", "/tmp", []string{"cargo", "build"})
	be.Err(t, m.MarkRunning(id, 10*time.Millisecond), nil)

	deadline := time.Now().Add(time.Second)
	view, err := m.Wait(id, deadline)
	be.Err(t, err, nil)
	be.Equal(t, view.State, OperationTimedOut)

	op, err := m.find(id)
	be.Err(t, err, nil)
	select {
	case <-op.CancelSignal():
	default:
		t.Fatal("cancel signal not fired on timeout")
	}
}

func TestWaitTimesOutWithoutTerminating(t *testing.T) {
	m := NewMonitor(nil)
	defer m.Shutdown()

	id := m.Register("cargo_run", "cargo run", "/tmp", []string{"cargo", "run"})
	be.Err(t, m.MarkRunning(id, time.Minute), nil)

	_, err := m.Wait(id, time.Now().Add(20*time.Millisecond))
	be.Err(t, err, ErrWaitTimeout)

	view, getErr := m.Get(id)
	be.Err(t, getErr, nil)
	be.Equal(t, view.State, OperationRunning)
}

func TestWaitAllReturnsPartialResultsOnDeadline(t *testing.T) {
	m := NewMonitor(nil)
	defer m.Shutdown()

	done := m.Register("cargo_build", "cargo build", "/tmp", []string{"cargo", "build"})
	be.Err(t, m.MarkRunning(done, time.Minute), nil)
	be.Err(t, m.Complete(done, 0, "ok", ""), nil)

	stillRunning := m.Register("cargo_run", "cargo run", "/tmp", []string{"cargo", "run"})
	be.Err(t, m.MarkRunning(stillRunning, time.Minute), nil)

	results := m.WaitAll([]string{done, stillRunning}, time.Now().Add(20*time.Millisecond))
	be.Err(t, results[done].Err, nil)
	be.Equal(t, results[done].View.State, OperationCompleted)
	be.Err(t, results[stillRunning].Err, ErrWaitTimeout)
}

func TestGetUnknownIDReturnsNotFound(t *testing.T) {
	m := NewMonitor(nil)
	defer m.Shutdown()

	_, err := m.Get("op_does_not_exist_1")
	be.Err(t, err, ErrNotFound)
}

func TestListFiltersByStateAndDirectory(t *testing.T) {
	m := NewMonitor(nil)
	defer m.Shutdown()

	a := m.Register("cargo_build", "cargo build", "/tmp/a", []string{"cargo", "build"})
	b := m.Register("cargo_build", "cargo build", "/tmp/b", []string{"cargo", "build"})
	be.Err(t, m.MarkRunning(a, time.Minute), nil)
	be.Err(t, m.Complete(a, 0, "", ""), nil)
	_ = b

	completed := m.List(ListFilter{State: OperationCompleted})
	be.Equal(t, len(completed), 1)
	be.Equal(t, completed[0].ID, a)

	byDir := m.List(ListFilter{WorkingDirectory: "/tmp/b"})
	be.Equal(t, len(byDir), 1)
	be.Equal(t, byDir[0].ID, b)
}

func TestMustResultOnVanishedOperation(t *testing.T) {
	m := NewMonitor(nil)
	defer m.Shutdown()

	res := m.mustResult("op_nonexistent_99")
	be.Equal(t, res.ExitCode, -1)
	be.True(t, res.ErrorMsg != "")
}
