package internal

import (
	"github.com/shirou/gopsutil/v4/process"
)

// ProcessSample is a best-effort CPU/memory reading for a live PID. Either
// field may be nil if the underlying platform call failed or the process
// has already exited.
type ProcessSample struct {
	CPUPercent  *float64
	MemoryBytes *uint64
}

// SampleProcess reports CPU and resident memory for pid, matching the way
// the registry's status lookup samples a running process: failures are
// swallowed per field rather than propagated, since a stale sample is less
// useful than no sample but shouldn't fail the whole status response.
func SampleProcess(pid int) ProcessSample {
	var sample ProcessSample
	if pid <= 0 {
		return sample
	}

	sysProc, err := process.NewProcess(int32(pid))
	if err != nil {
		return sample
	}
	if cpuPercent, err := sysProc.CPUPercent(); err == nil {
		sample.CPUPercent = &cpuPercent
	}
	if memInfo, err := sysProc.MemoryInfo(); err == nil {
		sample.MemoryBytes = &memInfo.RSS
	}
	return sample
}

// IsAlive reports whether pid still refers to a running process, used by
// the pool's health monitor to flag a shell whose worker process vanished
// without going through an orderly shutdown.
func IsAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	sysProc, err := process.NewProcess(int32(pid))
	if err != nil {
		return false
	}
	running, err := sysProc.IsRunning()
	return err == nil && running
}
