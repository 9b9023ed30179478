package internal

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"os/exec"
	"time"
)

// RunShellWorker is the entry point for a spawned worker shell process
// (invoked as `<binary> --shell-worker` by SpawnShell). It reads
// line-framed JSON commands from stdin, runs each as a direct child
// process, and writes a line-framed JSON result to stdout, one command at a
// time, for as long as stdin stays open.
func RunShellWorker(stdin io.Reader, stdout io.Writer) error {
	dec := json.NewDecoder(stdin)
	enc := json.NewEncoder(stdout)

	cwd, _ := os.Getwd()

	for {
		var cmd shellCommand
		if err := dec.Decode(&cmd); err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}

		if err := enc.Encode(runWorkerCommand(cmd, cwd)); err != nil {
			return err
		}
	}
}

func runWorkerCommand(cmd shellCommand, defaultDir string) shellResult {
	res := shellResult{ID: cmd.ID}

	if len(cmd.Command) == 0 {
		res.ExitCode = -1
		res.Stderr = "empty command"
		return res
	}

	dir := cmd.WorkingDir
	if dir == "" {
		dir = defaultDir
	}

	ctx := context.Background()
	var cancel context.CancelFunc
	if cmd.TimeoutMs > 0 {
		ctx, cancel = context.WithTimeout(ctx, time.Duration(cmd.TimeoutMs)*time.Millisecond)
		defer cancel()
	}

	ec := exec.CommandContext(ctx, cmd.Command[0], cmd.Command[1:]...)
	ec.Dir = dir
	configureProcessGroup(ec)

	var stdout, stderr bytes.Buffer
	ec.Stdout = &stdout
	ec.Stderr = &stderr

	start := time.Now()
	err := ec.Run()

	res.DurationMs = time.Since(start).Milliseconds()
	res.Stdout = stdout.String()
	res.Stderr = stderr.String()

	switch {
	case err == nil:
		res.ExitCode = 0
	case ctx.Err() == context.DeadlineExceeded:
		res.ExitCode = -1
		if res.Stderr == "" {
			res.Stderr = ErrCommandTimeout.Error()
		}
	default:
		res.ExitCode = exitCodeOf(err)
	}

	return res
}

func exitCodeOf(err error) int {
	if e, ok := err.(interface{ ExitCode() int }); ok {
		return e.ExitCode()
	}
	return -1
}
