package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/cargomcp/cargo-mcp-server/internal"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func getVersionInfo() (string, string, string) {
	if version != "dev" {
		return version, commit, date
	}

	if info, ok := debug.ReadBuildInfo(); ok {
		v := info.Main.Version
		if v == "" || v == "(devel)" {
			v = "dev"
		}

		var rev, buildTime string
		for _, setting := range info.Settings {
			switch setting.Key {
			case "vcs.revision":
				rev = setting.Value
			case "vcs.time":
				buildTime = setting.Value
			}
		}

		if rev == "" {
			rev = "unknown"
		}
		if buildTime == "" {
			buildTime = "unknown"
		}

		return v, rev, buildTime
	}

	return "dev", "unknown", "unknown"
}

func printVersion() {
	version, commit, date := getVersionInfo()
	fmt.Printf("cargo-mcp-server version %s\n", version)
	fmt.Printf("  commit: %s\n", commit)
	fmt.Printf("  built: %s\n", date)
}

// workerShellFlag is checked before flag.Parse so that re-exec'ing this
// same binary as a worker shell never has to coexist with the server's own
// flag set.
const workerShellFlag = "--shell-worker"

func main() {
	if len(os.Args) > 1 && os.Args[1] == workerShellFlag {
		if err := internal.RunShellWorker(os.Stdin, os.Stdout); err != nil {
			log.Fatalf("worker shell exited: %v", err)
		}
		return
	}

	if len(os.Args) > 1 && os.Args[1] == "version" {
		flag.Parse()
		printVersion()
		os.Exit(0)
	}

	if exe, err := os.Executable(); err == nil {
		internal.SetWorkerBinaryPath(exe)
	}

	cfg, err := internal.ParseFlags(flag.CommandLine, os.Args[1:])
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	version, _, _ := getVersionInfo()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	monitor := internal.NewMonitor(cfg.MonitorConfig())
	defer monitor.Shutdown()

	pool := internal.NewShellPool(cfg.ShellPoolConfig())
	defer pool.Shutdown()

	dispatcher := internal.NewDispatcher(cfg.DispatcherConfig(), monitor, pool, internal.DefaultCatalogue())

	server := internal.GetServer(version, dispatcher)
	t := mcp.NewLoggingTransport(mcp.NewStdioTransport(), os.Stderr)
	if err := server.Run(ctx, t); err != nil {
		log.Printf("Server failed: %v", err)
	}
}
