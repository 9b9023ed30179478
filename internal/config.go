package internal

import (
	"flag"
	"strings"
	"time"
)

// Config is the engine's process-wide configuration, read once at startup.
type Config struct {
	DefaultTimeout time.Duration
	ShellPoolSize  int
	MaxShells      int
	DisablePools   bool
	Synchronous    bool
	DisabledTools  map[string]bool

	HealthInterval  time.Duration
	CleanupInterval time.Duration
	IdleTimeout     time.Duration
	Retention       time.Duration
	SpawnTimeout    time.Duration
}

// DefaultConfig returns the engine's out-of-the-box configuration, matching
// the defaults named for the Shell Pool Manager and Operation Monitor.
func DefaultConfig() *Config {
	return &Config{
		DefaultTimeout:  300 * time.Second,
		ShellPoolSize:   2,
		MaxShells:       20,
		HealthInterval:  60 * time.Second,
		CleanupInterval: 5 * time.Minute,
		IdleTimeout:     30 * time.Minute,
		Retention:       time.Hour,
		SpawnTimeout:    5 * time.Second,
	}
}

// ParseFlags registers the engine's flags on fs and returns a Config
// populated by parsing args. Unknown flags are reported by fs.Parse as a
// startup error.
func ParseFlags(fs *flag.FlagSet, args []string) (*Config, error) {
	cfg := DefaultConfig()

	timeoutSecs := fs.Int("timeout", int(cfg.DefaultTimeout.Seconds()), "default per-command timeout in seconds")
	fs.IntVar(&cfg.ShellPoolSize, "shell-pool-size", cfg.ShellPoolSize, "maximum shells kept per working directory")
	fs.IntVar(&cfg.MaxShells, "max-shells", cfg.MaxShells, "maximum shells across all working directories")
	fs.BoolVar(&cfg.DisablePools, "disable-shell-pools", cfg.DisablePools, "spawn a one-shot shell per command instead of pooling")
	fs.BoolVar(&cfg.Synchronous, "synchronous", cfg.Synchronous, "force every tool call to run synchronously")
	disabledTools := fs.String("disabled-tools", "", "comma-separated tool names to reject with ToolDisabled")

	healthSecs := fs.Int("health-interval", int(cfg.HealthInterval.Seconds()), "seconds between idle-shell health checks")
	cleanupSecs := fs.Int("cleanup-interval", int(cfg.CleanupInterval.Seconds()), "seconds between idle-shell reaper sweeps")
	idleSecs := fs.Int("idle-timeout", int(cfg.IdleTimeout.Seconds()), "seconds an idle shell may sit unused before eviction")
	retentionSecs := fs.Int("retention", int(cfg.Retention.Seconds()), "seconds a terminal operation remains retrievable")
	spawnSecs := fs.Int("spawn-timeout", int(cfg.SpawnTimeout.Seconds()), "seconds allowed for a shell to spawn")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	cfg.DefaultTimeout = time.Duration(*timeoutSecs) * time.Second
	cfg.HealthInterval = time.Duration(*healthSecs) * time.Second
	cfg.CleanupInterval = time.Duration(*cleanupSecs) * time.Second
	cfg.IdleTimeout = time.Duration(*idleSecs) * time.Second
	cfg.Retention = time.Duration(*retentionSecs) * time.Second
	cfg.SpawnTimeout = time.Duration(*spawnSecs) * time.Second

	if *disabledTools != "" {
		cfg.DisabledTools = make(map[string]bool)
		for _, name := range strings.Split(*disabledTools, ",") {
			name = strings.TrimSpace(name)
			if name != "" {
				cfg.DisabledTools[name] = true
			}
		}
	}

	return cfg, nil
}

// ShellPoolConfig builds the Shell Pool Manager configuration implied by c.
func (c *Config) ShellPoolConfig() *ShellPoolConfig {
	return &ShellPoolConfig{
		MaxShellsPerDir: c.ShellPoolSize,
		MaxTotalShells:  c.MaxShells,
		IdleTimeout:     c.IdleTimeout,
		HealthInterval:  c.HealthInterval,
		CleanupInterval: c.CleanupInterval,
		SpawnTimeout:    c.SpawnTimeout,
		Disabled:        c.DisablePools,
	}
}

// MonitorConfig builds the Operation Monitor configuration implied by c.
func (c *Config) MonitorConfig() *MonitorConfig {
	return &MonitorConfig{
		DefaultTimeout: c.DefaultTimeout,
		Retention:      c.Retention,
	}
}

// DispatcherConfig builds the Execution Dispatcher configuration implied by c.
func (c *Config) DispatcherConfig() *DispatcherConfig {
	return &DispatcherConfig{
		ForceSynchronous:      c.Synchronous,
		DefaultTimeout:        c.DefaultTimeout,
		DefaultAcquireTimeout: c.SpawnTimeout,
		DisabledTools:         c.DisabledTools,
	}
}
