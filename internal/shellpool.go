package internal

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// ShellPoolConfig configures the Shell Pool Manager.
type ShellPoolConfig struct {
	// MaxShellsPerDir caps concurrently live shells for one working directory.
	MaxShellsPerDir int
	// MaxTotalShells caps concurrently live shells across every directory.
	MaxTotalShells int
	// IdleTimeout evicts an Idle shell that hasn't run a command in this long.
	IdleTimeout time.Duration
	// HealthInterval is how often idle shells are health-checked.
	HealthInterval time.Duration
	// CleanupInterval is how often the idle reaper runs.
	CleanupInterval time.Duration
	// SpawnTimeout bounds how long a new shell may take to start.
	SpawnTimeout time.Duration
	// Disabled runs every command in a fresh one-shot shell instead of pooling.
	Disabled bool
}

// DefaultShellPoolConfig returns the pool's out-of-the-box sizing and
// timing defaults.
func DefaultShellPoolConfig() *ShellPoolConfig {
	return &ShellPoolConfig{
		MaxShellsPerDir: 2,
		MaxTotalShells:  20,
		IdleTimeout:     30 * time.Minute,
		HealthInterval:  60 * time.Second,
		CleanupInterval: 5 * time.Minute,
		SpawnTimeout:    DefaultSpawnTimeout,
	}
}

// ShellPool manages live Shells, grouped by working directory, under a
// global cap. Acquire blocks until a shell is available or the caller's
// context is done; callers must Release exactly once per successful
// Acquire, reporting whether the shell is still trustworthy.
type ShellPool struct {
	config *ShellPoolConfig

	mu        sync.Mutex
	cond      *sync.Cond
	byDir     map[string][]*Shell
	liveByDir map[string]int // busy+idle shells per dir, unlike byDir's idle-only slices
	total     int
	closed    bool

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// NewShellPool creates a Shell Pool Manager and starts its background health
// monitor and idle reaper. When config.Disabled is true, Acquire always
// spawns a fresh one-shot shell and Release discards it.
func NewShellPool(config *ShellPoolConfig) *ShellPool {
	if config == nil {
		config = DefaultShellPoolConfig()
	}
	p := &ShellPool{
		config:    config,
		byDir:     make(map[string][]*Shell),
		liveByDir: make(map[string]int),
		stopCh:    make(chan struct{}),
	}
	p.cond = sync.NewCond(&p.mu)

	if !config.Disabled {
		p.wg.Add(2)
		go p.healthLoop()
		go p.reapLoop()
	}
	return p
}

// Acquire returns a shell for dir marked Busy, reusing an Idle one from the
// pool when available, spawning a new one when under both the per-directory and
// global caps, or blocking until either becomes true or ctx is done.
func (p *ShellPool) Acquire(ctx context.Context, dir string) (*Shell, error) {
	if p.config.Disabled {
		return SpawnShellTimeout(dir, p.config.SpawnTimeout)
	}

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			p.mu.Lock()
			p.cond.Broadcast()
			p.mu.Unlock()
		case <-done:
		}
	}()

	p.mu.Lock()
	for {
		if p.closed {
			p.mu.Unlock()
			return nil, ErrPoolShutdown
		}
		if err := ctx.Err(); err != nil {
			p.mu.Unlock()
			if errors.Is(err, context.DeadlineExceeded) {
				return nil, fmt.Errorf("%w: %v", ErrPoolExhausted, err)
			}
			return nil, err
		}

		if shells := p.byDir[dir]; len(shells) > 0 {
			sh := shells[len(shells)-1]
			p.byDir[dir] = shells[:len(shells)-1]
			p.mu.Unlock()
			sh.setState(ShellBusy)
			return sh, nil
		}

		// liveByDir counts busy+idle shells for dir; byDir's slice holds only
		// the idle ones, so gating growth on len(byDir[dir]) would let the
		// pool keep spawning once every shell for dir is checked out.
		if p.liveByDir[dir] < p.config.MaxShellsPerDir && p.total < p.config.MaxTotalShells {
			p.total++
			p.liveByDir[dir]++
			p.mu.Unlock()

			sh, err := SpawnShellTimeout(dir, p.config.SpawnTimeout)
			if err != nil {
				p.mu.Lock()
				p.total--
				p.decrLive(dir)
				p.mu.Unlock()
				p.cond.Broadcast()
				return nil, err
			}
			sh.setState(ShellBusy)
			return sh, nil
		}

		p.cond.Wait()
	}
}

// Release returns sh to the pool for reuse, or discards it (and its slot in
// the global cap) if sh is Unhealthy or the pool is running in one-shot
// mode. Every successful Acquire must be matched by exactly one Release.
func (p *ShellPool) Release(sh *Shell) {
	if p.config.Disabled {
		sh.Shutdown()
		return
	}

	if sh.State() == ShellUnhealthy {
		p.discard(sh)
		return
	}

	sh.setState(ShellIdle)
	p.mu.Lock()
	p.byDir[sh.WorkingDirectory] = append(p.byDir[sh.WorkingDirectory], sh)
	p.mu.Unlock()
	p.cond.Broadcast()
}

// discard removes a shell's slot from the global and per-directory caps and
// shuts it down. Used for shells that were never returned to byDir (unhealthy
// on release, failed health check, or evicted for being idle too long).
func (p *ShellPool) discard(sh *Shell) {
	sh.Shutdown()
	p.mu.Lock()
	p.total--
	p.decrLive(sh.WorkingDirectory)
	p.mu.Unlock()
	p.cond.Broadcast()
}

// decrLive decrements dir's live-shell count, called with p.mu held. Deletes
// the entry once it reaches zero rather than leaving stale zero counts around
// for every directory ever seen.
func (p *ShellPool) decrLive(dir string) {
	if n := p.liveByDir[dir] - 1; n > 0 {
		p.liveByDir[dir] = n
	} else {
		delete(p.liveByDir, dir)
	}
}

// ExecuteIn acquires a shell for dir, runs argv on it, and releases it,
// treating any Execute error as grounds to discard rather than reuse the
// shell (Execute already marks it Unhealthy on failure). The acquire wait is
// bounded only by ctx; use ExecuteInTimeout to bound it independently of the
// command's own timeout.
func (p *ShellPool) ExecuteIn(ctx context.Context, dir string, argv []string, timeout time.Duration) (ShellResult, error) {
	return p.ExecuteInTimeout(ctx, dir, argv, timeout, 0)
}

// ExecuteInTimeout is ExecuteIn with an explicit acquireTimeout bounding only
// the wait for a shell to become available (spec §5's per-acquire timeout
// layer), independent of ctx and of the command's own timeout, so a slow
// command doesn't masquerade as PoolExhausted and a long acquire wait doesn't
// truncate the command that follows it. acquireTimeout <= 0 means no separate
// bound: the acquire waits on ctx alone.
func (p *ShellPool) ExecuteInTimeout(ctx context.Context, dir string, argv []string, timeout, acquireTimeout time.Duration) (ShellResult, error) {
	acquireCtx := ctx
	if acquireTimeout > 0 {
		var cancel context.CancelFunc
		acquireCtx, cancel = context.WithTimeout(ctx, acquireTimeout)
		defer cancel()
	}

	sh, err := p.Acquire(acquireCtx, dir)
	if err != nil {
		return ShellResult{}, err
	}
	res, execErr := sh.Execute(ctx, argv, dir, timeout)
	p.Release(sh)
	return res, execErr
}

// Stats reports the pool's current occupancy, for the status tool.
type ShellPoolStats struct {
	TotalShells int
	IdleByDir   map[string]int
	Usage       []ShellUsage
}

// ShellUsage is one idle shell's identity and best-effort resource sample.
type ShellUsage struct {
	ID               string
	WorkingDirectory string
	Sample           ProcessSample
}

// Stats returns a snapshot of pool occupancy, sampling CPU/RSS for every
// currently idle shell.
func (p *ShellPool) Stats() ShellPoolStats {
	p.mu.Lock()
	idle := make(map[string]int, len(p.byDir))
	var usage []ShellUsage
	for dir, shells := range p.byDir {
		idle[dir] = len(shells)
		for _, sh := range shells {
			usage = append(usage, ShellUsage{ID: sh.ID, WorkingDirectory: dir, Sample: SampleProcess(sh.PID())})
		}
	}
	total := p.total
	p.mu.Unlock()

	return ShellPoolStats{TotalShells: total, IdleByDir: idle, Usage: usage}
}

// healthLoop periodically pings every Idle shell and evicts any that fail.
func (p *ShellPool) healthLoop() {
	defer p.wg.Done()

	ticker := time.NewTicker(p.config.HealthInterval)
	defer ticker.Stop()

	for {
		select {
		case <-p.stopCh:
			return
		case <-ticker.C:
			p.checkHealth()
		}
	}
}

func (p *ShellPool) checkHealth() {
	p.mu.Lock()
	var candidates []*Shell
	for _, shells := range p.byDir {
		candidates = append(candidates, shells...)
	}
	p.mu.Unlock()

	for _, sh := range candidates {
		if sh.State() != ShellIdle {
			continue
		}
		if !IsAlive(sh.PID()) || !sh.HealthCheck() {
			// removeIdle re-checks membership under the pool mutex: if sh was
			// acquired out from under us while HealthCheck was in flight, it
			// is no longer in byDir and must not be discarded out from under
			// its new owner.
			if p.removeIdle(sh) {
				p.discard(sh)
			}
		}
	}
}

// reapLoop periodically evicts Idle shells that have sat unused past
// IdleTimeout.
func (p *ShellPool) reapLoop() {
	defer p.wg.Done()

	ticker := time.NewTicker(p.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-p.stopCh:
			return
		case <-ticker.C:
			p.reapIdle()
		}
	}
}

func (p *ShellPool) reapIdle() {
	cutoff := time.Now().Add(-p.config.IdleTimeout)

	p.mu.Lock()
	var stale []*Shell
	for dir, shells := range p.byDir {
		var kept []*Shell
		for _, sh := range shells {
			if sh.LastUsedAt().Before(cutoff) {
				stale = append(stale, sh)
			} else {
				kept = append(kept, sh)
			}
		}
		p.byDir[dir] = kept
	}
	p.mu.Unlock()

	for _, sh := range stale {
		p.discard(sh)
	}
}

// removeIdle removes sh from its directory's idle slice if still present,
// reporting whether it was found there. A miss means sh was acquired by
// someone else between the caller's earlier state check and this call.
func (p *ShellPool) removeIdle(sh *Shell) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	shells := p.byDir[sh.WorkingDirectory]
	for i, candidate := range shells {
		if candidate == sh {
			p.byDir[sh.WorkingDirectory] = append(shells[:i], shells[i+1:]...)
			return true
		}
	}
	return false
}

// Shutdown stops background tasks and shuts down every pooled shell.
func (p *ShellPool) Shutdown() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	all := make([]*Shell, 0, p.total)
	for _, shells := range p.byDir {
		all = append(all, shells...)
	}
	p.byDir = make(map[string][]*Shell)
	p.mu.Unlock()

	close(p.stopCh)
	p.wg.Wait()
	p.cond.Broadcast()

	var wg sync.WaitGroup
	for _, sh := range all {
		wg.Add(1)
		go func(sh *Shell) {
			defer wg.Done()
			sh.Shutdown()
		}(sh)
	}
	wg.Wait()
}
