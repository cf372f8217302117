// Package pool implements the bounded-concurrency scheduler that runs
// many commands under a concurrency limit, adapted from the teacher's
// internal/infrastructure/processmgr package (slotPool, scheduler,
// PIDAllocator), generalized from "manage one remux child per
// channel" to "manage an arbitrary set of process.Command or
// sshexec.RemoteCommand members".
package pool

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Runnable is the subset of process.Command / sshexec.RemoteCommand
// the pool needs: both satisfy it without modification, which is why
// foreach() can build a pool of remote commands using the exact same
// scheduler as a pool of local ones.
type Runnable interface {
	Start() error
	Wait() error
	IsRunning() bool
	Terminate(wait bool, timeout time.Duration) (bool, error)
}

// logConfigurable is implemented by process.Command and
// sshexec.RemoteCommand. A Runnable that satisfies it can have its
// output captured to a pool-managed log file without the pool needing
// to know its concrete type.
type logConfigurable interface {
	SetLogFile(f *os.File)
}

// Options configures a CommandPool.
type Options struct {
	// Concurrency bounds how many members may run at once. <= 0 means
	// unbounded (every member starts immediately).
	Concurrency int

	// DelayChecks switches collect()/run() from "raise on first
	// failure, terminate the rest" to "run everything to completion,
	// then raise one aggregate PoolFailedError".
	DelayChecks bool

	// LogsDirectory, if set, is where OpenLogFile writes
	// "<id>.log" files for members that want per-command output
	// capture to disk.
	LogsDirectory string

	// PollInterval is the run() loop's baseline tick when no member
	// has a known timeout deadline to wake for. Defaults to 50ms.
	PollInterval time.Duration
}

type member struct {
	id          int64
	runnable    Runnable
	closer      func() error
	timeoutHint time.Duration

	started bool
	done    bool
	err     error

	doneCh chan error
}

// CommandPool is an insertion-ordered collection of (id, Runnable)
// pairs executed under a concurrency bound, per spec.md §4.5.
type CommandPool struct {
	log  *zap.Logger
	opts Options

	mu      sync.Mutex
	order   []int64
	members map[int64]*member
	ids     *idAllocator
	slots   *slotPool
	sched   *scheduler

	pendingErrs []error
	doneCount   int
}

// New builds an empty pool. opts.Concurrency <= 0 means unbounded.
func New(log *zap.Logger, opts Options) *CommandPool {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 50 * time.Millisecond
	}
	cap := int64(opts.Concurrency)
	if cap <= 0 {
		cap = 1 << 30
	}
	return &CommandPool{
		log:     log.Named("pool"),
		opts:    opts,
		members: make(map[int64]*member),
		ids:     newIDAllocator(),
		slots:   newSlotPool(cap),
		sched:   newScheduler(),
	}
}

// Add appends r to the pool. If identifier is non-empty, its first
// value is used as the member's id (and reserved against collision);
// otherwise a sequential id is allocated. Returns the assigned id.
func (p *CommandPool) Add(r Runnable, identifier ...int64) int64 {
	return p.addWithTimeoutHint(r, 0, identifier...)
}

// AddWithTimeout behaves like Add but also records timeoutHint, a
// known upper bound on how long r may run (mirroring the command's own
// process.Options.Timeout). Run uses this to cut a poll-loop sleep
// short when the member's expected end comes before the next
// PollInterval tick, via the same min-heap scheduling structure the
// teacher uses for its own per-channel deadlines.
func (p *CommandPool) AddWithTimeout(r Runnable, timeoutHint time.Duration, identifier ...int64) int64 {
	return p.addWithTimeoutHint(r, timeoutHint, identifier...)
}

func (p *CommandPool) addWithTimeoutHint(r Runnable, timeoutHint time.Duration, identifier ...int64) int64 {
	p.mu.Lock()
	defer p.mu.Unlock()

	var id int64
	if len(identifier) > 0 {
		id = identifier[0]
		p.ids.reserve(id)
	} else {
		id = p.ids.alloc()
	}

	m := &member{id: id, runnable: r, timeoutHint: timeoutHint, doneCh: make(chan error, 1)}

	if p.opts.LogsDirectory != "" {
		if lc, ok := r.(logConfigurable); ok {
			if f, err := p.OpenLogFile(id); err != nil {
				p.log.Warn("could not open pool log file", zap.Int64("id", id), zap.Error(err))
			} else {
				lc.SetLogFile(f)
				m.closer = f.Close
			}
		}
	}

	p.members[id] = m
	p.order = append(p.order, id)
	return id
}

// OpenLogFile opens (creating if needed) "<LogsDirectory>/<id>.log" for
// append-write. addWithTimeoutHint calls this automatically for every
// member added while LogsDirectory is set; it is also exported for
// callers that want the same path convention without going through a
// pool.
func (p *CommandPool) OpenLogFile(id int64) (*os.File, error) {
	if p.opts.LogsDirectory == "" {
		return nil, fmt.Errorf("pool: no LogsDirectory configured")
	}
	if err := os.MkdirAll(p.opts.LogsDirectory, 0o755); err != nil {
		return nil, err
	}
	path := filepath.Join(p.opts.LogsDirectory, fmt.Sprintf("%d.log", id))
	return os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
}

// Spawn starts as many unstarted members as the concurrency bound
// allows, in insertion order, without blocking. Each started member
// must have been constructed in async mode: Spawn calls Start once and
// reaps it via a background goroutine, never blocking the caller.
func (p *CommandPool) Spawn() {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, id := range p.order {
		m := p.members[id]
		if m.started {
			continue
		}
		if !p.slots.tryAcquire(id) {
			continue
		}
		m.started = true
		if err := m.runnable.Start(); err != nil {
			m.done = true
			m.err = err
			p.slots.release(id)
			p.doneCount++
			if !p.opts.DelayChecks {
				p.pendingErrs = append(p.pendingErrs, err)
			}
			continue
		}
		if m.timeoutHint > 0 {
			p.sched.push(id, time.Now().Add(m.timeoutHint))
		}
		p.log.Debug("spawned pool member", zap.Int64("id", id))
		go p.reap(id)
	}
}

func (p *CommandPool) reap(id int64) {
	p.mu.Lock()
	m := p.members[id]
	p.mu.Unlock()

	err := m.runnable.Wait()
	m.doneCh <- err
	close(m.doneCh)
}

// Collect reaps every member whose goroutine has finished since the
// last call, releasing its slot. It returns the oldest not-yet-
// reported checked failure, or nil if none is pending. Repeated calls
// drain the failure queue in insertion order until exhausted — this
// only applies in default (non-DelayChecks) mode; DelayChecks always
// returns nil here and aggregates at Run's end instead.
func (p *CommandPool) Collect() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, id := range p.order {
		m := p.members[id]
		if !m.started || m.done {
			continue
		}
		select {
		case err := <-m.doneCh:
			m.done = true
			m.err = err
			p.doneCount++
			p.slots.release(id)
			p.sched.remove(id)
			if m.closer != nil {
				_ = m.closer()
			}
			if err != nil {
				p.log.Debug("pool member failed", zap.Int64("id", id), zap.Error(err))
				if !p.opts.DelayChecks {
					p.pendingErrs = append(p.pendingErrs, err)
				}
			}
		default:
		}
	}

	if p.opts.DelayChecks || len(p.pendingErrs) == 0 {
		return nil
	}
	err := p.pendingErrs[0]
	p.pendingErrs = p.pendingErrs[1:]
	return err
}

// IsFinished reports whether every member has been reaped.
func (p *CommandPool) IsFinished() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.doneCount == len(p.order)
}

// Terminate sends a polite-then-forceful termination to every member
// still running, concurrently so one slow-to-die member doesn't delay
// signaling the rest.
func (p *CommandPool) Terminate(grace time.Duration) {
	p.mu.Lock()
	members := make([]*member, 0, len(p.order))
	for _, id := range p.order {
		m := p.members[id]
		if m.started && !m.done {
			members = append(members, m)
		}
	}
	p.mu.Unlock()

	var g errgroup.Group
	for _, m := range members {
		m := m
		g.Go(func() error {
			stopped, err := m.runnable.Terminate(true, grace)
			if err == nil && !stopped {
				if k, ok := m.runnable.(interface {
					Kill(wait bool, timeout time.Duration) (bool, error)
				}); ok {
					_, err = k.Kill(true, grace)
				}
			}
			return err
		})
	}
	_ = g.Wait()
}

// Run drives spawn/collect to completion and returns nil on full
// success, or an error describing the failure(s).
//
// Default mode: the first checked failure encountered causes Run to
// terminate every other running member, wait until they are reaped,
// and return that single failure. The other members' failures are not
// part of the returned error; the drain after Terminate calls Collect,
// which takes queued failures off the queue without reporting them.
//
// DelayChecks mode: Run waits for every member to finish regardless of
// failures and returns a single *PoolFailedError aggregating all of
// them, or nil if none failed.
func (p *CommandPool) Run() error {
	for {
		p.Spawn()

		if p.opts.DelayChecks {
			if err := p.collectDelayChecksRound(); err != nil {
				return err
			}
		} else {
			if err := p.Collect(); err != nil {
				p.Terminate(3 * time.Second)
				p.drainRemaining()
				return err
			}
		}

		if p.IsFinished() {
			return nil
		}
		time.Sleep(p.nextSleep())
	}
}

func (p *CommandPool) collectDelayChecksRound() error {
	_ = p.Collect()
	if !p.IsFinished() {
		return nil
	}
	p.mu.Lock()
	failures := append([]error{}, p.pendingErrs...)
	p.pendingErrs = nil
	p.mu.Unlock()

	// DelayChecks never populates pendingErrs (see Collect), so walk
	// members directly for the final aggregate.
	p.mu.Lock()
	for _, id := range p.order {
		if err := p.members[id].err; err != nil {
			failures = append(failures, err)
		}
	}
	p.mu.Unlock()

	if len(failures) == 0 {
		return nil
	}
	return newPoolFailedError(failures)
}

// drainRemaining reaps whatever members are still mid-flight after a
// Terminate, so Run never returns while a goroutine is still writing
// to a member's doneCh.
func (p *CommandPool) drainRemaining() {
	for !p.IsFinished() {
		_ = p.Collect()
		if p.IsFinished() {
			return
		}
		time.Sleep(p.opts.PollInterval)
	}
}

func (p *CommandPool) nextSleep() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()

	_, when, ok := p.sched.next()
	if !ok {
		return p.opts.PollInterval
	}
	d := time.Until(when)
	if d < 0 {
		return 0
	}
	if d > p.opts.PollInterval {
		return p.opts.PollInterval
	}
	return d
}

// Members returns the ids in insertion order, for callers that need a
// stable iteration (e.g. foreach's return mapping).
func (p *CommandPool) Members() []int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := append([]int64{}, p.order...)
	sort.Slice(out, func(i, j int) bool { return i < j }) // already insertion order; sort is a no-op safety net
	return out
}
