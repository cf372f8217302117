package process

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/exehost/executor/internal/shellquote"
)

// state is the lifecycle enum from spec.md §3: INIT -> SPAWNED ->
// (RUNNING | SUSPENDED)* -> REAPED.
type state int

const (
	stateInit state = iota
	stateSpawned
	stateRunning
	stateSuspended
	stateReaped
)

// Command is the engine's external-command handle, generalizing the
// teacher's processmgr.process: a one-shot, idempotently-closeable
// wrapper around an *exec.Cmd plus the bookkeeping spec.md §3 requires
// (returncode, recent output, timeout enforcement).
//
// A Command is single-use: Start (directly or via Run) may be called
// exactly once.
type Command struct {
	id            string   // correlation id, for tying log lines from one run together
	argv          []string // as given by the caller
	effectiveArgv []string // after shell/venv/sudo wrapping
	opts          Options
	log           *zap.Logger

	mu          sync.Mutex
	st          state
	cmd         *exec.Cmd
	plan        *streamPlan
	ring        *outputRing
	exitCode    int
	started     bool
	finished    bool
	notFoundErr error

	timeoutTimer *time.Timer
	timedOut     bool

	ctrl *ControllableProcess
}

// New constructs a Command ready to Start. argv must be non-empty.
func New(log *zap.Logger, argv []string, opts Options) *Command {
	if log == nil {
		log = zap.NewNop()
	}
	return &Command{
		id:   uuid.NewString(),
		argv: append([]string{}, argv...),
		opts: opts,
		log:  log.Named("process"),
		ring: &outputRing{},
	}
}

// ID returns the command's correlation id, generated once at
// construction, for tying its log lines together across a run.
func (c *Command) ID() string { return c.id }

// CommandLine returns the argv actually exec'd (post shell/venv/sudo
// wrapping), used for error messages and debug repr.
func (c *Command) CommandLine() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.effectiveArgv != nil {
		return append([]string{}, c.effectiveArgv...)
	}
	return append([]string{}, c.argv...)
}

// WasStarted reports whether Start has been called.
func (c *Command) WasStarted() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.started
}

// IsRunning reports whether the child is spawned and not yet reaped.
func (c *Command) IsRunning() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.st == stateRunning || c.st == stateSuspended
}

// IsFinished reports whether the child has been reaped.
func (c *Command) IsFinished() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.finished
}

// IsTerminated reports whether the child ended due to a signal rather
// than a normal exit.
func (c *Command) IsTerminated() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.finished || c.cmd == nil || c.cmd.ProcessState == nil {
		return false
	}
	ws, ok := c.cmd.ProcessState.Sys().(syscall.WaitStatus)
	return ok && ws.Signaled()
}

// Failed reports whether the child finished with a nonzero returncode
// (or was never found at all).
func (c *Command) Failed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.notFoundErr != nil {
		return true
	}
	return c.finished && c.exitCode != 0
}

// PID returns the child's process ID, or 0 if never spawned.
func (c *Command) PID() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cmd == nil || c.cmd.Process == nil {
		return 0
	}
	return c.cmd.Process.Pid
}

// ReturnCode returns the exit code once finished (meaningless before).
func (c *Command) ReturnCode() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.exitCode
}

// TimedOut reports whether the engine terminated this command because
// its Timeout elapsed.
func (c *Command) TimedOut() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.timedOut
}

// Output returns the captured stdout bytes decoded as a string. Empty
// if Capture was not set.
func (c *Command) Output() string {
	if c.plan == nil || c.plan.stdoutBuf == nil {
		return ""
	}
	return string(c.plan.stdoutBuf.Bytes())
}

// StderrOutput returns the captured stderr bytes decoded as a string.
// Empty if CaptureStderr was not set.
func (c *Command) StderrOutput() string {
	if c.plan == nil || c.plan.stderrBuf == nil {
		return ""
	}
	return string(c.plan.stderrBuf.Bytes())
}

// RecentOutput returns up to n of the most recently produced lines
// (stdout and, when MergeStreams is set, stderr too), newest first.
// Available even when Capture was never requested.
func (c *Command) RecentOutput(n int) []string {
	return c.ring.read(n)
}

// SetLogFile directs stdout, merged with stderr, to f in addition to
// the normal in-memory capture (Capture is turned on implicitly, per
// spec.md §4.5's pool logs-directory behavior), so a caller that wants
// a persistent per-command log file can still read Output() from the
// same run. Must be called before Start.
func (c *Command) SetLogFile(f *os.File) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.opts.StdoutFile = f
	c.opts.MergeStreams = true
	c.opts.Capture = true
}

// Start resolves the effective argv, wires up stdio per Options, and
// spawns the child. It does not wait for completion; call Wait (or use
// Run for the synchronous convenience path).
func (c *Command) Start() error {
	c.mu.Lock()
	if c.started {
		c.mu.Unlock()
		return fmt.Errorf("process: Start called twice")
	}
	c.started = true
	c.mu.Unlock()

	effective := buildEffectiveArgv(c.argv, c.opts)

	c.mu.Lock()
	c.effectiveArgv = effective
	c.mu.Unlock()

	if path, lookErr := lookPath(effective[0]); lookErr != nil {
		c.mu.Lock()
		c.notFoundErr = lookErr
		c.st = stateReaped
		c.finished = true
		c.mu.Unlock()
		return lookErr
	} else {
		effective = append([]string{path}, effective[1:]...)
	}

	cmd := exec.Command(effective[0], effective[1:]...)
	if c.opts.Directory != "" {
		cmd.Dir = c.opts.Directory
	}
	if len(c.opts.Environment) > 0 {
		env := os.Environ()
		for k, v := range c.opts.Environment {
			env = append(env, k+"="+v)
		}
		cmd.Env = env
	}
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setpgid: true,
	}

	plan, err := resolveStreams(cmd, c.opts, c.ring)
	if err != nil {
		return err
	}

	if err := cmd.Start(); err != nil {
		closeAll(plan.closers)
		return err
	}

	c.mu.Lock()
	c.cmd = cmd
	c.plan = plan
	c.st = stateRunning
	// Setpgid: true above always makes this PID the leader of a fresh
	// process group, so group-signal it: a shell-wrapped command's
	// grandchildren (e.g. anything bash -c forks) share that pgid and
	// must be reached by the same SIGTERM/SIGKILL, not just the leader.
	c.ctrl = NewGroupControllableProcess(cmd.Process.Pid)
	c.mu.Unlock()

	c.log.Debug("spawned",
		zap.String("cmd_id", c.id),
		zap.Int("pid", cmd.Process.Pid),
		zap.Strings("argv", effective))

	if c.opts.Timeout > 0 {
		c.armTimeout()
	}

	return nil
}

func lookPath(program string) (string, error) {
	candidates := shellquote.Which(program)
	if len(candidates) == 0 {
		return "", &CommandNotFoundError{Program: program}
	}
	return candidates[0], nil
}

func (c *Command) armTimeout() {
	c.timeoutTimer = time.AfterFunc(c.opts.Timeout, func() {
		c.mu.Lock()
		if c.finished {
			c.mu.Unlock()
			return
		}
		c.timedOut = true
		ctrl := c.ctrl
		grace := c.opts.GracePeriod
		c.mu.Unlock()

		if ctrl == nil {
			return
		}
		if ok, _ := ctrl.Terminate(true, grace); !ok {
			_, _ = ctrl.Kill(true, grace)
		}
	})
}

// Wait blocks until the child is reaped, drains its pipes, applies
// Check, and releases the timeout timer. Safe to call only after Start.
func (c *Command) Wait() error {
	c.mu.Lock()
	cmd := c.cmd
	notFound := c.notFoundErr
	c.mu.Unlock()

	if notFound != nil {
		return notFound
	}
	if cmd == nil {
		return fmt.Errorf("process: Wait called before successful Start")
	}

	waitErr := cmd.Wait()

	if c.timeoutTimer != nil {
		c.timeoutTimer.Stop()
	}

	c.mu.Lock()
	c.st = stateReaped
	c.finished = true
	if c.cmd.ProcessState != nil {
		c.exitCode = c.cmd.ProcessState.ExitCode()
	}
	if c.plan != nil {
		closeAll(c.plan.closers)
	}
	timedOut := c.timedOut
	exitCode := c.exitCode
	c.mu.Unlock()

	c.log.Debug("reaped",
		zap.String("cmd_id", c.id),
		zap.Int("pid", c.PID()),
		zap.Int("returncode", exitCode),
		zap.Bool("timed_out", timedOut))

	if timedOut {
		return &CommandTimedOutError{Command: c, Timeout: c.opts.Timeout}
	}
	if waitErr != nil {
		if _, ok := waitErr.(*exec.ExitError); !ok {
			return waitErr
		}
	}
	if c.opts.Check && exitCode != 0 {
		return &CommandFailedError{Command: c, ReturnCode: exitCode}
	}
	return nil
}

// Run is the synchronous convenience path: Start then, unless
// opts.Async is set, Wait. Async commands return immediately after
// Start succeeds; the caller is responsible for a later Wait.
func (c *Command) Run() error {
	if err := c.Start(); err != nil {
		return err
	}
	if c.opts.Async {
		return nil
	}
	return c.Wait()
}

// RunContext behaves like Run but also terminates the command if ctx
// is canceled before it finishes, mirroring the Timeout mechanism but
// driven by the caller's context instead of a fixed duration.
func (c *Command) RunContext(ctx context.Context) error {
	if err := c.Start(); err != nil {
		return err
	}
	if c.opts.Async {
		go c.watchContext(ctx)
		return nil
	}

	done := make(chan error, 1)
	go func() { done <- c.Wait() }()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		c.mu.Lock()
		ctrl := c.ctrl
		grace := c.opts.GracePeriod
		c.mu.Unlock()
		if ctrl != nil {
			if ok, _ := ctrl.Terminate(true, grace); !ok {
				_, _ = ctrl.Kill(true, grace)
			}
		}
		<-done
		return ctx.Err()
	}
}

func (c *Command) watchContext(ctx context.Context) {
	<-ctx.Done()
	c.mu.Lock()
	finished := c.finished
	ctrl := c.ctrl
	grace := c.opts.GracePeriod
	c.mu.Unlock()
	if finished || ctrl == nil {
		return
	}
	if ok, _ := ctrl.Terminate(true, grace); !ok {
		_, _ = ctrl.Kill(true, grace)
	}
}

// Suspend, Resume, Terminate and Kill delegate to the underlying
// ControllableProcess once the child has been spawned.
func (c *Command) Suspend() error {
	ctrl, err := c.requireCtrl()
	if err != nil {
		return err
	}
	if err := ctrl.Suspend(); err != nil {
		return err
	}
	c.mu.Lock()
	if c.st == stateRunning {
		c.st = stateSuspended
	}
	c.mu.Unlock()
	return nil
}

func (c *Command) Resume() error {
	ctrl, err := c.requireCtrl()
	if err != nil {
		return err
	}
	if err := ctrl.Resume(); err != nil {
		return err
	}
	c.mu.Lock()
	if c.st == stateSuspended {
		c.st = stateRunning
	}
	c.mu.Unlock()
	return nil
}

func (c *Command) Terminate(wait bool, timeout time.Duration) (bool, error) {
	ctrl, err := c.requireCtrl()
	if err != nil {
		return false, err
	}
	return ctrl.Terminate(wait, timeout)
}

func (c *Command) Kill(wait bool, timeout time.Duration) (bool, error) {
	ctrl, err := c.requireCtrl()
	if err != nil {
		return false, err
	}
	return ctrl.Kill(wait, timeout)
}

func (c *Command) requireCtrl() (*ControllableProcess, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ctrl == nil {
		return nil, fmt.Errorf("process: command was never spawned")
	}
	return c.ctrl, nil
}

// Close terminates the command if still running (grace period then
// kill) and waits for the reap, making Command safe to use with defer
// for the RAII pattern described in spec.md §9. Calling Close on an
// already-finished or never-started Command is a no-op.
func (c *Command) Close() error {
	c.mu.Lock()
	running := c.st == stateRunning || c.st == stateSuspended
	ctrl := c.ctrl
	grace := c.opts.GracePeriod
	c.mu.Unlock()

	if !running || ctrl == nil {
		return nil
	}
	if c.st == stateSuspended {
		_ = ctrl.Resume()
	}
	if ok, _ := ctrl.Terminate(true, grace); !ok {
		_, _ = ctrl.Kill(true, grace)
	}
	return c.Wait()
}

// Scope runs fn with the command started, guaranteeing Close is called
// on the way out regardless of how fn returns — the Go realization of
// the Python context-manager idiom noted in spec.md §9.
func Scope(cmd *Command, fn func(*Command) error) error {
	if err := cmd.Start(); err != nil {
		return err
	}
	defer cmd.Close()
	return fn(cmd)
}
