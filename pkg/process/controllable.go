package process

import (
	"bytes"
	"os"
	"strconv"
	"syscall"
	"time"
)

// ControllableProcess is a handle over an OS PID that does not
// necessarily own a spawned child — it may reference any process the
// caller already knows the PID of. It implements spec.md §4.2, grounded
// on the signal-delivery code in processmgr.process_manager.go
// (syscall.Kill(-pid, ...) against the whole process group, poll-based
// wait-with-timeout).
type ControllableProcess struct {
	PID int

	// Group, when true, delivers Suspend/Resume/Terminate/Kill to the
	// process group (-PID) instead of just PID, reaching any children
	// the target spawned under the same pgid (e.g. a shell-wrapped
	// command's grandchildren). Only valid when PID is itself a
	// process group leader, which Setpgid: true guarantees for every
	// process.Command this library spawns.
	Group bool
}

// NewControllableProcess wraps an arbitrary PID, signaling it alone.
func NewControllableProcess(pid int) *ControllableProcess {
	return &ControllableProcess{PID: pid}
}

// NewGroupControllableProcess wraps a PID that is also its own process
// group leader, signaling the whole group on Suspend/Resume/Terminate/
// Kill instead of just the leader — what process.Command uses for
// every spawned child, since Setpgid: true makes every such PID a
// group leader, matching the teacher's own -pid signaling.
func NewGroupControllableProcess(pid int) *ControllableProcess {
	return &ControllableProcess{PID: pid, Group: true}
}

// target returns the signal target: -PID when Group is set (the whole
// process group), otherwise PID alone.
func (p *ControllableProcess) target() int {
	if p.Group {
		return -p.PID
	}
	return p.PID
}

// IsRunning reports whether the PID denotes a live process: signal 0
// delivery succeeds iff the process exists and is visible to us. An
// exited child that has not been reaped yet still accepts signal 0, so
// where /proc is available a PID in zombie state ('Z') counts as not
// running. This always checks the leader PID itself, not the group,
// since it answers "has the process we spawned exited", not "is anyone
// left in its group".
func (p *ControllableProcess) IsRunning() bool {
	if p.PID <= 0 {
		return false
	}
	if err := syscall.Kill(p.PID, 0); err != nil {
		return false
	}
	if stat, err := os.ReadFile("/proc/" + strconv.Itoa(p.PID) + "/stat"); err == nil {
		if i := bytes.LastIndexByte(stat, ')'); i >= 0 && i+2 < len(stat) && stat[i+2] == 'Z' {
			return false
		}
	}
	return true
}

// Suspend delivers SIGSTOP. Idempotent: signaling an already-suspended
// process is harmless.
func (p *ControllableProcess) Suspend() error {
	return syscall.Kill(p.target(), syscall.SIGSTOP)
}

// Resume delivers SIGCONT. Idempotent.
func (p *ControllableProcess) Resume() error {
	return syscall.Kill(p.target(), syscall.SIGCONT)
}

// Terminate delivers SIGTERM. If wait is true, it polls IsRunning until
// false or timeout elapses, returning whether the process stopped.
//
// A suspended process does not respond to SIGTERM until resumed — this
// is delivered to the kernel, not emulated, so that invariant falls out
// naturally: SIGTERM is queued but not handled while stopped.
func (p *ControllableProcess) Terminate(wait bool, timeout time.Duration) (bool, error) {
	if err := syscall.Kill(p.target(), syscall.SIGTERM); err != nil {
		return false, err
	}
	if !wait {
		return !p.IsRunning(), nil
	}
	return p.awaitExit(timeout), nil
}

// Kill delivers SIGKILL (non-ignorable, wakes a suspended process too
// since SIGKILL cannot be blocked, stopped, or ignored by the kernel).
func (p *ControllableProcess) Kill(wait bool, timeout time.Duration) (bool, error) {
	if err := syscall.Kill(p.target(), syscall.SIGKILL); err != nil {
		return false, err
	}
	if !wait {
		return !p.IsRunning(), nil
	}
	return p.awaitExit(timeout), nil
}

func (p *ControllableProcess) awaitExit(timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	const pollInterval = 20 * time.Millisecond
	for {
		if !p.IsRunning() {
			return true
		}
		if timeout > 0 && time.Now().After(deadline) {
			return !p.IsRunning()
		}
		if timeout <= 0 {
			return false
		}
		time.Sleep(pollInterval)
	}
}
