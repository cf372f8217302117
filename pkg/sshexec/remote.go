package sshexec

import (
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/exehost/executor/pkg/process"
)

// sshClientExitConnectFailed is the exit code OpenSSH's client uses
// when it could not establish or authenticate the connection at all,
// as distinct from the remote command itself failing.
const sshClientExitConnectFailed = 255

// RemoteOptions configures the ssh client invocation. Process-level
// concerns (capture, timeout, check, environment overrides applied on
// the remote shell, ...) reuse process.Options, passed separately.
type RemoteOptions struct {
	Host string
	User string
	Port int

	IdentityFile string

	BatchMode             bool
	ConnectTimeout        time.Duration
	StrictHostKeyChecking string
	IgnoreKnownHosts      bool

	// Directory, Sudo and Fakeroot apply on the remote side, composed
	// into the shell string the ssh client is told to run — distinct
	// from the identically-named process.Options fields, which would
	// apply locally to the ssh client process itself.
	Directory string
	Sudo      bool
	Fakeroot  bool
}

// DefaultRemoteOptions returns spec.md §4.4's defaults: batch mode on,
// a 10s connect timeout, strict host key checking off.
func DefaultRemoteOptions(host string) RemoteOptions {
	return RemoteOptions{
		Host:                  host,
		BatchMode:             true,
		ConnectTimeout:        10 * time.Second,
		StrictHostKeyChecking: "no",
	}
}

// RemoteCommand runs argv on a remote host over ssh, composing
// process.Command rather than subclassing it: the ssh client is just
// another local child process whose own exit code this type
// reinterprets per spec.md §4.4's error-translation rule.
type RemoteCommand struct {
	remote RemoteOptions
	remoteArgv []string
	check  bool
	inner  *process.Command
}

// New builds the ssh argv for remoteArgv per spec.md §4.4 and wraps it
// in a process.Command. The inner command's own Check is always
// disabled; RemoteCommand performs its own exit-code translation once
// the ssh client has reaped.
func New(log *zap.Logger, remote RemoteOptions, remoteArgv []string, opts process.Options) *RemoteCommand {
	b := NewBuilder().
		WithBatchMode(remote.BatchMode).
		WithConnectTimeout(remote.ConnectTimeout).
		WithStrictHostKeyChecking(remote.StrictHostKeyChecking).
		WithIgnoreKnownHosts(remote.IgnoreKnownHosts).
		WithIdentityFile(remote.IdentityFile).
		WithPort(remote.Port).
		WithUser(remote.User).
		WithHost(remote.Host).
		WithRemoteCommand(composeRemoteShellString(remoteArgv, remote.Directory, remote.Sudo, remote.Fakeroot))

	sshArgv := b.BuildArgv()

	innerOpts := opts
	forceNoShell := false
	innerOpts.UseShell = &forceNoShell
	check := innerOpts.Check
	innerOpts.Check = false

	return &RemoteCommand{
		remote:     remote,
		remoteArgv: append([]string{}, remoteArgv...),
		check:      check,
		inner:      process.New(log, sshArgv, innerOpts),
	}
}

// CommandLine returns the local ssh argv actually exec'd.
func (r *RemoteCommand) CommandLine() []string { return r.inner.CommandLine() }

// RemoteArgv returns the argv that runs on the remote host, before ssh
// and shell-quoting wrapping.
func (r *RemoteCommand) RemoteArgv() []string { return append([]string{}, r.remoteArgv...) }

// Start spawns the local ssh client. A missing ssh binary is itself a
// connection failure per spec.md §7 ("ssh client returned 255 or a
// local pre-flight error"), so CommandNotFoundError is translated into
// RemoteConnectFailedError rather than leaking the local-process kind.
func (r *RemoteCommand) Start() error {
	if err := r.inner.Start(); err != nil {
		if _, ok := err.(*process.CommandNotFoundError); ok {
			return &RemoteConnectFailedError{Host: r.remote.Host}
		}
		return err
	}
	return nil
}

// Wait reaps the ssh client and applies spec.md §4.4's error
// translation: exit 255 means the connection itself failed; any other
// nonzero exit (when Check was requested) means the remote command
// failed.
func (r *RemoteCommand) Wait() error {
	err := r.inner.Wait()
	if err != nil {
		return err
	}
	code := r.inner.ReturnCode()
	if code == sshClientExitConnectFailed {
		return &RemoteConnectFailedError{Host: r.remote.Host}
	}
	if r.check && code != 0 {
		return &RemoteCommandFailedError{Host: r.remote.Host, ReturnCode: code}
	}
	return nil
}

// Run is the synchronous convenience path, mirroring process.Command.Run:
// Start, then Wait unless the caller asked for async_mode.
func (r *RemoteCommand) Run(async bool) error {
	if err := r.Start(); err != nil {
		return err
	}
	if async {
		return nil
	}
	return r.Wait()
}

func (r *RemoteCommand) ReturnCode() int           { return r.inner.ReturnCode() }
func (r *RemoteCommand) Output() string            { return r.inner.Output() }
func (r *RemoteCommand) StderrOutput() string       { return r.inner.StderrOutput() }
func (r *RemoteCommand) RecentOutput(n int) []string { return r.inner.RecentOutput(n) }
func (r *RemoteCommand) PID() int                  { return r.inner.PID() }
func (r *RemoteCommand) IsRunning() bool           { return r.inner.IsRunning() }
func (r *RemoteCommand) IsFinished() bool          { return r.inner.IsFinished() }
func (r *RemoteCommand) WasStarted() bool          { return r.inner.WasStarted() }
func (r *RemoteCommand) Failed() bool {
	if r.inner.ReturnCode() == sshClientExitConnectFailed {
		return true
	}
	return r.inner.Failed()
}

func (r *RemoteCommand) Terminate(wait bool, timeout time.Duration) (bool, error) {
	return r.inner.Terminate(wait, timeout)
}

func (r *RemoteCommand) Kill(wait bool, timeout time.Duration) (bool, error) {
	return r.inner.Kill(wait, timeout)
}

func (r *RemoteCommand) Close() error { return r.inner.Close() }

// SetLogFile forwards to the inner command, letting a pool wire
// Options.LogsDirectory onto a RemoteCommand exactly as it would a
// local one.
func (r *RemoteCommand) SetLogFile(f *os.File) { r.inner.SetLogFile(f) }
