// Package sshexec composes pkg/process's external-command machinery
// with a secure-shell client argv, the way pkg/remuxcmd composes a CLI
// invocation: a fluent Builder that deterministically emits flags, and
// a thin high-level RemoteCommand on top.
package sshexec

import (
	"strconv"
	"time"

	"github.com/exehost/executor/internal/shellquote"
)

// Builder constructs argv for the ssh client. Not concurrency-safe;
// treat as a single-use, short-lived value, mirroring remuxcmd.Builder.
type Builder struct {
	args []string
}

// NewBuilder returns a Builder pre-seeded with the client binary name.
func NewBuilder() *Builder {
	return &Builder{args: []string{"ssh"}}
}

// WithOption appends `-o key=value`, always emitted.
func (b *Builder) WithOption(key, value string) *Builder {
	b.args = append(b.args, "-o", key+"="+value)
	return b
}

// WithBatchMode appends `-o BatchMode={yes|no}`.
func (b *Builder) WithBatchMode(on bool) *Builder {
	return b.WithOption("BatchMode", yesNo(on))
}

// WithConnectTimeout appends `-o ConnectTimeout=<seconds>` when positive.
func (b *Builder) WithConnectTimeout(d time.Duration) *Builder {
	if d <= 0 {
		return b
	}
	return b.WithOption("ConnectTimeout", strconv.Itoa(int(d.Seconds())))
}

// WithStrictHostKeyChecking appends `-o StrictHostKeyChecking=<mode>`.
func (b *Builder) WithStrictHostKeyChecking(mode string) *Builder {
	if mode == "" {
		return b
	}
	return b.WithOption("StrictHostKeyChecking", mode)
}

// WithIgnoreKnownHosts appends the UserKnownHostsFile=/dev/null pair
// alongside a forced StrictHostKeyChecking=no, per spec.md §4.4.
func (b *Builder) WithIgnoreKnownHosts(ignore bool) *Builder {
	if !ignore {
		return b
	}
	b.WithOption("UserKnownHostsFile", "/dev/null")
	return b.WithOption("StrictHostKeyChecking", "no")
}

// WithIdentityFile appends `-i <path>` if non-empty.
func (b *Builder) WithIdentityFile(path string) *Builder {
	if path == "" {
		return b
	}
	b.args = append(b.args, "-i", path)
	return b
}

// WithPort appends `-p <port>` if nonzero.
func (b *Builder) WithPort(port int) *Builder {
	if port == 0 {
		return b
	}
	b.args = append(b.args, "-p", strconv.Itoa(port))
	return b
}

// WithUser appends `-l <user>` if non-empty.
func (b *Builder) WithUser(user string) *Builder {
	if user == "" {
		return b
	}
	b.args = append(b.args, "-l", user)
	return b
}

// WithHost appends the bare host as a positional argument.
func (b *Builder) WithHost(host string) *Builder {
	b.args = append(b.args, host)
	return b
}

// WithRemoteCommand appends the remote shell string, already fully
// composed (directory cd-prefix, privilege wrappers, shell-quoted
// argv join) by the caller.
func (b *Builder) WithRemoteCommand(remoteShellString string) *Builder {
	if remoteShellString != "" {
		b.args = append(b.args, remoteShellString)
	}
	return b
}

// BuildArgv returns a defensive copy of the constructed argv.
func (b *Builder) BuildArgv() []string {
	out := make([]string, len(b.args))
	copy(out, b.args)
	return out
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

// composeRemoteShellString builds the command the remote sshd runs:
// an optional `cd <dir> &&` prefix, an optional sudo/fakeroot prefix
// (applied on the remote side per spec.md §4.4), then the shell-quoted
// join of the remote argv.
func composeRemoteShellString(argv []string, directory string, sudo, fakeroot bool) string {
	script := shellquote.QuoteAll(argv)

	var prefix string
	if fakeroot {
		prefix = "fakeroot "
	}
	if sudo {
		prefix = "sudo -n " + prefix
	}
	script = prefix + script

	if directory != "" {
		script = "cd " + shellquote.Quote(directory) + " && " + script
	}
	return script
}
