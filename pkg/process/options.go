package process

import "time"

// Options is the enumerated configuration record for a Command. Unknown
// fields are a static error by construction: there is no map[string]any
// escape hatch, only named fields with documented defaults (the corpus's
// "dynamic kwargs become an explicit config struct" idiom).
type Options struct {
	// Shell is the interpreter used when the argv needs shell syntax
	// (metacharacters present, or UseShell forced true). Defaults to
	// "bash" via DefaultOptions.
	Shell string

	// UseShell forces (true) or forbids (false) shell wrapping. Leave
	// nil for auto-detection based on the argv's contents.
	UseShell *bool

	// Environment overrides merged over the inherited environment.
	Environment map[string]string

	// Directory is the working directory at spawn, or "" to inherit
	// the parent's cwd.
	Directory string

	// Input is written to the child's stdin, then the pipe is closed.
	Input []byte

	// Capture enables draining stdout into an in-memory buffer.
	Capture bool
	// CaptureStderr enables draining stderr into its own buffer.
	CaptureStderr bool
	// MergeStreams routes stderr to whatever stdout's disposition is.
	MergeStreams bool
	// Silent discards stdout/stderr that aren't otherwise routed.
	Silent bool

	// StdoutFile / StderrFile, when non-nil, take precedence over
	// Capture/CaptureStderr/Silent for their respective stream: bytes
	// are written to the handle exactly as produced.
	StdoutFile Writer
	StderrFile Writer

	// Check: a nonzero exit returns a CommandFailedError. Defaults to
	// true via DefaultOptions (matching the Python library's default).
	Check bool

	// Async: Run returns as soon as Start has spawned the child,
	// instead of blocking for reap; the caller calls Wait later.
	Async bool

	// Sudo / Fakeroot / VirtualEnv: privilege and environment wrappers
	// applied outside-in per spec.md §4.3.
	Sudo       bool
	Fakeroot   bool
	VirtualEnv string

	// Timeout, if nonzero, bounds how long the command may run before
	// the engine terminates it (CommandTimedOutError).
	Timeout time.Duration
	// GracePeriod is how long a termination request is given to take
	// effect before escalating to a kill. Defaults to 3s.
	GracePeriod time.Duration
}

// Writer is the minimal capability StdoutFile/StderrFile need: an
// already-open handle the caller owns the lifecycle of (this library
// never closes it).
type Writer interface {
	Write(p []byte) (int, error)
}

// DefaultOptions returns the named defaults every Command starts from.
func DefaultOptions() Options {
	return Options{
		Shell:       "bash",
		Check:       true,
		GracePeriod: 3 * time.Second,
	}
}
